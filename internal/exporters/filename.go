package exporters

import (
	"regexp"
	"strings"
)

var (
	// Characters Windows and macOS refuse in downloaded file names
	invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	controlChars         = regexp.MustCompile(`[\r\n\t\x00-\x1f]`)
	multipleSpaces       = regexp.MustCompile(`\s+`)
)

const maxFilenameLength = 200

// SanitizeFilename makes a document title safe to use as the name of an
// uploaded file that users will download to their own disks.
func SanitizeFilename(filename string) string {
	filename = invalidFilenameChars.ReplaceAllString(filename, "")
	filename = controlChars.ReplaceAllString(filename, " ")
	filename = multipleSpaces.ReplaceAllString(filename, " ")
	filename = strings.TrimSpace(filename)

	if len(filename) > maxFilenameLength {
		// Cut on a rune boundary.
		cut := maxFilenameLength
		for cut > 0 && !isRuneStart(filename[cut]) {
			cut--
		}
		filename = strings.TrimSpace(filename[:cut])
	}

	if filename == "" {
		filename = "Untitled"
	}
	return filename
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// docxFilename is the name of the portable copy uploaded next to the
// native document.
func docxFilename(title string) string {
	return SanitizeFilename(title) + ".docx"
}
