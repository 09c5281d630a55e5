package exporters

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "removes invalid characters",
			input:    `Cells: <Part 1/2> "intro"?`,
			expected: "Cells Part 12 intro",
		},
		{
			name:     "replaces newlines and tabs with spaces",
			input:    "Photo\nsynthesis\tand\rlight",
			expected: "Photo synthesis and light",
		},
		{
			name:     "collapses multiple spaces",
			input:    "Earth   and  Space",
			expected: "Earth and Space",
		},
		{
			name:     "keeps brackets and hashes",
			input:    "Quiz #3 [review]",
			expected: "Quiz #3 [review]",
		},
		{
			name:     "returns Untitled for empty",
			input:    "  ",
			expected: "Untitled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeFilename(tt.input))
		})
	}
}

func TestSanitizeFilename_LongNames(t *testing.T) {
	t.Run("ascii", func(t *testing.T) {
		result := SanitizeFilename(strings.Repeat("a", 300))
		assert.Len(t, result, maxFilenameLength)
	})

	t.Run("multibyte runes are not split", func(t *testing.T) {
		result := SanitizeFilename(strings.Repeat("é", 150))
		assert.True(t, utf8.ValidString(result))
		assert.LessOrEqual(t, len(result), maxFilenameLength)
	})
}

func TestDocxFilename(t *testing.T) {
	assert.Equal(t, "Photosynthesis.docx", docxFilename("Photosynthesis"))
	assert.Equal(t, "Cells Part 1.docx", docxFilename("Cells: Part 1"))
}
