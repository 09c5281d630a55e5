package exporters

import (
	"fmt"
	"html"
	"strings"

	"github.com/eztutor/drive-export/internal/entities"
)

// DocumentTitle is the file name used for the exported document.
func DocumentTitle(content *entities.ExportContent) string {
	if t := strings.TrimSpace(content.Title); t != "" {
		return t
	}
	return fmt.Sprintf("%s export", content.Type)
}

// GenerateHTML renders content as the HTML body Drive converts into a
// native document. Each structured field gets a section only when it has
// at least one non-empty entry.
func GenerateHTML(content *entities.ExportContent) string {
	var sb strings.Builder

	sb.WriteString("<h1>")
	sb.WriteString(html.EscapeString(DocumentTitle(content)))
	sb.WriteString("</h1>")

	if d := strings.TrimSpace(content.Description); d != "" {
		sb.WriteString("<p>")
		sb.WriteString(html.EscapeString(d))
		sb.WriteString("</p>")
	}

	writeList(&sb, "Objectives", content.Objectives)
	writeList(&sb, "Key Points", content.KeyPoints)
	writeActivities(&sb, content.Activities)
	writeQuestions(&sb, content.Questions)

	return sb.String()
}

func nonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func writeList(sb *strings.Builder, heading string, items []string) {
	items = nonEmpty(items)
	if len(items) == 0 {
		return
	}

	fmt.Fprintf(sb, "<h2>%s</h2><ul>", heading)
	for _, item := range items {
		fmt.Fprintf(sb, "<li>%s</li>", html.EscapeString(item))
	}
	sb.WriteString("</ul>")
}

func writeActivities(sb *strings.Builder, activities []entities.Activity) {
	var rendered []string
	for _, a := range activities {
		name := strings.TrimSpace(a.Name)
		desc := strings.TrimSpace(a.Description)
		if name == "" && desc == "" {
			continue
		}

		var p strings.Builder
		p.WriteString("<p>")
		if name != "" {
			p.WriteString("<strong>" + html.EscapeString(name) + "</strong>")
			if d := strings.TrimSpace(a.Duration); d != "" {
				p.WriteString(" (" + html.EscapeString(d) + ")")
			}
			if desc != "" {
				p.WriteString(": ")
			}
		}
		p.WriteString(html.EscapeString(desc))
		p.WriteString("</p>")
		rendered = append(rendered, p.String())
	}

	if len(rendered) == 0 {
		return
	}
	sb.WriteString("<h2>Activities</h2>")
	sb.WriteString(strings.Join(rendered, ""))
}

func writeQuestions(sb *strings.Builder, questions []entities.Question) {
	n := 0
	var body strings.Builder
	for _, q := range questions {
		text := strings.TrimSpace(q.Text)
		if text == "" {
			continue
		}
		n++
		fmt.Fprintf(&body, "<p><strong>Q%d.</strong> %s</p>", n, html.EscapeString(text))

		options := nonEmpty(q.Options)
		if len(options) > 0 {
			body.WriteString(`<ol type="A">`)
			for _, o := range options {
				fmt.Fprintf(&body, "<li>%s</li>", html.EscapeString(o))
			}
			body.WriteString("</ol>")
		}
	}

	if n == 0 {
		return
	}
	sb.WriteString("<h2>Questions</h2>")
	sb.WriteString(body.String())
}
