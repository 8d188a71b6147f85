// Package render turns finding descriptions and details into HTML.
package render

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/scan-io-git/scanio-findings/internal/models"
)

// EmptyDescription is rendered for a blank description.
const EmptyDescription = "<p>No description provided.</p>"

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(
		// finding details carry inline spans for severity colors
		gmhtml.WithUnsafe(),
	),
)

// ToHTML converts markdown into an HTML fragment.
func ToHTML(markdown string) (string, error) {
	if strings.TrimSpace(markdown) == "" {
		return EmptyDescription, nil
	}
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return buf.String(), nil
}

// Document renders markdown as a standalone HTML page.
func Document(markdown, title string) (string, error) {
	body, err := ToHTML(markdown)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>%s</title>
</head>
<body>
%s</body>
</html>
`, html.EscapeString(title), body), nil
}

var severityColors = map[models.Severity]string{
	models.SeverityCritical: "#ff0000",
	models.SeverityHigh:     "#ff8800",
	models.SeverityMedium:   "#ffaa00",
	models.SeverityLow:      "#00aa00",
	models.SeverityInfo:     "#0088ff",
}

// FindingMarkdown builds the detail view of a finding. baseURL is the API
// endpoint used to link the finding; it may be empty.
func FindingMarkdown(f models.Finding, baseURL string) string {
	var b strings.Builder

	id := fmt.Sprint(f.ID)
	if baseURL != "" {
		id = fmt.Sprintf("<a href='%s/products/%d/findings/%d' target='_blank'>%d</a>",
			html.EscapeString(strings.TrimSuffix(baseURL, "/")), f.Product, f.ID, f.ID)
	}
	color, ok := severityColors[f.Severity]
	if !ok {
		color = "#888888"
	}
	// raw HTML is enabled, so text from the API is escaped
	fmt.Fprintf(&b, "### %s: <span style='color: %s; font-weight: bold;'>%s</span> - %s\n\n", id, color, f.Severity, html.EscapeString(f.Name))
	fmt.Fprintf(&b, "### Status: %s\n\n", statusTitle(f.TriageStatus))

	if f.FilePath != "" {
		loc := f.FilePath
		if f.Line != nil {
			loc = fmt.Sprintf("%s:%d", f.FilePath, *f.Line)
		}
		fmt.Fprintf(&b, "%s\n\n", codeSpan(loc))
	}

	if strings.TrimSpace(f.LineText) != "" {
		lang := f.Language
		if strings.ContainsAny(lang, "` \t\n") {
			lang = ""
		}
		fence := strings.Repeat("`", max(3, longestBacktickRun(f.LineText)+1))
		fmt.Fprintf(&b, "### Code snippet:\n\n%s%s\n%s\n%s\n\n", fence, lang, f.LineText, fence)
	}
	if strings.TrimSpace(f.Description) != "" {
		fmt.Fprintf(&b, "### Description\n\n%s\n\n", f.Description)
	}
	if len(f.Tags) > 0 {
		b.WriteString("### Tags\n\n")
		for _, tag := range f.Tags {
			fmt.Fprintf(&b, "- %s\n", codeSpan(tag))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func statusTitle(s models.TriageStatus) string {
	name := strings.ToLower(strings.ReplaceAll(s.String(), "_", " "))
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// codeSpan wraps s in an inline code span delimited by more backticks than s contains.
func codeSpan(s string) string {
	run := longestBacktickRun(s)
	if run == 0 {
		return "`" + s + "`"
	}
	ticks := strings.Repeat("`", run+1)
	return ticks + " " + s + " " + ticks
}

func longestBacktickRun(s string) int {
	longest, current := 0, 0
	for _, r := range s {
		if r != '`' {
			current = 0
			continue
		}
		current++
		longest = max(longest, current)
	}
	return longest
}
