package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/scanio-findings/internal/models"
)

func TestToHTML(t *testing.T) {
	tests := []struct {
		name     string
		markdown string
		contains []string
	}{
		{name: "blank", markdown: "  \n\t", contains: []string{EmptyDescription}},
		{name: "heading", markdown: "### Description", contains: []string{"<h3>Description</h3>"}},
		{name: "code", markdown: "```go\nexec(x)\n```", contains: []string{`<code class="language-go">exec(x)`}},
		{name: "table", markdown: "| a | b |\n|---|---|\n| 1 | 2 |", contains: []string{"<table>", "<td>1</td>"}},
		{name: "inline html", markdown: "<span style='color: red'>HIGH</span>", contains: []string{"<span style='color: red'>HIGH</span>"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToHTML(tt.markdown)
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
		})
	}
}

func TestDocument(t *testing.T) {
	page, err := Document("hello", "<Finding 1>")
	require.NoError(t, err)
	assert.Contains(t, page, "<title>&lt;Finding 1&gt;</title>")
	assert.Contains(t, page, "<p>hello</p>")
}

func TestFindingMarkdown(t *testing.T) {
	f := models.Finding{
		ID:           42,
		Name:         "SQL injection",
		Description:  "User input reaches a query.",
		FilePath:     "db/query.go",
		Line:         models.IntPtr(17),
		Severity:     models.SeverityHigh,
		TriageStatus: models.StatusTemporarilyAccepted,
		Product:      3,
		Tags:         []string{"sast"},
		LineText:     "db.Query(q + id)",
		Language:     "go",
	}

	md := FindingMarkdown(f, "https://appsec.example.com/")
	assert.Contains(t, md, "<a href='https://appsec.example.com/products/3/findings/42' target='_blank'>42</a>")
	assert.Contains(t, md, "<span style='color: #ff8800; font-weight: bold;'>HIGH</span> - SQL injection")
	assert.Contains(t, md, "### Status: Temporarily accepted")
	assert.Contains(t, md, "`db/query.go:17`")
	assert.Contains(t, md, "```go\ndb.Query(q + id)\n```")
	assert.Contains(t, md, "### Description\n\nUser input reaches a query.")
	assert.Contains(t, md, "- `sast`")

	bare := FindingMarkdown(models.Finding{ID: 1, Name: "x"}, "")
	assert.Contains(t, bare, "### 1: ")
	assert.NotContains(t, bare, "Code snippet")
	assert.NotContains(t, bare, "Tags")
}

func TestFindingMarkdownEscapesAPIText(t *testing.T) {
	f := models.Finding{
		ID:       5,
		Name:     `<img src=x onerror="alert(1)">`,
		FilePath: "web/`tpl`.js",
		Severity: models.SeverityLow,
		Tags:     []string{"a`b"},
		LineText: "const s = ```\n<script>alert(1)</script>\n```;",
		Language: "js",
	}

	md := FindingMarkdown(f, "")
	assert.Contains(t, md, "- &lt;img src=x onerror=&#34;alert(1)&#34;&gt;")
	assert.Contains(t, md, "````js\nconst s = ```")
	assert.Contains(t, md, "`` web/`tpl`.js ``")
	assert.Contains(t, md, "- `` a`b ``")

	out, err := ToHTML(md)
	require.NoError(t, err)
	assert.NotContains(t, out, "<img")
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;alert(1)&lt;/script&gt;")
	assert.Contains(t, out, `<code class="language-js">`)
}

func TestLongestBacktickRun(t *testing.T) {
	testCases := []struct {
		in   string
		want int
	}{
		{in: "", want: 0},
		{in: "plain", want: 0},
		{in: "a`b", want: 1},
		{in: "``` and `` and ````", want: 4},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, longestBacktickRun(tc.in), tc.in)
	}
}
