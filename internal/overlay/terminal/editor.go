// Package terminal renders overlay markers into files printed on a terminal.
package terminal

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/scan-io-git/scanio-findings/internal/overlay"
)

// Document is a file loaded from disk.
type Document struct {
	path  string
	lines []string

	mu    sync.Mutex
	marks map[int][]*marker
}

// Open reads the file at path.
func Open(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", path, err)
	}
	return NewDocument(path, data), nil
}

// NewDocument creates a Document from content.
func NewDocument(path string, content []byte) *Document {
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(content))
	sc.Buffer(make([]byte, 64*1024), 10*1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return &Document{path: path, lines: lines, marks: make(map[int][]*marker)}
}

func (d *Document) Path() string   { return d.path }
func (d *Document) LineCount() int { return len(d.lines) }

type marker struct {
	doc     *Document
	line    int
	style   overlay.Style
	tooltip string
	onClick func()
}

func (m *marker) Dispose() {
	m.doc.mu.Lock()
	defer m.doc.mu.Unlock()
	list := m.doc.marks[m.line]
	for i, other := range list {
		if other == m {
			m.doc.marks[m.line] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(m.doc.marks[m.line]) == 0 {
		delete(m.doc.marks, m.line)
	}
}

// Editor paints markers into terminal Documents.
type Editor struct{}

// PaintLine records a marker on line of doc.
func (Editor) PaintLine(doc overlay.Document, line int, style overlay.Style, tooltip string, onClick func()) (overlay.Marker, error) {
	d, ok := doc.(*Document)
	if !ok {
		return nil, fmt.Errorf("unsupported document type %T", doc)
	}
	if line < 1 || line > d.LineCount() {
		return nil, fmt.Errorf("line %d out of range 1..%d", line, d.LineCount())
	}

	m := &marker{doc: d, line: line, style: style, tooltip: tooltip, onClick: onClick}
	d.mu.Lock()
	d.marks[line] = append(d.marks[line], m)
	d.mu.Unlock()
	return m, nil
}

// MarkedLines returns the lines carrying at least one marker, ascending.
func (d *Document) MarkedLines() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	lines := make([]int, 0, len(d.marks))
	for l := range d.marks {
		lines = append(lines, l)
	}
	sort.Ints(lines)
	return lines
}

// Select invokes the click handlers of the markers on line and reports
// whether there were any.
func (d *Document) Select(line int) bool {
	d.mu.Lock()
	handlers := make([]func(), 0, len(d.marks[line]))
	for _, m := range d.marks[line] {
		if m.onClick != nil {
			handlers = append(handlers, m.onClick)
		}
	}
	d.mu.Unlock()

	for _, h := range handlers {
		h()
	}
	return len(handlers) > 0
}

var (
	gutterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	noteStyle   = lipgloss.NewStyle().Faint(true)
)

// Render writes the document with a gutter column showing the markers. When
// around is >= 0 only marked lines and that many lines around them are written.
func Render(w io.Writer, d *Document, around int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	width := len(fmt.Sprint(len(d.lines)))
	visible := d.visibleLines(around)
	prev := 0
	for _, n := range visible {
		if prev != 0 && n != prev+1 {
			if _, err := fmt.Fprintln(w, gutterStyle.Render(strings.Repeat(" ", width)+"  ⋮")); err != nil {
				return err
			}
		}
		prev = n

		glyph := " "
		var notes []string
		if marks := d.marks[n]; len(marks) > 0 {
			top := marks[0].style
			for _, m := range marks[1:] {
				if m.style.Severity > top.Severity {
					top = m.style
				}
			}
			glyph = top.Render(top.Icon)
			for _, m := range marks {
				notes = append(notes, m.style.Render(strings.SplitN(m.tooltip, "\n", 2)[0]))
			}
		}

		gutter := gutterStyle.Render(fmt.Sprintf("%*d", width, n))
		if _, err := fmt.Fprintf(w, "%s %s %s\n", gutter, glyph, d.lines[n-1]); err != nil {
			return err
		}
		for _, note := range notes {
			if _, err := fmt.Fprintf(w, "%s   %s\n", strings.Repeat(" ", width), noteStyle.Render("└ ")+note); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Document) visibleLines(around int) []int {
	if around < 0 {
		out := make([]int, len(d.lines))
		for i := range d.lines {
			out[i] = i + 1
		}
		return out
	}

	keep := make(map[int]struct{})
	for line := range d.marks {
		for n := line - around; n <= line+around; n++ {
			if n >= 1 && n <= len(d.lines) {
				keep[n] = struct{}{}
			}
		}
	}
	out := make([]int, 0, len(keep))
	for n := range keep {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}
