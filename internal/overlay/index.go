package overlay

import (
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/scanio-findings/internal/models"
)

// Document is an open file. Implementations must be comparable, typically a pointer.
type Document interface {
	Path() string
	LineCount() int
}

// Marker is a painted line decoration with its click target.
type Marker interface {
	Dispose()
}

// Editor paints decorations into open documents.
type Editor interface {
	PaintLine(doc Document, line int, style Style, tooltip string, onClick func()) (Marker, error)
}

// Settings tells whether highlighting is enabled.
type Settings interface {
	HighlightEnabled() bool
}

// Index groups findings by project-relative path and keeps the markers of
// open documents in sync with them. Markers exist only for open documents.
type Index struct {
	root     string
	editor   Editor
	settings Settings
	onSelect func(models.Finding)
	logger   hclog.Logger

	mu      sync.Mutex
	byPath  map[string][]models.Finding
	open    map[Document]struct{}
	markers map[Document][]Marker
}

// NewIndex creates an Index for the project rooted at root. onSelect is called
// when a marker is clicked and may be nil.
func NewIndex(root string, editor Editor, settings Settings, onSelect func(models.Finding), logger hclog.Logger) *Index {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &Index{
		root:     root,
		editor:   editor,
		settings: settings,
		onSelect: onSelect,
		logger:   logger.Named("overlay"),
		byPath:   make(map[string][]models.Finding),
		open:     make(map[Document]struct{}),
		markers:  make(map[Document][]Marker),
	}
}

// UpdateFindings replaces the known findings. Findings without a path or a
// line are dropped. Markers of all open documents are cleared and repainted
// in one step under the index lock.
func (x *Index) UpdateFindings(all []models.Finding) {
	grouped := make(map[string][]models.Finding)
	for _, f := range all {
		if !f.Anchored() {
			continue
		}
		p := cleanRelative(f.FilePath)
		if p == "" {
			continue
		}
		grouped[p] = append(grouped[p], f)
	}
	x.logger.Info("updating findings", "total", len(all), "files", len(grouped))

	x.mu.Lock()
	defer x.mu.Unlock()

	for doc := range x.markers {
		x.clearLocked(doc)
	}
	x.byPath = grouped

	highlighted := 0
	for doc := range x.open {
		if list, ok := x.byPath[x.relativePath(doc)]; ok {
			x.highlightLocked(doc, list)
			highlighted++
		}
	}
	x.logger.Debug("repainted open documents", "open", len(x.open), "highlighted", highlighted)
}

// FindingsFor returns the findings of the document's path, or nil.
func (x *Index) FindingsFor(doc Document) []models.Finding {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.findingsLocked(doc)
}

// FindingsForPath is FindingsFor by project-relative or absolute path.
func (x *Index) FindingsForPath(p string) []models.Finding {
	x.mu.Lock()
	defer x.mu.Unlock()
	list := x.byPath[x.normalize(p)]
	return append([]models.Finding(nil), list...)
}

// OnFileOpened registers doc as open and paints its findings.
func (x *Index) OnFileOpened(doc Document) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.open[doc] = struct{}{}

	list := x.byPath[x.relativePath(doc)]
	if len(list) == 0 {
		x.logger.Debug("no findings for opened file", "path", doc.Path())
		return
	}
	x.highlightLocked(doc, list)
}

// OnFileClosed releases the markers of doc and forgets it.
func (x *Index) OnFileClosed(doc Document) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.clearLocked(doc)
	delete(x.open, doc)
}

// HighlightInOpenFile paints one marker per finding whose line lies within
// the document. It replaces markers already present and returns how many
// were painted. Documents that are not open are left untouched.
func (x *Index) HighlightInOpenFile(doc Document, list []models.Finding) int {
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, ok := x.open[doc]; !ok {
		x.logger.Warn("document is not open, skipping highlight", "path", doc.Path())
		return 0
	}
	return x.highlightLocked(doc, list)
}

// ClearForFile disposes all markers of doc.
func (x *Index) ClearForFile(doc Document) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.clearLocked(doc)
}

// MarkerCount returns the number of active markers in doc.
func (x *Index) MarkerCount(doc Document) int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.markers[doc])
}

func (x *Index) findingsLocked(doc Document) []models.Finding {
	list := x.byPath[x.relativePath(doc)]
	return append([]models.Finding(nil), list...)
}

func (x *Index) highlightLocked(doc Document, list []models.Finding) int {
	if x.settings != nil && !x.settings.HighlightEnabled() {
		x.logger.Debug("highlighting is disabled")
		return 0
	}
	x.clearLocked(doc)

	lineCount := doc.LineCount()
	var markers []Marker
	for _, f := range list {
		line := f.LineNumber()
		if line < 1 || line > lineCount {
			x.logger.Warn("invalid line for finding", "finding", f.ID, "name", f.Name, "line", line, "lines", lineCount)
			continue
		}

		finding := f
		marker, err := x.editor.PaintLine(doc, line, StyleFor(f.Severity), Tooltip(f), func() {
			if x.onSelect != nil {
				x.onSelect(finding)
			}
		})
		if err != nil {
			x.logger.Error("failed to paint marker", "finding", f.ID, "path", doc.Path(), "error", err)
			continue
		}
		markers = append(markers, marker)
	}

	if len(markers) > 0 {
		x.markers[doc] = markers
	}
	x.logger.Info("added markers", "path", doc.Path(), "painted", len(markers), "findings", len(list))
	return len(markers)
}

func (x *Index) clearLocked(doc Document) {
	for _, m := range x.markers[doc] {
		m.Dispose()
	}
	delete(x.markers, doc)
}

func (x *Index) relativePath(doc Document) string {
	return x.normalize(doc.Path())
}

// normalize turns p into a slash separated path relative to the project root.
// Paths outside the root normalize to "".
func (x *Index) normalize(p string) string {
	if filepath.IsAbs(p) {
		rel, err := filepath.Rel(x.root, p)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return ""
		}
		p = rel
	}
	return cleanRelative(p)
}

func cleanRelative(p string) string {
	p = strings.TrimSpace(filepath.ToSlash(p))
	if p == "" {
		return ""
	}
	p = strings.TrimLeft(path.Clean(p), "/")
	if p == "." || p == ".." || strings.HasPrefix(p, "../") {
		return ""
	}
	return p
}
