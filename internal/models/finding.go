package models

// Finding is a single security issue record as returned by the findings API.
// A finding is identified by ID; Name is a human title and is not unique.
type Finding struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description,omitempty"`
	FilePath     string       `json:"file_path,omitempty"`
	Line         *int         `json:"line,omitempty"`
	Severity     Severity     `json:"severity"`
	TriageStatus TriageStatus `json:"current_sla_level"`
	Product      int64        `json:"product"`
	DateCreated  string       `json:"date_created,omitempty"`
	FindingURL   string       `json:"dojo_finding_url,omitempty"`
	Tags         []string     `json:"tags,omitempty"`
	LineText     string       `json:"line_text,omitempty"`
	Language     string       `json:"language,omitempty"`
}

// Anchored reports whether the finding carries both a file path and a line.
func (f Finding) Anchored() bool {
	return f.FilePath != "" && f.Line != nil
}

// LineNumber returns the 1-based line, or 0 when absent.
func (f Finding) LineNumber() int {
	if f.Line == nil {
		return 0
	}
	return *f.Line
}

// WithStatus returns a copy of f carrying the given triage status.
func (f Finding) WithStatus(status TriageStatus) Finding {
	f.TriageStatus = status
	if f.Tags != nil {
		f.Tags = append([]string(nil), f.Tags...)
	}
	return f
}

// IntPtr is a small helper for building findings with a line.
func IntPtr(v int) *int {
	return &v
}
