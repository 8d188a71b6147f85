package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Severity is the finding severity. Its ordinal is the wire value.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

var severityNames = [...]string{"INFO", "LOW", "MEDIUM", "HIGH", "CRITICAL"}

// AllSeverities lists severities in ascending order.
func AllSeverities() []Severity {
	return []Severity{SeverityInfo, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
}

// SeverityFromInt maps a wire value to a Severity. Unknown values fall back to INFO.
func SeverityFromInt(v int) Severity {
	if v < int(SeverityInfo) || v > int(SeverityCritical) {
		return SeverityInfo
	}
	return Severity(v)
}

// ParseSeverity resolves a severity by its name, case-insensitively.
func ParseSeverity(name string) (Severity, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	for i, s := range severityNames {
		if s == n {
			return Severity(i), nil
		}
	}
	return SeverityInfo, fmt.Errorf("unknown severity %q", name)
}

func (s Severity) String() string {
	if s < SeverityInfo || s > SeverityCritical {
		return severityNames[SeverityInfo]
	}
	return severityNames[s]
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(s))
}

func (s *Severity) UnmarshalJSON(data []byte) error {
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("severity: %w", err)
	}
	*s = SeverityFromInt(v)
	return nil
}
