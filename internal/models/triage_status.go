package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TriageStatus is the review lifecycle state of a finding. Its ordinal is the wire value.
type TriageStatus int

const (
	StatusResolved TriageStatus = iota
	StatusUnverified
	StatusVerified
	StatusAssigned
	StatusRejected
	StatusTemporarilyAccepted
	StatusPermanentlyAccepted
)

var triageStatusNames = [...]string{
	"RESOLVED",
	"UNVERIFIED",
	"VERIFIED",
	"ASSIGNED",
	"REJECTED",
	"TEMPORARILY_ACCEPTED",
	"PERMANENTLY_ACCEPTED",
}

// legacy short names still found in older configuration files
var triageStatusAliases = map[string]TriageStatus{
	"TEMPORARILY": StatusTemporarilyAccepted,
	"PERMANENTLY": StatusPermanentlyAccepted,
}

// AllTriageStatuses lists every status in wire order.
func AllTriageStatuses() []TriageStatus {
	out := make([]TriageStatus, len(triageStatusNames))
	for i := range triageStatusNames {
		out[i] = TriageStatus(i)
	}
	return out
}

// TriageStatusFromInt maps a wire value to a TriageStatus. Unknown values fall back to UNVERIFIED.
func TriageStatusFromInt(v int) TriageStatus {
	if v < int(StatusResolved) || v > int(StatusPermanentlyAccepted) {
		return StatusUnverified
	}
	return TriageStatus(v)
}

// ParseTriageStatus resolves a status by its name, case-insensitively.
func ParseTriageStatus(name string) (TriageStatus, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	for i, s := range triageStatusNames {
		if s == n {
			return TriageStatus(i), nil
		}
	}
	if s, ok := triageStatusAliases[n]; ok {
		return s, nil
	}
	return StatusUnverified, fmt.Errorf("unknown triage status %q", name)
}

func (s TriageStatus) String() string {
	if s < StatusResolved || s > StatusPermanentlyAccepted {
		return triageStatusNames[StatusUnverified]
	}
	return triageStatusNames[s]
}

func (s TriageStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(s))
}

func (s *TriageStatus) UnmarshalJSON(data []byte) error {
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("triage status: %w", err)
	}
	*s = TriageStatusFromInt(v)
	return nil
}
