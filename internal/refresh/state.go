package refresh

import (
	"fmt"

	"github.com/scan-io-git/scanio-findings/internal/models"
)

// Phase is the active variant of a State.
type Phase int

const (
	PhaseNotLoaded Phase = iota
	PhaseLoading
	PhaseLoaded
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseNotLoaded:
		return "NotLoaded"
	case PhaseLoading:
		return "Loading"
	case PhaseLoaded:
		return "Loaded"
	case PhaseError:
		return "Error"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// State is the published refresh state. Findings is set only when Loaded and
// must be treated as read-only; Message carries the error text when Error.
type State struct {
	Phase    Phase
	Findings []models.Finding
	Message  string
}

func notLoaded() State { return State{Phase: PhaseNotLoaded} }

func loading() State { return State{Phase: PhaseLoading, Message: "Loading findings..."} }

func loaded(findings []models.Finding) State {
	return State{
		Phase:    PhaseLoaded,
		Findings: findings,
		Message:  fmt.Sprintf("Loaded %d findings", len(findings)),
	}
}

func failed(message string) State { return State{Phase: PhaseError, Message: message} }
