package findings

import (
	"context"
	"errors"
	"fmt"

	"github.com/scan-io-git/scanio-findings/internal/appsec"
)

// Kind classifies a synchronization failure.
type Kind int

const (
	KindNotConfigured Kind = iota + 1
	KindRepositoryNotFound
	KindURLUnparsable
	KindAssetNotRegistered
	KindNoFindings
	KindTransport
)

// Sentinels for errors.Is. A *SyncError matches the sentinel of its Kind.
var (
	ErrNotConfigured      = &SyncError{Kind: KindNotConfigured}
	ErrRepositoryNotFound = &SyncError{Kind: KindRepositoryNotFound}
	ErrURLUnparsable      = &SyncError{Kind: KindURLUnparsable}
	ErrAssetNotRegistered = &SyncError{Kind: KindAssetNotRegistered}
	ErrNoFindings         = &SyncError{Kind: KindNoFindings}
	ErrTransport          = &SyncError{Kind: KindTransport}
)

// SyncError is a synchronization failure. Message is plain text meant for display.
type SyncError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *SyncError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.String()
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Is matches any *SyncError of the same Kind.
func (e *SyncError) Is(target error) bool {
	t, ok := target.(*SyncError)
	return ok && t.Kind == e.Kind
}

func (k Kind) String() string {
	switch k {
	case KindNotConfigured:
		return "not configured"
	case KindRepositoryNotFound:
		return "repository not found"
	case KindURLUnparsable:
		return "unparsable repository URL"
	case KindAssetNotRegistered:
		return "asset not registered"
	case KindNoFindings:
		return "no findings"
	case KindTransport:
		return "transport failure"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

func newError(kind Kind, err error, format string, args ...any) *SyncError {
	return &SyncError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// transportError maps a retrieval failure into the taxonomy. Only the caller's
// own cancellation passes through; a timeout inside the transport is a
// transport failure.
func transportError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return newError(KindTransport, err, "Failed to %s: request timed out", op)
	case errors.Is(err, appsec.ErrNotConfigured):
		return newError(KindNotConfigured, err, "API URL and token are not configured. Run the setup command first.")
	}

	var apiErr *appsec.APIError
	if errors.As(err, &apiErr) {
		return newError(KindTransport, err, "Failed to %s: HTTP %d", op, apiErr.StatusCode)
	}
	return newError(KindTransport, err, "Failed to %s: %v", op, err)
}
