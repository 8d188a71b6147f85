package triage

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/scan-io-git/scanio-findings/internal/events"
	"github.com/scan-io-git/scanio-findings/internal/models"
)

const (
	// RejectedTag marks findings rejected from the developer side.
	RejectedTag = "rejected_by_developer"
	// RejectComment is attached to the status change.
	RejectComment = "Rejected by developer"
)

// FindingMutator changes findings on the server.
type FindingMutator interface {
	SetTriageStatus(ctx context.Context, findingID int64, status models.TriageStatus, comment string) error
	AddTag(ctx context.Context, findingID int64, tag string) error
}

// EmailSource provides the committer email used as an extra tag.
type EmailSource interface {
	CommitterEmail() (string, bool)
}

// StatusMarker applies a local status change until the next refresh.
type StatusMarker interface {
	MarkStatus(id int64, status models.TriageStatus) bool
}

// Publisher announces that the findings should be refreshed.
type Publisher interface {
	Publish(topic events.Topic) events.Message
}

// RejectResult summarizes the tag mutations of a successful rejection.
type RejectResult struct {
	TagsAdded  int
	TagsFailed int
}

// Rejecter rejects single findings.
type Rejecter struct {
	api    FindingMutator
	email  EmailSource
	marker StatusMarker
	bus    Publisher
	logger hclog.Logger
}

// NewRejecter creates a Rejecter. email, marker and bus may be nil.
func NewRejecter(api FindingMutator, email EmailSource, marker StatusMarker, bus Publisher, logger hclog.Logger) *Rejecter {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Rejecter{
		api:    api,
		email:  email,
		marker: marker,
		bus:    bus,
		logger: logger.Named("reject"),
	}
}

// Reject sets the finding status to REJECTED and tags it, all in parallel.
// Only the status change decides the outcome: tag failures are logged and
// counted, and nothing is rolled back when the status change fails.
func (r *Rejecter) Reject(ctx context.Context, f models.Finding) (RejectResult, error) {
	r.logger.Info("rejecting finding", "id", f.ID)

	tags := []string{RejectedTag}
	if r.email != nil {
		if email, ok := r.email.CommitterEmail(); ok {
			tags = append(tags, email)
		}
	}

	var (
		g      errgroup.Group
		added  atomic.Int32
		failed atomic.Int32
	)
	g.Go(func() error {
		if err := r.api.SetTriageStatus(ctx, f.ID, models.StatusRejected, RejectComment); err != nil {
			r.logger.Error("failed to set status", "id", f.ID, "error", err)
			return fmt.Errorf("failed to change finding %d status to %s: %w", f.ID, models.StatusRejected, err)
		}
		return nil
	})
	for _, tag := range tags {
		g.Go(func() error {
			if err := r.api.AddTag(ctx, f.ID, tag); err != nil {
				r.logger.Warn("failed to add tag", "id", f.ID, "tag", tag, "error", err)
				failed.Add(1)
				return nil
			}
			added.Add(1)
			return nil
		})
	}

	err := g.Wait()
	result := RejectResult{TagsAdded: int(added.Load()), TagsFailed: int(failed.Load())}
	if err != nil {
		return result, err
	}

	r.logger.Info("finding rejected", "id", f.ID, "tags_added", result.TagsAdded, "tags_total", len(tags))
	if r.marker != nil {
		r.marker.MarkStatus(f.ID, models.StatusRejected)
	}
	if r.bus != nil {
		r.bus.Publish(events.RefreshRequested)
	}
	return result, nil
}
