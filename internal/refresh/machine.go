package refresh

import (
	"context"
	"errors"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/scanio-findings/internal/events"
	"github.com/scan-io-git/scanio-findings/internal/findings"
	"github.com/scan-io-git/scanio-findings/internal/models"
)

// Synchronizer runs one synchronization.
type Synchronizer interface {
	Refresh(ctx context.Context, progress findings.Progress) ([]models.Finding, error)
}

// FindingsSink receives every newly loaded finding list.
type FindingsSink interface {
	UpdateFindings(all []models.Finding)
}

type observer struct {
	states   chan State
	progress chan string
}

// Machine runs synchronizations one at a time and publishes their outcome.
// Starting a refresh cancels the one in flight; a cancelled attempt never
// publishes. Observers get the latest state and progress message on
// conflating channels, so a slow observer never blocks the machine.
type Machine struct {
	syncer Synchronizer
	sink   FindingsSink
	logger hclog.Logger

	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu         sync.Mutex
	state      State
	progress   string
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{}
	observers  map[int]*observer
	nextID     int
	closed     bool
}

// New creates a Machine in the NotLoaded state. sink may be nil.
func New(syncer Synchronizer, sink FindingsSink, logger hclog.Logger) *Machine {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	ctx, stop := context.WithCancel(context.Background())
	return &Machine{
		syncer:    syncer,
		sink:      sink,
		logger:    logger.Named("refresh"),
		ctx:       ctx,
		stop:      stop,
		state:     notLoaded(),
		observers: make(map[int]*observer),
	}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Progress returns the latest progress message.
func (m *Machine) Progress() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.progress
}

// Observe returns channels carrying the latest state and progress message.
// The current state is delivered immediately. Call the returned function to
// stop observing; both channels are closed then, or when the machine closes.
func (m *Machine) Observe() (<-chan State, <-chan string, func()) {
	obs := &observer{
		states:   make(chan State, 1),
		progress: make(chan string, 1),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		obs.states <- m.state
		close(obs.states)
		close(obs.progress)
		return obs.states, obs.progress, func() {}
	}
	id := m.nextID
	m.nextID++
	m.observers[id] = obs
	obs.states <- m.state

	return obs.states, obs.progress, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if o, ok := m.observers[id]; ok {
			delete(m.observers, id)
			close(o.states)
			close(o.progress)
		}
	}
}

// Refresh starts a new synchronization, cancelling the one in flight. It
// publishes Loading before returning. The new attempt waits for the cancelled
// one to return, so at most one synchronization is outstanding.
func (m *Machine) Refresh() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	if m.cancel != nil {
		m.cancel()
	}
	m.generation++
	gen := m.generation
	ctx, cancel := context.WithCancel(m.ctx)
	prev := m.done
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done

	m.progress = ""
	m.publishLocked(loading())
	m.logger.Debug("refresh started", "generation", gen)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer close(done)
		defer cancel()

		if prev != nil {
			<-prev
		}
		if ctx.Err() != nil {
			return
		}

		result, err := m.syncer.Refresh(ctx, func(msg string) {
			m.reportProgress(gen, msg)
		})
		m.finish(ctx, gen, result, err)
	}()
}

// Await blocks until the latest refresh attempt returned, then reports the state.
func (m *Machine) Await(ctx context.Context) (State, error) {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return m.State(), ctx.Err()
		}
	}
	return m.State(), nil
}

// MarkStatus applies a local status change to a loaded finding until the next refresh.
func (m *Machine) MarkStatus(id int64, status models.TriageStatus) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Phase != PhaseLoaded {
		return false
	}

	updated := make([]models.Finding, len(m.state.Findings))
	found := false
	for i, f := range m.state.Findings {
		if f.ID == id {
			f = f.WithStatus(status)
			found = true
		}
		updated[i] = f
	}
	if !found {
		return false
	}
	m.publishLocked(loaded(updated))
	if m.sink != nil {
		m.sink.UpdateFindings(updated)
	}
	return true
}

// Listen triggers a refresh on every refresh or configuration signal of bus
// until the machine is closed or the bus shuts down.
func (m *Machine) Listen(bus *events.Bus) {
	ch, unsubscribe := bus.Subscribe(events.RefreshRequested, events.ConfigurationChanged)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		unsubscribe()
		return
	}
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		defer unsubscribe()
		for {
			select {
			case <-m.ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				m.logger.Debug("refresh signal", "topic", msg.Topic, "id", msg.ID)
				m.Refresh()
			}
		}
	}()
}

// Close cancels the refresh in flight, waits for it and closes all observers.
func (m *Machine) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	m.stop()
	m.wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, obs := range m.observers {
		close(obs.states)
		close(obs.progress)
		delete(m.observers, id)
	}
}

func (m *Machine) finish(ctx context.Context, gen uint64, result []models.Finding, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ctx.Err() != nil || gen != m.generation {
		m.logger.Debug("discarding superseded refresh", "generation", gen)
		return
	}

	if err != nil {
		var syncErr *findings.SyncError
		if errors.As(err, &syncErr) {
			m.logger.Warn("refresh failed", "kind", syncErr.Kind, "error", err)
			m.publishLocked(failed(syncErr.Error()))
			return
		}
		m.logger.Error("refresh failed", "error", err)
		m.publishLocked(failed(err.Error()))
		return
	}

	m.logger.Info("refresh finished", "findings", len(result))
	m.publishLocked(loaded(result))
	if m.sink != nil {
		m.sink.UpdateFindings(result)
	}
}

func (m *Machine) reportProgress(gen uint64, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation || m.state.Phase != PhaseLoading {
		return
	}
	m.progress = msg
	for _, obs := range m.observers {
		replace(obs.progress, msg)
	}
}

func (m *Machine) publishLocked(s State) {
	m.state = s
	for _, obs := range m.observers {
		replace(obs.states, s)
	}
}

// replace puts v into a buffered channel of capacity one, dropping a value
// the receiver has not consumed yet. Callers hold m.mu.
func replace[T any](ch chan T, v T) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}
