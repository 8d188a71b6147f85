// Package session wires the components of one project session together.
package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/scanio-findings/internal/appsec"
	"github.com/scan-io-git/scanio-findings/internal/config"
	"github.com/scan-io-git/scanio-findings/internal/events"
	"github.com/scan-io-git/scanio-findings/internal/findings"
	"github.com/scan-io-git/scanio-findings/internal/git"
	"github.com/scan-io-git/scanio-findings/internal/httpclient"
	"github.com/scan-io-git/scanio-findings/internal/models"
	"github.com/scan-io-git/scanio-findings/internal/overlay"
	"github.com/scan-io-git/scanio-findings/internal/overlay/terminal"
	"github.com/scan-io-git/scanio-findings/internal/refresh"
	"github.com/scan-io-git/scanio-findings/internal/triage"
)

var tokenPattern = regexp.MustCompile(`^[a-zA-Z0-9]{32,128}$`)

// Options configure a Session. Only Config is required.
type Options struct {
	Config       *config.Config
	ConfigPath   string
	SourceFolder string
	Logger       hclog.Logger
	// Editor paints markers; defaults to the terminal editor.
	Editor overlay.Editor
	// OnSelect is called when a marker is clicked.
	OnSelect func(models.Finding)
	// HTTPClient replaces the client built from Config.
	HTTPClient *resty.Client
}

// Session holds every component of a project session. It replaces process
// wide singletons: each component gets its collaborators from here.
type Session struct {
	Store      *config.Store
	Logger     hclog.Logger
	Client     *appsec.Client
	Repo       *git.Reader
	Bus        *events.Bus
	Sync       *findings.Service
	Machine    *refresh.Machine
	Overlay    *overlay.Index
	Rejecter   *triage.Rejecter
	Suppressor *triage.Suppressor
}

// New builds a Session.
func New(opts Options) (*Session, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	folder := opts.SourceFolder
	if folder == "" {
		folder = "."
	}
	editor := opts.Editor
	if editor == nil {
		editor = terminal.Editor{}
	}

	store := config.NewStore(opts.Config, opts.ConfigPath)
	httpc := opts.HTTPClient
	if httpc == nil {
		httpc = httpclient.InitializeRestyClient(logger, opts.Config)
	}

	s := &Session{
		Store:  store,
		Logger: logger,
		Client: appsec.New(httpc, store, logger),
		Repo:   git.NewReader(folder, logger),
		Bus:    events.NewBus(logger),
	}
	s.Sync = findings.NewService(s.Client, store, s.Repo, logger)
	s.Overlay = overlay.NewIndex(s.Repo.Root(), editor, store, opts.OnSelect, logger)
	s.Machine = refresh.New(s.Sync, s.Overlay, logger)
	s.Rejecter = triage.NewRejecter(s.Client, s.Repo, s.Machine, s.Bus, logger)
	s.Suppressor = triage.NewSuppressor(s.Client, s.Repo, logger)
	return s, nil
}

// Start subscribes the refresh machine to the bus and issues the startup refresh.
func (s *Session) Start() {
	s.Machine.Listen(s.Bus)
	if !s.Store.IsConfigured() {
		s.Logger.Warn("API URL and token are not configured, run the setup command")
	}
	s.Machine.Refresh()
}

// RefreshAndWait runs one refresh and returns its final state.
func (s *Session) RefreshAndWait(ctx context.Context) (refresh.State, error) {
	s.Machine.Refresh()
	return s.Machine.Await(ctx)
}

// Load runs one refresh, forwarding progress messages, and returns the loaded
// findings. A refresh ending in the Error state is returned as an error
// carrying the state message.
func (s *Session) Load(ctx context.Context, progress func(string)) ([]models.Finding, error) {
	_, messages, stop := s.Machine.Observe()
	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		for msg := range messages {
			if progress != nil {
				progress(msg)
			}
		}
	}()

	st, err := s.RefreshAndWait(ctx)
	stop()
	<-forwarded
	if err != nil {
		return nil, err
	}
	if st.Phase != refresh.PhaseLoaded {
		return nil, errors.New(st.Message)
	}
	return st.Findings, nil
}

// Configure validates and stores a new endpoint, persists it and announces the change.
func (s *Session) Configure(url, token string) error {
	if url == "" {
		return fmt.Errorf("url is required")
	}
	if err := config.ValidateEndpoint(&config.Endpoint{URL: url, Token: token}); err != nil {
		return err
	}
	if err := ValidateToken(token); err != nil {
		return err
	}

	if replaced := s.Store.SetEndpoint(url, token); replaced {
		s.Logger.Info("replacing configured endpoint", "url", url)
	}
	if err := s.Store.Save(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	s.Bus.Publish(events.ConfigurationChanged)
	return nil
}

// Finding looks up a loaded finding by id.
func (s *Session) Finding(id int64) (models.Finding, bool) {
	for _, f := range s.Machine.State().Findings {
		if f.ID == id {
			return f, true
		}
	}
	return models.Finding{}, false
}

// Close stops the refresh machine and the bus.
func (s *Session) Close() {
	s.Machine.Close()
	s.Bus.Close()
}

// ValidateToken checks the shape of an API token.
func ValidateToken(token string) error {
	if !tokenPattern.MatchString(token) {
		return fmt.Errorf("invalid token: expected 32 to 128 letters or digits")
	}
	return nil
}
