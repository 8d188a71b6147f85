package config

import (
	"strings"
	"sync"

	"github.com/scan-io-git/scanio-findings/internal/models"
)

// FindingFilters are the server-side filters built from the configuration.
// Empty slices mean "no filter".
type FindingFilters struct {
	Severities     []models.Severity
	TriageStatuses []models.TriageStatus
	MaxFindings    int
	// Product, when non-zero, restricts the synchronization to one product.
	Product int64
}

// Store is the in-process settings store shared by the session components.
// It is safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	cfg  *Config
	path string
}

// NewStore wraps cfg. path is where Save writes; it may be empty for an in-memory store.
func NewStore(cfg *Config, path string) *Store {
	if cfg == nil {
		cfg = NewDefault()
	}
	return &Store{cfg: cfg, path: path}
}

// IsConfigured reports whether both endpoint URL and token are set.
func (s *Store) IsConfigured() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return strings.TrimSpace(s.cfg.Endpoint.URL) != "" && strings.TrimSpace(s.cfg.Endpoint.Token) != ""
}

func (s *Store) Endpoint() Endpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Endpoint
}

// SetEndpoint replaces URL and token and reports whether a previous endpoint was configured.
func (s *Store) SetEndpoint(url, token string) (replaced bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	replaced = s.cfg.Endpoint.URL != "" && s.cfg.Endpoint.Token != ""
	s.cfg.Endpoint = Endpoint{URL: strings.TrimRight(strings.TrimSpace(url), "/"), Token: strings.TrimSpace(token)}
	return replaced
}

// Filters resolves the configured filter names. Unknown names are skipped.
func (s *Store) Filters() FindingFilters {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f := FindingFilters{
		MaxFindings: SetThen(s.cfg.Findings.MaxFindings, DefaultMaxFindings),
		Product:     s.cfg.Findings.Product,
	}
	for _, name := range s.cfg.Findings.EnabledSeverities {
		if sev, err := models.ParseSeverity(name); err == nil {
			f.Severities = append(f.Severities, sev)
		}
	}
	for _, name := range s.cfg.Findings.EnabledTriageStatuses {
		if st, err := models.ParseTriageStatus(name); err == nil {
			f.TriageStatuses = append(f.TriageStatuses, st)
		}
	}
	return f
}

// HighlightEnabled reports whether findings are painted in open files.
func (s *Store) HighlightEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return GetBoolValue(&s.cfg.Findings, "Highlight", true)
}

// Snapshot returns a copy of the current configuration.
func (s *Store) Snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := *s.cfg
	c.Findings.EnabledSeverities = append([]string(nil), s.cfg.Findings.EnabledSeverities...)
	c.Findings.EnabledTriageStatuses = append([]string(nil), s.cfg.Findings.EnabledTriageStatuses...)
	return c
}

// Save persists the configuration to the store path.
func (s *Store) Save() error {
	snapshot := s.Snapshot()
	if s.path == "" {
		return nil
	}
	return SaveConfig(s.path, &snapshot)
}
