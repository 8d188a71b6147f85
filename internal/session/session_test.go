package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/scanio-findings/internal/config"
	"github.com/scan-io-git/scanio-findings/internal/models"
	"github.com/scan-io-git/scanio-findings/internal/overlay/terminal"
	"github.com/scan-io-git/scanio-findings/internal/refresh"
)

const testToken = "0123456789abcdef0123456789abcdef"

type fakeServer struct {
	*httptest.Server
	mu      sync.Mutex
	patched []string
	tagged  []string
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/api/v1/product-assets/":
			_ = json.NewEncoder(w).Encode(models.Page[models.Asset]{Count: 1, Results: []models.Asset{{ID: 1, Value: "acme/widget", ProductID: 2}}})
		case r.URL.Path == "/api/v1/findings/":
			_ = json.NewEncoder(w).Encode(models.Page[models.Finding]{Count: 2, Results: []models.Finding{
				{ID: 10, Name: "SQL injection", FilePath: "main.go", Line: models.IntPtr(2), Severity: models.SeverityHigh, TriageStatus: models.StatusVerified},
				{ID: 11, Name: "Weak hash", Severity: models.SeverityLow},
			}})
		case r.Method == http.MethodPatch && strings.HasPrefix(r.URL.Path, "/api/v1/findings/"):
			fs.mu.Lock()
			fs.patched = append(fs.patched, r.URL.Path)
			fs.mu.Unlock()
			_, _ = w.Write([]byte(`{}`))
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/tags/add/"):
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			fs.mu.Lock()
			fs.tagged = append(fs.tagged, body["name"])
			fs.mu.Unlock()
			_, _ = w.Write([]byte(`{}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(fs.Close)
	return fs
}

func newProject(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("APPSEC_URL", "")
	t.Setenv("APPSEC_TOKEN", "")

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{Name: "origin", URLs: []string{"git@github.com:acme/widget.git"}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\nvar q = \"SELECT \" + id\n"), 0o644))
	return dir
}

func TestSessionRefreshAndOverlay(t *testing.T) {
	srv := newFakeServer(t)
	dir := newProject(t)

	cfg := config.NewDefault()
	cfg.Endpoint = config.Endpoint{URL: srv.URL, Token: testToken}
	s, err := New(Options{Config: cfg, SourceFolder: dir})
	require.NoError(t, err)
	defer s.Close()

	doc, err := terminal.Open(filepath.Join(dir, "main.go"))
	require.NoError(t, err)
	s.Overlay.OnFileOpened(doc)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	st, err := s.RefreshAndWait(ctx)
	require.NoError(t, err)
	require.Equal(t, refresh.PhaseLoaded, st.Phase, st.Message)
	assert.Len(t, st.Findings, 2)

	assert.Equal(t, []int{2}, doc.MarkedLines())
	assert.Len(t, s.Overlay.FindingsForPath("main.go"), 1)

	f, ok := s.Finding(10)
	require.True(t, ok)
	_, err = s.Rejecter.Reject(ctx, f)
	require.NoError(t, err)

	srv.mu.Lock()
	assert.Equal(t, []string{"/api/v1/findings/10/"}, srv.patched)
	assert.Equal(t, []string{"rejected_by_developer"}, srv.tagged)
	srv.mu.Unlock()
}

func TestSessionNotConfigured(t *testing.T) {
	dir := newProject(t)
	s, err := New(Options{Config: config.NewDefault(), SourceFolder: dir})
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	st, err := s.RefreshAndWait(ctx)
	require.NoError(t, err)
	assert.Equal(t, refresh.PhaseError, st.Phase)
	assert.Contains(t, st.Message, "not configured")
}

func TestSessionConfigureTriggersRefresh(t *testing.T) {
	srv := newFakeServer(t)
	dir := newProject(t)
	cfgPath := filepath.Join(t.TempDir(), "appsec", "config.yml")

	s, err := New(Options{Config: config.NewDefault(), ConfigPath: cfgPath, SourceFolder: dir})
	require.NoError(t, err)
	defer s.Close()

	states, _, stop := s.Machine.Observe()
	defer stop()
	s.Start()

	assert.Error(t, s.Configure(srv.URL, "short"))
	assert.Error(t, s.Configure("", testToken))
	assert.Error(t, s.Configure("ftp://example.com", testToken))
	require.NoError(t, s.Configure(srv.URL+"/", testToken))

	deadline := time.After(10 * time.Second)
	for {
		select {
		case st := <-states:
			if st.Phase == refresh.PhaseLoaded {
				assert.Len(t, st.Findings, 2)
				saved, err := config.LoadConfig(cfgPath)
				require.NoError(t, err)
				assert.Equal(t, srv.URL, saved.Endpoint.URL)
				assert.Equal(t, testToken, saved.Endpoint.Token)
				return
			}
		case <-deadline:
			t.Fatalf("session never loaded, last state %v", s.Machine.State())
		}
	}
}

func TestValidateToken(t *testing.T) {
	assert.NoError(t, ValidateToken(testToken))
	assert.NoError(t, ValidateToken(strings.Repeat("a", 128)))
	assert.Error(t, ValidateToken(strings.Repeat("a", 31)))
	assert.Error(t, ValidateToken(strings.Repeat("a", 129)))
	assert.Error(t, ValidateToken("0123456789abcdef0123456789abcde-"))
}

func TestSessionLoad(t *testing.T) {
	srv := newFakeServer(t)
	dir := newProject(t)

	cfg := config.NewDefault()
	cfg.Endpoint = config.Endpoint{URL: srv.URL, Token: testToken}
	s, err := New(Options{Config: cfg, SourceFolder: dir})
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var mu sync.Mutex
	var messages []string
	list, err := s.Load(ctx, func(m string) {
		mu.Lock()
		defer mu.Unlock()
		messages = append(messages, m)
	})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	s.Store.SetEndpoint("", "")
	_, err = s.Load(ctx, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}
