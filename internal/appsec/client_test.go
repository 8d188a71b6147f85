package appsec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/scanio-findings/internal/config"
	"github.com/scan-io-git/scanio-findings/internal/models"
)

type staticEndpoint config.Endpoint

func (s staticEndpoint) Endpoint() config.Endpoint { return config.Endpoint(s) }

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return New(resty.New(), staticEndpoint{URL: srv.URL + "/", Token: "secret"}, hclog.NewNullLogger()), &calls
}

func writeJSON(t *testing.T, w http.ResponseWriter, v interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func findingsPage(from, n, total int, hasNext bool) models.Page[models.Finding] {
	page := models.Page[models.Finding]{Count: total}
	for i := 0; i < n; i++ {
		page.Results = append(page.Results, models.Finding{ID: int64(from + i), Name: fmt.Sprintf("finding-%d", from+i)})
	}
	if hasNext {
		next := 0
		page.Next = &next
	}
	return page
}

func TestPath(t *testing.T) {
	assert.Equal(t, "/api/v1/findings/", Path("findings"))
	assert.Equal(t, "/api/v1/findings/12/tags/add/", Path("/findings/12/tags/add/"))
}

func TestFindingsQueryParams(t *testing.T) {
	q := FindingsQuery{
		Search:         "sql",
		Severities:     []models.Severity{models.SeverityHigh, models.SeverityCritical},
		TriageStatuses: []models.TriageStatus{models.StatusVerified, models.StatusRejected},
		AssetsIn:       map[string][]string{"0": {"widget-a", "widget-b"}},
	}
	params, err := q.Params(2)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"ordering":          "-severity",
		"search":            "sql",
		"page":              "2",
		"severity__in":      "3,4",
		"triage_status__in": "2,4",
		"assets__in":        `{"0":["widget-a","widget-b"]}`,
	}, params)

	params, err = FindingsQuery{Ordering: "line", Product: 9}.Params(0)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"ordering": "line", "product": "9"}, params)
}

func TestSearchFindingsSendsAuthAndParams(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/findings/", r.URL.Path)
		assert.Equal(t, "Token secret", r.Header.Get("Authorization"))
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, `{"0":["widget-a"]}`, r.URL.Query().Get("assets__in"))
		writeJSON(t, w, findingsPage(1, 2, 2, false))
	})

	page, err := client.SearchFindings(context.Background(), FindingsQuery{AssetsIn: map[string][]string{"0": {"widget-a"}}}, 1)
	require.NoError(t, err)
	assert.Len(t, page.Results, 2)
	assert.False(t, page.HasNextPage())
	assert.Equal(t, 2, page.Count)
}

func TestFetchAllPagesCapsResult(t *testing.T) {
	const total, perPage = 230, 100
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		from := (page-1)*perPage + 1
		n := perPage
		if remaining := total - (page-1)*perPage; remaining < n {
			n = remaining
		}
		writeJSON(t, w, findingsPage(from, n, total, page*perPage < total))
	})

	got, err := client.FetchAllPages(context.Background(), FindingsQuery{}, 150)
	require.NoError(t, err)
	require.Len(t, got, 150)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(150), got[149].ID)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}

func TestFetchAllPagesConcatenatesInServerOrder(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		writeJSON(t, w, findingsPage((page-1)*3+1, 3, 9, page < 3))
	})

	got, err := client.FetchAllPages(context.Background(), FindingsQuery{}, 100)
	require.NoError(t, err)
	require.Len(t, got, 9)
	for i, f := range got {
		assert.Equal(t, int64(i+1), f.ID)
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestFetchAllPagesStopsOnEmptyPageWithNext(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, findingsPage(1, 0, 0, true))
	})

	got, err := client.FetchAllPages(context.Background(), FindingsQuery{}, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestFetchAllPagesRespectsPageCeiling(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, findingsPage(1, 1, 1, true))
	})

	got, err := client.FetchAllPages(context.Background(), FindingsQuery{}, 0)
	require.NoError(t, err)
	assert.Len(t, got, MaxPages)
	assert.Equal(t, int32(MaxPages), atomic.LoadInt32(calls))
}

func TestFetchAllPagesCancelled(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, findingsPage(1, 1, 1, true))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.FetchAllPages(ctx, FindingsQuery{}, 10)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestAPIErrorCarriesStatus(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"detail":"denied"}`))
	})

	_, err := client.SearchFindings(context.Background(), FindingsQuery{}, 1)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "denied")
	assert.Contains(t, err.Error(), "403")
}

func TestNotConfiguredIssuesNoRequest(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	client := New(resty.New(), staticEndpoint{URL: srv.URL}, nil)
	_, err := client.SearchAssets(context.Background(), AssetQuery{Search: "x"})
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, client.AddTag(context.Background(), 1, "t"), ErrNotConfigured)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestSearchAssets(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/product-assets/", r.URL.Path)
		assert.Equal(t, "github.com acme/widget", r.URL.Query().Get("search"))
		assert.Equal(t, "0", r.URL.Query().Get("asset_type"))
		writeJSON(t, w, models.Page[models.Asset]{Count: 1, Results: []models.Asset{{ID: 1, Value: "widget-a", ProductID: 5}}})
	})

	page, err := client.SearchAssets(context.Background(), AssetQuery{Search: "github.com acme/widget", Type: models.AssetRepository})
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, int64(5), page.Results[0].ProductID)
}

func TestSetTriageStatusAndAddTag(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		switch {
		case r.Method == http.MethodPatch && r.URL.Path == "/api/v1/findings/42/":
			assert.JSONEq(t, `{"current_sla_level":4,"comment":"Rejected by developer"}`, string(body))
			writeJSON(t, w, map[string]int{"id": 42})
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/findings/42/tags/add/":
			assert.JSONEq(t, `{"name":"rejected_by_developer"}`, string(body))
			w.WriteHeader(http.StatusCreated)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	ctx := context.Background()
	require.NoError(t, client.SetTriageStatus(ctx, 42, models.StatusRejected, "Rejected by developer"))
	require.NoError(t, client.AddTag(ctx, 42, "rejected_by_developer"))
}

func TestRules(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auto-validator/rules/", r.URL.Path)
		switch r.Method {
		case http.MethodGet:
			assert.Equal(t, "0", r.URL.Query().Get("action_choices"))
			assert.Equal(t, `"XSS" "web/app.js"`, r.URL.Query().Get("search"))
			writeJSON(t, w, RulesPage{Count: 1, Current: 1, PagesCount: 1, Results: []Rule{{ID: 3, Instructions: []RuleInstruction{{Field: FieldFindingName, Value: "XSS"}}}}})
		case http.MethodPost:
			var req RuleRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.True(t, req.AllowAllProducts)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id": 77, "is_active": true, "instructions": [], "tags": [], "groups": [], "read_only": false}`))
		}
	})

	ctx := context.Background()
	page, err := client.ListRules(ctx, RuleQuery{ActionChoices: ActionReject, Search: `"XSS" "web/app.js"`})
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, int64(3), page.Results[0].ID)

	rule, err := client.CreateRule(ctx, RuleRequest{IsActive: true, AllowAllProducts: true})
	require.NoError(t, err)
	assert.Equal(t, int64(77), rule.ID)
}
