package cmd_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wrale/wrale-search/api/types/v1alpha1"
	"github.com/wrale/wrale-search/internal/wsearchctl/cmd"
	"github.com/wrale/wrale-search/internal/wsearchctl/config"
)

const apiPrefix = "/api/v1alpha1/insights"

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	assert.NoError(t, json.NewEncoder(w).Encode(v))
}

// run executes the CLI with args and returns its output
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("WSEARCHCTL_SERVER", "")
	t.Setenv("WSEARCHCTL_TOKEN", "")

	root := cmd.NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestDashboardCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, apiPrefix+"/dashboard", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("days"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		writeJSON(t, w, http.StatusOK, v1alpha1.Dashboard{
			Clicks:      1200,
			Impressions: 48000,
			AvgCTR:      0.025,
			AvgPosition: 12.34,
		})
	}))
	defer srv.Close()

	out, err := run(t, "dashboard", "--server", srv.URL, "--token", "secret", "--days", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "1200")
	assert.Contains(t, out, "48000")
	assert.Contains(t, out, "2.50%")
	assert.Contains(t, out, "12.3")
	assert.Contains(t, out, "Never")
}

func TestTopQueriesCommandJSON(t *testing.T) {
	want := []v1alpha1.QueryStat{
		{Keyword: "signage", Clicks: 40, Impressions: 900, AvgCTR: 0.044, AvgPosition: 3.1},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, apiPrefix+"/queries/top", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		writeJSON(t, w, http.StatusOK, want)
	}))
	defer srv.Close()

	out, err := run(t, "top", "queries", "--server", srv.URL, "--limit", "5", "-o", "json")
	require.NoError(t, err)

	var got []v1alpha1.QueryStat
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, want, got)
}

func TestTopPagesCommand(t *testing.T) {
	contentID := int64(42)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, apiPrefix+"/pages/top", r.URL.Path)
		writeJSON(t, w, http.StatusOK, []v1alpha1.PageStat{
			{URL: "https://example.com/a", ContentID: &contentID, Clicks: 10},
			{URL: "https://example.com/b", Clicks: 5},
		})
	}))
	defer srv.Close()

	out, err := run(t, "top", "pages", "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "https://example.com/a")
	assert.Contains(t, out, "42")
	assert.Contains(t, out, "https://example.com/b")
}

func TestOpportunitiesListCommand(t *testing.T) {
	pos := 14.5
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, apiPrefix+"/opportunities", r.URL.Path)
		assert.Equal(t, "quick_win", r.URL.Query().Get("type"))
		assert.Equal(t, "20", r.URL.Query().Get("offset"))
		writeJSON(t, w, http.StatusOK, v1alpha1.OpportunityList{
			Items: []v1alpha1.Opportunity{{
				ID:              "3f0c2a8e-6b1d-4c47-9a55-0d1c2b7e9f10",
				Keyword:         "digital signs",
				Type:            "quick_win",
				Score:           56,
				CurrentPosition: &pos,
				Impressions:     500,
				SuggestedAction: "move it onto page one",
			}},
			Limit:  50,
			Offset: 20,
		})
	}))
	defer srv.Close()

	out, err := run(t, "opportunities", "list", "--server", srv.URL,
		"--type", "quick_win", "--offset", "20", "--actions")
	require.NoError(t, err)
	assert.Contains(t, out, "digital signs")
	assert.Contains(t, out, "56.00")
	assert.Contains(t, out, "14.5")
	assert.Contains(t, out, "ACTION")
	assert.Contains(t, out, "move it onto page one")
}

func TestOpportunitiesCountsCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, apiPrefix+"/opportunities/counts", r.URL.Path)
		writeJSON(t, w, http.StatusOK, v1alpha1.OpportunityCounts{"quick_win": 3, "content_gap": 1})
	}))
	defer srv.Close()

	out, err := run(t, "opps", "counts", "--server", srv.URL)
	require.NoError(t, err)
	assert.Regexp(t, `content_gap\s+1`, out)
	assert.Regexp(t, `quick_win\s+3`, out)
	assert.Less(t, bytes.Index([]byte(out), []byte("content_gap")), bytes.Index([]byte(out), []byte("quick_win")))
}

func TestOpportunitiesDismissCommand(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr string
	}{
		{name: "dismissed", status: http.StatusNoContent},
		{name: "not found", status: http.StatusNotFound, wantErr: "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, apiPrefix+"/opportunities/abc/dismiss", r.URL.Path)
				if tt.status == http.StatusNoContent {
					w.WriteHeader(tt.status)
					return
				}
				writeJSON(t, w, tt.status, v1alpha1.ErrorResponse{Code: "NOT_FOUND", Message: "opportunity not found"})
			}))
			defer srv.Close()

			out, err := run(t, "opportunities", "dismiss", "abc", "--server", srv.URL)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out, `Opportunity "abc" dismissed`)
		})
	}
}

func TestTrendCommand(t *testing.T) {
	recent, prior, change := 6.0, 9.5, -3.5
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, apiPrefix+"/content/42/trend", r.URL.Path)
		writeJSON(t, w, http.StatusOK, v1alpha1.ContentTrend{
			ContentID:         42,
			Trend:             "rising",
			RecentAvgPosition: &recent,
			PriorAvgPosition:  &prior,
			PositionChange:    &change,
		})
	}))
	defer srv.Close()

	out, err := run(t, "trend", "42", "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "rising")
	assert.Contains(t, out, "-3.5")

	_, err = run(t, "trend", "abc", "--server", srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid content ID")
}

func TestSyncRunCommand(t *testing.T) {
	t.Run("completed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, apiPrefix+"/sync", r.URL.Path)
			writeJSON(t, w, http.StatusOK, v1alpha1.SyncResult{
				RunID:     "run-1",
				Site:      "sc-domain:example.com",
				QueryRows: 120,
				PageRows:  30,
				Resolved:  25,
				Detected:  map[string]int{"quick_win": 4, "declining": 2},
			})
		}))
		defer srv.Close()

		out, err := run(t, "sync", "run", "--server", srv.URL)
		require.NoError(t, err)
		assert.Contains(t, out, "run-1")
		assert.Contains(t, out, "30 (25 resolved)")
		assert.Regexp(t, `DETECTED quick_win\s+4`, out)
	})

	t.Run("already running", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusConflict, v1alpha1.ErrorResponse{Code: "SYNC_IN_PROGRESS", Message: "sync already running"})
		}))
		defer srv.Close()

		_, err := run(t, "sync", "run", "--server", srv.URL)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already running")
	})
}

func TestSyncStatusCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, apiPrefix+"/sync/status", r.URL.Path)
		writeJSON(t, w, http.StatusOK, v1alpha1.SyncStatus{
			Site:      "sc-domain:example.com",
			LastError: "upstream unavailable",
		})
	}))
	defer srv.Close()

	out, err := run(t, "sync", "status", "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "sc-domain:example.com")
	assert.Contains(t, out, "upstream unavailable")
}

func TestInvalidOutputFormat(t *testing.T) {
	_, err := run(t, "dashboard", "--server", "http://localhost:1", "-o", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestNoServerConfigured(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	_, err := run(t, "dashboard", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no API server configured")
}

func TestContextCommands(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer prod-token", r.Header.Get("Authorization"))
		writeJSON(t, w, http.StatusOK, v1alpha1.SyncStatus{Site: "sc-domain:example.com"})
	}))
	defer srv.Close()

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")

	_, err := run(t, "config", "set-context", "dev", "--config", cfgPath, "--server", "http://localhost:8080")
	require.NoError(t, err)
	_, err = run(t, "config", "set-context", "prod", "--config", cfgPath, "--server", srv.URL, "--token", "prod-token")
	require.NoError(t, err)

	out, err := run(t, "config", "current-context", "--config", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)

	_, err = run(t, "config", "use-context", "prod", "--config", cfgPath)
	require.NoError(t, err)

	// commands pick up the server and token from the current context
	out, err = run(t, "sync", "status", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "sc-domain:example.com")

	out, err = run(t, "config", "get-contexts", "--config", cfgPath)
	require.NoError(t, err)
	assert.Regexp(t, `\*\s+prod`, out)
	assert.Contains(t, out, "dev")

	_, err = run(t, "config", "delete-context", "dev", "--config", cfgPath)
	require.NoError(t, err)

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"prod"}, cfg.ContextNames())
	assert.Equal(t, "prod", cfg.CurrentContext)

	_, err = run(t, "config", "use-context", "missing", "--config", cfgPath)
	assert.Error(t, err)

	_, err = run(t, "config", "set-context", "bad", "--config", cfgPath, "--server", "localhost:8080")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid server URL")
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version", "-v")
	require.NoError(t, err)
	assert.Contains(t, out, "wsearchctl version dev")
	assert.Contains(t, out, "commit: none")
}
