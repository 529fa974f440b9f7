package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLookupServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/lookup" {
			http.NotFound(w, r)
			return
		}
		switch r.URL.Query().Get("url") {
		case "https://example.com/post?id=1&ref=x":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id": 42}`))
		case "https://example.com/draft":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id": null}`))
		case "https://example.com/error":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestResolver_ContentID(t *testing.T) {
	srv := newLookupServer(t)
	defer srv.Close()

	r, err := NewResolver(srv.URL + "/")
	require.NoError(t, err)

	tests := []struct {
		name    string
		url     string
		want    *int64
		wantErr bool
	}{
		{name: "hit with query string", url: "https://example.com/post?id=1&ref=x", want: ptr(42)},
		{name: "known without id", url: "https://example.com/draft"},
		{name: "not found is a miss", url: "https://example.com/nope"},
		{name: "server error", url: "https://example.com/error", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := r.ContentID(context.Background(), tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestNewResolver_InvalidURL(t *testing.T) {
	_, err := NewResolver("not a url")
	assert.Error(t, err)
}

func ptr(v int64) *int64 {
	return &v
}
