package services

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *GitBookClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return NewGitBookClient(
		Config{APIKey: "secret", BaseURL: srv.URL + "/", RateLimit: 100},
		WithRetryMax(0),
		WithClientLogger(logger),
	)
}

func TestGetPageDocument(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/spaces/sp1/content/page/pg1", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"uid":"pg1","title":"Intro","document":{"object":"document","nodes":[]}}`)
	})

	doc, err := client.GetPageDocument(context.Background(), "sp1", "pg1")
	require.NoError(t, err)
	assert.Equal(t, "document", doc.Get("object").String())
}

func TestGetPageDocumentErrors(t *testing.T) {
	t.Run("status error carries API message", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"error":{"code":404,"message":"Page not found"}}`)
		})

		_, err := client.GetPageDocument(context.Background(), "sp1", "missing")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
		assert.Contains(t, err.Error(), "Page not found")
	})

	t.Run("response without document", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"uid":"pg1"}`)
		})

		_, err := client.GetPageDocument(context.Background(), "sp1", "pg1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "has no document")
	})

	t.Run("invalid JSON", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"document":`)
		})

		_, err := client.GetPageDocument(context.Background(), "sp1", "pg1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid JSON")
	})

	t.Run("cancelled context", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"document":{}}`)
		})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := client.GetPageDocument(ctx, "sp1", "pg1")
		require.Error(t, err)
	})
}

func TestListPages(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/spaces/sp1/content", r.URL.Path)
		io.WriteString(w, `{
			"pages": [
				{"uid": "a", "title": "A", "path": "a", "pages": [
					{"uid": "a1", "title": "A1", "path": "a/a1", "pages": []},
					{"id": "a2", "title": "A2", "path": "a/a2"}
				]},
				{"uid": "b", "title": "B", "path": "b"},
				{"uid": "a1", "title": "A1 again", "path": "b/a1"}
			]
		}`)
	})

	pages, err := client.ListPages(context.Background(), "sp1")
	require.NoError(t, err)

	assert.Equal(t, []PageRef{
		{ID: "a", Title: "A", Path: "a", Depth: 0},
		{ID: "a1", Title: "A1", Path: "a/a1", Depth: 1},
		{ID: "a2", Title: "A2", Path: "a/a2", Depth: 1},
		{ID: "b", Title: "B", Path: "b", Depth: 0},
	}, pages)
}

func TestRetriesArePacedByRateLimit(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		io.WriteString(w, `{"document":{"object":"document"}}`)
	}))
	t.Cleanup(srv.Close)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	// 20 requests per second: each retry waits about 50ms for a token.
	client := NewGitBookClient(
		Config{APIKey: "secret", BaseURL: srv.URL, RateLimit: 20},
		WithRetryMax(2),
		WithRetryWait(time.Millisecond, time.Millisecond),
		WithClientLogger(logger),
	)

	started := time.Now()
	doc, err := client.GetPageDocument(context.Background(), "sp1", "pg1")
	require.NoError(t, err)
	assert.Equal(t, "document", doc.Get("object").String())
	assert.EqualValues(t, 3, attempts.Load())
	assert.GreaterOrEqual(t, time.Since(started), 90*time.Millisecond)
}
