package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/comicverse/unigraph/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	mu         sync.Mutex
	batchSizes []int
	failFirst  atomic.Int32
}

func (f *fakeService) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, sentimentPath, r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get(keyHeader))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		if f.failFirst.Load() > 0 {
			f.failFirst.Add(-1)
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}

		var req request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.mu.Lock()
		f.batchSizes = append(f.batchSizes, len(req.Documents))
		f.mu.Unlock()

		var resp response
		for _, d := range req.Documents {
			assert.Equal(t, "en", d.Language)
			if d.ID == "bad" {
				e := responseError{ID: d.ID}
				e.Error.Code = "InvalidDocument"
				resp.Errors = append(resp.Errors, e)
				continue
			}
			resp.Documents = append(resp.Documents, responseDocument{
				ID:               d.ID,
				Sentiment:        "positive",
				ConfidenceScores: confidenceScores{Positive: 0.7, Neutral: 0.2, Negative: 0.1},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := NewClient(NewClientParams{Endpoint: url + "/", Key: "secret", MaxTries: 2, Backoff: util.NoBackoff})
	require.NoError(t, err)
	return c
}

func TestScore_BatchesIncludeRemainder(t *testing.T) {
	svc := &fakeService{}
	srv := httptest.NewServer(svc.handler(t))
	defer srv.Close()

	docs := make([]Document, 0, 24)
	for i := range 22 {
		docs = append(docs, Document{ID: fmt.Sprintf("c%02d", i), Text: "hero"})
	}
	docs = append(docs, Document{ID: "empty", Text: "  "}, Document{ID: "bad", Text: "x"})

	scores, stats, err := newTestClient(t, srv.URL).Score(context.Background(), docs)
	require.NoError(t, err)

	assert.Equal(t, []int{10, 10, 3}, svc.batchSizes)
	assert.Len(t, scores, 22)
	assert.Equal(t, Stats{Documents: 24, Scored: 22, Empty: 1, Rejected: 1, Batches: 3}, stats)

	s := scores["c21"]
	assert.Equal(t, "positive", s.Label)
	assert.InDelta(t, 0.7, s.Positive, 1e-9)
	assert.InDelta(t, 0.1, s.Negative, 1e-9)
	_, ok := scores["empty"]
	assert.False(t, ok)
}

func TestScore_RetriesTransientFailure(t *testing.T) {
	svc := &fakeService{}
	svc.failFirst.Store(1)
	srv := httptest.NewServer(svc.handler(t))
	defer srv.Close()

	scores, stats, err := newTestClient(t, srv.URL).Score(context.Background(), []Document{{ID: "a", Text: "hero"}})
	require.NoError(t, err)
	assert.Len(t, scores, 1)
	assert.Equal(t, 0, stats.FailedBatches)
}

func TestScore_FailedBatchIsSkipped(t *testing.T) {
	svc := &fakeService{}
	svc.failFirst.Store(2)
	srv := httptest.NewServer(svc.handler(t))
	defer srv.Close()

	docs := make([]Document, 0, 12)
	for i := range 12 {
		docs = append(docs, Document{ID: fmt.Sprintf("c%02d", i), Text: "hero"})
	}
	scores, stats, err := newTestClient(t, srv.URL).Score(context.Background(), docs)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.FailedBatches)
	assert.Len(t, scores, 2)
	_, ok := scores["c10"]
	assert.True(t, ok)
}

func TestScore_Cancelled(t *testing.T) {
	svc := &fakeService{}
	srv := httptest.NewServer(svc.handler(t))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := newTestClient(t, srv.URL).Score(ctx, []Document{{ID: "a", Text: "hero"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewClient_Timeout(t *testing.T) {
	c, err := NewClient(NewClientParams{Endpoint: "http://x", Key: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, c.httpClient.Timeout)

	c, err = NewClient(NewClientParams{Endpoint: "http://x", Key: "k", Timeout: 5 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, c.httpClient.Timeout)
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(NewClientParams{Key: "k"})
	assert.Error(t, err)
	_, err = NewClient(NewClientParams{Endpoint: "http://x"})
	assert.Error(t, err)
}
