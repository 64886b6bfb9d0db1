// Package sentiment scores article text with a Text Analytics v3.0 endpoint.
package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/comicverse/unigraph/internal/util"
	"github.com/comicverse/unigraph/pkg/common"
	"github.com/comicverse/unigraph/pkg/logger"

	"golang.org/x/time/rate"
)

const (
	sentimentPath = "/text/analytics/v3.0/sentiment"
	keyHeader     = "Ocp-Apim-Subscription-Key"

	DefaultBatchSize = 10
	DefaultLanguage  = "en"
	DefaultTimeout   = 30 * time.Second
)

// Document is one text to score. ID must be unique within a call.
type Document struct {
	ID   string
	Text string
}

type requestDocument struct {
	Language string `json:"language"`
	ID       string `json:"id"`
	Text     string `json:"text"`
}

type request struct {
	Documents []requestDocument `json:"documents"`
}

type confidenceScores struct {
	Positive float64 `json:"positive"`
	Neutral  float64 `json:"neutral"`
	Negative float64 `json:"negative"`
}

type responseDocument struct {
	ID               string           `json:"id"`
	Sentiment        string           `json:"sentiment"`
	ConfidenceScores confidenceScores `json:"confidenceScores"`
}

type responseError struct {
	ID    string `json:"id"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type response struct {
	Documents []responseDocument `json:"documents"`
	Errors    []responseError    `json:"errors"`
}

// Stats summarizes one Score call.
type Stats struct {
	Documents     int `json:"documents"`
	Scored        int `json:"scored"`
	Empty         int `json:"empty"`
	Rejected      int `json:"rejected"`
	Batches       int `json:"batches"`
	FailedBatches int `json:"failed_batches"`
}

// Client talks to the sentiment endpoint. A Client should be created using
// NewClient and is safe for concurrent use.
type Client struct {
	url        string
	key        string
	language   string
	batchSize  int
	maxTries   int
	backoff    util.Backoff
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClientParams defines the configuration of a sentiment Client.
//
// Endpoint is the service base URL, e.g. "https://northeurope.api.cognitive.microsoft.com".
// RequestsPerSecond <= 0 disables rate limiting.
type NewClientParams struct {
	Endpoint          string
	Key               string
	Language          string
	BatchSize         int
	MaxTries          int
	Backoff           util.Backoff
	RequestsPerSecond float64
	Burst             int
	// Timeout bounds one batch request; ignored when HTTPClient is set.
	Timeout    time.Duration
	HTTPClient *http.Client
}

func NewClient(params NewClientParams) (*Client, error) {
	if params.Endpoint == "" {
		return nil, errors.New("sentiment endpoint is required")
	}
	if params.Key == "" {
		return nil, errors.New("sentiment key is required")
	}

	c := &Client{
		url:        strings.TrimSuffix(params.Endpoint, "/") + sentimentPath,
		key:        params.Key,
		language:   params.Language,
		batchSize:  params.BatchSize,
		maxTries:   params.MaxTries,
		backoff:    params.Backoff,
		httpClient: params.HTTPClient,
		limiter:    rate.NewLimiter(rate.Inf, 1),
	}
	if c.language == "" {
		c.language = DefaultLanguage
	}
	if c.batchSize <= 0 {
		c.batchSize = DefaultBatchSize
	}
	if c.maxTries <= 0 {
		c.maxTries = 3
	}
	if c.backoff == nil {
		c.backoff = util.LinearBackoff(time.Second)
	}
	if c.httpClient == nil {
		timeout := params.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		c.httpClient = &http.Client{Timeout: timeout}
	}
	if params.RequestsPerSecond > 0 {
		burst := params.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(params.RequestsPerSecond), burst)
	}
	return c, nil
}

type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("sentiment request failed with status %d: %s", e.status, e.body)
}

func (c *Client) post(ctx context.Context, docs []requestDocument) (*response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(request{Documents: docs})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(keyHeader, c.key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &statusError{status: resp.StatusCode, body: string(msg)}
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode sentiment response: %w", err)
	}
	return &out, nil
}

// Score scores every document with non-empty text, in batches. A batch that
// still fails after retries is logged and skipped; its documents get no score.
// Results are keyed by document ID. The only error is a cancelled context.
func (c *Client) Score(ctx context.Context, docs []Document) (map[string]common.Sentiment, Stats, error) {
	stats := Stats{Documents: len(docs)}
	scores := make(map[string]common.Sentiment, len(docs))

	pending := make([]requestDocument, 0, len(docs))
	for _, d := range docs {
		if strings.TrimSpace(d.Text) == "" {
			stats.Empty++
			continue
		}
		pending = append(pending, requestDocument{Language: c.language, ID: d.ID, Text: d.Text})
	}

	for start := 0; start < len(pending); start += c.batchSize {
		end := min(start+c.batchSize, len(pending))
		batch := pending[start:end]
		stats.Batches++

		resp, err := util.RetryWithBackoff(ctx, c.maxTries, c.backoff, func(ctx context.Context) (*response, error) {
			return c.post(ctx, batch)
		})
		if err != nil {
			if ctx.Err() != nil {
				return scores, stats, ctx.Err()
			}
			stats.FailedBatches++
			logger.Error("[Sentiment] Batch failed", "batch", stats.Batches, "documents", len(batch), "err", err)
			continue
		}

		for _, d := range resp.Documents {
			scores[d.ID] = common.Sentiment{
				Label:    d.Sentiment,
				Positive: d.ConfidenceScores.Positive,
				Neutral:  d.ConfidenceScores.Neutral,
				Negative: d.ConfidenceScores.Negative,
			}
			stats.Scored++
		}
		for _, e := range resp.Errors {
			stats.Rejected++
			logger.DataQuality("sentiment", "sentiment_rejected", "node", e.ID, "code", e.Error.Code)
		}
	}

	logger.Info(
		"[Sentiment] Scored documents",
		"documents", stats.Documents,
		"scored", stats.Scored,
		"failed_batches", stats.FailedBatches,
	)
	return scores, stats, nil
}
