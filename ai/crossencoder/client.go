// Package crossencoder implements ai.Reranker against a cross-encoder HTTP
// service that speaks the text-embeddings-inference /rerank protocol.
package crossencoder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/poiesic/graphrag/ai"
	"github.com/sony/gobreaker"
)

var (
	// ErrEndpointRequired is returned when no base URL is configured.
	ErrEndpointRequired = errors.New("reranker endpoint required")

	// ErrBadResponse is returned when the service answers with an unusable payload.
	ErrBadResponse = errors.New("bad rerank response")
)

type rerankRequest struct {
	Query     string   `json:"query"`
	Texts     []string `json:"texts"`
	RawScores bool     `json:"raw_scores"`
	Truncate  bool     `json:"truncate"`
}

type rerankHit struct {
	Index int     `json:"index"`
	Score float32 `json:"score"`
}

// Client is an ai.Reranker backed by a remote cross-encoder.
// Consecutive failures open a circuit breaker so a dead service fails fast.
type Client struct {
	endpoint string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker
	logger   *slog.Logger
}

var _ ai.Reranker = (*Client)(nil)

// Option configures a Client.
type Option func(*Client) error

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc != nil {
			c.http = hc
		}
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// New creates a Client for baseURL. timeout bounds each request.
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, ErrEndpointRequired
	}

	c := &Client{
		endpoint: baseURL + "/rerank",
		http:     &http.Client{Timeout: timeout},
		logger:   slog.Default().With("component", "crossencoder"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "crossencoder",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return c, nil
}

// Score returns one relevance score per document, aligned with docs.
func (c *Client) Score(ctx context.Context, query string, docs []string) ([]float32, error) {
	if len(docs) == 0 {
		return []float32{}, nil
	}

	out, err := c.breaker.Execute(func() (any, error) {
		return c.call(ctx, query, docs)
	})
	if err != nil {
		c.logger.Error("rerank failed", "docs", len(docs), "err", err)
		return nil, err
	}
	return out.([]float32), nil
}

func (c *Client) call(ctx context.Context, query string, docs []string) ([]float32, error) {
	body, err := json.Marshal(rerankRequest{Query: query, Texts: docs, Truncate: true})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrBadResponse, resp.StatusCode, bytes.TrimSpace(msg))
	}

	var hits []rerankHit
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadResponse, err)
	}
	if len(hits) != len(docs) {
		return nil, fmt.Errorf("%w: %d scores for %d documents", ErrBadResponse, len(hits), len(docs))
	}

	scores := make([]float32, len(docs))
	seen := make([]bool, len(docs))
	for _, h := range hits {
		if h.Index < 0 || h.Index >= len(docs) || seen[h.Index] {
			return nil, fmt.Errorf("%w: invalid index %d", ErrBadResponse, h.Index)
		}
		seen[h.Index] = true
		scores[h.Index] = h.Score
	}
	return scores, nil
}
