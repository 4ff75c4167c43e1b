// Package remote is a capability backed by an HTTP classification service.
//
// The service exposes two JSON endpoints:
//
//	POST /classify       {"text", "candidates": [{"code","term","level","parent"}]}
//	                  -> {"level1","level2","level3","confidence"}
//	POST /verify-entity  {"name_a","name_b"} -> {"same_entity"}
package remote

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/crimson-sun/trendwatch/internal/capability"
	"github.com/crimson-sun/trendwatch/internal/model"
)

// APIError represents a non-2xx HTTP response.
type APIError struct {
	StatusCode int
	Body       string // first 512 bytes
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Client talks to the classification service.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

var _ capability.Capability = (*Client)(nil)

// Option configures Client behavior.
type Option func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

// WithRetry sets the retry count and the initial and maximum backoff.
func WithRetry(count int, wait, maxWait time.Duration) Option {
	return func(c *Client) {
		c.http.SetRetryCount(count).
			SetRetryWaitTime(wait).
			SetRetryMaxWaitTime(maxWait)
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a Client with Bearer auth and a base URL. Requests retry on
// 429 and 5xx with exponential backoff (1s, 2s, 4s), at most 3 times.
func New(baseURL, token string, opts ...Option) *Client {
	h := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1*time.Second).
		SetRetryMaxWaitTime(4*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil || r == nil {
				return false
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		})
	if token != "" {
		h.SetAuthToken(token)
	}
	c := &Client{http: h, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type candidate struct {
	Code   string `json:"code"`
	Term   string `json:"term"`
	Level  int    `json:"level"`
	Parent string `json:"parent,omitempty"`
}

type classifyRequest struct {
	Text       string      `json:"text"`
	Candidates []candidate `json:"candidates"`
}

// flatten lists the hierarchy depth-first with parent links.
func flatten(nodes []*model.Node, parent string, out []candidate) []candidate {
	for _, n := range nodes {
		out = append(out, candidate{Code: n.Code, Term: n.Term, Level: n.Level, Parent: parent})
		out = flatten(n.Children, n.Code, out)
	}
	return out
}

// Classify posts text and the candidate hierarchy to /classify.
func (c *Client) Classify(ctx context.Context, text string, candidates []*model.Node) (capability.Guess, error) {
	var guess capability.Guess
	err := c.post(ctx, "/classify", classifyRequest{Text: text, Candidates: flatten(candidates, "", nil)}, &guess)
	return guess, err
}

type verifyRequest struct {
	NameA string `json:"name_a"`
	NameB string `json:"name_b"`
}

type verifyResponse struct {
	SameEntity bool `json:"same_entity"`
}

// VerifyEntity posts the two names to /verify-entity.
func (c *Client) VerifyEntity(ctx context.Context, nameA, nameB string) (bool, error) {
	var out verifyResponse
	if err := c.post(ctx, "/verify-entity", verifyRequest{NameA: nameA, NameB: nameB}, &out); err != nil {
		return false, err
	}
	return out.SameEntity, nil
}

func (c *Client) post(ctx context.Context, path string, body, dest any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(dest).
		Post(path)
	if err != nil {
		return fmt.Errorf("remote %s: %w", path, err)
	}
	if resp.IsError() {
		b := resp.String()
		if len(b) > 512 {
			b = b[:512]
		}
		c.logger.Debug("remote capability error",
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode()),
		)
		return &APIError{StatusCode: resp.StatusCode(), Body: b}
	}
	return nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.GetClient().CloseIdleConnections()
	return nil
}

func init() {
	capability.Register("remote", func(cfg capability.Config) (capability.Capability, error) {
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("remote capability requires an endpoint")
		}
		return New(cfg.Endpoint, cfg.APIKey, WithTimeout(cfg.Timeout)), nil
	})
}
