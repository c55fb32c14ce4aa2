// Package scoringclient calls a remote wellcheck server and falls back to
// scoring locally when the server cannot be reached.
package scoringclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/wellcheck/wellcheck/pkg/scoring"
)

const apiPrefix = "/api/v1"

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	timeout    time.Duration
	local      *scoring.Engine
	log        zerolog.Logger
}

// Option configures the Client during construction.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds every remote call. It applies to a copy of the HTTP
// client, so a client passed to WithHTTPClient is left untouched.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithToken sends token as a bearer credential.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithLocal sets the engine used when the remote is unavailable. Without
// one, remote failures are returned to the caller.
func WithLocal(engine *scoring.Engine) Option {
	return func(c *Client) { c.local = engine }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("scoringclient: base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("scoringclient: base URL: %w", err)
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c, nil
}

var _ scoring.Catalog = (*Client)(nil)

// Assessment is a single-test result. ID is empty when the result was
// computed locally and therefore not stored.
type Assessment struct {
	ID     string
	Local  bool
	Result *scoring.ScoredResult
}

// ComprehensiveAssessment is a battery result.
type ComprehensiveAssessment struct {
	ID     string
	Local  bool
	Result *scoring.ComprehensiveResult
}

type assessRequest struct {
	TestCode  string              `json:"test_code,omitempty"`
	Responses scoring.ResponseSet `json:"responses"`
}

func (c *Client) Assess(ctx context.Context, code string, responses scoring.ResponseSet) (*Assessment, error) {
	var body struct {
		ID string `json:"id"`
		scoring.ScoredResult
	}
	path := apiPrefix + "/tests/" + url.PathEscape(code) + "/assess"
	err := c.doJSON(ctx, http.MethodPost, path, code, assessRequest{Responses: responses}, &body)
	if err == nil {
		return &Assessment{ID: body.ID, Result: &body.ScoredResult}, nil
	}
	if !c.canFallBack(ctx, err) {
		return nil, err
	}
	c.logFallback(err, "assess", code)
	res, err := c.local.Assess(ctx, code, responses)
	if err != nil {
		return nil, err
	}
	return &Assessment{Local: true, Result: res}, nil
}

func (c *Client) AssessComprehensive(ctx context.Context, code string, responses scoring.ResponseSet) (*ComprehensiveAssessment, error) {
	var raw json.RawMessage
	err := c.doJSON(ctx, http.MethodPost, apiPrefix+"/assessments/comprehensive", code,
		assessRequest{TestCode: code, Responses: responses}, &raw)
	if err == nil {
		var res scoring.ComprehensiveResult
		if err := json.Unmarshal(raw, &res); err != nil {
			return nil, fmt.Errorf("decode comprehensive result: %w", err)
		}
		var id struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(raw, &id)
		return &ComprehensiveAssessment{ID: id.ID, Result: &res}, nil
	}
	if !c.canFallBack(ctx, err) {
		return nil, err
	}
	c.logFallback(err, "assess comprehensive", code)
	res, err := c.local.AssessComprehensive(ctx, code, responses)
	if err != nil {
		return nil, err
	}
	return &ComprehensiveAssessment{Local: true, Result: res}, nil
}

// GetTestDefinition fetches a definition from the remote catalog, or from
// the local engine's catalog when the remote is unavailable.
func (c *Client) GetTestDefinition(ctx context.Context, code string) (*scoring.TestDefinition, error) {
	var def scoring.TestDefinition
	err := c.doJSON(ctx, http.MethodGet, apiPrefix+"/tests/"+url.PathEscape(code), code, nil, &def)
	if err == nil {
		return &def, nil
	}
	if !c.canFallBack(ctx, err) {
		return nil, err
	}
	c.logFallback(err, "get definition", code)
	return c.local.Catalog().GetTestDefinition(ctx, code)
}

func (c *Client) canFallBack(ctx context.Context, err error) bool {
	return c.local != nil && ctx.Err() == nil && IsUnavailable(err)
}

func (c *Client) logFallback(err error, op, code string) {
	c.log.Warn().Err(err).Str("operation", op).Str("test_code", code).Msg("remote scoring unavailable, scoring locally")
}

func (c *Client) doJSON(ctx context.Context, method, path, code string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &unavailableError{err: err}
	}
	defer resp.Body.Close()

	c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("remote scoring call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return decodeError(resp.StatusCode, code, respBody)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
