// Package transport performs authenticated calls against the admin API.
//
// Send refuses to hit the network without a valid session and turns an HTTP
// 401 into errs.ErrUnauthorized after clearing the session. It never retries.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/admin-console/internal/errs"
	"github.com/and161185/admin-console/internal/metrics"
	"github.com/and161185/admin-console/internal/model"
)

// HeaderRequestID carries a per-call id for log correlation.
const HeaderRequestID = "X-Request-ID"

const maxBodyBytes = 8 << 20

// Sessions is the part of the session store the client needs.
type Sessions interface {
	Get() (model.Session, bool)
	IsValid() bool
	Clear(ctx context.Context) error
}

// Response is a completed 2xx exchange.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client talks JSON over HTTP to one API base URL.
type Client struct {
	base     *url.URL
	hc       *http.Client
	sessions Sessions
	log      *zap.Logger
	metrics  *metrics.Metrics
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.hc = hc } }

// WithTimeout bounds each call; zero means no timeout.
func WithTimeout(d time.Duration) Option { return func(c *Client) { c.hc.Timeout = d } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.log = l } }

// WithMetrics records request durations.
func WithMetrics(m *metrics.Metrics) Option { return func(c *Client) { c.metrics = m } }

// New constructs a client for baseURL (e.g. http://localhost:8080).
func New(baseURL string, sessions Sessions, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}
	c := &Client{
		base:     u,
		hc:       &http.Client{},
		sessions: sessions,
		log:      zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	next := c.hc.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	hc := *c.hc
	hc.Transport = LoggingTransport(next, c.log, c.metrics)
	c.hc = &hc
	return c, nil
}

// Send performs an authenticated call. Without a valid session it fails with
// errs.ErrSessionMissing before any network I/O.
func (c *Client) Send(ctx context.Context, method, path string, query url.Values, body any) (*Response, error) {
	sess, ok := c.sessions.Get()
	if !ok || !c.sessions.IsValid() {
		if ok {
			c.log.Info("session expired", zap.Time("expiresAt", sess.ExpiresAt))
			if err := c.sessions.Clear(ctx); err != nil {
				c.log.Warn("clear expired session", zap.Error(err))
			}
		}
		return nil, errs.ErrSessionMissing
	}

	resp, err := c.do(ctx, method, path, query, body, sess.Token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		if err := c.sessions.Clear(ctx); err != nil {
			c.log.Warn("clear rejected session", zap.Error(err))
		}
		return nil, fmt.Errorf("%s %s: %w", method, path, errs.ErrUnauthorized)
	}
	return checkStatus(resp)
}

// SendAnonymous performs a call without a credential (sign-in).
func (c *Client) SendAnonymous(ctx context.Context, method, path string, query url.Values, body any) (*Response, error) {
	resp, err := c.do(ctx, method, path, query, body, "")
	if err != nil {
		return nil, err
	}
	return checkStatus(resp)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, token string) (*Response, error) {
	u := c.base.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if id, err := uuid.NewV4(); err == nil {
		req.Header.Set(HeaderRequestID, id.String())
	}

	hr, err := c.hc.Do(req)
	if err != nil {
		return nil, &errs.TransportError{Cause: err}
	}
	defer hr.Body.Close()

	b, err := io.ReadAll(io.LimitReader(hr.Body, maxBodyBytes))
	if err != nil {
		return nil, &errs.TransportError{Cause: err}
	}
	return &Response{StatusCode: hr.StatusCode, Header: hr.Header, Body: b}, nil
}

func checkStatus(resp *Response) (*Response, error) {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	se := &errs.ServerError{StatusCode: resp.StatusCode, Body: resp.Body}
	var env model.Envelope
	if json.Unmarshal(resp.Body, &env) == nil {
		se.Code, se.Message = env.Code, env.Message
	}
	return nil, se
}

// DecodeEnvelope unwraps {code,message,data} into out. Any code other than
// successCode is a *errs.ServerError, whatever the HTTP status was.
func DecodeEnvelope(resp *Response, successCode string, out any) error {
	if resp == nil {
		return errors.New("decode envelope: nil response")
	}
	var env model.Envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return &errs.ServerError{StatusCode: resp.StatusCode, Message: "invalid envelope: " + err.Error(), Body: resp.Body}
	}
	if env.Code != successCode {
		return &errs.ServerError{StatusCode: resp.StatusCode, Code: env.Code, Message: env.Message, Body: resp.Body}
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &errs.ServerError{StatusCode: resp.StatusCode, Code: env.Code, Message: "invalid data: " + err.Error(), Body: resp.Body}
	}
	return nil
}
