// Package console is a Go client for the hosting API: services,
// deployments, apps, organizations and the account, plus the helpers the
// console builds on top of them.
package console

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"emperror.dev/errors"
	log "github.com/sirupsen/logrus"
	"resty.dev/v3"
)

// Client talks to the hosting API. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *resty.Client
	stream  *http.Client
	log     *log.Entry

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*options)

type options struct {
	token   string
	timeout time.Duration
	retries int
	logger  *log.Logger
}

func defaultOptions() options {
	return options{
		timeout: 30 * time.Second,
		retries: 2,
		logger:  log.StandardLogger(),
	}
}

// WithToken sets the session token sent as a bearer token.
func WithToken(token string) Option {
	return func(o *options) { o.token = token }
}

// WithTimeout bounds each request. Event streams are not bounded.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithRetries sets how many times a failed GET is retried. Requests that
// change state are sent once.
func WithRetries(n int) Option {
	return func(o *options) { o.retries = n }
}

// WithLogger sets the logger for request tracing at debug level.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New returns a client for the API at baseURL, e.g. "https://app.example.com".
func New(baseURL string, opts ...Option) *Client {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: resty.New().
			SetTimeout(o.timeout).
			SetRetryCount(o.retries).
			SetRetryWaitTime(500*time.Millisecond).
			SetRetryMaxWaitTime(5*time.Second).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json"),
		stream: &http.Client{},
		log:    o.logger.WithField("component", "console-client"),
		token:  o.token,
	}
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.stream.CloseIdleConnections()
	return c.http.Close()
}

// Token returns the current session token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the session token for subsequent requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// do sends a JSON request and decodes a 2xx body into result. Non-2xx
// responses are returned as *APIError.
func (c *Client) do(ctx context.Context, method, path string, query map[string]string, body, result any) error {
	req := c.http.R().
		SetContext(ctx).
		SetQueryParams(query)
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}
	if token := c.Token(); token != "" {
		req.SetAuthToken(token)
	}
	if method != http.MethodGet {
		// A repeated PUT /v1/services/{id} starts another deployment.
		req.SetRetryCount(0)
	}

	url := urlJoin(c.baseURL, path)
	resp, err := req.Execute(method, url)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}

	c.log.WithFields(log.Fields{
		"method": method,
		"path":   path,
		"status": resp.StatusCode(),
	}).Debug("api request")

	if resp.IsError() {
		return newAPIError(resp.StatusCode(), resp.String())
	}
	return nil
}

func urlJoin(baseURL string, pathPart string) string {
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(pathPart, "/")
}
