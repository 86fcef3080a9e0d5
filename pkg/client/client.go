// Package client talks to a running shelfkeeper server: REST calls for job
// control and a WebSocket session for live job events.
package client

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

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"github.com/shelfkeeper/shelfkeeper/pkg/config"
	"github.com/shelfkeeper/shelfkeeper/pkg/server/api"
	"github.com/shelfkeeper/shelfkeeper/pkg/server/jobs"
)

// ErrUnauthorized is matched by APIErrors with status 401.
var ErrUnauthorized = errors.New("server rejected the token")

// ErrForbidden is matched by APIErrors with status 403.
var ErrForbidden = errors.New("not allowed to control jobs")

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	}
	return msg
}

// Unwrap maps the server's error code back to the job sentinel errors so
// errors.Is works across the wire.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "JOB_ALREADY_RUNNING":
		return jobs.ErrAlreadyRunning
	case "JOB_NOT_RUNNING":
		return jobs.ErrNoActiveJob
	case "JOB_SPAWN_FAILED":
		return jobs.ErrSpawnFailed
	case "JOB_UNKNOWN_KIND", "INVALID_REQUEST":
		return jobs.ErrUnknownKind
	case "JOB_WORKER_GONE":
		return jobs.ErrWorkerGone
	case "SHUTTING_DOWN":
		return jobs.ErrShuttingDown
	}
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	}
	return nil
}

// Options configures a Client.
type Options struct {
	Server   string
	Token    string
	RetryMax int
	Timeout  time.Duration
	Logger   zerolog.Logger
}

// FromConfig builds options from the client section of the configuration.
func FromConfig(cfg config.ClientConfig, logger zerolog.Logger) Options {
	return Options{Server: cfg.Server, Token: cfg.Token, RetryMax: 3, Logger: logger}
}

// Client is a shelfkeeper API client.
type Client struct {
	base   *url.URL
	token  string
	http   *retryablehttp.Client
	logger zerolog.Logger
}

// New creates a client for the server at opts.Server.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(opts.Server, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid server URL %q: scheme must be http or https", opts.Server)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q: missing host", opts.Server)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	logger := opts.Logger.With().Str("component", "client").Logger()

	rc := retryablehttp.NewClient()
	rc.HTTPClient.Timeout = timeout
	rc.RetryMax = opts.RetryMax
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.CheckRetry = checkRetry
	rc.Logger = &retryLogger{logger: logger}
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{base: base, token: opts.Token, http: rc, logger: logger}, nil
}

// checkRetry retries connection failures and gateway errors only. Job
// control responses such as 409 or a 500 spawn failure are final.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true, nil
	}
	return false, nil
}

// Ready reports whether the server answers /readyz with 200.
func (c *Client) Ready(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/readyz", nil)
}

// Job returns the running job. The response has Running false when the
// slot is empty.
func (c *Client) Job(ctx context.Context) (api.JobResponse, error) {
	var resp api.JobResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/job", &resp)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return api.JobResponse{}, nil
	}
	return resp, err
}

// StartJob starts a job of the given kind.
func (c *Client) StartJob(ctx context.Context, kind jobs.Kind) (jobs.Status, error) {
	var resp api.JobResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/jobs/"+url.PathEscape(string(kind)), &resp); err != nil {
		return jobs.Status{}, err
	}
	if resp.Job == nil {
		return jobs.Status{}, errors.New("server accepted the job but returned no status")
	}
	return *resp.Job, nil
}

// CancelJob asks the server to terminate the running job.
func (c *Client) CancelJob(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/job", nil)
}

// Config fetches the effective server configuration. Tokens are never sent.
func (c *Client) Config(ctx context.Context) (config.Config, error) {
	var cfg config.Config
	err := c.do(ctx, http.MethodGet, "/api/v1/config", &cfg)
	return cfg, err
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	u := c.base.JoinPath(path)
	req, err := retryablehttp.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s %s: read response: %w", method, path, err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var er api.ErrorResponse
		if json.Unmarshal(body, &er) == nil {
			apiErr.Code = er.Code
			apiErr.Message = er.Message
		}
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

// retryLogger adapts zerolog to retryablehttp.LeveledLogger.
type retryLogger struct {
	logger zerolog.Logger
}

func (l *retryLogger) Error(msg string, kv ...any) { l.logger.Error().Fields(kv).Msg(msg) }
func (l *retryLogger) Warn(msg string, kv ...any)  { l.logger.Warn().Fields(kv).Msg(msg) }
func (l *retryLogger) Info(msg string, kv ...any)  { l.logger.Debug().Fields(kv).Msg(msg) }
func (l *retryLogger) Debug(msg string, kv ...any) { l.logger.Trace().Fields(kv).Msg(msg) }
