package pager

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/andyfu-xl/SEML/errors"
)

// eventTimeLayout is the timestamp format the paging service expects in
// request bodies, the same compact form HL7 uses on the wire.
const eventTimeLayout = "20060102150405"

// ClientConfig holds configuration for the pager HTTP client
type ClientConfig struct {
	// BaseURL is the root of the paging service, e.g. http://pager:8441
	BaseURL string
	// Timeout bounds each page request end to end
	Timeout time.Duration
}

// Validate checks the configuration for errors
func (c *ClientConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "ClientConfig", "Validate", "base URL is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return errors.WrapInvalid(err, "ClientConfig", "Validate", "parse base URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "ClientConfig", "Validate",
			fmt.Sprintf("unsupported scheme %q", u.Scheme))
	}
	if c.Timeout < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "ClientConfig", "Validate",
			"timeout must not be negative")
	}
	return nil
}

// Client issues page requests to the hospital paging service. It performs
// no retries of its own: each call is a single POST, and the Queue decides
// whether and when to try again.
type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

// NewClient creates a pager client from configuration
func NewClient(cfg ClientConfig, logger *slog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "text/plain")

	return &Client{
		http:   httpClient,
		logger: logger.With("component", "pager"),
	}, nil
}

// Page requests a page for the clinician responsible for mrn. The body is
// "<mrn>,<event time>", or just the MRN when the event time is unknown.
//
// A 2xx response is confirmed delivery. A 4xx response is ErrPageRejected:
// the service refused the request and repeating it verbatim cannot
// succeed. Transport errors and all other statuses are ErrPageFailed and
// safe to retry.
func (c *Client) Page(ctx context.Context, mrn string, eventTime time.Time) error {
	body := mrn
	if !eventTime.IsZero() {
		body = mrn + "," + eventTime.Format(eventTimeLayout)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post("/page")
	if err != nil {
		return errors.WrapTransient(
			fmt.Errorf("%w: %w", errors.ErrPageFailed, err),
			"Client", "Page", "post page request")
	}

	switch {
	case resp.IsSuccess():
		c.logger.Debug("page delivered", "mrn", mrn, "status", resp.StatusCode())
		return nil
	case resp.StatusCode() >= 400 && resp.StatusCode() < 500:
		return errors.WrapInvalid(
			fmt.Errorf("%w: HTTP %d", errors.ErrPageRejected, resp.StatusCode()),
			"Client", "Page", "post page request")
	default:
		return errors.WrapTransient(
			fmt.Errorf("%w: HTTP %d", errors.ErrPageFailed, resp.StatusCode()),
			"Client", "Page", "post page request")
	}
}

// Shutdown asks the paging service to stop with a GET to /shutdown. The
// simulator exposes this for orderly teardown at the end of a replayed
// message stream; failures are not fatal to the pipeline.
func (c *Client) Shutdown(ctx context.Context) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Get("/shutdown")
	if err != nil {
		return errors.WrapTransient(err, "Client", "Shutdown", "shutdown request")
	}
	if !resp.IsSuccess() {
		return errors.WrapTransient(
			fmt.Errorf("HTTP %d", resp.StatusCode()),
			"Client", "Shutdown", "shutdown request")
	}
	return nil
}
