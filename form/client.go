package form

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

const (
	defaultUserAgent = "sph-go"

	// maxResponseSize bounds the form page read into memory.
	maxResponseSize = 10 << 20
)

// StatusError is returned by Client.Submit when the gateway answers with a
// non-2xx status.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("form: unexpected response status %d", e.StatusCode)
}

// ClientConfig configures a Client.
type ClientConfig struct {
	// HTTPClient performs the requests. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// UserAgent is sent with every request.
	UserAgent string

	// Logger receives one entry per submission. Defaults to a no-op logger.
	Logger *zap.Logger
}

// Client submits generated forms to the gateway directly, without a
// browser. Useful for integration testing against a staging gateway.
type Client struct {
	http      *http.Client
	userAgent string
	logger    *zap.Logger
}

// NewClient returns a Client.
func NewClient(cfg ClientConfig) *Client {
	c := &Client{
		http:      cfg.HTTPClient,
		userAgent: cfg.UserAgent,
		logger:    cfg.Logger,
	}

	if c.http == nil {
		c.http = http.DefaultClient
	}

	if c.userAgent == "" {
		c.userAgent = defaultUserAgent
	}

	if c.logger == nil {
		c.logger = zap.NewNop()
	}

	return c
}

// Submit sends the container to its action URL and returns the response
// body.
func (c *Client) Submit(ctx context.Context, form *Container) ([]byte, error) {
	req, err := form.NewRequest(ctx)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, err
	}

	c.logger.Info("form submitted",
		zap.String("action", form.Action),
		zap.String("request_id", form.RequestID),
		zap.Int("status", resp.StatusCode),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: body}
	}

	return body, nil
}
