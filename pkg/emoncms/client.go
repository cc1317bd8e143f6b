package emoncms

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://emon.solareco.cz/emoncms"
	// RequestTimeout bounds the whole request, body included.
	RequestTimeout   = 10 * time.Second
	maxResponseBytes = 4 * 1024 * 1024
)

// FeedClient fetches the feed list of a device.
type FeedClient interface {
	FeedList(ctx context.Context, deviceId string) ([]Feed, error)
	FeedListURL(deviceId string) string
}

type ClientConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
}

type HTTPFeedClient struct {
	http    *http.Client
	baseURL string
}

func NewHTTPFeedClient(cfg ClientConfig) (*HTTPFeedClient, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = RequestTimeout
	}
	return &HTTPFeedClient{
		http: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}, nil
}

func (c *HTTPFeedClient) FeedListURL(deviceId string) string {
	return fmt.Sprintf("%s/%s/feed/list.json", c.baseURL, url.PathEscape(deviceId))
}

func (c *HTTPFeedClient) FeedList(ctx context.Context, deviceId string) ([]Feed, error) {
	body, err := c.doGet(ctx, c.FeedListURL(deviceId))
	if err != nil {
		return nil, err
	}
	return ParseFeedList(body)
}

func (c *HTTPFeedClient) doGet(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &TransportError{URL: reqURL, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{URL: reqURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, &TransportError{URL: reqURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{URL: reqURL, Err: fmt.Errorf("read body: %w", err)}
	}
	return body, nil
}

// ensure interface compliance
var _ FeedClient = (*HTTPFeedClient)(nil)
