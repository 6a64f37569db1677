package graylog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/graylogcheck/internal/domain"
)

const (
	SearchPath   = "/search/universal/relative"
	maxBodyBytes = 4 << 20
)

type Options struct {
	Scheme   string
	Host     string
	Port     int
	Username string
	Password string
	Query    string
	Range    int // seconds; 0 searches all time
	Timeout  time.Duration
}

// Client issues universal relative searches against the Graylog REST API.
type Client struct {
	Logger  *zap.Logger
	Client  *http.Client
	opts    Options
	baseURL string
}

func NewClient(logger *zap.Logger, opts Options) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Scheme == "" {
		opts.Scheme = "http"
	}
	if opts.Query == "" {
		opts.Query = "*"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Client{
		Logger:  logger,
		Client:  &http.Client{Timeout: opts.Timeout},
		opts:    opts,
		baseURL: opts.Scheme + "://" + net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port)),
	}
}

// SearchURL is the full request URL for the newest matching message.
func (c *Client) SearchURL() string {
	q := url.Values{}
	q.Set("query", c.opts.Query)
	q.Set("range", strconv.Itoa(c.opts.Range))
	q.Set("limit", "1")
	q.Set("sort", "timestamp:desc")
	q.Set("fields", "timestamp")
	return c.baseURL + SearchPath + "?" + q.Encode()
}

func (c *Client) Timeout() time.Duration { return c.opts.Timeout }

// LatestMessages performs exactly one search round trip. Errors wrap one of
// ErrConnection, ErrTimeout, ErrHTTPStatus or ErrMalformed.
func (c *Client) LatestMessages(ctx context.Context) (domain.SearchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	target := c.SearchURL()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return domain.SearchResult{}, fmt.Errorf("%w: building request: %v", ErrConnection, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.opts.Username != "" {
		req.SetBasicAuth(c.opts.Username, c.opts.Password)
	}

	c.Logger.Debug("graylog_search_request", zap.String("url", target))
	start := time.Now()
	resp, err := c.Client.Do(req)
	if err != nil {
		return domain.SearchResult{}, c.transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.SearchResult{}, c.transportError(err)
	}
	c.Logger.Debug("graylog_search_response",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("took", time.Since(start)),
	)

	if resp.StatusCode/100 != 2 {
		return domain.SearchResult{}, fmt.Errorf("%w: %s", ErrHTTPStatus, resp.Status)
	}
	return DecodeSearchResult(body)
}

func (c *Client) transportError(err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%w after %s", ErrTimeout, c.opts.Timeout)
	}
	return fmt.Errorf("%w: %v", ErrConnection, err)
}

type searchResponse struct {
	Query        string                   `json:"query"`
	TotalResults int64                    `json:"total_results"`
	Messages     *[]domain.MessageSummary `json:"messages"`
}

// DecodeSearchResult validates the body shape: a JSON object carrying a
// messages array.
func DecodeSearchResult(body []byte) (domain.SearchResult, error) {
	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return domain.SearchResult{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if sr.Messages == nil {
		return domain.SearchResult{}, fmt.Errorf("%w: missing messages", ErrMalformed)
	}
	return domain.SearchResult{
		Query:        sr.Query,
		TotalResults: sr.TotalResults,
		Messages:     *sr.Messages,
	}, nil
}
