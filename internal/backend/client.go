// README: Upstream REST client for the points-and-events backend (profile, events, transactions).
package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"prestige/internal/modules/entity"
)

// ErrUpstream wraps every failed or non-2xx backend call.
var ErrUpstream = errors.New("upstream fetch failed")

const (
	defaultPageSize = 100
	defaultMaxPages = 10
	maxBodyBytes    = 16 << 20
)

type Config struct {
	BaseURL string
	// Timeout bounds each individual request.
	Timeout  time.Duration
	PageSize int
	// MaxPages is the hard ceiling on page iterations per listing.
	MaxPages int
}

type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = defaultMaxPages
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

// Listing is the outcome of a paginated fetch. Truncated is set when the
// page ceiling was reached before the reported last page.
type Listing[T any] struct {
	Records   []T
	Truncated bool
}

func (c *Client) FetchProfile(ctx context.Context, token string) (entity.RawProfile, error) {
	body, err := c.get(ctx, token, "/users/me", nil)
	if err != nil {
		return nil, err
	}
	return entity.RawProfile(body), nil
}

// FetchEvents walks /events pages. On error the records gathered so far are
// still returned.
func (c *Client) FetchEvents(ctx context.Context, token string) (Listing[entity.RawEvent], error) {
	q := url.Values{
		"showFull":          {"true"},
		"includeMe":         {"true"},
		"includeGuests":     {"true"},
		"includeOrganizers": {"true"},
	}
	raw, truncated, err := c.paginate(ctx, token, "/events", q, "events")
	out := Listing[entity.RawEvent]{Records: make([]entity.RawEvent, len(raw)), Truncated: truncated}
	for i, r := range raw {
		out.Records[i] = entity.RawEvent(r)
	}
	return out, err
}

func (c *Client) FetchTransactions(ctx context.Context, token string) (Listing[entity.RawTransaction], error) {
	raw, truncated, err := c.paginate(ctx, token, "/transactions", url.Values{}, "transactions")
	out := Listing[entity.RawTransaction]{Records: make([]entity.RawTransaction, len(raw)), Truncated: truncated}
	for i, r := range raw {
		out.Records[i] = entity.RawTransaction(r)
	}
	return out, err
}

func (c *Client) paginate(ctx context.Context, token, path string, q url.Values, containerKey string) ([][]byte, bool, error) {
	var out [][]byte
	for page := 1; ; page++ {
		if page > c.cfg.MaxPages {
			return out, true, nil
		}
		q.Set("page", strconv.Itoa(page))
		q.Set("limit", strconv.Itoa(c.cfg.PageSize))

		body, err := c.get(ctx, token, path, q)
		if err != nil {
			return out, false, err
		}
		env := parseEnvelope(body, containerKey)
		if len(env.items) == 0 {
			return out, false, nil
		}
		out = append(out, env.items...)

		if page >= env.totalPages(len(out), c.cfg.PageSize) {
			return out, false, nil
		}
	}
}

func (c *Client) get(ctx context.Context, token, path string, q url.Values) ([]byte, error) {
	endpoint := c.cfg.BaseURL + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request %s: %v", ErrUpstream, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", ErrUpstream, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: GET %s: status %d", ErrUpstream, path, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrUpstream, path, err)
	}
	return body, nil
}
