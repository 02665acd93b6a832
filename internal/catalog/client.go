package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
	"github.com/karlseguin/ccache/v3"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
)

const (
	DefaultBaseURL    = "https://archive.org"
	DefaultCacheTTL   = time.Hour
	DefaultCacheSize  = 200
	DefaultMaxRetries = 3
	DefaultTimeout    = 15 * time.Second
)

// ClientOpts configures a [Client]. Zero values select the defaults.
type ClientOpts struct {
	BaseURL    string
	HTTPClient *http.Client
	CacheTTL   time.Duration
	CacheSize  int
	MaxRetries int
	Logger     *log.Logger
}

// OptsFrom maps the [catalog] section of the config file.
func OptsFrom(cfg shared.CatalogConfig) ClientOpts {
	opts := ClientOpts{
		BaseURL:    cfg.BaseURL,
		CacheTTL:   time.Duration(cfg.CacheTTLMinutes) * time.Minute,
		CacheSize:  cfg.CacheSize,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.TimeoutSeconds > 0 {
		opts.HTTPClient = &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second}
	}
	return opts
}

// Client fetches show metadata. Albums are cached by identifier.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *ccache.Cache[*models.Album]
	ttl        time.Duration
	maxRetries int
	logger     *log.Logger
	newBackOff func() backoff.BackOff
}

func NewClient(opts ClientOpts) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	} else if opts.MaxRetries == 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: opts.HTTPClient,
		cache: ccache.New(
			ccache.Configure[*models.Album]().
				MaxSize(int64(opts.CacheSize)).
				GetsPerPromote(3).
				ItemsToPrune(1),
		),
		ttl:        opts.CacheTTL,
		maxRetries: opts.MaxRetries,
		logger:     shared.WithLogger(opts.Logger, "component", "catalog"),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 250 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
	}
}

// Album returns the show with the given archive identifier.
func (c *Client) Album(ctx context.Context, identifier string) (*models.Album, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, fmt.Errorf("%w: identifier", shared.ErrMissingArgument)
	}

	item, err := c.cache.Fetch(identifier, c.ttl, func() (*models.Album, error) {
		return c.fetch(ctx, identifier)
	})
	if err != nil {
		return nil, err
	}
	return item.Value(), nil
}

// Albums fetches every identifier and merges the recordings into one show.
func (c *Client) Albums(ctx context.Context, identifiers ...string) (*models.Album, error) {
	albums := make([]models.Album, 0, len(identifiers))
	for _, id := range identifiers {
		album, err := c.Album(ctx, id)
		if err != nil {
			return nil, err
		}
		albums = append(albums, *album)
	}
	if len(albums) == 0 {
		return nil, fmt.Errorf("%w: identifier", shared.ErrMissingArgument)
	}
	merged := Merge(albums...)
	return &merged, nil
}

// Forget drops identifier from the cache.
func (c *Client) Forget(identifier string) bool {
	return c.cache.Delete(identifier)
}

// Stop releases the cache's background worker.
func (c *Client) Stop() {
	c.cache.Stop()
}

// fetch downloads and parses one item, retrying transport failures and 5xx
// responses with exponential backoff. Other 4xx responses fail at once.
func (c *Client) fetch(ctx context.Context, identifier string) (*models.Album, error) {
	endpoint := c.baseURL + "/metadata/" + url.PathEscape(identifier)
	attempt := 0

	var body []byte
	op := func() error {
		attempt++
		b, err := c.get(ctx, endpoint)
		if err != nil {
			c.logger.Debug("metadata request failed", "identifier", identifier, "attempt", attempt, "error", err)
			return err
		}
		body = b
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(c.maxRetries)), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return nil, err
	}

	album, err := Parse(identifier, body, c.baseURL)
	if err != nil {
		return nil, err
	}
	c.logger.Info("fetched show", "identifier", identifier, "tracks", album.TotalTracks, "attempts", attempt)
	return album, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, backoff.Permanent(fmt.Errorf("%w: %s", shared.ErrAlbumNotFound, endpoint))
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", shared.ErrServiceUnavailable, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, backoff.Permanent(fmt.Errorf("%w: status %d", shared.ErrCatalog, resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}
