package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/athapong/gitbook2html/pkg/metrics"
)

// PageRef identifies a page found while walking a space's content tree.
type PageRef struct {
	ID    string
	Title string
	Path  string
	Depth int
}

// GitBookClient talks to the GitBook content API. Calls are paced by a
// shared rate limiter, so one client may be used from several goroutines.
type GitBookClient struct {
	baseURL string
	apiKey  string
	http    *retryablehttp.Client
	limiter *rate.Limiter
	logger  *logrus.Logger
}

// ClientOption configures a GitBookClient.
type ClientOption func(c *GitBookClient)

// WithRetryMax sets how often a failed request is retried.
func WithRetryMax(n int) ClientOption {
	return func(c *GitBookClient) {
		c.http.RetryMax = n
	}
}

// WithRetryWait sets the bounds of the backoff between retries.
func WithRetryWait(minWait, maxWait time.Duration) ClientOption {
	return func(c *GitBookClient) {
		c.http.RetryWaitMin = minWait
		c.http.RetryWaitMax = maxWait
	}
}

// WithClientLogger replaces the client logger.
func WithClientLogger(logger *logrus.Logger) ClientOption {
	return func(c *GitBookClient) {
		c.logger = logger
		c.http.Logger = logger
	}
}

// NewGitBookClient creates a client for the API described by cfg.
func NewGitBookClient(cfg Config, opts ...ClientOption) *GitBookClient {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cl := retryablehttp.NewClient()
	cl.RetryMax = 3
	cl.RetryWaitMin = time.Second
	cl.Logger = logger

	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}

	c := &GitBookClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    cl,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
	// The first attempt waits in getJSON; retries wait here.
	cl.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			_ = c.limiter.Wait(req.Context())
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultGitBookClient returns a client configured from the environment.
var DefaultGitBookClient = sync.OnceValues(func() (*GitBookClient, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return NewGitBookClient(cfg), nil
})

// GetPageDocument fetches a page and returns its "document" value, the
// root of the tree the renderer consumes.
func (c *GitBookClient) GetPageDocument(ctx context.Context, spaceID, pageID string) (gjson.Result, error) {
	endpoint := fmt.Sprintf("/v1/spaces/%s/content/page/%s", url.PathEscape(spaceID), url.PathEscape(pageID))

	body, err := c.getJSON(ctx, "page", endpoint)
	if err != nil {
		return gjson.Result{}, err
	}

	doc := body.Get("document")
	if !doc.IsObject() {
		return gjson.Result{}, errors.Errorf("page %s in space %s has no document", pageID, spaceID)
	}
	return doc, nil
}

// ListPages walks the content tree of a space and returns every page in
// pre-order. Pages reachable more than once are listed once.
func (c *GitBookClient) ListPages(ctx context.Context, spaceID string) ([]PageRef, error) {
	endpoint := fmt.Sprintf("/v1/spaces/%s/content", url.PathEscape(spaceID))

	body, err := c.getJSON(ctx, "content", endpoint)
	if err != nil {
		return nil, err
	}

	seen := mapset.NewThreadUnsafeSet[string]()
	pages := make([]PageRef, 0)
	collectPages(body.Get("pages"), 0, seen, &pages)
	return pages, nil
}

func collectPages(list gjson.Result, depth int, seen mapset.Set[string], pages *[]PageRef) {
	list.ForEach(func(_, page gjson.Result) bool {
		id := page.Get("id").String()
		if id == "" {
			id = page.Get("uid").String()
		}
		if id != "" && seen.Add(id) {
			*pages = append(*pages, PageRef{
				ID:    id,
				Title: page.Get("title").String(),
				Path:  page.Get("path").String(),
				Depth: depth,
			})
		}
		collectPages(page.Get("pages"), depth+1, seen, pages)
		return true
	})
}

func (c *GitBookClient) getJSON(ctx context.Context, name, endpoint string) (gjson.Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return gjson.Result{}, errors.Wrap(err, "rate limiter")
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return gjson.Result{}, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.APIRequests.WithLabelValues(name, "error").Inc()
		return gjson.Result{}, errors.Wrapf(err, "GET %s", endpoint)
	}
	defer resp.Body.Close()

	metrics.APIRequests.WithLabelValues(name, strconv.Itoa(resp.StatusCode)).Inc()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(data, "error.message").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return gjson.Result{}, errors.Errorf("GET %s failed with status %d: %s", endpoint, resp.StatusCode, msg)
	}

	if !gjson.ValidBytes(data) {
		return gjson.Result{}, errors.Errorf("GET %s returned invalid JSON", endpoint)
	}

	c.logger.WithFields(logrus.Fields{
		"endpoint": endpoint,
		"bytes":    len(data),
	}).Debug("Fetched GitBook content")

	return gjson.ParseBytes(data), nil
}
