// Package fetcher retrieves archive documents and media over HTTP, writing
// through to the on-disk caches so interrupted sweeps never re-fetch.
package fetcher

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/moazrovne/harvest-cli/internal/cache"
)

// Origin reports where a resolved document came from.
type Origin int

const (
	OriginCache Origin = iota
	OriginNetwork
)

func (o Origin) String() string {
	if o == OriginCache {
		return "cache"
	}
	return "network"
}

// maxDocBytes bounds how much of a response body is read.
const maxDocBytes = 2 << 20

// Options configures the archive client.
type Options struct {
	QuestionURL string // base URL, question ID appended
	ArchiveURL  string // base URL, page number appended
	UserAgent   string
	Timeout     time.Duration
	Delay       time.Duration // courteous pause between live requests
}

// Client resolves documents by ID with a write-through cache. Live requests
// are paced by a rate limiter; cache hits never touch the limiter or the
// network.
type Client struct {
	client *http.Client
	opts   Options
	docs   *cache.Store
	pages  *cache.Store
	media  *cache.MediaStore
	pace   *rate.Limiter
}

// New creates a Client over the given caches.
func New(opts Options, docs, pages *cache.Store, media *cache.MediaStore) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.Delay == 0 {
		opts.Delay = time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "harvest-cli/1.0"
	}
	return &Client{
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
		docs:   docs,
		pages:  pages,
		media:  media,
		pace:   rate.NewLimiter(rate.Every(opts.Delay), 1),
	}
}

// Question resolves the document for a question ID: from the cache when
// present, otherwise fetched live and cached before returning. A network
// failure or non-200 status is an error; the ID stays uncached and
// unmerged, so a later run retries it.
func (c *Client) Question(ctx context.Context, id int) ([]byte, Origin, error) {
	return c.resolve(ctx, c.docs, c.opts.QuestionURL+strconv.Itoa(id), id)
}

// ArchivePage resolves an archive listing page by page number, same caching
// contract as Question.
func (c *Client) ArchivePage(ctx context.Context, page int) ([]byte, Origin, error) {
	return c.resolve(ctx, c.pages, c.opts.ArchiveURL+strconv.Itoa(page), page)
}

func (c *Client) resolve(ctx context.Context, store *cache.Store, url string, id int) ([]byte, Origin, error) {
	if store.Has(id) {
		doc, err := store.Read(id)
		if err != nil {
			return nil, OriginCache, err
		}
		return doc, OriginCache, nil
	}

	body, err := c.get(ctx, url)
	if err != nil {
		return nil, OriginNetwork, err
	}
	if err := store.Write(id, body); err != nil {
		return nil, OriginNetwork, err
	}
	return body, OriginNetwork, nil
}

// Media fetches the media blob for a question and stores it keyed by ID.
// Idempotent: an existing blob is never re-fetched. Failures here are the
// caller's to log and ignore, since they never invalidate the question itself.
func (c *Client) Media(ctx context.Context, id int, rawURL string) error {
	if rawURL == "" || c.media == nil {
		return nil
	}
	if c.media.Has(id) {
		return nil
	}

	body, err := c.get(ctx, rawURL)
	if err != nil {
		return err
	}
	if err := c.media.Write(id, rawURL, body); err != nil {
		return err
	}
	zap.L().Debug("media cached", zap.Int("question_id", id), zap.String("url", rawURL))
	return nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if err := c.pace.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "fetcher: pace wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: create request")
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: get %s", url)
	}
	defer resp.Body.Close() //nolint:errcheck

	// A missing question is signalled inside a well-formed page, not by the
	// HTTP status. Any non-200 here is a transport-level failure.
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("fetcher: unexpected status %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocBytes))
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: read body from %s", url)
	}
	return body, nil
}
