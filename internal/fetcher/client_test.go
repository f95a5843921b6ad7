package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moazrovne/harvest-cli/internal/cache"
)

type testEnv struct {
	client *Client
	docs   *cache.Store
	media  *cache.MediaStore
	hits   *atomic.Int64
}

func newTestEnv(t *testing.T, handler http.Handler) *testEnv {
	t.Helper()

	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	docs, err := cache.NewStore(filepath.Join(dir, "html"), "q")
	require.NoError(t, err)
	pages, err := cache.NewStore(filepath.Join(dir, "html"), "page")
	require.NoError(t, err)
	media, err := cache.NewMediaStore(filepath.Join(dir, "images"))
	require.NoError(t, err)

	client := New(Options{
		QuestionURL: srv.URL + "/q/",
		ArchiveURL:  srv.URL + "/chgk/",
		UserAgent:   "test-agent",
		Timeout:     5 * time.Second,
		Delay:       time.Millisecond,
	}, docs, pages, media)

	return &testEnv{client: client, docs: docs, media: media, hits: &hits}
}

func TestQuestionWriteThrough(t *testing.T) {
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.Equal(t, "/q/5", r.URL.Path)
		w.Write([]byte("<html>five</html>"))
	}))

	doc, origin, err := env.client.Question(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, OriginNetwork, origin)
	assert.Equal(t, "<html>five</html>", string(doc))

	// Cached before the document was returned.
	cached, err := env.docs.Read(5)
	require.NoError(t, err)
	assert.Equal(t, doc, cached)
}

func TestQuestionCacheBypassesNetwork(t *testing.T) {
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>live</html>"))
	}))

	_, origin, err := env.client.Question(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, OriginNetwork, origin)
	assert.Equal(t, int64(1), env.hits.Load())

	doc, origin, err := env.client.Question(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, OriginCache, origin)
	assert.Equal(t, "<html>live</html>", string(doc))
	assert.Equal(t, int64(1), env.hits.Load(), "cache hit must not issue a request")
}

func TestQuestionServerErrorNotCached(t *testing.T) {
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, _, err := env.client.Question(context.Background(), 3)
	require.Error(t, err)
	assert.False(t, env.docs.Has(3), "failed fetch must stay retryable")
}

func TestQuestionConnectionErrorNotCached(t *testing.T) {
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	env.client.opts.QuestionURL = "http://127.0.0.1:1/q/"

	_, _, err := env.client.Question(context.Background(), 4)
	require.Error(t, err)
	assert.False(t, env.docs.Has(4))
}

func TestArchivePageCachedSeparately(t *testing.T) {
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chgk/2", r.URL.Path)
		w.Write([]byte("<html>page two</html>"))
	}))

	doc, origin, err := env.client.ArchivePage(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, OriginNetwork, origin)
	assert.Equal(t, "<html>page two</html>", string(doc))
	// A question with the same numeric ID is unaffected.
	assert.False(t, env.docs.Has(2))
}

func TestMediaIdempotent(t *testing.T) {
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte{0xFF, 0xD8, 0xFF})
	}))

	url := env.client.opts.QuestionURL + "../i/77.jpg"
	require.NoError(t, env.client.Media(context.Background(), 77, url))
	assert.True(t, env.media.Has(77))
	assert.Equal(t, int64(1), env.hits.Load())

	require.NoError(t, env.client.Media(context.Background(), 77, url))
	assert.Equal(t, int64(1), env.hits.Load(), "existing media must not be re-fetched")
}

func TestMediaEmptyURLIsNoop(t *testing.T) {
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	require.NoError(t, env.client.Media(context.Background(), 8, ""))
	assert.False(t, env.media.Has(8))
	assert.Equal(t, int64(0), env.hits.Load())
}

func TestMediaFailureLeavesNoEntry(t *testing.T) {
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))

	err := env.client.Media(context.Background(), 6, env.client.opts.QuestionURL+"6.jpg")
	require.Error(t, err)
	assert.False(t, env.media.Has(6))
}

func TestPaceAppliesOnlyToLiveRequests(t *testing.T) {
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	env.client.pace.SetLimit(2) // 500ms between live requests

	_, _, err := env.client.Question(context.Background(), 1)
	require.NoError(t, err)

	// Cache hits do not consult the limiter.
	start := time.Now()
	for i := 0; i < 10; i++ {
		_, origin, err := env.client.Question(context.Background(), 1)
		require.NoError(t, err)
		require.Equal(t, OriginCache, origin)
	}
	assert.Less(t, time.Since(start), 200*time.Millisecond)
}

func TestQuestionCancelledContext(t *testing.T) {
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := env.client.Question(ctx, 2)
	require.Error(t, err)
	_, statErr := os.Stat(env.docs.Path(2))
	assert.True(t, os.IsNotExist(statErr))
}
