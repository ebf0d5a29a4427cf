package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><title>Lumen Coffee</title><style>body { color: red; }</style></head>
<body>
  <nav>Home About Shop</nav>
  <main>
    <h1>Roasted after dark</h1>
    <p>Specialty coffee for night owls.</p>
  </main>
  <footer>© Lumen Coffee</footer>
  <script>analytics();</script>
</body>
</html>`

func TestExtractMainText(t *testing.T) {
	text, err := ExtractMainText(samplePage, BrandPageSelectors())
	require.NoError(t, err)

	assert.Contains(t, text, "Roasted after dark")
	assert.Contains(t, text, "Specialty coffee for night owls.")
	// Navigation, footer, scripts and styles are stripped.
	assert.NotContains(t, text, "Home About Shop")
	assert.NotContains(t, text, "© Lumen Coffee")
	assert.NotContains(t, text, "analytics")
	assert.NotContains(t, text, "color: red")
}

func TestExtractMainTextBodyFallback(t *testing.T) {
	html := `<html><body><div><p>Just a paragraph.</p></div></body></html>`
	text, err := ExtractMainText(html, BrandPageSelectors())
	require.NoError(t, err)
	assert.Equal(t, "Just a paragraph.", text)
}

func TestCleanWhitespace(t *testing.T) {
	in := "  first line  \n\n\n   second line\n   \n"
	assert.Equal(t, "first line\nsecond line", cleanWhitespace(in))
}

func TestShouldUseBrowser(t *testing.T) {
	assert.True(t, ShouldUseBrowser(""))
	assert.True(t, ShouldUseBrowser("short page"))
	assert.False(t, ShouldUseBrowser(strings.Repeat("content ", 100)))
}

func TestURLErrors(t *testing.T) {
	t.Run("invalid url", func(t *testing.T) {
		_, err := URL(context.Background(), "not a url", nil)
		require.Error(t, err)
		var fetchErr *Error
		require.ErrorAs(t, err, &fetchErr)
		assert.Contains(t, fetchErr.Message, "invalid URL")
	})

	t.Run("non-200 status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		result, err := URL(context.Background(), srv.URL, nil)
		require.Error(t, err)
		require.NotNil(t, result)
		assert.Equal(t, http.StatusNotFound, result.StatusCode)
	})
}

func TestSiteFetcherCorpus(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	f := NewSiteFetcher(&SiteFetcherConfig{BrowserEnabled: false})

	text, err := f.Corpus(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, text, "Roasted after dark")

	// Second call within the TTL is served from cache.
	_, err = f.Corpus(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 1, hits)

	f.Invalidate(srv.URL)
	_, err = f.Corpus(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 2, hits)
}

func TestSiteFetcherExpiredCache(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	f := NewSiteFetcher(&SiteFetcherConfig{BrowserEnabled: false, CacheTTL: time.Nanosecond})

	_, err := f.Corpus(context.Background(), srv.URL)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = f.Corpus(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 2, hits)
}

func TestSiteFetcherCapsCorpus(t *testing.T) {
	big := "<html><body><main>" + strings.Repeat("brand voice copy ", 3000) + "</main></body></html>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(big))
	}))
	defer srv.Close()

	f := NewSiteFetcher(&SiteFetcherConfig{BrowserEnabled: false})
	text, err := f.Corpus(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(text), MaxCorpusLength)
}
