package fetch

import (
	"context"
	"log"
	"sync"
	"time"
)

// DefaultCacheTTL controls how long a fetched corpus is reused before the
// site is fetched again.
const DefaultCacheTTL = 24 * time.Hour

// MaxCorpusLength caps the text handed to the analyzer so a long site does
// not blow up the prompt.
const MaxCorpusLength = 20000

// SiteFetcher turns a brand website into a plain-text corpus. Pages that
// render client-side fall back to a headless browser. Results are cached
// in memory with a TTL so repeated analyzer runs do not re-fetch the site.
type SiteFetcher struct {
	options        *Options
	cacheTTL       time.Duration
	browserEnabled bool

	mu    sync.Mutex
	cache map[string]cachedCorpus
}

type cachedCorpus struct {
	text      string
	fetchedAt time.Time
}

// SiteFetcherConfig holds configuration for the site fetcher.
type SiteFetcherConfig struct {
	Options        *Options
	CacheTTL       time.Duration
	BrowserEnabled bool
}

// NewSiteFetcher creates a site fetcher.
func NewSiteFetcher(config *SiteFetcherConfig) *SiteFetcher {
	if config == nil {
		config = &SiteFetcherConfig{BrowserEnabled: true}
	}
	opts := config.Options
	if opts == nil {
		opts = DefaultOptions()
	}
	ttl := config.CacheTTL
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}
	return &SiteFetcher{
		options:        opts,
		cacheTTL:       ttl,
		browserEnabled: config.BrowserEnabled,
		cache:          make(map[string]cachedCorpus),
	}
}

// Corpus fetches the site and returns its main text.
func (f *SiteFetcher) Corpus(ctx context.Context, urlStr string) (string, error) {
	f.mu.Lock()
	if entry, ok := f.cache[urlStr]; ok && time.Since(entry.fetchedAt) < f.cacheTTL {
		f.mu.Unlock()
		return entry.text, nil
	}
	f.mu.Unlock()

	result, err := URL(ctx, urlStr, f.options)
	if err != nil {
		return "", err
	}

	text, err := ExtractMainText(result.HTML, BrandPageSelectors())
	if err != nil {
		return "", err
	}

	if ShouldUseBrowser(text) && f.browserEnabled {
		log.Printf("[FETCH] Thin content from %s (%d chars), retrying with browser", urlStr, len(text))
		html, berr := WithBrowser(ctx, urlStr, f.options.Timeout, false)
		if berr != nil {
			// Keep whatever the plain fetch produced.
			log.Printf("[FETCH] Browser fallback failed for %s: %v", urlStr, berr)
		} else if rendered, rerr := ExtractMainText(html, BrandPageSelectors()); rerr == nil && len(rendered) > len(text) {
			text = rendered
		}
	}

	if len(text) > MaxCorpusLength {
		text = text[:MaxCorpusLength]
	}

	f.mu.Lock()
	f.cache[urlStr] = cachedCorpus{text: text, fetchedAt: time.Now()}
	f.mu.Unlock()

	return text, nil
}

// Invalidate drops the cached corpus for a URL, forcing a fresh fetch.
func (f *SiteFetcher) Invalidate(urlStr string) {
	f.mu.Lock()
	delete(f.cache, urlStr)
	f.mu.Unlock()
}
