package hirezzie

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Defaults applied by Config.defaults for zero-valued fields.
const (
	DefaultTargetFloor       = 25
	DefaultPageSize          = 20
	DefaultMinDimension      = 1200
	DefaultMinBytes          = 150 * 1024
	DefaultPagesPerProvider  = 3
	DefaultRelaxedPages      = 2
	DefaultSupplementalPages = 3
	DefaultProviderPageSize  = 50
	DefaultMaxConcurrentCall = 8
	DefaultEnrichConcurrency = 8
	DefaultAdapterTimeout    = 8 * time.Second
	DefaultEnrichTimeout     = 6 * time.Second
	DefaultUserAgent         = "Mozilla/5.0 (compatible; hirezzie/1.0)"
	DefaultVisionMaxBytes    = 4 << 20

	// maxPagesPerProvider bounds the paginated calls issued to one provider in a single tier.
	maxPagesPerProvider = 5
)

// Cache abstracts key-value caching (LRU, Redis, sync.Map, etc.)
type Cache interface {
	Key(prefix, value string) string
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any)
}

// Thresholds are the size limits applied by the quality filter.
// A zero field disables that check.
type Thresholds struct {
	MinBytes     int64 // reject when ByteSize is known and smaller
	MinDimension int   // reject when both sides are known and smaller
}

// Config holds every knob of the curation pipeline. It is passed once to New;
// no stage reads configuration from anywhere else.
type Config struct {
	// Providers are the search backends, in priority order. Earlier providers
	// win dedup ties against later ones.
	Providers []Provider

	// Disabled turns providers off by name without removing them.
	Disabled map[string]bool

	// AllowPaid enables providers that report Paid() == true. Paid providers
	// are only called in the SupplementalFetch tier.
	AllowPaid bool

	PagesPerProvider  int           // paginated calls per provider in the strict tier (default 3, max 5)
	RelaxedPages      int           // additional pages fetched by RelaxedExpansion (default 2)
	SupplementalPages int           // pages requested from paid providers (default 3)
	ProviderPageSize  int           // offset stride between paginated calls (default 50)
	MaxConcurrentCall int           // adapter calls in flight (default 8)
	CallDelay         time.Duration // pause before each adapter call after the first per provider
	AdapterTimeout    time.Duration // per adapter call (default 8s)
	EnrichTimeout     time.Duration // per enrichment fetch (default 6s)
	EnrichConcurrency int           // enrichment fetches in flight (default 8)

	Thresholds  Thresholds
	TargetFloor int  // minimum curated results before recovery kicks in (default 25)
	MaxTier     Tier // last recovery tier allowed to run (default TierSupplementalFetch)

	// BlockedDomains replaces DefaultBlockedDomains when non-nil.
	BlockedDomains []string
	// ExtraBlockedDomains are appended to the effective block list.
	ExtraBlockedDomains []string

	// LanguageFilter drops candidates whose text is not English.
	LanguageFilter bool
	// LanguageDetector overrides the script-range heuristic (see NewLinguaDetector).
	LanguageDetector LanguageDetector

	// QueryRewrites maps a lowercased query to the text sent to providers,
	// used to steer known name collisions.
	QueryRewrites map[string]string

	Analyzer QueryAnalyzer // default: HeuristicAnalyzer

	HTTPClient    *http.Client // default http.DefaultClient
	StealthClient *http.Client // optional: tried first for page and image fetches
	UserAgent     string

	// Classifier runs a vision check on every resolved image during
	// enrichment (nil = skipped).
	Classifier Classifier
	// VisionMaxBytes is the largest image sent to Classifier (default 4MB).
	// The thumbnail is preferred; larger files are not classified.
	VisionMaxBytes int64

	// Cache wraps fresh searches (nil = no caching). See NewLRUCache.
	Cache Cache

	// PerceptualDedup hashes thumbnails during enrichment and collapses
	// visually identical images that signatures cannot catch.
	PerceptualDedup bool

	// Optional callbacks for metrics/logging.
	OnSearch        func(query string)
	OnPanic         func(tag string, r any)
	OnAdapterResult func(AdapterResult)
	OnReject        func(Rejection)
}

// defaults fills zero-value fields with sensible defaults.
func (c *Config) defaults() {
	if c.TargetFloor <= 0 {
		c.TargetFloor = DefaultTargetFloor
	}
	if c.Thresholds == (Thresholds{}) {
		c.Thresholds = Thresholds{MinBytes: DefaultMinBytes, MinDimension: DefaultMinDimension}
	}
	if c.PagesPerProvider <= 0 {
		c.PagesPerProvider = DefaultPagesPerProvider
	}
	if c.PagesPerProvider > maxPagesPerProvider {
		c.PagesPerProvider = maxPagesPerProvider
	}
	if c.RelaxedPages <= 0 {
		c.RelaxedPages = DefaultRelaxedPages
	}
	if c.RelaxedPages > maxPagesPerProvider {
		c.RelaxedPages = maxPagesPerProvider
	}
	if c.SupplementalPages <= 0 {
		c.SupplementalPages = DefaultSupplementalPages
	}
	if c.SupplementalPages > maxPagesPerProvider {
		c.SupplementalPages = maxPagesPerProvider
	}
	if c.ProviderPageSize <= 0 {
		c.ProviderPageSize = DefaultProviderPageSize
	}
	if c.MaxConcurrentCall <= 0 {
		c.MaxConcurrentCall = DefaultMaxConcurrentCall
	}
	if c.EnrichConcurrency <= 0 {
		c.EnrichConcurrency = DefaultEnrichConcurrency
	}
	if c.AdapterTimeout <= 0 {
		c.AdapterTimeout = DefaultAdapterTimeout
	}
	if c.EnrichTimeout <= 0 {
		c.EnrichTimeout = DefaultEnrichTimeout
	}
	if c.MaxTier == 0 || c.MaxTier > TierSupplementalFetch {
		c.MaxTier = TierSupplementalFetch
	}
	if c.BlockedDomains == nil {
		c.BlockedDomains = DefaultBlockedDomains
	}
	if c.Analyzer == nil {
		c.Analyzer = HeuristicAnalyzer{}
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	if c.VisionMaxBytes <= 0 {
		c.VisionMaxBytes = DefaultVisionMaxBytes
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
}

// blockList returns the effective domain block list.
func (c *Config) blockList() []string {
	if len(c.ExtraBlockedDomains) == 0 {
		return c.BlockedDomains
	}
	out := make([]string, 0, len(c.BlockedDomains)+len(c.ExtraBlockedDomains))
	out = append(out, c.BlockedDomains...)
	for _, d := range c.ExtraBlockedDomains {
		out = append(out, normalizeHost(d))
	}
	return out
}

func (c *Config) recoverPanic(tag string) {
	if r := recover(); r != nil {
		slog.Error("hirezzie: recovered panic", "stage", tag, "panic", r)
		if c.OnPanic != nil {
			c.OnPanic(tag, r)
		}
	}
}
