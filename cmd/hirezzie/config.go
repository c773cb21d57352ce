package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/TheGaf/hirezzie"
	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML shape of --config. Every field is optional; zero
// values fall through to the library defaults.
type fileConfig struct {
	SearXNG struct {
		URL     string   `yaml:"url"`
		Engines []string `yaml:"engines"`
	} `yaml:"searxng"`
	Openverse struct {
		Enabled bool   `yaml:"enabled"`
		URL     string `yaml:"url"`
		Token   string `yaml:"token"`
	} `yaml:"openverse"`
	Bing struct {
		Enabled bool   `yaml:"enabled"`
		URL     string `yaml:"url"`
	} `yaml:"bing"`
	Brave struct {
		URL    string `yaml:"url"`
		APIKey string `yaml:"api_key"`
	} `yaml:"brave"`

	AllowPaid        bool     `yaml:"allow_paid"`
	Disabled         []string `yaml:"disabled"`
	PagesPerProvider int      `yaml:"pages_per_provider"`
	RelaxedPages     int      `yaml:"relaxed_pages"`
	PageSize         int      `yaml:"provider_page_size"`
	MaxConcurrent    int      `yaml:"max_concurrent_calls"`
	CallDelay        duration `yaml:"call_delay"`
	AdapterTimeout   duration `yaml:"adapter_timeout"`
	EnrichTimeout    duration `yaml:"enrich_timeout"`

	MinBytes     int64  `yaml:"min_bytes"`
	MinDimension int    `yaml:"min_dimension"`
	TargetFloor  int    `yaml:"target_floor"`
	MaxTier      string `yaml:"max_tier"`

	BlockedDomains  []string          `yaml:"blocked_domains"`
	Rewrites        map[string]string `yaml:"rewrites"`
	LanguageFilter  bool              `yaml:"language_filter"`
	Lingua          bool              `yaml:"lingua"`
	PerceptualDedup bool              `yaml:"perceptual_dedup"`
	UserAgent       string            `yaml:"user_agent"`

	Cache struct {
		Size int      `yaml:"size"`
		TTL  duration `yaml:"ttl"`
	} `yaml:"cache"`
}

// duration accepts "1500ms"-style strings in YAML.
type duration time.Duration

func (d *duration) UnmarshalYAML(node *yaml.Node) error {
	v, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("duration %q: %w", node.Value, err)
	}
	*d = duration(v)
	return nil
}

// loadFileConfig reads path. An empty path yields a zero config.
func loadFileConfig(path string) (fileConfig, error) {
	var fc fileConfig
	if path == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse config %s: %w", path, err)
	}
	return fc, nil
}

// parseTier maps a tier name onto hirezzie.Tier. Empty means the default.
func parseTier(s string) (hirezzie.Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return 0, nil
	case "strict":
		return hirezzie.TierStrict, nil
	case "relaxed", "relaxed_expansion":
		return hirezzie.TierRelaxedExpansion, nil
	case "supplemental", "supplemental_fetch":
		return hirezzie.TierSupplementalFetch, nil
	default:
		return 0, fmt.Errorf("unknown tier %q", s)
	}
}

// buildConfig turns the file config into a pipeline Config with the
// configured provider adapters in priority order: SearXNG, Openverse, Bing,
// then the paid Brave API.
func buildConfig(fc fileConfig, client *http.Client) (hirezzie.Config, error) {
	tier, err := parseTier(fc.MaxTier)
	if err != nil {
		return hirezzie.Config{}, err
	}

	cfg := hirezzie.Config{
		AllowPaid:           fc.AllowPaid,
		PagesPerProvider:    fc.PagesPerProvider,
		RelaxedPages:        fc.RelaxedPages,
		ProviderPageSize:    fc.PageSize,
		MaxConcurrentCall:   fc.MaxConcurrent,
		CallDelay:           time.Duration(fc.CallDelay),
		AdapterTimeout:      time.Duration(fc.AdapterTimeout),
		EnrichTimeout:       time.Duration(fc.EnrichTimeout),
		Thresholds:          hirezzie.Thresholds{MinBytes: fc.MinBytes, MinDimension: fc.MinDimension},
		TargetFloor:         fc.TargetFloor,
		MaxTier:             tier,
		ExtraBlockedDomains: fc.BlockedDomains,
		LanguageFilter:      fc.LanguageFilter,
		QueryRewrites:       lowerKeys(fc.Rewrites),
		HTTPClient:          client,
		UserAgent:           fc.UserAgent,
		PerceptualDedup:     fc.PerceptualDedup,
	}
	if fc.LanguageFilter && fc.Lingua {
		cfg.LanguageDetector = hirezzie.NewLinguaDetector()
	}
	if len(fc.Disabled) > 0 {
		cfg.Disabled = make(map[string]bool, len(fc.Disabled))
		for _, name := range fc.Disabled {
			cfg.Disabled[strings.ToLower(name)] = true
		}
	}
	if fc.Cache.Size > 0 {
		cfg.Cache = hirezzie.NewLRUCache(fc.Cache.Size, time.Duration(fc.Cache.TTL))
	}

	if fc.SearXNG.URL != "" {
		cfg.Providers = append(cfg.Providers, &hirezzie.SearXNGProvider{
			URL: fc.SearXNG.URL, Engines: fc.SearXNG.Engines, HTTPClient: client, UserAgent: fc.UserAgent,
		})
	}
	if fc.Openverse.Enabled || fc.Openverse.Token != "" {
		cfg.Providers = append(cfg.Providers, &hirezzie.OpenverseProvider{
			URL: fc.Openverse.URL, Token: fc.Openverse.Token, HTTPClient: client, UserAgent: fc.UserAgent,
		})
	}
	if fc.Bing.Enabled {
		cfg.Providers = append(cfg.Providers, &hirezzie.BingProvider{
			URL: fc.Bing.URL, HTTPClient: client, UserAgent: fc.UserAgent,
		})
	}
	if fc.Brave.APIKey != "" {
		cfg.Providers = append(cfg.Providers, &hirezzie.BraveProvider{
			URL: fc.Brave.URL, APIKey: fc.Brave.APIKey, HTTPClient: client,
		})
	}
	return cfg, nil
}

func lowerKeys(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}
