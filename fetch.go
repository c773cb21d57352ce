package hirezzie

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// fetchOpts configures one HTTP GET made by the enrichment stage.
type fetchOpts struct {
	MaxBytes int64         // max response body bytes read
	Timeout  time.Duration // per-request timeout
	Accept   string        // Accept header
}

// fetchResult holds a (possibly truncated) response body.
type fetchResult struct {
	Data          []byte
	ContentType   string // without parameters
	ContentLength int64  // -1 when unknown
	FinalURL      string
}

var errHTTPStatus = errors.New("unexpected HTTP status")

// fetch GETs rawURL. Tries cfg.StealthClient first (if set), falls back to
// cfg.HTTPClient.
func (cfg *Config) fetch(ctx context.Context, rawURL string, opts fetchOpts) (*fetchResult, error) {
	if cfg.StealthClient != nil {
		if r, err := fetchWith(ctx, cfg.StealthClient, rawURL, cfg.UserAgent, opts); err == nil {
			return r, nil
		}
	}
	return fetchWith(ctx, cfg.HTTPClient, rawURL, cfg.UserAgent, opts)
}

func fetchWith(ctx context.Context, client *http.Client, rawURL, ua string, opts fetchOpts) (*fetchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", ua)
	if opts.Accept != "" {
		req.Header.Set("Accept", opts.Accept)
	}

	resp, err := client.Do(req) //nolint:gosec // URL comes from provider results by design
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", errHTTPStatus, resp.StatusCode)
	}

	ct := resp.Header.Get("Content-Type")
	// Strip MIME parameters: "image/jpeg; charset=utf-8" -> "image/jpeg"
	if idx := strings.IndexByte(ct, ';'); idx >= 0 {
		ct = ct[:idx]
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, opts.MaxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &fetchResult{
		Data:          data,
		ContentType:   strings.ToLower(strings.TrimSpace(ct)),
		ContentLength: resp.ContentLength,
		FinalURL:      resp.Request.URL.String(),
	}, nil
}
