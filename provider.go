package hirezzie

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// ProviderRequest is the input of one provider call.
type ProviderRequest struct {
	Query   string
	Offset  int // result offset; providers translate it to their own paging
	Limit   int // results wanted per call
	Options ProviderOptions
}

// Provider is one external image-search backend. Implementations may return
// an error; the fan-out turns it into an empty contribution.
type Provider interface {
	Name() string
	Search(ctx context.Context, req ProviderRequest) ([]RawRecord, error)
}

// PaidProvider is implemented by providers whose calls cost money. They are
// only used when Config.AllowPaid is set, and only in the SupplementalFetch tier.
type PaidProvider interface {
	Provider
	Paid() bool
}

func isPaid(p Provider) bool {
	pp, ok := p.(PaidProvider)
	return ok && pp.Paid()
}

// RawRecord is a provider-specific search hit. Every provider defines its own
// record type and its own mapping to the canonical Candidate.
type RawRecord interface {
	Normalize() Candidate
}

// GenericRecord is a provider-neutral record for custom adapters.
type GenericRecord struct {
	ImageURL     string
	PageURL      string
	ThumbnailURL string
	Title        string
	AltText      string
	Description  string
	SourceName   string
	Width        int
	Height       int
	ByteSize     int64
}

func (r GenericRecord) Normalize() Candidate {
	return Candidate{
		ImageURL:     r.ImageURL,
		PageURL:      r.PageURL,
		ThumbnailURL: r.ThumbnailURL,
		Title:        r.Title,
		AltText:      r.AltText,
		Description:  r.Description,
		SourceName:   r.SourceName,
		Width:        r.Width,
		Height:       r.Height,
		ByteSize:     r.ByteSize,
	}
}

// Normalize maps one raw record to a Candidate. It never panics: a record
// whose mapping fails yields a Candidate with an empty ImageURL, which the
// quality filter rejects.
func Normalize(raw RawRecord, providerTag, originQuery string) (c Candidate) {
	defer func() {
		if r := recover(); r != nil {
			c = Candidate{ProviderTag: providerTag, OriginQuery: originQuery}
		}
	}()
	if raw == nil {
		return Candidate{ProviderTag: providerTag, OriginQuery: originQuery}
	}

	c = raw.Normalize()
	c.ProviderTag = providerTag
	c.OriginQuery = originQuery
	c.ImageURL = cleanURL(c.ImageURL)
	c.PageURL = cleanURL(c.PageURL)
	c.ThumbnailURL = cleanURL(c.ThumbnailURL)
	c.Title = strings.Join(strings.Fields(c.Title), " ")
	c.AltText = strings.Join(strings.Fields(c.AltText), " ")
	c.Description = strings.Join(strings.Fields(c.Description), " ")
	if c.Width < 0 || c.Height < 0 || c.Width == 0 || c.Height == 0 {
		c.Width, c.Height = 0, 0
	}
	if c.ByteSize < 0 {
		c.ByteSize = 0
	}
	if c.SourceDomain == "" {
		c.SourceDomain = extractHost(c.PageURL)
		if c.SourceDomain == "" {
			c.SourceDomain = extractHost(c.ImageURL)
		}
	}
	if c.SourceName == "" {
		c.SourceName = c.SourceDomain
	}
	c.QualityScore = 0
	c.Signature = ""
	return c
}

// cleanURL trims whitespace, upgrades protocol-relative URLs and drops
// anything that is not an absolute http(s) URL.
func cleanURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

// parseResolution reads "1920x1080" / "1920 × 1080" strings.
func parseResolution(s string) (w, h int) {
	s = strings.NewReplacer("×", "x", " ", "", "X", "x").Replace(s)
	if _, err := fmt.Sscanf(s, "%dx%d", &w, &h); err != nil {
		return 0, 0
	}
	return w, h
}
