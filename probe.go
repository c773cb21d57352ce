package hirezzie

import (
	"bytes"
	"context"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"strings"

	_ "golang.org/x/image/webp"
)

// probeMaxBytes is enough for the image header and the EXIF/IPTC/XMP blocks.
const probeMaxBytes = 256 * 1024

// ProbeResult is what a partial download reveals about an image URL.
type ProbeResult struct {
	ContentType string
	ByteSize    int64 // from Content-Length; 0 when unknown
	Width       int
	Height      int
	Metadata    *ImageMetadata
}

var errNotImage = errors.New("not an image response")

// ProbeImage fetches the first bytes of rawURL and reports its content type,
// size, dimensions and metadata. Dimensions stay zero when the header cannot
// be decoded (avif, truncated files).
func (cfg *Config) ProbeImage(ctx context.Context, rawURL string) (*ProbeResult, error) {
	r, err := cfg.fetch(ctx, rawURL, fetchOpts{
		MaxBytes: probeMaxBytes,
		Timeout:  cfg.EnrichTimeout,
		Accept:   "image/avif,image/webp,image/png,image/jpeg,*/*;q=0.5",
	})
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(r.ContentType, "image/") {
		return nil, errNotImage
	}

	res := &ProbeResult{ContentType: r.ContentType}
	if r.ContentLength > 0 {
		res.ByteSize = r.ContentLength
	} else if int64(len(r.Data)) < probeMaxBytes {
		res.ByteSize = int64(len(r.Data))
	}

	if imgCfg, _, err := image.DecodeConfig(bytes.NewReader(r.Data)); err == nil {
		res.Width, res.Height = imgCfg.Width, imgCfg.Height
	} else {
		slog.Debug("hirezzie: probe could not decode header", "url", rawURL, "error", err.Error())
	}
	res.Metadata = ExtractImageMetadata(r.Data)
	return res, nil
}

// apply copies probe findings into c without overwriting provider-reported values.
func (p *ProbeResult) apply(c *Candidate) {
	c.ContentType = p.ContentType
	if c.ByteSize == 0 {
		c.ByteSize = p.ByteSize
	}
	if c.Width == 0 || c.Height == 0 {
		c.Width, c.Height = p.Width, p.Height
	}
	if StockAgency(p.Metadata) != "" {
		c.Stock = true
	}
}
