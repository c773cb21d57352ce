package hirezzie

import (
	"context"
	"encoding/base64"
	"log/slog"
	"strings"
)

// VisionPrompt is the default system prompt for LLM-based image classification.
const VisionPrompt = `You are a filter for a high-resolution photo finder.
We only accept real photographs without stock watermarks.

Classify this image. Answer with exactly one word:
- PHOTO: a real photograph. Small photographer watermark in a corner is OK.
- STOCK: a real photograph with a visible stock photo watermark (Shutterstock,
  Getty Images, iStock, Adobe Stock, Depositphotos, Dreamstime, 123RF, Alamy,
  or any semi-transparent tiled/diagonal watermark pattern typical of stock previews).
- REJECT: banner, advertisement, social media cover, promotional graphic with
  large text overlay, infographic, chart, screenshot, collage, illustration,
  drawing, meme, map, UI element, or image where text/graphics dominate.

Answer:`

// Vision verdicts.
const (
	VerdictPhoto  = "PHOTO"
	VerdictStock  = "STOCK"
	VerdictReject = "REJECT"
)

// ImageInput is one image handed to a Classifier, usually as a data: URL.
type ImageInput struct {
	URL string
}

// Classifier is a multimodal LLM client. It is optional: without one,
// enrichment skips the vision check.
type Classifier interface {
	Classify(ctx context.Context, prompt string, images []ImageInput) (string, error)
}

// ClassifyImage asks cfg.Classifier about the image at imageURL and returns
// one of the Verdict constants, or "" when there is no classifier or any step
// fails. Verdicts are cached under the image URL when cfg.Cache is set.
func (cfg *Config) ClassifyImage(ctx context.Context, imageURL string) string {
	return cfg.classify(ctx, imageURL, "")
}

// classifyCandidate classifies c, sending its thumbnail when it has one.
func (cfg *Config) classifyCandidate(ctx context.Context, c Candidate) string {
	return cfg.classify(ctx, c.ImageURL, c.ThumbnailURL)
}

func (cfg *Config) classify(ctx context.Context, imageURL, thumbURL string) string {
	if cfg.Classifier == nil || imageURL == "" {
		return ""
	}
	if cfg.Cache == nil {
		return cfg.doClassify(ctx, imageURL, thumbURL)
	}

	key := cfg.Cache.Key("vision", imageURL)
	var cached string
	if cfg.Cache.Get(ctx, key, &cached) {
		return cached
	}
	verdict := cfg.doClassify(ctx, imageURL, thumbURL)
	if verdict != "" {
		cfg.Cache.Set(ctx, key, verdict)
	}
	return verdict
}

func (cfg *Config) doClassify(ctx context.Context, imageURL, thumbURL string) string {
	var img *fetchResult
	for _, src := range []string{thumbURL, imageURL} {
		if src == "" {
			continue
		}
		if img = cfg.fetchForVision(ctx, src); img != nil {
			break
		}
	}
	if img == nil {
		return ""
	}

	resp, err := cfg.Classifier.Classify(ctx, VisionPrompt, []ImageInput{{URL: encodeDataURL(img.Data, img.ContentType)}})
	if err != nil {
		slog.Debug("hirezzie: vision classifier error", "url", imageURL, "error", err.Error())
		return ""
	}

	slog.Debug("hirezzie: vision result", "url", imageURL, "response", resp)
	return ParseVisionResponse(resp)
}

// fetchForVision downloads a whole image no larger than cfg.VisionMaxBytes.
// A cut-off file is useless to the model, so oversized images return nil.
func (cfg *Config) fetchForVision(ctx context.Context, src string) *fetchResult {
	r, err := cfg.fetch(ctx, src, fetchOpts{MaxBytes: cfg.VisionMaxBytes + 1, Timeout: cfg.EnrichTimeout})
	if err != nil || !strings.HasPrefix(r.ContentType, "image/") {
		return nil
	}
	if int64(len(r.Data)) > cfg.VisionMaxBytes {
		slog.Debug("hirezzie: image too large for vision check", "url", src, "limit", cfg.VisionMaxBytes)
		return nil
	}
	return r
}

// applyVerdict marks c according to a vision verdict.
func applyVerdict(c *Candidate, verdict string) {
	switch verdict {
	case VerdictStock:
		c.Stock = true
	case VerdictReject:
		c.Graphic = true
	}
}

// ParseVisionResponse normalizes an LLM response to a Verdict constant or "".
func ParseVisionResponse(resp string) string {
	word := strings.ToUpper(strings.TrimSpace(resp))
	switch {
	case strings.HasPrefix(word, VerdictPhoto):
		return VerdictPhoto
	case strings.HasPrefix(word, VerdictStock):
		return VerdictStock
	case strings.HasPrefix(word, VerdictReject):
		return VerdictReject
	default:
		return ""
	}
}

func encodeDataURL(data []byte, mime string) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
