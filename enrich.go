package hirezzie

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/sync/errgroup"
)

const (
	pageMaxBytes      = 2 << 20 // 2MB of HTML is plenty for <head> and the first images
	maxEmbeddedImages = 60
)

// embeddedImage is one image reference found on a hosting page.
type embeddedImage struct {
	URL string
	Alt string
}

// pageInfo is what enrichment extracts from a hosting page.
type pageInfo struct {
	Title       string
	Description string
	Images      []embeddedImage
	BestGuess   string // lead image picked by readability
}

// enrichAll enriches every candidate with at most cfg.EnrichConcurrency
// fetches in flight. Extra work queues behind the limit. On cancellation the
// partial output is discarded and ctx.Err() returned.
func (cfg *Config) enrichAll(ctx context.Context, cands []Candidate, q QueryEntities) ([]Candidate, error) {
	out := make([]Candidate, len(cands))
	var g errgroup.Group
	g.SetLimit(cfg.EnrichConcurrency)
	for i := range cands {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			out[i] = cfg.Enrich(ctx, cands[i], q)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Enrich resolves a direct image URL and descriptive text for c. Candidates
// whose ImageURL already points at an image file skip the page fetch. A
// failed step leaves the candidate as the previous step left it.
func (cfg *Config) Enrich(ctx context.Context, c Candidate, q QueryEntities) (res Candidate) {
	res = c
	defer cfg.recoverPanic("enrich")

	if !IsDirectImageURL(c.ImageURL) {
		res = cfg.resolveFromPage(ctx, res, q)
		replaced := res.ImageURL != c.ImageURL
		if res.ImageURL != "" && res.ContentType == "" && (replaced || !IsDirectImageURL(res.ImageURL)) {
			if p, err := cfg.ProbeImage(ctx, res.ImageURL); err == nil {
				p.apply(&res)
			} else {
				slog.Debug("hirezzie: probe failed", "url", res.ImageURL, "error", err.Error())
			}
		}
	}

	if cfg.Classifier != nil && res.ImageURL != "" {
		applyVerdict(&res, cfg.classifyCandidate(ctx, res))
	}

	if cfg.PerceptualDedup && res.ThumbnailURL != "" {
		if h, ok := cfg.hashThumbnail(ctx, res.ThumbnailURL); ok {
			res.thumbHash, res.hasThumbHash = h, true
		}
	}
	return res
}

// resolveFromPage fetches PageURL and picks the best embedded image.
func (cfg *Config) resolveFromPage(ctx context.Context, c Candidate, q QueryEntities) Candidate {
	if c.PageURL == "" {
		return c
	}
	r, err := cfg.fetch(ctx, c.PageURL, fetchOpts{
		MaxBytes: pageMaxBytes,
		Timeout:  cfg.EnrichTimeout,
		Accept:   "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5",
	})
	if err != nil {
		slog.Debug("hirezzie: enrichment fetch failed", "url", c.PageURL, "error", err.Error())
		return c
	}

	// The "page" is itself an image.
	if strings.HasPrefix(r.ContentType, "image/") {
		if c.ImageURL == "" {
			c.ImageURL = cleanURL(r.FinalURL)
		}
		if c.ImageURL == cleanURL(r.FinalURL) {
			c.ContentType = r.ContentType
			if c.ByteSize == 0 && r.ContentLength > 0 {
				c.ByteSize = r.ContentLength
			}
		}
		return c
	}

	info, err := parsePage(r.Data, r.FinalURL)
	if err != nil {
		slog.Debug("hirezzie: enrichment parse failed", "url", c.PageURL, "error", err.Error())
		return c
	}

	if best, ok := pickEmbeddedImage(info.Images, c.OriginQuery, q); ok {
		replaceImage(&c, best.URL)
		if c.AltText == "" {
			c.AltText = best.Alt
		}
	} else if info.BestGuess != "" {
		replaceImage(&c, info.BestGuess)
	}
	if c.Title == "" {
		c.Title = info.Title
	}
	if c.Description == "" {
		c.Description = info.Description
	}
	return c
}

// replaceImage points c at imageURL. Size and type fields described the old
// image, so they are cleared for the probe to refill.
func replaceImage(c *Candidate, imageURL string) {
	if imageURL == c.ImageURL {
		return
	}
	c.ImageURL = imageURL
	c.Width, c.Height = 0, 0
	c.ByteSize = 0
	c.ContentType = ""
}

// parsePage extracts title, description and image references from HTML.
func parsePage(data []byte, pageURL string) (*pageInfo, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	info := &pageInfo{
		Title:       firstNonEmpty(metaContent(doc, "og:title"), strings.TrimSpace(doc.Find("title").First().Text())),
		Description: firstNonEmpty(metaContent(doc, "og:description"), metaContent(doc, "description"), metaContent(doc, "twitter:description")),
	}

	seen := map[string]bool{}
	add := func(raw, alt string) {
		u := resolveRef(base, raw)
		if u == "" || seen[u] || len(info.Images) >= maxEmbeddedImages {
			return
		}
		if IsPlaceholder(u) {
			return
		}
		seen[u] = true
		info.Images = append(info.Images, embeddedImage{URL: u, Alt: strings.Join(strings.Fields(alt), " ")})
	}

	// Page metadata first: the primary image tag, then alternates.
	metaAlt := firstNonEmpty(metaContent(doc, "og:image:alt"), metaContent(doc, "twitter:image:alt"))
	for _, key := range []string{"og:image:secure_url", "og:image", "og:image:url", "twitter:image", "twitter:image:src"} {
		doc.Find(`meta[property="` + key + `"], meta[name="` + key + `"]`).Each(func(_ int, s *goquery.Selection) {
			v, _ := s.Attr("content")
			add(v, metaAlt)
		})
	}
	doc.Find(`link[rel="image_src"]`).Each(func(_ int, s *goquery.Selection) {
		v, _ := s.Attr("href")
		add(v, metaAlt)
	})
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		alt, _ := s.Attr("alt")
		if srcset, ok := s.Attr("srcset"); ok {
			if largest := largestSrcset(srcset); largest != "" {
				add(largest, alt)
				return
			}
		}
		for _, attr := range []string{"data-src", "data-original", "src"} {
			if v, ok := s.Attr(attr); ok && v != "" {
				add(v, alt)
				return
			}
		}
	})

	if len(info.Images) == 0 || info.Description == "" {
		rp := readability.NewParser()
		if article, err := rp.Parse(bytes.NewReader(data), base); err == nil {
			info.BestGuess = resolveRef(base, article.Image)
			if info.Description == "" {
				info.Description = strings.TrimSpace(article.Excerpt)
			}
			if info.Title == "" {
				info.Title = strings.TrimSpace(article.Title)
			}
		}
	}
	return info, nil
}

// pickEmbeddedImage scores each reference: +3 when the alt text contains the
// whole query, +4 when every entity appears in the alt text or file name, +1
// for having a URL at all. The first highest-scoring reference wins.
func pickEmbeddedImage(images []embeddedImage, originQuery string, q QueryEntities) (embeddedImage, bool) {
	bestScore := -1
	var best embeddedImage
	for _, img := range images {
		score := 0
		if img.URL != "" {
			score++
		}
		alt := strings.ToLower(img.Alt)
		if originQuery != "" && containsPhrase(alt, originQuery) {
			score += 3
		}
		if len(q.Entities) > 0 {
			words := wordSet(alt + " " + urlWords(img.URL))
			all := true
			for _, e := range q.Entities {
				if !containsAllWords(words, e) {
					all = false
					break
				}
			}
			if all {
				score += 4
			}
		}
		if score > bestScore {
			bestScore, best = score, img
		}
	}
	return best, bestScore > 0
}

func metaContent(doc *goquery.Document, key string) string {
	v, _ := doc.Find(`meta[property="` + key + `"], meta[name="` + key + `"]`).First().Attr("content")
	return strings.TrimSpace(v)
}

// resolveRef resolves a possibly relative image reference against base.
func resolveRef(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "data:") {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return cleanURL(base.ResolveReference(u).String())
}

// largestSrcset returns the candidate with the largest width descriptor.
func largestSrcset(srcset string) string {
	best, bestW := "", -1
	for _, part := range strings.Split(srcset, ",") {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) == 0 {
			continue
		}
		w := 0
		if len(fields) > 1 {
			desc := fields[1]
			var n float64
			switch {
			case strings.HasSuffix(desc, "w"):
				n = parseFloatPrefix(strings.TrimSuffix(desc, "w"))
			case strings.HasSuffix(desc, "x"):
				n = parseFloatPrefix(strings.TrimSuffix(desc, "x")) * 1000
			}
			w = int(n)
		}
		if w > bestW {
			best, bestW = fields[0], w
		}
	}
	return best
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
