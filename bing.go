package hirezzie

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const defaultBingURL = "https://www.bing.com/images/async"

// BingProvider scrapes Bing's image results fragment. Each hit is an
// a.iusc anchor whose "m" attribute carries a JSON blob with the full-size
// image URL, the hosting page and a thumbnail.
type BingProvider struct {
	URL        string
	HTTPClient *http.Client
	UserAgent  string
}

func (p *BingProvider) Name() string { return "bing" }

type bingRecord struct {
	MediaURL string `json:"murl"`
	PageURL  string `json:"purl"`
	ThumbURL string `json:"turl"`
	Title    string `json:"t"`
	Desc     string `json:"desc"`
	Width    int    `json:"-"`
	Height   int    `json:"-"`
}

func (r bingRecord) Normalize() Candidate {
	return Candidate{
		ImageURL:     r.MediaURL,
		PageURL:      r.PageURL,
		ThumbnailURL: r.ThumbURL,
		Title:        r.Title,
		Description:  r.Desc,
		Width:        r.Width,
		Height:       r.Height,
	}
}

func (p *BingProvider) Search(ctx context.Context, req ProviderRequest) ([]RawRecord, error) {
	base := p.URL
	if base == "" {
		base = defaultBingURL
	}
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultProviderPageSize
	}

	params := url.Values{}
	params.Set("q", req.Query)
	params.Set("first", strconv.Itoa(req.Offset+1))
	params.Set("count", strconv.Itoa(limit))
	params.Set("adlt", "strict")
	if req.Options.MinSize >= 2000 {
		params.Set("qft", "+filterui:imagesize-wallpaper")
	} else if req.Options.MinSize > 0 {
		params.Set("qft", "+filterui:imagesize-large")
	}

	body, err := getBody(ctx, p.HTTPClient, base+"?"+params.Encode(),
		map[string]string{"User-Agent": p.UserAgent, "Accept": "text/html"})
	if err != nil {
		return nil, err
	}
	return parseBingResults(body)
}

// parseBingResults extracts records from a Bing results fragment. Anchors
// with unreadable metadata are skipped.
func parseBingResults(body []byte) ([]RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse results: %w", err)
	}

	var records []RawRecord
	doc.Find("a.iusc").Each(func(_ int, s *goquery.Selection) {
		m, ok := s.Attr("m")
		if !ok {
			return
		}
		var rec bingRecord
		if err := json.Unmarshal([]byte(m), &rec); err != nil || rec.MediaURL == "" {
			return
		}
		// Dimensions live in a sibling info line like "1920 x 1080 · jpeg".
		info := s.ParentsFiltered("li, div.imgpt").First().Find("div.img_info span.nowrap").First().Text()
		if info == "" {
			info = s.ParentsFiltered("li, div.imgpt").First().Find("div.img_info").First().Text()
		}
		if i := strings.IndexAny(info, "·-"); i > 0 {
			info = info[:i]
		}
		rec.Width, rec.Height = parseResolution(info)
		records = append(records, rec)
	})
	return records, nil
}
