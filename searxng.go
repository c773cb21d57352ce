package hirezzie

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// SearXNGProvider queries a SearXNG instance's JSON API in the images category.
type SearXNGProvider struct {
	URL        string   // instance base URL
	Engines    []string // optional engine restriction
	HTTPClient *http.Client
	UserAgent  string
}

func (p *SearXNGProvider) Name() string { return "searxng" }

// searxngResponse is the subset of the SearXNG JSON answer we read.
type searxngResponse struct {
	Results []searxngResult `json:"results"`
}

type searxngResult struct {
	ImgSrc     string `json:"img_src"`
	Thumbnail  string `json:"thumbnail_src"`
	URL        string `json:"url"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	Resolution string `json:"resolution"`
	ImgFormat  string `json:"img_format"`
	Engine     string `json:"engine"`
}

func (r searxngResult) Normalize() Candidate {
	w, h := parseResolution(r.Resolution)
	return Candidate{
		ImageURL:     r.ImgSrc,
		PageURL:      r.URL,
		ThumbnailURL: r.Thumbnail,
		Title:        r.Title,
		Description:  r.Content,
		SourceName:   r.Engine,
		Width:        w,
		Height:       h,
	}
}

func (p *SearXNGProvider) Search(ctx context.Context, req ProviderRequest) ([]RawRecord, error) {
	params := url.Values{}
	params.Set("q", req.Query)
	params.Set("format", "json")
	params.Set("categories", "images")
	params.Set("pageno", strconv.Itoa(pageNumber(req.Offset, req.Limit)))
	params.Set("safesearch", "1")
	if len(p.Engines) > 0 {
		params.Set("engines", strings.Join(p.Engines, ","))
	}

	var resp searxngResponse
	err := getJSON(ctx, p.HTTPClient, strings.TrimRight(p.URL, "/")+"/search?"+params.Encode(),
		map[string]string{"User-Agent": p.UserAgent}, &resp)
	if err != nil {
		return nil, err
	}

	records := make([]RawRecord, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.ImgSrc == "" && r.URL == "" {
			continue
		}
		records = append(records, r)
	}
	return records, nil
}
