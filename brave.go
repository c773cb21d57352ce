package hirezzie

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

const (
	defaultBraveURL = "https://api.search.brave.com/res/v1/images/search"
	braveMaxCount   = 200
)

// BraveProvider queries the Brave Search image API. It is metered, so it
// only runs as a supplemental source when paid providers are allowed.
type BraveProvider struct {
	URL        string
	APIKey     string
	HTTPClient *http.Client
}

func (p *BraveProvider) Name() string { return "brave" }
func (p *BraveProvider) Paid() bool   { return true }

type braveResponse struct {
	Results []braveResult `json:"results"`
}

type braveResult struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Source    string `json:"source"`
	Thumbnail struct {
		Src string `json:"src"`
	} `json:"thumbnail"`
	Properties struct {
		URL    string `json:"url"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
	} `json:"properties"`
}

func (r braveResult) Normalize() Candidate {
	return Candidate{
		ImageURL:     r.Properties.URL,
		PageURL:      r.URL,
		ThumbnailURL: r.Thumbnail.Src,
		Title:        r.Title,
		SourceName:   r.Source,
		Width:        r.Properties.Width,
		Height:       r.Properties.Height,
	}
}

// Search has no offset parameter upstream; it asks for offset+limit results
// and drops the first offset of them.
func (p *BraveProvider) Search(ctx context.Context, req ProviderRequest) ([]RawRecord, error) {
	base := p.URL
	if base == "" {
		base = defaultBraveURL
	}
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultProviderPageSize
	}
	count := min(req.Offset+limit, braveMaxCount)
	if req.Offset >= count {
		return nil, nil
	}

	params := url.Values{}
	params.Set("q", req.Query)
	params.Set("count", strconv.Itoa(count))
	params.Set("safesearch", "strict")

	var resp braveResponse
	headers := map[string]string{"X-Subscription-Token": p.APIKey}
	if err := getJSON(ctx, p.HTTPClient, base+"?"+params.Encode(), headers, &resp); err != nil {
		return nil, err
	}

	var records []RawRecord
	for i, r := range resp.Results {
		if i < req.Offset {
			continue
		}
		records = append(records, r)
	}
	return records, nil
}
