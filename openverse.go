package hirezzie

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const defaultOpenverseURL = "https://api.openverse.org/v1/images/"

// OpenverseProvider queries the Openverse image API. Token is optional;
// anonymous access is rate limited.
type OpenverseProvider struct {
	URL        string
	Token      string
	HTTPClient *http.Client
	UserAgent  string
}

func (p *OpenverseProvider) Name() string { return "openverse" }

type openverseResponse struct {
	Results []openverseResult `json:"results"`
}

type openverseResult struct {
	URL               string `json:"url"`
	Thumbnail         string `json:"thumbnail"`
	ForeignLandingURL string `json:"foreign_landing_url"`
	Title             string `json:"title"`
	Creator           string `json:"creator"`
	Source            string `json:"source"`
	Width             int    `json:"width"`
	Height            int    `json:"height"`
	Filesize          *int64 `json:"filesize"`
	Filetype          string `json:"filetype"`
}

func (r openverseResult) Normalize() Candidate {
	c := Candidate{
		ImageURL:     r.URL,
		PageURL:      r.ForeignLandingURL,
		ThumbnailURL: r.Thumbnail,
		Title:        r.Title,
		SourceName:   r.Source,
		Width:        r.Width,
		Height:       r.Height,
	}
	if r.Creator != "" {
		c.Description = "by " + r.Creator
	}
	if r.Filesize != nil {
		c.ByteSize = *r.Filesize
	}
	if r.Filetype != "" {
		c.ContentType = "image/" + strings.ToLower(r.Filetype)
		if c.ContentType == "image/jpg" {
			c.ContentType = "image/jpeg"
		}
	}
	return c
}

func (p *OpenverseProvider) Search(ctx context.Context, req ProviderRequest) ([]RawRecord, error) {
	base := p.URL
	if base == "" {
		base = defaultOpenverseURL
	}
	limit := req.Limit
	if limit <= 0 || limit > 500 {
		limit = DefaultProviderPageSize
	}

	params := url.Values{}
	params.Set("q", req.Query)
	params.Set("page", strconv.Itoa(pageNumber(req.Offset, limit)))
	params.Set("page_size", strconv.Itoa(limit))
	params.Set("mature", "false")
	if req.Options.MinSize >= 2000 {
		params.Set("size", "large")
	}

	headers := map[string]string{"User-Agent": p.UserAgent}
	if p.Token != "" {
		headers["Authorization"] = "Bearer " + p.Token
	}

	var resp openverseResponse
	if err := getJSON(ctx, p.HTTPClient, base+"?"+params.Encode(), headers, &resp); err != nil {
		return nil, err
	}

	records := make([]RawRecord, 0, len(resp.Results))
	for _, r := range resp.Results {
		records = append(records, r)
	}
	return records, nil
}
