package hirezzie

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// jsonServer answers every request with body and forwards each request on
// the returned channel.
func jsonServer(t *testing.T, body any) (*httptest.Server, <-chan *http.Request) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	reqs := make(chan *http.Request, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case reqs <- r:
		default:
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv, reqs
}

func normalizeAll(records []RawRecord, tag string) []Candidate {
	out := make([]Candidate, 0, len(records))
	for _, r := range records {
		out = append(out, Normalize(r, tag, "q"))
	}
	return out
}

func TestSearXNGProvider(t *testing.T) {
	t.Parallel()

	srv, reqs := jsonServer(t, map[string]any{"results": []map[string]string{
		{
			"img_src":       "https://img.example.com/full/sunset.jpg",
			"thumbnail_src": "//img.example.com/thumb/sunset.jpg",
			"url":           "https://blog.example.com/maui",
			"title":         "Sunset  beach",
			"content":       "Golden hour on Maui",
			"resolution":    "2400 x 1600",
			"engine":        "bing images",
		},
		{"title": "no urls at all"},
	}})

	p := &SearXNGProvider{URL: srv.URL + "/", Engines: []string{"bing images", "flickr"}}
	records, err := p.Search(context.Background(), ProviderRequest{Query: "sunset beach", Offset: 100, Limit: 50})
	require.NoError(t, err)
	req := <-reqs
	assert.Equal(t, "/search", req.URL.Path)
	got := req.URL.Query()

	assert.Equal(t, "sunset beach", got.Get("q"))
	assert.Equal(t, "json", got.Get("format"))
	assert.Equal(t, "images", got.Get("categories"))
	assert.Equal(t, "3", got.Get("pageno"))
	assert.Equal(t, "bing images,flickr", got.Get("engines"))

	require.Len(t, records, 1)
	c := Normalize(records[0], p.Name(), "sunset beach")
	assert.Equal(t, "https://img.example.com/full/sunset.jpg", c.ImageURL)
	assert.Equal(t, "https://img.example.com/thumb/sunset.jpg", c.ThumbnailURL)
	assert.Equal(t, "Sunset beach", c.Title)
	assert.Equal(t, "Golden hour on Maui", c.Description)
	assert.Equal(t, 2400, c.Width)
	assert.Equal(t, 1600, c.Height)
	assert.Equal(t, "blog.example.com", c.SourceDomain)
	assert.Equal(t, "bing images", c.SourceName)
	assert.Equal(t, "searxng", c.ProviderTag)
}

func TestOpenverseProvider(t *testing.T) {
	t.Parallel()

	srv, reqs := jsonServer(t, map[string]any{"results": []map[string]any{
		{
			"url":                 "https://live.staticflickr.com/1/harbor_o.jpg",
			"thumbnail":           "https://api.openverse.org/v1/images/1/thumb/",
			"foreign_landing_url": "https://www.flickr.com/photos/x/1",
			"title":               "Harbor",
			"creator":             "jdoe",
			"source":              "flickr",
			"width":               4000,
			"height":              3000,
			"filesize":            2_500_000,
			"filetype":            "jpg",
		},
		{
			"url":      "https://upload.wikimedia.org/a/b.png",
			"title":    "Diagram",
			"width":    0,
			"height":   0,
			"filesize": nil,
		},
	}})

	p := &OpenverseProvider{URL: srv.URL, Token: "secret"}
	records, err := p.Search(context.Background(), ProviderRequest{
		Query: "harbor", Offset: 50, Limit: 50, Options: ProviderOptions{MinSize: 2400},
	})
	require.NoError(t, err)
	req := <-reqs
	got, auth := req.URL.Query(), req.Header.Get("Authorization")

	assert.Equal(t, "harbor", got.Get("q"))
	assert.Equal(t, "2", got.Get("page"))
	assert.Equal(t, "50", got.Get("page_size"))
	assert.Equal(t, "large", got.Get("size"))
	assert.Equal(t, "Bearer secret", auth)

	cands := normalizeAll(records, p.Name())
	require.Len(t, cands, 2)
	assert.Equal(t, int64(2_500_000), cands[0].ByteSize)
	assert.Equal(t, "image/jpeg", cands[0].ContentType)
	assert.Equal(t, "by jdoe", cands[0].Description)
	assert.Equal(t, "flickr", cands[0].SourceName)
	assert.Equal(t, 4000, cands[0].Width)
	assert.Zero(t, cands[1].ByteSize)
	assert.Zero(t, cands[1].Width)
}

const bingFragment = `<ul>
<li><div class="imgpt">
  <a class="iusc" m="{&quot;murl&quot;:&quot;https://img.example.com/a.jpg&quot;,&quot;purl&quot;:&quot;https://news.example.com/a&quot;,&quot;turl&quot;:&quot;https://tse.example.net/th?id=1&quot;,&quot;t&quot;:&quot;Sunset beach&quot;,&quot;desc&quot;:&quot;Maui&quot;}" href="#"></a>
  <div class="img_info"><span class="nowrap">1920 x 1080 · jpeg</span></div>
</div></li>
<li><div class="imgpt">
  <a class="iusc" m="not json" href="#"></a>
</div></li>
<li><div class="imgpt">
  <a class="iusc" m="{&quot;murl&quot;:&quot;https://img.example.com/b.jpg&quot;,&quot;t&quot;:&quot;Harbor&quot;}" href="#"></a>
</div></li>
</ul>`

func TestBingProvider(t *testing.T) {
	t.Parallel()

	queries := make(chan url.Values, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries <- r.URL.Query()
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(bingFragment))
	}))
	t.Cleanup(srv.Close)

	p := &BingProvider{URL: srv.URL}
	records, err := p.Search(context.Background(), ProviderRequest{
		Query: "sunset beach", Offset: 50, Limit: 35, Options: ProviderOptions{MinSize: 2000},
	})
	require.NoError(t, err)
	got := <-queries

	assert.Equal(t, "51", got.Get("first"))
	assert.Equal(t, "35", got.Get("count"))
	assert.Equal(t, "+filterui:imagesize-wallpaper", got.Get("qft"))

	cands := normalizeAll(records, p.Name())
	require.Len(t, cands, 2)
	assert.Equal(t, "https://img.example.com/a.jpg", cands[0].ImageURL)
	assert.Equal(t, "https://news.example.com/a", cands[0].PageURL)
	assert.Equal(t, "Sunset beach", cands[0].Title)
	assert.Equal(t, "Maui", cands[0].Description)
	assert.Equal(t, 1920, cands[0].Width)
	assert.Equal(t, 1080, cands[0].Height)
	assert.Equal(t, "img.example.com", cands[1].SourceDomain)
	assert.Zero(t, cands[1].Width)
}

func TestBraveProvider(t *testing.T) {
	t.Parallel()

	results := make([]map[string]any, 0, 5)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		results = append(results, map[string]any{
			"title":      name,
			"url":        "https://site.example.com/" + name,
			"source":     "site.example.com",
			"thumbnail":  map[string]any{"src": "https://imgs.search.brave.com/" + name},
			"properties": map[string]any{"url": "https://site.example.com/" + name + ".jpg"},
		})
	}
	srv, reqs := jsonServer(t, map[string]any{"results": results})

	p := &BraveProvider{URL: srv.URL, APIKey: "k"}
	assert.True(t, isPaid(p))

	records, err := p.Search(context.Background(), ProviderRequest{Query: "sunset", Offset: 2, Limit: 3})
	require.NoError(t, err)
	req := <-reqs
	assert.Equal(t, "5", req.URL.Query().Get("count"))
	assert.Equal(t, "k", req.Header.Get("X-Subscription-Token"))

	cands := normalizeAll(records, p.Name())
	require.Len(t, cands, 3)
	assert.Equal(t, "https://site.example.com/c.jpg", cands[0].ImageURL)
	assert.Equal(t, "https://site.example.com/c", cands[0].PageURL)

	records, err = p.Search(context.Background(), ProviderRequest{Query: "sunset", Offset: braveMaxCount, Limit: 3})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestProviderHTTPErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	for _, p := range []Provider{
		&SearXNGProvider{URL: srv.URL},
		&OpenverseProvider{URL: srv.URL},
		&BingProvider{URL: srv.URL},
		&BraveProvider{URL: srv.URL},
	} {
		records, err := p.Search(context.Background(), ProviderRequest{Query: "x", Limit: 10})
		assert.ErrorIs(t, err, errHTTPStatus, p.Name())
		assert.Nil(t, records, p.Name())
	}

	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	}))
	t.Cleanup(garbage.Close)
	_, err := (&SearXNGProvider{URL: garbage.URL}).Search(context.Background(), ProviderRequest{Query: "x"})
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	c := Normalize(GenericRecord{
		ImageURL:    "  //cdn.example.com/a.jpg ",
		PageURL:     "javascript:alert(1)",
		Title:       "  two   spaces ",
		Width:       -5,
		Height:      900,
		ByteSize:    -1,
		Description: "x",
	}, "tag", "origin")
	assert.Equal(t, "https://cdn.example.com/a.jpg", c.ImageURL)
	assert.Empty(t, c.PageURL)
	assert.Equal(t, "two spaces", c.Title)
	assert.Zero(t, c.Width)
	assert.Zero(t, c.Height)
	assert.Zero(t, c.ByteSize)
	assert.Equal(t, "cdn.example.com", c.SourceDomain)
	assert.Equal(t, "cdn.example.com", c.SourceName)
	assert.Equal(t, "tag", c.ProviderTag)
	assert.Equal(t, "origin", c.OriginQuery)

	assert.Equal(t, Candidate{ProviderTag: "tag", OriginQuery: "q"}, Normalize(nil, "tag", "q"))
	assert.Equal(t, Candidate{ProviderTag: "tag", OriginQuery: "q"}, Normalize(panickyRecord{}, "tag", "q"))
}

type panickyRecord struct{}

func (panickyRecord) Normalize() Candidate { panic("bad record") }

func TestParseResolution(t *testing.T) {
	t.Parallel()

	for in, want := range map[string][2]int{
		"1920x1080":   {1920, 1080},
		"1920 × 1080": {1920, 1080},
		"800 X 600":   {800, 600},
		"":            {0, 0},
		"large":       {0, 0},
	} {
		w, h := parseResolution(in)
		assert.Equal(t, want, [2]int{w, h}, in)
	}
}
