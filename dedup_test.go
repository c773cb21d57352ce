package hirezzie

import (
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignature(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		w, h int
		want string
	}{
		{"https://a.example.com/img/photo-large.jpg", 2000, 1500, "photo|13"},
		{"https://b.example.org/media/photo-1200x900.jpg", 1200, 900, "photo|13"},
		{"https://a.example.com/photo@2x.jpg", 800, 600, "photo|13"},
		{"https://a.example.com/p/sunset_thumb.png", 0, 0, "sunset|0"},
		{"https://a.example.com/p/beach-1024x768-scaled.jpg", 1024, 768, "beach|13"},
		{"https://a.example.com/p/Harbor-800w.webp", 1920, 1080, "harbor|18"},
		{"https://cdn.example.com/12.jpg", 1920, 1080, "cdn.example.com/12|18"},
		{"https://cdn.example.com/ab.jpg", 1000, 1000, "cdn.example.com/ab|10"},
		{"", 100, 100, ""},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Signature(tt.url, tt.w, tt.h))
		})
	}
}

func TestDedupeKeepsHighestResolutionVariant(t *testing.T) {
	t.Parallel()

	large := Candidate{ImageURL: "https://a.example.com/img/photo-large.jpg", Width: 2000, Height: 1500, ProviderTag: "a"}
	small := Candidate{ImageURL: "https://b.example.org/media/photo-1200x900.jpg", Width: 1200, Height: 900, ProviderTag: "b"}

	for _, in := range [][]Candidate{{large, small}, {small, large}} {
		got := Dedupe(in)
		require.Len(t, got, 1)
		assert.Equal(t, large.ImageURL, got[0].ImageURL)
		assert.Equal(t, "photo|13", got[0].Signature)
	}
}

func TestDedupeDifferentCropsSurvive(t *testing.T) {
	t.Parallel()

	got := Dedupe([]Candidate{
		{ImageURL: "https://a.example.com/photo.jpg", Width: 2000, Height: 1500},
		{ImageURL: "https://b.example.com/photo.jpg", Width: 1500, Height: 1500},
	})
	assert.Len(t, got, 2)
}

func TestDedupeSameStemSameAspectAcrossSizes(t *testing.T) {
	t.Parallel()

	// Signatures ignore absolute size, so a same-named, same-aspect image on
	// another site collapses into the larger one even if it is unrelated.
	big := Candidate{ImageURL: "https://a.example.com/beach-sunset.jpg", Width: 4000, Height: 3000}
	other := Candidate{ImageURL: "https://b.example.net/beach-sunset.jpg", Width: 800, Height: 600}
	assert.Equal(t, Signature(big.ImageURL, big.Width, big.Height), Signature(other.ImageURL, other.Width, other.Height))

	got := Dedupe([]Candidate{other, big})
	require.Len(t, got, 1)
	assert.Equal(t, big.ImageURL, got[0].ImageURL)
}

func TestDedupeExactURLCaseInsensitive(t *testing.T) {
	t.Parallel()

	got := Dedupe([]Candidate{
		{ImageURL: "https://a.example.com/Shot.JPG", Width: 2000, Height: 1500, Title: "first"},
		{ImageURL: "https://a.example.com/shot.jpg", Width: 2000, Height: 1500, Title: "second"},
	})
	require.Len(t, got, 1)
}

func TestDedupeShortStemsIncludeHost(t *testing.T) {
	t.Parallel()

	got := Dedupe([]Candidate{
		{ImageURL: "https://a.example.com/1.jpg", Width: 2000, Height: 1500},
		{ImageURL: "https://b.example.com/1.jpg", Width: 2000, Height: 1500},
	})
	assert.Len(t, got, 2)
}

func TestDedupeProviderPriorityBreaksTies(t *testing.T) {
	t.Parallel()

	d := Deduper{Priority: map[string]int{"first": 0, "second": 1}}
	fromSecond := Candidate{ImageURL: "https://a.example.com/photo.jpg", Width: 2000, Height: 1500, ProviderTag: "second"}
	fromFirst := Candidate{ImageURL: "https://b.example.com/photo-large.jpg", Width: 2000, Height: 1500, ProviderTag: "first"}

	got := d.Dedupe([]Candidate{fromSecond, fromFirst})
	require.Len(t, got, 1)
	assert.Equal(t, "first", got[0].ProviderTag)

	// Byte size outranks provider priority.
	fromSecond.ByteSize = 900_000
	got = d.Dedupe([]Candidate{fromSecond, fromFirst})
	require.Len(t, got, 1)
	assert.Equal(t, "second", got[0].ProviderTag)
}

func dedupFixture() []Candidate {
	var cands []Candidate
	for i := range 12 {
		cands = append(cands, Candidate{
			ImageURL:    fmt.Sprintf("https://host%d.example.com/pic/shot-%c.jpg", i%3, 'a'+rune(i%5)),
			Width:       1000 + 200*(i%4),
			Height:      750 + 150*(i%4),
			ByteSize:    int64(100_000 * (i % 3)),
			ProviderTag: fmt.Sprintf("p%d", i%2),
		})
	}
	cands = append(cands, cands[3], cands[7])
	return cands
}

func TestDedupeIdempotent(t *testing.T) {
	t.Parallel()

	d := Deduper{Priority: map[string]int{"p0": 0, "p1": 1}}
	once := d.Dedupe(dedupFixture())
	twice := d.Dedupe(once)
	assert.Equal(t, once, twice)
}

func TestDedupeOrderIndependent(t *testing.T) {
	t.Parallel()

	d := Deduper{Priority: map[string]int{"p0": 0, "p1": 1}}
	in := dedupFixture()
	want := d.Dedupe(in)

	reversed := slices.Clone(in)
	slices.Reverse(reversed)
	assert.Equal(t, want, d.Dedupe(reversed))

	rotated := append(slices.Clone(in[5:]), in[:5]...)
	assert.Equal(t, want, d.Dedupe(rotated))
}

func TestDedupePerceptualDuplicates(t *testing.T) {
	t.Parallel()

	best := Candidate{ImageURL: "https://a.example.com/harbor.jpg", Width: 3000, Height: 2000, thumbHash: 0x0f0f, hasThumbHash: true}
	near := Candidate{ImageURL: "https://b.example.com/boats.jpg", Width: 2000, Height: 1500, thumbHash: 0x0f0e, hasThumbHash: true}
	far := Candidate{ImageURL: "https://c.example.com/bay.jpg", Width: 1800, Height: 1200, thumbHash: ^uint64(0x0f0f), hasThumbHash: true}
	unhashed := Candidate{ImageURL: "https://d.example.com/dock.jpg", Width: 1600, Height: 1200}

	got := Dedupe([]Candidate{near, unhashed, far, best})
	urls := make([]string, 0, len(got))
	for _, c := range got {
		urls = append(urls, c.ImageURL)
	}
	assert.Equal(t, []string{best.ImageURL, far.ImageURL, unhashed.ImageURL}, urls)
}

func TestDedupContext(t *testing.T) {
	t.Parallel()

	dc := NewDedupContext()
	shown := Candidate{ImageURL: "https://a.example.com/photo-large.jpg", Width: 2000, Height: 1500}
	dc.Remember([]Candidate{shown})
	assert.Equal(t, 1, dc.Len())

	assert.True(t, dc.Seen(Candidate{ImageURL: "https://A.example.com/photo-large.jpg"}), "same URL")
	assert.True(t, dc.Seen(Candidate{ImageURL: "https://b.example.com/photo-1200x900.jpg", Width: 1200, Height: 900}), "same signature")
	assert.False(t, dc.Seen(Candidate{ImageURL: "https://b.example.com/other.jpg", Width: 1200, Height: 900}))

	kept := dc.Exclude([]Candidate{shown, {ImageURL: "https://c.example.com/new.jpg"}})
	require.Len(t, kept, 1)
	assert.Equal(t, "https://c.example.com/new.jpg", kept[0].ImageURL)

	dc.Reset()
	assert.Equal(t, 0, dc.Len())
	assert.False(t, dc.Seen(shown))

	var zero DedupContext
	zero.Remember([]Candidate{shown})
	assert.True(t, zero.Seen(shown))
}
