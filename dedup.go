package hirezzie

import (
	"bytes"
	"context"
	"image"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/corona10/goimagehash"
)

// dedupThreshold is the maximum Hamming distance between two dHash values
// below which thumbnails are considered perceptually identical.
const dedupThreshold = 10

const thumbMaxBytes = 1 << 20

// variantSuffixes strip size and rendition markers from a file stem:
// "photo-1200x900", "photo@2x", "photo-large", "photo_thumb", "photo-scaled", "photo-800w".
var variantSuffixes = []*regexp.Regexp{
	regexp.MustCompile(`[-_.]?\d{2,5}x\d{2,5}$`),
	regexp.MustCompile(`@\d(\.\d)?x$`),
	regexp.MustCompile(`[-_.](large|medium|small|thumb|thumbnail|scaled|full|fullsize|original|orig|big|hd|hires|lg|md|sm|xl|xxl)$`),
	regexp.MustCompile(`[-_.]\d{2,4}w$`),
}

// Signature derives the dedup key of an image: the file stem with size and
// variant suffixes removed, plus an aspect-ratio class derived from the
// dimensions. Renditions of one image at different sizes share a signature;
// different crops do not. Very short or numeric stems ("1.jpg") also carry
// the host, since they collide across sites.
//
// Dimensions are bucketed by aspect, not size: renditions of one photo
// differ only in size. The cost: unrelated images that share a
// descriptive stem and aspect ratio ("beach-sunset.jpg" at 4000x3000 on one
// site, 800x600 on another) collapse to the larger one.
func Signature(imageURL string, width, height int) string {
	if imageURL == "" {
		return ""
	}
	stem := strings.ToLower(fileStem(imageURL))
	for changed := true; changed && stem != ""; {
		changed = false
		for _, re := range variantSuffixes {
			if loc := re.FindStringIndex(stem); loc != nil && loc[0] > 0 {
				stem = stem[:loc[0]]
				changed = true
			}
		}
	}
	if stem == "" {
		stem = strings.ToLower(imageURL)
	} else if len(stem) <= 2 || isDigits(stem) {
		stem = extractHost(imageURL) + "/" + stem
	}
	return stem + "|" + aspectClass(width, height)
}

// aspectClass buckets width/height to tenths ("13" for 4:3, "18" for 16:9).
// Unknown dimensions give "0".
func aspectClass(width, height int) string {
	if width <= 0 || height <= 0 {
		return "0"
	}
	return strconv.Itoa(int(math.Round(float64(width) / float64(height) * 10)))
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// Deduper collapses duplicates. Priority maps provider tags to rank (lower
// wins ties); unknown tags rank last.
type Deduper struct {
	Priority map[string]int
}

// Dedupe collapses exact-URL duplicates (case-insensitive), then keeps one
// representative per signature, then (for candidates carrying a thumbnail
// hash) drops perceptual duplicates. The representative is the candidate with
// the most pixels, then the larger byte size, then the higher-priority
// provider, then the smaller URL, so the result does not depend on input
// order. Output is sorted best-first.
func (d Deduper) Dedupe(cands []Candidate) []Candidate {
	byURL := make(map[string]Candidate, len(cands))
	for _, c := range cands {
		key := strings.ToLower(c.ImageURL)
		if cur, ok := byURL[key]; !ok || d.better(c, cur) {
			byURL[key] = c
		}
	}

	bySig := make(map[string]Candidate, len(byURL))
	for _, c := range byURL {
		if c.Signature == "" {
			c.Signature = Signature(c.ImageURL, c.Width, c.Height)
		}
		if cur, ok := bySig[c.Signature]; !ok || d.better(c, cur) {
			bySig[c.Signature] = c
		}
	}

	out := make([]Candidate, 0, len(bySig))
	for _, c := range bySig {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return d.better(out[i], out[j]) })

	return dropPerceptualDuplicates(out)
}

// Dedupe runs a Deduper with no provider priorities.
func Dedupe(cands []Candidate) []Candidate {
	return Deduper{}.Dedupe(cands)
}

// better reports whether a is a better representative than b.
func (d Deduper) better(a, b Candidate) bool {
	if pa, pb := a.Pixels(), b.Pixels(); pa != pb {
		return pa > pb
	}
	if a.ByteSize != b.ByteSize {
		return a.ByteSize > b.ByteSize
	}
	if ra, rb := d.rank(a.ProviderTag), d.rank(b.ProviderTag); ra != rb {
		return ra < rb
	}
	for _, f := range [][2]string{
		{a.ImageURL, b.ImageURL},
		{a.PageURL, b.PageURL},
		{a.Title, b.Title},
		{a.AltText, b.AltText},
		{a.Description, b.Description},
	} {
		if f[0] != f[1] {
			return f[0] < f[1]
		}
	}
	return false
}

func (d Deduper) rank(tag string) int {
	if r, ok := d.Priority[tag]; ok {
		return r
	}
	return math.MaxInt32
}

// dropPerceptualDuplicates walks best-first and keeps a hashed candidate only
// if it is far from every hash already kept.
func dropPerceptualDuplicates(sorted []Candidate) []Candidate {
	var kept []*goimagehash.ImageHash
	out := sorted[:0:0]
	for _, c := range sorted {
		if !c.hasThumbHash {
			out = append(out, c)
			continue
		}
		h := goimagehash.NewImageHash(c.thumbHash, goimagehash.DHash)
		dup := false
		for _, k := range kept {
			if dist, err := h.Distance(k); err == nil && dist < dedupThreshold {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		kept = append(kept, h)
		out = append(out, c)
	}
	return out
}

// hashThumbnail downloads a thumbnail and returns its difference hash.
// Any failure returns ok=false (graceful degradation).
func (cfg *Config) hashThumbnail(ctx context.Context, thumbURL string) (uint64, bool) {
	r, err := cfg.fetch(ctx, thumbURL, fetchOpts{MaxBytes: thumbMaxBytes, Timeout: cfg.EnrichTimeout})
	if err != nil || !strings.HasPrefix(r.ContentType, "image/") {
		return 0, false
	}
	img, _, err := image.Decode(bytes.NewReader(r.Data))
	if err != nil {
		return 0, false
	}
	hash, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return 0, false
	}
	return hash.GetHash(), true
}

// DedupContext remembers what a session has already shown, so "load more"
// pages never repeat an image. It is safe for concurrent use. Search resets
// it; LoadMore does not.
type DedupContext struct {
	mu         sync.Mutex
	signatures map[string]struct{}
	urls       map[string]struct{}
}

// NewDedupContext returns an empty context.
func NewDedupContext() *DedupContext {
	return &DedupContext{
		signatures: map[string]struct{}{},
		urls:       map[string]struct{}{},
	}
}

// Reset forgets everything. Called at the start of every fresh search.
func (d *DedupContext) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.signatures = map[string]struct{}{}
	d.urls = map[string]struct{}{}
}

// Remember marks candidates as shown.
func (d *DedupContext) Remember(cands []Candidate) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.signatures == nil {
		d.signatures, d.urls = map[string]struct{}{}, map[string]struct{}{}
	}
	for _, c := range cands {
		sig := c.Signature
		if sig == "" {
			sig = Signature(c.ImageURL, c.Width, c.Height)
		}
		d.signatures[sig] = struct{}{}
		d.urls[strings.ToLower(c.ImageURL)] = struct{}{}
	}
}

// Seen reports whether c (by URL or signature) was already shown.
func (d *DedupContext) Seen(c Candidate) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.urls[strings.ToLower(c.ImageURL)]; ok {
		return true
	}
	sig := c.Signature
	if sig == "" {
		sig = Signature(c.ImageURL, c.Width, c.Height)
	}
	_, ok := d.signatures[sig]
	return ok
}

// Len returns the number of remembered signatures.
func (d *DedupContext) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.signatures)
}

// Exclude drops every candidate this context has already shown.
func (d *DedupContext) Exclude(cands []Candidate) []Candidate {
	out := cands[:0:0]
	for _, c := range cands {
		if !d.Seen(c) {
			out = append(out, c)
		}
	}
	return out
}

// Dedupe runs dd and drops everything this context has already shown.
func (d *DedupContext) Dedupe(dd Deduper, cands []Candidate) []Candidate {
	return d.Exclude(dd.Dedupe(cands))
}
