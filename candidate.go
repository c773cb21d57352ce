package hirezzie

import "strings"

// Candidate is one image result flowing through the pipeline.
// Width, Height and ByteSize are zero when unknown.
type Candidate struct {
	ImageURL     string `yaml:"image_url"`
	PageURL      string `yaml:"page_url,omitempty"`
	ThumbnailURL string `yaml:"thumbnail_url,omitempty"`
	Title        string `yaml:"title,omitempty"`
	AltText      string `yaml:"alt_text,omitempty"`
	Description  string `yaml:"description,omitempty"`
	SourceName   string `yaml:"source_name,omitempty"`
	SourceDomain string `yaml:"source_domain,omitempty"`
	Width        int    `yaml:"width,omitempty"`
	Height       int    `yaml:"height,omitempty"`
	ByteSize     int64  `yaml:"byte_size,omitempty"`
	ContentType  string `yaml:"content_type,omitempty"` // set by the enrichment probe
	OriginQuery  string `yaml:"origin_query"`
	ProviderTag  string `yaml:"provider"`

	QualityScore float64 `yaml:"score"`
	Signature    string  `yaml:"signature"`

	// Stock is set when the probe found stock-agency fingerprints in the image metadata.
	Stock bool `yaml:"-"`
	// Graphic is set when the vision classifier judged the image a banner or graphic.
	Graphic bool `yaml:"-"`

	thumbHash    uint64
	hasThumbHash bool
}

// Pixels returns width*height, or 0 when either side is unknown.
func (c Candidate) Pixels() int64 {
	if c.Width <= 0 || c.Height <= 0 {
		return 0
	}
	return int64(c.Width) * int64(c.Height)
}

// Megapixels returns Pixels in millions.
func (c Candidate) Megapixels() float64 {
	return float64(c.Pixels()) / 1e6
}

// metadataText is the lowercased text the scorer and term gate search in.
func (c Candidate) metadataText() string {
	var b strings.Builder
	for _, s := range []string{c.Title, c.AltText, c.Description, urlWords(c.PageURL), urlWords(c.ImageURL)} {
		if s == "" {
			continue
		}
		b.WriteString(strings.ToLower(s))
		b.WriteByte(' ')
	}
	return b.String()
}

// hasDescriptiveText reports whether the candidate carries any title/alt/description.
func (c Candidate) hasDescriptiveText() bool {
	return strings.TrimSpace(c.Title+c.AltText+c.Description) != ""
}

// SortMode selects the primary ordering key of a ResultSet.
type SortMode string

const (
	SortRelevance  SortMode = "relevance"  // composite score, then pixel count
	SortResolution SortMode = "resolution" // pixel count, then composite score
)

// ProviderOptions is the options bag forwarded to every provider call.
type ProviderOptions struct {
	SortMode  SortMode          `yaml:"sort_mode,omitempty"`
	Blacklist []string          `yaml:"blacklist,omitempty"`
	MinSize   int               `yaml:"min_size,omitempty"`
	Extra     map[string]string `yaml:"extra,omitempty"`
}

// SearchRequest is the input envelope of Search and LoadMore.
type SearchRequest struct {
	Query    string
	Offset   int
	PageSize int
	SortMode SortMode
	Options  ProviderOptions
}

// ResultSet is the output envelope of Search. RecoveryTier is the last tier
// that ran; SupplementalFetch counts only when it had paid calls to make.
type ResultSet struct {
	RequestID       string               `yaml:"request_id"`
	Candidates      []Candidate          `yaml:"candidates"`
	TotalConsidered int                  `yaml:"total_considered"`
	RecoveryTier    Tier                 `yaml:"recovery_tier"`
	NextOffset      int                  `yaml:"next_offset"`
	Providers       []ProviderStatus     `yaml:"providers,omitempty"`
	Rejections      map[RejectReason]int `yaml:"rejections,omitempty"`
}

// ProviderStatus summarises every call made to one provider during a search.
type ProviderStatus struct {
	Name     string `yaml:"name"`
	Calls    int    `yaml:"calls"`
	Failures int    `yaml:"failures"`
	TimedOut int    `yaml:"timed_out"`
	Count    int    `yaml:"count"`
}
