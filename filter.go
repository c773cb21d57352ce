package hirezzie

import (
	"log/slog"
	"strings"
)

// RejectReason names why the quality filter dropped a candidate.
type RejectReason string

const (
	RejectMissingURL   RejectReason = "missing_url"
	RejectNotImage     RejectReason = "not_image"
	RejectTooSmall     RejectReason = "too_small"
	RejectLowBytes     RejectReason = "low_bytes"
	RejectBlocked      RejectReason = "blocked_source"
	RejectStock        RejectReason = "stock_metadata"
	RejectPlaceholder  RejectReason = "placeholder"
	RejectLanguage     RejectReason = "language"
	RejectTermMismatch RejectReason = "term_mismatch"
	RejectGraphic      RejectReason = "graphic"
)

// Rejection records one filtered candidate.
type Rejection struct {
	ImageURL string
	Provider string
	Reason   RejectReason
}

// TermMatch is how much of the query a candidate's text must mention.
type TermMatch int

const (
	TermMatchAll  TermMatch = iota // every entity (multi-subject) or every residual term
	TermMatchAny                   // at least one entity or term
	TermMatchNone                  // no term gate
)

// FilterPolicy is the configuration of one quality filter pass.
type FilterPolicy struct {
	Thresholds     Thresholds
	Blocked        []string
	LanguageFilter bool
	Language       LanguageDetector // nil = ScriptDetector
	TermMatch      TermMatch
	Query          QueryEntities
}

// Check returns the first reason c fails the policy, or ok=true.
// Unknown dimensions and byte sizes get the benefit of the doubt.
func (p FilterPolicy) Check(c Candidate) (RejectReason, bool) {
	if c.ImageURL == "" {
		return RejectMissingURL, false
	}
	lower := strings.ToLower(c.ImageURL)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return RejectMissingURL, false
	}
	if !IsDirectImageURL(c.ImageURL) && !IsAllowedContentType(c.ContentType) {
		return RejectNotImage, false
	}
	if IsPlaceholder(c.ImageURL) {
		return RejectPlaceholder, false
	}
	if limit := p.Thresholds.MinBytes; limit > 0 && c.ByteSize > 0 && c.ByteSize < limit {
		return RejectLowBytes, false
	}
	if limit := p.Thresholds.MinDimension; limit > 0 && c.Width > 0 && c.Height > 0 && c.Width < limit && c.Height < limit {
		return RejectTooSmall, false
	}
	if IsBlockedSource(c.ImageURL, c.PageURL, p.Blocked) {
		return RejectBlocked, false
	}
	if c.Stock {
		return RejectStock, false
	}
	if c.Graphic {
		return RejectGraphic, false
	}
	if p.LanguageFilter {
		det := p.Language
		if det == nil {
			det = ScriptDetector{}
		}
		if text := strings.TrimSpace(c.Title + " " + c.Description); text != "" && !det.IsEnglish(text) {
			return RejectLanguage, false
		}
	}
	if !p.matchesTerms(c) {
		return RejectTermMismatch, false
	}
	return "", true
}

// matchesTerms applies the term gate. Quoted phrases are always required.
// Candidates without any descriptive text pass.
func (p FilterPolicy) matchesTerms(c Candidate) bool {
	if p.TermMatch == TermMatchNone || !c.hasDescriptiveText() {
		return true
	}
	text := c.metadataText()
	for _, ph := range p.Query.Phrases {
		if !containsPhrase(text, ph) {
			return false
		}
	}

	var required []string
	if p.Query.IsMultiEntity() {
		required = p.Query.Entities
	} else {
		required = p.Query.ResidualTerms
	}
	if len(required) == 0 {
		return true
	}

	words := wordSet(text)
	matched := 0
	for _, r := range required {
		if containsAllWords(words, r) {
			matched++
		}
	}
	if p.TermMatch == TermMatchAny {
		return matched > 0
	}
	return matched == len(required)
}

// Filter keeps the candidates that pass Check, preserving order, and reports
// the rest.
func (p FilterPolicy) Filter(cands []Candidate) ([]Candidate, []Rejection) {
	kept := make([]Candidate, 0, len(cands))
	var rejected []Rejection
	for _, c := range cands {
		if reason, ok := p.Check(c); !ok {
			slog.Debug("hirezzie: rejected", "url", c.ImageURL, "provider", c.ProviderTag, "reason", string(reason))
			rejected = append(rejected, Rejection{ImageURL: c.ImageURL, Provider: c.ProviderTag, Reason: reason})
			continue
		}
		kept = append(kept, c)
	}
	return kept, rejected
}
