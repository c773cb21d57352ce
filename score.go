package hirezzie

import (
	"sort"
	"strings"
)

// Score weights.
const (
	boostHighRes      = 2.0 // >= 8MP
	boostMidRes       = 1.0 // >= 4MP
	boostAllEntities  = 5.0
	boostContext      = 1.0
	boostWeakContext  = 0.5
	boostPartialScale = 2.0 // times the fraction of entities matched
	penaltyCollision  = -1.0
	penaltyNoMatch    = -0.5
	boostCoverage     = 3.0 // times the fraction of terms matched, single-subject queries
)

// professionVocab groups context words used to tell same-named people apart.
var professionVocab = map[string][]string{
	"music": {
		"singer", "song", "songs", "album", "concert", "tour", "music", "musician",
		"band", "rapper", "grammy", "grammys", "vocalist", "guitar", "billboard", "performs", "festival",
	},
	"film": {
		"actress", "actor", "film", "movie", "premiere", "director", "cast", "oscar",
		"oscars", "hollywood", "scene", "trailer", "cinema", "emmy", "emmys", "sundance", "cannes",
	},
	"sports": {
		"player", "match", "team", "league", "goal", "coach", "championship", "olympic",
		"olympics", "nba", "nfl", "fifa", "tennis", "football", "soccer", "basketball", "athlete", "stadium",
	},
	"fashion": {
		"model", "runway", "fashion", "vogue", "couture", "designer", "photoshoot",
		"gala", "outfit", "dress", "editorial",
	},
}

// professionContexts returns the vocabularies with at least one word in words.
func professionContexts(words map[string]bool) map[string]bool {
	out := map[string]bool{}
	for ctx, vocab := range professionVocab {
		for _, w := range vocab {
			if words[w] {
				out[ctx] = true
				break
			}
		}
	}
	return out
}

// ResolutionBoost is tiered by megapixels.
func ResolutionBoost(c Candidate) float64 {
	switch mp := c.Megapixels(); {
	case mp >= 8:
		return boostHighRes
	case mp >= 4:
		return boostMidRes
	default:
		return 0
	}
}

// Score is the composite relevance of c for the analysed query: the
// resolution boost plus either the entity co-occurrence boost (multi-subject
// queries) or the residual-term coverage boost.
func Score(c Candidate, q QueryEntities) float64 {
	score := ResolutionBoost(c)
	if !c.hasDescriptiveText() && c.PageURL == "" {
		return score
	}
	text := c.metadataText()
	words := wordSet(text)
	if q.IsMultiEntity() {
		return score + cooccurrenceBoost(words, q)
	}
	return score + coverageBoost(text, words, q)
}

func cooccurrenceBoost(words map[string]bool, q QueryEntities) float64 {
	matched := 0
	for _, e := range q.Entities {
		if containsAllWords(words, e) {
			matched++
		}
	}
	contexts := professionContexts(words)

	switch {
	case matched == len(q.Entities):
		if len(contexts) > 0 {
			return boostAllEntities + boostContext
		}
		return boostAllEntities
	case matched > 0:
		boost := boostPartialScale * float64(matched) / float64(len(q.Entities))
		queryCtx := professionContexts(wordSet(strings.Join(q.ResidualTerms, " ")))
		switch {
		case len(queryCtx) > 0 && sharesKey(queryCtx, contexts):
			boost += boostContext
		case len(queryCtx) > 0 && len(contexts) > 0:
			boost -= boostContext
		case len(contexts) > 0:
			boost += boostWeakContext
		}
		return boost
	default:
		for _, t := range q.ResidualTerms {
			if words[t] {
				if len(contexts) == 0 {
					return penaltyCollision
				}
				return 0
			}
		}
		return penaltyNoMatch
	}
}

func coverageBoost(text string, words map[string]bool, q QueryEntities) float64 {
	total := len(q.ResidualTerms) + len(q.Phrases)
	if total == 0 {
		return 0
	}
	matched := 0
	for _, t := range q.ResidualTerms {
		if words[t] {
			matched++
		}
	}
	for _, p := range q.Phrases {
		if containsPhrase(text, p) {
			matched++
		}
	}
	return boostCoverage * float64(matched) / float64(total)
}

func sharesKey(a, b map[string]bool) bool {
	for k := range a {
		if b[k] {
			return true
		}
	}
	return false
}

// ScoreAll sets QualityScore on every candidate.
func ScoreAll(cands []Candidate, q QueryEntities) {
	for i := range cands {
		cands[i].QualityScore = Score(cands[i], q)
	}
}

// SortCandidates orders cands in place. Relevance mode sorts by score, then
// pixel count; resolution mode swaps the two keys. Remaining ties fall back
// to the image URL so the order never depends on arrival order.
func SortCandidates(cands []Candidate, mode SortMode) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if mode == SortResolution {
			if a.Pixels() != b.Pixels() {
				return a.Pixels() > b.Pixels()
			}
			if a.QualityScore != b.QualityScore {
				return a.QualityScore > b.QualityScore
			}
		} else {
			if a.QualityScore != b.QualityScore {
				return a.QualityScore > b.QualityScore
			}
			if a.Pixels() != b.Pixels() {
				return a.Pixels() > b.Pixels()
			}
		}
		if a.ImageURL != b.ImageURL {
			return a.ImageURL < b.ImageURL
		}
		return a.PageURL < b.PageURL
	})
}
