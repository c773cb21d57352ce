package hirezzie

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// QueryEntities is the read-only decomposition of one query.
type QueryEntities struct {
	Entities      []string `yaml:"entities"`       // 0, 1 or 2+ named subjects, in query order
	Phrases       []string `yaml:"phrases"`        // quoted sub-phrases, in query order
	ResidualTerms []string `yaml:"residual_terms"` // lowercased significant words outside phrases
	Paired        bool     `yaml:"paired"`         // entities came from the token-count heuristic
}

// IsMultiEntity reports whether the query names two or more subjects.
func (q QueryEntities) IsMultiEntity() bool {
	return len(q.Entities) > 1
}

// QueryAnalyzer decomposes a raw query. Implementations must be deterministic
// and free of side effects.
type QueryAnalyzer interface {
	Analyze(query string) QueryEntities
}

// connectorWords separate subjects in multi-subject queries.
var connectorWords = map[string]bool{
	"and": true, "&": true, "vs": true, "vs.": true, "versus": true,
	"x": true, "with": true, ",": true, "+": true,
	"feat": true, "feat.": true, "ft": true, "ft.": true, "featuring": true,
}

// stopWords are dropped from residual terms.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "in": true, "on": true,
	"at": true, "to": true, "for": true, "by": true, "from": true, "is": true,
	"are": true, "or": true, "de": true, "la": true, "le": true,
}

var phraseRe = regexp.MustCompile(`["“”]([^"“”]+)["“”]`)

// minTermRunes is the minimum rune count for a residual term.
const minTermRunes = 2

// HeuristicAnalyzer splits on connector words and, when none are present,
// guesses subject boundaries from the token count (3-6 tokens). The guess is
// best-effort: a three-word single subject ("Rage Against Machine") is read as
// two entities. Set NoPairing to disable the guess.
type HeuristicAnalyzer struct {
	NoPairing bool
}

// ConnectorAnalyzer only splits on explicit connectors.
type ConnectorAnalyzer struct{}

// Analyze runs the default HeuristicAnalyzer.
func Analyze(query string) QueryEntities {
	return HeuristicAnalyzer{}.Analyze(query)
}

func (a HeuristicAnalyzer) Analyze(query string) QueryEntities {
	return analyze(query, !a.NoPairing)
}

func (ConnectorAnalyzer) Analyze(query string) QueryEntities {
	return analyze(query, false)
}

// queryToken is either a single word or a whole quoted phrase.
type queryToken struct {
	text   string
	phrase bool
}

func analyze(query string, pairing bool) QueryEntities {
	var out QueryEntities
	tokens := tokenizeQuery(query)

	seenPhrase := map[string]bool{}
	seenTerm := map[string]bool{}
	var groups [][]queryToken
	var cur []queryToken
	sawConnector := false
	for _, tok := range tokens {
		if tok.phrase {
			key := strings.ToLower(tok.text)
			if !seenPhrase[key] {
				seenPhrase[key] = true
				out.Phrases = append(out.Phrases, tok.text)
			}
			cur = append(cur, tok)
			continue
		}
		lower := strings.ToLower(tok.text)
		if connectorWords[lower] {
			sawConnector = true
			if len(cur) > 0 {
				groups = append(groups, cur)
			}
			cur = nil
			continue
		}
		cur = append(cur, tok)
		term := strings.Trim(lower, ".,;:!?'()[]{}")
		if term == "" || stopWords[term] || utf8.RuneCountInString(term) < minTermRunes || seenTerm[term] {
			continue
		}
		seenTerm[term] = true
		out.ResidualTerms = append(out.ResidualTerms, term)
	}
	if len(cur) > 0 {
		groups = append(groups, cur)
	}

	if !sawConnector && pairing && len(groups) == 1 && len(out.Phrases) == 0 {
		if split := pairTokens(groups[0]); split != nil {
			groups = split
			out.Paired = true
		}
	}

	seenEntity := map[string]bool{}
	for _, g := range groups {
		e := joinTokens(g)
		key := strings.ToLower(e)
		if e == "" || seenEntity[key] {
			continue
		}
		seenEntity[key] = true
		out.Entities = append(out.Entities, e)
	}
	return out
}

// tokenizeQuery splits query into words, keeping quoted phrases whole and
// detaching the ",", "&" and "+" separators from neighbouring words.
func tokenizeQuery(query string) []queryToken {
	var tokens []queryToken
	rest := query
	for {
		loc := phraseRe.FindStringSubmatchIndex(rest)
		if loc == nil {
			tokens = append(tokens, splitWords(rest)...)
			return tokens
		}
		tokens = append(tokens, splitWords(rest[:loc[0]])...)
		if p := strings.Join(strings.Fields(rest[loc[2]:loc[3]]), " "); p != "" {
			tokens = append(tokens, queryToken{text: p, phrase: true})
		}
		rest = rest[loc[1]:]
	}
}

var separatorReplacer = strings.NewReplacer(",", " , ", "&", " & ", "+", " + ")

func splitWords(s string) []queryToken {
	fields := strings.Fields(separatorReplacer.Replace(s))
	tokens := make([]queryToken, 0, len(fields))
	for _, f := range fields {
		tokens = append(tokens, queryToken{text: f})
	}
	return tokens
}

func joinTokens(toks []queryToken) string {
	parts := make([]string, 0, len(toks))
	for _, t := range toks {
		w := t.text
		if !t.phrase {
			w = strings.Trim(w, ".;:!?()[]{}")
		}
		if w != "" {
			parts = append(parts, w)
		}
	}
	return strings.Join(parts, " ")
}

// pairTokens guesses two or more subjects inside a connector-free query:
// 3 tokens -> 2+1, 4 -> 2+2, 5 -> 2+3, 6 -> 3+3.
func pairTokens(toks []queryToken) [][]queryToken {
	var cut int
	switch len(toks) {
	case 3, 4, 5:
		cut = 2
	case 6:
		cut = 3
	default:
		return nil
	}
	return [][]queryToken{toks[:cut], toks[cut:]}
}
