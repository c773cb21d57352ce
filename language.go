package hirezzie

import (
	"strings"
	"unicode"

	"github.com/pemistahl/lingua-go"
)

// LanguageDetector decides whether candidate text is English.
type LanguageDetector interface {
	IsEnglish(text string) bool
}

// nonLatinScripts are the scripts whose presence marks text as non-English.
var nonLatinScripts = []*unicode.RangeTable{
	unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul,
	unicode.Cyrillic, unicode.Arabic, unicode.Hebrew, unicode.Thai,
	unicode.Devanagari, unicode.Greek, unicode.Bengali, unicode.Tamil,
}

// ScriptDetector flags any letter from a non-Latin script.
type ScriptDetector struct{}

func (ScriptDetector) IsEnglish(text string) bool {
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		for _, t := range nonLatinScripts {
			if unicode.Is(t, r) {
				return false
			}
		}
	}
	return true
}

// minLinguaWords is the shortest text handed to the statistical detector;
// shorter strings (names, two-word titles) are judged on script alone.
const minLinguaWords = 4

// LinguaDetector runs the script check, then a statistical language model
// over Latin-script text.
type LinguaDetector struct {
	detector lingua.LanguageDetector
}

// NewLinguaDetector builds a detector over the given languages. English is
// always included; with no arguments a set of common Latin-script languages
// is used. Building loads language models and is slow: do it once.
func NewLinguaDetector(languages ...lingua.Language) *LinguaDetector {
	if len(languages) == 0 {
		languages = []lingua.Language{
			lingua.French, lingua.German, lingua.Spanish, lingua.Portuguese,
			lingua.Italian, lingua.Dutch, lingua.Polish, lingua.Turkish,
			lingua.Indonesian, lingua.Vietnamese,
		}
	}
	hasEnglish := false
	for _, l := range languages {
		if l == lingua.English {
			hasEnglish = true
		}
	}
	if !hasEnglish {
		languages = append(languages, lingua.English)
	}
	return &LinguaDetector{
		detector: lingua.NewLanguageDetectorBuilder().
			FromLanguages(languages...).
			WithPreloadedLanguageModels().
			Build(),
	}
}

func (d *LinguaDetector) IsEnglish(text string) bool {
	if !(ScriptDetector{}).IsEnglish(text) {
		return false
	}
	if len(strings.Fields(text)) < minLinguaWords {
		return true
	}
	lang, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return true
	}
	return lang == lingua.English
}
