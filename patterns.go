package hirezzie

import (
	"net/url"
	"path"
	"regexp"
	"slices"
	"strings"
	"unicode"
)

// PlaceholderPatterns are file-name words indicating non-photo images.
// Plurals match too.
var PlaceholderPatterns = []string{
	"favicon", "logo", "icon", "banner", "sprite",
	"badge", "button", "widget", "avatar", "placeholder",
}

// placeholderMaxWords is the longest file name, in words, still treated as
// an asset name. "site-logo" and "user-avatar-128" qualify;
// "avatar-premiere-red-carpet" does not.
const placeholderMaxWords = 3

// sizeTokenRe matches file-name words that carry no meaning: 32, 2x, 128px, 64x64.
var sizeTokenRe = regexp.MustCompile(`^\d+(x\d+)?[a-z]{0,2}$`)

// IsPlaceholder reports whether rawURL's file name marks it as a logo, icon
// or similar asset. A pattern must be a whole word of the name, so
// "silicon-valley" and "iconic-bridge" are photos.
func IsPlaceholder(rawURL string) bool {
	words := strings.FieldsFunc(strings.ToLower(fileStem(rawURL)), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	hit, named := false, 0
	for _, w := range words {
		if sizeTokenRe.MatchString(w) {
			continue
		}
		named++
		if slices.Contains(PlaceholderPatterns, w) || slices.Contains(PlaceholderPatterns, strings.TrimSuffix(w, "s")) {
			hit = true
		}
	}
	return hit && named <= placeholderMaxWords
}

// directImageRe matches a path ending in an accepted image extension.
// gif and svg are excluded: they are mostly placeholders and animations.
var directImageRe = regexp.MustCompile(`(?i)\.(jpe?g|png|webp|avif)$`)

// IsDirectImageURL reports whether the URL path ends in an accepted image extension.
func IsDirectImageURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return directImageRe.MatchString(u.Path)
}

// allowedMIME lists the content types accepted for URLs without a recognised extension.
var allowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
	"image/avif": true,
}

// IsAllowedContentType reports whether ct (parameters allowed) is an accepted image type.
func IsAllowedContentType(ct string) bool {
	if idx := strings.IndexByte(ct, ';'); idx >= 0 {
		ct = ct[:idx]
	}
	return allowedMIME[strings.ToLower(strings.TrimSpace(ct))]
}

func extractHost(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return normalizeHost(parsed.Hostname())
}

func normalizeHost(host string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(host)), "www.")
}

// urlWords turns a URL into searchable words: host labels and path segments
// split on punctuation ("/2024/olivia-wilde_set.jpg" -> "2024 olivia wilde set jpg").
func urlWords(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	p, _ := url.PathUnescape(u.Path)
	return strings.Join(strings.FieldsFunc(strings.ToLower(u.Hostname()+" "+p), isWordSeparator), " ")
}

func isWordSeparator(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	case r > 127:
		return false
	default:
		return true
	}
}

// fileStem returns the last path segment of rawURL without its extension.
func fileStem(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." {
		return ""
	}
	if dec, err := url.PathUnescape(base); err == nil {
		base = dec
	}
	return strings.TrimSuffix(base, path.Ext(base))
}
