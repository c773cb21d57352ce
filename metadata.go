package hirezzie

import (
	"bytes"
	"strings"

	"github.com/bep/imagemeta"
)

// ImageMetadata holds the rights and attribution fields read from EXIF, IPTC
// and XMP. Only fields that can carry a stock-agency name are kept.
type ImageMetadata struct {
	Copyright string // EXIF Copyright / IPTC CopyrightNotice / XMP Rights
	Artist    string // EXIF Artist / IPTC Byline / XMP Creator
	Credit    string // IPTC Credit
	Source    string // IPTC Source
}

// stockAgencies are substrings that identify a stock-photo agency when found
// (case-insensitive) in any metadata field.
var stockAgencies = []string{
	"shutterstock", "gettyimages", "getty images", "istockphoto", "istock",
	"alamy", "depositphotos", "dreamstime", "123rf", "adobestock", "adobe stock",
	"bigstockphoto", "stocksy", "pond5", "masterfile", "superstock",
	"agefotostock", "age fotostock", "colourbox", "vectorstock", "freepik",
	"canstockphoto",
}

// StockAgency returns the stock agency named in meta, or "" if none.
func StockAgency(meta *ImageMetadata) string {
	if meta == nil {
		return ""
	}
	for _, f := range []string{meta.Copyright, meta.Artist, meta.Credit, meta.Source} {
		if f == "" {
			continue
		}
		lower := strings.ToLower(f)
		for _, kw := range stockAgencies {
			if strings.Contains(lower, kw) {
				return kw
			}
		}
	}
	return ""
}

var wantedTags = map[imagemeta.Source]map[string]bool{
	imagemeta.IPTC: {"CopyrightNotice": true, "Credit": true, "Byline": true, "Source": true},
	imagemeta.EXIF: {"Copyright": true, "Artist": true},
	imagemeta.XMP:  {"Rights": true, "Creator": true},
}

// ExtractImageMetadata parses EXIF/IPTC/XMP metadata from (possibly truncated)
// image bytes. Returns nil when nothing useful could be read; never errors.
func ExtractImageMetadata(data []byte) *ImageMetadata {
	if len(data) == 0 {
		return nil
	}

	meta := &ImageMetadata{}
	found := false
	set := func(dst *string, v any) {
		if *dst != "" {
			return
		}
		if s := tagValueString(v); s != "" {
			*dst = s
			found = true
		}
	}

	// Truncated files fail late; whatever was read before the error still counts.
	_, _ = imagemeta.Decode(imagemeta.Options{
		R:       bytes.NewReader(data),
		Sources: imagemeta.EXIF | imagemeta.IPTC | imagemeta.XMP,
		ShouldHandleTag: func(ti imagemeta.TagInfo) bool {
			return wantedTags[ti.Source][ti.Tag]
		},
		HandleTag: func(ti imagemeta.TagInfo) error {
			switch ti.Tag {
			case "Copyright", "CopyrightNotice", "Rights":
				set(&meta.Copyright, ti.Value)
			case "Artist", "Byline", "Creator":
				set(&meta.Artist, ti.Value)
			case "Credit":
				set(&meta.Credit, ti.Value)
			case "Source":
				set(&meta.Source, ti.Value)
			}
			return nil
		},
	})
	if !found {
		return nil
	}
	return meta
}

// tagValueString extracts a string from a tag value.
// XMP values may be string or []string (from altList/seqList).
func tagValueString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case []string:
		if len(val) > 0 {
			return strings.TrimSpace(val[0])
		}
	case []any:
		if len(val) > 0 {
			if s, ok := val[0].(string); ok {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}
