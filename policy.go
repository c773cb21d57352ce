package hirezzie

import (
	"net/url"
	"strings"
)

// DefaultBlockedDomains are sources whose images are either unusable at full
// resolution (social platforms, retail thumbnails) or watermarked stock previews.
// Entries ending in "." or without a dot match as host substrings; full
// domains ("x.com") match the host or any of its subdomains.
var DefaultBlockedDomains = []string{
	// social platforms
	"facebook.", "fbcdn.", "instagram.", "cdninstagram.", "twitter.", "twimg.",
	"x.com", "tiktok.", "pinterest.", "pinimg.", "reddit.", "redd.it",
	"tumblr.", "linkedin.", "snapchat.", "threads.net",
	// stock photo agencies
	"shutterstock", "gettyimages", "istockphoto", "adobestock", "stock.adobe.com",
	"depositphotos", "dreamstime", "123rf", "alamy", "bigstockphoto",
	"stocksy", "pond5", "canstockphoto", "masterfile", "superstock",
	"agefotostock", "colourbox", "vectorstock", "freepik",
	// retail / e-commerce
	"amazon.", "ebay.", "etsy.", "walmart.", "aliexpress.", "alibaba.",
	"target.com", "bestbuy.", "wish.com", "temu.", "shein.", "zalando.",
}

// BlockedURLPatterns are URL path segments that indicate stock or product pages.
var BlockedURLPatterns = []string{
	"/stock-photo",
	"/stock-image",
	"/editorial-image",
	"/premium-photo",
	"/dp/",
	"/itm/",
}

// IsBlockedSource reports whether the image or its hosting page matches the
// block list (host substring) or a blocked URL path pattern. Both URLs are
// checked: an image on a neutral CDN may still come from a blocked page.
func IsBlockedSource(imageURL, pageURL string, blocked []string) bool {
	for _, u := range []string{imageURL, pageURL} {
		if isBlockedURL(u, blocked) {
			return true
		}
	}
	return false
}

func isBlockedURL(rawURL string, blocked []string) bool {
	if rawURL == "" {
		return false
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := normalizeHost(parsed.Hostname())
	if host != "" {
		for _, d := range blocked {
			if hostMatches(host, d) {
				return true
			}
		}
	}
	p := strings.ToLower(parsed.Path)
	for _, pat := range BlockedURLPatterns {
		if strings.Contains(p, pat) {
			return true
		}
	}
	return false
}

func hostMatches(host, entry string) bool {
	if entry == "" {
		return false
	}
	if strings.HasSuffix(entry, ".") || !strings.Contains(entry, ".") {
		return strings.Contains(host, entry)
	}
	return host == entry || strings.HasSuffix(host, "."+entry)
}
