package page2cbr

import (
	nurl "net/url"
	"strings"

	"github.com/go-shiori/dom"
	"golang.org/x/net/html"
)

// imgSrcAttrs are the attributes of an img element that may carry the image
// URL. Lazy loaders stash the real URL in data-* aliases and leave src
// pointing at a placeholder, so all of them are consulted.
var imgSrcAttrs = []string{"src", "data-src", "data-original", "data-lazy", "data-img", "data-image"}

// extractImageURLs scans the page for candidate image URLs using three
// signal sources: img element attributes (srcset included), anchors whose
// target looks like an image file, and a raw text scan for absolute URLs
// embedded anywhere else (e.g. inside inline scripts). The union is
// normalized, resolved against baseURL and deduplicated keeping first-seen
// order. Malformed or empty HTML yields an empty slice.
func extractImageURLs(baseURL *nurl.URL, pageHTML string) []string {
	var found []string

	doc, err := html.Parse(strings.NewReader(pageHTML))
	if err == nil {
		for _, img := range dom.GetElementsByTagName(doc, "img") {
			for _, attr := range imgSrcAttrs {
				if val := dom.GetAttribute(img, attr); val != "" {
					found = append(found, val)
				}
			}

			srcset := dom.GetAttribute(img, "srcset")
			if srcset == "" {
				srcset = dom.GetAttribute(img, "data-srcset")
			}
			found = append(found, parseSrcset(srcset)...)
		}

		for _, a := range dom.GetElementsByTagName(doc, "a") {
			href := dom.GetAttribute(a, "href")
			if href != "" && isProbablyImageURL(href) {
				found = append(found, href)
			}
		}
	}

	// Last resort pass over the raw text.
	for _, raw := range rxAbsoluteURL.FindAllString(pageHTML, -1) {
		if isProbablyImageURL(raw) {
			found = append(found, raw)
		}
	}

	seen := make(map[string]struct{})
	var urls []string
	for _, raw := range found {
		cleaned := cleanRawValue(raw)
		if cleaned == "" {
			continue
		}

		absURL := createAbsoluteURL(cleaned, baseURL)
		if absURL == "" {
			continue
		}

		if _, exist := seen[absURL]; exist {
			continue
		}
		seen[absURL] = struct{}{}
		urls = append(urls, absURL)
	}

	return urls
}

// parseSrcset splits a srcset value into its URLs, dropping the size and
// density descriptors ("url 2x" or "url 1200w").
func parseSrcset(srcset string) []string {
	var urls []string
	for _, entry := range strings.Split(srcset, ",") {
		fields := strings.Fields(entry)
		if len(fields) == 0 {
			continue
		}
		urls = append(urls, fields[0])
	}
	return urls
}
