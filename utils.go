package page2cbr

import (
	"html"
	nurl "net/url"
	"regexp"
	"strings"
)

var (
	rxImageURL    = regexp.MustCompile(`(?i)\.(jpe?g|png|gif|webp|bmp|tiff?)([?#]|$)`)
	rxAbsoluteURL = regexp.MustCompile(`https?://[^\s'"<>]+`)
)

// isProbablyImageURL reports whether the URL path ends with a known image
// extension, optionally followed by a query string or fragment.
func isProbablyImageURL(s string) bool {
	return rxImageURL.MatchString(s)
}

// cleanRawValue normalizes a raw attribute or text value: HTML entities are
// unescaped, surrounding whitespace is trimmed and one layer of matching
// quotes is stripped.
func cleanRawValue(s string) string {
	s = strings.TrimSpace(html.UnescapeString(s))

	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '"' || first == '\'') {
			s = s[1 : len(s)-1]
		}
	}

	return strings.TrimSpace(s)
}

// createAbsoluteURL converts url to absolute path based on base.
func createAbsoluteURL(url string, base *nurl.URL) string {
	if url == "" || base == nil {
		return ""
	}

	// If it is already an absolute URL, return it as it is
	tmp, err := nurl.ParseRequestURI(url)
	if err == nil && tmp.Scheme != "" && tmp.Hostname() != "" {
		return tmp.String()
	}

	// Otherwise, resolve against base URL.
	tmp, err = nurl.Parse(url)
	if err != nil {
		return ""
	}

	return base.ResolveReference(tmp).String()
}
