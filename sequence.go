package page2cbr

import (
	"sort"
	"strings"
)

// sequenceCandidates turns the extractor output into the final download
// order: extension filter (unless disabled), truncation to MaxImages, then
// a stable natural sort. An empty result is a terminal condition.
func (arc *Archiver) sequenceCandidates(urls []string) ([]string, error) {
	if !arc.DisableExtFilter {
		filtered := urls[:0]
		for _, u := range urls {
			if isProbablyImageURL(u) {
				filtered = append(filtered, u)
			}
		}
		urls = filtered
	}

	if arc.MaxImages > 0 && len(urls) > arc.MaxImages {
		urls = urls[:arc.MaxImages]
	}

	if len(urls) == 0 {
		return nil, ErrNoCandidates
	}

	sort.SliceStable(urls, func(i, j int) bool {
		return naturalLess(urls[i], urls[j])
	})

	return urls, nil
}

func isASCIIDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func lowerASCII(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}

// naturalLess orders strings so that embedded integer runs compare by value
// rather than lexicographically: "img2.jpg" sorts before "img10.jpg".
// Alphabetic runs compare case-insensitively.
func naturalLess(a, b string) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if isASCIIDigit(a[i]) && isASCIIDigit(b[j]) {
			start := i
			for i < len(a) && isASCIIDigit(a[i]) {
				i++
			}
			numA := strings.TrimLeft(a[start:i], "0")

			start = j
			for j < len(b) && isASCIIDigit(b[j]) {
				j++
			}
			numB := strings.TrimLeft(b[start:j], "0")

			// Stripped of leading zeroes, a longer run is a bigger number.
			if len(numA) != len(numB) {
				return len(numA) < len(numB)
			}
			if numA != numB {
				return numA < numB
			}
			continue
		}

		ca, cb := lowerASCII(a[i]), lowerASCII(b[j])
		if ca != cb {
			return ca < cb
		}
		i++
		j++
	}

	return len(a)-i < len(b)-j
}
