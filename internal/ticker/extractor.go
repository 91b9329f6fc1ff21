package ticker

import (
	"sort"
	"strings"
)

// Extract scans free-form text for ticker candidates and validates them
// against the universe. A candidate is 1-5 letters with an optional
// leading '$' and an optional 1-2 letter class suffix joined by '.' or
// '-', bounded by non-alphanumerics or string edges. '-' suffixes are
// normalized to '.' before validation (BRK-A -> BRK.A); matching is
// case-insensitive.
//
// Pure function: no I/O, no side effects. The result is deduplicated and
// sorted ascending; each text span contributes at most one candidate.
func Extract(text string, universe *Universe) []string {
	if text == "" || universe == nil {
		return nil
	}

	found := make(map[string]struct{})
	i := 0
	for i < len(text) {
		// A candidate must begin at a word boundary.
		if i > 0 && isAlnum(text[i-1]) {
			i++
			continue
		}

		j := i
		if j < len(text) && text[j] == '$' {
			j++
		}

		k := j
		for k < len(text) && k-j < 5 && isLetter(text[k]) {
			k++
		}
		if k == j {
			i = j + 1
			continue
		}
		// Core longer than 5 letters or running into digits is not a
		// ticker; skip the whole alphanumeric run so no inner span of it
		// is counted.
		if k < len(text) && isAlnum(text[k]) {
			for k < len(text) && isAlnum(text[k]) {
				k++
			}
			i = k
			continue
		}

		candidate := text[j:k]
		end := k

		// Optional class suffix: '.' or '-' plus 1-2 letters, then a
		// boundary. A failed suffix leaves the core candidate intact and
		// the separator becomes the next boundary.
		if k < len(text) && (text[k] == '.' || text[k] == '-') {
			s := k + 1
			m := s
			for m < len(text) && m-s < 2 && isLetter(text[m]) {
				m++
			}
			if m > s && (m == len(text) || !isAlnum(text[m])) {
				candidate = candidate + "." + text[s:m]
				end = m
			}
		}

		norm := strings.ToUpper(strings.ReplaceAll(candidate, "-", "."))
		if universe.Contains(norm) {
			found[norm] = struct{}{}
		}
		i = end
	}

	if len(found) == 0 {
		return nil
	}
	out := make([]string, 0, len(found))
	for s := range found {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isAlnum(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9')
}
