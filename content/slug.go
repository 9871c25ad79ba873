package content

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FoldAccents strips combining marks, turning "Crème" into "Creme". The
// transformer chain is stateful, so each call builds its own.
func FoldAccents(s string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, s)
	if err != nil {
		return s
	}
	return folded
}

// Slugify converts a title to a URL-safe slug. Accents are folded to their
// base letters; everything that is not an ASCII letter or digit becomes a
// single hyphen.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(FoldAccents(s)))
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// SlugSet hands out unique slugs in claim order.
type SlugSet struct {
	taken map[string]bool
}

// NewSlugSet returns an empty set.
func NewSlugSet() *SlugSet {
	return &SlugSet{taken: make(map[string]bool)}
}

// Reserve marks base as taken without suffixing it. It reports false if base
// was already taken.
func (s *SlugSet) Reserve(base string) bool {
	if s.taken[base] {
		return false
	}
	s.taken[base] = true
	return true
}

// Claim returns base if free, otherwise the first free base-2, base-3, ...
func (s *SlugSet) Claim(base string) string {
	if s.Reserve(base) {
		return base
	}
	for n := 2; ; n++ {
		candidate := base + "-" + strconv.Itoa(n)
		if s.Reserve(candidate) {
			return candidate
		}
	}
}
