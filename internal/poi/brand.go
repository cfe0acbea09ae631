package poi

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// MatchBrand reports whether a store name belongs to brand. Matching ignores
// case and spaces, accepts the brand anywhere in the name, and tolerates a
// single typo in the name's leading token ("GS25" vs "GS 25", "CU" vs "cu",
// "세븐일레븐" vs "세븐일래븐").
func MatchBrand(name, brand string) bool {
	n := normalize(name)
	b := normalize(brand)
	if b == "" {
		return true
	}
	if n == "" {
		return false
	}
	if strings.Contains(n, b) {
		return true
	}

	fields := strings.Fields(strings.ToLower(name))
	if len(fields) == 0 {
		return false
	}
	lead := fields[0]
	// short brands like "CU" would match almost anything with one edit
	if len([]rune(b)) < 3 {
		return false
	}
	return levenshtein.ComputeDistance(lead, b) <= 1
}

func normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}
