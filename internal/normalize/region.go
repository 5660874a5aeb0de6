package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// Reservation-category suffixes like "(SC)", "(ST)", "(General)" appear
	// inconsistently across sheets and never disambiguate a region.
	categorySuffixRe = regexp.MustCompile(`(?i)\((sc|st|general)\)`)

	// Constituency-number prefixes like "112-Maharajganj" or "112 Maharajganj".
	leadingNumberRe = regexp.MustCompile(`^[0-9]+[\s.\-]+`)

	bracketPunctRe = regexp.MustCompile(`[()\[\]{}.,]`)
	hyphenRe       = regexp.MustCompile(`[-_]+`)
	multiSpaceRe   = regexp.MustCompile(`\s+`)

	// Strips combining marks left behind by NFD decomposition.
	diacriticFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Region canonicalizes a free-text region name for matching: diacritics are
// folded, fancy quotes and dashes unified, category suffixes and constituency
// numbers stripped, and all punctuation collapsed to single spaces.
func Region(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	if folded, _, err := transform.String(diacriticFold, s); err == nil {
		s = folded
	}
	s = strings.ToLower(s)

	s = strings.NewReplacer(
		"’", "'", "‘", "'", "`", "'",
		"–", "-", "—", "-",
	).Replace(s)

	s = leadingNumberRe.ReplaceAllString(s, "")
	s = categorySuffixRe.ReplaceAllString(s, "")
	s = bracketPunctRe.ReplaceAllString(s, " ")
	s = hyphenRe.ReplaceAllString(s, " ")
	s = multiSpaceRe.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}

// Name canonicalizes a person name for exact-match lookups: trimmed,
// internal whitespace collapsed, lowercased.
func Name(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	s = multiSpaceRe.ReplaceAllString(s, " ")
	return strings.ToLower(s)
}
