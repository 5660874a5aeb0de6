// Package fuzzy provides the bounded approximate-matching primitives the
// resolvers are built on: positional digit distance for phone near-matches
// and Jaro-Winkler similarity for names.
package fuzzy

// MaxPhoneDistance is the largest digit difference still treated as a
// plausible typo between two phone keys. Anything further apart is an
// unrelated number, not a correction candidate.
const MaxPhoneDistance = 2

// digitDistanceInf is returned for keys of different lengths, which can
// never be typo variants of each other.
const digitDistanceInf = 10

// DigitDistance counts positions at which two equal-length digit strings
// differ. Strings of different lengths get the sentinel distance 10.
func DigitDistance(a, b string) int {
	if len(a) != len(b) || a == "" {
		return digitDistanceInf
	}
	diff := 0
	for i := 0; i < len(a); i++ {
		if a[i] != b[i] {
			diff++
		}
	}
	return diff
}

const (
	winklerPrefixMax = 4
	winklerScale     = 0.1
)

// Similarity returns the Jaro-Winkler similarity of two strings in [0,1]:
// 1 for identical strings, 0 if either is empty, with the standard prefix
// boost of up to 4 leading matching characters at scaling factor 0.1.
// Callers are expected to normalize inputs first; Similarity itself does no
// case folding.
func Similarity(a, b string) float64 {
	if a == b {
		if a == "" {
			return 0
		}
		return 1
	}

	ra := []rune(a)
	rb := []rune(b)
	la := len(ra)
	lb := len(rb)
	if la == 0 || lb == 0 {
		return 0
	}

	matchDistance := max(la, lb)/2 - 1
	if matchDistance < 0 {
		matchDistance = 0
	}
	aMatched := make([]bool, la)
	bMatched := make([]bool, lb)

	matches := 0
	for i := 0; i < la; i++ {
		start := max(0, i-matchDistance)
		end := min(i+matchDistance+1, lb)
		for j := start; j < end; j++ {
			if bMatched[j] || ra[i] != rb[j] {
				continue
			}
			aMatched[i] = true
			bMatched[j] = true
			matches++
			break
		}
	}
	if matches == 0 {
		return 0
	}

	transpositions := 0
	k := 0
	for i := 0; i < la; i++ {
		if !aMatched[i] {
			continue
		}
		for !bMatched[k] {
			k++
		}
		if ra[i] != rb[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	jaro := (m/float64(la) + m/float64(lb) + (m-float64(transpositions)/2)/m) / 3

	prefix := 0
	for i := 0; i < min(winklerPrefixMax, min(la, lb)); i++ {
		if ra[i] != rb[i] {
			break
		}
		prefix++
	}

	return jaro + float64(prefix)*winklerScale*(1-jaro)
}

// ConfidenceTier labels a similarity score. The thresholds are fixed
// contract values so confidence labels are comparable across the whole
// pipeline, not tunable per call.
type ConfidenceTier string

const (
	TierHigh      ConfidenceTier = "high"
	TierMedium    ConfidenceTier = "medium"
	TierLow       ConfidenceTier = "low"
	TierUnmatched ConfidenceTier = "unmatched"
)

const (
	thresholdHigh   = 0.93
	thresholdMedium = 0.88
	thresholdLow    = 0.82
)

// TierFor maps a similarity score to its confidence tier.
func TierFor(score float64) ConfidenceTier {
	switch {
	case score >= thresholdHigh:
		return TierHigh
	case score >= thresholdMedium:
		return TierMedium
	case score >= thresholdLow:
		return TierLow
	default:
		return TierUnmatched
	}
}

// Matched reports whether the tier represents any usable match.
func (t ConfidenceTier) Matched() bool {
	return t != TierUnmatched && t != ""
}
