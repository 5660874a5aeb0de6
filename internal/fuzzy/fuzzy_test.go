package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDigitDistance_Identical(t *testing.T) {
	assert.Equal(t, 0, DigitDistance("9876543210", "9876543210"))
}

func TestDigitDistance_SingleTypo(t *testing.T) {
	assert.Equal(t, 1, DigitDistance("9876543210", "9876543211"))
}

func TestDigitDistance_TwoTypos(t *testing.T) {
	assert.Equal(t, 2, DigitDistance("9876543210", "9876543302"))
}

func TestDigitDistance_LengthMismatchIsInfinite(t *testing.T) {
	assert.Equal(t, 10, DigitDistance("98765", "9876543210"))
	assert.Equal(t, 10, DigitDistance("", "9876543210"))
	assert.Equal(t, 10, DigitDistance("", ""))
}

func TestDigitDistance_AllDifferent(t *testing.T) {
	assert.Equal(t, 10, DigitDistance("0000000000", "1111111111"))
}

func TestSimilarity_Identical(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("maharajganj", "maharajganj"))
}

func TestSimilarity_EmptyStrings(t *testing.T) {
	assert.Equal(t, 0.0, Similarity("", "maharajganj"))
	assert.Equal(t, 0.0, Similarity("maharajganj", ""))
	assert.Equal(t, 0.0, Similarity("", ""))
}

func TestSimilarity_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"maharajganj", "maharajgang"},
		{"patna sadar", "patna saddar"},
		{"danapur", "dinapur"},
		{"ravi kumar", "ravi kumar singh"},
	}
	for _, p := range pairs {
		assert.Equal(t, Similarity(p[0], p[1]), Similarity(p[1], p[0]), "pair %v", p)
	}
}

func TestSimilarity_Bounds(t *testing.T) {
	pairs := [][2]string{
		{"abc", "xyz"},
		{"maharajganj", "mahrajganj"},
		{"a", "ab"},
		{"completely unrelated", "zq"},
	}
	for _, p := range pairs {
		s := Similarity(p[0], p[1])
		assert.GreaterOrEqual(t, s, 0.0, "pair %v", p)
		assert.LessOrEqual(t, s, 1.0, "pair %v", p)
	}
}

func TestSimilarity_NoCommonCharacters(t *testing.T) {
	assert.Equal(t, 0.0, Similarity("abc", "xyz"))
}

func TestSimilarity_PrefixBoost(t *testing.T) {
	// Shared prefixes score higher than the same edits mid-string.
	withPrefix := Similarity("maharajganj", "maharajgxnj")
	noPrefix := Similarity("xaharajganj", "maharajganj")
	assert.Greater(t, withPrefix, noPrefix)
}

func TestSimilarity_SingleTypoScoresHigh(t *testing.T) {
	assert.GreaterOrEqual(t, Similarity("maharajganj", "maharajgang"), 0.93)
}

func TestTierFor_Thresholds(t *testing.T) {
	assert.Equal(t, TierHigh, TierFor(1.0))
	assert.Equal(t, TierHigh, TierFor(0.93))
	assert.Equal(t, TierMedium, TierFor(0.92))
	assert.Equal(t, TierMedium, TierFor(0.88))
	assert.Equal(t, TierLow, TierFor(0.87))
	assert.Equal(t, TierLow, TierFor(0.82))
	assert.Equal(t, TierUnmatched, TierFor(0.81))
	assert.Equal(t, TierUnmatched, TierFor(0.0))
}

func TestTierFor_Monotonic(t *testing.T) {
	// Higher scores never yield a lower tier.
	rank := map[ConfidenceTier]int{
		TierUnmatched: 0, TierLow: 1, TierMedium: 2, TierHigh: 3,
	}
	scores := []float64{0.0, 0.5, 0.82, 0.85, 0.88, 0.9, 0.93, 0.99, 1.0}
	for i := 1; i < len(scores); i++ {
		assert.GreaterOrEqual(t,
			rank[TierFor(scores[i])], rank[TierFor(scores[i-1])],
			"score %v vs %v", scores[i], scores[i-1])
	}
}

func TestConfidenceTier_Matched(t *testing.T) {
	assert.True(t, TierHigh.Matched())
	assert.True(t, TierMedium.Matched())
	assert.True(t, TierLow.Matched())
	assert.False(t, TierUnmatched.Matched())
	assert.False(t, ConfidenceTier("").Matched())
}
