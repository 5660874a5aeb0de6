// Package normalize canonicalizes the two identity signals the sheets carry:
// phone numbers and administrative-region names. Everything here is pure and
// deterministic; the resolver relies on that to stay replayable.
package normalize

import (
	"regexp"
	"strings"

	"github.com/sangam-labs/fieldops-cli/internal/model"
)

var digitRunRe = regexp.MustCompile(`[0-9]+`)

// PhoneKeys extracts every valid phone key from a raw cell value. Cells in
// the field sheets routinely hold country codes, punctuation, and sometimes
// two numbers separated by free text, so candidates come from two readings:
// each contiguous digit run of at least 10 digits (last 10 kept), and the
// concatenation of all digits in the cell (last 10 kept) — the latter covers
// numbers split by spacing like "+91-98765 43210". Duplicates are removed
// preserving first-seen order.
func PhoneKeys(raw string) []model.PhoneKey {
	if raw == "" {
		return nil
	}

	runs := digitRunRe.FindAllString(raw, -1)
	if len(runs) == 0 {
		return nil
	}

	var keys []model.PhoneKey
	seen := make(map[model.PhoneKey]bool)
	add := func(digits string) {
		if len(digits) > 10 {
			digits = digits[len(digits)-10:]
		}
		if len(digits) != 10 {
			return
		}
		key := model.PhoneKey(digits)
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}

	for _, run := range runs {
		add(run)
	}
	add(strings.Join(runs, ""))

	return keys
}

// PhoneKey returns the first valid key in the raw value, if any.
func PhoneKey(raw string) (model.PhoneKey, bool) {
	keys := PhoneKeys(raw)
	if len(keys) == 0 {
		return "", false
	}
	return keys[0], true
}
