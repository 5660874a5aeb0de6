// Package region resolves free-text administrative-region names against the
// canonical reference list. The resolver never invents a region: it either
// selects a reference entry or reports the cleaned text as unmatched.
package region

import (
	"github.com/rotisserie/eris"

	"github.com/sangam-labs/fieldops-cli/internal/fuzzy"
	"github.com/sangam-labs/fieldops-cli/internal/normalize"
)

// Match is the outcome of resolving one raw region name.
type Match struct {
	// Region is the canonical reference entry, or "" when unmatched.
	Region string
	// Cleaned is the normalized input, retained for diagnostics even when
	// no reference entry matched.
	Cleaned string
	Score   float64
	Tier    fuzzy.ConfidenceTier
}

// TieBreak picks between two reference indices whose entries scored equally.
type TieBreak func(current, candidate int) int

// FirstInListOrder is the default tie-break: the entry appearing earlier in
// the reference list wins. Arbitrary but deterministic.
func FirstInListOrder(current, candidate int) int {
	if candidate < current {
		return candidate
	}
	return current
}

// Resolver maps raw region text to canonical reference entries. It is an
// immutable snapshot: build once per run, share freely across goroutines.
type Resolver struct {
	canonical  []string
	normalized []string
	tieBreak   TieBreak
}

// NewResolver builds a resolver over an ordered reference list. Entries are
// deduplicated by normalized form, keeping the first occurrence. An empty
// list is run-level misconfiguration and fails before any record processing.
func NewResolver(reference []string) (*Resolver, error) {
	r := &Resolver{tieBreak: FirstInListOrder}
	seen := make(map[string]bool)
	for _, entry := range reference {
		n := normalize.Region(entry)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		r.canonical = append(r.canonical, entry)
		r.normalized = append(r.normalized, n)
	}
	if len(r.canonical) == 0 {
		return nil, eris.New("region: reference list is empty")
	}
	return r, nil
}

// WithTieBreak returns a copy of the resolver using an alternate tie-break
// policy. Intended for tests and future policy changes.
func (r *Resolver) WithTieBreak(tb TieBreak) *Resolver {
	cp := *r
	cp.tieBreak = tb
	return &cp
}

// Len returns the number of reference entries after deduplication.
func (r *Resolver) Len() int { return len(r.canonical) }

// Resolve scans the full reference list for the best similarity match —
// no early exit, so the true maximum always wins — and labels it with a
// confidence tier. Below the lowest threshold the region stays unresolved
// and only the cleaned text is returned.
func (r *Resolver) Resolve(raw string) Match {
	cleaned := normalize.Region(raw)
	if cleaned == "" {
		return Match{Cleaned: "", Tier: fuzzy.TierUnmatched}
	}

	best := -1
	bestScore := -1.0
	for i, ref := range r.normalized {
		s := fuzzy.Similarity(cleaned, ref)
		switch {
		case s > bestScore:
			best = i
			bestScore = s
		case s == bestScore && best >= 0:
			best = r.tieBreak(best, i)
		}
	}

	tier := fuzzy.TierFor(bestScore)
	if !tier.Matched() {
		return Match{Cleaned: cleaned, Score: bestScore, Tier: fuzzy.TierUnmatched}
	}
	return Match{
		Region:  r.canonical[best],
		Cleaned: cleaned,
		Score:   bestScore,
		Tier:    tier,
	}
}
