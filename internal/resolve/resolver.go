// Package resolve links child records to their declared parents across one
// tier boundary. Matching is phone-first: exact phone key, then a bounded
// fuzzy phone correction, then exact normalized name. A record that cannot
// be linked unambiguously becomes a conflict, never a guessed edge.
package resolve

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sangam-labs/fieldops-cli/internal/fuzzy"
	"github.com/sangam-labs/fieldops-cli/internal/model"
	"github.com/sangam-labs/fieldops-cli/internal/normalize"
)

// Resolution is a successful child→parent match.
type Resolution struct {
	Parent    model.PersonRecord
	MatchedBy model.MatchedBy
	// MatchedKey is the parent phone key the link landed on. Empty for
	// name matches.
	MatchedKey model.PhoneKey
	// Corrected is set when the declared phone did not exist in the index
	// and a unique near-match (digit distance <= fuzzy.MaxPhoneDistance)
	// was taken instead. CorrectedFrom holds the declared key.
	Corrected     bool
	CorrectedFrom model.PhoneKey
	// AmbiguityCount is how many candidates matched before region
	// disambiguation. 1 means the match was unique outright.
	AmbiguityCount int
}

// Conflict is a failed match with its classification and the number of
// competing candidates, kept for the remediation report.
type Conflict struct {
	Reason     model.ConflictReason
	Candidates int
}

// Result is the outcome of resolving one child record: exactly one of
// Resolution or Conflict is set.
type Result struct {
	Resolution *Resolution
	Conflict   *Conflict
}

// Linked reports whether the child was successfully matched to a parent.
func (r Result) Linked() bool { return r.Resolution != nil }

func resolved(res Resolution) Result { return Result{Resolution: &res} }

func conflict(reason model.ConflictReason, candidates int) Result {
	return Result{Conflict: &Conflict{Reason: reason, Candidates: candidates}}
}

// Resolve matches one child record against a parent index.
//
// Order of signals:
//  1. exact phone key, over every key extracted from the declared parent
//     phone cell
//  2. fuzzy phone: a unique index key within digit distance 2 of a declared
//     key is accepted as a typo correction
//  3. exact normalized name
//
// When a signal yields several candidate parents, region equality picks the
// winner; if that still leaves more than one, the record conflicts rather
// than link arbitrarily.
func Resolve(child model.PersonRecord, idx *ParentIndex) Result {
	if child.ParentRef.IsEmpty() {
		return conflict(model.ConflictNoParentCandidate, 0)
	}

	declaredKeys := normalize.PhoneKeys(child.ParentRef.RawPhone)

	for _, key := range declaredKeys {
		candidates := idx.lookupPhone(key)
		if len(candidates) == 0 {
			continue
		}
		if parent, ok := disambiguate(candidates, child.Region); ok {
			return resolved(Resolution{
				Parent:         parent,
				MatchedBy:      model.MatchedByPhone,
				MatchedKey:     key,
				AmbiguityCount: len(candidates),
			})
		}
		return conflict(model.ConflictAmbiguousPhone, len(candidates))
	}

	for _, key := range declaredKeys {
		corrected, ok := fuzzyPhoneKey(key, idx)
		if !ok {
			continue
		}
		candidates := idx.lookupPhone(corrected)
		if parent, ok := disambiguate(candidates, child.Region); ok {
			return resolved(Resolution{
				Parent:         parent,
				MatchedBy:      model.MatchedByPhone,
				MatchedKey:     corrected,
				Corrected:      true,
				CorrectedFrom:  key,
				AmbiguityCount: len(candidates),
			})
		}
		return conflict(model.ConflictAmbiguousPhone, len(candidates))
	}

	if name := normalize.Name(child.ParentRef.RawName); name != "" {
		candidates := idx.lookupName(name)
		if len(candidates) == 0 {
			return conflict(model.ConflictNoParentCandidate, 0)
		}
		if parent, ok := disambiguate(candidates, child.Region); ok {
			return resolved(Resolution{
				Parent:         parent,
				MatchedBy:      model.MatchedByName,
				AmbiguityCount: len(candidates),
			})
		}
		return conflict(model.ConflictAmbiguousName, len(candidates))
	}

	return conflict(model.ConflictNoParentCandidate, 0)
}

// fuzzyPhoneKey scans the index for keys within MaxPhoneDistance of the
// declared key. The correction is taken only when exactly one distinct index
// key qualifies; zero or several near-matches mean the typo cannot be fixed
// safely. The scan order is the index's sorted key list, so the outcome
// never depends on map iteration.
func fuzzyPhoneKey(declared model.PhoneKey, idx *ParentIndex) (model.PhoneKey, bool) {
	var found model.PhoneKey
	for _, key := range idx.phoneKeys {
		if fuzzy.DigitDistance(string(declared), string(key)) > fuzzy.MaxPhoneDistance {
			continue
		}
		if found != "" {
			return "", false
		}
		found = key
	}
	return found, found != ""
}

// disambiguate returns the single candidate, or, among several, the single
// one whose canonical region equals the child's. Region equality requires
// both sides resolved; unresolved regions never disambiguate.
func disambiguate(candidates []model.PersonRecord, childRegion string) (model.PersonRecord, bool) {
	if len(candidates) == 1 {
		return candidates[0], true
	}
	if childRegion == "" {
		return model.PersonRecord{}, false
	}
	var match model.PersonRecord
	var hits int
	for _, c := range candidates {
		if c.Region == childRegion {
			match = c
			hits++
		}
	}
	if hits == 1 {
		return match, true
	}
	return model.PersonRecord{}, false
}

// ResolveAll resolves every child against the index using up to workers
// goroutines. Results land at the same position as their input record, so
// output order is the input order regardless of scheduling.
func ResolveAll(ctx context.Context, children []model.PersonRecord, idx *ParentIndex, workers int) ([]Result, error) {
	if workers < 1 {
		workers = 1
	}

	results := make([]Result, len(children))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range children {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = Resolve(children[i], idx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	linked := 0
	for _, r := range results {
		if r.Linked() {
			linked++
		}
	}
	zap.L().Debug("resolved child tier",
		zap.Int("children", len(children)),
		zap.Int("linked", linked),
		zap.Int("conflicts", len(children)-linked))

	return results, nil
}
