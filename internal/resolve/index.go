package resolve

import (
	"sort"

	"github.com/sangam-labs/fieldops-cli/internal/model"
	"github.com/sangam-labs/fieldops-cli/internal/normalize"
)

// ParentIndex holds the phone and name lookup tables over one parent tier.
// It is built once per run before any resolver call starts and never
// mutated afterward, so resolver calls are pure and safe to parallelize.
type ParentIndex struct {
	byPhone map[model.PhoneKey][]model.PersonRecord
	byName  map[string][]model.PersonRecord

	// phoneKeys is the sorted key set, fixed at build time so the fuzzy
	// scan has a deterministic iteration order.
	phoneKeys []model.PhoneKey
}

// BuildParentIndex indexes a parent tier by every phone key each record
// carries and by normalized name.
func BuildParentIndex(parents []model.PersonRecord) *ParentIndex {
	idx := &ParentIndex{
		byPhone: make(map[model.PhoneKey][]model.PersonRecord),
		byName:  make(map[string][]model.PersonRecord),
	}

	for _, p := range parents {
		for _, key := range p.PhoneKeys {
			idx.byPhone[key] = append(idx.byPhone[key], p)
		}
		if n := normalize.Name(p.Name); n != "" {
			idx.byName[n] = append(idx.byName[n], p)
		}
	}

	idx.phoneKeys = make([]model.PhoneKey, 0, len(idx.byPhone))
	for key := range idx.byPhone {
		idx.phoneKeys = append(idx.phoneKeys, key)
	}
	sort.Slice(idx.phoneKeys, func(i, j int) bool {
		return idx.phoneKeys[i] < idx.phoneKeys[j]
	})

	return idx
}

// Len returns the number of distinct phone keys in the index.
func (idx *ParentIndex) Len() int { return len(idx.phoneKeys) }

func (idx *ParentIndex) lookupPhone(key model.PhoneKey) []model.PersonRecord {
	return idx.byPhone[key]
}

func (idx *ParentIndex) lookupName(normalized string) []model.PersonRecord {
	return idx.byName[normalized]
}
