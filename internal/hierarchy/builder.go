// Package hierarchy assembles the three-tier graph: coordinators at the
// root, sub-leaders linked to coordinators, members linked to sub-leaders.
package hierarchy

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sangam-labs/fieldops-cli/internal/model"
	"github.com/sangam-labs/fieldops-cli/internal/region"
	"github.com/sangam-labs/fieldops-cli/internal/resolve"
)

// Graph is the assembled hierarchy for one run. Conflicts hold every record
// that could not be linked; they are part of the output, not an error.
type Graph struct {
	Nodes       []model.Node
	Links       []model.Link
	Conflicts   []model.ConflictEntry
	Assignments []model.Assignment
	Summary     model.RunSummary
}

// Builder assembles graphs. The region resolver is shared across all three
// tiers so every record's region lands in the same canonical namespace.
type Builder struct {
	regions *region.Resolver
	workers int
}

// NewBuilder returns a builder resolving regions against the given resolver
// and fanning child resolution out over the given number of workers.
func NewBuilder(regions *region.Resolver, workers int) (*Builder, error) {
	if regions == nil {
		return nil, eris.New("hierarchy: region resolver is required")
	}
	if workers < 1 {
		workers = 1
	}
	return &Builder{regions: regions, workers: workers}, nil
}

// Build assembles the graph from the three tier rosters. Input order is
// significant: node deduplication is last-wins and assignment order follows
// the coordinator roster, so identical inputs always produce an identical
// graph.
func (b *Builder) Build(ctx context.Context, coordinators, subLeaders, members []model.PersonRecord) (*Graph, error) {
	g := &Graph{}

	coordinators = b.resolveRegions(coordinators)
	subLeaders = b.resolveRegions(subLeaders)
	members = b.resolveRegions(members)

	coordNodes := g.dedupeNodes(coordinators)
	g.Assignments = coordinatorAssignments(coordinators)

	subNodes := g.dedupeNodes(subLeaders)
	coordIndex := resolve.BuildParentIndex(dedupedRecords(coordinators))
	linkedSubs, err := b.linkTier(ctx, g, subLeaders, coordIndex)
	if err != nil {
		return nil, err
	}

	// Members resolve only against sub-leaders that themselves linked:
	// attaching a member to a dangling sub-leader would re-root it silently.
	memberNodes := g.dedupeNodes(members)
	subIndex := resolve.BuildParentIndex(dedupedRecords(linkedSubs))
	if _, err := b.linkTier(ctx, g, members, subIndex); err != nil {
		return nil, err
	}

	g.Summary.Coordinators = coordNodes
	g.Summary.SubLeaders = subNodes
	g.Summary.Members = memberNodes
	g.Summary.Conflicts = len(g.Conflicts)

	zap.L().Info("hierarchy assembled",
		zap.Int("coordinators", coordNodes),
		zap.Int("subleaders", subNodes),
		zap.Int("members", memberNodes),
		zap.Int("links", len(g.Links)),
		zap.Int("conflicts", len(g.Conflicts)))

	return g, nil
}

// resolveRegions annotates every record with its canonical region. Records
// whose region stays unmatched keep Region empty; they still participate in
// linking, just never win a region disambiguation.
func (b *Builder) resolveRegions(records []model.PersonRecord) []model.PersonRecord {
	out := make([]model.PersonRecord, len(records))
	for i, rec := range records {
		m := b.regions.Resolve(rec.RawRegion)
		rec.Region = m.Region
		out[i] = rec
	}
	return out
}

// linkTier resolves every child against the parent index, appending links
// and conflicts to the graph, and returns the child records that linked.
// Child nodes must already be in the graph so their ParentID can be set.
func (b *Builder) linkTier(ctx context.Context, g *Graph, children []model.PersonRecord, idx *resolve.ParentIndex) ([]model.PersonRecord, error) {
	results, err := resolve.ResolveAll(ctx, children, idx, b.workers)
	if err != nil {
		return nil, eris.Wrap(err, "hierarchy: resolve child tier")
	}

	parentByChild := make(map[string]string)
	var linked []model.PersonRecord
	for i, res := range results {
		child := children[i]
		if child.PrimaryPhone() == "" {
			// Already counted as skipped during node dedup.
			continue
		}
		childID := model.NodeID(child.Tier, child.PrimaryPhone())

		if !res.Linked() {
			g.Conflicts = append(g.Conflicts, model.ConflictEntry{
				Tier:           child.Tier,
				Name:           child.Name,
				RawPhone:       child.RawPhone,
				ParentRef:      child.ParentRef,
				RawRegion:      child.RawRegion,
				Reason:         res.Conflict.Reason,
				AmbiguityCount: res.Conflict.Candidates,
				SourceRow:      child.SourceRow,
			})
			continue
		}

		r := res.Resolution
		parentID := model.NodeID(r.Parent.Tier, r.Parent.PrimaryPhone())
		g.Links = append(g.Links, model.Link{
			ChildID:        childID,
			ParentID:       parentID,
			MatchedBy:      r.MatchedBy,
			Corrected:      r.Corrected,
			CorrectedFrom:  r.CorrectedFrom,
			AmbiguityCount: r.AmbiguityCount,
		})
		parentByChild[childID] = parentID
		linked = append(linked, child)

		g.Summary.Linked++
		switch r.MatchedBy {
		case model.MatchedByPhone:
			g.Summary.PhoneMatches++
		case model.MatchedByName:
			g.Summary.NameMatches++
		}
		if r.Corrected {
			g.Summary.Corrected++
		}
	}

	g.attachParents(parentByChild)
	return linked, nil
}

// dedupeNodes appends one node per distinct (tier, phone key), last
// occurrence winning, and returns how many nodes the tier contributed.
// Records with no extractable phone are counted as skipped: without a key
// they have no identity.
func (g *Graph) dedupeNodes(records []model.PersonRecord) int {
	byID := make(map[string]model.Node)
	var order []string
	for _, rec := range records {
		phone := rec.PrimaryPhone()
		if phone == "" {
			g.Summary.SkippedRows++
			continue
		}
		id := model.NodeID(rec.Tier, phone)
		if _, seen := byID[id]; !seen {
			order = append(order, id)
		}
		byID[id] = model.Node{
			ID:       id,
			Tier:     rec.Tier,
			Name:     rec.Name,
			PhoneKey: phone,
			Region:   rec.Region,
		}
	}
	for _, id := range order {
		g.Nodes = append(g.Nodes, byID[id])
	}
	return len(order)
}

// attachParents back-fills ParentID on already-appended nodes once their
// tier's links are known.
func (g *Graph) attachParents(parentByChild map[string]string) {
	for i := range g.Nodes {
		if pid, ok := parentByChild[g.Nodes[i].ID]; ok {
			g.Nodes[i].ParentID = pid
		}
	}
}

// dedupedRecords collapses records sharing a (tier, phone key), last wins,
// preserving first-seen order. The parent index is built over the deduped
// set so a parent listed twice is one candidate, not an ambiguity.
func dedupedRecords(records []model.PersonRecord) []model.PersonRecord {
	byID := make(map[string]model.PersonRecord)
	var order []string
	for _, rec := range records {
		phone := rec.PrimaryPhone()
		if phone == "" {
			continue
		}
		id := model.NodeID(rec.Tier, phone)
		if _, seen := byID[id]; !seen {
			order = append(order, id)
		}
		byID[id] = rec
	}
	out := make([]model.PersonRecord, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out
}

// coordinatorAssignments derives (worker, region) pairs from the coordinator
// roster. A coordinator listed under several regions yields one assignment
// per region; duplicate pairs collapse.
func coordinatorAssignments(coordinators []model.PersonRecord) []model.Assignment {
	seen := make(map[string]bool)
	var out []model.Assignment
	for _, rec := range coordinators {
		phone := rec.PrimaryPhone()
		if phone == "" || rec.Region == "" {
			continue
		}
		id := model.NodeID(rec.Tier, phone)
		key := id + "|" + rec.Region
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, model.Assignment{WorkerID: id, Region: rec.Region})
	}
	return out
}
