package model

// Tier identifies one of the three hierarchy levels.
type Tier string

const (
	TierCoordinator Tier = "coordinator"
	TierSubLeader   Tier = "subleader"
	TierMember      Tier = "member"
)

// ParentTier returns the tier a record of this tier declares as its parent.
// Coordinators are roots and have no parent tier.
func (t Tier) ParentTier() (Tier, bool) {
	switch t {
	case TierSubLeader:
		return TierCoordinator, true
	case TierMember:
		return TierSubLeader, true
	default:
		return "", false
	}
}

// PhoneKey is the canonical last-10-digit identity derived from a raw phone
// string. Two raw strings with the same PhoneKey are treated as the same
// physical phone; near-duplicates (small digit distance) are a separate,
// weaker relation handled by the resolver.
type PhoneKey string

// ParentRef is the declared parent reference exactly as captured in the
// source sheet. It is a weak foreign key with no referential integrity:
// consumers must go through the resolver rather than dereference it.
type ParentRef struct {
	RawPhone string `json:"raw_phone,omitempty"`
	RawName  string `json:"raw_name,omitempty"`
}

// IsEmpty reports whether the source row declared no parent at all.
func (r ParentRef) IsEmpty() bool {
	return r.RawPhone == "" && r.RawName == ""
}

// PersonRecord is one row of a tier source, created once at ingestion and
// never mutated in place. Resolution produces annotated copies.
type PersonRecord struct {
	Tier      Tier       `json:"tier"`
	Name      string     `json:"name"`
	RawPhone  string     `json:"raw_phone"`
	PhoneKeys []PhoneKey `json:"phone_keys,omitempty"`
	ParentRef ParentRef  `json:"parent_ref"`
	RawRegion string     `json:"raw_region,omitempty"`
	Region    string     `json:"region,omitempty"` // canonical, empty until resolved
	SourceRow int        `json:"source_row,omitempty"`
}

// PrimaryPhone returns the first phone key extracted from the record's own
// phone cell, or "" when the cell held no valid 10-digit number.
func (p PersonRecord) PrimaryPhone() PhoneKey {
	if len(p.PhoneKeys) == 0 {
		return ""
	}
	return p.PhoneKeys[0]
}

// MatchedBy records which identity signal linked a child to its parent.
type MatchedBy string

const (
	MatchedByPhone MatchedBy = "phone"
	MatchedByName  MatchedBy = "name"
)

// Node is a deduplicated hierarchy member with a deterministic identifier.
type Node struct {
	ID       string   `json:"id"` // "<tier>-<phonekey>"
	Tier     Tier     `json:"tier"`
	Name     string   `json:"name"`
	PhoneKey PhoneKey `json:"phone_key"`
	Region   string   `json:"region,omitempty"`
	ParentID string   `json:"parent_id,omitempty"` // empty for roots and conflicts
}

// NodeID builds the deterministic identifier for a tier member.
func NodeID(tier Tier, phone PhoneKey) string {
	return string(tier) + "-" + string(phone)
}

// Link is a resolved child→parent edge.
type Link struct {
	ChildID        string    `json:"child_id"`
	ParentID       string    `json:"parent_id"`
	MatchedBy      MatchedBy `json:"matched_by"`
	Corrected      bool      `json:"corrected"`       // fuzzy phone fix applied
	CorrectedFrom  PhoneKey  `json:"corrected_from,omitempty"`
	AmbiguityCount int       `json:"ambiguity_count"` // candidates before disambiguation
}

// ConflictReason classifies why a child record could not be linked.
type ConflictReason string

const (
	ConflictNoParentCandidate ConflictReason = "no-parent-candidate"
	ConflictAmbiguousPhone    ConflictReason = "ambiguous-phone"
	ConflictAmbiguousName     ConflictReason = "ambiguous-name"
)

// ConflictEntry retains an unlinkable child record with the raw fields a
// human needs to remediate the source data. Conflicts are never dropped.
type ConflictEntry struct {
	Tier           Tier           `json:"tier"`
	Name           string         `json:"name"`
	RawPhone       string         `json:"raw_phone"`
	ParentRef      ParentRef      `json:"parent_ref"`
	RawRegion      string         `json:"raw_region,omitempty"`
	Reason         ConflictReason `json:"reason"`
	AmbiguityCount int            `json:"ambiguity_count,omitempty"`
	SourceRow      int            `json:"source_row,omitempty"`
}

// Assignment is a (worker, region) pair derived from the coordinator roster.
// A coordinator listed under several regions yields several assignments.
type Assignment struct {
	WorkerID string         `json:"worker_id"`
	Region   string         `json:"region"`
	Metrics  map[string]int `json:"metrics,omitempty"`
}
