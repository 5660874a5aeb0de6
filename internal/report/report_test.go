package report

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sangam-labs/fieldops-cli/internal/hierarchy"
	"github.com/sangam-labs/fieldops-cli/internal/model"
)

func TestWriteConflictsCSV(t *testing.T) {
	conflicts := []model.ConflictEntry{
		{
			Tier:      model.TierMember,
			Name:      "Ravi Kumar",
			RawPhone:  "9000000001",
			ParentRef: model.ParentRef{RawPhone: "9123456789", RawName: "Anil Singh"},
			RawRegion: "Maharajganj",
			Reason:    model.ConflictAmbiguousPhone,
			AmbiguityCount: 2,
			SourceRow:      14,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteConflictsCSV(&buf, conflicts))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "tier", rows[0][0])
	assert.Equal(t, []string{
		"member", "Ravi Kumar", "9000000001", "9123456789", "Anil Singh",
		"Maharajganj", "ambiguous-phone", "2", "14",
	}, rows[1])
}

func TestWriteConflictsCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteConflictsCSV(&buf, nil))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 1) // header only
}

func TestWriteAttributionCSV(t *testing.T) {
	results := []model.AttributionResult{
		{
			WorkerID:         "coordinator-9876543210",
			AssignedRegion:   "Maharajganj",
			Status:           model.StatusWorkedHere,
			IncludeInGrading: true,
			WorkedRegion:     "Maharajganj",
			VisitCount:       3,
			AttendedDays:     1,
		},
		{
			WorkerID:       "coordinator-9111111111",
			AssignedRegion: "Danapur",
			Status:         model.StatusUnavailable,
			AttendedDays:   7,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteAttributionCSV(&buf, results))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{
		"coordinator-9876543210", "Maharajganj", "worked_here",
		"true", "false", "Maharajganj", "3", "1",
	}, rows[1])
	assert.Equal(t, "unavailable", rows[2][2])
}

func TestWriteGraphXLSX(t *testing.T) {
	g := &hierarchy.Graph{
		Nodes: []model.Node{
			{ID: "coordinator-9876543210", Tier: model.TierCoordinator, Name: "Sunita Devi", PhoneKey: "9876543210", Region: "Maharajganj"},
			{ID: "subleader-9123456789", Tier: model.TierSubLeader, Name: "Anil Singh", PhoneKey: "9123456789", ParentID: "coordinator-9876543210"},
		},
		Links: []model.Link{
			{ChildID: "subleader-9123456789", ParentID: "coordinator-9876543210", MatchedBy: model.MatchedByPhone, AmbiguityCount: 1},
		},
		Conflicts: []model.ConflictEntry{
			{Tier: model.TierMember, Name: "Lost", Reason: model.ConflictNoParentCandidate},
		},
		Summary: model.RunSummary{Coordinators: 1, SubLeaders: 1, Linked: 1, Conflicts: 1},
	}

	path := filepath.Join(t.TempDir(), "graph.xlsx")
	require.NoError(t, WriteGraphXLSX(path, g))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)

	for _, name := range []string{"Hierarchy", "Links", "Conflicts", "Summary"} {
		_, ok := f.Sheet[name]
		assert.True(t, ok, "sheet %s", name)
	}

	nodes := f.Sheet["Hierarchy"]
	require.Len(t, nodes.Rows, 3)
	assert.Equal(t, "coordinator-9876543210", nodes.Rows[1].Cells[0].String())
	assert.Equal(t, "coordinator-9876543210", nodes.Rows[2].Cells[5].String())

	links := f.Sheet["Links"]
	require.Len(t, links.Rows, 2)
	assert.Equal(t, "phone", links.Rows[1].Cells[2].String())
}
