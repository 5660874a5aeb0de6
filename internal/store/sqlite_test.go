package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sangam-labs/fieldops-cli/internal/hierarchy"
	"github.com/sangam-labs/fieldops-cli/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testGraph() *hierarchy.Graph {
	return &hierarchy.Graph{
		Nodes: []model.Node{
			{ID: "coordinator-9876543210", Tier: model.TierCoordinator, Name: "Sunita Devi", PhoneKey: "9876543210", Region: "Maharajganj"},
			{ID: "subleader-9123456789", Tier: model.TierSubLeader, Name: "Anil Singh", PhoneKey: "9123456789", Region: "Maharajganj", ParentID: "coordinator-9876543210"},
		},
		Links: []model.Link{
			{ChildID: "subleader-9123456789", ParentID: "coordinator-9876543210", MatchedBy: model.MatchedByPhone, AmbiguityCount: 1},
		},
		Conflicts: []model.ConflictEntry{
			{Tier: model.TierMember, Name: "Lost Member", RawPhone: "9000000001",
				ParentRef: model.ParentRef{RawPhone: "9999999999"},
				Reason:    model.ConflictNoParentCandidate, SourceRow: 12},
		},
		Assignments: []model.Assignment{
			{WorkerID: "coordinator-9876543210", Region: "Maharajganj", Metrics: map[string]int{"households": 42}},
		},
		Summary: model.RunSummary{Coordinators: 1, SubLeaders: 1, Linked: 1, PhoneMatches: 1, Conflicts: 1},
	}
}

func TestSQLite_RunLifecycle(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "roster-march.xlsx")
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	summary := &model.RunSummary{Coordinators: 3, Linked: 10}
	require.NoError(t, s.CompleteRun(ctx, run.ID, summary))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	assert.Equal(t, "roster-march.xlsx", got.Source)
	require.NotNil(t, got.Summary)
	assert.Equal(t, 3, got.Summary.Coordinators)
	assert.Equal(t, 10, got.Summary.Linked)
}

func TestSQLite_FailRun(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "broken.xlsx")
	require.NoError(t, err)
	require.NoError(t, s.FailRun(ctx, run.ID))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
}

func TestSQLite_RunNotFound(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_, err := s.GetRun(ctx, "missing")
	require.Error(t, err)

	err = s.CompleteRun(ctx, "missing", &model.RunSummary{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_ListRuns(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	r1, err := s.CreateRun(ctx, "first.xlsx")
	require.NoError(t, err)
	_, err = s.CreateRun(ctx, "second.xlsx")
	require.NoError(t, err)
	require.NoError(t, s.CompleteRun(ctx, r1.ID, &model.RunSummary{}))

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	complete, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, complete, 1)
	assert.Equal(t, r1.ID, complete[0].ID)

	limited, err := s.ListRuns(ctx, RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLite_SaveGraphRoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "roster.xlsx")
	require.NoError(t, err)
	require.NoError(t, s.SaveGraph(ctx, run.ID, testGraph()))

	conflicts, err := s.ListConflicts(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "Lost Member", conflicts[0].Name)
	assert.Equal(t, model.ConflictNoParentCandidate, conflicts[0].Reason)
	assert.Equal(t, "9999999999", conflicts[0].ParentRef.RawPhone)
	assert.Equal(t, 12, conflicts[0].SourceRow)

	assignments, err := s.ListAssignments(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, "coordinator-9876543210", assignments[0].WorkerID)
	assert.Equal(t, map[string]int{"households": 42}, assignments[0].Metrics)
}

func TestSQLite_SaveGraphReplacesPreviousRows(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "roster.xlsx")
	require.NoError(t, err)
	require.NoError(t, s.SaveGraph(ctx, run.ID, testGraph()))
	require.NoError(t, s.SaveGraph(ctx, run.ID, testGraph()))

	conflicts, err := s.ListConflicts(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, conflicts, 1)
}

func TestSQLite_AttributionRoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "roster.xlsx")
	require.NoError(t, err)

	results := []model.AttributionResult{
		{
			WorkerID:         "coordinator-9876543210",
			AssignedRegion:   "Maharajganj",
			Status:           model.StatusWorkedHere,
			IncludeInGrading: true,
			WorkedRegion:     "Maharajganj",
			VisitCount:       3,
			AttendedDays:     2,
			Metrics:          map[string]int{"households": 42},
		},
		{
			WorkerID:       "coordinator-9111111111",
			AssignedRegion: "Danapur",
			Status:         model.StatusUnavailable,
			AttendedDays:   7,
			Metrics:        map[string]int{"households": 0},
		},
	}
	require.NoError(t, s.SaveAttribution(ctx, run.ID, results))

	got, err := s.ListAttribution(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Listed ordered by worker then region.
	assert.Equal(t, model.StatusUnavailable, got[0].Status)
	assert.Equal(t, model.StatusWorkedHere, got[1].Status)
	assert.True(t, got[1].IncludeInGrading)
	assert.Equal(t, map[string]int{"households": 42}, got[1].Metrics)
}

func TestSQLite_SaveAttributionReplaces(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "roster.xlsx")
	require.NoError(t, err)

	first := []model.AttributionResult{
		{WorkerID: "w1", AssignedRegion: "Maharajganj", Status: model.StatusNoActivitySingle},
	}
	require.NoError(t, s.SaveAttribution(ctx, run.ID, first))

	second := []model.AttributionResult{
		{WorkerID: "w1", AssignedRegion: "Maharajganj", Status: model.StatusWorkedHere},
	}
	require.NoError(t, s.SaveAttribution(ctx, run.ID, second))

	got, err := s.ListAttribution(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.StatusWorkedHere, got[0].Status)
}
