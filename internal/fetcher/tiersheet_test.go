package fetcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sangam-labs/fieldops-cli/internal/model"
)

func TestFetchTier_MemberSheet(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Members": {
			{"Member Name", "Phone Number", "Leader Name", "Leader Phone", "Assembly"},
			{"Ravi Kumar", "9000000001", "Anil Singh", "9123456789", "Maharajganj"},
			{"Shyam Lal", "+91 90000 00002", "Anil Singh", "9123456789", "Maharajganj"},
		},
	})

	spec := DefaultSheetSpec(model.TierMember)
	records, stats, err := FetchTier(path, spec)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, 0, stats.HeaderRow)
	assert.Equal(t, 2, stats.Parsed)
	assert.Equal(t, 0, stats.Skipped)

	r := records[0]
	assert.Equal(t, model.TierMember, r.Tier)
	assert.Equal(t, "Ravi Kumar", r.Name)
	assert.Equal(t, model.PhoneKey("9000000001"), r.PrimaryPhone())
	assert.Equal(t, "9123456789", r.ParentRef.RawPhone)
	assert.Equal(t, "Anil Singh", r.ParentRef.RawName)
	assert.Equal(t, "Maharajganj", r.RawRegion)
	assert.Equal(t, 2, r.SourceRow)

	assert.Equal(t, model.PhoneKey("9000000002"), records[1].PrimaryPhone())
}

func TestFetchTier_HeaderBelowTitleRows(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {
			{"Field Roster March 2026"},
			{},
			{"Name", "Mobile", "Region"},
			{"Sunita Devi", "9876543210", "Danapur"},
		},
	})

	records, stats, err := FetchTier(path, DefaultSheetSpec(model.TierCoordinator))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2, stats.HeaderRow)
	assert.Equal(t, "Sunita Devi", records[0].Name)
	assert.Equal(t, 4, records[0].SourceRow)
}

func TestFetchTier_NoHeaderFails(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {
			{"just", "random", "cells"},
			{"more", "random", "cells"},
		},
	})

	_, _, err := FetchTier(path, DefaultSheetSpec(model.TierCoordinator))
	require.Error(t, err)
}

func TestFetchTier_SkipsRowsWithoutNameOrPhone(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {
			{"Name", "Phone", "Region"},
			{"Sunita Devi", "9876543210", "Danapur"},
			{"", "9111111111", "Danapur"},
			{"No Phone", "n/a", "Danapur"},
			{"Short Phone", "12345", "Danapur"},
		},
	})

	records, stats, err := FetchTier(path, DefaultSheetSpec(model.TierCoordinator))
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, 3, stats.Skipped)
}

func TestFetchTier_FillsMergedParentCellsDown(t *testing.T) {
	// Merged leader cells show their value only on the first row of the
	// merge; the rows below come back empty and must inherit it.
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {
			{"Name", "Phone", "Leader Name", "Leader Phone", "Region"},
			{"Ravi Kumar", "9000000001", "Anil Singh", "9123456789", "Maharajganj"},
			{"Shyam Lal", "9000000002", "", "", "Maharajganj"},
			{"Gita Devi", "9000000003", "", "", "Maharajganj"},
			{"Mohan Das", "9000000004", "Raju Yadav", "9222222222", "Danapur"},
			{"Kiran Bala", "9000000005", "", "", "Danapur"},
		},
	})

	records, stats, err := FetchTier(path, DefaultSheetSpec(model.TierMember))
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, 3, stats.FilledDown)

	assert.Equal(t, "9123456789", records[1].ParentRef.RawPhone)
	assert.Equal(t, "Anil Singh", records[1].ParentRef.RawName)
	assert.Equal(t, "9123456789", records[2].ParentRef.RawPhone)
	assert.Equal(t, "9222222222", records[4].ParentRef.RawPhone)
	assert.Equal(t, "Raju Yadav", records[4].ParentRef.RawName)
}

func TestFetchTier_ParentColumnsNotClaimedByOwnPhone(t *testing.T) {
	// "Coordinator Phone" appears before the member's own "Phone" column;
	// it must map to the parent reference, not the row's own phone.
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {
			{"Coordinator Name", "Coordinator Phone", "Name", "Phone", "Region"},
			{"Sunita Devi", "9876543210", "Anil Singh", "9123456789", "Danapur"},
		},
	})

	records, _, err := FetchTier(path, DefaultSheetSpec(model.TierSubLeader))
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "Anil Singh", r.Name)
	assert.Equal(t, model.PhoneKey("9123456789"), r.PrimaryPhone())
	assert.Equal(t, "9876543210", r.ParentRef.RawPhone)
	assert.Equal(t, "Sunita Devi", r.ParentRef.RawName)
}

func TestFetchTier_CoordinatorSheetHasNoParentColumns(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {
			{"Name", "Phone", "Region"},
			{"Sunita Devi", "9876543210", "Maharajganj"},
		},
	})

	records, _, err := FetchTier(path, DefaultSheetSpec(model.TierCoordinator))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].ParentRef.IsEmpty())
}

func TestFetchTier_NamedSheet(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Ignore":  {{"nothing", "here"}},
		"Roster":  {{"Name", "Phone"}, {"Sunita Devi", "9876543210"}},
		"Ignore2": {{"nothing", "here"}},
	})

	spec := DefaultSheetSpec(model.TierCoordinator)
	spec.XLSX.SheetName = "Roster"
	records, _, err := FetchTier(path, spec)
	require.NoError(t, err)
	require.Len(t, records, 1)
}
