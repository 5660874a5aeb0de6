package fetcher

import (
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sangam-labs/fieldops-cli/internal/model"
	"github.com/sangam-labs/fieldops-cli/internal/normalize"
)

// headerScanDepth is how many leading rows are searched for the header. The
// workbooks often carry a title row or two above it.
const headerScanDepth = 5

// TierSheetSpec describes how to read one tier's roster sheet: which tier
// the rows belong to and the header synonyms for each column. Synonyms are
// matched case-insensitively as substrings of the header cell.
type TierSheetSpec struct {
	Tier model.Tier
	XLSX XLSXOptions

	NameHeaders        []string
	PhoneHeaders       []string
	ParentPhoneHeaders []string
	ParentNameHeaders  []string
	RegionHeaders      []string
}

// DefaultSheetSpec returns the header synonyms the field teams' workbooks
// use for a tier. Parent columns name the parent tier explicitly, which is
// what keeps them distinguishable from the row's own name and phone.
func DefaultSheetSpec(tier model.Tier) TierSheetSpec {
	spec := TierSheetSpec{
		Tier:          tier,
		NameHeaders:   []string{"name"},
		PhoneHeaders:  []string{"phone", "mobile", "contact"},
		RegionHeaders: []string{"region", "assembly", "constituency", "area", "block"},
	}
	switch tier {
	case model.TierSubLeader:
		spec.ParentPhoneHeaders = []string{"coordinator phone", "coordinator mobile", "coordinator contact", "ac phone", "ac mobile"}
		spec.ParentNameHeaders = []string{"coordinator name", "ac name"}
	case model.TierMember:
		spec.ParentPhoneHeaders = []string{"leader phone", "leader mobile", "leader contact", "slp phone", "slp mobile"}
		spec.ParentNameHeaders = []string{"leader name", "slp name"}
	}
	return spec
}

// SheetStats summarizes one sheet read for the run log and summary report.
type SheetStats struct {
	HeaderRow  int // zero-based index of the detected header row
	Rows       int // data rows below the header
	Parsed     int
	Skipped    int // rows without a usable name or phone
	FilledDown int // parent cells inherited from the row above
}

// columnMap holds resolved column indices, -1 for absent columns.
type columnMap struct {
	name, phone, parentPhone, parentName, region int
}

// FetchTier reads one tier roster from an XLSX workbook. It locates the
// header row, maps columns by synonym, fills merged parent cells down, and
// skips rows that carry no usable name or phone.
func FetchTier(path string, spec TierSheetSpec) ([]model.PersonRecord, SheetStats, error) {
	var stats SheetStats

	rows, err := ReadXLSX(path, spec.XLSX)
	if err != nil {
		return nil, stats, eris.Wrapf(err, "fetcher: read tier sheet %s", path)
	}

	headerRow, cols, err := findHeader(rows, spec)
	if err != nil {
		return nil, stats, eris.Wrapf(err, "fetcher: %s", path)
	}
	stats.HeaderRow = headerRow

	var records []model.PersonRecord
	var lastParent model.ParentRef
	for i := headerRow + 1; i < len(rows); i++ {
		stats.Rows++
		row := rows[i]

		name := strings.TrimSpace(cellAt(row, cols.name))
		rawPhone := strings.TrimSpace(cellAt(row, cols.phone))
		keys := normalize.PhoneKeys(rawPhone)
		if name == "" || len(keys) == 0 {
			stats.Skipped++
			continue
		}

		parent := model.ParentRef{
			RawPhone: strings.TrimSpace(cellAt(row, cols.parentPhone)),
			RawName:  strings.TrimSpace(cellAt(row, cols.parentName)),
		}
		// Merged parent cells come back empty below the first row of the
		// merge; inherit from the row above.
		if hasParentColumns(cols) && parent.IsEmpty() && !lastParent.IsEmpty() {
			parent = lastParent
			stats.FilledDown++
		}
		if !parent.IsEmpty() {
			lastParent = parent
		}

		records = append(records, model.PersonRecord{
			Tier:      spec.Tier,
			Name:      name,
			RawPhone:  rawPhone,
			PhoneKeys: keys,
			ParentRef: parent,
			RawRegion: strings.TrimSpace(cellAt(row, cols.region)),
			SourceRow: i + 1, // 1-based, as spreadsheet apps display it
		})
		stats.Parsed++
	}

	zap.L().Info("tier sheet read",
		zap.String("path", path),
		zap.String("tier", string(spec.Tier)),
		zap.Int("header_row", stats.HeaderRow),
		zap.Int("parsed", stats.Parsed),
		zap.Int("skipped", stats.Skipped),
		zap.Int("filled_down", stats.FilledDown))

	return records, stats, nil
}

// findHeader scans the leading rows for one that maps at least the name and
// phone columns.
func findHeader(rows [][]string, spec TierSheetSpec) (int, columnMap, error) {
	depth := min(headerScanDepth, len(rows))
	for i := 0; i < depth; i++ {
		cols := mapColumns(rows[i], spec)
		if cols.name >= 0 && cols.phone >= 0 {
			return i, cols, nil
		}
	}
	return 0, columnMap{}, eris.Errorf("no header row with name and phone columns in first %d rows", depth)
}

// mapColumns assigns each header cell to the first column kind whose
// synonyms match it. Parent columns are tried before the row's own columns:
// "coordinator phone" must not be claimed by the bare "phone" synonym.
func mapColumns(header []string, spec TierSheetSpec) columnMap {
	cols := columnMap{name: -1, phone: -1, parentPhone: -1, parentName: -1, region: -1}
	for j, cell := range header {
		h := foldHeader(cell)
		if h == "" {
			continue
		}
		switch {
		case cols.parentPhone < 0 && matchesAny(h, spec.ParentPhoneHeaders):
			cols.parentPhone = j
		case cols.parentName < 0 && matchesAny(h, spec.ParentNameHeaders):
			cols.parentName = j
		case cols.phone < 0 && matchesAny(h, spec.PhoneHeaders):
			cols.phone = j
		case cols.name < 0 && matchesAny(h, spec.NameHeaders):
			cols.name = j
		case cols.region < 0 && matchesAny(h, spec.RegionHeaders):
			cols.region = j
		}
	}
	return cols
}

func foldHeader(cell string) string {
	return strings.Join(strings.Fields(strings.ToLower(cell)), " ")
}

func matchesAny(header string, synonyms []string) bool {
	for _, s := range synonyms {
		if strings.Contains(header, s) {
			return true
		}
	}
	return false
}

func hasParentColumns(cols columnMap) bool {
	return cols.parentPhone >= 0 || cols.parentName >= 0
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
