package report

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sangam-labs/fieldops-cli/internal/hierarchy"
	"github.com/sangam-labs/fieldops-cli/internal/model"
)

// WriteGraphXLSX writes the assembled hierarchy as a reviewable workbook:
// one sheet of nodes, one of links, one of conflicts, and a run summary.
func WriteGraphXLSX(path string, g *hierarchy.Graph) error {
	f := xlsx.NewFile()

	if err := addNodesSheet(f, g.Nodes); err != nil {
		return err
	}
	if err := addLinksSheet(f, g.Links); err != nil {
		return err
	}
	if err := addConflictsSheet(f, g.Conflicts); err != nil {
		return err
	}
	if err := addSummarySheet(f, g.Summary); err != nil {
		return err
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save workbook %s", path)
	}
	return nil
}

func addNodesSheet(f *xlsx.File, nodes []model.Node) error {
	sheet, err := f.AddSheet("Hierarchy")
	if err != nil {
		return eris.Wrap(err, "report: add hierarchy sheet")
	}
	addRow(sheet, "id", "tier", "name", "phone", "region", "parent_id")
	for _, n := range nodes {
		addRow(sheet, n.ID, string(n.Tier), n.Name, string(n.PhoneKey), n.Region, n.ParentID)
	}
	return nil
}

func addLinksSheet(f *xlsx.File, links []model.Link) error {
	sheet, err := f.AddSheet("Links")
	if err != nil {
		return eris.Wrap(err, "report: add links sheet")
	}
	addRow(sheet, "child_id", "parent_id", "matched_by", "corrected", "corrected_from", "candidates")
	for _, l := range links {
		addRow(sheet, l.ChildID, l.ParentID, string(l.MatchedBy),
			strconv.FormatBool(l.Corrected), string(l.CorrectedFrom),
			strconv.Itoa(l.AmbiguityCount))
	}
	return nil
}

func addConflictsSheet(f *xlsx.File, conflicts []model.ConflictEntry) error {
	sheet, err := f.AddSheet("Conflicts")
	if err != nil {
		return eris.Wrap(err, "report: add conflicts sheet")
	}
	addRow(sheet, "tier", "name", "phone", "parent_phone", "parent_name", "region", "reason", "candidates", "source_row")
	for _, c := range conflicts {
		addRow(sheet, string(c.Tier), c.Name, c.RawPhone,
			c.ParentRef.RawPhone, c.ParentRef.RawName, c.RawRegion,
			string(c.Reason), strconv.Itoa(c.AmbiguityCount), strconv.Itoa(c.SourceRow))
	}
	return nil
}

func addSummarySheet(f *xlsx.File, s model.RunSummary) error {
	sheet, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "report: add summary sheet")
	}
	for _, kv := range [][2]string{
		{"coordinators", strconv.Itoa(s.Coordinators)},
		{"subleaders", strconv.Itoa(s.SubLeaders)},
		{"members", strconv.Itoa(s.Members)},
		{"linked", strconv.Itoa(s.Linked)},
		{"phone_matches", strconv.Itoa(s.PhoneMatches)},
		{"name_matches", strconv.Itoa(s.NameMatches)},
		{"corrected", strconv.Itoa(s.Corrected)},
		{"conflicts", strconv.Itoa(s.Conflicts)},
		{"skipped_rows", strconv.Itoa(s.SkippedRows)},
	} {
		addRow(sheet, kv[0], kv[1])
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, cells ...string) {
	row := sheet.AddRow()
	for _, c := range cells {
		row.AddCell().SetString(c)
	}
}
