package export

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/nightline/internal/model"
)

var xlsxColumns = []string{
	"Call Time",
	"Business",
	"Phone",
	"Location",
	"Claims 24/7",
	"What Happened",
	"Duration (s)",
	"Sales Pitch",
}

// WriteQualifiedXLSX writes the qualified leads as a workbook for the sales
// team members who live in Excel rather than Sheets.
func (e *Exporter) WriteQualifiedXLSX(run *model.AuditRun) (string, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Qualified Leads")
	if err != nil {
		return "", eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range xlsxColumns {
		header.AddCell().Value = col
	}

	for _, r := range run.Qualified() {
		row := sheet.AddRow()
		row.AddCell().Value = r.CalledAt.Local().Format(timeLayout)
		row.AddCell().Value = r.Target.BusinessName
		row.AddCell().Value = r.Target.Phone
		row.AddCell().Value = r.Target.Location
		row.AddCell().Value = yesNo(r.Target.Claims24x7)
		row.AddCell().Value = string(r.Classification.AnsweredBy)
		row.AddCell().Value = strconv.Itoa(r.Record.DurationSeconds)
		row.AddCell().Value = SalesPitch(r)
	}

	path := e.path(run, "_QUALIFIED", "xlsx")
	if err := file.Save(path); err != nil {
		return "", eris.Wrap(err, "export: save workbook")
	}
	return path, nil
}
