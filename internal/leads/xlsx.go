package leads

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/nightline/internal/model"
)

// XLSXOptions configures the spreadsheet lead reader.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
	SkipRows   int    // header rows to skip; default 1
}

// ParseXLSX reads call targets from a spreadsheet. Columns are
// phone, name, location, with an optional availability column; the
// availability markers are matched across the whole row, same as the
// TSV reader.
func ParseXLSX(path string, opts XLSXOptions) ([]model.CallTarget, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "leads: open %s", path)
	}

	sheet, err := leadSheet(f, opts)
	if err != nil {
		return nil, err
	}

	skip := opts.SkipRows
	if skip == 0 {
		skip = 1
	}

	var targets []model.CallTarget
	for i, row := range sheet.Rows {
		if i < skip {
			continue
		}

		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = strings.TrimSpace(cell.String())
		}
		if len(cells) < 2 || cells[0] == "" {
			continue
		}

		target := model.CallTarget{
			Phone:        cells[0],
			BusinessName: cells[1],
			Claims24x7:   claims24x7(strings.Join(cells, "\t")),
		}
		if len(cells) > 2 {
			target.Location = cells[2]
		}
		targets = append(targets, target)
	}
	return targets, nil
}

// Load dispatches on the file extension: .xlsx goes through the
// spreadsheet reader with default options, everything else is treated
// as tab-separated text.
func Load(path string) ([]model.CallTarget, error) {
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return ParseXLSX(path, XLSXOptions{})
	}
	return LoadFile(path)
}

func leadSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("leads: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("leads: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}
	return f.Sheets[opts.SheetIndex], nil
}
