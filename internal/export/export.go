// Package export writes audit run results to the formats the sales side
// consumes: a full CSV, a qualified-leads CSV with suggested pitches, a
// Google Sheets TSV, a raw JSON dump, and a qualified-leads workbook.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/nightline/internal/model"
)

const timeLayout = "2006-01-02 03:04 PM MST"

// Exporter writes run artifacts into a target directory.
type Exporter struct {
	dir string
}

// New creates an Exporter rooted at dir, creating it if needed.
func New(dir string) (*Exporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "export: create dir %s", dir)
	}
	return &Exporter{dir: dir}, nil
}

// WriteAll produces every artifact for a run and returns the paths written.
// The qualified artifacts are skipped when the run has no qualified leads.
func (e *Exporter) WriteAll(run *model.AuditRun) ([]string, error) {
	var paths []string

	csvPath, err := e.WriteResultsCSV(run)
	if err != nil {
		return paths, err
	}
	paths = append(paths, csvPath)

	tsvPath, err := e.WriteSheetsTSV(run)
	if err != nil {
		return paths, err
	}
	paths = append(paths, tsvPath)

	jsonPath, err := e.WriteJSON(run)
	if err != nil {
		return paths, err
	}
	paths = append(paths, jsonPath)

	if len(run.Qualified()) > 0 {
		qualPath, err := e.WriteQualifiedCSV(run)
		if err != nil {
			return paths, err
		}
		paths = append(paths, qualPath)

		xlsxPath, err := e.WriteQualifiedXLSX(run)
		if err != nil {
			return paths, err
		}
		paths = append(paths, xlsxPath)
	}
	return paths, nil
}

var resultColumns = []string{
	"call_time",
	"business_name",
	"phone",
	"location",
	"claims_24_7",
	"result",
	"qualified",
	"duration",
	"transcript",
	"summary",
	"notes",
}

// transcriptCap bounds the flattened transcript cell so a chatty IVR cannot
// blow up the spreadsheet.
const transcriptCap = 500

func flattenTranscript(lines []model.TranscriptLine) string {
	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(l.Speaker)
		b.WriteString(": ")
		b.WriteString(l.Text)
	}
	s := b.String()
	if len(s) > transcriptCap {
		s = s[:transcriptCap]
	}
	return s
}

// WriteResultsCSV writes every result of the run, one row per dialed target.
func (e *Exporter) WriteResultsCSV(run *model.AuditRun) (string, error) {
	path := e.path(run, "", "csv")
	f, err := os.Create(path)
	if err != nil {
		return "", eris.Wrap(err, "export: create results csv")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(resultColumns); err != nil {
		return "", eris.Wrap(err, "export: write header")
	}
	for _, r := range run.Results {
		row := []string{
			r.CalledAt.Local().Format(timeLayout),
			r.Target.BusinessName,
			r.Target.Phone,
			r.Target.Location,
			yesNo(r.Target.Claims24x7),
			string(r.Classification.AnsweredBy),
			trueFalse(r.Classification.IsQualified),
			strconv.Itoa(r.Record.DurationSeconds),
			flattenTranscript(r.Record.Transcript),
			r.Classification.Summary,
			r.Classification.Notes,
		}
		if err := w.Write(row); err != nil {
			return "", eris.Wrap(err, "export: write row")
		}
	}
	w.Flush()
	return path, eris.Wrap(w.Error(), "export: flush results csv")
}

var qualifiedColumns = []string{
	"call_time",
	"business_name",
	"phone",
	"location",
	"claims_24_7",
	"what_happened",
	"sales_pitch",
}

// WriteQualifiedCSV writes only the qualified leads, each with a suggested
// opening pitch derived from what the audit observed.
func (e *Exporter) WriteQualifiedCSV(run *model.AuditRun) (string, error) {
	path := e.path(run, "_QUALIFIED", "csv")
	f, err := os.Create(path)
	if err != nil {
		return "", eris.Wrap(err, "export: create qualified csv")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(qualifiedColumns); err != nil {
		return "", eris.Wrap(err, "export: write header")
	}
	for _, r := range run.Qualified() {
		row := []string{
			r.CalledAt.Local().Format(timeLayout),
			r.Target.BusinessName,
			r.Target.Phone,
			r.Target.Location,
			yesNo(r.Target.Claims24x7),
			string(r.Classification.AnsweredBy),
			SalesPitch(r),
		}
		if err := w.Write(row); err != nil {
			return "", eris.Wrap(err, "export: write row")
		}
	}
	w.Flush()
	return path, eris.Wrap(w.Error(), "export: flush qualified csv")
}

var sheetsColumns = []string{"Business", "Phone", "City", "Result", "Qualified", "Sales Pitch"}

// WriteSheetsTSV writes a tab-separated file shaped for direct paste into
// the shared tracking spreadsheet.
func (e *Exporter) WriteSheetsTSV(run *model.AuditRun) (string, error) {
	path := e.path(run, "_SHEETS", "tsv")
	f, err := os.Create(path)
	if err != nil {
		return "", eris.Wrap(err, "export: create sheets tsv")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = '\t'
	defer w.Flush()

	if err := w.Write(sheetsColumns); err != nil {
		return "", eris.Wrap(err, "export: write header")
	}
	for _, r := range run.Results {
		qualified := "NO"
		pitch := "Has coverage"
		if r.Classification.IsQualified {
			qualified = "YES"
			pitch = SalesPitch(r)
		}
		row := []string{
			r.Target.BusinessName,
			r.Target.Phone,
			r.Target.Location,
			string(r.Classification.AnsweredBy),
			qualified,
			pitch,
		}
		if err := w.Write(row); err != nil {
			return "", eris.Wrap(err, "export: write row")
		}
	}
	w.Flush()
	return path, eris.Wrap(w.Error(), "export: flush sheets tsv")
}

// WriteJSON dumps the full run, transcripts included, for debugging and
// downstream tooling.
func (e *Exporter) WriteJSON(run *model.AuditRun) (string, error) {
	path := e.path(run, "", "json")
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "export: marshal run")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", eris.Wrap(err, "export: write json")
	}
	return path, nil
}

// SalesPitch suggests an opening line for a qualified lead based on what
// the audit call actually hit.
func SalesPitch(r model.AuditResult) string {
	by := r.Classification.AnsweredBy
	switch {
	case r.Target.Claims24x7 && (by == model.AnsweredVoicemail || by == model.AnsweredNoAnswer):
		return "You advertise 24/7 but our after-hours call went to voicemail - you're losing emergency jobs"
	case by == model.AnsweredVoicemail:
		return "Your after-hours calls go to voicemail - potential customers are calling competitors"
	default:
		return "No live answer after hours - we can fix that"
	}
}

func (e *Exporter) path(run *model.AuditRun, suffix, ext string) string {
	stamp := run.CreatedAt.Local().Format("20060102_150405")
	name := fmt.Sprintf("audit_%s_%s%s.%s", shortID(run.ID), stamp, suffix, ext)
	return filepath.Join(e.dir, name)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}

func trueFalse(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}
