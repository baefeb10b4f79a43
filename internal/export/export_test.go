package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/nightline/internal/model"
)

func testRun() *model.AuditRun {
	calledAt := time.Date(2025, 11, 7, 2, 30, 0, 0, time.UTC)
	return &model.AuditRun{
		ID:        "a1b2c3d4-0000-0000-0000-000000000000",
		Label:     "night batch",
		Status:    model.RunStatusComplete,
		CreatedAt: calledAt,
		Results: []model.AuditResult{
			{
				Target: model.CallTarget{
					Phone:        "+15550000001",
					BusinessName: "Ace Plumbing",
					Location:     "Portland, OR",
					Claims24x7:   true,
				},
				Record: model.CallRecord{
					Status:          model.CallStatusEnded,
					DurationSeconds: 22,
					Transcript: []model.TranscriptLine{
						{Speaker: "assistant", Text: "..."},
						{Speaker: "user", Text: "leave a message after the beep"},
					},
				},
				Classification: model.ClassificationResult{
					AnsweredBy:  model.AnsweredVoicemail,
					IsQualified: true,
					Confidence:  model.ConfidenceHigh,
					Notes:       "voicemail greeting with a recording prompt",
					Summary:     "22s; end=; voicemail prompt",
				},
				CalledAt: calledAt,
			},
			{
				Target: model.CallTarget{
					Phone:        "+15550000002",
					BusinessName: "Best Drains",
					Location:     "Salem, OR",
				},
				Record: model.CallRecord{Status: model.CallStatusEnded, DurationSeconds: 41},
				Classification: model.ClassificationResult{
					AnsweredBy:  model.AnsweredService,
					IsQualified: false,
					Confidence:  model.ConfidenceHigh,
				},
				CalledAt: calledAt,
			},
		},
		Stats: model.RunStats{Total: 2, Qualified: 1, AnsweringService: 1},
	}
}

func readCSV(t *testing.T, path string, comma rune) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = comma
	rows, err := r.ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteResultsCSV(t *testing.T) {
	exp, err := New(t.TempDir())
	require.NoError(t, err)

	path, err := exp.WriteResultsCSV(testRun())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".csv"))

	rows := readCSV(t, path, ',')
	require.Len(t, rows, 3)
	assert.Equal(t, resultColumns, rows[0])

	first := rows[1]
	assert.Equal(t, "Ace Plumbing", first[1])
	assert.Equal(t, "+15550000001", first[2])
	assert.Equal(t, "YES", first[4])
	assert.Equal(t, "voicemail", first[5])
	assert.Equal(t, "TRUE", first[6])
	assert.Equal(t, "22", first[7])
	assert.Equal(t, "assistant: ... | user: leave a message after the beep", first[8])

	second := rows[2]
	assert.Equal(t, "NO", second[4])
	assert.Equal(t, "answering_service", second[5])
	assert.Equal(t, "FALSE", second[6])
	assert.Empty(t, second[8])
}

func TestFlattenTranscript_Truncates(t *testing.T) {
	lines := []model.TranscriptLine{
		{Speaker: "user", Text: strings.Repeat("press one for the directory ", 40)},
	}
	flat := flattenTranscript(lines)
	assert.Len(t, flat, transcriptCap)
	assert.True(t, strings.HasPrefix(flat, "user: press one"))
}

func TestWriteQualifiedCSV(t *testing.T) {
	exp, err := New(t.TempDir())
	require.NoError(t, err)

	path, err := exp.WriteQualifiedCSV(testRun())
	require.NoError(t, err)
	assert.Contains(t, path, "_QUALIFIED")

	rows := readCSV(t, path, ',')
	require.Len(t, rows, 2) // header + one qualified lead
	assert.Equal(t, "Ace Plumbing", rows[1][1])
	assert.Contains(t, rows[1][6], "advertise 24/7")
}

func TestWriteSheetsTSV(t *testing.T) {
	exp, err := New(t.TempDir())
	require.NoError(t, err)

	path, err := exp.WriteSheetsTSV(testRun())
	require.NoError(t, err)
	assert.Contains(t, path, "_SHEETS")

	rows := readCSV(t, path, '\t')
	require.Len(t, rows, 3)
	assert.Equal(t, sheetsColumns, rows[0])
	assert.Equal(t, "YES", rows[1][4])
	assert.Equal(t, "NO", rows[2][4])
	assert.Equal(t, "Has coverage", rows[2][5])
}

func TestWriteJSON_RoundTrips(t *testing.T) {
	exp, err := New(t.TempDir())
	require.NoError(t, err)

	run := testRun()
	path, err := exp.WriteJSON(run)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got model.AuditRun
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, run.ID, got.ID)
	assert.Len(t, got.Results, 2)
	assert.Equal(t, run.Stats, got.Stats)
}

func TestWriteAll(t *testing.T) {
	dir := t.TempDir()
	exp, err := New(dir)
	require.NoError(t, err)

	paths, err := exp.WriteAll(testRun())
	require.NoError(t, err)
	assert.Len(t, paths, 5)
	for _, p := range paths {
		_, err := os.Stat(p)
		assert.NoError(t, err, "missing artifact %s", p)
	}
}

func TestWriteAll_NoQualifiedLeads(t *testing.T) {
	run := testRun()
	run.Results = run.Results[1:] // only the answering-service result

	exp, err := New(t.TempDir())
	require.NoError(t, err)

	paths, err := exp.WriteAll(run)
	require.NoError(t, err)
	assert.Len(t, paths, 3)
	for _, p := range paths {
		assert.NotContains(t, p, "_QUALIFIED")
	}
}

func TestSalesPitch(t *testing.T) {
	base := model.AuditResult{
		Target:         model.CallTarget{Claims24x7: true},
		Classification: model.ClassificationResult{AnsweredBy: model.AnsweredVoicemail},
	}
	assert.Contains(t, SalesPitch(base), "advertise 24/7")

	base.Target.Claims24x7 = false
	assert.Contains(t, SalesPitch(base), "calling competitors")

	base.Classification.AnsweredBy = model.AnsweredIVROnly
	assert.Contains(t, SalesPitch(base), "we can fix that")
}
