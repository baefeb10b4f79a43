package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/nightline/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testResult(phone string, by model.AnsweredBy) model.AuditResult {
	return model.AuditResult{
		Target: model.CallTarget{
			Phone:        phone,
			BusinessName: "Ace Plumbing",
			Location:     "Portland, OR",
			Claims24x7:   true,
		},
		Record: model.CallRecord{
			Handle:          "call-" + phone,
			Status:          model.CallStatusEnded,
			DurationSeconds: 30,
			Transcript: []model.TranscriptLine{
				{Speaker: "user", Text: "please leave a message"},
			},
		},
		Classification: model.ClassificationResult{
			AnsweredBy:  by,
			IsQualified: by.Qualifies(),
			Confidence:  model.ConfidenceHigh,
		},
		CalledAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestSQLiteStore_RunLifecycle(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "friday batch", 5)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusPending, run.Status)
	assert.Equal(t, 5, run.Stats.Total)

	require.NoError(t, s.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusRunning, got.Status)
	assert.Equal(t, "friday batch", got.Label)
	assert.Empty(t, got.Results)
}

func TestSQLiteStore_AppendResults(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "", 3)
	require.NoError(t, err)

	first := []model.AuditResult{
		testResult("+15550000001", model.AnsweredVoicemail),
		testResult("+15550000002", model.AnsweredHuman),
	}
	require.NoError(t, s.AppendResults(ctx, run.ID, first, 2))

	second := []model.AuditResult{
		testResult("+15550000003", model.AnsweredIVROnly),
	}
	require.NoError(t, s.AppendResults(ctx, run.ID, second, 3))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Cursor)
	require.Len(t, got.Results, 3)
	assert.Equal(t, "+15550000001", got.Results[0].Target.Phone)
	assert.Equal(t, "+15550000002", got.Results[1].Target.Phone)
	assert.Equal(t, "+15550000003", got.Results[2].Target.Phone)
	assert.Equal(t, model.AnsweredVoicemail, got.Results[0].Classification.AnsweredBy)
	require.Len(t, got.Results[0].Record.Transcript, 1)
}

func TestSQLiteStore_CompleteRun(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "", 2)
	require.NoError(t, err)

	stats := model.RunStats{Total: 2, Qualified: 1, AnsweredHuman: 1}
	require.NoError(t, s.CompleteRun(ctx, run.ID, model.RunStatusComplete, stats))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	assert.Equal(t, stats, got.Stats)
}

func TestSQLiteStore_ListRuns(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		run, err := s.CreateRun(ctx, fmt.Sprintf("run-%d", i), 1)
		require.NoError(t, err)
		if i == 0 {
			require.NoError(t, s.CompleteRun(ctx, run.ID, model.RunStatusComplete, model.RunStats{Total: 1}))
		}
	}

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	complete, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, complete, 1)
	assert.Equal(t, "run-0", complete[0].Label)

	limited, err := s.ListRuns(ctx, RunFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSQLiteStore_DialedPhones(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run1, err := s.CreateRun(ctx, "", 1)
	require.NoError(t, err)
	require.NoError(t, s.AppendResults(ctx, run1.ID,
		[]model.AuditResult{testResult("(555) 000-0001", model.AnsweredVoicemail)}, 1))

	run2, err := s.CreateRun(ctx, "", 1)
	require.NoError(t, err)
	require.NoError(t, s.AppendResults(ctx, run2.ID,
		[]model.AuditResult{testResult("+15550000002", model.AnsweredHuman)}, 1))

	dialed, err := s.DialedPhones(ctx)
	require.NoError(t, err)

	// Keys are normalized regardless of the formatting that was dialed.
	assert.True(t, dialed["+15550000001"])
	assert.True(t, dialed["+15550000002"])
	assert.Len(t, dialed, 2)
}

func TestSQLiteStore_NotFound(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	err := s.UpdateRunStatus(ctx, "missing", model.RunStatusRunning)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, err = s.GetRun(ctx, "missing")
	require.Error(t, err)
}
