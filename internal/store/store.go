// Package store persists audit runs and their per-call results. Two
// implementations exist: SQLite for single-operator use and Postgres for
// shared deployments. Both write results incrementally so a crashed run
// loses at most one checkpoint interval of work.
package store

import (
	"context"

	"github.com/sells-group/nightline/internal/leads"
	"github.com/sells-group/nightline/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the audit engine.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, label string, total int) (*model.AuditRun, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	CompleteRun(ctx context.Context, runID string, status model.RunStatus, stats model.RunStats) error
	GetRun(ctx context.Context, runID string) (*model.AuditRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.AuditRun, error)

	// Results. AppendResults persists a checkpoint batch and advances the
	// run cursor; results already written for a run are never rewritten.
	AppendResults(ctx context.Context, runID string, results []model.AuditResult, cursor int) error
	ListResults(ctx context.Context, runID string) ([]model.AuditResult, error)

	// DialedPhones returns the normalized phone keys of every number ever
	// dialed, for cross-run dedup.
	DialedPhones(ctx context.Context) (map[string]bool, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// phoneKey is the canonical dedup key for a dialed number.
func phoneKey(phone string) string {
	return leads.NormalizePhone(phone)
}
