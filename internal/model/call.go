package model

import "time"

// CallStatus is the terminal disposition of a single call attempt.
type CallStatus string

const (
	CallStatusEnded   CallStatus = "ended"   // provider reported a normal terminal state
	CallStatusFailed  CallStatus = "failed"  // provider reported a failed call
	CallStatusTimeout CallStatus = "timeout" // ceiling elapsed before a terminal state
	CallStatusError   CallStatus = "error"   // call was never started (dispatch rejected)
)

// AnsweredBy is the classifier's verdict on what picked up the phone.
type AnsweredBy string

const (
	AnsweredNoAnswer     AnsweredBy = "no_answer"
	AnsweredBusy         AnsweredBy = "busy"
	AnsweredVoicemail    AnsweredBy = "voicemail"
	AnsweredService      AnsweredBy = "answering_service"
	AnsweredHuman        AnsweredBy = "human"
	AnsweredIVROnly      AnsweredBy = "ivr_only"
	AnsweredInconclusive AnsweredBy = "inconclusive"
	AnsweredUnknown      AnsweredBy = "unknown"
)

// Confidence grades how reliable a classification is.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// CallTarget is a business to audit. Immutable once dispatched; the phone
// number must already be in canonical dialable (E.164) form.
type CallTarget struct {
	Phone        string `json:"phone"`
	BusinessName string `json:"business_name"`
	Location     string `json:"location"`
	Claims24x7   bool   `json:"claims_24_7"`
}

// TranscriptLine is one utterance in a call transcript.
type TranscriptLine struct {
	Speaker string `json:"speaker"` // "assistant", "user", "bot", ...
	Text    string `json:"text"`
}

// CallRecord is the terminal outcome of one call attempt. Produced exactly
// once per attempt and immutable thereafter.
type CallRecord struct {
	Handle          string           `json:"handle"`
	Status          CallStatus       `json:"status"`
	EndReason       string           `json:"end_reason,omitempty"`
	DurationSeconds int              `json:"duration_seconds"`
	Transcript      []TranscriptLine `json:"transcript,omitempty"`
	RecordingURL    string           `json:"recording_url,omitempty"`
	Error           string           `json:"error,omitempty"`
}

// ClassificationResult is the qualification verdict derived from a CallRecord.
type ClassificationResult struct {
	AnsweredBy  AnsweredBy `json:"answered_by"`
	IsQualified bool       `json:"is_qualified"`
	Confidence  Confidence `json:"confidence"`
	Notes       string     `json:"notes,omitempty"`
	Summary     string     `json:"summary,omitempty"`
}

// Qualifies reports whether a verdict counts as a qualified lead: no reliable
// live coverage was detected. This is the single canonical mapping; callers
// must not re-derive it from keyword hits or model output.
func (a AnsweredBy) Qualifies() bool {
	switch a {
	case AnsweredNoAnswer, AnsweredVoicemail, AnsweredIVROnly, AnsweredInconclusive:
		return true
	default:
		return false
	}
}

// AuditResult ties a target to the record and verdict of its one call attempt.
type AuditResult struct {
	Target         CallTarget           `json:"target"`
	Record         CallRecord           `json:"record"`
	Classification ClassificationResult `json:"classification"`
	CalledAt       time.Time            `json:"called_at"`
}

// RunStatus is the lifecycle state of an audit run.
type RunStatus string

const (
	RunStatusPending  RunStatus = "pending"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunStats are the aggregate counters for a run. Failed counts dispatch
// errors and unclassifiable outcomes, not connected calls.
type RunStats struct {
	Total            int `json:"total"`
	Qualified        int `json:"qualified"`
	AnsweredHuman    int `json:"answered_human"`
	AnsweringService int `json:"answering_service"`
	Busy             int `json:"busy"`
	Failed           int `json:"failed"`
}

// Tally folds one result into the counters.
func (s *RunStats) Tally(r AuditResult) {
	s.Total++
	switch {
	case r.Classification.IsQualified:
		s.Qualified++
	case r.Classification.AnsweredBy == AnsweredHuman:
		s.AnsweredHuman++
	case r.Classification.AnsweredBy == AnsweredService:
		s.AnsweringService++
	case r.Classification.AnsweredBy == AnsweredBusy:
		s.Busy++
	default:
		s.Failed++
	}
}

// AuditRun is an ordered sequence of audit results plus run-level counters
// and a checkpoint cursor (index of the last persisted result).
type AuditRun struct {
	ID        string        `json:"id"`
	Label     string        `json:"label,omitempty"`
	Status    RunStatus     `json:"status"`
	Results   []AuditResult `json:"results,omitempty"`
	Stats     RunStats      `json:"stats"`
	Cursor    int           `json:"cursor"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Qualified returns the results that count as qualified leads, in call order.
func (r *AuditRun) Qualified() []AuditResult {
	var out []AuditResult
	for _, res := range r.Results {
		if res.Classification.IsQualified {
			out = append(out, res)
		}
	}
	return out
}
