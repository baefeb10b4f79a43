package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/nightline/internal/model"
	"github.com/sells-group/nightline/pkg/vapi"
)

// Poller waits for a dispatched call to reach a terminal provider state.
type Poller struct {
	client     vapi.Client
	ceiling    time.Duration
	fast       time.Duration
	steady     time.Duration
	fastWindow time.Duration
}

// NewPoller creates a Poller. The cadence starts at fast and drops to steady
// once fastWindow has elapsed; most calls terminate inside the window, so the
// common case stays responsive without hammering the API for the stragglers.
func NewPoller(client vapi.Client, ceiling, fast, steady, fastWindow time.Duration) *Poller {
	return &Poller{
		client:     client,
		ceiling:    ceiling,
		fast:       fast,
		steady:     steady,
		fastWindow: fastWindow,
	}
}

// AwaitCompletion polls the call until it terminates, the ceiling elapses,
// or ctx is cancelled. It always returns a usable record: a call that never
// terminated comes back with status timeout and whatever transcript the last
// successful poll observed. Transient poll errors are absorbed; only the
// provider's word ends the wait early.
func (p *Poller) AwaitCompletion(ctx context.Context, handle string) model.CallRecord {
	deadline := time.Now().Add(p.ceiling)
	started := time.Now()

	var last *vapi.Call
	for {
		call, err := p.client.GetCall(ctx, handle)
		if err != nil {
			if ctx.Err() != nil {
				return timeoutRecord(handle, last, "cancelled while polling")
			}
			zap.L().Warn("poll attempt failed",
				zap.String("handle", handle),
				zap.Error(err),
			)
		} else {
			last = call
			if call.Terminal() {
				return recordFromCall(handle, call)
			}
		}

		if time.Now().After(deadline) {
			zap.L().Warn("call never reached a terminal state",
				zap.String("handle", handle),
				zap.Duration("ceiling", p.ceiling),
			)
			return timeoutRecord(handle, last, "poll ceiling elapsed")
		}

		interval := p.fast
		if time.Since(started) > p.fastWindow {
			interval = p.steady
		}
		select {
		case <-ctx.Done():
			return timeoutRecord(handle, last, "cancelled while polling")
		case <-time.After(interval):
		}
	}
}

// recordFromCall converts a terminal provider call into a CallRecord.
func recordFromCall(handle string, call *vapi.Call) model.CallRecord {
	rec := model.CallRecord{
		Handle:          handle,
		Status:          model.CallStatus(call.Status),
		EndReason:       call.EndedReason,
		DurationSeconds: int(call.Duration),
		Transcript:      transcriptFromMessages(call.Messages),
		RecordingURL:    call.RecordingURL,
	}
	return rec
}

// timeoutRecord builds the record for a call that never terminated. The last
// successfully polled snapshot still contributes its transcript so the
// classifier has something to work with.
func timeoutRecord(handle string, last *vapi.Call, reason string) model.CallRecord {
	rec := model.CallRecord{
		Handle: handle,
		Status: model.CallStatusTimeout,
		Error:  reason,
	}
	if last != nil {
		rec.DurationSeconds = int(last.Duration)
		rec.Transcript = transcriptFromMessages(last.Messages)
		rec.RecordingURL = last.RecordingURL
	}
	return rec
}

func transcriptFromMessages(messages []vapi.CallMessage) []model.TranscriptLine {
	var lines []model.TranscriptLine
	for _, m := range messages {
		text := m.Text()
		if text == "" {
			continue
		}
		lines = append(lines, model.TranscriptLine{Speaker: m.Role, Text: text})
	}
	return lines
}
