package classifier

import (
	"fmt"
	"strings"

	"github.com/sells-group/nightline/internal/model"
)

// agentSpeakers are the roles attributable to our own silent agent. Its
// lines carry no signal about who answered and are stripped before any
// tier inspects the transcript.
var agentSpeakers = map[string]bool{
	"assistant": true,
	"bot":       true,
	"system":    true,
	"tool":      true,
}

// disclaimerPhrases are pre-call recording notices. They precede live and
// automated handling alike, so they are stripped before keyword matching:
// a disclaimer is evidence of nothing by itself.
var disclaimerPhrases = []string{
	"this call may be recorded",
	"this call may be monitored",
	"this call is being recorded",
	"calls may be recorded",
	"calls may be monitored",
	"may be recorded for quality assurance",
	"may be monitored for quality assurance",
	"for quality and training purposes",
	"for quality assurance purposes",
}

// CleanTranscript drops the agent's own lines and flattens the rest to
// lowercase text, one utterance per line.
func CleanTranscript(lines []model.TranscriptLine) string {
	var b strings.Builder
	for _, line := range lines {
		if agentSpeakers[strings.ToLower(line.Speaker)] {
			continue
		}
		text := strings.TrimSpace(line.Text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.ToLower(text))
	}
	return b.String()
}

// StripDisclaimers removes recording-notice boilerplate from a cleaned
// transcript. Idempotent: stripping twice yields the same text as once.
func StripDisclaimers(cleaned string) string {
	out := cleaned
	for {
		prev := out
		for _, phrase := range disclaimerPhrases {
			out = strings.ReplaceAll(out, phrase, "")
		}
		if out == prev {
			break
		}
	}
	return strings.TrimSpace(out)
}

// Summarize produces a short human-readable list of observed signals,
// independent of the categorical verdict. Cheap enough to compute for every
// record; useful for auditing without re-reading the transcript.
func Summarize(rec model.CallRecord, cleaned string) string {
	parts := []string{fmt.Sprintf("%ds", rec.DurationSeconds)}
	if rec.EndReason != "" {
		parts = append(parts, "end="+rec.EndReason)
	} else {
		parts = append(parts, "end="+string(rec.Status))
	}

	stripped := StripDisclaimers(cleaned)
	if len(stripped) < minContentChars {
		parts = append(parts, "no speech")
		return strings.Join(parts, "; ")
	}

	if containsAny(stripped, ivrPhrases) {
		parts = append(parts, "menu")
	}
	if containsAny(stripped, voicemailPhrases) {
		parts = append(parts, "voicemail prompt")
	}
	if containsAny(stripped, servicePhrases) || containsAny(stripped, humanPhrases) {
		parts = append(parts, "live dialogue")
	}
	if stripped != cleaned {
		parts = append(parts, "recording disclaimer")
	}
	return strings.Join(parts, "; ")
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
