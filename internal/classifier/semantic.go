package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/nightline/internal/model"
	"github.com/sells-group/nightline/pkg/anthropic"
)

const semanticSystemPrompt = `You classify after-hours audit calls. The caller is a silent automated agent, so nearly every transcript line was spoken by whoever or whatever answered. Decide what answered and respond with a single JSON object:
{"answered_by": "<category>", "is_qualified": <bool>, "confidence": "high|medium|low", "notes": "<one sentence>"}
answered_by must be exactly one of: voicemail, answering_service, human, ivr_only, no_answer, inconclusive.
Apply these rules:
- A pre-call disclaimer ("this call may be recorded") is evidence of nothing by itself. It precedes live and automated handling alike and must never be read as proof a person answered.
- voicemail: a recorded greeting that terminates in an actual invitation to record a message. A greeting alone is not voicemail.
- answering_service or human: live back-and-forth - questions, reactions to silence, a named person.
- ivr_only: a menu tree reached with no subsequent live contact and no voicemail prompt.
- no_answer: nothing ever spoke.
- inconclusive: the call ended too early to tell (for example only the disclaimer was heard).`

const semanticUserPrompt = `End reason: %s
Duration: %d seconds

Transcript (agent lines removed):
%s`

// semanticVerdict is the JSON shape the model must return.
type semanticVerdict struct {
	AnsweredBy  string `json:"answered_by"`
	IsQualified bool   `json:"is_qualified"`
	Confidence  string `json:"confidence"`
	Notes       string `json:"notes"`
}

var semanticCategories = map[string]model.AnsweredBy{
	"voicemail":         model.AnsweredVoicemail,
	"answering_service": model.AnsweredService,
	"human":             model.AnsweredHuman,
	"ivr_only":          model.AnsweredIVROnly,
	"no_answer":         model.AnsweredNoAnswer,
	"inconclusive":      model.AnsweredInconclusive,
}

// classifySemantic asks the reasoning model for a verdict. Any API or parse
// failure is returned as an error so the caller falls back to the keyword
// tier; this tier never produces a final answer from broken output.
func (c *Classifier) classifySemantic(ctx context.Context, rec model.CallRecord, cleaned string) (Decision, error) {
	temp := 0.0
	resp, err := c.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       c.aiModel,
		MaxTokens:   256,
		System:      semanticSystemPrompt,
		Temperature: &temp,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(semanticUserPrompt, rec.EndReason, rec.DurationSeconds, cleaned)},
		},
	})
	if err != nil {
		return passThrough, eris.Wrap(err, "classifier: semantic tier")
	}
	resp.Usage.LogUsage(c.aiModel, "classify")

	var v semanticVerdict
	if err := json.Unmarshal([]byte(cleanJSON(resp.Text())), &v); err != nil {
		return passThrough, eris.Wrap(err, "classifier: parse semantic verdict")
	}

	by, ok := semanticCategories[strings.ToLower(strings.TrimSpace(v.AnsweredBy))]
	if !ok {
		return passThrough, eris.Errorf("classifier: unexpected category %q", v.AnsweredBy)
	}

	conf := model.Confidence(strings.ToLower(v.Confidence))
	switch conf {
	case model.ConfidenceHigh, model.ConfidenceMedium, model.ConfidenceLow:
	default:
		conf = model.ConfidenceMedium
	}

	// Qualification comes from the canonical mapping; the model's own
	// is_qualified field is advisory only.
	return decided(verdict(by, conf, v.Notes)), nil
}

// cleanJSON strips markdown fences and any prose surrounding the one JSON
// object the model was asked for.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}
