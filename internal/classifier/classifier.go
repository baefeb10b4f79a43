// Package classifier turns a terminal call record into a qualification
// verdict through a cascade of tiers. Earlier tiers are cheap and
// deterministic; the semantic tier only runs when they decline to decide,
// and the keyword fallback always produces an answer.
package classifier

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/nightline/internal/model"
	"github.com/sells-group/nightline/pkg/anthropic"
)

// Mode selects the active tier configuration.
type Mode string

const (
	// ModeLLM runs the semantic tier before the keyword fallback.
	ModeLLM Mode = "llm"
	// ModeHeuristic skips the semantic tier entirely.
	ModeHeuristic Mode = "heuristic"
)

// Decision is the tagged result of one tier: either a final verdict or a
// pass-through to the next tier.
type Decision struct {
	Decided bool
	Result  model.ClassificationResult
}

func decided(r model.ClassificationResult) Decision {
	return Decision{Decided: true, Result: r}
}

var passThrough = Decision{}

// Classifier resolves call records into classification results.
type Classifier struct {
	mode    Mode
	ai      anthropic.Client
	aiModel string
}

// New creates a Classifier. ai may be nil, in which case the classifier
// behaves as if ModeHeuristic were configured.
func New(mode Mode, ai anthropic.Client, aiModel string) *Classifier {
	if ai == nil {
		mode = ModeHeuristic
	}
	return &Classifier{mode: mode, ai: ai, aiModel: aiModel}
}

// Classify derives a verdict for a terminal call record. It never returns
// an error: any tier failure falls through to the keyword tier, and the
// worst case is an unknown/low verdict flagged for manual review.
func (c *Classifier) Classify(ctx context.Context, rec model.CallRecord) model.ClassificationResult {
	cleaned := CleanTranscript(rec.Transcript)
	summary := Summarize(rec, cleaned)

	if d := classifyEndReason(rec); d.Decided {
		d.Result.Summary = summary
		return d.Result
	}

	if d := classifySilence(cleaned); d.Decided {
		d.Result.Summary = summary
		return d.Result
	}

	if c.mode == ModeLLM {
		d, err := c.classifySemantic(ctx, rec, cleaned)
		if err != nil {
			zap.L().Warn("semantic classification failed, using keyword fallback",
				zap.String("handle", rec.Handle),
				zap.Error(err),
			)
		} else if d.Decided {
			d.Result.Summary = summary
			return d.Result
		}
	}

	result := classifyKeywords(cleaned)
	result.Summary = summary
	return result
}

// classifyEndReason is the deterministic tier: some provider end reasons
// encode a telephony-level fact that needs no transcript at all.
func classifyEndReason(rec model.CallRecord) Decision {
	switch rec.EndReason {
	case "customer-did-not-answer":
		return decided(verdict(model.AnsweredNoAnswer, model.ConfidenceHigh,
			"no answer - nobody picked up"))
	case "customer-busy":
		return decided(verdict(model.AnsweredBusy, model.ConfidenceHigh,
			"line busy - retry in a later run"))
	}
	return passThrough
}

// classifySilence handles calls that connected to nothing that ever spoke:
// once the agent's own lines are stripped, an empty transcript is a
// no-answer regardless of how the provider ended the call.
func classifySilence(cleaned string) Decision {
	if len(cleaned) < minContentChars {
		return decided(verdict(model.AnsweredNoAnswer, model.ConfidenceHigh,
			"call connected but nothing spoke"))
	}
	return passThrough
}
