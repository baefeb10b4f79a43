package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/nightline/internal/model"
	"github.com/sells-group/nightline/pkg/anthropic"
)

// stubAI returns a canned response (or error) for every CreateMessage call.
type stubAI struct {
	response string
	err      error
	calls    int
}

func (s *stubAI) CreateMessage(_ context.Context, _ anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: s.response}},
	}, nil
}

func record(endReason string, duration int, lines ...model.TranscriptLine) model.CallRecord {
	return model.CallRecord{
		Handle:          "call-1",
		Status:          model.CallStatusEnded,
		EndReason:       endReason,
		DurationSeconds: duration,
		Transcript:      lines,
	}
}

func user(text string) model.TranscriptLine {
	return model.TranscriptLine{Speaker: "user", Text: text}
}

func TestClassify_EndReasonTier(t *testing.T) {
	c := New(ModeHeuristic, nil, "")

	tests := []struct {
		endReason string
		want      model.AnsweredBy
		qualified bool
	}{
		{"customer-did-not-answer", model.AnsweredNoAnswer, true},
		{"customer-busy", model.AnsweredBusy, false},
	}
	for _, tt := range tests {
		got := c.Classify(context.Background(), record(tt.endReason, 0))
		assert.Equal(t, tt.want, got.AnsweredBy, "end reason %s", tt.endReason)
		assert.Equal(t, tt.qualified, got.IsQualified)
		assert.Equal(t, model.ConfidenceHigh, got.Confidence)
	}
}

func TestClassify_SilenceTier(t *testing.T) {
	c := New(ModeHeuristic, nil, "")

	// Agent lines are stripped; only the agent spoke, so this is silence.
	rec := record("silence-timed-out", 16,
		model.TranscriptLine{Speaker: "assistant", Text: "Sorry wrong number!"},
	)
	got := c.Classify(context.Background(), rec)
	assert.Equal(t, model.AnsweredNoAnswer, got.AnsweredBy)
	assert.True(t, got.IsQualified)
	assert.Equal(t, model.ConfidenceHigh, got.Confidence)
}

func TestClassify_KeywordTier(t *testing.T) {
	c := New(ModeHeuristic, nil, "")

	tests := []struct {
		name      string
		text      string
		want      model.AnsweredBy
		qualified bool
	}{
		{"voicemail", "you have reached ace plumbing, please leave a message after the beep", model.AnsweredVoicemail, true},
		{"answering service", "ace plumbing answering service, can i get your name and callback number", model.AnsweredService, false},
		{"live human", "hello? who is this? i think you have the wrong number", model.AnsweredHuman, false},
		{"ivr menu", "thank you for calling. press 1 for sales, press 2 for service", model.AnsweredIVROnly, true},
		{"unintelligible", "the quick brown fox jumped over everything repeatedly tonight", model.AnsweredUnknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(context.Background(), record("exceeded-max-duration", 45, user(tt.text)))
			assert.Equal(t, tt.want, got.AnsweredBy)
			assert.Equal(t, tt.qualified, got.IsQualified)
		})
	}
}

func TestClassify_ServiceBeatsVoicemailPhrase(t *testing.T) {
	c := New(ModeHeuristic, nil, "")

	// A live operator offering to take a message is still live coverage.
	got := c.Classify(context.Background(), record("", 30,
		user("answering service, how may i help you? i can take a message for the on-call tech"),
	))
	assert.Equal(t, model.AnsweredService, got.AnsweredBy)
	assert.False(t, got.IsQualified)
}

func TestClassify_DisclaimerAloneIsInconclusive(t *testing.T) {
	c := New(ModeHeuristic, nil, "")

	got := c.Classify(context.Background(), record("exceeded-max-duration", 12,
		user("this call may be recorded for quality assurance purposes"),
	))
	assert.Equal(t, model.AnsweredInconclusive, got.AnsweredBy)
	assert.True(t, got.IsQualified)
}

func TestClassify_SemanticTier(t *testing.T) {
	ai := &stubAI{response: "```json\n{\"answered_by\": \"voicemail\", \"is_qualified\": true, \"confidence\": \"high\", \"notes\": \"greeting ends in a record prompt\"}\n```"}
	c := New(ModeLLM, ai, "test-model")

	got := c.Classify(context.Background(), record("exceeded-max-duration", 40,
		user("hi you've reached ace plumbing we can't get to the phone right now"),
	))
	assert.Equal(t, 1, ai.calls)
	assert.Equal(t, model.AnsweredVoicemail, got.AnsweredBy)
	assert.True(t, got.IsQualified)
	assert.Equal(t, model.ConfidenceHigh, got.Confidence)
	assert.Equal(t, "greeting ends in a record prompt", got.Notes)
}

func TestClassify_SemanticQualificationIsCanonical(t *testing.T) {
	// The model claims a human pickup is qualified; the canonical mapping
	// overrules it.
	ai := &stubAI{response: `{"answered_by": "human", "is_qualified": true, "confidence": "high", "notes": "x"}`}
	c := New(ModeLLM, ai, "test-model")

	got := c.Classify(context.Background(), record("", 30, user("who is this? what do you need")))
	assert.Equal(t, model.AnsweredHuman, got.AnsweredBy)
	assert.False(t, got.IsQualified)
}

func TestClassify_SemanticFailureFallsBack(t *testing.T) {
	ai := &stubAI{err: errors.New("api unavailable")}
	c := New(ModeLLM, ai, "test-model")

	got := c.Classify(context.Background(), record("", 20,
		user("please leave a message after the tone"),
	))
	assert.Equal(t, 1, ai.calls)
	assert.Equal(t, model.AnsweredVoicemail, got.AnsweredBy)
	assert.True(t, got.IsQualified)
}

func TestClassify_SemanticGarbageFallsBack(t *testing.T) {
	tests := []string{
		"I think it was probably a voicemail.",
		`{"answered_by": "robot", "confidence": "high"}`,
	}
	for _, response := range tests {
		ai := &stubAI{response: response}
		c := New(ModeLLM, ai, "test-model")

		got := c.Classify(context.Background(), record("", 25,
			user("press 1 for sales, press 2 for service"),
		))
		assert.Equal(t, model.AnsweredIVROnly, got.AnsweredBy, "response: %s", response)
	}
}

func TestClassify_NilAIForcesHeuristic(t *testing.T) {
	c := New(ModeLLM, nil, "")
	got := c.Classify(context.Background(), record("", 20, user("please leave a message")))
	assert.Equal(t, model.AnsweredVoicemail, got.AnsweredBy)
}

func TestClassify_DeterministicTiersSkipAI(t *testing.T) {
	ai := &stubAI{response: `{"answered_by": "human", "confidence": "high"}`}
	c := New(ModeLLM, ai, "test-model")

	c.Classify(context.Background(), record("customer-busy", 0))
	assert.Equal(t, 0, ai.calls)
}

func TestClassify_AlwaysSetsSummary(t *testing.T) {
	c := New(ModeHeuristic, nil, "")

	got := c.Classify(context.Background(), record("customer-did-not-answer", 0))
	require.NotEmpty(t, got.Summary)
	assert.Contains(t, got.Summary, "end=customer-did-not-answer")
	assert.Contains(t, got.Summary, "no speech")
}

func TestStripDisclaimers_Idempotent(t *testing.T) {
	in := "this call may be recorded. please leave a message"
	once := StripDisclaimers(in)
	twice := StripDisclaimers(once)
	assert.Equal(t, once, twice)
	assert.NotContains(t, once, "may be recorded")
}

func TestCleanTranscript_DropsAgentLines(t *testing.T) {
	lines := []model.TranscriptLine{
		{Speaker: "assistant", Text: "Sorry wrong number!"},
		{Speaker: "bot", Text: "pressing 0"},
		{Speaker: "user", Text: "Hello?"},
		{Speaker: "user", Text: ""},
		{Speaker: "User", Text: "Who is this?"},
	}
	got := CleanTranscript(lines)
	assert.Equal(t, "hello?\nwho is this?", got)
}
