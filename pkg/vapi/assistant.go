package vapi

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// listenerPrompt keeps the agent silent so the transcript reflects only the
// callee's side: stay quiet until spoken to, navigate IVR menus toward a
// live operator, hang up on voicemail, excuse itself if a human answers.
const listenerPrompt = `Silent listener. Rules:
1. STAY SILENT until human speaks
2. IVR menu: press key for emergency/service/operator. If unsure press 0
3. Voicemail ("leave message"/"beep"): hang up with endCall
4. Human answers: say "Sorry wrong number!" then endCall
5. Never explain why calling`

// ListenerAssistant returns the audit assistant configuration under the
// given name.
func ListenerAssistant(name string) AssistantRequest {
	return AssistantRequest{
		Name: name,
		Model: AssistantModel{
			Provider: "openai",
			Model:    "gpt-3.5-turbo",
			Messages: []AssistantMessage{
				{Role: "system", Content: listenerPrompt},
			},
			Temperature: 0.1,
			MaxTokens:   50,
		},
		Voice: AssistantVoice{
			Provider: "deepgram",
			VoiceID:  "asteria",
		},
		FirstMessage:          "",
		FirstMessageMode:      "assistant-waits-for-user",
		EndCallFunction:       true,
		DialKeypadFunction:    true,
		SilenceTimeoutSeconds: 15,
		MaxDurationSeconds:    60,
		RecordingEnabled:      false,
		Transcriber: map[string]any{
			"provider": "deepgram",
			"model":    "nova-2",
			"language": "en",
		},
	}
}

// EnsureAssistant returns the ID of an existing assistant with the given
// name, creating it if none exists.
func EnsureAssistant(ctx context.Context, client Client, name string) (string, error) {
	assistants, err := client.ListAssistants(ctx)
	if err != nil {
		return "", eris.Wrap(err, "vapi: ensure assistant")
	}
	for _, a := range assistants {
		if a.Name == name {
			zap.L().Debug("reusing existing assistant",
				zap.String("name", name),
				zap.String("assistant_id", a.ID),
			)
			return a.ID, nil
		}
	}

	created, err := client.CreateAssistant(ctx, ListenerAssistant(name))
	if err != nil {
		return "", eris.Wrap(err, "vapi: ensure assistant")
	}
	zap.L().Info("created audit assistant",
		zap.String("name", name),
		zap.String("assistant_id", created.ID),
	)
	return created.ID, nil
}
