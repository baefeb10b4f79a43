// Package cost estimates provider spend for audit calls. Estimates only:
// the authoritative number is the provider invoice.
package cost

import "github.com/sells-group/nightline/internal/model"

// Rates holds per-minute pricing for each leg of a call.
type Rates struct {
	LLMPerMinute         float64 `yaml:"llm_per_minute" mapstructure:"llm_per_minute"`
	VoicePerMinute       float64 `yaml:"voice_per_minute" mapstructure:"voice_per_minute"`
	TranscriberPerMinute float64 `yaml:"transcriber_per_minute" mapstructure:"transcriber_per_minute"`
	PlatformPerMinute    float64 `yaml:"platform_per_minute" mapstructure:"platform_per_minute"`
	TelephonyPerMinute   float64 `yaml:"telephony_per_minute" mapstructure:"telephony_per_minute"`
}

// DefaultRates reflects the budget stack the audit assistant is built on:
// gpt-3.5-turbo, Deepgram voice and transcription, Vapi platform, Twilio.
func DefaultRates() Rates {
	return Rates{
		LLMPerMinute:         0.002,
		VoicePerMinute:       0.007,
		TranscriberPerMinute: 0.0043,
		PlatformPerMinute:    0.05,
		TelephonyPerMinute:   0.014,
	}
}

// PerMinute returns the combined rate across all legs.
func (r Rates) PerMinute() float64 {
	return r.LLMPerMinute + r.VoicePerMinute + r.TranscriberPerMinute +
		r.PlatformPerMinute + r.TelephonyPerMinute
}

// Calculator computes estimated call spend.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// CallCost estimates the cost of a single call, billed per second.
func (c *Calculator) CallCost(durationSeconds int) float64 {
	if durationSeconds <= 0 {
		return 0
	}
	return c.rates.PerMinute() * float64(durationSeconds) / 60.0
}

// RunCost estimates the total connected-call spend for a run. Calls that
// never connected (dispatch errors) cost nothing.
func (c *Calculator) RunCost(run *model.AuditRun) float64 {
	var total float64
	for _, r := range run.Results {
		total += c.CallCost(r.Record.DurationSeconds)
	}
	return total
}
