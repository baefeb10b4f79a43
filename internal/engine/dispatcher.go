// Package engine drives audit runs: dispatching calls, awaiting their
// terminal state, classifying what answered, and checkpointing results.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/nightline/internal/model"
	"github.com/sells-group/nightline/internal/resilience"
	"github.com/sells-group/nightline/pkg/vapi"
)

// Dispatcher places outbound calls through the voice provider.
type Dispatcher struct {
	client        vapi.Client
	phoneNumberID string
	assistantID   string
	retry         resilience.RetryConfig
}

// NewDispatcher creates a Dispatcher. maxAttempts bounds how many times a
// rate-limited dispatch is retried; any other provider rejection is terminal
// on the first attempt.
func NewDispatcher(client vapi.Client, phoneNumberID, assistantID string, maxAttempts int) *Dispatcher {
	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = maxAttempts
	retry.InitialBackoff = 2 * time.Second
	retry.ShouldRetry = func(err error) bool {
		var apiErr *vapi.APIError
		return errors.As(err, &apiErr) && apiErr.RateLimited()
	}
	retry.OnRetry = resilience.RetryLogger("vapi", "create call")

	return &Dispatcher{
		client:        client,
		phoneNumberID: phoneNumberID,
		assistantID:   assistantID,
		retry:         retry,
	}
}

// Dispatch places one call to the target and returns the provider's call
// handle. The target is echoed into call metadata so the provider-side call
// log stays attributable.
func (d *Dispatcher) Dispatch(ctx context.Context, target model.CallTarget) (string, error) {
	req := vapi.CallRequest{
		AssistantID:   d.assistantID,
		PhoneNumberID: d.phoneNumberID,
		Customer:      vapi.Customer{Number: target.Phone},
		Metadata: map[string]any{
			"business_name": target.BusinessName,
			"location":      target.Location,
			"claims_24_7":   target.Claims24x7,
		},
	}

	call, err := resilience.DoVal(ctx, d.retry, func(ctx context.Context) (*vapi.Call, error) {
		return d.client.CreateCall(ctx, req)
	})
	if err != nil {
		return "", eris.Wrapf(err, "dispatch %s", target.Phone)
	}
	if call.ID == "" {
		return "", eris.Errorf("dispatch %s: provider returned no call id", target.Phone)
	}
	return call.ID, nil
}
