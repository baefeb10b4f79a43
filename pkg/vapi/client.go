// Package vapi is a client for the Vapi.ai outbound call API.
package vapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Default base URL for the Vapi API.
const defaultBaseURL = "https://api.vapi.ai"

// Client defines the Vapi operations used by the audit engine.
type Client interface {
	CreateCall(ctx context.Context, req CallRequest) (*Call, error)
	GetCall(ctx context.Context, id string) (*Call, error)
	ListAssistants(ctx context.Context) ([]Assistant, error)
	CreateAssistant(ctx context.Context, req AssistantRequest) (*Assistant, error)
}

// Customer is the callee of an outbound call.
type Customer struct {
	Number string `json:"number"`
}

// CallRequest is the body for POST /call/phone.
type CallRequest struct {
	AssistantID   string         `json:"assistantId"`
	PhoneNumberID string         `json:"phoneNumberId"`
	Customer      Customer       `json:"customer"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// CallMessage is a single transcript entry on a call. Depending on the
// pipeline stage Vapi populates either content or message.
type CallMessage struct {
	Role    string `json:"role"`
	Content string `json:"content,omitempty"`
	Message string `json:"message,omitempty"`
}

// Text returns whichever of the two payload fields is populated.
func (m CallMessage) Text() string {
	if m.Content != "" {
		return m.Content
	}
	return m.Message
}

// Call is the provider's view of a call, returned by both create and get.
// Status values "ended" and "failed" are terminal; anything else means the
// call is still in flight.
type Call struct {
	ID           string        `json:"id"`
	Status       string        `json:"status"`
	EndedReason  string        `json:"endedReason,omitempty"`
	Duration     float64       `json:"duration,omitempty"`
	Messages     []CallMessage `json:"messages,omitempty"`
	RecordingURL string        `json:"recordingUrl,omitempty"`
}

// Terminal reports whether the call has reached a terminal provider state.
func (c *Call) Terminal() bool {
	return c.Status == "ended" || c.Status == "failed"
}

// Assistant is a configured Vapi assistant.
type Assistant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AssistantRequest is the body for POST /assistant.
type AssistantRequest struct {
	Name                  string          `json:"name"`
	Model                 AssistantModel  `json:"model"`
	Voice                 AssistantVoice  `json:"voice"`
	FirstMessage          string          `json:"firstMessage"`
	FirstMessageMode      string          `json:"firstMessageMode,omitempty"`
	EndCallFunction       bool            `json:"endCallFunctionEnabled"`
	DialKeypadFunction    bool            `json:"dialKeypadFunctionEnabled"`
	SilenceTimeoutSeconds int             `json:"silenceTimeoutSeconds,omitempty"`
	MaxDurationSeconds    int             `json:"maxDurationSeconds,omitempty"`
	RecordingEnabled      bool            `json:"recordingEnabled"`
	Transcriber           map[string]any  `json:"transcriber,omitempty"`
}

// AssistantModel configures the LLM behind an assistant.
type AssistantModel struct {
	Provider    string             `json:"provider"`
	Model       string             `json:"model"`
	Messages    []AssistantMessage `json:"messages,omitempty"`
	Temperature float64            `json:"temperature,omitempty"`
	MaxTokens   int                `json:"maxTokens,omitempty"`
}

// AssistantMessage is a system/user message in the assistant's model config.
type AssistantMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AssistantVoice configures the TTS voice.
type AssistantVoice struct {
	Provider string `json:"provider"`
	VoiceID  string `json:"voiceId"`
}

// APIError is returned when Vapi responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vapi: HTTP %d: %s", e.StatusCode, e.Body)
}

// RateLimited reports whether the provider rejected the request for rate
// limiting, the only dispatch failure worth retrying.
func (e *APIError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit sets the requests-per-second pacing for all API calls.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// httpClient implements Client using net/http.
type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a new Vapi client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(2, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) CreateCall(ctx context.Context, req CallRequest) (*Call, error) {
	var resp Call
	if err := c.post(ctx, "/call/phone", req, &resp); err != nil {
		return nil, eris.Wrap(err, "vapi: create call")
	}
	return &resp, nil
}

func (c *httpClient) GetCall(ctx context.Context, id string) (*Call, error) {
	var resp Call
	if err := c.get(ctx, "/call/"+id, &resp); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("vapi: get call %s", id))
	}
	return &resp, nil
}

func (c *httpClient) ListAssistants(ctx context.Context) ([]Assistant, error) {
	var resp []Assistant
	if err := c.get(ctx, "/assistant", &resp); err != nil {
		return nil, eris.Wrap(err, "vapi: list assistants")
	}
	return resp, nil
}

func (c *httpClient) CreateAssistant(ctx context.Context, req AssistantRequest) (*Assistant, error) {
	var resp Assistant
	if err := c.post(ctx, "/assistant", req, &resp); err != nil {
		return nil, eris.Wrap(err, "vapi: create assistant")
	}
	return &resp, nil
}

func (c *httpClient) post(ctx context.Context, path string, body any, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return eris.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(ctx, req, out)
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}

	return c.do(ctx, req, out)
}

func (c *httpClient) do(ctx context.Context, req *http.Request, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "rate limit wait")
		}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrap(err, "decode response")
	}
	return nil
}
