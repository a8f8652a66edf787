package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/madhatter5501/aegis/internal/apperr"
)

const (
	anthropicBaseURL    = "https://api.anthropic.com"
	anthropicAPIVersion = "2023-06-01"
	anthropicDefaultModel = "claude-sonnet-4-20250514"
	anthropicDefaultMaxTokens = 16384
)

// AnthropicProvider calls the Anthropic Messages API directly over
// net/http, matching the teacher's hand-rolled client rather than pulling
// in a vendor SDK.
type AnthropicProvider struct {
	apiKey     string
	httpClient *http.Client
}

// NewAnthropicProvider reads ANTHROPIC_API_KEY; a missing key yields a
// provider whose Available() is false rather than a constructor error.
func NewAnthropicProvider() *AnthropicProvider {
	return &AnthropicProvider{
		apiKey:     os.Getenv("ANTHROPIC_API_KEY"),
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

func (p *AnthropicProvider) Name() string    { return "anthropic" }
func (p *AnthropicProvider) Available() bool { return p.apiKey != "" }

type anthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type anthropicSystemBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicMessage struct {
	Role    string                  `json:"role"`
	Content []anthropicContentBlock `json:"content"`
}

type anthropicRequest struct {
	Model       string                 `json:"model"`
	MaxTokens   int                    `json:"max_tokens"`
	System      []anthropicSystemBlock `json:"system,omitempty"`
	Messages    []anthropicMessage     `json:"messages"`
	Temperature *float64               `json:"temperature,omitempty"`
}

type anthropicResponse struct {
	Content    []anthropicContentBlock `json:"content"`
	StopReason string                  `json:"stop_reason"`
	Error      *anthropicAPIError      `json:"error,omitempty"`
}

type anthropicAPIError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Complete implements Provider.
func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (string, error) {
	if !p.Available() {
		return "", apperr.New(apperr.KindLLMError, "anthropic provider not available: ANTHROPIC_API_KEY not set")
	}

	model := req.Model
	if model == "" {
		model = anthropicDefaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = anthropicDefaultMaxTokens
	}

	body := anthropicRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	}
	if req.SystemPrompt != "" {
		body.System = []anthropicSystemBlock{{Type: "text", Text: req.SystemPrompt}}
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, anthropicMessage{
			Role:    m.Role,
			Content: []anthropicContentBlock{{Type: "text", Text: m.Content}},
		})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", apperr.Wrap(apperr.KindLLMError, err, "encode anthropic request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicBaseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return "", apperr.Wrap(apperr.KindLLMError, err, "build anthropic request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", apperr.Wrap(apperr.KindLLMError, err, "call anthropic api")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperr.Wrap(apperr.KindLLMError, err, "read anthropic response")
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", apperr.Wrap(apperr.KindLLMError, err, "decode anthropic response")
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return "", apperr.New(apperr.KindLLMError, "anthropic api error (%s): %s", parsed.Error.Type, parsed.Error.Message)
		}
		return "", apperr.New(apperr.KindLLMError, "anthropic api returned status %d", resp.StatusCode)
	}

	var text string
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text, nil
}
