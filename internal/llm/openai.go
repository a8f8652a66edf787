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
	openAIBaseURL     = "https://api.openai.com/v1"
	openAIDefaultModel = "gpt-4o"
)

// OpenAIProvider calls the OpenAI chat completions endpoint directly.
type OpenAIProvider struct {
	apiKey     string
	httpClient *http.Client
}

func NewOpenAIProvider() *OpenAIProvider {
	return &OpenAIProvider{
		apiKey:     os.Getenv("OPENAI_API_KEY"),
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

func (p *OpenAIProvider) Name() string    { return "openai" }
func (p *OpenAIProvider) Available() bool { return p.apiKey != "" }

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model       string               `json:"model"`
	Messages    []openAIChatMessage  `json:"messages"`
	MaxTokens   int                  `json:"max_tokens,omitempty"`
	Temperature *float64             `json:"temperature,omitempty"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message openAIChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete implements Provider.
func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (string, error) {
	if !p.Available() {
		return "", apperr.New(apperr.KindLLMError, "openai provider not available: OPENAI_API_KEY not set")
	}

	model := req.Model
	if model == "" {
		model = openAIDefaultModel
	}

	var messages []openAIChatMessage
	if req.SystemPrompt != "" {
		messages = append(messages, openAIChatMessage{Role: "system", Content: req.SystemPrompt})
	}
	for _, m := range req.Messages {
		messages = append(messages, openAIChatMessage{Role: m.Role, Content: m.Content})
	}

	payload, err := json.Marshal(openAIChatRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", apperr.Wrap(apperr.KindLLMError, err, "encode openai request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, openAIBaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", apperr.Wrap(apperr.KindLLMError, err, "build openai request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", apperr.Wrap(apperr.KindLLMError, err, "call openai api")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperr.Wrap(apperr.KindLLMError, err, "read openai response")
	}

	var parsed openAIChatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", apperr.Wrap(apperr.KindLLMError, err, "decode openai response")
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return "", apperr.New(apperr.KindLLMError, "openai api error: %s", parsed.Error.Message)
		}
		return "", apperr.New(apperr.KindLLMError, "openai api returned status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return "", apperr.New(apperr.KindLLMError, "openai api returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
