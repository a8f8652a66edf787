package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/madhatter5501/aegis/internal/apperr"
)

const (
	googleBaseURL     = "https://generativelanguage.googleapis.com/v1beta"
	googleDefaultModel = "gemini-2.0-flash"
)

// GoogleProvider calls the Gemini generateContent endpoint directly.
type GoogleProvider struct {
	apiKey     string
	httpClient *http.Client
}

func NewGoogleProvider() *GoogleProvider {
	return &GoogleProvider{
		apiKey:     os.Getenv("GOOGLE_API_KEY"),
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

func (p *GoogleProvider) Name() string    { return "google" }
func (p *GoogleProvider) Available() bool { return p.apiKey != "" }

type googleContentPart struct {
	Text string `json:"text"`
}

type googleContent struct {
	Role  string              `json:"role,omitempty"`
	Parts []googleContentPart `json:"parts"`
}

type googleGenerateRequest struct {
	Contents          []googleContent        `json:"contents"`
	SystemInstruction *googleContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  *googleGenerationConfig `json:"generationConfig,omitempty"`
}

type googleGenerationConfig struct {
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
}

type googleGenerateResponse struct {
	Candidates []struct {
		Content googleContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete implements Provider. Gemini has no separate "assistant" role
// for history; prior assistant turns are sent with role "model".
func (p *GoogleProvider) Complete(ctx context.Context, req Request) (string, error) {
	if !p.Available() {
		return "", apperr.New(apperr.KindLLMError, "google provider not available: GOOGLE_API_KEY not set")
	}

	model := req.Model
	if model == "" {
		model = googleDefaultModel
	}

	body := googleGenerateRequest{
		GenerationConfig: &googleGenerationConfig{
			MaxOutputTokens: req.MaxTokens,
			Temperature:     req.Temperature,
		},
	}
	if req.SystemPrompt != "" {
		body.SystemInstruction = &googleContent{Parts: []googleContentPart{{Text: req.SystemPrompt}}}
	}
	for _, m := range req.Messages {
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		body.Contents = append(body.Contents, googleContent{Role: role, Parts: []googleContentPart{{Text: m.Content}}})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", apperr.Wrap(apperr.KindLLMError, err, "encode google request")
	}

	endpoint := googleBaseURL + "/models/" + url.PathEscape(model) + ":generateContent?key=" + url.QueryEscape(p.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", apperr.Wrap(apperr.KindLLMError, err, "build google request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", apperr.Wrap(apperr.KindLLMError, err, "call google api")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperr.Wrap(apperr.KindLLMError, err, "read google response")
	}

	var parsed googleGenerateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", apperr.Wrap(apperr.KindLLMError, err, "decode google response")
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return "", apperr.New(apperr.KindLLMError, "google api error: %s", parsed.Error.Message)
		}
		return "", apperr.New(apperr.KindLLMError, "google api returned status %d", resp.StatusCode)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", apperr.New(apperr.KindLLMError, "google api returned no candidates")
	}

	var text string
	for _, part := range parsed.Candidates[0].Content.Parts {
		text += part.Text
	}
	return text, nil
}
