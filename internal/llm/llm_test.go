package llm

import (
	"context"
	"os"
	"testing"

	"github.com/madhatter5501/aegis/internal/apperr"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GOOGLE_API_KEY"} {
		old, had := os.LookupEnv(key)
		os.Unsetenv(key)
		t.Cleanup(func() {
			if had {
				os.Setenv(key, old)
			}
		})
	}
}

func TestProvidersUnavailableWithoutAPIKey(t *testing.T) {
	clearProviderEnv(t)

	for _, p := range []Provider{NewAnthropicProvider(), NewOpenAIProvider(), NewGoogleProvider()} {
		if p.Available() {
			t.Errorf("%s: expected Available()=false with no API key set", p.Name())
		}
	}
}

func TestProviderCompleteFailsClearlyWhenUnavailable(t *testing.T) {
	clearProviderEnv(t)

	p := NewAnthropicProvider()
	_, err := p.Complete(context.Background(), Request{Messages: []Message{{Role: "user", Content: "hi"}}})
	if apperr.ClassifyOf(err) != apperr.KindLLMError {
		t.Fatalf("expected KindLLMError, got %v", err)
	}
}

func TestFactoryGetProviderRejectsUnknownName(t *testing.T) {
	f := NewFactory()
	_, err := f.GetProvider("carrier-pigeon")
	if apperr.ClassifyOf(err) != apperr.KindInvalidInput {
		t.Fatalf("expected KindInvalidInput, got %v", err)
	}
}

func TestFactoryGetProviderCachesInstance(t *testing.T) {
	f := NewFactory()
	p1, err := f.GetProvider("anthropic")
	if err != nil {
		t.Fatalf("GetProvider: %v", err)
	}
	p2, err := f.GetProvider("anthropic")
	if err != nil {
		t.Fatalf("GetProvider: %v", err)
	}
	if p1 != p2 {
		t.Fatal("expected cached provider instance on second call")
	}
}

func TestFactoryCompleteFailsWhenNoProviderAvailable(t *testing.T) {
	clearProviderEnv(t)
	f := NewFactory()

	_, err := f.Complete(context.Background(), "", Request{Messages: []Message{{Role: "user", Content: "hi"}}})
	if apperr.ClassifyOf(err) != apperr.KindLLMError {
		t.Fatalf("expected KindLLMError, got %v", err)
	}
}
