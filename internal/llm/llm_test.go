package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lukeacampbell/Stock-News-Sentiment/internal/config"
)

// ════════════════════════════════════════════════════════════════════
// provider.go: Types & Helpers
// ════════════════════════════════════════════════════════════════════

func TestMessageConstructors(t *testing.T) {
	sys := SystemMessage("You are a financial analyst.")
	if sys.Role != RoleSystem || sys.Content != "You are a financial analyst." {
		t.Fatalf("SystemMessage: got %+v", sys)
	}

	user := UserMessage("hello")
	if user.Role != RoleUser || user.Content != "hello" {
		t.Fatalf("UserMessage: got %+v", user)
	}

	asst := AssistantMessage("5")
	if asst.Role != RoleAssistant || asst.Content != "5" {
		t.Fatalf("AssistantMessage: got %+v", asst)
	}
}

func TestResponseString(t *testing.T) {
	r := &Response{
		Provider: "groq", Model: "llama-3.1-8b-instant",
		Content: "7",
		Usage:   Usage{TotalTokens: 50},
		Latency: 100 * time.Millisecond,
	}
	s := r.String()
	if !strings.Contains(s, "groq/llama-3.1-8b-instant") || !strings.Contains(s, "50 tokens") {
		t.Fatalf("unexpected String(): %s", s)
	}

	r.Content = strings.Repeat("x", 200)
	if s = r.String(); !strings.Contains(s, "...") {
		t.Fatal("expected truncation for long content")
	}
}

func TestMapFinishReason(t *testing.T) {
	tests := map[string]FinishReason{
		"stop":       FinishStop,
		"end_turn":   FinishStop,
		"length":     FinishLength,
		"max_tokens": FinishLength,
		"other":      FinishReason("other"),
	}
	for in, want := range tests {
		if got := mapFinishReason(in); got != want {
			t.Errorf("mapFinishReason(%q) = %q, want %q", in, got, want)
		}
	}
}

// ════════════════════════════════════════════════════════════════════
// openai.go: OpenAI-compatible (Groq, OpenAI)
// ════════════════════════════════════════════════════════════════════

func TestOpenAIProviderNew(t *testing.T) {
	_, err := NewOpenAIProvider("")
	if err != ErrNoAPIKey {
		t.Fatalf("expected ErrNoAPIKey, got: %v", err)
	}

	p, err := NewOpenAIProvider("sk-test", WithOpenAIModel("gpt-4o"), WithOpenAIBaseURL("http://custom/"))
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != "openai" || p.model != "gpt-4o" || p.baseURL != "http://custom" {
		t.Fatalf("unexpected config: %+v", p)
	}
}

func TestGroqProviderDefaults(t *testing.T) {
	p, err := NewGroqProvider("gsk-test")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != ProviderGroq || p.baseURL != GroqBaseURL || p.model != GroqDefaultModel {
		t.Fatalf("unexpected config: %+v", p)
	}

	p, _ = NewGroqProvider("gsk-test", WithOpenAIModel("llama-3.3-70b-versatile"))
	if p.model != "llama-3.3-70b-versatile" {
		t.Fatalf("model override lost: %s", p.model)
	}
}

func TestOpenAIChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer gsk-test" {
			t.Error("missing auth header")
		}

		var req openAIChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != GroqDefaultModel {
			t.Errorf("unexpected model: %s", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		if req.Temperature == nil || *req.Temperature != 0 {
			t.Error("expected explicit temperature 0")
		}
		if req.MaxTokens == nil || *req.MaxTokens != 10 {
			t.Error("expected max_tokens 10")
		}

		json.NewEncoder(w).Encode(openAIChatResponse{
			ID: "chatcmpl-123",
			Choices: []openAIChoice{{
				Message:      openAIMessage{Role: "assistant", Content: "6"},
				FinishReason: "stop",
			}},
			Usage: openAIUsage{PromptTokens: 20, CompletionTokens: 1, TotalTokens: 21},
			Model: GroqDefaultModel,
		})
	}))
	defer server.Close()

	p, _ := NewGroqProvider("gsk-test", WithOpenAIBaseURL(server.URL))
	resp, err := p.Chat(context.Background(),
		[]Message{SystemMessage("Score sentiment."), UserMessage("1. Apple beats estimates")},
		&ChatOptions{MaxTokens: 10})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "6" {
		t.Fatalf("unexpected content: %s", resp.Content)
	}
	if resp.Provider != "groq" || resp.Usage.TotalTokens != 21 || resp.FinishReason != FinishStop {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestOpenAIChatModelOverride(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openAIChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "gpt-4o" {
			t.Errorf("expected model override, got %s", req.Model)
		}
		json.NewEncoder(w).Encode(openAIChatResponse{
			Choices: []openAIChoice{{Message: openAIMessage{Content: "ok"}, FinishReason: "stop"}},
		})
	}))
	defer server.Close()

	p, _ := NewOpenAIProvider("sk-test", WithOpenAIBaseURL(server.URL))
	resp, err := p.Chat(context.Background(), []Message{UserMessage("test")}, &ChatOptions{Model: "gpt-4o"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Model != "gpt-4o" {
		t.Fatalf("model should fall back to the requested one, got %q", resp.Model)
	}
}

func TestOpenAIEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"x","choices":[]}`))
	}))
	defer server.Close()

	p, _ := NewOpenAIProvider("sk-test", WithOpenAIBaseURL(server.URL))
	_, err := p.Chat(context.Background(), []Message{UserMessage("test")}, nil)
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestOpenAIErrorHandling(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		want       error
	}{
		{"unauthorized", 401, `{"error":{"message":"Invalid key","code":"invalid_api_key"}}`, ErrNoAPIKey},
		{"rate_limit", 429, `{"error":{"message":"Rate limit exceeded","type":"rate_limit"}}`, ErrRateLimit},
		{"context_length", 400, `{"error":{"message":"Too many tokens","code":"context_length_exceeded"}}`, ErrContextLength},
		{"model_not_found", 404, `{"error":{"message":"Model not found","code":"model_not_found"}}`, ErrInvalidModel},
		{"server_error", 503, `upstream down`, ErrProviderDown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			p, _ := NewOpenAIProvider("sk-test", WithOpenAIBaseURL(server.URL))
			_, err := p.Chat(context.Background(), []Message{UserMessage("test")}, nil)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got: %v", tt.want, err)
			}
		})
	}
}

func TestOpenAIUnreachable(t *testing.T) {
	p, _ := NewOpenAIProvider("sk-test", WithOpenAIBaseURL("http://127.0.0.1:1"))
	_, err := p.Chat(context.Background(), []Message{UserMessage("test")}, nil)
	if !errors.Is(err, ErrProviderDown) {
		t.Fatalf("expected ErrProviderDown, got %v", err)
	}
}

func TestOpenAICustomHTTPClient(t *testing.T) {
	custom := &http.Client{Timeout: 5 * time.Second}
	p, _ := NewOpenAIProvider("sk-test", WithOpenAIHTTPClient(custom))
	if p.client != custom {
		t.Fatal("custom HTTP client not set")
	}
}

// ════════════════════════════════════════════════════════════════════
// anthropic.go: Messages API via the SDK
// ════════════════════════════════════════════════════════════════════

func TestAnthropicProviderNew(t *testing.T) {
	_, err := NewAnthropicProvider("")
	if err != ErrNoAPIKey {
		t.Fatalf("expected ErrNoAPIKey, got: %v", err)
	}

	p, err := NewAnthropicProvider("sk-ant-test", WithAnthropicModel("claude-haiku-4-5"))
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != "anthropic" || p.model != "claude-haiku-4-5" {
		t.Fatalf("unexpected config: %+v", p)
	}
}

func TestAnthropicChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "sk-ant-test" {
			t.Error("missing x-api-key header")
		}

		var req struct {
			Model     string `json:"model"`
			MaxTokens int    `json:"max_tokens"`
			System    []struct {
				Text string `json:"text"`
			} `json:"system"`
			Messages []struct {
				Role string `json:"role"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.System) != 1 || req.System[0].Text != "Financial analyst" {
			t.Errorf("expected system prompt, got %+v", req.System)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		if req.MaxTokens != 10 {
			t.Errorf("max_tokens = %d, want 10", req.MaxTokens)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg_123",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-haiku-latest",
			"content": [{"type": "text", "text": "-4"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 15, "output_tokens": 2}
		}`))
	}))
	defer server.Close()

	p, _ := NewAnthropicProvider("sk-ant-test", WithAnthropicBaseURL(server.URL), WithAnthropicMaxRetries(0))
	resp, err := p.Chat(context.Background(),
		[]Message{SystemMessage("Financial analyst"), UserMessage("1. Tesla misses deliveries")},
		&ChatOptions{MaxTokens: 10})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "-4" {
		t.Fatalf("unexpected content: %s", resp.Content)
	}
	if resp.Provider != "anthropic" || resp.Usage.TotalTokens != 17 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.FinishReason != FinishStop {
		t.Fatalf("expected stop, got %s", resp.FinishReason)
	}
}

func TestAnthropicErrorHandling(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", 401, ErrNoAPIKey},
		{"rate_limit", 429, ErrRateLimit},
		{"overloaded", 529, ErrRateLimit},
		{"not_found", 404, ErrInvalidModel},
		{"server_error", 500, ErrProviderDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"nope"}}`))
			}))
			defer server.Close()

			p, _ := NewAnthropicProvider("sk-ant-test", WithAnthropicBaseURL(server.URL), WithAnthropicMaxRetries(0))
			_, err := p.Chat(context.Background(), []Message{UserMessage("hi")}, nil)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

// ════════════════════════════════════════════════════════════════════
// factory.go
// ════════════════════════════════════════════════════════════════════

func TestNewFromConfig(t *testing.T) {
	t.Run("groq", func(t *testing.T) {
		p, err := NewFromConfig(config.LLMConfig{Provider: "groq", GroqKey: "gsk", Model: GroqDefaultModel})
		if err != nil {
			t.Fatal(err)
		}
		if p.Name() != ProviderGroq {
			t.Fatalf("got %s", p.Name())
		}
	})

	t.Run("groq without key", func(t *testing.T) {
		_, err := NewFromConfig(config.LLMConfig{Provider: "groq"})
		if !errors.Is(err, ErrNoAPIKey) {
			t.Fatalf("expected ErrNoAPIKey, got %v", err)
		}
	})

	t.Run("openai swaps the groq default model", func(t *testing.T) {
		p, err := NewFromConfig(config.LLMConfig{Provider: "openai", OpenAIKey: "sk", Model: GroqDefaultModel})
		if err != nil {
			t.Fatal(err)
		}
		if op := p.(*OpenAIProvider); op.model != OpenAIDefaultModel || op.baseURL != OpenAIBaseURL {
			t.Fatalf("unexpected config: %+v", op)
		}
	})

	t.Run("anthropic swaps the groq default model", func(t *testing.T) {
		p, err := NewFromConfig(config.LLMConfig{Provider: "Anthropic", AnthropicKey: "sk-ant", Model: GroqDefaultModel})
		if err != nil {
			t.Fatal(err)
		}
		if ap := p.(*AnthropicProvider); ap.model != AnthropicDefaultModel {
			t.Fatalf("unexpected model: %s", ap.model)
		}
	})

	t.Run("keyword", func(t *testing.T) {
		p, err := NewFromConfig(config.LLMConfig{Provider: "keyword"})
		if err != nil || p != nil {
			t.Fatalf("keyword should yield (nil, nil), got (%v, %v)", p, err)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := NewFromConfig(config.LLMConfig{Provider: "gemini"})
		if !errors.Is(err, ErrUnknownBackend) {
			t.Fatalf("expected ErrUnknownBackend, got %v", err)
		}
	})
}
