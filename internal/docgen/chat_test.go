package docgen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"doccov/internal/errors"
	"doccov/internal/slogutil"
)

func newTestClient(url string) *ChatClient {
	return NewChatClient(ChatOptions{
		Endpoint:    url,
		Model:       "test-model",
		APIKey:      "secret",
		Temperature: 0.1,
		Timeout:     5 * time.Second,
		MaxRetries:  2,
	}, slogutil.NewDiscardLogger())
}

func reply(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
}

func TestChatClientGenerate(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret" {
			t.Errorf("Authorization = %q", auth)
		}
		if ua := r.Header.Get("User-Agent"); !strings.HasPrefix(ua, "doccov/") {
			t.Errorf("User-Agent = %q", ua)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		reply(w, "Here you go:\n```json\n{\"summary\": \"Add two numbers.\", \"args\": {\"a\": \"First.\"}, \"returns\": \"The sum.\", \"raises\": {\"TypeError\": \"on bad input\"}}\n```")
	}))
	defer server.Close()

	c, err := newTestClient(server.URL).Generate(context.Background(), sampleFunction())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got.Model != "test-model" || got.Temperature != 0.1 || len(got.Messages) != 1 {
		t.Errorf("request = %+v", got)
	}
	if !strings.Contains(got.Messages[0].Content, "Function: add") || !strings.Contains(got.Messages[0].Content, "Args: ['a', 'b']") {
		t.Errorf("prompt = %q", got.Messages[0].Content)
	}
	if c.Summary != "Add two numbers." || c.Args["a"] != "First." || c.Returns != "The sum." || c.Raises["TypeError"] != "on bad input" {
		t.Errorf("content = %+v", c)
	}
}

func TestChatClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		reply(w, `{"summary": "Ok."}`)
	}))
	defer server.Close()

	c, err := newTestClient(server.URL).Generate(context.Background(), sampleFunction())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
	if c.Summary != "Ok." || c.Args == nil || c.Raises == nil {
		t.Errorf("content = %+v", c)
	}
}

func TestChatClientClientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "Invalid API Key"}}`))
	}))
	defer server.Close()

	c, err := newTestClient(server.URL).Generate(context.Background(), sampleFunction())
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.HasCode(err, errors.GenerationFailed) {
		t.Errorf("error code = %s", errors.CodeOf(err))
	}
	if calls.Load() != 1 {
		t.Errorf("4xx must not be retried, calls = %d", calls.Load())
	}
	if !strings.HasPrefix(c.Summary, "Error generating docstring: ") || !strings.Contains(c.Summary, "Invalid API Key") {
		t.Errorf("failure summary = %q", c.Summary)
	}
}

func TestChatClientInvalidReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reply(w, "I cannot help with that.")
	}))
	defer server.Close()

	if _, err := newTestClient(server.URL).Generate(context.Background(), sampleFunction()); err == nil {
		t.Error("expected error for non-JSON reply")
	}
}

func TestChatClientCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newTestClient(server.URL).Generate(ctx, sampleFunction()); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"bare", `{"summary": "x"}`, `{"summary": "x"}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"plain fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"prose around", "Sure! {\"a\": 1} Hope it helps.", `{"a": 1}`},
		{"no object", "nothing here", "nothing here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSON(tt.reply); got != tt.want {
				t.Errorf("extractJSON(%q) = %q, want %q", tt.reply, got, tt.want)
			}
		})
	}
}
