package ai_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/myrjola/rexcoach/internal/ai"
	"github.com/myrjola/rexcoach/internal/errors"
	"github.com/myrjola/rexcoach/internal/testhelpers"
)

func fakeCompletionServer(t *testing.T, content string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.Model != "test-model" {
			t.Errorf("model = %q", body.Model)
		}
		if len(body.Messages) != 2 || body.Messages[1].Content != "hello" {
			t.Errorf("unexpected messages %+v", body.Messages)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
			"usage": map[string]any{"prompt_tokens": 3, "completion_tokens": 5, "total_tokens": 8},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIClient_Complete(t *testing.T) {
	tests := []struct {
		name    string
		content string
		status  int
		want    string
		wantErr error
	}{
		{name: "reply", content: `{"name":"x"}`, status: http.StatusOK, want: `{"name":"x"}`},
		{name: "empty reply", content: "  ", status: http.StatusOK, wantErr: ai.ErrEmptyReply},
		{name: "server error", status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := fakeCompletionServer(t, tt.content, tt.status)
			client := ai.NewOpenAIClient(ai.Config{
				APIKey:     "test-key",
				BaseURL:    srv.URL,
				Model:      "test-model",
				MaxRetries: 0,
			}, testhelpers.NewLogger(testhelpers.NewWriter(t)))

			got, err := client.Complete(t.Context(), "hello")
			switch {
			case tt.status != http.StatusOK:
				if err == nil {
					t.Fatal("expected error")
				}
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
			default:
				if err != nil {
					t.Fatalf("Complete: %v", err)
				}
				if got != tt.want {
					t.Errorf("Complete = %q, want %q", got, tt.want)
				}
			}
		})
	}
}

func TestOpenAIClient_NotConfigured(t *testing.T) {
	client := ai.NewOpenAIClient(ai.Config{Model: "test-model"}, testhelpers.NewLogger(testhelpers.NewWriter(t)))
	if _, err := client.Complete(t.Context(), "hello"); !errors.Is(err, ai.ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}
