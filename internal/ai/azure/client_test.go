package azure

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	temp := float32(0)
	client, err := NewClient(Config{
		Endpoint:    srv.URL + "/",
		Deployment:  "gpt-4o",
		APIVersion:  "2024-02-01",
		APIKey:      " secret ",
		Temperature: &temp,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	return client
}

func TestClientGenerateContent(t *testing.T) {
	var got chatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if r.URL.Path != "/openai/deployments/gpt-4o/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if v := r.URL.Query().Get("api-version"); v != "2024-02-01" {
			t.Errorf("unexpected api-version: %s", v)
		}
		if key := r.Header.Get("api-key"); key != "secret" {
			t.Errorf("unexpected api key header: %q", key)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  - 3 years Python\n- English fluency  "}}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`))
	})

	output, err := client.GenerateContent(context.Background(), " prompt text ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if output != "- 3 years Python\n- English fluency" {
		t.Fatalf("unexpected output: %q", output)
	}

	if len(got.Messages) != 1 || got.Messages[0].Role != "user" || got.Messages[0].Content != "prompt text" {
		t.Fatalf("unexpected request messages: %+v", got.Messages)
	}

	if got.Temperature == nil || *got.Temperature != 0 {
		t.Fatalf("expected temperature 0 in request")
	}

	if client.Model() != "gpt-4o" {
		t.Fatalf("unexpected model: %s", client.Model())
	}
}

func TestClientErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{
			name:    "error envelope",
			status:  http.StatusTooManyRequests,
			body:    `{"error":{"code":"429","message":"Rate limit reached"}}`,
			wantErr: "Rate limit reached",
		},
		{
			name:    "bad status without envelope",
			status:  http.StatusBadGateway,
			body:    `{}`,
			wantErr: "bad status",
		},
		{
			name:    "not json",
			status:  http.StatusOK,
			body:    `<html>`,
			wantErr: "response parse",
		},
		{
			name:    "no choices",
			status:  http.StatusOK,
			body:    `{"choices":[]}`,
			wantErr: "missing choices",
		},
		{
			name:    "empty content",
			status:  http.StatusOK,
			body:    `{"choices":[{"message":{"role":"assistant","content":"   "}}]}`,
			wantErr: "empty content",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.GenerateContent(context.Background(), "prompt")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestNewClientValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "missing endpoint", cfg: Config{Deployment: "d", APIKey: "k"}},
		{name: "invalid endpoint", cfg: Config{Endpoint: "not a url", Deployment: "d", APIKey: "k"}},
		{name: "missing deployment", cfg: Config{Endpoint: "https://example.com", APIKey: "k"}},
		{name: "missing key", cfg: Config{Endpoint: "https://example.com", Deployment: "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewClient(tt.cfg, nil); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	client, err := NewClient(Config{Endpoint: "https://example.com", Deployment: "d", APIKey: "k"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.apiVersion != defaultAPIVersion {
		t.Fatalf("expected default api version, got %s", client.apiVersion)
	}
	if client.HTTPClient.Timeout != defaultTimeout {
		t.Fatalf("expected default timeout, got %v", client.HTTPClient.Timeout)
	}
}
