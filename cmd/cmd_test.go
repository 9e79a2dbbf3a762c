package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/screening"
)

func TestDecodeConfig(t *testing.T) {
	settings := map[string]any{
		"debug": true,
		"ai": map[string]any{
			"provider":       "azure-openai",
			"max-log-length": 120,
			"azure-openai": map[string]any{
				"endpoint":    "https://example.openai.azure.com",
				"deployment":  "gpt-4o",
				"temperature": 0.2,
				"timeout":     "90s",
			},
		},
		"server": map[string]any{
			"listen":          ":9090",
			"max-upload-size": 1024,
			"timeout":         "2m",
		},
	}

	config, err := decodeConfig(settings)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !config.Debug || config.AI.Provider != "azure-openai" || config.AI.MaxLogLength != 120 {
		t.Fatalf("unexpected config %+v", config)
	}

	azure := config.AI.AzureOpenAI
	if azure.Timeout != 90*time.Second || azure.Temperature == nil || *azure.Temperature != float32(0.2) {
		t.Fatalf("unexpected azure config %+v", azure)
	}

	want := &ServerConfig{Listen: ":9090", MaxUploadSize: 1024, Timeout: 2 * time.Minute}
	if diff := cmp.Diff(want, config.Server); diff != "" {
		t.Fatalf("unexpected server config (-want +got):\n%s", diff)
	}
}

func TestDecodeConfigRejectsUnknownKeys(t *testing.T) {
	_, err := decodeConfig(map[string]any{
		"ai": map[string]any{"gemini": map[string]any{"max-retry": 3}},
	})
	if err == nil || !strings.Contains(err.Error(), "max-retry") {
		t.Fatalf("expected an error naming the unknown key, got %v", err)
	}
}

func TestDecodeConfigEmpty(t *testing.T) {
	config, err := decodeConfig(map[string]any{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.AI == nil || config.Server == nil {
		t.Fatalf("expected non-nil sections")
	}
}

func TestNewGenerator(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY_FILE", "")
	t.Setenv("AZURE_OPENAI_API_KEY", "")
	t.Setenv("AZURE_OPENAI_API_KEY_FILE", "")

	t.Run("unsupported provider", func(t *testing.T) {
		_, err := newGenerator(context.Background(), &AIConfig{Provider: "ollama"}, zap.NewNop())
		if err == nil || !strings.Contains(err.Error(), "unsupported ai provider") {
			t.Fatalf("expected unsupported provider error, got %v", err)
		}
	})

	t.Run("gemini without key", func(t *testing.T) {
		_, err := newGenerator(context.Background(), &AIConfig{Provider: "gemini"}, zap.NewNop())
		if err == nil || !strings.Contains(err.Error(), "GEMINI_API_KEY") {
			t.Fatalf("expected missing key error with hint, got %v", err)
		}
	})

	t.Run("azure from key file", func(t *testing.T) {
		keyFile := filepath.Join(t.TempDir(), "azure")
		if err := os.WriteFile(keyFile, []byte("secret\n"), 0o600); err != nil {
			t.Fatalf("writing key: %v", err)
		}

		generator, err := newGenerator(context.Background(), &AIConfig{
			Provider: " Azure-OpenAI ",
			AzureOpenAI: &AzureOpenAIConfig{
				Endpoint:   "https://example.openai.azure.com",
				Deployment: "gpt-4o",
				APIKeyFile: keyFile,
			},
		}, zap.NewNop())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if generator.Model() != "gpt-4o" {
			t.Fatalf("expected deployment as model, got %q", generator.Model())
		}
	})

	t.Run("azure without endpoint", func(t *testing.T) {
		_, err := newGenerator(context.Background(), &AIConfig{
			Provider:    "azure-openai",
			AzureOpenAI: &AzureOpenAIConfig{Deployment: "gpt-4o", APIKey: "secret"},
		}, zap.NewNop())
		if err == nil {
			t.Fatalf("expected an error")
		}
	})
}

func testResult() *screening.Result {
	return &screening.Result{
		Requirements: &screening.RequirementList{Items: []string{"Go"}},
		Assessment: &screening.AssessmentTable{
			Candidates: []string{"alice.pdf"},
			Rows: []screening.AssessmentRow{{
				Requirement: "Go",
				Verdicts:    []screening.Verdict{{Match: true, Explanation: "Go daily"}},
			}},
		},
	}
}

func TestHandleAction(t *testing.T) {
	result := testResult()

	tests := []struct {
		action  string
		want    string
		notWant string
		wantErr error
	}{
		{action: PromptShowBoth, want: "## Job requirements"},
		{action: PromptShowRequirements, want: "- Go\n", notWant: "|"},
		{action: PromptShowAssessment, want: "| Go | YES | Go daily |", notWant: "- Go"},
		{action: PromptExit, wantErr: errExit},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			var out bytes.Buffer

			err := handleAction(tt.action, result, &out, zap.NewNop())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if !strings.Contains(out.String(), tt.want) {
				t.Fatalf("expected output containing %q, got %q", tt.want, out.String())
			}
			if tt.notWant != "" && strings.Contains(out.String(), tt.notWant) {
				t.Fatalf("unexpected %q in output %q", tt.notWant, out.String())
			}
		})
	}

	if err := handleAction("dance", result, &bytes.Buffer{}, zap.NewNop()); err == nil {
		t.Fatalf("expected an error for an unknown action")
	}
}

func TestDumpToTmpFile(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())

	filename, err := dumpToTmpFile(testResult())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		t.Fatalf("reading dump: %v", err)
	}
	if string(data) != testResult().Markdown() {
		t.Fatalf("unexpected dump content %q", data)
	}
}

func TestCollectCandidates(t *testing.T) {
	dir := t.TempDir()
	alice := filepath.Join(dir, "alice.md")
	if err := os.WriteFile(alice, []byte("Alice, Go developer"), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	candidates, err := collectCandidates(context.Background(), []string{"Bob, Java", " "}, []string{alice})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []screening.Candidate{
		{Label: "pasted CV 1", Text: "Bob, Java"},
		{Label: "alice.md", Text: "Alice, Go developer"},
	}
	if diff := cmp.Diff(want, candidates); diff != "" {
		t.Fatalf("unexpected candidates (-want +got):\n%s", diff)
	}

	if _, err := collectCandidates(context.Background(), nil, []string{filepath.Join(dir, "missing.pdf")}); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}
