package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultAPIVersion = "2024-06-01"
	defaultTimeout    = 120 * time.Second
)

// Config holds the Azure OpenAI deployment settings.
type Config struct {
	Endpoint    string
	Deployment  string
	APIVersion  string
	APIKey      string
	Temperature *float32
	Timeout     time.Duration
}

// Client implements ai.Generator on top of Azure OpenAI chat completions.
type Client struct {
	endpoint    string
	deployment  string
	apiVersion  string
	apiKey      string
	temperature *float32
	logger      *zap.Logger

	HTTPClient *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages    []chatMessage `json:"messages"`
	Temperature *float32      `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewClient validates cfg and builds a client.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		return nil, errors.New("azure openai endpoint is required")
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("invalid azure openai endpoint: %w", err)
	}

	deployment := strings.TrimSpace(cfg.Deployment)
	if deployment == "" {
		return nil, errors.New("azure openai deployment is required")
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("azure openai api key is required")
	}

	apiVersion := strings.TrimSpace(cfg.APIVersion)
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		endpoint:    endpoint,
		deployment:  deployment,
		apiVersion:  apiVersion,
		apiKey:      apiKey,
		temperature: cfg.Temperature,
		logger:      logger,
		HTTPClient:  &http.Client{Timeout: timeout},
	}, nil
}

// GenerateContent sends the prompt as a single user message and returns the
// first choice's content.
func (c *Client) GenerateContent(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	payload, err := json.Marshal(chatRequest{
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.completionsURL(), bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("azure openai request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read azure openai response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("azure openai response parse (status %s): %w", resp.Status, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("azure openai error: %s (%s)", parsed.Error.Message, parsed.Error.Code)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("azure openai bad status: %s", resp.Status)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("azure openai response missing choices")
	}

	if parsed.Usage != nil {
		c.logger.Debug("azure openai usage",
			zap.Int("prompt_tokens", parsed.Usage.PromptTokens),
			zap.Int("completion_tokens", parsed.Usage.CompletionTokens),
			zap.Int("total_tokens", parsed.Usage.TotalTokens),
		)
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("azure openai response empty content")
	}

	return content, nil
}

// Model returns the deployment name, which identifies the model on Azure.
func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.deployment
}

func (c *Client) completionsURL() string {
	q := url.Values{}
	q.Set("api-version", c.apiVersion)
	return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?%s", c.endpoint, url.PathEscape(c.deployment), q.Encode())
}
