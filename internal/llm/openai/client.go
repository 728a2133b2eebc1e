package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"jobapplier-backend/internal/llm"
	"jobapplier-backend/internal/shared/telemetry"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
)

// Client implements the llm provider contracts using OpenAI Chat Completions.
// An empty API key yields a client that reports itself as not configured.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient constructs a new OpenAI client.
func NewClient(apiKey, model string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for OpenAI")
	}
	timeout := 120 * time.Second
	if raw := strings.TrimSpace(os.Getenv("OPENAI_TIMEOUT_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeout = time.Duration(parsed) * time.Second
		}
	}
	c := &Client{
		apiKey:  strings.TrimSpace(apiKey),
		model:   strings.TrimSpace(model),
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// IsConfigured reports whether an API key is present.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// ModelIdentifier returns the model used for completions.
func (c *Client) ModelIdentifier() string {
	return c.model
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    *float32        `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Structure asks the model for a JSON profile of the CV text.
func (c *Client) Structure(ctx context.Context, rawText string) (json.RawMessage, error) {
	if !c.IsConfigured() {
		return nil, llm.ErrNotConfigured
	}
	messages := []chatMessage{
		{Role: "system", Content: llm.StructureSystemPrompt()},
		{Role: "user", Content: rawText},
	}
	content, usage, err := c.complete(ctx, messages, true)
	if err != nil {
		return nil, err
	}
	logUsage(c.model, "structure", usage)
	return llm.CleanJSON(content)
}

// Generate writes a cover letter.
func (c *Client) Generate(ctx context.Context, input llm.GenerateInput) (llm.Generation, error) {
	if !c.IsConfigured() {
		return llm.Generation{}, llm.ErrNotConfigured
	}
	messages := []chatMessage{
		{Role: "system", Content: llm.CoverLetterSystemPrompt()},
		{Role: "user", Content: llm.CoverLetterUserPrompt(input)},
	}
	content, usage, err := c.complete(ctx, messages, false)
	if err != nil {
		return llm.Generation{}, err
	}
	logUsage(c.model, "cover_letter", usage)
	return llm.Generation{Text: content, Usage: usage}, nil
}

// ExtractImageText transcribes an image using the model's vision input.
func (c *Client) ExtractImageText(ctx context.Context, data []byte, mimeType string) (string, error) {
	if !c.IsConfigured() {
		return "", llm.ErrNotConfigured
	}
	if len(data) == 0 {
		return "", errors.New("empty image data")
	}
	if strings.TrimSpace(mimeType) == "" {
		mimeType = http.DetectContentType(data)
	}
	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
	messages := []chatMessage{
		{Role: "system", Content: llm.OCRSystemPrompt()},
		{Role: "user", Content: []contentPart{
			{Type: "text", Text: "Transcribe the job description in this image."},
			{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
		}},
	}
	content, usage, err := c.complete(ctx, messages, false)
	if err != nil {
		return "", err
	}
	logUsage(c.model, "ocr", usage)
	return content, nil
}

func (c *Client) complete(ctx context.Context, messages []chatMessage, jsonMode bool) (string, llm.Usage, error) {
	reqBody := chatRequest{
		Model:    c.model,
		Messages: messages,
	}
	if jsonMode {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	if !isGPT5(c.model) {
		temp := float32(0)
		if !jsonMode {
			temp = 0.7
		}
		reqBody.Temperature = &temp
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", llm.Usage{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", llm.Usage{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return "", llm.Usage{}, fmt.Errorf("openai request timeout: %w", err)
		}
		return "", llm.Usage{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", llm.Usage{}, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", llm.Usage{}, fmt.Errorf("openai response parse status=%d: %w", resp.StatusCode, err)
	}
	if parsed.Error != nil {
		return "", llm.Usage{}, fmt.Errorf("openai error: %s (%s)", parsed.Error.Message, parsed.Error.Type)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return "", llm.Usage{}, fmt.Errorf("openai status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return "", llm.Usage{}, fmt.Errorf("openai response missing choices")
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", llm.Usage{}, fmt.Errorf("openai response empty content")
	}

	var usage llm.Usage
	if parsed.Usage != nil {
		usage = llm.Usage{
			Input:  parsed.Usage.PromptTokens,
			Output: parsed.Usage.CompletionTokens,
			Total:  parsed.Usage.TotalTokens,
		}
	}
	return content, usage, nil
}

func logUsage(model, operation string, usage llm.Usage) {
	telemetry.Info("llm.response", map[string]any{
		"model":             model,
		"operation":         operation,
		"prompt_tokens":     usage.Input,
		"completion_tokens": usage.Output,
		"total_tokens":      usage.Total,
	})
}

// gpt-5 models reject a custom temperature.
func isGPT5(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gpt-5")
}

var (
	_ llm.Structurer = (*Client)(nil)
	_ llm.Generator  = (*Client)(nil)
	_ llm.OCR        = (*Client)(nil)
)
