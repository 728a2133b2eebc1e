// Package langchain adapts langchaingo models to the llm provider contracts.
package langchain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"jobapplier-backend/internal/llm"
	"jobapplier-backend/internal/shared/config"
	"jobapplier-backend/internal/shared/telemetry"
)

// Provider wraps a langchaingo model.
type Provider struct {
	model     llms.Model
	provider  string
	modelName string
}

// New builds a provider for cfg.LLMProvider using the given model name.
func New(cfg config.Config, modelName string) (*Provider, error) {
	var (
		model llms.Model
		err   error
	)

	switch cfg.LLMProvider {
	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(modelName),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(modelName),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(modelName),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	return NewWithModel(model, cfg.LLMProvider, modelName), nil
}

// NewWithModel wraps an existing langchaingo model.
func NewWithModel(model llms.Model, provider, modelName string) *Provider {
	return &Provider{model: model, provider: provider, modelName: modelName}
}

// IsConfigured reports whether a model is wired.
func (p *Provider) IsConfigured() bool {
	return p != nil && p.model != nil
}

// ModelIdentifier returns "<provider>/<model>".
func (p *Provider) ModelIdentifier() string {
	if p.provider == "" {
		return p.modelName
	}
	return p.provider + "/" + p.modelName
}

// Structure asks the model for a JSON profile of the CV text.
func (p *Provider) Structure(ctx context.Context, rawText string) (json.RawMessage, error) {
	if !p.IsConfigured() {
		return nil, llm.ErrNotConfigured
	}
	content, usage, err := p.generate(ctx, llm.StructureSystemPrompt(), rawText,
		llms.WithJSONMode(), llms.WithTemperature(0))
	if err != nil {
		return nil, err
	}
	p.logUsage("structure", usage)
	return llm.CleanJSON(content)
}

// Generate writes a cover letter.
func (p *Provider) Generate(ctx context.Context, input llm.GenerateInput) (llm.Generation, error) {
	if !p.IsConfigured() {
		return llm.Generation{}, llm.ErrNotConfigured
	}
	content, usage, err := p.generate(ctx, llm.CoverLetterSystemPrompt(), llm.CoverLetterUserPrompt(input),
		llms.WithTemperature(0.7))
	if err != nil {
		return llm.Generation{}, err
	}
	p.logUsage("cover_letter", usage)
	return llm.Generation{Text: content, Usage: usage}, nil
}

func (p *Provider) generate(ctx context.Context, system, user string, opts ...llms.CallOption) (string, llm.Usage, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}

	response, err := p.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", llm.Usage{}, fmt.Errorf("generate with system: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", llm.Usage{}, errors.New("no response choices")
	}

	choice := response.Choices[0]
	return strings.TrimSpace(choice.Content), usageFromInfo(choice.GenerationInfo), nil
}

func (p *Provider) logUsage(operation string, usage llm.Usage) {
	telemetry.Info("llm.response", map[string]any{
		"model":             p.ModelIdentifier(),
		"operation":         operation,
		"prompt_tokens":     usage.Input,
		"completion_tokens": usage.Output,
		"total_tokens":      usage.Total,
	})
}

// usageFromInfo reads token counts from GenerationInfo. OpenAI and Ollama
// report Prompt/Completion/TotalTokens, Anthropic reports Input/OutputTokens.
func usageFromInfo(info map[string]any) llm.Usage {
	u := llm.Usage{
		Input:  firstInt(info, "PromptTokens", "InputTokens"),
		Output: firstInt(info, "CompletionTokens", "OutputTokens"),
		Total:  firstInt(info, "TotalTokens"),
	}
	if u.Total == 0 {
		u.Total = u.Input + u.Output
	}
	return u
}

func firstInt(info map[string]any, keys ...string) int {
	for _, key := range keys {
		switch v := info[key].(type) {
		case int:
			return v
		case int32:
			return int(v)
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return 0
}

var (
	_ llm.Structurer = (*Provider)(nil)
	_ llm.Generator  = (*Provider)(nil)
)
