package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"ENV", "LLM_PROVIDER", "OCR_PROVIDER", "STRUCTURING_TIMEOUT", "STRUCTURING_QUEUE", "CONFIG_FILE", "PORT"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Env != "dev" {
		t.Fatalf("expected dev env, got %q", cfg.Env)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected port 8080, got %q", cfg.Port)
	}
	if cfg.LLMProvider != ProviderOpenAI {
		t.Fatalf("expected openai provider, got %q", cfg.LLMProvider)
	}
	if cfg.OCRProvider != ProviderNone {
		t.Fatalf("expected no OCR provider, got %q", cfg.OCRProvider)
	}
	if cfg.StructuringTimeout != 2*time.Minute {
		t.Fatalf("expected 2m structuring timeout, got %s", cfg.StructuringTimeout)
	}
	if cfg.StructuringQueue != QueueLocal {
		t.Fatalf("expected local queue, got %q", cfg.StructuringQueue)
	}
}

func TestLoadYAMLOverlayBelowEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte("port: 9090\nllm_provider: ollama\ncors_allow_origins:\n  - http://a.test\n  - http://b.test\nstructuring_timeout: 45s\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7070")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("CORS_ALLOW_ORIGINS", "")
	t.Setenv("STRUCTURING_TIMEOUT", "")

	cfg := Load()
	if cfg.Port != "7070" {
		t.Fatalf("expected env to win, got %q", cfg.Port)
	}
	if cfg.LLMProvider != ProviderOllama {
		t.Fatalf("expected ollama from file, got %q", cfg.LLMProvider)
	}
	if len(cfg.CORSAllowOrigin) != 2 || cfg.CORSAllowOrigin[1] != "http://b.test" {
		t.Fatalf("unexpected origins: %v", cfg.CORSAllowOrigin)
	}
	if cfg.StructuringTimeout != 45*time.Second {
		t.Fatalf("expected 45s, got %s", cfg.StructuringTimeout)
	}
}

func TestNormalizeProvider(t *testing.T) {
	tests := map[string]string{
		"OpenAI":    ProviderOpenAI,
		"anthropic": ProviderAnthropic,
		" ollama ":  ProviderOllama,
		"":          ProviderNone,
		"bedrock":   ProviderNone,
	}
	for in, want := range tests {
		if got := normalizeProvider(in); got != want {
			t.Fatalf("normalizeProvider(%q) = %q, want %q", in, got, want)
		}
	}
}
