package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Provider names accepted by LLM_PROVIDER and OCR_PROVIDER.
const (
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
	ProviderNone      = "none"
)

// Queue backends accepted by STRUCTURING_QUEUE.
const (
	QueueLocal = "local"
	QueueSQS   = "sqs"
)

// Config holds application configuration.
type Config struct {
	Port               string
	CORSAllowOrigin    []string
	ObjectStoreType    string
	LocalStoreDir      string
	AWSRegion          string
	S3Bucket           string
	S3Prefix           string
	SSEKMSKeyID        string
	LLMProvider        string
	LLMModel           string
	CoverLetterModel   string
	OpenAIAPIKey       string
	AnthropicAPIKey    string
	OllamaHost         string
	OCRProvider        string
	OCRModel           string
	StructuringTimeout time.Duration
	StructuringQueue   string
	SQSQueueURL        string
	WorkerConcurrency  int
	QueueBuffer        int
	DatabaseURL        string
	Env                string
	JWTSecret          string
	LogLevel           string
	LogFile            string
}

// Load reads configuration from environment variables with sensible defaults.
// Values from the YAML file named by CONFIG_FILE sit between env and defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	src := source{file: loadYAMLFile(os.Getenv("CONFIG_FILE"))}

	env := normalizeEnv(src.get("ENV", "dev"))
	dbURL := src.get("DATABASE_URL", "")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	llmModel := src.get("LLM_MODEL", "gpt-4o-mini")

	return Config{
		Port:               src.get("PORT", "8080"),
		CORSAllowOrigin:    splitAndTrim(src.get("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		ObjectStoreType:    normalizeStoreType(src.get("OBJECT_STORE", "local")),
		LocalStoreDir:      src.get("LOCAL_STORE_DIR", "./data"),
		AWSRegion:          src.get("AWS_REGION", ""),
		S3Bucket:           src.get("S3_BUCKET", ""),
		S3Prefix:           src.get("S3_PREFIX", ""),
		SSEKMSKeyID:        src.get("SSE_KMS_KEY_ID", ""),
		LLMProvider:        normalizeProvider(src.get("LLM_PROVIDER", ProviderOpenAI)),
		LLMModel:           llmModel,
		CoverLetterModel:   src.get("COVER_LETTER_MODEL", llmModel),
		OpenAIAPIKey:       src.get("OPENAI_API_KEY", ""),
		AnthropicAPIKey:    src.get("ANTHROPIC_API_KEY", ""),
		OllamaHost:         src.get("OLLAMA_HOST", "http://localhost:11434"),
		OCRProvider:        normalizeOCRProvider(src.get("OCR_PROVIDER", ProviderNone)),
		OCRModel:           src.get("OCR_MODEL", "gpt-4o-mini"),
		StructuringTimeout: src.duration("STRUCTURING_TIMEOUT", 2*time.Minute),
		StructuringQueue:   normalizeQueue(src.get("STRUCTURING_QUEUE", QueueLocal)),
		SQSQueueURL:        src.get("SQS_QUEUE_URL", ""),
		WorkerConcurrency:  src.int("WORKER_CONCURRENCY", 4),
		QueueBuffer:        src.int("QUEUE_BUFFER", 64),
		DatabaseURL:        dbURL,
		Env:                env,
		JWTSecret:          src.get("JWT_SECRET", ""),
		LogLevel:           src.get("LOG_LEVEL", "info"),
		LogFile:            src.get("LOG_FILE", ""),
	}
}

type source struct {
	file map[string]string
}

func (s source) get(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if val, ok := s.file[key]; ok && val != "" {
		return val
	}
	return def
}

func (s source) int(key string, def int) int {
	raw := strings.TrimSpace(s.get(key, ""))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val <= 0 {
		log.Printf("config %s invalid int %q, using %d", key, raw, def)
		return def
	}
	return val
}

func (s source) duration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(s.get(key, ""))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil || val <= 0 {
		log.Printf("config %s invalid duration %q, using %s", key, raw, def)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case ProviderOpenAI:
		return ProviderOpenAI
	case ProviderOllama:
		return ProviderOllama
	case ProviderAnthropic:
		return ProviderAnthropic
	default:
		return ProviderNone
	}
}

func normalizeOCRProvider(raw string) string {
	if strings.ToLower(strings.TrimSpace(raw)) == ProviderOpenAI {
		return ProviderOpenAI
	}
	return ProviderNone
}

func normalizeQueue(raw string) string {
	if strings.ToLower(strings.TrimSpace(raw)) == QueueSQS {
		return QueueSQS
	}
	return QueueLocal
}
