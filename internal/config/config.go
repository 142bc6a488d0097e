package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App       AppConfig
	Session   SessionConfig
	Providers ProvidersConfig
	Search    SearchConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	SessionLogFilePath string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JWTSecret          string // empty disables websocket auth
}

type SessionConfig struct {
	DiscoveryTimeout   time.Duration
	DefaultTemperature float64
	SendBufferSize     int
	CatalogCacheTTL    time.Duration
}

type SearchConfig struct {
	SearxngURL string
	MaxSources int
}

// ProviderSettings configures one provider adapter. Models overrides the
// static model list for adapters that don't list models remotely.
type ProviderSettings struct {
	APIKey  string   `yaml:"api_key"`
	BaseURL string   `yaml:"base_url"`
	Models  []string `yaml:"models"`
}

type ProvidersConfig struct {
	OpenAI      ProviderSettings `yaml:"openai"`
	Groq        ProviderSettings `yaml:"groq"`
	Ollama      ProviderSettings `yaml:"ollama"`
	Anthropic   ProviderSettings `yaml:"anthropic"`
	Gemini      ProviderSettings `yaml:"gemini"`
	HuggingFace ProviderSettings `yaml:"huggingface"`
	Jina        ProviderSettings `yaml:"jina"`
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	cfg := &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3001"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			SessionLogFilePath: getEnv("SESSION_LOG_FILE_PATH", "logs/session.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			JWTSecret:          getEnv("JWT_SECRET", ""),
		},
		Session: SessionConfig{
			DiscoveryTimeout:   getEnvAsDuration("DISCOVERY_TIMEOUT", 5*time.Second),
			DefaultTemperature: getEnvAsFloat("DEFAULT_TEMPERATURE", 0.7),
			SendBufferSize:     getEnvAsInt("SESSION_SEND_BUFFER", 256),
			CatalogCacheTTL:    getEnvAsDuration("CATALOG_CACHE_TTL", 30*time.Second),
		},
		Providers: ProvidersConfig{
			OpenAI: ProviderSettings{
				APIKey:  getEnv("OPENAI_API_KEY", ""),
				BaseURL: getEnv("OPENAI_BASE_URL", ""),
			},
			Groq: ProviderSettings{
				APIKey:  getEnv("GROQ_API_KEY", ""),
				BaseURL: getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
			},
			Ollama: ProviderSettings{
				BaseURL: getEnv("OLLAMA_BASE_URL", ""),
			},
			Anthropic: ProviderSettings{
				APIKey:  getEnv("ANTHROPIC_API_KEY", ""),
				BaseURL: getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com/v1"),
			},
			Gemini: ProviderSettings{
				APIKey: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			},
			HuggingFace: ProviderSettings{
				APIKey:  getEnv("HUGGINGFACE_API_KEY", ""),
				BaseURL: getEnv("HUGGINGFACE_BASE_URL", "https://router.huggingface.co/v1"),
			},
			Jina: ProviderSettings{
				APIKey: getEnv("JINA_API_KEY", ""),
			},
		},
		Search: SearchConfig{
			SearxngURL: getEnv("SEARXNG_URL", ""),
			MaxSources: getEnvAsInt("SEARCH_MAX_SOURCES", 10),
		},
	}

	if path := getEnv("PROVIDERS_FILE", ""); path != "" {
		if err := cfg.Providers.MergeFile(path); err != nil {
			log.Printf("[WARN] Failed to load providers file %s: %v", path, err)
		}
	}

	return cfg
}

// MergeFile overlays non-empty settings from a YAML providers file.
func (p *ProvidersConfig) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read providers file: %w", err)
	}
	return p.Merge(data)
}

func (p *ProvidersConfig) Merge(data []byte) error {
	var file ProvidersConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse providers file: %w", err)
	}

	p.OpenAI.overlay(file.OpenAI)
	p.Groq.overlay(file.Groq)
	p.Ollama.overlay(file.Ollama)
	p.Anthropic.overlay(file.Anthropic)
	p.Gemini.overlay(file.Gemini)
	p.HuggingFace.overlay(file.HuggingFace)
	p.Jina.overlay(file.Jina)
	return nil
}

func (s *ProviderSettings) overlay(o ProviderSettings) {
	if o.APIKey != "" {
		s.APIKey = os.ExpandEnv(o.APIKey)
	}
	if o.BaseURL != "" {
		s.BaseURL = o.BaseURL
	}
	if len(o.Models) > 0 {
		s.Models = o.Models
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
