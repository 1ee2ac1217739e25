package config

import (
	"fmt"
	"strings"
)

type Config struct {
	Server    ServerConfig
	LLM       LLMConfig
	Ollama    OllamaConfig
	OpenAI    OpenAIConfig
	Speech    SpeechConfig
	Storage   StorageConfig
	Index     IndexConfig
	Retrieval RetrievalConfig
	Ingest    IngestConfig
	Persona   PersonaConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port int
	// APIToken, when set, is required as a bearer token on /api routes.
	APIToken string
}

type LLMConfig struct {
	Provider string // "ollama" or "openai"
}

type OllamaConfig struct {
	BaseURL    string
	ChatModel  string
	EmbedModel string
}

type OpenAIConfig struct {
	BaseURL    string
	APIKey     string
	ChatModel  string
	EmbedModel string
}

type SpeechConfig struct {
	BaseURL         string
	APIKey          string
	TranscribeModel string
	TTSModel        string
	Voice           string
}

type StorageConfig struct {
	DataDir string
}

type IndexConfig struct {
	Backend      string // "sqlite" or "qdrant"
	QdrantHost   string
	QdrantPort   int
	QdrantPrefix string
}

type RetrievalConfig struct {
	TopK int
}

type IngestConfig struct {
	Workers   int
	QueueSize int
}

type PersonaConfig struct {
	Subject string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{Port: 8000},
		LLM:    LLMConfig{Provider: "ollama"},
		Ollama: OllamaConfig{
			BaseURL:    "http://localhost:11434",
			ChatModel:  "llama3.1",
			EmbedModel: "nomic-embed-text",
		},
		OpenAI: OpenAIConfig{
			BaseURL:    "https://api.openai.com/v1",
			ChatModel:  "gpt-4o-mini",
			EmbedModel: "text-embedding-3-small",
		},
		Speech: SpeechConfig{
			TranscribeModel: "whisper-1",
			TTSModel:        "tts-1",
			Voice:           "alloy",
		},
		Storage: StorageConfig{DataDir: defaultDataDir()},
		Index: IndexConfig{
			Backend:      "sqlite",
			QdrantHost:   "localhost",
			QdrantPort:   6334,
			QdrantPrefix: "chatbot_",
		},
		Retrieval: RetrievalConfig{TopK: 3},
		Ingest:    IngestConfig{Workers: 4, QueueSize: 256},
		Persona:   PersonaConfig{Subject: "B"},
		Log:       LogConfig{Level: "info"},
	}
}

// ChatModel returns the chat model of the selected provider.
func (c Config) ChatModel() string {
	if c.LLM.Provider == "openai" {
		return c.OpenAI.ChatModel
	}
	return c.Ollama.ChatModel
}

// EmbedModel returns the embedding model of the selected provider.
func (c Config) EmbedModel() string {
	if c.LLM.Provider == "openai" {
		return c.OpenAI.EmbedModel
	}
	return c.Ollama.EmbedModel
}

// SpeechEnabled reports whether an audio API is configured.
func (c Config) SpeechEnabled() bool {
	return c.Speech.APIKey != ""
}

// Load reads configuration from the JSON file at
// $XDG_CONFIG_HOME/chatbot/config.json, then applies CHATBOT_* environment
// overrides. Secrets are never read from the config file; they come from
// the environment or the secrets file at $XDG_DATA_HOME/chatbot/secrets.json.
func Load() (Config, error) {
	return loadWith(newFileBackend(configFilePath()), fileSecrets{path: secretsFilePath()})
}

// secrets abstracts the secrets file for testing.
type secrets interface {
	Get(account string) (string, error)
}

func loadWith(b ConfigBackend, sec secrets) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	for _, s := range specs {
		if !s.secret || s.extract(cfg) != "" {
			continue
		}
		if v, err := sec.Get(s.key); err == nil && v != "" {
			s.apply(&cfg, v)
		}
	}

	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))

	// The audio API defaults to the OpenAI account when not set separately.
	if cfg.Speech.APIKey == "" {
		cfg.Speech.APIKey = cfg.OpenAI.APIKey
	}
	if cfg.Speech.BaseURL == "" {
		cfg.Speech.BaseURL = cfg.OpenAI.BaseURL
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	switch cfg.LLM.Provider {
	case "ollama":
	case "openai":
		if cfg.OpenAI.APIKey == "" {
			return fmt.Errorf("missing required config: OpenAI API key. " +
				"Set it via environment variable CHATBOT_OPENAI_API_KEY")
		}
	default:
		return fmt.Errorf("invalid llm.provider %q: want ollama or openai", cfg.LLM.Provider)
	}
	switch cfg.Index.Backend {
	case "sqlite", "qdrant":
	default:
		return fmt.Errorf("invalid index.backend %q: want sqlite or qdrant", cfg.Index.Backend)
	}
	if cfg.Ingest.Workers <= 0 || cfg.Ingest.QueueSize <= 0 {
		return fmt.Errorf("ingest.workers and ingest.queue_size must be positive")
	}
	return nil
}
