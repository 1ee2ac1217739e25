package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "CHATBOT_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.api_token", typ: kString, env: "CHATBOT_API_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.APIToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.APIToken },
	},
	{
		key: "llm.provider", typ: kString, env: "CHATBOT_LLM_PROVIDER",
		apply:   func(cfg *Config, v any) { cfg.LLM.Provider = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.Provider },
	},
	{
		key: "ollama.base_url", typ: kString, env: "CHATBOT_OLLAMA_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.BaseURL },
	},
	{
		key: "ollama.chat_model", typ: kString, env: "CHATBOT_OLLAMA_CHAT_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.ChatModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.ChatModel },
	},
	{
		key: "ollama.embed_model", typ: kString, env: "CHATBOT_OLLAMA_EMBED_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.EmbedModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.EmbedModel },
	},
	{
		key: "openai.base_url", typ: kString, env: "CHATBOT_OPENAI_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.OpenAI.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.BaseURL },
	},
	{
		key: "openai.api_key", typ: kString, env: "CHATBOT_OPENAI_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.OpenAI.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.APIKey },
	},
	{
		key: "openai.chat_model", typ: kString, env: "CHATBOT_OPENAI_CHAT_MODEL",
		apply:   func(cfg *Config, v any) { cfg.OpenAI.ChatModel = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.ChatModel },
	},
	{
		key: "openai.embed_model", typ: kString, env: "CHATBOT_OPENAI_EMBED_MODEL",
		apply:   func(cfg *Config, v any) { cfg.OpenAI.EmbedModel = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.EmbedModel },
	},
	{
		key: "speech.base_url", typ: kString, env: "CHATBOT_SPEECH_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Speech.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Speech.BaseURL },
	},
	{
		key: "speech.api_key", typ: kString, env: "CHATBOT_SPEECH_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Speech.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Speech.APIKey },
	},
	{
		key: "speech.transcribe_model", typ: kString, env: "CHATBOT_SPEECH_TRANSCRIBE_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Speech.TranscribeModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Speech.TranscribeModel },
	},
	{
		key: "speech.tts_model", typ: kString, env: "CHATBOT_SPEECH_TTS_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Speech.TTSModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Speech.TTSModel },
	},
	{
		key: "speech.voice", typ: kString, env: "CHATBOT_SPEECH_VOICE",
		apply:   func(cfg *Config, v any) { cfg.Speech.Voice = v.(string) },
		extract: func(cfg Config) any { return cfg.Speech.Voice },
	},
	{
		key: "storage.data_dir", typ: kString, env: "CHATBOT_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "index.backend", typ: kString, env: "CHATBOT_INDEX_BACKEND",
		apply:   func(cfg *Config, v any) { cfg.Index.Backend = v.(string) },
		extract: func(cfg Config) any { return cfg.Index.Backend },
	},
	{
		key: "index.qdrant_host", typ: kString, env: "CHATBOT_INDEX_QDRANT_HOST",
		apply:   func(cfg *Config, v any) { cfg.Index.QdrantHost = v.(string) },
		extract: func(cfg Config) any { return cfg.Index.QdrantHost },
	},
	{
		key: "index.qdrant_port", typ: kInt, env: "CHATBOT_INDEX_QDRANT_PORT",
		apply:   func(cfg *Config, v any) { cfg.Index.QdrantPort = v.(int) },
		extract: func(cfg Config) any { return cfg.Index.QdrantPort },
	},
	{
		key: "index.qdrant_prefix", typ: kString, env: "CHATBOT_INDEX_QDRANT_PREFIX",
		apply:   func(cfg *Config, v any) { cfg.Index.QdrantPrefix = v.(string) },
		extract: func(cfg Config) any { return cfg.Index.QdrantPrefix },
	},
	{
		key: "retrieval.top_k", typ: kInt, env: "CHATBOT_RETRIEVAL_TOP_K",
		apply:   func(cfg *Config, v any) { cfg.Retrieval.TopK = v.(int) },
		extract: func(cfg Config) any { return cfg.Retrieval.TopK },
	},
	{
		key: "ingest.workers", typ: kInt, env: "CHATBOT_INGEST_WORKERS",
		apply:   func(cfg *Config, v any) { cfg.Ingest.Workers = v.(int) },
		extract: func(cfg Config) any { return cfg.Ingest.Workers },
	},
	{
		key: "ingest.queue_size", typ: kInt, env: "CHATBOT_INGEST_QUEUE_SIZE",
		apply:   func(cfg *Config, v any) { cfg.Ingest.QueueSize = v.(int) },
		extract: func(cfg Config) any { return cfg.Ingest.QueueSize },
	},
	{
		key: "persona.subject", typ: kString, env: "CHATBOT_PERSONA_SUBJECT",
		apply:   func(cfg *Config, v any) { cfg.Persona.Subject = v.(string) },
		extract: func(cfg Config) any { return cfg.Persona.Subject },
	},
	{
		key: "log.level", typ: kString, env: "CHATBOT_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				slog.Warn("ignoring non-integer env override", "env", s.env, "value", raw, "error", err)
			}
		}
	}
}
