package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// mockSecrets is a test double for the secrets file.
type mockSecrets map[string]string

func (m mockSecrets) Get(account string) (string, error) {
	v, ok := m[account]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func writeTempConfig(t *testing.T, content string) *fileBackend {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return newFileBackend(path)
}

// clearEnv makes sure no CHATBOT_* variable from the host leaks into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
}

// TestDefaults verifies all default values are applied when loading an empty config file.
func TestDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := loadWith(writeTempConfig(t, `{}`), mockSecrets{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.LLM.Provider != "ollama" {
		t.Errorf("LLM.Provider = %q, want ollama", cfg.LLM.Provider)
	}
	if cfg.ChatModel() != "llama3.1" || cfg.EmbedModel() != "nomic-embed-text" {
		t.Errorf("models = %q/%q", cfg.ChatModel(), cfg.EmbedModel())
	}
	if cfg.Index.Backend != "sqlite" || cfg.Index.QdrantPort != 6334 {
		t.Errorf("Index = %+v", cfg.Index)
	}
	if cfg.Retrieval.TopK != 3 {
		t.Errorf("Retrieval.TopK = %d, want 3", cfg.Retrieval.TopK)
	}
	if cfg.Ingest.Workers != 4 || cfg.Ingest.QueueSize != 256 {
		t.Errorf("Ingest = %+v", cfg.Ingest)
	}
	if cfg.Persona.Subject != "B" {
		t.Errorf("Persona.Subject = %q, want B", cfg.Persona.Subject)
	}
	if cfg.SpeechEnabled() {
		t.Error("speech should be disabled without an API key")
	}
}

// TestFileParsing verifies that fields are read from the JSON file.
func TestFileParsing(t *testing.T) {
	clearEnv(t)
	b := writeTempConfig(t, `{
  "server.port": 9000,
  "ollama.chat_model": "qwen2.5",
  "storage.data_dir": "/tmp/chatbot-test",
  "index.backend": "qdrant",
  "index.qdrant_port": "7000",
  "ingest.workers": 8,
  "persona.subject": "나"
}`)

	cfg, err := loadWith(b, mockSecrets{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if cfg.ChatModel() != "qwen2.5" {
		t.Errorf("ChatModel = %q", cfg.ChatModel())
	}
	if cfg.Storage.DataDir != "/tmp/chatbot-test" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Index.Backend != "qdrant" || cfg.Index.QdrantPort != 7000 {
		t.Errorf("Index = %+v", cfg.Index)
	}
	if cfg.Ingest.Workers != 8 {
		t.Errorf("Ingest.Workers = %d", cfg.Ingest.Workers)
	}
	if cfg.Persona.Subject != "나" {
		t.Errorf("Persona.Subject = %q", cfg.Persona.Subject)
	}
}

// TestSecretsIgnoredInFile verifies API keys in the config file are not honored.
func TestSecretsIgnoredInFile(t *testing.T) {
	clearEnv(t)
	cfg, err := loadWith(writeTempConfig(t, `{"openai.api_key": "from-file"}`), mockSecrets{})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.OpenAI.APIKey != "" {
		t.Errorf("OpenAI.APIKey = %q, want empty", cfg.OpenAI.APIKey)
	}
}

// TestEnvOverride verifies that environment variables override config file values.
func TestEnvOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHATBOT_SERVER_PORT", "7777")
	t.Setenv("CHATBOT_LLM_PROVIDER", "OpenAI")
	t.Setenv("CHATBOT_OPENAI_API_KEY", "env-key")

	cfg, err := loadWith(writeTempConfig(t, `{"server.port": 9000}`), mockSecrets{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 7777 {
		t.Errorf("Server.Port = %d, want 7777", cfg.Server.Port)
	}
	if cfg.LLM.Provider != "openai" || cfg.OpenAI.APIKey != "env-key" {
		t.Errorf("LLM = %+v key=%q", cfg.LLM, cfg.OpenAI.APIKey)
	}
	if cfg.ChatModel() != "gpt-4o-mini" {
		t.Errorf("ChatModel = %q", cfg.ChatModel())
	}
	if !cfg.SpeechEnabled() || cfg.Speech.APIKey != "env-key" {
		t.Error("speech should inherit the OpenAI key")
	}
}

// TestMissingOpenAIKey verifies a clear error when the API key is missing everywhere.
func TestMissingOpenAIKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHATBOT_LLM_PROVIDER", "openai")

	_, err := loadWith(writeTempConfig(t, `{}`), mockSecrets{})
	if err == nil {
		t.Fatal("expected error for missing API key, got nil")
	}
	if !strings.Contains(err.Error(), "missing required config") {
		t.Errorf("error = %q", err)
	}
}

// TestSecretsFallback verifies the secrets file is consulted when env is empty.
func TestSecretsFallback(t *testing.T) {
	clearEnv(t)
	sec := mockSecrets{"openai.api_key": "secret-file-key", "speech.api_key": "speech-key"}

	cfg, err := loadWith(writeTempConfig(t, `{"llm.provider": "openai"}`), sec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.OpenAI.APIKey != "secret-file-key" {
		t.Errorf("OpenAI.APIKey = %q", cfg.OpenAI.APIKey)
	}
	if cfg.Speech.APIKey != "speech-key" {
		t.Errorf("Speech.APIKey = %q", cfg.Speech.APIKey)
	}
}

func TestInvalidValues(t *testing.T) {
	cases := map[string]string{
		"provider": `{"llm.provider": "mlx"}`,
		"backend":  `{"index.backend": "chroma"}`,
		"workers":  `{"ingest.workers": 0}`,
		"int type": `{"server.port": "eighty"}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			if _, err := loadWith(writeTempConfig(t, content), mockSecrets{}); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestFileSecrets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	if err := os.WriteFile(path, []byte(`{"openai.api_key": "sk-test"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	v, err := fileSecrets{path: path}.Get("openai.api_key")
	if err != nil || v != "sk-test" {
		t.Errorf("Get = %q, %v", v, err)
	}
	if _, err := (fileSecrets{path: path}).Get("speech.api_key"); err == nil {
		t.Error("expected error for missing secret")
	}
}

func TestSetKeyAndShow(t *testing.T) {
	clearEnv(t)
	b := writeTempConfig(t, `{}`)

	if err := setKeyWith(b, "retrieval.top_k", "5"); err != nil {
		t.Fatalf("setKeyWith: %v", err)
	}
	if err := setKeyWith(b, "retrieval.top_k", "five"); err == nil {
		t.Error("expected error for non-integer value")
	}
	if err := setKeyWith(b, "openai.api_key", "sk"); err == nil {
		t.Error("expected error for secret key")
	}
	if err := setKeyWith(b, "no.such_key", "x"); err == nil {
		t.Error("expected error for unknown key")
	}

	// Re-read from disk to check persistence.
	cfg, err := loadWith(newFileBackend(b.path), mockSecrets{})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Retrieval.TopK != 5 {
		t.Errorf("Retrieval.TopK = %d, want 5", cfg.Retrieval.TopK)
	}

	cfg.OpenAI.APIKey = "sk-abcdefghijkl"
	for _, ki := range ShowAll(cfg) {
		if ki.Key == "openai.api_key" && ki.Value != "sk-****kl" {
			t.Errorf("secret shown as %q", ki.Value)
		}
	}
	for _, k := range ValidKeys() {
		if k == "openai.api_key" || k == "server.api_token" {
			t.Errorf("secret %s listed as settable", k)
		}
	}
}
