package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

func secretsFilePath() string {
	dir := xdgDir("XDG_DATA_HOME", ".local", "share")
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, "secrets.json")
}

// fileSecrets reads secret keys from a flat JSON object, e.g.
// {"openai.api_key": "sk-..."}. The file should be mode 0600.
type fileSecrets struct {
	path string
}

func (f fileSecrets) Get(account string) (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", fmt.Errorf("secrets not available: %w", err)
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return "", fmt.Errorf("parsing secrets file: %w", err)
	}
	v, ok := m[account]
	if !ok {
		return "", fmt.Errorf("secret %q not found", account)
	}
	return v, nil
}
