package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultSecretsDir is where Docker mounts secrets.
const DefaultSecretsDir = "/run/secrets"

// ReadSecret reads a secret file from dir (DefaultSecretsDir when empty).
// The value is trimmed; an empty file is an error.
func ReadSecret(dir, name string) (string, error) {
	if dir == "" {
		dir = DefaultSecretsDir
	}
	path := filepath.Join(dir, name)
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file %s: %w", path, err)
	}
	secret := strings.TrimSpace(string(raw))
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", path)
	}
	return secret, nil
}

// ReadOptionalSecret is ReadSecret that treats any failure as "not configured".
func ReadOptionalSecret(dir, name string) string {
	secret, err := ReadSecret(dir, name)
	if err != nil {
		return ""
	}
	return secret
}
