package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// secretsDir - стандартный путь Docker Secrets. Переопределяется переменной
// SECRETS_DIR (нужно для локального запуска без docker).
const defaultSecretsDir = "/run/secrets"

// ReadSecret читает секрет из файла в директории секретов.
func ReadSecret(secretName string) (string, error) {
	dir := os.Getenv("SECRETS_DIR")
	if dir == "" {
		dir = defaultSecretsDir
	}
	filePath := filepath.Join(dir, secretName)
	secretBytes, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file %s: %w", filePath, err)
	}
	secret := strings.TrimSpace(string(secretBytes))
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", filePath)
	}
	return secret, nil
}
