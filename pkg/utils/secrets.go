package utils

import (
	"fmt"
	"os"
	"strings"
)

// SecretsDir - стандартный путь Docker Secrets. Переопределяется в тестах.
var SecretsDir = "/run/secrets"

// ReadSecret читает секрет из файла в стандартном пути Docker Secrets.
func ReadSecret(secretName string) (string, error) {
	filePath := fmt.Sprintf("%s/%s", SecretsDir, secretName)
	secretBytes, err := os.ReadFile(filePath)
	if err != nil {
		// Не добавляем fallback на env var, чтобы поведение было консистентным
		return "", fmt.Errorf("failed to read secret file %s: %w", filePath, err)
	}
	secret := strings.TrimSpace(string(secretBytes))
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", filePath)
	}
	return secret, nil
}

// ReadOptionalSecret возвращает пустую строку, если секрет не найден.
func ReadOptionalSecret(secretName string) string {
	secret, err := ReadSecret(secretName)
	if err != nil {
		return ""
	}
	return secret
}
