package extensions

import (
	"os"
	"strings"
)

// GetTextFromFile extracts trimmed text from file .txt, empty if the file can't be read
func GetTextFromFile(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
