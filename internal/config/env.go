package config

import (
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
)

var envFiles = []string{".env", ".env.local"}

// loadEnvFile loads the first readable file of envFiles. Variables already
// present in the process environment are not overwritten.
func loadEnvFile() error {
	for _, p := range envFiles {
		if err := godotenv.Load(p); err == nil {
			slog.Debug("Loaded environment variables", "file", p)
			return nil
		}
	}
	return fmt.Errorf("no .env file found")
}
