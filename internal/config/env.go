package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// EnvFiles are loaded, in order, before the config file is parsed.
var EnvFiles = []string{".env", ".env.local"}

// loadEnvFiles loads every existing env file. Variables already present in the process
// environment win over file values.
func loadEnvFiles(files ...string) []string {
	var loaded []string
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			slog.Warn("Failed to load env file", "file", f, "error", err)
			continue
		}
		loaded = append(loaded, f)
	}
	return loaded
}
