package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/mdsite/internal/foundation/errors"
)

// envFiles are loaded in priority order; variables already set win.
var envFiles = []string{".env.local", ".env"}

// loadEnvFiles loads the env files found in dir without overriding the
// process environment.
func loadEnvFiles(dir string) error {
	for _, name := range envFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return errors.WrapError(err, errors.CategoryConfig, "failed to load env file").
				WithContext("path", path).Build()
		}
	}
	return nil
}
