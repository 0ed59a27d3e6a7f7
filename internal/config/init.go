package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/mdsite/internal/foundation/errors"
)

const exampleHeader = `# mdsite configuration
#
# ${VAR} references are expanded from the environment; .env and .env.local
# next to this file are loaded first and never override existing variables.
`

// Init writes an example configuration file.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errors.ConfigError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", path)).
			WithContext("path", path).Build()
	}

	example := Default()
	example.Ignore = []string{"drafts/"}
	example.Watch.ResyncInterval = "10m"
	example.Watch.MetricsAddr = ":9464"

	data, err := yaml.Marshal(example)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to marshal example config").Build()
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "failed to create config directory").Build()
		}
	}
	if err := os.WriteFile(path, append([]byte(exampleHeader), data...), 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write config file").
			WithContext("path", path).Build()
	}
	return nil
}
