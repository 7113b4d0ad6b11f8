package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const configHeader = `# ecuserver Configuration File
#
# Every key can be overridden with an environment variable using the
# ECUSERVER_ prefix and underscores, e.g. ECUSERVER_SERVER_PORT=9000.
#
# server.read_buffer_size is the size of the single read performed on each
# accepted connection. Received bytes are discarded.

`

// InitConfig writes a default configuration file to the default location.
// It returns the path written. Without force an existing file is an error.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a default configuration file to path.
func InitConfigToPath(path string, force bool) error {
	return WriteConfig(GetDefaultConfig(), path, force)
}

// WriteConfig writes cfg to path with the explanatory header.
func WriteConfig(cfg *Config, path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
		}
	}

	body, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(configHeader)
	buf.Write(body)

	return writeConfigFile(path, buf.Bytes())
}
