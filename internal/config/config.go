package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config defines how the bridge spawns its language server.
type Config struct {
	ServerCommand string   `yaml:"server_command"`
	ServerArgs    []string `yaml:"server_args"`
	ProjectRoot   string   `yaml:"project_root"`
}

// Default はデフォルト設定（カレントディレクトリの gopls）を返します。
func Default() *Config {
	return &Config{
		ServerCommand: "gopls",
		ProjectRoot:   ".",
	}
}

// Load reads a bridge configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// ApplyEnv は環境変数による上書きを適用します。
// LSP_SERVER_BIN, LSP_SERVER_ARGS(空白区切り), PROJECT_ROOT を参照します。
func (c *Config) ApplyEnv() {
	if v := os.Getenv("LSP_SERVER_BIN"); v != "" {
		c.ServerCommand = v
	}
	if v := os.Getenv("LSP_SERVER_ARGS"); v != "" {
		c.ServerArgs = strings.Fields(v)
	}
	if v := os.Getenv("PROJECT_ROOT"); v != "" {
		c.ProjectRoot = v
	}
}
