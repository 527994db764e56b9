package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Portal  Portal  `yaml:"portal"`
	SMTP    SMTP    `yaml:"smtp"`
	Output  Output  `yaml:"output"`
	Logging Logging `yaml:"logging"`
}

type Portal struct {
	BaseURL        string `yaml:"base_url"`
	UsernameEnv    string `yaml:"username_env"`
	PasswordEnv    string `yaml:"password_env"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type SMTP struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	UserEnv     string `yaml:"user_env"`
	PasswordEnv string `yaml:"password_env"`
	Recipient   string `yaml:"recipient"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for elearn-monitor.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "elearn-monitor")
}

// DataDir returns the XDG data directory for elearn-monitor.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "elearn-monitor")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/elearn-monitor/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'elearn-monitor init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Portal: Portal{
			BaseURL:        "https://elearning.usm.my/sidang2526",
			UsernameEnv:    "ELEARN_EMAIL",
			PasswordEnv:    "ELEARN_PASSWORD",
			TimeoutSeconds: 30,
		},
		SMTP: SMTP{
			Host:        "smtp.gmail.com",
			Port:        587,
			UserEnv:     "SMTP_USER",
			PasswordEnv: "SMTP_PASS",
		},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
