package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eleven-am/foodgram/internal/media"
)

// ConfigEnv names the environment variable that points at the config file
const ConfigEnv = "FOODGRAM_CONFIG"

var configLocations = []string{"foodgram.yaml", "foodgram.yml", ".foodgram.yaml", ".foodgram.yml"}

// Config represents the foodgram.yaml configuration structure
type Config struct {
	Database struct {
		URL                string        `yaml:"url"`
		MaxConnections     int           `yaml:"max_connections"`
		MaxIdleConnections int           `yaml:"max_idle_connections"`
		ConnMaxLifetime    time.Duration `yaml:"conn_max_lifetime"`
	} `yaml:"database"`

	Server struct {
		Addr            string        `yaml:"addr"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		RequestTimeout  time.Duration `yaml:"request_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Media struct {
		media.Config `yaml:",inline"`
		URLPrefix    string `yaml:"url_prefix"`
	} `yaml:"media"`

	PageSize int `yaml:"page_size"`
}

// DefaultConfig returns a Config with every default applied
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Database.MaxConnections == 0 {
		c.Database.MaxConnections = 25
	}
	if c.Database.MaxIdleConnections == 0 {
		c.Database.MaxIdleConnections = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 30 * time.Minute
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = 25 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Media.Prefix == "" {
		c.Media.Prefix = media.DefaultPrefix
	}
	if c.Media.URLPrefix == "" {
		c.Media.URLPrefix = "/media"
	}
	if c.PageSize == 0 {
		c.PageSize = 6
	}
}

// LoadConfig reads the config file at path, or the first one found by
// GetConfigPath when path is empty. Without any file it returns nil, nil.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = GetConfigPath()
		if path == "" {
			return nil, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	config.applyDefaults()

	return &config, nil
}

// GetConfigPath resolves the config file from ConfigEnv or the default
// file names in the working directory.
func GetConfigPath() string {
	if path := os.Getenv(ConfigEnv); path != "" {
		return path
	}

	for _, loc := range configLocations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// SaveConfig writes config as YAML to path
func SaveConfig(config *Config, path string) error {
	if path == "" {
		path = configLocations[0]
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
