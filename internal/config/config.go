package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the dashboard configuration.
type Config struct {
	BackendURL     string `mapstructure:"backend_url" yaml:"backend_url"`
	ListenAddr     string `mapstructure:"listen_addr" yaml:"listen_addr"`
	HTTPTimeoutSec int    `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"` // console or json

	ExportDir string `mapstructure:"export_dir" yaml:"export_dir"`

	// Chart output
	ChartWidth  int `mapstructure:"chart_width" yaml:"chart_width"`
	ChartHeight int `mapstructure:"chart_height" yaml:"chart_height"`

	// EmptyPolicy is "nothing" (default) or "all": what a cleared checkbox
	// group shows.
	EmptyPolicy string `mapstructure:"empty_policy" yaml:"empty_policy"`
}

// HTTPTimeout returns the backend request timeout.
func (c *Config) HTTPTimeout() time.Duration {
	if c.HTTPTimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

// DefaultPath is ~/.dashboard/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".dashboard", "config.yaml"), nil
}

// Save writes c to cfgFile, or to the default path when cfgFile is empty.
func Save(c *Config, cfgFile string) (string, error) {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return "", err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}
	return path, nil
}

// Load reads configuration from defaults, an optional YAML file and
// DASHBOARD_* environment variables, in increasing precedence. A .env file
// in the working directory is loaded first.
func Load(cfgFile string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("DASHBOARD")
	v.AutomaticEnv()

	v.SetDefault("backend_url", "http://localhost:8001")
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("http_timeout_sec", 30)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("export_dir", "outputs")
	v.SetDefault("chart_width", 800)
	v.SetDefault("chart_height", 400)
	v.SetDefault("empty_policy", "nothing")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".dashboard"))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}
