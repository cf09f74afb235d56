package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const DefaultBaseURL = "http://139.59.5.84"

type Config struct {
	API     APIConfig
	Storage StorageConfig
	Chat    ChatConfig
	Logging LoggingConfig
	Audit   AuditConfig
}

type APIConfig struct {
	BaseURL    string
	TimeoutSec int
}

func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

type StorageConfig struct {
	Path string
}

type ChatConfig struct {
	ComplianceEnabled bool
	Tradeoff          float64
}

type AuditConfig struct {
	Enabled    bool
	Dir        string
	Compress   bool
	MaxShardMB int
}

func (c AuditConfig) MaxShardSize() int64 {
	return int64(c.MaxShardMB) << 20
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

// Load reads config.yaml from path (when given) or the default search
// locations, then applies GUIDERA_* environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".guidera"))
		}
	}

	v.SetEnvPrefix("GUIDERA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Storage.Path = expandHome(cfg.Storage.Path)
	cfg.Logging.OutputPath = expandHome(cfg.Logging.OutputPath)
	cfg.Audit.Dir = expandHome(cfg.Audit.Dir)
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.baseURL cannot be empty")
	}
	if c.API.TimeoutSec < 0 {
		return fmt.Errorf("api.timeoutSec cannot be negative")
	}
	if c.Chat.Tradeoff < 0 || c.Chat.Tradeoff > 1 {
		return fmt.Errorf("chat.tradeoff must be between 0 and 1, got %v", c.Chat.Tradeoff)
	}
	if c.Audit.Enabled && c.Audit.Dir == "" {
		return fmt.Errorf("audit.dir cannot be empty when audit is enabled")
	}
	if c.Audit.MaxShardMB < 0 {
		return fmt.Errorf("audit.maxShardMB cannot be negative")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.baseURL", DefaultBaseURL)
	v.SetDefault("api.timeoutSec", 120)

	v.SetDefault("storage.path", "~/.guidera/guidera.db")

	v.SetDefault("chat.complianceEnabled", true)
	v.SetDefault("chat.tradeoff", 0.5)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.outputPath", "~/.guidera/guidera.log")

	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.dir", "~/.guidera/audit")
	v.SetDefault("audit.compress", false)
	v.SetDefault("audit.maxShardMB", 10)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
