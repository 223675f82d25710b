package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix       = "AUDIT"
	profileFileName = ".cloudaudit"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Secrets  SecretsConfig  `mapstructure:"secrets"`
	Profiles ProfilesConfig `mapstructure:"profiles"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type AuthConfig struct {
	SigningKey string            `mapstructure:"signing_key"`
	TokenTTL   time.Duration     `mapstructure:"token_ttl"`
	Users      map[string]string `mapstructure:"users"` // lowercase username -> bcrypt hash
}

type AuditConfig struct {
	CheckTimeout time.Duration `mapstructure:"check_timeout"`
	Concurrency  int           `mapstructure:"concurrency"`
}

type SecretsConfig struct {
	Project string `mapstructure:"project"`
	Prefix  string `mapstructure:"prefix"`
}

type ProfilesConfig struct {
	Path string `mapstructure:"path"`
}

// LoadConfig reads path, if given, on top of the defaults. AUDIT_* environment
// variables override both, e.g. AUDIT_SERVER_PORT for server.port.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse audit config: %w", err)
	}
	cfg.Profiles.Path = expandHome(cfg.Profiles.Path)
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", time.Hour)
	v.SetDefault("audit.check_timeout", 2*time.Minute)
	v.SetDefault("audit.concurrency", 0)
	v.SetDefault("secrets.project", "")
	v.SetDefault("secrets.prefix", "audit-credentials")
	v.SetDefault("profiles.path", filepath.Join("~", profileFileName))
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
