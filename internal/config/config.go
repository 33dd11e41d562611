package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/feishu-sync/feishu-sync/internal/utils"
)

var (
	home, _           = os.UserHomeDir()
	DefaultConfigDir  = filepath.Join(home, ".feishu-sync")
	DefaultConfigPath = filepath.Join(DefaultConfigDir, "config.yaml")
	DefaultFolderPath = filepath.Join(home, "FeishuDocs")
)

var (
	ErrNoSpaceID  = errors.New("config: wikiSpaceId is required")
	ErrNoToken    = errors.New("config: token file is missing or empty, run `feishu-sync start` or the auth helper to obtain one")
	ErrNoTokenSet = errors.New("config: tokenPath is required")
)

type AuthConfig struct {
	ClientID     string `mapstructure:"clientId"`
	ClientSecret string `mapstructure:"clientSecret"`
}

type SyncConfig struct {
	FolderPath          string  `mapstructure:"folderPath"`
	PollIntervalSeconds float64 `mapstructure:"pollIntervalSeconds"`
	InitialSync         bool    `mapstructure:"initialSync"`
}

type Config struct {
	TokenPath   string     `mapstructure:"tokenPath"`
	WikiSpaceID string     `mapstructure:"wikiSpaceId"`
	Auth        AuthConfig `mapstructure:"auth"`
	Sync        SyncConfig `mapstructure:"sync"`

	// Path of the config file this was loaded from, if any.
	Path string `mapstructure:"-"`
}

// Load reads the config file at path (or the default search locations when
// path is empty), applies env overrides and returns a validated Config.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(DefaultConfigDir)
		v.AddConfigPath(filepath.Join(home, ".config", "feishu-sync"))
		v.SetConfigName("config")
	}

	v.SetDefault("sync.folderPath", DefaultFolderPath)
	v.SetDefault("sync.pollIntervalSeconds", 0)
	v.SetDefault("sync.initialSync", true)
	v.SetDefault("tokenPath", filepath.Join(DefaultConfigDir, "token"))

	v.SetEnvPrefix("FEISHU")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// FEISHU_APP_ID / FEISHU_APP_SECRET override the auth block.
	v.BindEnv("auth.clientId", "FEISHU_APP_ID")
	v.BindEnv("auth.clientSecret", "FEISHU_APP_SECRET")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config read %q: %w", v.ConfigFileUsed(), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config parse: %w", err)
	}
	cfg.Path = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate normalizes paths and checks required fields.
func (c *Config) Validate() error {
	if c.WikiSpaceID == "" {
		return ErrNoSpaceID
	}
	if c.TokenPath == "" {
		return ErrNoTokenSet
	}

	tokenPath, err := utils.ResolvePath(c.TokenPath)
	if err != nil {
		return fmt.Errorf("config: tokenPath: %w", err)
	}
	c.TokenPath = tokenPath

	folder, err := utils.ResolvePath(c.Sync.FolderPath)
	if err != nil {
		return fmt.Errorf("config: sync.folderPath: %w", err)
	}
	c.Sync.FolderPath = folder

	if c.Sync.PollIntervalSeconds < 0 {
		return fmt.Errorf("config: sync.pollIntervalSeconds must be >= 0, got %v", c.Sync.PollIntervalSeconds)
	}
	return nil
}

// Token reads the bearer token from TokenPath.
func (c *Config) Token() (string, error) {
	data, err := os.ReadFile(c.TokenPath)
	if err != nil {
		return "", ErrNoToken
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}
