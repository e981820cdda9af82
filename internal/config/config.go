package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// Values are read by viper from a config file or environment variables.
type Config struct {
	TelegramBotToken string `mapstructure:"TELEGRAM_BOT_TOKEN"`
	AdminID          int64  `mapstructure:"ADMIN_ID"`
	TMDBAPIKey       string `mapstructure:"TMDB_API_KEY"`
	GPLinksAPIKey    string `mapstructure:"GPLINKS_API_KEY"`
	MongoURI         string `mapstructure:"MONGODB_URI"`

	// MetadataCachePath is where the badger metadata cache lives.
	MetadataCachePath string `mapstructure:"METADATA_CACHE_PATH"`

	// ReplyDelay is the pause between successive per-movie replies, to stay
	// under the Telegram rate limit.
	ReplyDelay time.Duration `mapstructure:"REPLY_DELAY"`

	// HTTPTimeout bounds every outbound call to TMDB and GPLinks.
	HTTPTimeout time.Duration `mapstructure:"HTTP_TIMEOUT"`
}

// LoadConfig reads configuration from file or environment variables.
// Every credential is required; a missing one is a startup error, never a
// runtime one.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// viper only exposes env vars it has seen a key for; bind the ones we
	// need so a config file is optional.
	for _, key := range []string{
		"TELEGRAM_BOT_TOKEN", "ADMIN_ID", "TMDB_API_KEY", "GPLINKS_API_KEY",
		"MONGODB_URI", "METADATA_CACHE_PATH", "REPLY_DELAY", "HTTP_TIMEOUT",
	} {
		_ = viper.BindEnv(key)
	}

	err = viper.ReadInConfig()
	if err != nil {
		// A missing config file is fine as long as env vars cover the
		// required values below.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return Config{}, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if config.TelegramBotToken == "" {
		return Config{}, fmt.Errorf("TELEGRAM_BOT_TOKEN is not set")
	}
	if config.AdminID == 0 {
		return Config{}, fmt.Errorf("ADMIN_ID is not set or not a valid integer")
	}
	if config.TMDBAPIKey == "" {
		return Config{}, fmt.Errorf("TMDB_API_KEY is not set")
	}
	if config.GPLinksAPIKey == "" {
		return Config{}, fmt.Errorf("GPLINKS_API_KEY is not set")
	}
	if config.MongoURI == "" {
		return Config{}, fmt.Errorf("MONGODB_URI is not set")
	}

	if config.MetadataCachePath == "" {
		config.MetadataCachePath = "./metadata_cache"
	}
	if config.ReplyDelay <= 0 {
		config.ReplyDelay = time.Second
	}
	if config.HTTPTimeout <= 0 {
		config.HTTPTimeout = 10 * time.Second
	}

	return config, nil
}
