// Package conf provides configuration management using Viper.
// It supports loading configuration from YAML files and environment variables,
// with CLI flag overrides.
package conf

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultUserAgent is sent on every call to reddit.
const DefaultUserAgent = "oauth-dropin reddit identity checker"

// NewBootstrap creates and initializes a Bootstrap configuration.
// It loads configuration from the specified config file path, applies defaults,
// and allows overrides from environment variables prefixed with OAUTHDROPINS_.
//
// Configuration priority: CLI flags > Environment variables > Config file > Defaults
//
// Required settings:
//   - REDDIT_APP_KEY / REDDIT_APP_SECRET (or reddit.app_key_file / reddit.app_secret_file)
//   - MYSQL_DSN or OAUTHDROPINS_DATA_DATABASE_SOURCE: MySQL connection string
//   - ENCRYPTION_KEY or OAUTHDROPINS_AUTH_ENCRYPTION_KEY: 32 byte refresh token key
func NewBootstrap(configPath string) (*Bootstrap, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("OAUTHDROPINS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bare names are accepted for secrets so deployments can share them with other services
	_ = v.BindEnv("data.database.source", "MYSQL_DSN", "OAUTHDROPINS_DATA_DATABASE_SOURCE")
	_ = v.BindEnv("data.redis.addr", "REDIS_ADDR", "OAUTHDROPINS_DATA_REDIS_ADDR")
	_ = v.BindEnv("data.redis.password", "REDIS_PASSWORD", "OAUTHDROPINS_DATA_REDIS_PASSWORD")
	_ = v.BindEnv("auth.encryption.key", "ENCRYPTION_KEY", "OAUTHDROPINS_AUTH_ENCRYPTION_KEY")
	_ = v.BindEnv("reddit.app_key", "REDDIT_APP_KEY", "OAUTHDROPINS_REDDIT_APP_KEY")
	_ = v.BindEnv("reddit.app_secret", "REDDIT_APP_SECRET", "OAUTHDROPINS_REDDIT_APP_SECRET")
	_ = v.BindEnv("oauth.state_signing_key", "STATE_SIGNING_KEY", "OAUTHDROPINS_OAUTH_STATE_SIGNING_KEY")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	bc := &Bootstrap{
		Server: &Server{
			HTTP: &HTTP{
				Network: v.GetString("server.http.network"),
				Addr:    v.GetString("server.http.addr"),
				Timeout: v.GetDuration("server.http.timeout"),
			},
		},
		Data: &Data{
			Database: &Database{
				Driver:      v.GetString("data.database.driver"),
				Source:      v.GetString("data.database.source"),
				AutoMigrate: v.GetBool("data.database.auto_migrate"),
			},
			Redis: &Redis{
				Network:      v.GetString("data.redis.network"),
				Addr:         v.GetString("data.redis.addr"),
				Password:     v.GetString("data.redis.password"),
				DB:           v.GetInt("data.redis.db"),
				ReadTimeout:  v.GetDuration("data.redis.read_timeout"),
				WriteTimeout: v.GetDuration("data.redis.write_timeout"),
			},
		},
		Auth: &Auth{
			Encryption: &Encryption{
				Key: v.GetString("auth.encryption.key"),
			},
		},
		Reddit: &Reddit{
			AppKey:        v.GetString("reddit.app_key"),
			AppSecret:     v.GetString("reddit.app_secret"),
			AppKeyFile:    v.GetString("reddit.app_key_file"),
			AppSecretFile: v.GetString("reddit.app_secret_file"),
			UserAgent:     v.GetString("reddit.user_agent"),
			ProxyURL:      v.GetString("reddit.proxy_url"),
			Timeout:       v.GetDuration("reddit.timeout"),
			CallbackPath:  v.GetString("reddit.callback_path"),
		},
		OAuth: &OAuth{
			PendingTTL:      v.GetDuration("oauth.pending_ttl"),
			DefaultToPath:   v.GetString("oauth.default_to_path"),
			StateSigningKey: v.GetString("oauth.state_signing_key"),
		},
		Log: &Log{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Env:        v.GetString("log.env"),
			OutputFile: v.GetString("log.output_file"),
		},
	}

	if err := loadRedditSecrets(bc.Reddit); err != nil {
		return nil, err
	}

	if bc.OAuth.StateSigningKey == "" {
		bc.OAuth.StateSigningKey = bc.Reddit.AppSecret
	}

	if err := Validate(bc); err != nil {
		return nil, err
	}

	return bc, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http.network", "tcp")
	v.SetDefault("server.http.addr", ":8080")
	v.SetDefault("server.http.timeout", 30*time.Second)

	v.SetDefault("data.database.driver", "mysql")
	v.SetDefault("data.database.auto_migrate", false)
	// Note: data.database.source (MYSQL_DSN) is required from environment

	v.SetDefault("data.redis.network", "tcp")
	v.SetDefault("data.redis.addr", "127.0.0.1:6379")
	v.SetDefault("data.redis.db", 0)
	v.SetDefault("data.redis.read_timeout", 200*time.Millisecond)
	v.SetDefault("data.redis.write_timeout", 200*time.Millisecond)

	v.SetDefault("reddit.user_agent", DefaultUserAgent)
	v.SetDefault("reddit.timeout", 30*time.Second)
	v.SetDefault("reddit.callback_path", "/reddit/oauth_callback")

	v.SetDefault("oauth.pending_ttl", 10*time.Minute)
	v.SetDefault("oauth.default_to_path", "/")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// loadRedditSecrets fills the app key and secret from files when they are not set directly.
// File contents are trimmed so a trailing newline does not end up in the client id.
func loadRedditSecrets(r *Reddit) error {
	if r.AppKey == "" && r.AppKeyFile != "" {
		key, err := readSecretFile(r.AppKeyFile)
		if err != nil {
			return err
		}
		r.AppKey = key
	}
	if r.AppSecret == "" && r.AppSecretFile != "" {
		secret, err := readSecretFile(r.AppSecretFile)
		if err != nil {
			return err
		}
		r.AppSecret = secret
	}
	return nil
}

func readSecretFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file %s: %w", path, err)
	}
	return strings.TrimSpace(string(b)), nil
}

// Validate checks that all required configuration fields are present and valid.
// It returns an error listing all missing required fields.
func Validate(bc *Bootstrap) error {
	var missingFields []string

	if bc.Reddit == nil || bc.Reddit.AppKey == "" {
		missingFields = append(missingFields, "reddit.app_key (REDDIT_APP_KEY)")
	}
	if bc.Reddit == nil || bc.Reddit.AppSecret == "" {
		missingFields = append(missingFields, "reddit.app_secret (REDDIT_APP_SECRET)")
	}

	if bc.Data == nil || bc.Data.Database == nil || bc.Data.Database.Source == "" {
		missingFields = append(missingFields, "data.database.source (MYSQL_DSN)")
	}

	if bc.Auth == nil || bc.Auth.Encryption == nil || bc.Auth.Encryption.Key == "" {
		missingFields = append(missingFields, "auth.encryption.key (ENCRYPTION_KEY)")
	}

	if len(missingFields) > 0 {
		return fmt.Errorf("missing required configuration fields: %s", strings.Join(missingFields, ", "))
	}

	if n := len(bc.Auth.Encryption.Key); n != 32 {
		return fmt.Errorf("auth.encryption.key must be 32 bytes, got %d", n)
	}

	if p := bc.Reddit.CallbackPath; !strings.HasPrefix(p, "/") || strings.ContainsAny(p, "?#{}") {
		return fmt.Errorf("reddit.callback_path must be a plain path starting with '/', got %q", p)
	}

	return nil
}
