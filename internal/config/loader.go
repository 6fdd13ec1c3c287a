package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix            = "CODEROOM"
	envConfigDefaultPath = envPrefix + "_CONFIG_DEFAULT_PATH"
	defaultConfigName    = "config.yaml"
)

// Load resolves the configuration and the file it came from.
// Precedence: defaults < config file < CODEROOM_* env vars; flag overrides
// are applied by the caller with UpdateFrom. A missing file is created with
// the defaults.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	cfg := Default()
	path := resolveConfigPath(explicitPath)

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)
	for key, value := range defaultValues(cfg) {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := ensureConfigFile(logger, path, cfg); err != nil {
		return cfg, path, err
	}
	if err := v.ReadInConfig(); err != nil {
		if !isNotExist(err) {
			return cfg, path, fmt.Errorf("read config: %w", err)
		}
		logger.Warn().Str("path", path).Msg("config file unavailable, using defaults")
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, path, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, path, nil
}

// defaultValues lists every key viper should know about; env vars only
// bind to known keys.
func defaultValues(cfg Config) map[string]any {
	return map[string]any{
		"addr":                cfg.Addr,
		"read_header_timeout": cfg.ReadHeaderTimeout,
		"shutdown_timeout":    cfg.ShutdownTimeout,
		"log_level":           cfg.LogLevel,
		"max_message_bytes":   cfg.MaxMessageBytes,
		"room_capacity":       cfg.RoomCapacity,
		"lobby_room":          cfg.LobbyRoom,
		"event_buffer":        cfg.EventBuffer,
		"inbound_rate_limit":  cfg.InboundRateLimit,
		"jwt_secret":          cfg.JWTSecret,
		"jwt_issuer":          cfg.JWTIssuer,
		"jwt_audience":        cfg.JWTAudience,
		"jwt_required":        cfg.JWTRequired,
	}
}

// ensureConfigFile writes the defaults to path when nothing is there yet.
// Failing to write is not fatal.
func ensureConfigFile(logger *zerolog.Logger, path string, cfg Config) error {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("stat config: %w", err)
	}

	if err := writeDefaultConfig(path, cfg); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("failed to write default config")
		return nil
	}
	logger.Info().Str("path", path).Msg("created default config")
	return nil
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

func resolveConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}

	if base := os.Getenv(envConfigDefaultPath); base != "" {
		if err := os.MkdirAll(base, 0o755); err == nil {
			return filepath.Join(base, defaultConfigName)
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return defaultConfigName
	}
	return filepath.Join(cwd, defaultConfigName)
}

func writeDefaultConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
