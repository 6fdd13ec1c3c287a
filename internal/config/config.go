package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr" validate:"required"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout" validate:"gt=0"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"gt=0"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
	MaxMessageBytes   int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes" validate:"gte=0"`

	// RoomCapacity bounds every room except the lobby; 0 means unbounded.
	RoomCapacity int `mapstructure:"room_capacity" yaml:"room_capacity" validate:"gte=0"`
	// LobbyRoom names the presence-only room; empty disables it.
	LobbyRoom        string `mapstructure:"lobby_room" yaml:"lobby_room"`
	EventBuffer      int    `mapstructure:"event_buffer" yaml:"event_buffer" validate:"gte=1"`
	InboundRateLimit int    `mapstructure:"inbound_rate_limit" yaml:"inbound_rate_limit" validate:"gte=0"`

	JWTSecret   string `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTRequired bool   `mapstructure:"jwt_required" yaml:"jwt_required"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		MaxMessageBytes:   64 << 10,
		RoomCapacity:      2,
		LobbyRoom:         "lobby",
		EventBuffer:       32,
		InboundRateLimit:  120,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
// Zero is read as "unset", so it cannot reset a field; callers that need
// an explicit zero (room capacity 0 means unbounded) assign it directly.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	if other.RoomCapacity != 0 {
		c.RoomCapacity = other.RoomCapacity
	}
	if other.LobbyRoom != "" {
		c.LobbyRoom = other.LobbyRoom
	}
	if other.EventBuffer != 0 {
		c.EventBuffer = other.EventBuffer
	}
	if other.InboundRateLimit != 0 {
		c.InboundRateLimit = other.InboundRateLimit
	}
	if other.JWTSecret != "" {
		c.JWTSecret = other.JWTSecret
	}
	if other.JWTIssuer != "" {
		c.JWTIssuer = other.JWTIssuer
	}
	if other.JWTAudience != "" {
		c.JWTAudience = other.JWTAudience
	}
	if other.JWTRequired {
		c.JWTRequired = true
	}
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.JWTRequired && c.JWTSecret == "" {
		return fmt.Errorf("invalid config: jwt_required needs jwt_secret")
	}
	return nil
}
