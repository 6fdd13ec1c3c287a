package auth

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vovakirdan/coderoom-server/internal/identity"
)

// ErrMissingToken is returned when a token is required but absent.
var ErrMissingToken = errors.New("missing token")

// Claims represents JWT claims for an authenticated room participant.
type Claims struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
	jwt.RegisteredClaims
}

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	Secret   []byte
	Issuer   string
	Audience string
	TTL      time.Duration
}

// GenerateToken creates a new JWT token for the given profile.
func GenerateToken(cfg *JWTConfig, profile identity.Profile) (string, error) {
	now := time.Now()
	claims := Claims{
		Name:   profile.Name,
		Avatar: profile.AvatarURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   profile.Name,
			Issuer:    cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	if cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{cfg.Audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(cfg.Secret)
}

// ValidateToken parses and validates a JWT token.
func ValidateToken(cfg *JWTConfig, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return cfg.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	// Validate issuer and audience if configured
	if cfg.Issuer != "" && claims.Issuer != cfg.Issuer {
		return nil, fmt.Errorf("invalid issuer")
	}
	if cfg.Audience != "" && !slices.Contains(claims.Audience, cfg.Audience) {
		return nil, fmt.Errorf("invalid audience")
	}

	return claims, nil
}

// ProfileFromToken validates the token and returns the identity it carries.
// The name claim falls back to the subject.
func ProfileFromToken(cfg *JWTConfig, tokenString string) (identity.Profile, error) {
	claims, err := ValidateToken(cfg, tokenString)
	if err != nil {
		return identity.Profile{}, err
	}

	name := claims.Name
	if name == "" {
		name = claims.Subject
	}
	if name == "" {
		return identity.Profile{}, identity.ErrEmptyName
	}
	return identity.Profile{Name: name, AvatarURL: claims.Avatar}, nil
}
