package http

import (
	stdhttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/coderoom-server/internal/auth"
	"github.com/vovakirdan/coderoom-server/internal/config"
	"github.com/vovakirdan/coderoom-server/internal/core"
)

// NewServer builds the HTTP server: health, WebSocket and room inspection routes.
func NewServer(coord *core.Coordinator, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	jwtConfig := JWTConfigFrom(cfg)

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", healthHandler)
	router.GET("/ws", gin.WrapH(NewWSHandler(coord, cfg, jwtConfig, logger)))

	api := router.Group("/api")
	if cfg.JWTRequired {
		api.Use(AuthMiddleware(jwtConfig, logger))
	}
	rooms := NewRoomHandlers(coord, logger)
	api.GET("/rooms/:id", rooms.GetRoom)
	api.GET("/stats", rooms.Stats)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// JWTConfigFrom extracts token settings from the server config.
func JWTConfigFrom(cfg *config.Config) *auth.JWTConfig {
	return &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      24 * time.Hour,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
