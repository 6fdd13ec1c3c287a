package app

import (
	"context"
	"errors"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/coderoom-server/internal/config"
	"github.com/vovakirdan/coderoom-server/internal/core"
	applog "github.com/vovakirdan/coderoom-server/internal/log"
	transporthttp "github.com/vovakirdan/coderoom-server/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	coord           *core.Coordinator
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) *App {
	coord := core.NewCoordinator(core.Options{
		Capacity:    cfg.RoomCapacity,
		LobbyRoom:   cfg.LobbyRoom,
		EventBuffer: cfg.EventBuffer,
		Logger:      applog.Named(logger, "coordinator"),
	})

	logger.Info().
		Int("room_capacity", cfg.RoomCapacity).
		Str("lobby_room", cfg.LobbyRoom).
		Bool("jwt_required", cfg.JWTRequired).
		Msg("coordinator initialized")

	return &App{
		server:          transporthttp.NewServer(coord, cfg, applog.Named(logger, "http")),
		shutdownTimeout: cfg.ShutdownTimeout,
		coord:           coord,
		log:             logger,
	}
}

// Coordinator exposes the room registry, mostly for tests.
func (a *App) Coordinator() *core.Coordinator {
	return a.coord
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}

		stats := a.coord.Stats()
		a.log.Info().
			Int("connections", stats.Connections).
			Int("rooms", stats.Rooms).
			Msg("coordinator stopped")
		return <-serverErr
	}
}
