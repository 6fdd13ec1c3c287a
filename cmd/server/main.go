package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/coderoom-server/internal/app"
	"github.com/vovakirdan/coderoom-server/internal/config"
	"github.com/vovakirdan/coderoom-server/internal/log"
)

const flagRoomCapacity = "room-capacity"

func main() {
	if err := newRootCmd(&serveOptions{}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type serveOptions struct {
	configPath string
	overrides  config.Config
}

// apply layers flag values over cfg. Zero means "not given" for most
// fields; room capacity is taken whenever the flag was set, since 0 is
// the unbounded setting.
func (o *serveOptions) apply(cfg *config.Config, changed func(name string) bool) {
	cfg.UpdateFrom(o.overrides)
	if changed(flagRoomCapacity) {
		cfg.RoomCapacity = o.overrides.RoomCapacity
	}
}

func newRootCmd(opts *serveOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "coderoom-server",
		Short:         "Room session and presence coordinator",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bootLogger := log.New("info")

			cfg, resolvedPath, err := config.Load(bootLogger, opts.configPath)
			if err != nil {
				return err
			}
			opts.apply(&cfg, cmd.Flags().Changed)
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := log.New(cfg.LogLevel)
			logger.Info().Str("config", resolvedPath).Str("addr", cfg.Addr).Msg("starting coderoom server")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := app.New(&cfg, logger).Run(ctx); err != nil {
				logger.Error().Err(err).Msg("server exited with error")
				return err
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to config.yaml")
	flags.StringVar(&opts.overrides.Addr, "addr", "", "HTTP listen address")
	flags.StringVar(&opts.overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.IntVar(&opts.overrides.RoomCapacity, flagRoomCapacity, 0, "members per room, 0 for unbounded (keeps the configured value when omitted)")
	flags.DurationVar(&opts.overrides.ReadHeaderTimeout, "read-header-timeout", 0, "HTTP read header timeout")
	flags.DurationVar(&opts.overrides.ShutdownTimeout, "shutdown-timeout", 0, "graceful shutdown timeout")

	cmd.SetContext(context.Background())
	return cmd
}
