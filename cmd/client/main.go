package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/coderoom-server/internal/identity"
	"github.com/vovakirdan/coderoom-server/internal/log"
	"github.com/vovakirdan/coderoom-server/internal/notice"
	"github.com/vovakirdan/coderoom-server/internal/session"
)

var errRoomFull = errors.New("room is full")

func main() {
	if err := newJoinCmd().Execute(); err != nil {
		color.Error.Println(err)
		os.Exit(1)
	}
}

type joinFlags struct {
	url      string
	name     string
	avatar   string
	token    string
	guestKey string
	logLevel string
}

func newJoinCmd() *cobra.Command {
	var f joinFlags

	cmd := &cobra.Command{
		Use:           "coderoom-client /room/<id>",
		Short:         "Join a room and print presence notices",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJoin(cmd.Context(), args[0], f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.url, "url", "ws://localhost:8080/ws", "coordinator WebSocket URL")
	flags.StringVar(&f.name, "name", "", "display name (a guest name is used when empty)")
	flags.StringVar(&f.avatar, "avatar", "", "avatar URL")
	flags.StringVar(&f.token, "token", "", "JWT issued for this participant")
	flags.StringVar(&f.guestKey, "guest-key", "", "stable key for the generated guest name")
	flags.StringVar(&f.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	cmd.SetContext(context.Background())
	return cmd
}

func runJoin(parent context.Context, path string, f joinFlags) error {
	logger := log.NewWithWriter(f.logLevel, os.Stderr)

	var ctxIdentity identity.Context
	if f.name != "" {
		ctxIdentity.Profile = &identity.Profile{Name: f.name, AvatarURL: f.avatar}
	}
	ctxIdentity.GuestKey = f.guestKey
	if ctxIdentity.GuestKey == "" {
		ctxIdentity.GuestKey, _ = os.Hostname()
	}

	self, err := identity.NewResolver(identity.NewGuestBook()).Resolve(path, ctxIdentity)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	transport, err := session.DialWS(ctx, f.url, log.Named(logger, "transport"))
	if err != nil {
		return err
	}

	full := make(chan struct{}, 1)
	client := session.New(self, transport, session.Options{
		Sink:   session.SinkFunc(printNotice),
		Logger: log.Named(logger, "session"),
		Token:  f.token,
		Navigator: session.NavigatorFunc(func(reason notice.RedirectReason) {
			if n, ok := notice.RedirectNotice(reason); ok {
				printNotice(n)
			}
			select {
			case full <- struct{}{}:
			default:
			}
		}),
	})
	client.OnChange(func(s session.Snapshot) {
		if s.LastError != nil {
			color.Warn.Printf("server: %s (%s)\n", s.LastError.Msg, s.LastError.Code)
		}
	})

	unmount, err := client.Mount(ctx)
	if err != nil {
		return err
	}
	defer unmount()

	color.Info.Printf("%s joining room %s\n", self.Name, self.RoomID)

	select {
	case <-ctx.Done():
		return nil
	case <-full:
		return errRoomFull
	case <-client.Done():
		return fmt.Errorf("connection to %s closed", f.url)
	}
}

var noticeStyles = map[notice.Severity]color.Style{
	notice.SeveritySuccess: color.New(color.FgGreen, color.OpBold),
	notice.SeverityError:   color.New(color.FgRed, color.OpBold),
}

func printNotice(n notice.Notice) {
	style, ok := noticeStyles[n.Severity]
	if !ok {
		fmt.Println(n.Message)
		return
	}
	style.Println(n.Message)
}
