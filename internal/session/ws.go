package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/coderoom-server/internal/proto"
)

const wsEventBuffer = 16

// WSTransport is a Transport over a coder/websocket connection.
type WSTransport struct {
	conn   *websocket.Conn
	events chan Event
	log    *zerolog.Logger

	cancel    context.CancelFunc
	closeOnce sync.Once
	closeErr  error
}

// DialWS connects to a coordinator WebSocket endpoint.
func DialWS(ctx context.Context, url string, logger *zerolog.Logger) (*WSTransport, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	readCtx, cancel := context.WithCancel(context.Background())
	t := &WSTransport{
		conn:   conn,
		events: make(chan Event, wsEventBuffer),
		log:    logger,
		cancel: cancel,
	}
	go t.readLoop(readCtx)
	return t, nil
}

// Send writes one envelope to the coordinator.
func (t *WSTransport) Send(ctx context.Context, msg proto.Inbound) error {
	return wsjson.Write(ctx, t.conn, msg)
}

// Events returns the decoded inbound stream; it closes with the connection.
func (t *WSTransport) Events() <-chan Event {
	return t.events
}

// Close ends the connection.
func (t *WSTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.conn.Close(websocket.StatusNormalClosure, "leaving")
		t.cancel()
	})
	return t.closeErr
}

func (t *WSTransport) readLoop(ctx context.Context) {
	defer close(t.events)

	for {
		var out proto.Outbound
		if err := wsjson.Read(ctx, t.conn, &out); err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && !errors.Is(err, context.Canceled) {
				t.log.Debug().Err(err).Msg("read ws outbound")
			}
			return
		}

		ev, err := DecodeOutbound(out)
		if err != nil {
			t.log.Warn().Err(err).Str("event", out.Event).Msg("skipping undecodable event")
			continue
		}

		select {
		case t.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}
