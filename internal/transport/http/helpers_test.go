package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/coderoom-server/internal/config"
	"github.com/vovakirdan/coderoom-server/internal/core"
	"github.com/vovakirdan/coderoom-server/internal/proto"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.ReadHeaderTimeout = time.Second
	cfg.ShutdownTimeout = time.Second
	return cfg
}

func startTestServer(t *testing.T, cfg config.Config) (*httptest.Server, *core.Coordinator) {
	t.Helper()

	disabledLogger := zerolog.New(nil)
	coord := core.NewCoordinator(core.Options{
		Capacity:    cfg.RoomCapacity,
		LobbyRoom:   cfg.LobbyRoom,
		EventBuffer: cfg.EventBuffer,
		Logger:      &disabledLogger,
	})

	server := NewServer(coord, &cfg, &disabledLogger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return ts, coord
}

func wsURL(ts *httptest.Server) string {
	return strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
}

func dial(t *testing.T, ctx context.Context, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.Dial(ctx, wsURL(ts), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func sendJoin(t *testing.T, ctx context.Context, conn *websocket.Conn, data proto.JoinRoomData) {
	t.Helper()

	msg, err := proto.NewInbound(proto.InboundTypeJoinRoom, data)
	require.NoError(t, err)
	require.NoError(t, wsjson.Write(ctx, conn, msg))
}

func join(t *testing.T, ctx context.Context, conn *websocket.Conn, name, room string) {
	t.Helper()
	sendJoin(t, ctx, conn, proto.JoinRoomData{Participant: proto.Participant{Name: name}, RoomID: room})
}

func readOutbound(t *testing.T, ctx context.Context, conn *websocket.Conn) proto.Outbound {
	t.Helper()

	readCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var out proto.Outbound
	require.NoError(t, wsjson.Read(readCtx, conn, &out))
	return out
}

func readEvent(t *testing.T, ctx context.Context, conn *websocket.Conn, event string, data any) {
	t.Helper()

	out := readOutbound(t, ctx, conn)
	require.Equal(t, proto.OutboundTypeEvent, out.Type, "outbound: %+v", out)
	require.Equal(t, event, out.Event)
	if data != nil {
		require.NoError(t, json.Unmarshal(out.Data, data))
	}
}

func readError(t *testing.T, ctx context.Context, conn *websocket.Conn) *proto.Error {
	t.Helper()

	out := readOutbound(t, ctx, conn)
	require.Equal(t, proto.OutboundTypeError, out.Type, "outbound: %+v", out)
	require.NotNil(t, out.Error)
	return out.Error
}
