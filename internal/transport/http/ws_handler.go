package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/coderoom-server/internal/auth"
	"github.com/vovakirdan/coderoom-server/internal/config"
	"github.com/vovakirdan/coderoom-server/internal/core"
	"github.com/vovakirdan/coderoom-server/internal/proto"
)

var errSlowConsumer = errors.New("slow consumer")

// WSHandler upgrades HTTP connections and bridges them to the coordinator.
// A closed connection counts as leaving the room.
type WSHandler struct {
	coord *core.Coordinator
	cfg   *config.Config
	jwt   *auth.JWTConfig
	log   *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(coord *core.Coordinator, cfg *config.Config, jwtConfig *auth.JWTConfig, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{coord: coord, cfg: cfg, jwt: jwtConfig, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	if h.cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.cfg.MaxMessageBytes)
	}

	client := h.coord.Connect()
	defer h.coord.Disconnect(client)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if errors.Is(err, errSlowConsumer) {
			status = websocket.StatusTryAgainLater
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("client_id", client.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	limiter := newRateLimiter(h.cfg.InboundRateLimit, time.Minute)

	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			h.log.Debug().Err(err).Str("client_id", client.ID).Msg("read ws inbound")
			return err
		}

		var protoErr *proto.Error
		if limiter.allow() {
			protoErr = h.handleInbound(client, inbound)
		} else {
			protoErr = &proto.Error{Code: core.ErrCodeRateLimited, Msg: "too many messages"}
		}
		if protoErr != nil {
			if err := wsjson.Write(ctx, conn, errorOutbound(protoErr.Code, protoErr.Msg)); err != nil {
				return err
			}
		}
	}
}

// handleInbound applies one client message. Admission outcomes reach the
// client as coordinator events; only request-level problems return here.
func (h *WSHandler) handleInbound(client *core.Client, inbound proto.Inbound) *proto.Error {
	switch inbound.Type {
	case proto.InboundTypeJoinRoom:
		var join proto.JoinRoomData
		if err := json.Unmarshal(inbound.Data, &join); err != nil {
			return &proto.Error{Code: core.ErrCodeBadRequest, Msg: "malformed join-room payload"}
		}
		if join.Protocol > proto.ProtocolVersion {
			return &proto.Error{Code: core.ErrCodeUnsupportedVersion, Msg: "unsupported protocol version"}
		}
		if join.Token != "" || h.cfg.JWTRequired {
			profile, err := auth.ProfileFromToken(h.jwt, join.Token)
			if err != nil {
				h.log.Debug().Err(err).Str("client_id", client.ID).Msg("join token rejected")
				return &proto.Error{Code: core.ErrCodeUnauthorized, Msg: "invalid token"}
			}
			join.Participant.Name = profile.Name
			join.Participant.Avatar = profile.AvatarURL
		}
		if err := join.Validate(); err != nil {
			return &proto.Error{Code: core.ErrCodeBadRequest, Msg: err.Error()}
		}

		participant := participantFromWire(join.Participant, join.RoomID)
		if _, err := h.coord.Admit(client, participant, join.RoomID); err != nil {
			h.log.Debug().Err(err).Str("client_id", client.ID).Str("room_id", join.RoomID).Msg("admission rejected")
		}
		return nil
	case proto.InboundTypeLeaveRoom:
		h.coord.Leave(client)
		return nil
	default:
		return &proto.Error{Code: core.ErrCodeInvalidMessage, Msg: "unknown message type"}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event := <-client.Events:
			out, err := outboundFromEvent(event)
			if err != nil {
				h.log.Error().Err(err).Str("client_id", client.ID).Msg("map event")
				continue
			}
			if err := wsjson.Write(ctx, conn, out); err != nil {
				h.log.Error().Err(err).Str("client_id", client.ID).Msg("write ws event")
				return err
			}
		case <-client.Dropped():
			return errSlowConsumer
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
