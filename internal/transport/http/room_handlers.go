package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/coderoom-server/internal/core"
	"github.com/vovakirdan/coderoom-server/internal/identity"
)

// RoomHandlers provides read-only HTTP views of the coordinator.
type RoomHandlers struct {
	coord *core.Coordinator
	log   *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(coord *core.Coordinator, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		coord: coord,
		log:   logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MemberResponse is one room member in API responses.
type MemberResponse struct {
	ConnectionID string `json:"connection_id"`
	Name         string `json:"name"`
	Avatar       string `json:"avatar,omitempty"`
}

// RoomResponse represents a room in API responses.
type RoomResponse struct {
	ID       string           `json:"id"`
	Capacity int              `json:"capacity"`
	Presence bool             `json:"presence"`
	Full     bool             `json:"full"`
	Members  []MemberResponse `json:"members"`
}

// StatsResponse reports registry counters.
type StatsResponse struct {
	Connections int `json:"connections"`
	Rooms       int `json:"rooms"`
	Members     int `json:"members"`
}

// GetRoom returns the members of an active room.
// GET /api/rooms/:id
func (h *RoomHandlers) GetRoom(c *gin.Context) {
	id := c.Param("id")
	logEv := h.log.Debug().Str("room_id", id)
	if profile, ok := c.Get(ContextKeyProfile); ok {
		logEv = logEv.Str("requested_by", profile.(identity.Profile).Name)
	}

	info, ok := h.coord.Room(id)
	if !ok {
		logEv.Msg("room not active")
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
		return
	}

	logEv.Int("members", len(info.Members)).Msg("room inspected")
	c.JSON(http.StatusOK, RoomResponse{
		ID:       info.ID,
		Capacity: info.Capacity,
		Presence: info.Presence,
		Full:     core.Policy{Capacity: info.Capacity}.Full(len(info.Members)),
		Members: lo.Map(info.Members, func(m core.MemberInfo, _ int) MemberResponse {
			return MemberResponse{
				ConnectionID: m.ConnectionID,
				Name:         m.Participant.Name,
				Avatar:       m.Participant.AvatarURL,
			}
		}),
	})
}

// Stats returns registry counters.
// GET /api/stats
func (h *RoomHandlers) Stats(c *gin.Context) {
	s := h.coord.Stats()
	c.JSON(http.StatusOK, StatsResponse{
		Connections: s.Connections,
		Rooms:       s.Rooms,
		Members:     s.Members,
	})
}
