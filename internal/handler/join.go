package handler

import (
	"context"
	"errors"

	"github.com/coinflux/realtime/internal/fanout"
)

type JoinRoomRequest struct {
	Room string `json:"room"`
}

type RoomPresenceData struct {
	Room   string `json:"room"`
	UserID string `json:"userId"`
}

type JoinRoomHandlerInterface interface {
	Handle(ctx context.Context, req JoinRoomRequest) (*fanout.Envelope, error)
}

type JoinRoomHandler struct {
	roomNameValidator *RoomNameValidator
	rooms             *fanout.Rooms
	dispatcher        *fanout.Dispatcher
}

func NewJoinRoomHandler(
	roomNameValidator *RoomNameValidator,
	rooms *fanout.Rooms,
	dispatcher *fanout.Dispatcher,
) *JoinRoomHandler {
	return &JoinRoomHandler{
		roomNameValidator,
		rooms,
		dispatcher,
	}
}

func (h *JoinRoomHandler) Handle(ctx context.Context, req JoinRoomRequest) (*fanout.Envelope, error) {
	err := h.roomNameValidator.Validate(req.Room)
	if err != nil {
		return nil, err
	}

	conn, ok := fanout.ConnectionFromContext(ctx)
	if !ok {
		return nil, errors.New("connection not found in context")
	}

	alreadyMember := h.rooms.IsMember(conn.UserID, req.Room)
	h.rooms.Join(conn.UserID, req.Room)

	// Joining twice is idempotent; the room is only notified once.
	if !alreadyMember {
		h.dispatcher.SendToRoom(req.Room,
			fanout.NewEnvelope(fanout.EventUserJoinedRoom, RoomPresenceData{
				Room:   req.Room,
				UserID: conn.UserID,
			}),
			conn.UserID)
	}

	return nil, nil
}
