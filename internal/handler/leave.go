package handler

import (
	"context"
	"errors"

	"github.com/coinflux/realtime/internal/fanout"
)

type LeaveRoomRequest struct {
	Room string `json:"room"`
}

type LeaveRoomHandlerInterface interface {
	Handle(ctx context.Context, req LeaveRoomRequest) (*fanout.Envelope, error)
}

type LeaveRoomHandler struct {
	roomNameValidator *RoomNameValidator
	rooms             *fanout.Rooms
	dispatcher        *fanout.Dispatcher
}

func NewLeaveRoomHandler(
	roomNameValidator *RoomNameValidator,
	rooms *fanout.Rooms,
	dispatcher *fanout.Dispatcher,
) *LeaveRoomHandler {
	return &LeaveRoomHandler{
		roomNameValidator,
		rooms,
		dispatcher,
	}
}

func (h *LeaveRoomHandler) Handle(ctx context.Context, req LeaveRoomRequest) (*fanout.Envelope, error) {
	err := h.roomNameValidator.Validate(req.Room)
	if err != nil {
		return nil, err
	}

	conn, ok := fanout.ConnectionFromContext(ctx)
	if !ok {
		return nil, errors.New("connection not found in context")
	}

	if !h.rooms.IsMember(conn.UserID, req.Room) {
		return nil, nil
	}

	h.rooms.Leave(conn.UserID, req.Room)

	h.dispatcher.SendToRoom(req.Room,
		fanout.NewEnvelope(fanout.EventUserLeftRoom, RoomPresenceData{
			Room:   req.Room,
			UserID: conn.UserID,
		}),
		conn.UserID)

	return nil, nil
}
