package handler

import (
	"context"
	"errors"

	"github.com/coinflux/realtime/internal/fanout"
	"github.com/coinflux/realtime/internal/ierr"
)

type RoomsData struct {
	Rooms []string `json:"rooms"`
}

type GetRoomsHandlerInterface interface {
	Handle(ctx context.Context) (*fanout.Envelope, error)
}

// GetRoomsHandler answers with the rooms the caller has joined.
type GetRoomsHandler struct {
	rooms *fanout.Rooms
}

func NewGetRoomsHandler(rooms *fanout.Rooms) *GetRoomsHandler {
	return &GetRoomsHandler{
		rooms,
	}
}

func (h *GetRoomsHandler) Handle(ctx context.Context) (*fanout.Envelope, error) {
	conn, ok := fanout.ConnectionFromContext(ctx)
	if !ok {
		return nil, errors.New("connection not found in context")
	}

	envelope := fanout.NewEnvelope(fanout.EventRooms, RoomsData{
		Rooms: h.rooms.RoomsOf(conn.UserID),
	})

	return &envelope, nil
}

type GetRoomUsersRequest struct {
	Room string `json:"room"`
}

type RoomUsersData struct {
	Room  string   `json:"room"`
	Users []string `json:"users"`
}

type GetRoomUsersHandlerInterface interface {
	Handle(ctx context.Context, req GetRoomUsersRequest) (*fanout.Envelope, error)
}

// GetRoomUsersHandler lists a room's members. Rosters are visible to the
// room's own members; admins may inspect any room.
type GetRoomUsersHandler struct {
	roomNameValidator *RoomNameValidator
	rooms             *fanout.Rooms
}

func NewGetRoomUsersHandler(
	roomNameValidator *RoomNameValidator,
	rooms *fanout.Rooms,
) *GetRoomUsersHandler {
	return &GetRoomUsersHandler{
		roomNameValidator,
		rooms,
	}
}

func (h *GetRoomUsersHandler) Handle(ctx context.Context, req GetRoomUsersRequest) (*fanout.Envelope, error) {
	err := h.roomNameValidator.Validate(req.Room)
	if err != nil {
		return nil, err
	}

	conn, ok := fanout.ConnectionFromContext(ctx)
	if !ok {
		return nil, errors.New("connection not found in context")
	}

	if !conn.IsAdmin && !h.rooms.IsMember(conn.UserID, req.Room) {
		return nil, ierr.New(ierr.ErrorCodePermissionDenied, errors.New("not a member of this room"))
	}

	envelope := fanout.NewEnvelope(fanout.EventRoomUsers, RoomUsersData{
		Room:  req.Room,
		Users: h.rooms.MembersOf(req.Room),
	})

	return &envelope, nil
}
