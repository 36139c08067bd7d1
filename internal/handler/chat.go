package handler

import (
	"context"
	"errors"

	"github.com/coinflux/realtime/internal/fanout"
	"github.com/coinflux/realtime/internal/persistence"
	"go.uber.org/zap"
)

type ChatMessageRequest struct {
	Room    string `json:"room"`
	Message string `json:"message"`
}

type ChatMessageData struct {
	Room         string `json:"room"`
	SenderID     string `json:"senderId"`
	SenderRole   string `json:"senderRole"`
	Message      string `json:"message"`
	Notification bool   `json:"notification,omitempty"`
	OriginalRoom string `json:"originalRoom,omitempty"`
}

type ChatMessageHandlerInterface interface {
	Handle(ctx context.Context, req ChatMessageRequest) (*fanout.Envelope, error)
}

type ChatMessageHandler struct {
	logger            *zap.Logger
	roomNameValidator *RoomNameValidator
	rooms             *fanout.Rooms
	dispatcher        *fanout.Dispatcher
	persistenceEngine persistence.Engine
}

func NewChatMessageHandler(
	logger *zap.Logger,
	roomNameValidator *RoomNameValidator,
	rooms *fanout.Rooms,
	dispatcher *fanout.Dispatcher,
	persistenceEngine persistence.Engine,
) *ChatMessageHandler {
	return &ChatMessageHandler{
		logger,
		roomNameValidator,
		rooms,
		dispatcher,
		persistenceEngine,
	}
}

func (h *ChatMessageHandler) Handle(ctx context.Context, req ChatMessageRequest) (*fanout.Envelope, error) {
	err := h.roomNameValidator.Validate(req.Room)
	if err != nil {
		return nil, err
	}

	conn, ok := fanout.ConnectionFromContext(ctx)
	if !ok {
		return nil, errors.New("connection not found in context")
	}

	// Non-members are dropped silently, not answered with an error.
	if !h.rooms.IsMember(conn.UserID, req.Room) {
		return nil, nil
	}

	role := "user"
	if conn.IsAdmin {
		role = "admin"
	}

	h.dispatcher.SendToRoom(req.Room,
		fanout.NewEnvelope(fanout.EventChatMessage, ChatMessageData{
			Room:       req.Room,
			SenderID:   conn.UserID,
			SenderRole: role,
			Message:    req.Message,
		}))

	// Admin chatter in general is mirrored into the admin room as a
	// tagged notification.
	if req.Room == fanout.RoomGeneral && conn.IsAdmin {
		h.dispatcher.SendToRoom(fanout.RoomAdmin,
			fanout.NewEnvelope(fanout.EventChatMessage, ChatMessageData{
				Room:         fanout.RoomAdmin,
				SenderID:     conn.UserID,
				SenderRole:   role,
				Message:      req.Message,
				Notification: true,
				OriginalRoom: fanout.RoomGeneral,
			}))
	}

	if h.persistenceEngine != nil {
		_, err := h.persistenceEngine.Save(ctx, persistence.SaveRequest{
			Room:     req.Room,
			SenderID: conn.UserID,
			Body:     req.Message,
		})
		if err != nil {
			h.logger.Warn("failed to persist chat message",
				zap.String("room", req.Room),
				zap.Error(err))
		}
	}

	return nil, nil
}
