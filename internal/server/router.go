package server

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/coinflux/realtime/internal/fanout"
	"github.com/coinflux/realtime/internal/handler"
	"github.com/coinflux/realtime/internal/ierr"
	"go.uber.org/zap"
)

// Inbound is the client-to-server envelope.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Router dispatches inbound envelopes to their handlers. Every failure
// surfaces as an in-band error envelope; routing never terminates the
// connection.
type Router struct {
	logger *zap.Logger

	pingHandler         handler.PingHandlerInterface
	subscribeHandler    handler.SubscribeHandlerInterface
	unsubscribeHandler  handler.UnsubscribeHandlerInterface
	joinRoomHandler     handler.JoinRoomHandlerInterface
	leaveRoomHandler    handler.LeaveRoomHandlerInterface
	chatMessageHandler  handler.ChatMessageHandlerInterface
	getRoomsHandler     handler.GetRoomsHandlerInterface
	getRoomUsersHandler handler.GetRoomUsersHandlerInterface
}

func NewRouter(
	logger *zap.Logger,
	pingHandler handler.PingHandlerInterface,
	subscribeHandler handler.SubscribeHandlerInterface,
	unsubscribeHandler handler.UnsubscribeHandlerInterface,
	joinRoomHandler handler.JoinRoomHandlerInterface,
	leaveRoomHandler handler.LeaveRoomHandlerInterface,
	chatMessageHandler handler.ChatMessageHandlerInterface,
	getRoomsHandler handler.GetRoomsHandlerInterface,
	getRoomUsersHandler handler.GetRoomUsersHandlerInterface,
) *Router {
	return &Router{
		logger,
		pingHandler,
		subscribeHandler,
		unsubscribeHandler,
		joinRoomHandler,
		leaveRoomHandler,
		chatMessageHandler,
		getRoomsHandler,
		getRoomUsersHandler,
	}
}

// Route handles one inbound envelope and returns the direct reply for
// the sending connection, or nil when the operation has none.
func (r *Router) Route(ctx context.Context, inbound Inbound) *fanout.Envelope {
	reply, err := r.handle(ctx, inbound)
	if err != nil {
		errorEnvelope := r.mapError(inbound, err)

		return &errorEnvelope
	}

	return reply
}

func (r *Router) handle(ctx context.Context, inbound Inbound) (*fanout.Envelope, error) {
	switch inbound.Type {
	case "ping":
		reply := r.pingHandler.Handle()
		return &reply, nil
	case "subscribe":
		var req handler.SubscribeRequest
		if err := decodeData(inbound.Data, &req); err != nil {
			return nil, err
		}
		return r.subscribeHandler.Handle(ctx, req)
	case "unsubscribe":
		var req handler.UnsubscribeRequest
		if err := decodeData(inbound.Data, &req); err != nil {
			return nil, err
		}
		return r.unsubscribeHandler.Handle(ctx, req)
	case "join_room":
		var req handler.JoinRoomRequest
		if err := decodeData(inbound.Data, &req); err != nil {
			return nil, err
		}
		return r.joinRoomHandler.Handle(ctx, req)
	case "leave_room":
		var req handler.LeaveRoomRequest
		if err := decodeData(inbound.Data, &req); err != nil {
			return nil, err
		}
		return r.leaveRoomHandler.Handle(ctx, req)
	case "chat_message":
		var req handler.ChatMessageRequest
		if err := decodeData(inbound.Data, &req); err != nil {
			return nil, err
		}
		return r.chatMessageHandler.Handle(ctx, req)
	case "get_rooms":
		return r.getRoomsHandler.Handle(ctx)
	case "get_room_users":
		var req handler.GetRoomUsersRequest
		if err := decodeData(inbound.Data, &req); err != nil {
			return nil, err
		}
		return r.getRoomUsersHandler.Handle(ctx, req)
	default:
		return nil, ierr.New(ierr.ErrorCodeNotFound, errors.New("unknown message type: "+inbound.Type))
	}
}

func (r *Router) mapError(inbound Inbound, err error) fanout.Envelope {
	var coded ierr.Error
	if errors.As(err, &coded) {
		return fanout.NewErrorEnvelope(coded.Message)
	}

	r.logger.Error("error in message handler",
		zap.String("type", inbound.Type),
		zap.Error(err))

	return fanout.NewErrorEnvelope("internal error")
}

func decodeData(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("missing data"))
	}

	if err := json.Unmarshal(data, v); err != nil {
		return ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("invalid data: "+err.Error()))
	}

	return nil
}
