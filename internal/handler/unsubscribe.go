package handler

import (
	"context"
	"errors"

	"github.com/coinflux/realtime/internal/fanout"
)

type UnsubscribeRequest struct {
	Channel string `json:"channel"`
}

type UnsubscribeData struct {
	Channel string `json:"channel"`
}

type UnsubscribeHandlerInterface interface {
	Handle(ctx context.Context, req UnsubscribeRequest) (*fanout.Envelope, error)
}

type UnsubscribeHandler struct {
	roomNameValidator *RoomNameValidator
}

func NewUnsubscribeHandler(roomNameValidator *RoomNameValidator) *UnsubscribeHandler {
	return &UnsubscribeHandler{
		roomNameValidator,
	}
}

func (h *UnsubscribeHandler) Handle(ctx context.Context, req UnsubscribeRequest) (*fanout.Envelope, error) {
	err := h.roomNameValidator.Validate(req.Channel)
	if err != nil {
		return nil, err
	}

	conn, ok := fanout.ConnectionFromContext(ctx)
	if !ok {
		return nil, errors.New("connection not found in context")
	}

	conn.Unsubscribe(req.Channel)

	envelope := fanout.NewEnvelope(fanout.EventUnsubscribed, UnsubscribeData{
		Channel: req.Channel,
	})

	return &envelope, nil
}
