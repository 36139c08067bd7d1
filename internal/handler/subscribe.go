package handler

import (
	"context"
	"errors"

	"github.com/coinflux/realtime/internal/fanout"
)

type SubscribeRequest struct {
	Channel string `json:"channel"`
}

type SubscribeData struct {
	Channel string `json:"channel"`
}

type SubscribeHandlerInterface interface {
	Handle(ctx context.Context, req SubscribeRequest) (*fanout.Envelope, error)
}

// SubscribeHandler maintains the per-connection advisory topic set used
// for market-data filtering. Subscriptions are not rooms; nothing is
// enforced against a publish source here.
type SubscribeHandler struct {
	roomNameValidator *RoomNameValidator
}

func NewSubscribeHandler(roomNameValidator *RoomNameValidator) *SubscribeHandler {
	return &SubscribeHandler{
		roomNameValidator,
	}
}

func (h *SubscribeHandler) Handle(ctx context.Context, req SubscribeRequest) (*fanout.Envelope, error) {
	err := h.roomNameValidator.Validate(req.Channel)
	if err != nil {
		return nil, err
	}

	conn, ok := fanout.ConnectionFromContext(ctx)
	if !ok {
		return nil, errors.New("connection not found in context")
	}

	conn.Subscribe(req.Channel)

	envelope := fanout.NewEnvelope(fanout.EventSubscribed, SubscribeData{
		Channel: req.Channel,
	})

	return &envelope, nil
}
