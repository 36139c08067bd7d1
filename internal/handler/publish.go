package handler

import (
	"context"
	"errors"
	"time"

	"github.com/coinflux/realtime/internal/fanout"
	"github.com/coinflux/realtime/internal/ierr"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	TargetUser      = "user"
	TargetAll       = "all"
	TargetAdmins    = "admins"
	TargetNonAdmins = "non_admins"
	TargetRoom      = "room"
)

// PublishRequest is the integration point for the rest of the platform:
// application code calls this after committing a database mutation. The
// push is a best-effort notification, never a transactional guarantee.
type PublishRequest struct {
	Target  string   `json:"target"`
	Type    string   `json:"type"`
	Payload any      `json:"payload"`
	UserID  string   `json:"userId,omitempty"`
	Room    string   `json:"room,omitempty"`
	Exclude []string `json:"exclude,omitempty"`
}

type PublishResponse struct {
	MessageId string    `json:"messageId"`
	Timestamp time.Time `json:"timestamp"`
}

type PublishHandlerInterface interface {
	Handle(ctx context.Context, req PublishRequest) (PublishResponse, error)
}

type PublishHandler struct {
	roomNameValidator *RoomNameValidator
	dispatcher        *fanout.Dispatcher
}

func NewPublishHandler(
	roomNameValidator *RoomNameValidator,
	dispatcher *fanout.Dispatcher,
) *PublishHandler {
	return &PublishHandler{
		roomNameValidator,
		dispatcher,
	}
}

func (h *PublishHandler) Handle(ctx context.Context, req PublishRequest) (PublishResponse, error) {
	if req.Type == "" {
		return PublishResponse{}, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("missing event type"))
	}

	envelope := fanout.NewEnvelope(fanout.EventType(req.Type), req.Payload)

	switch req.Target {
	case TargetUser:
		if req.UserID == "" {
			return PublishResponse{}, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("missing userId for user target"))
		}
		h.dispatcher.SendToUser(req.UserID, envelope)
	case TargetAll:
		h.dispatcher.SendToAll(envelope)
	case TargetAdmins:
		h.dispatcher.SendToAdmins(envelope)
	case TargetNonAdmins:
		h.dispatcher.SendToNonAdmins(envelope)
	case TargetRoom:
		if err := h.roomNameValidator.Validate(req.Room); err != nil {
			return PublishResponse{}, err
		}
		h.dispatcher.SendToRoom(req.Room, envelope, req.Exclude...)
	default:
		return PublishResponse{}, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("unknown publish target: "+req.Target))
	}

	return PublishResponse{
		MessageId: gonanoid.Must(),
		Timestamp: envelope.Timestamp,
	}, nil
}
