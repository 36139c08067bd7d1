package handler

import (
	"time"

	"github.com/coinflux/realtime/internal/fanout"
)

type PongData struct {
	ServerTime time.Time `json:"serverTime"`
}

type PingHandlerInterface interface {
	Handle() fanout.Envelope
}

type PingHandler struct{}

func NewPingHandler() *PingHandler {
	return &PingHandler{}
}

func (h *PingHandler) Handle() fanout.Envelope {
	return fanout.NewEnvelope(fanout.EventPong, PongData{
		ServerTime: time.Now(),
	})
}
