package persistence

import (
	"context"
	"time"
)

// Engine stores chat history. Storage is best effort: delivery never
// waits on or depends on a save.
type Engine interface {
	Setup(ctx context.Context) error
	Save(ctx context.Context, request SaveRequest) (ChatRecord, error)
	List(ctx context.Context, room string, lastSeenId string) ([]ChatRecord, error)
}

type SaveRequest struct {
	Room     string
	SenderID string
	Body     string
}

type ChatRecord struct {
	Id         string    `json:"id"`
	CreateTime time.Time `json:"createTime"`
	Room       string    `json:"room"`
	SenderID   string    `json:"senderId"`
	Body       string    `json:"body"`
}
