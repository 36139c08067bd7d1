package handler

import (
	"context"
	"testing"

	"github.com/coinflux/realtime/internal/fanout"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func drain(conn *fanout.Connection) []fanout.Envelope {
	var envelopes []fanout.Envelope
	for {
		select {
		case envelope := <-conn.Send:
			envelopes = append(envelopes, envelope)
		default:
			return envelopes
		}
	}
}

func chatData(t *testing.T, envelope fanout.Envelope) ChatMessageData {
	t.Helper()

	data, ok := envelope.Data.(ChatMessageData)
	assert.True(t, ok)

	return data
}

func newChatFixture(t *testing.T) (*ChatMessageHandler, *fanout.Dispatcher, *fanout.Rooms) {
	t.Helper()

	logger := zap.NewNop()
	registry := fanout.NewRegistry(logger)
	rooms := fanout.NewRooms(logger)
	dispatcher := fanout.NewDispatcher(logger, registry, rooms)
	chatHandler := NewChatMessageHandler(logger, NewRoomNameValidator(), rooms, dispatcher, nil)

	return chatHandler, dispatcher, rooms
}

func TestChatMessageHandler_DeliversToRoom(t *testing.T) {
	chatHandler, dispatcher, rooms := newChatFixture(t)

	sender := fanout.NewConnection("u1", false)
	member := fanout.NewConnection("u2", false)
	outsider := fanout.NewConnection("u3", false)
	assert.NoError(t, dispatcher.Connect(sender))
	assert.NoError(t, dispatcher.Connect(member))
	assert.NoError(t, dispatcher.Connect(outsider))

	rooms.Join("u1", "trading-btc")
	rooms.Join("u2", "trading-btc")

	ctx := fanout.WithConnection(context.Background(), sender)
	reply, err := chatHandler.Handle(ctx, ChatMessageRequest{
		Room:    "trading-btc",
		Message: "to the moon",
	})
	assert.NoError(t, err)
	assert.Nil(t, reply)

	senderEnvelopes := drain(sender)
	assert.Len(t, senderEnvelopes, 1)
	assert.Equal(t, fanout.EventChatMessage, senderEnvelopes[0].Type)

	data := chatData(t, senderEnvelopes[0])
	assert.Equal(t, "u1", data.SenderID)
	assert.Equal(t, "trading-btc", data.Room)
	assert.Equal(t, "to the moon", data.Message)

	assert.Len(t, drain(member), 1)
	assert.Empty(t, drain(outsider))
}

func TestChatMessageHandler_NonMemberDroppedSilently(t *testing.T) {
	chatHandler, dispatcher, rooms := newChatFixture(t)

	sender := fanout.NewConnection("u1", false)
	member := fanout.NewConnection("u2", false)
	assert.NoError(t, dispatcher.Connect(sender))
	assert.NoError(t, dispatcher.Connect(member))

	rooms.Join("u2", "trading-btc")

	ctx := fanout.WithConnection(context.Background(), sender)
	reply, err := chatHandler.Handle(ctx, ChatMessageRequest{
		Room:    "trading-btc",
		Message: "let me in",
	})

	assert.NoError(t, err)
	assert.Nil(t, reply)
	assert.Empty(t, drain(sender))
	assert.Empty(t, drain(member))
}

func TestChatMessageHandler_AdminGeneralCrossPost(t *testing.T) {
	chatHandler, dispatcher, _ := newChatFixture(t)

	admin := fanout.NewConnection("a1", true)
	user := fanout.NewConnection("u2", false)
	assert.NoError(t, dispatcher.Connect(admin))
	assert.NoError(t, dispatcher.Connect(user))

	ctx := fanout.WithConnection(context.Background(), admin)
	_, err := chatHandler.Handle(ctx, ChatMessageRequest{
		Room:    fanout.RoomGeneral,
		Message: "hi",
	})
	assert.NoError(t, err)

	// The user, a general member only, sees the plain message.
	userEnvelopes := drain(user)
	assert.Len(t, userEnvelopes, 1)
	userData := chatData(t, userEnvelopes[0])
	assert.Equal(t, fanout.RoomGeneral, userData.Room)
	assert.False(t, userData.Notification)

	// The admin is in both rooms: the plain message plus the mirrored
	// notification tagged with its origin.
	adminEnvelopes := drain(admin)
	assert.Len(t, adminEnvelopes, 2)

	plain := chatData(t, adminEnvelopes[0])
	assert.Equal(t, fanout.RoomGeneral, plain.Room)
	assert.False(t, plain.Notification)

	mirrored := chatData(t, adminEnvelopes[1])
	assert.Equal(t, fanout.RoomAdmin, mirrored.Room)
	assert.True(t, mirrored.Notification)
	assert.Equal(t, fanout.RoomGeneral, mirrored.OriginalRoom)
	assert.Equal(t, "hi", mirrored.Message)
}

func TestChatMessageHandler_UserGeneralNoCrossPost(t *testing.T) {
	chatHandler, dispatcher, _ := newChatFixture(t)

	admin := fanout.NewConnection("a1", true)
	user := fanout.NewConnection("u2", false)
	assert.NoError(t, dispatcher.Connect(admin))
	assert.NoError(t, dispatcher.Connect(user))

	ctx := fanout.WithConnection(context.Background(), user)
	_, err := chatHandler.Handle(ctx, ChatMessageRequest{
		Room:    fanout.RoomGeneral,
		Message: "hello",
	})
	assert.NoError(t, err)

	assert.Len(t, drain(user), 1)
	assert.Len(t, drain(admin), 1)
}
