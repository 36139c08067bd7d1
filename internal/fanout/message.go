package fanout

import "time"

type EventType string

const (
	EventConnectionEstablished EventType = "connection_established"
	EventPong                  EventType = "pong"
	EventSubscribed            EventType = "subscribed"
	EventUnsubscribed          EventType = "unsubscribed"
	EventUserJoinedRoom        EventType = "user_joined_room"
	EventUserLeftRoom          EventType = "user_left_room"
	EventChatMessage           EventType = "chat_message"
	EventNotification          EventType = "notification"
	EventTradeUpdate           EventType = "trade_update"
	EventTransactionUpdate     EventType = "transaction_update"
	EventKYCUpdate             EventType = "kyc_update"
	EventWalletUpdate          EventType = "wallet_update"
	EventSystemAnnouncement    EventType = "system_announcement"
	EventAdminNotification     EventType = "admin_notification"
	EventAdminAction           EventType = "admin_action"
	EventRooms                 EventType = "rooms"
	EventRoomUsers             EventType = "room_users"
	EventError                 EventType = "error"
)

// Envelope is the outbound wire format. Delivery is fire-and-forget;
// an Envelope is built per publish call and never persisted.
type Envelope struct {
	Type      EventType `json:"type"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEnvelope(eventType EventType, data any) Envelope {
	return Envelope{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now(),
	}
}

type ErrorData struct {
	Message string `json:"message"`
}

func NewErrorEnvelope(message string) Envelope {
	return NewEnvelope(EventError, ErrorData{Message: message})
}
