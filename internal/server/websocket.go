package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coinflux/realtime/internal/auth"
	"github.com/coinflux/realtime/internal/fanout"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	handshakeWait  = 10 * time.Second
	maxMessageSize = 4096
)

// WebSocketServer owns the connection lifecycle: upgrade, handshake
// authentication, registration with default rooms, the read/write pumps
// and exactly-once cleanup on close or error.
type WebSocketServer struct {
	logger        *zap.Logger
	upgrader      *websocket.Upgrader
	authenticator *auth.Authenticator
	dispatcher    *fanout.Dispatcher
	router        *Router
}

func NewWebSocketServer(
	logger *zap.Logger,
	upgrader *websocket.Upgrader,
	authenticator *auth.Authenticator,
	dispatcher *fanout.Dispatcher,
	router *Router,
) *WebSocketServer {
	return &WebSocketServer{
		logger,
		upgrader,
		authenticator,
		dispatcher,
		router,
	}
}

func (s *WebSocketServer) Register(router *mux.Router) {
	router.HandleFunc("/ws", s.handleConnection)
}

type connectionEstablishedData struct {
	ConnectionId string `json:"connectionId"`
	UserID       string `json:"userId"`
	IsAdmin      bool   `json:"isAdmin"`
}

func (s *WebSocketServer) handleConnection(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)

	socket, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	// Authentication happens once, during the handshake. All failure
	// modes collapse to a single close code so nothing is leaked.
	identity, err := s.authenticator.Authenticate(token)
	if err != nil {
		s.logger.Warn("websocket handshake rejected", zap.Error(err))
		s.reject(socket)
		return
	}

	conn := fanout.NewConnection(identity.UserID, identity.IsAdmin)

	if err := s.dispatcher.Connect(conn); err != nil {
		s.logger.Error("failed to register connection", zap.Error(err))
		s.reject(socket)
		return
	}

	s.dispatcher.SendToConn(conn.ID, fanout.NewEnvelope(
		fanout.EventConnectionEstablished,
		connectionEstablishedData{
			ConnectionId: conn.ID,
			UserID:       conn.UserID,
			IsAdmin:      conn.IsAdmin,
		}))

	go s.writePump(socket, conn)
	s.readPump(r.Context(), socket, conn)
}

func (s *WebSocketServer) reject(socket *websocket.Conn) {
	deadline := time.Now().Add(handshakeWait)
	message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "policy violation")

	socket.WriteControl(websocket.CloseMessage, message, deadline)
	socket.Close()
}

// readPump processes inbound frames until the transport closes. It is
// the only reader; cleanup runs exactly once via the deferred
// Disconnect, which is idempotent against the writePump's own teardown.
func (s *WebSocketServer) readPump(ctx context.Context, socket *websocket.Conn, conn *fanout.Connection) {
	defer func() {
		s.dispatcher.Disconnect(conn.ID)
		socket.Close()
	}()

	socket.SetReadLimit(maxMessageSize)
	socket.SetReadDeadline(time.Now().Add(pongWait))
	socket.SetPongHandler(func(string) error {
		socket.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	ctx = fanout.WithConnection(ctx, conn)

	for {
		_, payload, err := socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read error",
					zap.String("connectionId", conn.ID),
					zap.Error(err))
			}
			return
		}

		var inbound Inbound
		if err := json.Unmarshal(payload, &inbound); err != nil || inbound.Type == "" {
			s.dispatcher.SendToConn(conn.ID, fanout.NewErrorEnvelope("Invalid message format"))
			continue
		}

		if reply := s.router.Route(ctx, inbound); reply != nil {
			s.dispatcher.SendToConn(conn.ID, *reply)
		}
	}
}

// writePump is the only writer on the socket, preserving per-connection
// FIFO. It drains the send channel and closes the socket when the
// registry closes the channel.
func (s *WebSocketServer) writePump(socket *websocket.Conn, conn *fanout.Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.dispatcher.Disconnect(conn.ID)
		socket.Close()
	}()

	for {
		select {
		case envelope, ok := <-conn.Send:
			if !ok {
				socket.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeWait))
				return
			}

			socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := socket.WriteJSON(envelope); err != nil {
				s.logger.Warn("websocket write failed",
					zap.String("connectionId", conn.ID),
					zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := socket.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func bearerToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	authorization := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(authorization, "Bearer "); ok {
		return after
	}

	return ""
}
