package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coinflux/realtime/internal/auth"
	"github.com/coinflux/realtime/internal/fanout"
	"github.com/coinflux/realtime/internal/handler"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRESTServer(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	registry := fanout.NewRegistry(logger)
	rooms := fanout.NewRooms(logger)
	dispatcher := fanout.NewDispatcher(logger, registry, rooms)
	authenticator := auth.NewAuthenticator("test-secret", []string{"test-api-key"})
	publishHandler := handler.NewPublishHandler(handler.NewRoomNameValidator(), dispatcher)

	restServer := NewRESTServer(logger, authenticator, publishHandler, nil, dispatcher)

	router := mux.NewRouter()
	restServer.Register(router)

	server := httptest.NewServer(router)
	defer server.Close()

	conn := fanout.NewConnection("u1", false)
	assert.NoError(t, dispatcher.Connect(conn))

	post := func(t *testing.T, apiKey string, body string) *http.Response {
		t.Helper()

		req, _ := http.NewRequest("POST", server.URL+"/publish", bytes.NewBufferString(body))
		if apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+apiKey)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := http.DefaultClient.Do(req)
		assert.NoError(t, err)

		return resp
	}

	t.Run("publish to user", func(t *testing.T) {
		resp := post(t, "test-api-key",
			`{"target":"user","userId":"u1","type":"trade_update","payload":{"orderId":"o-1","status":"filled"}}`)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var publishResponse handler.PublishResponse
		assert.NoError(t, json.NewDecoder(resp.Body).Decode(&publishResponse))
		assert.NotEmpty(t, publishResponse.MessageId)

		select {
		case envelope := <-conn.Send:
			assert.Equal(t, fanout.EventTradeUpdate, envelope.Type)
		default:
			t.Fatal("expected a delivery to u1")
		}
	})

	t.Run("invalid api key", func(t *testing.T) {
		resp := post(t, "invalid-api-key",
			`{"target":"all","type":"notification","payload":"x"}`)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("missing api key", func(t *testing.T) {
		resp := post(t, "",
			`{"target":"all","type":"notification","payload":"x"}`)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("unknown target", func(t *testing.T) {
		resp := post(t, "test-api-key",
			`{"target":"nobody","type":"notification"}`)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("invalid body", func(t *testing.T) {
		resp := post(t, "test-api-key", `{`)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("history disabled", func(t *testing.T) {
		req, _ := http.NewRequest("GET", server.URL+"/rooms/general/history", nil)
		req.Header.Set("Authorization", "Bearer test-api-key")

		resp, err := http.DefaultClient.Do(req)
		assert.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("healthz", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/healthz")
		assert.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var health healthResponse
		assert.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
		assert.Equal(t, 1, health.Connections)
		assert.GreaterOrEqual(t, health.Rooms, 1)
	})
}
