package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/coinflux/realtime/internal/auth"
	"github.com/coinflux/realtime/internal/handler"
	"github.com/coinflux/realtime/internal/ierr"
	"github.com/coinflux/realtime/internal/persistence"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// RESTServer exposes the application-facing publish API plus chat
// history and health. The surrounding platform calls publish after it
// has committed its own database mutation.
type RESTServer struct {
	logger            *zap.Logger
	authenticator     *auth.Authenticator
	publishHandler    handler.PublishHandlerInterface
	persistenceEngine persistence.Engine
	stats             StatsProvider
}

type StatsProvider interface {
	ConnectionCount() int
	RoomCount() int
}

func NewRESTServer(
	logger *zap.Logger,
	authenticator *auth.Authenticator,
	publishHandler handler.PublishHandlerInterface,
	persistenceEngine persistence.Engine,
	stats StatsProvider,
) *RESTServer {
	return &RESTServer{
		logger,
		authenticator,
		publishHandler,
		persistenceEngine,
		stats,
	}
}

func (s *RESTServer) Register(router *mux.Router) {
	router.HandleFunc("/publish", s.handlePublish).Methods("POST")
	router.HandleFunc("/rooms/{room}/history", s.handleHistory).Methods("GET")
	router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
}

func (s *RESTServer) handlePublish(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var publishRequest handler.PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&publishRequest); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	publishResponse, err := s.publishHandler.Handle(r.Context(), publishRequest)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, publishResponse)
}

func (s *RESTServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if s.persistenceEngine == nil {
		http.Error(w, "chat history is not enabled", http.StatusServiceUnavailable)
		return
	}

	room := mux.Vars(r)["room"]
	lastSeenId := r.URL.Query().Get("lastSeenId")

	records, err := s.persistenceEngine.List(r.Context(), room, lastSeenId)
	if err != nil {
		s.logger.Error("failed to list chat history",
			zap.String("room", room),
			zap.Error(err))
		http.Error(w, "failed to list chat history", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, records)
}

type healthResponse struct {
	Connections int `json:"connections"`
	Rooms       int `json:"rooms"`
}

func (s *RESTServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, healthResponse{
		Connections: s.stats.ConnectionCount(),
		Rooms:       s.stats.RoomCount(),
	})
}

func (s *RESTServer) authorized(r *http.Request) bool {
	authorization := r.Header.Get("Authorization")
	apiKey, ok := strings.CutPrefix(authorization, "Bearer ")
	if !ok {
		return false
	}

	return s.authenticator.AuthenticateAPIKey(apiKey) == nil
}

func (s *RESTServer) writeError(w http.ResponseWriter, err error) {
	var coded ierr.Error
	if errors.As(err, &coded) {
		switch coded.Code {
		case ierr.ErrorCodeInvalidArgument:
			http.Error(w, coded.Message, http.StatusBadRequest)
			return
		case ierr.ErrorCodeNotFound:
			http.Error(w, coded.Message, http.StatusNotFound)
			return
		case ierr.ErrorCodeUnauthenticated:
			http.Error(w, coded.Message, http.StatusUnauthorized)
			return
		case ierr.ErrorCodePermissionDenied:
			http.Error(w, coded.Message, http.StatusForbidden)
			return
		case ierr.ErrorCodeUnavailable:
			http.Error(w, coded.Message, http.StatusServiceUnavailable)
			return
		}
	}

	s.logger.Error("failed to handle publish request", zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func (s *RESTServer) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
