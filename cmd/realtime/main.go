package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/coinflux/realtime/internal/auth"
	"github.com/coinflux/realtime/internal/fanout"
	"github.com/coinflux/realtime/internal/handler"
	"github.com/coinflux/realtime/internal/persistence"
	"github.com/coinflux/realtime/internal/persistence/mongodb"
	"github.com/coinflux/realtime/internal/server"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

type App struct {
	logger          *zap.Logger
	settings        Settings
	rooms           *fanout.Rooms
	websocketServer *server.WebSocketServer
	restServer      *server.RESTServer
}

func NewApp(logger *zap.Logger, settings Settings, persistenceEngine persistence.Engine) *App {
	originChecker := server.NewOriginChecker(settings.AllowedOrigins)
	websocketUpgrader := &websocket.Upgrader{
		ReadBufferSize:    1024,
		WriteBufferSize:   1024,
		CheckOrigin:       originChecker.Check,
		EnableCompression: true,
	}

	authenticator := auth.NewAuthenticator(settings.JWTSecret, settings.APIKeys)

	registry := fanout.NewRegistry(logger)
	rooms := fanout.NewRooms(logger)
	dispatcher := fanout.NewDispatcher(logger, registry, rooms)

	roomNameValidator := handler.NewRoomNameValidator()
	pingHandler := handler.NewPingHandler()
	subscribeHandler := handler.NewSubscribeHandler(roomNameValidator)
	unsubscribeHandler := handler.NewUnsubscribeHandler(roomNameValidator)
	joinRoomHandler := handler.NewJoinRoomHandler(roomNameValidator, rooms, dispatcher)
	leaveRoomHandler := handler.NewLeaveRoomHandler(roomNameValidator, rooms, dispatcher)
	chatMessageHandler := handler.NewChatMessageHandler(logger, roomNameValidator, rooms, dispatcher, persistenceEngine)
	getRoomsHandler := handler.NewGetRoomsHandler(rooms)
	getRoomUsersHandler := handler.NewGetRoomUsersHandler(roomNameValidator, rooms)
	publishHandler := handler.NewPublishHandler(roomNameValidator, dispatcher)

	router := server.NewRouter(
		logger,
		pingHandler,
		subscribeHandler,
		unsubscribeHandler,
		joinRoomHandler,
		leaveRoomHandler,
		chatMessageHandler,
		getRoomsHandler,
		getRoomUsersHandler,
	)

	websocketServer := server.NewWebSocketServer(
		logger,
		websocketUpgrader,
		authenticator,
		dispatcher,
		router,
	)
	restServer := server.NewRESTServer(
		logger,
		authenticator,
		publishHandler,
		persistenceEngine,
		dispatcher,
	)

	return &App{
		logger,
		settings,
		rooms,
		websocketServer,
		restServer,
	}
}

func (a *App) run(ctx context.Context) {
	notifyCtx, notifyCtxCancel := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer notifyCtxCancel()

	a.startRoomSweeper(notifyCtx)

	address := fmt.Sprintf("0.0.0.0:%d", a.settings.Port)

	router := mux.NewRouter().
		PathPrefix(a.settings.BasePath).
		Subrouter()

	a.websocketServer.Register(router)
	a.restServer.Register(router)

	httpServer := &http.Server{
		Addr:    address,
		Handler: router,
	}

	a.logger.Info("starting http server",
		zap.String("address", address))

	go func() {
		err := httpServer.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("failed to start http server",
				zap.Error(err))
		}
	}()

	<-notifyCtx.Done()

	a.logger.Info("stopping http server")

	shutdownCtx, shutdownCtxCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCtxCancel()

	err := httpServer.Shutdown(shutdownCtx)
	if err != nil {
		a.logger.Fatal("http server shutdown failed",
			zap.Error(err))
	}

	a.logger.Info("http server stopped")
}

func (a *App) startRoomSweeper(ctx context.Context) {
	interval := time.Duration(a.settings.RoomSweepIntervalS) * time.Second
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				a.rooms.Sweep()
			case <-ctx.Done():
				return
			}
		}
	}()
}

func setupPersistence(ctx context.Context, logger *zap.Logger, settings Settings) persistence.Engine {
	if settings.MongoURI == "" {
		logger.Info("mongo uri not configured, chat history disabled")
		return nil
	}

	client, err := mongo.Connect(options.Client().ApplyURI(settings.MongoURI))
	if err != nil {
		logger.Fatal("failed to connect to mongodb", zap.Error(err))
	}

	engine := mongodb.NewPersistenceEngine(client)

	setupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := engine.Setup(setupCtx); err != nil {
		logger.Fatal("failed to set up persistence indexes", zap.Error(err))
	}

	return engine
}

func main() {
	ctx := context.Background()

	var settings Settings
	_, err := env.UnmarshalFromEnviron(&settings)
	if err != nil {
		panic(err)
	}

	logger, err := buildZapLogger(settings.LogEncoding)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	persistenceEngine := setupPersistence(ctx, logger, settings)

	app := NewApp(logger, settings, persistenceEngine)
	app.run(ctx)
}
