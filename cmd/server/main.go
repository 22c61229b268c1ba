// cmd/server/main.go
package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/glowrace/relay/internal/engine"
	"github.com/glowrace/relay/internal/handlers"
	"github.com/glowrace/relay/internal/middleware"
	"github.com/glowrace/relay/internal/room"
	"github.com/glowrace/relay/internal/store"
)

func main() {
	logger := logrus.New()
	if lvl, err := logrus.ParseLevel(getEnv("RELAY_LOG_LEVEL", "info")); err == nil {
		logger.SetLevel(lvl)
	}

	ttl := time.Duration(getEnvInt("ROOM_TTL_SECONDS", 3600)) * time.Second
	roomStore, err := store.Connect(getEnv("REDIS_ADDR", "localhost:6379"), getEnvInt("REDIS_DB", 0), ttl)
	if err != nil {
		logger.Fatalf("store: %v", err)
	}

	eng := engine.NewClient(getEnv("ENGINE_ADDR", "http://localhost:9000"), engine.DefaultTimeout)
	srv := handlers.NewRelayServer(
		room.NewManager(roomStore, logger),
		room.NewRegistry(logger),
		eng,
		logger,
	)

	logged := middleware.LogMiddleware(logger)
	mux := http.NewServeMux()

	// room management
	mux.Handle("/room/create", logged(handlers.CreateRoomHandler(srv)))
	mux.Handle("/room/join", logged(handlers.JoinRoomHandler(srv)))
	mux.Handle("/room/list", logged(handlers.ListRoomsHandler(srv)))
	mux.Handle("/load_state", logged(handlers.LoadStateHandler(srv)))
	mux.Handle("/check_reset", logged(handlers.CheckResetHandler(srv)))

	// engine state push + HTTP action path
	mux.Handle("/state", logged(handlers.StatePushHandler(srv)))
	mux.Handle("/player_action", logged(handlers.PlayerActionHandler(srv)))

	// room websocket
	mux.Handle("/ws/", logged(handlers.RoomWSHandler(srv)))

	// WebSocket sessions hijack the connection, so these bound only the
	// plain HTTP endpoints and the upgrade handshake.
	server := &http.Server{
		Handler:      mux,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
	}

	l, err := net.Listen("tcp", fmt.Sprintf(":%s", getEnv("RELAY_SERVICE_PORT", "8000")))
	if err != nil {
		logger.Fatalf("failed to listen: %v", err)
	}
	logger.Infof("listening on %s", l.Addr())

	errc := make(chan error, 1)
	go func() {
		errc <- server.Serve(l)
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	select {
	case err := <-errc:
		logger.Errorf("failed to serve: %v", err)
	case sig := <-sigs:
		logger.Infof("terminating: %v", sig)
	}
}

// getEnv reads an environment variable or returns a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt parses an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
