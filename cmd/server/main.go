package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"

	"chat-relay/internal/api"
	"chat-relay/internal/auth"
	"chat-relay/internal/config"
	"chat-relay/internal/presence"
	"chat-relay/internal/redis"
	"chat-relay/internal/relay"
	"chat-relay/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})))

	// Shared mutable state: who holds which live connections
	registry := presence.NewRegistry()

	// Presence events for the backend; no-op unless Redis is configured
	var events ws.PresencePublisher = ws.NopPublisher{}
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient = redis.NewClient(cfg.RedisURL)
		events = redisClient
	}

	hub := ws.NewHub(registry, events)

	backend := api.NewClient(cfg.APIBaseURL)
	dispatcher := relay.NewDispatcher(backend, registry, hub)
	router := relay.NewRouter(hub, relay.NewOracle(registry, hub), backend, dispatcher)
	hub.SetRouter(router)

	go hub.Run()

	if redisClient != nil {
		go redis.SubscribeToRoomEvents(redisClient, hub)
	}

	validator := auth.NewValidator(cfg.AuthSecret)
	if validator == nil {
		slog.Warn("AUTH_SECRET not set, token validation disabled")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, validator, w, r)
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	server := &http.Server{Addr: ":" + cfg.Port, Handler: mux}

	go func() {
		log.Printf("Chat relay starting on :%s (backend: %s)", cfg.Port, cfg.APIBaseURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	// Block until SIGINT/SIGTERM, then stop accepting connections, join the
	// in-flight notification dispatches, and release Redis.
	wait := gfshutdown.GracefulShutdown(context.Background(), shutdownTimeout, map[string]gfshutdown.Operation{
		"relay": func(ctx context.Context) error {
			if err := server.Shutdown(ctx); err != nil {
				slog.Error("HTTP server shutdown error", "error", err)
			}
			dispatcher.Wait()
			if redisClient != nil {
				return redisClient.Close()
			}
			return nil
		},
	})

	exitCode := <-wait
	log.Printf("Chat relay stopped (exit code %d)", exitCode)
	os.Exit(exitCode)
}
