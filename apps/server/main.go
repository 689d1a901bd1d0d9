package main

import (
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"liap-tui/apps/server/internal/eventstore"
	"liap-tui/apps/server/internal/gateway"
	"liap-tui/apps/server/internal/lobby"
	"liap-tui/apps/server/internal/room"
	"liap-tui/castellan/bot"
)

func main() {
	store, storeMode, err := eventstore.NewServiceFromEnv()
	if err != nil {
		log.Fatalf("[Server] Failed to init event store: %v", err)
	}
	defer store.Close()

	registry := bot.NewRegistry()
	if path := strings.TrimSpace(os.Getenv("BOT_PERSONA_PATH")); path != "" {
		if err := registry.LoadFromFile(path); err != nil {
			log.Fatalf("[Server] Failed to load bot personas from %s: %v", path, err)
		}
		log.Printf("[Server] Loaded %d bot personas", registry.Count())
	}
	bots := bot.NewManager(registry)

	gw := gateway.New()
	lby := lobby.New(room.DefaultConfig(), bots, store, gw.SinkFor, roomIdleTTLFromEnv())
	gw.AttachLobby(lby)
	lby.OnChange(gw.BroadcastRoomList)
	lby.OnRemove(gw.ReleaseRoom)
	lby.StartSweeper(time.Minute)
	defer lby.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gw.HandleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	addr := listenAddrFromEnv()
	log.Printf("[Server] Event store mode: %s", storeMode)
	log.Printf("[Server] Starting WebSocket server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("[Server] Failed to start: %v", err)
	}
}

func listenAddrFromEnv() string {
	if addr := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); addr != "" {
		return addr
	}
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		return ":" + port
	}
	return ":8080"
}

func roomIdleTTLFromEnv() time.Duration {
	raw := strings.TrimSpace(os.Getenv("ROOM_IDLE_TTL"))
	if raw == "" {
		return 5 * time.Minute
	}
	ttl, err := time.ParseDuration(raw)
	if err != nil || ttl <= 0 {
		log.Printf("[Server] Invalid ROOM_IDLE_TTL %q, using default", raw)
		return 5 * time.Minute
	}
	return ttl
}
