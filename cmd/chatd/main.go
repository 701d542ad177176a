// Command chatd runs the chat server: HTTP/websocket ingress, room registry
// and broker, the auth service, and the SQLite-backed message/account store.
// Flag handling and the config-path-plus-overrides shape follow the
// teacher's own cmd/server main.go.
package main

import (
	"flag"
	"log"

	"github.com/rustchat/chatd/internal/auth"
	"github.com/rustchat/chatd/internal/chat"
	"github.com/rustchat/chatd/internal/config"
	"github.com/rustchat/chatd/internal/httpapi"
	"github.com/rustchat/chatd/internal/metrics"
	"github.com/rustchat/chatd/internal/room"
	"github.com/rustchat/chatd/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON config file (comments allowed)")
	listenAddr := flag.String("listen", "", "override listen_addr from config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if cfg.IsDevSecret() {
		log.Printf("warning: running with the built-in development JWT secret, do not use in production")
	}

	st, err := store.Open(cfg.SQLiteDSN)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close()

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL)
	mailer := auth.NewNopMailer()
	authSvc := auth.NewService(st, tokens, mailer, cfg.VerifyCodeTTL, cfg.RefreshTTL)

	registry := room.NewRegistry()
	broker := room.NewBroker(cfg.RoomChannelCapacity)
	hub := chat.NewHub(cfg.GlobalChannelCapacity)
	router := chat.NewRouter(hub, registry, broker, st, cfg.RoomListMaxLimit)

	metrics.Register()

	srv := httpapi.NewServer(cfg, authSvc, registry, broker, hub, router, st)

	stop := signalHandler()
	log.Printf("chatd listening on %s", cfg.ListenAddr)
	if err := listenAndServe(cfg.ListenAddr, srv.Handler(), stop, func() {
		log.Printf("shutdown: closing store")
	}); err != nil {
		log.Fatalf("serve: %v", err)
	}
	log.Printf("chatd stopped")
}
