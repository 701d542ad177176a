package httpapi

import (
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rustchat/chatd/internal/auth"
	"github.com/rustchat/chatd/internal/chat"
	"github.com/rustchat/chatd/internal/config"
	"github.com/rustchat/chatd/internal/room"
	"github.com/rustchat/chatd/internal/session"
	"github.com/rustchat/chatd/internal/store"
)

// Server wires every component into an http.Handler: the websocket upgrade
// endpoint, the REST auth/room API, and the /health and /metrics
// operational endpoints.
type Server struct {
	cfg      config.Config
	auth     *auth.Service
	registry *room.Registry
	broker   *room.Broker
	hub      *chat.Hub
	router   session.Router
	store    *store.Store
}

// NewServer builds a Server over already-constructed components.
func NewServer(cfg config.Config, authSvc *auth.Service, registry *room.Registry, broker *room.Broker, hub *chat.Hub, router session.Router, st *store.Store) *Server {
	return &Server{cfg: cfg, auth: authSvc, registry: registry, broker: broker, hub: hub, router: router, store: st}
}

// Handler builds the full routed, middleware-wrapped http.Handler, the way
// the teacher layers gorilla/handlers.CombinedLoggingHandler and
// RecoveryHandler over its own gorilla/mux router in server/http.go.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleWebsocket)

	api := r.PathPrefix("/api").Subrouter()

	authRouter := api.PathPrefix("/auth").Subrouter()
	authRouter.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	authRouter.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	authRouter.HandleFunc("/verify-email", s.handleVerifyEmail).Methods(http.MethodPost)
	authRouter.HandleFunc("/resend-code", s.handleResendCode).Methods(http.MethodPost)
	authRouter.HandleFunc("/refresh", s.handleRefresh).Methods(http.MethodPost)
	authRouter.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)
	authRouter.HandleFunc("/logout-all", s.requireAuth(s.handleLogoutAll)).Methods(http.MethodPost)
	authRouter.HandleFunc("/me", s.requireAuth(s.handleMe)).Methods(http.MethodGet)
	authRouter.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	rooms := api.PathPrefix("/rooms").Subrouter()
	rooms.HandleFunc("", s.handleListRooms).Methods(http.MethodGet)
	rooms.HandleFunc("", s.requireAuth(s.handleCreateRoom)).Methods(http.MethodPost)
	rooms.HandleFunc("/stats", s.handleRoomStats).Methods(http.MethodGet)
	rooms.HandleFunc("/{id}", s.handleGetRoom).Methods(http.MethodGet)
	rooms.HandleFunc("/{id}", s.requireAuth(s.handleDeleteRoom)).Methods(http.MethodDelete)
	rooms.HandleFunc("/{id}/join", s.requireAuth(s.handleJoinRoom)).Methods(http.MethodPost)
	rooms.HandleFunc("/{id}/leave", s.requireAuth(s.handleLeaveRoom)).Methods(http.MethodPost)
	rooms.HandleFunc("/{id}/members", s.handleRoomMembers).Methods(http.MethodGet)
	rooms.HandleFunc("/{id}/messages", s.handleRoomMessages).Methods(http.MethodGet)

	api.HandleFunc("/user/rooms", s.requireAuth(s.handleUserRooms)).Methods(http.MethodGet)

	var h http.Handler = r
	h = handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)(h)
	h = handlers.CombinedLoggingHandler(os.Stdout, h)
	h = handlers.RecoveryHandler()(h)
	return h
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
