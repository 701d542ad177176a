package httpapi

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rustchat/chatd/internal/session"
	"github.com/rustchat/chatd/internal/types"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleWebsocket upgrades the connection and resolves the session's
// identity: a valid bearer token (header or ?token= query param, since
// browsers can't set headers on a WebSocket handshake) yields an
// authenticated UserId equal to the account id, otherwise a fresh random one
// is minted for an anonymous session (spec §4.5 identity resolution).
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	id := s.resolveIdentity(r)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade: %v", err)
		return
	}

	sess := session.New(conn, s.hub, s.broker, s.router, session.Config{
		HeartbeatInterval: s.cfg.HeartbeatInterval,
		HeartbeatTimeout:  s.cfg.HeartbeatTimeout,
	}, id)
	sess.Run(r.Context())
}

func (s *Server) resolveIdentity(r *http.Request) types.UserId {
	token := bearerToken(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		return types.NewUserId()
	}
	claims, err := s.auth.VerifyAccessToken(token)
	if err != nil {
		return types.NewUserId()
	}
	acctID, err := claims.AccountIDOf()
	if err != nil {
		return types.NewUserId()
	}
	return types.AccountIdToUserId(acctID)
}
