// Package httpapi is the REST surface: auth endpoints, room endpoints,
// health/metrics, and the /ws upgrade handler. Route-table shape and the
// {success,data,error,message} envelope are grounded on
// original_source/crates/rustchat-server/src/auth/api.rs's axum handlers;
// the server skeleton (mux, middleware, listener wiring) generalizes the
// teacher's own net/http.Server wiring in server/shutdown.go to
// gorilla/mux + gorilla/handlers, which the variable-segment room routes
// require.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/rustchat/chatd/internal/apperr"
)

// envelope is the response shape every handler returns (spec §6).
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func ok(w http.ResponseWriter, status int, data interface{}, message string) {
	writeJSON(w, status, envelope{Success: true, Data: data, Message: message})
}

// errorStatus maps the error taxonomy to HTTP status codes (spec §6/§7).
func errorStatus(code apperr.Code) int {
	switch code {
	case apperr.InvalidEmail, apperr.InvalidPassword, apperr.InvalidVerificationCode,
		apperr.InvalidRoomName, apperr.DecodeError:
		return http.StatusBadRequest
	case apperr.AccountNotFound, apperr.RoomNotFound:
		return http.StatusNotFound
	case apperr.InvalidCredentials, apperr.TokenExpired, apperr.InvalidToken:
		return http.StatusUnauthorized
	case apperr.AccountSuspended, apperr.AccountDeleted, apperr.PermissionDenied:
		return http.StatusForbidden
	case apperr.EmailAlreadyExists, apperr.UserAlreadyInRoom, apperr.RoomFull, apperr.UserNotInRoom:
		return http.StatusConflict
	case apperr.VerificationSendFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func fail(w http.ResponseWriter, err error) {
	code := apperr.CodeOf(err)
	status := errorStatus(code)
	writeJSON(w, status, envelope{Success: false, Error: string(code), Message: err.Error()})
}
