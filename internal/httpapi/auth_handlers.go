package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/rustchat/chatd/internal/apperr"
	"github.com/rustchat/chatd/internal/metrics"
	"github.com/rustchat/chatd/internal/store"
)

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type accountView struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	DisplayName   string `json:"display_name,omitempty"`
	EmailVerified bool   `json:"email_verified"`
}

func viewOf(a store.Account) accountView {
	return accountView{
		ID:            a.ID.String(),
		Email:         a.Email,
		DisplayName:   a.DisplayName.String,
		EmailVerified: a.EmailVerified,
	}
}

func decodeBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.New(apperr.DecodeError, "malformed request body")
	}
	return nil
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		fail(w, err)
		return
	}
	acct, err := s.auth.Register(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		metrics.AuthOutcomes.WithLabelValues("register", "failure").Inc()
		fail(w, err)
		return
	}
	metrics.AuthOutcomes.WithLabelValues("register", "success").Inc()
	ok(w, http.StatusCreated, viewOf(acct), "account created, check your email for a verification code")
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Account      accountView `json:"account"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		fail(w, err)
		return
	}
	acct, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		metrics.AuthOutcomes.WithLabelValues("login", "failure").Inc()
		fail(w, err)
		return
	}
	tokens, err := s.auth.IssueTokens(r.Context(), acct, r.UserAgent(), clientIP(r))
	if err != nil {
		metrics.AuthOutcomes.WithLabelValues("login", "failure").Inc()
		fail(w, err)
		return
	}
	metrics.AuthOutcomes.WithLabelValues("login", "success").Inc()
	ok(w, http.StatusOK, tokenResponse{
		Account:      viewOf(acct),
		AccessToken:  tokens.Access,
		RefreshToken: tokens.Refresh,
	}, "")
}

type verifyEmailRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if err := decodeBody(r, &req); err != nil {
		fail(w, err)
		return
	}
	if err := s.auth.VerifyEmailCode(r.Context(), req.Email, req.Code, store.PurposeEmailVerification); err != nil {
		metrics.AuthOutcomes.WithLabelValues("verify_email", "failure").Inc()
		fail(w, err)
		return
	}
	metrics.AuthOutcomes.WithLabelValues("verify_email", "success").Inc()
	ok(w, http.StatusOK, nil, "email verified")
}

type resendCodeRequest struct {
	Email string `json:"email"`
}

// handleResendCode always responds 200 regardless of whether the email is
// registered, so the response never discloses account existence (spec §7).
func (s *Server) handleResendCode(w http.ResponseWriter, r *http.Request) {
	var req resendCodeRequest
	if err := decodeBody(r, &req); err != nil {
		fail(w, err)
		return
	}
	_ = s.auth.ResendVerificationCode(r.Context(), req.Email)
	ok(w, http.StatusOK, nil, "if an account with this email exists, a verification code has been sent")
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeBody(r, &req); err != nil {
		fail(w, err)
		return
	}
	access, err := s.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		metrics.AuthOutcomes.WithLabelValues("refresh", "failure").Inc()
		fail(w, err)
		return
	}
	metrics.AuthOutcomes.WithLabelValues("refresh", "success").Inc()
	ok(w, http.StatusOK, refreshResponse{AccessToken: access}, "")
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if err := decodeBody(r, &req); err != nil {
		fail(w, err)
		return
	}
	if err := s.auth.Logout(r.Context(), req.RefreshToken); err != nil {
		fail(w, err)
		return
	}
	ok(w, http.StatusOK, nil, "logged out")
}

func (s *Server) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	acctID, err := accountIDFrom(r)
	if err != nil {
		fail(w, err)
		return
	}
	if err := s.auth.LogoutAllDevices(r.Context(), acctID); err != nil {
		fail(w, err)
		return
	}
	ok(w, http.StatusOK, nil, "logged out of all devices")
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	ok(w, http.StatusOK, map[string]string{
		"account_id":   claims.Subject,
		"email":        claims.Email,
		"display_name": claims.DisplayName,
	}, "")
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}
