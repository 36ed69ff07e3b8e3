package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/shopkit/shopgate"
	"github.com/shopkit/shopgate/middleware"
	"github.com/shopkit/shopgate/session"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func decodeCredentials(r *http.Request) (credentialsRequest, error) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, shopgate.ErrValidation.WithMessage("malformed JSON body")
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return req, shopgate.ErrValidation.WithMessage("a valid email is required")
	}
	if req.Password == "" {
		return req, shopgate.ErrValidation.WithMessage("password is required")
	}
	return req, nil
}

type sessionView struct {
	UserID      string   `json:"userId"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	ExpiresAt   int64    `json:"expiresAt"`
}

func viewOf(sess *session.Session) sessionView {
	return sessionView{
		UserID:      sess.UserID,
		Email:       sess.Email,
		Role:        sess.Role,
		Permissions: sess.Permissions,
		ExpiresAt:   sess.ExpiresAt,
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCredentials(r)
	if err != nil {
		shopgate.WriteError(w, err)
		return
	}

	token, sess, err := s.gw.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		shopgate.WriteError(w, err)
		return
	}

	s.setSessionCookie(w, token, sess)
	shopgate.WriteSuccess(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  viewOf(sess),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := middleware.TokenFromRequest(r)
	if _, err := s.gw.Logout(r.Context(), token); err != nil {
		shopgate.WriteError(w, err)
		return
	}

	s.clearSessionCookie(w)
	shopgate.WriteJSON(w, http.StatusOK, shopgate.Envelope{
		Success: true,
		Message: "logged out",
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCredentials(r)
	if err != nil {
		shopgate.WriteError(w, err)
		return
	}

	hash, err := s.gw.HashPassword(req.Password)
	if err != nil {
		shopgate.WriteError(w, err)
		return
	}

	user, err := s.cfg.Registrar.CreateUser(r.Context(), req.Email, hash, s.cfg.RegisterRole)
	if err != nil {
		shopgate.WriteError(w, err)
		return
	}

	shopgate.WriteSuccess(w, http.StatusCreated, map[string]any{
		"userId": user.UserID,
		"email":  user.Email,
		"role":   user.Role,
	})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		shopgate.WriteError(w, shopgate.ErrUnauthorized)
		return
	}
	shopgate.WriteSuccess(w, http.StatusOK, viewOf(sess))
}

func (s *Server) handleAdminOverview(w http.ResponseWriter, r *http.Request) {
	snapshot := s.gw.MetricsSnapshot()

	counters := make(map[string]uint64, len(snapshot.Counters))
	for id, v := range snapshot.Counters {
		counters[metricName(id)] = v
	}

	shopgate.WriteSuccess(w, http.StatusOK, map[string]any{
		"metrics":      counters,
		"auditDropped": s.gw.AuditDropped(),
	})
}

func metricName(id shopgate.MetricID) string {
	switch id {
	case shopgate.MetricLoginSuccess:
		return "loginSuccess"
	case shopgate.MetricLoginFailure:
		return "loginFailure"
	case shopgate.MetricSessionCreated:
		return "sessionCreated"
	case shopgate.MetricSessionInvalidated:
		return "sessionInvalidated"
	case shopgate.MetricSessionExpired:
		return "sessionExpired"
	case shopgate.MetricAuthDenied:
		return "authDenied"
	case shopgate.MetricGuestBlocked:
		return "guestBlocked"
	case shopgate.MetricRateLimitHit:
		return "rateLimitHit"
	case shopgate.MetricValidationFailed:
		return "validationFailed"
	case shopgate.MetricRedirectServed:
		return "redirectServed"
	}
	return "unknown"
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string, sess *session.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Unix(sess.ExpiresAt, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
