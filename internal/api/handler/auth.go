package handler

import (
	"errors"
	"net/http"

	"github.com/mcoot/mahjongtracker/internal/api/apierr"
	"github.com/mcoot/mahjongtracker/internal/api/middleware"
	"github.com/mcoot/mahjongtracker/internal/api/request"
	"github.com/mcoot/mahjongtracker/internal/api/response"
	"github.com/mcoot/mahjongtracker/internal/model"
	"github.com/mcoot/mahjongtracker/internal/services/auth"
)

// AuthHandler handles registration, login and the current user
type AuthHandler struct {
	authService *auth.Service
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		apierr.WriteError(w, r, err)
		return
	}

	result, err := h.authService.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		apierr.WriteError(w, r, err)
		return
	}

	setSessionCookie(w, r, result.Session)
	response.OK(w, response.AuthFromResult(result))
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		apierr.WriteError(w, r, err)
		return
	}

	result, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		apierr.WriteError(w, r, err)
		return
	}

	setSessionCookie(w, r, result.Session)
	response.OK(w, response.AuthFromResult(result))
}

// Logout handles POST /api/auth/logout. It succeeds without a session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.Logout(r.Context(), middleware.GetToken(r.Context())); err != nil {
		apierr.WriteError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	response.OK(w, response.Success{Success: true})
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		apierr.WriteError(w, r, apierr.NewUnauthorizedError("Not logged in"))
		return
	}

	player, err := h.authService.DefaultPlayer(r.Context(), user)
	if err != nil && !errors.Is(err, model.ErrPlayerNotFound) {
		apierr.WriteError(w, r, err)
		return
	}

	response.OK(w, response.MeFromModel(user, player))
}

func setSessionCookie(w http.ResponseWriter, r *http.Request, session *model.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}
