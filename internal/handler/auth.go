package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/smartgrocery/internal/auth"
	"github.com/dukerupert/smartgrocery/internal/middleware"
)

const (
	MsgSignUpOK   = "Sign up successful! Please verify your email before logging in."
	MsgVerifyOK   = "Email verified. You can now log in."
	MsgSignInOK   = "Login Successful"
	MsgResetSent  = "Password reset email sent"
	MsgResetOK    = "Password updated. Please log in again."
	MsgSignedOut  = "Signed out"
	MsgCodeResent = "Verification email sent"
)

type AuthHandler struct {
	service      *auth.Service
	secureCookie bool
	logger       *slog.Logger
}

func NewAuthHandler(svc *auth.Service, secureCookie bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: svc, secureCookie: secureCookie, logger: logger}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type codeRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

func (h *AuthHandler) writeAuthError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrInvalidCode):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrEmailNotVerified):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, auth.ErrTooManyAttempts):
		writeError(w, http.StatusTooManyRequests, err.Error())
	default:
		h.logger.Error(op, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.service.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeAuthError(w, "sign up", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": MsgSignUpOK, "user": user})
}

func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.ResendVerification(r.Context(), req.Email); err != nil {
		h.writeAuthError(w, "resend verification", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": MsgCodeResent})
}

func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.VerifyEmail(r.Context(), req.Email, req.Code); err != nil {
		h.writeAuthError(w, "verify email", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": MsgVerifyOK})
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.service.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeAuthError(w, "sign in", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    res.Token,
		Path:     "/",
		Expires:  res.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    MsgSignInOK,
		"token":      res.Token,
		"expires_at": res.ExpiresAt,
		"user":       res.User,
	})
}

func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.writeAuthError(w, "request password reset", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": MsgResetSent})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		h.writeAuthError(w, "reset password", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": MsgResetOK})
}

func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.service.SignOut(r.Context(), auth.SessionID(r.Context())); err != nil {
		h.logger.Error("sign out", "error", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": MsgSignedOut})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"user_id": ac.UserID, "email": ac.Email})
}
