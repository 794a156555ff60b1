package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"identity/internal/domain"
	"identity/internal/dto"
	"identity/internal/observability/middleware"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}
	if _, err := h.auth.Register(r.Context(), req); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.MessageResponse{Message: "Registered successfully, Please Verify your email"})
}

func (h *handler) verifyEmail(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.VerifyEmail(r.Context(), chi.URLParam(r, "token")); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "User has been verified successfully"})
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !h.decode(w, r, &req) {
		return
	}
	pair, err := h.auth.Login(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.setCookie(w, accessCookie, pair.AccessToken, pair.AccessTTL)
	h.setCookie(w, refreshCookie, pair.RefreshToken, pair.RefreshTTL)
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "Logged in successfully"})
}

func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	tok, err := h.auth.Refresh(r.Context(), cookieValue(r, refreshCookie))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.setCookie(w, accessCookie, tok.AccessToken, tok.TTL)
	writeJSON(w, http.StatusCreated, dto.MessageResponse{Message: "Access token has been refreshed successfully"})
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), cookieValue(r, refreshCookie)); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.clearCookie(w, accessCookie)
	h.clearCookie(w, refreshCookie)
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) forgetPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ForgetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.auth.ForgetPassword(r.Context(), req); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "Password reset link sent to your email"})
}

func (h *handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.auth.ResetPassword(r.Context(), chi.URLParam(r, "token"), req); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.MessageResponse{Message: "Password has been set successfully"})
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	token := cookieValue(r, accessCookie)
	if token == "" {
		if v, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
			token = strings.TrimSpace(v)
		}
	}
	res, err := h.auth.Me(r.Context(), token)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// decode reads a JSON body. An empty body decodes to the zero value so the
// service can report which fields are missing.
func (h *handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, dto.ErrorResponse{Error: "request body too large"})
			return false
		}
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: domain.ErrValidation.Error()})
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrMissingFields),
		errors.Is(err, domain.ErrWeakPassword),
		errors.Is(err, domain.ErrPasswordMismatch),
		errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrInvalidOrExpired),
		errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrReusedPassword):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDuplicateUsername):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrAccessDenied),
		errors.Is(err, domain.ErrEmailNotVerified):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeError converts a service error into a response. Anything that is not a
// known client error is logged and reported without detail.
func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed",
			"err", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.RequestIDFromContext(r.Context()),
		)
		writeJSON(w, status, dto.ErrorResponse{Error: "internal server error"})
		return
	}
	writeJSON(w, status, dto.ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}
