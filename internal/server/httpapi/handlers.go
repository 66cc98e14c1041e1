package httpapi

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/securemsg/internal/common"
	"github.com/dmitrijs2005/securemsg/internal/server/models"
	"github.com/dmitrijs2005/securemsg/internal/server/validate"
	"github.com/go-chi/chi/v5"
)

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type userResponse struct {
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type sendRequest struct {
	To      string `json:"to"`
	Content string `json:"content"`
}

type messageResponse struct {
	ID      string    `json:"id"`
	From    string    `json:"from"`
	To      string    `json:"to"`
	Content string    `json:"content,omitempty"`
	SentAt  time.Time `json:"sent_at"`
}

type uploadResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

func toMessageResponse(m *models.Message) messageResponse {
	return messageResponse{
		ID:      m.ID,
		From:    m.FromUser,
		To:      m.ToUser,
		Content: m.Content,
		SentAt:  m.SentAt,
	}
}

// validationFailed writes a 400 listing every invalid field.
func validationFailed(w http.ResponseWriter, errs ...error) bool {
	fields := map[string]string{}
	for _, err := range errs {
		var fe *validate.FieldError
		if errors.As(err, &fe) {
			fields[fe.Field] = fe.Message
		}
	}
	if len(fields) == 0 {
		return false
	}
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: fields})
	return true
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		errorJSON(w, http.StatusBadRequest, "malformed request")
		return
	}

	username, errUser := validate.Username(req.Username)
	errPass := validate.RegisterPassword(req.Password)
	email, errEmail := validate.Email(req.Email)
	if validationFailed(w, errUser, errPass, errEmail) {
		return
	}

	exists, err := h.users.UserExists(r.Context(), username)
	if err != nil {
		h.logger.Error(r.Context(), "user lookup failed", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	if exists {
		errorJSON(w, http.StatusConflict, "Username already in use")
		return
	}

	u, err := h.users.Register(r.Context(), username, req.Password, email)
	switch {
	case errors.Is(err, common.ErrDuplicateUser):
		errorJSON(w, http.StatusConflict, "Username already in use")
		return
	case err != nil:
		h.logger.Error(r.Context(), "registration failed", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, userResponse{Username: u.UserName, Email: u.Email, CreatedAt: u.CreatedAt})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		errorJSON(w, http.StatusBadRequest, "malformed request")
		return
	}

	username, errUser := validate.Username(req.Username)
	errPass := validate.LoginPassword(req.Password)
	if validationFailed(w, errUser, errPass) {
		return
	}

	token, err := h.users.Login(r.Context(), username, req.Password)
	if err != nil {
		errorJSON(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    token.Raw,
		Path:     "/",
		Expires:  token.ExpiresAt,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, loginResponse{Token: token.Raw, ExpiresAt: token.ExpiresAt})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// logout revokes every token the request presents, header and cookie alike.
// A missing or forged token still gets its cookie cleared; only a failing
// revocation store is reported.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	for _, raw := range sessionTokens(r) {
		err := h.users.Logout(r.Context(), raw)
		if err != nil && !errors.Is(err, common.ErrInvalidToken) {
			h.logger.Error(r.Context(), "logout failed", "error", err)
			errorJSON(w, http.StatusInternalServerError, "internal error")
			return
		}
	}
	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) inbox(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	msgs := h.messages.ListForRecipient(r.Context(), id.Username)

	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageResponse(m))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) message(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	m, err := h.messages.GetByID(r.Context(), id.Username, chi.URLParam(r, "id"))
	if err != nil {
		errorJSON(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, toMessageResponse(m))
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())

	var req sendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		errorJSON(w, http.StatusBadRequest, "malformed request")
		return
	}

	content, errContent := validate.Content(req.Content)
	to, errTo := validate.Recipient(r.Context(), req.To, h.users.UserExists)
	if errTo != nil && !errors.Is(errTo, common.ErrValidation) {
		h.logger.Error(r.Context(), "recipient lookup failed", "error", errTo)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	if validationFailed(w, errTo, errContent) {
		return
	}

	m, err := h.messages.Send(r.Context(), id.Username, to, content)
	switch {
	case errors.Is(err, common.ErrUnknownRecipient):
		errorJSON(w, http.StatusNotFound, "Receiver does not exist")
		return
	case err != nil:
		h.logger.Error(r.Context(), "send failed", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := toMessageResponse(m)
	resp.Content = ""
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) exportArchive(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.export.WriteArchive(r.Context(), &buf); err != nil {
		h.logger.Error(r.Context(), "export failed", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}

	name := fmt.Sprintf("securemsg-%s.zip", time.Now().UTC().Format("20060102T150405Z"))
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) exportUpload(w http.ResponseWriter, r *http.Request) {
	key, url, err := h.export.Upload(r.Context())
	if err != nil {
		h.logger.Error(r.Context(), "export upload failed", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{Key: key, URL: url})
}
