package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-email-service/internal/application/notification"
	"github.com/go-email-service/internal/application/verification"
	"github.com/go-email-service/internal/domain"
	"github.com/go-email-service/internal/pkg/logger"
	"github.com/go-email-service/internal/pkg/validate"
	"go.uber.org/zap"
)

// Dispatcher is the part of the mail dispatcher the email endpoints use.
type Dispatcher interface {
	Send(ctx context.Context, msg domain.EmailMessage) *notification.Pending
	Lookup(ctx context.Context, dispatchID string) (*domain.Dispatch, error)
}

type SendVerificationRequest struct {
	UserID *int64 `json:"userId" validate:"required"`
}

type VerifyEmailRequest struct {
	TokenValue string `json:"tokenValue" validate:"required"`
}

// EmailHandler serves the /api/emails endpoints.
type EmailHandler struct {
	dispatcher Dispatcher
	svc        verification.Service
	logger     *zap.Logger
}

func NewEmailHandler(dispatcher Dispatcher, svc verification.Service, l *zap.Logger) *EmailHandler {
	return &EmailHandler{dispatcher: dispatcher, svc: svc, logger: logger.OrNop(l)}
}

func (h *EmailHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req domain.EmailMessage
	if !decode(w, r, &req) {
		return
	}
	logger.WithContext(r.Context(), h.logger).Info("send email requested", zap.String("to", req.To))

	if err := h.dispatcher.Send(r.Context(), req).Wait(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Email sent successfully"})
}

func (h *EmailHandler) SendVerification(w http.ResponseWriter, r *http.Request) {
	var req SendVerificationRequest
	if !decode(w, r, &req) {
		return
	}
	logger.WithContext(r.Context(), h.logger).Info("verification email requested", zap.Int64("user_id", *req.UserID))

	p, err := h.svc.SendVerificationEmail(r.Context(), domain.VerificationRequest{UserID: *req.UserID})
	if err == nil {
		err = p.Wait(r.Context())
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Email Verification sent successfully"})
}

func (h *EmailHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.VerifyEmail(r.Context(), req.TokenValue); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Email successfully verified"})
}

func (h *EmailHandler) GetDispatch(w http.ResponseWriter, r *http.Request) {
	d, err := h.dispatcher.Lookup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *EmailHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) {
		// client went away; the dispatch keeps running
		return
	}
	logger.WithContext(r.Context(), h.logger).Warn("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	httpError(w, err)
}

// decode reads a JSON body into dst and validates it, writing the error
// response itself when it returns false.
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return false
	}
	return true
}
