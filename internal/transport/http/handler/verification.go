package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-api-verification/internal/application/verification"
	"github.com/go-api-verification/internal/domain"
	"github.com/go-api-verification/internal/pkg/validate"
)

type sendCodeRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

type verifyCodeRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
	Code  string `json:"code" validate:"required"`
}

// VerificationHandler exposes the send and verify endpoints.
type VerificationHandler struct {
	svc verification.Service
}

func NewVerificationHandler(svc verification.Service) *VerificationHandler {
	return &VerificationHandler{svc: svc}
}

func (h *VerificationHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, SendEnvelope{Error: domain.MsgInvalidRequest})
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, SendEnvelope{Error: domain.MsgInvalidRequest})
		return
	}

	res, err := h.svc.SendVerificationCode(r.Context(), req.Email)
	writeJSON(w, httpStatus(err), SendEnvelope{
		Succeeded: res.Succeeded,
		Message:   res.Message,
		Error:     res.Error,
	})
}

func (h *VerificationHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, VerifyEnvelope{Message: domain.MsgInvalidRequest})
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, VerifyEnvelope{Message: domain.MsgInvalidRequest})
		return
	}

	res, err := h.svc.VerifyVerificationCode(r.Context(), req.Email, req.Code)
	msg := res.Message
	if !res.Succeeded {
		msg = res.Error
	}
	writeJSON(w, httpStatus(err), VerifyEnvelope{Success: res.Succeeded, Message: msg})
}
