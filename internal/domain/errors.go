package domain

import "errors"

// Sentinel errors for the verification workflow.
// The service wraps collaborator faults with these so handlers can map them to
// HTTP status codes without leaking infrastructure details.
var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrDispatch             = errors.New("dispatch failed")
	ErrStorage              = errors.New("storage failed")
	ErrInvalidOrExpiredCode = errors.New("invalid or expired verification code")
)

// User-facing messages. Verify failures always use MsgInvalidOrExpired.
const (
	MsgCodeSent         = "Verification code sent successfully."
	MsgVerified         = "Verification successful."
	MsgInvalidRequest   = "Invalid request."
	MsgSendFailed       = "Failed to send verification code."
	MsgInvalidOrExpired = "Invalid or expired verification code."
)
