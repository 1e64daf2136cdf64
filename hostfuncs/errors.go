package hostfuncs

import (
	"encoding/json"
)

// ErrorResponse is the structured error returned to the guest in place of a
// trap.
type ErrorResponse struct {
	// Error is a machine-readable type, e.g. "VALIDATION_ERROR".
	Error string `json:"error"`

	Message string `json:"message"`

	// Code mirrors the HTTP status family (400, 404, 500).
	Code int `json:"code"`
}

// ToJSON serializes the ErrorResponse.
func (e ErrorResponse) ToJSON() []byte {
	data, err := json.Marshal(e)
	if err != nil {
		return nil
	}
	return data
}

// NewValidationError reports a malformed request.
func NewValidationError(message string) ErrorResponse {
	return ErrorResponse{Error: "VALIDATION_ERROR", Message: message, Code: 400}
}

// NewNotFoundError reports a missing host function or resource.
func NewNotFoundError(what string) ErrorResponse {
	return ErrorResponse{Error: "NOT_FOUND", Message: "unknown " + what, Code: 404}
}

// NewInternalError reports an unexpected host failure.
func NewInternalError(message string) ErrorResponse {
	return ErrorResponse{Error: "INTERNAL_ERROR", Message: message, Code: 500}
}

// NewPanicError reports a recovered panic.
func NewPanicError(panicValue any) ErrorResponse {
	var msg string
	switch v := panicValue.(type) {
	case error:
		msg = v.Error()
	case string:
		msg = v
	default:
		msg = "panic recovered"
	}
	return ErrorResponse{Error: "INTERNAL_ERROR", Message: "panic: " + msg, Code: 500}
}
