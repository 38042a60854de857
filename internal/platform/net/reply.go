package net

import (
	"net/http"

	perr "echokit/internal/platform/errors"
)

// Envelope is the response body every endpoint writes
type Envelope struct {
	StatusCode int            `json:"status_code"`
	Status     string         `json:"status"`
	Code       perr.ErrorCode `json:"code,omitempty"`
	Error      string         `json:"error,omitempty"`
	Field      string         `json:"field,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	Data       any            `json:"data,omitempty"`
}

// Reply builds a success envelope for status
func Reply(status int, data any, reqID string) Envelope {
	return Envelope{
		StatusCode: status,
		Status:     http.StatusText(status),
		RequestID:  reqID,
		Data:       data,
	}
}

// Error maps err to its status and an error envelope; nil maps to an empty 200
func Error(err error, reqID string) (int, Envelope) {
	if err == nil {
		return http.StatusOK, Reply(http.StatusOK, nil, reqID)
	}
	status, w := perr.HTTP(err)
	return status, Envelope{
		StatusCode: status,
		Status:     http.StatusText(status),
		Code:       w.Code,
		Error:      w.Message,
		Field:      w.Field,
		RequestID:  reqID,
	}
}
