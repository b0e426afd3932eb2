// Package ipc exposes a running wizard over a Unix socket, so a second
// wizardctl process or a front end can inspect its state, answer its
// interaction states and cancel it.
package ipc

import (
	"encoding/json"
	"time"
)

// MessageType identifies the type of IPC message.
type MessageType string

const (
	// MessageTypeStatusRequest requests the wizard's current state.
	MessageTypeStatusRequest MessageType = "status_request"
	// MessageTypeCancelRequest requests wizard cancellation.
	MessageTypeCancelRequest MessageType = "cancel_request"
	// MessageTypeResolveRequest answers an interaction state.
	MessageTypeResolveRequest MessageType = "resolve_request"

	// MessageTypeStatusResponse carries the wizard's current state.
	MessageTypeStatusResponse MessageType = "status_response"
	// MessageTypeCancelResponse carries the cancellation result.
	MessageTypeCancelResponse MessageType = "cancel_response"
	// MessageTypeResolveResponse carries the resolution result.
	MessageTypeResolveResponse MessageType = "resolve_response"
	// MessageTypeErrorResponse carries error details.
	MessageTypeErrorResponse MessageType = "error_response"
)

// Message is the envelope for all IPC messages.
type Message struct {
	Type      MessageType     `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewMessage creates a new message with the given type and payload.
func NewMessage(msgType MessageType, requestID string, payload interface{}) (*Message, error) {
	var payloadBytes json.RawMessage
	if payload != nil {
		var err error
		payloadBytes, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}

	return &Message{
		Type:      msgType,
		RequestID: requestID,
		Timestamp: time.Now(),
		Payload:   payloadBytes,
	}, nil
}

// CheckStatus is the per-check view carried in a status response.
type CheckStatus struct {
	State    string  `json:"state"`
	Progress float64 `json:"progress"`
}

// StatusRequest is the payload for a status request.
type StatusRequest struct{}

// StatusResponse is the payload for a status response.
type StatusResponse struct {
	Wizard   string                 `json:"wizard"`
	RunID    string                 `json:"run_id"`
	State    string                 `json:"state"`
	Checks   map[string]CheckStatus `json:"checks"`
	Warnings []string               `json:"warnings,omitempty"`
	PID      int                    `json:"pid"`
}

// CancelRequest is the payload for a cancel request.
type CancelRequest struct {
	// Force bypasses the wizard's cancelable declaration.
	Force bool `json:"force,omitempty"`
}

// CancelResponse is the payload for a cancel response.
type CancelResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ResolveRequest is the payload for a resolve request.
type ResolveRequest struct {
	// Action names the registered user action to trigger.
	Action string `json:"action"`
}

// ResolveResponse is the payload for a resolve response.
type ResolveResponse struct {
	Success bool   `json:"success"`
	Action  string `json:"action"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse is the payload for an error response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes
const (
	ErrorCodeInvalidRequest = "invalid_request"
	ErrorCodeNotRunning     = "not_running"
	ErrorCodeInternalError  = "internal_error"
)
