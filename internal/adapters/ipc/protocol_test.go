package ipc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	msg, err := NewMessage(MessageTypeResolveRequest, "req-1", ResolveRequest{Action: "confirm"})
	require.NoError(t, err)
	assert.Equal(t, MessageTypeResolveRequest, msg.Type)
	assert.Equal(t, "req-1", msg.RequestID)
	assert.False(t, msg.Timestamp.IsZero())

	var req ResolveRequest
	require.NoError(t, json.Unmarshal(msg.Payload, &req))
	assert.Equal(t, "confirm", req.Action)
}

func TestNewMessage_NilPayload(t *testing.T) {
	msg, err := NewMessage(MessageTypeStatusRequest, "req-2", nil)
	require.NoError(t, err)
	assert.Nil(t, msg.Payload)
}

func TestMessageEnvelope_RoundTrip(t *testing.T) {
	msg, err := NewMessage(MessageTypeStatusResponse, "req-3", StatusResponse{
		Wizard: "self_test",
		State:  "done",
		Checks: map[string]CheckStatus{"fans": {State: "success", Progress: 1}},
	})
	require.NoError(t, err)

	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded Message
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, msg.Type, decoded.Type)

	var status StatusResponse
	require.NoError(t, json.Unmarshal(decoded.Payload, &status))
	assert.Equal(t, "self_test", status.Wizard)
	assert.Equal(t, 1.0, status.Checks["fans"].Progress)
}
