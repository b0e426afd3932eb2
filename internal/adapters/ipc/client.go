package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNoWizardRunning indicates no wizard process is serving the socket.
var ErrNoWizardRunning = errors.New("no wizard is running")

// Client talks to a running wizard via IPC.
type Client struct {
	socketPath string
	lockPath   string
	timeout    time.Duration
}

// ClientConfig contains configuration for the IPC client.
type ClientConfig struct {
	SocketPath string
	LockPath   string
	Timeout    time.Duration
}

// NewClient creates a new IPC client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.SocketPath == "" {
		cfg.SocketPath = DefaultSocketPath()
	}
	if cfg.LockPath == "" {
		cfg.LockPath = DefaultLockPath()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		socketPath: cfg.SocketPath,
		lockPath:   cfg.LockPath,
		timeout:    cfg.Timeout,
	}
}

// IsWizardRunning checks whether a wizard process is serving the socket.
func (c *Client) IsWizardRunning() bool {
	if _, err := os.Stat(c.lockPath); err != nil {
		return false
	}

	if _, err := os.Stat(c.socketPath); err != nil {
		return false
	}

	// Try to connect to verify the server is actually listening
	conn, err := net.DialTimeout("unix", c.socketPath, 500*time.Millisecond)
	if err != nil {
		return false
	}
	_ = conn.Close()

	return true
}

// WizardPID returns the PID of the serving process, or 0 if not running.
func (c *Client) WizardPID() int {
	data, err := os.ReadFile(c.lockPath)
	if err != nil {
		return 0
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}

	return pid
}

// Status requests the wizard's current state.
func (c *Client) Status() (*StatusResponse, error) {
	if !c.IsWizardRunning() {
		return nil, ErrNoWizardRunning
	}

	var status StatusResponse
	if err := c.roundTrip(MessageTypeStatusRequest, StatusRequest{}, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Cancel requests cancellation of the running wizard.
func (c *Client) Cancel(force bool) (*CancelResponse, error) {
	if !c.IsWizardRunning() {
		return nil, ErrNoWizardRunning
	}

	var resp CancelResponse
	if err := c.roundTrip(MessageTypeCancelRequest, CancelRequest{Force: force}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Resolve triggers a registered user action on the running wizard.
func (c *Client) Resolve(action string) (*ResolveResponse, error) {
	if !c.IsWizardRunning() {
		return nil, ErrNoWizardRunning
	}

	var resp ResolveResponse
	if err := c.roundTrip(MessageTypeResolveRequest, ResolveRequest{Action: action}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// roundTrip sends one request and decodes the typed response payload.
func (c *Client) roundTrip(msgType MessageType, payload, out interface{}) error {
	resp, err := c.sendRequest(msgType, payload)
	if err != nil {
		return err
	}

	if resp.Type == MessageTypeErrorResponse {
		var errResp ErrorResponse
		if err := json.Unmarshal(resp.Payload, &errResp); err != nil {
			return fmt.Errorf("failed to parse error response: %w", err)
		}
		return fmt.Errorf("%s: %s", errResp.Code, errResp.Message)
	}

	if err := json.Unmarshal(resp.Payload, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", resp.Type, err)
	}
	return nil
}

// sendRequest sends a request and waits for a response.
func (c *Client) sendRequest(msgType MessageType, payload interface{}) (*Message, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to wizard: %w", err)
	}
	defer func() { _ = conn.Close() }()

	_ = conn.SetDeadline(time.Now().Add(c.timeout))

	requestID := uuid.New().String()
	msg, err := NewMessage(msgType, requestID, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	if err := json.NewEncoder(conn).Encode(msg); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	var resp Message
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &resp, nil
}
