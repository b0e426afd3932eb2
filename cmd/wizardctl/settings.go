package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/jaczemann/sla-fw-sub001/internal/adapters/ipc"
	"github.com/jaczemann/sla-fw-sub001/internal/adapters/logging"
	"github.com/jaczemann/sla-fw-sub001/internal/ports"
)

// Settings configures wizardctl. All fields are optional.
type Settings struct {
	FactoryDir  string `yaml:"factory_dir"`
	UserDir     string `yaml:"user_dir"`
	HardwareCfg string `yaml:"hardware_cfg"`
	FactoryMode bool   `yaml:"factory_mode"`
	LogLevel    string `yaml:"log_level"`
	LogJSON     bool   `yaml:"log_json"`
	CoverCheck  *bool  `yaml:"cover_check"`
	SocketPath  string `yaml:"socket_path"`
	LockPath    string `yaml:"lock_path"`
}

// loadSettings reads the settings file when given, falling back to
// defaults under the user's home directory.
func loadSettings(path string) (*Settings, error) {
	s := &Settings{LogLevel: "info"}
	if path != "" {
		raw, err := os.ReadFile(ports.ExpandPath(path))
		if err != nil {
			return nil, fmt.Errorf("read settings: %w", err)
		}
		if err := yaml.Unmarshal(raw, s); err != nil {
			return nil, fmt.Errorf("parse settings: %w", err)
		}
	}
	base := ports.ExpandPath("~/.wizardctl")
	if s.FactoryDir == "" {
		s.FactoryDir = filepath.Join(base, "factory")
	}
	if s.UserDir == "" {
		s.UserDir = filepath.Join(base, "etc")
	}
	if s.HardwareCfg == "" {
		s.HardwareCfg = filepath.Join(s.UserDir, "hardware.cfg")
	}
	if s.SocketPath == "" {
		s.SocketPath = filepath.Join(base, "wizard.sock")
	}
	if s.LockPath == "" {
		s.LockPath = filepath.Join(base, "wizard.lock")
	}
	return s, nil
}

// newIPCClient builds a client for the configured control socket.
func (s *Settings) newIPCClient() *ipc.Client {
	return ipc.NewClient(ipc.ClientConfig{
		SocketPath: s.SocketPath,
		LockPath:   s.LockPath,
	})
}

// coverCheckEnabled defaults to true when the settings omit the flag.
func (s *Settings) coverCheckEnabled() bool {
	if s.CoverCheck == nil {
		return true
	}
	return *s.CoverCheck
}

// newLogger builds the logger the settings describe.
func (s *Settings) newLogger() ports.Logger {
	return logging.NewConsoleLogger(
		logging.WithLevel(ports.ParseLevel(s.LogLevel)),
		logging.WithJSONFormat(s.LogJSON),
	)
}
