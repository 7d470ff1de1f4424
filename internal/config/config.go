package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/resonator/internal/daemon"
	"github.com/danmuck/resonator/internal/host"
	"github.com/danmuck/resonator/internal/protocol/session"
	gotoml "github.com/pelletier/go-toml/v2"
)

var ErrInvalidDuration = errors.New("config: invalid duration")

// HostFile is the resonator.toml layout. Absent keys keep their defaults.
type HostFile struct {
	Name        string        `toml:"name"`
	Addr        string        `toml:"addr"`
	CorsOrigins []string      `toml:"cors_origins"`
	Grid        GridSection   `toml:"grid"`
	Loop        LoopSection   `toml:"loop"`
	Session     SessionFields `toml:"session"`
}

type GridSection struct {
	Size            int     `toml:"size"`
	Coupling        float64 `toml:"coupling"`
	Noise           float64 `toml:"noise"`
	Seed            int64   `toml:"seed"`
	HistoryCapacity int     `toml:"history_capacity"`
	LocalWindow     int     `toml:"local_window"`
}

type LoopSection struct {
	Dt                 float64 `toml:"dt"`
	TickInterval       string  `toml:"tick_interval"`
	BroadcastEvery     int     `toml:"broadcast_every"`
	RecordEvery        int     `toml:"record_every"`
	ApplyPerturbations bool    `toml:"apply_perturbations"`
}

type SessionFields struct {
	SecurityMode  string `toml:"security_mode"`
	WriteTimeout  string `toml:"write_timeout"`
	TLSEnabled    bool   `toml:"tls_enabled"`
	TLSMutual     bool   `toml:"tls_mutual"`
	TLSCertFile   string `toml:"tls_cert_file"`
	TLSKeyFile    string `toml:"tls_key_file"`
	TLSCAFile     string `toml:"tls_ca_file"`
	TLSServerName string `toml:"tls_server_name"`
}

// LoadHostConfig reads a resonator.toml over host.DefaultConfig and
// validates the result.
func LoadHostConfig(path string) (host.Config, error) {
	raw := hostFileFrom(host.DefaultConfig())
	if err := loadToml(path, &raw); err != nil {
		return host.Config{}, err
	}
	cfg, err := raw.HostConfig()
	if err != nil {
		return host.Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return host.Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := gotoml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

// daemonFile is the flat nexusd.toml layout.
type daemonFile struct {
	Endpoint             string `toml:"endpoint"`
	Verbose              bool   `toml:"verbose"`
	Seed                 int64  `toml:"seed"`
	HistoryCapacity      int    `toml:"history_capacity"`
	HandshakeTimeout     string `toml:"handshake_timeout"`
	ReadTimeout          string `toml:"read_timeout"`
	WriteTimeout         string `toml:"write_timeout"`
	ReconnectDelay       string `toml:"reconnect_delay"`
	MinActionInterval    string `toml:"min_action_interval"`
	SessionSecurityMode  string `toml:"session_security_mode"`
	SessionTLSEnabled    bool   `toml:"session_tls_enabled"`
	SessionTLSMutual     bool   `toml:"session_tls_mutual"`
	SessionTLSCertFile   string `toml:"session_tls_cert_file"`
	SessionTLSKeyFile    string `toml:"session_tls_key_file"`
	SessionTLSCAFile     string `toml:"session_tls_ca_file"`
	SessionTLSServerName string `toml:"session_tls_server_name"`
	SessionTLSInsecure   bool   `toml:"session_tls_insecure_skip_verify"`
}

// LoadDaemonConfig overlays the keys present in a nexusd.toml onto
// daemon.DefaultConfig.
func LoadDaemonConfig(path string) (daemon.Config, error) {
	cfg := daemon.DefaultConfig()

	var raw daemonFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return daemon.Config{}, fmt.Errorf("load nexusd config: %w", err)
	}

	if meta.IsDefined("endpoint") {
		cfg.Endpoint = strings.TrimSpace(raw.Endpoint)
	}
	if meta.IsDefined("verbose") {
		cfg.Verbose = raw.Verbose
	}
	if meta.IsDefined("seed") {
		cfg.Seed = raw.Seed
	}
	if meta.IsDefined("history_capacity") {
		cfg.HistoryCapacity = raw.HistoryCapacity
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"handshake_timeout", raw.HandshakeTimeout, &cfg.Session.HandshakeTimeout},
		{"read_timeout", raw.ReadTimeout, &cfg.Session.ReadTimeout},
		{"write_timeout", raw.WriteTimeout, &cfg.Session.WriteTimeout},
		{"reconnect_delay", raw.ReconnectDelay, &cfg.Session.ReconnectDelay},
		{"min_action_interval", raw.MinActionInterval, &cfg.Session.MinActionInterval},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := parseDuration(d.key, d.raw)
		if err != nil {
			return daemon.Config{}, fmt.Errorf("load nexusd config: %w", err)
		}
		*d.dst = v
	}

	if meta.IsDefined("session_security_mode") {
		cfg.Session.SecurityMode = session.SecurityMode(strings.TrimSpace(raw.SessionSecurityMode))
	}
	if meta.IsDefined("session_tls_enabled") {
		cfg.Session.TLS.Enabled = raw.SessionTLSEnabled
	}
	if meta.IsDefined("session_tls_mutual") {
		cfg.Session.TLS.Mutual = raw.SessionTLSMutual
	}
	if meta.IsDefined("session_tls_cert_file") {
		cfg.Session.TLS.CertFile = strings.TrimSpace(raw.SessionTLSCertFile)
	}
	if meta.IsDefined("session_tls_key_file") {
		cfg.Session.TLS.KeyFile = strings.TrimSpace(raw.SessionTLSKeyFile)
	}
	if meta.IsDefined("session_tls_ca_file") {
		cfg.Session.TLS.CAFile = strings.TrimSpace(raw.SessionTLSCAFile)
	}
	if meta.IsDefined("session_tls_server_name") {
		cfg.Session.TLS.ServerName = strings.TrimSpace(raw.SessionTLSServerName)
	}
	if meta.IsDefined("session_tls_insecure_skip_verify") {
		cfg.Session.TLS.InsecureSkipVerify = raw.SessionTLSInsecure
	}

	if err := cfg.Validate(); err != nil {
		return daemon.Config{}, fmt.Errorf("load nexusd config: %w", err)
	}
	return cfg, nil
}

func parseDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidDuration, key, raw)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: %s must not be negative", ErrInvalidDuration, key)
	}
	return d, nil
}
