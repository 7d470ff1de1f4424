package session

import "time"

type SecurityMode string

const (
	SecurityModeDevelopment SecurityMode = "development"
	SecurityModeProduction  SecurityMode = "production"
)

// TLSConfig configures wss:// dialing and TLS serving.
type TLSConfig struct {
	Enabled            bool
	Mutual             bool
	CertFile           string
	KeyFile            string
	CAFile             string
	ServerName         string
	InsecureSkipVerify bool
}

// Config defines transport/session reliability defaults.
//
// ReadTimeout doubles as the idle heartbeat interval: a receive that times
// out is not an error, it triggers a heartbeat.
type Config struct {
	HandshakeTimeout  time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	ReconnectDelay    time.Duration
	MinActionInterval time.Duration
	SecurityMode      SecurityMode
	TLS               TLSConfig
}

// DefaultConfig returns the daemon's stock timings.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout:  5 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      5 * time.Second,
		ReconnectDelay:    5 * time.Second,
		MinActionInterval: 500 * time.Millisecond,
		SecurityMode:      SecurityModeDevelopment,
	}
}

// WithDefaults fills unset (zero or negative) durations from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = def.ReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = def.ReconnectDelay
	}
	if c.MinActionInterval < 0 {
		c.MinActionInterval = def.MinActionInterval
	}
	c.SecurityMode = NormalizeSecurityMode(c.SecurityMode)
	return c
}
