package session

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/resonator/internal/testutil/testlog"
	"github.com/danmuck/resonator/internal/testutil/tlstest"
)

func TestDefaultConfigTimings(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultConfig()
	if cfg.ReadTimeout != 5*time.Second {
		t.Fatalf("unexpected read timeout: %v", cfg.ReadTimeout)
	}
	if cfg.ReconnectDelay != 5*time.Second {
		t.Fatalf("unexpected reconnect delay: %v", cfg.ReconnectDelay)
	}
	if cfg.MinActionInterval != 500*time.Millisecond {
		t.Fatalf("unexpected min action interval: %v", cfg.MinActionInterval)
	}
}

func TestWithDefaultsFillsZeroValues(t *testing.T) {
	testlog.Start(t)
	cfg := Config{ReadTimeout: time.Second, MinActionInterval: 0}.WithDefaults()
	if cfg.ReadTimeout != time.Second {
		t.Fatalf("explicit read timeout overwritten: %v", cfg.ReadTimeout)
	}
	if cfg.ReconnectDelay != 5*time.Second || cfg.WriteTimeout != 5*time.Second {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.MinActionInterval != 0 {
		t.Fatalf("zero min action interval should disable limiting, got %v", cfg.MinActionInterval)
	}
	if cfg.SecurityMode != SecurityModeDevelopment {
		t.Fatalf("unexpected security mode: %q", cfg.SecurityMode)
	}
}

func TestActionDue(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultConfig()
	now := time.Unix(1700000000, 0)
	if !ActionDue(cfg, time.Time{}, now) {
		t.Fatalf("first action must be allowed")
	}
	if ActionDue(cfg, now, now.Add(499*time.Millisecond)) {
		t.Fatalf("action inside interval must be suppressed")
	}
	if !ActionDue(cfg, now, now.Add(500*time.Millisecond)) {
		t.Fatalf("action at interval boundary must be allowed")
	}
}

func TestWaitReconnectHonorsCancel(t *testing.T) {
	testlog.Start(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := DefaultConfig()
	start := time.Now()
	if err := WaitReconnect(ctx, cfg); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("cancelled wait should return immediately")
	}

	cfg.ReconnectDelay = 10 * time.Millisecond
	if err := WaitReconnect(context.Background(), cfg); err != nil {
		t.Fatalf("wait: %v", err)
	}
}

func TestValidateClientTransport(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name string
		cfg  Config
		want error
	}{
		{"dev plain", Config{}, nil},
		{"bad mode", Config{SecurityMode: "paranoid"}, ErrInvalidSecurityMode},
		{"prod needs tls", Config{SecurityMode: SecurityModeProduction}, ErrTLSRequired},
		{"tls needs ca", Config{TLS: TLSConfig{Enabled: true}}, ErrTLSCAFileRequired},
		{"tls insecure ok in dev", Config{TLS: TLSConfig{Enabled: true, InsecureSkipVerify: true}}, nil},
		{"mutual needs cert", Config{TLS: TLSConfig{Enabled: true, Mutual: true, CAFile: "ca"}}, ErrTLSCertFileRequired},
	}
	for _, tc := range cases {
		err := tc.cfg.ValidateClientTransport()
		if tc.want == nil && err != nil {
			t.Fatalf("%s: unexpected err %v", tc.name, err)
		}
		if tc.want != nil && !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v want %v", tc.name, err, tc.want)
		}
	}
}

func TestClientTLSConfigLoadsAuthority(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	ca := tlstest.NewAuthority(t, dir, "resonator-ca")

	cfg := DefaultConfig()
	cfg.TLS = TLSConfig{Enabled: true, CAFile: ca.CAFile()}
	tlsCfg, err := cfg.ClientTLSConfig("wss://resonator.local:11111/ws")
	if err != nil {
		t.Fatalf("client tls config: %v", err)
	}
	if tlsCfg.ServerName != "resonator.local" {
		t.Fatalf("unexpected server name: %q", tlsCfg.ServerName)
	}
	if tlsCfg.RootCAs == nil {
		t.Fatalf("expected root CAs")
	}

	plain, err := DefaultConfig().ClientTLSConfig("ws://localhost:11111")
	if err != nil || plain != nil {
		t.Fatalf("expected nil tls config when disabled, got %v %v", plain, err)
	}

	bogus := filepath.Join(dir, "bogus.pem")
	if err := os.WriteFile(bogus, []byte("not a cert"), 0o600); err != nil {
		t.Fatalf("write bogus: %v", err)
	}
	cfg.TLS.CAFile = bogus
	if _, err := cfg.ClientTLSConfig("wss://x:1"); !errors.Is(err, ErrTLSCABundleInvalid) {
		t.Fatalf("expected ErrTLSCABundleInvalid, got %v", err)
	}
}

func TestServerTLSConfig(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	ca := tlstest.NewAuthority(t, dir, "resonator-ca")
	certFile, keyFile := ca.IssueServerCert(t, dir, "resonator", []string{"localhost"}, []net.IP{net.ParseIP("127.0.0.1")})

	cfg := DefaultConfig()
	cfg.TLS = TLSConfig{Enabled: true, CertFile: certFile, KeyFile: keyFile}
	tlsCfg, err := cfg.ServerTLSConfig()
	if err != nil {
		t.Fatalf("server tls config: %v", err)
	}
	if len(tlsCfg.Certificates) != 1 {
		t.Fatalf("expected one certificate")
	}

	cfg.TLS.KeyFile = ""
	if _, err := cfg.ServerTLSConfig(); !errors.Is(err, ErrTLSKeyFileRequired) {
		t.Fatalf("expected ErrTLSKeyFileRequired, got %v", err)
	}
}
