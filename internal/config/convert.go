package config

import (
	"strings"

	"github.com/danmuck/resonator/internal/host"
	"github.com/danmuck/resonator/internal/protocol/session"
)

func hostFileFrom(cfg host.Config) HostFile {
	return HostFile{
		Name:        cfg.Name,
		Addr:        cfg.Addr,
		CorsOrigins: cfg.CORSOrigins,
		Grid: GridSection{
			Size:            cfg.GridSize,
			Coupling:        cfg.Coupling,
			Noise:           cfg.Noise,
			Seed:            cfg.Seed,
			HistoryCapacity: cfg.HistoryCapacity,
			LocalWindow:     cfg.LocalWindow,
		},
		Loop: LoopSection{
			Dt:                 cfg.Dt,
			TickInterval:       cfg.TickInterval.String(),
			BroadcastEvery:     cfg.BroadcastEvery,
			RecordEvery:        cfg.RecordEvery,
			ApplyPerturbations: cfg.ApplyPerturbations,
		},
		Session: SessionFields{
			SecurityMode:  string(cfg.Session.SecurityMode),
			WriteTimeout:  cfg.Session.WriteTimeout.String(),
			TLSEnabled:    cfg.Session.TLS.Enabled,
			TLSMutual:     cfg.Session.TLS.Mutual,
			TLSCertFile:   cfg.Session.TLS.CertFile,
			TLSKeyFile:    cfg.Session.TLS.KeyFile,
			TLSCAFile:     cfg.Session.TLS.CAFile,
			TLSServerName: cfg.Session.TLS.ServerName,
		},
	}
}

// HostConfig converts the file layout into the host runtime config.
func (f HostFile) HostConfig() (host.Config, error) {
	tick, err := parseDuration("loop.tick_interval", f.Loop.TickInterval)
	if err != nil {
		return host.Config{}, err
	}
	write, err := parseDuration("session.write_timeout", f.Session.WriteTimeout)
	if err != nil {
		return host.Config{}, err
	}
	sess := session.DefaultConfig()
	sess.WriteTimeout = write
	sess.SecurityMode = session.SecurityMode(strings.TrimSpace(f.Session.SecurityMode))
	sess.TLS = session.TLSConfig{
		Enabled:    f.Session.TLSEnabled,
		Mutual:     f.Session.TLSMutual,
		CertFile:   strings.TrimSpace(f.Session.TLSCertFile),
		KeyFile:    strings.TrimSpace(f.Session.TLSKeyFile),
		CAFile:     strings.TrimSpace(f.Session.TLSCAFile),
		ServerName: strings.TrimSpace(f.Session.TLSServerName),
	}

	return host.Config{
		Name:               strings.TrimSpace(f.Name),
		Addr:               strings.TrimSpace(f.Addr),
		GridSize:           f.Grid.Size,
		Coupling:           f.Grid.Coupling,
		Noise:              f.Grid.Noise,
		Seed:               f.Grid.Seed,
		Dt:                 f.Loop.Dt,
		TickInterval:       tick,
		BroadcastEvery:     f.Loop.BroadcastEvery,
		RecordEvery:        f.Loop.RecordEvery,
		HistoryCapacity:    f.Grid.HistoryCapacity,
		LocalWindow:        f.Grid.LocalWindow,
		ApplyPerturbations: f.Loop.ApplyPerturbations,
		CORSOrigins:        normalizeOrigins(f.CorsOrigins),
		Session:            sess,
	}, nil
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		if v := strings.TrimSpace(origin); v != "" {
			out = append(out, v)
		}
	}
	return out
}
