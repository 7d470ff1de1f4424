package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	KindResonator = "resonator"
	KindNexusd    = "nexusd"
)

func Kinds() []string { return []string{KindResonator, KindNexusd} }

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindResonator:
		return resonatorTemplate, nil
	case KindNexusd:
		return nexusdTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

// Validate loads path as a config of the given kind.
func Validate(path, kind string) error {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindResonator:
		_, err := LoadHostConfig(path)
		return err
	case KindNexusd:
		_, err := LoadDaemonConfig(path)
		return err
	default:
		return fmt.Errorf("unknown config kind: %s", kind)
	}
}

const resonatorTemplate = `name = "resonator"
addr = ":11111"
cors_origins = ["http://localhost:3000"]

[grid]
size = 10
coupling = 2.0
noise = 0.1
seed = 0
history_capacity = 1000
local_window = 3

[loop]
dt = 0.05
tick_interval = "50ms"
broadcast_every = 2
record_every = 10
apply_perturbations = false

[session]
security_mode = "development"
write_timeout = "5s"
tls_enabled = false
tls_mutual = false
tls_cert_file = ""
tls_key_file = ""
tls_ca_file = ""
`

const nexusdTemplate = `endpoint = "ws://localhost:11111"
verbose = false
seed = 0
history_capacity = 20

handshake_timeout = "5s"
read_timeout = "5s"
write_timeout = "5s"
reconnect_delay = "5s"
min_action_interval = "500ms"

session_security_mode = "development"
session_tls_enabled = false
session_tls_mutual = false
session_tls_cert_file = ""
session_tls_key_file = ""
session_tls_ca_file = ""
`
