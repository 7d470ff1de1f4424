package protocol

// Type is the `type` discriminator carried by every message.
type Type string

const (
	TypeDaemonConnect       Type = "daemon_connect"
	TypeResonatorState      Type = "resonator_state"
	TypeWeakMeasurement     Type = "weak_measurement"
	TypeModulate            Type = "modulate"
	TypeMeasurementCollapse Type = "measurement_collapse"
	TypeDaemonHeartbeat     Type = "daemon_heartbeat"
)

// MaxMessageBytes bounds a single frame on either side of the connection.
const MaxMessageBytes = 1 << 20

const (
	DefaultOrderParam = 0.5
	DefaultCoherence  = 50.0
)

// Message is implemented by every wire record.
type Message interface {
	MessageType() Type
}

// DaemonConnect announces the controller after a connection is established.
type DaemonConnect struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// ResonatorState is the host's periodic synchronization summary.
type ResonatorState struct {
	OrderParam   float64  `json:"orderParam"`
	Coherence    float64  `json:"coherence"`
	ActiveGlyphs []string `json:"activeGlyphs"`
	Oscillators  int      `json:"oscillators"`
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// WeakMeasurement is the controller's primary directive.
type WeakMeasurement struct {
	Strength float64  `json:"strength"`
	Radius   float64  `json:"radius"`
	WorldPos Position `json:"world_pos"`
	Regime   string   `json:"regime"`
	Trend    string   `json:"trend"`
}

// Modulate suggests a glyph to the overlay.
type Modulate struct {
	Glyph string `json:"glyph"`
}

// MeasurementCollapse reports how many oscillators a measurement touched.
type MeasurementCollapse struct {
	OscillatorsAffected int `json:"oscillators_affected"`
}

// DaemonHeartbeat is sent when no message arrived within the read timeout.
type DaemonHeartbeat struct {
	Actions int    `json:"actions"`
	Regime  string `json:"regime"`
}

func (DaemonConnect) MessageType() Type       { return TypeDaemonConnect }
func (ResonatorState) MessageType() Type      { return TypeResonatorState }
func (WeakMeasurement) MessageType() Type     { return TypeWeakMeasurement }
func (Modulate) MessageType() Type            { return TypeModulate }
func (MeasurementCollapse) MessageType() Type { return TypeMeasurementCollapse }
func (DaemonHeartbeat) MessageType() Type     { return TypeDaemonHeartbeat }
