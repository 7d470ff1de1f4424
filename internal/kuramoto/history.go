package kuramoto

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

var ErrUnknownFormat = errors.New("kuramoto: unknown export format")

type ExportFormat string

const (
	FormatJSON ExportFormat = "json"
	FormatYAML ExportFormat = "yaml"
)

// Snapshot is one recorded state. Phases is row-major, one slice per grid row.
type Snapshot struct {
	R      float64     `json:"R" yaml:"R"`
	Psi    float64     `json:"psi" yaml:"psi"`
	Phases [][]float64 `json:"phases" yaml:"phases"`
}

// RecordState appends the current state to the bounded history, evicting
// the oldest snapshot when full.
func (g *Grid) RecordState() Snapshot {
	s := g.Sample()
	snap := Snapshot{R: s.R, Psi: s.Psi, Phases: rows(g.theta)}
	g.history.Push(snap)
	return snap.clone()
}

// History returns deep copies of recorded snapshots, oldest first.
func (g *Grid) History() []Snapshot {
	stored := g.history.Values()
	out := make([]Snapshot, len(stored))
	for i, s := range stored {
		out[i] = s.clone()
	}
	return out
}

func (g *Grid) HistoryLen() int { return g.history.Len() }

func (g *Grid) ExportHistory(w io.Writer, format ExportFormat) error {
	records := g.History()
	switch format {
	case FormatJSON, "":
		return json.NewEncoder(w).Encode(records)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(records); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// ExportHistoryFile writes the history to path, choosing YAML for .yaml/.yml
// extensions and JSON otherwise.
func (g *Grid) ExportHistoryFile(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("kuramoto: create export %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return g.ExportHistory(f, FormatFromPath(path))
}

func FormatFromPath(path string) ExportFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

func (s Snapshot) clone() Snapshot {
	out := Snapshot{R: s.R, Psi: s.Psi, Phases: make([][]float64, len(s.Phases))}
	for i, row := range s.Phases {
		out.Phases[i] = append([]float64(nil), row...)
	}
	return out
}

func rows(m *mat.Dense) [][]float64 {
	r, _ := m.Dims()
	out := make([][]float64, r)
	for i := 0; i < r; i++ {
		out[i] = mat.Row(nil, i, m)
	}
	return out
}
