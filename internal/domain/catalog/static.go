package catalog

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wellcheck/wellcheck/pkg/scoring"
)

//go:embed snapshot/*.yaml
var snapshotFS embed.FS

// Static serves the definitions bundled with the binary. It is the
// catalog of last resort and is immutable after construction.
type Static struct {
	defs    map[string]*scoring.TestDefinition
	codes   []string
	version string
}

// NewStatic loads the embedded snapshot.
func NewStatic() (*Static, error) {
	sub, err := fs.Sub(snapshotFS, "snapshot")
	if err != nil {
		return nil, err
	}
	return LoadStatic(sub)
}

// LoadStatic parses every .yaml file at the root of fsys and validates the
// resulting set.
func LoadStatic(fsys fs.FS) (*Static, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	defs := make(map[string]*scoring.TestDefinition)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		data, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		def, err := ParseDefinition(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", e.Name(), err)
		}
		if want := strings.TrimSuffix(path.Base(e.Name()), ".yaml"); def.Code != want {
			return nil, fmt.Errorf("%s declares code %q", e.Name(), def.Code)
		}
		defs[def.Code] = def
	}
	if err := ValidateSet(defs); err != nil {
		return nil, err
	}
	return newStatic(defs), nil
}

func newStatic(defs map[string]*scoring.TestDefinition) *Static {
	s := &Static{defs: defs}
	for code, def := range defs {
		s.codes = append(s.codes, code)
		if def.Version > s.version {
			s.version = def.Version
		}
	}
	sort.Strings(s.codes)
	return s
}

// ParseDefinition decodes one YAML definition. Unknown keys are rejected.
func ParseDefinition(data []byte) (*scoring.TestDefinition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var def scoring.TestDefinition
	if err := dec.Decode(&def); err != nil {
		return nil, err
	}
	return &def, nil
}

// MarshalDefinition encodes def in the snapshot file format.
func MarshalDefinition(def *scoring.TestDefinition) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(def); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Static) GetTestDefinition(_ context.Context, code string) (*scoring.TestDefinition, error) {
	def, ok := s.defs[code]
	if !ok {
		return nil, &scoring.NotFoundError{Code: code}
	}
	return def.Clone(), nil
}

// List returns every definition ordered by code.
func (s *Static) List(_ context.Context) ([]*scoring.TestDefinition, error) {
	out := make([]*scoring.TestDefinition, 0, len(s.codes))
	for _, code := range s.codes {
		out = append(out, s.defs[code].Clone())
	}
	return out, nil
}

// Codes returns the codes in the snapshot, sorted.
func (s *Static) Codes() []string {
	return append([]string(nil), s.codes...)
}

// Version is the newest definition version in the snapshot.
func (s *Static) Version() string { return s.version }
