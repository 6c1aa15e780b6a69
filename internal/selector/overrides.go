package selector

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed overrides.yaml
var builtinOverrides []byte

// ErrInvalidOverride is returned for malformed override entries
var ErrInvalidOverride = errors.New("invalid override")

// Span is a half-open [Start, End) range of character offsets
type Span struct {
	Start int
	End   int
}

// UnmarshalYAML decodes a span written as a two-element sequence
func (s *Span) UnmarshalYAML(node *yaml.Node) error {
	var pair []int
	if err := node.Decode(&pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("%w: span must be [start, end], got %d values", ErrInvalidOverride, len(pair))
	}
	s.Start, s.End = pair[0], pair[1]
	return nil
}

// MarshalYAML encodes a span as [start, end]
func (s Span) MarshalYAML() (interface{}, error) {
	return []int{s.Start, s.End}, nil
}

// Overrides holds per-report manual corrections. It is read-only after loading.
type Overrides struct {
	spans    map[string]Span
	sections map[string]string
}

type overridesFile struct {
	Spans    map[string]Span   `yaml:"spans"`
	Sections map[string]string `yaml:"sections"`
}

// NewOverrides builds an override table from literal maps
func NewOverrides(spans map[string]Span, sections map[string]string) (*Overrides, error) {
	o := &Overrides{
		spans:    make(map[string]Span, len(spans)),
		sections: make(map[string]string, len(sections)),
	}

	for id, span := range spans {
		if span.Start < 0 || span.End < span.Start {
			return nil, fmt.Errorf("%w: %s: span [%d, %d)", ErrInvalidOverride, id, span.Start, span.End)
		}
		o.spans[id] = span
	}

	for id, name := range sections {
		name = strings.TrimSpace(strings.ToLower(name))
		if name == "" {
			return nil, fmt.Errorf("%w: %s: empty section name", ErrInvalidOverride, id)
		}
		o.sections[id] = name
	}

	return o, nil
}

// ParseOverrides decodes an override table from YAML
func ParseOverrides(data []byte) (*Overrides, error) {
	var f overridesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse overrides: %w", err)
	}
	return NewOverrides(f.Spans, f.Sections)
}

// LoadOverrides reads an override table from path, or the built-in table when path is empty
func LoadOverrides(path string) (*Overrides, error) {
	if path == "" {
		return DefaultOverrides()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read overrides: %w", err)
	}
	return ParseOverrides(data)
}

// DefaultOverrides returns the built-in MIMIC-CXR corrections
func DefaultOverrides() (*Overrides, error) {
	return ParseOverrides(builtinOverrides)
}

// Span returns the literal span override for a report
func (o *Overrides) Span(id string) (Span, bool) {
	if o == nil {
		return Span{}, false
	}
	s, ok := o.spans[id]
	return s, ok
}

// Section returns the section-name override for a report
func (o *Overrides) Section(id string) (string, bool) {
	if o == nil {
		return "", false
	}
	s, ok := o.sections[id]
	return s, ok
}

// Len returns the total number of overrides
func (o *Overrides) Len() int {
	if o == nil {
		return 0
	}
	return len(o.spans) + len(o.sections)
}
