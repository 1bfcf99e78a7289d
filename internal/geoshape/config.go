package geoshape

import (
	"bytes"
	"encoding/json"

	"github.com/cockroachdb/errors"

	"github.com/mohammed-shakir/geoshape-index/internal/geoerr"
	"github.com/mohammed-shakir/geoshape-index/internal/mapper"
	"github.com/mohammed-shakir/geoshape-index/internal/shape"
)

const (
	DefaultMaxLevels = 11
	DefaultGrid      = "geohash"
)

// Config describes one indexed column. It is copied at construction and
// never changes afterwards.
type Config struct {
	Field string
	// Column defaults to Field when empty.
	Column    string
	Validated bool
	MaxLevels int
	Grid      string
	MaxCells  int
	// Transformations run in order over the parsed column value.
	Transformations []shape.Shape
}

// DefaultConfig returns the defaults for field.
func DefaultConfig(field string) Config {
	return Config{
		Field:     field,
		MaxLevels: DefaultMaxLevels,
		Grid:      DefaultGrid,
		MaxCells:  mapper.DefaultMaxCells,
	}
}

// FieldSpec is the JSON form of a Config.
type FieldSpec struct {
	Field           string     `json:"field"`
	Column          *string    `json:"column,omitempty"`
	Validated       bool       `json:"validated,omitempty"`
	MaxLevels       *int       `json:"max_levels,omitempty"`
	Grid            string     `json:"grid,omitempty"`
	MaxCells        int        `json:"max_cells,omitempty"`
	Transformations shape.List `json:"transformations,omitempty"`
	Fields          shape.List `json:"fields,omitempty"`
}

// Config applies defaults. Range checks happen when the mapper is built.
func (s FieldSpec) Config() (Config, error) {
	cfg := DefaultConfig(s.Field)
	if s.Column != nil {
		if *s.Column == "" {
			return Config{}, geoerr.Configf("column for field %q must not be blank", s.Field)
		}
		cfg.Column = *s.Column
	}
	cfg.Validated = s.Validated
	if s.MaxLevels != nil {
		cfg.MaxLevels = *s.MaxLevels
	}
	if s.Grid != "" {
		cfg.Grid = s.Grid
	}
	if s.MaxCells != 0 {
		cfg.MaxCells = s.MaxCells
	}
	switch {
	case s.Transformations != nil && s.Fields != nil:
		return Config{}, geoerr.Configf("field %q sets both transformations and fields", s.Field)
	case s.Fields != nil:
		cfg.Transformations = s.Fields
	default:
		cfg.Transformations = s.Transformations
	}
	return cfg, nil
}

// ParseFieldSpec decodes one field spec, rejecting unknown keys.
func ParseFieldSpec(data []byte) (Config, error) {
	var s FieldSpec
	if err := strictUnmarshal(data, &s); err != nil {
		return Config{}, err
	}
	return s.Config()
}

// ParseSchema decodes a JSON array of field specs.
func ParseSchema(data []byte) ([]Config, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decode schema"), geoerr.ErrConfiguration)
	}
	out := make([]Config, 0, len(raws))
	for i, raw := range raws {
		cfg, err := ParseFieldSpec(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "field spec %d", i)
		}
		out = append(out, cfg)
	}
	return out, nil
}

func strictUnmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, geoerr.ErrConfiguration) {
			return err
		}
		return errors.Mark(errors.Wrap(err, "decode field spec"), geoerr.ErrConfiguration)
	}
	return nil
}
