package shape

import (
	"bytes"
	"encoding/json"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/mohammed-shakir/geoshape-index/internal/geo/distance"
	"github.com/mohammed-shakir/geoshape-index/internal/geoerr"
)

// wire is the tagged record every variant is read from.
type wire struct {
	Type        string             `json:"type,omitempty"`
	Value       *string            `json:"value,omitempty"`
	Shape       json.RawMessage    `json:"shape,omitempty"`
	Shapes      []json.RawMessage  `json:"shapes,omitempty"`
	MinDistance *distance.Distance `json:"min_distance,omitempty"`
	MaxDistance *distance.Distance `json:"max_distance,omitempty"`
}

type decodeFunc func(w wire) (Shape, error)

// decoders is filled in init: the unary and n-ary decoders call Decode,
// which reads the table.
var decoders map[Kind]decodeFunc

func init() {
	decoders = map[Kind]decodeFunc{
		KindWKT:          decodeWKT,
		KindBBox:         decodeUnary(func(s Shape) Shape { return NewBBox(s) }),
		KindCentroid:     decodeUnary(func(s Shape) Shape { return NewCentroid(s) }),
		KindConvexHull:   decodeUnary(func(s Shape) Shape { return NewConvexHull(s) }),
		KindBuffer:       decodeBuffer,
		KindDifference:   decodeNary(func(ops []Shape) Shape { return NewDifference(ops...) }),
		KindIntersection: decodeNary(func(ops []Shape) Shape { return NewIntersection(ops...) }),
		KindUnion:        decodeNary(func(ops []Shape) Shape { return NewUnion(ops...) }),
	}
}

var kindByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, n := range kindNames {
		m[n] = k
	}
	return m
}()

// Names returns the supported discriminators in sorted order.
func Names() []string {
	out := make([]string, 0, len(kindByName))
	for n := range kindByName {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// ParseKind resolves a discriminator. The empty string means wkt.
func ParseKind(name string) (Kind, error) {
	if name == "" {
		return KindWKT, nil
	}
	k, ok := kindByName[name]
	if !ok {
		return 0, geoerr.Configf("unknown shape type %q (supported: %s)", name, strings.Join(Names(), ", "))
	}
	return k, nil
}

// Decode reads one shape. JSON null decodes to a nil Shape, the implicit
// input.
func Decode(data []byte) (Shape, error) {
	if isNull(data) {
		return nil, nil
	}
	var w wire
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&w); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decode shape"), geoerr.ErrConfiguration)
	}
	k, err := ParseKind(w.Type)
	if err != nil {
		return nil, err
	}
	return decoders[k](w)
}

// DecodeList reads a JSON array of shapes.
func DecodeList(data []byte) ([]Shape, error) {
	if isNull(data) {
		return nil, nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decode shape list"), geoerr.ErrConfiguration)
	}
	return decodeRaws(raws)
}

func decodeRaws(raws []json.RawMessage) ([]Shape, error) {
	out := make([]Shape, 0, len(raws))
	for i, raw := range raws {
		s, err := Decode(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "shape %d", i)
		}
		out = append(out, s)
	}
	return out, nil
}

func decodeWKT(w wire) (Shape, error) {
	if err := only(w, KindWKT, "value"); err != nil {
		return nil, err
	}
	if w.Value == nil {
		return nil, geoerr.Configf("wkt shape requires a value")
	}
	return NewWKT(*w.Value), nil
}

func decodeUnary(build func(Shape) Shape) decodeFunc {
	return func(w wire) (Shape, error) {
		k, _ := ParseKind(w.Type)
		if err := only(w, k, "shape"); err != nil {
			return nil, err
		}
		operand, err := Decode(w.Shape)
		if err != nil {
			return nil, errors.Wrapf(err, "%s", k)
		}
		return build(operand), nil
	}
}

func decodeBuffer(w wire) (Shape, error) {
	if err := only(w, KindBuffer, "shape", "min_distance", "max_distance"); err != nil {
		return nil, err
	}
	operand, err := Decode(w.Shape)
	if err != nil {
		return nil, errors.Wrap(err, "buffer")
	}
	return NewBuffer(operand, w.MinDistance, w.MaxDistance), nil
}

func decodeNary(build func([]Shape) Shape) decodeFunc {
	return func(w wire) (Shape, error) {
		k, _ := ParseKind(w.Type)
		if err := only(w, k, "shapes"); err != nil {
			return nil, err
		}
		ops, err := decodeRaws(w.Shapes)
		if err != nil {
			return nil, errors.Wrapf(err, "%s", k)
		}
		return build(ops), nil
	}
}

// only rejects keys that belong to other variants.
func only(w wire, k Kind, allowed ...string) error {
	present := map[string]bool{
		"value":        w.Value != nil,
		"shape":        len(w.Shape) > 0 && !isNull(w.Shape),
		"shapes":       w.Shapes != nil,
		"min_distance": w.MinDistance != nil,
		"max_distance": w.MaxDistance != nil,
	}
	for _, key := range []string{"value", "shape", "shapes", "min_distance", "max_distance"} {
		if present[key] && !slices.Contains(allowed, key) {
			return geoerr.Configf("%s shape does not accept %q", k, key)
		}
	}
	return nil
}

func isNull(data []byte) bool {
	t := bytes.TrimSpace(data)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

// out mirrors wire with typed children for encoding.
type out struct {
	Type        string             `json:"type"`
	Value       *string            `json:"value,omitempty"`
	Shape       *out               `json:"shape,omitempty"`
	Shapes      []*out             `json:"shapes,omitempty"`
	MinDistance *distance.Distance `json:"min_distance,omitempty"`
	MaxDistance *distance.Distance `json:"max_distance,omitempty"`
}

func toOut(s Shape) (*out, error) {
	switch s := s.(type) {
	case nil:
		return nil, nil
	case WKT:
		text := s.text
		return &out{Type: KindWKT.String(), Value: &text}, nil
	case BBox:
		return unaryOut(KindBBox, s.operand)
	case Centroid:
		return unaryOut(KindCentroid, s.operand)
	case ConvexHull:
		return unaryOut(KindConvexHull, s.operand)
	case Buffer:
		o, err := unaryOut(KindBuffer, s.operand)
		if err != nil {
			return nil, err
		}
		o.MinDistance, o.MaxDistance = s.min, s.max
		return o, nil
	case naryShape:
		o := &out{Type: s.Kind().String()}
		for _, op := range s.Operands() {
			child, err := toOut(op)
			if err != nil {
				return nil, err
			}
			o.Shapes = append(o.Shapes, child)
		}
		return o, nil
	default:
		return nil, errors.AssertionFailedf("unhandled shape variant %T", s)
	}
}

func unaryOut(k Kind, operand Shape) (*out, error) {
	child, err := toOut(operand)
	if err != nil {
		return nil, err
	}
	return &out{Type: k.String(), Shape: child}, nil
}

// Marshal encodes s in the form Decode reads.
func Marshal(s Shape) ([]byte, error) {
	o, err := toOut(s)
	if err != nil {
		return nil, err
	}
	return json.Marshal(o)
}

func (s WKT) MarshalJSON() ([]byte, error)          { return Marshal(s) }
func (s BBox) MarshalJSON() ([]byte, error)         { return Marshal(s) }
func (s Centroid) MarshalJSON() ([]byte, error)     { return Marshal(s) }
func (s ConvexHull) MarshalJSON() ([]byte, error)   { return Marshal(s) }
func (s Buffer) MarshalJSON() ([]byte, error)       { return Marshal(s) }
func (s Difference) MarshalJSON() ([]byte, error)   { return Marshal(s) }
func (s Intersection) MarshalJSON() ([]byte, error) { return Marshal(s) }
func (s Union) MarshalJSON() ([]byte, error)        { return Marshal(s) }

// List is a JSON-decodable sequence of shapes, used for transformation
// pipelines in field specs.
type List []Shape

func (l *List) UnmarshalJSON(data []byte) error {
	shapes, err := DecodeList(data)
	if err != nil {
		return err
	}
	*l = shapes
	return nil
}
