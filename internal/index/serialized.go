package index

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// SRID is the spatial reference written into stored geometries.
const SRID = 4326

// Serialized stores the whole geometry as one EWKB entry.
type Serialized struct {
	field string
}

func NewSerialized(field string) *Serialized { return &Serialized{field: field} }

func (s *Serialized) CreateEntries(g geom.T) ([]Entry, error) {
	withSRID, err := cloneWithSRID(g, SRID)
	if err != nil {
		return nil, err
	}
	b, err := ewkb.Marshal(withSRID, binary.LittleEndian)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s geometry", s.field)
	}
	return []Entry{{Field: s.field, Kind: KindGeometry, Value: b}}, nil
}

// DecodeGeometry reads back the geometry of a geometry entry.
func DecodeGeometry(e Entry) (geom.T, error) {
	if e.Kind != KindGeometry {
		return nil, errors.Newf("entry of kind %s holds no geometry", e.Kind)
	}
	t, err := ewkb.Unmarshal(e.Value)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s geometry", e.Field)
	}
	return t, nil
}

// cloneWithSRID leaves g untouched; it may be shared with other callers.
func cloneWithSRID(g geom.T, srid int) (geom.T, error) {
	switch g := g.(type) {
	case *geom.Point:
		return g.Clone().SetSRID(srid), nil
	case *geom.LineString:
		return g.Clone().SetSRID(srid), nil
	case *geom.Polygon:
		return g.Clone().SetSRID(srid), nil
	case *geom.MultiPoint:
		return g.Clone().SetSRID(srid), nil
	case *geom.MultiLineString:
		return g.Clone().SetSRID(srid), nil
	case *geom.MultiPolygon:
		return g.Clone().SetSRID(srid), nil
	case *geom.GeometryCollection:
		gc := geom.NewGeometryCollection()
		for _, child := range g.Geoms() {
			c, err := cloneWithSRID(child, srid)
			if err != nil {
				return nil, err
			}
			if err := gc.Push(c); err != nil {
				return nil, errors.Wrap(err, "copy collection")
			}
		}
		return gc.SetSRID(srid), nil
	default:
		return nil, errors.Newf("unknown geometry type %T", g)
	}
}
