// Package walk flattens go-geom geometries into the vertices, paths and
// polygons the buffer builder and the grids work on.
package walk

import (
	"github.com/cockroachdb/errors"
	"github.com/twpayne/go-geom"
)

// XY is a longitude/latitude pair.
type XY struct{ X, Y float64 }

// Parts is a geometry split by dimension. Paths holds every line string and
// every polygon ring; Polygons keeps the areal parts whole.
type Parts struct {
	Points   []XY
	Paths    [][]XY
	Polygons []*geom.Polygon
}

// Vertices returns every vertex of every part. The closing vertex of a ring
// is not repeated.
func (p Parts) Vertices() []XY {
	out := append([]XY(nil), p.Points...)
	for _, path := range p.Paths {
		n := len(path)
		if n > 1 && path[0] == path[n-1] {
			n--
		}
		out = append(out, path[:n]...)
	}
	return out
}

// Split walks g, descending into multi geometries and collections.
func Split(g geom.T) (Parts, error) {
	var p Parts
	err := split(g, &p)
	return p, err
}

func split(g geom.T, p *Parts) error {
	if g == nil || g.Empty() {
		return nil
	}
	switch g := g.(type) {
	case *geom.Point:
		p.Points = append(p.Points, XY{g.X(), g.Y()})
	case *geom.MultiPoint:
		for i := 0; i < g.NumPoints(); i++ {
			if pt := g.Point(i); !pt.Empty() {
				p.Points = append(p.Points, XY{pt.X(), pt.Y()})
			}
		}
	case *geom.LineString:
		p.Paths = append(p.Paths, flat(g.FlatCoords(), g.Stride(), 0, len(g.FlatCoords())))
	case *geom.MultiLineString:
		addRings(p, g.FlatCoords(), g.Stride(), 0, g.Ends())
	case *geom.Polygon:
		p.Polygons = append(p.Polygons, g)
		addRings(p, g.FlatCoords(), g.Stride(), 0, g.Ends())
	case *geom.MultiPolygon:
		for i := 0; i < g.NumPolygons(); i++ {
			if err := split(g.Polygon(i), p); err != nil {
				return err
			}
		}
	case *geom.GeometryCollection:
		for _, child := range g.Geoms() {
			if err := split(child, p); err != nil {
				return err
			}
		}
	default:
		return errors.Newf("unsupported geometry type %T", g)
	}
	return nil
}

func addRings(p *Parts, coords []float64, stride, offset int, ends []int) {
	for _, end := range ends {
		if end > offset {
			p.Paths = append(p.Paths, flat(coords, stride, offset, end))
		}
		offset = end
	}
}

func flat(coords []float64, stride, from, to int) []XY {
	out := make([]XY, 0, (to-from)/stride)
	for i := from; i+1 < to; i += stride {
		out = append(out, XY{coords[i], coords[i+1]})
	}
	return out
}

// Bounds returns the envelope of g. ok is false for empty geometries.
func Bounds(g geom.T) (minX, minY, maxX, maxY float64, ok bool) {
	if g == nil || g.Empty() {
		return 0, 0, 0, 0, false
	}
	b := g.Bounds()
	if b == nil || b.IsEmpty() {
		return 0, 0, 0, 0, false
	}
	return b.Min(0), b.Min(1), b.Max(0), b.Max(1), true
}

// IsPoint reports whether g is a single non-empty point.
func IsPoint(g geom.T) bool {
	p, ok := g.(*geom.Point)
	return ok && !p.Empty()
}
