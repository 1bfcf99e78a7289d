// Package s2mapper covers geometries with S2 cells using the region
// coverer. Cells are written as S2 tokens.
package s2mapper

import (
	"fmt"

	"github.com/golang/geo/s2"
	"github.com/twpayne/go-geom"

	"github.com/mohammed-shakir/geoshape-index/internal/geo/walk"
	"github.com/mohammed-shakir/geoshape-index/internal/mapper"
)

const Name = "s2"

// maxLevel is the leaf level of the S2 hierarchy.
const maxLevel = 30

type Grid struct{}

func New() *Grid { return &Grid{} }

func (*Grid) Name() string  { return Name }
func (*Grid) MinLevel() int { return 0 }
func (*Grid) MaxLevel() int { return maxLevel }

func validateLevel(level int) error {
	if level < 0 || level > maxLevel {
		return fmt.Errorf("invalid S2 level %d (must be 0..%d)", level, maxLevel)
	}
	return nil
}

func (g *Grid) Cover(t geom.T, level, maxCells int) ([]string, error) {
	if err := validateLevel(level); err != nil {
		return nil, err
	}
	if maxCells <= 0 {
		maxCells = mapper.DefaultMaxCells
	}
	parts, err := walk.Split(t)
	if err != nil {
		return nil, err
	}
	rc := &s2.RegionCoverer{MinLevel: 0, MaxLevel: level, MaxCells: maxCells}

	var union s2.CellUnion
	for _, p := range parts.Points {
		union = append(union, s2.CellIDFromLatLng(s2.LatLngFromDegrees(p.Y, p.X)).Parent(level))
	}
	for _, poly := range parts.Polygons {
		if r := toPolygon(poly); r != nil {
			union = append(union, rc.Covering(r)...)
		}
	}
	// rings are covered through their polygons
	for _, path := range lines(t) {
		union = append(union, rc.Covering(toPolyline(path))...)
	}
	union.Normalize()

	out := make([]string, 0, len(union))
	for _, id := range union {
		out = append(out, id.ToToken())
	}
	return mapper.SortedUnique(out), nil
}

func (g *Grid) Ancestors(cell string) ([]string, error) {
	id := s2.CellIDFromToken(cell)
	if !id.IsValid() {
		return nil, fmt.Errorf("invalid s2 token %q", cell)
	}
	out := make([]string, 0, id.Level())
	for l := 0; l < id.Level(); l++ {
		out = append(out, id.Parent(l).ToToken())
	}
	return out, nil
}

func toPolygon(p *geom.Polygon) *s2.Polygon {
	var loops []*s2.Loop
	for i := 0; i < p.NumLinearRings(); i++ {
		coords := p.LinearRing(i).Coords()
		if n := len(coords); n > 1 && coords[0].Equal(geom.XY, coords[n-1]) {
			coords = coords[:n-1]
		}
		if len(coords) < 3 {
			continue
		}
		pts := make([]s2.Point, 0, len(coords))
		for _, c := range coords {
			pts = append(pts, s2.PointFromLatLng(s2.LatLngFromDegrees(c.Y(), c.X())))
		}
		l := s2.LoopFromPoints(pts)
		// rings may arrive clockwise; s2 wants the smaller region on the left
		l.Normalize()
		loops = append(loops, l)
	}
	if len(loops) == 0 {
		return nil
	}
	return s2.PolygonFromLoops(loops)
}

func toPolyline(path []walk.XY) *s2.Polyline {
	lls := make([]s2.LatLng, 0, len(path))
	for _, p := range path {
		lls = append(lls, s2.LatLngFromDegrees(p.Y, p.X))
	}
	return s2.PolylineFromLatLngs(lls)
}

// lines returns the line strings of t, leaving polygon rings out.
func lines(t geom.T) [][]walk.XY {
	var out [][]walk.XY
	switch t := t.(type) {
	case *geom.LineString, *geom.MultiLineString:
		parts, _ := walk.Split(t)
		out = append(out, parts.Paths...)
	case *geom.GeometryCollection:
		for _, child := range t.Geoms() {
			out = append(out, lines(child)...)
		}
	}
	return out
}
