// Package h3mapper covers geometries with H3 cells. H3 children are not
// strictly contained by their parent, so ancestors are approximate; Widen
// lets queries reach cells across a parent boundary.
package h3mapper

import (
	"errors"
	"fmt"
	"math"

	"github.com/twpayne/go-geom"
	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/geoshape-index/internal/geo/walk"
	"github.com/mohammed-shakir/geoshape-index/internal/mapper"
)

const (
	Name = "h3"

	// mean hexagon area (km^2) and edge length (km) at resolution 0
	res0AreaKm2 = 4357449.416
	res0EdgeKm  = 1281.256
	kmPerDegree = 111.32

	// upper bound on edge samples per segment
	maxSamples = 4096
)

type Mapper struct{}

func New() *Mapper { return &Mapper{} }

func (*Mapper) Name() string  { return Name }
func (*Mapper) MinLevel() int { return 0 }
func (*Mapper) MaxLevel() int { return 15 }

// Cover maps points straight to their cell. Other shapes pick the finest
// resolution whose estimated cell count fits maxCells, then polyfill the
// areal parts and sample every edge so lines and thin shapes are covered too.
func (m *Mapper) Cover(g geom.T, maxRes, maxCells int) ([]string, error) {
	if err := validateRes(maxRes); err != nil {
		return nil, err
	}
	if maxCells <= 0 {
		maxCells = mapper.DefaultMaxCells
	}
	if walk.IsPoint(g) {
		p := g.(*geom.Point)
		c, err := h3.LatLngToCell(h3.LatLng{Lat: p.Y(), Lng: p.X()}, maxRes)
		if err != nil {
			return nil, fmt.Errorf("h3 cell: %w", err)
		}
		return []string{c.String()}, nil
	}
	minX, minY, maxX, maxY, ok := walk.Bounds(g)
	if !ok {
		return nil, nil
	}
	parts, err := walk.Split(g)
	if err != nil {
		return nil, err
	}

	res := pickRes(maxRes, maxCells, minX, minY, maxX, maxY)
	var out []string
	for _, poly := range parts.Polygons {
		cells, err := polyfill(poly, res)
		if err != nil {
			return nil, err
		}
		out = append(out, cells...)
	}
	step := edgeDegrees(res) / 2
	for _, path := range parts.Paths {
		cells, err := pathCells(path, res, step)
		if err != nil {
			return nil, err
		}
		out = append(out, cells...)
	}
	for _, p := range parts.Points {
		c, err := h3.LatLngToCell(h3.LatLng{Lat: p.Y, Lng: p.X}, res)
		if err != nil {
			return nil, fmt.Errorf("h3 cell: %w", err)
		}
		out = append(out, c.String())
	}
	return mapper.SortedUnique(out), nil
}

func pickRes(maxRes, maxCells int, minX, minY, maxX, maxY float64) int {
	midLat := (minY + maxY) / 2 * math.Pi / 180
	w := (maxX - minX) * kmPerDegree * math.Cos(midLat)
	h := (maxY - minY) * kmPerDegree
	area := math.Max(w, 0) * math.Max(h, 0)
	res := maxRes
	for ; res > 0; res-- {
		if area/cellAreaKm2(res) <= float64(maxCells) {
			break
		}
	}
	return res
}

func cellAreaKm2(res int) float64 { return res0AreaKm2 / math.Pow(7, float64(res)) }

func edgeDegrees(res int) float64 {
	return res0EdgeKm / math.Pow(math.Sqrt(7), float64(res)) / kmPerDegree
}

func pathCells(path []walk.XY, res int, step float64) ([]string, error) {
	var out []string
	add := func(x, y float64) error {
		c, err := h3.LatLngToCell(h3.LatLng{Lat: y, Lng: x}, res)
		if err != nil {
			return fmt.Errorf("h3 cell: %w", err)
		}
		out = append(out, c.String())
		return nil
	}
	for i, p := range path {
		if err := add(p.X, p.Y); err != nil {
			return nil, err
		}
		if i == 0 {
			continue
		}
		prev := path[i-1]
		n := int(math.Ceil(math.Hypot(p.X-prev.X, p.Y-prev.Y) / step))
		n = min(n, maxSamples)
		for s := 1; s < n; s++ {
			f := float64(s) / float64(n)
			if err := add(prev.X+f*(p.X-prev.X), prev.Y+f*(p.Y-prev.Y)); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// --- helpers ---

func validateRes(res int) error {
	if res < 0 || res > 15 {
		return fmt.Errorf("invalid H3 resolution %d (must be 0..15)", res)
	}
	return nil
}

// toLoop converts a ring to an h3.GeoLoop, dropping the duplicated closing
// vertex if present.
func toLoop(ring []walk.XY) h3.GeoLoop {
	loop := make(h3.GeoLoop, 0, len(ring))
	for _, xy := range ring {
		loop = append(loop, h3.LatLng{Lat: xy.Y, Lng: xy.X})
	}
	if len(loop) >= 2 {
		last := loop[len(loop)-1]
		first := loop[0]
		if last.Lat == first.Lat && last.Lng == first.Lng {
			loop = loop[:len(loop)-1]
		}
	}
	return loop
}

func polyfill(poly *geom.Polygon, res int) ([]string, error) {
	var rings [][]walk.XY
	for i := 0; i < poly.NumLinearRings(); i++ {
		r := poly.LinearRing(i)
		ring := make([]walk.XY, 0, r.NumCoords())
		for _, c := range r.Coords() {
			ring = append(ring, walk.XY{X: c.X(), Y: c.Y()})
		}
		rings = append(rings, ring)
	}
	if len(rings) == 0 {
		return nil, errors.New("empty polygon")
	}
	outer := toLoop(rings[0])
	if len(outer) < 3 {
		return nil, errors.New("outer ring has < 3 distinct vertices")
	}
	var holes []h3.GeoLoop
	for i := 1; i < len(rings); i++ {
		h := toLoop(rings[i])
		if len(h) < 3 {
			return nil, fmt.Errorf("hole %d has < 3 distinct vertices", i-1)
		}
		holes = append(holes, h)
	}
	indexes, err := h3.PolygonToCells(h3.GeoPolygon{GeoLoop: outer, Holes: holes}, res)
	if err != nil {
		return nil, fmt.Errorf("h3 polyfill: %w", err)
	}
	out := make([]string, 0, len(indexes))
	for _, idx := range indexes {
		out = append(out, idx.String())
	}
	return out, nil
}
