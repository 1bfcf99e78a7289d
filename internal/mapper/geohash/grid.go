// Package geohashmapper covers geometries with geohash cells. A cell's
// ancestors are its prefixes.
package geohashmapper

import (
	"fmt"
	"math"

	"github.com/pierrre/geohash"
	"github.com/twpayne/go-geom"

	"github.com/mohammed-shakir/geoshape-index/internal/geo/walk"
	"github.com/mohammed-shakir/geoshape-index/internal/mapper"
)

const (
	Name     = "geohash"
	minLevel = 1
	maxLevel = 12
)

type Grid struct{}

func New() *Grid { return &Grid{} }

func (*Grid) Name() string  { return Name }
func (*Grid) MinLevel() int { return minLevel }
func (*Grid) MaxLevel() int { return maxLevel }

func validatePrecision(p int) error {
	if p < minLevel || p > maxLevel {
		return fmt.Errorf("invalid geohash precision %d (must be %d..%d)", p, minLevel, maxLevel)
	}
	return nil
}

// Cover encodes points directly at maxLevel. Anything else is covered by
// the cells of its bounding box at the finest precision that stays within
// maxCells.
func (g *Grid) Cover(t geom.T, maxLevel, maxCells int) ([]string, error) {
	if err := validatePrecision(maxLevel); err != nil {
		return nil, err
	}
	if maxCells <= 0 {
		maxCells = mapper.DefaultMaxCells
	}
	if walk.IsPoint(t) {
		p := t.(*geom.Point)
		return []string{geohash.Encode(p.Y(), p.X(), maxLevel)}, nil
	}
	minX, minY, maxX, maxY, ok := walk.Bounds(t)
	if !ok {
		return nil, nil
	}

	p := maxLevel
	for ; p > minLevel; p-- {
		if n := gridSpan(p, minX, minY, maxX, maxY).count(); n <= maxCells {
			break
		}
	}
	span := gridSpan(p, minX, minY, maxX, maxY)
	out := make([]string, 0, span.count())
	for i := span.x0; i <= span.x1; i++ {
		for j := span.y0; j <= span.y1; j++ {
			lon := -180 + (float64(i)+0.5)*span.w
			lat := -90 + (float64(j)+0.5)*span.h
			out = append(out, geohash.Encode(lat, lon, p))
		}
	}
	return mapper.SortedUnique(out), nil
}

func (g *Grid) Ancestors(cell string) ([]string, error) {
	if err := validatePrecision(len(cell)); err != nil {
		return nil, err
	}
	if _, err := geohash.Decode(cell); err != nil {
		return nil, fmt.Errorf("parse geohash %q: %w", cell, err)
	}
	out := make([]string, 0, len(cell)-1)
	for i := 1; i < len(cell); i++ {
		out = append(out, cell[:i])
	}
	return out, nil
}

// span is the column/row index range of a box at one precision.
type span struct {
	w, h           float64
	x0, x1, y0, y1 int
}

func (s span) count() int { return (s.x1 - s.x0 + 1) * (s.y1 - s.y0 + 1) }

func gridSpan(precision int, minX, minY, maxX, maxY float64) span {
	bits := 5 * precision
	lonBits := (bits + 1) / 2
	latBits := bits / 2
	cols, rows := 1<<lonBits, 1<<latBits
	s := span{w: 360 / float64(cols), h: 180 / float64(rows)}
	s.x0 = index(minX+180, s.w, cols)
	s.x1 = index(maxX+180, s.w, cols)
	s.y0 = index(minY+90, s.h, rows)
	s.y1 = index(maxY+90, s.h, rows)
	return s
}

func index(v, size float64, n int) int {
	i := int(math.Floor(v / size))
	return max(0, min(i, n-1))
}
