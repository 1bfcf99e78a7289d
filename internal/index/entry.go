// Package index turns a final geometry into the entries of the two-tier
// spatial index: grid cells for candidate search and the exact geometry for
// re-verification.
package index

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/twpayne/go-geom"
)

// Kind tells cell entries from geometry entries.
type Kind int

const (
	KindCell Kind = iota + 1
	KindGeometry
)

func (k Kind) String() string {
	switch k {
	case KindCell:
		return "cell"
	case KindGeometry:
		return "geometry"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "cell":
		*k = KindCell
	case "geometry":
		*k = KindGeometry
	default:
		return errors.Newf("unknown entry kind %q", b)
	}
	return nil
}

// Entry is one index term for a document. Cell entries carry a grid cell in
// Term; Leaf is set for the cells of the cover itself and unset for their
// ancestors. Geometry entries carry EWKB in Value.
type Entry struct {
	Field string `json:"field"`
	Kind  Kind   `json:"kind"`
	Term  string `json:"term,omitempty"`
	Leaf  bool   `json:"leaf,omitempty"`
	Value []byte `json:"value,omitempty"`
}

// Strategy expands a geometry into entries. Implementations are read-only
// after construction and safe for concurrent use.
type Strategy interface {
	CreateEntries(g geom.T) ([]Entry, error)
}

// Adapter feeds a Strategy with geometries of another representation.
type Adapter[G any] struct {
	strategy Strategy
	convert  func(G) (geom.T, error)
}

func Adapt[G any](s Strategy, convert func(G) (geom.T, error)) *Adapter[G] {
	return &Adapter[G]{strategy: s, convert: convert}
}

func (a *Adapter[G]) CreateEntries(g G) ([]Entry, error) {
	t, err := a.convert(g)
	if err != nil {
		return nil, err
	}
	return a.strategy.CreateEntries(t)
}

// Count tallies entries by kind.
func Count(entries []Entry) (cells, geometries int) {
	for _, e := range entries {
		switch e.Kind {
		case KindCell:
			cells++
		case KindGeometry:
			geometries++
		}
	}
	return cells, geometries
}
