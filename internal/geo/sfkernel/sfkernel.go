// Package sfkernel evaluates shapes with simplefeatures geometries.
package sfkernel

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/peterstace/simplefeatures/geom"
	gogeom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"

	"github.com/mohammed-shakir/geoshape-index/internal/geo/walk"
)

const (
	DefaultParseCacheSize = 256
	DefaultCircleSegments = 32
)

// Option configures a Kernel.
type Option func(*Kernel)

// WithParseCache sets how many parsed WKT texts are kept. Zero disables the
// cache.
func WithParseCache(size int) Option {
	return func(k *Kernel) { k.cacheSize = size }
}

// WithCircleSegments sets how many sides approximate a buffered vertex.
func WithCircleSegments(n int) Option {
	return func(k *Kernel) { k.segments = n }
}

type parsed struct {
	text string
	g    geom.Geometry
}

// Kernel implements shape.Kernel[geom.Geometry]. It is safe for concurrent
// use; parsed geometries are immutable and shared through the cache.
type Kernel struct {
	cacheSize int
	segments  int
	cache     *lru.Cache[uint64, parsed]
}

func New(opts ...Option) (*Kernel, error) {
	k := &Kernel{cacheSize: DefaultParseCacheSize, segments: DefaultCircleSegments}
	for _, o := range opts {
		o(k)
	}
	if k.segments < 8 {
		return nil, errors.Newf("circle segments must be at least 8, got %d", k.segments)
	}
	if k.cacheSize > 0 {
		c, err := lru.New[uint64, parsed](k.cacheSize)
		if err != nil {
			return nil, errors.Wrap(err, "parse cache")
		}
		k.cache = c
	}
	return k, nil
}

// ParseWKT parses text. Literal leaves of configured transformations are
// parsed once per document, so repeated texts come from the cache.
func (k *Kernel) ParseWKT(text string) (geom.Geometry, error) {
	var key uint64
	if k.cache != nil {
		key = xxhash.Sum64String(text)
		if hit, ok := k.cache.Get(key); ok && hit.text == text {
			return hit.g, nil
		}
	}
	g, err := geom.UnmarshalWKT(text)
	if err != nil {
		return geom.Geometry{}, err
	}
	if k.cache != nil {
		k.cache.Add(key, parsed{text: text, g: g})
	}
	return g, nil
}

func (k *Kernel) BoundingBox(g geom.Geometry) (geom.Geometry, error) {
	return g.Envelope().AsGeometry(), nil
}

func (k *Kernel) Centroid(g geom.Geometry) (geom.Geometry, error) {
	return g.Centroid().AsGeometry(), nil
}

func (k *Kernel) ConvexHull(g geom.Geometry) (geom.Geometry, error) {
	return g.ConvexHull(), nil
}

func (k *Kernel) Difference(a, b geom.Geometry) (geom.Geometry, error) {
	return geom.Difference(a, b)
}

func (k *Kernel) Intersection(a, b geom.Geometry) (geom.Geometry, error) {
	return geom.Intersection(a, b)
}

func (k *Kernel) Union(a, b geom.Geometry) (geom.Geometry, error) {
	return geom.Union(a, b)
}

// Intersects is the exact predicate used to re-verify index candidates.
func (k *Kernel) Intersects(a, b geom.Geometry) bool {
	return geom.Intersects(a, b)
}

// Buffer returns the planar region within degrees of g. Discs around the
// vertices and rectangles along the segments are merged into a band first;
// the areal parts are then unioned into the band one by one.
func (k *Kernel) Buffer(g geom.Geometry, degrees float64) (geom.Geometry, error) {
	if math.IsNaN(degrees) || degrees < 0 {
		return geom.Geometry{}, errors.Newf("invalid buffer distance %v", degrees)
	}
	if degrees == 0 || g.IsEmpty() {
		return g, nil
	}
	t, err := ToGeomT(g)
	if err != nil {
		return geom.Geometry{}, err
	}
	parts, err := walk.Split(t)
	if err != nil {
		return geom.Geometry{}, err
	}

	var pieces []string
	seen := make(map[walk.XY]bool)
	for _, p := range parts.Vertices() {
		if seen[p] {
			continue
		}
		seen[p] = true
		pieces = append(pieces, k.disc(p, degrees))
	}
	for _, path := range parts.Paths {
		for i := 1; i < len(path); i++ {
			if q, ok := segmentQuad(path[i-1], path[i], degrees); ok {
				pieces = append(pieces, q)
			}
		}
	}
	coll, err := geom.UnmarshalWKT("GEOMETRYCOLLECTION(" + strings.Join(pieces, ",") + ")")
	if err != nil {
		return geom.Geometry{}, errors.Wrap(err, "assemble buffer pieces")
	}
	out, err := geom.UnaryUnion(coll)
	if err != nil {
		return geom.Geometry{}, errors.Wrap(err, "merge buffer band")
	}

	for _, poly := range parts.Polygons {
		pg, err := FromGeomT(poly)
		if err != nil {
			return geom.Geometry{}, errors.Wrap(err, "convert polygon part")
		}
		if out, err = geom.Union(out, pg); err != nil {
			return geom.Geometry{}, errors.Wrap(err, "merge polygon part")
		}
	}
	return out, nil
}

func (k *Kernel) disc(c walk.XY, r float64) string {
	ring := make([]walk.XY, 0, k.segments+1)
	for i := 0; i < k.segments; i++ {
		a := 2 * math.Pi * float64(i) / float64(k.segments)
		ring = append(ring, walk.XY{X: c.X + r*math.Cos(a), Y: c.Y + r*math.Sin(a)})
	}
	ring = append(ring, ring[0])
	return polygonWKT(ring)
}

func segmentQuad(p, q walk.XY, r float64) (string, bool) {
	dx, dy := q.X-p.X, q.Y-p.Y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return "", false
	}
	nx, ny := -dy/l*r, dx/l*r
	ring := []walk.XY{
		{X: p.X + nx, Y: p.Y + ny},
		{X: q.X + nx, Y: q.Y + ny},
		{X: q.X - nx, Y: q.Y - ny},
		{X: p.X - nx, Y: p.Y - ny},
		{X: p.X + nx, Y: p.Y + ny},
	}
	return polygonWKT(ring), true
}

func polygonWKT(ring []walk.XY) string {
	var b strings.Builder
	b.WriteString("POLYGON((")
	for i, c := range ring {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(c.X, 'f', -1, 64))
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(c.Y, 'f', -1, 64))
	}
	b.WriteString("))")
	return b.String()
}

// ToGeomT converts g to a go-geom geometry.
func ToGeomT(g geom.Geometry) (gogeom.T, error) {
	t, err := wkb.Unmarshal(g.AsBinary())
	if err != nil {
		return nil, errors.Wrap(err, "convert geometry")
	}
	return t, nil
}

// FromGeomT converts a go-geom geometry back.
func FromGeomT(t gogeom.T) (geom.Geometry, error) {
	b, err := wkb.Marshal(t, binary.LittleEndian)
	if err != nil {
		return geom.Geometry{}, errors.Wrap(err, "convert geometry")
	}
	return geom.UnmarshalWKB(b)
}
