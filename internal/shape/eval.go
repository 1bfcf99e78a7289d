package shape

import (
	"github.com/cockroachdb/errors"

	"github.com/mohammed-shakir/geoshape-index/internal/geoerr"
)

// Kernel is the geometry capability set the algebra is evaluated against.
// Buffer distances are in degrees.
// Implementations must not mutate their arguments.
type Kernel[G any] interface {
	ParseWKT(text string) (G, error)
	BoundingBox(g G) (G, error)
	Buffer(g G, degrees float64) (G, error)
	Centroid(g G) (G, error)
	ConvexHull(g G) (G, error)
	Difference(a, b G) (G, error)
	Intersection(a, b G) (G, error)
	Union(a, b G) (G, error)
}

// Evaluate computes s with no input geometry bound. Omitted operands are a
// configuration error.
func Evaluate[G any](k Kernel[G], s Shape) (G, error) {
	e := evaluator[G]{k: k}
	return e.eval(s)
}

// Apply computes s as a transformation of in. Omitted unary operands resolve
// to in, and an n-ary root takes in as its first operand.
func Apply[G any](k Kernel[G], s Shape, in G) (G, error) {
	e := evaluator[G]{k: k, in: in, bound: true}
	if n, ok := s.(naryShape); ok {
		return e.fold(s.Kind(), append([]Shape{nil}, n.Operands()...))
	}
	return e.eval(s)
}

type evaluator[G any] struct {
	k     Kernel[G]
	in    G
	bound bool
}

// eval is post-order: operands are fully evaluated before the node's own
// operation runs.
func (e *evaluator[G]) eval(s Shape) (G, error) {
	var zero G
	switch s := s.(type) {
	case nil:
		if !e.bound {
			return zero, geoerr.Configf("shape has an omitted operand but no input geometry")
		}
		return e.in, nil

	case WKT:
		g, err := e.k.ParseWKT(s.text)
		if err != nil {
			return zero, geoerr.Parse(s.text, err)
		}
		return g, nil

	case BBox:
		g, err := e.eval(s.operand)
		if err != nil {
			return zero, err
		}
		out, err := e.k.BoundingBox(g)
		return out, geoerr.Operation("bbox", err)

	case Centroid:
		g, err := e.eval(s.operand)
		if err != nil {
			return zero, err
		}
		out, err := e.k.Centroid(g)
		return out, geoerr.Operation("centroid", err)

	case ConvexHull:
		g, err := e.eval(s.operand)
		if err != nil {
			return zero, err
		}
		out, err := e.k.ConvexHull(g)
		return out, geoerr.Operation("convex_hull", err)

	case Buffer:
		g, err := e.eval(s.operand)
		if err != nil {
			return zero, err
		}
		return e.buffer(s, g)

	case Difference:
		return e.fold(KindDifference, s.operands)
	case Intersection:
		return e.fold(KindIntersection, s.operands)
	case Union:
		return e.fold(KindUnion, s.operands)

	default:
		return zero, errors.AssertionFailedf("unhandled shape variant %T", s)
	}
}

func (e *evaluator[G]) buffer(s Buffer, g G) (G, error) {
	var zero G
	outer := g
	if s.max != nil {
		b, err := e.k.Buffer(g, s.max.Degrees())
		if err != nil {
			return zero, geoerr.Operation("buffer", err)
		}
		outer = b
	}
	if s.min == nil {
		return outer, nil
	}
	inner, err := e.k.Buffer(g, s.min.Degrees())
	if err != nil {
		return zero, geoerr.Operation("buffer", err)
	}
	out, err := e.k.Difference(outer, inner)
	return out, geoerr.Operation("buffer", err)
}

// fold evaluates every operand in declaration order, then combines them
// strictly left to right. A single operand is returned unchanged.
func (e *evaluator[G]) fold(kind Kind, operands []Shape) (G, error) {
	var zero G
	if len(operands) == 0 {
		return zero, geoerr.Configf("%s requires at least one shape", kind)
	}
	var combine func(a, b G) (G, error)
	switch kind {
	case KindDifference:
		combine = e.k.Difference
	case KindIntersection:
		combine = e.k.Intersection
	case KindUnion:
		combine = e.k.Union
	default:
		return zero, errors.AssertionFailedf("%s is not an n-ary shape", kind)
	}

	geoms := make([]G, len(operands))
	for i, o := range operands {
		g, err := e.eval(o)
		if err != nil {
			return zero, err
		}
		geoms[i] = g
	}

	acc := geoms[0]
	for _, g := range geoms[1:] {
		next, err := combine(acc, g)
		if err != nil {
			return zero, geoerr.Operation(kind.String(), err)
		}
		acc = next
	}
	return acc, nil
}
