// Package shape implements the geometry transformation algebra: an immutable
// tree of shape operations evaluated against a pluggable geometry kernel.
//
// The variant set is closed. Every Shape is one of WKT, BBox, Buffer,
// Centroid, ConvexHull, Difference, Intersection or Union, and evaluation
// dispatches on the concrete type. A nil operand stands for the implicit
// input geometry (the document value a transformation is applied to).
package shape

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mohammed-shakir/geoshape-index/internal/geo/distance"
)

// Kind is the variant tag. Its string form is the JSON discriminator.
type Kind int

const (
	KindWKT Kind = iota + 1
	KindBBox
	KindBuffer
	KindCentroid
	KindConvexHull
	KindDifference
	KindIntersection
	KindUnion
)

var kindNames = map[Kind]string{
	KindWKT:          "wkt",
	KindBBox:         "bbox",
	KindBuffer:       "buffer",
	KindCentroid:     "centroid",
	KindConvexHull:   "convex_hull",
	KindDifference:   "difference",
	KindIntersection: "intersection",
	KindUnion:        "union",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Shape is a node of the transformation tree.
type Shape interface {
	Kind() Kind
	String() string
	sealed()
}

type unary struct {
	operand Shape
}

// Operand returns the transformed shape, nil when it is the implicit input.
func (u unary) Operand() Shape { return u.operand }

func (unary) sealed() {}

type nary struct {
	operands []Shape
}

// Operands returns a copy of the operand list in declaration order.
func (n nary) Operands() []Shape { return slices.Clone(n.operands) }

func (n nary) Len() int { return len(n.operands) }

func (nary) sealed() {}

// WKT is the leaf variant: a geometry written as Well-Known Text.
type WKT struct {
	text string
}

func NewWKT(text string) WKT { return WKT{text: text} }

func (s WKT) Text() string { return s.text }
func (WKT) Kind() Kind      { return KindWKT }
func (WKT) sealed()         {}

func (s WKT) String() string {
	const maxLen = 40
	t := strings.TrimSpace(s.text)
	if len(t) > maxLen {
		t = t[:maxLen] + "..."
	}
	return "wkt(" + t + ")"
}

// BBox is the minimal axis-aligned rectangle enclosing its operand.
type BBox struct{ unary }

func NewBBox(operand Shape) BBox { return BBox{unary{operand}} }

func (BBox) Kind() Kind       { return KindBBox }
func (s BBox) String() string { return "bbox(" + operandString(s.operand) + ")" }

// Centroid is the geometric centre of its operand.
type Centroid struct{ unary }

func NewCentroid(operand Shape) Centroid { return Centroid{unary{operand}} }

func (Centroid) Kind() Kind       { return KindCentroid }
func (s Centroid) String() string { return "centroid(" + operandString(s.operand) + ")" }

// ConvexHull is the convex hull of its operand.
type ConvexHull struct{ unary }

func NewConvexHull(operand Shape) ConvexHull { return ConvexHull{unary{operand}} }

func (ConvexHull) Kind() Kind       { return KindConvexHull }
func (s ConvexHull) String() string { return "convex_hull(" + operandString(s.operand) + ")" }

// Buffer is the area within MaxDistance of its operand minus the area within
// MinDistance. Without MaxDistance the operand itself is the outer bound.
type Buffer struct {
	unary
	min *distance.Distance
	max *distance.Distance
}

// NewBuffer copies the bounds, so later changes to min or max are not seen.
func NewBuffer(operand Shape, minDist, maxDist *distance.Distance) Buffer {
	b := Buffer{unary: unary{operand}}
	if minDist != nil {
		v := *minDist
		b.min = &v
	}
	if maxDist != nil {
		v := *maxDist
		b.max = &v
	}
	return b
}

func (s Buffer) MinDistance() (distance.Distance, bool) {
	if s.min == nil {
		return distance.Distance{}, false
	}
	return *s.min, true
}

func (s Buffer) MaxDistance() (distance.Distance, bool) {
	if s.max == nil {
		return distance.Distance{}, false
	}
	return *s.max, true
}

func (Buffer) Kind() Kind { return KindBuffer }

func (s Buffer) String() string {
	var b strings.Builder
	b.WriteString("buffer(")
	b.WriteString(operandString(s.operand))
	if s.min != nil {
		b.WriteString(", min=" + s.min.String())
	}
	if s.max != nil {
		b.WriteString(", max=" + s.max.String())
	}
	b.WriteString(")")
	return b.String()
}

// Difference subtracts every following operand from the first, left to right.
type Difference struct{ nary }

func NewDifference(operands ...Shape) Difference {
	return Difference{nary{slices.Clone(operands)}}
}

func (Difference) Kind() Kind       { return KindDifference }
func (s Difference) String() string { return naryString("difference", s.operands) }

// Intersection folds its operands by pairwise intersection, left to right.
type Intersection struct{ nary }

func NewIntersection(operands ...Shape) Intersection {
	return Intersection{nary{slices.Clone(operands)}}
}

func (Intersection) Kind() Kind       { return KindIntersection }
func (s Intersection) String() string { return naryString("intersection", s.operands) }

// Union folds its operands by pairwise union, left to right.
type Union struct{ nary }

func NewUnion(operands ...Shape) Union {
	return Union{nary{slices.Clone(operands)}}
}

func (Union) Kind() Kind       { return KindUnion }
func (s Union) String() string { return naryString("union", s.operands) }

func operandString(s Shape) string {
	if s == nil {
		return "input"
	}
	return s.String()
}

func naryString(name string, ops []Shape) string {
	parts := make([]string, len(ops))
	for i, o := range ops {
		parts[i] = operandString(o)
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}
