package shape

import (
	"fmt"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/mohammed-shakir/geoshape-index/internal/geo/distance"
	"github.com/mohammed-shakir/geoshape-index/internal/geoerr"
)

// textKernel renders every operation as text so evaluation order is visible.
type textKernel struct{}

func (textKernel) ParseWKT(text string) (string, error) {
	if strings.HasPrefix(text, "BAD") {
		return "", errors.New("unexpected token")
	}
	return text, nil
}

func (textKernel) BoundingBox(g string) (string, error) { return "bbox(" + g + ")", nil }
func (textKernel) Centroid(g string) (string, error)    { return "centroid(" + g + ")", nil }
func (textKernel) ConvexHull(g string) (string, error)  { return "hull(" + g + ")", nil }

func (textKernel) Buffer(g string, deg float64) (string, error) {
	return fmt.Sprintf("buffer(%s,%g)", g, deg), nil
}

func (textKernel) Difference(a, b string) (string, error)   { return binary("difference", a, b) }
func (textKernel) Intersection(a, b string) (string, error) { return binary("intersection", a, b) }
func (textKernel) Union(a, b string) (string, error)        { return binary("union", a, b) }

func binary(op, a, b string) (string, error) {
	if a == "FAIL" || b == "FAIL" {
		return "", errors.New("self-intersection")
	}
	return op + "(" + a + "," + b + ")", nil
}

var k textKernel

func mustEval(t *testing.T, s Shape) string {
	t.Helper()
	g, err := Evaluate[string](k, s)
	if err != nil {
		t.Fatalf("Evaluate(%s): %v", s, err)
	}
	return g
}

func TestEvaluate_LiteralIsKernelParse(t *testing.T) {
	for _, text := range []string{"POINT(0 0)", "POLYGON((0 0,0 1,1 1,1 0,0 0))", "LINESTRING(1 1,2 2)"} {
		want, _ := k.ParseWKT(text)
		if got := mustEval(t, NewWKT(text)); got != want {
			t.Fatalf("got %q want %q", got, want)
		}
	}
}

func TestEvaluate_SingleOperandFoldIsIdentity(t *testing.T) {
	inner := NewBBox(NewWKT("a"))
	want := mustEval(t, inner)
	for _, s := range []Shape{NewUnion(inner), NewIntersection(inner), NewDifference(inner)} {
		if got := mustEval(t, s); got != want {
			t.Fatalf("%s: got %q want %q", s, got, want)
		}
	}
}

func TestEvaluate_FoldsLeftInDeclarationOrder(t *testing.T) {
	a, b, c := NewWKT("a"), NewWKT("b"), NewWKT("c")

	got := mustEval(t, NewDifference(a, b, c))
	if got != "difference(difference(a,b),c)" {
		t.Fatalf("difference: got %q", got)
	}
	nested := mustEval(t, NewDifference(a, NewDifference(b, c)))
	if got == nested {
		t.Fatalf("left fold must differ from right-nested difference")
	}

	if got := mustEval(t, NewUnion(a, b, c)); got != "union(union(a,b),c)" {
		t.Fatalf("union: got %q", got)
	}
	if got := mustEval(t, NewIntersection(c, b, a)); got != "intersection(intersection(c,b),a)" {
		t.Fatalf("intersection: got %q", got)
	}
}

func TestEvaluate_Buffer(t *testing.T) {
	a := NewWKT("a")
	if got := mustEval(t, NewBuffer(a, nil, nil)); got != "a" {
		t.Fatalf("unbounded buffer should be a no-op, got %q", got)
	}

	maxD := distance.MustParse("2deg")
	if got := mustEval(t, NewBuffer(a, nil, &maxD)); got != "buffer(a,2)" {
		t.Fatalf("outer buffer: got %q", got)
	}

	minD := distance.MustParse("1deg")
	if got := mustEval(t, NewBuffer(a, &minD, &maxD)); got != "difference(buffer(a,2),buffer(a,1))" {
		t.Fatalf("annulus: got %q", got)
	}

	// an inverted range is left to the kernel's difference
	got, err := Evaluate[string](k, NewBuffer(a, &maxD, &minD))
	if err != nil || got != "difference(buffer(a,1),buffer(a,2))" {
		t.Fatalf("inverted range: got %q, %v", got, err)
	}

	// without an outer bound the shape itself is the outer ring
	if got := mustEval(t, NewBuffer(a, &minD, nil)); got != "difference(a,buffer(a,1))" {
		t.Fatalf("inner only: got %q", got)
	}
}

func TestNewBuffer_CopiesBounds(t *testing.T) {
	d := distance.MustParse("1deg")
	b := NewBuffer(nil, nil, &d)
	d.Value = 50
	got, ok := b.MaxDistance()
	if !ok || got.Value != 1 {
		t.Fatalf("buffer must not observe later changes, got %v", got)
	}
	if _, ok := b.MinDistance(); ok {
		t.Fatalf("min distance should be absent")
	}
}

func TestEvaluate_EmptyFoldIsConfigurationError(t *testing.T) {
	for _, s := range []Shape{NewUnion(), NewIntersection(), NewDifference()} {
		_, err := Evaluate[string](k, s)
		if !errors.Is(err, geoerr.ErrConfiguration) {
			t.Fatalf("%s: expected configuration error, got %v", s.Kind(), err)
		}
	}
}

func TestEvaluate_ParseErrorCarriesText(t *testing.T) {
	_, err := Evaluate[string](k, NewUnion(NewWKT("a"), NewBBox(NewWKT("BAD(1"))))
	if !errors.Is(err, geoerr.ErrGeometryParse) {
		t.Fatalf("expected parse error, got %v", err)
	}
	var pe *geoerr.ParseError
	if !errors.As(err, &pe) || pe.Text != "BAD(1" {
		t.Fatalf("expected offending text, got %#v", pe)
	}
}

func TestEvaluate_OperationErrorPropagates(t *testing.T) {
	_, err := Evaluate[string](k, NewIntersection(NewWKT("a"), NewWKT("FAIL")))
	if !errors.Is(err, geoerr.ErrGeometryOperation) {
		t.Fatalf("expected operation error, got %v", err)
	}
	var oe *geoerr.OperationError
	if !errors.As(err, &oe) || oe.Op != "intersection" {
		t.Fatalf("expected intersection op, got %#v", oe)
	}
}

func TestEvaluate_OmittedOperandNeedsInput(t *testing.T) {
	_, err := Evaluate[string](k, NewCentroid(nil))
	if !errors.Is(err, geoerr.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestApply_BindsInput(t *testing.T) {
	cases := []struct {
		shape Shape
		want  string
	}{
		{NewBBox(nil), "bbox(in)"},
		{NewConvexHull(NewCentroid(nil)), "hull(centroid(in))"},
		{NewDifference(NewWKT("x")), "difference(in,x)"},
		{NewUnion(), "in"},
		{NewUnion(NewWKT("x"), NewWKT("y")), "union(union(in,x),y)"},
		// only the root takes the input as an extra operand
		{NewBBox(NewUnion(NewWKT("x"), NewWKT("y"))), "bbox(union(x,y))"},
		{NewIntersection(NewUnion(nil, NewWKT("y"))), "intersection(in,union(in,y))"},
		{NewWKT("z"), "z"},
	}
	for _, c := range cases {
		got, err := Apply[string](k, c.shape, "in")
		if err != nil {
			t.Fatalf("Apply(%s): %v", c.shape, err)
		}
		if got != c.want {
			t.Fatalf("Apply(%s)=%q want %q", c.shape, got, c.want)
		}
	}
}

func TestShape_OperandsAreCopied(t *testing.T) {
	ops := []Shape{NewWKT("a"), NewWKT("b")}
	u := NewUnion(ops...)
	ops[0] = NewWKT("changed")
	if got := mustEval(t, u); got != "union(a,b)" {
		t.Fatalf("union must own its operands, got %q", got)
	}
	got := u.Operands()
	got[1] = nil
	if u.Operands()[1] == nil {
		t.Fatalf("Operands must return a copy")
	}
}

func TestShape_String(t *testing.T) {
	s := NewUnion(NewWKT("POINT(1 2)"), NewBBox(nil))
	if got := s.String(); got != "union(wkt(POINT(1 2)), bbox(input))" {
		t.Fatalf("String()=%q", got)
	}
}
