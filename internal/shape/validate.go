package shape

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/mohammed-shakir/geoshape-index/internal/geoerr"
)

type naryShape interface {
	Shape
	Operands() []Shape
	Len() int
}

// Validate checks s once, before any document is indexed. inputBound reports
// whether s will be applied to an input geometry (Apply) or evaluated on its
// own (Evaluate).
func Validate(s Shape, inputBound bool) error {
	if n, ok := s.(naryShape); ok && inputBound {
		// the input is the first operand of an n-ary root, so an empty list
		// is allowed here
		return validateOperands(n, true, n.Kind().String())
	}
	return validate(s, inputBound, "")
}

func validate(s Shape, inputBound bool, path string) error {
	switch s := s.(type) {
	case nil:
		if !inputBound {
			return geoerr.Configf("%sshape is required", pathPrefix(path))
		}
		return nil
	case WKT:
		if strings.TrimSpace(s.text) == "" {
			return geoerr.Configf("%swkt value is required", pathPrefix(path))
		}
		return nil
	case BBox:
		return validate(s.operand, inputBound, join(path, "bbox"))
	case Centroid:
		return validate(s.operand, inputBound, join(path, "centroid"))
	case ConvexHull:
		return validate(s.operand, inputBound, join(path, "convex_hull"))
	case Buffer:
		return validate(s.operand, inputBound, join(path, "buffer"))
	case naryShape:
		p := join(path, s.Kind().String())
		if s.Len() == 0 {
			return geoerr.Configf("%s requires at least one shape", p)
		}
		return validateOperands(s, inputBound, p)
	default:
		return errors.AssertionFailedf("unhandled shape variant %T", s)
	}
}

func validateOperands(n naryShape, inputBound bool, path string) error {
	for _, o := range n.Operands() {
		if err := validate(o, inputBound, path); err != nil {
			return err
		}
	}
	return nil
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func pathPrefix(path string) string {
	if path == "" {
		return ""
	}
	return path + ": "
}
