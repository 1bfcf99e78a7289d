package walk

import (
	"testing"

	"github.com/twpayne/go-geom"
)

func TestSplit_Collection(t *testing.T) {
	poly := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		{{0, 0}, {4, 0}, {4, 4}, {0, 4}, {0, 0}},
		{{1, 1}, {2, 1}, {2, 2}, {1, 1}},
	})
	line := geom.NewLineString(geom.XY).MustSetCoords([]geom.Coord{{5, 5}, {6, 6}})
	pt := geom.NewPoint(geom.XY).MustSetCoords(geom.Coord{9, 9})
	gc := geom.NewGeometryCollection().MustPush(poly, line, pt)

	p, err := Split(gc)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(p.Polygons) != 1 || len(p.Paths) != 3 || len(p.Points) != 1 {
		t.Fatalf("got %d polygons, %d paths, %d points", len(p.Polygons), len(p.Paths), len(p.Points))
	}
	if len(p.Paths[1]) != 4 {
		t.Fatalf("hole ring should keep its 4 vertices, got %v", p.Paths[1])
	}
	// ring closing vertices are not repeated
	if n := len(p.Vertices()); n != 4+3+2+1 {
		t.Fatalf("vertices=%d", n)
	}

	minX, minY, maxX, maxY, ok := Bounds(gc)
	if !ok || minX != 0 || minY != 0 || maxX != 9 || maxY != 9 {
		t.Fatalf("bounds=(%v %v, %v %v) ok=%v", minX, minY, maxX, maxY, ok)
	}
}

func TestBounds_Empty(t *testing.T) {
	if _, _, _, _, ok := Bounds(geom.NewGeometryCollection()); ok {
		t.Fatalf("empty collection has no bounds")
	}
	if IsPoint(geom.NewPointEmpty(geom.XY)) {
		t.Fatalf("empty point is not a point")
	}
}
