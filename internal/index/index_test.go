package index

import (
	"encoding/json"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/twpayne/go-geom"

	geohashmapper "github.com/mohammed-shakir/geoshape-index/internal/mapper/geohash"
)

// fixedGrid covers everything with the same unsorted cells.
type fixedGrid struct{ cells []string }

func (fixedGrid) Name() string  { return "fixed" }
func (fixedGrid) MinLevel() int { return 1 }
func (fixedGrid) MaxLevel() int { return 4 }

func (f fixedGrid) Cover(geom.T, int, int) ([]string, error) {
	out := slices.Clone(f.cells)
	slices.Sort(out)
	return out, nil
}

func (fixedGrid) Ancestors(cell string) ([]string, error) {
	var out []string
	for i := 1; i < len(cell); i++ {
		out = append(out, cell[:i])
	}
	return out, nil
}

// wideGrid treats c+"~" as the only neighbour of c.
type wideGrid struct{ fixedGrid }

func (wideGrid) Widen(cells []string) ([]string, error) {
	var out []string
	for _, c := range cells {
		out = append(out, c, c+"~")
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

func point(x, y float64) *geom.Point {
	return geom.NewPoint(geom.XY).MustSetCoords(geom.Coord{x, y})
}

func TestPrefixTree_LeavesThenAncestors(t *testing.T) {
	tree, err := NewPrefixTree("shape", fixedGrid{cells: []string{"abd", "abc", "ab"}}, 3, 0)
	if err != nil {
		t.Fatalf("NewPrefixTree: %v", err)
	}
	entries, err := tree.CreateEntries(point(0, 0))
	if err != nil {
		t.Fatalf("CreateEntries: %v", err)
	}
	var terms []string
	for _, e := range entries {
		if e.Kind != KindCell || e.Field != "shape" {
			t.Fatalf("unexpected entry %+v", e)
		}
		mark := ""
		if e.Leaf {
			mark = "*"
		}
		terms = append(terms, e.Term+mark)
	}
	// "ab" is a leaf, so it is not repeated as an ancestor
	want := []string{"ab*", "abc*", "abd*", "a"}
	if !reflect.DeepEqual(terms, want) {
		t.Fatalf("got %v want %v", terms, want)
	}
}

func TestPrefixTree_LevelBounds(t *testing.T) {
	g := geohashmapper.New()
	for _, lvl := range []int{0, 13} {
		if _, err := NewPrefixTree("f", g, lvl, 0); err == nil {
			t.Fatalf("expected error for level %d", lvl)
		}
	}
	for _, lvl := range []int{1, 12} {
		if _, err := NewPrefixTree("f", g, lvl, 0); err != nil {
			t.Fatalf("level %d should be accepted: %v", lvl, err)
		}
	}
}

func TestTwoTier_PointEntries(t *testing.T) {
	tree, err := NewPrefixTree("shape", geohashmapper.New(), 11, 64)
	if err != nil {
		t.Fatalf("NewPrefixTree: %v", err)
	}
	entries, err := NewTwoTier(tree).CreateEntries(point(0, 0))
	if err != nil {
		t.Fatalf("CreateEntries: %v", err)
	}
	cells, geoms := Count(entries)
	if cells != 11 || geoms != 1 {
		t.Fatalf("cells=%d geometries=%d", cells, geoms)
	}
	if !entries[0].Leaf || entries[0].Term != "s0000000000" {
		t.Fatalf("first entry should be the leaf cell, got %+v", entries[0])
	}
	last := entries[len(entries)-1]
	if last.Kind != KindGeometry {
		t.Fatalf("geometry entry must come last, got %+v", last)
	}
	back, err := DecodeGeometry(last)
	if err != nil {
		t.Fatalf("DecodeGeometry: %v", err)
	}
	p, ok := back.(*geom.Point)
	if !ok || p.X() != 0 || p.Y() != 0 || p.SRID() != SRID {
		t.Fatalf("decoded %#v", back)
	}
}

func TestSerialized_DoesNotTouchInput(t *testing.T) {
	in := point(1, 2)
	if _, err := NewSerialized("f").CreateEntries(in); err != nil {
		t.Fatalf("CreateEntries: %v", err)
	}
	if in.SRID() != 0 {
		t.Fatalf("input SRID changed to %d", in.SRID())
	}
	gc := geom.NewGeometryCollection().MustPush(point(1, 1), point(2, 2))
	entries, err := NewSerialized("f").CreateEntries(gc)
	if err != nil {
		t.Fatalf("collection: %v", err)
	}
	back, err := DecodeGeometry(entries[0])
	if err != nil {
		t.Fatalf("DecodeGeometry: %v", err)
	}
	if back.(*geom.GeometryCollection).NumGeoms() != 2 {
		t.Fatalf("collection lost members")
	}
	if _, err := DecodeGeometry(Entry{Kind: KindCell}); err == nil {
		t.Fatalf("cell entries carry no geometry")
	}
}

func TestEntry_JSONKind(t *testing.T) {
	b, err := json.Marshal(Entry{Field: "f", Kind: KindCell, Term: "u4", Leaf: true})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"kind":"cell"`) {
		t.Fatalf("got %s", b)
	}
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil || e.Kind != KindCell {
		t.Fatalf("unmarshal: %v %+v", err, e)
	}
}

func TestAdapter_Converts(t *testing.T) {
	a := Adapt[[2]float64](NewSerialized("f"), func(xy [2]float64) (geom.T, error) {
		return point(xy[0], xy[1]), nil
	})
	entries, err := a.CreateEntries([2]float64{3, 4})
	if err != nil || len(entries) != 1 {
		t.Fatalf("got %v %v", entries, err)
	}
}

func TestPrefixTree_QueryCellsWidenOnlyWhenGridAsks(t *testing.T) {
	plain, err := NewPrefixTree("shape", fixedGrid{cells: []string{"ab", "a~"}}, 3, 0)
	if err != nil {
		t.Fatalf("NewPrefixTree: %v", err)
	}
	leaves, ancestors, err := plain.QueryCells(point(0, 0))
	if err != nil {
		t.Fatalf("QueryCells: %v", err)
	}
	if !reflect.DeepEqual(leaves, []string{"ab", "a~"}) || !reflect.DeepEqual(ancestors, []string{"a"}) {
		t.Fatalf("plain grid: leaves=%v ancestors=%v", leaves, ancestors)
	}

	wide, err := NewPrefixTree("shape", wideGrid{fixedGrid{cells: []string{"ab", "a~"}}}, 3, 0)
	if err != nil {
		t.Fatalf("NewPrefixTree: %v", err)
	}
	leaves, ancestors, err = wide.QueryCells(point(0, 0))
	if err != nil {
		t.Fatalf("QueryCells: %v", err)
	}
	// "a~" is already a leaf, so only "a" stays an ancestor
	if !reflect.DeepEqual(leaves, []string{"ab", "ab~", "a~", "a~~"}) || !reflect.DeepEqual(ancestors, []string{"a"}) {
		t.Fatalf("wide grid: leaves=%v ancestors=%v", leaves, ancestors)
	}

	// documents are never widened
	docLeaves, _, err := wide.Cells(point(0, 0))
	if err != nil || !reflect.DeepEqual(docLeaves, []string{"ab", "a~"}) {
		t.Fatalf("Cells=%v, %v", docLeaves, err)
	}
}
