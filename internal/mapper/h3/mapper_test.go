package h3mapper

import (
	"reflect"
	"slices"
	"sort"
	"testing"

	"github.com/twpayne/go-geom"
	h3 "github.com/uber/h3-go/v4"
)

func stockholm() *geom.Polygon {
	return geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
		{18.00, 59.32}, {18.12, 59.32}, {18.12, 59.38}, {18.00, 59.38}, {18.00, 59.32},
	}})
}

func TestCover_Point(t *testing.T) {
	m := New()
	pt := geom.NewPoint(geom.XY).MustSetCoords(geom.Coord{18.0686, 59.3293})
	cells, err := m.Cover(pt, 9, 64)
	if err != nil {
		t.Fatalf("Cover: %v", err)
	}
	want, err := h3.LatLngToCell(h3.LatLng{Lat: 59.3293, Lng: 18.0686}, 9)
	if err != nil {
		t.Fatalf("LatLngToCell: %v", err)
	}
	if len(cells) != 1 || cells[0] != want.String() {
		t.Fatalf("got %v want [%s]", cells, want)
	}
}

func TestCover_Polygon_SortedUniqueDeterministic(t *testing.T) {
	m := New()
	cells, err := m.Cover(stockholm(), 9, 64)
	if err != nil {
		t.Fatalf("polygon: %v", err)
	}
	if len(cells) == 0 {
		t.Fatalf("expected non-empty polygon coverage")
	}
	if !sort.StringsAreSorted(cells) || hasDups(cells) {
		t.Fatalf("polygon cells must be sorted + unique")
	}
	again, err := m.Cover(stockholm(), 9, 64)
	if err != nil {
		t.Fatalf("polygon second call: %v", err)
	}
	if !reflect.DeepEqual(cells, again) {
		t.Fatalf("expected identical output for identical input")
	}
}

func TestCover_CoarsensForFewCells(t *testing.T) {
	m := New()
	fine, err := m.Cover(stockholm(), 10, 100000)
	if err != nil {
		t.Fatalf("fine: %v", err)
	}
	coarse, err := m.Cover(stockholm(), 10, 4)
	if err != nil {
		t.Fatalf("coarse: %v", err)
	}
	if len(coarse) >= len(fine) {
		t.Fatalf("a small cell limit should give fewer cells: %d vs %d", len(coarse), len(fine))
	}
	if resOf(t, coarse[0]) >= resOf(t, fine[0]) {
		t.Fatalf("a small cell limit should give a coarser resolution")
	}
}

func TestCover_LineIsCovered(t *testing.T) {
	m := New()
	line := geom.NewLineString(geom.XY).MustSetCoords([]geom.Coord{{18.0, 59.3}, {18.2, 59.3}})
	cells, err := m.Cover(line, 8, 64)
	if err != nil {
		t.Fatalf("line: %v", err)
	}
	if len(cells) < 2 {
		t.Fatalf("expected the line to span several cells, got %v", cells)
	}
}

func TestBounds_InvalidResolution(t *testing.T) {
	m := New()
	for _, res := range []int{-1, 16} {
		if _, err := m.Cover(stockholm(), res, 64); err == nil {
			t.Fatalf("expected error for res=%d", res)
		}
	}
}

func TestAncestors_ChainToRes0(t *testing.T) {
	m := New()
	cell, err := h3.LatLngToCell(h3.LatLng{Lat: 55.6050, Lng: 13.0038}, 7)
	if err != nil {
		t.Fatalf("LatLngToCell: %v", err)
	}
	anc, err := m.Ancestors(cell.String())
	if err != nil {
		t.Fatalf("Ancestors: %v", err)
	}
	if len(anc) != 7 {
		t.Fatalf("expected 7 ancestors, got %d", len(anc))
	}
	for r, a := range anc {
		if got := resOf(t, a); got != r {
			t.Fatalf("ancestor %d has resolution %d", r, got)
		}
	}
	parent, _ := cell.Parent(6)
	if !slices.Contains(anc, parent.String()) {
		t.Fatalf("ancestors must include the direct parent")
	}
}

func TestHierarchy_BadTransitions(t *testing.T) {
	m := New()
	cell, err := h3.LatLngToCell(h3.LatLng{Lat: 57.7089, Lng: 11.9746}, 9)
	if err != nil {
		t.Fatalf("LatLngToCell: %v", err)
	}
	if _, err := m.ToParent(cell.String(), 10); err == nil {
		t.Fatalf("expected error for parentRes > current res")
	}
	if p, err := m.ToParent(cell.String(), 9); err != nil || p != cell.String() {
		t.Fatalf("same-res parent must be the cell itself")
	}
	if _, err := m.Ancestors("not-a-cell"); err == nil {
		t.Fatalf("expected error for invalid cell")
	}
}

func resOf(t *testing.T, cell string) int {
	t.Helper()
	c, err := parseCell(cell)
	if err != nil {
		t.Fatalf("parse %q: %v", cell, err)
	}
	return c.Resolution()
}

func hasDups(s []string) bool {
	seen := map[string]struct{}{}
	for _, v := range s {
		if _, ok := seen[v]; ok {
			return true
		}
		seen[v] = struct{}{}
	}
	return false
}

func TestWiden_AddsFirstRing(t *testing.T) {
	m := New()
	c, err := h3.LatLngToCell(h3.LatLng{Lat: 59.3293, Lng: 18.0686}, 7)
	if err != nil {
		t.Fatalf("LatLngToCell: %v", err)
	}
	got, err := m.Widen([]string{c.String(), c.String()})
	if err != nil {
		t.Fatalf("Widen: %v", err)
	}
	if len(got) != 7 || !sort.StringsAreSorted(got) {
		t.Fatalf("expected the cell and its six neighbours, got %v", got)
	}
	if !slices.Contains(got, c.String()) {
		t.Fatalf("widened cells must keep the original")
	}
	for _, s := range got {
		n, err := parseCell(s)
		if err != nil || n.Resolution() != 7 {
			t.Fatalf("neighbour %s: res=%d err=%v", s, n.Resolution(), err)
		}
	}
	if _, err := m.Widen([]string{"zz"}); err == nil {
		t.Fatalf("invalid cell should fail")
	}
}
