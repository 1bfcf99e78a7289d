package h3mapper

import (
	"fmt"

	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/geoshape-index/internal/mapper"
)

func parseCell(cell string) (h3.Cell, error) {
	var c h3.Cell
	if err := c.UnmarshalText([]byte(cell)); err != nil {
		return 0, fmt.Errorf("parse cell: %w", err)
	}
	if !c.IsValid() {
		return 0, fmt.Errorf("invalid h3 cell %q", cell)
	}
	return c, nil
}

func (m *Mapper) ToParent(cell string, parentRes int) (string, error) {
	if err := validateRes(parentRes); err != nil {
		return "", err
	}
	c, err := parseCell(cell)
	if err != nil {
		return "", err
	}
	curRes := c.Resolution()
	if parentRes > curRes {
		return "", fmt.Errorf("parentRes %d must be <= cell resolution %d", parentRes, curRes)
	}
	if parentRes == curRes {
		return cell, nil
	}
	p, err := c.Parent(parentRes)
	if err != nil {
		return "", fmt.Errorf("h3 parent: %w", err)
	}
	return p.String(), nil
}

// Ancestors returns the parents of cell from resolution 0 up to one above
// its own.
func (m *Mapper) Ancestors(cell string) ([]string, error) {
	c, err := parseCell(cell)
	if err != nil {
		return nil, err
	}
	res := c.Resolution()
	out := make([]string, 0, res)
	for r := 0; r < res; r++ {
		p, err := m.ToParent(cell, r)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Widen adds the first ring of neighbours of every cell.
func (m *Mapper) Widen(cells []string) ([]string, error) {
	out := make([]string, 0, len(cells)*7)
	for _, cell := range cells {
		c, err := parseCell(cell)
		if err != nil {
			return nil, err
		}
		disk, err := c.GridDisk(1)
		if err != nil {
			return nil, fmt.Errorf("grid disk of %s: %w", cell, err)
		}
		for _, n := range disk {
			out = append(out, n.String())
		}
	}
	return mapper.SortedUnique(out), nil
}
