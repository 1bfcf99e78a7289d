package index

import "github.com/twpayne/go-geom"

// Composite concatenates the entries of its strategies in order.
type Composite struct {
	strategies []Strategy
}

func NewComposite(strategies ...Strategy) *Composite {
	return &Composite{strategies: append([]Strategy(nil), strategies...)}
}

func (c *Composite) CreateEntries(g geom.T) ([]Entry, error) {
	var out []Entry
	for _, s := range c.strategies {
		entries, err := s.CreateEntries(g)
		if err != nil {
			return nil, err
		}
		out = append(out, entries...)
	}
	return out, nil
}

// TwoTier is the grid prefix tree plus the serialized exact geometry.
type TwoTier struct {
	*Composite
	Tree *PrefixTree
}

func NewTwoTier(tree *PrefixTree) *TwoTier {
	return &TwoTier{Composite: NewComposite(tree, NewSerialized(tree.field)), Tree: tree}
}
