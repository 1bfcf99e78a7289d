// Package keys builds the Redis keys of the index store.
package keys

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

const prefix = "gs"

// Set names the two cell sets kept per term.
type Set string

const (
	// Any holds every document with the term as a leaf or an ancestor cell.
	Any Set = "any"
	// Leaf holds the documents with the term as a leaf cell.
	Leaf Set = "leaf"
)

// Cell is the key of the set of document ids for one cell term.
func Cell(field string, set Set, term string) string {
	return prefix + ":" + Field(field) + ":" + string(set) + ":" + strings.TrimSpace(term)
}

// Cells maps Cell over terms.
func Cells(field string, set Set, terms []string) []string {
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = Cell(field, set, t)
	}
	return out
}

// Geometry is the key of the stored geometry of one document.
func Geometry(field, id string) string {
	return prefix + ":" + Field(field) + ":geom:" + strings.TrimSpace(id)
}

// Field returns the key segment of a field name. Names that need
// sanitizing get a hash suffix so that distinct names never share keys.
func Field(field string) string {
	raw := strings.TrimSpace(field)
	safe := sanitize(raw)
	if safe == raw {
		return safe
	}
	return fmt.Sprintf("%s~%08x", safe, uint32(xxhash.Sum64String(raw)))
}

func sanitize(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for _, r := range s {
		var out rune
		switch {
		case unicode.IsSpace(r):
			out = '_'
		case isAlphaNum(r) || r == '_' || r == '-' || r == '.':
			out = r
		default:
			// ':' separates key segments, so it is replaced too
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
