// Package model defines core domain types shared across the service.
package model

import (
	"fmt"
	"sort"
	"strings"
)

// Document is one row as seen by the indexer: raw column values keyed by
// column name.
type Document struct {
	ID      string            `json:"id"`
	Columns map[string]string `json:"columns"`
}

// Column returns the value of col and whether it is present and non-blank.
func (d Document) Column(col string) (string, bool) {
	v, ok := d.Columns[col]
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

func (d Document) String() string {
	cols := make([]string, 0, len(d.Columns))
	for c := range d.Columns {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return fmt.Sprintf("doc %s [%s]", d.ID, strings.Join(cols, ","))
}

// Op is what a change feed asks the indexer to do with a document.
type Op string

const (
	OpUpsert Op = "upsert"
	OpDelete Op = "delete"
)

// Change is one message of the document feed.
type Change struct {
	ID      string            `json:"id"`
	Op      Op                `json:"op"`
	Columns map[string]string `json:"columns"`
}

func (c Change) Document() Document {
	return Document{ID: c.ID, Columns: c.Columns}
}
