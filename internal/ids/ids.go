// Package ids gives org nodes stable identifiers.
package ids

import (
	"strings"

	"github.com/google/uuid"

	"github.com/gerunddev/orgnode/parser"
)

// Property is the node property holding the identifier.
const Property = "ID"

// New returns a fresh upper-case UUID, the form org-id writes.
func New() string {
	return strings.ToUpper(uuid.NewString())
}

// Assign sets an ID property generated by gen on every heading node that has
// none and returns how many nodes were changed. A nil gen uses New.
func Assign(nodes []*parser.Node, gen func() string) int {
	if gen == nil {
		gen = New
	}
	assigned := 0
	for _, n := range nodes {
		if n.Level() < 1 || n.Property(Property) != "" {
			continue
		}
		n.SetProperty(Property, gen())
		assigned++
	}
	return assigned
}

// Duplicates returns every ID carried by more than one node, in first-seen order.
func Duplicates(nodes []*parser.Node) []string {
	seen := make(map[string]int)
	var dups []string
	for _, n := range nodes {
		id := n.Property(Property)
		if id == "" {
			continue
		}
		seen[id]++
		if seen[id] == 2 {
			dups = append(dups, id)
		}
	}
	return dups
}
