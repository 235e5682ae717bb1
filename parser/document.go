package parser

import (
	"io"
	"strings"
)

// Document is the result of parsing one org source.
type Document struct {
	// Preamble is the exact text before the first heading.
	Preamble string
	// Nodes holds one node per heading in document order.
	Nodes []*Node
	// TodoKeywords lists the keywords recognized for this document.
	TodoKeywords []string
	// Keywords maps upper-cased "#+KEY: value" directives of the preamble.
	Keywords map[string]string
	// Properties holds a property drawer found in the preamble.
	Properties map[string]string
}

// String renders the preamble followed by every node in canonical form.
func (d *Document) String() string {
	var b strings.Builder
	_, _ = d.WriteTo(&b)
	return b.String()
}

// WriteTo writes the canonical rendering of the document to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	var total int64
	n, err := io.WriteString(w, d.Preamble)
	total += int64(n)
	if err != nil {
		return total, err
	}
	for _, node := range d.Nodes {
		// The placeholder node of a heading-less document repeats the preamble.
		if node.Level() < 1 {
			continue
		}
		n, err := io.WriteString(w, node.String())
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Find returns the first node whose heading equals heading, or nil.
func (d *Document) Find(heading string) *Node {
	for _, n := range d.Nodes {
		if n.Heading() == heading {
			return n
		}
	}
	return nil
}

// IsTodoKeyword reports whether kw is recognized in this document.
func (d *Document) IsTodoKeyword(kw string) bool {
	for _, k := range d.TodoKeywords {
		if k == kw {
			return true
		}
	}
	return false
}

// Outline returns the index of each node's parent, the closest preceding node
// with a lower level, or -1 for top-level nodes.
func Outline(nodes []*Node) []int {
	parents := make([]int, len(nodes))
	var stack []int
	for i, n := range nodes {
		for len(stack) > 0 && nodes[stack[len(stack)-1]].Level() >= n.Level() {
			stack = stack[:len(stack)-1]
		}
		parents[i] = -1
		if len(stack) > 0 {
			parents[i] = stack[len(stack)-1]
		}
		stack = append(stack, i)
	}
	return parents
}
