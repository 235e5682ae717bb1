// Package export renders parsed org documents in other formats.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gerunddev/orgnode/parser"
)

// ErrUnknownFormat is returned by ParseFormat for unsupported format names.
var ErrUnknownFormat = errors.New("unknown export format")

// Format names an output format.
type Format string

const (
	Org      Format = "org"
	Markdown Format = "markdown"
	JSON     Format = "json"
	YAML     Format = "yaml"
)

// Formats lists the supported format names.
func Formats() []string {
	return []string{string(Org), string(Markdown), string(JSON), string(YAML)}
}

// ParseFormat resolves a format name. "md" and "yml" are accepted as aliases.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "org", "":
		return Org, nil
	case "markdown", "md":
		return Markdown, nil
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	}
	return "", fmt.Errorf("%w: %q (want one of %s)", ErrUnknownFormat, name, strings.Join(Formats(), ", "))
}

// Write renders doc to w in the given format.
func Write(w io.Writer, doc *parser.Document, format Format) error {
	switch format {
	case Org:
		_, err := doc.WriteTo(w)
		return err
	case Markdown:
		md, err := ToMarkdown(doc)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, md)
		return err
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(Records(doc))
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(Records(doc)); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// Record is the flat, serializable view of a node.
type Record struct {
	Level      int               `json:"level" yaml:"level"`
	Heading    string            `json:"heading" yaml:"heading"`
	Todo       string            `json:"todo,omitempty" yaml:"todo,omitempty"`
	Priority   string            `json:"priority,omitempty" yaml:"priority,omitempty"`
	Tags       []string          `json:"tags,omitempty" yaml:"tags,omitempty"`
	Scheduled  string            `json:"scheduled,omitempty" yaml:"scheduled,omitempty"`
	Deadline   string            `json:"deadline,omitempty" yaml:"deadline,omitempty"`
	Properties map[string]string `json:"properties,omitempty" yaml:"properties,omitempty"`
	Parent     int               `json:"parent" yaml:"parent"`
	Body       string            `json:"body,omitempty" yaml:"body,omitempty"`
}

// Records converts every node of doc. Parent holds the index of the enclosing
// node or -1 at the top level.
func Records(doc *parser.Document) []Record {
	parents := parser.Outline(doc.Nodes)
	records := make([]Record, 0, len(doc.Nodes))
	for i, n := range doc.Nodes {
		r := Record{
			Level:    n.Level(),
			Heading:  n.Heading(),
			Todo:     n.Todo(),
			Priority: n.Priority(),
			Tags:     n.Tags(),
			Parent:   parents[i],
			Body:     n.Body(),
		}
		if d, ok := n.Scheduled(); ok {
			r.Scheduled = d.Format(dateLayout)
		}
		if d, ok := n.Deadline(); ok {
			r.Deadline = d.Format(dateLayout)
		}
		if props := n.Properties(); len(props) > 0 {
			r.Properties = props
		}
		records = append(records, r)
	}
	return records
}

const dateLayout = "2006-01-02"
