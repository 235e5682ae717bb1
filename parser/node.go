package parser

import (
	"regexp"
	"strings"
	"time"
)

// Planning markers written when a body has no stamp yet.
const (
	scheduledMarker = "SCHEDULED: <"
	deadlineMarker  = "DEADLINE: <"

	// stampLayout renders dates as "2024-03-01 Fri".
	stampLayout = "2006-01-02 Mon"
)

// Node is one heading of an org outline together with its body text and metadata.
//
// Nodes are created by the parser and then owned by the caller. They are not safe
// for concurrent mutation.
type Node struct {
	level      int
	heading    string
	body       string
	tag        string
	tags       *OrderedSet
	todo       string
	priority   string
	scheduled  time.Time
	deadline   time.Time
	properties map[string]string
}

// NewNode creates a node from the raw pieces of a heading. tag is the primary tag
// and tags holds every tag of the heading line.
func NewNode(level int, heading, body, tag string, tags []string) *Node {
	return &Node{
		level:      level,
		heading:    heading,
		body:       body,
		tag:        tag,
		tags:       NewOrderedSet(tags...),
		properties: make(map[string]string),
	}
}

// Level returns the number of heading markers; top level is 1
func (n *Node) Level() int {
	return n.level
}

// Heading returns the heading text without TODO keyword, priority cookie or tags
func (n *Node) Heading() string {
	return n.heading
}

// SetHeading replaces the heading text, trimming surrounding spaces
func (n *Node) SetHeading(heading string) {
	n.heading = strings.Trim(heading, " ")
}

// Body returns every line below the heading up to the next heading
func (n *Node) Body() string {
	return n.body
}

// Tag returns the primary (first) tag
func (n *Node) Tag() string {
	return n.tag
}

// SetTag replaces the primary tag only
func (n *Node) SetTag(tag string) {
	n.tag = tag
}

// Tags returns all tags in set order. The primary tag leads the list when it is
// set but missing from the set.
func (n *Node) Tags() []string {
	tags := n.tags.Values()
	if n.tag != "" && !n.tags.Contains(n.tag) {
		tags = append([]string{n.tag}, tags...)
	}
	return tags
}

// HasTag reports whether the node carries tag
func (n *Node) HasTag(tag string) bool {
	return n.tags.Contains(tag) || (tag != "" && tag == n.tag)
}

// SetTags adds tags to the node. Existing tags are kept.
func (n *Node) SetTags(tags ...string) {
	n.tags.Add(tags...)
}

// RemoveTag drops tag from the node and reports whether it was carried. When the
// primary tag is removed the next remaining tag takes its place.
func (n *Node) RemoveTag(tag string) bool {
	removed := n.tags.Remove(tag)
	if tag == "" || tag != n.tag {
		return removed
	}
	n.tag = ""
	if n.tags.Len() > 0 {
		n.tag = n.tags.Values()[0]
	}
	return true
}

// Todo returns the TODO keyword, or "" when the heading has none
func (n *Node) Todo() string {
	return n.todo
}

// SetTodo replaces the TODO keyword, trimming surrounding spaces
func (n *Node) SetTodo(todo string) {
	n.todo = strings.Trim(todo, " ")
}

// Closed reports whether the TODO keyword marks finished work: DONE or CANCELLED.
func (n *Node) Closed() bool {
	switch n.todo {
	case "DONE", "CANCELLED", "CANCELED":
		return true
	}
	return false
}

// Priority returns "A", "B", "C" or ""
func (n *Node) Priority() string {
	return n.priority
}

// SetPriority replaces the priority. The value is not validated.
func (n *Node) SetPriority(priority string) {
	n.priority = priority
}

// Properties returns a copy of the property drawer values
func (n *Node) Properties() map[string]string {
	out := make(map[string]string, len(n.properties))
	for k, v := range n.properties {
		out[k] = v
	}
	return out
}

// Property returns the value of a property, or "" if it is not set
func (n *Node) Property(name string) string {
	return n.properties[name]
}

// SetProperties replaces all properties. The body is left untouched.
func (n *Node) SetProperties(props map[string]string) {
	n.properties = make(map[string]string, len(props))
	for k, v := range props {
		n.properties[k] = v
	}
}

// SetProperty sets one property and writes it into the body's property drawer,
// creating the drawer below any planning lines when the body has none.
func (n *Node) SetProperty(name, value string) {
	n.properties[name] = value
	n.body = spliceProperty(n.body, name, value)
}

// Scheduled returns the scheduled date and whether one is set
func (n *Node) Scheduled() (time.Time, bool) {
	return n.scheduled, !n.scheduled.IsZero()
}

// SetScheduled sets the scheduled date and rewrites the SCHEDULED stamp in the body
func (n *Node) SetScheduled(date time.Time) {
	n.scheduled = date
	n.body = spliceStamp(n.body, scheduledMarkerRe, scheduledMarker, date.Format(stampLayout))
}

// Deadline returns the deadline date and whether one is set
func (n *Node) Deadline() (time.Time, bool) {
	return n.deadline, !n.deadline.IsZero()
}

// SetDeadline sets the deadline date and rewrites the DEADLINE stamp in the body
func (n *Node) SetDeadline(date time.Time) {
	n.deadline = date
	n.body = spliceStamp(n.body, deadlineMarkerRe, deadlineMarker, date.Format(stampLayout))
}

// String renders the node canonically: the heading line followed by the body.
// A level 0 node has no heading line and renders as its body.
func (n *Node) String() string {
	if n.level < 1 {
		return n.body
	}

	var b strings.Builder
	b.WriteString(strings.Repeat("*", n.level))
	b.WriteByte(' ')
	if n.todo != "" {
		b.WriteString(n.todo)
		b.WriteByte(' ')
	}
	if n.priority != "" {
		b.WriteString("[#")
		b.WriteString(n.priority)
		b.WriteString("] ")
	}
	b.WriteString(n.heading)
	if tags := n.Tags(); len(tags) > 0 {
		b.WriteString(" :")
		b.WriteString(strings.Join(tags, ":"))
		b.WriteByte(':')
	}
	b.WriteByte('\n')
	b.WriteString(n.body)
	return b.String()
}

// spliceStamp replaces the text between the first stamp opener matched by re and
// the next '>' with stamp. Without an opener a new line starting with marker is
// prepended. When no '>' follows at all, the stamp is closed at the end of its line.
func spliceStamp(body string, re *regexp.Regexp, marker, stamp string) string {
	from := stampOpener(body, re)
	if from < 0 {
		return marker + stamp + ">\n" + body
	}

	end := strings.IndexByte(body[from:], '>')
	if end >= 0 {
		return body[:from] + stamp + body[from+end:]
	}
	eol := strings.IndexByte(body[from:], '\n')
	if eol < 0 {
		return body[:from] + stamp + ">"
	}
	return body[:from] + stamp + ">" + body[from+eol:]
}

// stampOpener returns the offset just past the first opener in body, matching
// line by line like the parser does, or -1.
func stampOpener(body string, re *regexp.Regexp) int {
	offset := 0
	for _, line := range strings.SplitAfter(body, "\n") {
		if loc := re.FindStringIndex(line); loc != nil {
			return offset + loc[1]
		}
		offset += len(line)
	}
	return -1
}

// spliceProperty writes ":name: value" into the first property drawer of body.
func spliceProperty(body, name, value string) string {
	line := ":" + name + ": " + value + "\n"
	lines := strings.SplitAfter(body, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	open, closing := -1, -1
	for i, l := range lines {
		trimmed := strings.TrimSpace(l)
		if open < 0 && trimmed == ":PROPERTIES:" {
			open = i
			continue
		}
		if open >= 0 && trimmed == ":END:" {
			closing = i
			break
		}
	}

	if open >= 0 && closing >= 0 {
		prefix := ":" + name + ":"
		for i := open + 1; i < closing; i++ {
			if strings.HasPrefix(strings.TrimSpace(lines[i]), prefix) {
				lines[i] = indentOf(lines[i]) + line
				return strings.Join(lines, "")
			}
		}
		out := make([]string, 0, len(lines)+1)
		out = append(out, lines[:closing]...)
		out = append(out, indentOf(lines[closing])+line)
		out = append(out, lines[closing:]...)
		return strings.Join(out, "")
	}

	// New drawer goes after the planning lines that directly follow the heading.
	at := 0
	for at < len(lines) && isPlanningLine(lines[at]) {
		at++
	}
	if at > 0 && !strings.HasSuffix(lines[at-1], "\n") {
		lines[at-1] += "\n"
	}
	out := make([]string, 0, len(lines)+3)
	out = append(out, lines[:at]...)
	out = append(out, ":PROPERTIES:\n", line, ":END:\n")
	out = append(out, lines[at:]...)
	return strings.Join(out, "")
}

func isPlanningLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "SCHEDULED:") ||
		strings.HasPrefix(trimmed, "DEADLINE:") ||
		strings.HasPrefix(trimmed, "CLOSED:")
}

func indentOf(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}
