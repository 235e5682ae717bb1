// Package parser turns org outline documents into heading nodes and renders them back.
package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// ErrSourceUnavailable is returned when the input cannot be opened or read.
var ErrSourceUnavailable = errors.New("org source unavailable")

// EmptyPolicy controls what a document without any heading produces.
type EmptyPolicy int

const (
	// EmptyNone yields no nodes for a document without headings.
	EmptyNone EmptyPolicy = iota
	// EmptyPlaceholder yields a single level 0 node holding the text of the document.
	EmptyPlaceholder
)

var (
	headingRe   = regexp.MustCompile(`^(\*+)\s(.*?)\s*$`)
	tagBlockRe  = regexp.MustCompile(`^(.*?)(?:^|\s+):((?:[^:\s]*:)+)$`)
	propertyRe  = regexp.MustCompile(`^\s*:(\S+?):\s*(.*?)\s*$`)
	keywordRe   = regexp.MustCompile(`^#\+([A-Za-z_]+):\s*(.*?)\s*$`)

	// Stamp openers; the setters splice at the same spots the parser reads dates from.
	scheduledMarkerRe = regexp.MustCompile(`SCHEDULED:\s+<`)
	deadlineMarkerRe  = regexp.MustCompile(`DEADLINE:\s*<`)
	scheduledRe       = regexp.MustCompile(scheduledMarkerRe.String() + `(\d+)-(\d+)-(\d+)`)
	deadlineRe        = regexp.MustCompile(deadlineMarkerRe.String() + `(\d+)-(\d+)-(\d+)`)
)

// Parser parses org documents. The zero value is ready to use.
type Parser struct {
	// Logger receives debug events. Nil discards them.
	Logger *log.Logger
	// TodoKeywords are recognized in addition to TODO and DONE.
	TodoKeywords []string
	// EmptyDocument selects the result for documents without headings.
	EmptyDocument EmptyPolicy
}

// ParseFile parses the org file at path.
func ParseFile(path string) (*Document, error) {
	return (&Parser{}).ParseFile(path)
}

// Parse parses org content from r. filename is only used in error messages.
func Parse(r io.Reader, filename string) (*Document, error) {
	return (&Parser{}).Parse(r, filename)
}

// ParseString parses org content held in a string.
func ParseString(content string) (*Document, error) {
	return (&Parser{}).ParseString(content)
}

// ParseLines parses lines that still carry their line terminators.
func ParseLines(lines []string) *Document {
	return (&Parser{}).ParseLines(lines)
}

// ParseFile parses the org file at path.
func (p *Parser) ParseFile(path string) (doc *Document, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w: %w", path, ErrSourceUnavailable, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()

	return p.Parse(f, path)
}

// Parse reads r fully and parses it.
func (p *Parser) Parse(r io.Reader, filename string) (*Document, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w: %w", filename, ErrSourceUnavailable, err)
	}
	doc := p.ParseLines(lines)
	p.logger().Debug("parsed document",
		"file", filename,
		"nodes", len(doc.Nodes),
		"todo_keywords", len(doc.TodoKeywords))
	return doc, nil
}

// ParseString parses org content held in a string.
func (p *Parser) ParseString(content string) (*Document, error) {
	return p.Parse(strings.NewReader(content), "<string>")
}

// ParseLines parses lines that still carry their line terminators.
func (p *Parser) ParseLines(lines []string) *Document {
	todos := NewOrderedSet("TODO", "DONE")
	todos.Add(p.TodoKeywords...)

	s := &scanState{
		todos:      todos,
		keywords:   make(map[string]string),
		properties: make(map[string]string),
	}
	for _, line := range lines {
		s.consume(line)
	}
	s.finish(p.EmptyDocument)

	extractTodoAndPriority(s.nodes, todos)

	doc := &Document{
		Preamble:     s.preamble.String(),
		Nodes:        s.nodes,
		TodoKeywords: todos.Values(),
		Keywords:     s.keywords,
		Properties:   s.fileProperties,
	}
	if doc.Properties == nil {
		doc.Properties = make(map[string]string)
	}
	return doc
}

func (p *Parser) logger() *log.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return log.New(io.Discard)
}

// scanState is the accumulator for the node currently being read.
type scanState struct {
	todos    *OrderedSet
	keywords map[string]string

	preamble       strings.Builder
	sawHeading     bool
	pending        bool
	inSrcBlock     bool
	fileProperties map[string]string

	level      int
	heading    string
	body       strings.Builder
	tag        string
	tags       []string
	scheduled  time.Time
	deadline   time.Time
	properties map[string]string

	nodes []*Node
}

func (s *scanState) consume(line string) {
	text := strings.TrimRight(line, "\r\n")

	if m := headingRe.FindStringSubmatch(text); m != nil {
		s.startNode(len(m[1]), m[2])
		return
	}

	s.bodyLine(line, text)
	if !s.sawHeading {
		s.preamble.WriteString(line)
	}
}

func (s *scanState) startNode(level int, raw string) {
	if s.pending {
		s.emit()
	} else if !s.sawHeading && len(s.properties) > 0 {
		s.fileProperties = s.properties
	}
	s.sawHeading = true
	s.pending = true

	s.level = level
	s.heading, s.tag, s.tags = splitTags(raw)
	s.body.Reset()
	s.scheduled = time.Time{}
	s.deadline = time.Time{}
	s.properties = make(map[string]string)
}

func (s *scanState) bodyLine(line, text string) {
	if isTodoDirective(text) {
		s.todos.Add(todoKeywords(text)...)
	}
	if !s.sawHeading {
		if m := keywordRe.FindStringSubmatch(text); m != nil {
			s.keywords[strings.ToUpper(m[1])] = m[2]
		}
	}

	switch {
	case !strings.HasPrefix(text, "#"):
		s.body.WriteString(line)
	case strings.HasPrefix(text, "#+"):
		s.body.WriteString(line)
		if hasPrefixFold(text, "#+begin_src") {
			s.inSrcBlock = true
		}
		if hasPrefixFold(text, "#+end_src") {
			s.inSrcBlock = false
		}
	case s.inSrcBlock:
		s.body.WriteString(line)
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == ":PROPERTIES:" || trimmed == ":END:" {
		return
	}
	if m := propertyRe.FindStringSubmatch(text); m != nil {
		s.properties[m[1]] = m[2]
		return
	}
	if d, ok := matchDate(scheduledRe, text); ok {
		s.scheduled = d
	}
	if d, ok := matchDate(deadlineRe, text); ok {
		s.deadline = d
	}
}

// emit turns the accumulator into a node.
func (s *scanState) emit() {
	n := NewNode(s.level, s.heading, s.body.String(), s.tag, s.tags)
	n.scheduled = s.scheduled
	n.deadline = s.deadline
	n.properties = s.properties
	s.nodes = append(s.nodes, n)
}

func (s *scanState) finish(policy EmptyPolicy) {
	switch {
	case s.pending:
		s.emit()
	case policy == EmptyPlaceholder:
		s.emit()
	default:
		s.fileProperties = s.properties
	}
}

// splitTags separates a trailing ":a:b:" block from heading text.
func splitTags(raw string) (heading, tag string, tags []string) {
	m := tagBlockRe.FindStringSubmatch(raw)
	if m == nil {
		return raw, "", nil
	}
	// Empty segments such as ":a::b:" are skipped.
	for _, t := range strings.Split(m[2], ":") {
		if t != "" {
			tags = append(tags, t)
		}
	}
	if len(tags) == 0 {
		return raw, "", nil
	}
	return m[1], tags[0], tags
}

func matchDate(re *regexp.Regexp, text string) (time.Time, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	year, err1 := strconv.Atoi(m[1])
	month, err2 := strconv.Atoi(m[2])
	day, err3 := strconv.Atoi(m[3])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes out-of-range values; reject them instead.
	if d.Year() != year || int(d.Month()) != month || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// readLines splits r into lines, keeping each line's terminator.
func readLines(r io.Reader) ([]string, error) {
	br := bufio.NewReader(r)
	var lines []string
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			lines = append(lines, line)
		}
		if errors.Is(err, io.EOF) {
			return lines, nil
		}
		if err != nil {
			return nil, err
		}
	}
}
