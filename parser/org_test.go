package parser

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseFileSample(t *testing.T) {
	t.Parallel()

	doc, err := ParseFile(filepath.Join("testdata", "sample.org"))
	require.NoError(t, err)

	assert.Equal(t, "#+TITLE: Weekly Plan\n"+
		"#+SEQ_TODO: TODO(t) WAITING(w) | DONE(d) CANCELLED(c)\n"+
		"Notes that live above every heading.\n\n", doc.Preamble)
	assert.Equal(t, "Weekly Plan", doc.Keywords["TITLE"])
	assert.Equal(t, []string{"TODO", "DONE", "WAITING", "CANCELLED"}, doc.TodoKeywords)
	require.Len(t, doc.Nodes, 5)

	projects := doc.Nodes[0]
	assert.Equal(t, 1, projects.Level())
	assert.Equal(t, "Projects", projects.Heading())
	assert.Equal(t, "work", projects.Tag())
	assert.Empty(t, projects.Body())

	dentist := doc.Nodes[1]
	assert.Equal(t, 2, dentist.Level())
	assert.Equal(t, "WAITING", dentist.Todo())
	assert.Equal(t, "B", dentist.Priority())
	assert.Equal(t, "Call dentist", dentist.Heading())
	assert.Equal(t, []string{"health", "phone"}, dentist.Tags())
	assert.Equal(t, map[string]string{"ID": "123", "EFFORT": "0:30"}, dentist.Properties())
	sched, ok := dentist.Scheduled()
	require.True(t, ok)
	assert.Equal(t, date(2024, time.March, 4), sched)
	_, ok = dentist.Deadline()
	assert.False(t, ok)

	report := doc.Nodes[2]
	assert.Equal(t, "TODO", report.Todo())
	assert.Equal(t, "Write report", report.Heading())
	deadline, ok := report.Deadline()
	require.True(t, ok)
	assert.Equal(t, date(2024, time.March, 8), deadline)
	assert.Contains(t, report.Body(), "# a shell comment\n")
	assert.NotContains(t, report.Body(), "# a dropped comment")

	assert.Equal(t, "DONE", doc.Nodes[3].Todo())
	assert.Equal(t, "CANCELLED", doc.Nodes[4].Todo())
	assert.Equal(t, "C", doc.Nodes[4].Priority())
	assert.Equal(t, "Old idea", doc.Nodes[4].Heading())
}

func TestParseFileMissing(t *testing.T) {
	t.Parallel()

	_, err := ParseFile(filepath.Join(t.TempDir(), "missing.org"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSourceUnavailable))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestParseReaderFailure(t *testing.T) {
	t.Parallel()

	_, err := Parse(failingReader{}, "broken.org")
	require.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Contains(t, err.Error(), "broken.org")
}

func TestParseTags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		heading string
		tag     string
		tags    []string
	}{
		{
			name:    "two tags",
			input:   "* Title :A:B:\n",
			heading: "Title",
			tag:     "A",
			tags:    []string{"A", "B"},
		},
		{
			name:    "duplicate tags collapse",
			input:   "* Title :A:B:A:\n",
			heading: "Title",
			tag:     "A",
			tags:    []string{"A", "B"},
		},
		{
			name:    "no tags",
			input:   "* Just a title\n",
			heading: "Just a title",
		},
		{
			name:    "colon inside text is not a tag block",
			input:   "* Meeting at 10:30 with Bob\n",
			heading: "Meeting at 10:30 with Bob",
		},
		{
			name:    "text with colon and tags",
			input:   "* Re: budget :finance:\n",
			heading: "Re: budget",
			tag:     "finance",
			tags:    []string{"finance"},
		},
		{
			name:    "empty segment skipped",
			input:   "* Title :A::B:\n",
			heading: "Title",
			tag:     "A",
			tags:    []string{"A", "B"},
		},
		{
			name:    "leading empty segment",
			input:   "* Title ::A:\n",
			heading: "Title",
			tag:     "A",
			tags:    []string{"A"},
		},
		{
			name:    "only colons is not a tag block",
			input:   "* Title ::\n",
			heading: "Title ::",
		},
		{
			name:    "trailing whitespace trimmed",
			input:   "* Title :x:   \n",
			heading: "Title",
			tag:     "x",
			tags:    []string{"x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			doc, err := ParseString(tt.input)
			require.NoError(t, err)
			require.Len(t, doc.Nodes, 1)
			n := doc.Nodes[0]
			assert.Equal(t, tt.heading, n.Heading())
			assert.Equal(t, tt.tag, n.Tag())
			assert.Equal(t, tt.tags, n.Tags())
		})
	}
}

func TestParseTodoAndPriority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		todo     string
		priority string
		heading  string
	}{
		{
			name:     "declared keyword and priority",
			input:    "#+SEQ_TODO: TODO(t) WAITING(w) | DONE(d)\n* WAITING [#B] Call dentist\n",
			todo:     "WAITING",
			priority: "B",
			heading:  "Call dentist",
		},
		{
			name:    "default TODO without directive",
			input:   "* TODO Buy milk\n",
			todo:    "TODO",
			heading: "Buy milk",
		},
		{
			name:    "default DONE without directive",
			input:   "* DONE Buy milk\n",
			todo:    "DONE",
			heading: "Buy milk",
		},
		{
			name:    "undeclared keyword stays in heading",
			input:   "* WAITING Call dentist\n",
			heading: "WAITING Call dentist",
		},
		{
			name:     "priority without keyword",
			input:    "* [#A] Urgent thing\n",
			priority: "A",
			heading:  "Urgent thing",
		},
		{
			name:    "invalid priority letter",
			input:   "* [#D] Not a cookie\n",
			heading: "[#D] Not a cookie",
		},
		{
			name:    "keyword must lead the heading",
			input:   "* Review TODO items\n",
			heading: "Review TODO items",
		},
		{
			name:    "bare words on #+TODO line",
			input:   "#+TODO: NEXT | DONE\n* NEXT Plan week\n",
			todo:    "NEXT",
			heading: "Plan week",
		},
		{
			name:    "directive declared after heading still applies",
			input:   "* LATER Someday\n#+SEQ_TODO LATER(l)\n",
			todo:    "LATER",
			heading: "Someday",
		},
		{
			name:     "tags stripped before keyword search",
			input:    "* TODO [#C] Clean garage :home:\n",
			todo:     "TODO",
			priority: "C",
			heading:  "Clean garage",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			doc, err := ParseString(tt.input)
			require.NoError(t, err)
			require.Len(t, doc.Nodes, 1)
			n := doc.Nodes[0]
			assert.Equal(t, tt.todo, n.Todo())
			assert.Equal(t, tt.priority, n.Priority())
			assert.Equal(t, tt.heading, n.Heading())
		})
	}
}

func TestParserExtraTodoKeywords(t *testing.T) {
	t.Parallel()

	p := &Parser{TodoKeywords: []string{"NEXT"}}
	doc, err := p.ParseString("* NEXT Pack bags\n")
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 1)
	assert.Equal(t, "NEXT", doc.Nodes[0].Todo())
	assert.True(t, doc.IsTodoKeyword("NEXT"))
}

func TestParsePropertyDrawer(t *testing.T) {
	t.Parallel()

	input := "* Node\n:PROPERTIES:\n:ID: 123\n:END:\nText\n"
	doc, err := ParseString(input)
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 1)

	n := doc.Nodes[0]
	assert.Equal(t, map[string]string{"ID": "123"}, n.Properties())
	assert.Equal(t, "123", n.Property("ID"))
	assert.Equal(t, "", n.Property("MISSING"))
	assert.Equal(t, ":PROPERTIES:\n:ID: 123\n:END:\nText\n", n.Body())
	_, ok := n.Scheduled()
	assert.False(t, ok)
	_, ok = n.Deadline()
	assert.False(t, ok)
}

func TestParsePropertiesDoNotLeakBetweenNodes(t *testing.T) {
	t.Parallel()

	input := ":PROPERTIES:\n:ID: file\n:END:\n* One\n:PROPERTIES:\n:ID: 1\n:END:\n* Two\n"
	doc, err := ParseString(input)
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 2)

	assert.Equal(t, map[string]string{"ID": "file"}, doc.Properties)
	assert.Equal(t, map[string]string{"ID": "1"}, doc.Nodes[0].Properties())
	assert.Empty(t, doc.Nodes[1].Properties())
}

func TestParseSourceBlock(t *testing.T) {
	t.Parallel()

	input := "* Script\n" +
		"# outside comment\n" +
		"#+begin_src sh\n" +
		"# a shell comment\n" +
		"ls\n" +
		"#+end_src\n" +
		"# after block\n" +
		"#+BEGIN_SRC python\n" +
		"# python comment\n" +
		"#+END_SRC\n"
	doc, err := ParseString(input)
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 1)

	assert.Equal(t, "#+begin_src sh\n"+
		"# a shell comment\n"+
		"ls\n"+
		"#+end_src\n"+
		"#+BEGIN_SRC python\n"+
		"# python comment\n"+
		"#+END_SRC\n", doc.Nodes[0].Body())
}

func TestParseDates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		body      string
		scheduled time.Time
		deadline  time.Time
	}{
		{
			name:      "both on one planning line",
			body:      "SCHEDULED: <2024-01-02 Tue> DEADLINE: <2024-01-05 Fri>\n",
			scheduled: date(2024, time.January, 2),
			deadline:  date(2024, time.January, 5),
		},
		{
			name:      "time and repeater are tolerated",
			body:      "SCHEDULED: <2024-02-29 Thu 09:00 +1w>\n",
			scheduled: date(2024, time.February, 29),
		},
		{
			name:      "last stamp wins",
			body:      "SCHEDULED: <2024-01-01 Mon>\nSCHEDULED: <2024-06-01 Sat>\n",
			scheduled: date(2024, time.June, 1),
		},
		{
			name: "invalid calendar date is ignored",
			body: "DEADLINE: <2024-13-45 Xyz>\n",
		},
		{
			name: "garbage after marker is ignored",
			body: "SCHEDULED: <soon>\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			doc, err := ParseString("* Task\n" + tt.body)
			require.NoError(t, err)
			require.Len(t, doc.Nodes, 1)
			n := doc.Nodes[0]

			got, ok := n.Scheduled()
			assert.Equal(t, !tt.scheduled.IsZero(), ok)
			assert.Equal(t, tt.scheduled, got)
			got, ok = n.Deadline()
			assert.Equal(t, !tt.deadline.IsZero(), ok)
			assert.Equal(t, tt.deadline, got)
			assert.Equal(t, tt.body, n.Body(), "parsing must not rewrite stamps")
		})
	}
}

func TestParsePreamble(t *testing.T) {
	t.Parallel()

	t.Run("text before first heading", func(t *testing.T) {
		t.Parallel()
		doc, err := ParseString("intro\n\n* First\nbody\n")
		require.NoError(t, err)
		assert.Equal(t, "intro\n\n", doc.Preamble)
		require.Len(t, doc.Nodes, 1)
		assert.Equal(t, "body\n", doc.Nodes[0].Body())
	})

	t.Run("no headings yields no nodes", func(t *testing.T) {
		t.Parallel()
		input := "just text\nmore text"
		doc, err := ParseString(input)
		require.NoError(t, err)
		assert.Equal(t, input, doc.Preamble)
		assert.Empty(t, doc.Nodes)
	})

	t.Run("placeholder policy", func(t *testing.T) {
		t.Parallel()
		input := "just text\n"
		p := &Parser{EmptyDocument: EmptyPlaceholder}
		doc, err := p.ParseString(input)
		require.NoError(t, err)
		assert.Equal(t, input, doc.Preamble)
		require.Len(t, doc.Nodes, 1)
		assert.Equal(t, 0, doc.Nodes[0].Level())
		assert.Equal(t, "", doc.Nodes[0].Heading())
		assert.Equal(t, input, doc.Nodes[0].Body())
		assert.Equal(t, input, doc.String())
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		doc, err := ParseString("")
		require.NoError(t, err)
		assert.Empty(t, doc.Preamble)
		assert.Empty(t, doc.Nodes)
	})
}

func TestParseEmptyHeadingKeepsPreviousNode(t *testing.T) {
	t.Parallel()

	doc, err := ParseString("* First\ntext\n* \n* Third\n")
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 3)
	assert.Equal(t, "First", doc.Nodes[0].Heading())
	assert.Equal(t, "text\n", doc.Nodes[0].Body())
	assert.Equal(t, "", doc.Nodes[1].Heading())
	assert.Equal(t, "Third", doc.Nodes[2].Heading())
}

func TestParseLinesKeepsTerminators(t *testing.T) {
	t.Parallel()

	doc := ParseLines([]string{"* A\r\n", "line one\r\n", "\n", "", "line two"})
	require.Len(t, doc.Nodes, 1)
	assert.Equal(t, "A", doc.Nodes[0].Heading())
	assert.Equal(t, "line one\r\n\nline two", doc.Nodes[0].Body())
}

func TestRoundTripLevels(t *testing.T) {
	t.Parallel()

	for level := 1; level <= 6; level++ {
		input := strings.Repeat("*", level) + " Heading\n"
		doc, err := ParseString(input)
		require.NoError(t, err)
		require.Len(t, doc.Nodes, 1)

		again, err := ParseString(doc.Nodes[0].String())
		require.NoError(t, err)
		require.Len(t, again.Nodes, 1)
		assert.Equal(t, level, again.Nodes[0].Level())
	}
}

func TestRoundTripSample(t *testing.T) {
	t.Parallel()

	doc, err := ParseFile(filepath.Join("testdata", "sample.org"))
	require.NoError(t, err)

	again, err := ParseString(doc.String())
	require.NoError(t, err)
	require.Len(t, again.Nodes, len(doc.Nodes))

	for i, want := range doc.Nodes {
		got := again.Nodes[i]
		assert.Equal(t, want.Level(), got.Level())
		assert.Equal(t, want.Heading(), got.Heading())
		assert.Equal(t, want.Todo(), got.Todo())
		assert.Equal(t, want.Priority(), got.Priority())
		assert.Equal(t, want.Tags(), got.Tags())
		assert.Equal(t, want.Properties(), got.Properties())
		ws, _ := want.Scheduled()
		gs, _ := got.Scheduled()
		assert.Equal(t, ws, gs)
		wd, _ := want.Deadline()
		gd, _ := got.Deadline()
		assert.Equal(t, wd, gd)
	}
}

func TestParseIndependentInvocations(t *testing.T) {
	t.Parallel()

	first, err := ParseString("#+SEQ_TODO: LATER(l)\n* LATER One\n")
	require.NoError(t, err)
	second, err := ParseString("* LATER Two\n")
	require.NoError(t, err)

	assert.Equal(t, "LATER", first.Nodes[0].Todo())
	assert.Equal(t, "", second.Nodes[0].Todo())
	assert.Equal(t, "LATER Two", second.Nodes[0].Heading())
}

func TestOutline(t *testing.T) {
	t.Parallel()

	doc, err := ParseString("* A\n** B\n*** C\n** D\n* E\n*** F\n")
	require.NoError(t, err)
	assert.Equal(t, []int{-1, 0, 1, 0, -1, 4}, Outline(doc.Nodes))
}

func TestDocumentFind(t *testing.T) {
	t.Parallel()

	doc, err := ParseString("* TODO One\n* Two\n")
	require.NoError(t, err)
	require.NotNil(t, doc.Find("One"))
	assert.Equal(t, "TODO", doc.Find("One").Todo())
	assert.Nil(t, doc.Find("Three"))
}
