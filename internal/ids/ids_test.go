package ids

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gerunddev/orgnode/parser"
)

func TestNew(t *testing.T) {
	t.Parallel()

	id := New()
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.NotEqual(t, id, New())
}

func TestAssign(t *testing.T) {
	t.Parallel()

	doc, err := parser.ParseString(`* Has id
:PROPERTIES:
:ID: keep-me
:END:
* Needs one
SCHEDULED: <2024-03-01 Fri>
text
* Also needs one
`)
	require.NoError(t, err)

	counter := 0
	gen := func() string {
		counter++
		return fmt.Sprintf("id-%d", counter)
	}

	assert.Equal(t, 2, Assign(doc.Nodes, gen))
	assert.Equal(t, "keep-me", doc.Nodes[0].Property("ID"))
	assert.Equal(t, "id-1", doc.Nodes[1].Property("ID"))
	assert.Equal(t, "SCHEDULED: <2024-03-01 Fri>\n:PROPERTIES:\n:ID: id-1\n:END:\ntext\n", doc.Nodes[1].Body())
	assert.Equal(t, ":PROPERTIES:\n:ID: id-2\n:END:\n", doc.Nodes[2].Body())

	// IDs survive a reparse of the rendered document.
	again, err := parser.ParseString(doc.String())
	require.NoError(t, err)
	assert.Equal(t, 0, Assign(again.Nodes, gen))
	assert.Equal(t, "id-2", again.Nodes[2].Property("ID"))
}

func TestAssignSkipsPlaceholder(t *testing.T) {
	t.Parallel()

	p := &parser.Parser{EmptyDocument: parser.EmptyPlaceholder}
	doc, err := p.ParseString("just text\n")
	require.NoError(t, err)

	assert.Equal(t, 0, Assign(doc.Nodes, nil))
}

func TestDuplicates(t *testing.T) {
	t.Parallel()

	a := parser.NewNode(1, "A", "", "", nil)
	b := parser.NewNode(1, "B", "", "", nil)
	c := parser.NewNode(1, "C", "", "", nil)
	d := parser.NewNode(1, "D", "", "", nil)
	a.SetProperty("ID", "x")
	b.SetProperty("ID", "y")
	c.SetProperty("ID", "x")
	d.SetProperty("ID", "x")

	assert.Equal(t, []string{"x"}, Duplicates([]*parser.Node{a, b, c, d}))
	assert.Empty(t, Duplicates([]*parser.Node{a, b}))
}
