package parser

import (
	"regexp"
	"strings"
)

var (
	todoCallRe  = regexp.MustCompile(`([A-Z]+)\(`)
	todoWordRe  = regexp.MustCompile(`^[A-Z]+$`)
	leadTodoRe  = regexp.MustCompile(`^([A-Z]+)\s(.*)$`)
	priorityRe  = regexp.MustCompile(`^\[#(A|B|C)\] (.*)$`)
	directiveRe = regexp.MustCompile(`^#\+(?i:seq_todo|typ_todo|todo)\b:?`)
)

func isTodoDirective(text string) bool {
	return directiveRe.MatchString(text)
}

// todoKeywords returns the keywords declared on a #+SEQ_TODO style line, both the
// "NAME(" form and bare upper-case words such as "NEXT | DONE".
func todoKeywords(text string) []string {
	var kws []string
	for _, m := range todoCallRe.FindAllStringSubmatch(text, -1) {
		kws = append(kws, m[1])
	}

	rest := directiveRe.ReplaceAllString(text, "")
	for _, field := range strings.Fields(rest) {
		if i := strings.IndexByte(field, '('); i >= 0 {
			field = field[:i]
		}
		if todoWordRe.MatchString(field) {
			kws = append(kws, field)
		}
	}
	return kws
}

// extractTodoAndPriority runs after every node exists, so the heading text it
// inspects no longer carries tags.
func extractTodoAndPriority(nodes []*Node, todos *OrderedSet) {
	for _, n := range nodes {
		if m := leadTodoRe.FindStringSubmatch(n.Heading()); m != nil && todos.Contains(m[1]) {
			n.SetHeading(m[2])
			n.SetTodo(m[1])
		}
		if m := priorityRe.FindStringSubmatch(n.Heading()); m != nil {
			n.SetPriority(m[1])
			n.SetHeading(m[2])
		}
	}
}
