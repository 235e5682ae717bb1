package export

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gerunddev/orgnode/parser"
)

var (
	idLinkRe   = regexp.MustCompile(`\[\[id:([^\]]+)\](?:\[([^\]]+)\])?\]`)
	fileLinkRe = regexp.MustCompile(`\[\[file:([^\]]+)\]\]`)
	planningRe = regexp.MustCompile(`^(SCHEDULED|DEADLINE|CLOSED):`)
)

// Special blocks rendered as Obsidian callouts. QUOTE is handled separately as a
// plain blockquote.
var callouts = map[string]bool{
	"note": true, "abstract": true, "summary": true, "tldr": true,
	"info": true, "todo": true, "tip": true, "hint": true, "important": true,
	"success": true, "check": true, "done": true,
	"question": true, "help": true, "faq": true,
	"warning": true, "caution": true, "attention": true,
	"failure": true, "fail": true, "missing": true,
	"danger": true, "error": true, "bug": true,
	"example": true,
}

type frontMatter struct {
	ID         string            `yaml:"id,omitempty"`
	Title      string            `yaml:"title,omitempty"`
	Tags       []string          `yaml:"tags,omitempty"`
	Properties map[string]string `yaml:"properties,omitempty"`
}

// ToMarkdown converts doc to Obsidian flavoured markdown:
// headings become # headers, TODO nodes become checkbox headers followed by
// ⏳/📅 date lines, id links resolve to the heading owning the ID, and the
// file title, tags and properties move into YAML front matter.
func ToMarkdown(doc *parser.Document) (string, error) {
	ids := headingsByID(doc)

	fm, err := buildFrontMatter(doc)
	if err != nil {
		return "", err
	}

	var md strings.Builder
	if fm != "" {
		md.WriteString("---\n")
		md.WriteString(fm)
		md.WriteString("---\n\n")
	}

	convertBody(&md, doc.Preamble, ids)
	for _, n := range doc.Nodes {
		if n.Level() < 1 {
			continue
		}
		writeHeading(&md, n)
		convertBody(&md, n.Body(), ids)
	}

	out := strings.TrimSpace(md.String())
	if out == "" {
		return "", nil
	}
	return out + "\n", nil
}

func headingsByID(doc *parser.Document) map[string]string {
	ids := make(map[string]string)
	for _, n := range doc.Nodes {
		if id := n.Property("ID"); id != "" {
			if _, seen := ids[id]; !seen {
				ids[id] = n.Heading()
			}
		}
	}
	return ids
}

func buildFrontMatter(doc *parser.Document) (string, error) {
	fm := frontMatter{
		Title: doc.Keywords["TITLE"],
		Tags:  parseOrgTags(doc.Keywords["FILETAGS"]),
	}
	for k, v := range doc.Properties {
		if k == "ID" {
			fm.ID = v
			continue
		}
		if fm.Properties == nil {
			fm.Properties = make(map[string]string)
		}
		fm.Properties[k] = v
	}
	if fm.ID == "" && fm.Title == "" && len(fm.Tags) == 0 && len(fm.Properties) == 0 {
		return "", nil
	}

	out, err := yaml.Marshal(fm)
	if err != nil {
		return "", fmt.Errorf("failed to marshal front matter: %w", err)
	}
	return string(out), nil
}

func writeHeading(md *strings.Builder, n *parser.Node) {
	hashes := strings.Repeat("#", n.Level())
	text := n.Heading()
	for _, tag := range n.Tags() {
		text += " #" + tag
	}

	if n.Todo() != "" {
		checkbox := "[ ]"
		if n.Closed() {
			checkbox = "[x]"
		}
		md.WriteString(hashes + " - " + checkbox + " " + text + "\n")
	} else {
		md.WriteString(hashes + " " + text + "\n")
	}

	if d, ok := n.Scheduled(); ok {
		md.WriteString("⏳ " + d.Format(dateLayout) + "\n")
	}
	if d, ok := n.Deadline(); ok {
		md.WriteString("📅 " + d.Format(dateLayout) + "\n")
	}
	if p := n.Priority(); p != "" {
		md.WriteString("Priority: " + priorityLevel(p) + "\n")
	}
}

func priorityLevel(p string) string {
	switch p {
	case "A":
		return "high"
	case "C":
		return "low"
	}
	return "medium"
}

// convertBody writes the markdown form of org body text. Property drawers,
// planning lines and #+ directives are dropped; their content is rendered from
// node fields or the front matter instead.
func convertBody(md *strings.Builder, body string, ids map[string]string) {
	if body == "" {
		return
	}

	inDrawer := false
	inCodeBlock := false
	inQuoteBlock := false
	specialBlockType := ""

	for _, line := range strings.Split(strings.TrimRight(body, "\n"), "\n") {
		line = strings.TrimSuffix(line, "\r")
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)

		if inCodeBlock {
			if strings.HasPrefix(lower, "#+end_src") {
				inCodeBlock = false
				md.WriteString("```\n")
				continue
			}
			md.WriteString(line + "\n")
			continue
		}

		switch {
		case trimmed == ":PROPERTIES:":
			inDrawer = true
			continue
		case inDrawer:
			if trimmed == ":END:" {
				inDrawer = false
			}
			continue
		case strings.HasPrefix(lower, "#+begin_src"):
			inCodeBlock = true
			lang := ""
			if parts := strings.Fields(trimmed); len(parts) > 1 {
				lang = parts[1]
			}
			md.WriteString("```" + lang + "\n")
			continue
		case strings.HasPrefix(lower, "#+begin_quote"):
			inQuoteBlock = true
			continue
		case strings.HasPrefix(lower, "#+end_quote"):
			inQuoteBlock = false
			continue
		case inQuoteBlock:
			md.WriteString("> " + trimmed + "\n")
			continue
		case strings.HasPrefix(lower, "#+begin_"):
			if blockType := strings.TrimPrefix(lower, "#+begin_"); callouts[blockType] {
				specialBlockType = blockType
				md.WriteString("> [!" + blockType + "]\n")
			}
			continue
		case strings.HasPrefix(lower, "#+end_"):
			if specialBlockType != "" && strings.TrimPrefix(lower, "#+end_") == specialBlockType {
				specialBlockType = ""
				md.WriteString("\n")
			}
			continue
		case specialBlockType != "":
			md.WriteString("> " + trimmed + "\n")
			continue
		case strings.HasPrefix(trimmed, "#+"):
			continue
		case planningRe.MatchString(trimmed):
			continue
		}

		converted := fileLinkRe.ReplaceAllString(line, "![[$1]]")
		converted = convertIDLinks(converted, ids)
		md.WriteString(converted + "\n")
	}
}

// convertIDLinks turns [[id:uuid][desc]] into [[heading|desc]]. Unknown IDs keep
// the raw ID as the link target.
func convertIDLinks(line string, ids map[string]string) string {
	return idLinkRe.ReplaceAllStringFunc(line, func(match string) string {
		m := idLinkRe.FindStringSubmatch(match)
		target, ok := ids[m[1]]
		if !ok {
			target = m[1]
		}
		if m[2] != "" {
			return fmt.Sprintf("[[%s|%s]]", target, m[2])
		}
		return fmt.Sprintf("[[%s]]", target)
	})
}

// parseOrgTags parses ":tag1:tag2:" as well as space separated tag lists.
func parseOrgTags(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ':' || r == ' ' || r == '\t'
	})
}
