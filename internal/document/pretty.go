package document

import (
	"strings"
)

// DumpWidth is the line width used by Pretty.
const DumpWidth = 79

// Pretty renders v like Inspect, breaking mappings and arrays over several
// lines when they do not fit in width columns. It is meant for operators; the
// canonical digest input is always Inspect.
func Pretty(v any, width int) string {
	p := &printer{width: width}
	p.print(layout(v))
	return p.b.String()
}

// layout document nodes
type (
	textNode  string
	breakNode string // rendered as its text when flat, as a newline otherwise
	groupNode struct {
		indent int
		parts  []node
	}
)

type node interface{}

func layout(v any) node {
	switch t := v.(type) {
	case *Map:
		parts := []node{textNode("{")}
		for i, e := range t.Entries() {
			if i > 0 {
				parts = append(parts, textNode(","), breakNode(" "))
			}
			parts = append(parts, groupNode{parts: []node{
				layout(e.Key),
				textNode("=>"),
				groupNode{indent: 1, parts: []node{breakNode(""), layout(e.Value)}},
			}})
		}
		parts = append(parts, textNode("}"))
		return groupNode{indent: 1, parts: parts}
	case []any:
		parts := []node{textNode("[")}
		for i, item := range t {
			if i > 0 {
				parts = append(parts, textNode(","), breakNode(" "))
			}
			parts = append(parts, layout(item))
		}
		parts = append(parts, textNode("]"))
		return groupNode{indent: 1, parts: parts}
	default:
		return textNode(Inspect(v))
	}
}

type frame struct {
	indent int
	flat   bool
	n      node
}

type printer struct {
	width  int
	column int
	b      strings.Builder
}

func (p *printer) print(root node) {
	stack := []frame{{n: root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch n := f.n.(type) {
		case textNode:
			p.b.WriteString(string(n))
			p.column += len([]rune(string(n)))
		case breakNode:
			if f.flat {
				p.b.WriteString(string(n))
				p.column += len(n)
				continue
			}
			p.b.WriteByte('\n')
			p.b.WriteString(strings.Repeat(" ", f.indent))
			p.column = f.indent
		case groupNode:
			indent := f.indent + n.indent
			flat := f.flat || p.fits(p.width-p.column, frame{indent: indent, flat: true, n: n}, stack)
			for i := len(n.parts) - 1; i >= 0; i-- {
				stack = append(stack, frame{indent: indent, flat: flat, n: n.parts[i]})
			}
		}
	}
}

// fits reports whether next, followed by the pending frames up to their
// first line break, fits in the remaining width.
func (p *printer) fits(remaining int, next frame, rest []frame) bool {
	work := []frame{next}
	restIdx := len(rest) - 1
	for remaining >= 0 {
		if len(work) == 0 {
			if restIdx < 0 {
				return true
			}
			work = append(work, rest[restIdx])
			restIdx--
		}
		f := work[len(work)-1]
		work = work[:len(work)-1]

		switch n := f.n.(type) {
		case textNode:
			remaining -= len([]rune(string(n)))
		case breakNode:
			if !f.flat {
				return true
			}
			remaining -= len(n)
		case groupNode:
			for i := len(n.parts) - 1; i >= 0; i-- {
				work = append(work, frame{indent: f.indent + n.indent, flat: f.flat, n: n.parts[i]})
			}
		}
	}
	return false
}
