// Package markext provides the insert and delete inline extensions:
// ^^text^^ renders as <ins>text</ins> and ~~text~~ as <del>text</del>.
// Both are standalone pattern registrations for a goldmark engine and are
// independent of critic-markup processing.
package markext

import (
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

const runLength = 2

// SmartOpen reports whether a delimiter run may open a span under the smart
// word-boundary rule: the preceding character must not be a letter, a digit,
// or the delimiter itself, and the run must not be followed by whitespace or
// another delimiter character.
func SmartOpen(prev rune, line []byte, delim byte) bool {
	if unicode.IsLetter(prev) || unicode.IsDigit(prev) || prev == rune(delim) {
		return false
	}
	if len(line) <= runLength {
		return false
	}
	next := line[runLength]
	return next != delim && next != ' ' && next != '\t'
}

// SmartClose reports whether the delimiter run at offset pos in line closes
// a span: the run must not follow whitespace and must not be adjacent to a
// letter, a digit, or another instance of the delimiter character.
func SmartClose(line []byte, pos int, delim byte) bool {
	if pos == 0 {
		return false
	}
	if prev := line[pos-1]; prev == ' ' || prev == '\t' {
		return false
	}
	if end := pos + runLength; end < len(line) {
		next := line[end]
		if isAlnum(next) || next == delim {
			return false
		}
	}
	return true
}

func isAlnum(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// KindInlineTag is the goldmark node kind shared by insert and delete spans.
var KindInlineTag = ast.NewNodeKind("InlineTag")

// InlineTagNode wraps its children in a single semantic HTML element.
type InlineTagNode struct {
	ast.BaseInline
	Tag string
}

// Kind implements ast.Node.
func (n *InlineTagNode) Kind() ast.NodeKind { return KindInlineTag }

// Dump implements ast.Node.
func (n *InlineTagNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Tag": n.Tag}, nil)
}

type inlineTagParser struct {
	delim byte
	tag   string
	smart bool
}

func (p *inlineTagParser) Trigger() []byte { return []byte{p.delim} }

func (p *inlineTagParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, seg := block.PeekLine()
	if len(line) <= runLength*2 || line[0] != p.delim || line[1] != p.delim {
		return nil
	}
	if p.smart {
		if !SmartOpen(block.PrecendingCharacter(), line, p.delim) {
			return nil
		}
	} else if next := line[runLength]; next == ' ' || next == '\t' {
		return nil
	}

	close := p.findClose(line)
	if close < 0 {
		return nil
	}

	node := &InlineTagNode{Tag: p.tag}
	content := text.NewSegment(seg.Start+runLength, seg.Start+close)
	node.AppendChild(node, ast.NewTextSegment(content))
	block.Advance(close + runLength)
	return node
}

func (p *inlineTagParser) findClose(line []byte) int {
	for i := runLength + 1; i+runLength <= len(line); i++ {
		if line[i] != p.delim || line[i+1] != p.delim {
			continue
		}
		if p.smart {
			if SmartClose(line, i, p.delim) {
				return i
			}
			continue
		}
		if prev := line[i-1]; prev != ' ' && prev != '\t' {
			return i
		}
	}
	return -1
}

type inlineTagRenderer struct{}

func (r *inlineTagRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindInlineTag, r.render)
}

func (r *inlineTagRenderer) render(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*InlineTagNode)
	if entering {
		_, _ = w.WriteString("<" + n.Tag + ">")
	} else {
		_, _ = w.WriteString("</" + n.Tag + ">")
	}
	return ast.WalkContinue, nil
}

type extension struct {
	delim byte
	tag   string
	smart bool
}

// Insert returns the ^^text^^ -> <ins> extension. With smart enabled,
// delimiter runs adjacent to letters, digits, or further carets are treated
// as literal text.
func Insert(smart bool) goldmark.Extender {
	return &extension{delim: '^', tag: "ins", smart: smart}
}

// Delete returns the ~~text~~ -> <del> extension, an alternative to GFM
// strikethrough that emits <del> with the same smart boundary rule as
// Insert.
func Delete(smart bool) goldmark.Extender {
	return &extension{delim: '~', tag: "del", smart: smart}
}

func (e *extension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithInlineParsers(
		util.Prioritized(&inlineTagParser{delim: e.delim, tag: e.tag, smart: e.smart}, 550),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&inlineTagRenderer{}, 550),
	))
}
