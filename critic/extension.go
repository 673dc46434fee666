package critic

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// KindMark is the goldmark node kind for an unresolved critic mark.
var KindMark = ast.NewNodeKind("CriticMark")

// MarkNode is an inline AST node carrying one unresolved critic mark. It is
// produced only under the View posture, where the document keeps its marks
// and the renderer wraps them in semantic elements for human review.
type MarkNode struct {
	ast.BaseInline
	Mark Mark
}

// Kind implements ast.Node.
func (n *MarkNode) Kind() ast.NodeKind { return KindMark }

// Dump implements ast.Node.
func (n *MarkNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, nil, nil)
}

type markParser struct{}

func (p *markParser) Trigger() []byte { return []byte{'{'} }

// Parse recognizes a critic span within the current line. Marks spanning a
// line break degrade to literal text, matching the engine's inline scope.
func (p *markParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, _ := block.PeekLine()
	mark, next, ok := Scan(string(line), 0)
	if !ok {
		return nil
	}
	block.Advance(next)
	return &MarkNode{Mark: mark}
}

type markRenderer struct{}

func (r *markRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindMark, r.render)
}

func (r *markRenderer) render(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*MarkNode)
	switch n.Mark.Kind {
	case Addition:
		writeWrapped(w, `<ins class="critic">`, n.Mark.Text, "</ins>")
	case Deletion:
		writeWrapped(w, `<del class="critic">`, n.Mark.Text, "</del>")
	case Substitution:
		writeWrapped(w, `<del class="critic">`, n.Mark.Text, "</del>")
		writeWrapped(w, `<ins class="critic">`, n.Mark.NewText, "</ins>")
	case Highlight:
		writeWrapped(w, `<mark class="critic">`, n.Mark.Text, "</mark>")
	case Comment:
		writeWrapped(w, `<span class="critic comment">`, n.Mark.Text, "</span>")
	}
	return ast.WalkContinue, nil
}

func writeWrapped(w util.BufWriter, open, payload, close string) {
	_, _ = w.WriteString(open)
	_, _ = w.Write(util.EscapeHTML([]byte(payload)))
	_, _ = w.WriteString(close)
}

type viewExtension struct{}

// ViewExtension registers the critic View renderer with a goldmark engine:
// unresolved marks are wrapped in <ins>, <del>, <mark>, and comment <span>
// elements instead of being resolved.
var ViewExtension goldmark.Extender = &viewExtension{}

func (e *viewExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithInlineParsers(
		util.Prioritized(&markParser{}, 150),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&markRenderer{}, 450),
	))
}
