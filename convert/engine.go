package convert

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	meta "github.com/yuin/goldmark-meta"

	"github.com/criticmd/criticmd/critic"
	"github.com/criticmd/criticmd/markext"
	"github.com/criticmd/criticmd/settings"
)

// Engine is the external markdown engine collaborator. The orchestrator
// treats the call as opaque: body text in, HTML plus emitted metadata out.
type Engine interface {
	Convert(body string, cfg settings.Settings) (html string, metadata map[string]any, err error)
}

// GoldmarkEngine implements Engine with the goldmark library. The engine is
// stateless; a fresh goldmark instance is built per document from the
// resolved extension list.
type GoldmarkEngine struct{}

func (GoldmarkEngine) Convert(body string, cfg settings.Settings) (string, map[string]any, error) {
	engine := newGoldmark(cfg)
	ctx := parser.NewContext()

	var buf bytes.Buffer
	if err := engine.Convert([]byte(body), &buf, parser.WithContext(ctx)); err != nil {
		return "", nil, wrapEngine(err, "markdown conversion failed")
	}

	emitted := map[string]any{}
	for key, value := range meta.Get(ctx) {
		emitted[key] = settings.Normalize(value)
	}
	return buf.String(), emitted, nil
}

// Named extensions a document can enable through its resolved settings.
// Unknown names are ignored.
var extensionRegistry = map[string]goldmark.Extender{
	"gfm":           extension.GFM,
	"table":         extension.Table,
	"tables":        extension.Table,
	"strikethrough": extension.Strikethrough,
	"linkify":       extension.Linkify,
	"autolink":      extension.Linkify,
	"tasklist":      extension.TaskList,
	"definition":    extension.DefinitionList,
	"footnote":      extension.Footnote,
	"typographer":   extension.Typographer,
}

func newGoldmark(cfg settings.Settings) goldmark.Markdown {
	exts := []goldmark.Extender{meta.Meta}
	for _, name := range cfg.Extensions {
		switch name {
		case "insert":
			exts = append(exts, markext.Insert(boolOption(cfg, "insert", "smart_insert", true)))
		case "delete":
			exts = append(exts, markext.Delete(boolOption(cfg, "delete", "smart_delete", true)))
		default:
			if ext, ok := extensionRegistry[name]; ok {
				exts = append(exts, ext)
			}
		}
	}
	if cfg.Critic.Has(critic.View) {
		exts = append(exts, critic.ViewExtension)
	}

	return goldmark.New(
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(html.WithUnsafe()),
		goldmark.WithExtensions(exts...),
	)
}

func boolOption(cfg settings.Settings, extName, key string, fallback bool) bool {
	opts, ok := cfg.ExtensionOptions[extName]
	if !ok {
		return fallback
	}
	value, ok := opts[key].(bool)
	if !ok {
		return fallback
	}
	return value
}
