// Package convert drives the per-document conversion pipeline: read,
// extract front matter, resolve settings, then either dump resolved critic
// markdown or render HTML through the markdown engine, and write the result.
package convert

import (
	"io"
	"os"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"

	"github.com/criticmd/criticmd/critic"
	"github.com/criticmd/criticmd/settings"
)

// Config holds the run-level conversion options shared by every document in
// a batch.
type Config struct {
	// Resolver supplies per-document settings. Required.
	Resolver *settings.Resolver
	// Engine is the external markdown engine; defaults to GoldmarkEngine.
	Engine Engine
	// Logger receives per-document progress and failures.
	Logger Logger

	// Output, Title, and BasePath are caller overrides applied to every
	// document's settings resolution.
	Output   string
	Title    string
	BasePath string

	// Critic overrides the resolved critic posture when nonzero. The Dump
	// flag selects the critic-dump branch.
	Critic critic.Mode
	// Batch derives each destination from its source file name.
	Batch bool
	// Preview writes to a temporary file and opens it in a viewer.
	Preview bool
	// Plain emits the engine's HTML body without the page shell.
	Plain bool
	// ContinueOnError processes the remaining documents after a failure
	// instead of abandoning the batch.
	ContinueOnError bool

	// Stdout receives artifacts without a file destination. Defaults to
	// os.Stdout.
	Stdout io.Writer
}

func (c Config) applyDefaults() Config {
	if c.Engine == nil {
		c.Engine = GoldmarkEngine{}
	}
	if c.Logger == nil {
		c.Logger = defaultLogger()
	}
	if c.Stdout == nil {
		c.Stdout = os.Stdout
	}
	return c
}

// Validate checks that the config can drive a conversion. An ambiguous
// critic dump request is rejected here, before any document is touched.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Resolver, validation.Required),
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid converter config").
			WithTextCode(settings.CodeConfigError)
	}
	return c.Critic.Validate()
}

// Converter runs the conversion pipeline over a fixed sequence of
// documents. Documents are processed strictly sequentially; each owns its
// settings, scan state, and output handle exclusively.
type Converter struct {
	cfg Config
}

// New creates a Converter with the given config.
func New(cfg Config) (*Converter, error) {
	cfg = cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Converter{cfg: cfg}, nil
}

// Source identifies one document to convert: a file path, or in-memory
// stream content when Path is empty.
type Source struct {
	Path string
	Text string
}

// Stream reports whether the source is stream input.
func (s Source) Stream() bool { return s.Path == "" }

// Identity returns the label used in logs and results.
func (s Source) Identity() string {
	if s.Stream() {
		return "<stdin>"
	}
	return s.Path
}

// ConvertFiles processes the files in order. On the first failure the
// remaining documents are abandoned and the run reports failure, unless
// ContinueOnError is set.
func (c *Converter) ConvertFiles(paths []string) Result {
	sources := make([]Source, 0, len(paths))
	for _, path := range paths {
		sources = append(sources, Source{Path: path})
	}
	return c.convertAll(sources)
}

// ConvertStream reads the whole stream, decodes it with the run input
// encoding, and converts it as a single document.
func (c *Converter) ConvertStream(r io.Reader) Result {
	raw, err := io.ReadAll(r)
	if err != nil {
		err = wrapIO(err, "read input stream")
		c.cfg.Logger.Error("conversion failed", "source", "<stdin>", "error", err)
		return Result{Status: Fail, Documents: []DocumentResult{{
			Source: "<stdin>", Status: Fail, Err: err,
		}}}
	}
	text, err := DecodeText(raw, c.cfg.Resolver.InputEncoding())
	if err != nil {
		c.cfg.Logger.Error("conversion failed", "source", "<stdin>", "error", err)
		return Result{Status: Fail, Documents: []DocumentResult{{
			Source: "<stdin>", Status: Fail, Err: err,
		}}}
	}
	return c.convertAll([]Source{{Text: text}})
}

func (c *Converter) convertAll(sources []Source) Result {
	result := Result{Status: Pass}
	for _, src := range sources {
		dr := c.convertOne(src)
		result.Documents = append(result.Documents, dr)
		if dr.Status == Fail {
			result.Status = Fail
			c.cfg.Logger.Error("conversion failed", "source", dr.Source, "error", dr.Err)
			if !c.cfg.ContinueOnError {
				break
			}
		}
	}
	return result
}

// convertOne walks the per-document state machine:
// Read -> ExtractFrontMatter -> ResolveSettings -> {CriticDump | Render} -> Write.
func (c *Converter) convertOne(src Source) DocumentResult {
	dr := DocumentResult{Source: src.Identity(), Status: Pass}
	if src.Stream() {
		c.cfg.Logger.Info("converting buffer")
	} else {
		c.cfg.Logger.Info("converting", "source", src.Path)
	}

	text, err := c.readSource(src)
	if err != nil {
		return dr.fail(err)
	}

	front, body := extractFrontMatter(text)

	cfg, err := c.cfg.Resolver.Resolve(settings.Request{
		FilePath:    src.Path,
		BasePath:    c.cfg.BasePath,
		Output:      c.cfg.Output,
		Title:       c.cfg.Title,
		FrontMatter: front,
		Critic:      c.cfg.Critic,
		Batch:       c.cfg.Batch,
	})
	if err != nil {
		return dr.fail(err)
	}

	if cfg.Critic.Has(critic.Dump) {
		return c.criticDump(text, cfg, dr)
	}
	return c.render(body, cfg, dr)
}

// criticDump writes the resolved markdown text itself as the artifact. The
// raw document text is used, front matter included, so the dump reproduces
// the source file with marks resolved.
func (c *Converter) criticDump(text string, cfg settings.Settings, dr DocumentResult) DocumentResult {
	if err := cfg.Critic.Validate(); err != nil {
		return dr.fail(err)
	}

	resolved := critic.Resolve(text, cfg.Critic)
	if err := writeArtifact(cfg.Output, cfg.OutputEncoding, resolved, c.cfg.Stdout); err != nil {
		return dr.fail(err)
	}
	dr.Output = cfg.Output
	return dr
}

// render feeds the document through the markdown engine and writes the HTML
// artifact.
func (c *Converter) render(body string, cfg settings.Settings, dr DocumentResult) DocumentResult {
	refText, warnings := c.loadReferences(cfg)
	dr.Warnings = warnings
	body += refText

	// Critic resolution happens before markdown parsing; View and Ignore
	// pass the text through untouched.
	body = critic.Resolve(body, cfg.Critic)

	html, engineMeta, err := c.cfg.Engine.Convert(body, cfg)
	if err != nil {
		return dr.fail(err)
	}

	metadata := settings.MergeMeta(cfg.Meta, engineMeta, cfg.Title)
	page := buildPage(html, metadata, cfg, c.cfg.Plain)

	dest := cfg.Output
	if c.cfg.Preview {
		dest, err = previewDestination()
		if err != nil {
			return dr.fail(err)
		}
	}

	if err := writeArtifact(dest, cfg.OutputEncoding, page, c.cfg.Stdout); err != nil {
		return dr.fail(err)
	}
	dr.Output = dest

	if c.cfg.Preview && dest != "" {
		openPreview(dest)
	}
	return dr
}

// loadReferences resolves and reads every external reference entry. Misses
// are recoverable: they are logged, reported as warnings, and contribute
// empty text without failing the document.
func (c *Converter) loadReferences(cfg settings.Settings) (string, []Warning) {
	var sb strings.Builder
	var warnings []Warning

	for _, entry := range cfg.References {
		ref := settings.SplitEncoding(entry, cfg.Encoding)

		path, err := c.cfg.Resolver.ResolvePath(ref, cfg.BasePath)
		if err != nil {
			c.cfg.Logger.Warn("reference not found", "reference", ref.Name)
			warnings = append(warnings, Warning{
				Type:    WarningReferenceNotFound,
				Message: "could not find reference file " + ref.Name,
			})
			continue
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			c.cfg.Logger.Warn("reference unreadable", "reference", path, "error", err)
			warnings = append(warnings, Warning{
				Type:    WarningReferenceRead,
				Message: "could not read reference file " + path,
			})
			continue
		}
		text, err := DecodeText(raw, ref.Encoding)
		if err != nil {
			c.cfg.Logger.Warn("reference undecodable", "reference", path, "error", err)
			warnings = append(warnings, Warning{
				Type:    WarningReferenceRead,
				Message: "could not decode reference file " + path,
			})
			continue
		}
		sb.WriteString(text)
	}
	return sb.String(), warnings
}

func (c *Converter) readSource(src Source) (string, error) {
	if src.Stream() {
		return src.Text, nil
	}
	raw, err := os.ReadFile(src.Path)
	if err != nil {
		return "", wrapIO(err, "failed to open "+src.Path)
	}
	return DecodeText(raw, c.cfg.Resolver.InputEncoding())
}

func (dr DocumentResult) fail(err error) DocumentResult {
	dr.Status = Fail
	dr.Err = err
	return dr
}
