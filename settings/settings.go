// Package settings resolves the per-document configuration by merging
// built-in defaults, the global settings file, document front matter, and
// caller overrides. Every key is applied by whole-key replacement; a higher
// layer's value fully replaces a lower layer's value, never augments it.
package settings

import (
	"fmt"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/criticmd/criticmd/critic"
)

// Settings is the resolved, read-only configuration for one document. It is
// constructed exactly once per document and never mutated afterward; a stage
// needing a different value must re-resolve.
type Settings struct {
	Encoding         string
	OutputEncoding   string
	Output           string // destination path; empty means standard output
	BasePath         string
	Title            string
	Extensions       []string
	ExtensionOptions map[string]map[string]any
	Meta             map[string]any
	References       []string
	Critic           critic.Mode
}

// Options configures a Resolver for one run.
type Options struct {
	// SettingsPath overrides the global settings file location. When empty
	// the CRITICMD_SETTINGS environment variable and then the user config
	// directory are consulted.
	SettingsPath string
	// Encoding is the run-level input encoding; it replaces the resolved
	// encoding for every document when set.
	Encoding string
	// OutputEncoding overrides the output encoding; it falls back to the
	// input encoding when empty.
	OutputEncoding string
}

// Request carries the per-document inputs to Resolve. Zero fields leave the
// corresponding lower layers in effect.
type Request struct {
	FilePath    string // empty for stream input
	BasePath    string
	Output      string
	Title       string
	FrontMatter map[string]any
	Critic      critic.Mode // zero means no caller override
	Batch       bool        // derive the destination from the file name
}

// Resolver merges settings layers. The global settings file is loaded once
// at construction and shared read-only across every document in the run.
type Resolver struct {
	opts   Options
	env    Environment
	global map[string]any
}

// NewResolver loads the environment and the global settings file. A missing
// file yields an empty global layer; an unparsable file is a ConfigError.
func NewResolver(opts Options) (*Resolver, error) {
	environ, err := loadEnvironment()
	if err != nil {
		return nil, err
	}

	path := opts.SettingsPath
	if path == "" {
		path = environ.settingsPath()
	}
	global, err := loadGlobal(path)
	if err != nil {
		return nil, err
	}

	return &Resolver{opts: opts, env: environ, global: global}, nil
}

// InputEncoding returns the run-level input encoding, defaulting to utf-8.
func (r *Resolver) InputEncoding() string {
	if r.opts.Encoding != "" {
		return r.opts.Encoding
	}
	return defaultEncoding
}

const defaultEncoding = "utf-8"

// Keys consumed by the resolver itself. Everything else in the merged map
// becomes document metadata.
var reservedKeys = map[string]bool{
	"encoding":          true,
	"output_encoding":   true,
	"destination":       true,
	"basepath":          true,
	"extensions":        true,
	"extension_options": true,
	"references":        true,
	"critic":            true,
}

// Resolve builds the Settings for one document. Merge order, lowest to
// highest precedence: built-in defaults, the global settings file, the
// document front matter, then the caller overrides in req.
func (r *Resolver) Resolve(req Request) (Settings, error) {
	merged := map[string]any{
		"encoding": defaultEncoding,
		"critic":   "view",
	}
	for _, layer := range []map[string]any{r.global, req.FrontMatter} {
		for key, value := range layer {
			merged[key] = Normalize(value)
		}
	}

	mode, err := critic.ParseMode(stringKey(merged, "critic", "view"))
	if err != nil {
		return Settings{}, wrapConfig(err, "invalid critic setting")
	}

	s := Settings{
		Encoding:         stringKey(merged, "encoding", defaultEncoding),
		OutputEncoding:   stringKey(merged, "output_encoding", ""),
		Output:           stringKey(merged, "destination", ""),
		BasePath:         stringKey(merged, "basepath", ""),
		Extensions:       stringSlice(merged["extensions"]),
		ExtensionOptions: optionsMap(merged["extension_options"]),
		References:       stringSlice(merged["references"]),
		Critic:           mode,
	}

	// Caller overrides replace their single fields only.
	if r.opts.Encoding != "" {
		s.Encoding = r.opts.Encoding
	}
	if r.opts.OutputEncoding != "" {
		s.OutputEncoding = r.opts.OutputEncoding
	}
	if s.OutputEncoding == "" {
		s.OutputEncoding = s.Encoding
	}
	if req.Output != "" {
		s.Output = req.Output
	}
	if req.BasePath != "" {
		s.BasePath = req.BasePath
	}
	if req.Critic != 0 {
		s.Critic = req.Critic
	}

	if s.BasePath == "" && req.FilePath != "" {
		if abs, err := filepath.Abs(req.FilePath); err == nil {
			s.BasePath = filepath.Dir(abs)
		}
	}

	s.Title = deriveTitle(req, merged)
	s.Meta = metaFromMerged(merged)

	if s.Output == "" && req.Batch && req.FilePath != "" {
		s.Output = batchDestination(req.FilePath, s.Critic)
	}

	if err := s.validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// deriveTitle prefers the caller override, then the merged title key, then
// the file name stem. Stream input without a title leaves it unset.
func deriveTitle(req Request, merged map[string]any) string {
	if req.Title != "" {
		return req.Title
	}
	if title := stringKey(merged, "title", ""); title != "" {
		return title
	}
	if req.FilePath == "" {
		return ""
	}
	base := filepath.Base(req.FilePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func metaFromMerged(merged map[string]any) map[string]any {
	meta := map[string]any{}
	for key, value := range merged {
		if !reservedKeys[key] {
			meta[key] = value
		}
	}
	return meta
}

// batchDestination derives the output path from the source name. Dumps use
// .txt so a resolved dump can never clobber its own source.
func batchDestination(path string, mode critic.Mode) string {
	ext := ".html"
	if mode.Has(critic.Dump) {
		ext = ".txt"
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

func (s Settings) validate() error {
	err := validation.ValidateStruct(&s,
		validation.Field(&s.Encoding, validation.Required),
		validation.Field(&s.OutputEncoding, validation.Required),
	)
	if err != nil {
		return wrapConfig(err, "invalid resolved settings")
	}
	for _, name := range []string{s.Encoding, s.OutputEncoding} {
		if err := checkEncoding(name); err != nil {
			return err
		}
	}
	return nil
}

// MergeMeta merges engine-emitted metadata over front-matter metadata using
// whole-key replacement, backfilling the title only when absent.
func MergeMeta(frontMatter, engine map[string]any, title string) map[string]any {
	merged := make(map[string]any, len(frontMatter)+len(engine)+1)
	for key, value := range frontMatter {
		merged[key] = value
	}
	for key, value := range engine {
		merged[key] = value
	}
	if _, ok := merged["title"]; !ok && title != "" {
		merged["title"] = title
	}
	return merged
}

func stringKey(m map[string]any, key, fallback string) string {
	value, ok := m[key]
	if !ok || value == nil {
		return fallback
	}
	switch typed := value.(type) {
	case string:
		return typed
	default:
		return fmt.Sprint(typed)
	}
}

func stringSlice(value any) []string {
	switch typed := value.(type) {
	case nil:
		return nil
	case []string:
		return append([]string(nil), typed...)
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		return []string{typed}
	default:
		return nil
	}
}

func optionsMap(value any) map[string]map[string]any {
	raw, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]map[string]any, len(raw))
	for name, opts := range raw {
		inner, ok := opts.(map[string]any)
		if !ok {
			continue
		}
		cloned := make(map[string]any, len(inner))
		for key, v := range inner {
			cloned[key] = v
		}
		out[name] = cloned
	}
	return out
}
