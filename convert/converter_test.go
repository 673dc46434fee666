package convert

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/criticmd/criticmd/critic"
	"github.com/criticmd/criticmd/settings"
)

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...any) {}
func (nopLogger) Info(msg string, args ...any)  {}
func (nopLogger) Warn(msg string, args ...any)  {}
func (nopLogger) Error(msg string, args ...any) {}

func newTestResolver(t *testing.T) *settings.Resolver {
	t.Helper()

	t.Setenv("CRITICMD_HOME", t.TempDir())
	t.Setenv("CRITICMD_SETTINGS", filepath.Join(t.TempDir(), "nonexistent.yml"))

	r, err := settings.NewResolver(settings.Options{})
	require.NoError(t, err)
	return r
}

func newTestConverter(t *testing.T, cfg Config) *Converter {
	t.Helper()

	if cfg.Resolver == nil {
		cfg.Resolver = newTestResolver(t)
	}
	if cfg.Logger == nil {
		cfg.Logger = nopLogger{}
	}
	conv, err := New(cfg)
	require.NoError(t, err)
	return conv
}

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const criticInput = "# Title\n{++added++} and {--removed--} text."

func TestCriticDumpAccept(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "doc.md", criticInput)
	out := filepath.Join(dir, "out.md")

	conv := newTestConverter(t, Config{
		Critic: critic.Accept | critic.Dump,
		Output: out,
	})
	result := conv.ConvertFiles([]string{src})
	require.False(t, result.Failed())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "# Title\nadded and  text.", string(data))
}

func TestCriticDumpReject(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "doc.md", criticInput)
	out := filepath.Join(dir, "out.md")

	conv := newTestConverter(t, Config{
		Critic: critic.Reject | critic.Dump,
		Output: out,
	})
	result := conv.ConvertFiles([]string{src})
	require.False(t, result.Failed())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "# Title\n and removed text.", string(data))
}

func TestCriticDumpAmbiguous(t *testing.T) {
	resolver := newTestResolver(t)

	for _, mode := range []critic.Mode{critic.Dump, critic.Accept | critic.Reject | critic.Dump} {
		_, err := New(Config{
			Resolver: resolver,
			Logger:   nopLogger{},
			Critic:   mode,
		})
		require.Error(t, err, "mode %s", mode)
		assert.True(t, critic.IsAmbiguousResolution(err), "mode %s", mode)
	}
}

func TestBatchFailFast(t *testing.T) {
	dir := t.TempDir()
	first := writeSource(t, dir, "a.md", "first")
	missing := filepath.Join(dir, "missing.md")
	third := writeSource(t, dir, "c.md", "third")

	conv := newTestConverter(t, Config{
		Critic: critic.Accept | critic.Dump,
		Batch:  true,
	})
	result := conv.ConvertFiles([]string{first, missing, third})

	assert.True(t, result.Failed())
	require.Len(t, result.Documents, 2)
	assert.Equal(t, Pass, result.Documents[0].Status)
	assert.Equal(t, Fail, result.Documents[1].Status)
	assert.True(t, IsIOError(result.Documents[1].Err))

	// The third document was never processed.
	_, err := os.Stat(filepath.Join(dir, "c.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestBatchContinueOnError(t *testing.T) {
	dir := t.TempDir()
	first := writeSource(t, dir, "a.md", "first")
	missing := filepath.Join(dir, "missing.md")
	third := writeSource(t, dir, "c.md", "third")

	conv := newTestConverter(t, Config{
		Critic:          critic.Accept | critic.Dump,
		Batch:           true,
		ContinueOnError: true,
	})
	result := conv.ConvertFiles([]string{first, missing, third})

	assert.True(t, result.Failed())
	require.Len(t, result.Documents, 3)
	assert.Equal(t, Pass, result.Documents[2].Status)

	data, err := os.ReadFile(filepath.Join(dir, "c.txt"))
	require.NoError(t, err)
	assert.Equal(t, "third", string(data))
}

func TestRenderWritesHTMLPage(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "notes.md", "---\ntitle: Custom\n---\n# Heading\n\nbody text\n")
	out := filepath.Join(dir, "notes.html")

	conv := newTestConverter(t, Config{Output: out})
	result := conv.ConvertFiles([]string{src})
	require.False(t, result.Failed())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	html := string(data)
	assert.Contains(t, html, "<title>Custom</title>")
	assert.Contains(t, html, "<h1")
	assert.Contains(t, html, "Heading")
	assert.Contains(t, html, "<p>body text</p>")
}

func TestRenderTitleFallsBackToFileName(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "notes.md", "plain body\n")
	out := filepath.Join(dir, "notes.html")

	conv := newTestConverter(t, Config{Output: out})
	result := conv.ConvertFiles([]string{src})
	require.False(t, result.Failed())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<title>notes</title>")
}

func TestRenderViewAnnotatesMarks(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "review.md", "keep {==this==} marked\n")
	out := filepath.Join(dir, "review.html")

	conv := newTestConverter(t, Config{Output: out})
	result := conv.ConvertFiles([]string{src})
	require.False(t, result.Failed())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `<mark class="critic">this</mark>`)
}

func TestRenderAcceptResolvesBeforeParse(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "review.md", "keep {++new words++} here\n")
	out := filepath.Join(dir, "review.html")

	conv := newTestConverter(t, Config{Output: out, Critic: critic.Accept})
	result := conv.ConvertFiles([]string{src})
	require.False(t, result.Failed())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	html := string(data)
	assert.Contains(t, html, "<p>keep new words here</p>")
	assert.NotContains(t, html, "critic")
}

func TestRenderAppendsReferences(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "refs.md", "\n[link]: https://example.com\n")
	src := writeSource(t, dir, "doc.md", "---\nreferences:\n  - refs.md\n---\nsee [link]\n")
	out := filepath.Join(dir, "doc.html")

	conv := newTestConverter(t, Config{Output: out})
	result := conv.ConvertFiles([]string{src})
	require.False(t, result.Failed())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `<a href="https://example.com">link</a>`)
}

func TestRenderMissingReferenceIsRecoverable(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "doc.md", "---\nreferences:\n  - missing.md\n---\nbody\n")
	out := filepath.Join(dir, "doc.html")

	conv := newTestConverter(t, Config{Output: out})
	result := conv.ConvertFiles([]string{src})

	require.False(t, result.Failed())
	require.Len(t, result.Documents, 1)
	doc := result.Documents[0]
	assert.Equal(t, Pass, doc.Status)
	require.Len(t, doc.Warnings, 1)
	assert.Equal(t, WarningReferenceNotFound, doc.Warnings[0].Type)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<p>body</p>")
}

func TestRenderFrontMatterExtensions(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "doc.md", "---\nextensions:\n  - insert\n  - delete\n---\nan ^^added^^ and ~~dropped~~ word\n")
	out := filepath.Join(dir, "doc.html")

	conv := newTestConverter(t, Config{Output: out})
	result := conv.ConvertFiles([]string{src})
	require.False(t, result.Failed())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	html := string(data)
	assert.Contains(t, html, "<ins>added</ins>")
	assert.Contains(t, html, "<del>dropped</del>")
}

func TestConvertStreamWritesToStdout(t *testing.T) {
	var stdout bytes.Buffer
	conv := newTestConverter(t, Config{
		Critic: critic.Accept | critic.Dump,
		Stdout: &stdout,
	})

	result := conv.ConvertStream(strings.NewReader(criticInput))
	require.False(t, result.Failed())
	assert.Equal(t, "# Title\nadded and  text.", stdout.String())
	assert.Equal(t, "<stdin>", result.Documents[0].Source)
}

func TestPlainOutputSkipsPageShell(t *testing.T) {
	var stdout bytes.Buffer
	conv := newTestConverter(t, Config{Plain: true, Stdout: &stdout})

	result := conv.ConvertStream(strings.NewReader("# Heading\n"))
	require.False(t, result.Failed())
	assert.NotContains(t, stdout.String(), "<!DOCTYPE html>")
	assert.Contains(t, stdout.String(), "Heading")
}

func TestNewRequiresResolver(t *testing.T) {
	_, err := New(Config{Logger: nopLogger{}})
	require.Error(t, err)
	assert.True(t, settings.IsConfigError(err))
}

func TestMalformedFrontMatterDegrades(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "doc.md", "---\n: bad: [yaml\n---\nbody\n")
	out := filepath.Join(dir, "doc.html")

	conv := newTestConverter(t, Config{Output: out})
	result := conv.ConvertFiles([]string{src})
	require.False(t, result.Failed())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "body")
}
