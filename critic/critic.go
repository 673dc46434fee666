// Package critic resolves CriticMarkup review annotations embedded in
// markdown text: proposed insertions, deletions, substitutions, highlights,
// and comments.
package critic

import (
	"errors"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Mode is a bitwise union of critic processing flags.
type Mode uint8

// Ignore disables critic scanning; text passes through byte for byte.
const Ignore Mode = 0

const (
	// Accept resolves every mark in favor of the proposed change.
	Accept Mode = 1 << iota
	// Reject resolves every mark in favor of the original text.
	Reject
	// View leaves marks in place so the renderer can annotate them.
	View
	// Dump redirects the pipeline to emit resolved markdown instead of HTML.
	Dump
)

// CodeAmbiguousResolution is the error code reported when Dump is requested
// without exactly one of Accept or Reject.
const CodeAmbiguousResolution = "AMBIGUOUS_RESOLUTION"

// Has reports whether all bits of flag are set.
func (m Mode) Has(flag Mode) bool { return m&flag == flag }

// Validate enforces that Dump carries exactly one of Accept or Reject.
// Dump with neither, or with both, is a configuration error rather than a
// degraded default.
func (m Mode) Validate() error {
	if !m.Has(Dump) {
		return nil
	}
	if m.Has(Accept) == m.Has(Reject) {
		return goerrors.New(
			"critic dump requires exactly one of accept or reject",
			goerrors.CategoryValidation,
		).WithTextCode(CodeAmbiguousResolution)
	}
	return nil
}

// IsAmbiguousResolution reports whether err was produced by Mode.Validate
// rejecting an ambiguous dump request.
func IsAmbiguousResolution(err error) bool {
	return hasTextCode(err, CodeAmbiguousResolution)
}

// ParseMode maps a settings posture string to a Mode. The empty string maps
// to View, the posture used when no resolution was requested.
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "view":
		return View, nil
	case "accept":
		return Accept, nil
	case "reject":
		return Reject, nil
	case "ignore":
		return Ignore, nil
	default:
		return Ignore, fmt.Errorf("unknown critic mode %q", value)
	}
}

// String returns the posture names joined by "+", or "ignore" for the zero
// mode.
func (m Mode) String() string {
	if m == Ignore {
		return "ignore"
	}
	var parts []string
	if m.Has(Accept) {
		parts = append(parts, "accept")
	}
	if m.Has(Reject) {
		parts = append(parts, "reject")
	}
	if m.Has(View) {
		parts = append(parts, "view")
	}
	if m.Has(Dump) {
		parts = append(parts, "dump")
	}
	return strings.Join(parts, "+")
}

// Kind identifies the annotation variant a mark carries.
type Kind int

const (
	Addition Kind = iota
	Deletion
	Substitution
	Highlight
	Comment
)

// Mark is one recognized critic span. Substitution carries both payloads;
// every other kind uses Text alone.
type Mark struct {
	Kind    Kind
	Text    string
	NewText string
}

const subSeparator = "~~>"

var delimiters = []struct {
	kind  Kind
	open  string
	close string
}{
	{Addition, "{++", "++}"},
	{Deletion, "{--", "--}"},
	{Substitution, "{~~", "~~}"},
	{Highlight, "{==", "==}"},
	{Comment, "{>>", "<<}"},
}

// Scan attempts to read a single critic mark starting at offset i in text.
// It returns the mark and the offset just past its closing delimiter. The
// closing delimiter is matched with the shortest possible span. A missing
// closer, or a substitution without its ~~> separator, returns ok=false so
// the caller can treat the opener as literal text.
func Scan(text string, i int) (mark Mark, next int, ok bool) {
	if i >= len(text) || text[i] != '{' {
		return Mark{}, 0, false
	}
	rest := text[i:]
	for _, d := range delimiters {
		if !strings.HasPrefix(rest, d.open) {
			continue
		}
		body := rest[len(d.open):]
		end := strings.Index(body, d.close)
		if end < 0 {
			return Mark{}, 0, false
		}
		payload := body[:end]
		next = i + len(d.open) + end + len(d.close)
		if d.kind == Substitution {
			sep := strings.Index(payload, subSeparator)
			if sep < 0 {
				return Mark{}, 0, false
			}
			return Mark{
				Kind:    Substitution,
				Text:    payload[:sep],
				NewText: payload[sep+len(subSeparator):],
			}, next, true
		}
		return Mark{Kind: d.kind, Text: payload}, next, true
	}
	return Mark{}, 0, false
}

// Resolve rewrites text according to the mode's review posture. Ignore and
// View return the text unchanged; Accept and Reject apply the resolution
// table. A mode with both Accept and Reject set behaves as View.
// Malformed or unterminated marks degrade to literal text, never an error.
func Resolve(text string, mode Mode) string {
	accept := mode.Has(Accept)
	reject := mode.Has(Reject)
	if accept == reject {
		return text
	}

	var sb strings.Builder
	sb.Grow(len(text))
	for i := 0; i < len(text); {
		if text[i] == '{' {
			if mark, next, ok := Scan(text, i); ok {
				sb.WriteString(mark.resolve(accept))
				i = next
				continue
			}
		}
		sb.WriteByte(text[i])
		i++
	}
	return sb.String()
}

func (m Mark) resolve(accept bool) string {
	switch m.Kind {
	case Addition:
		if accept {
			return m.Text
		}
		return ""
	case Deletion:
		if accept {
			return ""
		}
		return m.Text
	case Substitution:
		if accept {
			return m.NewText
		}
		return m.Text
	case Highlight:
		return m.Text
	case Comment:
		return ""
	default:
		return ""
	}
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var ge *goerrors.Error
	if !errors.As(err, &ge) {
		return false
	}
	return ge.TextCode == code
}
