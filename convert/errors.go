package convert

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

// Error codes surfaced by the orchestrator. Settings and critic failures
// keep the codes of their own packages.
const (
	CodeIOError     = "IO_ERROR"
	CodeEngineError = "ENGINE_ERROR"
)

// IsIOError reports whether err is an unreadable source or unwritable
// destination failure.
func IsIOError(err error) bool { return hasTextCode(err, CodeIOError) }

// IsEngineError reports whether err was raised by the external markdown
// engine during conversion.
func IsEngineError(err error) bool { return hasTextCode(err, CodeEngineError) }

func wrapIO(err error, msg string) error {
	return goerrors.Wrap(err, goerrors.CategoryOperation, msg).
		WithTextCode(CodeIOError)
}

func wrapEngine(err error, msg string) error {
	return goerrors.Wrap(err, goerrors.CategoryExternal, msg).
		WithTextCode(CodeEngineError)
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
