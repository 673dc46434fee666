package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	env "github.com/caarlos0/env/v11"
	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/text/encoding/htmlindex"
	"gopkg.in/yaml.v3"
)

// Error codes surfaced by the resolver.
const (
	CodeConfigError       = "CONFIG_ERROR"
	CodeReferenceNotFound = "REFERENCE_NOT_FOUND"
)

// IsConfigError reports whether err is a settings configuration failure.
func IsConfigError(err error) bool {
	return hasTextCode(err, CodeConfigError)
}

// IsReferenceNotFound reports whether err is a recoverable missing-reference
// failure.
func IsReferenceNotFound(err error) bool {
	return hasTextCode(err, CodeReferenceNotFound)
}

func wrapConfig(err error, msg string) error {
	return goerrors.Wrap(err, goerrors.CategoryValidation, msg).
		WithTextCode(CodeConfigError)
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

// Environment captures the resolver's environment discovery: the user
// resource directory and an alternate global settings file location.
type Environment struct {
	Home         string `env:"CRITICMD_HOME"`
	SettingsFile string `env:"CRITICMD_SETTINGS"`
}

func loadEnvironment() (Environment, error) {
	var environ Environment
	if err := env.Parse(&environ); err != nil {
		return Environment{}, wrapConfig(err, "parse environment")
	}
	if environ.Home == "" {
		if home, err := os.UserHomeDir(); err == nil {
			environ.Home = filepath.Join(home, ".criticmd")
		}
	}
	return environ, nil
}

// UserPath returns the user resource directory consulted when resolving
// reference entries that exist neither absolutely nor under the base path.
func (e Environment) UserPath() string { return e.Home }

func (e Environment) settingsPath() string {
	if e.SettingsFile != "" {
		return e.SettingsFile
	}
	if e.Home == "" {
		return ""
	}
	return filepath.Join(e.Home, "settings.yml")
}

// loadGlobal reads the persisted settings source. A missing file is not an
// error; the global layer is simply empty.
func loadGlobal(path string) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, wrapConfig(err, "read settings file "+path)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, wrapConfig(err, "parse settings file "+path)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	normalized := make(map[string]any, len(raw))
	for key, value := range raw {
		normalized[key] = Normalize(value)
	}
	return normalized, nil
}

// Normalize rewrites YAML map values keyed by any into string-keyed maps so
// layers decoded by different YAML libraries merge uniformly.
func Normalize(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, v := range typed {
			out[key] = Normalize(v)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(typed))
		for key, v := range typed {
			out[stringify(key)] = Normalize(v)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, v := range typed {
			out[i] = Normalize(v)
		}
		return out
	default:
		return value
	}
}

func stringify(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}

// checkEncoding rejects charset names the encoder cannot resolve.
func checkEncoding(name string) error {
	if name == "" || name == defaultEncoding {
		return nil
	}
	if _, err := htmlindex.Get(name); err != nil {
		return wrapConfig(err, "unknown encoding "+name)
	}
	return nil
}
