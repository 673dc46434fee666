package settings

import (
	"os"
	"path/filepath"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Reference is one external reference entry from the resolved reference
// list, split into its file name and declared encoding.
type Reference struct {
	Name     string
	Encoding string
}

// SplitEncoding splits a reference entry on its trailing ";encoding" suffix.
// Entries without a suffix use the fallback encoding.
func SplitEncoding(entry, fallback string) Reference {
	if idx := strings.LastIndexByte(entry, ';'); idx > 0 && idx < len(entry)-1 {
		return Reference{Name: entry[:idx], Encoding: entry[idx+1:]}
	}
	return Reference{Name: entry, Encoding: fallback}
}

// ResolvePath locates the reference on disk. Relative names are tried
// against the document base path and then the user resource path; absolute
// names are checked directly. The first candidate that is an existing
// regular file wins. A reference that resolves nowhere is a recoverable
// ReferenceNotFound error; callers log it and contribute empty text.
func (r *Resolver) ResolvePath(ref Reference, basePath string) (string, error) {
	var candidates []string
	if filepath.IsAbs(ref.Name) {
		candidates = []string{ref.Name}
	} else {
		if basePath != "" {
			candidates = append(candidates, filepath.Join(basePath, ref.Name))
		}
		if user := r.env.UserPath(); user != "" {
			candidates = append(candidates, filepath.Join(user, ref.Name))
		}
	}

	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && info.Mode().IsRegular() {
			return candidate, nil
		}
	}

	return "", goerrors.New(
		"could not find reference file "+ref.Name,
		goerrors.CategoryNotFound,
	).WithTextCode(CodeReferenceNotFound)
}
