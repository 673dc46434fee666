package convert

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/criticmd/criticmd/settings"
)

func lookupEncoding(name string) (encoding.Encoding, error) {
	if name == "" || strings.EqualFold(name, "utf-8") || strings.EqualFold(name, "utf8") {
		return nil, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "unknown encoding "+name).
			WithTextCode(settings.CodeConfigError)
	}
	return enc, nil
}

// DecodeText decodes raw bytes using the named charset. UTF-8 input is
// passed through untouched.
func DecodeText(raw []byte, name string) (string, error) {
	enc, err := lookupEncoding(name)
	if err != nil {
		return "", err
	}
	if enc == nil {
		return string(raw), nil
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", wrapIO(err, "decode input as "+name)
	}
	return string(out), nil
}

func encodeText(text, name string) ([]byte, error) {
	enc, err := lookupEncoding(name)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return []byte(text), nil
	}
	out, err := enc.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, wrapIO(err, "encode output as "+name)
	}
	return out, nil
}
