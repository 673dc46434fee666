package convert

import (
	"strings"

	"github.com/adrg/frontmatter"

	"github.com/criticmd/criticmd/settings"
)

// extractFrontMatter splits a leading delimited block from text into a
// mapping and the remaining body. Absence of a block yields an empty mapping
// and the full text; a malformed block degrades the same way instead of
// failing the document.
func extractFrontMatter(text string) (map[string]any, string) {
	var meta map[string]any
	body, err := frontmatter.Parse(strings.NewReader(text), &meta)
	if err != nil {
		return map[string]any{}, text
	}
	if meta == nil {
		return map[string]any{}, string(body)
	}

	normalized := make(map[string]any, len(meta))
	for key, value := range meta {
		normalized[key] = settings.Normalize(value)
	}
	return normalized, string(body)
}
