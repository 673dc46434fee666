package convert

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/criticmd/criticmd/settings"
)

// writeArtifact serializes content to the destination using the named
// output encoding. An empty destination writes to stdout. The file handle is
// scoped to this call and released on every exit path.
func writeArtifact(dest, encodingName, content string, stdout io.Writer) (err error) {
	data, err := encodeText(content, encodingName)
	if err != nil {
		return err
	}

	if dest == "" {
		if _, err := stdout.Write(data); err != nil {
			return wrapIO(err, "write to standard output")
		}
		return nil
	}

	f, err := os.Create(dest)
	if err != nil {
		return wrapIO(err, "could not open output file "+dest)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = wrapIO(cerr, "close output file "+dest)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return wrapIO(err, "write output file "+dest)
	}
	return nil
}

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="%s">
<title>%s</title>
</head>
<body>
%s</body>
</html>
`

// buildPage wraps the engine's HTML body in a minimal page shell. Plain
// output skips the shell and emits the body alone.
func buildPage(body string, metadata map[string]any, cfg settings.Settings, plain bool) string {
	if plain {
		return body
	}
	title := "Untitled"
	if value, ok := metadata["title"]; ok {
		title = fmt.Sprint(value)
	}
	return fmt.Sprintf(pageTemplate, cfg.OutputEncoding, escapeText(title), body)
}

func escapeText(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
	)
	return replacer.Replace(s)
}

// previewDestination creates a temporary HTML file for preview output.
func previewDestination() (string, error) {
	f, err := os.CreateTemp("", "criticmd-*.html")
	if err != nil {
		return "", wrapIO(err, "create preview file")
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		return "", wrapIO(err, "close preview file")
	}
	return name, nil
}

// openPreview launches the platform opener on the written artifact. The
// action is fire and forget; failures never feed back into the pipeline.
func openPreview(path string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	_ = cmd.Start()
}
