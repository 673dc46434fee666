package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/criticmd/criticmd/convert"
	"github.com/criticmd/criticmd/critic"
	"github.com/criticmd/criticmd/settings"
)

const (
	exitPass = 0
	exitFail = 1
)

// criticMode maps the review flags onto a critic mode. Accept and reject
// together are ambiguous and degrade to View; Dump carries the ambiguity
// forward so the converter can reject it.
func criticMode(accept, reject, dump bool) critic.Mode {
	var mode critic.Mode
	switch {
	case accept && reject:
		mode = critic.View
	case accept:
		mode = critic.Accept
	case reject:
		mode = critic.Reject
	}
	if dump {
		mode |= critic.Dump
		if accept && reject {
			mode |= critic.Accept | critic.Reject
		}
	}
	return mode
}

// expandPatterns glob-expands the file patterns and deduplicates the
// matches by absolute normalized path. Order is stabilized by sorting.
func expandPatterns(patterns []string) ([]string, error) {
	seen := map[string]bool{}
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		for _, match := range matches {
			abs, err := filepath.Abs(filepath.Clean(match))
			if err != nil {
				return nil, err
			}
			if !seen[abs] {
				seen[abs] = true
				files = append(files, abs)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

func newLogger(quiet, debug bool) glog.Logger {
	level := glog.Info
	switch {
	case debug:
		level = glog.Debug
	case quiet:
		level = glog.Error
	}
	root := glog.NewLogger(
		glog.WithLoggerTypeConsole(),
		glog.WithLevel(level),
	)
	return root.GetLogger("criticmd")
}

func run() int {
	accept := flag.Bool("accept", false, "Accept proposed critic marks")
	reject := flag.Bool("reject", false, "Reject proposed critic marks")
	dump := flag.Bool("critic-dump", false, "Resolve critic marks and dump the markdown instead of rendering HTML")
	output := flag.String("o", "", "Output file (ignored in batch mode)")
	title := flag.String("title", "", "Title for the HTML output")
	basepath := flag.String("basepath", "", "Base path for relative resources")
	settingsPath := flag.String("settings", "", "Alternate settings file location")
	inputEnc := flag.String("e", "", "Input encoding (default utf-8)")
	outputEnc := flag.String("E", "", "Output encoding (defaults to the input encoding)")
	preview := flag.Bool("preview", false, "Write to a temporary file and open it; -o is ignored")
	plain := flag.Bool("plain-html", false, "Emit the HTML body without the page shell")
	batch := flag.Bool("batch", false, "Batch mode: derive each output from its source name")
	keepGoing := flag.Bool("continue-on-error", false, "Process remaining documents after a failure")
	quiet := flag.Bool("quiet", false, "Only log errors")
	debug := flag.Bool("debug", false, "Verbose logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: criticmd [options] [markdown files or patterns]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := newLogger(*quiet, *debug)

	files, err := expandPatterns(flag.Args())
	if err != nil {
		logger.Error("bad input pattern", "error", err)
		return exitFail
	}

	stream := len(flag.Args()) == 0
	if !stream && len(files) == 0 {
		logger.Error("nothing to parse")
		return exitFail
	}
	if stream {
		*batch = false
	}
	if !*batch && len(files) > 1 {
		logger.Error("use -batch to process multiple files")
		return exitFail
	}
	if *batch {
		*output = ""
	}

	resolver, err := settings.NewResolver(settings.Options{
		SettingsPath:   *settingsPath,
		Encoding:       *inputEnc,
		OutputEncoding: *outputEnc,
	})
	if err != nil {
		logger.Error("settings failed to load", "error", err)
		return exitFail
	}

	converter, err := convert.New(convert.Config{
		Resolver:        resolver,
		Logger:          logger,
		Output:          *output,
		Title:           *title,
		BasePath:        *basepath,
		Critic:          criticMode(*accept, *reject, *dump),
		Batch:           *batch,
		Preview:         *preview,
		Plain:           *plain,
		ContinueOnError: *keepGoing,
	})
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return exitFail
	}

	var result convert.Result
	if stream {
		result = converter.ConvertStream(os.Stdin)
	} else {
		result = converter.ConvertFiles(files)
	}
	if result.Failed() {
		return exitFail
	}
	return exitPass
}

func main() {
	os.Exit(run())
}
