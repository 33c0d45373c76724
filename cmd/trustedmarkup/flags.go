package main

import (
	"errors"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"
)

// ErrInvalidFlag wraps flag parsing failures.
var ErrInvalidFlag = errors.New("invalid flag")

// siteFlags override the config's site section.
type siteFlags struct {
	origin      string
	variant     string
	environment string
}

// outputFlags control where and how output is written.
type outputFlags struct {
	output     string
	standalone bool
	style      string // chroma style for standalone pages
	class      string // container class for html and markdown output
}

// renderFlags holds every flag of the render command.
type renderFlags struct {
	config   string
	encoding string
	glossary []string
	sanitize bool
	workers  int
	watch    bool
	quiet    bool
	verbose  bool
	version  bool
	help     bool
	site     siteFlags
	out      outputFlags
}

// addSiteFlags adds site flags to a FlagSet.
func addSiteFlags(fs *flag.FlagSet, f *siteFlags) {
	fs.StringVar(&f.origin, "origin", "", "site origin for internal links, e.g. https://isaacphysics.org")
	fs.StringVar(&f.variant, "variant", "", "site variant: default, physics")
	fs.StringVar(&f.environment, "environment", "", "environment: DEV, PROD")
}

// addOutputFlags adds output flags to a FlagSet.
func addOutputFlags(fs *flag.FlagSet, f *outputFlags) {
	fs.StringVarP(&f.output, "output", "o", "", "output directory (default: next to each input)")
	fs.BoolVarP(&f.standalone, "standalone", "s", false, "wrap output in a complete HTML document")
	fs.StringVar(&f.style, "highlight-style", "", "code highlighting style for --standalone")
	fs.StringVar(&f.class, "class", "content", "class of the container element")
}

// buildRenderFlagSet creates the FlagSet bound to f.
func buildRenderFlagSet(f *renderFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SortFlags = false

	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.StringVarP(&f.encoding, "encoding", "e", "", "content encoding: markdown, html, latex, plaintext (default: from extension)")
	fs.StringSliceVarP(&f.glossary, "glossary", "g", nil, "glossary YAML file (repeatable)")
	fs.BoolVar(&f.sanitize, "sanitize", false, "filter output through the UGC sanitizer")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel workers (0 = auto)")
	fs.BoolVar(&f.watch, "watch", false, "re-render inputs when they change")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show debug logs and timing")
	fs.BoolVar(&f.version, "version", false, "show version")
	fs.BoolVarP(&f.help, "help", "h", false, "show help")
	addSiteFlags(fs, &f.site)
	addOutputFlags(fs, &f.out)
	return fs
}

// parseFlags parses render flags and returns the positional arguments.
func parseFlags(args []string) (*renderFlags, []string, error) {
	f := &renderFlags{}
	fs := buildRenderFlagSet(f)
	if err := fs.Parse(args); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidFlag, err)
	}
	if f.quiet && f.verbose {
		return nil, nil, fmt.Errorf("%w: --quiet and --verbose are mutually exclusive", ErrInvalidFlag)
	}
	return f, fs.Args(), nil
}
