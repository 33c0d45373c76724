package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: trustedmarkup [render] [flags] [files or directories...]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render authored content to HTML with interactive placeholders mounted.")
	fmt.Fprintln(w, "Reads stdin and writes stdout when no input is given.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  render     Render inputs (default)")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show this help")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Input/Output:")
	fmt.Fprintln(w, "  -e, --encoding <s>        markdown, html, latex, plaintext (default: from extension)")
	fmt.Fprintln(w, "  -o, --output <dir>        Output directory (default: next to each input)")
	fmt.Fprintln(w, "  -s, --standalone          Wrap output in a complete HTML document")
	fmt.Fprintln(w, "      --highlight-style <s> Code highlighting style for --standalone")
	fmt.Fprintln(w, "      --class <s>           Container class (default: content)")
	fmt.Fprintln(w, "  -w, --workers <n>         Parallel workers (0 = auto)")
	fmt.Fprintln(w, "      --watch               Re-render inputs when they change")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Site:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "      --origin <url>        Site origin; links to it stay in the tab")
	fmt.Fprintln(w, "      --variant <s>         default, physics")
	fmt.Fprintln(w, "      --environment <s>     DEV, PROD (PROD hides missing glossary terms)")
	fmt.Fprintln(w, "  -g, --glossary <file>     Glossary YAML file (repeatable)")
	fmt.Fprintln(w, "      --sanitize            Filter output through the UGC sanitizer")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output control:")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show debug logs and timing")
	fmt.Fprintln(w, "      --version             Show version")
	fmt.Fprintln(w, "  -h, --help                Show this help")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Exit codes:")
	fmt.Fprintln(w, "  0 success, 1 general error, 2 usage or config error,")
	fmt.Fprintln(w, "  3 file I/O error, 4 one or more inputs failed to render")
}

// printVersion prints the version line.
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "trustedmarkup %s\n", Version)
}
