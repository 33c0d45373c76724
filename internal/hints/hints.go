// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"path/filepath"
	"runtime"
	"strings"

	"github.com/alnah/go-trustedmarkup/internal/fileutil"
)

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config flag and creating a config in ~/.config/go-trustedmarkup/.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(filepath.ToSlash(p), ".config/go-trustedmarkup") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForOutputDirectory returns hints for output directory creation errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

// ForUnknownEncoding returns hints when no encoding could be inferred for an input.
func ForUnknownEncoding(path string) string {
	hints := []string{"use --encoding markdown|html|latex|plaintext"}
	if filepath.Ext(path) == "" {
		hints = append(hints, "or give the file a .md, .html, .tex or .txt extension")
	}
	return formatHints(hints)
}

// ForGlossaryFile returns hints for glossary files that failed to load.
func ForGlossaryFile(path string) string {
	if !fileutil.FileExists(path) {
		return format("relative glossary paths in a config file are resolved against the config's directory")
	}
	return format("glossary files are YAML with a top-level 'terms:' list of id/value/explanation entries")
}

// ForHighlightStyle returns hints for unknown highlight styles.
func ForHighlightStyle(available []string) string {
	if len(available) == 0 {
		return ""
	}
	return format("available: " + strings.Join(available, ", "))
}

// ForWatchLimit returns hints when the file watcher cannot be created.
func ForWatchLimit() string {
	if runtime.GOOS == "linux" {
		return format("raise fs.inotify.max_user_watches or watch fewer files")
	}
	return format("watch fewer files")
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
