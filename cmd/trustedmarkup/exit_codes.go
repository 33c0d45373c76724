package main

import (
	"errors"
	"os"

	markup "github.com/alnah/go-trustedmarkup"
	"github.com/alnah/go-trustedmarkup/internal/assets"
	"github.com/alnah/go-trustedmarkup/internal/config"
	"github.com/alnah/go-trustedmarkup/internal/glossary"
	"github.com/alnah/go-trustedmarkup/internal/yamlutil"
)

// Exit codes for the trustedmarkup CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // All inputs rendered
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, glossary or validation
	ExitIO      = 3 // File not found, permission denied
	ExitRender  = 4 // One or more inputs failed to render
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Render errors (exit 4)
	if errors.Is(err, ErrRenderFailed) ||
		errors.Is(err, markup.ErrHTMLConversion) ||
		errors.Is(err, markup.ErrHTMLParse) {
		return ExitRender
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, ErrInvalidFlag) ||
		errors.Is(err, ErrInvalidWorkerCount) ||
		errors.Is(err, ErrUnknownEncoding) ||
		errors.Is(err, ErrWatchStdin) ||
		errors.Is(err, ErrLoadGlossary) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidField) ||
		errors.Is(err, glossary.ErrInvalidTerm) ||
		errors.Is(err, yamlutil.ErrInputTooLarge) ||
		errors.Is(err, markup.ErrInvalidOrigin) ||
		errors.Is(err, markup.ErrInvalidVariant) ||
		errors.Is(err, assets.ErrHighlightStyleNotFound) {
		return ExitUsage
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrReadInput) ||
		errors.Is(err, ErrWriteOutput) ||
		errors.Is(err, ErrWatch) {
		return ExitIO
	}

	return ExitGeneral
}
