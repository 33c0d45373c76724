package markup

import (
	"errors"

	"github.com/alnah/go-trustedmarkup/internal/pipeline"
)

// Sentinel errors for library operations.
var (
	ErrHTMLConversion = pipeline.ErrHTMLConversion
	ErrHTMLParse      = pipeline.ErrHTMLParse
	ErrHostClosed     = errors.New("rendering host is closed")
	ErrInvalidOrigin  = errors.New("invalid site origin")
	ErrInvalidVariant = errors.New("invalid site variant")
)
