package markup

import (
	"strings"

	"github.com/alnah/go-trustedmarkup/internal/pipeline"
)

// Encoding declares how a unit's content is to be interpreted.
type Encoding string

// Known encodings. Any other value renders through the unknown path.
const (
	EncodingMarkdown  Encoding = "markdown"
	EncodingHTML      Encoding = "html"
	EncodingLaTeX     Encoding = "latex"
	EncodingPlaintext Encoding = "plaintext"
	EncodingUnknown   Encoding = "unknown"
)

// ParseEncoding normalizes an encoding name. Unrecognized names are kept
// verbatim so the unknown-encoding warning can show what the author wrote.
func ParseEncoding(s string) Encoding {
	e := Encoding(strings.ToLower(strings.TrimSpace(s)))
	if e.Known() {
		return e
	}
	return Encoding(s)
}

// Known reports whether e is one of the supported encodings, excluding unknown.
func (e Encoding) Known() bool {
	switch e {
	case EncodingMarkdown, EncodingHTML, EncodingLaTeX, EncodingPlaintext:
		return true
	}
	return false
}

// scansPortals reports whether output of this encoding may contain placeholders.
func (e Encoding) scansPortals() bool {
	return e == EncodingMarkdown || e == EncodingHTML
}

// PageContext describes where content is shown (subject and stages).
type PageContext = pipeline.PageContext

// Variant selects site-specific rules.
type Variant = pipeline.Variant

// Site variants.
const (
	VariantDefault = pipeline.VariantDefault
	VariantPhysics = pipeline.VariantPhysics
)

// Unit is one piece of authored content. It is never mutated by rendering.
type Unit struct {
	Content  string
	Encoding Encoding

	// Class is set on the container element of html and markdown output.
	Class string
	// Page scopes site links on the physics variant.
	Page *PageContext
	// Figures maps figure ids to their numbers for \ref{} resolution.
	Figures map[string]int
}

// Placeholder types emitted by markdown preprocessing, plus the table
// placeholder every html and markdown table is moved into.
const (
	TypeDropZone       = pipeline.TypeDropZone
	TypeInlineQuestion = pipeline.TypeInlineQuestion
	TypeGlossaryFull   = pipeline.TypeGlossaryFull
	TypeGlossaryInline = pipeline.TypeGlossaryInline
	TypeTable          = pipeline.TypeTable
)

// Props are the placeholder attributes handed to a portal.
type Props = pipeline.Props

// Portal is a live component rendered into a placeholder.
type Portal = pipeline.Portal

// Sealed marks a portal whose output must not be scanned for placeholders.
type Sealed = pipeline.Sealed

// PortalFunc creates the portal for one placeholder.
type PortalFunc = pipeline.PortalFunc

// MathRenderer renders a single TeX expression.
type MathRenderer = pipeline.MathRenderer

// Result is the outcome of rendering one unit.
type Result struct {
	HTML     string
	Encoding Encoding
	// Mounted lists the placeholders that received a portal, in document order.
	Mounted []Props
}

// GlossaryElementID returns the element id used for a glossary term placeholder.
func GlossaryElementID(termID string) string {
	return pipeline.GlossaryElementID(termID)
}
