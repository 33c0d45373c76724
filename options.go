package markup

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a Renderer.
type Option func(*Renderer)

// rendererConfig holds internal configuration for Renderer.
type rendererConfig struct {
	origin      string
	variant     Variant
	sanitize    bool
	environment string
	registerer  prometheus.Registerer
}

// WithSiteOrigin sets the origin links are compared against to decide
// whether they are internal, e.g. "https://isaacphysics.org".
func WithSiteOrigin(origin string) Option {
	return func(r *Renderer) {
		r.cfg.origin = origin
	}
}

// WithVariant selects the site variant (default or physics).
func WithVariant(v Variant) Option {
	return func(r *Renderer) {
		r.cfg.variant = v
	}
}

// WithMathRenderer replaces the default KaTeX markup renderer.
// Panics if m is nil (programmer error).
func WithMathRenderer(m MathRenderer) Option {
	if m == nil {
		panic("markup: WithMathRenderer renderer must not be nil")
	}
	return func(r *Renderer) {
		r.mathRenderer = m
	}
}

// WithPortal registers fn for placeholders of the given data-type, replacing
// any built-in portal for that type.
// Panics if typ is empty or fn is nil (programmer error).
func WithPortal(typ string, fn PortalFunc) Option {
	if typ == "" || fn == nil {
		panic("markup: WithPortal requires a type and a portal function")
	}
	return func(r *Renderer) {
		r.portals[typ] = fn
	}
}

// WithSanitizing filters html and markdown output through a UGC policy
// before placeholders are scanned.
func WithSanitizing(enabled bool) Option {
	return func(r *Renderer) {
		r.cfg.sanitize = enabled
	}
}

// WithGlossary enables the glossary portals, resolving terms from src.
// environment controls missing-term output: "PROD" falls back to the
// placeholder's text, anything else shows a visible error marker.
func WithGlossary(src TermSource, environment string) Option {
	return func(r *Renderer) {
		r.glossary = src
		r.cfg.environment = environment
	}
}

// WithLogger sets the structured logger for mount failures and warnings.
// A nil logger discards output.
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) {
		r.logger = l
	}
}

// WithMetrics registers the renderer's collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(r *Renderer) {
		r.cfg.registerer = reg
	}
}
