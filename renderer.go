package markup

import (
	"context"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/url"

	"github.com/alnah/go-trustedmarkup/internal/pipeline"
)

// Compile-time interface implementation checks.
var (
	_ pipeline.MarkdownPreprocessor = (*pipeline.ContentPreprocessor)(nil)
	_ pipeline.HTMLConverter        = (*pipeline.GoldmarkConverter)(nil)
	_ pipeline.Sanitizer            = (*pipeline.UGCSanitizer)(nil)
	_ pipeline.MathRenderer         = pipeline.KaTeXMarkup{}
	_ Portal                        = (*staticPortal)(nil)
)

// Renderer turns authored content units into HTML with live portals mounted
// into their placeholders. A Renderer is safe for concurrent use; per-view
// portal state lives in a Host.
type Renderer struct {
	cfg           rendererConfig
	preprocessor  pipeline.MarkdownPreprocessor
	htmlConverter pipeline.HTMLConverter
	mathRenderer  MathRenderer
	math          *pipeline.MathPass
	sanitizer     pipeline.Sanitizer
	glossary      TermSource
	portals       map[string]PortalFunc
	logger        *slog.Logger
	metrics       *metrics
}

// NewRenderer creates a Renderer with the built-in drop-zone, inline-question
// and table portals. Glossary portals are added by WithGlossary.
// Returns an error if the origin or variant is invalid.
func NewRenderer(opts ...Option) (*Renderer, error) {
	r := &Renderer{
		cfg:     rendererConfig{variant: VariantDefault},
		portals: make(map[string]PortalFunc),
	}
	r.portals[TypeDropZone] = newDropZonePortal
	r.portals[TypeInlineQuestion] = newInlineQuestionPortal
	r.portals[TypeTable] = newTablePortal

	for _, opt := range opts {
		opt(r)
	}

	if err := validateOrigin(r.cfg.origin); err != nil {
		return nil, err
	}
	if r.cfg.variant != VariantDefault && r.cfg.variant != VariantPhysics {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVariant, r.cfg.variant)
	}

	if r.logger == nil {
		r.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	m, err := newMetrics(r.cfg.registerer)
	if err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}
	r.metrics = m

	if r.preprocessor == nil {
		r.preprocessor = &pipeline.ContentPreprocessor{Variant: r.cfg.variant}
	}
	if r.htmlConverter == nil {
		r.htmlConverter = pipeline.NewGoldmarkConverter(pipeline.LinkPolicy{
			Origin:      r.cfg.origin,
			ConceptIcon: r.cfg.variant == VariantPhysics,
		})
	}
	r.math = pipeline.NewMathPass(r.mathRenderer)
	if r.cfg.sanitize && r.sanitizer == nil {
		r.sanitizer = pipeline.NewUGCSanitizer()
	}

	if r.glossary != nil {
		// Term explanations render through a renderer without glossary portals,
		// so a term cannot pull itself in recursively.
		inner := *r
		inner.portals = make(map[string]PortalFunc, len(r.portals))
		for typ, fn := range r.portals {
			if typ != TypeGlossaryFull && typ != TypeGlossaryInline {
				inner.portals[typ] = fn
			}
		}
		inner.glossary = nil
		g := &glossaryPortals{
			terms:       r.glossary,
			inner:       &inner,
			environment: r.cfg.environment,
			logger:      r.logger,
		}
		if _, ok := r.portals[TypeGlossaryFull]; !ok {
			r.portals[TypeGlossaryFull] = g.newFull
		}
		if _, ok := r.portals[TypeGlossaryInline]; !ok {
			r.portals[TypeGlossaryInline] = g.newInline
		}
	}

	return r, nil
}

// Render renders one unit with a short-lived host: portals are mounted, rendered
// and released before Render returns.
func (r *Renderer) Render(ctx context.Context, unit Unit) (*Result, error) {
	h := r.NewHost()
	defer func() { _ = h.Close() }()
	return h.Update(ctx, unit)
}

// hasPortal reports whether a portal is registered for typ.
func (r *Renderer) hasPortal(typ string) bool {
	_, ok := r.portals[typ]
	return ok
}

// prepare dispatches on the unit's encoding and returns the HTML to inject
// plus whether that HTML may hold placeholders.
func (r *Renderer) prepare(ctx context.Context, unit Unit) (string, bool, error) {
	if unit.Content == "" {
		return "", false, nil
	}

	switch unit.Encoding {
	case EncodingHTML:
		out := r.math.Render(unit.Content, unit.Figures)
		return r.sanitize(out), true, nil

	case EncodingMarkdown:
		// Math is rendered first and hidden from goldmark, whose emphasis
		// and escaping rules would otherwise rewrite the TeX.
		protected, pm := r.math.Protect(unit.Content, unit.Figures)

		mdContent := r.preprocessor.PreprocessMarkdown(ctx, protected, unit.Page)
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}

		out, err := r.htmlConverter.ToHTML(ctx, mdContent)
		if err != nil {
			return "", false, fmt.Errorf("converting to HTML: %w", err)
		}
		return r.sanitize(pm.Restore(out)), true, nil

	case EncodingLaTeX:
		out := r.math.Render(html.EscapeString(unit.Content), unit.Figures)
		return openSpan(unit.Class) + out + "</span>", false, nil

	case EncodingPlaintext:
		return openSpan(unit.Class) + html.EscapeString(unit.Content) + "</span>", false, nil

	default:
		r.logger.Warn("unknown content encoding", "encoding", string(unit.Encoding))
		return unknownEncoding(unit), false, nil
	}
}

func (r *Renderer) sanitize(htmlContent string) string {
	if r.sanitizer == nil {
		return htmlContent
	}
	return r.sanitizer.Sanitize(htmlContent)
}

// unknownEncoding renders the visible warning shown for unsupported encodings.
func unknownEncoding(unit Unit) string {
	return "<div>[CONTENT WITH UNKNOWN ENCODING: <i>" +
		html.EscapeString(string(unit.Encoding)) + " | " +
		html.EscapeString(unit.Content) + " </i>]</div>"
}

func openSpan(class string) string {
	if class == "" {
		return "<span>"
	}
	return `<span class="` + html.EscapeString(class) + `">`
}

// validateOrigin accepts an empty origin or an absolute http(s) origin.
func validateOrigin(origin string) error {
	if origin == "" {
		return nil
	}
	u, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOrigin, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidOrigin, origin)
	}
	return nil
}
