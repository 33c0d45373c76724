package markup

import (
	"context"
	"errors"
	"html"
	"log/slog"
	"strings"

	"github.com/alnah/go-trustedmarkup/internal/glossary"
	"github.com/alnah/go-trustedmarkup/internal/pipeline"
)

// GlossaryTerm is one glossary entry.
type GlossaryTerm = glossary.Term

// TermSource resolves a glossary term id to its candidate terms.
// Ids are compared with pipes read as hyphens.
type TermSource interface {
	Lookup(ctx context.Context, id string) ([]GlossaryTerm, error)
}

var _ TermSource = (*glossary.Store)(nil)

// EnvironmentProd hides missing-term errors from readers.
const EnvironmentProd = "PROD"

// glossaryPortals builds the full and inline glossary portals.
type glossaryPortals struct {
	terms       TermSource
	inner       *Renderer
	environment string
	logger      *slog.Logger
}

// lookup resolves the term behind a placeholder. A nil term with a nil error
// means the id matched nothing.
func (g *glossaryPortals) lookup(ctx context.Context, props Props) (string, *GlossaryTerm, error) {
	termID := strings.TrimPrefix(props.Ref, pipeline.GlossaryTermIDPrefix)
	candidates, err := g.terms.Lookup(ctx, termID)
	switch {
	case errors.Is(err, glossary.ErrTermNotFound):
		g.logger.Error("no valid glossary term", "term", termID)
		return termID, nil, nil
	case err != nil:
		return termID, nil, err
	case len(candidates) == 0:
		return termID, nil, nil
	case len(candidates) > 1:
		g.logger.Warn("more than one candidate glossary term", "term", termID, "candidates", len(candidates))
	}
	return termID, &candidates[0], nil
}

// missing renders the placeholder content for an unresolvable term.
func (g *glossaryPortals) missing(termID string, props Props) Portal {
	if strings.EqualFold(g.environment, EnvironmentProd) {
		return &staticPortal{html: html.EscapeString(props.Text)}
	}
	return &staticPortal{html: "[Invalid glossary term ID: " + html.EscapeString(termID) + "]"}
}

// explain renders a term explanation through the glossary-free renderer.
func (g *glossaryPortals) explain(ctx context.Context, content, encoding, class string) (string, error) {
	res, err := g.inner.Render(ctx, Unit{
		Content:  content,
		Encoding: ParseEncoding(encoding),
		Class:    class,
	})
	if err != nil {
		return "", err
	}
	return res.HTML, nil
}

func (g *glossaryPortals) newFull(ctx context.Context, props Props) (Portal, error) {
	termID, term, err := g.lookup(ctx, props)
	if err != nil {
		return nil, err
	}
	if term == nil {
		return g.missing(termID, props), nil
	}

	explanation, err := g.explain(ctx, term.Explanation, term.Encoding, "glossary-term-definition col-md-9")
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString(`<div class="glossary-term row">`)
	b.WriteString(`<div class="glossary-term-name col-md-3"><strong>`)
	b.WriteString(html.EscapeString(term.Value))
	b.WriteString(`</strong></div>`)
	b.WriteString(explanation)
	b.WriteString(`</div>`)
	return &sealedPortal{staticPortal{html: b.String()}}, nil
}

func (g *glossaryPortals) newInline(ctx context.Context, props Props) (Portal, error) {
	termID, term, err := g.lookup(ctx, props)
	if err != nil {
		return nil, err
	}
	if term == nil {
		return g.missing(termID, props), nil
	}

	text := props.Text
	if text == "" {
		text = term.Value
	}

	content, encoding := term.Explanation, term.Encoding
	if props.Attrs["titled"] != "" {
		content = "**" + term.Value + "**: " + term.Explanation
		encoding = string(EncodingMarkdown)
	}
	tooltip, err := g.explain(ctx, content, encoding, "inline-glossary-definition")
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString(html.EscapeString(text))
	b.WriteString(`<span class="glossary-tooltip" role="tooltip">`)
	b.WriteString(tooltip)
	b.WriteString(`</span>`)
	return &sealedPortal{staticPortal{html: b.String()}}, nil
}
