package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// ErrHTMLConversion indicates HTML conversion failed.
var ErrHTMLConversion = errors.New("HTML conversion failed")

const conceptIcon = `<i class="icon icon-concept-thick"></i>`

// HTMLConverter abstracts Markdown to HTML conversion.
type HTMLConverter interface {
	ToHTML(ctx context.Context, content string) (string, error)
}

// LinkPolicy decides how anchors are rendered.
type LinkPolicy struct {
	// Origin is the site's own origin, e.g. "https://isaacphysics.org".
	Origin string
	// ConceptIcon prefixes internal /concepts/ links with an icon.
	ConceptIcon bool
}

// IsInternal reports whether href stays inside the application. An absolute
// href is internal only when the origin ends at a path, query or fragment
// boundary, so "https://site.org.example.com" is not "https://site.org".
func (p LinkPolicy) IsInternal(href string) bool {
	if p.Origin != "" && strings.HasPrefix(href, p.Origin) {
		rest := href[len(p.Origin):]
		if rest == "" || strings.HasSuffix(p.Origin, "/") || strings.ContainsRune("/?#", rune(rest[0])) {
			return true
		}
	}
	// Protocol-relative hrefs name another host.
	return (strings.HasPrefix(href, "/") && !strings.HasPrefix(href, "//")) ||
		strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "mailto:")
}

// GoldmarkConverter converts Markdown to an HTML fragment using goldmark.
// The goldmark instance is built once and never mutated afterwards.
type GoldmarkConverter struct {
	md goldmark.Markdown
}

// NewGoldmarkConverter creates a GoldmarkConverter with GFM, footnotes, syntax
// highlighting and the link policy installed as the anchor renderer.
func NewGoldmarkConverter(policy LinkPolicy) *GoldmarkConverter {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,      // Tables, strikethrough, autolinks, task lists
			extension.Footnote, // [^1] footnotes
			highlighting.NewHighlighting(
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true), // CSS classes, stylesheet generated separately
				),
			),
		),
		goldmark.WithRendererOptions(
			// Placeholders from the preprocessor are raw HTML.
			html.WithUnsafe(),
			renderer.WithNodeRenderers(
				util.Prioritized(&linkRenderer{policy: policy}, 100),
			),
		),
	)
	return &GoldmarkConverter{md: md}
}

// ToHTML converts Markdown content to an HTML fragment.
// Supports context cancellation via goroutine + select pattern since
// Goldmark doesn't natively support context.
func (c *GoldmarkConverter) ToHTML(ctx context.Context, content string) (string, error) {
	// Fast path: check context before starting
	if err := ctx.Err(); err != nil {
		return "", err
	}

	type result struct {
		html string
		err  error
	}

	done := make(chan result, 1)

	go func() {
		var buf bytes.Buffer
		if err := c.md.Convert([]byte(content), &buf); err != nil {
			done <- result{err: fmt.Errorf("%w: %v", ErrHTMLConversion, err)}
			return
		}
		done <- result{html: buf.String()}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.html, r.err
	}
}

// linkRenderer replaces goldmark's anchor rendering for links and autolinks.
type linkRenderer struct {
	policy LinkPolicy
}

func (r *linkRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindLink, r.renderLink)
	reg.Register(ast.KindAutoLink, r.renderAutoLink)
}

func (r *linkRenderer) renderLink(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*ast.Link)
	if !entering {
		_, _ = w.WriteString("</a>")
		return ast.WalkContinue, nil
	}
	r.openAnchor(w, n.Destination, n.Title)
	return ast.WalkContinue, nil
}

func (r *linkRenderer) renderAutoLink(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*ast.AutoLink)
	if !entering {
		return ast.WalkContinue, nil
	}
	dest := n.URL(source)
	if n.AutoLinkType == ast.AutoLinkEmail && !bytes.HasPrefix(bytes.ToLower(dest), []byte("mailto:")) {
		dest = append([]byte("mailto:"), dest...)
	}
	r.openAnchor(w, dest, nil)
	_, _ = w.Write(util.EscapeHTML(n.Label(source)))
	_, _ = w.WriteString("</a>")
	return ast.WalkContinue, nil
}

// openAnchor writes the opening <a> tag. External links open in a new tab
// without opener access and without endorsement.
func (r *linkRenderer) openAnchor(w util.BufWriter, destination, title []byte) {
	href := destination
	if html.IsDangerousURL(href) {
		href = nil
	}
	href = util.EscapeHTML(util.URLEscape(href, true))

	_, _ = w.WriteString(`<a class="a-link" href="`)
	_, _ = w.Write(href)
	_, _ = w.WriteString(`"`)
	if len(title) > 0 {
		_, _ = w.WriteString(` title="`)
		_, _ = w.Write(util.EscapeHTML(title))
		_, _ = w.WriteString(`"`)
	}

	if !r.policy.IsInternal(string(destination)) {
		_, _ = w.WriteString(` target="_blank" rel="noopener nofollow">`)
		return
	}
	_, _ = w.WriteString(`>`)
	if r.policy.ConceptIcon && bytes.Contains(destination, []byte("/concepts/")) {
		_, _ = w.WriteString(conceptIcon)
	}
}
