package assets

import (
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
)

// Page is the data passed to the document template.
type Page struct {
	Title string
	Lang  string
	Body  string // Trusted, already rendered HTML
	CSS   string // Extra CSS appended after the base and highlight styles
}

// HighlightCSS generates the stylesheet for chroma's class-based highlighting.
func HighlightCSS(styleName string) (string, error) {
	style, ok := styles.Registry[strings.ToLower(styleName)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrHighlightStyleNotFound, styleName)
	}
	var buf strings.Builder
	if err := html.New(html.WithClasses(true)).WriteCSS(&buf, style); err != nil {
		return "", fmt.Errorf("writing highlight CSS: %w", err)
	}
	return buf.String(), nil
}

// PageRenderer wraps rendered fragments into standalone documents.
// It is safe for concurrent use.
type PageRenderer struct {
	tmpl  *template.Template
	style string
}

// NewPageRenderer loads the document template and base style from loader
// and appends the highlight stylesheet for highlightStyle.
func NewPageRenderer(loader AssetLoader, highlightStyle string) (*PageRenderer, error) {
	src, err := loader.LoadTemplate(DefaultTemplateName)
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New(DefaultTemplateName).Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parsing page template: %w", err)
	}

	base, err := loader.LoadStyle(DefaultStyleName)
	if err != nil {
		return nil, err
	}
	highlight, err := HighlightCSS(highlightStyle)
	if err != nil {
		return nil, err
	}

	return &PageRenderer{tmpl: tmpl, style: base + "\n" + highlight}, nil
}

// Render writes page as a complete HTML document.
func (r *PageRenderer) Render(w io.Writer, page Page) error {
	lang := page.Lang
	if lang == "" {
		lang = "en"
	}
	data := struct {
		Title string
		Lang  string
		Style template.CSS
		Body  template.HTML
	}{
		Title: page.Title,
		Lang:  lang,
		Style: template.CSS(r.style + page.CSS), // #nosec G203 -- embedded and generated CSS
		Body:  template.HTML(page.Body),         // #nosec G203 -- output of the rendering pipeline
	}
	if err := r.tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("%w: %v", ErrTemplateExecute, err)
	}
	return nil
}
