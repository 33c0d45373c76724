package markup

import (
	"context"
	"fmt"
	"html"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/alnah/go-trustedmarkup/internal/pipeline"
)

// staticPortal renders fixed HTML and holds no resources.
type staticPortal struct {
	html string
}

func (p *staticPortal) Render(w io.Writer) error {
	_, err := io.WriteString(w, p.html)
	return err
}

func (p *staticPortal) Release() {}

// sealedPortal renders fixed HTML whose placeholders were already handled by
// the renderer that produced it.
type sealedPortal struct {
	staticPortal
}

func (p *sealedPortal) Sealed() bool { return true }

// dropZoneDimension pulls min-width/min-height back out of a placeholder style.
var dropZoneDimension = regexp.MustCompile(`min-(width|height):\s*(\d+px|auto)`)

// newDropZonePortal renders the droppable region for a cloze drop zone.
// Numeric indices are zero-based in the placeholder and one-based in the
// droppable id.
func newDropZonePortal(_ context.Context, props Props) (Portal, error) {
	index := props.Attrs["index"]
	if index == "" {
		return nil, fmt.Errorf("drop zone %q has no index", props.ID)
	}
	droppable := "drop-zone-" + index
	label := "Drop zone " + index
	if n, err := strconv.Atoi(index); err == nil {
		droppable = "drop-zone-" + strconv.Itoa(n+1)
		label = "Drop zone " + strconv.Itoa(n+1)
	}

	width, height := "100px", "auto"
	for _, m := range dropZoneDimension.FindAllStringSubmatch(props.Attrs["style"], -1) {
		if m[1] == "width" {
			width = m[2]
		} else {
			height = m[2]
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<span class="cloze-drop-zone d-inline-block rounded bg-grey" role="button" aria-label="%s" data-droppable="%s" style="min-width: %s; min-height: %s">`,
		html.EscapeString(label), html.EscapeString(droppable), width, height)
	b.WriteString(`<span class="visually-hidden">`)
	b.WriteString(html.EscapeString(label))
	b.WriteString(`</span>&nbsp;</span>`)
	return &staticPortal{html: b.String()}, nil
}

// newInlineQuestionPortal renders the text entry for one inline question part.
func newInlineQuestionPortal(_ context.Context, props Props) (Portal, error) {
	part := strings.TrimPrefix(props.Ref, pipeline.InlineQuestionIDPrefix)
	if part == "" {
		return nil, fmt.Errorf("inline question %q has no part name", props.ID)
	}

	classes := "inline-part-input form-control"
	if extra := strings.TrimSpace(props.Attrs["classes"]); extra != "" {
		classes += " " + extra
	}

	var style []string
	if w, err := strconv.Atoi(props.Attrs["width"]); err == nil && w > 0 {
		style = append(style, "width: "+strconv.Itoa(w)+"px")
	}
	if h, err := strconv.Atoi(props.Attrs["height"]); err == nil && h > 0 {
		style = append(style, "height: "+strconv.Itoa(h)+"px")
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<input type="text" class="%s" name="%s" aria-label="Inline question part %s"`,
		html.EscapeString(classes), html.EscapeString(part), html.EscapeString(part))
	if len(style) > 0 {
		fmt.Fprintf(&b, ` style="%s"`, strings.Join(style, "; "))
	}
	b.WriteString(`>`)
	return &staticPortal{html: b.String()}, nil
}

const tableExpandButton = `<div class="expand-button position-relative">` +
	`<button type="button" aria-label="Expand content"><div><span>` +
	`<img aria-hidden="true" src="/assets/expand-arrow.svg" alt="expand"> Expand` +
	`</span></div></button></div>`

// newTablePortal frames a table in its scrolling container. Tables classed
// "expandable" also get the expand control.
func newTablePortal(_ context.Context, props Props) (Portal, error) {
	outer, inner := "isaac-table", "overflow-auto"
	expandable := false
	for _, class := range strings.Fields(props.Attrs["classes"]) {
		if class == "expandable" {
			expandable = true
			outer, inner = "expand-outer isaac-table", "mb-4 overflow-auto"
			break
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<div class="%s"><div class="position-relative">`, outer)
	if expandable {
		b.WriteString(tableExpandButton)
	}
	fmt.Fprintf(&b, `<div class="%s">`, inner)
	b.WriteString(props.Content)
	b.WriteString(`</div></div></div>`)
	return &staticPortal{html: b.String()}, nil
}
