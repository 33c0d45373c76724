package pipeline

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type fixedPortal struct {
	html string
	err  error
}

func (p *fixedPortal) Render(w io.Writer) error {
	if p.err != nil {
		return p.err
	}
	_, err := io.WriteString(w, p.html)
	return err
}

func (p *fixedPortal) Release() {}

func allPortals(string) bool { return true }

func TestParseDocument_Render(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		className string
		fragment  string
		expected  string
	}{
		{
			name:      "wraps in classed container",
			className: "content",
			fragment:  "<p>Hi</p>",
			expected:  `<div class="content"><p>Hi</p></div>`,
		},
		{
			name:     "no class",
			fragment: "text",
			expected: "<div>text</div>",
		},
		{
			name:     "empty fragment",
			expected: "<div></div>",
		},
		{
			name:      "class is escaped",
			className: `a" onclick="x`,
			fragment:  "t",
			expected:  `<div class="a&#34; onclick=&#34;x">t</div>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc, err := ParseDocument(tt.className, tt.fragment)
			if err != nil {
				t.Fatalf("ParseDocument() error = %v", err)
			}
			got, err := doc.Render()
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if got != tt.expected {
				t.Errorf("Render()\n got: %q\nwant: %q", got, tt.expected)
			}
		})
	}
}

func TestDocument_Scan(t *testing.T) {
	t.Parallel()

	fragment := `<p>` +
		`<span data-type="drop-zone" data-index="0" id="drop-region-0" style="min-width: 50px; min-height: auto"></span>` +
		`<span data-type="inline" class="inline-glossary-term" data-text="net force" data-titled="true" id="glossary-term-physics-force">Loading</span>` +
		`<span data-type="unregistered" id="other"></span>` +
		`<span data-type="drop-zone"></span>` +
		`</p><div data-type="full" id="glossary-term-physics-force">Loading</div>`

	doc, err := ParseDocument("", fragment)
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}
	registered := func(typ string) bool { return typ != "unregistered" }
	placeholders := doc.Scan(registered)

	var got []Props
	for _, p := range placeholders {
		got = append(got, p.Props)
	}
	want := []Props{
		{
			Type:  TypeDropZone,
			ID:    "drop-region-0",
			Ref:   "drop-region-0",
			Attrs: map[string]string{"index": "0", "style": "min-width: 50px; min-height: auto"},
		},
		{
			Type:    TypeGlossaryInline,
			ID:      "glossary-term-physics-force",
			Ref:     "glossary-term-physics-force",
			Text:    "net force",
			Attrs:   map[string]string{"titled": "true"},
			Content: "Loading",
		},
		{
			Type:    TypeGlossaryFull,
			ID:      "glossary-term-physics-force-1",
			Ref:     "glossary-term-physics-force",
			Attrs:   map[string]string{},
			Content: "Loading",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Scan() mismatch (-want +got):\n%s", diff)
	}

	out, err := doc.Render()
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(out, `id="glossary-term-physics-force-1"`) {
		t.Errorf("duplicate id should be rewritten in the output, got %s", out)
	}
}

func TestDocument_Scan_SuffixAvoidsExistingIDs(t *testing.T) {
	t.Parallel()

	fragment := `<span data-type="full" id="t"></span>` +
		`<span id="t-1"></span>` +
		`<span data-type="full" id="t"></span>`

	doc, err := ParseDocument("", fragment)
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}
	placeholders := doc.Scan(allPortals)
	if len(placeholders) != 2 {
		t.Fatalf("len(placeholders) = %d, want 2", len(placeholders))
	}
	if got := placeholders[1].Props.ID; got != "t-2" {
		t.Errorf("second placeholder id = %q, want %q", got, "t-2")
	}
}

func TestDocument_Mount(t *testing.T) {
	t.Parallel()

	doc, err := ParseDocument("", `<p>A <span data-type="full" id="x">Loading</span> B</p>`)
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}
	placeholders := doc.Scan(allPortals)
	if len(placeholders) != 1 {
		t.Fatalf("len(placeholders) = %d, want 1", len(placeholders))
	}

	if err := doc.Mount(placeholders[0], &fixedPortal{html: "<b>Force</b> &amp; more"}); err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	got, err := doc.Render()
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	want := `<div><p>A <span data-type="full" id="x"><b>Force</b> &amp; more</span> B</p></div>`
	if got != want {
		t.Errorf("Render()\n got: %q\nwant: %q", got, want)
	}

	// Mounting again replaces rather than appends.
	if err := doc.Mount(placeholders[0], &fixedPortal{html: "again"}); err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	got, _ = doc.Render()
	if strings.Contains(got, "Force") || !strings.Contains(got, ">again<") {
		t.Errorf("second mount should replace content, got %q", got)
	}
}

func TestDocument_Mount_PortalError(t *testing.T) {
	t.Parallel()

	doc, err := ParseDocument("", `<span data-type="full" id="x">Loading</span>`)
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}
	ph := doc.Scan(allPortals)[0]

	boom := errors.New("boom")
	if err := doc.Mount(ph, &fixedPortal{err: boom}); !errors.Is(err, boom) {
		t.Errorf("Mount() error = %v, want %v", err, boom)
	}
	got, _ := doc.Render()
	if !strings.Contains(got, "Loading") {
		t.Errorf("failed mount should leave placeholder content, got %q", got)
	}
}

func TestDocument_Scan_StopsAtPlaceholders(t *testing.T) {
	t.Parallel()

	doc, err := ParseDocument("", `<span data-type="inline-question" id="inline-question-p1">`+
		`<span data-type="drop-zone" data-index="0" id="drop-region-0"></span></span>`)
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}

	placeholders := doc.Scan(allPortals)
	if len(placeholders) != 1 || placeholders[0].Props.ID != "inline-question-p1" {
		t.Fatalf("Scan() = %+v, want only the outer placeholder", placeholders)
	}
	outer := placeholders[0]
	if !strings.Contains(outer.Props.Content, `id="drop-region-0"`) {
		t.Errorf("Content = %q, want the inner placeholder markup", outer.Props.Content)
	}

	// The portal output replaces the inner placeholder, so nothing is left to scan.
	if err := doc.Mount(outer, &fixedPortal{html: `<input type="text"/>`}); err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	if nested := doc.ScanWithin(outer, allPortals); len(nested) != 0 {
		t.Errorf("ScanWithin() = %+v, want none", nested)
	}
}

func TestDocument_ScanWithin_PortalOutput(t *testing.T) {
	t.Parallel()

	doc, err := ParseDocument("", `<span data-type="inline" id="g"></span><div data-type="box" id="b"></div>`)
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}
	placeholders := doc.Scan(allPortals)
	if len(placeholders) != 2 {
		t.Fatalf("len(placeholders) = %d, want 2", len(placeholders))
	}

	box := placeholders[1]
	if err := doc.Mount(box, &fixedPortal{html: `<p><span data-type="inline" id="g">Loading</span></p>`}); err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	nested := doc.ScanWithin(box, allPortals)
	if len(nested) != 1 {
		t.Fatalf("len(nested) = %d, want 1", len(nested))
	}
	// Ids stay unique across scans of the same document.
	if got := nested[0].Props.ID; got != "g-1" {
		t.Errorf("nested id = %q, want g-1", got)
	}
	if got := nested[0].Props.Ref; got != "g" {
		t.Errorf("nested ref = %q, want g", got)
	}
}

func TestDocument_WrapTables(t *testing.T) {
	t.Parallel()

	doc, err := ParseDocument("", `<table class="expandable"><tr><td>`+
		`<table><tr><td>in</td></tr></table></td></tr></table><p>x</p><table><tr><td>b</td></tr></table>`)
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}
	doc.WrapTables()

	placeholders := doc.Scan(func(typ string) bool { return typ == TypeTable })
	var ids []string
	for _, p := range placeholders {
		ids = append(ids, p.Props.ID)
	}
	if diff := cmp.Diff([]string{"table-0", "table-2"}, ids); diff != "" {
		t.Errorf("table placeholders mismatch (-want +got):\n%s", diff)
	}
	if got := placeholders[0].Props.Attrs["classes"]; got != "expandable" {
		t.Errorf("data-classes = %q, want expandable", got)
	}
	if !strings.HasPrefix(placeholders[0].Props.Content, `<table class="expandable `+TableClasses+`">`) {
		t.Errorf("Content = %q, want the classed table", placeholders[0].Props.Content)
	}

	got, _ := doc.Render()
	for _, want := range []string{
		`<div class="overflow-auto"><table class="` + TableClasses + `"><tbody><tr><td>in</td>`,
		`<div data-type="table" data-classes="" id="table-2"><table class="` + TableClasses + `">`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Render() missing %q\n got: %s", want, got)
		}
	}
}

func TestProps_Key(t *testing.T) {
	t.Parallel()

	a := Props{Type: "inline", ID: "x", Text: "t"}
	b := Props{Type: "inline", ID: "x", Text: "u"}
	c := Props{Type: "full", ID: "x", Text: "t"}
	if a.Key() == b.Key() || a.Key() == c.Key() {
		t.Error("keys should differ by type, id and text")
	}
	if a.Key() != (Props{Type: "inline", ID: "x", Text: "t", Ref: "other"}).Key() {
		t.Error("Ref should not affect the key")
	}

	w50 := Props{Type: "drop-zone", ID: "d", Attrs: map[string]string{"index": "0", "style": "min-width: 50px"}}
	w80 := Props{Type: "drop-zone", ID: "d", Attrs: map[string]string{"index": "0", "style": "min-width: 80px"}}
	if w50.Key() == w80.Key() {
		t.Error("keys should differ when an attribute changes")
	}
	same := Props{Type: "drop-zone", ID: "d", Attrs: map[string]string{"style": "min-width: 50px", "index": "0"}}
	if w50.Key() != same.Key() {
		t.Error("keys should not depend on attribute order")
	}
	if a.Key() == (Props{Type: "inline", ID: "x", Text: "t", Content: "<table></table>"}).Key() {
		t.Error("keys should differ when the content changes")
	}
}
