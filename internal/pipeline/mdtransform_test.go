package pipeline

import (
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func dropZone(index, width, height string) string {
	return `<span data-type="drop-zone" data-index="` + index + `" id="drop-region-` + index +
		`" style="min-width: ` + width + `; min-height: ` + height + `"></span>`
}

func TestNormalizeLineEndings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "LF unchanged", input: "line1\nline2", expected: "line1\nline2"},
		{name: "CRLF to LF", input: "line1\r\nline2", expected: "line1\nline2"},
		{name: "CR to LF", input: "line1\rline2", expected: "line1\nline2"},
		{name: "mixed line endings", input: "a\r\nb\rc\nd", expected: "a\nb\nc\nd"},
		{name: "empty string", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := normalizeLineEndings(tt.input); got != tt.expected {
				t.Errorf("normalizeLineEndings() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestRenderClozeDropZones(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "no drop zones",
			input:    "Plain [link](/x) and [other] text",
			expected: "Plain [link](/x) and [other] text",
		},
		{
			name:     "default dimensions",
			input:    "[drop-zone]",
			expected: dropZone("0", "100px", "auto"),
		},
		{
			name:     "width only",
			input:    "[drop-zone|w-50]",
			expected: dropZone("0", "50px", "auto"),
		},
		{
			name:     "height only",
			input:    "[drop-zone|h-20]",
			expected: dropZone("0", "100px", "20px"),
		},
		{
			name:     "width and height",
			input:    "[drop-zone|w-50h-20]",
			expected: dropZone("0", "50px", "20px"),
		},
		{
			name:     "sequential indices",
			input:    "a [drop-zone] b [drop-zone] c [drop-zone]",
			expected: "a " + dropZone("0", "100px", "auto") + " b " + dropZone("1", "100px", "auto") + " c " + dropZone("2", "100px", "auto"),
		},
		{
			name:     "manual index is reserved before auto assignment",
			input:    "[drop-zone] [drop-zone|i-0]",
			expected: dropZone("1", "100px", "auto") + " " + dropZone("0", "100px", "auto"),
		},
		{
			name:     "manual index with dimensions",
			input:    "[drop-zone|i-1w-40h-10] [drop-zone]",
			expected: dropZone("1", "40px", "10px") + " " + dropZone("0", "100px", "auto"),
		},
		{
			name:     "out of range manual index falls back to counter",
			input:    "[drop-zone|i-5] [drop-zone]",
			expected: dropZone("0", "100px", "auto") + " " + dropZone("1", "100px", "auto"),
		},
		{
			name:     "duplicate manual index: first claimant wins",
			input:    "[drop-zone|i-0] [drop-zone|i-0]",
			expected: dropZone("0", "100px", "auto") + " " + dropZone("1", "100px", "auto"),
		},
		{
			name:     "malformed parameters are left alone",
			input:    "[drop-zone|x-5]",
			expected: "[drop-zone|x-5]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := RenderClozeDropZones(tt.input); got != tt.expected {
				t.Errorf("RenderClozeDropZones(%q)\n got: %q\nwant: %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestRenderClozeDropZones_CounterIsPerCall(t *testing.T) {
	t.Parallel()

	first := RenderClozeDropZones("[drop-zone]")
	second := RenderClozeDropZones("[drop-zone]")
	if first != second {
		t.Errorf("indices leaked between calls: %q vs %q", first, second)
	}
}

func TestRenderNamedDropZones(t *testing.T) {
	t.Parallel()

	got := renderNamedDropZones("[drop-zone:A1|w-30] and [drop-zone:b_2]")
	want := dropZone("A1", "30px", "auto") + " and " + dropZone("b_2", "100px", "auto")
	if got != want {
		t.Errorf("renderNamedDropZones()\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderInlineQuestionZones(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "bare",
			input:    "[inline-question:part1]",
			expected: `<span data-type="inline-question" id="inline-question-part1" class="inline-outer-container"></span>`,
		},
		{
			name:     "dimensions",
			input:    "[inline-question:part1|w-100h-30]",
			expected: `<span data-type="inline-question" id="inline-question-part1" class="inline-outer-container" data-width="100" data-height="30"></span>`,
		},
		{
			name:     "classes",
			input:    `[inline-question:p2 class="wide short"]`,
			expected: `<span data-type="inline-question" id="inline-question-p2" class="inline-outer-container" data-classes="wide short"></span>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := renderInlineQuestionZones(tt.input); got != tt.expected {
				t.Errorf("renderInlineQuestionZones()\n got: %q\nwant: %q", got, tt.expected)
			}
		})
	}
}

func TestGlossaryElementID(t *testing.T) {
	t.Parallel()

	if got := GlossaryElementID("physics|force"); got != "glossary-term-physics-force" {
		t.Errorf("GlossaryElementID() = %q", got)
	}
	// Pipe and hyphen forms collide by construction.
	if GlossaryElementID("a|b") != GlossaryElementID("a-b") {
		t.Error("pipe and hyphen ids should map to the same element id")
	}
}

func TestRenderGlossaryBlocks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "line start",
			input:    "[glossary:physics|force]",
			expected: `<div data-type="full" id="glossary-term-physics-force">Loading glossary...</div>` + "\n\n",
		},
		{
			name:     "second line",
			input:    "Intro\n[glossary:maths-vector]",
			expected: "Intro\n" + `<div data-type="full" id="glossary-term-maths-vector">Loading glossary...</div>` + "\n\n",
		},
		{
			name:     "following line is split off",
			input:    "[glossary:physics|force]\nSome *text*",
			expected: `<div data-type="full" id="glossary-term-physics-force">Loading glossary...</div>` + "\n\n\nSome *text*",
		},
		{
			name:     "mid-line is not a block",
			input:    "see [glossary:physics|force]",
			expected: "see [glossary:physics|force]",
		},
		{
			name:     "uppercase ids are not matched",
			input:    "[glossary:Physics|Force]",
			expected: "[glossary:Physics|Force]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := RenderGlossaryBlocks(tt.input); got != tt.expected {
				t.Errorf("RenderGlossaryBlocks()\n got: %q\nwant: %q", got, tt.expected)
			}
		})
	}
}

func TestRenderInlineGlossaryTerms(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "bare",
			input:    "A [glossary-inline:physics|force] acts",
			expected: `A <span data-type="inline" class="inline-glossary-term" id="glossary-term-physics-force">Loading glossary...</span> acts`,
		},
		{
			name:     "display text",
			input:    `[glossary-inline:physics|force "net force"]`,
			expected: `<span data-type="inline" class="inline-glossary-term" data-text="net force" id="glossary-term-physics-force">Loading glossary...</span>`,
		},
		{
			name:     "titled",
			input:    `[glossary-inline-titled:physics|force "Force (N)"]`,
			expected: `<span data-type="inline" class="inline-glossary-term" data-text="Force (N)" data-titled="true" id="glossary-term-physics-force">Loading glossary...</span>`,
		},
		{
			name:     "quote characters outside the text alphabet",
			input:    `[glossary-inline:physics|force "a<b"]`,
			expected: `[glossary-inline:physics|force "a<b"]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := RenderInlineGlossaryTerms(tt.input); got != tt.expected {
				t.Errorf("RenderInlineGlossaryTerms()\n got: %q\nwant: %q", got, tt.expected)
			}
		})
	}
}

func TestExpandMacros(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		variant  Variant
		page     *PageContext
		input    string
		expected string
	}{
		{
			name:     "link macro",
			input:    `\link{the docs}{https://example.com/docs}`,
			expected: "[the docs](https://example.com/docs)",
		},
		{
			name:     "default variant leaves bold words",
			input:    "**Glossary** and **Concepts**",
			expected: "**Glossary** and **Concepts**",
		},
		{
			name:     "physics without page",
			variant:  VariantPhysics,
			input:    "**Glossary** and **Concepts**",
			expected: "[**Glossary**](/glossary) and [**Concepts**](/concepts)",
		},
		{
			name:     "physics with subject and several stages",
			variant:  VariantPhysics,
			page:     &PageContext{Subject: "physics", Stages: []string{"gcse", "a_level"}},
			input:    "**Glossary** and **Concepts**",
			expected: "[**Glossary**](/glossary?subjects=physics) and [**Concepts**](/concepts?types=physics)",
		},
		{
			name:     "physics with a single stage",
			variant:  VariantPhysics,
			page:     &PageContext{Subject: "physics", Stages: []string{"a_level"}},
			input:    "**Glossary**",
			expected: "[**Glossary**](/physics/a_level/glossary)",
		},
		{
			name:     "physics with a stage but no subject",
			variant:  VariantPhysics,
			page:     &PageContext{Stages: []string{"a_level"}},
			input:    "**Concepts**",
			expected: "[**Concepts**](/concepts)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := &ContentPreprocessor{Variant: tt.variant}
			if got := p.expandMacros(tt.input, tt.page); got != tt.expected {
				t.Errorf("expandMacros()\n got: %q\nwant: %q", got, tt.expected)
			}
		})
	}
}

func TestContentPreprocessor_PreprocessMarkdown(t *testing.T) {
	t.Parallel()

	t.Run("identity on plain markdown", func(t *testing.T) {
		t.Parallel()

		p := &ContentPreprocessor{Variant: VariantPhysics}
		input := "# Title\n\nSome *text* with [a link](/x) and `code`.\n"
		if got := p.PreprocessMarkdown(context.Background(), input, nil); got != input {
			t.Errorf("PreprocessMarkdown() = %q, want unchanged", got)
		}
	})

	t.Run("all stages", func(t *testing.T) {
		t.Parallel()

		p := &ContentPreprocessor{}
		input := "Fill [drop-zone] in\r\n[glossary:physics|force]\r\n\\link{x}{/y}"
		got := p.PreprocessMarkdown(context.Background(), input, nil)

		for _, want := range []string{
			dropZone("0", "100px", "auto"),
			`<div data-type="full" id="glossary-term-physics-force">`,
			"[x](/y)",
		} {
			if !strings.Contains(got, want) {
				t.Errorf("output missing %q\n got: %q", want, got)
			}
		}
		if strings.Contains(got, "\r") {
			t.Error("carriage returns should be normalized")
		}
	})

	t.Run("drop zone indices ignore interleaved glossary syntax", func(t *testing.T) {
		t.Parallel()

		p := &ContentPreprocessor{}
		input := "[drop-zone] and [glossary-inline:physics|force \"force\"] then [drop-zone|w-50]\n" +
			"[glossary:physics|mass]\n" +
			"[glossary-inline-titled:maths|x] [drop-zone|h-20] [glossary-inline:maths|y] [drop-zone|w-30h-40]\n" +
			"[glossary:physics|energy] [drop-zone]"
		got := p.PreprocessMarkdown(context.Background(), input, nil)

		var indices []string
		for _, m := range regexp.MustCompile(`data-type="drop-zone" data-index="([^"]*)" id="drop-region-([^"]*)"`).FindAllStringSubmatch(got, -1) {
			if m[1] != m[2] {
				t.Errorf("index %q and id suffix %q differ", m[1], m[2])
			}
			indices = append(indices, m[1])
		}
		if diff := cmp.Diff([]string{"0", "1", "2", "3", "4"}, indices); diff != "" {
			t.Errorf("drop zone indices mismatch (-want +got):\n%s", diff)
		}
		if strings.Count(got, `data-type="inline"`) != 3 || strings.Count(got, `data-type="full"`) != 2 {
			t.Errorf("glossary placeholders missing, got %q", got)
		}
	})

	t.Run("link macro cannot produce placeholder syntax", func(t *testing.T) {
		t.Parallel()

		p := &ContentPreprocessor{}
		got := p.PreprocessMarkdown(context.Background(), `\link{[drop-zone]}{/x}`, nil)
		// The drop zone inside the macro text is replaced before the macro expands.
		if !strings.Contains(got, `data-type="drop-zone"`) {
			t.Errorf("got %q", got)
		}
	})

	t.Run("cancelled context returns input", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		p := &ContentPreprocessor{}
		input := "[drop-zone]"
		if got := p.PreprocessMarkdown(ctx, input, nil); got != input {
			t.Errorf("PreprocessMarkdown() = %q, want %q", got, input)
		}
	})
}
