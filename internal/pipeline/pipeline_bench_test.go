//go:build bench

package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

// BenchmarkPreprocessMarkdown benchmarks the placeholder stages on content
// dense with drop zones and glossary references.
func BenchmarkPreprocessMarkdown(b *testing.B) {
	p := &ContentPreprocessor{Variant: VariantPhysics}
	ctx := context.Background()
	page := &PageContext{Subject: "physics", Stages: []string{"a_level"}}

	for _, zones := range []int{1, 10, 100} {
		content := generateClozeMarkdown(zones)
		b.Run(fmt.Sprintf("zones_%d", zones), func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				_ = p.PreprocessMarkdown(ctx, content, page)
			}
		})
	}
}

// BenchmarkGoldmarkToHTML benchmarks markdown to HTML conversion.
func BenchmarkGoldmarkToHTML(b *testing.B) {
	converter := NewGoldmarkConverter(LinkPolicy{Origin: "https://isaacphysics.org"})
	ctx := context.Background()

	inputs := []struct {
		name    string
		content string
	}{
		{"minimal", "# Hello\n\nWorld"},
		{"links", strings.Repeat("See [site](/concepts/cp_force) and [ext](https://example.com).\n\n", 20)},
		{"code_blocks", generateCodeBlocksMarkdown(10)},
		{"cloze", generateClozeMarkdown(20)},
	}

	for _, input := range inputs {
		b.Run(input.name, func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				if _, err := converter.ToHTML(ctx, input.content); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkMathProtect benchmarks math rendering behind placeholders.
func BenchmarkMathProtect(b *testing.B) {
	pass := NewMathPass(nil)
	content := strings.Repeat(`Energy $E = mc^2$ and \[\int_0^1 x^2 \, dx\] with \ref{fig1}. `, 50)
	figures := map[string]int{"fig1": 1}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		out, pm := pass.Protect(content, figures)
		_ = pm.Restore(out)
	}
}

// BenchmarkDocumentScan benchmarks parsing and scanning rendered HTML.
func BenchmarkDocumentScan(b *testing.B) {
	p := &ContentPreprocessor{}
	fragment := p.PreprocessMarkdown(context.Background(), generateClozeMarkdown(50), nil)
	isPortal := func(string) bool { return true }

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		doc, err := ParseDocument("content", fragment)
		if err != nil {
			b.Fatal(err)
		}
		_ = doc.Scan(isPortal)
	}
}

// Helper functions for generating benchmark input

func generateClozeMarkdown(zones int) string {
	var sb strings.Builder
	sb.WriteString("# Cloze question\n\n")
	for i := 0; i < zones; i++ {
		sb.WriteString(fmt.Sprintf("Sentence %d with [drop-zone|w-50] and [glossary-inline:physics|force \"force\"].\n\n", i))
	}
	sb.WriteString("[glossary:physics|energy]\n\n**Glossary** and **Concepts**\n")
	return sb.String()
}

func generateCodeBlocksMarkdown(count int) string {
	var sb strings.Builder
	code := `func example() {
    fmt.Println("Hello, World!")
}`
	for i := 0; i < count; i++ {
		sb.WriteString("## Code Example\n\n```go\n")
		sb.WriteString(code)
		sb.WriteString("\n```\n\n")
	}
	return sb.String()
}
