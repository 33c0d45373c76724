package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestLinkPolicy_IsInternal(t *testing.T) {
	t.Parallel()

	policy := LinkPolicy{Origin: "https://isaacphysics.org"}

	tests := []struct {
		href string
		want bool
	}{
		{"https://isaacphysics.org/concepts/cp_force", true},
		{"/questions/q1", true},
		{"#section", true},
		{"mailto:help@example.org", true},
		{"https://isaacphysics.org", true},
		{"https://isaacphysics.org?page=2", true},
		{"https://isaacphysics.org#top", true},
		{"https://example.com", false},
		{"http://isaacphysics.org", false},
		{"https://isaacphysics.org.evil.com/p", false},
		{"https://isaacphysics.org@evil.com/p", false},
		{"//evil.com/p", false},
		{"questions/q1", false},
	}

	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			t.Parallel()

			if got := policy.IsInternal(tt.href); got != tt.want {
				t.Errorf("IsInternal(%q) = %v, want %v", tt.href, got, tt.want)
			}
		})
	}

	t.Run("empty origin only trusts relative links", func(t *testing.T) {
		t.Parallel()

		if (LinkPolicy{}).IsInternal("https://isaacphysics.org/x") {
			t.Error("absolute link should be external without an origin")
		}
	})
}

func TestGoldmarkConverter_ToHTML(t *testing.T) {
	t.Parallel()

	converter := NewGoldmarkConverter(LinkPolicy{Origin: "https://isaacphysics.org", ConceptIcon: true})

	tests := []struct {
		name     string
		input    string
		contains []string
		excludes []string
	}{
		{
			name:     "external link opens in new tab",
			input:    "[ext](https://example.com)",
			contains: []string{`<a class="a-link" href="https://example.com" target="_blank" rel="noopener nofollow">ext</a>`},
		},
		{
			name:     "internal link stays in tab",
			input:    "[int](/questions/q1)",
			contains: []string{`<a class="a-link" href="/questions/q1">int</a>`},
			excludes: []string{"_blank"},
		},
		{
			name:     "origin link is internal",
			input:    "[home](https://isaacphysics.org/about)",
			contains: []string{`<a class="a-link" href="https://isaacphysics.org/about">home</a>`},
		},
		{
			name:     "concept link gets icon",
			input:    "[Force](/concepts/cp_force)",
			contains: []string{`<a class="a-link" href="/concepts/cp_force"><i class="icon icon-concept-thick"></i>Force</a>`},
		},
		{
			name:     "title attribute",
			input:    `[t](/x "A & B")`,
			contains: []string{`title="A &amp; B"`},
		},
		{
			name:     "dangerous scheme is dropped",
			input:    "[x](javascript:alert(1))",
			contains: []string{`href=""`},
			excludes: []string{"javascript:"},
		},
		{
			name:     "autolink",
			input:    "<https://example.com/a>",
			contains: []string{`<a class="a-link" href="https://example.com/a" target="_blank" rel="noopener nofollow">https://example.com/a</a>`},
		},
		{
			name:     "email autolink gets mailto",
			input:    "<help@example.org>",
			contains: []string{`href="mailto:help@example.org">help@example.org</a>`},
			excludes: []string{"_blank"},
		},
		{
			name:     "raw placeholder html survives",
			input:    `Fill <span data-type="drop-zone" id="drop-region-0"></span> here`,
			contains: []string{`<span data-type="drop-zone" id="drop-region-0"></span>`},
		},
		{
			name:     "gfm table",
			input:    "| a | b |\n|---|---|\n| 1 | 2 |",
			contains: []string{"<table>", "<td>1</td>"},
		},
		{
			name:     "code highlighting uses classes",
			input:    "```go\nfunc main() {}\n```",
			contains: []string{`class="chroma"`},
		},
		{
			name:     "fragment without document wrapper",
			input:    "hello",
			contains: []string{"<p>hello</p>"},
			excludes: []string{"<html", "<body"},
		},
		{
			name:     "math placeholders pass through",
			input:    "x " + MathStartPlaceholder + "0" + MathEndPlaceholder + " y",
			contains: []string{MathStartPlaceholder + "0" + MathEndPlaceholder},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := converter.ToHTML(context.Background(), tt.input)
			if err != nil {
				t.Fatalf("ToHTML() error = %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("output missing %q\n got: %s", want, got)
				}
			}
			for _, bad := range tt.excludes {
				if strings.Contains(got, bad) {
					t.Errorf("output should not contain %q\n got: %s", bad, got)
				}
			}
		})
	}
}

func TestGoldmarkConverter_NoConceptIcon(t *testing.T) {
	t.Parallel()

	converter := NewGoldmarkConverter(LinkPolicy{})
	got, err := converter.ToHTML(context.Background(), "[Force](/concepts/cp_force)")
	if err != nil {
		t.Fatalf("ToHTML() error = %v", err)
	}
	if strings.Contains(got, "icon-concept") {
		t.Errorf("icon should only be added when enabled, got %s", got)
	}
}

func TestGoldmarkConverter_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewGoldmarkConverter(LinkPolicy{}).ToHTML(ctx, "# hi")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
