package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Variant selects site-specific preprocessing rules.
type Variant string

// Supported site variants.
const (
	VariantDefault Variant = "default"
	VariantPhysics Variant = "physics"
)

// PageContext describes where content is being rendered.
// Only the physics variant reads it, to scope **Glossary** and **Concepts** links.
type PageContext struct {
	Subject string
	Stages  []string
}

// singleStage reports whether the context names a subject and exactly one stage.
func (p *PageContext) singleStage() bool {
	return p != nil && p.Subject != "" && len(p.Stages) == 1
}

// Precompiled patterns for the content-specific markdown syntax.
var (
	// Line ending normalization
	crlfOrCR = regexp.MustCompile(`\r\n?`)

	// [drop-zone], [drop-zone|w-50], [drop-zone|h-20], [drop-zone|i-2w-50h-20]
	dropZonePattern = regexp.MustCompile(`\[drop-zone(?:\|(i-\d+)?(w-\d+)?(h-\d+)?)?\]`)

	// [drop-zone:name|w-50h-20] for drag-and-drop questions with named zones
	namedDropZonePattern = regexp.MustCompile(`\[drop-zone:([a-zA-Z0-9_-]+)(?:\|(w-\d+)?(h-\d+)?)?\]`)

	// [inline-question:part|w-50h-20] or [inline-question:part class="wide"]
	inlineQuestionPattern = regexp.MustCompile(`\[inline-question:([a-zA-Z0-9_-]+)(?: *\| *(w-\d+)?(h-\d+)?| +class=(?:["']|&apos;|&[rl]?quot;)([a-zA-Z0-9 _-]+?)(?:["']|&apos;|&[rl]?quot;))?\]`)

	// [glossary:group|term], only at the start of a line
	glossaryBlockPattern = regexp.MustCompile(`(?m)^\[glossary:([a-z0-9\-|_]+?)\]`)

	// [glossary-inline:group|term "Display text"], anywhere
	glossaryInlinePattern = regexp.MustCompile(`\[glossary-inline(-titled)?:([a-z0-9\-|_]+?)\s*(?:"([A-Za-z0-9\-()/,'\\. ]+)")?\]`)

	// \link{text}{url}
	linkMacroPattern = regexp.MustCompile(`\\link\{([^}]*)\}\{([^}]*)\}`)

	boldGlossaryPattern = regexp.MustCompile(`\*\*Glossary\*\*`)
	boldConceptsPattern = regexp.MustCompile(`\*\*Concepts\*\*`)
)

// Default drop-zone dimensions when no w-/h- parameter is present.
const (
	defaultDropZoneWidth  = "100px"
	defaultDropZoneHeight = "auto"
)

// Placeholder ID prefixes shared with the portal registry.
const (
	DropZoneIDPrefix       = "drop-region-"
	InlineQuestionIDPrefix = "inline-question-"
	GlossaryTermIDPrefix   = "glossary-term-"
	glossaryLoadingText    = "Loading glossary..."
)

// MarkdownPreprocessor defines the contract for markdown preprocessing.
type MarkdownPreprocessor interface {
	PreprocessMarkdown(ctx context.Context, content string, page *PageContext) string
}

// ContentPreprocessor rewrites content-specific pseudo-markdown into placeholder HTML
// before standard markdown conversion.
type ContentPreprocessor struct {
	Variant Variant
}

// PreprocessMarkdown applies all stages in order. Each stage consumes the output
// of the previous one; drop zones go first and link macros last so that macro
// expansion can never produce bracket syntax for the earlier stages.
func (p *ContentPreprocessor) PreprocessMarkdown(ctx context.Context, content string, page *PageContext) string {
	// Check for cancellation before processing
	if ctx.Err() != nil {
		return content
	}

	content = normalizeLineEndings(content)
	content = RenderClozeDropZones(content)
	content = renderNamedDropZones(content)
	content = renderInlineQuestionZones(content)
	content = RenderGlossaryBlocks(content)
	content = RenderInlineGlossaryTerms(content)
	content = p.expandMacros(content, page)
	return content
}

// normalizeLineEndings converts \r\n and \r to \n.
func normalizeLineEndings(content string) string {
	return crlfOrCR.ReplaceAllString(content, "\n")
}

// RenderClozeDropZones replaces [drop-zone] tokens with indexed placeholder spans.
//
// Indices are zero-based and assigned left to right by a counter local to this call.
// An explicit i-N parameter claims index N when N is below the number of drop zones;
// the first token to claim an index keeps it and the counter skips every claimed index.
func RenderClozeDropZones(markdown string) string {
	matches := dropZonePattern.FindAllStringSubmatch(markdown, -1)
	if len(matches) == 0 {
		return markdown
	}

	reserved := make(map[int]bool)
	for _, m := range matches {
		if n, ok := manualIndex(m[1], len(matches)); ok {
			reserved[n] = true
		}
	}

	claimed := make(map[int]bool)
	next := 0
	i := 0
	return dropZonePattern.ReplaceAllStringFunc(markdown, func(string) string {
		m := matches[i]
		i++

		index, ok := manualIndex(m[1], len(matches))
		if !ok || claimed[index] {
			for reserved[next] || claimed[next] {
				next++
			}
			index = next
			next++
		}
		claimed[index] = true

		return dropZoneSpan(strconv.Itoa(index), m[2], m[3])
	})
}

// manualIndex parses an "i-N" parameter and checks it fits the drop-zone count.
func manualIndex(param string, count int) (int, bool) {
	if param == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(param, "i-"))
	if err != nil || n < 0 || n >= count {
		return 0, false
	}
	return n, true
}

// renderNamedDropZones replaces [drop-zone:name] tokens. Names are author supplied
// and do not consume sequential indices.
func renderNamedDropZones(markdown string) string {
	return namedDropZonePattern.ReplaceAllStringFunc(markdown, func(match string) string {
		m := namedDropZonePattern.FindStringSubmatch(match)
		return dropZoneSpan(m[1], m[2], m[3])
	})
}

// dropZoneSpan builds the drop-zone placeholder from raw w-N / h-N parameters.
func dropZoneSpan(index, widthParam, heightParam string) string {
	minWidth := defaultDropZoneWidth
	if widthParam != "" {
		minWidth = strings.TrimPrefix(widthParam, "w-") + "px"
	}
	minHeight := defaultDropZoneHeight
	if heightParam != "" {
		minHeight = strings.TrimPrefix(heightParam, "h-") + "px"
	}
	return fmt.Sprintf(`<span data-type="%s" data-index="%s" id="%s%s" style="min-width: %s; min-height: %s"></span>`,
		TypeDropZone, index, DropZoneIDPrefix, index, minWidth, minHeight)
}

// renderInlineQuestionZones replaces [inline-question:part] tokens with entry-zone placeholders.
func renderInlineQuestionZones(markdown string) string {
	return inlineQuestionPattern.ReplaceAllStringFunc(markdown, func(match string) string {
		m := inlineQuestionPattern.FindStringSubmatch(match)
		var attrs strings.Builder
		if m[2] != "" {
			fmt.Fprintf(&attrs, ` data-width="%s"`, strings.TrimPrefix(m[2], "w-"))
		}
		if m[3] != "" {
			fmt.Fprintf(&attrs, ` data-height="%s"`, strings.TrimPrefix(m[3], "h-"))
		}
		if m[4] != "" {
			fmt.Fprintf(&attrs, ` data-classes="%s"`, m[4])
		}
		return fmt.Sprintf(`<span data-type="%s" id="%s%s" class="inline-outer-container"%s></span>`,
			TypeInlineQuestion, InlineQuestionIDPrefix, m[1], attrs.String())
	})
}

// GlossaryElementID derives the placeholder id for a glossary term id.
// Pipes separate a glossary group from a term and become hyphens, so
// "group|term" and "group-term" map to the same element id.
func GlossaryElementID(termID string) string {
	return GlossaryTermIDPrefix + strings.ReplaceAll(termID, "|", "-")
}

// RenderGlossaryBlocks replaces line-anchored [glossary:id] tokens with full-term placeholders.
// Each placeholder is followed by a blank line: markdown HTML blocks run until
// one, and the text after the term must still be parsed as markdown.
func RenderGlossaryBlocks(markdown string) string {
	return glossaryBlockPattern.ReplaceAllStringFunc(markdown, func(match string) string {
		m := glossaryBlockPattern.FindStringSubmatch(match)
		return fmt.Sprintf("<div data-type=\"%s\" id=\"%s\">%s</div>\n\n",
			TypeGlossaryFull, GlossaryElementID(m[1]), glossaryLoadingText)
	})
}

// RenderInlineGlossaryTerms replaces [glossary-inline:id "text"] tokens with inline placeholders.
func RenderInlineGlossaryTerms(markdown string) string {
	return glossaryInlinePattern.ReplaceAllStringFunc(markdown, func(match string) string {
		m := glossaryInlinePattern.FindStringSubmatch(match)
		var attrs strings.Builder
		if m[3] != "" {
			// The text pattern admits no quotes or angle brackets.
			fmt.Fprintf(&attrs, ` data-text="%s"`, m[3])
		}
		if m[1] != "" {
			attrs.WriteString(` data-titled="true"`)
		}
		return fmt.Sprintf(`<span data-type="%s" class="inline-glossary-term"%s id="%s">%s</span>`,
			TypeGlossaryInline, attrs.String(), GlossaryElementID(m[2]), glossaryLoadingText)
	})
}

// expandMacros rewrites \link{text}{url} into markdown links and, on the physics
// site, turns **Glossary** and **Concepts** into navigation links.
func (p *ContentPreprocessor) expandMacros(markdown string, page *PageContext) string {
	markdown = linkMacroPattern.ReplaceAllString(markdown, "[${1}](${2})")
	if p.Variant != VariantPhysics {
		return markdown
	}

	var glossaryHref, conceptsHref string
	switch {
	case page != nil && page.Subject != "" && !page.singleStage():
		glossaryHref = "/glossary?subjects=" + page.Subject
		conceptsHref = "/concepts?types=" + page.Subject
	case page.singleStage():
		prefix := "/" + page.Subject + "/" + page.Stages[0]
		glossaryHref = prefix + "/glossary"
		conceptsHref = prefix + "/concepts"
	default:
		glossaryHref = "/glossary"
		conceptsHref = "/concepts"
	}

	markdown = boldGlossaryPattern.ReplaceAllLiteralString(markdown, "[**Glossary**]("+glossaryHref+")")
	markdown = boldConceptsPattern.ReplaceAllLiteralString(markdown, "[**Concepts**]("+conceptsHref+")")
	return markdown
}
