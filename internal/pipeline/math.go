package pipeline

import (
	"html"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// Math placeholders use Unicode Private Use Area characters, like the highlight
// markers: goldmark passes them through untouched, so TeX hidden behind them
// cannot be mangled by emphasis or escaping rules.
const (
	MathStartPlaceholder = "\uE002" // U+E002: Private Use Area
	MathEndPlaceholder   = "\uE003" // U+E003: Private Use Area
)

// mathStartPattern finds the opening of a math region, a \$ escape or a \ref.
// Longer delimiters come first so "$$" wins over "$".
var mathStartPattern = regexp.MustCompile(
	`\\begin\{equation\}|\$\$|\\\[|\\\(|\$|\\begin\{([^}]*)\}|\\*\\\$|\\(?:eq)?ref\{([^}]*)\}`)

var mathPlaceholderPattern = regexp.MustCompile(MathStartPlaceholder + `(\d+)` + MathEndPlaceholder)

type mathDelimiter struct {
	end     string
	display bool
}

var mathDelimiters = map[string]mathDelimiter{
	"$":                {end: "$"},
	`\(`:               {end: `\)`},
	"$$":               {end: "$$", display: true},
	`\[`:               {end: `\]`, display: true},
	`\begin{equation}`: {end: `\end{equation}`, display: true},
}

// endPatterns caches compiled end-delimiter scanners keyed by delimiter.
var endPatterns sync.Map

// endPattern matches the closing delimiter, an escaped character or a brace.
func endPattern(end string) *regexp.Regexp {
	if re, ok := endPatterns.Load(end); ok {
		return re.(*regexp.Regexp)
	}
	re := regexp.MustCompile(regexp.QuoteMeta(end) + `|\\.|[{}]`)
	endPatterns.Store(end, re)
	return re
}

// MathRenderer renders one TeX expression to HTML.
type MathRenderer interface {
	RenderTeX(tex string, display bool) string
}

// KaTeXMarkup emits TeX wrapped for client-side KaTeX rendering.
type KaTeXMarkup struct{}

// RenderTeX escapes the TeX and wraps it in standard delimiters inside a span
// the browser-side renderer picks up by class.
func (KaTeXMarkup) RenderTeX(tex string, display bool) string {
	if display {
		return `<span class="katex-math katex-display" data-display="display">\[` + html.EscapeString(tex) + `\]</span>`
	}
	return `<span class="katex-math" data-display="inline">\(` + html.EscapeString(tex) + `\)</span>`
}

// MathPass locates math regions in text and renders them.
type MathPass struct {
	Renderer MathRenderer
}

// NewMathPass creates a MathPass, defaulting to KaTeXMarkup.
func NewMathPass(r MathRenderer) *MathPass {
	if r == nil {
		r = KaTeXMarkup{}
	}
	return &MathPass{Renderer: r}
}

// Render replaces every math region, \$ escape and \ref in src with its HTML.
func (p *MathPass) Render(src string, figures map[string]int) string {
	return p.scan(src, figures, func(rendered string) string { return rendered })
}

// ProtectedMath holds rendered math swapped out of a document.
type ProtectedMath struct {
	segments []string
}

// Protect renders math like Render but leaves placeholder tokens in the text.
// Call Restore on the converted output to put the rendered math back.
func (p *MathPass) Protect(src string, figures map[string]int) (string, *ProtectedMath) {
	pm := &ProtectedMath{}
	out := p.scan(src, figures, func(rendered string) string {
		pm.segments = append(pm.segments, rendered)
		return MathStartPlaceholder + strconv.Itoa(len(pm.segments)-1) + MathEndPlaceholder
	})
	return out, pm
}

// Restore swaps placeholder tokens back for rendered math.
func (pm *ProtectedMath) Restore(content string) string {
	if pm == nil || len(pm.segments) == 0 {
		return content
	}
	return mathPlaceholderPattern.ReplaceAllStringFunc(content, func(token string) string {
		n, err := strconv.Atoi(strings.Trim(token, MathStartPlaceholder+MathEndPlaceholder))
		if err != nil || n >= len(pm.segments) {
			return token
		}
		return pm.segments[n]
	})
}

// scan walks src once. emit receives the HTML for each math region or reference
// and returns what to write in its place.
func (p *MathPass) scan(src string, figures map[string]int, emit func(string) string) string {
	var out strings.Builder
	out.Grow(len(src))

	index := 0
	for index < len(src) {
		loc := mathStartPattern.FindStringSubmatchIndex(src[index:])
		if loc == nil {
			break
		}
		start, stop := index+loc[0], index+loc[1]
		token := src[start:stop]
		out.WriteString(src[index:start])

		delim, isDelimiter := mathDelimiters[token]
		open := len(token)
		isBeginEnd := false
		switch {
		case isDelimiter:
		case loc[2] >= 0:
			delim = mathDelimiter{end: `\end{` + src[index+loc[2]:index+loc[3]] + `}`, display: true}
			open = 0
			isBeginEnd = true
		case loc[4] >= 0:
			out.WriteString(emit(figureReference(figures, src[index+loc[4]:index+loc[5]], token)))
			index = stop
			continue
		default:
			// \$ escape
			out.WriteString("$")
			index = stop
			continue
		}

		closeStart, closeStop, ok := findMathEnd(src, stop, delim.end)
		if !ok {
			// Unmatched opening delimiter: keep it and carry on after it.
			out.WriteString(token)
			index = stop
			continue
		}

		texStart, texStop := start+open, closeStart
		if isBeginEnd {
			texStop = closeStop
		}
		tex := mungeTeX(html.UnescapeString(src[texStart:texStop]))
		out.WriteString(emit(p.Renderer.RenderTeX(tex, delim.display)))
		index = closeStop
	}
	out.WriteString(src[index:])
	return out.String()
}

// findMathEnd scans from pos for end at brace depth zero.
func findMathEnd(src string, pos int, end string) (int, int, bool) {
	re := endPattern(end)
	depth := 0
	for pos <= len(src) {
		loc := re.FindStringIndex(src[pos:])
		if loc == nil {
			return 0, 0, false
		}
		a, b := pos+loc[0], pos+loc[1]
		switch tok := src[a:b]; {
		case tok == end:
			if depth == 0 {
				return a, b, true
			}
		case tok == "{":
			depth++
		case tok == "}":
			depth--
		}
		pos = b
	}
	return 0, 0, false
}

// mungeTeX adapts MathJax-era TeX to what KaTeX accepts.
func mungeTeX(tex string) string {
	tex = strings.ReplaceAll(tex, "eqnarray", "aligned")
	return strings.ReplaceAll(tex, `\newline`, `\\`)
}

// figureReference resolves a \ref{} target against the figure numbering.
func figureReference(figures map[string]int, ref, token string) string {
	if n, ok := figures[ref]; ok && ref != "" {
		return `<strong class="text-theme figure-reference">Figure&nbsp;` + strconv.Itoa(n) + `</strong>`
	}
	return "unknown reference " + html.EscapeString(token)
}
