package pipeline

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer strips unsafe markup from HTML before placeholders are scanned.
type Sanitizer interface {
	Sanitize(htmlContent string) string
}

// placeholderDimension accepts the values drop-zone styles are built from.
var placeholderDimension = regexp.MustCompile(`^(?:\d+px|auto)$`)

// UGCSanitizer applies bluemonday's user-generated-content policy, widened so
// that placeholder elements and math spans survive.
type UGCSanitizer struct {
	policy *bluemonday.Policy
}

// NewUGCSanitizer builds the sanitizer policy.
func NewUGCSanitizer() *UGCSanitizer {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("id", "class").Globally()
	p.AllowAttrs(
		"data-type", "data-index", "data-text", "data-titled",
		"data-width", "data-height", "data-classes", "data-display",
	).Globally()
	p.AllowStyles("min-width", "min-height").Matching(placeholderDimension).OnElements("span")
	p.AllowAttrs("title").OnElements("a")
	p.RequireNoFollowOnFullyQualifiedLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return &UGCSanitizer{policy: p}
}

// Sanitize returns the policy-filtered HTML.
func (s *UGCSanitizer) Sanitize(htmlContent string) string {
	return s.policy.Sanitize(htmlContent)
}
