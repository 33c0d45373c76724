// Package assets provides the stylesheets and the page template used to wrap
// rendered content into a standalone HTML document.
//
// Assets are embedded at compile time:
//
//	styles/
//	└── {name}.css        # Base styles (e.g., base.css)
//	templates/
//	└── {name}.html       # Page templates (e.g., document.html)
//
// Code highlighting styles are not stored here: HighlightCSS generates them
// from chroma's style registry so they always match the classes goldmark emits.
//
// Asset names are validated to prevent path traversal.
package assets
