// Package pipeline implements the trusted-markup rendering stages.
//
// Stages, in the order a markdown unit flows through them:
//   - Math protection: TeX regions are rendered and hidden behind placeholders
//   - Markdown preprocessing (drop zones, glossary terms, link macros)
//   - Markdown to HTML conversion via Goldmark with an anchor policy
//   - Optional sanitizing via bluemonday
//   - Injection: the HTML is parsed into a container, placeholders are
//     scanned and portal output is rendered into them in place
//
// The stateful part (which portals are live for a rendering instance) lives in
// the root package's Host. This package only transforms strings and trees.
package pipeline
