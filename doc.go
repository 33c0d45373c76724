// Package markup renders trusted authored content (markdown, HTML, LaTeX and
// plain text) into HTML with interactive components mounted in place.
//
// # Quick Start
//
// Create a renderer and render a unit:
//
//	r, err := markup.NewRenderer(markup.WithSiteOrigin("https://isaacphysics.org"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := r.Render(ctx, markup.Unit{
//	    Content:  "Fill in [drop-zone] and [drop-zone|w-50].",
//	    Encoding: markup.EncodingMarkdown,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.HTML)
//
// # Rendering Pipeline
//
// A markdown unit flows through these stages:
//
//  1. Math regions are rendered and hidden behind placeholders
//  2. Content syntax ([drop-zone], [inline-question:x], [glossary:id],
//     \link{text}{url}) becomes placeholder HTML
//  3. Goldmark converts markdown to HTML; anchors get the link policy
//  4. Math is restored and the output is optionally sanitized
//  5. The HTML is parsed into a container, tables are moved into table
//     placeholders, and each placeholder whose data-type has a registered
//     portal receives that portal's output
//
// HTML units skip steps 2 and 3. LaTeX and plain text units are wrapped in a
// span and never carry portals. Any other encoding renders a visible warning.
//
// # Portals and Hosts
//
// A portal is a component rendered into a placeholder element. Drop zones,
// inline questions and tables are built in; glossary portals are enabled by
// WithGlossary, and WithPortal registers custom ones. A portal owns whatever
// its placeholder contained: placeholders nested in a portal's output are
// mounted after it, and ones its output dropped are never mounted.
//
// Renderer.Render mounts and releases portals within a single call. To keep
// portals alive while content changes, use a Host:
//
//	h := r.NewHost()
//	defer h.Close()
//
//	res, err := h.Update(ctx, unit)  // mounts portals
//	res, err = h.Update(ctx, edited) // reuses unchanged portals, releases vanished ones
//
// After Close, Update returns ErrHostClosed.
package markup
