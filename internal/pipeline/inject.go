package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrHTMLParse indicates the prepared HTML could not be parsed for injection.
var ErrHTMLParse = errors.New("HTML parsing failed")

// Placeholder types emitted by the preprocessor and by WrapTables.
const (
	TypeDropZone       = "drop-zone"
	TypeInlineQuestion = "inline-question"
	TypeGlossaryFull   = "full"
	TypeGlossaryInline = "inline"
	TypeTable          = "table"
)

// TableClasses are added to every table managed by WrapTables.
const TableClasses = "table table-bordered w-100 text-center bg-white m-0"

// Props are the attributes a portal receives from its placeholder element.
type Props struct {
	Type string
	// ID is the placeholder's element id, unique within the document.
	ID string
	// Ref is the id as authored, before any de-duplication suffix.
	Ref string
	// Text is the optional data-text display override.
	Text string
	// Attrs holds every remaining data-* attribute without its prefix, plus style.
	Attrs map[string]string
	// Content is the placeholder's inner HTML when it was scanned.
	Content string
}

// Key identifies a placeholder across renders of the same host. Two placeholders
// share a key only when every prop a portal can see is equal, so a portal is
// never reused for changed props.
func (p Props) Key() string {
	names := make([]string, 0, len(p.Attrs))
	for name := range p.Attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(p.Type)
	b.WriteByte(0)
	b.WriteString(p.ID)
	b.WriteByte(0)
	b.WriteString(p.Text)
	for _, name := range names {
		b.WriteByte(0)
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(p.Attrs[name])
	}
	b.WriteByte(0)
	b.WriteString(p.Content)
	return b.String()
}

// Portal is a live component mounted into a placeholder element.
type Portal interface {
	// Render writes the component's HTML. It may be called on every render
	// while the placeholder stays present.
	Render(w io.Writer) error
	// Release is called once, when the placeholder disappears or the host closes.
	Release()
}

// Sealed is implemented by portals whose output is final. A host does not look
// for placeholders inside a sealed portal's output.
type Sealed interface {
	Sealed() bool
}

// PortalFunc creates a Portal for one placeholder.
type PortalFunc func(ctx context.Context, props Props) (Portal, error)

// Placeholder is a located mount point inside a parsed Document.
type Placeholder struct {
	Props Props
	node  *html.Node
}

// Document is an HTML fragment parsed into its container element.
type Document struct {
	root *html.Node
	// seen counts element ids across every scan of the document.
	seen map[string]int
}

// ParseDocument parses fragment as the children of a <div> carrying className.
func ParseDocument(className, fragment string) (*Document, error) {
	root := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Div,
		Data:     "div",
	}
	if className != "" {
		root.Attr = []html.Attribute{{Key: "class", Val: className}}
	}

	nodes, err := html.ParseFragment(strings.NewReader(fragment), root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHTMLParse, err)
	}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return &Document{root: root, seen: make(map[string]int)}, nil
}

// Scan collects the elements whose data-type is accepted by isPortal and which
// carry an id, in document order. Scan does not look inside a placeholder: its
// content belongs to the portal mounted there, and ScanWithin finds what the
// portal left in place. Placeholder ids are made unique within the document: a
// repeated id gets a numeric suffix so each mount has its own target.
func (d *Document) Scan(isPortal func(typ string) bool) []*Placeholder {
	return d.scan(d.root, isPortal)
}

// ScanWithin collects the placeholders nested in p's current content, usually
// the output of the portal mounted into p.
func (d *Document) ScanWithin(p *Placeholder, isPortal func(typ string) bool) []*Placeholder {
	return d.scan(p.node, isPortal)
}

func (d *Document) scan(from *html.Node, isPortal func(typ string) bool) []*Placeholder {
	var found []*Placeholder

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n != from {
			id := attr(n, "id")
			typ := attr(n, "data-type")
			if id != "" && typ != "" && isPortal(typ) {
				ref := id
				if count := d.seen[id]; count > 0 {
					unique := id + "-" + strconv.Itoa(count)
					for d.seen[unique] > 0 {
						count++
						unique = id + "-" + strconv.Itoa(count)
					}
					d.seen[id] = count + 1
					setAttr(n, "id", unique)
					id = unique
				}
				d.seen[id]++
				found = append(found, &Placeholder{Props: propsFor(n, typ, id, ref), node: n})
				return
			}
			if id != "" {
				d.seen[id]++
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(from)
	return found
}

// WrapTables moves every table without a table ancestor into a table
// placeholder <div data-type="table" id="table-N">, N being the table's position
// among all tables in document order. The table's own classes are kept in
// data-classes. Nested tables stay where they are inside an overflow-auto div.
// Every table gets TableClasses.
func (d *Document) WrapTables() {
	var tables []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Table {
			tables = append(tables, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)

	for i, t := range tables {
		classes := attr(t, "class")
		setAttr(t, "class", strings.TrimSpace(strings.Join(strings.Fields(classes), " ")+" "+TableClasses))

		div := &html.Node{Type: html.ElementNode, DataAtom: atom.Div, Data: "div"}
		if hasAncestor(t, atom.Table) {
			div.Attr = []html.Attribute{{Key: "class", Val: "overflow-auto"}}
		} else {
			div.Attr = []html.Attribute{
				{Key: "data-type", Val: TypeTable},
				{Key: "data-classes", Val: classes},
				{Key: "id", Val: "table-" + strconv.Itoa(i)},
			}
		}
		t.Parent.InsertBefore(div, t)
		t.Parent.RemoveChild(t)
		div.AppendChild(t)
	}
}

// Mount renders portal into the placeholder element, replacing its children.
func (d *Document) Mount(p *Placeholder, portal Portal) error {
	var buf bytes.Buffer
	if err := portal.Render(&buf); err != nil {
		return err
	}
	nodes, err := html.ParseFragment(&buf, p.node)
	if err != nil {
		return fmt.Errorf("%w: portal %q: %v", ErrHTMLParse, p.Props.ID, err)
	}
	for c := p.node.FirstChild; c != nil; {
		next := c.NextSibling
		p.node.RemoveChild(c)
		c = next
	}
	for _, n := range nodes {
		p.node.AppendChild(n)
	}
	return nil
}

// Render serializes the container and its content.
func (d *Document) Render() (string, error) {
	var buf strings.Builder
	if err := html.Render(&buf, d.root); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func propsFor(n *html.Node, typ, id, ref string) Props {
	props := Props{Type: typ, ID: id, Ref: ref, Attrs: make(map[string]string)}
	var content strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&content, c)
	}
	props.Content = content.String()
	for _, a := range n.Attr {
		switch {
		case a.Key == "data-text":
			props.Text = a.Val
		case a.Key == "data-type":
		case strings.HasPrefix(a.Key, "data-"):
			props.Attrs[strings.TrimPrefix(a.Key, "data-")] = a.Val
		case a.Key == "style":
			props.Attrs["style"] = a.Val
		}
	}
	return props
}

func hasAncestor(n *html.Node, a atom.Atom) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.DataAtom == a {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
