// Package axml reads and edits compiled Android XML documents such as the
// AndroidManifest.xml stored in an APK.
//
// A Document keeps every chunk of the input. Edits change string pool
// entries or typed attribute values; everything else is written back as it
// was read, and all sizes and offsets are recomputed on Serialize.
package axml

import (
	"github.com/mobilechromeapps/apkpack/internal/chunk"
)

// Document is a parsed binary XML document.
type Document struct {
	chunk.Lifecycle

	header []byte
	pool   *chunk.StringPool
	resMap []uint32
	nodes  []node
	roots  []*Element

	out []byte
}

// Element is one XML element.
type Element struct {
	meta       meta
	ns         uint32
	name       uint32
	attrStart  uint16
	attrSize   uint16
	idIndex    uint16
	classIndex uint16
	styleIndex uint16
	gap        []byte
	attrs      []*attribute
	tail       []byte

	doc      *Document
	parent   *Element
	children []*Element
	end      *endNode
}

type attribute struct {
	ns    uint32
	name  uint32
	raw   uint32
	value Value
	extra []byte
}

// Parse decodes a binary XML document. The document keeps references into
// b, which must not be modified afterwards.
func Parse(b []byte) (*Document, error) {
	d := &Document{}
	d.BeginParse()

	root, err := chunk.Read(b, 0)
	if err != nil {
		return nil, err
	}
	if root.Type != chunk.TypeXML || root.HeaderSize() != chunk.HeaderSize {
		return nil, chunk.Malformedf("not a binary XML document (chunk type 0x%04x, header size %d)", root.Type, root.HeaderSize())
	}
	if root.Size() != len(b) {
		return nil, chunk.Malformedf("document declares %d bytes, buffer holds %d", root.Size(), len(b))
	}
	d.header = root.Header

	children, err := chunk.ReadAll(root.Body)
	if err != nil {
		return nil, err
	}
	if len(children) == 0 || children[0].Type != chunk.TypeStringPool {
		return nil, chunk.Malformedf("document does not start with a string pool")
	}
	if d.pool, err = chunk.ParseStringPool(children[0]); err != nil {
		return nil, err
	}

	var stack []*Element
	for _, c := range children[1:] {
		switch c.Type {
		case chunk.TypeXMLResourceMap:
			if d.resMap, err = readResourceMap(c); err != nil {
				return nil, err
			}
			d.nodes = append(d.nodes, &rawNode{c: c})

		case chunk.TypeXMLStartNamespace, chunk.TypeXMLEndNamespace:
			n, err := readNamespace(c)
			if err != nil {
				return nil, err
			}
			if err := d.checkIndex(n.prefix, n.uri); err != nil {
				return nil, err
			}
			d.nodes = append(d.nodes, n)

		case chunk.TypeXMLStartElement:
			e, err := readStart(c)
			if err != nil {
				return nil, err
			}
			if err := d.checkElement(e); err != nil {
				return nil, err
			}
			e.doc = d
			if len(stack) > 0 {
				e.parent = stack[len(stack)-1]
				e.parent.children = append(e.parent.children, e)
			} else {
				d.roots = append(d.roots, e)
			}
			stack = append(stack, e)
			d.nodes = append(d.nodes, &startNode{el: e})

		case chunk.TypeXMLEndElement:
			n, err := readEnd(c)
			if err != nil {
				return nil, err
			}
			if len(stack) == 0 {
				return nil, chunk.Malformedf("end element at line %d has no matching start", n.meta.line)
			}
			open := stack[len(stack)-1]
			if n.ns != open.ns || n.name != open.name {
				return nil, chunk.Malformedf("end element at line %d does not match element opened at line %d", n.meta.line, open.meta.line)
			}
			stack = stack[:len(stack)-1]
			open.end = n
			d.nodes = append(d.nodes, n)

		case chunk.TypeXMLCData:
			n, err := readCData(c)
			if err != nil {
				return nil, err
			}
			if err := d.checkIndex(n.data); err != nil {
				return nil, err
			}
			d.nodes = append(d.nodes, n)

		default:
			d.nodes = append(d.nodes, &rawNode{c: c})
		}
	}
	if len(stack) > 0 {
		return nil, chunk.Malformedf("element opened at line %d is never closed", stack[len(stack)-1].meta.line)
	}

	d.EndParse()
	return d, nil
}

// checkIndex verifies that every given string reference is absent or in
// range.
func (d *Document) checkIndex(refs ...uint32) error {
	for _, r := range refs {
		if r != chunk.NoIndex && !d.pool.Has(r) {
			return chunk.Malformedf("string index %d out of range (%d strings)", r, d.pool.Len())
		}
	}
	return nil
}

func (d *Document) checkElement(e *Element) error {
	if e.name == chunk.NoIndex {
		return chunk.Malformedf("element at line %d has no name", e.meta.line)
	}
	if err := d.checkIndex(e.ns, e.name); err != nil {
		return err
	}
	for _, a := range e.attrs {
		if err := d.checkIndex(a.ns, a.name, a.raw); err != nil {
			return err
		}
		if a.value.Type == TypeString {
			if err := d.checkIndex(a.value.Data); err != nil {
				return err
			}
		}
	}
	return nil
}

// Serialize encodes the document. Sizes are computed bottom-up from the
// encoded children. After Serialize the document can no longer be edited;
// further calls return the same bytes.
func (d *Document) Serialize() ([]byte, error) {
	if d.State() == chunk.Serialized {
		return d.out, nil
	}

	body := d.pool.AppendTo(nil)
	for _, n := range d.nodes {
		body = n.appendTo(body)
	}
	out := chunk.Append(make([]byte, 0, chunk.HeaderSize+len(d.header)+len(body)), chunk.TypeXML, d.header, body)
	if err := chunk.CheckSize(len(out)); err != nil {
		return nil, err
	}

	d.out = out
	d.Finish()
	return out, nil
}

// Root returns the document element, or nil for a document without
// elements.
func (d *Document) Root() *Element {
	if len(d.roots) == 0 {
		return nil
	}
	return d.roots[0]
}

// Elements returns every element with the given local name, in document
// order.
func (d *Document) Elements(name string) []*Element {
	var out []*Element
	for _, n := range d.nodes {
		if s, ok := n.(*startNode); ok && s.el.ns == chunk.NoIndex && s.el.Name() == name {
			out = append(out, s.el)
		}
	}
	return out
}

// Strings returns the document's string pool in index order.
func (d *Document) Strings() []string {
	return d.pool.Strings()
}

// str resolves an index that was range-checked during parsing.
func (d *Document) str(i uint32) string {
	if i == chunk.NoIndex {
		return ""
	}
	s, _ := d.pool.Get(i)
	return s
}

// Name returns the element's local name.
func (e *Element) Name() string {
	return e.doc.str(e.name)
}

// Namespace returns the element's namespace URI, or "".
func (e *Element) Namespace() string {
	return e.doc.str(e.ns)
}

// Line returns the source line recorded for the element.
func (e *Element) Line() int {
	return int(e.meta.line)
}

// Parent returns the enclosing element, or nil for a root.
func (e *Element) Parent() *Element {
	return e.parent
}

// Children returns the child elements in document order.
func (e *Element) Children() []*Element {
	return e.children
}

// Child returns the first child element with the given name.
func (e *Element) Child(name string) *Element {
	for _, c := range e.children {
		if c.ns == chunk.NoIndex && c.Name() == name {
			return c
		}
	}
	return nil
}

// Find returns the first descendant with the given name in document order.
func (e *Element) Find(name string) *Element {
	for _, c := range e.children {
		if c.ns == chunk.NoIndex && c.Name() == name {
			return c
		}
		if found := c.Find(name); found != nil {
			return found
		}
	}
	return nil
}
