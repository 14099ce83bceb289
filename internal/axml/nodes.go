package axml

import (
	"encoding/binary"

	"github.com/mobilechromeapps/apkpack/internal/chunk"
)

const (
	nodeHeaderLen  = 8  // lineNumber, comment
	elementExtLen  = 20 // ns, name, attribute layout, special indices
	attributeLen   = 20 // ns, name, rawValue, typed value
	endElementLen  = 8  // ns, name
	namespaceLen   = 8  // prefix, uri
	cdataLen       = 12 // data, typed value
	typedValueSize = 8
)

// node is one chunk of the document body, kept in document order.
type node interface {
	appendTo(dst []byte) []byte
}

// meta is the header shared by tree nodes.
type meta struct {
	line    uint32
	comment uint32
	extra   []byte
}

func readMeta(c *chunk.Chunk) (meta, error) {
	if len(c.Header) < nodeHeaderLen {
		return meta{}, chunk.Malformedf("node chunk 0x%04x has header size %d", c.Type, c.HeaderSize())
	}
	return meta{
		line:    binary.LittleEndian.Uint32(c.Header[0:]),
		comment: binary.LittleEndian.Uint32(c.Header[4:]),
		extra:   c.Header[nodeHeaderLen:],
	}, nil
}

func (m meta) header() []byte {
	h := make([]byte, 0, nodeHeaderLen+len(m.extra))
	h = binary.LittleEndian.AppendUint32(h, m.line)
	h = binary.LittleEndian.AppendUint32(h, m.comment)
	return append(h, m.extra...)
}

// Value is a typed attribute value.
type Value struct {
	Size uint16
	Res0 uint8
	Type uint8
	Data uint32
}

func readValue(b []byte) Value {
	return Value{
		Size: binary.LittleEndian.Uint16(b[0:]),
		Res0: b[2],
		Type: b[3],
		Data: binary.LittleEndian.Uint32(b[4:]),
	}
}

func (v Value) appendTo(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint16(dst, v.Size)
	dst = append(dst, v.Res0, v.Type)
	return binary.LittleEndian.AppendUint32(dst, v.Data)
}

// rawNode is a chunk the editor does not interpret. It is written back
// unchanged.
type rawNode struct {
	c *chunk.Chunk
}

func (n *rawNode) appendTo(dst []byte) []byte {
	return n.c.AppendTo(dst)
}

// namespaceNode is a namespace start or end.
type namespaceNode struct {
	typ    uint16
	meta   meta
	prefix uint32
	uri    uint32
	tail   []byte
}

func readNamespace(c *chunk.Chunk) (*namespaceNode, error) {
	m, err := readMeta(c)
	if err != nil {
		return nil, err
	}
	if len(c.Body) < namespaceLen {
		return nil, chunk.Malformedf("namespace chunk body is %d bytes", len(c.Body))
	}
	return &namespaceNode{
		typ:    c.Type,
		meta:   m,
		prefix: binary.LittleEndian.Uint32(c.Body[0:]),
		uri:    binary.LittleEndian.Uint32(c.Body[4:]),
		tail:   c.Body[namespaceLen:],
	}, nil
}

func (n *namespaceNode) appendTo(dst []byte) []byte {
	body := binary.LittleEndian.AppendUint32(nil, n.prefix)
	body = binary.LittleEndian.AppendUint32(body, n.uri)
	return chunk.Append(dst, n.typ, n.meta.header(), body, n.tail)
}

// cdataNode is character data between elements.
type cdataNode struct {
	meta  meta
	data  uint32
	value Value
	tail  []byte
}

func readCData(c *chunk.Chunk) (*cdataNode, error) {
	m, err := readMeta(c)
	if err != nil {
		return nil, err
	}
	if len(c.Body) < cdataLen {
		return nil, chunk.Malformedf("cdata chunk body is %d bytes", len(c.Body))
	}
	return &cdataNode{
		meta:  m,
		data:  binary.LittleEndian.Uint32(c.Body[0:]),
		value: readValue(c.Body[4:]),
		tail:  c.Body[cdataLen:],
	}, nil
}

func (n *cdataNode) appendTo(dst []byte) []byte {
	body := binary.LittleEndian.AppendUint32(nil, n.data)
	body = n.value.appendTo(body)
	return chunk.Append(dst, chunk.TypeXMLCData, n.meta.header(), body, n.tail)
}

// startNode opens an element.
type startNode struct {
	el *Element
}

func (n *startNode) appendTo(dst []byte) []byte {
	e := n.el
	body := make([]byte, 0, elementExtLen+len(e.gap)+len(e.attrs)*int(e.attrSize)+len(e.tail))
	body = binary.LittleEndian.AppendUint32(body, e.ns)
	body = binary.LittleEndian.AppendUint32(body, e.name)
	body = binary.LittleEndian.AppendUint16(body, e.attrStart)
	body = binary.LittleEndian.AppendUint16(body, e.attrSize)
	body = binary.LittleEndian.AppendUint16(body, uint16(len(e.attrs)))
	body = binary.LittleEndian.AppendUint16(body, e.idIndex)
	body = binary.LittleEndian.AppendUint16(body, e.classIndex)
	body = binary.LittleEndian.AppendUint16(body, e.styleIndex)
	body = append(body, e.gap...)
	for _, a := range e.attrs {
		body = binary.LittleEndian.AppendUint32(body, a.ns)
		body = binary.LittleEndian.AppendUint32(body, a.name)
		body = binary.LittleEndian.AppendUint32(body, a.raw)
		body = a.value.appendTo(body)
		body = append(body, a.extra...)
	}
	body = append(body, e.tail...)
	return chunk.Append(dst, chunk.TypeXMLStartElement, e.meta.header(), body)
}

func readStart(c *chunk.Chunk) (*Element, error) {
	m, err := readMeta(c)
	if err != nil {
		return nil, err
	}
	b := c.Body
	if len(b) < elementExtLen {
		return nil, chunk.Malformedf("start element body is %d bytes", len(b))
	}
	e := &Element{
		meta:       m,
		ns:         binary.LittleEndian.Uint32(b[0:]),
		name:       binary.LittleEndian.Uint32(b[4:]),
		attrStart:  binary.LittleEndian.Uint16(b[8:]),
		attrSize:   binary.LittleEndian.Uint16(b[10:]),
		idIndex:    binary.LittleEndian.Uint16(b[14:]),
		classIndex: binary.LittleEndian.Uint16(b[16:]),
		styleIndex: binary.LittleEndian.Uint16(b[18:]),
	}
	count := int(binary.LittleEndian.Uint16(b[12:]))

	if e.attrStart < elementExtLen || int(e.attrStart) > len(b) {
		return nil, chunk.Malformedf("attribute start %d out of range", e.attrStart)
	}
	if e.attrSize < attributeLen {
		return nil, chunk.Malformedf("attribute size %d is below %d", e.attrSize, attributeLen)
	}
	end := int(e.attrStart) + count*int(e.attrSize)
	if end > len(b) {
		return nil, chunk.Malformedf("%d attributes overrun the element chunk", count)
	}

	e.gap = b[elementExtLen:e.attrStart]
	e.tail = b[end:]
	e.attrs = make([]*attribute, count)
	for i := range e.attrs {
		a := b[int(e.attrStart)+i*int(e.attrSize):]
		e.attrs[i] = &attribute{
			ns:    binary.LittleEndian.Uint32(a[0:]),
			name:  binary.LittleEndian.Uint32(a[4:]),
			raw:   binary.LittleEndian.Uint32(a[8:]),
			value: readValue(a[12:]),
			extra: a[attributeLen:e.attrSize],
		}
	}
	return e, nil
}

// endNode closes an element.
type endNode struct {
	meta meta
	ns   uint32
	name uint32
	tail []byte
}

func readEnd(c *chunk.Chunk) (*endNode, error) {
	m, err := readMeta(c)
	if err != nil {
		return nil, err
	}
	if len(c.Body) < endElementLen {
		return nil, chunk.Malformedf("end element body is %d bytes", len(c.Body))
	}
	return &endNode{
		meta: m,
		ns:   binary.LittleEndian.Uint32(c.Body[0:]),
		name: binary.LittleEndian.Uint32(c.Body[4:]),
		tail: c.Body[endElementLen:],
	}, nil
}

func (n *endNode) appendTo(dst []byte) []byte {
	body := binary.LittleEndian.AppendUint32(nil, n.ns)
	body = binary.LittleEndian.AppendUint32(body, n.name)
	return chunk.Append(dst, chunk.TypeXMLEndElement, n.meta.header(), body, n.tail)
}

// readResourceMap decodes the attribute resource id table.
func readResourceMap(c *chunk.Chunk) ([]uint32, error) {
	if len(c.Body)%4 != 0 {
		return nil, chunk.Malformedf("resource map body of %d bytes is not a multiple of 4", len(c.Body))
	}
	ids := make([]uint32, len(c.Body)/4)
	for i := range ids {
		ids[i] = binary.LittleEndian.Uint32(c.Body[4*i:])
	}
	return ids, nil
}
