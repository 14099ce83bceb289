// Package chunk implements the chunked container format shared by compiled
// Android XML documents and resource tables.
//
// Every chunk starts with an 8-byte header: a type tag, the header size and
// the total chunk size, all little-endian. Chunks are decoded into a Chunk
// value holding the rest of the header and the payload; sizes are never
// stored and are recomputed from byte lengths whenever a chunk is written.
package chunk

import (
	"encoding/binary"
	"fmt"
	"math"
)

// HeaderSize is the size of the common chunk header.
const HeaderSize = 8

// Chunk type tags.
const (
	TypeNull              uint16 = 0x0000
	TypeStringPool        uint16 = 0x0001
	TypeTable             uint16 = 0x0002
	TypeXML               uint16 = 0x0003
	TypeXMLStartNamespace uint16 = 0x0100
	TypeXMLEndNamespace   uint16 = 0x0101
	TypeXMLStartElement   uint16 = 0x0102
	TypeXMLEndElement     uint16 = 0x0103
	TypeXMLCData          uint16 = 0x0104
	TypeXMLResourceMap    uint16 = 0x0180
	TypeTablePackage      uint16 = 0x0200
	TypeTableType         uint16 = 0x0201
	TypeTableTypeSpec     uint16 = 0x0202
	TypeTableLibrary      uint16 = 0x0203
)

// NoIndex marks an absent string pool reference.
const NoIndex uint32 = 0xFFFFFFFF

// Chunk is one decoded chunk. Header holds the header bytes that follow the
// common 8-byte header; Body holds the payload. Both may alias the buffer the
// chunk was read from.
type Chunk struct {
	Type   uint16
	Header []byte
	Body   []byte
}

// HeaderSize returns the chunk's full header size.
func (c *Chunk) HeaderSize() int {
	return HeaderSize + len(c.Header)
}

// Size returns the chunk's total size in bytes.
func (c *Chunk) Size() int {
	return c.HeaderSize() + len(c.Body)
}

// AppendTo appends the encoded chunk to dst.
func (c *Chunk) AppendTo(dst []byte) []byte {
	return Append(dst, c.Type, c.Header, c.Body)
}

// Read decodes the chunk that starts at off in b. The chunk must fit
// entirely inside b.
func Read(b []byte, off int) (*Chunk, error) {
	if off < 0 || len(b)-off < HeaderSize {
		return nil, Malformedf("truncated chunk header at offset %d", off)
	}
	typ := binary.LittleEndian.Uint16(b[off:])
	hsz := int(binary.LittleEndian.Uint16(b[off+2:]))
	size := uint64(binary.LittleEndian.Uint32(b[off+4:]))

	if hsz < HeaderSize || uint64(hsz) > size {
		return nil, Malformedf("chunk 0x%04x at offset %d: header size %d, total size %d", typ, off, hsz, size)
	}
	if size > uint64(len(b)-off) {
		return nil, Malformedf("chunk 0x%04x at offset %d: declares %d bytes, %d available", typ, off, size, len(b)-off)
	}

	end := off + int(size)
	return &Chunk{
		Type:   typ,
		Header: b[off+HeaderSize : off+hsz],
		Body:   b[off+hsz : end],
	}, nil
}

// ReadAll decodes the consecutive chunks in b. The chunks must tile b
// exactly.
func ReadAll(b []byte) ([]*Chunk, error) {
	var chunks []*Chunk
	for off := 0; off < len(b); {
		c, err := Read(b, off)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
		off += c.Size()
	}
	return chunks, nil
}

// Append writes a chunk with the given header bytes and payload parts to dst.
// Both size fields are computed from the byte lengths.
func Append(dst []byte, typ uint16, header []byte, payload ...[]byte) []byte {
	size := HeaderSize + len(header)
	for _, p := range payload {
		size += len(p)
	}
	dst = binary.LittleEndian.AppendUint16(dst, typ)
	dst = binary.LittleEndian.AppendUint16(dst, uint16(HeaderSize+len(header)))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(size))
	dst = append(dst, header...)
	for _, p := range payload {
		dst = append(dst, p...)
	}
	return dst
}

// CheckSize reports whether a serialized container of n bytes can be
// represented in a 32-bit size field.
func CheckSize(n int) error {
	if uint64(n) > math.MaxUint32 {
		return fmt.Errorf("%w: output of %d bytes exceeds the 32-bit size field", ErrValueTooLong, n)
	}
	return nil
}

// IsContainer reports whether chunks of type t hold child chunks.
func IsContainer(t uint16) bool {
	switch t {
	case TypeXML, TypeTable, TypeTablePackage:
		return true
	}
	return false
}
