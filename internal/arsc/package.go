package arsc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unicode/utf16"

	"github.com/mobilechromeapps/apkpack/internal/chunk"
)

// Offsets into the package header, after the 8-byte chunk header.
const (
	pkgID           = 0
	pkgName         = 4
	pkgTypeStrings  = pkgName + 2*NameCapacity
	pkgKeyStrings   = pkgTypeStrings + 8
	pkgTypeIDOffset = pkgKeyStrings + 8
	pkgHeaderMin    = pkgTypeIDOffset
)

const (
	typeHeaderMin = 12 // id, flags, reserved, entryCount, entriesStart
	specHeaderMin = 8  // id, res0, typesCount, entryCount
	entryHeader   = 8  // size, flags, key
	mapEntryLen   = 12 // name, Res_value
	valueLen      = 8
)

const (
	typeFlagSparse   = 0x01
	typeFlagOffset16 = 0x02

	entryFlagComplex = 0x0001
	entryFlagCompact = 0x0008

	noEntry16 = 0xFFFF

	valueTypeString = 0x03
)

// Package is one package chunk of a resource table. Its body is carried
// through unchanged; only the name field is editable.
type Package struct {
	id     uint32
	name   [2 * NameCapacity]byte
	header []byte
	body   []byte

	typeStrings *chunk.StringPool
	keyStrings  *chunk.StringPool
	typeOffset  int
	entries     int
}

// Name decodes the package name up to the first NUL.
func (p *Package) Name() string {
	units := make([]uint16, 0, NameCapacity)
	for i := 0; i < NameCapacity; i++ {
		u := binary.LittleEndian.Uint16(p.name[2*i:])
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units))
}

func (p *Package) appendTo(dst []byte) []byte {
	h := bytes.Clone(p.header)
	copy(h[pkgName:], p.name[:])
	return chunk.Append(dst, chunk.TypeTablePackage, h, p.body)
}

func parsePackage(c *chunk.Chunk, global *chunk.StringPool) (*Package, error) {
	if len(c.Header) < pkgHeaderMin {
		return nil, chunk.Malformedf("package header is %d bytes, need at least %d", c.HeaderSize(), chunk.HeaderSize+pkgHeaderMin)
	}
	h := c.Header
	p := &Package{
		id:     binary.LittleEndian.Uint32(h[pkgID:]),
		header: h,
		body:   c.Body,
	}
	copy(p.name[:], h[pkgName:pkgTypeStrings])
	if len(h) >= pkgTypeIDOffset+4 {
		p.typeOffset = int(binary.LittleEndian.Uint32(h[pkgTypeIDOffset:]))
	}

	var err error
	if p.typeStrings, err = p.poolAt(c, binary.LittleEndian.Uint32(h[pkgTypeStrings:]), "type strings"); err != nil {
		return nil, err
	}
	if p.keyStrings, err = p.poolAt(c, binary.LittleEndian.Uint32(h[pkgKeyStrings:]), "key strings"); err != nil {
		return nil, err
	}

	children, err := chunk.ReadAll(c.Body)
	if err != nil {
		return nil, fmt.Errorf("package 0x%02x: %w", p.id, err)
	}
	for _, child := range children {
		switch child.Type {
		case chunk.TypeTableTypeSpec:
			err = p.checkSpec(child)
		case chunk.TypeTableType:
			err = p.checkType(child, global)
		}
		if err != nil {
			return nil, fmt.Errorf("package 0x%02x: %w", p.id, err)
		}
	}
	return p, nil
}

// poolAt parses the string pool found at a package-relative offset.
func (p *Package) poolAt(c *chunk.Chunk, off uint32, what string) (*chunk.StringPool, error) {
	hsz := uint32(c.HeaderSize())
	if off < hsz || uint64(off) >= uint64(c.Size()) {
		return nil, chunk.Malformedf("package 0x%02x: %s offset %d outside the package", p.id, what, off)
	}
	pc, err := chunk.Read(c.Body, int(off-hsz))
	if err != nil {
		return nil, fmt.Errorf("package 0x%02x %s: %w", p.id, what, err)
	}
	if pc.Type != chunk.TypeStringPool {
		return nil, chunk.Malformedf("package 0x%02x: %s offset %d holds chunk type 0x%04x", p.id, what, off, pc.Type)
	}
	sp, err := chunk.ParseStringPool(pc)
	if err != nil {
		return nil, fmt.Errorf("package 0x%02x %s: %w", p.id, what, err)
	}
	return sp, nil
}

func (p *Package) checkTypeID(id uint8) error {
	idx := int(id) - 1 - p.typeOffset
	if id == 0 || idx < 0 || idx >= p.typeStrings.Len() {
		return chunk.Malformedf("type id %d has no type name (%d types)", id, p.typeStrings.Len())
	}
	return nil
}

func (p *Package) checkSpec(c *chunk.Chunk) error {
	if len(c.Header) < specHeaderMin {
		return chunk.Malformedf("type spec header is %d bytes", c.HeaderSize())
	}
	if err := p.checkTypeID(c.Header[0]); err != nil {
		return err
	}
	count := binary.LittleEndian.Uint32(c.Header[4:])
	if uint64(count)*4 > uint64(len(c.Body)) {
		return chunk.Malformedf("type spec %d declares %d entries in %d bytes", c.Header[0], count, len(c.Body))
	}
	return nil
}

func (p *Package) checkType(c *chunk.Chunk, global *chunk.StringPool) error {
	if len(c.Header) < typeHeaderMin {
		return chunk.Malformedf("type header is %d bytes", c.HeaderSize())
	}
	id := c.Header[0]
	if err := p.checkTypeID(id); err != nil {
		return err
	}
	flags := c.Header[1]
	count := binary.LittleEndian.Uint32(c.Header[4:])
	start := binary.LittleEndian.Uint32(c.Header[8:])

	hsz := uint32(c.HeaderSize())
	if start < hsz || uint64(start) > uint64(c.Size()) {
		return chunk.Malformedf("type %d entries start %d outside the chunk", id, start)
	}
	index := c.Body[:start-hsz]
	data := c.Body[start-hsz:]

	offsets, err := entryOffsets(index, flags, count)
	if err != nil {
		return fmt.Errorf("type %d: %w", id, err)
	}
	for i, off := range offsets {
		if err := p.checkEntry(data, off, global); err != nil {
			return fmt.Errorf("type %d entry %d: %w", id, i, err)
		}
	}
	p.entries += len(offsets)
	return nil
}

// entryOffsets decodes the offset index of a type chunk, skipping absent
// entries.
func entryOffsets(index []byte, flags uint8, count uint32) ([]uint32, error) {
	width := uint64(4)
	if flags&(typeFlagSparse|typeFlagOffset16) == typeFlagOffset16 {
		width = 2
	}
	if uint64(count)*width > uint64(len(index)) {
		return nil, chunk.Malformedf("%d entry offsets do not fit in %d bytes", count, len(index))
	}

	var offsets []uint32
	for i := uint32(0); i < count; i++ {
		switch {
		case flags&typeFlagSparse != 0:
			offsets = append(offsets, uint32(binary.LittleEndian.Uint16(index[4*i+2:]))*4)
		case width == 2:
			v := binary.LittleEndian.Uint16(index[2*i:])
			if v != noEntry16 {
				offsets = append(offsets, uint32(v)*4)
			}
		default:
			v := binary.LittleEndian.Uint32(index[4*i:])
			if v != chunk.NoIndex {
				offsets = append(offsets, v)
			}
		}
	}
	return offsets, nil
}

func (p *Package) checkEntry(data []byte, off uint32, global *chunk.StringPool) error {
	if uint64(off)+entryHeader > uint64(len(data)) {
		return chunk.Malformedf("entry offset %d past the %d data bytes", off, len(data))
	}
	e := data[off:]
	size := uint32(binary.LittleEndian.Uint16(e))
	flags := binary.LittleEndian.Uint16(e[2:])

	if flags&entryFlagCompact != 0 {
		// key in the size field, value type in the high flag byte
		if int(size) >= p.keyStrings.Len() {
			return chunk.Malformedf("key index %d out of range (%d keys)", size, p.keyStrings.Len())
		}
		return checkValue(uint8(flags>>8), binary.LittleEndian.Uint32(e[4:]), global)
	}

	key := binary.LittleEndian.Uint32(e[4:])
	if !p.keyStrings.Has(key) {
		return chunk.Malformedf("key index %d out of range (%d keys)", key, p.keyStrings.Len())
	}
	if size < entryHeader || uint64(off)+uint64(size) > uint64(len(data)) {
		return chunk.Malformedf("entry size %d at offset %d", size, off)
	}

	if flags&entryFlagComplex == 0 {
		if uint64(off)+uint64(size)+valueLen > uint64(len(data)) {
			return chunk.Malformedf("value at offset %d past the data", off+size)
		}
		v := data[off+size:]
		return checkValue(v[3], binary.LittleEndian.Uint32(v[4:]), global)
	}

	if size < entryHeader+8 {
		return chunk.Malformedf("map entry size %d", size)
	}
	n := binary.LittleEndian.Uint32(e[12:])
	end := uint64(off) + uint64(size) + uint64(n)*mapEntryLen
	if end > uint64(len(data)) {
		return chunk.Malformedf("%d map values at offset %d past the data", n, off)
	}
	for i := uint32(0); i < n; i++ {
		v := data[off+size+i*mapEntryLen+4:]
		if err := checkValue(v[3], binary.LittleEndian.Uint32(v[4:]), global); err != nil {
			return err
		}
	}
	return nil
}

func checkValue(typ uint8, data uint32, global *chunk.StringPool) error {
	if typ == valueTypeString && !global.Has(data) {
		return chunk.Malformedf("string value %d out of range (%d strings)", data, global.Len())
	}
	return nil
}
