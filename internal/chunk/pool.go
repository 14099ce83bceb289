package chunk

import (
	"encoding/binary"
	"fmt"
	"unicode/utf16"
)

// String pool flags.
const (
	FlagSorted uint32 = 1 << 0
	FlagUTF8   uint32 = 1 << 8
)

// poolHeaderSize is the standard string pool header size.
const poolHeaderSize = 28

const (
	maxUTF8Len  = 0x7FFF
	maxUTF16Len = 0x7FFFFFFF
)

// poolEntry is one string together with its encoded form.
type poolEntry struct {
	value string
	enc   []byte
}

// StringPool is an editable string pool. Entries keep their original
// encoding; only strings that were set or appended are re-encoded. A pool
// that was never edited is written back byte for byte.
type StringPool struct {
	flags        uint32
	entries      []poolEntry
	styleOffsets []uint32
	styleData    []byte
	headerExtra  []byte

	orig  *Chunk
	dirty bool
}

// ParseStringPool decodes a string pool chunk.
func ParseStringPool(c *Chunk) (*StringPool, error) {
	if c.Type != TypeStringPool {
		return nil, Malformedf("expected string pool, found chunk type 0x%04x", c.Type)
	}
	if c.HeaderSize() < poolHeaderSize {
		return nil, Malformedf("string pool header size %d is below %d", c.HeaderSize(), poolHeaderSize)
	}

	h := c.Header
	stringCount := binary.LittleEndian.Uint32(h[0:])
	styleCount := binary.LittleEndian.Uint32(h[4:])
	flags := binary.LittleEndian.Uint32(h[8:])
	stringsStart := binary.LittleEndian.Uint32(h[12:])
	stylesStart := binary.LittleEndian.Uint32(h[16:])

	body := c.Body
	hsz := uint64(c.HeaderSize())
	size := uint64(c.Size())

	offsetsLen := (uint64(stringCount) + uint64(styleCount)) * 4
	if offsetsLen > uint64(len(body)) {
		return nil, Malformedf("string pool offset table (%d strings, %d styles) overruns chunk", stringCount, styleCount)
	}

	p := &StringPool{
		flags:       flags,
		headerExtra: h[poolHeaderSize-HeaderSize:],
		orig:        c,
	}

	stringsEnd := size
	if styleCount > 0 {
		if uint64(stylesStart) < hsz+offsetsLen || uint64(stylesStart) > size {
			return nil, Malformedf("string pool styles start %d out of range", stylesStart)
		}
		stringsEnd = uint64(stylesStart)
	}

	if stringCount > 0 {
		if uint64(stringsStart) < hsz+offsetsLen || uint64(stringsStart) > stringsEnd {
			return nil, Malformedf("string pool strings start %d out of range", stringsStart)
		}
		data := body[uint64(stringsStart)-hsz : stringsEnd-hsz]
		utf8 := flags&FlagUTF8 != 0

		p.entries = make([]poolEntry, stringCount)
		for i := range p.entries {
			off := binary.LittleEndian.Uint32(body[i*4:])
			if uint64(off) >= uint64(len(data)) {
				return nil, Malformedf("string %d offset %d outside string data", i, off)
			}
			var (
				s   string
				n   int
				err error
			)
			if utf8 {
				s, n, err = decodeUTF8(data[off:])
			} else {
				s, n, err = decodeUTF16(data[off:])
			}
			if err != nil {
				return nil, fmt.Errorf("string %d: %w", i, err)
			}
			p.entries[i] = poolEntry{value: s, enc: data[off : int(off)+n]}
		}
	}

	if styleCount > 0 {
		p.styleOffsets = make([]uint32, styleCount)
		base := int(stringCount) * 4
		for i := range p.styleOffsets {
			p.styleOffsets[i] = binary.LittleEndian.Uint32(body[base+i*4:])
		}
		p.styleData = body[uint64(stylesStart)-hsz:]
		for i, off := range p.styleOffsets {
			if uint64(off) >= uint64(len(p.styleData)) {
				return nil, Malformedf("style %d offset %d outside style data", i, off)
			}
		}
	}

	return p, nil
}

// Len returns the number of strings.
func (p *StringPool) Len() int {
	return len(p.entries)
}

// StyleCount returns the number of styled strings. Styles apply to the
// first StyleCount strings.
func (p *StringPool) StyleCount() int {
	return len(p.styleOffsets)
}

// IsUTF8 reports whether strings are stored as UTF-8.
func (p *StringPool) IsUTF8() bool {
	return p.flags&FlagUTF8 != 0
}

// IsSorted reports whether the pool carries the sorted flag.
func (p *StringPool) IsSorted() bool {
	return p.flags&FlagSorted != 0
}

// Has reports whether i is a valid string index.
func (p *StringPool) Has(i uint32) bool {
	return uint64(i) < uint64(len(p.entries))
}

// Get returns the string at index i.
func (p *StringPool) Get(i uint32) (string, error) {
	if !p.Has(i) {
		return "", Malformedf("string index %d out of range (%d strings)", i, len(p.entries))
	}
	return p.entries[i].value, nil
}

// Strings returns a copy of all strings in index order.
func (p *StringPool) Strings() []string {
	out := make([]string, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.value
	}
	return out
}

// Index returns the first index holding s.
func (p *StringPool) Index(s string) (uint32, bool) {
	for i, e := range p.entries {
		if e.value == s {
			return uint32(i), true
		}
	}
	return 0, false
}

// Set replaces the string at index i in place. Setting clears the sorted
// flag.
func (p *StringPool) Set(i uint32, s string) error {
	if !p.Has(i) {
		return Malformedf("string index %d out of range (%d strings)", i, len(p.entries))
	}
	enc, err := p.encode(s)
	if err != nil {
		return err
	}
	p.entries[i] = poolEntry{value: s, enc: enc}
	p.flags &^= FlagSorted
	p.dirty = true
	return nil
}

// Append adds s as a new entry and returns its index. Existing indices are
// unaffected. Appending clears the sorted flag.
func (p *StringPool) Append(s string) (uint32, error) {
	if uint64(len(p.entries)) >= uint64(NoIndex) {
		return 0, fmt.Errorf("%w: string pool is full", ErrValueTooLong)
	}
	enc, err := p.encode(s)
	if err != nil {
		return 0, err
	}
	p.entries = append(p.entries, poolEntry{value: s, enc: enc})
	p.flags &^= FlagSorted
	p.dirty = true
	return uint32(len(p.entries) - 1), nil
}

func (p *StringPool) encode(s string) ([]byte, error) {
	if p.IsUTF8() {
		return encodeUTF8(s)
	}
	return encodeUTF16(s)
}

// AppendTo appends the encoded pool chunk to dst. An unedited pool is
// written exactly as it was read.
func (p *StringPool) AppendTo(dst []byte) []byte {
	if !p.dirty && p.orig != nil {
		return p.orig.AppendTo(dst)
	}

	stringCount := len(p.entries)
	styleCount := len(p.styleOffsets)
	hsz := poolHeaderSize + len(p.headerExtra)

	offsets := make([]byte, 0, 4*(stringCount+styleCount))
	var data []byte
	for _, e := range p.entries {
		offsets = binary.LittleEndian.AppendUint32(offsets, uint32(len(data)))
		data = append(data, e.enc...)
	}
	for _, off := range p.styleOffsets {
		offsets = binary.LittleEndian.AppendUint32(offsets, off)
	}
	for len(data)%4 != 0 {
		data = append(data, 0)
	}

	var stringsStart, stylesStart uint32
	if stringCount > 0 {
		stringsStart = uint32(hsz + len(offsets))
	}
	if styleCount > 0 {
		stylesStart = uint32(hsz + len(offsets) + len(data))
	}

	header := make([]byte, 0, hsz-HeaderSize)
	header = binary.LittleEndian.AppendUint32(header, uint32(stringCount))
	header = binary.LittleEndian.AppendUint32(header, uint32(styleCount))
	header = binary.LittleEndian.AppendUint32(header, p.flags)
	header = binary.LittleEndian.AppendUint32(header, stringsStart)
	header = binary.LittleEndian.AppendUint32(header, stylesStart)
	header = append(header, p.headerExtra...)

	return Append(dst, TypeStringPool, header, offsets, data, p.styleData)
}

// decodeUTF16 decodes a length-prefixed UTF-16 string and returns the number
// of bytes it occupies, including the terminator when present.
func decodeUTF16(b []byte) (string, int, error) {
	if len(b) < 2 {
		return "", 0, Malformedf("truncated UTF-16 length")
	}
	n := int(binary.LittleEndian.Uint16(b))
	pos := 2
	if n&0x8000 != 0 {
		if len(b) < 4 {
			return "", 0, Malformedf("truncated UTF-16 length")
		}
		n = (n&0x7FFF)<<16 | int(binary.LittleEndian.Uint16(b[2:]))
		pos = 4
	}
	if n > (len(b)-pos)/2 {
		return "", 0, Malformedf("UTF-16 string of %d units overruns string data", n)
	}
	units := make([]uint16, n)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b[pos+2*i:])
	}
	end := pos + 2*n
	if end+2 <= len(b) && b[end] == 0 && b[end+1] == 0 {
		end += 2
	}
	return string(utf16.Decode(units)), end, nil
}

// decodeUTF8 decodes a UTF-8 pool string: UTF-16 length, byte length, bytes.
func decodeUTF8(b []byte) (string, int, error) {
	_, pos, err := decodeLen8(b, 0)
	if err != nil {
		return "", 0, err
	}
	n, pos, err := decodeLen8(b, pos)
	if err != nil {
		return "", 0, err
	}
	if n > len(b)-pos {
		return "", 0, Malformedf("UTF-8 string of %d bytes overruns string data", n)
	}
	s := string(b[pos : pos+n])
	end := pos + n
	if end < len(b) && b[end] == 0 {
		end++
	}
	return s, end, nil
}

func decodeLen8(b []byte, pos int) (int, int, error) {
	if pos >= len(b) {
		return 0, 0, Malformedf("truncated UTF-8 length")
	}
	n := int(b[pos])
	pos++
	if n&0x80 != 0 {
		if pos >= len(b) {
			return 0, 0, Malformedf("truncated UTF-8 length")
		}
		n = (n&0x7F)<<8 | int(b[pos])
		pos++
	}
	return n, pos, nil
}

func encodeUTF16(s string) ([]byte, error) {
	units := utf16.Encode([]rune(s))
	n := len(units)
	if n > maxUTF16Len {
		return nil, fmt.Errorf("%w: %d UTF-16 units", ErrValueTooLong, n)
	}
	b := make([]byte, 0, 4+2*n+2)
	if n > 0x7FFF {
		b = binary.LittleEndian.AppendUint16(b, uint16(0x8000|n>>16))
		b = binary.LittleEndian.AppendUint16(b, uint16(n&0xFFFF))
	} else {
		b = binary.LittleEndian.AppendUint16(b, uint16(n))
	}
	for _, u := range units {
		b = binary.LittleEndian.AppendUint16(b, u)
	}
	return binary.LittleEndian.AppendUint16(b, 0), nil
}

func encodeUTF8(s string) ([]byte, error) {
	units := len(utf16.Encode([]rune(s)))
	if units > maxUTF8Len || len(s) > maxUTF8Len {
		return nil, fmt.Errorf("%w: %d bytes exceed the UTF-8 pool limit of %d", ErrValueTooLong, len(s), maxUTF8Len)
	}
	b := make([]byte, 0, 4+len(s)+1)
	b = appendLen8(b, units)
	b = appendLen8(b, len(s))
	b = append(b, s...)
	return append(b, 0), nil
}

func appendLen8(b []byte, n int) []byte {
	if n > 0x7F {
		return append(b, byte(0x80|n>>8), byte(n))
	}
	return append(b, byte(n))
}
