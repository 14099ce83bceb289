// Package fixture builds small compiled AndroidManifest.xml documents,
// resource tables and template APKs for tests.
//
// The encoders here are written independently of the editors so tests can
// compare an editor's output with bytes produced another way.
package fixture

import (
	"encoding/binary"
	"unicode/utf16"
)

// AndroidNS is the android attribute namespace.
const AndroidNS = "http://schemas.android.com/apk/res/android"

var le = binary.LittleEndian

// frame wraps header and body in a chunk header.
func frame(typ uint16, header []byte, body ...[]byte) []byte {
	size := 8 + len(header)
	for _, b := range body {
		size += len(b)
	}
	out := le.AppendUint16(nil, typ)
	out = le.AppendUint16(out, uint16(8+len(header)))
	out = le.AppendUint32(out, uint32(size))
	out = append(out, header...)
	for _, b := range body {
		out = append(out, b...)
	}
	return out
}

// pool is an interning string pool builder.
type pool struct {
	utf8    bool
	strings []string
	index   map[string]uint32
}

func newPool(utf8 bool) *pool {
	return &pool{utf8: utf8, index: make(map[string]uint32)}
}

func (p *pool) add(s string) uint32 {
	if i, ok := p.index[s]; ok {
		return i
	}
	i := uint32(len(p.strings))
	p.strings = append(p.strings, s)
	p.index[s] = i
	return i
}

func (p *pool) bytes() []byte {
	var offsets, data []byte
	for _, s := range p.strings {
		offsets = le.AppendUint32(offsets, uint32(len(data)))
		if p.utf8 {
			n16 := len(utf16.Encode([]rune(s)))
			data = appendLen8(data, n16)
			data = appendLen8(data, len(s))
			data = append(data, s...)
			data = append(data, 0)
		} else {
			units := utf16.Encode([]rune(s))
			data = le.AppendUint16(data, uint16(len(units)))
			for _, u := range units {
				data = le.AppendUint16(data, u)
			}
			data = le.AppendUint16(data, 0)
		}
	}
	for len(data)%4 != 0 {
		data = append(data, 0)
	}

	var flags uint32
	if p.utf8 {
		flags = 1 << 8
	}
	header := le.AppendUint32(nil, uint32(len(p.strings)))
	header = le.AppendUint32(header, 0)
	header = le.AppendUint32(header, flags)
	header = le.AppendUint32(header, uint32(28+len(offsets)))
	header = le.AppendUint32(header, 0)
	return frame(0x0001, header, offsets, data)
}

func appendLen8(b []byte, n int) []byte {
	if n > 0x7F {
		return append(b, byte(0x80|n>>8), byte(n))
	}
	return append(b, byte(n))
}
