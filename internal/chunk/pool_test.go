package chunk

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"
)

// rawPool lays out a string pool chunk from already encoded entries.
func rawPool(flags uint32, entries ...[]byte) []byte {
	var offsets, data []byte
	for _, e := range entries {
		offsets = binary.LittleEndian.AppendUint32(offsets, uint32(len(data)))
		data = append(data, e...)
	}
	for len(data)%4 != 0 {
		data = append(data, 0)
	}
	var header []byte
	header = binary.LittleEndian.AppendUint32(header, uint32(len(entries)))
	header = binary.LittleEndian.AppendUint32(header, 0)
	header = binary.LittleEndian.AppendUint32(header, flags)
	header = binary.LittleEndian.AppendUint32(header, uint32(poolHeaderSize+len(offsets)))
	header = binary.LittleEndian.AppendUint32(header, 0)
	return Append(nil, TypeStringPool, header, offsets, data)
}

func utf16Entry(s string) []byte {
	b := binary.LittleEndian.AppendUint16(nil, uint16(len(s)))
	for _, r := range s {
		b = binary.LittleEndian.AppendUint16(b, uint16(r))
	}
	return append(b, 0, 0)
}

func utf8Entry(s string) []byte {
	b := []byte{byte(len(s)), byte(len(s))}
	b = append(b, s...)
	return append(b, 0)
}

func parsePool(t *testing.T, b []byte) *StringPool {
	t.Helper()
	c, err := Read(b, 0)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	p, err := ParseStringPool(c)
	if err != nil {
		t.Fatalf("ParseStringPool() error = %v", err)
	}
	return p
}

func TestStringPoolDecode(t *testing.T) {
	tests := []struct {
		name  string
		flags uint32
		enc   func(string) []byte
	}{
		{"utf16", 0, utf16Entry},
		{"utf8", FlagUTF8, utf8Entry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			words := []string{"manifest", "package", "com.template.app", ""}
			var entries [][]byte
			for _, w := range words {
				entries = append(entries, tt.enc(w))
			}
			raw := rawPool(tt.flags|FlagSorted, entries...)

			p := parsePool(t, raw)
			if p.Len() != len(words) {
				t.Fatalf("Len() = %d, want %d", p.Len(), len(words))
			}
			for i, w := range words {
				got, err := p.Get(uint32(i))
				if err != nil || got != w {
					t.Errorf("Get(%d) = %q, %v; want %q", i, got, err, w)
				}
			}
			if p.IsUTF8() != (tt.flags&FlagUTF8 != 0) {
				t.Errorf("IsUTF8() = %v", p.IsUTF8())
			}
			if out := p.AppendTo(nil); !bytes.Equal(out, raw) {
				t.Errorf("unedited pool changed on write:\n got %x\nwant %x", out, raw)
			}
		})
	}
}

func TestStringPoolSetAndAppend(t *testing.T) {
	for _, flags := range []uint32{0, FlagUTF8} {
		enc := utf16Entry
		if flags&FlagUTF8 != 0 {
			enc = utf8Entry
		}
		raw := rawPool(flags|FlagSorted, enc("a"), enc("Template"), enc("z"))
		p := parsePool(t, raw)

		if err := p.Set(1, "MyApp with a longer name"); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if p.IsSorted() {
			t.Error("Set() should clear the sorted flag")
		}
		if reparsed := parsePool(t, p.AppendTo(nil)); reparsed.IsSorted() {
			t.Error("serialized pool still claims to be sorted after Set()")
		}
		idx, err := p.Append("appended")
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		if idx != 3 {
			t.Errorf("Append() index = %d, want 3", idx)
		}
		if p.IsSorted() {
			t.Error("sorted flag back after Append()")
		}

		out := p.AppendTo(nil)
		if len(out)%4 != 0 {
			t.Errorf("pool size %d is not 4-byte aligned", len(out))
		}
		if err := Validate(out); err != nil {
			t.Fatalf("Validate() error = %v", err)
		}

		again := parsePool(t, out)
		want := []string{"a", "MyApp with a longer name", "z", "appended"}
		if got := again.Strings(); strings.Join(got, "|") != strings.Join(want, "|") {
			t.Errorf("Strings() = %q, want %q", got, want)
		}
	}
}

func TestStringPoolLimits(t *testing.T) {
	p := parsePool(t, rawPool(FlagUTF8, utf8Entry("x")))

	if err := p.Set(0, strings.Repeat("a", maxUTF8Len)); err != nil {
		t.Errorf("Set() at the UTF-8 limit error = %v", err)
	}
	err := p.Set(0, strings.Repeat("a", maxUTF8Len+1))
	if !errors.Is(err, ErrValueTooLong) {
		t.Errorf("Set() past the UTF-8 limit error = %v, want ErrValueTooLong", err)
	}
	if _, err := p.Get(5); !errors.Is(err, ErrMalformed) {
		t.Errorf("Get() out of range error = %v, want ErrMalformed", err)
	}
}

func TestStringPoolLongUTF16(t *testing.T) {
	p := parsePool(t, rawPool(0, utf16Entry("x")))
	long := strings.Repeat("b", 0x8001)
	if err := p.Set(0, long); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	again := parsePool(t, p.AppendTo(nil))
	if got, _ := again.Get(0); got != long {
		t.Errorf("long string did not survive a rewrite (len %d)", len(got))
	}
}

func TestStringPoolMalformed(t *testing.T) {
	good := rawPool(0, utf16Entry("abc"))

	tests := []struct {
		name   string
		mutate func(b []byte)
	}{
		{"string count overruns offsets", func(b []byte) {
			binary.LittleEndian.PutUint32(b[8:], 1000)
		}},
		{"strings start past chunk", func(b []byte) {
			binary.LittleEndian.PutUint32(b[20:], uint32(len(b)+4))
		}},
		{"string offset outside data", func(b []byte) {
			binary.LittleEndian.PutUint32(b[28:], 64)
		}},
		{"string length overruns data", func(b []byte) {
			binary.LittleEndian.PutUint16(b[32:], 200)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := bytes.Clone(good)
			tt.mutate(b)
			c, err := Read(b, 0)
			if err == nil {
				_, err = ParseStringPool(c)
			}
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("error = %v, want ErrMalformed", err)
			}
		})
	}
}
