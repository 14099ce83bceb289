package chunk

import (
	"encoding/binary"
	"errors"
	"testing"
)

func TestReadErrors(t *testing.T) {
	leaf := Append(nil, TypeXMLEndElement, []byte{1, 2, 3, 4, 5, 6, 7, 8}, make([]byte, 8))

	tests := []struct {
		name string
		b    []byte
	}{
		{"empty", nil},
		{"short header", leaf[:5]},
		{"truncated body", leaf[:len(leaf)-1]},
		{"header smaller than base", func() []byte {
			b := append([]byte(nil), leaf...)
			binary.LittleEndian.PutUint16(b[2:], 4)
			return b
		}()},
		{"header larger than chunk", func() []byte {
			b := append([]byte(nil), leaf...)
			binary.LittleEndian.PutUint16(b[2:], 200)
			return b
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(tt.b, 0)
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("Read() error = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestReadAllTiles(t *testing.T) {
	a := Append(nil, TypeXMLEndNamespace, make([]byte, 8), make([]byte, 8))
	b := Append(nil, TypeXMLCData, make([]byte, 8), make([]byte, 12))
	stream := append(append([]byte(nil), a...), b...)

	chunks, err := ReadAll(stream)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(chunks) != 2 || chunks[0].Type != TypeXMLEndNamespace || chunks[1].Type != TypeXMLCData {
		t.Fatalf("ReadAll() = %+v", chunks)
	}
	if chunks[1].Size() != len(b) || chunks[1].HeaderSize() != 16 {
		t.Errorf("chunk sizes = %d/%d, want %d/16", chunks[1].Size(), chunks[1].HeaderSize(), len(b))
	}

	if _, err := ReadAll(append(stream, 0, 0, 0)); !errors.Is(err, ErrMalformed) {
		t.Errorf("ReadAll() with trailing bytes error = %v, want ErrMalformed", err)
	}
}

func TestValidate(t *testing.T) {
	leaf := Append(nil, TypeXMLEndElement, make([]byte, 8), make([]byte, 8))
	pkgBody := append(append([]byte(nil), leaf...), leaf...)
	pkg := Append(nil, TypeTablePackage, make([]byte, 280), pkgBody)
	table := Append(nil, TypeTable, make([]byte, 4), pkg)

	if err := Validate(table); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	// Grow the innermost leaf so it overruns the package.
	bad := append([]byte(nil), table...)
	leafOff := 12 + 288 + len(leaf)
	binary.LittleEndian.PutUint32(bad[leafOff+4:], uint32(len(leaf)+4))
	if err := Validate(bad); !errors.Is(err, ErrMalformed) {
		t.Errorf("Validate() error = %v, want ErrMalformed", err)
	}
}

func TestLifecycle(t *testing.T) {
	var l Lifecycle
	if l.State() != Unparsed {
		t.Fatalf("zero state = %v", l.State())
	}
	l.BeginParse()
	l.EndParse()
	if err := l.Editable(); err != nil {
		t.Fatalf("Editable() after parse error = %v", err)
	}
	l.Mutate()
	if l.State() != Mutated {
		t.Errorf("State() = %v, want mutated", l.State())
	}
	l.Finish()
	if err := l.Editable(); !errors.Is(err, ErrFinalized) {
		t.Errorf("Editable() after Finish error = %v, want ErrFinalized", err)
	}
	if l.State().String() != "serialized" {
		t.Errorf("String() = %q", l.State().String())
	}
}
