package fixture

import "unicode/utf16"

// Table describes a compiled resources.arsc with a single package holding
// one "string" type.
type Table struct {
	PackageID uint32
	Package   string

	// Keys are the entry names; Values the matching strings in the global
	// pool.
	Keys   []string
	Values []string

	UTF8 bool
}

// TemplateTable returns the resource table of the stock app template.
func TemplateTable() Table {
	return Table{
		PackageID: 0x7f,
		Package:   "com.template.app",
		Keys:      []string{"app_name", "launcher_name"},
		Values:    []string{"Template", "@string/app_name"},
	}
}

// Bytes encodes the table.
func (t Table) Bytes() []byte {
	global := newPool(t.UTF8)
	var valueIdx []uint32
	for _, v := range t.Values {
		valueIdx = append(valueIdx, global.add(v))
	}

	types := newPool(t.UTF8)
	types.add("string")
	keys := newPool(t.UTF8)
	for _, k := range t.Keys {
		keys.add(k)
	}
	typePool := types.bytes()
	keyPool := keys.bytes()

	const pkgHeaderSize = 288
	count := uint32(len(t.Keys))

	// Type spec for type id 1.
	specHeader := []byte{1, 0, 0, 0}
	specHeader = le.AppendUint32(specHeader, count)
	specBody := make([]byte, 4*count)
	spec := frame(0x0202, specHeader, specBody)

	// Default configuration, one value entry per key.
	config := le.AppendUint32(nil, 64)
	config = append(config, make([]byte, 60)...)
	typeHeader := []byte{1, 0, 0, 0}
	typeHeader = le.AppendUint32(typeHeader, count)
	typeHeader = le.AppendUint32(typeHeader, uint32(8+4+4+4+len(config))+4*count)
	typeHeader = append(typeHeader, config...)

	var offsets, entries []byte
	for i := range t.Keys {
		offsets = le.AppendUint32(offsets, uint32(len(entries)))
		entries = le.AppendUint16(entries, 8)
		entries = le.AppendUint16(entries, 0)
		entries = le.AppendUint32(entries, uint32(i))
		entries = le.AppendUint16(entries, 8)
		entries = append(entries, 0, 0x03)
		entries = le.AppendUint32(entries, valueIdx[i])
	}
	typeChunk := frame(0x0201, typeHeader, offsets, entries)

	id := t.PackageID
	if id == 0 {
		id = 0x7f
	}
	pkgHeader := le.AppendUint32(nil, id)
	pkgHeader = append(pkgHeader, PackageName(t.Package)...)
	pkgHeader = le.AppendUint32(pkgHeader, pkgHeaderSize)
	pkgHeader = le.AppendUint32(pkgHeader, 0)
	pkgHeader = le.AppendUint32(pkgHeader, uint32(pkgHeaderSize+len(typePool)))
	pkgHeader = le.AppendUint32(pkgHeader, 0)
	pkgHeader = le.AppendUint32(pkgHeader, 0)
	pkg := frame(0x0200, pkgHeader, typePool, keyPool, spec, typeChunk)

	tableHeader := le.AppendUint32(nil, 1)
	return frame(0x0002, tableHeader, global.bytes(), pkg)
}

// PackageName encodes name into the 256-byte package name field.
func PackageName(name string) []byte {
	field := make([]byte, 256)
	for i, u := range utf16.Encode([]rune(name)) {
		if i == 128 {
			break
		}
		le.PutUint16(field[2*i:], u)
	}
	return field
}
