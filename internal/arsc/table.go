// Package arsc reads compiled resource tables (resources.arsc) and rewrites
// the name of their application package.
package arsc

import (
	"encoding/binary"
	"fmt"
	"strings"
	"unicode/utf16"

	"github.com/mobilechromeapps/apkpack/internal/chunk"
)

// NameCapacity is the width of the package name field in UTF-16 code units.
const NameCapacity = 128

// AppPackageID is the id aapt assigns to the application package.
const AppPackageID = 0x7f

const tableHeaderLen = 4 // packageCount

// Table is a parsed resource table.
type Table struct {
	chunk.Lifecycle

	header   []byte
	pool     *chunk.StringPool
	children []tableChild
	packages []*Package

	out []byte
}

type tableChild interface {
	appendTo(dst []byte) []byte
}

type rawChild struct {
	c *chunk.Chunk
}

func (r rawChild) appendTo(dst []byte) []byte {
	return r.c.AppendTo(dst)
}

type poolChild struct {
	p *chunk.StringPool
}

func (c poolChild) appendTo(dst []byte) []byte {
	return c.p.AppendTo(dst)
}

// PackageInfo summarizes one package of the table.
type PackageInfo struct {
	ID      uint32
	Name    string
	Types   []string
	Entries int
}

// Parse decodes and validates a resource table. The table keeps references
// into b, which must not be modified afterwards.
func Parse(b []byte) (*Table, error) {
	t := &Table{}
	t.BeginParse()

	root, err := chunk.Read(b, 0)
	if err != nil {
		return nil, err
	}
	if root.Type != chunk.TypeTable || len(root.Header) < tableHeaderLen {
		return nil, chunk.Malformedf("not a resource table (chunk type 0x%04x, header size %d)", root.Type, root.HeaderSize())
	}
	if root.Size() != len(b) {
		return nil, chunk.Malformedf("table declares %d bytes, buffer holds %d", root.Size(), len(b))
	}
	t.header = root.Header
	packageCount := binary.LittleEndian.Uint32(root.Header)

	children, err := chunk.ReadAll(root.Body)
	if err != nil {
		return nil, err
	}
	for _, c := range children {
		switch {
		case c.Type == chunk.TypeStringPool && t.pool == nil:
			if t.pool, err = chunk.ParseStringPool(c); err != nil {
				return nil, fmt.Errorf("global string pool: %w", err)
			}
			t.children = append(t.children, poolChild{p: t.pool})
		case c.Type == chunk.TypeTablePackage:
			if t.pool == nil {
				return nil, chunk.Malformedf("package chunk precedes the global string pool")
			}
			p, err := parsePackage(c, t.pool)
			if err != nil {
				return nil, err
			}
			t.packages = append(t.packages, p)
			t.children = append(t.children, p)
		default:
			t.children = append(t.children, rawChild{c: c})
		}
	}

	if t.pool == nil {
		return nil, chunk.Malformedf("table has no global string pool")
	}
	if len(t.packages) == 0 {
		return nil, chunk.Malformedf("table has no package")
	}
	if uint64(packageCount) != uint64(len(t.packages)) {
		return nil, chunk.Malformedf("table header declares %d packages, found %d", packageCount, len(t.packages))
	}

	t.EndParse()
	return t, nil
}

// appPackage returns the application package: id 0x7f, else the first.
func (t *Table) appPackage() *Package {
	for _, p := range t.packages {
		if p.id == AppPackageID {
			return p
		}
	}
	return t.packages[0]
}

// PackageName returns the name of the application package.
func (t *Table) PackageName() string {
	return t.appPackage().Name()
}

// Packages summarizes every package in table order.
func (t *Table) Packages() []PackageInfo {
	infos := make([]PackageInfo, 0, len(t.packages))
	for _, p := range t.packages {
		infos = append(infos, PackageInfo{
			ID:      p.id,
			Name:    p.Name(),
			Types:   p.typeStrings.Strings(),
			Entries: p.entries,
		})
	}
	return infos
}

// Strings returns the global string pool in index order.
func (t *Table) Strings() []string {
	return t.pool.Strings()
}

// ChangePackageName rewrites the application package's name field. The
// name must fit in NameCapacity UTF-16 code units; shorter names are zero
// padded.
func (t *Table) ChangePackageName(name string) error {
	if err := t.Editable(); err != nil {
		return err
	}
	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: package name contains NUL", chunk.ErrInvalidValue)
	}
	units := utf16.Encode([]rune(name))
	if len(units) > NameCapacity {
		return fmt.Errorf("%w: package name is %d UTF-16 units, the field holds %d", chunk.ErrValueTooLong, len(units), NameCapacity)
	}

	var field [2 * NameCapacity]byte
	for i, u := range units {
		binary.LittleEndian.PutUint16(field[2*i:], u)
	}
	t.appPackage().name = field
	t.Mutate()
	return nil
}

// Serialize encodes the table. After Serialize the table can no longer be
// edited; further calls return the same bytes.
func (t *Table) Serialize() ([]byte, error) {
	if t.State() == chunk.Serialized {
		return t.out, nil
	}

	var body []byte
	for _, c := range t.children {
		body = c.appendTo(body)
	}
	out := chunk.Append(make([]byte, 0, chunk.HeaderSize+len(t.header)+len(body)), chunk.TypeTable, t.header, body)
	if err := chunk.CheckSize(len(out)); err != nil {
		return nil, err
	}

	t.out = out
	t.Finish()
	return out, nil
}
