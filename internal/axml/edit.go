package axml

import (
	"fmt"

	"github.com/mobilechromeapps/apkpack/internal/chunk"
)

func (d *Document) attr(ref Ref) (*attribute, error) {
	if ref.el == nil || ref.el.doc != d || ref.i < 0 || ref.i >= len(ref.el.attrs) {
		return nil, fmt.Errorf("%w: attribute reference does not belong to this document", chunk.ErrInvalidValue)
	}
	return ref.el.attrs[ref.i], nil
}

// Value returns the string held by the referenced attribute.
func (d *Document) Value(ref Ref) (string, error) {
	a, err := d.attr(ref)
	if err != nil {
		return "", err
	}
	if a.value.Type != TypeString {
		return "", fmt.Errorf("%w: %s holds type 0x%02x, not a string", chunk.ErrTypeMismatch, ref.Name(), a.value.Type)
	}
	return d.str(a.value.Data), nil
}

// IntValue returns the inline integer held by the referenced attribute.
func (d *Document) IntValue(ref Ref) (uint32, error) {
	a, err := d.attr(ref)
	if err != nil {
		return 0, err
	}
	if !isInt(a.value.Type) {
		return 0, fmt.Errorf("%w: %s holds type 0x%02x, not an integer", chunk.ErrTypeMismatch, ref.Name(), a.value.Type)
	}
	return a.value.Data, nil
}

// Replace sets the string value of the referenced attribute.
//
// When the attribute is the only holder of its pool entry, the entry is
// rewritten in place. Otherwise a new entry is appended and only this
// attribute is pointed at it, so every other holder keeps its value.
func (d *Document) Replace(ref Ref, value string) error {
	if err := d.Editable(); err != nil {
		return err
	}
	a, err := d.attr(ref)
	if err != nil {
		return err
	}
	if a.value.Type != TypeString {
		return fmt.Errorf("%w: %s holds type 0x%02x, not a string", chunk.ErrTypeMismatch, ref.Name(), a.value.Type)
	}

	idx := a.value.Data
	if d.str(idx) == value && (a.raw == chunk.NoIndex || a.raw == idx) {
		return nil
	}

	if d.holders(idx) == 1 && !d.pinned(idx) {
		if err := d.pool.Set(idx, value); err != nil {
			return fmt.Errorf("%s: %w", ref.Name(), err)
		}
	} else {
		n, err := d.pool.Append(value)
		if err != nil {
			return fmt.Errorf("%s: %w", ref.Name(), err)
		}
		idx = n
	}

	a.value.Data = idx
	if a.raw != chunk.NoIndex {
		a.raw = idx
	}
	d.Mutate()
	return nil
}

// ReplaceInt sets the inline decimal integer of the referenced attribute.
// The string pool is not touched.
func (d *Document) ReplaceInt(ref Ref, v uint32) error {
	if err := d.Editable(); err != nil {
		return err
	}
	a, err := d.attr(ref)
	if err != nil {
		return err
	}
	if !isInt(a.value.Type) {
		return fmt.Errorf("%w: %s holds type 0x%02x, not an integer", chunk.ErrTypeMismatch, ref.Name(), a.value.Type)
	}
	a.value.Type = TypeIntDec
	a.value.Data = v
	a.raw = chunk.NoIndex
	d.Mutate()
	return nil
}

// pinned reports whether a pool entry carries meaning beyond its text: the
// entries mapped to attribute resource ids and the styled entries.
func (d *Document) pinned(idx uint32) bool {
	return uint64(idx) < uint64(len(d.resMap)) || uint64(idx) < uint64(d.pool.StyleCount())
}

// holders counts the places that reference pool entry idx, node comments
// included. An attribute whose raw and typed value both point at idx counts
// once.
func (d *Document) holders(idx uint32) int {
	count := 0
	hit := func(refs ...uint32) {
		for _, r := range refs {
			if r == idx {
				count++
			}
		}
	}
	for _, n := range d.nodes {
		switch n := n.(type) {
		case *namespaceNode:
			hit(n.meta.comment, n.prefix, n.uri)
		case *startNode:
			hit(n.el.meta.comment, n.el.ns, n.el.name)
			for _, a := range n.el.attrs {
				hit(a.ns, a.name)
				if a.raw == idx || (a.value.Type == TypeString && a.value.Data == idx) {
					count++
				}
			}
		case *endNode:
			hit(n.meta.comment, n.ns, n.name)
		case *cdataNode:
			hit(n.meta.comment)
			if n.data == idx || (n.value.Type == TypeString && n.value.Data == idx) {
				count++
			}
		}
	}
	return count
}

// Reference returns the resource id held by the referenced attribute, and
// whether it holds one.
func (d *Document) Reference(ref Ref) (uint32, bool) {
	a, err := d.attr(ref)
	if err != nil || a.value.Type != TypeReference {
		return 0, false
	}
	return a.value.Data, true
}
