package axml

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/mobilechromeapps/apkpack/internal/chunk"
)

// XML renders the document as indented text XML. Resource references are
// printed as @0x... ids since the document alone cannot resolve them.
func (d *Document) XML() string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?>` + "\n")

	prefixes := make(map[uint32]string)
	var pending []*namespaceNode
	depth := 0

	for i, n := range d.nodes {
		switch n := n.(type) {
		case *namespaceNode:
			if n.typ == chunk.TypeXMLStartNamespace {
				prefixes[n.uri] = d.str(n.prefix)
				pending = append(pending, n)
			}

		case *startNode:
			e := n.el
			b.WriteString(strings.Repeat("    ", depth))
			b.WriteString("<" + d.qname(prefixes, e.ns, e.name))
			for _, ns := range pending {
				fmt.Fprintf(&b, ` xmlns:%s="`, d.str(ns.prefix))
				xml.EscapeText(&b, []byte(d.str(ns.uri)))
				b.WriteString(`"`)
			}
			pending = nil
			for _, a := range e.attrs {
				b.WriteString(" " + d.qname(prefixes, a.ns, a.name) + `="`)
				xml.EscapeText(&b, []byte(d.formatValue(a)))
				b.WriteString(`"`)
			}
			if i+1 < len(d.nodes) {
				if _, ok := d.nodes[i+1].(*endNode); ok {
					b.WriteString(" />\n")
					continue
				}
			}
			b.WriteString(">\n")
			depth++

		case *endNode:
			if i > 0 {
				if _, ok := d.nodes[i-1].(*startNode); ok {
					continue
				}
			}
			depth--
			b.WriteString(strings.Repeat("    ", depth))
			b.WriteString("</" + d.qname(prefixes, n.ns, n.name) + ">\n")

		case *cdataNode:
			b.WriteString(strings.Repeat("    ", depth))
			xml.EscapeText(&b, []byte(strings.TrimSpace(d.str(n.data))))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (d *Document) qname(prefixes map[uint32]string, ns, name uint32) string {
	if ns != chunk.NoIndex {
		if p, ok := prefixes[ns]; ok && p != "" {
			return p + ":" + d.str(name)
		}
	}
	return d.str(name)
}

func (d *Document) formatValue(a *attribute) string {
	v := a.value
	switch {
	case v.Type == TypeString:
		return d.str(v.Data)
	case v.Type == TypeIntBoolean:
		return strconv.FormatBool(v.Data != 0)
	case v.Type == TypeIntDec:
		return strconv.FormatInt(int64(int32(v.Data)), 10)
	case v.Type == TypeIntHex:
		return fmt.Sprintf("0x%08x", v.Data)
	case v.Type == TypeReference:
		return fmt.Sprintf("@0x%08x", v.Data)
	case v.Type == TypeAttribute:
		return fmt.Sprintf("?0x%08x", v.Data)
	case v.Type >= TypeFirstColor && v.Type <= TypeLastColor:
		return fmt.Sprintf("#%08x", v.Data)
	case a.raw != chunk.NoIndex:
		return d.str(a.raw)
	default:
		return fmt.Sprintf("(0x%02x)0x%08x", v.Type, v.Data)
	}
}
