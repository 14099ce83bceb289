package fixture

// Framework attribute resource ids.
const (
	resLabel         = 0x01010001
	resName          = 0x01010003
	resMinSdkVersion = 0x0101020c
	resVersionCode   = 0x0101021b
	resVersionName   = 0x0101021c
)

// Manifest describes a compiled AndroidManifest.xml. Empty VersionName and
// Label omit the attribute; an empty Activity omits the activity element.
type Manifest struct {
	Package     string
	VersionName string
	VersionCode uint32
	Label       string
	Activity    string

	// ActivityLabel adds android:label to the activity. Equal strings share
	// one pool entry, as aapt emits them.
	ActivityLabel string

	// LabelRef, when non-zero, makes the application label a reference to
	// that resource id instead of the inline Label.
	LabelRef uint32

	// ApplicationComment sets the comment of the application start element.
	// A comment equal to a string value shares its pool entry.
	ApplicationComment string

	// MinSDK adds a uses-sdk element when non-zero.
	MinSDK uint32

	// UTF8 selects a UTF-8 string pool.
	UTF8 bool

	// ObfuscateNames replaces the android attribute names with single
	// letters so only the resource map identifies them.
	ObfuscateNames bool
}

// Template returns the manifest of the stock app template.
func Template() Manifest {
	return Manifest{
		Package:     "com.template.app",
		VersionName: "1.0",
		VersionCode: 1,
		Label:       "Template",
		Activity:    "MainActivity",
	}
}

type attr struct {
	ns, name uint32
	raw      uint32
	typ      uint8
	data     uint32
}

const noIndex = 0xFFFFFFFF

// Bytes encodes the manifest.
func (m Manifest) Bytes() []byte {
	p := newPool(m.UTF8)

	// Attribute names with resource ids come first so the resource map
	// lines up with the pool.
	attrNames := []string{"versionCode", "versionName", "minSdkVersion", "label", "name"}
	attrIDs := []uint32{resVersionCode, resVersionName, resMinSdkVersion, resLabel, resName}
	nameIdx := make([]uint32, len(attrNames))
	for i, n := range attrNames {
		if m.ObfuscateNames {
			n = string(rune('a' + i))
		}
		nameIdx[i] = p.add(n)
	}
	var (
		versionCode   = nameIdx[0]
		versionName   = nameIdx[1]
		minSdkVersion = nameIdx[2]
		label         = nameIdx[3]
		name          = nameIdx[4]
	)

	prefix := p.add("android")
	uri := p.add(AndroidNS)
	pkgAttr := p.add("package")
	manifest := p.add("manifest")
	usesSdk := p.add("uses-sdk")
	application := p.add("application")
	activity := p.add("activity")

	str := func(s string) attr {
		i := p.add(s)
		return attr{raw: i, typ: 0x03, data: i}
	}
	intAttr := func(v uint32) attr {
		return attr{raw: noIndex, typ: 0x10, data: v}
	}
	with := func(a attr, ns, n uint32) attr {
		a.ns, a.name = ns, n
		return a
	}

	var nodes [][]byte
	line := uint32(1)
	next := func() uint32 {
		line++
		return line
	}

	nodes = append(nodes, namespaceNode(0x0100, 1, prefix, uri))
	manifestAttrs := []attr{with(intAttr(m.VersionCode), uri, versionCode)}
	if m.VersionName != "" {
		manifestAttrs = append(manifestAttrs, with(str(m.VersionName), uri, versionName))
	}
	manifestAttrs = append(manifestAttrs, with(str(m.Package), noIndex, pkgAttr))
	nodes = append(nodes, startNode(next(), noIndex, manifest, manifestAttrs...))
	if m.MinSDK != 0 {
		nodes = append(nodes, startNode(next(), noIndex, usesSdk, with(intAttr(m.MinSDK), uri, minSdkVersion)))
		nodes = append(nodes, endNode(line, noIndex, usesSdk))
	}
	var appAttrs []attr
	if m.LabelRef != 0 {
		appAttrs = append(appAttrs, attr{ns: uri, name: label, raw: noIndex, typ: 0x01, data: m.LabelRef})
	} else if m.Label != "" {
		appAttrs = append(appAttrs, with(str(m.Label), uri, label))
	}
	appStart := startNode(next(), noIndex, application, appAttrs...)
	if m.ApplicationComment != "" {
		le.PutUint32(appStart[12:], p.add(m.ApplicationComment))
	}
	nodes = append(nodes, appStart)
	if m.Activity != "" {
		var activityAttrs []attr
		if m.ActivityLabel != "" {
			activityAttrs = append(activityAttrs, with(str(m.ActivityLabel), uri, label))
		}
		activityAttrs = append(activityAttrs, with(str(m.Activity), uri, name))
		nodes = append(nodes, startNode(next(), noIndex, activity, activityAttrs...))
		nodes = append(nodes, endNode(line, noIndex, activity))
	}
	nodes = append(nodes, endNode(next(), noIndex, application))
	nodes = append(nodes, endNode(next(), noIndex, manifest))
	nodes = append(nodes, namespaceNode(0x0101, line, prefix, uri))

	var resMap []byte
	for _, id := range attrIDs {
		resMap = le.AppendUint32(resMap, id)
	}

	body := [][]byte{p.bytes(), frame(0x0180, nil, resMap)}
	body = append(body, nodes...)
	return frame(0x0003, nil, body...)
}

func nodeHeader(line uint32) []byte {
	h := le.AppendUint32(nil, line)
	return le.AppendUint32(h, noIndex)
}

func namespaceNode(typ uint16, line, prefix, uri uint32) []byte {
	body := le.AppendUint32(nil, prefix)
	body = le.AppendUint32(body, uri)
	return frame(typ, nodeHeader(line), body)
}

func startNode(line, ns, name uint32, attrs ...attr) []byte {
	body := le.AppendUint32(nil, ns)
	body = le.AppendUint32(body, name)
	body = le.AppendUint16(body, 20)
	body = le.AppendUint16(body, 20)
	body = le.AppendUint16(body, uint16(len(attrs)))
	body = le.AppendUint16(body, 0)
	body = le.AppendUint16(body, 0)
	body = le.AppendUint16(body, 0)
	for _, a := range attrs {
		body = le.AppendUint32(body, a.ns)
		body = le.AppendUint32(body, a.name)
		body = le.AppendUint32(body, a.raw)
		body = le.AppendUint16(body, 8)
		body = append(body, 0, a.typ)
		body = le.AppendUint32(body, a.data)
	}
	return frame(0x0102, nodeHeader(line), body)
}

func endNode(line, ns, name uint32) []byte {
	body := le.AppendUint32(nil, ns)
	body = le.AppendUint32(body, name)
	return frame(0x0103, nodeHeader(line), body)
}
