package axml

import (
	"fmt"

	"github.com/mobilechromeapps/apkpack/internal/chunk"
)

// AndroidNS is the namespace URI of framework attributes.
const AndroidNS = "http://schemas.android.com/apk/res/android"

// Resource ids of the framework attributes used by the lookups. Attributes
// are also matched through these ids, so manifests whose attribute names
// were stripped or obfuscated still resolve.
const (
	ResLabel         uint32 = 0x01010001
	ResName          uint32 = 0x01010003
	ResMinSdkVersion uint32 = 0x0101020c
	ResVersionCode   uint32 = 0x0101021b
	ResVersionName   uint32 = 0x0101021c
)

// Typed value kinds.
const (
	TypeNull       uint8 = 0x00
	TypeReference  uint8 = 0x01
	TypeAttribute  uint8 = 0x02
	TypeString     uint8 = 0x03
	TypeFloat      uint8 = 0x04
	TypeDimension  uint8 = 0x05
	TypeFraction   uint8 = 0x06
	TypeIntDec     uint8 = 0x10
	TypeIntHex     uint8 = 0x11
	TypeIntBoolean uint8 = 0x12
	TypeFirstColor uint8 = 0x1c
	TypeLastColor  uint8 = 0x1f
)

func isInt(t uint8) bool {
	return t >= TypeIntDec && t <= TypeLastColor
}

// Ref identifies one attribute of one element. Refs stay valid across
// edits of the same document.
type Ref struct {
	el *Element
	i  int
}

// Element returns the element holding the attribute.
func (r Ref) Element() *Element {
	return r.el
}

// Name returns the attribute's local name.
func (r Ref) Name() string {
	if r.el == nil || r.i < 0 || r.i >= len(r.el.attrs) {
		return ""
	}
	return r.el.doc.str(r.el.attrs[r.i].name)
}

// FindPackageName locates the package attribute of the manifest element.
func (d *Document) FindPackageName() (Ref, error) {
	m, err := d.manifest()
	if err != nil {
		return Ref{}, err
	}
	return d.find(m, "", "package", 0)
}

// FindVersion locates android:versionName on the manifest element.
func (d *Document) FindVersion() (Ref, error) {
	m, err := d.manifest()
	if err != nil {
		return Ref{}, err
	}
	return d.find(m, AndroidNS, "versionName", ResVersionName)
}

// FindVersionCode locates android:versionCode on the manifest element.
func (d *Document) FindVersionCode() (Ref, error) {
	m, err := d.manifest()
	if err != nil {
		return Ref{}, err
	}
	return d.find(m, AndroidNS, "versionCode", ResVersionCode)
}

// FindAppName locates android:label on the application element.
func (d *Document) FindAppName() (Ref, error) {
	app, err := d.application()
	if err != nil {
		return Ref{}, err
	}
	return d.find(app, AndroidNS, "label", ResLabel)
}

// FindActivityName locates android:name on the first activity declared
// under the application element.
func (d *Document) FindActivityName() (Ref, error) {
	app, err := d.application()
	if err != nil {
		return Ref{}, err
	}
	act := app.Find("activity")
	if act == nil {
		return Ref{}, fmt.Errorf("%w: no <activity> element under <application>", chunk.ErrAttributeNotFound)
	}
	return d.find(act, AndroidNS, "name", ResName)
}

// MinSDK returns android:minSdkVersion from the uses-sdk element. It reports
// false when the manifest does not declare a numeric minimum.
func (d *Document) MinSDK() (int, bool) {
	m, err := d.manifest()
	if err != nil {
		return 0, false
	}
	sdk := m.Child("uses-sdk")
	if sdk == nil {
		return 0, false
	}
	ref, err := d.find(sdk, AndroidNS, "minSdkVersion", ResMinSdkVersion)
	if err != nil {
		return 0, false
	}
	v, err := d.IntValue(ref)
	if err != nil {
		return 0, false
	}
	return int(v), true
}

func (d *Document) manifest() (*Element, error) {
	root := d.Root()
	if root == nil || root.ns != chunk.NoIndex || root.Name() != "manifest" {
		return nil, fmt.Errorf("%w: document element is not <manifest>", chunk.ErrAttributeNotFound)
	}
	return root, nil
}

func (d *Document) application() (*Element, error) {
	m, err := d.manifest()
	if err != nil {
		return nil, err
	}
	app := m.Child("application")
	if app == nil {
		return nil, fmt.Errorf("%w: no <application> element", chunk.ErrAttributeNotFound)
	}
	return app, nil
}

// find returns the first attribute of e matching ns/name or the resource id.
func (d *Document) find(e *Element, ns, name string, res uint32) (Ref, error) {
	for i, a := range e.attrs {
		if d.matches(a, ns, name, res) {
			return Ref{el: e, i: i}, nil
		}
	}
	qualified := name
	if ns == AndroidNS {
		qualified = "android:" + name
	}
	return Ref{}, fmt.Errorf("%w: %s on <%s>", chunk.ErrAttributeNotFound, qualified, e.Name())
}

func (d *Document) matches(a *attribute, ns, name string, res uint32) bool {
	if res != 0 && uint64(a.name) < uint64(len(d.resMap)) && d.resMap[a.name] == res {
		return true
	}
	if d.str(a.name) != name {
		return false
	}
	return d.str(a.ns) == ns
}
