package container

import (
	"strings"

	"github.com/beevik/etree"

	tok "github.com/e91d82c73/stchunk/tokenizer"
)

// Extract decodes and parses a TwinCAT project file.
func Extract(data []byte) (*Document, error) {
	src, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return ExtractString(src)
}

// ExtractString parses an already decoded project file. The XML tree gives
// structure and attributes; CDATA positions are recovered by a forward scan
// over the raw text, because the XML parser does not keep byte offsets.
func ExtractString(src string) (*Document, error) {
	xdoc := etree.NewDocument()
	if err := xdoc.ReadFromString(src); err != nil {
		return nil, malformedf("invalid XML: %s", err)
	}

	root := xdoc.Root()
	if root == nil || root.Tag != "TcPlcObject" {
		return nil, malformedf("missing TcPlcObject root element")
	}

	var obj *etree.Element
	var kind ObjectKind
	for _, k := range []ObjectKind{KindPOU, KindGVL, KindDUT, KindInterface} {
		if e := root.SelectElement(string(k)); e != nil {
			obj = e
			kind = k
			break
		}
	}
	if obj == nil {
		return nil, malformedf("no POU, GVL, DUT or Itf element under TcPlcObject")
	}

	name := obj.SelectAttrValue("Name", "")
	if name == "" {
		return nil, malformedf("%s element has no Name attribute", kind)
	}

	doc := &Document{
		Kind:   kind,
		Name:   name,
		ID:     obj.SelectAttrValue("Id", ""),
		Source: src,
	}

	loc := newLocator(src)
	loc.enter(string(kind))

	// Walk children in document order so the raw text cursor stays in step
	// with the XML tree.
	for _, child := range obj.ChildElements() {
		switch child.Tag {
		case "Declaration":
			doc.Declaration = loc.section(child, "Declaration")
		case "Implementation":
			doc.Implementation = loc.implementation(child)
		case "Method":
			m, err := extractMember(loc, child, true)
			if err != nil {
				return nil, err
			}
			doc.Methods = append(doc.Methods, m)
		case "Action":
			m, err := extractMember(loc, child, false)
			if err != nil {
				return nil, err
			}
			doc.Actions = append(doc.Actions, m)
		case "Property":
			prop, err := extractProperty(loc, child)
			if err != nil {
				return nil, err
			}
			doc.Properties = append(doc.Properties, prop)
		}
	}

	return doc, nil
}

// extractMember handles Method and Action elements. Actions have no
// declaration section of their own.
func extractMember(loc *locator, elem *etree.Element, withDecl bool) (Member, error) {
	name := elem.SelectAttrValue("Name", "")
	if name == "" {
		return Member{}, malformedf("%s element has no Name attribute", elem.Tag)
	}

	m := Member{Name: name, ID: elem.SelectAttrValue("Id", "")}
	loc.enter(elem.Tag)

	for _, child := range elem.ChildElements() {
		switch child.Tag {
		case "Declaration":
			if withDecl {
				m.Declaration = loc.section(child, "Declaration")
			}
		case "Implementation":
			m.Implementation = loc.implementation(child)
		}
	}
	return m, nil
}

func extractProperty(loc *locator, elem *etree.Element) (Property, error) {
	name := elem.SelectAttrValue("Name", "")
	if name == "" {
		return Property{}, malformedf("Property element has no Name attribute")
	}

	prop := Property{Name: name, ID: elem.SelectAttrValue("Id", "")}
	loc.enter("Property")

	for _, child := range elem.ChildElements() {
		switch child.Tag {
		case "Declaration":
			prop.Declaration = loc.section(child, "Declaration")
		case "Get":
			acc := extractAccessor(loc, child)
			prop.Get = &acc
		case "Set":
			acc := extractAccessor(loc, child)
			prop.Set = &acc
		}
	}
	return prop, nil
}

func extractAccessor(loc *locator, elem *etree.Element) Accessor {
	var acc Accessor
	loc.enter(elem.Tag)

	for _, child := range elem.ChildElements() {
		switch child.Tag {
		case "Declaration":
			acc.Declaration = loc.section(child, "Declaration")
		case "Implementation":
			acc.Implementation = loc.implementation(child)
		}
	}
	return acc
}

// locator walks the raw XML text with a monotonic cursor, recovering the
// absolute position of each CDATA payload in document order.
type locator struct {
	src   string
	pos   int
	index *tok.LineIndex
}

func newLocator(src string) *locator {
	return &locator{src: src, index: tok.NewLineIndex(src)}
}

// enter advances the cursor past the next open tag with the given name so
// that later section lookups cannot match an earlier sibling.
func (l *locator) enter(tag string) {
	if after, _ := l.afterOpenTag(tag); after >= 0 {
		l.pos = after
	}
}

// afterOpenTag finds `<tag` followed by a delimiter at or after the cursor
// and returns the index just past the tag's closing '>', plus whether the
// element was self-closing. Returns -1 when not found.
func (l *locator) afterOpenTag(tag string) (int, bool) {
	needle := "<" + tag
	for i := l.pos; i < len(l.src); {
		j := strings.Index(l.src[i:], needle)
		if j < 0 {
			return -1, false
		}
		at := i + j
		k := at + len(needle)
		if k >= len(l.src) {
			return -1, false
		}
		switch l.src[k] {
		case ' ', '\t', '\r', '\n', '>', '/':
			end := strings.IndexByte(l.src[k:], '>')
			if end < 0 {
				return -1, false
			}
			gt := k + end
			return gt + 1, l.src[gt-1] == '/'
		}
		i = at + 1
	}
	return -1, false
}

// section extracts the CDATA content of the next element with the given
// tag. Non-CDATA text content falls back to the parsed element text with
// the position just after the open tag.
func (l *locator) section(elem *etree.Element, tag string) *Section {
	after, selfClosing := l.afterOpenTag(tag)
	if after < 0 {
		return &Section{Text: elem.Text()}
	}
	l.pos = after
	if selfClosing {
		return &Section{Text: "", Location: l.index.Position(after)}
	}

	limit := len(l.src)
	if end := strings.Index(l.src[after:], "</"+tag); end >= 0 {
		limit = after + end
	}

	cd := strings.Index(l.src[after:limit], "<![CDATA[")
	if cd < 0 {
		l.pos = limit
		return &Section{Text: elem.Text(), Location: l.index.Position(after)}
	}

	start := after + cd + len("<![CDATA[")
	end := limit
	if term := strings.Index(l.src[start:limit], "]]>"); term >= 0 {
		end = start + term
	}
	l.pos = end

	return &Section{Text: l.src[start:end], Location: l.index.Position(start)}
}

// implementation extracts the body element. A single child element names
// the language; only ST carries extractable text.
func (l *locator) implementation(elem *etree.Element) *Implementation {
	l.enter("Implementation")

	if st := elem.SelectElement("ST"); st != nil {
		impl := &Implementation{Kind: ImplST, Language: "ST"}
		if sec := l.section(st, "ST"); sec != nil {
			impl.Section = *sec
		}
		return impl
	}

	for _, child := range elem.ChildElements() {
		// Graphical body: skip its content entirely
		if end := strings.Index(l.src[l.pos:], "</Implementation"); end >= 0 {
			l.pos += end
		}
		return &Implementation{Kind: ImplGraphical, Language: child.Tag}
	}
	return nil
}
