package feed

import (
	"encoding/xml"
	"fmt"
	"unicode/utf8"
)

const (
	atomNamespace = "http://www.w3.org/2005/Atom"
	appsNamespace = "http://schemas.google.com/apps/2006"
	indent        = "    "
)

// xmlFeed is the import format Gmail produces under Settings > Filters >
// Export. Namespace declarations are written as plain attributes so the
// output keeps the "apps:" prefix Gmail expects.
type xmlFeed struct {
	XMLName   xml.Name    `xml:"feed"`
	Xmlns     string      `xml:"xmlns,attr"`
	XmlnsApps string      `xml:"xmlns:apps,attr"`
	Comment   xml.Comment `xml:",comment"`
	Entries   []xmlEntry  `xml:"entry"`
}

type xmlEntry struct {
	Properties []xmlProperty `xml:"apps:property"`
}

type xmlProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

func (d *Document) tree() xmlFeed {
	f := xmlFeed{
		Xmlns:     atomNamespace,
		XmlnsApps: appsNamespace,
		Comment:   xml.Comment(d.gen.comment()),
		Entries:   make([]xmlEntry, 0, len(d.entries)),
	}
	for _, e := range d.entries {
		xe := xmlEntry{Properties: make([]xmlProperty, 0, len(e.Properties))}
		for _, p := range e.Properties {
			xe.Properties = append(xe.Properties, xmlProperty{Name: p.Name, Value: p.Value})
		}
		f.Entries = append(f.Entries, xe)
	}
	return f
}

func marshalFeed(f xmlFeed) ([]byte, error) {
	body, err := xml.MarshalIndent(f, "", indent)
	if err != nil {
		return nil, fmt.Errorf("marshal feed: %w", err)
	}
	out := make([]byte, 0, len(xml.Header)+len(body)+1)
	out = append(out, xml.Header...)
	out = append(out, body...)
	out = append(out, '\n')
	return out, nil
}

// checkText rejects input encoding/xml would silently replace with U+FFFD.
func checkText(s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("invalid UTF-8 in %q", s)
	}
	for i, r := range s {
		if !isXMLChar(r) {
			return fmt.Errorf("character %U at byte %d is not allowed in XML", r, i)
		}
	}
	return nil
}

// isXMLChar reports whether r is in the XML 1.0 Char production.
func isXMLChar(r rune) bool {
	switch {
	case r == '\t', r == '\n', r == '\r':
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	default:
		return r >= 0x10000 && r <= utf8.MaxRune
	}
}
