// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package xmldb reads the freedesktop shared-mime-info "mime-info" XML
// database format (spec.md §6) into MimeType records.
//
// No XML library appears anywhere in the retrieved example pack; stdlib
// encoding/xml is the pack-idiomatic choice here (see DESIGN.md), used the
// same decode-into-struct way perkeep-perkeep's feed importers do.
package xmldb

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-mimekit/mimekit/internal/glob"
	"github.com/go-mimekit/mimekit/internal/magic"
	"github.com/go-mimekit/mimekit/internal/mimetype"
)

// MalformedError wraps a database parse failure (spec.md §7
// MalformedDatabase).
type MalformedError struct {
	Reason string
	Err    error
}

func (e *MalformedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed mime-info database: %s: %v", e.Reason, e.Err)
	}

	return fmt.Sprintf("malformed mime-info database: %s", e.Reason)
}

func (e *MalformedError) Unwrap() error { return e.Err }

func malformed(reason string, err error) error {
	return &MalformedError{Reason: reason, Err: err}
}

type xmlDocument struct {
	XMLName   xml.Name     `xml:"mime-info"`
	MimeTypes []xmlMimeType `xml:"mime-type"`
}

type xmlMimeType struct {
	Type string `xml:"type,attr"`

	Comments []xmlComment `xml:"comment"`

	Acronym         string `xml:"acronym"`
	ExpandedAcronym string `xml:"expanded-acronym"`

	GenericIcon *xmlGenericIcon `xml:"generic-icon"`
	Aliases     []xmlAlias      `xml:"alias"`
	SubClassOfs []xmlSubClassOf `xml:"sub-class-of"`
	RootXMLs    []xmlRootXML    `xml:"root-XML"`
	Globs       []xmlGlob       `xml:"glob"`
	Magics      []xmlMagic      `xml:"magic"`
}

type xmlComment struct {
	Lang string `xml:"lang,attr"`
	Text string `xml:",chardata"`
}

type xmlGenericIcon struct {
	Name string `xml:"name,attr"`
}

type xmlAlias struct {
	Type string `xml:"type,attr"`
}

type xmlSubClassOf struct {
	Type string `xml:"type,attr"`
}

type xmlRootXML struct {
	NamespaceURI string `xml:"namespaceURI,attr"`
	LocalName    string `xml:"localName,attr"`
}

type xmlGlob struct {
	Pattern       string `xml:"pattern,attr"`
	Weight        string `xml:"weight,attr"`
	CaseSensitive string `xml:"case-sensitive,attr"`
}

type xmlMagic struct {
	Priority string     `xml:"priority,attr"`
	Matches  []xmlMatch `xml:"match"`
}

type xmlMatch struct {
	Type   string     `xml:"type,attr"`
	Offset string     `xml:"offset,attr"`
	Value  string     `xml:"value,attr"`
	Mask   string     `xml:"mask,attr"`
	Subs   []xmlMatch `xml:"match"`
}

// Decode parses an XML mime-info database from r into an ordered list of
// MimeType records.
func Decode(r io.Reader) ([]*mimetype.MimeType, error) {
	var doc xmlDocument

	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, malformed("invalid XML", err)
	}

	types := make([]*mimetype.MimeType, 0, len(doc.MimeTypes))

	for _, xt := range doc.MimeTypes {
		t, err := decodeMimeType(xt)
		if err != nil {
			return nil, err
		}

		types = append(types, t)
	}

	return types, nil
}

func decodeMimeType(xt xmlMimeType) (*mimetype.MimeType, error) {
	if strings.TrimSpace(xt.Type) == "" {
		return nil, malformed("mime-type missing required type attribute", nil)
	}

	t := &mimetype.MimeType{
		Name:            strings.ToLower(xt.Type),
		Acronym:         xt.Acronym,
		ExpandedAcronym: xt.ExpandedAcronym,
		Descriptions:    make(map[string]string, len(xt.Comments)),
	}

	if xt.GenericIcon != nil && xt.GenericIcon.Name != "" {
		t.SetGenericIcon(xt.GenericIcon.Name)
	}

	for _, c := range xt.Comments {
		t.Descriptions[c.Lang] = strings.TrimSpace(c.Text)
	}

	for _, a := range xt.Aliases {
		if a.Type != "" {
			t.Aliases = append(t.Aliases, strings.ToLower(a.Type))
		}
	}

	for _, s := range xt.SubClassOfs {
		if s.Type != "" {
			t.SuperTypes = append(t.SuperTypes, strings.ToLower(s.Type))
		}
	}

	if len(xt.RootXMLs) > 0 {
		// "may repeat; first used" per spec.md §6.
		root := xt.RootXMLs[0]
		t.RootXMLs = []mimetype.RootXML{{NamespaceURI: root.NamespaceURI, LocalName: root.LocalName}}
	}

	for _, xg := range xt.Globs {
		g, err := decodeGlob(xg)
		if err != nil {
			return nil, err
		}

		t.Globs = append(t.Globs, g)
	}

	for _, xm := range xt.Magics {
		m, err := decodeMagic(xm)
		if err != nil {
			return nil, err
		}

		t.Magics = append(t.Magics, m)
	}

	return t, nil
}

func decodeGlob(xg xmlGlob) (*glob.Glob, error) {
	if xg.Pattern == "" {
		return nil, malformed("glob missing required pattern attribute", nil)
	}

	weight := glob.DefaultWeight

	if xg.Weight != "" {
		w, err := strconv.Atoi(xg.Weight)
		if err != nil {
			return nil, malformed(fmt.Sprintf("glob weight %q is not an integer", xg.Weight), err)
		}

		weight = w
	}

	caseSensitive := xg.CaseSensitive == "true"

	return glob.New(xg.Pattern, weight, caseSensitive), nil
}

func decodeMagic(xm xmlMagic) (*magic.Magic, error) {
	priority := magic.DefaultPriority

	if xm.Priority != "" {
		p, err := strconv.Atoi(xm.Priority)
		if err != nil {
			return nil, malformed(fmt.Sprintf("magic priority %q is not an integer", xm.Priority), err)
		}

		priority = p
	}

	matchers := make([]*magic.Matcher, 0, len(xm.Matches))

	for _, xmatch := range xm.Matches {
		m, err := decodeMatch(xmatch)
		if err != nil {
			return nil, err
		}

		matchers = append(matchers, m)
	}

	return magic.NewMagic(priority, matchers)
}

func decodeMatch(xm xmlMatch) (*magic.Matcher, error) {
	typ, err := decodeType(xm.Type)
	if err != nil {
		return nil, err
	}

	begin, end, err := decodeOffset(xm.Offset)
	if err != nil {
		return nil, err
	}

	value, err := decodeValue(typ, xm.Value)
	if err != nil {
		return nil, err
	}

	var mask []byte

	if xm.Mask != "" {
		mask, err = decodeMask(typ, xm.Mask, len(value))
		if err != nil {
			return nil, err
		}
	}

	subs := make([]*magic.Matcher, 0, len(xm.Subs))

	for _, sub := range xm.Subs {
		child, err := decodeMatch(sub)
		if err != nil {
			return nil, err
		}

		subs = append(subs, child)
	}

	m, err := magic.NewMatcher(typ, begin, end, value, mask, subs)
	if err != nil {
		return nil, malformed(err.Error(), nil)
	}

	return m, nil
}

func decodeType(s string) (magic.Type, error) {
	switch s {
	case "string", "":
		return magic.TypeString, nil
	case "byte":
		return magic.TypeByte, nil
	case "host16":
		return magic.TypeHost16, nil
	case "host32":
		return magic.TypeHost32, nil
	case "big16":
		return magic.TypeBig16, nil
	case "big32":
		return magic.TypeBig32, nil
	case "little16":
		return magic.TypeLittle16, nil
	case "little32":
		return magic.TypeLittle32, nil
	default:
		return 0, malformed(fmt.Sprintf("unknown match type %q", s), nil)
	}
}

func decodeOffset(s string) (begin, end int, err error) {
	if s == "" {
		return 0, 0, nil
	}

	before, after, ok := strings.Cut(s, ":")
	if !ok {
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, malformed(fmt.Sprintf("offset %q is not an integer", s), err)
		}

		return n, n, nil
	}

	b, err := strconv.Atoi(before)
	if err != nil {
		return 0, 0, malformed(fmt.Sprintf("offset %q is not an integer", before), err)
	}

	e, err := strconv.Atoi(after)
	if err != nil {
		return 0, 0, malformed(fmt.Sprintf("offset %q is not an integer", after), err)
	}

	if b > e {
		return 0, 0, malformed(fmt.Sprintf("offset range %d:%d is inverted", b, e), nil)
	}

	return b, e, nil
}
