// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package cache implements the binary serialization used to cache a built
// repository across process starts (spec.md §6).
//
// Grounded on sourcegraph-zoekt's marshal.go: a versioned, length-prefixed,
// uvarint-framed wire format, encoded with stdlib encoding/binary (no
// binary-framing library appears anywhere in the retrieved pack).
package cache

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/go-mimekit/mimekit/internal/glob"
	"github.com/go-mimekit/mimekit/internal/magic"
	"github.com/go-mimekit/mimekit/internal/mimetype"
)

// Signature is the serial-version/semantic-version pair at the head of
// every cache file (spec.md §6). On mismatch, InvalidCacheError is returned
// and the caller is expected to rebuild from the XML database (spec.md §7).
const (
	serialVersion = 1
	semverMajor   = 1
	semverMinor   = 0
)

// InvalidCacheError reports a corrupt or incompatible cache (spec.md §7
// InvalidCache).
type InvalidCacheError struct {
	Reason string
}

func (e *InvalidCacheError) Error() string {
	return fmt.Sprintf("invalid mimekit cache: %s", e.Reason)
}

func invalid(reason string) error { return &InvalidCacheError{Reason: reason} }

// typeTable maps magic.Type to its wire index; decode validates incoming
// indices against this table (spec.md §6 "invalid type indices ... are
// format errors").
var typeTable = []magic.Type{
	magic.TypeString,
	magic.TypeByte,
	magic.TypeHost16,
	magic.TypeHost32,
	magic.TypeBig16,
	magic.TypeBig32,
	magic.TypeLittle16,
	magic.TypeLittle32,
}

func typeIndex(t magic.Type) int {
	for i, candidate := range typeTable {
		if candidate == t {
			return i
		}
	}

	return -1
}

// Encode writes a zstd-compressed, versioned binary cache of types to w.
func Encode(w io.Writer, types []*mimetype.MimeType) error {
	var body bytes.Buffer

	enc := &encoder{w: &body}

	enc.putUvarint(uint64(len(types)))

	for _, t := range types {
		enc.putMimeType(t)
	}

	if enc.err != nil {
		return enc.err
	}

	var header bytes.Buffer

	header.WriteByte(serialVersion)
	header.WriteByte(semverMajor)
	header.WriteByte(semverMinor)

	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("cache: creating zstd writer: %w", err)
	}

	if _, err := zw.Write(header.Bytes()); err != nil {
		return fmt.Errorf("cache: writing signature: %w", err)
	}

	if _, err := zw.Write(body.Bytes()); err != nil {
		return fmt.Errorf("cache: writing body: %w", err)
	}

	return zw.Close()
}

// Decode reads a binary cache produced by Encode. An InvalidCacheError is
// returned for a signature mismatch, a premature end, or an invalid type
// index; per spec.md §7 the caller should treat this as "rebuild from XML",
// not as a fatal error.
func Decode(r io.Reader) ([]*mimetype.MimeType, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, invalid("not a zstd stream")
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, invalid("truncated cache stream")
	}

	if len(raw) < 3 {
		return nil, invalid("truncated signature")
	}

	if raw[0] != serialVersion || raw[1] != semverMajor || raw[2] != semverMinor {
		return nil, invalid(fmt.Sprintf("signature mismatch: got (%d,%d,%d), want (%d,%d,%d)",
			raw[0], raw[1], raw[2], serialVersion, semverMajor, semverMinor))
	}

	dec := &decoder{b: raw[3:]}

	count := dec.uvarint()
	if dec.err != nil {
		return nil, dec.err
	}

	types := make([]*mimetype.MimeType, 0, count)

	for i := uint64(0); i < count; i++ {
		t := dec.mimeType()
		if dec.err != nil {
			return nil, dec.err
		}

		types = append(types, t)
	}

	return types, nil
}

type encoder struct {
	w   *bytes.Buffer
	err error
}

func (e *encoder) putUvarint(n uint64) {
	var buf [binary.MaxVarintLen64]byte

	m := binary.PutUvarint(buf[:], n)
	e.w.Write(buf[:m]) //nolint:errcheck // bytes.Buffer.Write never errors
}

func (e *encoder) putString(s string) {
	e.putUvarint(uint64(len(s)))
	e.w.WriteString(s) //nolint:errcheck
}

func (e *encoder) putBool(b bool) {
	if b {
		e.w.WriteByte(1) //nolint:errcheck
	} else {
		e.w.WriteByte(0) //nolint:errcheck
	}
}

func (e *encoder) putBytes(b []byte) {
	if b == nil {
		e.putUvarint(0)
		e.w.WriteByte(0) //nolint:errcheck // present=false
		return
	}

	e.w.WriteByte(1) //nolint:errcheck // present=true
	e.putUvarint(uint64(len(b)))
	e.w.Write(b) //nolint:errcheck
}

func (e *encoder) putOptionalString(s *string) {
	if s == nil {
		e.putBool(false)
		return
	}

	e.putBool(true)
	e.putString(*s)
}

func (e *encoder) putStringSlice(ss []string) {
	e.putUvarint(uint64(len(ss)))

	for _, s := range ss {
		e.putString(s)
	}
}

func (e *encoder) putMimeType(t *mimetype.MimeType) {
	e.putString(t.Name)
	e.putStringSlice(t.Aliases)

	e.putUvarint(uint64(len(t.Descriptions)))

	for locale, text := range t.Descriptions {
		e.putString(locale)
		e.putString(text)
	}

	e.putUvarint(uint64(len(t.RootXMLs)))

	for _, root := range t.RootXMLs {
		e.putString(root.NamespaceURI)
		e.putString(root.LocalName)
	}

	e.putString(t.Acronym)
	e.putString(t.ExpandedAcronym)
	e.putOptionalString(t.GenericIcon)
	e.putStringSlice(t.SuperTypes)

	e.putUvarint(uint64(len(t.Globs)))

	for _, g := range t.Globs {
		e.putUvarint(uint64(g.Weight))
		e.putBool(g.CaseSensitive)
		e.putString(g.Pattern)
	}

	e.putUvarint(uint64(len(t.Magics)))

	for _, m := range t.Magics {
		e.putUvarint(uint64(m.Priority))
		e.putMatchers(m.Matchers)
	}
}

func (e *encoder) putMatchers(matchers []*magic.Matcher) {
	e.putUvarint(uint64(len(matchers)))

	for _, m := range matchers {
		e.putMatcher(m)
	}
}

func (e *encoder) putMatcher(m *magic.Matcher) {
	idx := typeIndex(m.Type)
	if idx < 0 {
		e.err = fmt.Errorf("cache: unknown matcher type %v", m.Type)
		return
	}

	e.putUvarint(uint64(idx))
	e.putUvarint(uint64(m.OffsetBegin))
	e.putUvarint(uint64(m.OffsetEnd))
	e.putBytes(m.Value)
	e.putBytes(m.Mask)
	e.putMatchers(m.SubMatchers)
}

type decoder struct {
	b   []byte
	err error
}

func (d *decoder) fail(reason string) {
	if d.err == nil {
		d.err = invalid(reason)
	}
}

func (d *decoder) uvarint() uint64 {
	if d.err != nil {
		return 0
	}

	n, m := binary.Uvarint(d.b)
	if m <= 0 {
		d.fail("truncated uvarint")
		return 0
	}

	d.b = d.b[m:]

	return n
}

func (d *decoder) byt() byte {
	if d.err != nil {
		return 0
	}

	if len(d.b) < 1 {
		d.fail("truncated byte")
		return 0
	}

	b := d.b[0]
	d.b = d.b[1:]

	return b
}

func (d *decoder) str() string {
	n := d.uvarint()
	if d.err != nil {
		return ""
	}

	if uint64(len(d.b)) < n {
		d.fail("truncated string")
		return ""
	}

	s := string(d.b[:n])
	d.b = d.b[n:]

	return s
}

func (d *decoder) bytesSlice() []byte {
	present := d.byt()
	n := d.uvarint()

	if d.err != nil {
		return nil
	}

	if present == 0 {
		return nil
	}

	if uint64(len(d.b)) < n {
		d.fail("truncated bytes")
		return nil
	}

	out := append([]byte(nil), d.b[:n]...)
	d.b = d.b[n:]

	return out
}

func (d *decoder) optionalString() *string {
	present := d.byt()
	if d.err != nil || present == 0 {
		return nil
	}

	s := d.str()
	if d.err != nil {
		return nil
	}

	return &s
}

func (d *decoder) stringSlice() []string {
	n := d.uvarint()
	if d.err != nil {
		return nil
	}

	out := make([]string, 0, n)

	for i := uint64(0); i < n; i++ {
		out = append(out, d.str())
	}

	return out
}

func (d *decoder) mimeType() *mimetype.MimeType {
	t := &mimetype.MimeType{}

	t.Name = d.str()
	t.Aliases = d.stringSlice()

	n := d.uvarint()
	t.Descriptions = make(map[string]string, n)

	for i := uint64(0); i < n; i++ {
		locale := d.str()
		text := d.str()
		t.Descriptions[locale] = text
	}

	nroots := d.uvarint()

	for i := uint64(0); i < nroots; i++ {
		ns := d.str()
		local := d.str()
		t.RootXMLs = append(t.RootXMLs, mimetype.RootXML{NamespaceURI: ns, LocalName: local})
	}

	t.Acronym = d.str()
	t.ExpandedAcronym = d.str()
	t.GenericIcon = d.optionalString()
	t.SuperTypes = d.stringSlice()

	nglobs := d.uvarint()

	for i := uint64(0); i < nglobs; i++ {
		weight := int(d.uvarint())
		caseSensitive := d.byt() == 1
		pattern := d.str()

		if d.err != nil {
			return t
		}

		t.Globs = append(t.Globs, glob.New(pattern, weight, caseSensitive))
	}

	nmagics := d.uvarint()

	for i := uint64(0); i < nmagics; i++ {
		priority := int(d.uvarint())

		matchers := d.matchers()
		if d.err != nil {
			return t
		}

		m, err := magic.NewMagic(priority, matchers)
		if err != nil {
			d.fail(err.Error())
			return t
		}

		t.Magics = append(t.Magics, m)
	}

	return t
}

func (d *decoder) matchers() []*magic.Matcher {
	n := d.uvarint()
	if d.err != nil {
		return nil
	}

	out := make([]*magic.Matcher, 0, n)

	for i := uint64(0); i < n; i++ {
		out = append(out, d.matcher())

		if d.err != nil {
			return out
		}
	}

	return out
}

func (d *decoder) matcher() *magic.Matcher {
	idx := int(d.uvarint())
	if d.err != nil {
		return nil
	}

	if idx < 0 || idx >= len(typeTable) {
		d.fail(fmt.Sprintf("invalid matcher type index %d", idx))
		return nil
	}

	begin := int(d.uvarint())
	end := int(d.uvarint())
	value := d.bytesSlice()
	mask := d.bytesSlice()
	sub := d.matchers()

	if d.err != nil {
		return nil
	}

	m, err := magic.NewMatcher(typeTable[idx], begin, end, value, mask, sub)
	if err != nil {
		d.fail(err.Error())
		return nil
	}

	return m
}
