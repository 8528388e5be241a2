// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package magic implements the typed byte-pattern matcher tree used to
// identify a MIME type from the leading bytes of a file, and the bag of
// such trees ("Magic") that make up one priority-ranked detection rule.
package magic

import "encoding/binary"

// Type is the kind of comparison a Matcher node performs.
type Type int

// The matcher types recognized by the freedesktop mime-info schema.
const (
	TypeString Type = iota
	TypeByte
	TypeHost16
	TypeHost32
	TypeBig16
	TypeBig32
	TypeLittle16
	TypeLittle32
)

// Width returns the fixed byte width for numeric types, or 0 for TypeString
// (whose width is the length of Value).
func (t Type) Width() int {
	switch t {
	case TypeByte:
		return 1
	case TypeHost16, TypeBig16, TypeLittle16:
		return 2
	case TypeHost32, TypeBig32, TypeLittle32:
		return 4
	default:
		return 0
	}
}

// hostIsBigEndian reports whether the current runtime is big-endian. The
// freedesktop spec stores host16/host32 values in producer-endian form;
// this library resolves them at consumer (i.e. runtime) endianness, per
// spec.md §4.2.
var hostIsBigEndian = func() bool {
	var x uint16 = 1

	b := [2]byte{}
	nativeEndian.PutUint16(b[:], x)

	return b[0] == 0
}()

// nativeEndian is used only to probe the runtime's byte order above;
// matching itself always treats stored bytes as canonical big-endian, per
// spec.md §3 ("Numeric types store bytes in big-endian canonical form
// regardless of the type's endianness semantics").
var nativeEndian = binary.NativeEndian
