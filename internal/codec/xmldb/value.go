// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package xmldb

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-mimekit/mimekit/internal/magic"
)

// decodeValue decodes a match/@value attribute per spec.md §6: a C-style
// string literal for TypeString, or the full numeric grammar (decimal,
// 0x-hex, 0-octal) encoded as big-endian canonical bytes for numeric types.
func decodeValue(typ magic.Type, raw string) ([]byte, error) {
	if typ == magic.TypeString {
		return decodeCString(raw)
	}

	return decodeNumeric(typ, raw)
}

// decodeMask decodes a match/@mask attribute. Numeric types use the same
// numeric grammar as value; string masks must be a hex literal whose
// length is exactly twice valueLen (spec.md §6).
func decodeMask(typ magic.Type, raw string, valueLen int) ([]byte, error) {
	if typ != magic.TypeString {
		return decodeNumeric(typ, raw)
	}

	if !strings.HasPrefix(raw, "0x") && !strings.HasPrefix(raw, "0X") {
		return nil, malformed(fmt.Sprintf("string mask %q must be a 0x-prefixed hex literal", raw), nil)
	}

	hexDigits := raw[2:]
	if len(hexDigits) != 2*valueLen {
		return nil, malformed(fmt.Sprintf("string mask %q hex length must equal twice the value length (%d)", raw, valueLen), nil)
	}

	mask, err := hex.DecodeString(hexDigits)
	if err != nil {
		return nil, malformed(fmt.Sprintf("string mask %q is not valid hex", raw), err)
	}

	return mask, nil
}

// decodeNumeric parses a decimal/0x-hex/0-octal integer literal and encodes
// it as big-endian canonical bytes of the width implied by typ.
func decodeNumeric(typ magic.Type, raw string) ([]byte, error) {
	width := typ.Width()

	n, err := strconv.ParseUint(raw, 0, width*8)
	if err != nil {
		return nil, malformed(fmt.Sprintf("numeric value %q invalid or overflows %d bits", raw, width*8), err)
	}

	buf := make([]byte, width)

	switch width {
	case 1:
		buf[0] = byte(n)
	case 2:
		binary.BigEndian.PutUint16(buf, uint16(n))
	case 4:
		binary.BigEndian.PutUint32(buf, uint32(n))
	default:
		return nil, malformed(fmt.Sprintf("unsupported numeric width %d", width), nil)
	}

	return buf, nil
}

// decodeCString decodes a C-style string literal: \n \r \t \xNN \NNN \" \\.
func decodeCString(raw string) ([]byte, error) {
	out := make([]byte, 0, len(raw))

	for i := 0; i < len(raw); i++ {
		c := raw[i]

		if c != '\\' {
			out = append(out, c)
			continue
		}

		if i+1 >= len(raw) {
			return nil, malformed(fmt.Sprintf("value %q ends with a dangling backslash", raw), nil)
		}

		i++
		esc := raw[i]

		switch esc {
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case '"':
			out = append(out, '"')
		case '\\':
			out = append(out, '\\')
		case 'x':
			if i+2 >= len(raw) {
				return nil, malformed(fmt.Sprintf("value %q has a truncated \\x escape", raw), nil)
			}

			b, err := strconv.ParseUint(raw[i+1:i+3], 16, 8)
			if err != nil {
				return nil, malformed(fmt.Sprintf("value %q has an invalid \\x escape", raw), err)
			}

			out = append(out, byte(b))
			i += 2
		default:
			if esc >= '0' && esc <= '7' {
				j := i
				for j < len(raw) && j < i+3 && raw[j] >= '0' && raw[j] <= '7' {
					j++
				}

				b, err := strconv.ParseUint(raw[i:j], 8, 8)
				if err != nil {
					return nil, malformed(fmt.Sprintf("value %q has an invalid octal escape", raw), err)
				}

				out = append(out, byte(b))
				i = j - 1
			} else {
				return nil, malformed(fmt.Sprintf("value %q has an unknown escape \\%c", raw, esc), nil)
			}
		}
	}

	if len(out) == 0 {
		return nil, malformed("string value decodes to zero bytes", nil)
	}

	return out, nil
}
