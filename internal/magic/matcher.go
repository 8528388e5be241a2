// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package magic

import "fmt"

// Matcher is one node of a freedesktop-style magic pattern: a typed,
// masked, offset-ranged byte test with an ordered list of sub-matchers.
//
// It generalizes the teacher's flat blkid/internal/magic.Magic (a single
// Value/Offset byte-equality test) into the recursive tree spec.md §3
// requires.
type Matcher struct {
	Type Type

	// OffsetBegin/OffsetEnd bound the closed interval of offsets searched.
	OffsetBegin int
	OffsetEnd   int

	// Value holds the literal pattern, always in big-endian canonical form
	// for numeric types.
	Value []byte

	// Mask is optional; when present it must be the same length as Value.
	Mask []byte

	SubMatchers []*Matcher
}

// NewMatcher validates and constructs a Matcher. It rejects the
// construction-time invariants of spec.md §3: non-negative offsets with
// OffsetBegin <= OffsetEnd, numeric value widths matching the type, and a
// mask whose length matches the value's.
func NewMatcher(typ Type, offsetBegin, offsetEnd int, value, mask []byte, sub []*Matcher) (*Matcher, error) {
	if offsetBegin < 0 || offsetEnd < 0 {
		return nil, fmt.Errorf("magic matcher: negative offset (begin=%d end=%d)", offsetBegin, offsetEnd)
	}

	if offsetBegin > offsetEnd {
		return nil, fmt.Errorf("magic matcher: offsetBegin %d > offsetEnd %d", offsetBegin, offsetEnd)
	}

	if len(value) == 0 {
		return nil, fmt.Errorf("magic matcher: empty value")
	}

	if w := typ.Width(); w != 0 && len(value) != w {
		return nil, fmt.Errorf("magic matcher: type %v requires a %d-byte value, got %d", typ, w, len(value))
	}

	if mask != nil && len(mask) != len(value) {
		return nil, fmt.Errorf("magic matcher: mask length %d != value length %d", len(mask), len(value))
	}

	return &Matcher{
		Type:        typ,
		OffsetBegin: offsetBegin,
		OffsetEnd:   offsetEnd,
		Value:       value,
		Mask:        mask,
		SubMatchers: sub,
	}, nil
}

// Matches reports whether the matcher's pattern is found in buf[:n], and
// (if the node's own test passes) whether any sub-matcher also matches.
//
// n must not exceed len(buf); this is a precondition violation per
// spec.md §4.2 and is not itself checked.
func (m *Matcher) Matches(buf []byte, n int) bool {
	if m == nil {
		return false
	}

	width := len(m.Value)
	if width == 0 {
		return false
	}

	last := m.OffsetEnd
	if maxStart := n - width; maxStart < last {
		last = maxStart
	}

	for offset := m.OffsetBegin; offset <= last; offset++ {
		if offset < 0 {
			continue
		}

		if m.matchesAt(buf, offset, width) {
			if len(m.SubMatchers) == 0 {
				return true
			}

			for _, child := range m.SubMatchers {
				if child.Matches(buf, n) {
					return true
				}
			}
		}
	}

	return false
}

func (m *Matcher) matchesAt(buf []byte, offset, width int) bool {
	if offset+width > len(buf) {
		return false
	}

	reverse := m.Type == TypeLittle16 || m.Type == TypeLittle32 ||
		((m.Type == TypeHost16 || m.Type == TypeHost32) && !hostIsBigEndian)

	for i := 0; i < width; i++ {
		vi := i
		if reverse {
			vi = width - 1 - i
		}

		b := buf[offset+i]
		want := m.Value[vi]

		if m.Mask != nil {
			b &= m.Mask[vi]
		}

		if b != want {
			return false
		}
	}

	return true
}

// MaxReach is the furthest byte offset (exclusive) this matcher subtree
// could ever need to read: max(OffsetEnd+len(Value), child.MaxReach).
func (m *Matcher) MaxReach() int {
	reach := m.OffsetEnd + len(m.Value)

	for _, child := range m.SubMatchers {
		if r := child.MaxReach(); r > reach {
			reach = r
		}
	}

	return reach
}
