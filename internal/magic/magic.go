// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package magic

import "fmt"

// DefaultPriority is the priority assigned to a Magic whose database entry
// does not specify one.
const DefaultPriority = 50

// Magic is an ordered, non-empty bag of top-level Matchers sharing one
// priority. It generalizes the teacher's blkid/internal/chain.Chain (which
// tries every prober's single Magic value in Default() order with no
// priority) into the priority-ranked rule spec.md §3/§4.3 describes.
type Magic struct {
	Priority int
	Matchers []*Matcher

	maxReach int
}

// NewMagic validates and builds a Magic, caching its maxReach.
//
// priority is the database's literal priority attribute; 0 is a legitimate
// value distinct from "attribute absent" (spec §3's [0,100] range), so only
// a negative priority — never usable by a real database entry — is treated
// as "unspecified" and promoted to DefaultPriority. Callers resolving an
// absent XML attribute do so themselves before calling NewMagic (see
// internal/codec/xmldb.decodeMagic).
func NewMagic(priority int, matchers []*Matcher) (*Magic, error) {
	if len(matchers) == 0 {
		return nil, fmt.Errorf("magic: matchers must be non-empty")
	}

	if priority < 0 {
		priority = DefaultPriority
	}

	maxReach := 0

	for _, m := range matchers {
		if r := m.MaxReach(); r > maxReach {
			maxReach = r
		}
	}

	return &Magic{
		Priority: priority,
		Matchers: matchers,
		maxReach: maxReach,
	}, nil
}

// Matches reports whether any top-level Matcher matches buf[:n]. Priority
// is advisory only, per spec.md §4.3: it is used by the detector, never by
// Matches itself.
func (m *Magic) Matches(buf []byte, n int) bool {
	if m == nil {
		return false
	}

	for _, matcher := range m.Matchers {
		if matcher.Matches(buf, n) {
			return true
		}
	}

	return false
}

// MaxReach is the maximum OffsetEnd+len(Value) across the whole matcher
// subtree, cached at construction time.
func (m *Magic) MaxReach() int {
	if m == nil {
		return 0
	}

	return m.maxReach
}
