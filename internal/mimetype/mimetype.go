// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package mimetype defines the MimeType record and the lookup contract it
// needs from its owning repository to walk into its supertypes.
//
// It generalizes the teacher's blkid/internal/filesystems/*.Probe types
// (one Go type per format, each implementing Name()/Magic()/Probe()) into a
// single data record built from the freedesktop mime-info XML database: the
// spec is data-driven rather than one compiled-in type per format.
package mimetype

import (
	"github.com/siderolabs/go-pointer"
	"golang.org/x/text/language"

	"github.com/go-mimekit/mimekit/internal/glob"
	"github.com/go-mimekit/mimekit/internal/magic"
)

// RootXML is an XML root-element hint used to recognize XML-based formats.
type RootXML struct {
	NamespaceURI string
	LocalName    string
}

// SuperTypeResolver resolves a supertype name to its MimeType record. It is
// satisfied by the repository's name index; kept as a narrow interface here
// so mimetype has no import-cycle dependency on the repository package.
type SuperTypeResolver interface {
	Lookup(name string) *MimeType
}

// MimeType is a single freedesktop-style media-type record.
type MimeType struct {
	Name string

	Aliases []string

	// Descriptions maps locale (BCP-47, "" for the default) to a
	// human-readable description.
	Descriptions map[string]string

	RootXMLs []RootXML

	Acronym         string
	ExpandedAcronym string

	// GenericIcon is nil when the database entry has none: most MimeTypes
	// inherit an icon from their supertype rather than naming their own,
	// mirrors ext.Probe.Result's optional *string Label.
	GenericIcon *string

	SuperTypes []string

	Globs  []*glob.Glob
	Magics []*magic.Magic
}

// SetGenericIcon stores name as the type's generic icon hint.
func (t *MimeType) SetGenericIcon(name string) {
	t.GenericIcon = pointer.To(name)
}

// Description returns the description best matching the caller's preferred
// BCP-47 locale tag, falling back to the default (untagged) description,
// per spec.md §6's locale-keyed comment map.
func (t *MimeType) Description(preferred string) string {
	if t == nil || len(t.Descriptions) == 0 {
		return ""
	}

	def := t.Descriptions[""]

	if preferred == "" {
		return def
	}

	wantTag, err := language.Parse(preferred)
	if err != nil {
		return def
	}

	var (
		tags []language.Tag
		keys []string
	)

	for locale := range t.Descriptions {
		if locale == "" {
			continue
		}

		tag, err := language.Parse(locale)
		if err != nil {
			continue
		}

		tags = append(tags, tag)
		keys = append(keys, locale)
	}

	if len(tags) == 0 {
		return def
	}

	matcher := language.NewMatcher(tags)

	_, index, confidence := matcher.Match(wantTag)
	if confidence == language.No {
		return def
	}

	return t.Descriptions[keys[index]]
}

// MatchesFilename reports whether any glob matches filename.
func (t *MimeType) MatchesFilename(filename string) bool {
	if t == nil {
		return false
	}

	for _, g := range t.Globs {
		if g.Matches(filename) {
			return true
		}
	}

	return false
}

// MatchesContent reports whether any own magic matches buf[:n], falling
// back transitively to supertypes (resolved via resolver) if this type has
// none of its own, per spec.md §4.4. visited guards the walk against a
// cyclic supertype graph (spec.md §9 open question).
func (t *MimeType) MatchesContent(buf []byte, n int, resolver SuperTypeResolver) bool {
	return t.matchesContent(buf, n, resolver, map[string]bool{})
}

func (t *MimeType) matchesContent(buf []byte, n int, resolver SuperTypeResolver, visited map[string]bool) bool {
	if t == nil || visited[t.Name] {
		return false
	}

	visited[t.Name] = true

	for _, m := range t.Magics {
		if m.Matches(buf, n) {
			return true
		}
	}

	if len(t.Magics) > 0 {
		return false
	}

	for _, superName := range t.SuperTypes {
		super := resolver.Lookup(superName)
		if super == nil {
			continue
		}

		if super.matchesContent(buf, n, resolver, visited) {
			return true
		}
	}

	return false
}

// BestMagic returns the highest-priority own Magic that matches buf[:n]
// with priority >= minPriority; if none of this type's own magics match, it
// recurses into supertypes and returns the best of theirs. Ties are broken
// by first-encountered order (spec.md §4.4).
func (t *MimeType) BestMagic(buf []byte, n, minPriority int, resolver SuperTypeResolver) *magic.Magic {
	return t.bestMagic(buf, n, minPriority, resolver, map[string]bool{})
}

func (t *MimeType) bestMagic(buf []byte, n, minPriority int, resolver SuperTypeResolver, visited map[string]bool) *magic.Magic {
	if t == nil || visited[t.Name] {
		return nil
	}

	visited[t.Name] = true

	var best *magic.Magic

	for _, m := range t.Magics {
		if m.Priority < minPriority {
			continue
		}

		if m.Matches(buf, n) && (best == nil || m.Priority > best.Priority) {
			best = m
		}
	}

	if best != nil {
		return best
	}

	for _, superName := range t.SuperTypes {
		super := resolver.Lookup(superName)
		if super == nil {
			continue
		}

		if candidate := super.bestMagic(buf, n, minPriority, resolver, visited); candidate != nil {
			return candidate
		}
	}

	return nil
}
