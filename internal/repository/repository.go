// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package repository owns the in-memory collection of MimeType records and
// the four indices over their filename globs, plus the detection
// algorithms (detectByFilename / detectByContent / detect) of spec.md §4.5.
//
// It generalizes the teacher's blkid/internal/chain.Chain (MaxMagicSize,
// MagicMatches, a fixed Default() prober list) into a data-driven,
// index-backed repository built from a loaded MIME database.
package repository

import (
	"path"
	"slices"
	"strings"

	"github.com/siderolabs/gen/xslices"
	"go.uber.org/zap"

	"github.com/go-mimekit/mimekit/internal/glob"
	"github.com/go-mimekit/mimekit/internal/mimetype"
)

type globEntry struct {
	glob *glob.Glob
	typ  *mimetype.MimeType
}

// Repository is the build-once, read-many collection of MimeType records
// and their derived indices (spec.md §3/§4.5).
type Repository struct {
	types []*mimetype.MimeType

	nameIndex          map[string]*mimetype.MimeType
	literalGlobIndex   map[string][]globEntry
	extensionGlobIndex map[string][]globEntry
	otherGlobList      []globEntry
	maxTestBytes       int
}

// Build constructs a Repository from an ordered list of MimeType records,
// as loaded from the XML database or decoded from the binary cache.
// Iteration order of types is preserved (spec.md §5 "Ordering").
func Build(types []*mimetype.MimeType, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Repository{
		types:              types,
		nameIndex:          make(map[string]*mimetype.MimeType, len(types)*2),
		literalGlobIndex:   make(map[string][]globEntry),
		extensionGlobIndex: make(map[string][]globEntry),
	}

	for _, t := range types {
		r.indexName(t, logger)

		for _, g := range t.Globs {
			r.indexGlob(g, t)
		}

		for _, m := range t.Magics {
			if reach := m.MaxReach(); reach > r.maxTestBytes {
				r.maxTestBytes = reach
			}
		}
	}

	return r
}

func (r *Repository) indexName(t *mimetype.MimeType, logger *zap.Logger) {
	keys := make([]string, 0, 1+len(t.Aliases))
	keys = append(keys, t.Name)
	keys = append(keys, t.Aliases...)

	for _, key := range keys {
		lower := strings.ToLower(key)

		if existing, ok := r.nameIndex[lower]; ok && existing.Name != t.Name {
			logger.Warn("mime-type name/alias collision, later entry wins",
				zap.String("key", lower),
				zap.String("previous", existing.Name),
				zap.String("replacement", t.Name),
			)
		}

		r.nameIndex[lower] = t
	}
}

// indexGlob classifies a single glob into the literal, extension, or
// "other" index per the exact metacharacter rule of spec.md §4.5.
func (r *Repository) indexGlob(g *glob.Glob, t *mimetype.MimeType) {
	entry := globEntry{glob: g, typ: t}

	switch {
	case strings.HasPrefix(g.Pattern, "*.") && !glob.HasMeta(g.Pattern[2:]):
		ext := strings.ToLower(g.Pattern[2:])
		r.extensionGlobIndex[ext] = append(r.extensionGlobIndex[ext], entry)
	case !glob.HasMeta(g.Pattern):
		literal := strings.ToLower(g.Pattern)
		r.literalGlobIndex[literal] = append(r.literalGlobIndex[literal], entry)
	default:
		r.otherGlobList = append(r.otherGlobList, entry)
	}
}

// MaxTestBytes is the fewest leading bytes a caller must supply for every
// magic rule in the repository to be fully evaluable.
func (r *Repository) MaxTestBytes() int {
	if r == nil {
		return 0
	}

	return r.maxTestBytes
}

// Lookup performs a case-insensitive lookup by name or alias. It also
// satisfies mimetype.SuperTypeResolver for the supertype magic walk.
func (r *Repository) Lookup(name string) *mimetype.MimeType {
	if r == nil {
		return nil
	}

	return r.nameIndex[strings.ToLower(name)]
}

// filenameArbitration implements the weight/length arbitration rule of
// spec.md §4.5 shared by detectByFilename's three probing passes. Ties
// accumulate every candidate, including repeats (a type with two globs
// that both match); dedupByName at the end of the pass removes those.
type filenameArbitration struct {
	list       []*mimetype.MimeType
	bestWeight int
	bestLength int
}

func newFilenameArbitration() *filenameArbitration {
	return &filenameArbitration{bestWeight: -1}
}

func (a *filenameArbitration) consider(g *glob.Glob, t *mimetype.MimeType) {
	w := g.Weight
	l := len(g.Pattern)

	switch {
	case len(a.list) == 0:
		a.list = []*mimetype.MimeType{t}
		a.bestWeight = w
		a.bestLength = l
	case w > a.bestWeight:
		a.list = []*mimetype.MimeType{t}
		a.bestWeight = w
		a.bestLength = l
	case w == a.bestWeight:
		switch {
		case l > a.bestLength:
			a.list = []*mimetype.MimeType{t}
			a.bestLength = l
		case l == a.bestLength:
			a.list = append(a.list, t)
		}
	}
}

// dedupByName removes repeat MimeTypes from list (by name), preserving
// first-seen order. Grounded on `partitioning/gpt/gpt.go`'s
// `xslices.FilterInPlace` use, applied here as a stateful predicate instead
// of a stateless one.
func dedupByName(list []*mimetype.MimeType) []*mimetype.MimeType {
	seen := make(map[string]bool, len(list))

	return xslices.FilterInPlace(list, func(t *mimetype.MimeType) bool {
		if seen[t.Name] {
			return false
		}

		seen[t.Name] = true

		return true
	})
}

// DetectByFilename returns the MimeTypes whose globs best match path's
// basename, per the arbitration rule of spec.md §4.5.
func (r *Repository) DetectByFilename(filePath string) []*mimetype.MimeType {
	if r == nil {
		return nil
	}

	fn := strings.ToLower(path.Base(filePath))

	a := newFilenameArbitration()

	for _, entry := range r.literalGlobIndex[fn] {
		a.consider(entry.glob, entry.typ)
	}

	for i := 0; i < len(fn); i++ {
		if fn[i] != '.' {
			continue
		}

		ext := fn[i+1:]

		for _, entry := range r.extensionGlobIndex[ext] {
			a.consider(entry.glob, entry.typ)
		}
	}

	for _, entry := range r.otherGlobList {
		if entry.glob.Matches(fn) {
			a.consider(entry.glob, entry.typ)
		}
	}

	return dedupByName(a.list)
}

// contentArbitration implements the single-bestPriority arbitration rule
// spec.md §4.5 uses for detectByContent and the magic-confirmation pass of
// detect. Ties accumulate every candidate, including repeats (a type with
// two magics at the winning priority); dedupByName at the end of the pass
// removes those.
type contentArbitration struct {
	list         []*mimetype.MimeType
	bestPriority int
}

func newContentArbitration() *contentArbitration {
	return &contentArbitration{bestPriority: -1}
}

func (a *contentArbitration) consider(priority int, t *mimetype.MimeType) {
	switch {
	case priority > a.bestPriority:
		a.list = []*mimetype.MimeType{t}
		a.bestPriority = priority
	case priority == a.bestPriority:
		a.list = append(a.list, t)
	}
}

// DetectByContent scans every MimeType in insertion order, testing only
// magics with priority >= the current best, per spec.md §4.5.
func (r *Repository) DetectByContent(buf []byte, n int) []*mimetype.MimeType {
	if r == nil {
		return nil
	}

	a := newContentArbitration()

	for _, t := range r.types {
		for _, m := range t.Magics {
			if m.Priority < a.bestPriority {
				continue
			}

			if m.Matches(buf, n) {
				a.consider(m.Priority, t)
			}
		}
	}

	return dedupByName(a.list)
}

// Detect implements the full resolution algorithm of spec.md §4.5: filename
// candidates, single-candidate early-out, magic confirmation filtered by
// supertype walks, and fallback to the single filename hit.
func (r *Repository) Detect(filename string, buf []byte, n int, alwaysCheckMagic bool) []*mimetype.MimeType {
	if r == nil {
		return nil
	}

	nameList := r.DetectByFilename(filename)

	if len(nameList) == 0 {
		return r.DetectByContent(buf, n)
	}

	if len(nameList) == 1 && !alwaysCheckMagic {
		return nameList
	}

	confirmed := newContentArbitration()

	for _, t := range nameList {
		best := t.BestMagic(buf, n, confirmed.bestPriority, r)
		if best != nil {
			confirmed.consider(best.Priority, t)
		}
	}

	confirmedList := dedupByName(confirmed.list)

	if len(confirmedList) > 0 {
		return confirmedList
	}

	if len(nameList) == 1 {
		return nameList
	}

	return nil
}

// Types returns a defensive copy of the full, insertion-ordered MimeType
// list. Used by codecs to serialize the repository and by callers
// enumerating the database.
func (r *Repository) Types() []*mimetype.MimeType {
	if r == nil {
		return nil
	}

	return slices.Clone(r.types)
}
