// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package glob implements a single freedesktop shared-mime-info filename
// pattern: a weighted, optionally case-sensitive shell glob.
package glob

import (
	"regexp"
	"strings"
)

// metaChars is the set of glob metacharacters recognized by the classifier
// in the repository package (literal vs extension vs "other" pattern).
const metaChars = "*?{}![]^"

// DefaultWeight is the weight assigned to a glob when its database entry
// does not specify one.
const DefaultWeight = 50

// Glob is one filename pattern with a weight and a case-sensitivity flag.
type Glob struct {
	Pattern       string
	Weight        int
	CaseSensitive bool

	re *regexp.Regexp
}

// New builds a Glob and eagerly compiles its regular expression.
//
// weight is the database's literal weight attribute; 0 is a legitimate
// value distinct from "attribute absent" (spec §3's [0,100] range), so only
// a negative weight — never usable by a real database entry — is treated
// as "unspecified" and promoted to DefaultWeight. Callers resolving an
// absent XML attribute do so themselves before calling New (see
// internal/codec/xmldb.decodeGlob).
//
// The repository is build-once-then-read-many (spec §5), so compiling here
// rather than lazily on first Matches avoids any runtime mutation of the
// Glob value after the repository is handed to callers.
func New(pattern string, weight int, caseSensitive bool) *Glob {
	if weight < 0 {
		weight = DefaultWeight
	}

	g := &Glob{
		Pattern:       pattern,
		Weight:        weight,
		CaseSensitive: caseSensitive,
	}

	if pattern != "" {
		g.re = compile(pattern, caseSensitive)
	}

	return g
}

// Matches reports whether filename matches this glob's pattern.
func (g *Glob) Matches(filename string) bool {
	if g == nil || g.Pattern == "" || filename == "" || g.re == nil {
		return false
	}

	return g.re.MatchString(filename)
}

// HasMeta reports whether pattern contains any shell-glob metacharacter.
func HasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, metaChars)
}

// compile translates a shell glob into an anchored regular expression: `*`
// becomes `.*`, `?` becomes `.`, a `[...]` class is preserved verbatim, and
// every other rune is escaped literally.
func compile(pattern string, caseSensitive bool) *regexp.Regexp {
	var b strings.Builder

	b.WriteString(`\A`)

	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteByte('.')
		case '[':
			j := i + 1

			for j < len(runes) && runes[j] != ']' {
				j++
			}

			if j < len(runes) {
				b.WriteString(regexp.QuoteMeta("") + string(runes[i:j+1]))
				i = j
			} else {
				b.WriteString(regexp.QuoteMeta(string(r)))
			}
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}

	b.WriteString(`\z`)

	expr := b.String()
	if !caseSensitive {
		expr = "(?i)" + expr
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		// A malformed [...] class falls back to a literal match: this can
		// only happen for a hand-crafted pathological pattern, never for a
		// well-formed freedesktop database entry.
		return regexp.MustCompile(`\A` + regexp.QuoteMeta(pattern) + `\z`)
	}

	return re
}
