// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package detector implements the resolution strategies of spec.md §4.6: a
// thin facade over the repository that reads a sized content prefix and
// returns the repository's resolved best guess, plus an alternate strategy
// that delegates content detection to an external command and combines it
// with the filename candidates by the filename/content merge rule (Merge).
//
// Both strategies satisfy the same Detector interface: a tagged variant,
// not an inheritance hierarchy (spec.md §9).
package detector

import (
	"io"
	"path"

	"github.com/go-mimekit/mimekit/internal/mimetype"
)

// Repository is the narrow slice of repository.Repository a Detector needs.
// Kept as an interface here to avoid an import cycle with the repository
// package and to make RepositoryDetector trivially testable.
type Repository interface {
	MaxTestBytes() int
	DetectByFilename(filePath string) []*mimetype.MimeType
	DetectByContent(buf []byte, n int) []*mimetype.MimeType
	Detect(filename string, buf []byte, n int, alwaysCheckMagic bool) []*mimetype.MimeType
}

// Detector is the polymorphic capability set of spec.md §9: guess from a
// filename, from content, or from both.
type Detector interface {
	// GuessFromFilename returns filename-only candidates.
	GuessFromFilename(filename string) []*mimetype.MimeType
	// GuessFromContent returns content-only candidates, reading up to
	// maxBytes leading bytes of r.
	GuessFromContent(r Reader, maxBytes int) ([]*mimetype.MimeType, error)
	// Guess applies the implementation's full detection strategy and
	// returns a single best-guess MimeType, or nil if neither signal
	// produced one.
	Guess(filename string, r Reader) (*mimetype.MimeType, error)
}

// Reader is the minimal capability needed to sniff a content prefix: a
// seekable-from-start reader. *os.File and bytes.Reader both satisfy it.
type Reader interface {
	ReadAt(p []byte, off int64) (int, error)
}

// Basename extracts the candidate filename a Detector should use: the
// caller-supplied name always wins over one derived from a path or URL
// (spec.md §4.6).
func Basename(explicitName, fallbackPath string) string {
	if explicitName != "" {
		return path.Base(explicitName)
	}

	if fallbackPath != "" {
		return path.Base(fallbackPath)
	}

	return ""
}

// ReadPrefix reads up to len(buf) leading bytes from r into buf, looping
// over short reads the way io.ReaderAt's contract permits. Unlike
// blkid/internal/utils.ReadFullAt (which treats a short final read as
// io.ErrUnexpectedEOF), an EOF here is not an error: a file smaller than
// maxTestBytes simply yields fewer valid bytes (spec.md §4.6).
func ReadPrefix(r Reader, buf []byte) (int, error) {
	var (
		n      int
		offset int64
	)

	for n < len(buf) {
		m, err := r.ReadAt(buf[n:], offset)
		n += m
		offset += int64(m)

		if err != nil {
			if err == io.EOF { //nolint:errorlint // io.ReaderAt never wraps io.EOF
				return n, nil
			}

			return n, err
		}
	}

	return n, nil
}

// Merge applies the merge rule of spec.md §4.6 to pick a single winner from
// the filename-candidate and content-candidate lists.
func Merge(nameList, contentList []*mimetype.MimeType) *mimetype.MimeType {
	switch {
	case len(nameList) == 0 && len(contentList) == 0:
		return nil
	case len(nameList) == 0:
		return contentList[0]
	case len(contentList) == 0:
		return nameList[0]
	}

	for _, n := range nameList {
		for _, c := range contentList {
			if n.Name == c.Name {
				return n
			}
		}
	}

	return contentList[0]
}
