// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package detector

import (
	"github.com/go-mimekit/mimekit/internal/mimetype"
)

// RepositoryDetector is the default Detector: it answers every query from a
// Repository's filename indices and magic scan.
//
// Grounded on blkid/blkid_linux.go's Probe/fillProbeResult and
// blkid/probe_linux.go's (*Info).probe: read a prefix sized to the chain's
// max reach, run the magic chain, return the winner.
type RepositoryDetector struct {
	Repo Repository

	// AlwaysCheckMagic is the Detector's default for alwaysCheckMagic
	// (spec.md §6 "checkMagic" configuration option).
	AlwaysCheckMagic bool
}

var _ Detector = (*RepositoryDetector)(nil)

// NewRepositoryDetector builds a RepositoryDetector over repo.
func NewRepositoryDetector(repo Repository, alwaysCheckMagic bool) *RepositoryDetector {
	return &RepositoryDetector{Repo: repo, AlwaysCheckMagic: alwaysCheckMagic}
}

// GuessFromFilename returns the filename-only candidates.
func (d *RepositoryDetector) GuessFromFilename(filename string) []*mimetype.MimeType {
	if d.Repo == nil {
		return nil
	}

	return d.Repo.DetectByFilename(filename)
}

// GuessFromContent reads up to maxBytes leading bytes of r and returns the
// content-only candidates.
func (d *RepositoryDetector) GuessFromContent(r Reader, maxBytes int) ([]*mimetype.MimeType, error) {
	if d.Repo == nil {
		return nil, nil
	}

	if maxBytes <= 0 {
		maxBytes = d.Repo.MaxTestBytes()
	}

	buf := make([]byte, maxBytes)

	n, err := ReadPrefix(r, buf)
	if err != nil && n == 0 {
		return nil, err
	}

	return d.Repo.DetectByContent(buf, n), nil
}

// Guess runs the repository's full filename+content resolution algorithm
// (Repository.Detect) over filename and the content prefix of r and returns
// its first candidate, or nil if there is none. Merge is not applied here.
func (d *RepositoryDetector) Guess(filename string, r Reader) (*mimetype.MimeType, error) {
	if d.Repo == nil {
		return nil, nil
	}

	maxBytes := d.Repo.MaxTestBytes()
	buf := make([]byte, maxBytes)

	n := 0

	if r != nil {
		var err error

		n, err = ReadPrefix(r, buf)
		if err != nil && n == 0 {
			return nil, err
		}
	}

	candidates := d.Repo.Detect(filename, buf, n, d.AlwaysCheckMagic)
	if len(candidates) == 0 {
		return nil, nil
	}

	return candidates[0], nil
}
