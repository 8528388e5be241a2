// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package mimekit_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-mimekit/mimekit"
	"github.com/go-mimekit/mimekit/internal/glob"
	"github.com/go-mimekit/mimekit/internal/magic"
	"github.com/go-mimekit/mimekit/internal/mimetype"
)

func stringMagic(t *testing.T, priority int, value string) *magic.Magic {
	t.Helper()

	m, err := magic.NewMatcher(magic.TypeString, 0, 0, []byte(value), nil, nil)
	require.NoError(t, err)

	mg, err := magic.NewMagic(priority, []*magic.Matcher{m})
	require.NoError(t, err)

	return mg
}

// fixtureTypes builds the mime-type family used by spec.md §8's end-to-end
// scenario table, mirroring blkid_linux_test.go's table-driven fixture
// style.
func fixtureTypes(t *testing.T) []*mimetype.MimeType {
	t.Helper()

	return []*mimetype.MimeType{
		{
			Name:   "image/png",
			Globs:  []*glob.Glob{glob.New("*.png", 50, false)},
			Magics: []*magic.Magic{stringMagic(t, 50, "\x89PNG")},
		},
		{
			Name:   "application/gzip",
			Globs:  []*glob.Glob{glob.New("*.gz", 50, false)},
			Magics: []*magic.Magic{stringMagic(t, 50, "\x1f\x8b\x08")},
		},
		{
			Name:  "image/x-gzeps",
			Globs: []*glob.Glob{glob.New("*.eps.gz", 60, false)},
		},
		{
			Name:  "application/x-compressed-tar",
			Globs: []*glob.Glob{glob.New("*.tar.gz", 50, false)},
		},
		{
			Name:   "application/msword",
			Magics: []*magic.Magic{stringMagic(t, 60, "\xd0\xcf\x11\xe0")},
		},
		{
			Name:       "application/msword-template",
			Globs:      []*glob.Glob{glob.New("*.dot", 50, false)},
			SuperTypes: []string{"application/msword"},
		},
		{
			Name:  "text/vnd.graphviz",
			Globs: []*glob.Glob{glob.New("*.dot", 50, false)},
		},
		{
			Name:  "image/gif",
			Globs: []*glob.Glob{glob.New("*.gif", 50, false)},
		},
	}
}

func newFixtureDetector(t *testing.T) *mimekit.Detector {
	t.Helper()

	d, err := mimekit.New(mimekit.WithTypes(fixtureTypes(t)))
	require.NoError(t, err)

	return d
}

func TestDetectBytesPNG(t *testing.T) {
	d := newFixtureDetector(t)

	got, err := d.DetectBytes("test.png", []byte("\x89PNG\r\n\x1a\n"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "image/png", got.Name)
}

func TestDetectBytesEpsGzPrefersWeightedGlob(t *testing.T) {
	d := newFixtureDetector(t)

	got, err := d.DetectBytes("test.eps.gz", []byte("\x1f\x8b\x08\x00"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "image/x-gzeps", got.Name)
}

func TestDetectBytesTarGzPrefersFilenameOverContent(t *testing.T) {
	d := newFixtureDetector(t)

	got, err := d.DetectBytes("test.tar.gz", []byte("\x1f\x8b\x08\x00"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "application/x-compressed-tar", got.Name)
}

func TestDetectBytesDotConfirmsViaSupertypeMagic(t *testing.T) {
	d := newFixtureDetector(t)

	got, err := d.DetectBytes("test.dot", []byte("\xd0\xcf\x11\xe0\x00\x00\x00\x00"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "application/msword-template", got.Name)
}

func TestDetectBytesUnknownFallsBackToContent(t *testing.T) {
	d := newFixtureDetector(t)

	got, err := d.DetectBytes("unknown.bin", []byte("\x89PNG\r\n\x1a\n"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "image/png", got.Name)
}

func TestDetectFilenameCaseInsensitive(t *testing.T) {
	d := newFixtureDetector(t)

	got := d.DetectFilename("IMAGE.GIF")
	require.NotNil(t, got)
	assert.Equal(t, "image/gif", got.Name)
}

func TestDetectURLUsesPathBasenameOnly(t *testing.T) {
	d := newFixtureDetector(t)

	got, err := d.DetectURL("https://example.com/files/test.png?version=2")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "image/png", got.Name)
}

func TestLookupUnknownMimeType(t *testing.T) {
	d := newFixtureDetector(t)

	_, err := d.Lookup("does/not-exist")
	require.Error(t, err)
	assert.ErrorIs(t, err, mimekit.ErrUnknownMimeType)
}

func TestLookupResolvesByName(t *testing.T) {
	d := newFixtureDetector(t)

	got, err := d.Lookup("image/png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", got.Name)
}

func TestMaxTestBytesReflectsLongestMatcher(t *testing.T) {
	d := newFixtureDetector(t)

	// Longest matcher is msword's 4-byte value at offset 0.
	assert.Equal(t, 4, d.MaxTestBytes())
}

func TestDefaultFallbacks(t *testing.T) {
	d := newFixtureDetector(t)

	assert.Equal(t, "application/octet-stream", d.DefaultBinary())
	assert.Equal(t, "text/plain", d.DefaultText())
}

func TestDetectStreamEmptyFilenameContentOnly(t *testing.T) {
	d := newFixtureDetector(t)

	got, err := d.DetectStream("", strings.NewReader("\x89PNG\r\n\x1a\n"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "image/png", got.Name)
}

// TestDefaultIsAProcessWideSingleton exercises spec.md §5: the first call to
// Default wins and every later call observes the same built repository,
// independent of what a later call's own opts would have produced. This is
// the only test in the package allowed to touch Default/RebuildDefault,
// since the underlying singleton (internal/repository.Get) initializes
// exactly once per test binary.
func TestDefaultIsAProcessWideSingleton(t *testing.T) {
	first, err := mimekit.Default(mimekit.WithTypes(fixtureTypes(t)))
	require.NoError(t, err)

	got, err := first.Lookup("image/png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", got.Name)

	// A later call with different opts does not rebuild the singleton: the
	// first builder already ran.
	second, err := mimekit.Default(mimekit.WithTypes(nil))
	require.NoError(t, err)

	got, err = second.Lookup("image/png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", got.Name)

	// RebuildDefault performs the only supported replacement: a whole-
	// repository atomic swap. An empty database path yields an empty,
	// still-valid repository.
	require.NoError(t, mimekit.RebuildDefault())

	third, err := mimekit.Default()
	require.NoError(t, err)

	_, err = third.Lookup("image/png")
	assert.ErrorIs(t, err, mimekit.ErrUnknownMimeType)
}
