// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package cache_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-mimekit/mimekit/internal/codec/cache"
	"github.com/go-mimekit/mimekit/internal/codec/xmldb"
	"github.com/go-mimekit/mimekit/internal/glob"
	"github.com/go-mimekit/mimekit/internal/magic"
	"github.com/go-mimekit/mimekit/internal/mimetype"
)

const sampleDB = `<?xml version="1.0" encoding="UTF-8"?>
<mime-info xmlns="http://www.freedesktop.org/standards/shared-mime-info">
  <mime-type type="image/png">
    <comment>PNG image</comment>
    <comment xml:lang="fr">image PNG</comment>
    <glob pattern="*.png" weight="50"/>
    <magic priority="50">
      <match type="string" offset="0" value="\x89PNG\r\n\x1a\n"/>
    </magic>
  </mime-type>
  <mime-type type="application/msword-template">
    <sub-class-of type="application/msword"/>
    <glob pattern="*.dot"/>
  </mime-type>
  <mime-type type="text/x-csrc">
    <alias type="text/csrc"/>
    <glob pattern="*.c" case-sensitive="true"/>
    <magic priority="40">
      <match type="string" offset="0:8" value="#include">
        <match type="byte" offset="9" value="0x20"/>
      </match>
    </magic>
  </mime-type>
</mime-info>`

func TestEncodeDecodeRoundTrip(t *testing.T) {
	types, err := xmldb.Decode(strings.NewReader(sampleDB))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, cache.Encode(&buf, types))

	got, err := cache.Decode(&buf)
	require.NoError(t, err)
	require.Len(t, got, 3)

	png := got[0]
	assert.Equal(t, "image/png", png.Name)
	assert.Equal(t, "PNG image", png.Descriptions[""])
	assert.Equal(t, "image PNG", png.Descriptions["fr"])
	require.Len(t, png.Globs, 1)
	assert.Equal(t, "*.png", png.Globs[0].Pattern)
	require.Len(t, png.Magics, 1)
	assert.True(t, png.Magics[0].Matches([]byte("\x89PNG\r\n\x1a\nrest"), 12))

	template := got[1]
	assert.Equal(t, []string{"application/msword"}, template.SuperTypes)

	csrc := got[2]
	assert.Equal(t, []string{"text/csrc"}, csrc.Aliases)
	require.Len(t, csrc.Globs, 1)
	assert.True(t, csrc.Globs[0].CaseSensitive)
	require.Len(t, csrc.Magics, 1)
	require.Len(t, csrc.Magics[0].Matchers, 1)
	assert.Len(t, csrc.Magics[0].Matchers[0].SubMatchers, 1)
}

func TestDecodeRejectsBadSignature(t *testing.T) {
	_, err := cache.Decode(strings.NewReader("not a cache file"))
	require.Error(t, err)

	var invalid *cache.InvalidCacheError
	assert.ErrorAs(t, err, &invalid)
}

func TestDecodeRejectsTruncatedStream(t *testing.T) {
	types, err := xmldb.Decode(strings.NewReader(sampleDB))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, cache.Encode(&buf, types))

	truncated := buf.Bytes()[:buf.Len()/2]

	_, err = cache.Decode(bytes.NewReader(truncated))
	require.Error(t, err)

	var invalid *cache.InvalidCacheError
	assert.ErrorAs(t, err, &invalid)
}

func TestEncodeDecodeRoundTripPreservesExplicitZeroWeightAndPriority(t *testing.T) {
	// Property 2 from spec.md §8: decode(encode(r)) == r. Weight and priority
	// are [0,100] with 0 a legitimate explicit value (spec §3), so the cache
	// codec must not silently promote an explicit 0 to the 50 default the
	// way glob.New/magic.NewMagic do for a true "unspecified" (negative)
	// value.
	matcher, err := magic.NewMatcher(magic.TypeByte, 0, 0, []byte{0x00}, nil, nil)
	require.NoError(t, err)

	m, err := magic.NewMagic(0, []*magic.Matcher{matcher})
	require.NoError(t, err)

	types := []*mimetype.MimeType{
		{
			Name:   "application/x-zero-weighted",
			Globs:  []*glob.Glob{glob.New("*.zw", 0, false)},
			Magics: []*magic.Magic{m},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, cache.Encode(&buf, types))

	got, err := cache.Decode(&buf)
	require.NoError(t, err)
	require.Len(t, got, 1)

	require.Len(t, got[0].Globs, 1)
	assert.Equal(t, 0, got[0].Globs[0].Weight)

	require.Len(t, got[0].Magics, 1)
	assert.Equal(t, 0, got[0].Magics[0].Priority)
}

func TestEncodeEmptySet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, cache.Encode(&buf, nil))

	got, err := cache.Decode(&buf)
	require.NoError(t, err)
	assert.Empty(t, got)
}
