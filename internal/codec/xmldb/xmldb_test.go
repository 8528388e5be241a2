// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package xmldb_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-mimekit/mimekit/internal/codec/xmldb"
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

func TestDecode(t *testing.T) {
	types, err := xmldb.Decode(strings.NewReader(sampleDB))
	require.NoError(t, err)
	require.Len(t, types, 3)

	png := types[0]
	assert.Equal(t, "image/png", png.Name)
	assert.Equal(t, "PNG image", png.Descriptions[""])
	assert.Equal(t, "image PNG", png.Descriptions["fr"])
	require.Len(t, png.Globs, 1)
	assert.Equal(t, "*.png", png.Globs[0].Pattern)
	require.Len(t, png.Magics, 1)
	assert.True(t, png.Magics[0].Matches([]byte("\x89PNG\r\n\x1a\nrest"), 12))

	template := types[1]
	assert.Equal(t, []string{"application/msword"}, template.SuperTypes)

	csrc := types[2]
	assert.Equal(t, []string{"text/csrc"}, csrc.Aliases)
	require.Len(t, csrc.Globs, 1)
	assert.True(t, csrc.Globs[0].CaseSensitive)
	require.Len(t, csrc.Magics, 1)
	require.Len(t, csrc.Magics[0].Matchers, 1)
	assert.Len(t, csrc.Magics[0].Matchers[0].SubMatchers, 1)
}

func TestDecodeNumericTypes(t *testing.T) {
	const db = `<mime-info>
  <mime-type type="application/x-demo">
    <magic priority="50">
      <match type="big16" offset="0" value="0x1234"/>
      <match type="little32" offset="4" value="1000"/>
      <match type="byte" offset="8" value="0x7f" mask="0x7f"/>
    </magic>
  </mime-type>
</mime-info>`

	types, err := xmldb.Decode(strings.NewReader(db))
	require.NoError(t, err)
	require.Len(t, types, 1)
	require.Len(t, types[0].Magics[0].Matchers, 3)

	assert.True(t, types[0].Magics[0].Matchers[0].Matches([]byte{0x12, 0x34}, 2))
}

func TestDecodeMalformedMissingType(t *testing.T) {
	const db = `<mime-info><mime-type type=""/></mime-info>`

	_, err := xmldb.Decode(strings.NewReader(db))
	assert.Error(t, err)

	var malformed *xmldb.MalformedError
	assert.ErrorAs(t, err, &malformed)
}

func TestDecodeMalformedUnknownMatchType(t *testing.T) {
	const db = `<mime-info>
  <mime-type type="x/y">
    <magic><match type="bogus" value="x"/></magic>
  </mime-type>
</mime-info>`

	_, err := xmldb.Decode(strings.NewReader(db))
	assert.Error(t, err)
}

func TestDecodeMalformedOffsetInverted(t *testing.T) {
	const db = `<mime-info>
  <mime-type type="x/y">
    <magic><match type="string" offset="5:2" value="x"/></magic>
  </mime-type>
</mime-info>`

	_, err := xmldb.Decode(strings.NewReader(db))
	assert.Error(t, err)
}

func TestDecodeMalformedStringMaskLengthMismatch(t *testing.T) {
	const db = `<mime-info>
  <mime-type type="x/y">
    <magic><match type="string" value="ab" mask="0xff"/></magic>
  </mime-type>
</mime-info>`

	_, err := xmldb.Decode(strings.NewReader(db))
	assert.Error(t, err)
}
