// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-mimekit/mimekit/internal/config"
)

func TestDefault(t *testing.T) {
	c := config.Default()

	assert.False(t, c.Rebuild)
	assert.True(t, c.Save)
	assert.False(t, c.CheckMagic)
	assert.Equal(t, "application/octet-stream", c.DefaultBinary)
	assert.Equal(t, "text/plain", c.DefaultText)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	c, err := config.Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), c)
}

func TestLoadParsesDocumentAndOverlaysOptions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mimekit.yaml")

	doc := `
rebuild: true
checkMagic: true
database: /usr/share/mime
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	c, err := config.Load(path, config.WithSave(false))
	require.NoError(t, err)

	assert.True(t, c.Rebuild)
	assert.True(t, c.CheckMagic)
	assert.False(t, c.Save)
	assert.Equal(t, "/usr/share/mime", c.Database)
}

func TestNewExpandsUserHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	c, err := config.New(config.WithSerialization("${user.home}/.cache/mimekit.bin"))
	require.NoError(t, err)

	assert.Equal(t, home+"/.cache/mimekit.bin", c.Serialization)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mimekit.yaml")

	original := config.Default()
	original.Database = "/custom/mime"

	require.NoError(t, config.Save(path, original))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, original, loaded)
}
