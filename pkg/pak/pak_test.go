package pak

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cfoust/resforge/pkg/game"
	"github.com/cfoust/resforge/pkg/ids"
)

func noise(size int) []byte {
	data := make([]byte, size)
	rand.New(rand.NewSource(1)).Read(data)
	return data
}

func TestArchiveRoundTrip(t *testing.T) {
	txtr := ids.FromString("TXTR")
	strg := ids.FromString("STRG")

	named := []NamedResource{
		{Name: "Strings", ID: 0x20, Type: strg},
		{Name: "Logo", ID: 0x10, Type: txtr},
	}

	for _, g := range []game.Game{game.Prime, game.Echoes, game.Corruption, game.DKCReturns} {
		version := VersionFor(g)

		blobs := []struct {
			kind     ids.FourCC
			id       ids.AssetID
			data     []byte
			compress bool
		}{
			{txtr, 0x10, bytes.Repeat([]byte{0xAB}, 4096), true},
			{txtr, 0x11, noise(1000), true},
			{strg, 0x20, []byte("hello"), false},
			// Duplicates are allowed
			{txtr, 0x10, bytes.Repeat([]byte{0xAB}, 4096), true},
		}

		writer := NewWriter(g, named, len(blobs))
		assert.Equal(t, version, writer.Version())

		for _, blob := range blobs {
			record, err := writer.Add(blob.kind, blob.id, blob.data, blob.compress)
			require.NoError(t, err)
			assert.Zero(t, int(record.Offset)%version.Alignment())
		}

		_, err := writer.Add(strg, 0x30, nil, false)
		require.Error(t, err)

		data, err := writer.Finish()
		require.NoError(t, err)
		assert.Zero(t, len(data)%version.Alignment())

		archive, err := Open(data, g)
		require.NoError(t, err)
		assert.Equal(t, named, archive.Named)
		require.Len(t, archive.Resources, len(blobs))

		// Noise does not compress, so it is stored as is
		assert.Equal(t, []bool{true, false, false, true}, []bool{
			archive.Resources[0].Compressed,
			archive.Resources[1].Compressed,
			archive.Resources[2].Compressed,
			archive.Resources[3].Compressed,
		})

		for i, blob := range blobs {
			record := archive.Resources[i]
			assert.Equal(t, blob.id, record.ID)
			assert.Equal(t, blob.kind, record.Type)

			extracted, err := archive.Extract(record)
			require.NoError(t, err)
			assert.Equal(t, blob.data, extracted)
		}

		found, ok := archive.Find(0x20)
		require.True(t, ok)
		assert.Equal(t, uint32(5), found.Size)
		_, ok = archive.Find(0x99)
		assert.False(t, ok)
	}
}

func TestV1Layout(t *testing.T) {
	writer := NewWriter(game.Prime, []NamedResource{
		{Name: "A", ID: 0x1, Type: ids.FromString("TXTR")},
	}, 1)
	_, err := writer.Add(ids.FromString("TXTR"), 0x1, []byte{1, 2, 3}, false)
	require.NoError(t, err)
	data, err := writer.Finish()
	require.NoError(t, err)

	assert.Equal(t, []byte{
		0x00, 0x03, 0x00, 0x05,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x01,
		'T', 'X', 'T', 'R',
		0x00, 0x00, 0x00, 0x01,
		0x00, 0x00, 0x00, 0x01,
		'A',
		0x00, 0x00, 0x00, 0x01,
		0x00, 0x00, 0x00, 0x00,
		'T', 'X', 'T', 'R',
		0x00, 0x00, 0x00, 0x01,
		0x00, 0x00, 0x00, 0x03,
		0x00, 0x00, 0x00, 0x40,
	}, data[:49])
	assert.Len(t, data, 96)
	assert.Equal(t, []byte{1, 2, 3}, data[64:67])
}

func TestMalformed(t *testing.T) {
	writer := NewWriter(game.Corruption, nil, 1)
	_, err := writer.Add(ids.FromString("TXTR"), 0x1, []byte{1}, false)
	require.NoError(t, err)

	_, err = writer.Finish()
	require.NoError(t, err)

	incomplete := NewWriter(game.Prime, nil, 2)
	_, err = incomplete.Finish()
	require.Error(t, err)

	for name, data := range map[string][]byte{
		"empty":         {},
		"wrong version": {0x00, 0x03, 0x00, 0x06, 0, 0, 0, 0, 0, 0, 0, 0},
		"truncated":     {0x00, 0x03, 0x00, 0x05, 0, 0, 0, 0, 0, 0, 0, 1, 'T'},
		"huge count":    {0x00, 0x03, 0x00, 0x05, 0, 0, 0, 0, 0, 0, 0, 0, 0xFF, 0xFF, 0xFF, 0xFF},
	} {
		_, err := Open(data, game.Prime)
		require.ErrorIs(t, err, Malformed, name)
	}

	// A v2 pak whose section table was damaged
	good := NewWriter(game.Corruption, nil, 0)
	data, err := good.Finish()
	require.NoError(t, err)
	_, err = Open(data, game.Corruption)
	require.NoError(t, err)

	damaged := append([]byte{}, data...)
	copy(damaged[0x44:], "XXXX")
	_, err = Open(damaged, game.Corruption)
	require.ErrorIs(t, err, Malformed)

	// Prime paks are not v2
	_, err = Open(data, game.Prime)
	require.ErrorIs(t, err, Malformed)

	// Compressed blocks claiming an impossible size
	for g, sizeOffset := range map[game.Game]uint32{game.Prime: 0, game.Corruption: 12} {
		writer := NewWriter(g, nil, 1)
		_, err := writer.Add(ids.FromString("TXTR"), 0x1, bytes.Repeat([]byte{0xAB}, 4096), true)
		require.NoError(t, err)
		data, err := writer.Finish()
		require.NoError(t, err)

		archive, err := Open(data, g)
		require.NoError(t, err)
		record := archive.Resources[0]
		require.True(t, record.Compressed)

		copy(data[record.Offset+sizeOffset:], []byte{0xFF, 0xFF, 0xFF, 0xFF})
		_, err = archive.Extract(record)
		require.ErrorIs(t, err, Malformed, g.String())
	}
}

func TestDefinitions(t *testing.T) {
	fs := memfs.New()

	packages, err := LoadDefinitions(fs)
	require.NoError(t, err)
	assert.Empty(t, packages)

	intro := &Package{
		Name: "Metroid1",
		Path: "Worlds/",
		Collections: []Collection{{
			Name: "Default",
			Resources: []NamedResource{
				{Name: "Intro", ID: 0x158EFE17, Type: ids.FromString("MLVL")},
			},
		}, {
			Name: "Strings",
			Resources: []NamedResource{
				{Name: "Strings_NODEPEND", ID: 0x1, Type: ids.FromString("STRG")},
			},
		}},
	}
	universe := &Package{Name: "UniverseArea"}

	require.NoError(t, intro.Save(fs))
	require.NoError(t, universe.Save(fs))
	assert.Equal(t, "Packages/Worlds/Metroid1.pkd", intro.DefinitionPath())
	assert.Equal(t, "Disc/Worlds/Metroid1.pak", intro.CookedPath("Disc"))

	packages, err = LoadDefinitions(fs)
	require.NoError(t, err)
	require.Len(t, packages, 2)
	assert.Equal(t, "UniverseArea", packages[0].Name)
	assert.Equal(t, intro, packages[1])

	assert.True(t, intro.ContainsAsset(0x1))
	assert.False(t, intro.ContainsAsset(0x2))
	named, ok := intro.FindResource("Intro")
	require.True(t, ok)
	assert.Equal(t, ids.AssetID(0x158EFE17), named.ID)
	assert.Len(t, intro.NamedResources(), 2)
}
