package io

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cfoust/resforge/pkg/ids"
)

func TestBufferIDs(t *testing.T) {
	buf := Buffer{}
	buf.PutID(0xAABBCCDD, ids.Length32)
	buf.PutID(0x0102030405060708, ids.Length64)
	assert.Equal(t, 12, len(buf))
	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC, 0xDD}, []byte(buf[:4]))

	short, ok := buf.GetID(ids.Length32)
	require.True(t, ok)
	assert.Equal(t, ids.AssetID(0xAABBCCDD), short)

	long, ok := buf.GetID(ids.Length64)
	require.True(t, ok)
	assert.Equal(t, ids.AssetID(0x0102030405060708), long)

	_, ok = buf.GetUint32()
	assert.False(t, ok)
}

func TestBufferStrings(t *testing.T) {
	buf := Buffer{}
	buf.PutString("Metroid")
	buf.PutCString("Samus")
	buf.PutFourCC(ids.FromString("STRG"))

	value, ok := buf.GetString()
	require.True(t, ok)
	assert.Equal(t, "Metroid", value)

	value, ok = buf.GetCString()
	require.True(t, ok)
	assert.Equal(t, "Samus", value)

	tag, ok := buf.GetFourCC()
	require.True(t, ok)
	assert.Equal(t, "STRG", tag.String())
	assert.Empty(t, buf)
}

func TestBufferPadding(t *testing.T) {
	assert.Equal(t, 0, Align(0, 32))
	assert.Equal(t, 32, Align(1, 32))
	assert.Equal(t, 64, Align(64, 64))
	assert.Equal(t, 7, Align(7, 0))

	buf := Buffer{1, 2, 3}
	buf.Pad(32)
	assert.Equal(t, 32, len(buf))

	buf.SetUint32(4, 0xDEADBEEF)
	read := buf[4:]
	value, ok := read.GetUint32()
	require.True(t, ok)
	assert.Equal(t, uint32(0xDEADBEEF), value)

	var a, b uint16
	buf = Buffer{}
	require.NoError(t, buf.Put(uint16(1), uint16(2)))
	require.NoError(t, buf.Get(&a, &b))
	assert.Equal(t, uint16(1), a)
	assert.Equal(t, uint16(2), b)
}
