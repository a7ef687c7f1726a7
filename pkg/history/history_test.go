package history

import (
	"path/filepath"
	"testing"

	"github.com/repeale/fp-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cfoust/resforge/pkg/game"
	"github.com/cfoust/resforge/pkg/ids"
)

func TestHistory(t *testing.T) {
	history, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer history.Close()

	last, err := history.Last("Metroid1")
	require.NoError(t, err)
	assert.True(t, opt.IsNone(last))

	first := []ids.AssetID{0x10, 0x11, 0x12}
	_, err = history.Record("Metroid1", game.Prime, first, 1024)
	require.NoError(t, err)

	second := []ids.AssetID{0x10, 0x13}
	recorded, err := history.Record("Metroid1", game.Prime, second, 512)
	require.NoError(t, err)
	assert.Equal(t, Fingerprint(second), recorded.Fingerprint)

	_, err = history.Record("Metroid2", game.Prime, first, 2048)
	require.NoError(t, err)

	last, err = history.Last("Metroid1")
	require.NoError(t, err)
	require.True(t, opt.IsSome(last))
	assert.Equal(t, "Prime", last.Value.Game)
	assert.Equal(t, int64(512), last.Value.Size)
	assert.Equal(t, 2, last.Value.NumAssets)

	assets, err := last.Value.AssetIDs()
	require.NoError(t, err)
	assert.Equal(t, second, assets)

	cooks, err := history.Cooks("Metroid1")
	require.NoError(t, err)
	require.Len(t, cooks, 2)
	assert.Equal(t, Fingerprint(first), cooks[0].Fingerprint)
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, Fingerprint([]ids.AssetID{1, 2}), Fingerprint([]ids.AssetID{1, 2}))
	assert.NotEqual(t, Fingerprint([]ids.AssetID{1, 2}), Fingerprint([]ids.AssetID{2, 1}))
}

func TestCompare(t *testing.T) {
	added, removed := Compare(
		[]ids.AssetID{0x1, 0x2, 0x3, 0x3},
		[]ids.AssetID{0x3, 0x4, 0x1, 0x4},
	)
	assert.Equal(t, []ids.AssetID{0x4}, added)
	assert.Equal(t, []ids.AssetID{0x2}, removed)

	added, removed = Compare(nil, []ids.AssetID{0x1})
	assert.Equal(t, []ids.AssetID{0x1}, added)
	assert.Empty(t, removed)
}
