package builder

import (
	"github.com/cfoust/resforge/pkg/ids"
	"github.com/cfoust/resforge/pkg/resource"
	"github.com/cfoust/resforge/pkg/store"
)

// AssetBuilder lists everything one asset needs, without the asset itself.
type AssetBuilder struct {
	store *store.Store
	entry *store.Entry
	usage *CharacterUsageMap
	walk  *walker

	seen idSet
	out  []ids.AssetID
}

func NewAssetBuilder(entry *store.Entry) *AssetBuilder {
	b := &AssetBuilder{
		store: entry.Store(),
		entry: entry,
		usage: NewCharacterUsageMap(entry.Store()),
	}

	b.walk = &walker{
		usage: b.usage,
		add:   b.add,
		characterUsed: func(current scope, index uint32) bool {
			return b.usage.IsCharacterUsed(current.animSet, index)
		},
	}
	return b
}

func (b *AssetBuilder) BuildDependencyList() []ids.AssetID {
	b.seen = make(idSet)
	b.out = nil

	// The root is never listed, even if something refers back to it
	b.seen.add(b.entry.ID())

	b.usage.FindUsagesForAsset(b.entry)

	// A root animation set is not the current set, so its characters only
	// expand when character usage is bypassed.
	root := scope{
		parent:  b.entry,
		animSet: ids.Invalid(b.store.Game().IDLength()),
	}

	b.walk.evaluate(root, b.entry.Dependencies())
	return b.out
}

func (b *AssetBuilder) add(s scope, id ids.AssetID) {
	entry := b.store.FindEntry(id)
	if entry == nil || b.seen.has(id) {
		return
	}

	b.seen.add(id)

	child := s.parentIs(entry)
	if entry.ResourceType() == resource.AnimSet {
		child.animSet = id
	}

	b.walk.evaluate(child, entry.Dependencies())
	b.out = append(b.out, id)
}
