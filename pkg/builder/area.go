package builder

import (
	"fmt"
	"sort"

	"github.com/cfoust/resforge/pkg/deps"
	"github.com/cfoust/resforge/pkg/game"
	"github.com/cfoust/resforge/pkg/ids"
	"github.com/cfoust/resforge/pkg/resource"
	"github.com/cfoust/resforge/pkg/store"
)

// Corruption's player actor lists a model and skin for every suit. Only
// the default character's assets belong in an area.
var suitProperties = map[uint32]struct{}{
	0x846397A8: {},
	0x685A4C01: {},
	0x9834ECC9: {},
	0x188B8960: {},
	0x134A81E3: {},
	0x4ABF030C: {},
	0x9BF030DC: {},
	0x981263D3: {},
	0x8A8D5AA5: {},
	0xE4734608: {},
	0x3376814D: {},
	0x797CA77E: {},
	0x0EBEC440: {},
	0xBC0952D8: {},
	0xA8778E57: {},
	0x1CB10DBE: {},
}

// The suit a player actor is assumed to wear when nothing says otherwise.
func emptySuitIndex(g game.Game) uint32 {
	if g >= game.EchoesDemo {
		return 3
	}
	return 5
}

// AreaList is the load order of an area's assets.
type AreaList struct {
	Assets []ids.AssetID
	// Index into Assets where each script layer starts. The last offset
	// marks the start of the assets shared by every layer.
	LayerOffsets []uint32
	// Audio groups used by the area, only reported for Prime and earlier
	AudioGroups []ids.AssetID
}

// AreaBuilder lists the assets of one area grouped by script layer.
type AreaBuilder struct {
	store *store.Store
	entry *store.Entry
	usage *CharacterUsageMap
	walk  *walker

	baseSeen    idSet
	layerSeen   idSet
	expanding   idSet
	audioGroups idSet
	out         []ids.AssetID
}

func NewAreaBuilder(entry *store.Entry) *AreaBuilder {
	projectStore := entry.Store()
	b := &AreaBuilder{
		store: projectStore,
		entry: entry,
		usage: NewCharacterUsageMap(projectStore),
	}

	emptySuit := emptySuitIndex(projectStore.Game())
	b.walk = &walker{
		usage: b.usage,
		add:   b.add,
		characterUsed: func(current scope, index uint32) bool {
			return b.usage.IsCharacterUsed(current.animSet, index) ||
				(current.playerActor && index == emptySuit)
		},
		playerActorAnimations: true,
	}
	return b
}

func (b *AreaBuilder) BuildDependencyList() (AreaList, error) {
	if b.entry.ResourceType() != resource.Area {
		return AreaList{}, fmt.Errorf("%s is a %s, not an area", b.entry.ID(), b.entry.ResourceType())
	}

	tree, ok := b.entry.Dependencies().(*deps.Area)
	if !ok {
		return AreaList{}, fmt.Errorf("%s has no area dependency tree", b.entry.ID())
	}

	var (
		list = AreaList{}
		g    = b.store.Game()
		none = ids.Invalid(g.IDLength())
	)

	b.out = nil
	b.baseSeen = make(idSet)
	b.expanding = make(idSet)
	b.audioGroups = make(idSet)

	// Base assets are listed last but no layer may claim them
	for _, child := range tree.Children {
		if id, ok := deps.DependencyID(child); ok {
			b.baseSeen.add(id)
		}
	}

	for layer := 0; layer < tree.NumLayers(); layer++ {
		b.layerSeen = make(idSet)
		b.usage.FindUsagesForLayer(b.entry, layer)
		list.LayerOffsets = append(list.LayerOffsets, uint32(len(b.out)))

		for _, node := range tree.Layer(layer) {
			switch node := node.(type) {
			case *deps.ScriptInstance:
				s := scope{
					parent:      b.entry,
					animSet:     none,
					playerActor: isPlayerActor(node.ObjectType),
				}

				for _, child := range node.Children {
					if s.playerActor && g == game.Corruption && isSuitProperty(child) {
						continue
					}

					if id, ok := deps.DependencyID(child); ok {
						b.add(s, id)
					}
				}
			case *deps.ResourceDependency:
				b.add(scope{parent: b.entry, animSet: none}, node.ID)
			}
		}
	}

	b.baseSeen = make(idSet)
	b.layerSeen = make(idSet)
	list.LayerOffsets = append(list.LayerOffsets, uint32(len(b.out)))

	for _, child := range tree.Children {
		if id, ok := deps.DependencyID(child); ok {
			b.add(scope{parent: b.entry, animSet: none}, id)
		}
	}

	list.Assets = b.out
	for id := range b.audioGroups {
		list.AudioGroups = append(list.AudioGroups, id)
	}
	sort.Slice(list.AudioGroups, func(i, j int) bool {
		return list.AudioGroups[i] < list.AudioGroups[j]
	})

	return list, nil
}

func isSuitProperty(node deps.Node) bool {
	var property uint32
	switch node := node.(type) {
	case *deps.PropertyDependency:
		property = node.PropertyID
	case *deps.CharacterPropertyDependency:
		property = node.PropertyID
	default:
		return false
	}

	_, ok := suitProperties[property]
	return ok
}

func (b *AreaBuilder) add(s scope, id ids.AssetID) {
	entry := b.store.FindEntry(id)
	if entry == nil {
		return
	}

	kind := entry.ResourceType()

	if kind == resource.AudioGroup && b.store.Game() <= game.Prime {
		b.audioGroups.add(id)
		return
	}

	switch kind {
	case resource.StreamedAudio, resource.World, resource.Area:
		return
	}

	if b.baseSeen.has(id) || b.layerSeen.has(id) || b.expanding.has(id) {
		return
	}

	if kind != resource.Scan && kind != resource.DependencyGroup {
		child := s.parentIs(entry)
		if kind == resource.AnimSet {
			child.animSet = id
		}

		b.expanding.add(id)
		b.walk.evaluate(child, entry.Dependencies())
		delete(b.expanding, id)
	}

	// Songs are only walked for their audio groups
	if kind != resource.Midi {
		b.out = append(b.out, id)
		b.layerSeen.add(id)
	}
}
