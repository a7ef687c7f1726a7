package builder

import (
	"github.com/RoaringBitmap/roaring"
	"github.com/repeale/fp-go/option"
	"github.com/rs/zerolog/log"

	"github.com/cfoust/resforge/pkg/deps"
	"github.com/cfoust/resforge/pkg/game"
	"github.com/cfoust/resforge/pkg/ids"
	"github.com/cfoust/resforge/pkg/resource"
	"github.com/cfoust/resforge/pkg/store"
)

// CharacterUsageMap records which characters of each animation set are
// referenced by script properties. Characters that nothing uses are left
// out of dependency lists.
type CharacterUsageMap struct {
	store *store.Store
	usage map[ids.AssetID]*roaring.Bitmap

	// Animation sets found in the first area that later areas may still
	// reference
	stillLooking         map[ids.AssetID]struct{}
	initialArea          bool
	areaAllowsDuplicates bool

	// Scans currently being expanded
	parsing map[ids.AssetID]struct{}
}

func NewCharacterUsageMap(s *store.Store) *CharacterUsageMap {
	m := &CharacterUsageMap{
		store:   s,
		parsing: make(map[ids.AssetID]struct{}),
	}
	m.Clear()
	return m
}

// Every character is considered used from Corruption's prototype onward,
// where characters are separate resources.
func (m *CharacterUsageMap) bypassed() bool {
	return m.store.Game() >= game.CorruptionProto
}

func (m *CharacterUsageMap) IsCharacterUsed(animSet ids.AssetID, index uint32) bool {
	if m.bypassed() {
		return true
	}

	used, ok := m.usage[animSet]
	if !ok {
		return false
	}
	return used.Contains(index)
}

// IsAnimationUsed reports whether any used character of animSet plays the
// animation.
func (m *CharacterUsageMap) IsAnimationUsed(animSet ids.AssetID, anim *deps.SetAnimation) bool {
	if m.bypassed() {
		return anim.IsUsedByAnyCharacter()
	}

	used, ok := m.usage[animSet]
	if !ok {
		return false
	}

	for _, index := range used.ToArray() {
		if anim.IsUsedByCharacter(index) {
			return true
		}
	}
	return false
}

// UsedCharacters lists the used character indices of animSet.
func (m *CharacterUsageMap) UsedCharacters(animSet ids.AssetID) []uint32 {
	used, ok := m.usage[animSet]
	if !ok {
		return nil
	}
	return used.ToArray()
}

func (m *CharacterUsageMap) Clear() {
	m.usage = make(map[ids.AssetID]*roaring.Bitmap)
	m.stillLooking = make(map[ids.AssetID]struct{})
	m.initialArea = true
	m.areaAllowsDuplicates = false
}

func (m *CharacterUsageMap) FindUsagesForAsset(entry *store.Entry) {
	m.Clear()
	m.parse(entry.Dependencies())
}

func areaIndex(world resource.WorldResource, id ids.AssetID) opt.Option[int] {
	for i := 0; i < world.NumAreas(); i++ {
		if world.AreaID(i) == id {
			return opt.Some(i)
		}
	}
	return opt.None[int]()
}

func (m *CharacterUsageMap) FindUsagesForArea(world resource.WorldResource, area ids.AssetID) {
	index := areaIndex(world, area)
	if opt.IsNone(index) {
		log.Warn().Msgf("area %s is not part of world %s", area, world.ID())
		return
	}

	m.FindUsagesForAreaIndex(world, index.Value)
}

// FindUsagesForAreaIndex collects the characters used by an area. Later
// areas that allow duplicates and use the same animation sets contribute
// their usages too, since those areas will not carry their own copy.
func (m *CharacterUsageMap) FindUsagesForAreaIndex(world resource.WorldResource, index int) {
	m.Clear()

	for i := index; i < world.NumAreas(); i++ {
		if !m.initialArea && len(m.stillLooking) == 0 {
			break
		}

		m.areaAllowsDuplicates = world.AllowsPakDuplicates(i)

		entry := m.store.FindEntry(world.AreaID(i))
		if entry == nil || entry.ResourceType() != resource.Area {
			log.Warn().Msgf("world %s references missing area %s", world.ID(), world.AreaID(i))
		} else {
			m.parse(entry.Dependencies())
		}

		m.initialArea = false
	}
}

// FindUsagesForLayer collects the characters used by one script layer of
// an area.
func (m *CharacterUsageMap) FindUsagesForLayer(entry *store.Entry, layer int) {
	m.Clear()

	area, ok := entry.Dependencies().(*deps.Area)
	if !ok {
		return
	}

	for _, node := range area.Layer(layer) {
		m.parse(node)
	}
}

func (m *CharacterUsageMap) markUsed(animSet ids.AssetID, index uint32) {
	used, ok := m.usage[animSet]
	if !ok {
		used = roaring.New()
		m.usage[animSet] = used
	}
	used.Add(index)
}

func (m *CharacterUsageMap) parseCharacter(dep *deps.CharacterPropertyDependency) {
	_, tracked := m.usage[dep.ID]
	_, looking := m.stillLooking[dep.ID]

	if !m.initialArea {
		if !looking {
			return
		}

		// This area carries its own copy of the animation set
		if m.areaAllowsDuplicates {
			delete(m.stillLooking, dep.ID)
			return
		}
	} else if !tracked {
		m.stillLooking[dep.ID] = struct{}{}
	}

	m.markUsed(dep.ID, dep.UsedChar)
}

func (m *CharacterUsageMap) parse(node deps.Node) {
	switch node := node.(type) {
	case nil:
		return
	case *deps.CharacterPropertyDependency:
		m.parseCharacter(node)
	case *deps.ResourceDependency, *deps.PropertyDependency:
		id, _ := deps.DependencyID(node)

		entry := m.store.FindEntry(id)
		if entry == nil || entry.ResourceType() != resource.Scan {
			return
		}

		if _, ok := m.parsing[id]; ok {
			return
		}

		m.parsing[id] = struct{}{}
		m.parse(entry.Dependencies())
		delete(m.parsing, id)
	default:
		for _, child := range deps.Children(node) {
			m.parse(child)
		}
	}
}
