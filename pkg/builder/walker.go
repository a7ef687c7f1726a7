package builder

import (
	"github.com/cfoust/resforge/pkg/deps"
	"github.com/cfoust/resforge/pkg/ids"
	"github.com/cfoust/resforge/pkg/store"
)

const playerActorFourCC = 0x504C4143 // PLAC

func isPlayerActor(objectType uint32) bool {
	return objectType == 0x4C || objectType == playerActorFourCC
}

// scope is the traversal state for one node. Each resource that gets
// expanded derives a new scope for its own tree.
type scope struct {
	// Resource whose tree is being evaluated, nil at the top level
	parent      *store.Entry
	animSet     ids.AssetID
	playerActor bool
	// The enclosing area may repeat assets other areas already have
	duplicates bool
	// The named resource being expanded belongs to the universal area
	universal bool
}

func (s scope) parentIs(entry *store.Entry) scope {
	s.parent = entry
	return s
}

// walker evaluates dependency nodes. The builders differ in what they do
// with each referenced asset and in how generous the character filter is.
type walker struct {
	usage *CharacterUsageMap
	add   func(s scope, id ids.AssetID)

	characterUsed func(s scope, index uint32) bool
	// Player actors keep every animation used by some character
	playerActorAnimations bool
}

func (w *walker) evaluate(s scope, node deps.Node) {
	if node == nil {
		return
	}

	expand := false

	switch node := node.(type) {
	case *deps.ResourceDependency, *deps.PropertyDependency, *deps.CharacterPropertyDependency:
		id, _ := deps.DependencyID(node)
		w.add(s, id)
	case *deps.AnimEvent:
		if node.CharIndex == deps.NoCharacter || w.usage.IsCharacterUsed(s.animSet, node.CharIndex) {
			w.add(s, node.ID)
		}
	case *deps.SetCharacter:
		expand = w.characterUsed(s, node.CharSetIndex)
	case *deps.SetAnimation:
		expand = w.usage.IsAnimationUsed(s.animSet, node) ||
			(w.playerActorAnimations && s.playerActor && node.IsUsedByAnyCharacter())
	case *deps.ScriptInstance:
		s.playerActor = isPlayerActor(node.ObjectType)
		expand = true
	default:
		expand = true
	}

	if !expand {
		return
	}

	for _, child := range deps.Children(node) {
		w.evaluate(s, child)
	}
}

// idSet is a set of asset IDs.
type idSet map[ids.AssetID]struct{}

func (s idSet) has(id ids.AssetID) bool {
	_, ok := s[id]
	return ok
}

func (s idSet) add(id ids.AssetID) {
	s[id] = struct{}{}
}
