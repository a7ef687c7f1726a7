package deps

import (
	"github.com/cfoust/resforge/pkg/game"
	"github.com/cfoust/resforge/pkg/ids"
)

// DependencyID returns the asset that n references directly, if any.
func DependencyID(n Node) (ids.AssetID, bool) {
	switch n := n.(type) {
	case *ResourceDependency:
		return n.ID, true
	case *PropertyDependency:
		return n.ID, true
	case *CharacterPropertyDependency:
		return n.ID, true
	case *AnimEvent:
		return n.ID, true
	}
	return 0, false
}

// Children returns the child nodes of n in traversal order. For an area
// that is the base dependencies followed by every layer.
func Children(n Node) []Node {
	switch n := n.(type) {
	case *Tree:
		return n.Children
	case *Area:
		children := make([]Node, 0, len(n.Children)+len(n.Layers))
		children = append(children, n.Children...)
		return append(children, n.Layers...)
	case *ScriptInstance:
		return n.Children
	case *SetCharacter:
		return n.Children
	case *SetAnimation:
		return n.Children
	}
	return nil
}

// Walk visits n and its descendants depth first. Returning false from fn
// skips the children of that node.
func Walk(n Node, fn func(Node) bool) {
	if !fn(n) {
		return
	}
	for _, child := range Children(n) {
		Walk(child, fn)
	}
}

func containsDirect(nodes []Node, id ids.AssetID) bool {
	for _, child := range nodes {
		if childID, ok := DependencyID(child); ok && childID == id {
			return true
		}
	}
	return false
}

func hasDependency(root Node, id ids.AssetID) bool {
	found := false
	Walk(root, func(n Node) bool {
		if childID, ok := DependencyID(n); ok && childID == id {
			found = true
		}
		return !found
	})
	return found
}

func references(root Node) []ids.AssetID {
	var (
		seen = make(map[ids.AssetID]struct{})
		out  []ids.AssetID
	)
	Walk(root, func(n Node) bool {
		if id, ok := DependencyID(n); ok {
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				out = append(out, id)
			}
		}
		return true
	})
	return out
}

func (c *Container) NumChildren() int {
	return len(c.Children)
}

func (c *Container) HasDirectDependency(id ids.AssetID) bool {
	return containsDirect(c.Children, id)
}

// AddDependency appends a plain reference unless the ID is invalid or
// already a direct child.
func (c *Container) AddDependency(id ids.AssetID) bool {
	if id.IsSentinel() || c.HasDirectDependency(id) {
		return false
	}
	c.Children = append(c.Children, &ResourceDependency{ID: id})
	return true
}

// AddCharacterDependency appends a reference to one character of an
// animation set.
func (c *Container) AddCharacterDependency(id ids.AssetID, usedChar uint32) bool {
	if id.IsSentinel() || c.HasDirectDependency(id) {
		return false
	}
	c.Children = append(c.Children, &CharacterPropertyDependency{
		ID:       id,
		UsedChar: usedChar,
	})
	return true
}

func (c *Container) AddEvent(id ids.AssetID, charIndex uint32) bool {
	if id.IsSentinel() || c.HasDirectDependency(id) {
		return false
	}
	c.Children = append(c.Children, &AnimEvent{
		ID:        id,
		CharIndex: charIndex,
	})
	return true
}

func (c *Container) AddChild(n Node) {
	c.Children = append(c.Children, n)
}

func NewTree(id ids.AssetID) *Tree {
	return &Tree{ID: id}
}

func (t *Tree) SelfID() ids.AssetID {
	return t.ID
}

func (t *Tree) HasDependency(id ids.AssetID) bool {
	return hasDependency(t, id)
}

func (t *Tree) References() []ids.AssetID {
	return references(t)
}

func NewScriptInstance(objectType uint32) *ScriptInstance {
	return &ScriptInstance{ObjectType: objectType}
}

func (s *ScriptInstance) AddProperty(propertyID uint32, id ids.AssetID) bool {
	if id.IsSentinel() || s.HasDirectDependency(id) {
		return false
	}
	s.Children = append(s.Children, &PropertyDependency{
		PropertyID: propertyID,
		ID:         id,
	})
	return true
}

// AddCharacterProperty records a property that points at an animation set.
// Character qualifiers only exist in games up to Echoes; later games get a
// plain property reference.
func (s *ScriptInstance) AddCharacterProperty(propertyID uint32, id ids.AssetID, usedChar uint32, g game.Game) bool {
	if g > game.Echoes {
		return s.AddProperty(propertyID, id)
	}
	if !id.IsValid(g.IDLength()) || s.HasDirectDependency(id) {
		return false
	}
	s.Children = append(s.Children, &CharacterPropertyDependency{
		PropertyID: propertyID,
		ID:         id,
		UsedChar:   usedChar,
	})
	return true
}

func NewSetCharacter(index uint32) *SetCharacter {
	return &SetCharacter{CharSetIndex: index}
}

func NewSetAnimation(characters ...uint32) *SetAnimation {
	return &SetAnimation{CharacterIndices: characters}
}

func (a *SetAnimation) IsUsedByCharacter(index uint32) bool {
	for _, char := range a.CharacterIndices {
		if char == index {
			return true
		}
	}
	return false
}

func (a *SetAnimation) IsUsedByAnyCharacter() bool {
	return len(a.CharacterIndices) > 0
}

func NewArea(id ids.AssetID) *Area {
	return &Area{Tree: Tree{ID: id}}
}

func (a *Area) HasDependency(id ids.AssetID) bool {
	return hasDependency(a, id)
}

func (a *Area) References() []ids.AssetID {
	return references(a)
}

func (a *Area) NumLayers() int {
	return len(a.LayerOffsets)
}

// Layer returns the nodes belonging to script layer i.
func (a *Area) Layer(i int) []Node {
	start := a.LayerOffsets[i]
	end := uint32(len(a.Layers))
	if i+1 < len(a.LayerOffsets) {
		end = a.LayerOffsets[i+1]
	}
	return a.Layers[start:end]
}

// AddScriptLayer appends one script layer. Instances without dependencies
// are dropped before EchoesDemo; later games keep every instance.
func (a *Area) AddScriptLayer(instances []*ScriptInstance, extra []ids.AssetID, g game.Game) {
	a.LayerOffsets = append(a.LayerOffsets, uint32(len(a.Layers)))

	for _, instance := range instances {
		if instance.NumChildren() == 0 && g < game.EchoesDemo {
			continue
		}
		a.Layers = append(a.Layers, instance)
	}

	for _, id := range extra {
		if !id.IsValid(g.IDLength()) || containsDirect(a.Children, id) || containsDirect(a.Layers, id) {
			continue
		}
		a.Layers = append(a.Layers, &ResourceDependency{ID: id})
	}
}
