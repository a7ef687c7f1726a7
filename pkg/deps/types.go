package deps

import (
	"github.com/cfoust/resforge/pkg/ids"
)

// Kind tags each node variant on the wire.
type Kind uint32

const (
	KindTree              Kind = 0x54524545 // TREE
	KindArea              Kind = 0x41524541 // AREA
	KindResource          Kind = 0x52534450 // RSDP
	KindProperty          Kind = 0x53435052 // SCPR
	KindCharacterProperty Kind = 0x43525052 // CRPR
	KindScriptInstance    Kind = 0x5343494E // SCIN
	KindSetCharacter      Kind = 0x53434852 // SCHR
	KindSetAnimation      Kind = 0x53414E4D // SANM
	KindAnimEvent         Kind = 0x45564E54 // EVNT
)

func (k Kind) String() string {
	return ids.FourCC(k).String()
}

// NoCharacter marks an anim event that applies to every character.
const NoCharacter uint32 = 0xFFFFFFFF

// Node is one of the dependency node variants declared in this package.
type Node interface {
	Kind() Kind
	node()
}

// Root is the top of a resource's dependency tree, either *Tree or *Area.
type Root interface {
	Node
	SelfID() ids.AssetID
	// HasDependency reports whether id is referenced anywhere in the tree.
	HasDependency(id ids.AssetID) bool
	// References lists every referenced ID once, in traversal order.
	References() []ids.AssetID
}

// A plain reference to another asset.
type ResourceDependency struct {
	ID ids.AssetID
}

// A reference made by a script property.
type PropertyDependency struct {
	PropertyID uint32
	ID         ids.AssetID
}

// A script property that references one character of an animation set.
type CharacterPropertyDependency struct {
	PropertyID uint32
	ID         ids.AssetID
	UsedChar   uint32
}

type AnimEvent struct {
	ID        ids.AssetID
	CharIndex uint32
}

// Container holds an ordered list of child nodes.
type Container struct {
	Children []Node
}

type ScriptInstance struct {
	Container
	ObjectType uint32
}

// SetCharacter groups the dependencies of one character in an animation set.
type SetCharacter struct {
	Container
	CharSetIndex uint32
}

// SetAnimation groups the dependencies of one animation along with the
// characters that use it.
type SetAnimation struct {
	Container
	CharacterIndices []uint32
}

type Tree struct {
	Container
	ID ids.AssetID
}

// Area is the dependency tree of a level area. Children holds the base
// dependencies. Layers holds the script instances and extra dependencies of
// every script layer, and LayerOffsets[i] is the index in Layers where layer
// i starts.
type Area struct {
	Tree
	Layers       []Node
	LayerOffsets []uint32
}

func (*ResourceDependency) Kind() Kind          { return KindResource }
func (*PropertyDependency) Kind() Kind          { return KindProperty }
func (*CharacterPropertyDependency) Kind() Kind { return KindCharacterProperty }
func (*AnimEvent) Kind() Kind                   { return KindAnimEvent }
func (*ScriptInstance) Kind() Kind              { return KindScriptInstance }
func (*SetCharacter) Kind() Kind                { return KindSetCharacter }
func (*SetAnimation) Kind() Kind                { return KindSetAnimation }
func (*Tree) Kind() Kind                        { return KindTree }
func (*Area) Kind() Kind                        { return KindArea }

func (*ResourceDependency) node()          {}
func (*PropertyDependency) node()          {}
func (*CharacterPropertyDependency) node() {}
func (*AnimEvent) node()                   {}
func (*ScriptInstance) node()              {}
func (*SetCharacter) node()                {}
func (*SetAnimation) node()                {}
func (*Tree) node()                        {}
func (*Area) node()                        {}
