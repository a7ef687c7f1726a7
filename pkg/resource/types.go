package resource

import (
	"github.com/cfoust/resforge/pkg/game"
	"github.com/cfoust/resforge/pkg/ids"
)

type Type int

const (
	Invalid Type = iota
	Animation
	AnimCollisionPrimData
	AnimEventData
	AnimSet
	Area
	AudioAmplitudeData
	AudioGroup
	AudioMacro
	AudioSample
	AudioLookupTable
	BinaryData
	BurstFireData
	Character
	DependencyGroup
	DynamicCollision
	Font
	GuiFrame
	GuiKeyFrame
	HintSystem
	MapArea
	MapWorld
	MapUniverse
	Midi
	Model
	Particle
	ParticleCollisionResponse
	ParticleDecal
	ParticleElectric
	ParticleSorted
	ParticleSpawn
	ParticleSwoosh
	ParticleTransform
	ParticleWeapon
	Pathfinding
	PortalArea
	RuleSet
	SaveArea
	SaveWorld
	Scan
	Skeleton
	Skin
	SourceAnimData
	SpatialPrimitive
	StateMachine
	StateMachine2
	StaticGeometryMap
	StreamedAudio
	StringList
	StringTable
	Texture
	Tweaks
	UserEvaluatorData
	World
)

type extension struct {
	ext   ids.FourCC
	first game.Game
	last  game.Game
}

// TypeInfo describes one resource type.
type TypeInfo struct {
	Type                Type
	Name                string
	CanHaveDependencies bool
	extensions          []extension
}

func ext(tag string, first, last game.Game) extension {
	return extension{
		ext:   ids.FromString(tag),
		first: first,
		last:  last,
	}
}

var types = []TypeInfo{
	{Type: Animation, Name: "Animation", CanHaveDependencies: true, extensions: []extension{ext("ANIM", game.PrimeDemo, game.DKCReturns)}},
	{Type: AnimCollisionPrimData, Name: "Animation Collision Primitive Data", CanHaveDependencies: false, extensions: []extension{ext("CPRM", game.DKCReturns, game.DKCReturns)}},
	{Type: AnimEventData, Name: "Animation Event Data", CanHaveDependencies: true, extensions: []extension{ext("EVNT", game.PrimeDemo, game.Prime)}},
	{Type: AnimSet, Name: "Animation Character Set", CanHaveDependencies: true, extensions: []extension{ext("ANCS", game.PrimeDemo, game.Echoes)}},
	{Type: Area, Name: "Area", CanHaveDependencies: true, extensions: []extension{ext("MREA", game.PrimeDemo, game.DKCReturns)}},
	{Type: AudioAmplitudeData, Name: "Audio Amplitude Data", CanHaveDependencies: true, extensions: []extension{ext("CAAD", game.Corruption, game.Corruption)}},
	{Type: AudioGroup, Name: "Audio Group", CanHaveDependencies: false, extensions: []extension{ext("AGSC", game.PrimeDemo, game.Echoes)}},
	{Type: AudioMacro, Name: "Audio Macro", CanHaveDependencies: true, extensions: []extension{ext("CAUD", game.CorruptionProto, game.DKCReturns)}},
	{Type: AudioSample, Name: "Audio Sample", CanHaveDependencies: false, extensions: []extension{ext("CSMP", game.CorruptionProto, game.DKCReturns)}},
	{Type: AudioLookupTable, Name: "Audio Lookup Table", CanHaveDependencies: false, extensions: []extension{ext("ATBL", game.PrimeDemo, game.Corruption)}},
	{Type: BinaryData, Name: "Generic Data", CanHaveDependencies: true, extensions: []extension{ext("DUMB", game.PrimeDemo, game.Corruption)}},
	{Type: BurstFireData, Name: "Burst Fire Data", CanHaveDependencies: true, extensions: []extension{ext("BFRC", game.CorruptionProto, game.Corruption)}},
	{Type: Character, Name: "Character", CanHaveDependencies: true, extensions: []extension{ext("CHAR", game.CorruptionProto, game.DKCReturns)}},
	{Type: DependencyGroup, Name: "Dependency Group", CanHaveDependencies: true, extensions: []extension{ext("DGRP", game.PrimeDemo, game.DKCReturns)}},
	{Type: DynamicCollision, Name: "Dynamic Collision", CanHaveDependencies: false, extensions: []extension{ext("DCLN", game.PrimeDemo, game.DKCReturns)}},
	{Type: Font, Name: "Font", CanHaveDependencies: true, extensions: []extension{ext("FONT", game.PrimeDemo, game.DKCReturns)}},
	{Type: GuiFrame, Name: "Gui Frame", CanHaveDependencies: true, extensions: []extension{ext("FRME", game.PrimeDemo, game.DKCReturns)}},
	{Type: GuiKeyFrame, Name: "Gui Keyframe", CanHaveDependencies: true, extensions: []extension{ext("KFAM", game.PrimeDemo, game.PrimeDemo)}},
	{Type: HintSystem, Name: "Hint System Data", CanHaveDependencies: true, extensions: []extension{ext("HINT", game.Prime, game.Corruption)}},
	{Type: MapArea, Name: "Area Map", CanHaveDependencies: true, extensions: []extension{ext("MAPA", game.PrimeDemo, game.Corruption)}},
	{Type: MapWorld, Name: "World Map", CanHaveDependencies: true, extensions: []extension{ext("MAPW", game.PrimeDemo, game.Corruption)}},
	{Type: MapUniverse, Name: "Universe Map", CanHaveDependencies: true, extensions: []extension{ext("MAPU", game.PrimeDemo, game.Echoes)}},
	{Type: Midi, Name: "MIDI", CanHaveDependencies: true, extensions: []extension{ext("CSNG", game.PrimeDemo, game.Echoes)}},
	{Type: Model, Name: "Model", CanHaveDependencies: true, extensions: []extension{ext("CMDL", game.PrimeDemo, game.DKCReturns)}},
	{Type: Particle, Name: "Particle System", CanHaveDependencies: true, extensions: []extension{ext("PART", game.PrimeDemo, game.DKCReturns)}},
	{Type: ParticleCollisionResponse, Name: "Collision Response Particle System", CanHaveDependencies: true, extensions: []extension{ext("CRSC", game.PrimeDemo, game.Corruption)}},
	{Type: ParticleDecal, Name: "Decal Particle System", CanHaveDependencies: true, extensions: []extension{ext("DPSC", game.PrimeDemo, game.Corruption)}},
	{Type: ParticleElectric, Name: "Electric Particle System", CanHaveDependencies: true, extensions: []extension{ext("ELSC", game.PrimeDemo, game.Corruption)}},
	{Type: ParticleSorted, Name: "Sorted Particle System", CanHaveDependencies: true, extensions: []extension{ext("SRSC", game.EchoesDemo, game.Echoes)}},
	{Type: ParticleSpawn, Name: "Spawn Particle System", CanHaveDependencies: true, extensions: []extension{ext("SPSC", game.EchoesDemo, game.DKCReturns)}},
	{Type: ParticleSwoosh, Name: "Swoosh Particle System", CanHaveDependencies: true, extensions: []extension{ext("SWHC", game.PrimeDemo, game.DKCReturns)}},
	{Type: ParticleTransform, Name: "Transform Particle System", CanHaveDependencies: true, extensions: []extension{ext("XFSC", game.DKCReturns, game.DKCReturns)}},
	{Type: ParticleWeapon, Name: "Weapon Particle System", CanHaveDependencies: true, extensions: []extension{ext("WPSC", game.PrimeDemo, game.Corruption)}},
	{Type: Pathfinding, Name: "Pathfinding Mesh", CanHaveDependencies: false, extensions: []extension{ext("PATH", game.PrimeDemo, game.Corruption)}},
	{Type: PortalArea, Name: "Portal Area", CanHaveDependencies: false, extensions: []extension{ext("PTLA", game.EchoesDemo, game.Corruption)}},
	{Type: RuleSet, Name: "Rule Set", CanHaveDependencies: true, extensions: []extension{ext("RULE", game.EchoesDemo, game.DKCReturns)}},
	{Type: SaveArea, Name: "Area Save Info", CanHaveDependencies: false, extensions: []extension{ext("SAVA", game.CorruptionProto, game.Corruption)}},
	{Type: SaveWorld, Name: "World Save Info", CanHaveDependencies: false, extensions: []extension{ext("SAVW", game.Prime, game.DKCReturns)}},
	{Type: Scan, Name: "Scan", CanHaveDependencies: true, extensions: []extension{ext("SCAN", game.PrimeDemo, game.Corruption)}},
	{Type: Skeleton, Name: "Skeleton", CanHaveDependencies: false, extensions: []extension{ext("CINF", game.PrimeDemo, game.DKCReturns)}},
	{Type: Skin, Name: "Skin", CanHaveDependencies: false, extensions: []extension{ext("CSKR", game.PrimeDemo, game.DKCReturns)}},
	{Type: SourceAnimData, Name: "Source Animation Data", CanHaveDependencies: false, extensions: []extension{ext("SAND", game.CorruptionProto, game.Corruption)}},
	{Type: SpatialPrimitive, Name: "Spatial Primitive", CanHaveDependencies: false, extensions: []extension{ext("CSPP", game.EchoesDemo, game.Echoes)}},
	{Type: StateMachine, Name: "State Machine", CanHaveDependencies: true, extensions: []extension{ext("AFSM", game.PrimeDemo, game.Echoes), ext("FSM2", game.CorruptionProto, game.Corruption), ext("FSMC", game.DKCReturns, game.DKCReturns)}},
	{Type: StateMachine2, Name: "State Machine 2", CanHaveDependencies: true, extensions: []extension{ext("FSM2", game.EchoesDemo, game.Corruption)}},
	{Type: StaticGeometryMap, Name: "Static Geometry Map", CanHaveDependencies: false, extensions: []extension{ext("EGMC", game.EchoesDemo, game.Corruption)}},
	{Type: StreamedAudio, Name: "Streamed Audio", CanHaveDependencies: false, extensions: []extension{ext("STRM", game.CorruptionProto, game.DKCReturns)}},
	{Type: StringList, Name: "String List", CanHaveDependencies: false, extensions: []extension{ext("STLC", game.EchoesDemo, game.CorruptionProto)}},
	{Type: StringTable, Name: "String Table", CanHaveDependencies: true, extensions: []extension{ext("STRG", game.PrimeDemo, game.DKCReturns)}},
	{Type: Texture, Name: "Texture", CanHaveDependencies: false, extensions: []extension{ext("TXTR", game.PrimeDemo, game.DKCReturns)}},
	{Type: Tweaks, Name: "Tweak Data", CanHaveDependencies: false, extensions: []extension{ext("CTWK", game.PrimeDemo, game.Prime)}},
	{Type: UserEvaluatorData, Name: "User Evaluator Data", CanHaveDependencies: true, extensions: []extension{ext("USRC", game.CorruptionProto, game.Corruption)}},
	{Type: World, Name: "World", CanHaveDependencies: true, extensions: []extension{ext("MLVL", game.PrimeDemo, game.DKCReturns)}},
}

var byType = func() map[Type]*TypeInfo {
	index := make(map[Type]*TypeInfo, len(types))
	for i := range types {
		index[types[i].Type] = &types[i]
	}
	return index
}()

// Info returns the description of t, or nil for unknown types.
func Info(t Type) *TypeInfo {
	return byType[t]
}

func Types() []TypeInfo {
	return types
}

func (t Type) String() string {
	if info := Info(t); info != nil {
		return info.Name
	}
	return "Invalid"
}

func (t Type) CanHaveDependencies() bool {
	info := Info(t)
	return info != nil && info.CanHaveDependencies
}

// Extension returns the cooked file extension of t in the given game.
func (t Type) Extension(g game.Game) (ids.FourCC, bool) {
	info := Info(t)
	if info == nil {
		return 0, false
	}

	for _, e := range info.extensions {
		if g >= e.first && g <= e.last {
			return e.ext, true
		}
	}
	return 0, false
}

// IsInGame reports whether t exists in the given game.
func (t Type) IsInGame(g game.Game) bool {
	_, ok := t.Extension(g)
	return ok
}

// TypeForExtension finds the type whose cooked extension in g is ext.
func TypeForExtension(ext ids.FourCC, g game.Game) (Type, bool) {
	for _, info := range types {
		for _, e := range info.extensions {
			if e.ext == ext && g >= e.first && g <= e.last {
				return info.Type, true
			}
		}
	}
	return Invalid, false
}
