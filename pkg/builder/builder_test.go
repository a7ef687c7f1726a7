package builder

import (
	"testing"

	"github.com/repeale/fp-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cfoust/resforge/pkg/deps"
	"github.com/cfoust/resforge/pkg/fixture"
	"github.com/cfoust/resforge/pkg/game"
	"github.com/cfoust/resforge/pkg/ids"
	"github.com/cfoust/resforge/pkg/pak"
	"github.com/cfoust/resforge/pkg/resource"
)

const (
	worldID     ids.AssetID = 0x1000
	area1ID     ids.AssetID = 0x2000
	area2ID     ids.AssetID = 0x2001
	textureID   ids.AssetID = 0x3000
	texture2ID  ids.AssetID = 0x3001
	model1ID    ids.AssetID = 0x4000
	model2ID    ids.AssetID = 0x4001
	animSetID   ids.AssetID = 0x5000
	groupID     ids.AssetID = 0x7000
	songGroupID ids.AssetID = 0x7001
	songID      ids.AssetID = 0x7100
)

type finder map[string]*pak.Package

func (f finder) FindPackage(name string) opt.Option[*pak.Package] {
	if pkg, ok := f[name]; ok {
		return opt.Some(pkg)
	}
	return opt.None[*pak.Package]()
}

func leaf(t *testing.T, project *fixture.Project, kind resource.Type, id ids.AssetID) {
	_, err := project.AddLeaf(kind, id)
	require.NoError(t, err)
}

func add(t *testing.T, project *fixture.Project, kind resource.Type, tree deps.Root) {
	_, err := project.Add(kind, tree)
	require.NoError(t, err)
}

func tree(id ids.AssetID, refs ...ids.AssetID) *deps.Tree {
	t := deps.NewTree(id)
	for _, ref := range refs {
		t.AddDependency(ref)
	}
	return t
}

// The animation set has three characters with a model each. Animation
// 0x6001 is played by character 1 and 0x6000 by character 0.
func addAnimSet(t *testing.T, project *fixture.Project) {
	set := deps.NewTree(animSetID)
	for i := uint32(0); i < 3; i++ {
		char := deps.NewSetCharacter(i)
		char.AddDependency(ids.AssetID(0x4100 + i))
		set.AddChild(char)
		leaf(t, project, resource.Model, ids.AssetID(0x4100+i))
	}

	walk := deps.NewSetAnimation(1)
	walk.AddDependency(0x6001)
	set.AddChild(walk)

	idle := deps.NewSetAnimation(0)
	idle.AddDependency(0x6000)
	set.AddChild(idle)

	set.AddEvent(0x6100, 0)
	set.AddEvent(0x6101, 1)
	set.AddEvent(0x6102, deps.NoCharacter)

	for _, id := range []ids.AssetID{0x6000, 0x6001} {
		leaf(t, project, resource.Animation, id)
	}
	for _, id := range []ids.AssetID{0x6100, 0x6101, 0x6102} {
		leaf(t, project, resource.AnimEventData, id)
	}

	add(t, project, resource.AnimSet, set)
}

// buildWorld creates a world of two areas that share a texture. Only the
// second area allows duplicates.
func buildWorld(t *testing.T) (*fixture.Project, *pak.Package) {
	project := fixture.InMemory(game.Prime)

	leaf(t, project, resource.Texture, textureID)
	leaf(t, project, resource.Texture, texture2ID)
	leaf(t, project, resource.AudioGroup, groupID)
	leaf(t, project, resource.AudioGroup, songGroupID)
	add(t, project, resource.Model, tree(model1ID, textureID))
	add(t, project, resource.Model, tree(model2ID, texture2ID))
	add(t, project, resource.Midi, tree(songID, songGroupID))
	addAnimSet(t, project)

	area1 := deps.NewArea(area1ID)
	area1.AddDependency(textureID)
	area1.AddDependency(groupID)
	door := deps.NewScriptInstance(0x10)
	door.AddProperty(0x1, model1ID)
	door.AddCharacterProperty(0x2, animSetID, 1, game.Prime)
	door.AddProperty(0x3, songID)
	area1.AddScriptLayer([]*deps.ScriptInstance{door}, nil, game.Prime)
	add(t, project, resource.Area, area1)

	area2 := deps.NewArea(area2ID)
	area2.AddDependency(textureID)
	actor := deps.NewScriptInstance(0x11)
	actor.AddProperty(0x1, model2ID)
	area2.AddScriptLayer([]*deps.ScriptInstance{actor}, nil, game.Prime)
	add(t, project, resource.Area, area2)

	_, err := project.AddWorld(worldID, []fixture.AreaInfo{
		{ID: area1ID},
		{ID: area2ID, Duplicates: true},
	}, ids.Invalid32)
	require.NoError(t, err)

	pkg := &pak.Package{
		Name: "Metroid1",
		Collections: []pak.Collection{{
			Name: "Default",
			Resources: []pak.NamedResource{
				{Name: "Intro", ID: worldID, Type: ids.FromString("MLVL")},
			},
		}},
	}

	return project, pkg
}

func TestPackageBuilder(t *testing.T) {
	project, pkg := buildWorld(t)

	first := []ids.AssetID{
		textureID, model1ID,
		0x4101, 0x6001, 0x6101, 0x6102, animSetID,
		area1ID,
	}

	builder := NewPackageBuilder(project.Store, pkg, nil)
	list := builder.BuildDependencyList(false)
	assert.Equal(t, append(append([]ids.AssetID{}, first...),
		texture2ID, model2ID, area2ID, worldID,
	), list)

	// Same inputs, same output
	assert.Equal(t, list, builder.BuildDependencyList(false))

	// The second area gets its own copy of the shared texture
	list = NewPackageBuilder(project.Store, pkg, nil).BuildDependencyList(true)
	assert.Equal(t, append(append([]ids.AssetID{}, first...),
		textureID, texture2ID, model2ID, area2ID, worldID,
	), list)
}

func TestPackageBuilderUniversal(t *testing.T) {
	project, pkg := buildWorld(t)

	universe := &pak.Package{
		Name: UniverseAreaPackage,
		Collections: []pak.Collection{{
			Resources: []pak.NamedResource{
				{Name: "Shared", ID: textureID, Type: ids.FromString("TXTR")},
			},
		}},
	}

	packages := finder{UniverseAreaPackage: universe}
	list := NewPackageBuilder(project.Store, pkg, packages).BuildDependencyList(true)
	assert.Equal(t, []ids.AssetID{
		model1ID,
		0x4101, 0x6001, 0x6101, 0x6102, animSetID,
		area1ID,
		texture2ID, model2ID, area2ID, worldID,
	}, list)

	// The universe package itself still carries it
	list = NewPackageBuilder(project.Store, universe, packages).BuildDependencyList(true)
	assert.Equal(t, []ids.AssetID{textureID}, list)
}

func TestPackageBuilderUniverseWorld(t *testing.T) {
	project, pkg := buildWorld(t)

	leaf(t, project, resource.MapArea, 0x9001)
	_, err := project.AddGroup(resource.MapWorld, 0x9000, 0x9001, model2ID)
	require.NoError(t, err)
	_, err = project.AddWorld(0x8000, []fixture.AreaInfo{{ID: area2ID}}, 0x9000)
	require.NoError(t, err)

	universe := &pak.Package{
		Name: UniverseAreaPackage,
		Collections: []pak.Collection{{
			Resources: []pak.NamedResource{
				{Name: "Universe", ID: 0x8000, Type: ids.FromString("MLVL")},
			},
		}},
	}

	// Area 2 and the map world contents belong to the universe
	list := NewPackageBuilder(project.Store, pkg, finder{UniverseAreaPackage: universe}).BuildDependencyList(false)
	assert.Equal(t, []ids.AssetID{
		textureID, model1ID,
		0x4101, 0x6001, 0x6101, 0x6102, animSetID,
		area1ID, worldID,
	}, list)
}

func TestPackageBuilderNoDepend(t *testing.T) {
	project := fixture.InMemory(game.Echoes)

	leaf(t, project, resource.Texture, 0x10)
	add(t, project, resource.StringTable, tree(0x11, 0x10))
	add(t, project, resource.Model, tree(0x12, 0x10))

	pkg := &pak.Package{
		Name: "NoARAM",
		Collections: []pak.Collection{{
			Resources: []pak.NamedResource{
				{Name: "Strings_NODEPEND", ID: 0x11},
				{Name: "Model", ID: 0x12},
				{Name: "Again_NODEPEND", ID: 0x11},
				{Name: "Missing", ID: 0x99},
			},
		}},
	}

	list := NewPackageBuilder(project.Store, pkg, nil).BuildDependencyList(false)
	assert.Equal(t, []ids.AssetID{0x11, 0x10, 0x12}, list)
}

func TestPackageBuilderCycle(t *testing.T) {
	project := fixture.InMemory(game.Prime)

	add(t, project, resource.Model, tree(0x20, 0x21))
	add(t, project, resource.Model, tree(0x21, 0x20))

	pkg := &pak.Package{
		Name: "Cycle",
		Collections: []pak.Collection{{
			Resources: []pak.NamedResource{{Name: "Model", ID: 0x20}},
		}},
	}

	list := NewPackageBuilder(project.Store, pkg, nil).BuildDependencyList(false)
	assert.Equal(t, []ids.AssetID{0x21, 0x20}, list)

	assets := NewAssetBuilder(project.Store.FindEntry(0x20)).BuildDependencyList()
	assert.Equal(t, []ids.AssetID{0x21}, assets)
}

func TestPackageBuilderPlayerActor(t *testing.T) {
	project := fixture.InMemory(game.Prime)
	addAnimSet(t, project)

	area := deps.NewArea(area1ID)
	player := deps.NewScriptInstance(0x4C)
	player.AddProperty(0x1, animSetID)
	area.AddScriptLayer([]*deps.ScriptInstance{player}, nil, game.Prime)
	add(t, project, resource.Area, area)

	_, err := project.AddWorld(worldID, []fixture.AreaInfo{{ID: area1ID}}, ids.Invalid32)
	require.NoError(t, err)

	pkg := &pak.Package{
		Name: "Player",
		Collections: []pak.Collection{{
			Resources: []pak.NamedResource{{Name: "World", ID: worldID}},
		}},
	}

	// Every character and every animation some character plays
	list := NewPackageBuilder(project.Store, pkg, nil).BuildDependencyList(false)
	assert.Equal(t, []ids.AssetID{
		0x4100, 0x4101, 0x4102, 0x6001, 0x6000, 0x6102, animSetID,
		area1ID, worldID,
	}, list)
}

func TestAreaBuilder(t *testing.T) {
	project, _ := buildWorld(t)

	list, err := NewAreaBuilder(project.Store.FindEntry(area1ID)).BuildDependencyList()
	require.NoError(t, err)

	assert.Equal(t, []ids.AssetID{
		model1ID, 0x4101, 0x6001, 0x6101, 0x6102, animSetID,
		textureID,
	}, list.Assets)
	assert.Equal(t, []uint32{0, 6}, list.LayerOffsets)
	assert.Equal(t, []ids.AssetID{groupID, songGroupID}, list.AudioGroups)

	_, err = NewAreaBuilder(project.Store.FindEntry(worldID)).BuildDependencyList()
	require.Error(t, err)
}

func TestAreaBuilderEmptySuit(t *testing.T) {
	project := fixture.InMemory(game.Prime)

	suits := deps.NewTree(animSetID)
	for i := uint32(0); i < 6; i++ {
		char := deps.NewSetCharacter(i)
		char.AddDependency(ids.AssetID(0x4200 + i))
		suits.AddChild(char)
		leaf(t, project, resource.Model, ids.AssetID(0x4200+i))
	}
	anim := deps.NewSetAnimation(2)
	anim.AddDependency(0x6200)
	suits.AddChild(anim)
	leaf(t, project, resource.Animation, 0x6200)
	add(t, project, resource.AnimSet, suits)

	leaf(t, project, resource.Texture, textureID)

	area := deps.NewArea(area1ID)
	area.AddDependency(textureID)
	player := deps.NewScriptInstance(0x4C)
	player.AddProperty(0x1, animSetID)
	area.AddScriptLayer([]*deps.ScriptInstance{player}, nil, game.Prime)
	area.AddScriptLayer(nil, []ids.AssetID{textureID, 0x4201}, game.Prime)
	add(t, project, resource.Area, area)

	list, err := NewAreaBuilder(project.Store.FindEntry(area1ID)).BuildDependencyList()
	require.NoError(t, err)
	assert.Equal(t, []ids.AssetID{0x4205, 0x6200, animSetID, 0x4201, textureID}, list.Assets)
	assert.Equal(t, []uint32{0, 3, 4}, list.LayerOffsets)
	assert.Empty(t, list.AudioGroups)
}

func TestAreaBuilderSuits(t *testing.T) {
	project := fixture.InMemory(game.Corruption)

	for _, id := range []ids.AssetID{0x10, 0x11, 0x12} {
		leaf(t, project, resource.Model, id)
	}

	area := deps.NewArea(area1ID)
	player := deps.NewScriptInstance(playerActorFourCC)
	player.AddProperty(0x846397A8, 0x10)
	player.AddProperty(0x1, 0x11)
	other := deps.NewScriptInstance(0x1)
	other.AddProperty(0x846397A8, 0x12)
	area.AddScriptLayer([]*deps.ScriptInstance{player, other}, nil, game.Corruption)
	add(t, project, resource.Area, area)

	list, err := NewAreaBuilder(project.Store.FindEntry(area1ID)).BuildDependencyList()
	require.NoError(t, err)
	assert.Equal(t, []ids.AssetID{0x11, 0x12}, list.Assets)
}

func TestAssetBuilder(t *testing.T) {
	project, _ := buildWorld(t)

	// Nothing refers to a character of the set on its own
	assets := NewAssetBuilder(project.Store.FindEntry(animSetID)).BuildDependencyList()
	assert.Equal(t, []ids.AssetID{0x6102}, assets)

	assets = NewAssetBuilder(project.Store.FindEntry(area1ID)).BuildDependencyList()
	assert.Equal(t, []ids.AssetID{
		textureID, groupID, model1ID,
		0x4101, 0x6001, 0x6101, 0x6102, animSetID,
		songGroupID, songID,
	}, assets)
}

func TestAssetBuilderSelfReferencingSet(t *testing.T) {
	project := fixture.InMemory(game.Prime)

	// Character 0 has a scan that refers back to character 0
	scan := deps.NewTree(0x7000)
	scan.AddCharacterDependency(0x7100, 0)
	add(t, project, resource.Scan, scan)
	leaf(t, project, resource.Model, 0x7200)

	set := deps.NewTree(0x7100)
	char := deps.NewSetCharacter(0)
	char.AddDependency(0x7200)
	char.AddDependency(0x7000)
	set.AddChild(char)
	add(t, project, resource.AnimSet, set)

	assets := NewAssetBuilder(project.Store.FindEntry(0x7100)).BuildDependencyList()
	assert.Empty(t, assets)
}

func TestCharacterUsageMap(t *testing.T) {
	project := fixture.InMemory(game.Prime)

	// The scan refers to character 3 and to itself
	scan := deps.NewTree(0x8000)
	scan.AddCharacterDependency(animSetID, 3)
	scan.AddDependency(0x8000)
	add(t, project, resource.Scan, scan)

	areas := []fixture.AreaInfo{
		{ID: 0x2000},
		{ID: 0x2001},
		{ID: 0x2002, Duplicates: true},
		{ID: 0x2003},
	}

	for i, area := range areas {
		tree := deps.NewArea(area.ID)
		instance := deps.NewScriptInstance(0x10)
		instance.AddCharacterProperty(0x1, animSetID, uint32(i), game.Prime)
		if i == 0 {
			instance.AddProperty(0x2, 0x8000)
		}
		if i == 1 {
			instance.AddCharacterProperty(0x3, 0x5001, 7, game.Prime)
		}
		tree.AddScriptLayer([]*deps.ScriptInstance{instance}, nil, game.Prime)
		add(t, project, resource.Area, tree)
	}

	_, err := project.AddWorld(worldID, areas, ids.Invalid32)
	require.NoError(t, err)

	world, err := project.Store.LoadResource(worldID)
	require.NoError(t, err)

	usage := NewCharacterUsageMap(project.Store)
	usage.FindUsagesForArea(world.(resource.WorldResource), 0x2000)

	// Area 2 has its own copy, so the search stops before area 3
	assert.Equal(t, []uint32{0, 1, 3}, usage.UsedCharacters(animSetID))
	assert.Empty(t, usage.UsedCharacters(0x5001))
	assert.True(t, usage.IsCharacterUsed(animSetID, 3))
	assert.False(t, usage.IsCharacterUsed(animSetID, 2))
	assert.True(t, usage.IsAnimationUsed(animSetID, deps.NewSetAnimation(2, 3)))
	assert.False(t, usage.IsAnimationUsed(animSetID, deps.NewSetAnimation(2)))

	usage.FindUsagesForLayer(project.Store.FindEntry(0x2001), 0)
	assert.Equal(t, []uint32{1}, usage.UsedCharacters(animSetID))
	assert.Equal(t, []uint32{7}, usage.UsedCharacters(0x5001))

	usage.Clear()
	assert.False(t, usage.IsCharacterUsed(animSetID, 1))

	bypassed := NewCharacterUsageMap(fixture.InMemory(game.Corruption).Store)
	assert.True(t, bypassed.IsCharacterUsed(animSetID, 9))
	assert.True(t, bypassed.IsAnimationUsed(animSetID, deps.NewSetAnimation(4)))
	assert.False(t, bypassed.IsAnimationUsed(animSetID, deps.NewSetAnimation()))
}
