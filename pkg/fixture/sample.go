package fixture

import (
	"github.com/cfoust/resforge/pkg/deps"
	"github.com/cfoust/resforge/pkg/ids"
	"github.com/cfoust/resforge/pkg/pak"
	"github.com/cfoust/resforge/pkg/resource"
)

// IDs used by Sample.
const (
	SampleWorld   ids.AssetID = 0x1000
	SampleArea    ids.AssetID = 0x2000
	SampleHall    ids.AssetID = 0x2001
	SampleTexture ids.AssetID = 0x3000
	SampleModel   ids.AssetID = 0x4000
	SampleAnimSet ids.AssetID = 0x5000
	SampleIdle    ids.AssetID = 0x6000
	SampleRun     ids.AssetID = 0x6001
	SampleStrings ids.AssetID = 0x8000
)

const SamplePackage = "Sample"

type sampleWriter struct {
	project *Project
	err     error
}

func (w *sampleWriter) leaf(kind resource.Type, id ids.AssetID) {
	if w.err != nil {
		return
	}
	_, w.err = w.project.AddLeaf(kind, id)
}

func (w *sampleWriter) add(dir string, kind resource.Type, tree deps.Root) {
	if w.err != nil {
		return
	}
	_, w.err = w.project.AddIn(dir, kind, tree)
}

// Sample fills the project with a small world of two areas and saves a
// package definition that cooks it. Character 1 of the animation set is
// never placed, so its model and animation stay out of the area lists.
func Sample(p *Project) (*pak.Package, error) {
	w := &sampleWriter{project: p}

	w.leaf(resource.Texture, SampleTexture)
	w.leaf(resource.Texture, SampleTexture+1)
	w.leaf(resource.StringTable, SampleStrings)
	w.leaf(resource.Animation, SampleIdle)
	w.leaf(resource.Animation, SampleRun)

	model := deps.NewTree(SampleModel)
	model.AddDependency(SampleTexture)
	w.add("Models/", resource.Model, model)

	unused := deps.NewTree(SampleModel + 1)
	unused.AddDependency(SampleTexture + 1)
	w.add("Models/", resource.Model, unused)

	set := deps.NewTree(SampleAnimSet)
	for i, id := range []ids.AssetID{SampleModel, SampleModel + 1} {
		char := deps.NewSetCharacter(uint32(i))
		char.AddDependency(id)
		set.AddChild(char)
	}
	idle := deps.NewSetAnimation(0)
	idle.AddDependency(SampleIdle)
	set.AddChild(idle)
	run := deps.NewSetAnimation(1)
	run.AddDependency(SampleRun)
	set.AddChild(run)
	w.add("Characters/", resource.AnimSet, set)

	area := deps.NewArea(SampleArea)
	area.AddDependency(SampleTexture)
	actor := deps.NewScriptInstance(0x41435452)
	actor.AddCharacterProperty(0x1, SampleAnimSet, 0, p.Game)
	area.AddScriptLayer([]*deps.ScriptInstance{actor}, nil, p.Game)
	w.add("Worlds/", resource.Area, area)

	hall := deps.NewArea(SampleHall)
	hall.AddDependency(SampleTexture)
	sign := deps.NewScriptInstance(0x5349474E)
	sign.AddProperty(0x2, SampleStrings)
	hall.AddScriptLayer([]*deps.ScriptInstance{sign}, nil, p.Game)
	w.add("Worlds/", resource.Area, hall)

	if w.err != nil {
		return nil, w.err
	}

	_, err := p.AddWorld(SampleWorld, []AreaInfo{
		{ID: SampleArea},
		{ID: SampleHall, Duplicates: true},
	}, ids.Invalid(p.Game.IDLength()))
	if err != nil {
		return nil, err
	}

	worldType, _ := resource.World.Extension(p.Game)
	pkg := &pak.Package{
		Name: SamplePackage,
		Collections: []pak.Collection{{
			Name: "Default",
			Resources: []pak.NamedResource{
				{Name: "Sample_World", ID: SampleWorld, Type: worldType},
			},
		}},
	}

	if err := p.AddPackage(pkg); err != nil {
		return nil, err
	}

	return pkg, p.Store.SaveDatabase()
}
