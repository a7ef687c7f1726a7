package fixture

import (
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/cfoust/resforge/pkg/deps"
	"github.com/cfoust/resforge/pkg/game"
	"github.com/cfoust/resforge/pkg/ids"
	"github.com/cfoust/resforge/pkg/pak"
	"github.com/cfoust/resforge/pkg/resource"
	"github.com/cfoust/resforge/pkg/store"
)

// Project writes cooked fixture files into a filesystem and registers them
// with a store.
type Project struct {
	FS    billy.Filesystem
	Game  game.Game
	Store *store.Store
}

func NewProject(fs billy.Filesystem, g game.Game) *Project {
	return &Project{
		FS:    fs,
		Game:  g,
		Store: store.New(fs, g, Registry()),
	}
}

// InMemory creates an empty project backed by memfs.
func InMemory(g game.Game) *Project {
	return NewProject(memfs.New(), g)
}

func (p *Project) length() ids.IDLength {
	return p.Game.IDLength()
}

func (p *Project) write(id ids.AssetID, kind resource.Type, dir string, data []byte) (*store.Entry, error) {
	entry, err := p.Store.RegisterResource(id, kind, dir, id.Format(p.length()))
	if err != nil {
		return nil, err
	}

	cooked := entry.CookedPath()
	if err := p.FS.MkdirAll(p.FS.Join(store.ResourcesDir, entry.Directory().FullPath()), 0755); err != nil {
		return nil, err
	}

	if err := util.WriteFile(p.FS, cooked, data, 0644); err != nil {
		return nil, err
	}

	return entry, nil
}

// Add registers a resource whose dependencies are tree. Any resources in
// holds are kept loaded while it is.
func (p *Project) Add(kind resource.Type, tree deps.Root, holds ...ids.AssetID) (*store.Entry, error) {
	data, err := Encode(tree, p.length(), holds...)
	if err != nil {
		return nil, err
	}
	return p.write(tree.SelfID(), kind, "", data)
}

// AddIn is Add with an explicit directory.
func (p *Project) AddIn(dir string, kind resource.Type, tree deps.Root) (*store.Entry, error) {
	data, err := Encode(tree, p.length())
	if err != nil {
		return nil, err
	}
	return p.write(tree.SelfID(), kind, dir, data)
}

// AddLeaf registers a resource without dependencies.
func (p *Project) AddLeaf(kind resource.Type, id ids.AssetID) (*store.Entry, error) {
	if !kind.CanHaveDependencies() {
		return p.AddRaw(kind, id, id.Format(p.length()))
	}
	return p.Add(kind, deps.NewTree(id))
}

// AddRaw registers a resource with arbitrary cooked bytes.
func (p *Project) AddRaw(kind resource.Type, id ids.AssetID, data string) (*store.Entry, error) {
	return p.write(id, kind, "", []byte(data))
}

// AddWorld registers a world. Its dependency tree lists the areas, then
// the map world, then extra.
func (p *Project) AddWorld(id ids.AssetID, areas []AreaInfo, mapWorld ids.AssetID, extra ...ids.AssetID) (*store.Entry, error) {
	tree := deps.NewTree(id)
	for _, area := range areas {
		tree.AddDependency(area.ID)
	}
	tree.AddDependency(mapWorld)
	for _, id := range extra {
		tree.AddDependency(id)
	}

	data, err := EncodeWorld(tree, p.length(), areas, mapWorld)
	if err != nil {
		return nil, err
	}
	return p.write(id, resource.World, "", data)
}

// AddGroup registers a dependency group of the given type, which must be
// DependencyGroup or MapWorld.
func (p *Project) AddGroup(kind resource.Type, id ids.AssetID, members ...ids.AssetID) (*store.Entry, error) {
	group := &resource.DependencyGroupResource{
		Base: resource.NewBase(id, kind, p.Game),
	}

	for _, member := range members {
		reference := resource.Reference{ID: member}
		if entry := p.Store.FindEntry(member); entry != nil {
			reference.Type = entry.CookedExtension()
		}
		group.Dependencies = append(group.Dependencies, reference)
	}

	data, err := resource.DependencyGroupCodec{}.Encode(group)
	if err != nil {
		return nil, err
	}
	return p.write(id, kind, "", data)
}

// AddPackage saves a package definition into the project.
func (p *Project) AddPackage(pkg *pak.Package) error {
	return pkg.Save(p.FS)
}
