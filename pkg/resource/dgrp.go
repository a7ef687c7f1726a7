package resource

import (
	"fmt"

	"github.com/cfoust/resforge/pkg/deps"
	gIO "github.com/cfoust/resforge/pkg/game/io"
	"github.com/cfoust/resforge/pkg/ids"
)

type Reference struct {
	Type ids.FourCC
	ID   ids.AssetID
}

// DependencyGroupResource is a flat list of assets, used by worlds for map data.
type DependencyGroupResource struct {
	Base
	Dependencies []Reference
}

func (g *DependencyGroupResource) IDs() []ids.AssetID {
	out := make([]ids.AssetID, 0, len(g.Dependencies))
	for _, dep := range g.Dependencies {
		out = append(out, dep.ID)
	}
	return out
}

func (g *DependencyGroupResource) BuildDependencyTree() deps.Root {
	tree := deps.NewTree(g.ID())
	for _, dep := range g.Dependencies {
		tree.AddDependency(dep.ID)
	}
	return tree
}

type DependencyGroupCodec struct{}

func (DependencyGroupCodec) Decode(header Header, data []byte, loader Loader) (Resource, error) {
	p := gIO.Buffer(data)
	length := header.Game.IDLength()

	count, ok := p.GetUint32()
	if !ok {
		return nil, fmt.Errorf("%w: missing dependency count", Malformed)
	}

	group := &DependencyGroupResource{
		Base: NewBase(header.ID, header.Type, header.Game),
	}

	for i := uint32(0); i < count; i++ {
		tag, ok := p.GetFourCC()
		if !ok {
			return nil, fmt.Errorf("%w: truncated dependency %d", Malformed, i)
		}
		id, ok := p.GetID(length)
		if !ok {
			return nil, fmt.Errorf("%w: truncated dependency %d", Malformed, i)
		}
		group.Dependencies = append(group.Dependencies, Reference{
			Type: tag,
			ID:   id,
		})
	}

	return group, nil
}

func (DependencyGroupCodec) Encode(r Resource) ([]byte, error) {
	group, ok := r.(*DependencyGroupResource)
	if !ok {
		return nil, fmt.Errorf("cannot encode %s as a dependency group", r.Type())
	}

	length := group.Game().IDLength()
	p := gIO.Buffer{}
	p.PutUint32(uint32(len(group.Dependencies)))
	for _, dep := range group.Dependencies {
		p.PutFourCC(dep.Type)
		p.PutID(dep.ID, length)
	}
	return p, nil
}
