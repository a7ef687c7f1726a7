// Package fixture provides a self-describing resource format. Its cooked
// files carry their dependency tree directly, which lets projects be put
// together without real game data.
package fixture

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/rs/zerolog/log"

	"github.com/cfoust/resforge/pkg/deps"
	"github.com/cfoust/resforge/pkg/ids"
	"github.com/cfoust/resforge/pkg/resource"
)

type AreaInfo struct {
	ID         ids.AssetID `cbor:"id"`
	Duplicates bool        `cbor:"dupes"`
}

type document struct {
	Tree     []byte     `cbor:"tree"`
	Areas    []AreaInfo `cbor:"areas,omitempty"`
	MapWorld uint64     `cbor:"map,omitempty"`
	// Resources that stay loaded for as long as this one is
	Holds []uint64 `cbor:"holds,omitempty"`
}

type Asset struct {
	resource.Base
	Tree  deps.Root
	holds []resource.Resource
}

func (a *Asset) BuildDependencyTree() deps.Root {
	return a.Tree
}

// Held lists the resources this asset keeps a reference to.
func (a *Asset) Held() []resource.Resource {
	return a.holds
}

func (a *Asset) Dispose() {
	for _, held := range a.holds {
		held.Release()
	}
	a.holds = nil
}

type World struct {
	Asset
	Areas    []AreaInfo
	MapWorld ids.AssetID
}

var _ resource.WorldResource = (*World)(nil)

func (w *World) NumAreas() int {
	return len(w.Areas)
}

func (w *World) AreaID(index int) ids.AssetID {
	if index < 0 || index >= len(w.Areas) {
		return ids.Invalid64
	}
	return w.Areas[index].ID
}

func (w *World) AllowsPakDuplicates(index int) bool {
	if index < 0 || index >= len(w.Areas) {
		return false
	}
	return w.Areas[index].Duplicates
}

func (w *World) MapWorldID() ids.AssetID {
	return w.MapWorld
}

type Codec struct{}

func (Codec) Decode(header resource.Header, data []byte, loader resource.Loader) (resource.Resource, error) {
	var doc document
	if err := cbor.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", resource.Malformed, err)
	}

	length := header.Game.IDLength()

	var tree deps.Root
	if len(doc.Tree) == 0 {
		tree = deps.NewTree(header.ID)
	} else {
		decoded, err := deps.Read(doc.Tree, length)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", resource.Malformed, err)
		}
		tree = decoded
	}

	if tree.SelfID() != header.ID {
		return nil, fmt.Errorf("%w: tree belongs to %s", resource.Malformed, tree.SelfID())
	}

	asset := Asset{
		Base: resource.NewBase(header.ID, header.Type, header.Game),
		Tree: tree,
	}

	for _, id := range doc.Holds {
		held, err := loader.LoadResource(ids.AssetID(id))
		if err != nil {
			log.Debug().Err(err).Msgf("%s: not holding %s", header.ID, ids.AssetID(id))
			continue
		}
		asset.holds = append(asset.holds, held)
	}

	if header.Type != resource.World {
		return &asset, nil
	}

	return &World{
		Asset:    asset,
		Areas:    doc.Areas,
		MapWorld: ids.AssetID(doc.MapWorld),
	}, nil
}

func (Codec) Encode(r resource.Resource) ([]byte, error) {
	var (
		asset *Asset
		doc   document
	)

	switch r := r.(type) {
	case *World:
		asset = &r.Asset
		doc.Areas = r.Areas
		doc.MapWorld = uint64(r.MapWorld)
	case *Asset:
		asset = r
	default:
		return nil, fmt.Errorf("cannot encode %T as a fixture", r)
	}

	doc.Tree = deps.Write(asset.Tree, r.Game().IDLength())
	for _, held := range asset.holds {
		doc.Holds = append(doc.Holds, uint64(held.ID()))
	}

	return cbor.Marshal(doc)
}

// Encode builds the cooked bytes of a resource that holds the given
// resources.
func Encode(tree deps.Root, length ids.IDLength, holds ...ids.AssetID) ([]byte, error) {
	doc := document{
		Tree: deps.Write(tree, length),
	}
	for _, id := range holds {
		doc.Holds = append(doc.Holds, uint64(id))
	}
	return cbor.Marshal(doc)
}

func EncodeWorld(tree deps.Root, length ids.IDLength, areas []AreaInfo, mapWorld ids.AssetID) ([]byte, error) {
	if len(areas) == 0 {
		return nil, errors.New("a world needs at least one area")
	}

	return cbor.Marshal(document{
		Tree:     deps.Write(tree, length),
		Areas:    areas,
		MapWorld: uint64(mapWorld),
	})
}

// Registry decodes every type that can have dependencies as a fixture.
// Types that already have a codec, like dependency groups, keep it.
func Registry() resource.Registry {
	registry := resource.NewRegistry()
	for _, info := range resource.Types() {
		if _, ok := registry[info.Type]; ok || !info.Type.CanHaveDependencies() {
			continue
		}
		registry.Register(info.Type, Codec{})
	}
	return registry
}
