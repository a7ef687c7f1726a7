package builder

import (
	"strings"

	"github.com/repeale/fp-go/option"
	"github.com/rs/zerolog/log"

	"github.com/cfoust/resforge/pkg/game"
	"github.com/cfoust/resforge/pkg/ids"
	"github.com/cfoust/resforge/pkg/pak"
	"github.com/cfoust/resforge/pkg/resource"
	"github.com/cfoust/resforge/pkg/store"
)

// UniverseAreaPackage holds the assets every area can rely on being
// loaded.
const UniverseAreaPackage = "UniverseArea"

// PackageFinder resolves packages by name.
type PackageFinder interface {
	FindPackage(name string) opt.Option[*pak.Package]
}

// PackageBuilder lists the assets that go into one pak, in the order they
// are written.
type PackageBuilder struct {
	store    *store.Store
	pkg      *pak.Package
	packages PackageFinder
	usage    *CharacterUsageMap
	walk     *walker

	world           resource.WorldResource
	allowDuplicates bool
	packageSeen     idSet
	areaSeen        idSet
	universal       idSet
	out             []ids.AssetID
}

func NewPackageBuilder(s *store.Store, pkg *pak.Package, packages PackageFinder) *PackageBuilder {
	b := &PackageBuilder{
		store:    s,
		pkg:      pkg,
		packages: packages,
		usage:    NewCharacterUsageMap(s),
	}

	b.walk = &walker{
		usage: b.usage,
		add:   b.add,
		characterUsed: func(current scope, index uint32) bool {
			return b.usage.IsCharacterUsed(current.animSet, index) || current.playerActor
		},
		playerActorAnimations: true,
	}
	return b
}

// BuildDependencyList returns every asset of the package, each exactly
// once. Dependencies precede the assets that reference them. With
// allowDuplicates set, areas that ask for it get their own copy of assets
// that earlier areas already listed.
func (b *PackageBuilder) BuildDependencyList(allowDuplicates bool) []ids.AssetID {
	b.allowDuplicates = allowDuplicates
	b.packageSeen = make(idSet)
	b.areaSeen = make(idSet)
	b.out = nil
	b.findUniversalAreaAssets()

	for _, named := range b.pkg.NamedResources() {
		entry := b.store.FindEntry(named.ID)
		if entry == nil {
			log.Warn().Msgf("package %s: %s (%s) is not in the project", b.pkg.Name, named.Name, named.ID)
			continue
		}

		if strings.HasSuffix(named.Name, "NODEPEND") || entry.ResourceType() == resource.Midi {
			if !b.packageSeen.has(named.ID) {
				b.packageSeen.add(named.ID)
				b.out = append(b.out, named.ID)
			}
			continue
		}

		root := scope{
			animSet:   ids.Invalid(b.store.Game().IDLength()),
			universal: b.universal.has(named.ID),
		}

		if entry.ResourceType() == resource.World {
			world, err := store.LoadAs[resource.WorldResource](b.store, named.ID)
			if err != nil {
				log.Error().Err(err).Msgf("package %s: could not load world %s", b.pkg.Name, named.ID)
				continue
			}

			world.Retain()
			b.world = world
			b.add(root, named.ID)
			b.world = nil
			world.Release()
			continue
		}

		b.usage.FindUsagesForAsset(entry)
		b.add(root, named.ID)
	}

	return b.out
}

func (b *PackageBuilder) isValid(s scope, kind resource.Type) bool {
	switch kind {
	case resource.Midi:
		return false
	case resource.AudioGroup:
		return b.store.Game() >= game.EchoesDemo
	case resource.World:
		return s.parent == nil
	case resource.Area:
		return s.parent == nil || s.parent.ResourceType() == resource.World
	}
	return true
}

func (b *PackageBuilder) add(s scope, id ids.AssetID) {
	if s.parent != nil && s.parent.ResourceType() == resource.DependencyGroup {
		return
	}

	entry := b.store.FindEntry(id)
	if entry == nil {
		return
	}

	kind := entry.ResourceType()
	if !b.isValid(s, kind) {
		return
	}

	if (s.duplicates && b.areaSeen.has(id)) ||
		(!s.duplicates && b.packageSeen.has(id)) ||
		(!s.universal && b.universal.has(id)) {
		return
	}

	b.packageSeen.add(id)
	b.areaSeen.add(id)

	child := s.parentIs(entry)

	switch kind {
	case resource.Area:
		b.enterArea(&child, id)
	case resource.AnimSet:
		child.animSet = id
	}

	b.walk.evaluate(child, entry.Dependencies())
	b.out = append(b.out, id)
}

func (b *PackageBuilder) enterArea(s *scope, id ids.AssetID) {
	b.areaSeen = make(idSet)
	s.duplicates = false

	if b.world == nil {
		return
	}

	if b.store.Game() <= game.Echoes {
		b.usage.FindUsagesForArea(b.world, id)
	}

	if !b.allowDuplicates {
		return
	}

	index := areaIndex(b.world, id)
	if opt.IsSome(index) {
		s.duplicates = b.world.AllowsPakDuplicates(index.Value)
	}
}

// findUniversalAreaAssets collects the assets of the universe area
// package. Other packages leave them out.
func (b *PackageBuilder) findUniversalAreaAssets() {
	b.universal = make(idSet)

	if b.packages == nil {
		return
	}

	found := b.packages.FindPackage(UniverseAreaPackage)
	if opt.IsNone(found) {
		return
	}

	length := b.store.Game().IDLength()
	for _, named := range found.Value.NamedResources() {
		if !named.ID.IsValid(length) {
			continue
		}

		b.universal.add(named.ID)

		entry := b.store.FindEntry(named.ID)
		if entry == nil || entry.ResourceType() != resource.World {
			continue
		}

		world, err := store.LoadAs[resource.WorldResource](b.store, named.ID)
		if err != nil {
			log.Warn().Err(err).Msgf("could not load universe world %s", named.ID)
			continue
		}

		for i := 0; i < world.NumAreas(); i++ {
			if area := world.AreaID(i); area.IsValid(length) {
				b.universal.add(area)
			}
		}

		mapWorld := world.MapWorldID()
		if !mapWorld.IsValid(length) || !b.store.IsResourceRegistered(mapWorld) {
			continue
		}

		group, err := store.LoadAs[*resource.DependencyGroupResource](b.store, mapWorld)
		if err != nil {
			log.Warn().Err(err).Msgf("could not load universe map %s", mapWorld)
			continue
		}

		for _, member := range group.IDs() {
			if member.IsValid(length) {
				b.universal.add(member)
			}
		}
	}
}
