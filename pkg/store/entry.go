package store

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/cfoust/resforge/pkg/deps"
	"github.com/cfoust/resforge/pkg/game"
	"github.com/cfoust/resforge/pkg/ids"
	"github.com/cfoust/resforge/pkg/resource"
)

type Flags uint32

const (
	NeedsRecook        Flags = 0x1
	IsBaseGameResource Flags = 0x2
	Hidden             Flags = 0x4
	HasBeenModified    Flags = 0x8
	AutoResName        Flags = 0x10
	AutoResDir         Flags = 0x20
	// Only meaningful while the program runs, never written to disk.
	MarkedForDeletion Flags = 0x40

	persistedFlags = NeedsRecook | IsBaseGameResource | Hidden | HasBeenModified | AutoResName | AutoResDir
)

// Entry is the store's record of one resource.
type Entry struct {
	store     *Store
	id        ids.AssetID
	kind      resource.Type
	directory *Directory
	name      string
	flags     Flags
	transient bool
	// Cooked size in bytes, -1 until known
	size int64

	resource resource.Resource
	tree     deps.Root

	metadataDirty bool
}

func (e *Entry) ID() ids.AssetID             { return e.id }
func (e *Entry) ResourceType() resource.Type { return e.kind }
func (e *Entry) Name() string                { return e.name }
func (e *Entry) Directory() *Directory       { return e.directory }
func (e *Entry) Game() game.Game             { return e.store.game }
func (e *Entry) Store() *Store               { return e.store }
func (e *Entry) IsTransient() bool           { return e.transient }
func (e *Entry) IsLoaded() bool              { return e.resource != nil }
func (e *Entry) Resource() resource.Resource { return e.resource }
func (e *Entry) Flags() Flags                { return e.flags }

func (e *Entry) HasFlag(flag Flags) bool {
	return e.flags&flag != 0
}

func (e *Entry) SetFlag(flag Flags) {
	if e.flags&flag == flag {
		return
	}
	e.flags |= flag
	if flag&persistedFlags != 0 {
		e.metadataDirty = true
		e.store.databaseDirty = true
	}
}

func (e *Entry) ClearFlag(flag Flags) {
	if e.flags&flag == 0 {
		return
	}
	e.flags &^= flag
	if flag&persistedFlags != 0 {
		e.metadataDirty = true
		e.store.databaseDirty = true
	}
}

func (e *Entry) setSize(size int64) {
	if e.size == size {
		return
	}
	e.size = size
	if !e.transient {
		e.store.databaseDirty = true
	}
}

// IsNamed reports whether the entry has a name other than its asset ID.
func (e *Entry) IsNamed() bool {
	return e.name != e.id.Format(e.store.game.IDLength())
}

func (e *Entry) IsInDirectory(dir *Directory) bool {
	return e.directory != nil && e.directory.IsDescendantOf(dir)
}

func (e *Entry) CookedExtension() ids.FourCC {
	ext, _ := e.kind.Extension(e.store.game)
	return ext
}

// Path is the virtual path of the entry, like "Worlds/0000BEEF.MLVL".
func (e *Entry) Path() string {
	return e.directory.FullPath() + e.name + "." + e.CookedExtension().String()
}

// CookedPath is where the cooked file lives in the project filesystem.
// Transient entries have no file.
func (e *Entry) CookedPath() string {
	if e.transient {
		return ""
	}
	return e.store.fs.Join(ResourcesDir, e.Path())
}

func (e *Entry) RawPath() string {
	if e.transient {
		return ""
	}
	return e.CookedPath() + ".rsraw"
}

func (e *Entry) MetadataPath() string {
	if e.transient {
		return ""
	}
	return e.CookedPath() + ".rsmeta"
}

func (e *Entry) HasCookedVersion() bool {
	return fileExists(e.store.fs, e.CookedPath())
}

func (e *Entry) HasRawVersion() bool {
	return fileExists(e.store.fs, e.RawPath())
}

// Size is the size of the cooked file, or -1 if there is none.
func (e *Entry) Size() int64 {
	if e.size < 0 && !e.transient {
		info, err := e.store.fs.Stat(e.CookedPath())
		if err == nil {
			e.setSize(info.Size())
		}
	}
	return e.size
}

// NeedsRecook reports whether the cooked file is out of date with respect
// to the raw one.
func (e *Entry) NeedsRecook() bool {
	if e.HasFlag(NeedsRecook) {
		return true
	}

	if !e.HasRawVersion() {
		return false
	}

	if !e.HasCookedVersion() {
		return true
	}

	raw, _ := modTime(e.store.fs, e.RawPath())
	cooked, _ := modTime(e.store.fs, e.CookedPath())
	return raw.After(cooked)
}

// CookedData reads the cooked file.
func (e *Entry) CookedData() ([]byte, error) {
	if !e.HasCookedVersion() {
		return nil, fmt.Errorf("%w: %s", Missing, e.Path())
	}

	data, err := readBytes(e.store.fs, e.CookedPath())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", Missing, e.Path(), err)
	}
	return data, nil
}

// Load returns the live resource, decoding the cooked file if it is not
// loaded yet.
func (e *Entry) Load() (resource.Resource, error) {
	if e.resource != nil {
		return e.resource, nil
	}

	data, err := e.CookedData()
	if err != nil {
		log.Error().Msgf("failed to load %s: cooked file is missing", e.Path())
		return nil, err
	}

	return e.LoadCooked(data)
}

// LoadCooked decodes the resource from data, for example bytes extracted
// from a pak.
func (e *Entry) LoadCooked(data []byte) (resource.Resource, error) {
	if e.resource != nil {
		return e.resource, nil
	}

	s := e.store
	s.loading[e.id] = struct{}{}
	defer delete(s.loading, e.id)

	header := resource.Header{
		ID:   e.id,
		Type: e.kind,
		Game: s.game,
	}

	res, err := s.codecs.Codec(e.kind).Decode(header, data, nestedLoader{s})
	if err != nil {
		log.Error().Err(err).Msgf("failed to load %s", e.Path())
		return nil, fmt.Errorf("failed to load %s: %w", e.Path(), err)
	}

	e.resource = res
	e.setSize(int64(len(data)))
	s.loaded[e.id] = e
	return res, nil
}

// Unload drops the loaded resource. It fails while anything still holds a
// reference to it. The dependency tree is kept.
func (e *Entry) Unload() error {
	if e.resource == nil {
		return nil
	}

	if e.resource.IsReferenced() {
		return fmt.Errorf("%w: %s", Referenced, e.Path())
	}

	if disposer, ok := e.resource.(resource.Disposer); ok {
		disposer.Dispose()
	}

	e.resource = nil
	delete(e.store.loaded, e.id)
	return nil
}

// Cook encodes the loaded resource and writes the cooked file.
func (e *Entry) Cook() error {
	if e.transient {
		return fmt.Errorf("cannot cook transient resource %s", e.id)
	}

	res, err := e.Load()
	if err != nil {
		return err
	}

	data, err := e.store.codecs.Codec(e.kind).Encode(res)
	if err != nil {
		return fmt.Errorf("failed to cook %s: %w", e.Path(), err)
	}

	if err := writeBytes(e.store.fs, data, e.CookedPath()); err != nil {
		return err
	}

	e.setSize(int64(len(data)))
	e.ClearFlag(NeedsRecook)
	e.UpdateDependencies()
	return nil
}

// Dependencies returns the dependency tree, reading it from the metadata
// file or building it when it is not cached.
func (e *Entry) Dependencies() deps.Root {
	if e.tree == nil && !e.transient {
		if err := e.LoadMetadata(); err != nil && !isNotExist(err) {
			log.Warn().Err(err).Msgf("%s: rebuilding dependency cache", e.Path())
		}
	}

	if e.tree == nil {
		e.UpdateDependencies()
	}

	return e.tree
}

// UpdateDependencies rebuilds the dependency tree from the resource.
func (e *Entry) UpdateDependencies() {
	e.tree = nil

	if !e.kind.CanHaveDependencies() {
		e.tree = deps.NewTree(e.id)
		e.metadataDirty = true
		return
	}

	wasLoaded := e.IsLoaded()

	res, err := e.Load()
	if err != nil {
		log.Error().Msgf("unable to update dependencies of %s", e.Path())
		e.tree = deps.NewTree(e.id)
		return
	}

	e.tree = res.BuildDependencyTree()
	e.metadataDirty = true

	if !wasLoaded {
		e.store.DestroyUnreferencedResources()
	}
}

func (e *Entry) Move(dir string) error {
	return e.MoveAndRename(dir, e.name)
}

func (e *Entry) Rename(name string) error {
	return e.MoveAndRename(e.directory.FullPath(), name)
}

// MoveAndRename changes the virtual location of the entry and moves its
// files to match. Moving onto a path held by another entry fails, moving
// onto the current path does nothing.
func (e *Entry) MoveAndRename(dir string, name string) error {
	if e.transient {
		return fmt.Errorf("cannot move transient resource %s", e.id)
	}

	if !e.store.IsValidResourcePath(dir, name) {
		return fmt.Errorf("%w: %s%s", InvalidPath, dir, name)
	}

	target := e.store.root.FindChildDirectory(dir, false)
	if target != nil {
		if existing, ok := target.FindChildResource(name, e.kind); ok && existing != e {
			return fmt.Errorf("%w: %s", PathOccupied, existing.Path())
		}

		if target == e.directory && name == e.name {
			return nil
		}
	}

	// Sidecars first: their paths extend the cooked path, and some
	// filesystems rename everything under a prefix.
	var (
		oldDir   = e.directory
		oldName  = e.name
		oldPaths = []string{e.MetadataPath(), e.RawPath(), e.CookedPath()}
	)

	target = e.store.root.FindChildDirectory(dir, true)
	oldDir.RemoveChildResource(e)
	e.directory = target
	e.name = name
	target.AddChild("", e)

	newPaths := []string{e.MetadataPath(), e.RawPath(), e.CookedPath()}

	var moved []int
	for i := range oldPaths {
		if !fileExists(e.store.fs, oldPaths[i]) {
			continue
		}

		err := moveFile(e.store.fs, oldPaths[i], newPaths[i])
		if err == nil {
			moved = append(moved, i)
			continue
		}

		log.Error().Err(err).Msgf("failed to move %s, reverting", oldPaths[i])
		for _, j := range moved {
			if err := moveFile(e.store.fs, newPaths[j], oldPaths[j]); err != nil {
				log.Error().Err(err).Msgf("failed to restore %s", oldPaths[j])
			}
		}

		target.RemoveChildResource(e)
		e.directory = oldDir
		e.name = oldName
		oldDir.AddChild("", e)
		e.store.ConditionalDeleteDirectory(target, true)
		return err
	}

	e.store.databaseDirty = true
	e.store.ConditionalDeleteDirectory(oldDir, true)
	return nil
}
