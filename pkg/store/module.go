package store

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/rs/zerolog/log"

	"github.com/cfoust/resforge/pkg/game"
	"github.com/cfoust/resforge/pkg/ids"
	"github.com/cfoust/resforge/pkg/resource"
	"github.com/cfoust/resforge/pkg/vfs"
)

const (
	ResourcesDir = "Resources"
	DatabaseFile = "ResourceDatabase.rdb"
)

var (
	Missing         = fmt.Errorf("resource missing")
	Malformed       = fmt.Errorf("malformed resource data")
	Duplicate       = fmt.Errorf("resource already registered")
	RecursionHazard = fmt.Errorf("recursive resource load")
	PathOccupied    = fmt.Errorf("path is occupied by another resource")
	InvalidPath     = fmt.Errorf("invalid resource path")
	Referenced      = fmt.Errorf("resource is still referenced")
)

type Directory = vfs.Directory[*Entry]

// Nested loads of these types from inside a codec are refused. Worlds,
// areas and scans reference each other and would recurse forever.
var guardedTypes = map[resource.Type]struct{}{
	resource.World: {},
	resource.Area:  {},
	resource.Scan:  {},
}

// Store tracks every resource in a project. It owns the entries and the
// virtual directory tree that indexes them.
type Store struct {
	fs     billy.Filesystem
	game   game.Game
	codecs resource.Registry

	entries   map[ids.AssetID]*Entry
	loaded    map[ids.AssetID]*Entry
	loading   map[ids.AssetID]struct{}
	root      *Directory
	transient map[string]*Directory

	databaseDirty bool
}

// New creates an empty store over a project filesystem. Cooked resources
// live under Resources/ in that filesystem.
func New(fs billy.Filesystem, g game.Game, codecs resource.Registry) *Store {
	if codecs == nil {
		codecs = resource.NewRegistry()
	}

	return &Store{
		fs:        fs,
		game:      g,
		codecs:    codecs,
		entries:   make(map[ids.AssetID]*Entry),
		loaded:    make(map[ids.AssetID]*Entry),
		loading:   make(map[ids.AssetID]struct{}),
		root:      vfs.NewRoot[*Entry](),
		transient: make(map[string]*Directory),
	}
}

func (s *Store) Game() game.Game {
	return s.game
}

func (s *Store) Filesystem() billy.Filesystem {
	return s.fs
}

func (s *Store) Root() *Directory {
	return s.root
}

// DefaultDirectory is where resources without a known location go.
func (s *Store) DefaultDirectory() string {
	if s.game < game.CorruptionProto {
		return "Uncategorized/"
	}
	return "uncategorized/"
}

func (s *Store) IsValidResourcePath(dir string, name string) bool {
	return vfs.IsValidDirectoryPath(dir) && vfs.IsValidResourceName(name)
}

func (s *Store) newEntry(id ids.AssetID, kind resource.Type, name string) (*Entry, error) {
	if !id.Fits(s.game.IDLength()) || !id.IsValid(s.game.IDLength()) {
		return nil, fmt.Errorf("invalid asset id %s for %s", id, s.game)
	}

	if !kind.IsInGame(s.game) {
		return nil, fmt.Errorf("%s resources do not exist in %s", kind, s.game)
	}

	if _, exists := s.entries[id]; exists {
		log.Error().Msgf("attempted to register resource that's already tracked: %s", id)
		return nil, fmt.Errorf("%w: %s", Duplicate, id)
	}

	return &Entry{
		store: s,
		id:    id,
		kind:  kind,
		name:  name,
		size:  -1,
	}, nil
}

// RegisterResource adds a new resource to the project. The original entry
// is kept if the ID is already tracked.
func (s *Store) RegisterResource(id ids.AssetID, kind resource.Type, dir string, name string) (*Entry, error) {
	if dir == "" {
		dir = s.DefaultDirectory()
	}
	return s.register(id, kind, dir, name)
}

// register tracks an entry at exactly dir. An empty dir is the root.
func (s *Store) register(id ids.AssetID, kind resource.Type, dir string, name string) (*Entry, error) {
	if !s.IsValidResourcePath(dir, name) {
		return nil, fmt.Errorf("%w: %s%s", InvalidPath, dir, name)
	}

	entry, err := s.newEntry(id, kind, name)
	if err != nil {
		return nil, err
	}

	directory := s.root.FindChildDirectory(dir, true)
	if !directory.AddChild("", entry) {
		return nil, fmt.Errorf("%w: %s%s", PathOccupied, directory.FullPath(), name)
	}

	entry.directory = directory
	s.entries[id] = entry
	s.databaseDirty = true
	return entry, nil
}

// RegisterTransientResource tracks a resource that is not part of the
// project, like an asset read straight out of a pak. Transient entries are
// grouped by source and never persisted.
func (s *Store) RegisterTransientResource(source string, id ids.AssetID, kind resource.Type, dir string, name string) (*Entry, error) {
	if !s.IsValidResourcePath(dir, name) {
		return nil, fmt.Errorf("%w: %s%s", InvalidPath, dir, name)
	}

	entry, err := s.newEntry(id, kind, name)
	if err != nil {
		return nil, err
	}

	root, ok := s.transient[source]
	if !ok {
		root = vfs.NewRoot[*Entry]()
		s.transient[source] = root
	}

	directory := root.FindChildDirectory(dir, true)
	if !directory.AddChild("", entry) {
		return nil, fmt.Errorf("%w: %s%s", PathOccupied, directory.FullPath(), name)
	}

	entry.directory = directory
	entry.transient = true
	s.entries[id] = entry
	return entry, nil
}

// ClearTransient forgets every transient entry registered for source.
func (s *Store) ClearTransient(source string) {
	root, ok := s.transient[source]
	if !ok {
		return
	}

	root.Walk(func(dir *Directory) {
		for _, entry := range dir.Resources() {
			if err := entry.Unload(); err != nil {
				log.Warn().Err(err).Msgf("transient resource %s still in use", entry.ID())
			}
			delete(s.entries, entry.id)
		}
	})
	delete(s.transient, source)
}

func (s *Store) FindEntry(id ids.AssetID) *Entry {
	if !id.IsValid(s.game.IDLength()) {
		return nil
	}
	return s.entries[id]
}

func (s *Store) IsResourceRegistered(id ids.AssetID) bool {
	return s.FindEntry(id) != nil
}

// FindEntryByPath resolves a path like "Worlds/Intro/0000BEEF.MLVL".
func (s *Store) FindEntryByPath(resourcePath string) *Entry {
	dir, file := path.Split(strings.ReplaceAll(resourcePath, "\\", "/"))

	dot := strings.LastIndex(file, ".")
	if dot == -1 {
		return nil
	}

	kind, ok := resource.TypeForExtension(ids.FromString(strings.ToUpper(file[dot+1:])), s.game)
	if !ok {
		return nil
	}

	directory := s.root.FindChildDirectory(dir, false)
	if directory == nil {
		return nil
	}

	entry, _ := directory.FindChildResource(file[:dot], kind)
	return entry
}

func (s *Store) LoadResource(id ids.AssetID) (resource.Resource, error) {
	entry := s.FindEntry(id)
	if entry == nil {
		return nil, fmt.Errorf("%w: %s", Missing, id)
	}
	return entry.Load()
}

func (s *Store) LoadResourceOfType(id ids.AssetID, kind resource.Type) (resource.Resource, error) {
	entry := s.FindEntry(id)
	if entry == nil {
		return nil, fmt.Errorf("%w: %s", Missing, id)
	}

	if entry.kind != kind {
		log.Error().Msgf(
			"loading %s as %s, but it is a %s",
			id,
			kind,
			entry.kind,
		)
		return nil, fmt.Errorf("%s is a %s, not a %s", id, entry.kind, kind)
	}

	return entry.Load()
}

// LoadAs loads a resource and checks that it has the expected Go type.
func LoadAs[T resource.Resource](s *Store, id ids.AssetID) (T, error) {
	var zero T

	res, err := s.LoadResource(id)
	if err != nil {
		return zero, err
	}

	typed, ok := res.(T)
	if !ok {
		return zero, fmt.Errorf("%s has unexpected type %T", id, res)
	}

	return typed, nil
}

// nestedLoader is given to codecs. Every resource it returns carries a
// reference that the caller must release.
type nestedLoader struct {
	store *Store
}

func (l nestedLoader) LoadResource(id ids.AssetID) (resource.Resource, error) {
	entry := l.store.FindEntry(id)
	if entry == nil {
		return nil, fmt.Errorf("%w: %s", Missing, id)
	}

	if entry.resource == nil {
		_, guarded := guardedTypes[entry.kind]
		_, inProgress := l.store.loading[id]
		if guarded || inProgress {
			log.Debug().Msgf("skipping nested load of %s %s", entry.kind, id)
			return nil, RecursionHazard
		}
	}

	res, err := entry.Load()
	if err != nil {
		return nil, err
	}

	res.Retain()
	return res, nil
}

func (s *Store) loadedEntries() []*Entry {
	entries := make([]*Entry, 0, len(s.loaded))
	for _, entry := range s.loaded {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].id < entries[j].id
	})
	return entries
}

// DestroyUnreferencedResources unloads every resource nobody holds a
// reference to. Unloading can release the last reference to another
// resource, so it repeats until a pass evicts nothing.
func (s *Store) DestroyUnreferencedResources() int {
	total := 0

	for {
		evicted := 0
		for _, entry := range s.loadedEntries() {
			if entry.resource == nil || entry.resource.IsReferenced() {
				continue
			}

			if err := entry.Unload(); err == nil {
				evicted++
			}
		}

		total += evicted
		if evicted == 0 {
			break
		}
	}

	if total > 0 {
		log.Debug().Msgf("destroyed %d unreferenced resources", total)
	}

	return total
}

// DeleteEntry removes a resource from the project along with its files.
func (s *Store) DeleteEntry(entry *Entry) error {
	if entry.resource != nil && entry.resource.IsReferenced() {
		return fmt.Errorf("%w: %s", Referenced, entry.id)
	}

	if err := entry.Unload(); err != nil {
		return err
	}

	if !entry.transient {
		for _, file := range []string{entry.CookedPath(), entry.RawPath(), entry.MetadataPath()} {
			if fileExists(s.fs, file) {
				if err := s.fs.Remove(file); err != nil {
					return err
				}
			}
		}
		s.databaseDirty = true
	}

	entry.SetFlag(MarkedForDeletion)
	dir := entry.directory
	dir.RemoveChildResource(entry)
	delete(s.entries, entry.id)

	if !entry.transient {
		s.ConditionalDeleteDirectory(dir, true)
	}
	return nil
}

func (s *Store) GetVirtualDirectory(dirPath string, create bool) *Directory {
	return s.root.FindChildDirectory(dirPath, create)
}

// ConditionalDeleteDirectory removes dir if it no longer holds anything.
// With recurse set, emptied parents are removed as well.
func (s *Store) ConditionalDeleteDirectory(dir *Directory, recurse bool) {
	for dir != nil && !dir.IsRoot() && dir.IsEmpty(true) {
		parent := dir.Parent()
		diskPath := s.fs.Join(ResourcesDir, dir.FullPath())
		parent.RemoveChildDirectory(dir)

		if isDirectory(s.fs, diskPath) {
			if err := removeIfEmpty(s.fs, diskPath); err != nil {
				log.Warn().Err(err).Msgf("could not remove directory %s", diskPath)
			}
		}

		if !recurse {
			return
		}
		dir = parent
	}
}

// Entries returns every tracked entry ordered by ID.
func (s *Store) Entries() []*Entry {
	entries := make([]*Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].id < entries[j].id
	})
	return entries
}

func (s *Store) NumTotalResources() int {
	return len(s.entries)
}

func (s *Store) NumLoadedResources() int {
	return len(s.loaded)
}

// UpdateAllDependencies rebuilds the dependency tree of every resource.
func (s *Store) UpdateAllDependencies() {
	for _, entry := range s.Entries() {
		entry.UpdateDependencies()
	}
	s.DestroyUnreferencedResources()
}

// ConditionalSave writes the database and any entry metadata that changed.
func (s *Store) ConditionalSave() error {
	for _, entry := range s.Entries() {
		if err := entry.SaveMetadata(false); err != nil {
			return err
		}
	}

	if s.databaseDirty {
		return s.SaveDatabase()
	}
	return nil
}

// Close unloads everything, flushes pending changes and forgets every
// project resource.
func (s *Store) Close() error {
	s.DestroyUnreferencedResources()

	if len(s.loaded) > 0 {
		log.Warn().Msgf("%d resources still loaded on close", len(s.loaded))
		for _, entry := range s.loadedEntries() {
			log.Warn().Msgf("%s %s", entry.kind, entry.Path())
		}
	}

	err := s.ConditionalSave()

	for id, entry := range s.entries {
		if entry.transient {
			continue
		}
		delete(s.entries, id)
		delete(s.loaded, id)
	}

	s.root = vfs.NewRoot[*Entry]()
	return err
}
