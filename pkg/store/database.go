package store

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/go-git/go-billy/v5/util"
	"github.com/rs/zerolog/log"

	"github.com/cfoust/resforge/pkg/game"
	"github.com/cfoust/resforge/pkg/ids"
	"github.com/cfoust/resforge/pkg/resource"
	"github.com/cfoust/resforge/pkg/vfs"
)

const (
	databaseMagic   = "RDB"
	databaseVersion = 1
)

type databaseEntry struct {
	ID        uint64 `cbor:"id"`
	Extension string `cbor:"ext"`
	Directory string `cbor:"dir"`
	Name      string `cbor:"name"`
	Flags     uint32 `cbor:"flags"`
	Size      int64  `cbor:"size"`
}

type database struct {
	Magic       string          `cbor:"magic"`
	Version     uint32          `cbor:"version"`
	Game        string          `cbor:"game"`
	Directories []string        `cbor:"directories"`
	Entries     []databaseEntry `cbor:"entries"`
}

// clear forgets every project entry. Transient entries are kept.
func (s *Store) clear() {
	for id, entry := range s.entries {
		if entry.transient {
			continue
		}
		entry.resource = nil
		delete(s.entries, id)
		delete(s.loaded, id)
	}
	s.root = vfs.NewRoot[*Entry]()
}

func (s *Store) SaveDatabase() error {
	db := database{
		Magic:   databaseMagic,
		Version: databaseVersion,
		Game:    s.game.String(),
	}

	s.root.Walk(func(dir *Directory) {
		if !dir.IsRoot() {
			db.Directories = append(db.Directories, dir.FullPath())
		}
	})

	for _, entry := range s.Entries() {
		if entry.transient {
			continue
		}

		db.Entries = append(db.Entries, databaseEntry{
			ID:        uint64(entry.id),
			Extension: entry.CookedExtension().String(),
			Directory: entry.directory.FullPath(),
			Name:      entry.name,
			Flags:     uint32(entry.flags & persistedFlags),
			Size:      entry.size,
		})
	}

	data, err := cbor.Marshal(db)
	if err != nil {
		return err
	}

	if err := writeBytes(s.fs, data, DatabaseFile); err != nil {
		return err
	}

	log.Debug().Msgf("saved resource database with %d entries", len(db.Entries))
	s.databaseDirty = false
	return nil
}

// LoadDatabase replaces the tracked entries with the ones listed in the
// resource database. A database that cannot be read returns Malformed and
// the caller may fall back to RebuildFromDirectory.
func (s *Store) LoadDatabase() error {
	data, err := readBytes(s.fs, DatabaseFile)
	if err != nil {
		return fmt.Errorf("%w: %v", Missing, err)
	}

	var db database
	if err := cbor.Unmarshal(data, &db); err != nil {
		return fmt.Errorf("%w: %v", Malformed, err)
	}

	if db.Magic != databaseMagic || db.Version != databaseVersion {
		return fmt.Errorf("%w: unsupported database version", Malformed)
	}

	dbGame, err := game.Parse(db.Game)
	if err != nil || dbGame != s.game {
		return fmt.Errorf("%w: database is for %s, not %s", Malformed, db.Game, s.game)
	}

	s.clear()

	for _, dir := range db.Directories {
		s.root.FindChildDirectory(dir, true)
	}

	for _, record := range db.Entries {
		kind, ok := resource.TypeForExtension(ids.FromString(record.Extension), s.game)
		if !ok {
			log.Error().Msgf("unknown resource extension %s in database", record.Extension)
			continue
		}

		entry, err := s.register(ids.AssetID(record.ID), kind, record.Directory, record.Name)
		if err != nil {
			log.Error().Err(err).Msgf("could not register %s%s", record.Directory, record.Name)
			continue
		}

		entry.flags = Flags(record.Flags) & persistedFlags
		entry.size = record.Size
	}

	s.databaseDirty = false
	return nil
}

// RebuildFromDirectory discards the tracked entries and registers every
// cooked file found under Resources/.
func (s *Store) RebuildFromDirectory() error {
	s.clear()

	if !isDirectory(s.fs, ResourcesDir) {
		s.databaseDirty = true
		return s.ConditionalSave()
	}

	length := s.game.IDLength()
	prefix := ResourcesDir + "/"

	err := util.Walk(s.fs, ResourcesDir, func(filePath string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relative := strings.TrimPrefix(strings.ReplaceAll(filePath, "\\", "/"), prefix)
		if info.IsDir() {
			if relative != ResourcesDir {
				s.root.FindChildDirectory(relative, true)
			}
			return nil
		}

		if strings.HasSuffix(relative, ".rsraw") || strings.HasSuffix(relative, ".rsmeta") {
			return nil
		}

		dir, file := path.Split(relative)
		dot := strings.LastIndex(file, ".")
		if dot == -1 {
			return nil
		}

		kind, ok := resource.TypeForExtension(ids.FromString(strings.ToUpper(file[dot+1:])), s.game)
		if !ok {
			log.Warn().Msgf("could not identify resource type of %s", relative)
			return nil
		}

		name := file[:dot]

		var (
			id     ids.AssetID
			flags  Flags
			cached = false
		)

		metadata, metaErr := readBytes(s.fs, filePath+".rsmeta")
		if metaErr == nil {
			cachedFlags, cachedTree, err := DecodeCache(metadata, length)
			if err == nil {
				id = cachedTree.SelfID()
				flags = cachedFlags
				cached = true
			} else {
				log.Warn().Err(err).Msgf("ignoring metadata of %s", relative)
			}
		}

		if !cached {
			parsed, err := ids.Parse(name)
			if err != nil || !parsed.Fits(length) {
				log.Error().Msgf("could not determine the asset id of %s", relative)
				return nil
			}
			id = parsed
		}

		entry, err := s.register(id, kind, dir, name)
		if err != nil {
			log.Error().Err(err).Msgf("could not register %s", relative)
			return nil
		}
		entry.flags = flags
		return nil
	})
	if err != nil {
		return err
	}

	for _, entry := range s.Entries() {
		entry.Dependencies()
	}
	s.DestroyUnreferencedResources()

	log.Info().Msgf("rebuilt resource database with %d resources", s.NumTotalResources())
	s.databaseDirty = true
	return s.ConditionalSave()
}
