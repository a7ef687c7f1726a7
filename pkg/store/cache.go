package store

import (
	"errors"
	"fmt"
	"os"

	"github.com/cfoust/resforge/pkg/deps"
	gIO "github.com/cfoust/resforge/pkg/game/io"
	"github.com/cfoust/resforge/pkg/ids"
)

const (
	cacheMagic   uint32 = 0x43414348 // CACH
	cacheVersion uint32 = 0
)

func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

// EncodeCache writes the metadata record of one entry:
// [CACH][version][flags][tree size][tree][thumbnail size = 0]
func EncodeCache(flags Flags, tree deps.Root, length ids.IDLength) []byte {
	treeData := deps.Write(tree, length)

	p := gIO.Buffer{}
	p.PutUint32(cacheMagic)
	p.PutUint32(cacheVersion)
	p.PutUint32(uint32(flags & persistedFlags))
	p.PutUint32(uint32(len(treeData)))
	p.PutBytes(treeData)
	p.PutUint32(0)
	return p
}

func DecodeCache(data []byte, length ids.IDLength) (Flags, deps.Root, error) {
	p := gIO.Buffer(data)

	magic, ok := p.GetUint32()
	if !ok || magic != cacheMagic {
		return 0, nil, fmt.Errorf("%w: bad cache magic", Malformed)
	}

	version, ok := p.GetUint32()
	if !ok || version != cacheVersion {
		return 0, nil, fmt.Errorf("%w: unsupported cache version", Malformed)
	}

	flags, ok := p.GetUint32()
	if !ok {
		return 0, nil, fmt.Errorf("%w: truncated cache", Malformed)
	}

	size, ok := p.GetUint32()
	if !ok {
		return 0, nil, fmt.Errorf("%w: truncated cache", Malformed)
	}

	treeData, ok := p.GetBytes(int(size))
	if !ok {
		return 0, nil, fmt.Errorf("%w: truncated dependency tree", Malformed)
	}

	tree, err := deps.Read(treeData, length)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", Malformed, err)
	}

	// Thumbnails are not stored, but the size field must be there
	thumbnail, ok := p.GetUint32()
	if !ok || !p.Skip(int(thumbnail)) {
		return 0, nil, fmt.Errorf("%w: truncated cache", Malformed)
	}

	return Flags(flags) & persistedFlags, tree, nil
}

// LoadMetadata reads the flags and dependency tree from the entry's
// metadata file.
// A corrupt file leaves the tree unset so it gets rebuilt.
func (e *Entry) LoadMetadata() error {
	data, err := readBytes(e.store.fs, e.MetadataPath())
	if err != nil {
		return err
	}

	flags, tree, err := DecodeCache(data, e.store.game.IDLength())
	if err != nil {
		e.metadataDirty = true
		return err
	}

	if tree.SelfID() != e.id {
		e.metadataDirty = true
		return fmt.Errorf("%w: cache belongs to %s", Malformed, tree.SelfID())
	}

	e.tree = tree

	// Unsaved changes in memory win over the file.
	if !e.metadataDirty {
		merged := (e.flags &^ persistedFlags) | flags
		if merged != e.flags {
			e.flags = merged
			if !e.transient {
				e.store.databaseDirty = true
			}
		}
	}
	return nil
}

// SaveMetadata writes the metadata file if anything in it changed.
func (e *Entry) SaveMetadata(force bool) error {
	if e.transient || (!e.metadataDirty && !force) {
		return nil
	}

	data := EncodeCache(e.flags, e.Dependencies(), e.store.game.IDLength())
	if err := writeBytes(e.store.fs, data, e.MetadataPath()); err != nil {
		return err
	}

	e.metadataDirty = false
	return nil
}
