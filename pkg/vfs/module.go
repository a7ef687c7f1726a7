package vfs

import (
	"sort"
	"strings"

	"github.com/cfoust/resforge/pkg/resource"
)

// Item is a resource that can be placed in a directory.
type Item interface {
	comparable
	Name() string
	ResourceType() resource.Type
}

// Directory is one node of the virtual directory tree. It owns its
// subdirectories but only references the items inside it.
type Directory[E Item] struct {
	name      string
	parent    *Directory[E]
	subdirs   []*Directory[E]
	resources []E
}

func NewRoot[E Item]() *Directory[E] {
	return &Directory[E]{}
}

func (d *Directory[E]) Name() string {
	return d.name
}

func (d *Directory[E]) Parent() *Directory[E] {
	return d.parent
}

func (d *Directory[E]) IsRoot() bool {
	return d.parent == nil
}

// FullPath returns the path from the root with a trailing slash. The root
// itself is the empty string.
func (d *Directory[E]) FullPath() string {
	if d.IsRoot() {
		return ""
	}
	return d.parent.FullPath() + d.name + "/"
}

func (d *Directory[E]) Root() *Directory[E] {
	root := d
	for !root.IsRoot() {
		root = root.parent
	}
	return root
}

func (d *Directory[E]) IsDescendantOf(other *Directory[E]) bool {
	for dir := d; dir != nil; dir = dir.parent {
		if dir == other {
			return true
		}
	}
	return false
}

func (d *Directory[E]) Subdirectories() []*Directory[E] {
	return d.subdirs
}

func (d *Directory[E]) Resources() []E {
	return d.resources
}

func (d *Directory[E]) IsEmpty(checkSubdirectories bool) bool {
	if len(d.resources) > 0 {
		return false
	}

	if !checkSubdirectories {
		return len(d.subdirs) == 0
	}

	for _, sub := range d.subdirs {
		if !sub.IsEmpty(true) {
			return false
		}
	}
	return true
}

func splitPath(path string) []string {
	var parts []string
	for _, part := range strings.Split(strings.ReplaceAll(path, "\\", "/"), "/") {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

func (d *Directory[E]) findSubdirectory(name string) *Directory[E] {
	for _, sub := range d.subdirs {
		if strings.EqualFold(sub.name, name) {
			return sub
		}
	}
	return nil
}

func (d *Directory[E]) sortSubdirectories() {
	sort.SliceStable(d.subdirs, func(i, j int) bool {
		return strings.ToUpper(d.subdirs[i].name) < strings.ToUpper(d.subdirs[j].name)
	})
}

// FindChildDirectory walks a relative path, creating missing directories
// when create is set. It returns nil if the directory does not exist or a
// segment is not a valid name.
func (d *Directory[E]) FindChildDirectory(path string, create bool) *Directory[E] {
	dir := d
	for _, part := range splitPath(path) {
		sub := dir.findSubdirectory(part)
		if sub == nil {
			if !create || !IsValidDirectoryName(part) {
				return nil
			}
			sub = &Directory[E]{
				name:   part,
				parent: dir,
			}
			dir.subdirs = append(dir.subdirs, sub)
			dir.sortSubdirectories()
		}
		dir = sub
	}
	return dir
}

// FindChildResource looks for an item by name and type in this directory.
// Names compare case-insensitively.
func (d *Directory[E]) FindChildResource(name string, kind resource.Type) (E, bool) {
	for _, item := range d.resources {
		if item.ResourceType() == kind && strings.EqualFold(item.Name(), name) {
			return item, true
		}
	}
	var zero E
	return zero, false
}

// AddChild places an item in the directory at path, creating directories
// as needed. It fails if another item with the same name and type is
// already there.
func (d *Directory[E]) AddChild(path string, item E) bool {
	dir := d.FindChildDirectory(path, true)
	if dir == nil {
		return false
	}

	if _, exists := dir.FindChildResource(item.Name(), item.ResourceType()); exists {
		return false
	}

	dir.resources = append(dir.resources, item)
	return true
}

func (d *Directory[E]) RemoveChildResource(item E) bool {
	for i, existing := range d.resources {
		if existing == item {
			d.resources = append(d.resources[:i], d.resources[i+1:]...)
			return true
		}
	}
	return false
}

func (d *Directory[E]) RemoveChildDirectory(sub *Directory[E]) bool {
	for i, existing := range d.subdirs {
		if existing == sub {
			d.subdirs = append(d.subdirs[:i], d.subdirs[i+1:]...)
			sub.parent = nil
			return true
		}
	}
	return false
}

// RemoveEmptySubdirectories prunes every subdirectory that holds no items.
func (d *Directory[E]) RemoveEmptySubdirectories() {
	kept := d.subdirs[:0]
	for _, sub := range d.subdirs {
		sub.RemoveEmptySubdirectories()
		if sub.IsEmpty(true) {
			sub.parent = nil
			continue
		}
		kept = append(kept, sub)
	}
	d.subdirs = kept
}

// Walk calls fn for this directory and every directory below it.
func (d *Directory[E]) Walk(fn func(dir *Directory[E])) {
	fn(d)
	for _, sub := range d.subdirs {
		sub.Walk(fn)
	}
}

func IsValidDirectoryName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return isValidName(name)
}

func IsValidDirectoryPath(path string) bool {
	for _, part := range splitPath(path) {
		if !IsValidDirectoryName(part) {
			return false
		}
	}
	return true
}

// IsValidResourceName reports whether name can be used as a file name.
func IsValidResourceName(name string) bool {
	return name != "" && isValidName(name)
}

func isValidName(name string) bool {
	for _, r := range name {
		if r < 0x20 || strings.ContainsRune(`\/:*?"<>|`, r) {
			return false
		}
	}
	return !strings.HasSuffix(name, " ") && !strings.HasSuffix(name, ".")
}
