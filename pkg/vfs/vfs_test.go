package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cfoust/resforge/pkg/resource"
)

type item struct {
	name string
	kind resource.Type
}

func (i *item) Name() string                { return i.name }
func (i *item) ResourceType() resource.Type { return i.kind }

func TestPaths(t *testing.T) {
	root := NewRoot[*item]()
	assert.Equal(t, "", root.FullPath())
	assert.True(t, root.IsRoot())

	dir := root.FindChildDirectory("Worlds/Intro/", true)
	require.NotNil(t, dir)
	assert.Equal(t, "Worlds/Intro/", dir.FullPath())
	assert.Equal(t, "Intro", dir.Name())
	assert.Equal(t, root, dir.Root())
	assert.True(t, dir.IsDescendantOf(root))
	assert.False(t, root.IsDescendantOf(dir))

	// Lookup ignores case but keeps the original spelling
	assert.Equal(t, dir, root.FindChildDirectory("worlds/INTRO", false))
	assert.Nil(t, root.FindChildDirectory("Worlds/Missing", false))
	assert.Nil(t, root.FindChildDirectory("Worlds/..", true))
}

func TestSortedSubdirectories(t *testing.T) {
	root := NewRoot[*item]()
	root.FindChildDirectory("charlie", true)
	root.FindChildDirectory("Alpha", true)
	root.FindChildDirectory("bravo", true)

	var names []string
	for _, sub := range root.Subdirectories() {
		names = append(names, sub.Name())
	}
	assert.Equal(t, []string{"Alpha", "bravo", "charlie"}, names)
}

func TestResources(t *testing.T) {
	root := NewRoot[*item]()
	texture := &item{name: "Metal", kind: resource.Texture}
	model := &item{name: "Metal", kind: resource.Model}

	assert.True(t, root.AddChild("Shared/Textures", texture))
	assert.True(t, root.AddChild("Shared/Textures", model))
	assert.False(t, root.AddChild("shared/textures", &item{name: "METAL", kind: resource.Texture}))

	dir := root.FindChildDirectory("Shared/Textures", false)
	found, ok := dir.FindChildResource("metal", resource.Texture)
	require.True(t, ok)
	assert.Equal(t, texture, found)

	assert.True(t, dir.RemoveChildResource(texture))
	assert.False(t, dir.RemoveChildResource(texture))
	assert.True(t, dir.RemoveChildResource(model))
	assert.True(t, dir.IsEmpty(true))

	root.FindChildDirectory("Kept", true)
	root.AddChild("Kept", &item{name: "Keep", kind: resource.Model})
	root.RemoveEmptySubdirectories()

	var paths []string
	root.Walk(func(dir *Directory[*item]) {
		paths = append(paths, dir.FullPath())
	})
	assert.Equal(t, []string{"", "Kept/"}, paths)
}

func TestNames(t *testing.T) {
	assert.True(t, IsValidDirectoryName("Textures"))
	assert.False(t, IsValidDirectoryName("."))
	assert.False(t, IsValidDirectoryName(".."))
	assert.False(t, IsValidDirectoryName("a:b"))
	assert.True(t, IsValidDirectoryPath("a/b/c/"))
	assert.False(t, IsValidDirectoryPath("a/../c"))
	assert.True(t, IsValidResourceName("0000BEEF"))
	assert.False(t, IsValidResourceName(""))
}
