package pak

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"gopkg.in/yaml.v3"

	"github.com/cfoust/resforge/pkg/ids"
)

const (
	PackagesDir         = "Packages"
	DefinitionExtension = ".pkd"
)

// NamedResource is an entry point of a package, looked up by name at
// runtime and used to seed the dependency traversal.
type NamedResource struct {
	Name string      `yaml:"name"`
	ID   ids.AssetID `yaml:"id"`
	Type ids.FourCC  `yaml:"type"`
}

type Collection struct {
	Name      string          `yaml:"name"`
	Resources []NamedResource `yaml:"resources"`
}

// Package describes one pak archive.
type Package struct {
	Name string `yaml:"name"`
	// Directory of the package relative to the packages root, like "Worlds/"
	Path        string       `yaml:"-"`
	Collections []Collection `yaml:"collections"`
}

// NamedResources lists the named resources of every collection in
// declaration order.
func (p *Package) NamedResources() []NamedResource {
	var out []NamedResource
	for _, collection := range p.Collections {
		out = append(out, collection.Resources...)
	}
	return out
}

func (p *Package) FindResource(name string) (NamedResource, bool) {
	for _, named := range p.NamedResources() {
		if named.Name == name {
			return named, true
		}
	}
	return NamedResource{}, false
}

func (p *Package) ContainsAsset(id ids.AssetID) bool {
	for _, named := range p.NamedResources() {
		if named.ID == id {
			return true
		}
	}
	return false
}

func (p *Package) DefinitionPath() string {
	return path.Join(PackagesDir, p.Path, p.Name+DefinitionExtension)
}

// CookedPath is where the pak goes inside an output directory.
func (p *Package) CookedPath(outputDir string) string {
	return path.Join(outputDir, p.Path, p.Name+".pak")
}

func (p *Package) Save(fs billy.Filesystem) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}

	target := p.DefinitionPath()
	if err := fs.MkdirAll(path.Dir(target), 0755); err != nil {
		return err
	}

	return util.WriteFile(fs, target, data, 0644)
}

// LoadDefinition reads one package definition. definitionPath is relative
// to the filesystem root and must sit under Packages/.
func LoadDefinition(fs billy.Filesystem, definitionPath string) (*Package, error) {
	data, err := util.ReadFile(fs, definitionPath)
	if err != nil {
		return nil, err
	}

	pkg := Package{}
	if err := yaml.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("invalid package definition %s: %w", definitionPath, err)
	}

	dir, file := path.Split(definitionPath)
	if pkg.Name == "" {
		pkg.Name = strings.TrimSuffix(file, DefinitionExtension)
	}
	pkg.Path = strings.TrimPrefix(strings.TrimPrefix(dir, PackagesDir), "/")

	return &pkg, nil
}

// LoadDefinitions reads every package definition under Packages/, sorted by
// path.
func LoadDefinitions(fs billy.Filesystem) ([]*Package, error) {
	var packages []*Package

	if _, err := fs.Stat(PackagesDir); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	err := util.Walk(fs, PackagesDir, func(filePath string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() || !strings.HasSuffix(filePath, DefinitionExtension) {
			return nil
		}

		pkg, err := LoadDefinition(fs, filePath)
		if err != nil {
			return err
		}

		packages = append(packages, pkg)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(packages, func(i, j int) bool {
		return packages[i].DefinitionPath() < packages[j].DefinitionPath()
	})

	return packages, nil
}
