package project

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/repeale/fp-go/option"
	"github.com/rs/zerolog/log"

	"github.com/cfoust/resforge/pkg/builder"
	"github.com/cfoust/resforge/pkg/config"
	"github.com/cfoust/resforge/pkg/cooker"
	"github.com/cfoust/resforge/pkg/history"
	"github.com/cfoust/resforge/pkg/ids"
	"github.com/cfoust/resforge/pkg/pak"
	"github.com/cfoust/resforge/pkg/resource"
	"github.com/cfoust/resforge/pkg/store"
)

var NoPackage = fmt.Errorf("no such package")

// Project is an opened game project: its resources, package definitions
// and cook history.
type Project struct {
	Config *config.Config
	FS     billy.Filesystem
	Store  *store.Store
	// nil when history is disabled
	History *history.History

	packages []*pak.Package
}

// Open opens the project on disk at the configured root.
func Open(cfg *config.Config, codecs resource.Registry) (*Project, error) {
	return OpenFS(osfs.New(cfg.Project.Root), cfg, codecs)
}

// OpenFS opens a project stored in fs. The resource database is read if
// possible and rebuilt from Resources/ otherwise.
func OpenFS(fs billy.Filesystem, cfg *config.Config, codecs resource.Registry) (*Project, error) {
	g, err := cfg.Project.ParseGame()
	if err != nil {
		return nil, err
	}

	p := &Project{
		Config: cfg,
		FS:     fs,
		Store:  store.New(fs, g, codecs),
	}

	err = p.Store.LoadDatabase()
	switch {
	case err == nil:
	case errors.Is(err, store.Missing):
		log.Info().Msg("no resource database, scanning resources")
		err = p.Store.RebuildFromDirectory()
	case errors.Is(err, store.Malformed) && cfg.Project.RebuildOnCorruption:
		log.Warn().Err(err).Msg("resource database is unreadable, rebuilding")
		err = p.Store.RebuildFromDirectory()
	}
	if err != nil {
		return nil, err
	}

	p.packages, err = pak.LoadDefinitions(fs)
	if err != nil {
		return nil, err
	}

	if cfg.History.Enabled {
		historyPath := cfg.History.Path
		if !filepath.IsAbs(historyPath) {
			historyPath = filepath.Join(cfg.Project.Root, historyPath)
		}

		p.History, err = history.Open(historyPath)
		if err != nil {
			return nil, err
		}
	}

	log.Debug().Msgf(
		"opened %s project with %d resources and %d packages",
		g,
		p.Store.NumTotalResources(),
		len(p.packages),
	)

	return p, nil
}

func (p *Project) Packages() []*pak.Package {
	return p.packages
}

// FindPackage looks a package up by name, or by its path and name joined
// with a slash.
func (p *Project) FindPackage(name string) opt.Option[*pak.Package] {
	for _, pkg := range p.packages {
		if pkg.Name == name || filepath.ToSlash(filepath.Join(pkg.Path, pkg.Name)) == name {
			return opt.Some(pkg)
		}
	}
	return opt.None[*pak.Package]()
}

var _ builder.PackageFinder = (*Project)(nil)

func (p *Project) Cooker() *cooker.Cooker {
	settings := p.Config.Cook
	return cooker.New(p.Store, p, cooker.Options{
		AllowDuplicates: settings.AllowDuplicates,
		OutputDir:       settings.OutputDir,
		Compression: cooker.Compression{
			Always:      settings.Compression.AlwaysTypes(),
			Conditional: settings.Compression.ConditionalTypes(),
			Threshold:   settings.Compression.Threshold,
		},
	})
}

func (p *Project) entry(id ids.AssetID) (*store.Entry, error) {
	entry := p.Store.FindEntry(id)
	if entry == nil {
		return nil, fmt.Errorf("%w: %s", store.Missing, id)
	}
	return entry, nil
}

// Dependencies lists everything a single asset needs.
func (p *Project) Dependencies(id ids.AssetID) ([]ids.AssetID, error) {
	entry, err := p.entry(id)
	if err != nil {
		return nil, err
	}
	return builder.NewAssetBuilder(entry).BuildDependencyList(), nil
}

// AreaDependencies lists the assets of an area by layer.
func (p *Project) AreaDependencies(id ids.AssetID) (builder.AreaList, error) {
	entry, err := p.entry(id)
	if err != nil {
		return builder.AreaList{}, err
	}
	return builder.NewAreaBuilder(entry).BuildDependencyList()
}

// PackageDependencies lists the assets the package would be cooked with.
func (p *Project) PackageDependencies(name string) ([]ids.AssetID, error) {
	pkg := p.FindPackage(name)
	if opt.IsNone(pkg) {
		return nil, fmt.Errorf("%w: %s", NoPackage, name)
	}

	return builder.NewPackageBuilder(p.Store, pkg.Value, p).
		BuildDependencyList(p.Config.Cook.AllowDuplicates), nil
}

// Cook cooks one package and records it in the history.
func (p *Project) Cook(ctx context.Context, name string) (*cooker.Result, error) {
	pkg := p.FindPackage(name)
	if opt.IsNone(pkg) {
		return nil, fmt.Errorf("%w: %s", NoPackage, name)
	}

	return p.cook(ctx, pkg.Value)
}

func (p *Project) cook(ctx context.Context, pkg *pak.Package) (*cooker.Result, error) {
	result, err := p.Cooker().Cook(ctx, pkg)
	if err != nil {
		return nil, err
	}

	if p.History == nil {
		return result, nil
	}

	if err := p.compareWithLast(result); err != nil {
		log.Warn().Err(err).Msgf("could not compare %s with its last cook", pkg.Name)
	}

	_, err = p.History.Record(pkg.Name, p.Store.Game(), result.Assets, result.Size)
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (p *Project) compareWithLast(result *cooker.Result) error {
	last, err := p.History.Last(result.Package.Name)
	if err != nil || opt.IsNone(last) {
		return err
	}

	if last.Value.Fingerprint == history.Fingerprint(result.Assets) {
		log.Info().Msgf("%s: asset list unchanged since last cook", result.Package.Name)
		return nil
	}

	previous, err := last.Value.AssetIDs()
	if err != nil {
		return err
	}

	added, removed := history.Compare(previous, result.Assets)
	for _, id := range added {
		log.Info().Msgf("%s: added %s", result.Package.Name, id)
	}
	for _, id := range removed {
		log.Info().Msgf("%s: removed %s", result.Package.Name, id)
	}

	return nil
}

// CookAll cooks every package, stopping at the first failure.
func (p *Project) CookAll(ctx context.Context) ([]*cooker.Result, error) {
	var results []*cooker.Result
	for _, pkg := range p.packages {
		result, err := p.cook(ctx, pkg)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

// Rebuild scans Resources/ again and refreshes every dependency cache.
func (p *Project) Rebuild() error {
	if err := p.Store.RebuildFromDirectory(); err != nil {
		return err
	}
	p.Store.UpdateAllDependencies()
	return p.Store.ConditionalSave()
}

func (p *Project) Close() error {
	err := p.Store.Close()
	if p.History != nil {
		if historyErr := p.History.Close(); err == nil {
			err = historyErr
		}
	}
	return err
}
