package cooker

import (
	"context"
	"fmt"
	"path"

	"github.com/dustin/go-humanize"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/rs/zerolog/log"

	"github.com/cfoust/resforge/pkg/builder"
	"github.com/cfoust/resforge/pkg/ids"
	"github.com/cfoust/resforge/pkg/pak"
	"github.com/cfoust/resforge/pkg/store"
)

// Compression decides which resources are candidates for compression.
type Compression struct {
	Always      []ids.FourCC
	Conditional []ids.FourCC
	// Conditional types are compressed at this size and above
	Threshold int
}

func contains(types []ids.FourCC, kind ids.FourCC) bool {
	for _, candidate := range types {
		if candidate == kind {
			return true
		}
	}
	return false
}

func (c Compression) ShouldCompress(kind ids.FourCC, size int) bool {
	return contains(c.Always, kind) ||
		(contains(c.Conditional, kind) && size >= c.Threshold)
}

type Options struct {
	AllowDuplicates bool
	// Directory paks are written to, relative to the project root
	OutputDir   string
	Compression Compression
}

// Result describes a finished cook.
type Result struct {
	Package    *pak.Package
	Path       string
	Assets     []ids.AssetID
	Compressed int
	Size       int64
}

type Cooker struct {
	store    *store.Store
	packages builder.PackageFinder
	options  Options
}

func New(s *store.Store, packages builder.PackageFinder, options Options) *Cooker {
	return &Cooker{
		store:    s,
		packages: packages,
		options:  options,
	}
}

// Build produces the bytes of a pak without writing it anywhere.
func (c *Cooker) Build(ctx context.Context, pkg *pak.Package) ([]byte, *Result, error) {
	list := builder.NewPackageBuilder(c.store, pkg, c.packages).
		BuildDependencyList(c.options.AllowDuplicates)

	log.Info().Msgf("cooking %s: %d named resources, %d assets", pkg.Name, len(pkg.NamedResources()), len(list))

	result := &Result{
		Package: pkg,
		Assets:  list,
	}

	writer := pak.NewWriter(c.store.Game(), pkg.NamedResources(), len(list))

	for _, id := range list {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		entry := c.store.FindEntry(id)
		if entry == nil {
			return nil, nil, fmt.Errorf("cook of %s aborted: %w: %s", pkg.Name, store.Missing, id)
		}

		data, err := entry.CookedData()
		if err != nil {
			log.Error().Err(err).Msgf("cook of %s aborted at %s", pkg.Name, entry.Path())
			return nil, nil, fmt.Errorf("cook of %s aborted at %s: %w", pkg.Name, id, err)
		}

		kind := entry.CookedExtension()
		record, err := writer.Add(kind, id, data, c.options.Compression.ShouldCompress(kind, len(data)))
		if err != nil {
			return nil, nil, fmt.Errorf("cook of %s aborted at %s: %w", pkg.Name, id, err)
		}

		if record.Compressed {
			result.Compressed++
		}
	}

	data, err := writer.Finish()
	if err != nil {
		return nil, nil, err
	}

	result.Size = int64(len(data))
	return data, result, nil
}

// Cook builds a pak and writes it into the output directory.
func (c *Cooker) Cook(ctx context.Context, pkg *pak.Package) (*Result, error) {
	data, result, err := c.Build(ctx, pkg)
	if err != nil {
		return nil, err
	}

	fs := c.store.Filesystem()
	result.Path = pkg.CookedPath(c.options.OutputDir)
	if err := write(fs, result.Path, data); err != nil {
		return nil, err
	}

	log.Info().Msgf(
		"wrote %s (%s, %d of %d assets compressed)",
		result.Path,
		humanize.Bytes(uint64(result.Size)),
		result.Compressed,
		len(result.Assets),
	)

	return result, nil
}

func write(fs billy.Filesystem, target string, data []byte) error {
	if err := fs.MkdirAll(path.Dir(target), 0755); err != nil {
		return err
	}
	return util.WriteFile(fs, target, data, 0644)
}
