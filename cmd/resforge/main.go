package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/cfoust/resforge/pkg/config"
	"github.com/cfoust/resforge/pkg/fixture"
	"github.com/cfoust/resforge/pkg/game"
	"github.com/cfoust/resforge/pkg/ids"
	"github.com/cfoust/resforge/pkg/project"
	"github.com/cfoust/resforge/pkg/version"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var CLI struct {
	Version bool     `help:"Print version information and exit." short:"v"`
	Debug   bool     `help:"Whether to enable debug logging."`
	Project string   `help:"Project directory." short:"p" default:"." type:"existingdir"`
	Configs []string `help:"Configuration files, applied in order." name:"config" short:"c" type:"existingfile"`

	Cook struct {
		Packages []string `arg:"" optional:"" name:"packages" help:"Packages to cook. Cooks every package when empty."`
	} `cmd:"" help:"Cook packages into pak archives."`

	Deps struct {
		ID      string `arg:"" name:"id" help:"Asset ID in hex."`
		Package bool   `help:"Treat the argument as a package name instead."`
	} `cmd:"" help:"Print the dependency list of an asset or package."`

	Area struct {
		ID string `arg:"" name:"id" help:"Area asset ID in hex."`
	} `cmd:"" help:"Print the dependency list of an area, layer by layer."`

	Rebuild struct {
	} `cmd:"" help:"Rebuild the resource database and dependency caches from Resources/."`

	List struct {
		Resources bool `help:"List resources instead of packages."`
	} `cmd:"" help:"List the packages or resources of the project."`

	Demo struct {
		Dir  string `arg:"" name:"dir" help:"Directory to write the project to."`
		Game string `help:"Game version of the project." default:"Prime"`
	} `cmd:"" help:"Write a small sample project."`

	Config struct {
	} `cmd:"" help:"Write the default configuration to standard output."`
}

func writeError(err error) {
	fmt.Fprintf(os.Stderr, "%s\n", err)
	os.Exit(1)
}

func openProject() (*project.Project, error) {
	cfg, err := config.ForProject(CLI.Project, CLI.Configs)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return project.Open(cfg, fixture.Registry())
}

func withProject(fn func(p *project.Project) error) error {
	p, err := openProject()
	if err != nil {
		return err
	}

	err = fn(p)
	if closeErr := p.Close(); err == nil {
		err = closeErr
	}
	return err
}

func printList(list []ids.AssetID) {
	for _, id := range list {
		fmt.Println(id)
	}
}

func cookCommand(packages []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	return withProject(func(p *project.Project) error {
		if len(packages) == 0 {
			_, err := p.CookAll(ctx)
			return err
		}

		for _, name := range packages {
			if _, err := p.Cook(ctx, name); err != nil {
				return err
			}
		}
		return nil
	})
}

func depsCommand(target string, isPackage bool) error {
	return withProject(func(p *project.Project) error {
		if isPackage {
			list, err := p.PackageDependencies(target)
			if err != nil {
				return err
			}
			printList(list)
			return nil
		}

		id, err := ids.Parse(target)
		if err != nil {
			return err
		}

		list, err := p.Dependencies(id)
		if err != nil {
			return err
		}
		printList(list)
		return nil
	})
}

func areaCommand(target string) error {
	id, err := ids.Parse(target)
	if err != nil {
		return err
	}

	return withProject(func(p *project.Project) error {
		list, err := p.AreaDependencies(id)
		if err != nil {
			return err
		}

		offsets := list.LayerOffsets
		for layer := 0; layer+1 < len(offsets); layer++ {
			fmt.Printf("layer %d\n", layer)
			printList(list.Assets[offsets[layer]:offsets[layer+1]])
		}

		fmt.Println("base")
		if len(offsets) > 0 {
			printList(list.Assets[offsets[len(offsets)-1]:])
		}

		if len(list.AudioGroups) > 0 {
			fmt.Println("audio groups")
			printList(list.AudioGroups)
		}
		return nil
	})
}

func listCommand(resources bool) error {
	return withProject(func(p *project.Project) error {
		if !resources {
			for _, pkg := range p.Packages() {
				fmt.Printf("%s (%d named resources)\n", pkg.DefinitionPath(), len(pkg.NamedResources()))
			}
			return nil
		}

		for _, entry := range p.Store.Entries() {
			fmt.Printf(
				"%s %s %s\n",
				entry.ID(),
				entry.Path(),
				humanize.Bytes(uint64(max(entry.Size(), 0))),
			)
		}
		return nil
	})
}

func demoCommand(dir string, gameName string) error {
	g, err := game.Parse(gameName)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	pkg, err := fixture.Sample(fixture.NewProject(osfs.New(dir), g))
	if err != nil {
		return err
	}

	log.Info().Msgf("wrote %s project to %s, cook it with: resforge -p %s cook %s", g, dir, dir, pkg.Name)
	return nil
}

func main() {
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = log.Output(consoleWriter)

	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	ctx := kong.Parse(&CLI,
		kong.Name("resforge"),
		kong.Description("build pak archives from a game resource project"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))

	if CLI.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Warn().Msg("debug logging enabled")
	}

	if CLI.Version {
		fmt.Printf(
			"resforge %s (commit %s)\n",
			version.Version,
			version.GitCommit,
		)
		fmt.Printf(
			"built %s\n",
			version.BuildTime,
		)
		os.Exit(0)
	}

	var err error
	switch ctx.Command() {
	case "cook":
		fallthrough
	case "cook <packages>":
		err = cookCommand(CLI.Cook.Packages)
	case "deps <id>":
		err = depsCommand(CLI.Deps.ID, CLI.Deps.Package)
	case "area <id>":
		err = areaCommand(CLI.Area.ID)
	case "rebuild":
		err = withProject(func(p *project.Project) error {
			return p.Rebuild()
		})
	case "list":
		err = listCommand(CLI.List.Resources)
	case "demo <dir>":
		err = demoCommand(CLI.Demo.Dir, CLI.Demo.Game)
	case "config":
		os.Stdout.Write(config.DEFAULT)
	}

	if err != nil {
		writeError(err)
	}
}
