package config

import (
	"github.com/cfoust/resforge/pkg/game"
	"github.com/cfoust/resforge/pkg/ids"
)

type ProjectSettings struct {
	Root                string
	Game                string
	RebuildOnCorruption bool
}

func (p ProjectSettings) ParseGame() (game.Game, error) {
	return game.Parse(p.Game)
}

type CompressionSettings struct {
	Always      []string
	Conditional []string
	Threshold   int
}

func fourCCs(tags []string) []ids.FourCC {
	out := make([]ids.FourCC, 0, len(tags))
	for _, tag := range tags {
		out = append(out, ids.FromString(tag))
	}
	return out
}

func (c CompressionSettings) AlwaysTypes() []ids.FourCC {
	return fourCCs(c.Always)
}

func (c CompressionSettings) ConditionalTypes() []ids.FourCC {
	return fourCCs(c.Conditional)
}

type CookSettings struct {
	AllowDuplicates bool
	OutputDir       string
	Compression     CompressionSettings
}

type HistorySettings struct {
	Enabled bool
	Path    string
}

type Config struct {
	Project ProjectSettings
	Cook    CookSettings
	History HistorySettings
}
