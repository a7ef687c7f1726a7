package game

import (
	"fmt"
	"strings"

	"github.com/cfoust/resforge/pkg/ids"
)

// Game is a game version. Versions are ordered by release so range checks
// like `g <= Echoes` are meaningful.
type Game int

const (
	Invalid Game = iota
	PrimeDemo
	Prime
	EchoesDemo
	Echoes
	CorruptionProto
	Corruption
	DKCReturns
)

var names = map[Game]string{
	PrimeDemo:       "PrimeDemo",
	Prime:           "Prime",
	EchoesDemo:      "EchoesDemo",
	Echoes:          "Echoes",
	CorruptionProto: "CorruptionProto",
	Corruption:      "Corruption",
	DKCReturns:      "DKCReturns",
}

func (g Game) String() string {
	if name, ok := names[g]; ok {
		return name
	}
	return "Invalid"
}

func (g Game) IsValid() bool {
	return g > Invalid && g <= DKCReturns
}

// IDLength is the width of asset IDs in this game's formats.
func (g Game) IDLength() ids.IDLength {
	if g <= Echoes {
		return ids.Length32
	}
	return ids.Length64
}

func Parse(name string) (Game, error) {
	for game, gameName := range names {
		if strings.EqualFold(gameName, name) {
			return game, nil
		}
	}
	return Invalid, fmt.Errorf("unknown game %q", name)
}

func (g Game) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

func (g *Game) UnmarshalText(text []byte) error {
	value, err := Parse(string(text))
	if err != nil {
		return err
	}
	*g = value
	return nil
}
