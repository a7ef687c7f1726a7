package history

import (
	"errors"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fxamacker/cbor/v2"
	"github.com/repeale/fp-go/option"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cfoust/resforge/pkg/game"
	gIO "github.com/cfoust/resforge/pkg/game/io"
	"github.com/cfoust/resforge/pkg/ids"
)

type Entity struct {
	ID uint `gorm:"primaryKey"`
}

// Cook is one finished cook of a package.
type Cook struct {
	Entity

	Package string `gorm:"not null;index;size:128"`
	Game    string `gorm:"not null;size:16"`
	Created time.Time
	// xxhash of the asset list, in order
	Fingerprint string `gorm:"size:16"`
	NumAssets   int
	Size        int64
	// cbor encoded list of asset IDs
	Assets []byte
}

func (c *Cook) AssetIDs() ([]ids.AssetID, error) {
	var assets []ids.AssetID
	if err := cbor.Unmarshal(c.Assets, &assets); err != nil {
		return nil, err
	}
	return assets, nil
}

func InitDB(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Cook{}); err != nil {
		return nil, err
	}

	return db, nil
}

// Fingerprint hashes an asset list. Order matters.
func Fingerprint(assets []ids.AssetID) string {
	p := gIO.Buffer{}
	for _, id := range assets {
		p.PutUint64(uint64(id))
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(p))
}

// History remembers what previous cooks put in each package.
type History struct {
	db *gorm.DB
}

func Open(path string) (*History, error) {
	db, err := InitDB(path)
	if err != nil {
		return nil, fmt.Errorf("could not open cook history %s: %w", path, err)
	}
	return &History{db: db}, nil
}

func (h *History) Record(pkg string, g game.Game, assets []ids.AssetID, size int64) (*Cook, error) {
	encoded, err := cbor.Marshal(assets)
	if err != nil {
		return nil, err
	}

	cook := Cook{
		Package:     pkg,
		Game:        g.String(),
		Created:     time.Now(),
		Fingerprint: Fingerprint(assets),
		NumAssets:   len(assets),
		Size:        size,
		Assets:      encoded,
	}

	if err := h.db.Create(&cook).Error; err != nil {
		return nil, err
	}

	return &cook, nil
}

// Last returns the most recent cook of a package.
func (h *History) Last(pkg string) (opt.Option[Cook], error) {
	var cook Cook
	err := h.db.Where("package = ?", pkg).Order("id desc").First(&cook).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return opt.None[Cook](), nil
	}
	if err != nil {
		return opt.None[Cook](), err
	}
	return opt.Some(cook), nil
}

// Cooks lists every recorded cook of a package, oldest first.
func (h *History) Cooks(pkg string) ([]Cook, error) {
	var cooks []Cook
	err := h.db.Where("package = ?", pkg).Order("id asc").Find(&cooks).Error
	return cooks, err
}

func (h *History) Close() error {
	db, err := h.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

// Compare returns the assets only in current and the ones only in previous.
func Compare(previous []ids.AssetID, current []ids.AssetID) (added []ids.AssetID, removed []ids.AssetID) {
	before := make(map[ids.AssetID]struct{}, len(previous))
	for _, id := range previous {
		before[id] = struct{}{}
	}

	after := make(map[ids.AssetID]struct{}, len(current))
	for _, id := range current {
		if _, ok := after[id]; ok {
			continue
		}
		after[id] = struct{}{}

		if _, ok := before[id]; !ok {
			added = append(added, id)
		}
	}

	for _, id := range previous {
		if _, ok := after[id]; ok {
			continue
		}
		// Only report each ID once
		after[id] = struct{}{}
		removed = append(removed, id)
	}

	return added, removed
}
