package ids

import (
	"fmt"
	"strconv"
	"strings"
)

// IDLength is the on-disk width of an asset ID in bytes.
type IDLength int

const (
	Length32 IDLength = 4
	Length64 IDLength = 8
)

const (
	Invalid32 AssetID = 0xFFFFFFFF
	Invalid64 AssetID = 0xFFFFFFFFFFFFFFFF
)

// AssetID identifies one asset. The same value type holds both widths; the
// width only matters when an ID is read or written.
type AssetID uint64

func Invalid(length IDLength) AssetID {
	if length == Length32 {
		return Invalid32
	}
	return Invalid64
}

// IsValid reports whether id is not the invalid value of the given width.
// 0xFFFFFFFF is a legal 64-bit ID.
func (id AssetID) IsValid(length IDLength) bool {
	return id != Invalid(length)
}

// IsSentinel reports whether id is the invalid value of either width. Trees
// are built before they know the width they will be written with.
func (id AssetID) IsSentinel() bool {
	return id == Invalid32 || id == Invalid64
}

// Fits reports whether the ID can be written with the given width.
func (id AssetID) Fits(length IDLength) bool {
	return length == Length64 || id <= Invalid32
}

func (id AssetID) Format(length IDLength) string {
	if length == Length32 {
		return fmt.Sprintf("%08X", uint32(id))
	}
	return fmt.Sprintf("%016X", uint64(id))
}

func (id AssetID) String() string {
	if id <= Invalid32 {
		return id.Format(Length32)
	}
	return id.Format(Length64)
}

// Parse reads an ID written in hex, with or without a 0x prefix.
func Parse(text string) (AssetID, error) {
	text = strings.TrimPrefix(strings.TrimPrefix(text, "0x"), "0X")
	if len(text) == 0 || len(text) > 16 {
		return 0, fmt.Errorf("invalid asset id %q", text)
	}

	value, err := strconv.ParseUint(text, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid asset id %q: %w", text, err)
	}

	return AssetID(value), nil
}

func (id AssetID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *AssetID) UnmarshalText(text []byte) error {
	value, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = value
	return nil
}

// FourCC is a four character type tag packed big-endian into a uint32.
type FourCC uint32

func FromString(text string) FourCC {
	var value FourCC
	for i := 0; i < 4; i++ {
		value <<= 8
		if i < len(text) {
			value |= FourCC(text[i])
		}
	}
	return value
}

func (f FourCC) String() string {
	return string([]byte{
		byte(f >> 24),
		byte(f >> 16),
		byte(f >> 8),
		byte(f),
	})
}

func (f FourCC) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *FourCC) UnmarshalText(text []byte) error {
	if len(text) != 4 {
		return fmt.Errorf("invalid fourcc %q", string(text))
	}
	*f = FromString(string(text))
	return nil
}
