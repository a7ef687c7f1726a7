package resource

import (
	"fmt"

	"github.com/cfoust/resforge/pkg/deps"
	"github.com/cfoust/resforge/pkg/game"
	"github.com/cfoust/resforge/pkg/ids"
)

var Malformed = fmt.Errorf("malformed resource")

// Resource is a decoded asset.
type Resource interface {
	ID() ids.AssetID
	Type() Type
	Game() game.Game
	// BuildDependencyTree walks the resource and lists everything it
	// references.
	BuildDependencyTree() deps.Root

	Retain()
	Release()
	IsReferenced() bool
}

// Disposer is implemented by resources that hold references to other
// resources and must release them when they are unloaded.
type Disposer interface {
	Dispose()
}

// WorldResource is implemented by world resources. Package building needs
// the area list and the per-area duplicate rules.
type WorldResource interface {
	Resource
	NumAreas() int
	AreaID(index int) ids.AssetID
	AllowsPakDuplicates(index int) bool
	MapWorldID() ids.AssetID
}

// Base carries the identity and reference count shared by all resources.
type Base struct {
	id   ids.AssetID
	kind Type
	game game.Game
	refs int
}

func NewBase(id ids.AssetID, kind Type, g game.Game) Base {
	return Base{
		id:   id,
		kind: kind,
		game: g,
	}
}

func (b *Base) ID() ids.AssetID { return b.id }
func (b *Base) Type() Type      { return b.kind }
func (b *Base) Game() game.Game { return b.game }

func (b *Base) BuildDependencyTree() deps.Root {
	return deps.NewTree(b.id)
}

func (b *Base) Retain() {
	b.refs++
}

func (b *Base) Release() {
	if b.refs > 0 {
		b.refs--
	}
}

func (b *Base) IsReferenced() bool {
	return b.refs > 0
}

// Header identifies the resource a codec is asked to decode.
type Header struct {
	ID   ids.AssetID
	Type Type
	Game game.Game
}

// Loader lets a codec load the resources it points to.
type Loader interface {
	LoadResource(id ids.AssetID) (Resource, error)
}

type Codec interface {
	Decode(header Header, data []byte, loader Loader) (Resource, error)
	Encode(r Resource) ([]byte, error)
}

// Registry maps resource types to codecs. Types without a codec are kept
// as opaque bytes.
type Registry map[Type]Codec

// NewRegistry knows about dependency groups. World maps are stored as a
// dependency group listing their map areas.
func NewRegistry() Registry {
	return Registry{
		DependencyGroup: DependencyGroupCodec{},
		MapWorld:        DependencyGroupCodec{},
	}
}

func (r Registry) Register(kind Type, codec Codec) {
	r[kind] = codec
}

func (r Registry) Codec(kind Type) Codec {
	if codec, ok := r[kind]; ok {
		return codec
	}
	return RawCodec{}
}

// Raw is a resource this program does not understand beyond its bytes.
type Raw struct {
	Base
	Data []byte
}

type RawCodec struct{}

func (RawCodec) Decode(header Header, data []byte, loader Loader) (Resource, error) {
	return &Raw{
		Base: NewBase(header.ID, header.Type, header.Game),
		Data: data,
	}, nil
}

func (RawCodec) Encode(r Resource) ([]byte, error) {
	raw, ok := r.(*Raw)
	if !ok {
		return nil, fmt.Errorf("cannot encode %s as raw data", r.Type())
	}
	return raw.Data, nil
}
