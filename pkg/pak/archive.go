package pak

import (
	"fmt"

	"github.com/cfoust/resforge/pkg/compress"
	"github.com/cfoust/resforge/pkg/game"
	gIO "github.com/cfoust/resforge/pkg/game/io"
	"github.com/cfoust/resforge/pkg/ids"
)

var Malformed = fmt.Errorf("malformed pak")

type Version int

const (
	// Prime through Corruption's prototype
	V1 Version = iota + 1
	// Corruption onward
	V2
)

const (
	v1Magic      uint32 = 0x00030005
	v2Magic      uint32 = 2
	v2HeaderSize        = 0x40

	sectionNames    ids.FourCC = 0x53545247 // STRG
	sectionHeaders  ids.FourCC = 0x52534844 // RSHD
	sectionData     ids.FourCC = 0x44415441 // DATA
	compressedMagic ids.FourCC = 0x434D5044 // CMPD
)

func VersionFor(g game.Game) Version {
	if g >= game.Corruption {
		return V2
	}
	return V1
}

func (v Version) Alignment() int {
	if v == V2 {
		return 64
	}
	return 32
}

// compressionOverhead is the size of the framing around a compressed blob.
func (v Version) compressionOverhead() int {
	if v == V2 {
		return 16
	}
	return 4
}

// Resource is one slot in the table of contents. Offset is from the start
// of the file and Size is the blob length without padding.
type Resource struct {
	Compressed bool
	Type       ids.FourCC
	ID         ids.AssetID
	Size       uint32
	Offset     uint32
}

// Writer lays out a pak in memory. The table of contents is reserved up
// front and filled in as blobs are added.
type Writer struct {
	version Version
	length  ids.IDLength
	buffer  gIO.Buffer

	count     int
	resources []Resource

	// Where the first table of contents record goes
	tableOffset int
	// Where v2 section sizes are patched
	sectionTable int
	dataStart    int
}

// NewWriter writes the header and the named resource table for a pak that
// will hold count resources.
func NewWriter(g game.Game, named []NamedResource, count int) *Writer {
	w := &Writer{
		version: VersionFor(g),
		length:  g.IDLength(),
		count:   count,
	}

	if w.version == V1 {
		w.writeV1Header(named)
	} else {
		w.writeV2Header(named)
	}

	return w
}

func (w *Writer) Version() Version {
	return w.version
}

func (w *Writer) writeV1Header(named []NamedResource) {
	p := &w.buffer
	p.PutUint32(v1Magic)
	p.PutUint32(0)

	p.PutUint32(uint32(len(named)))
	for _, resource := range named {
		p.PutFourCC(resource.Type)
		p.PutID(resource.ID, w.length)
		p.PutString(resource.Name)
	}

	p.PutUint32(uint32(w.count))
	w.tableOffset = len(*p)
	for i := 0; i < w.count; i++ {
		p.PutUint32(0)
		p.PutFourCC(0)
		p.PutID(0, w.length)
		p.PutUint32(0)
		p.PutUint32(0)
	}

	p.Pad(w.version.Alignment())
	w.dataStart = len(*p)
}

func (w *Writer) writeV2Header(named []NamedResource) {
	p := &w.buffer
	p.PutUint32(v2Magic)
	p.PutUint32(v2HeaderSize)
	// MD5 of the file in the shipped games, never checked
	p.PutBytes(make([]byte, 16))
	p.Pad(v2HeaderSize)

	w.sectionTable = len(*p)
	p.PutUint32(3)
	for _, section := range []ids.FourCC{sectionNames, sectionHeaders, sectionData} {
		p.PutFourCC(section)
		p.PutUint32(0)
	}
	p.Pad(64)

	start := len(*p)
	p.PutUint32(uint32(len(named)))
	for _, resource := range named {
		p.PutCString(resource.Name)
		p.PutFourCC(resource.Type)
		p.PutID(resource.ID, w.length)
	}
	p.Pad(64)
	p.SetUint32(w.sectionTable+8, uint32(len(*p)-start))

	start = len(*p)
	p.PutUint32(uint32(w.count))
	w.tableOffset = len(*p)
	for i := 0; i < w.count; i++ {
		p.PutUint32(0)
		p.PutFourCC(0)
		p.PutID(0, w.length)
		p.PutUint32(0)
		p.PutUint32(0)
	}
	p.Pad(64)
	p.SetUint32(w.sectionTable+16, uint32(len(*p)-start))

	w.dataStart = len(*p)
}

func (w *Writer) recordSize() int {
	return 16 + int(w.length)
}

// Add appends a blob. With tryCompress set the data is compressed, and the
// compressed form is kept only if it takes fewer padded bytes.
func (w *Writer) Add(kind ids.FourCC, id ids.AssetID, data []byte, tryCompress bool) (Resource, error) {
	if len(w.resources) >= w.count {
		return Resource{}, fmt.Errorf("pak only has room for %d resources", w.count)
	}

	alignment := w.version.Alignment()
	blob := data
	compressed := false

	if tryCompress {
		deflated, err := compress.Compress(data)
		if err != nil {
			return Resource{}, err
		}

		framed := len(deflated) + w.version.compressionOverhead()
		if gIO.Align(framed, alignment) < gIO.Align(len(data), alignment) {
			blob = w.frame(deflated, len(data))
			compressed = true
		}
	}

	resource := Resource{
		Compressed: compressed,
		Type:       kind,
		ID:         id,
		Size:       uint32(len(blob)),
		Offset:     uint32(len(w.buffer)),
	}

	w.buffer.PutBytes(blob)
	w.buffer.Pad(alignment)

	record := w.tableOffset + len(w.resources)*w.recordSize()
	w.setRecord(record, resource)
	w.resources = append(w.resources, resource)
	return resource, nil
}

func (w *Writer) frame(deflated []byte, size int) []byte {
	p := gIO.Buffer{}
	if w.version == V2 {
		p.PutFourCC(compressedMagic)
		p.PutUint32(1)
		p.PutUint32(uint32(len(deflated)))
		p.PutUint32(uint32(size))
	} else {
		p.PutUint32(uint32(size))
	}
	p.PutBytes(deflated)
	return p
}

func (w *Writer) setRecord(offset int, resource Resource) {
	p := w.buffer
	flag := uint32(0)
	if resource.Compressed {
		flag = 1
	}

	dataOffset := resource.Offset
	if w.version == V2 {
		dataOffset -= uint32(w.dataStart)
	}

	p.SetUint32(offset, flag)
	p.SetUint32(offset+4, uint32(resource.Type))
	p.SetID(offset+8, resource.ID, w.length)
	offset += 8 + int(w.length)
	p.SetUint32(offset, resource.Size)
	p.SetUint32(offset+4, dataOffset)
}

// Finish returns the pak. Every reserved slot must have been filled.
func (w *Writer) Finish() ([]byte, error) {
	if len(w.resources) != w.count {
		return nil, fmt.Errorf("pak expected %d resources, got %d", w.count, len(w.resources))
	}

	if w.version == V2 {
		w.buffer.SetUint32(w.sectionTable+24, uint32(len(w.buffer)-w.dataStart))
	}

	return w.buffer, nil
}

// Archive is a parsed pak.
type Archive struct {
	Version   Version
	Named     []NamedResource
	Resources []Resource

	data   []byte
	length ids.IDLength
}

// Open parses the tables of a pak built for game g.
func Open(data []byte, g game.Game) (*Archive, error) {
	archive := &Archive{
		Version: VersionFor(g),
		data:    data,
		length:  g.IDLength(),
	}

	var err error
	if archive.Version == V1 {
		err = archive.readV1()
	} else {
		err = archive.readV2()
	}
	if err != nil {
		return nil, err
	}

	for _, resource := range archive.Resources {
		end := uint64(resource.Offset) + uint64(resource.Size)
		if end > uint64(len(data)) {
			return nil, fmt.Errorf("%w: %s extends past the end of the file", Malformed, resource.ID)
		}
	}

	return archive, nil
}

func truncated(what string) error {
	return fmt.Errorf("%w: truncated %s", Malformed, what)
}

func (a *Archive) readRecords(p *gIO.Buffer, base uint32) error {
	count, ok := p.GetUint32()
	if !ok || int(count) > len(*p)/(16+int(a.length)) {
		return truncated("table of contents")
	}

	for i := uint32(0); i < count; i++ {
		var resource Resource

		flag, ok := p.GetUint32()
		if !ok {
			return truncated("table of contents")
		}
		if flag > 1 {
			return fmt.Errorf("%w: bad compression flag %d", Malformed, flag)
		}
		resource.Compressed = flag == 1

		if resource.Type, ok = p.GetFourCC(); !ok {
			return truncated("table of contents")
		}
		if resource.ID, ok = p.GetID(a.length); !ok {
			return truncated("table of contents")
		}
		if resource.Size, ok = p.GetUint32(); !ok {
			return truncated("table of contents")
		}
		offset, ok := p.GetUint32()
		if !ok {
			return truncated("table of contents")
		}
		resource.Offset = base + offset

		a.Resources = append(a.Resources, resource)
	}

	return nil
}

func (a *Archive) readV1() error {
	p := gIO.Buffer(a.data)

	magic, ok := p.GetUint32()
	if !ok || magic != v1Magic {
		return fmt.Errorf("%w: bad version", Malformed)
	}
	if !p.Skip(4) {
		return truncated("header")
	}

	count, ok := p.GetUint32()
	if !ok {
		return truncated("named resources")
	}

	for i := uint32(0); i < count; i++ {
		var named NamedResource
		if named.Type, ok = p.GetFourCC(); !ok {
			return truncated("named resources")
		}
		if named.ID, ok = p.GetID(a.length); !ok {
			return truncated("named resources")
		}
		if named.Name, ok = p.GetString(); !ok {
			return truncated("named resources")
		}
		a.Named = append(a.Named, named)
	}

	return a.readRecords(&p, 0)
}

func (a *Archive) readV2() error {
	p := gIO.Buffer(a.data)

	magic, ok := p.GetUint32()
	if !ok || magic != v2Magic {
		return fmt.Errorf("%w: bad version", Malformed)
	}

	headerSize, ok := p.GetUint32()
	if !ok || headerSize != v2HeaderSize || len(a.data) < v2HeaderSize {
		return fmt.Errorf("%w: bad header size", Malformed)
	}

	p = gIO.Buffer(a.data[v2HeaderSize:])
	sectionCount, ok := p.GetUint32()
	if !ok || sectionCount != 3 {
		return fmt.Errorf("%w: expected 3 sections", Malformed)
	}

	var sizes [3]uint32
	for i, expected := range []ids.FourCC{sectionNames, sectionHeaders, sectionData} {
		tag, ok := p.GetFourCC()
		if !ok || tag != expected {
			return fmt.Errorf("%w: expected section %s", Malformed, expected)
		}
		if sizes[i], ok = p.GetUint32(); !ok {
			return truncated("section table")
		}
	}

	start := uint64(gIO.Align(v2HeaderSize+4+3*8, 64))
	var offsets [4]uint64
	offsets[0] = start
	for i, size := range sizes {
		offsets[i+1] = offsets[i] + uint64(size)
	}
	if offsets[3] > uint64(len(a.data)) {
		return fmt.Errorf("%w: sections extend past the end of the file", Malformed)
	}

	p = gIO.Buffer(a.data[offsets[0]:offsets[1]])
	count, ok := p.GetUint32()
	if !ok {
		return truncated("named resources")
	}

	for i := uint32(0); i < count; i++ {
		var named NamedResource
		if named.Name, ok = p.GetCString(); !ok {
			return truncated("named resources")
		}
		if named.Type, ok = p.GetFourCC(); !ok {
			return truncated("named resources")
		}
		if named.ID, ok = p.GetID(a.length); !ok {
			return truncated("named resources")
		}
		a.Named = append(a.Named, named)
	}

	p = gIO.Buffer(a.data[offsets[1]:offsets[2]])
	return a.readRecords(&p, uint32(offsets[2]))
}

// Find returns the first table of contents slot holding id.
func (a *Archive) Find(id ids.AssetID) (Resource, bool) {
	for _, resource := range a.Resources {
		if resource.ID == id {
			return resource, true
		}
	}
	return Resource{}, false
}

// Extract returns the uncompressed bytes of a resource.
func (a *Archive) Extract(resource Resource) ([]byte, error) {
	blob := a.data[resource.Offset : resource.Offset+resource.Size]
	if !resource.Compressed {
		return blob, nil
	}

	p := gIO.Buffer(blob)

	if a.Version == V2 {
		magic, ok := p.GetFourCC()
		if !ok || magic != compressedMagic {
			return nil, fmt.Errorf("%w: %s is missing its CMPD header", Malformed, resource.ID)
		}

		blocks, ok := p.GetUint32()
		if !ok || blocks != 1 {
			return nil, fmt.Errorf("%w: %s has %d compressed blocks", Malformed, resource.ID, blocks)
		}

		compressedSize, ok := p.GetUint32()
		if !ok {
			return nil, truncated("compressed block")
		}

		size, ok := p.GetUint32()
		if !ok || int(compressedSize) > len(p) {
			return nil, truncated("compressed block")
		}

		return decompress(resource, p[:compressedSize], size)
	}

	size, ok := p.GetUint32()
	if !ok {
		return nil, truncated("compressed block")
	}

	return decompress(resource, p, size)
}

// The size comes from the pak, so it is checked before anything is allocated.
func decompress(resource Resource, data []byte, size uint32) ([]byte, error) {
	out, err := compress.Decompress(data, int(size))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", Malformed, resource.ID, err)
	}
	return out, nil
}
