package deps

import (
	"fmt"

	gIO "github.com/cfoust/resforge/pkg/game/io"
	"github.com/cfoust/resforge/pkg/ids"
)

var Malformed = fmt.Errorf("malformed dependency tree")

// Write encodes a dependency tree with IDs of the given width.
func Write(root Root, length ids.IDLength) []byte {
	p := gIO.Buffer{}
	writeNode(&p, root, length)
	return p
}

func writeNodes(p *gIO.Buffer, nodes []Node, length ids.IDLength) {
	p.PutUint32(uint32(len(nodes)))
	for _, n := range nodes {
		writeNode(p, n, length)
	}
}

func writeNode(p *gIO.Buffer, n Node, length ids.IDLength) {
	p.PutUint32(uint32(n.Kind()))

	switch n := n.(type) {
	case *ResourceDependency:
		p.PutID(n.ID, length)
	case *PropertyDependency:
		p.PutUint32(n.PropertyID)
		p.PutID(n.ID, length)
	case *CharacterPropertyDependency:
		p.PutUint32(n.PropertyID)
		p.PutID(n.ID, length)
		p.PutUint32(n.UsedChar)
	case *AnimEvent:
		p.PutID(n.ID, length)
		p.PutUint32(n.CharIndex)
	case *ScriptInstance:
		p.PutUint32(n.ObjectType)
		writeNodes(p, n.Children, length)
	case *SetCharacter:
		p.PutUint32(n.CharSetIndex)
		writeNodes(p, n.Children, length)
	case *SetAnimation:
		p.PutUint32(uint32(len(n.CharacterIndices)))
		for _, char := range n.CharacterIndices {
			p.PutUint32(char)
		}
		writeNodes(p, n.Children, length)
	case *Tree:
		p.PutID(n.ID, length)
		writeNodes(p, n.Children, length)
	case *Area:
		p.PutID(n.ID, length)
		writeNodes(p, n.Children, length)
		writeNodes(p, n.Layers, length)
		p.PutUint32(uint32(len(n.LayerOffsets)))
		for _, offset := range n.LayerOffsets {
			p.PutUint32(offset)
		}
	}
}

type reader struct {
	p      gIO.Buffer
	length ids.IDLength
}

func (r *reader) uint32() (uint32, error) {
	value, ok := r.p.GetUint32()
	if !ok {
		return 0, fmt.Errorf("%w: unexpected end of data", Malformed)
	}
	return value, nil
}

func (r *reader) id() (ids.AssetID, error) {
	value, ok := r.p.GetID(r.length)
	if !ok {
		return 0, fmt.Errorf("%w: unexpected end of data", Malformed)
	}
	return value, nil
}

// count reads a list length. Every element takes at least four bytes, so
// anything larger than the rest of the data is corrupt.
func (r *reader) count() (int, error) {
	count, err := r.uint32()
	if err != nil {
		return 0, err
	}
	if int(count) > len(r.p)/4 {
		return 0, fmt.Errorf("%w: count %d exceeds remaining data", Malformed, count)
	}
	return int(count), nil
}

func (r *reader) nodes() ([]Node, error) {
	count, err := r.count()
	if err != nil || count == 0 {
		return nil, err
	}

	nodes := make([]Node, 0, count)
	for i := 0; i < count; i++ {
		n, err := r.node()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func (r *reader) node() (Node, error) {
	value, err := r.uint32()
	if err != nil {
		return nil, err
	}

	kind := Kind(value)
	switch kind {
	case KindResource:
		id, err := r.id()
		if err != nil {
			return nil, err
		}
		return &ResourceDependency{ID: id}, nil
	case KindProperty:
		property, err := r.uint32()
		if err != nil {
			return nil, err
		}
		id, err := r.id()
		if err != nil {
			return nil, err
		}
		return &PropertyDependency{PropertyID: property, ID: id}, nil
	case KindCharacterProperty:
		property, err := r.uint32()
		if err != nil {
			return nil, err
		}
		id, err := r.id()
		if err != nil {
			return nil, err
		}
		char, err := r.uint32()
		if err != nil {
			return nil, err
		}
		return &CharacterPropertyDependency{
			PropertyID: property,
			ID:         id,
			UsedChar:   char,
		}, nil
	case KindAnimEvent:
		id, err := r.id()
		if err != nil {
			return nil, err
		}
		char, err := r.uint32()
		if err != nil {
			return nil, err
		}
		return &AnimEvent{ID: id, CharIndex: char}, nil
	case KindScriptInstance:
		objectType, err := r.uint32()
		if err != nil {
			return nil, err
		}
		children, err := r.nodes()
		if err != nil {
			return nil, err
		}
		instance := NewScriptInstance(objectType)
		instance.Children = children
		return instance, nil
	case KindSetCharacter:
		index, err := r.uint32()
		if err != nil {
			return nil, err
		}
		children, err := r.nodes()
		if err != nil {
			return nil, err
		}
		char := NewSetCharacter(index)
		char.Children = children
		return char, nil
	case KindSetAnimation:
		numChars, err := r.count()
		if err != nil {
			return nil, err
		}
		var chars []uint32
		if numChars > 0 {
			chars = make([]uint32, numChars)
		}
		for i := range chars {
			chars[i], err = r.uint32()
			if err != nil {
				return nil, err
			}
		}
		children, err := r.nodes()
		if err != nil {
			return nil, err
		}
		anim := NewSetAnimation(chars...)
		anim.Children = children
		return anim, nil
	}

	return nil, fmt.Errorf("%w: unexpected node kind %s", Malformed, kind)
}

func (r *reader) tree() (*Tree, error) {
	id, err := r.id()
	if err != nil {
		return nil, err
	}
	children, err := r.nodes()
	if err != nil {
		return nil, err
	}
	tree := NewTree(id)
	tree.Children = children
	return tree, nil
}

func (r *reader) area() (*Area, error) {
	tree, err := r.tree()
	if err != nil {
		return nil, err
	}

	layers, err := r.nodes()
	if err != nil {
		return nil, err
	}

	numOffsets, err := r.count()
	if err != nil {
		return nil, err
	}

	var offsets []uint32
	if numOffsets > 0 {
		offsets = make([]uint32, numOffsets)
	}
	for i := range offsets {
		offsets[i], err = r.uint32()
		if err != nil {
			return nil, err
		}

		if int(offsets[i]) > len(layers) {
			return nil, fmt.Errorf("%w: layer offset %d out of range", Malformed, offsets[i])
		}

		if i > 0 && offsets[i] < offsets[i-1] {
			return nil, fmt.Errorf("%w: layer offsets are not ordered", Malformed)
		}
	}

	return &Area{
		Tree:         *tree,
		Layers:       layers,
		LayerOffsets: offsets,
	}, nil
}

// Read decodes a dependency tree written by Write with the same ID width.
// Any unknown node, truncation or trailing data rejects the whole tree.
func Read(data []byte, length ids.IDLength) (Root, error) {
	r := reader{
		p:      gIO.Buffer(data),
		length: length,
	}

	value, err := r.uint32()
	if err != nil {
		return nil, err
	}

	var root Root
	switch Kind(value) {
	case KindTree:
		root, err = r.tree()
	case KindArea:
		root, err = r.area()
	default:
		return nil, fmt.Errorf("%w: unexpected root kind %s", Malformed, Kind(value))
	}

	if err != nil {
		return nil, err
	}

	if len(r.p) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", Malformed, len(r.p))
	}

	return root, nil
}
