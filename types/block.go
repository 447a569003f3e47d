package types

import (
	"bytes"
	"fmt"

	"github.com/protolambda/zrnt/eth2/beacon/altair"
	"github.com/protolambda/zrnt/eth2/beacon/bellatrix"
	"github.com/protolambda/zrnt/eth2/beacon/capella"
	zrntcommon "github.com/protolambda/zrnt/eth2/beacon/common"
	"github.com/protolambda/ztyp/codec"
	"github.com/protolambda/ztyp/tree"
)

type blockBody interface {
	HashTreeRoot(spec *zrntcommon.Spec, hFn tree.HashFn) zrntcommon.Root
	Serialize(spec *zrntcommon.Spec, w *codec.EncodingWriter) error
}

// BeaconBlock is a beacon block decoded under one fork schema.
// Only the header fields, the body root and the sync aggregate are used downstream.
type BeaconBlock struct {
	Schema        Schema
	Slot          zrntcommon.Slot
	ProposerIndex zrntcommon.ValidatorIndex
	ParentRoot    zrntcommon.Root
	StateRoot     zrntcommon.Root

	spec *zrntcommon.Spec
	body blockBody
}

// NewBeaconBlock wraps a ZRNT block.
func NewBeaconBlock(spec *zrntcommon.Spec, obj any) *BeaconBlock {
	switch obj := obj.(type) {
	case *bellatrix.BeaconBlock:
		return &BeaconBlock{
			Schema:        SchemaBellatrix,
			Slot:          obj.Slot,
			ProposerIndex: obj.ProposerIndex,
			ParentRoot:    obj.ParentRoot,
			StateRoot:     obj.StateRoot,
			spec:          spec,
			body:          &obj.Body,
		}
	case *capella.BeaconBlock:
		return &BeaconBlock{
			Schema:        SchemaCapella,
			Slot:          obj.Slot,
			ProposerIndex: obj.ProposerIndex,
			ParentRoot:    obj.ParentRoot,
			StateRoot:     obj.StateRoot,
			spec:          spec,
			body:          &obj.Body,
		}
	default:
		panic(fmt.Errorf("unsupported block type %T", obj))
	}
}

// BodyRoot is the hash tree root of the full body.
func (b *BeaconBlock) BodyRoot() zrntcommon.Root {
	return b.body.HashTreeRoot(b.spec, tree.GetHashFn())
}

// Header returns the block header with a freshly derived body root.
func (b *BeaconBlock) Header() *zrntcommon.BeaconBlockHeader {
	return &zrntcommon.BeaconBlockHeader{
		Slot:          b.Slot,
		ProposerIndex: b.ProposerIndex,
		ParentRoot:    b.ParentRoot,
		StateRoot:     b.StateRoot,
		BodyRoot:      b.BodyRoot(),
	}
}

// Root is the block root, i.e. the hash tree root of its header.
func (b *BeaconBlock) Root() zrntcommon.Root {
	return b.Header().HashTreeRoot(tree.GetHashFn())
}

// SyncAggregate returns the sync aggregate embedded in the body.
func (b *BeaconBlock) SyncAggregate() *altair.SyncAggregate {
	switch body := b.body.(type) {
	case *bellatrix.BeaconBlockBody:
		return &body.SyncAggregate
	case *capella.BeaconBlockBody:
		return &body.SyncAggregate
	default:
		panic(fmt.Errorf("unsupported block body type %T", b.body))
	}
}

// ProveBody returns the node at gindex of the body tree and its branch.
func (b *BeaconBlock) ProveBody(gindex uint64) ([32]byte, [][32]byte, error) {
	var buf bytes.Buffer
	if err := b.body.Serialize(b.spec, codec.NewEncodingWriter(&buf)); err != nil {
		return [32]byte{}, nil, fmt.Errorf("%w: serialize %s body: %v", ErrDecode, b.Schema, err)
	}
	v, err := b.Schema.blockBodyType(b.spec).Deserialize(reader(buf.Bytes()))
	if err != nil {
		return [32]byte{}, nil, fmt.Errorf("%w: %s body tree: %v", ErrDecode, b.Schema, err)
	}
	return ProveGindex(v.Backing(), gindex)
}
