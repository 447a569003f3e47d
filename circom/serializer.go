package circom

import (
	"fmt"
	"math/big"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/kysee/zk-lightclient/types"
	"github.com/protolambda/zrnt/eth2/beacon/altair"
	zrntcommon "github.com/protolambda/zrnt/eth2/beacon/common"
)

const (
	// LimbBits and LimbCount split a 381-bit base field coordinate into 55x7 = 385 bits.
	LimbBits  = 55
	LimbCount = 7
)

// Serializer accumulates circuit inputs for one witness. Flush hands the
// accumulated Input to the caller and starts a fresh one.
type Serializer struct {
	buf       *Input
	limbBits  uint
	limbCount uint
}

type Option func(*Serializer)

// WithLimbShape overrides the 55x7 limb decomposition of curve coordinates.
func WithLimbShape(bits, count uint) Option {
	return func(s *Serializer) {
		s.limbBits = bits
		s.limbCount = count
	}
}

func NewSerializer(opts ...Option) *Serializer {
	s := &Serializer{
		buf:       newInput(),
		limbBits:  LimbBits,
		limbCount: LimbCount,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Flush returns everything written so far and resets the serializer.
func (s *Serializer) Flush() *Input {
	out := s.buf
	s.buf = newInput()
	return out
}

func (s *Serializer) write(name string, e Element) {
	s.buf.set(name, e)
}

// WriteHeader writes <prefix>Slot, <prefix>ProposerIndex, <prefix>ParentRoot,
// <prefix>StateRoot and <prefix>BodyRoot as 32-element byte arrays.
func (s *Serializer) WriteHeader(prefix string, header *zrntcommon.BeaconBlockHeader) {
	s.WriteUint64AsBytes32(prefix+"Slot", uint64(header.Slot))
	s.WriteUint64AsBytes32(prefix+"ProposerIndex", uint64(header.ProposerIndex))
	s.write(prefix+"ParentRoot", ByteArray(header.ParentRoot[:]))
	s.write(prefix+"StateRoot", ByteArray(header.StateRoot[:]))
	s.write(prefix+"BodyRoot", ByteArray(header.BodyRoot[:]))
}

// WriteBlock is WriteHeader with the body root derived from the full body.
func (s *Serializer) WriteBlock(prefix string, block *types.BeaconBlock) {
	s.WriteHeader(prefix, block.Header())
}

func (s *Serializer) WriteBytes32(name string, data []byte) error {
	if len(data) != 32 {
		return fmt.Errorf("%w: %s: expected 32 bytes, got %d", types.ErrDecode, name, len(data))
	}
	s.write(name, ByteArray(data))
	return nil
}

// WriteBytes writes data of any length, one element per byte.
func (s *Serializer) WriteBytes(name string, data []byte) {
	s.write(name, ByteArray(data))
}

// WriteUint64AsBytes32 writes v as its 32-byte little-endian expansion.
func (s *Serializer) WriteUint64AsBytes32(name string, v uint64) {
	le := types.ToLittleEndianBytes32(v)
	s.write(name, ByteArray(le[:]))
}

// WriteBits writes a packed bitvector, least-significant bit of each byte first.
func (s *Serializer) WriteBits(name string, bitvector []byte) {
	s.write(name, BitArray(types.BytesToBits(bitvector)))
}

func (s *Serializer) WriteMerkleBranch(name string, branch [][32]byte) {
	items := make([]Element, len(branch))
	for i := range branch {
		items[i] = ByteArray(branch[i][:])
	}
	s.write(name, Array(items...))
}

func (s *Serializer) WriteBigInt(name string, v *big.Int) {
	s.write(name, Int(v))
}

func (s *Serializer) WriteBigIntArray(name string, vs []*big.Int) {
	items := make([]Element, len(vs))
	for i, v := range vs {
		items[i] = Int(v)
	}
	s.write(name, Array(items...))
}

// WriteG1PointAsBytes writes a 48-byte compressed G1 point as is,
// once it decompresses to a point of the prime order subgroup.
func (s *Serializer) WriteG1PointAsBytes(name string, point []byte) error {
	if len(point) != bls12381.SizeOfG1AffineCompressed {
		return fmt.Errorf("%w: %s: expected %d bytes, got %d", types.ErrDecode, name, bls12381.SizeOfG1AffineCompressed, len(point))
	}
	var p bls12381.G1Affine
	if _, err := p.SetBytes(point); err != nil {
		return fmt.Errorf("%w: %s: invalid G1 point: %v", types.ErrDecode, name, err)
	}
	s.write(name, ByteArray(point))
	return nil
}

func (s *Serializer) WriteG1PointsAsBytes(name string, points []zrntcommon.BLSPubkey) {
	items := make([]Element, len(points))
	for i := range points {
		items[i] = ByteArray(points[i][:])
	}
	s.write(name, Array(items...))
}

// WriteG1PointAsLimbs decompresses point and writes [x limbs, y limbs].
func (s *Serializer) WriteG1PointAsLimbs(name string, point []byte) error {
	x, y, err := s.g1Limbs(point)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	s.write(name, Array(x, y))
	return nil
}

func (s *Serializer) WriteG1PointXAsLimbs(name string, point []byte) error {
	x, _, err := s.g1Limbs(point)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	s.write(name, x)
	return nil
}

func (s *Serializer) WriteG1PointYAsLimbs(name string, point []byte) error {
	_, y, err := s.g1Limbs(point)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	s.write(name, y)
	return nil
}

func (s *Serializer) WriteG1PointsAsLimbs(name string, points []zrntcommon.BLSPubkey) error {
	return s.writeG1Points(name, points, func(x, y Element) Element { return Array(x, y) })
}

func (s *Serializer) WriteG1PointsXAsLimbs(name string, points []zrntcommon.BLSPubkey) error {
	return s.writeG1Points(name, points, func(x, _ Element) Element { return x })
}

func (s *Serializer) WriteG1PointsYAsLimbs(name string, points []zrntcommon.BLSPubkey) error {
	return s.writeG1Points(name, points, func(_, y Element) Element { return y })
}

func (s *Serializer) writeG1Points(name string, points []zrntcommon.BLSPubkey, pick func(x, y Element) Element) error {
	items := make([]Element, len(points))
	for i := range points {
		x, y, err := s.g1Limbs(points[i][:])
		if err != nil {
			return fmt.Errorf("%s[%d]: %w", name, i, err)
		}
		items[i] = pick(x, y)
	}
	s.write(name, Array(items...))
	return nil
}

// WriteG2Point decompresses a signature and writes
// [[x.c0, x.c1], [y.c0, y.c1]], each component as limbs.
func (s *Serializer) WriteG2Point(name string, point []byte) error {
	var p bls12381.G2Affine
	if _, err := p.SetBytes(point); err != nil {
		return fmt.Errorf("%w: %s: invalid G2 point: %v", types.ErrDecode, name, err)
	}
	if !p.IsOnCurve() || !p.IsInSubGroup() {
		return fmt.Errorf("%w: %s: G2 point not in the prime order subgroup", types.ErrDecode, name)
	}

	coords := [4]*big.Int{
		p.X.A0.BigInt(new(big.Int)),
		p.X.A1.BigInt(new(big.Int)),
		p.Y.A0.BigInt(new(big.Int)),
		p.Y.A1.BigInt(new(big.Int)),
	}
	var limbs [4]Element
	for i, c := range coords {
		e, err := s.limbs(c)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		limbs[i] = e
	}
	s.write(name, Array(Array(limbs[0], limbs[1]), Array(limbs[2], limbs[3])))
	return nil
}

// WriteSyncCommittee writes the committee keys as <name>X and <name>Y limb arrays.
func (s *Serializer) WriteSyncCommittee(name string, sc *zrntcommon.SyncCommittee) error {
	if err := s.WriteG1PointsXAsLimbs(name+"X", sc.Pubkeys); err != nil {
		return err
	}
	return s.WriteG1PointsYAsLimbs(name+"Y", sc.Pubkeys)
}

// WriteSyncAggregate writes the participation bits and the aggregate signature.
func (s *Serializer) WriteSyncAggregate(bitsName, signatureName string, agg *altair.SyncAggregate) error {
	s.WriteBits(bitsName, agg.SyncCommitteeBits)
	return s.WriteG2Point(signatureName, agg.SyncCommitteeSignature[:])
}

func (s *Serializer) g1Limbs(point []byte) (x, y Element, err error) {
	var p bls12381.G1Affine
	if _, err := p.SetBytes(point); err != nil {
		return x, y, fmt.Errorf("%w: invalid G1 point: %v", types.ErrDecode, err)
	}
	if x, err = s.limbs(p.X.BigInt(new(big.Int))); err != nil {
		return x, y, err
	}
	y, err = s.limbs(p.Y.BigInt(new(big.Int)))
	return x, y, err
}

func (s *Serializer) limbs(v *big.Int) (Element, error) {
	limbs, err := types.ToLimbs(s.limbBits, s.limbCount, v)
	if err != nil {
		return Element{}, err
	}
	return LimbArray(limbs)
}
