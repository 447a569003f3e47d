package circuit

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/emulated/fields_bls12381"
	"github.com/consensys/gnark/std/algebra/emulated/sw_bls12381"
	"github.com/consensys/gnark/std/algebra/emulated/sw_emulated"
	"github.com/consensys/gnark/std/hash/sha2"
	"github.com/consensys/gnark/std/math/emulated"
	"github.com/consensys/gnark/std/math/uints"
)

// SignatureDST is the hash-to-curve tag of beacon chain BLS signatures.
const SignatureDST = "BLS_SIG_BLS12381G2_XMD:SHA-256_SSWU_RO_POP_"

// SyncCommitteeCircuit verifies the sync committee signature over an attested header:
//
//	e(sum_{i: Bits[i]=1} PubKeys[i], H(signing_root)) == e(G1, Signature)
//
// where signing_root = hash_tree_root(SigningData(root(Attested), Domain)).
// The 2/3 participation threshold is left to the verifier of Participation.
type SyncCommitteeCircuit struct {
	Attested  Header
	PubKeys   []sw_bls12381.G1Affine
	Bits      []frontend.Variable
	Signature sw_bls12381.G2Affine
	Domain    Bytes32

	// Public inputs
	AttestedRoot  Bytes32           `gnark:",public"`
	Participation frontend.Variable `gnark:",public"`
}

// NewSyncCommitteeCircuit allocates a circuit for a committee of size members.
func NewSyncCommitteeCircuit(size int) *SyncCommitteeCircuit {
	return &SyncCommitteeCircuit{
		PubKeys: make([]sw_bls12381.G1Affine, size),
		Bits:    make([]frontend.Variable, size),
	}
}

func (c *SyncCommitteeCircuit) Define(api frontend.API) error {
	if len(c.PubKeys) == 0 || len(c.PubKeys) != len(c.Bits) {
		return fmt.Errorf("committee of %d keys and %d bits", len(c.PubKeys), len(c.Bits))
	}

	blockRoot := headerRoot(api, &c.Attested)
	assertBytesEqual(api, blockRoot, c.AttestedRoot)
	signingRoot := hashPair(api, blockRoot, c.Domain)

	aggregate, err := c.aggregatePubKeys(api)
	if err != nil {
		return fmt.Errorf("aggregate pubkeys: %w", err)
	}
	message, err := hashToG2(api, signingRoot)
	if err != nil {
		return fmt.Errorf("hash to G2: %w", err)
	}

	pairing, err := sw_bls12381.NewPairing(api)
	if err != nil {
		return fmt.Errorf("new pairing: %w", err)
	}
	pairing.AssertIsOnG1(aggregate)
	pairing.AssertIsOnG2(message)
	pairing.AssertIsOnG2(&c.Signature)

	curve, err := sw_emulated.New[sw_bls12381.BaseField, sw_bls12381.ScalarField](api, sw_emulated.GetBLS12381Params())
	if err != nil {
		return fmt.Errorf("new curve: %w", err)
	}
	negG1 := curve.Neg(curve.Generator())

	// e(agg, H(m)) * e(-G1, sig) == 1
	return pairing.PairingCheck(
		[]*sw_bls12381.G1Affine{aggregate, negG1},
		[]*sw_bls12381.G2Affine{message, &c.Signature},
	)
}

// aggregatePubKeys sums the keys whose bit is set and checks the bit count
// against Participation. At least one member must have signed.
func (c *SyncCommitteeCircuit) aggregatePubKeys(api frontend.API) (*sw_bls12381.G1Affine, error) {
	curve, err := sw_emulated.New[sw_bls12381.BaseField, sw_bls12381.ScalarField](api, sw_emulated.GetBLS12381Params())
	if err != nil {
		return nil, err
	}

	acc := &c.PubKeys[0]
	started := c.Bits[0]
	count := c.Bits[0]
	api.AssertIsBoolean(c.Bits[0])
	for i := 1; i < len(c.PubKeys); i++ {
		bit := c.Bits[i]
		api.AssertIsBoolean(bit)

		sum := curve.AddUnified(acc, &c.PubKeys[i])
		next := curve.Select(api.And(started, bit), sum, acc)
		acc = curve.Select(api.And(api.IsZero(started), bit), &c.PubKeys[i], next)

		started = api.Or(started, bit)
		count = api.Add(count, bit)
	}
	api.AssertIsEqual(started, 1)
	api.AssertIsEqual(count, c.Participation)
	return acc, nil
}

// hashToG2 is hash_to_curve for G2 (RFC 9380) with SignatureDST.
func hashToG2(api frontend.API, msg Bytes32) (*sw_bls12381.G2Affine, error) {
	g2, err := sw_bls12381.NewG2(api)
	if err != nil {
		return nil, err
	}
	u, err := hashToFieldFp2(api, msg[:])
	if err != nil {
		return nil, err
	}
	q0, err := g2.MapToG2(&u[0])
	if err != nil {
		return nil, err
	}
	q1, err := g2.MapToG2(&u[1])
	if err != nil {
		return nil, err
	}
	return g2.AddUnified(q0, q1), nil
}

// hashToFieldFp2 draws two Fp2 elements, each coordinate from 64 uniform bytes.
func hashToFieldFp2(api frontend.API, msg []uints.U8) ([2]fields_bls12381.E2, error) {
	const (
		degree    = 2
		chunkSize = 64
		count     = 2
	)
	var out [2]fields_bls12381.E2

	fp, err := emulated.NewField[sw_bls12381.BaseField](api)
	if err != nil {
		return out, err
	}
	bapi, err := uints.NewBytes(api)
	if err != nil {
		return out, err
	}
	uniform, err := expandMessageXMD(api, bapi, msg, uints.NewU8Array([]byte(SignatureDST)), count*degree*chunkSize)
	if err != nil {
		return out, err
	}

	for i := 0; i < count; i++ {
		offset := i * degree * chunkSize
		out[i].A0 = *bytesToFp(fp, bapi, uniform[offset:offset+chunkSize])
		out[i].A1 = *bytesToFp(fp, bapi, uniform[offset+chunkSize:offset+2*chunkSize])
	}
	return out, nil
}

// expandMessageXMD is expand_message_xmd with SHA-256 (RFC 9380 section 5.3.1).
func expandMessageXMD(api frontend.API, bapi *uints.Bytes, msg, dst []uints.U8, length int) ([]uints.U8, error) {
	const (
		hashSize  = 32
		blockSize = 64
	)
	ell := (length + hashSize - 1) / hashSize
	if ell > 255 || len(dst) > 255 {
		return nil, fmt.Errorf("expand_message_xmd: length %d out of range", length)
	}

	dstPrime := append(append([]uints.U8{}, dst...), uints.NewU8(uint8(len(dst))))
	zPad := uints.NewU8Array(make([]byte, blockSize))
	lenBytes := uints.NewU8Array([]byte{uint8(length >> 8), uint8(length)})

	digest := func(parts ...[]uints.U8) ([]uints.U8, error) {
		h, err := sha2.New(api)
		if err != nil {
			return nil, err
		}
		for _, p := range parts {
			h.Write(p)
		}
		return h.Sum(), nil
	}

	b0, err := digest(zPad, msg, lenBytes, uints.NewU8Array([]byte{0}), dstPrime)
	if err != nil {
		return nil, err
	}
	prev, err := digest(b0, uints.NewU8Array([]byte{1}), dstPrime)
	if err != nil {
		return nil, err
	}
	out := append(make([]uints.U8, 0, ell*hashSize), prev...)
	for i := 2; i <= ell; i++ {
		mixed := make([]uints.U8, hashSize)
		for j := range mixed {
			mixed[j] = bapi.Xor(b0[j], prev[j])
		}
		if prev, err = digest(mixed, uints.NewU8Array([]byte{uint8(i)}), dstPrime); err != nil {
			return nil, err
		}
		out = append(out, prev...)
	}
	return out[:length], nil
}

// bytesToFp reduces big-endian bytes modulo p, one byte at a time.
func bytesToFp(fp *emulated.Field[sw_bls12381.BaseField], bapi *uints.Bytes, bz []uints.U8) *emulated.Element[sw_bls12381.BaseField] {
	radix := big.NewInt(256)
	limbs := make([]frontend.Variable, len(fp.Modulus().Limbs))
	res := fp.Zero()
	for _, b := range bz {
		for i := range limbs {
			limbs[i] = 0
		}
		limbs[0] = bapi.Value(b)
		res = fp.Add(fp.MulConst(res, radix), fp.NewElement(limbs))
	}
	return fp.Reduce(res)
}
