package crypto

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

const (
	// ScalarLength is the fixed width of an r or s signature component
	ScalarLength = 32
	// SignatureLength is r(32) || s(32) || v(1)
	SignatureLength = 2*ScalarLength + 1

	// LegacyRecoveryIdOffset is added to the raw recovery id to produce the
	// pre-EIP-155 v value (27 or 28)
	LegacyRecoveryIdOffset = 27
)

var (
	// From Ethereum's Yellow Paper, Appendix F. Signing Transactions
	secp256k1N, _ = new(big.Int).SetString("115792089237316195423570985008687907852837564279074904382605163141518161494337", 10)

	// n/2 + 1, the exclusive upper bound for s
	secp256k1HalfNPlusOne = new(big.Int).Add(new(big.Int).Rsh(secp256k1N, 1), big.NewInt(1))
)

// ErrInvalidPoint is returned when a signature does not correspond to a point on the curve.
// Roughly half of all random (r, v) pairs land here; callers are expected to retry with a
// fresh signature.
var ErrInvalidPoint = errors.New("signature does not correspond to a valid curve point")

// Secp256k1N returns a copy of the secp256k1 group order
func Secp256k1N() *big.Int {
	return new(big.Int).Set(secp256k1N)
}

// Secp256k1HalfNPlusOne returns a copy of n/2 + 1
func Secp256k1HalfNPlusOne() *big.Int {
	return new(big.Int).Set(secp256k1HalfNPlusOne)
}

// PadScalar encodes x as a 32 byte big-endian value, left padded with zeros.
func PadScalar(x *big.Int) ([]byte, error) {
	if x.Sign() < 0 {
		return nil, fmt.Errorf("scalar is negative")
	}
	if x.BitLen() > ScalarLength*8 {
		return nil, fmt.Errorf("scalar exceeds %d bytes", ScalarLength)
	}
	out := make([]byte, ScalarLength)
	x.FillBytes(out)
	return out, nil
}

// RecoverAddress recovers the Ethereum address implied by a 32 byte digest and a 65 byte
// r || s || v signature where v is 27 or 28.
//
// A signature whose r is not the x coordinate of any curve point (or whose recovered key is
// the point at infinity) yields an error wrapping ErrInvalidPoint. Every other failure is
// returned unwrapped by ErrInvalidPoint and must not be retried.
func RecoverAddress(hash []byte, sig []byte) (common.Address, error) {
	pub, err := RecoverPublicKey(hash, sig)
	if err != nil {
		return common.Address{}, err
	}
	return PublicKeyToAddress(pub), nil
}

// RecoverPublicKey returns the 65 byte uncompressed public key implied by hash and sig.
func RecoverPublicKey(hash []byte, sig []byte) ([]byte, error) {
	if len(hash) != common.HashLength {
		return nil, fmt.Errorf("hash must be %d bytes, got %d", common.HashLength, len(hash))
	}
	if len(sig) != SignatureLength {
		return nil, fmt.Errorf("signature must be %d bytes, got %d", SignatureLength, len(sig))
	}
	v := sig[SignatureLength-1]
	if v != LegacyRecoveryIdOffset && v != LegacyRecoveryIdOffset+1 {
		return nil, fmt.Errorf("invalid recovery id %d, expected 27 or 28", v)
	}

	// compact form is v || r || s, v doubling as the uncompressed key recovery code
	compact := make([]byte, SignatureLength)
	compact[0] = v
	copy(compact[1:], sig[:2*ScalarLength])

	pub, _, err := ecdsa.RecoverCompact(compact, hash)
	if err != nil {
		if isStructuralRecoveryError(err) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPoint, err)
		}
		return nil, fmt.Errorf("failed to recover public key: %w", err)
	}
	return pub.SerializeUncompressed(), nil
}

// PublicKeyToAddress derives the address from a 65 byte uncompressed public key.
func PublicKeyToAddress(pub []byte) common.Address {
	return common.BytesToAddress(ethcrypto.Keccak256(pub[1:])[12:])
}

func isStructuralRecoveryError(err error) bool {
	return errors.Is(err, ecdsa.ErrPointNotOnCurve) || errors.Is(err, ecdsa.ErrSigOverflowsPrime)
}
