package signatureSynthesizer

import (
	"fmt"
	"math/big"

	"github.com/Layr-Labs/single-use-address-go/pkg/crypto"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Signature is a 65 byte r || s || v pseudo-signature with v in {27, 28}
type Signature struct {
	r *big.Int
	s *big.Int
	v byte
}

// NewSignature validates the components and returns a Signature.
func NewSignature(r, s *big.Int, v byte) (*Signature, error) {
	if r == nil || r.Sign() <= 0 || r.Cmp(crypto.Secp256k1N()) >= 0 {
		return nil, fmt.Errorf("r must satisfy 0 < r < n")
	}
	if s == nil || s.Sign() <= 0 || s.Cmp(crypto.Secp256k1HalfNPlusOne()) >= 0 {
		return nil, fmt.Errorf("s must satisfy 0 < s < n/2 + 1")
	}
	if v != crypto.LegacyRecoveryIdOffset && v != crypto.LegacyRecoveryIdOffset+1 {
		return nil, fmt.Errorf("v must be 27 or 28, got %d", v)
	}
	return &Signature{
		r: new(big.Int).Set(r),
		s: new(big.Int).Set(s),
		v: v,
	}, nil
}

// SignatureFromBytes parses a 65 byte r || s || v signature.
func SignatureFromBytes(b []byte) (*Signature, error) {
	if len(b) != crypto.SignatureLength {
		return nil, fmt.Errorf("signature must be %d bytes, got %d", crypto.SignatureLength, len(b))
	}
	r := new(big.Int).SetBytes(b[:crypto.ScalarLength])
	s := new(big.Int).SetBytes(b[crypto.ScalarLength : 2*crypto.ScalarLength])
	return NewSignature(r, s, b[2*crypto.ScalarLength])
}

func (sig *Signature) R() *big.Int { return new(big.Int).Set(sig.r) }
func (sig *Signature) S() *big.Int { return new(big.Int).Set(sig.s) }
func (sig *Signature) V() byte     { return sig.v }

// RecoveryId returns v - 27
func (sig *Signature) RecoveryId() byte {
	return sig.v - crypto.LegacyRecoveryIdOffset
}

// Bytes returns r || s || v
func (sig *Signature) Bytes() []byte {
	out := make([]byte, crypto.SignatureLength)
	sig.r.FillBytes(out[:crypto.ScalarLength])
	sig.s.FillBytes(out[crypto.ScalarLength : 2*crypto.ScalarLength])
	out[2*crypto.ScalarLength] = sig.v
	return out
}

// EthereumBytes returns r || s || recoveryId, the layout go-ethereum expects when
// attaching a signature to a transaction.
func (sig *Signature) EthereumBytes() []byte {
	out := sig.Bytes()
	out[2*crypto.ScalarLength] = sig.RecoveryId()
	return out
}

func (sig *Signature) Hex() string {
	return hexutil.Encode(sig.Bytes())
}

func (sig *Signature) String() string {
	return sig.Hex()
}
