package testutil

import (
	"bytes"
	"io"
	"math/big"
	"testing"
)

// secp256k1 field prime
var fieldPrime, _ = new(big.Int).SetString("fffffffffffffffffffffffffffffffffffffffffffffffffffffffefffffc2f", 16)

// IsCurveX reports whether x^3 + 7 has a square root mod p, i.e. whether x is the
// x coordinate of some secp256k1 point.
func IsCurveX(x *big.Int) bool {
	y2 := new(big.Int).Exp(x, big.NewInt(3), fieldPrime)
	y2.Add(y2, big.NewInt(7))
	y2.Mod(y2, fieldPrime)
	return new(big.Int).ModSqrt(y2, fieldPrime) != nil
}

// FindCurveR returns the smallest r >= start for which IsCurveX(r) == onCurve
func FindCurveR(start int64, onCurve bool) *big.Int {
	r := big.NewInt(start)
	for IsCurveX(r) != onCurve {
		r.Add(r, big.NewInt(1))
	}
	return r
}

// RawSignature encodes r || s || v with 32 byte scalars
func RawSignature(t *testing.T, r, s *big.Int, v byte) []byte {
	if r.BitLen() > 256 || s.BitLen() > 256 {
		t.Fatalf("signature component wider than 32 bytes")
	}
	out := make([]byte, 65)
	r.FillBytes(out[:32])
	s.FillBytes(out[32:64])
	out[64] = v
	return out
}

// InvalidPointSignature returns a structurally well formed signature whose r is not the x
// coordinate of any curve point, so public key recovery must fail.
func InvalidPointSignature(t *testing.T) []byte {
	return RawSignature(t, FindCurveR(1, false), big.NewInt(1), 27)
}

// ValidPointSignature returns a signature whose r lies on the curve, so recovery succeeds
// for any digest.
func ValidPointSignature(t *testing.T) []byte {
	return RawSignature(t, FindCurveR(1, true), big.NewInt(1), 27)
}

// ScriptedReader replays chunks in order and returns io.EOF once exhausted
func ScriptedReader(chunks ...[]byte) io.Reader {
	return bytes.NewReader(bytes.Join(chunks, nil))
}

// Entropy returns a 64 byte big-endian encoding of x, the width the synthesizer draws.
func Entropy(x *big.Int) []byte {
	out := make([]byte, 64)
	x.FillBytes(out)
	return out
}
