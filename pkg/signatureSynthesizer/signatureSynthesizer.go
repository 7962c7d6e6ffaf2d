package signatureSynthesizer

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/Layr-Labs/single-use-address-go/pkg/crypto"
)

// entropyLength is the width of each random draw before reduction. Drawing twice the
// scalar width keeps the modulo bias negligible without rejection sampling.
const entropyLength = 64

// ISignatureSynthesizer produces candidate pseudo-signatures
type ISignatureSynthesizer interface {
	Synthesize() (*Signature, error)
}

// SignatureSynthesizer draws signatures from a random source. It holds no state besides the
// source, so it is safe for concurrent use whenever the source is.
type SignatureSynthesizer struct {
	random io.Reader
}

// NewSignatureSynthesizer returns a synthesizer backed by crypto/rand
func NewSignatureSynthesizer() *SignatureSynthesizer {
	return NewSignatureSynthesizerWithSource(rand.Reader)
}

// NewSignatureSynthesizerWithSource returns a synthesizer reading from random.
// A nil source falls back to crypto/rand.
func NewSignatureSynthesizerWithSource(random io.Reader) *SignatureSynthesizer {
	if random == nil {
		random = rand.Reader
	}
	return &SignatureSynthesizer{random: random}
}

// Synthesize returns a signature with 0 < r < n, 0 < s < n/2 + 1 and v in {27, 28}.
// It only fails when the random source does.
func (ss *SignatureSynthesizer) Synthesize() (*Signature, error) {
	r, err := ss.drawNonZero(crypto.Secp256k1N())
	if err != nil {
		return nil, fmt.Errorf("failed to draw r: %w", err)
	}

	s, err := ss.drawNonZero(crypto.Secp256k1HalfNPlusOne())
	if err != nil {
		return nil, fmt.Errorf("failed to draw s: %w", err)
	}

	var coin [1]byte
	if _, err := io.ReadFull(ss.random, coin[:]); err != nil {
		return nil, fmt.Errorf("failed to draw v: %w", err)
	}
	v := byte(crypto.LegacyRecoveryIdOffset) + coin[0]&1

	return &Signature{r: r, s: s, v: v}, nil
}

// drawNonZero reduces a 512 bit draw modulo m, drawing again on zero
func (ss *SignatureSynthesizer) drawNonZero(m *big.Int) (*big.Int, error) {
	buf := make([]byte, entropyLength)
	for {
		if _, err := io.ReadFull(ss.random, buf); err != nil {
			return nil, err
		}
		x := new(big.Int).SetBytes(buf)
		x.Mod(x, m)
		if x.Sign() != 0 {
			return x, nil
		}
	}
}
