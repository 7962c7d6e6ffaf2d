package scriptedSynthesizer

import (
	"fmt"
	"sync"

	"github.com/Layr-Labs/single-use-address-go/pkg/signatureSynthesizer"
)

// ScriptedSynthesizer replays a fixed sequence of signatures. It is used to reproduce a
// generation deterministically and to drive the assembler through known retry paths.
type ScriptedSynthesizer struct {
	signatures []*signatureSynthesizer.Signature
	calls      int
	mu         sync.Mutex
}

var _ signatureSynthesizer.ISignatureSynthesizer = (*ScriptedSynthesizer)(nil)

func NewScriptedSynthesizer(signatures ...*signatureSynthesizer.Signature) *ScriptedSynthesizer {
	return &ScriptedSynthesizer{signatures: signatures}
}

// NewScriptedSynthesizerFromBytes parses each 65 byte r || s || v signature.
func NewScriptedSynthesizerFromBytes(raw ...[]byte) (*ScriptedSynthesizer, error) {
	sigs := make([]*signatureSynthesizer.Signature, 0, len(raw))
	for i, b := range raw {
		sig, err := signatureSynthesizer.SignatureFromBytes(b)
		if err != nil {
			return nil, fmt.Errorf("signature %d: %w", i, err)
		}
		sigs = append(sigs, sig)
	}
	return NewScriptedSynthesizer(sigs...), nil
}

func (s *ScriptedSynthesizer) Synthesize() (*signatureSynthesizer.Signature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.calls >= len(s.signatures) {
		return nil, fmt.Errorf("scripted signatures exhausted after %d calls", s.calls)
	}
	sig := s.signatures[s.calls]
	s.calls++
	return sig, nil
}

// Calls returns how many times Synthesize has been called
func (s *ScriptedSynthesizer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
