package util

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
)

// ParseUint256 parses a decimal or 0x prefixed hex string into a non-negative integer
// of at most 256 bits.
func ParseUint256(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("value is empty")
	}
	v, ok := math.ParseBig256(s)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("integer %q is negative", s)
	}
	return v, nil
}

// ParseHexData decodes 0x prefixed hex. An empty string decodes to no data.
func ParseHexData(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []byte{}, nil
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("invalid data, should be hex prefixed by 0x: %w", err)
	}
	return b, nil
}

// IsAddress reports whether s is a 20 byte hex address. Mixed case addresses must carry
// a valid EIP-55 checksum; all lower or all upper case addresses are accepted as is.
func IsAddress(s string) bool {
	if !common.IsHexAddress(s) {
		return false
	}
	body := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return true
	}
	return common.HexToAddress(s).Hex()[2:] == body
}

// ParseAddress validates s with IsAddress and returns the address
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return common.Address{}, fmt.Errorf("address is empty")
	}
	if !IsAddress(s) {
		return common.Address{}, fmt.Errorf("%q is not a valid address", s)
	}
	return common.HexToAddress(s), nil
}
