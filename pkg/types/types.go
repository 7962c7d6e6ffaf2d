package types

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// GeneratedTransaction is handed to whoever funds Address and later broadcasts
// RawTransaction. It is never mutated after generation.
//
// SigningHash is the keccak256 of the unsigned EIP-155 payload the address was recovered
// from; TransactionHash is the hash the network will index the signed transaction by.
type GeneratedTransaction struct {
	Address         common.Address `json:"address"`
	RawTransaction  hexutil.Bytes  `json:"rawTransaction"`
	TransactionHash common.Hash    `json:"transactionHash"`
	SigningHash     common.Hash    `json:"signingHash"`
	SigningChainId  *hexutil.Big   `json:"signingChainId"`
	Attempts        int            `json:"attempts"`
}

// SigningChainIdBig returns the EIP-155 chain id the transaction was signed for
func (g *GeneratedTransaction) SigningChainIdBig() *big.Int {
	if g.SigningChainId == nil {
		return nil
	}
	return new(big.Int).Set(g.SigningChainId.ToInt())
}

// Transaction decodes RawTransaction
func (g *GeneratedTransaction) Transaction() (*ethtypes.Transaction, error) {
	tx := new(ethtypes.Transaction)
	if err := tx.UnmarshalBinary(g.RawTransaction); err != nil {
		return nil, fmt.Errorf("failed to decode raw transaction: %w", err)
	}
	return tx, nil
}

func (g *GeneratedTransaction) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(g, "", "  ")
}

// ParseGeneratedTransaction decodes the JSON form written by the generate command
func ParseGeneratedTransaction(b []byte) (*GeneratedTransaction, error) {
	var g GeneratedTransaction
	if err := json.Unmarshal(b, &g); err != nil {
		return nil, fmt.Errorf("failed to parse generated transaction: %w", err)
	}
	if len(g.RawTransaction) == 0 {
		return nil, fmt.Errorf("generated transaction has no rawTransaction")
	}
	return &g, nil
}
