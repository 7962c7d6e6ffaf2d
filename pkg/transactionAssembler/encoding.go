package transactionAssembler

import (
	"fmt"
	"math/big"

	"github.com/Layr-Labs/single-use-address-go/pkg/signatureSynthesizer"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// UnsignedEncoding returns the EIP-155 signing payload
// rlp([nonce, gasPrice, gasLimit, to, value, data, chainId, 0, 0]) with nonce fixed at 0.
func UnsignedEncoding(fields *UnsignedTransactionFields, signingChainId *big.Int) ([]byte, error) {
	if err := fields.Validate(); err != nil {
		return nil, err
	}
	if signingChainId == nil || signingChainId.Sign() <= 0 {
		return nil, fmt.Errorf("signing chain id must be positive")
	}
	return rlp.EncodeToBytes([]interface{}{
		uint64(0),
		fields.GasPriceWei(),
		fields.GasLimit,
		fields.To,
		fields.value(),
		fields.data(),
		signingChainId,
		uint(0),
		uint(0),
	})
}

// TransactionHash is keccak256 of UnsignedEncoding
func TransactionHash(fields *UnsignedTransactionFields, signingChainId *big.Int) (common.Hash, error) {
	encoding, err := UnsignedEncoding(fields, signingChainId)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(encoding), nil
}

func unsignedTransaction(fields *UnsignedTransactionFields) *ethtypes.Transaction {
	to := *fields.To
	return ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    0,
		GasPrice: fields.GasPriceWei(),
		Gas:      fields.GasLimit,
		To:       &to,
		Value:    new(big.Int).Set(fields.value()),
		Data:     common.CopyBytes(fields.data()),
	})
}

// signedTransaction attaches sig with V = 35 + 2*chainId + recoveryId and serializes it
func signedTransaction(tx *ethtypes.Transaction, signer ethtypes.Signer, sig *signatureSynthesizer.Signature) (*ethtypes.Transaction, []byte, error) {
	signed, err := tx.WithSignature(signer, sig.EthereumBytes())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to attach signature: %w", err)
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to serialize signed transaction: %w", err)
	}
	return signed, raw, nil
}
