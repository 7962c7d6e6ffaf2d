package transactionBroadcaster

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ITransactionBroadcaster hands a signed raw transaction to a network entry point
type ITransactionBroadcaster interface {
	// BroadcastRawTransaction submits raw verbatim and returns the hash reported by the node
	BroadcastRawTransaction(ctx context.Context, raw []byte) (common.Hash, error)

	Close()
}

type BroadcasterConfig struct {
	RPCURL string `json:"rpcUrl" yaml:"rpcUrl"`
}

// RPCBroadcaster submits transactions with eth_sendRawTransaction. It does not wait for
// inclusion or track receipts.
type RPCBroadcaster struct {
	client *rpc.Client
	url    string
	logger *zap.Logger
}

var _ ITransactionBroadcaster = (*RPCBroadcaster)(nil)

func NewRPCBroadcaster(ctx context.Context, cfg *BroadcasterConfig, logger *zap.Logger) (*RPCBroadcaster, error) {
	if cfg == nil || cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url cannot be empty")
	}
	client, err := rpc.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial %s", cfg.RPCURL)
	}
	return NewRPCBroadcasterFromClient(client, cfg.RPCURL, logger), nil
}

// NewRPCBroadcasterFromClient wraps an existing rpc client
func NewRPCBroadcasterFromClient(client *rpc.Client, url string, logger *zap.Logger) *RPCBroadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RPCBroadcaster{
		client: client,
		url:    url,
		logger: logger,
	}
}

func (b *RPCBroadcaster) BroadcastRawTransaction(ctx context.Context, raw []byte) (common.Hash, error) {
	if len(raw) == 0 {
		return common.Hash{}, fmt.Errorf("raw transaction cannot be empty")
	}

	// decoding is only used to log the expected hash, the bytes are forwarded untouched
	var expected common.Hash
	tx := new(ethtypes.Transaction)
	if err := tx.UnmarshalBinary(raw); err == nil {
		expected = tx.Hash()
	} else {
		b.logger.Warn("Raw transaction does not decode locally, submitting anyway",
			zap.Error(err),
		)
	}

	b.logger.Info("BroadcastRawTransaction: sending transaction",
		zap.String("rpcUrl", b.url),
		zap.String("expectedTxHash", expected.Hex()),
		zap.Int("size", len(raw)),
	)

	var hash common.Hash
	if err := b.client.CallContext(ctx, &hash, "eth_sendRawTransaction", hexutil.Bytes(raw)); err != nil {
		b.logger.Error("BroadcastRawTransaction: provider rejected transaction",
			zap.String("rpcUrl", b.url),
			zap.Error(err),
		)
		return common.Hash{}, errors.Wrapf(err, "failed to send raw transaction to %s", b.url)
	}

	if expected != (common.Hash{}) && hash != expected {
		b.logger.Warn("BroadcastRawTransaction: provider returned an unexpected hash",
			zap.String("expectedTxHash", expected.Hex()),
			zap.String("txHash", hash.Hex()),
		)
	}

	b.logger.Info("BroadcastRawTransaction: transaction sent",
		zap.String("txHash", hash.Hex()),
	)
	return hash, nil
}

func (b *RPCBroadcaster) Close() {
	b.client.Close()
}
