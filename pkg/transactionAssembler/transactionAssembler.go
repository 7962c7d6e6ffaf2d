package transactionAssembler

import (
	"context"
	"errors"
	"fmt"

	"github.com/Layr-Labs/single-use-address-go/pkg/config"
	sacrypto "github.com/Layr-Labs/single-use-address-go/pkg/crypto"
	"github.com/Layr-Labs/single-use-address-go/pkg/signatureSynthesizer"
	"github.com/Layr-Labs/single-use-address-go/pkg/types"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ITransactionAssembler turns transaction fields into a single use address and the signed
// transaction spending from it
type ITransactionAssembler interface {
	Build(ctx context.Context, fields *UnsignedTransactionFields) (*types.GeneratedTransaction, error)
	BuildFromInput(ctx context.Context, input *FieldInput) (*types.GeneratedTransaction, error)
}

type TransactionAssembler struct {
	config      *config.GeneratorConfig
	synthesizer signatureSynthesizer.ISignatureSynthesizer
	logger      *zap.Logger
}

var _ ITransactionAssembler = (*TransactionAssembler)(nil)

func NewTransactionAssembler(
	cfg *config.GeneratorConfig,
	synthesizer signatureSynthesizer.ISignatureSynthesizer,
	logger *zap.Logger,
) (*TransactionAssembler, error) {
	if cfg == nil {
		cfg = config.DefaultGeneratorConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid generator config: %w", err)
	}
	if synthesizer == nil {
		return nil, fmt.Errorf("signature synthesizer cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransactionAssembler{
		config:      cfg,
		synthesizer: synthesizer,
		logger:      logger,
	}, nil
}

type attemptResult int

const (
	attemptRecovered attemptResult = iota
	attemptRetry
	attemptAbort
)

func classifyRecovery(err error) attemptResult {
	switch {
	case err == nil:
		return attemptRecovered
	case errors.Is(err, sacrypto.ErrInvalidPoint):
		return attemptRetry
	default:
		return attemptAbort
	}
}

// BuildFromInput parses the form input and calls Build
func (ta *TransactionAssembler) BuildFromInput(ctx context.Context, input *FieldInput) (*types.GeneratedTransaction, error) {
	fields, err := ParseFields(input)
	if err != nil {
		return nil, err
	}
	return ta.Build(ctx, fields)
}

// Build hashes the unsigned transaction once, then draws signatures until one recovers to a
// curve point. Signatures that do not are discarded and retried; any other failure aborts.
func (ta *TransactionAssembler) Build(ctx context.Context, fields *UnsignedTransactionFields) (*types.GeneratedTransaction, error) {
	if fields == nil {
		return nil, fmt.Errorf("fields cannot be nil")
	}
	if err := fields.Validate(); err != nil {
		return nil, err
	}

	submissionId := uuid.New().String()
	signingChainId := ta.config.SigningChainId(fields.ChainId)
	if signingChainId.Cmp(fields.ChainId) != 0 {
		ta.logger.Warn("Signing chain id differs from the entered chain id",
			zap.String("submissionId", submissionId),
			zap.String("enteredChainId", fields.ChainId.String()),
			zap.String("signingChainId", signingChainId.String()),
			zap.String("chainIdPolicy", ta.config.ChainIdPolicy.String()),
		)
	}

	hash, err := TransactionHash(fields, signingChainId)
	if err != nil {
		return nil, &AssemblyError{Stage: StageEncode, Err: err}
	}

	tx := unsignedTransaction(fields)
	signer := ethtypes.NewEIP155Signer(signingChainId)
	if signerHash := signer.Hash(tx); signerHash != hash {
		return nil, &AssemblyError{
			Stage: StageEncode,
			Err:   fmt.Errorf("signing hash mismatch: encoded %s, signer %s", hash.Hex(), signerHash.Hex()),
		}
	}

	for attempt := 1; ; attempt++ {
		if ta.config.MaxAttempts > 0 && attempt > ta.config.MaxAttempts {
			ta.logger.Error("Exhausted recovery attempts",
				zap.String("submissionId", submissionId),
				zap.Int("maxAttempts", ta.config.MaxAttempts),
			)
			return nil, fmt.Errorf("%w: no recoverable signature after %d attempts", ErrRetryBudgetExceeded, ta.config.MaxAttempts)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sig, err := ta.synthesizer.Synthesize()
		if err != nil {
			return nil, &AssemblyError{Stage: StageSynthesize, Err: err}
		}

		address, err := sacrypto.RecoverAddress(hash.Bytes(), sig.Bytes())
		switch classifyRecovery(err) {
		case attemptRetry:
			ta.logger.Debug("Signature is not on the curve, retrying",
				zap.String("submissionId", submissionId),
				zap.Int("attempt", attempt),
			)
			continue
		case attemptAbort:
			ta.logger.Error("Public key recovery failed",
				zap.String("submissionId", submissionId),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return nil, &AssemblyError{Stage: StageRecover, Err: err}
		}

		signed, raw, err := signedTransaction(tx, signer, sig)
		if err != nil {
			return nil, &AssemblyError{Stage: StageSign, Err: err}
		}

		ta.logger.Info("Generated single use transaction",
			zap.String("submissionId", submissionId),
			zap.String("address", address.Hex()),
			zap.String("txHash", signed.Hash().Hex()),
			zap.String("signingChain", config.GetChainName(signingChainId)),
			zap.Int("attempts", attempt),
		)

		return &types.GeneratedTransaction{
			Address:         address,
			RawTransaction:  raw,
			TransactionHash: signed.Hash(),
			SigningHash:     hash,
			SigningChainId:  (*hexutil.Big)(signingChainId),
			Attempts:        attempt,
		}, nil
	}
}
