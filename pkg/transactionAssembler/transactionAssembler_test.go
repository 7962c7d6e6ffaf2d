package transactionAssembler

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/Layr-Labs/single-use-address-go/pkg/config"
	sacrypto "github.com/Layr-Labs/single-use-address-go/pkg/crypto"
	"github.com/Layr-Labs/single-use-address-go/pkg/signatureSynthesizer"
	"github.com/Layr-Labs/single-use-address-go/pkg/signatureSynthesizer/scriptedSynthesizer"
	"github.com/Layr-Labs/single-use-address-go/pkg/testutil"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var recipient = common.HexToAddress("0x1111111111111111111111111111111111111111")

func defaultInput() *FieldInput {
	return &FieldInput{
		ChainId:  "1",
		GasPrice: "100",
		GasLimit: "21000",
		To:       "0x1111111111111111111111111111111111111111",
		Value:    "0",
		Data:     "0x",
	}
}

func newAssembler(t *testing.T, cfg *config.GeneratorConfig, synth signatureSynthesizer.ISignatureSynthesizer) *TransactionAssembler {
	ta, err := NewTransactionAssembler(cfg, synth, zaptest.NewLogger(t))
	require.NoError(t, err)
	return ta
}

type failingSynthesizer struct {
	err error
}

func (f *failingSynthesizer) Synthesize() (*signatureSynthesizer.Signature, error) {
	return nil, f.err
}

func Test_TransactionAssembler_DefaultScenario(t *testing.T) {
	ta := newAssembler(t, nil, signatureSynthesizer.NewSignatureSynthesizer())

	result, err := ta.BuildFromInput(context.Background(), defaultInput())
	require.NoError(t, err)
	require.NotEqual(t, common.Address{}, result.Address)
	require.GreaterOrEqual(t, result.Attempts, 1)

	tx, err := result.Transaction()
	require.NoError(t, err)

	assert.Equal(t, uint8(ethtypes.LegacyTxType), tx.Type())
	assert.Equal(t, uint64(0), tx.Nonce())
	assert.Equal(t, 0, tx.GasPrice().Cmp(big.NewInt(100_000_000_000)))
	assert.Equal(t, uint64(21000), tx.Gas())
	assert.Equal(t, recipient, *tx.To())
	assert.Equal(t, 0, tx.Value().Sign())
	assert.Empty(t, tx.Data())

	// pinned by default
	assert.Equal(t, int64(3), tx.ChainId().Int64())
	assert.Equal(t, int64(3), result.SigningChainIdBig().Int64())
	assert.True(t, tx.Protected())

	sender, err := ethtypes.Sender(ethtypes.NewEIP155Signer(big.NewInt(3)), tx)
	require.NoError(t, err)
	assert.Equal(t, result.Address, sender)
	assert.Equal(t, tx.Hash(), result.TransactionHash)
}

func Test_TransactionAssembler_RetriesOnInvalidPoint(t *testing.T) {
	invalid := testutil.InvalidPointSignature(t)
	valid := testutil.ValidPointSignature(t)

	synth, err := scriptedSynthesizer.NewScriptedSynthesizerFromBytes(invalid, valid)
	require.NoError(t, err)
	ta := newAssembler(t, nil, synth)

	result, err := ta.BuildFromInput(context.Background(), defaultInput())
	require.NoError(t, err)
	require.Equal(t, 2, synth.Calls())
	require.Equal(t, 2, result.Attempts)

	tx, err := result.Transaction()
	require.NoError(t, err)

	v, r, s := tx.RawSignatureValues()
	validSig, err := signatureSynthesizer.SignatureFromBytes(valid)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Cmp(validSig.R()))
	assert.Equal(t, 0, s.Cmp(validSig.S()))
	// 35 + 2*3 + recovery id
	assert.Equal(t, int64(41+int(validSig.RecoveryId())), v.Int64())

	expected, err := sacrypto.RecoverAddress(result.SigningHash.Bytes(), valid)
	require.NoError(t, err)
	assert.Equal(t, expected, result.Address)
}

func Test_TransactionAssembler_RoundTrip(t *testing.T) {
	to := common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	fields := &UnsignedTransactionFields{
		ChainId:      big.NewInt(11155111),
		GasPriceGwei: big.NewInt(42),
		GasLimit:     60000,
		To:           &to,
		Value:        new(big.Int).Lsh(big.NewInt(1), 70),
		Data:         []byte{0xde, 0xad, 0xbe, 0xef},
	}

	cfg := config.DefaultGeneratorConfig()
	cfg.ChainIdPolicy = config.ChainIdPolicyFollow
	synth := signatureSynthesizer.NewSignatureSynthesizer()
	ta := newAssembler(t, cfg, synth)

	result, err := ta.Build(context.Background(), fields)
	require.NoError(t, err)

	tx, err := result.Transaction()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), tx.Nonce())
	assert.Equal(t, 0, tx.GasPrice().Cmp(big.NewInt(42_000_000_000)))
	assert.Equal(t, uint64(60000), tx.Gas())
	assert.Equal(t, to, *tx.To())
	assert.Equal(t, 0, tx.Value().Cmp(fields.Value))
	assert.Equal(t, fields.Data, tx.Data())
	assert.Equal(t, int64(11155111), tx.ChainId().Int64())

	// re-encoding the decoded transaction is byte identical
	reencoded, err := tx.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte(result.RawTransaction), reencoded)

	// recovery consistency against go-ethereum's independent routine
	signer := ethtypes.NewEIP155Signer(big.NewInt(11155111))
	require.Equal(t, signer.Hash(tx), result.SigningHash)

	v, r, s := tx.RawSignatureValues()
	recid := new(big.Int).Sub(v, new(big.Int).Add(big.NewInt(35), new(big.Int).Mul(big.NewInt(2), big.NewInt(11155111))))
	require.True(t, crypto.ValidateSignatureValues(byte(recid.Uint64()), r, s, true))

	sig := make([]byte, 65)
	r.FillBytes(sig[:32])
	s.FillBytes(sig[32:64])
	sig[64] = byte(recid.Uint64())
	pub, err := crypto.Ecrecover(result.SigningHash.Bytes(), sig)
	require.NoError(t, err)
	assert.Equal(t, result.Address, common.BytesToAddress(crypto.Keccak256(pub[1:])[12:]))
}

func Test_TransactionAssembler_HashIsDeterministic(t *testing.T) {
	fields, err := ParseFields(defaultInput())
	require.NoError(t, err)

	h1, err := TransactionHash(fields, big.NewInt(3))
	require.NoError(t, err)
	h2, err := TransactionHash(fields, big.NewInt(3))
	require.NoError(t, err)
	require.Equal(t, h1, h2)

	require.Equal(t, ethtypes.NewEIP155Signer(big.NewInt(3)).Hash(unsignedTransaction(fields)), h1)

	h3, err := TransactionHash(fields, big.NewInt(1))
	require.NoError(t, err)
	require.NotEqual(t, h1, h3)

	enc1, err := UnsignedEncoding(fields, big.NewInt(3))
	require.NoError(t, err)
	enc2, err := UnsignedEncoding(fields, big.NewInt(3))
	require.NoError(t, err)
	require.Equal(t, enc1, enc2)
	require.Equal(t, crypto.Keccak256Hash(enc1), h1)

	_, err = UnsignedEncoding(fields, big.NewInt(0))
	require.Error(t, err)
}

func Test_TransactionAssembler_ValidationBeforeCrypto(t *testing.T) {
	synth := scriptedSynthesizer.NewScriptedSynthesizer()
	ta := newAssembler(t, nil, synth)

	input := defaultInput()
	input.To = "0x" + "11111111111111111111111111111111111111" // 19 bytes

	_, err := ta.BuildFromInput(context.Background(), input)
	require.Error(t, err)

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Equal(t, []string{"to"}, validationErr.Fields())
	require.Equal(t, 0, synth.Calls())

	_, err = ta.Build(context.Background(), &UnsignedTransactionFields{ChainId: big.NewInt(1)})
	require.True(t, errors.As(err, &validationErr))
	require.ElementsMatch(t, []string{"gasPrice", "gasLimit", "to"}, validationErr.Fields())
	require.Equal(t, 0, synth.Calls())
}

func Test_TransactionAssembler_AbortsOnSynthesizerError(t *testing.T) {
	boom := fmt.Errorf("entropy source closed")
	ta := newAssembler(t, nil, &failingSynthesizer{err: boom})

	_, err := ta.BuildFromInput(context.Background(), defaultInput())
	require.ErrorIs(t, err, boom)

	var assemblyErr *AssemblyError
	require.True(t, errors.As(err, &assemblyErr))
	require.Equal(t, StageSynthesize, assemblyErr.Stage)
}

func Test_TransactionAssembler_RetryBudget(t *testing.T) {
	invalid := testutil.InvalidPointSignature(t)
	synth, err := scriptedSynthesizer.NewScriptedSynthesizerFromBytes(invalid, invalid, invalid, invalid)
	require.NoError(t, err)

	cfg := config.DefaultGeneratorConfig()
	cfg.MaxAttempts = 3
	ta := newAssembler(t, cfg, synth)

	_, err = ta.BuildFromInput(context.Background(), defaultInput())
	require.ErrorIs(t, err, ErrRetryBudgetExceeded)
	require.Equal(t, 3, synth.Calls())
}

func Test_TransactionAssembler_UnboundedRetries(t *testing.T) {
	invalid := testutil.InvalidPointSignature(t)
	valid := testutil.ValidPointSignature(t)

	raw := make([][]byte, 0, 1201)
	for i := 0; i < 1200; i++ {
		raw = append(raw, invalid)
	}
	raw = append(raw, valid)
	synth, err := scriptedSynthesizer.NewScriptedSynthesizerFromBytes(raw...)
	require.NoError(t, err)

	cfg := config.DefaultGeneratorConfig()
	cfg.MaxAttempts = 0
	ta := newAssembler(t, cfg, synth)

	result, err := ta.BuildFromInput(context.Background(), defaultInput())
	require.NoError(t, err)
	require.Equal(t, 1201, result.Attempts)
}

func Test_TransactionAssembler_ChainIdPolicy(t *testing.T) {
	input := defaultInput()
	input.ChainId = "11155111"

	t.Run("pinned ignores the entered chain id", func(t *testing.T) {
		ta := newAssembler(t, nil, signatureSynthesizer.NewSignatureSynthesizer())
		result, err := ta.BuildFromInput(context.Background(), input)
		require.NoError(t, err)
		tx, err := result.Transaction()
		require.NoError(t, err)
		require.Equal(t, int64(3), tx.ChainId().Int64())
	})

	t.Run("follow signs for the entered chain id", func(t *testing.T) {
		cfg := config.DefaultGeneratorConfig()
		cfg.ChainIdPolicy = config.ChainIdPolicyFollow
		ta := newAssembler(t, cfg, signatureSynthesizer.NewSignatureSynthesizer())
		result, err := ta.BuildFromInput(context.Background(), input)
		require.NoError(t, err)
		tx, err := result.Transaction()
		require.NoError(t, err)
		require.Equal(t, int64(11155111), tx.ChainId().Int64())

		sender, err := ethtypes.LatestSignerForChainID(big.NewInt(11155111)).Sender(tx)
		require.NoError(t, err)
		require.Equal(t, result.Address, sender)
	})

	t.Run("custom pinned chain id", func(t *testing.T) {
		cfg := config.DefaultGeneratorConfig()
		cfg.PinnedChainId = config.ChainId_EthereumAnvil
		ta := newAssembler(t, cfg, signatureSynthesizer.NewSignatureSynthesizer())
		result, err := ta.BuildFromInput(context.Background(), input)
		require.NoError(t, err)
		require.Equal(t, int64(31337), result.SigningChainIdBig().Int64())
	})
}

func Test_TransactionAssembler_ContextCanceled(t *testing.T) {
	synth := scriptedSynthesizer.NewScriptedSynthesizer()
	ta := newAssembler(t, nil, synth)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ta.BuildFromInput(ctx, defaultInput())
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, synth.Calls())
}

func Test_TransactionAssembler_Terminates(t *testing.T) {
	ta := newAssembler(t, nil, signatureSynthesizer.NewSignatureSynthesizer())

	for i := 0; i < 50; i++ {
		result, err := ta.BuildFromInput(context.Background(), defaultInput())
		require.NoError(t, err)
		require.LessOrEqual(t, result.Attempts, config.DefaultMaxAttempts)
	}
}

func Test_TransactionAssembler_Concurrent(t *testing.T) {
	ta := newAssembler(t, nil, signatureSynthesizer.NewSignatureSynthesizer())

	const n = 16
	var wg sync.WaitGroup
	addresses := make([]common.Address, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := ta.BuildFromInput(context.Background(), defaultInput())
			errs[i] = err
			if err == nil {
				addresses[i] = result.Address
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[common.Address]bool)
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		require.False(t, seen[addresses[i]], "addresses must not repeat")
		seen[addresses[i]] = true
	}
}

func Test_classifyRecovery(t *testing.T) {
	require.Equal(t, attemptRecovered, classifyRecovery(nil))
	require.Equal(t, attemptRetry, classifyRecovery(fmt.Errorf("wrapped: %w", sacrypto.ErrInvalidPoint)))
	require.Equal(t, attemptAbort, classifyRecovery(errors.New("invalid point")))
}

func Test_NewTransactionAssembler(t *testing.T) {
	_, err := NewTransactionAssembler(nil, nil, nil)
	require.Error(t, err)

	cfg := config.DefaultGeneratorConfig()
	cfg.ChainIdPolicy = "random"
	_, err = NewTransactionAssembler(cfg, signatureSynthesizer.NewSignatureSynthesizer(), nil)
	require.Error(t, err)
}
