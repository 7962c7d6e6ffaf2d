package transactionAssembler

import (
	"math/big"
	"strings"

	"github.com/Layr-Labs/single-use-address-go/pkg/config"
	"github.com/Layr-Labs/single-use-address-go/pkg/util"
	"github.com/ethereum/go-ethereum/common"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

var gweiToWei = new(big.Int).Exp(big.NewInt(10), big.NewInt(config.GweiDecimals), nil)

// FieldInput is the transaction form as entered. Empty strings take the defaults.
type FieldInput struct {
	ChainId  string `json:"chainId"`
	GasPrice string `json:"gasPrice"` // gwei
	GasLimit string `json:"gasLimit"`
	To       string `json:"to"`
	Value    string `json:"value"` // wei
	Data     string `json:"data"`
}

// UnsignedTransactionFields are the user controlled fields of a single use transaction.
// The nonce is not among them, it is always 0.
type UnsignedTransactionFields struct {
	ChainId      *big.Int
	GasPriceGwei *big.Int
	GasLimit     uint64
	To           *common.Address
	Value        *big.Int
	Data         []byte
}

// GasPriceWei returns the gas price in wei
func (f *UnsignedTransactionFields) GasPriceWei() *big.Int {
	return new(big.Int).Mul(f.GasPriceGwei, gweiToWei)
}

func (f *UnsignedTransactionFields) value() *big.Int {
	if f.Value == nil {
		return new(big.Int)
	}
	return f.Value
}

func (f *UnsignedTransactionFields) data() []byte {
	if f.Data == nil {
		return []byte{}
	}
	return f.Data
}

// Validate checks ranges of already typed fields
func (f *UnsignedTransactionFields) Validate() error {
	var allErrors field.ErrorList

	switch {
	case f.ChainId == nil:
		allErrors = append(allErrors, field.Required(field.NewPath("chainId"), "chainId is required"))
	case f.ChainId.Sign() <= 0:
		allErrors = append(allErrors, field.Invalid(field.NewPath("chainId"), f.ChainId.String(), "chainId must be positive"))
	case f.ChainId.BitLen() > 256:
		allErrors = append(allErrors, field.Invalid(field.NewPath("chainId"), f.ChainId.String(), "chainId exceeds 256 bits"))
	}

	switch {
	case f.GasPriceGwei == nil:
		allErrors = append(allErrors, field.Required(field.NewPath("gasPrice"), "gasPrice is required"))
	case f.GasPriceGwei.Sign() < 0:
		allErrors = append(allErrors, field.Invalid(field.NewPath("gasPrice"), f.GasPriceGwei.String(), "gasPrice must not be negative"))
	case f.GasPriceWei().BitLen() > 256:
		allErrors = append(allErrors, field.Invalid(field.NewPath("gasPrice"), f.GasPriceGwei.String(), "gasPrice in wei exceeds 256 bits"))
	}

	if f.GasLimit < config.MinGasLimit {
		allErrors = append(allErrors, field.Invalid(field.NewPath("gasLimit"), f.GasLimit, "gasLimit must be at least 21000"))
	}

	if f.To == nil {
		allErrors = append(allErrors, field.Required(field.NewPath("to"), "recipient is required"))
	}

	if f.Value != nil && (f.Value.Sign() < 0 || f.Value.BitLen() > 256) {
		allErrors = append(allErrors, field.Invalid(field.NewPath("value"), f.Value.String(), "value must be a non-negative 256 bit integer"))
	}

	if len(allErrors) > 0 {
		return &ValidationError{Errors: allErrors}
	}
	return nil
}

// ParseFields converts form input into typed fields, applying defaults for empty entries.
func ParseFields(input *FieldInput) (*UnsignedTransactionFields, error) {
	if input == nil {
		input = &FieldInput{}
	}
	var allErrors field.ErrorList
	fields := &UnsignedTransactionFields{}

	chainId, err := util.ParseUint256(withDefault(input.ChainId, config.DefaultChainId))
	if err != nil {
		allErrors = append(allErrors, field.Invalid(field.NewPath("chainId"), input.ChainId, err.Error()))
	}
	fields.ChainId = chainId

	gasPrice, err := util.ParseUint256(withDefault(input.GasPrice, config.DefaultGasPriceGwei))
	if err != nil {
		allErrors = append(allErrors, field.Invalid(field.NewPath("gasPrice"), input.GasPrice, err.Error()))
	}
	fields.GasPriceGwei = gasPrice

	gasLimit, err := util.ParseUint256(withDefault(input.GasLimit, config.DefaultGasLimit))
	switch {
	case err != nil:
		allErrors = append(allErrors, field.Invalid(field.NewPath("gasLimit"), input.GasLimit, err.Error()))
	case !gasLimit.IsUint64():
		allErrors = append(allErrors, field.Invalid(field.NewPath("gasLimit"), input.GasLimit, "gasLimit exceeds 64 bits"))
	default:
		fields.GasLimit = gasLimit.Uint64()
	}

	if strings.TrimSpace(input.To) == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("to"), "recipient is required"))
	} else if to, err := util.ParseAddress(input.To); err != nil {
		allErrors = append(allErrors, field.Invalid(field.NewPath("to"), input.To, "recipient is not a valid address"))
	} else {
		fields.To = &to
	}

	value, err := util.ParseUint256(withDefault(input.Value, config.DefaultValue))
	if err != nil {
		allErrors = append(allErrors, field.Invalid(field.NewPath("value"), input.Value, err.Error()))
	}
	fields.Value = value

	data, err := util.ParseHexData(input.Data)
	if err != nil {
		allErrors = append(allErrors, field.Invalid(field.NewPath("data"), input.Data, "invalid data, should be hex prefixed by 0x"))
	}
	fields.Data = data

	if len(allErrors) > 0 {
		return nil, &ValidationError{Errors: allErrors}
	}
	if err := fields.Validate(); err != nil {
		return nil, err
	}
	return fields, nil
}

func withDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
