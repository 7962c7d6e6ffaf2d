package config

import (
	"fmt"
	"math/big"

	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Environment variable names for the generator configuration
const (
	EnvChainIdPolicy = "SUA_CHAIN_ID_POLICY"
	EnvPinnedChainId = "SUA_PINNED_CHAIN_ID"
	EnvMaxAttempts   = "SUA_MAX_ATTEMPTS"
	EnvRPCURL        = "SUA_RPC_URL"
	EnvDebug         = "SUA_DEBUG"
)

type ChainId uint64

const (
	ChainId_EthereumMainnet ChainId = 1
	ChainId_EthereumRopsten ChainId = 3
	ChainId_EthereumSepolia ChainId = 11155111
	ChainId_EthereumAnvil   ChainId = 31337
)

func (c ChainId) BigInt() *big.Int {
	return new(big.Int).SetUint64(uint64(c))
}

type ChainName string

const (
	ChainName_EthereumMainnet ChainName = "mainnet"
	ChainName_EthereumRopsten ChainName = "ropsten"
	ChainName_EthereumSepolia ChainName = "sepolia"
	ChainName_EthereumAnvil   ChainName = "devnet"
)

var ChainIdToName = map[ChainId]ChainName{
	ChainId_EthereumMainnet: ChainName_EthereumMainnet,
	ChainId_EthereumRopsten: ChainName_EthereumRopsten,
	ChainId_EthereumSepolia: ChainName_EthereumSepolia,
	ChainId_EthereumAnvil:   ChainName_EthereumAnvil,
}
var ChainNameToId = map[ChainName]ChainId{
	ChainName_EthereumMainnet: ChainId_EthereumMainnet,
	ChainName_EthereumRopsten: ChainId_EthereumRopsten,
	ChainName_EthereumSepolia: ChainId_EthereumSepolia,
	ChainName_EthereumAnvil:   ChainId_EthereumAnvil,
}

// ChainIdPolicy decides which chain id goes into the EIP-155 signing payload
type ChainIdPolicy string

const (
	// ChainIdPolicyPinned signs for PinnedChainId whatever chain id the user entered.
	// Generated transactions have always targeted ropsten under this policy.
	ChainIdPolicyPinned ChainIdPolicy = "pinned"
	// ChainIdPolicyFollow signs for the chain id the user entered
	ChainIdPolicyFollow ChainIdPolicy = "follow"
)

func (p ChainIdPolicy) String() string {
	return string(p)
}

const (
	DefaultPinnedChainId = ChainId_EthereumRopsten

	// DefaultMaxAttempts bounds the recovery retry loop. Each attempt succeeds with
	// probability ~1/2, so this is an availability safeguard only.
	DefaultMaxAttempts = 1000

	DefaultRPCURL = "http://localhost:8545"
)

// Defaults for the transaction form fields
const (
	DefaultChainId      = "1"
	DefaultGasPriceGwei = "100"
	DefaultGasLimit     = "21000"
	DefaultValue        = "0"

	// MinGasLimit is the intrinsic gas of a plain transfer
	MinGasLimit  = 21000
	GweiDecimals = 9
)

// GeneratorConfig configures how single use transactions are assembled and broadcast
type GeneratorConfig struct {
	ChainIdPolicy ChainIdPolicy `json:"chain_id_policy"`
	PinnedChainId ChainId       `json:"pinned_chain_id"`

	// MaxAttempts caps recovery attempts per submission, 0 means unbounded
	MaxAttempts int `json:"max_attempts"`

	RPCURL string `json:"rpc_url"`
	Debug  bool   `json:"debug"`
}

func DefaultGeneratorConfig() *GeneratorConfig {
	return &GeneratorConfig{
		ChainIdPolicy: ChainIdPolicyPinned,
		PinnedChainId: DefaultPinnedChainId,
		MaxAttempts:   DefaultMaxAttempts,
		RPCURL:        DefaultRPCURL,
	}
}

// Validate validates the generator configuration
func (c *GeneratorConfig) Validate() error {
	var allErrors field.ErrorList
	switch c.ChainIdPolicy {
	case ChainIdPolicyPinned:
		if c.PinnedChainId == 0 {
			allErrors = append(allErrors, field.Required(field.NewPath("pinnedChainId"), "pinnedChainId is required when the chain id policy is pinned"))
		}
	case ChainIdPolicyFollow:
	default:
		allErrors = append(allErrors, field.NotSupported(field.NewPath("chainIdPolicy"), c.ChainIdPolicy, []string{
			ChainIdPolicyPinned.String(),
			ChainIdPolicyFollow.String(),
		}))
	}
	if c.MaxAttempts < 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("maxAttempts"), c.MaxAttempts, "maxAttempts must be >= 0"))
	}
	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

// SigningChainId returns the chain id placed in the signing payload for a user entered chain id
func (c *GeneratorConfig) SigningChainId(entered *big.Int) *big.Int {
	if c.ChainIdPolicy == ChainIdPolicyFollow {
		return new(big.Int).Set(entered)
	}
	return c.PinnedChainId.BigInt()
}

// GetChainName returns the name of a known chain or the decimal id
func GetChainName(chainId *big.Int) string {
	if chainId.IsUint64() {
		if name, ok := ChainIdToName[ChainId(chainId.Uint64())]; ok {
			return string(name)
		}
	}
	return chainId.String()
}

// GetSupportedChainIDsString returns known chain IDs as strings for CLI help
func GetSupportedChainIDsString() string {
	return fmt.Sprintf("%d (mainnet), %d (ropsten), %d (sepolia), %d (anvil)",
		ChainId_EthereumMainnet, ChainId_EthereumRopsten, ChainId_EthereumSepolia, ChainId_EthereumAnvil)
}
