package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/Layr-Labs/single-use-address-go/pkg/config"
	"github.com/Layr-Labs/single-use-address-go/pkg/logger"
	"github.com/Layr-Labs/single-use-address-go/pkg/signatureSynthesizer"
	"github.com/Layr-Labs/single-use-address-go/pkg/transactionAssembler"
	"github.com/Layr-Labs/single-use-address-go/pkg/transactionBroadcaster"
	"github.com/Layr-Labs/single-use-address-go/pkg/types"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "single-use-address",
		Usage: "Generate an Ethereum address nobody holds the key for, with a pre-signed transaction spending from it",
		Description: `Crafts a legacy transaction, attaches a random signature and recovers the sender address
implied by it. Fund the printed address, then broadcast the printed raw transaction.

The key for the address is unknown to everyone, so the transaction can only ever be sent once
and nothing else can be spent from the address.`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "chain-id-policy",
				Usage:   "Which chain id to sign for: pinned (always --pinned-chain-id) or follow (the entered --chain-id)",
				Value:   config.ChainIdPolicyPinned.String(),
				EnvVars: []string{config.EnvChainIdPolicy},
			},
			&cli.Uint64Flag{
				Name:    "pinned-chain-id",
				Usage:   "Chain id used when the policy is pinned. Known: " + config.GetSupportedChainIDsString(),
				Value:   uint64(config.DefaultPinnedChainId),
				EnvVars: []string{config.EnvPinnedChainId},
			},
			&cli.IntFlag{
				Name:    "max-attempts",
				Usage:   "Maximum random signatures tried per generation, 0 for no limit",
				Value:   config.DefaultMaxAttempts,
				EnvVars: []string{config.EnvMaxAttempts},
			},
			&cli.StringFlag{
				Name:    "rpc-url",
				Usage:   "Ethereum RPC URL used to broadcast",
				Value:   config.DefaultRPCURL,
				EnvVars: []string{config.EnvRPCURL},
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Enable debug logging",
				EnvVars: []string{config.EnvDebug},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "generate",
				Usage: "Generate a single use address and its signed transaction",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "chain-id", Usage: "Chain id", Value: config.DefaultChainId},
					&cli.StringFlag{Name: "gas-price", Usage: "Gas price in gwei", Value: config.DefaultGasPriceGwei},
					&cli.StringFlag{Name: "gas-limit", Usage: "Gas limit", Value: config.DefaultGasLimit},
					&cli.StringFlag{Name: "to", Usage: "Recipient address", Required: true},
					&cli.StringFlag{Name: "value", Usage: "Value in wei", Value: config.DefaultValue},
					&cli.StringFlag{Name: "data", Usage: "Call data, hex prefixed by 0x"},
					&cli.StringFlag{Name: "output", Usage: "Write the result JSON to this file instead of stdout"},
					&cli.BoolFlag{Name: "send", Usage: "Broadcast the transaction right away (the address must already be funded)"},
				},
				Action: generateCommand,
			},
			{
				Name:  "send",
				Usage: "Broadcast a previously generated transaction",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "raw-transaction", Usage: "Signed raw transaction, hex prefixed by 0x"},
					&cli.StringFlag{Name: "input", Usage: "Path to a JSON file written by generate"},
				},
				Action: sendCommand,
			},
		},
	}
}

func parseConfig(c *cli.Context) (*config.GeneratorConfig, error) {
	cfg := &config.GeneratorConfig{
		ChainIdPolicy: config.ChainIdPolicy(c.String("chain-id-policy")),
		PinnedChainId: config.ChainId(c.Uint64("pinned-chain-id")),
		MaxAttempts:   c.Int("max-attempts"),
		RPCURL:        c.String("rpc-url"),
		Debug:         c.Bool("debug"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

func generateCommand(c *cli.Context) error {
	cfg, err := parseConfig(c)
	if err != nil {
		return err
	}
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = l.Sync() }()

	assembler, err := transactionAssembler.NewTransactionAssembler(cfg, signatureSynthesizer.NewSignatureSynthesizer(), l)
	if err != nil {
		return fmt.Errorf("failed to create transaction assembler: %w", err)
	}

	result, err := assembler.BuildFromInput(c.Context, &transactionAssembler.FieldInput{
		ChainId:  c.String("chain-id"),
		GasPrice: c.String("gas-price"),
		GasLimit: c.String("gas-limit"),
		To:       c.String("to"),
		Value:    c.String("value"),
		Data:     c.String("data"),
	})
	if err != nil {
		return fmt.Errorf("failed to generate transaction: %w", err)
	}

	out, err := result.MarshalIndent()
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if path := c.String("output"); path != "" {
		if err := os.WriteFile(path, out, 0644); err != nil {
			return fmt.Errorf("failed to write to file: %w", err)
		}
		fmt.Fprintf(c.App.Writer, "Result written to: %s\n", path)
	} else {
		fmt.Fprintln(c.App.Writer, string(out))
	}
	fmt.Fprintf(c.App.ErrWriter, "Remember to send funds to %s first\n", result.Address.Hex())

	if c.Bool("send") {
		return broadcast(c.Context, cfg, result.RawTransaction, c, l)
	}
	return nil
}

func sendCommand(c *cli.Context) error {
	cfg, err := parseConfig(c)
	if err != nil {
		return err
	}
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = l.Sync() }()

	raw, err := readRawTransaction(c)
	if err != nil {
		return err
	}
	return broadcast(c.Context, cfg, raw, c, l)
}

func readRawTransaction(c *cli.Context) ([]byte, error) {
	rawHex := strings.TrimSpace(c.String("raw-transaction"))
	input := c.String("input")
	switch {
	case rawHex != "" && input != "":
		return nil, fmt.Errorf("use either --raw-transaction or --input, not both")
	case rawHex != "":
		raw, err := hexutil.Decode(rawHex)
		if err != nil {
			return nil, fmt.Errorf("invalid raw transaction: %w", err)
		}
		return raw, nil
	case input != "":
		b, err := os.ReadFile(input)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", input, err)
		}
		generated, err := types.ParseGeneratedTransaction(b)
		if err != nil {
			return nil, err
		}
		return generated.RawTransaction, nil
	default:
		return nil, fmt.Errorf("one of --raw-transaction or --input is required")
	}
}

func broadcast(ctx context.Context, cfg *config.GeneratorConfig, raw []byte, c *cli.Context, l *zap.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	b, err := transactionBroadcaster.NewRPCBroadcaster(ctx, &transactionBroadcaster.BroadcasterConfig{RPCURL: cfg.RPCURL}, l)
	if err != nil {
		return fmt.Errorf("failed to create broadcaster: %w", err)
	}
	defer b.Close()

	hash, err := b.BroadcastRawTransaction(ctx, raw)
	if err != nil {
		return fmt.Errorf("an error has occurred: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Transaction sent: %s\n", hash.Hex())
	return nil
}
