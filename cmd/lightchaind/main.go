// Command lightchaind runs a single PBFT validator node: one cobra
// binary with start, init-genesis, gen-key and version subcommands.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/sanketsaagar/lightchain-l1/internal/config"
	"github.com/sanketsaagar/lightchain-l1/internal/node"
	"github.com/sanketsaagar/lightchain-l1/pkg/block"
	"github.com/sanketsaagar/lightchain-l1/pkg/genesis"
)

const (
	appName = "lightchaind"
	version = "v1.0.0"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "A PBFT validator node",
	Long:  fmt.Sprintf("%s %s: single-shard PBFT validator node", appName, version),
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the validator node",
	RunE:  runStart,
}

var initGenesisCmd = &cobra.Command{
	Use:   "init-genesis [validator-addr...]",
	Short: "Write a new genesis.json with the given validator addresses",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runInitGenesis,
}

var genKeyCmd = &cobra.Command{
	Use:   "gen-key [output-path]",
	Short: "Generate a new validator key and write it to output-path",
	Args:  cobra.ExactArgs(1),
	RunE:  runGenKey,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s %s\n", appName, version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the node config file")
	rootCmd.AddCommand(startCmd, initGenesisCmd, genKeyCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	logger := log.New(os.Stdout, fmt.Sprintf("[%s] ", appName), log.LstdFlags)
	logger.Printf("starting %s %s (data_dir=%s)", appName, version, cfg.DataDir)

	n, err := node.New(cfg, noopTransport{}, logger)
	if err != nil {
		return fmt.Errorf("build node: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := n.Start(ctx); err != nil {
		return fmt.Errorf("start node: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Printf("shutting down")
	if err := n.Stop(); err != nil {
		logger.Printf("error during shutdown: %v", err)
	}
	return nil
}

func runInitGenesis(cmd *cobra.Command, args []string) error {
	validators := make([]common.Address, len(args))
	for i, a := range args {
		if !common.IsHexAddress(a) {
			return fmt.Errorf("invalid validator address: %s", a)
		}
		validators[i] = common.HexToAddress(a)
	}

	g := genesis.New(validators, 8_000_000, nil)
	path := "genesis.json"
	if err := genesis.Save(path, g); err != nil {
		return fmt.Errorf("write genesis: %w", err)
	}
	fmt.Printf("wrote %s with %d validators\n", path, len(validators))
	return nil
}

func runGenKey(cmd *cobra.Command, args []string) error {
	outPath := args[0]
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil && filepath.Dir(outPath) != "." {
		return fmt.Errorf("create key directory: %w", err)
	}
	priv, err := crypto.GenerateKey()
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}
	if err := crypto.SaveECDSA(outPath, priv); err != nil {
		return fmt.Errorf("save key: %w", err)
	}
	addr := crypto.PubkeyToAddress(priv.PublicKey)
	fmt.Printf("wrote validator key to %s (address %s)\n", outPath, addr.Hex())
	return nil
}

// noopTransport is the placeholder consensus.Transport used until an
// actual gossip transport is wired in; it drops every outbound
// message. A real deployment supplies a transport built against
// pkg/network's frame contract instead.
type noopTransport struct{}

func (noopTransport) Broadcast(msg *block.Message) {}
