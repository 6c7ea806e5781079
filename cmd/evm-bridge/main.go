// EVM Bridge - Ethereum JSON-RPC endpoint over the field-element ledger.
// It resolves Ethereum addresses to ledger accounts, relays signed Ethereum
// transactions to the interpreter contract and rebuilds blocks, receipts and
// logs in Ethereum form.
package main

import (
	"fmt"
	"os"

	"github.com/colorfulnotion/evmbridge/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

// memoryRPC selects the in-process devnet instead of a ledger node.
const memoryRPC = "memory"

type globalFlags struct {
	configFile string
	envFile    string
	nativeRPC  string
	interp     string
	logLevel   string
	debug      string
}

func main() {
	var g globalFlags
	rootCmd := &cobra.Command{
		Use:   "evm-bridge",
		Short: "Ethereum JSON-RPC bridge for the field-element ledger",
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&g.configFile, "config", "", "TOML configuration file")
	pf.StringVar(&g.envFile, "env-file", ".env", "dotenv file with EVMBRIDGE_* variables")
	pf.StringVar(&g.nativeRPC, "native-rpc", "", `Native ledger JSON-RPC URL, or "memory" for an in-process devnet`)
	pf.StringVar(&g.interp, "interpreter", "", "Interpreter contract address (felt)")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	pf.StringVar(&g.debug, "debug", "", `Debug modules to enable, comma separated or "all"`)

	rootCmd.AddCommand(newRunCmd(&g), newInspectCmd(&g), newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "evm-bridge %s (commit %s, built %s)\n", Version, Commit, BuildTime)
		},
	}
}

// loadConfig applies defaults, the TOML file, the environment and finally
// the flags the user set explicitly.
func loadConfig(g *globalFlags, flags *pflag.FlagSet) (*config.Config, error) {
	cfg := config.Defaults
	if g.configFile != "" {
		if err := config.LoadFile(g.configFile, &cfg); err != nil {
			return nil, err
		}
	}
	if err := config.LoadEnv(&cfg, g.envFile); err != nil {
		return nil, err
	}
	if flags.Changed("native-rpc") {
		cfg.NativeRPC = g.nativeRPC
	}
	if flags.Changed("interpreter") {
		cfg.InterpreterAddress = g.interp
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = g.logLevel
	}
	if flags.Changed("debug") {
		cfg.LogModules = g.debug
	}
	return &cfg, nil
}
