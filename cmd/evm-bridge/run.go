package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/colorfulnotion/evmbridge/bridge"
	"github.com/colorfulnotion/evmbridge/config"
	"github.com/colorfulnotion/evmbridge/log"
	"github.com/colorfulnotion/evmbridge/native"
	"github.com/colorfulnotion/evmbridge/native/memprovider"
	"github.com/colorfulnotion/evmbridge/native/rpcprovider"
	"github.com/colorfulnotion/evmbridge/rpc"
	"github.com/colorfulnotion/evmbridge/storage"
	"github.com/colorfulnotion/evmbridge/telemetry"
	"github.com/spf13/cobra"
)

func newRunCmd(g *globalFlags) *cobra.Command {
	var (
		accountClass string
		port         int
		telemetryURL string
		lossy        bool
		cacheDir     string
		jsonLogs     bool
		blockTime    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Serve the Ethereum JSON-RPC endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g, cmd.Flags())
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("account-class") {
				cfg.AccountClassHash = accountClass
			}
			if flags.Changed("port") {
				cfg.HTTPPort = port
			}
			if flags.Changed("telemetry") {
				cfg.TelemetryEndpoint = telemetryURL
			}
			if flags.Changed("lossy-bytes") {
				cfg.LossyByteDecoding = lossy
			}
			if flags.Changed("account-cache") {
				cfg.AccountCacheDir = cacheDir
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if err := initLogging(cfg, jsonLogs); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, blockTime)
		},
	}
	cmd.Flags().StringVar(&accountClass, "account-class", "", "Account contract class hash (felt)")
	cmd.Flags().IntVar(&port, "port", 8545, "JSON-RPC server port")
	cmd.Flags().StringVar(&telemetryURL, "telemetry", "", "OTLP/HTTP trace endpoint (e.g., http://localhost:4318)")
	cmd.Flags().BoolVar(&lossy, "lossy-bytes", false, "Drop felts above 0xff when decoding byte arrays instead of failing")
	cmd.Flags().StringVar(&cacheDir, "account-cache", "", "LevelDB directory caching resolved native accounts")
	cmd.Flags().BoolVar(&jsonLogs, "json-logs", false, "Log as JSON instead of terminal text")
	cmd.Flags().DurationVar(&blockTime, "devnet-block-time", 2*time.Second, `Sealing interval of the in-process devnet (--native-rpc memory)`)
	return cmd
}

func initLogging(cfg *config.Config, jsonLogs bool) error {
	initFn := log.InitLogger
	if jsonLogs {
		initFn = log.InitJSONLogger
	}
	if err := initFn(cfg.LogLevel); err != nil {
		return err
	}
	if cfg.LogModules != "" {
		log.EnableModules(cfg.LogModules)
	}
	return nil
}

func run(ctx context.Context, cfg *config.Config, blockTime time.Duration) error {
	if cfg.TelemetryEndpoint != "" {
		tc, err := telemetry.NewTelemetryClient(ctx, cfg.TelemetryEndpoint, "evm-bridge")
		if err != nil {
			log.Warn(log.ConfigMonitoring, "telemetry disabled", "endpoint", cfg.TelemetryEndpoint, "err", err)
		} else {
			telemetry.SetDefault(tc)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				tc.Shutdown(shutdownCtx)
			}()
		}
	}

	client, closeProvider, err := openBridge(ctx, cfg, blockTime)
	if err != nil {
		return err
	}
	defer closeProvider()

	server := rpc.NewServer(rpc.NewHandler(client, "evm-bridge/"+Version))
	addr, err := server.Start(ctx, fmt.Sprintf(":%d", cfg.HTTPPort))
	if err != nil {
		return err
	}
	log.Info(log.RPCMonitoring, "EVM bridge ready", "http", fmt.Sprintf("http://%s", addr), "ws", fmt.Sprintf("ws://%s/ws", addr),
		"native", cfg.NativeRPC, "chainId", cfg.ChainID, "interpreter", cfg.InterpreterAddress, "accountClass", cfg.AccountClassHash)

	<-ctx.Done()
	fmt.Fprintln(os.Stderr, "Shutting down EVM bridge...")
	return nil
}

// openBridge connects to the configured ledger and builds the bridge client.
func openBridge(ctx context.Context, cfg *config.Config, blockTime time.Duration) (*bridge.Client, func(), error) {
	bc, err := cfg.BridgeConfig()
	if err != nil {
		return nil, nil, err
	}
	var (
		provider native.Provider
		closers  []func()
	)
	closer := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	if cfg.AccountCacheDir != "" {
		ps, err := storage.NewPersistenceStore(cfg.AccountCacheDir)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { ps.Close() })
		bc.Accounts = storage.NewAccountStore(ps)
	}
	if cfg.NativeRPC == memoryRPC {
		devnet := memprovider.NewDevnet(bc.InterpreterAddress, bc.NativeTokenAddress)
		if blockTime > 0 {
			go sealLoop(ctx, devnet, blockTime)
		}
		log.Info(log.ProviderMonitoring, "using in-process devnet", "blockTime", blockTime)
		provider = devnet
	} else {
		nc, err := rpcprovider.Dial(ctx, cfg.NativeRPC)
		if err != nil {
			closer()
			return nil, nil, fmt.Errorf("dial %s: %w", cfg.NativeRPC, err)
		}
		provider = nc
		closers = append(closers, nc.Close)
	}
	client, err := bridge.NewClient(provider, bc)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return client, closer, nil
}

func sealLoop(ctx context.Context, devnet *memprovider.Devnet, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			b := devnet.Seal(uint64(now.Unix()))
			log.Debug(log.ProviderMonitoring, "devnet block sealed", "number", *b.BlockNumber, "txs", len(b.Transactions))
		}
	}
}
