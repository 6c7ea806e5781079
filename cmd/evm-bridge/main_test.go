package main

import (
	"strings"
	"testing"

	"github.com/colorfulnotion/evmbridge/bridge"
	"github.com/colorfulnotion/evmbridge/native"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFlagsWin(t *testing.T) {
	t.Setenv("EVMBRIDGE_INTERPRETER_ADDRESS", "0xabc")
	t.Setenv("EVMBRIDGE_NATIVE_RPC", "http://env:5050")

	g := globalFlags{}
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringVar(&g.nativeRPC, "native-rpc", "", "")
	flags.StringVar(&g.interp, "interpreter", "", "")
	flags.StringVar(&g.logLevel, "log-level", "", "")
	flags.StringVar(&g.debug, "debug", "", "")
	require.NoError(t, flags.Parse([]string{"--native-rpc", memoryRPC}))

	cfg, err := loadConfig(&g, flags)
	require.NoError(t, err)
	assert.Equal(t, memoryRPC, cfg.NativeRPC)
	assert.Equal(t, "0xabc", cfg.InterpreterAddress)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestParseBlockArg(t *testing.T) {
	id, err := parseBlockArg("latest")
	require.NoError(t, err)
	assert.Equal(t, native.LatestBlock(), id)

	id, err = parseBlockArg("0x10")
	require.NoError(t, err)
	assert.Equal(t, "#16", id.String())

	_, err = parseBlockArg("tip")
	assert.Error(t, err)
}

func TestTrees(t *testing.T) {
	n := hexutil.Uint64(7)
	h := common.HexToHash("0x07")
	to := common.HexToAddress("0x02")
	b := &bridge.Block{
		Hash:          &h,
		Number:        &n,
		BaseFeePerGas: (*hexutil.Big)(bridge.BaseFeePerGas()),
		Transactions: bridge.BlockTransactions{Full: []*bridge.Transaction{{
			Hash:  common.HexToHash("0xaa"),
			To:    &to,
			Value: (*hexutil.Big)(bridge.GasPrice()),
		}}},
	}
	out := blockTree(b).String()
	assert.Contains(t, out, "Block 7")
	assert.Contains(t, out, "transactions (1)")
	assert.Contains(t, out, to.Hex())

	r := &bridge.Receipt{
		TransactionHash: common.HexToHash("0xaa"),
		Status:          1,
		Logs: []*bridge.Log{{
			Address: to,
			Topics:  []common.Hash{common.HexToHash("0x01")},
		}},
	}
	out = receiptTree(r).String()
	assert.Contains(t, out, "success")
	assert.Contains(t, out, "logs (1)")
	assert.True(t, strings.Contains(out, "topic0"))
}
