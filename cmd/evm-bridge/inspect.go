package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/colorfulnotion/evmbridge/bridge"
	"github.com/colorfulnotion/evmbridge/native"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/xlab/treeprint"
)

const inspectTimeout = 30 * time.Second

func newInspectCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print a block or receipt as the bridge translates it",
	}

	var full bool
	blockCmd := &cobra.Command{
		Use:   "block <number|latest|pending>",
		Short: "Translate a block",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseBlockArg(args[0])
			if err != nil {
				return err
			}
			return withClient(cmd, g, func(ctx context.Context, c *bridge.Client) error {
				b, err := c.BlockByID(ctx, id, full)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), blockTree(b).String())
				return nil
			})
		},
	}
	blockCmd.Flags().BoolVar(&full, "full", false, "Translate every transaction")

	receiptCmd := &cobra.Command{
		Use:   "receipt <hash>",
		Short: "Assemble a transaction receipt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash := common.HexToHash(args[0])
			return withClient(cmd, g, func(ctx context.Context, c *bridge.Client) error {
				r, err := c.TransactionReceipt(ctx, hash)
				if err != nil {
					return err
				}
				if r == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: no receipt (pending or not relayed)\n", hash.Hex())
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), receiptTree(r).String())
				return nil
			})
		},
	}

	cmd.AddCommand(blockCmd, receiptCmd)
	return cmd
}

func withClient(cmd *cobra.Command, g *globalFlags, fn func(ctx context.Context, c *bridge.Client) error) error {
	cfg, err := loadConfig(g, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := initLogging(cfg, false); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), inspectTimeout)
	defer cancel()

	client, closer, err := openBridge(ctx, cfg, 0)
	if err != nil {
		return err
	}
	defer closer()
	return fn(ctx, client)
}

func parseBlockArg(s string) (native.BlockID, error) {
	switch s {
	case "latest":
		return native.LatestBlock(), nil
	case "pending":
		return native.PendingBlock(), nil
	}
	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return native.BlockID{}, fmt.Errorf("invalid block %q: want a number, latest or pending", s)
	}
	return native.BlockNumber(n), nil
}

func blockTree(b *bridge.Block) treeprint.Tree {
	tree := treeprint.New()
	if b.Number != nil {
		tree.SetValue(fmt.Sprintf("\033[1;34mBlock %d\033[0m %s", uint64(*b.Number), b.Hash.Hex()))
	} else {
		tree.SetValue("\033[1;34mPending block\033[0m")
	}
	tree.AddNode(fmt.Sprintf("parent: %s", b.ParentHash.Hex()))
	tree.AddNode(fmt.Sprintf("miner: %s", b.Miner.Hex()))
	tree.AddNode(fmt.Sprintf("timestamp: %d", uint64(b.Timestamp)))
	tree.AddNode(fmt.Sprintf("baseFee: %s", b.BaseFeePerGas.ToInt()))

	txs := tree.AddBranch(fmt.Sprintf("transactions (%d)", b.Transactions.Len()))
	if b.Transactions.IsFull() {
		for _, tx := range b.Transactions.Full {
			branch := txs.AddBranch(tx.Hash.Hex())
			branch.AddNode(fmt.Sprintf("from: %s", tx.From.Hex()))
			if tx.To != nil {
				branch.AddNode(fmt.Sprintf("to: %s", tx.To.Hex()))
			} else {
				branch.AddNode("to: (create)")
			}
			branch.AddNode(fmt.Sprintf("nonce: %d", uint64(tx.Nonce)))
			branch.AddNode(fmt.Sprintf("value: %s", tx.Value.ToInt()))
			branch.AddNode(fmt.Sprintf("input: %d bytes", len(tx.Input)))
		}
	} else {
		for _, h := range b.Transactions.Hashes {
			txs.AddNode(h.Hex())
		}
	}
	return tree
}

func receiptTree(r *bridge.Receipt) treeprint.Tree {
	tree := treeprint.New()
	status := "\033[1;32msuccess\033[0m"
	if r.Status == 0 {
		status = "\033[1;31mfailed\033[0m"
	}
	tree.SetValue(fmt.Sprintf("Receipt %s %s", r.TransactionHash.Hex(), status))
	tree.AddNode(fmt.Sprintf("block: %d %s", uint64(r.BlockNumber), r.BlockHash.Hex()))
	tree.AddNode(fmt.Sprintf("index: %d", uint64(r.TransactionIndex)))
	tree.AddNode(fmt.Sprintf("from: %s", r.From.Hex()))
	if r.To != nil {
		tree.AddNode(fmt.Sprintf("to: %s", r.To.Hex()))
	}

	logs := tree.AddBranch(fmt.Sprintf("logs (%d)", len(r.Logs)))
	for _, l := range r.Logs {
		branch := logs.AddBranch(fmt.Sprintf("#%d %s", uint64(l.LogIndex), l.Address.Hex()))
		for i, topic := range l.Topics {
			branch.AddNode(fmt.Sprintf("topic%d: %s", i, topic.Hex()))
		}
		branch.AddNode(fmt.Sprintf("data: %d bytes", len(l.Data)))
	}
	return tree
}
