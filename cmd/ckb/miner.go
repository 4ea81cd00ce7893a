package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var minerThreads int

func minerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "miner",
		Short: "Run the built-in PoW miner against a running node's RPC",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "ckb: miner would start %d worker(s); the PoW engine plugs in at deployment\n", minerThreads)
			return nil
		},
	}
	cmd.Flags().IntVarP(&minerThreads, "threads", "l", 1, "number of miner worker threads")
	return cmd
}
