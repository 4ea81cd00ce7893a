package main

import (
	"fmt"
	"path/filepath"

	"github.com/nervosnetwork/ckb-go/core/store"
	"github.com/nervosnetwork/ckb-go/core/store/memkv"
	"github.com/nervosnetwork/ckb-go/pkg/config"
	"github.com/spf13/cobra"
)

var (
	statsFrom uint64
	statsTo   uint64
)

// statsCmd prints per-block side data over [--from, --to]: the sum of
// BlockExt's txs_fees and its uncle count. It stops at the first height
// with no main-chain block.
func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print block statistics over a height range",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(workDir)
			if err != nil {
				return configError(err)
			}
			engine, err := memkv.Open(filepath.Join(workDir, cfg.DataDir, "db", "wal.log"))
			if err != nil {
				return ioError(err)
			}
			st := store.NewStore(engine)

			for number := statsFrom; number <= statsTo; number++ {
				hash, ok := st.GetBlockHash(number)
				if !ok {
					break
				}
				ext, ok := st.GetBlockExt(hash)
				if !ok {
					continue
				}
				var totalFee uint64
				for _, f := range ext.TxsFees {
					totalFee += f
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\ttxs_fees=%d\tuncles=%d\n", number, hash, totalFee, ext.TotalUnclesCount)
			}
			return nil
		},
	}
	cmd.Flags().Uint64Var(&statsFrom, "from", 0, "start height (inclusive)")
	cmd.Flags().Uint64Var(&statsTo, "to", 0, "end height (inclusive)")
	return cmd
}
