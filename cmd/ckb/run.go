package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/nervosnetwork/ckb-go/core/chain"
	"github.com/nervosnetwork/ckb-go/core/consensus"
	"github.com/nervosnetwork/ckb-go/core/store"
	"github.com/nervosnetwork/ckb-go/core/store/memkv"
	"github.com/nervosnetwork/ckb-go/core/txpool"
	"github.com/nervosnetwork/ckb-go/pkg/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var runBAAdvanced bool

const committedCacheSize = 100_000

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the node: sync, relay, and serve queries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(workDir)
			if err != nil {
				return configError(err)
			}

			log := logrus.New()
			if lvl, err := logrus.ParseLevel(cfg.Logging.Filter); err == nil {
				log.SetLevel(lvl)
			}

			engine, err := memkv.Open(filepath.Join(workDir, cfg.DataDir, "db", "wal.log"))
			if err != nil {
				return ioError(err)
			}
			defer engine.Close()
			st := store.NewStore(engine)

			policy := store.SpecHashStrict
			if cfg.Chain.SkipSpecCheck {
				policy = store.SpecHashSkipCheck
			} else if cfg.Chain.OverwriteSpec {
				policy = store.SpecHashOverwrite
			}
			specHash := []byte(cfg.Chain.SpecPath)
			if err := st.CheckSpecHash(specHash, policy); err != nil {
				return configError(err)
			}

			params := consensus.DefaultParams()
			snapHandle := store.NewSnapshotHandle(nil)
			pool, err := txpool.NewTxPool(snapHandle, cfg.TxPool.MaxAncestors, cfg.TxPool.MinRBFRate, committedCacheSize)
			if err != nil {
				return err
			}

			// Chain -> pool lifecycle wiring: every committed reorg
			// re-admits the losing side, re-scans Pending/Gap against the
			// new proposal window, and demotes expired proposals.
			svc := chain.NewChainService(st, snapHandle, chain.NewProposalTable(params.ProposalWindow), params,
				chain.WithNotifyFunc(func(n chain.Notification) {
					for _, b := range n.DetachedBlocks {
						pool.OnBlockDetached(b.Transactions)
					}
					for _, b := range n.AttachedBlocks {
						for _, r := range pool.OnBlockAttached(b.Transactions) {
							log.WithFields(logrus.Fields{
								"tx_id":  r.Id.String(),
								"reason": r.Reason,
							}).Debug("tx dropped on block attach")
						}
					}
					pool.ExpireProposals(n.ExpiredProposalIds)
				}))
			svc.Start()
			defer svc.Stop()

			log.WithFields(logrus.Fields{
				"data_dir": cfg.DataDir,
				"ba":       runBAAdvanced,
			}).Info("chain service and tx pool running; p2p transport and rpc attach here")
			fmt.Fprintln(cmd.OutOrStdout(), "ckb: node running, interrupt to stop")

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig
			log.Info("shutting down")
			return nil
		},
	}
	cmd.Flags().BoolVar(&runBAAdvanced, "ba-advanced", false, "enable advanced block-assembler features")
	return cmd
}
