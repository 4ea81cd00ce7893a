package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	resetForce       bool
	resetAll         bool
	resetDatabase    bool
	resetIndexer     bool
	resetNetwork     bool
	resetNetworkPeer bool
	resetNetworkKey  bool
	resetLogs        bool
)

// resetDataCmd removes selected subtrees of data/.
func resetDataCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset-data",
		Short: "Remove all or part of the node's data directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !resetForce {
				return configError(fmt.Errorf("reset-data: refusing to act without --force"))
			}

			var targets []string
			switch {
			case resetAll:
				targets = []string{filepath.Join(workDir, "data")}
			default:
				if resetDatabase {
					targets = append(targets, filepath.Join(workDir, "data", "db"), filepath.Join(workDir, "data", "ancient"))
				}
				if resetIndexer {
					targets = append(targets, filepath.Join(workDir, "data", "indexer_db"))
				}
				if resetNetworkPeer {
					targets = append(targets, filepath.Join(workDir, "data", "network", "peer_store"))
				}
				if resetNetworkKey {
					targets = append(targets, filepath.Join(workDir, "data", "network", "secret_key"))
				}
				if resetNetwork {
					targets = append(targets, filepath.Join(workDir, "data", "network"))
				}
				if resetLogs {
					targets = append(targets, filepath.Join(workDir, "data", "logs"))
				}
			}

			for _, t := range targets {
				if err := os.RemoveAll(t); err != nil {
					return ioError(err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ckb: removed %d path(s)\n", len(targets))
			return nil
		},
	}
	cmd.Flags().BoolVar(&resetForce, "force", false, "required to actually delete anything")
	cmd.Flags().BoolVar(&resetAll, "all", false, "remove the entire data directory")
	cmd.Flags().BoolVar(&resetDatabase, "database", false, "remove data/db and data/ancient")
	cmd.Flags().BoolVar(&resetIndexer, "indexer", false, "remove data/indexer_db")
	cmd.Flags().BoolVar(&resetNetwork, "network", false, "remove data/network")
	cmd.Flags().BoolVar(&resetNetworkPeer, "network-peer-store", false, "remove data/network/peer_store")
	cmd.Flags().BoolVar(&resetNetworkKey, "network-secret-key", false, "remove data/network/secret_key")
	cmd.Flags().BoolVar(&resetLogs, "logs", false, "remove data/logs")
	return cmd
}
