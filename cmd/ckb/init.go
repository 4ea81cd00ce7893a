package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	initChainSpec string
	initForce     bool
	initBACodeHash string
	initBAArgs    []string
	initBAHashType string
	initBAMessage string
	initP2PPort   int
	initRPCPort   int
	initLogTo     string
)

// initCmd lays out data/{db,ancient,indexer_db,network,logs} under the
// working directory and writes a default ckb.toml.
func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a node's data directory and config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs := []string{
				filepath.Join(workDir, "data", "db"),
				filepath.Join(workDir, "data", "ancient"),
				filepath.Join(workDir, "data", "indexer_db"),
				filepath.Join(workDir, "data", "network", "peer_store"),
				filepath.Join(workDir, "data", "logs"),
			}
			for _, d := range dirs {
				if err := os.MkdirAll(d, 0o755); err != nil {
					return ioError(err)
				}
			}

			cfgPath := filepath.Join(workDir, "ckb.toml")
			if _, err := os.Stat(cfgPath); err == nil && !initForce {
				return configError(fmt.Errorf("init: %s already exists (use --force to overwrite)", cfgPath))
			}
			if err := os.WriteFile(cfgPath, []byte(defaultConfigTOML()), 0o644); err != nil {
				return ioError(err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "ckb: initialized %s for chain spec %q\n", workDir, initChainSpec)
			return nil
		},
	}
	cmd.Flags().StringVar(&initChainSpec, "chain", "dev", "chain spec name")
	cmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
	cmd.Flags().StringVar(&initBACodeHash, "ba-code-hash", "", "block assembler lock code hash")
	cmd.Flags().StringArrayVar(&initBAArgs, "ba-arg", nil, "block assembler lock arg (repeatable)")
	cmd.Flags().StringVar(&initBAHashType, "ba-hash-type", "type", "block assembler lock hash_type: data|type")
	cmd.Flags().StringVar(&initBAMessage, "ba-message", "", "block assembler cellbase message")
	cmd.Flags().IntVar(&initP2PPort, "p2p-port", 8115, "p2p listen port")
	cmd.Flags().IntVar(&initRPCPort, "rpc-port", 8114, "rpc listen port")
	cmd.Flags().StringVar(&initLogTo, "log-to", "file", "log destination: file|stdout|both")
	return cmd
}

func defaultConfigTOML() string {
	return fmt.Sprintf(`data_dir = "data"

[network]
listen_addr = "/ip4/0.0.0.0/tcp/%d"
p2p_port = %d
rpc_port = %d
max_inbound = 125
max_outbound = 8

[chain]
spec_path = %q

[tx_pool]
max_mem_bytes = 180000000
max_ancestors = 25
min_rbf_rate = 1000

[logging]
filter = "info"
target = %q
`, initP2PPort, initP2PPort, initRPCPort, initChainSpec, initLogTo)
}
