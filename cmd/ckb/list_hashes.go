package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listHashesBundled bool

// bundledChainSpecs names the chain specs a real distribution bundles
// (mainnet/testnet/dev). Only the names are listed; no genesis or
// chain-spec hash is computed for them.
var bundledChainSpecs = []string{"mainnet", "testnet", "dev"}

// listHashesCmd prints the names of the bundled chain specs when given
// --bundled; without it, it prints a one-line hint. It prints no hashes.
func listHashesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list-hashes",
		Short: "List bundled chain spec names",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !listHashesBundled {
				fmt.Fprintln(cmd.OutOrStdout(), "ckb: pass --bundled to list the specs this binary ships")
				return nil
			}
			for _, name := range bundledChainSpecs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n", name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&listHashesBundled, "bundled", false, "list the bundled chain spec names")
	return cmd
}
