package main

import (
	"fmt"
	"os"

	libp2pcrypto "github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/spf13/cobra"
)

var peerIDSecretPath string

// peerIDCmd wraps key generation/derivation for the network identity
// key stored at data/network/secret_key. This
// is the libp2p session identity key, distinct from the out-of-scope
// secp256k1 transaction-signing primitive.
func peerIDCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "peer-id",
		Short: "Generate or derive a peer id",
	}
	cmd.AddCommand(peerIDGenCmd(), peerIDFromSecretCmd())
	return cmd
}

func peerIDGenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate a new network secret key and print its peer id",
		RunE: func(cmd *cobra.Command, args []string) error {
			priv, _, err := libp2pcrypto.GenerateEd25519Key(nil)
			if err != nil {
				return err
			}
			id, err := peer.IDFromPrivateKey(priv)
			if err != nil {
				return err
			}
			raw, err := libp2pcrypto.MarshalPrivateKey(priv)
			if err != nil {
				return err
			}
			if peerIDSecretPath != "" {
				if err := os.WriteFile(peerIDSecretPath, raw, 0o600); err != nil {
					return ioError(err)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), id.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&peerIDSecretPath, "secret-path", "", "path to write the generated secret key")
	return cmd
}

func peerIDFromSecretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "from-secret",
		Short: "Print the peer id derived from an existing secret key",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(peerIDSecretPath)
			if err != nil {
				return ioError(err)
			}
			priv, err := libp2pcrypto.UnmarshalPrivateKey(raw)
			if err != nil {
				return err
			}
			id, err := peer.IDFromPrivateKey(priv)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&peerIDSecretPath, "secret-path", "", "path to the secret key file")
	cmd.MarkFlagRequired("secret-path")
	return cmd
}
