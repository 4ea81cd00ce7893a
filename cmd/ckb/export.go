package main

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nervosnetwork/ckb-go/core/store"
	"github.com/nervosnetwork/ckb-go/core/store/memkv"
	"github.com/nervosnetwork/ckb-go/pkg/config"
	"github.com/spf13/cobra"
)

// exportCmd dumps every main-chain block from genesis to tip as a
// sequence of 4-byte-length-prefixed molecule.Block.Marshal() records,
// for later replay via `ckb import`.
func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <path>",
		Short: "Export the main chain to a flat file",
		Args:  cobra.ExactArgs(1),
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

			out, err := os.Create(args[0])
			if err != nil {
				return ioError(err)
			}
			defer out.Close()

			var n uint64
			for number := uint64(0); ; number++ {
				hash, ok := st.GetBlockHash(number)
				if !ok {
					break
				}
				block, ok := st.GetBlock(hash)
				if !ok {
					return ioError(fmt.Errorf("export: block %d missing body for hash %s", number, hash))
				}
				if err := writeRecord(out, block.Marshal()); err != nil {
					return ioError(err)
				}
				n++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ckb: exported %d blocks to %s\n", n, args[0])
			return nil
		},
	}
}

func writeRecord(f *os.File, data []byte) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(data)))
	if _, err := f.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := f.Write(data)
	return err
}
