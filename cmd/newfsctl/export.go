package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/2003jiahang/newfs/core"
	"github.com/2003jiahang/newfs/internal/blockdev"
	"github.com/2003jiahang/newfs/internal/snapshot"
)

func newExportCmd() *cobra.Command {
	var ioUnit int

	cmd := &cobra.Command{
		Use:   "export IMAGE OUTFILE",
		Short: "write a zstd-compressed snapshot of an image's tree",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dev, err := blockdev.OpenFile(args[0], ioUnit)
			if err != nil {
				return err
			}
			sb, err := core.Mount(dev)
			if err != nil {
				return err
			}
			defer sb.Unmount()

			out, err := os.Create(args[1])
			if err != nil {
				return err
			}
			defer out.Close()

			if err := snapshot.Write(out, sb, sb.Root()); err != nil {
				return err
			}
			log.Infof("exported %s to %s", args[0], args[1])
			return nil
		},
	}

	cmd.Flags().IntVar(&ioUnit, "io-unit", 512, "device IO unit in bytes")
	return cmd
}
