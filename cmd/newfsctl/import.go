package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/2003jiahang/newfs/core"
	"github.com/2003jiahang/newfs/internal/blockdev"
	"github.com/2003jiahang/newfs/internal/snapshot"
)

func newImportCmd() *cobra.Command {
	var ioUnit int
	var dest string

	cmd := &cobra.Command{
		Use:   "import IMAGE SNAPSHOT",
		Short: "replay a zstd-compressed snapshot into an image",
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

			target, err := sb.LookupExact(dest)
			if err != nil {
				return err
			}

			in, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer in.Close()

			if err := snapshot.Restore(in, sb, target); err != nil {
				return err
			}
			log.Infof("imported %s into %s", args[1], args[0])
			return nil
		},
	}

	cmd.Flags().IntVar(&ioUnit, "io-unit", 512, "device IO unit in bytes")
	cmd.Flags().StringVar(&dest, "dest", "/", "directory within the image to import into")
	return cmd
}
