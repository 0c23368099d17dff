package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/2003jiahang/newfs/core"
	"github.com/2003jiahang/newfs/internal/blockdev"
)

func newStatCmd() *cobra.Command {
	var ioUnit int

	cmd := &cobra.Command{
		Use:   "stat IMAGE",
		Short: "print allocation usage for a NewFS image",
		Args:  cobra.ExactArgs(1),
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

			u := sb.Usage()
			fmt.Printf("logical block size: %d bytes\n", u.LogicalBlockSize)
			fmt.Printf("inodes:      %d/%d\n", u.InodesUsed, u.InodesTotal)
			fmt.Printf("data blocks: %d/%d\n", u.DataBlocksUsed, u.DataBlocksTotal)
			return nil
		},
	}

	cmd.Flags().IntVar(&ioUnit, "io-unit", 512, "device IO unit in bytes")
	return cmd
}
