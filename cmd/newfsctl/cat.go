package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/2003jiahang/newfs/core"
	"github.com/2003jiahang/newfs/internal/blockdev"
)

func newCatCmd() *cobra.Command {
	var ioUnit int

	cmd := &cobra.Command{
		Use:   "cat IMAGE PATH",
		Short: "print a regular file's content to stdout",
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

			dentry, err := sb.LookupExact(args[1])
			if err != nil {
				return err
			}
			data, err := sb.ReadFile(dentry, 0, -1)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		},
	}

	cmd.Flags().IntVar(&ioUnit, "io-unit", 512, "device IO unit in bytes")
	return cmd
}
