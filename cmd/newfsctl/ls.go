package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/2003jiahang/newfs/core"
	"github.com/2003jiahang/newfs/internal/blockdev"
	"github.com/2003jiahang/newfs/internal/layout"
)

func newLsCmd() *cobra.Command {
	var ioUnit int

	cmd := &cobra.Command{
		Use:   "ls IMAGE [PATH]",
		Short: "list a directory's entries",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/"
			if len(args) > 1 {
				path = args[1]
			}

			dev, err := blockdev.OpenFile(args[0], ioUnit)
			if err != nil {
				return err
			}
			sb, err := core.Mount(dev)
			if err != nil {
				return err
			}
			defer sb.Unmount()

			dentry, err := sb.LookupExact(path)
			if err != nil {
				return err
			}
			if err := sb.OpenDir(dentry); err != nil {
				return err
			}

			for child := dentry.Children; child != nil; child = child.Sibling {
				tag := "f"
				if child.Type == layout.FileTypeDirectory {
					tag = "d"
				}
				fmt.Printf("%s %s\n", tag, child.Name)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&ioUnit, "io-unit", 512, "device IO unit in bytes")
	return cmd
}
