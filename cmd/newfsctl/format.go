package main

import (
	"github.com/spf13/cobra"

	"github.com/2003jiahang/newfs/core"
	"github.com/2003jiahang/newfs/internal/blockdev"
	"github.com/2003jiahang/newfs/internal/layout"
)

func newFormatCmd() *cobra.Command {
	var ioUnit int
	var inodeCount int
	var size int64
	var raw bool

	cmd := &cobra.Command{
		Use:   "format TARGET",
		Short: "create a fresh NewFS image file or raw block device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var dev blockdev.Device
			if raw {
				d, err := blockdev.OpenRaw(args[0])
				if err != nil {
					return err
				}
				dev = d
			} else {
				d, err := blockdev.OpenFile(args[0], ioUnit)
				if err != nil {
					return err
				}
				if err := d.Truncate(size); err != nil {
					return err
				}
				dev = d
			}

			// Clear any existing superblock so Mount formats rather than
			// loading an image already present on the target.
			if _, err := dev.WriteAt(make([]byte, layout.SuperblockDiskSize), 0); err != nil {
				return err
			}

			sb, err := core.Mount(dev, core.WithInodeCount(inodeCount))
			if err != nil {
				return err
			}
			log.Infof("formatted %s", args[0])
			return sb.Unmount()
		},
	}

	cmd.Flags().IntVar(&ioUnit, "io-unit", 512, "simulated device IO unit in bytes (ignored with --raw)")
	cmd.Flags().IntVar(&inodeCount, "inodes", core.DefaultInodeCount, "inode bitmap capacity")
	cmd.Flags().Int64Var(&size, "size", 16*1024*1024, "image size in bytes (ignored with --raw)")
	cmd.Flags().BoolVar(&raw, "raw", false, "target is a raw block device, query its real geometry via ioctl")
	return cmd
}
