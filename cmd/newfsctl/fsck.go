package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/2003jiahang/newfs/core"
	"github.com/2003jiahang/newfs/internal/blockdev"
)

func newFsckCmd() *cobra.Command {
	var ioUnit int
	var dump bool

	cmd := &cobra.Command{
		Use:   "fsck IMAGE",
		Short: "check structural consistency of a NewFS image",
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

			report, err := sb.Fsck()
			if err != nil {
				return err
			}
			if report.OK() {
				log.Infof("%s: clean", args[0])
			} else {
				for _, p := range report.Problems {
					fmt.Println(p)
				}
				return fmt.Errorf("%s: %d problem(s) found", args[0], len(report.Problems))
			}

			if dump {
				printGrid("inode map", sb.DumpInodeMap())
				printGrid("data map", sb.DumpDataMap())
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&ioUnit, "io-unit", 512, "device IO unit in bytes")
	cmd.Flags().BoolVar(&dump, "dump", false, "print inode/data bitmap grids")
	return cmd
}

func printGrid(label string, grid [][]bool) {
	fmt.Println(label + ":")
	for _, row := range grid {
		line := make([]byte, len(row))
		for i, bit := range row {
			if bit {
				line[i] = '1'
			} else {
				line[i] = '0'
			}
		}
		fmt.Println(string(line))
	}
}
