package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/kateinoigakukun/wasi-vfs-go/pack"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <image-file>",
	Short: "Print the mount and directory tree of a packed image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, err := loadImage(args[0])
		if err != nil {
			return err
		}
		for _, m := range img.Mounts {
			fmt.Printf("mount %s\n", m.Prefix)
			printTree(m.Root, 1)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func loadImage(path string) (*pack.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return pack.Decode(data)
}

func printTree(n pack.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, e := range n.Entries {
		switch e.Kind {
		case pack.KindDir:
			fmt.Printf("%s%s/\n", indent, e.Name)
			printTree(e, depth+1)
		case pack.KindSymlink:
			fmt.Printf("%s%s -> %s\n", indent, e.Name, string(e.Bytes))
		default:
			fmt.Printf("%s%s (%d bytes)\n", indent, e.Name, len(e.Bytes))
		}
	}
}
