package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/kateinoigakukun/wasi-vfs-go/pack"
	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:   "ls <image-file> <path>",
	Short: "List a directory inside a packed image",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := findNode(args[0], args[1])
		if err != nil {
			return err
		}
		if n.Kind != pack.KindDir {
			return fmt.Errorf("%s: not a directory", args[1])
		}
		for _, e := range n.Entries {
			fmt.Println(e.Name)
		}
		return nil
	},
}

var catCmd = &cobra.Command{
	Use:   "cat <image-file> <path>",
	Short: "Print a file's contents from a packed image",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := findNode(args[0], args[1])
		if err != nil {
			return err
		}
		if n.Kind != pack.KindFile {
			return fmt.Errorf("%s: not a regular file", args[1])
		}
		_, err = os.Stdout.Write(n.Bytes)
		return err
	},
}

func init() {
	rootCmd.AddCommand(lsCmd, catCmd)
}

// findNode walks path's components from the longest-matching mount's root,
// mirroring the guest-visible namespace this image will be loaded into:
// the same longest-prefix rule, applied here against the decoded image
// rather than a live vfs.MountTable.
func findNode(imagePath, guestPath string) (pack.Node, error) {
	img, err := loadImage(imagePath)
	if err != nil {
		return pack.Node{}, err
	}
	var best *pack.MountImage
	for i := range img.Mounts {
		m := &img.Mounts[i]
		rest := strings.TrimPrefix(guestPath, m.Prefix)
		boundary := strings.HasSuffix(m.Prefix, "/") || rest == "" || rest[0] == '/'
		if strings.HasPrefix(guestPath, m.Prefix) && boundary && (best == nil || len(m.Prefix) > len(best.Prefix)) {
			best = m
		}
	}
	if best == nil {
		return pack.Node{}, fmt.Errorf("no mount covers %q", guestPath)
	}
	rel := strings.TrimPrefix(guestPath, best.Prefix)
	cur := best.Root
	for _, comp := range strings.Split(rel, "/") {
		if comp == "" || comp == "." {
			continue
		}
		found := false
		for _, e := range cur.Entries {
			if e.Name == comp {
				cur, found = e, true
				break
			}
		}
		if !found {
			return pack.Node{}, fmt.Errorf("%s: no such entry", guestPath)
		}
	}
	return cur, nil
}
