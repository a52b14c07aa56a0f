// Command wasivfsctl builds and inspects the packed images wasi-vfs-go
// loads at guest startup.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	log     = logrus.StandardLogger()
)

var rootCmd = &cobra.Command{
	Use:   "wasivfsctl",
	Short: "Build and inspect wasi-vfs packed images",
	Long: `wasivfsctl packs a host directory tree into the octet image format
wasi-vfs-go's guest runtime loads at startup, and inspects already-packed
images without needing a running guest.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetLevel(logrus.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
