// Command queued runs the waiting-room queue daemon: the scheduler and
// HTTP front door over a shared engine instance. Wiring style follows
// bd's cmd/bd/main.go: a cobra root command, a logger built once and
// threaded down, subcommands doing one job each.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:   "queued",
		Short: "Virtual waiting-room queue daemon",
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to a config file (optional; env vars override)")

	root.AddCommand(newServeCmd(&configFile))
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the daemon version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), "queued (dev)")
			return nil
		},
	}
}
