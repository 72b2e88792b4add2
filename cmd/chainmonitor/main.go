// Command chainmonitor is the executable entrypoint: it loads the JSON
// configuration directories, wires the Client Pool, Block Watcher,
// Filter Engine, Trigger Condition Runner, and Notification Dispatcher
// per network, and runs until signalled.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "v0.1.0"

var rootCmd = &cobra.Command{
	Use:   "chainmonitor",
	Short: "chainmonitor - blockchain monitoring engine",
	Args:  cobra.MinimumNArgs(1),
}

func init() {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("chainmonitor", version)
		},
	}
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newRunCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
