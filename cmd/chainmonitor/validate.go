package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sequenceos/chainmonitor/config"
)

const (
	flagConfigDir = "config"
	envConfigDir  = "CHAINMONITOR_CONFIG"
)

func newValidateCmd() *cobra.Command {
	var configDir string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "load and cross-reference networks/monitors/triggers without polling any chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			root := resolveConfigDir(configDir)
			cfg, err := config.Load(root)
			if err != nil {
				return fmt.Errorf("config invalid: %w", err)
			}
			fmt.Printf("config OK: %d network(s), %d monitor(s), %d trigger(s)\n",
				len(cfg.Networks), len(cfg.Monitors), len(cfg.Triggers))
			return nil
		},
	}
	cmd.Flags().StringVar(&configDir, flagConfigDir, "", "path to the config directory (networks/, monitors/, triggers/); falls back to $"+envConfigDir)
	return cmd
}

// resolveConfigDir picks the config path: an explicit --config flag
// wins, otherwise the environment variable, otherwise the current
// directory.
func resolveConfigDir(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := envOrDefault(envConfigDir, ""); v != "" {
		return v
	}
	return "."
}
