package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tilefeed/internal/config"
)

var initForce bool

// initCmd scaffolds a configuration file with the defaults written out.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Writes the built-in defaults to the config path (see --config) so they
can be edited. Refuses to overwrite an existing file unless --force is
given.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(cfgPath); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", cfgPath)
	}

	if err := config.DefaultConfig().Save(cfgPath); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", cfgPath)
	return nil
}
