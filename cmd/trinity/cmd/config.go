package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/psantana5/trinity/internal/targets"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Target table helpers",
}

var configExampleCmd = &cobra.Command{
	Use:   "example",
	Short: "Print an annotated target table",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprint(cmd.OutOrStdout(), targets.ExampleConfig)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the target table in effect, with defaults filled in",
	RunE:  runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configExampleCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	table, err := loadTable()
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(table)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(out))
	return nil
}
