package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/riaintel/advflow/internal/cli/runner"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long:  `Commands for validating and inspecting pipeline configurations.`,
}

var validateCmd = &cobra.Command{
	Use:   "validate [config file]",
	Short: "Validate a configuration file",
	Long:  `Validate a pipeline configuration file and report any errors.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configFile := args[0]

		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return fmt.Errorf("config file does not exist: %s", configFile)
		}

		r := runner.New(runner.Options{ConfigFile: configFile}, factories)
		if err := r.Validate(); err != nil {
			color.Red("❌ Configuration has errors:\n")
			fmt.Printf("  • %v\n", err)
			return fmt.Errorf("configuration validation failed")
		}

		color.Green("✅ Configuration is valid!")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(validateCmd)
}
