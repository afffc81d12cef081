package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/1broseidon/stickyfollow/internal/config"
)

var configPrintOpts struct {
	defaults bool
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that the config loads",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Loading already happened in PersistentPreRunE.
		for _, f := range loadResult.Files {
			fmt.Printf("loaded: %s\n", f)
		}
		fmt.Println("config: ok")
		return nil
	},
}

var configPrintCmd = &cobra.Command{
	Use:   "print",
	Short: "Print the effective config as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := cfg
		if configPrintOpts.defaults {
			c = config.DefaultConfig()
		}
		data, err := yaml.Marshal(c)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	},
}

var configExplainCmd = &cobra.Command{
	Use:   "explain [yaml.path]",
	Short: "Show a config value and where it came from",
	Long: `Show the effective value at a YAML path and the file, line and column
that set it. Without a path every known path is explained.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigExplain,
}

func init() {
	configPrintCmd.Flags().BoolVar(&configPrintOpts.defaults, "defaults", false, "Print built-in defaults (no files)")
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configPrintCmd)
	configCmd.AddCommand(configExplainCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigExplain(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		for _, p := range config.Paths(cfg) {
			value, src, err := config.Explain(loadResult, p)
			if err != nil {
				return err
			}
			fmt.Printf("%s = %v (%s)\n", p, value, formatSource(src))
		}
		return nil
	}

	value, src, err := config.Explain(loadResult, args[0])
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(value)
	if err != nil {
		return err
	}
	fmt.Printf("path: %s\n", args[0])
	fmt.Printf("source: %s\n", formatSource(src))
	fmt.Printf("value:\n%s", string(out))
	return nil
}
