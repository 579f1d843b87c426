package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sarchlab/rv32tb/config"
	"github.com/sarchlab/rv32tb/cosim"
)

func newConfigCmd() *cobra.Command {
	var outPath string

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Print or write the default configuration",
		Long: "Print or write the default configuration.\n\n" +
			"Models available for \"simulate\": " +
			strings.Join(cosim.ModelNames(), ", ") + ".",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultConfig()

			if outPath != "" {
				return cfg.SaveConfig(outPath)
			}

			data, err := cfg.Marshal()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	configCmd.Flags().StringVar(&outPath, "out", "", "Write the configuration to this file")

	return configCmd
}
