package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewCmdMigrate(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "schema is up to date (%s)\n", cfg.Database.Type)
			return nil
		},
		SilenceUsage: true,
	}
}
