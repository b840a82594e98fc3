package main

import (
	"fmt"

	"github.com/nmbli/concierge/internal/config"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newTickCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Run one negotiation scheduler pass",
		Long:  "Checks every active brief and sends any due counter or final round, then exits.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(configPath, func(cfg *config.Config, gdb *gorm.DB) error {
				_, engine, _, _ := buildStack(cfg, gdb)
				if err := engine.Tick(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Tick complete")
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "nmbli.yaml", "path to config file")
	return cmd
}
