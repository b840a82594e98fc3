package main

import (
	"fmt"
	"strings"

	"github.com/nmbli/concierge/internal/briefs"
	"github.com/nmbli/concierge/internal/compose"
	"github.com/nmbli/concierge/internal/config"
	"github.com/nmbli/concierge/internal/models"
	"github.com/nmbli/concierge/internal/timeline"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newBriefCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "brief",
		Short: "Brief management commands",
	}

	cmd.AddCommand(newBriefCreateCmd())
	cmd.AddCommand(newBriefAutomateCmd())
	cmd.AddCommand(newBriefShowCmd())
	return cmd
}

func newBriefCreateCmd() *cobra.Command {
	var (
		configPath string
		in         briefs.CreateInput
		makes      string
		vehModels  string
		trims      string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new purchase brief",
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Makes = splitList(makes)
			in.Models = splitList(vehModels)
			in.Trims = splitList(trims)
			return withDB(configPath, func(cfg *config.Config, gdb *gorm.DB) error {
				brief, err := briefs.Create(gdb, in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created brief %s for %s near %s (max %s)\n",
					brief.ID, brief.Vehicle(), brief.Zipcode, compose.Dollars(brief.MaxOTD))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "nmbli.yaml", "path to config file")
	cmd.Flags().StringVar(&makes, "makes", "", "comma-separated vehicle makes")
	cmd.Flags().StringVar(&vehModels, "models", "", "comma-separated vehicle models")
	cmd.Flags().StringVar(&trims, "trims", "", "comma-separated trims")
	cmd.Flags().StringVar(&in.Zipcode, "zip", "", "buyer ZIP code")
	cmd.Flags().Int64Var(&in.MaxOTD, "max-otd", 0, "maximum out-the-door price in dollars")
	cmd.Flags().StringVar(&in.PaymentType, "payment", "cash", "payment type: cash, finance, or lease")
	cmd.Flags().Int64Var(&in.DownPayment, "down", 0, "down payment in dollars")
	cmd.Flags().Int64Var(&in.MonthlyBudget, "monthly", 0, "monthly budget in dollars")
	cmd.Flags().StringVar(&in.Timeline, "timeline", "2 weeks", "purchase timeline")
	cmd.Flags().StringVar(&in.BuyerEmail, "email", "", "buyer email")
	return cmd
}

func newBriefAutomateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "automate <brief-id>",
		Short: "Discover dealerships and send quote requests for a brief",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(configPath, func(cfg *config.Config, gdb *gorm.DB) error {
				orch, _, _, _ := buildStack(cfg, gdb)
				result, err := orch.ProcessBrief(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, r := range result.Sent {
					fmt.Fprintf(out, "sent    %-30s via %s\n", r.DealerName, r.Channel)
				}
				for _, r := range result.Failed {
					fmt.Fprintf(out, "failed  %-30s %s\n", r.DealerName, r.Error)
				}
				fmt.Fprintf(out, "%d sent, %d failed\n", len(result.Sent), len(result.Failed))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "nmbli.yaml", "path to config file")
	return cmd
}

func newBriefShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <brief-id>",
		Short: "Show a brief, its quotes, and its timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(configPath, func(cfg *config.Config, gdb *gorm.DB) error {
				return runBriefShow(cmd, gdb, args[0])
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "nmbli.yaml", "path to config file")
	return cmd
}

func runBriefShow(cmd *cobra.Command, gdb *gorm.DB, id string) error {
	out := cmd.OutOrStdout()

	brief, err := briefs.Get(gdb, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Brief %s  [%s]\n", brief.ID, brief.Status)
	fmt.Fprintf(out, "  %s near %s, max %s (%s)\n",
		brief.Vehicle(), brief.Zipcode, compose.Dollars(brief.MaxOTD), brief.PaymentType)

	var quoteRows []models.Quote
	if err := gdb.Where("brief_id = ?", id).Order("otd_total ASC").Find(&quoteRows).Error; err != nil {
		return err
	}
	if len(quoteRows) > 0 {
		fmt.Fprintln(out, "Quotes:")
		for _, q := range quoteRows {
			fmt.Fprintf(out, "  %s  %-10s OTD %-12s shadiness %d\n",
				q.ID, q.Status, compose.Dollars(q.OTDTotal), q.ShadinessScore)
		}
	}

	events, err := timeline.ForBrief(gdb, id)
	if err != nil {
		return err
	}
	if len(events) > 0 {
		fmt.Fprintln(out, "Timeline:")
		for _, e := range events {
			fmt.Fprintf(out, "  %s  %-24s %s\n",
				e.CreatedAt.Format("2006-01-02 15:04:05"), e.Type, e.Actor)
		}
	}
	return nil
}

func withDB(configPath string, fn func(*config.Config, *gorm.DB) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	gdb, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	return fn(cfg, gdb)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
