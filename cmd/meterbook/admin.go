package main

import (
	"fmt"
	"io"
	"os"

	"github.com/smallbiznis/meterbook/internal/clock"
	"github.com/smallbiznis/meterbook/internal/config"
	"github.com/smallbiznis/meterbook/internal/providers/pdf"
	"github.com/smallbiznis/meterbook/internal/providers/xlsx"
	"github.com/smallbiznis/meterbook/internal/reading/domain"
	"github.com/smallbiznis/meterbook/internal/reminder"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newMigrationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migration",
		Short: "Manage the one-time import of historical readings",
	}

	run := func(use, short string, fn func(cmd *cobra.Command, svc domain.Service) error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			RunE: func(cmd *cobra.Command, args []string) error {
				var svc domain.Service
				return runOnce(cmd.Context(), func() error { return fn(cmd, svc) }, fx.Populate(&svc))
			},
		}
	}
	printStatus := func(cmd *cobra.Command, svc domain.Service) error {
		status, err := svc.MigrationStatus(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "migration completed: %t\n", status.Completed)
		return nil
	}

	cmd.AddCommand(
		run("run", "Load historical readings unless already done", func(cmd *cobra.Command, svc domain.Service) error {
			status, err := svc.MigrateHistorical(cmd.Context())
			if err != nil {
				return err
			}
			if status.Imported == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "migration already completed")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %d readings\n", status.Imported)
			return nil
		}),
		run("skip", "Mark the migration done without importing", func(cmd *cobra.Command, svc domain.Service) error {
			if err := svc.SkipMigration(cmd.Context()); err != nil {
				return err
			}
			return printStatus(cmd, svc)
		}),
		run("reset", "Allow the migration to run again", func(cmd *cobra.Command, svc domain.Service) error {
			if err := svc.ResetMigration(cmd.Context()); err != nil {
				return err
			}
			return printStatus(cmd, svc)
		}),
		run("status", "Show whether the migration ran", printStatus),
	)
	return cmd
}

func newReportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:       "report <pdf|xlsx>",
		Short:     "Render a monthly PDF report or an XLSX workbook",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"pdf", "xlsx"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				svc       domain.Service
				clk       clock.Clock
				pdfProv   pdf.Provider
				xlsxProv  xlsx.Provider
				kind      = args[0]
				extension string
			)
			switch kind {
			case "pdf":
				extension = ".pdf"
			case "xlsx":
				extension = ".xlsx"
			default:
				return fmt.Errorf("unknown report %q, want pdf or xlsx", kind)
			}
			if out == "" {
				out = "meterbook-report" + extension
			}

			return runOnce(cmd.Context(), func() error {
				ctx := cmd.Context()
				summaries, err := svc.Summaries(ctx)
				if err != nil {
					return err
				}

				var body []byte
				if kind == "pdf" {
					r, err := pdfProv.MonthlyReport(ctx, pdf.ReportData{GeneratedAt: clk.Now(), Summaries: summaries})
					if err != nil {
						return err
					}
					if body, err = io.ReadAll(r); err != nil {
						return err
					}
				} else {
					records, err := svc.List(ctx)
					if err != nil {
						return err
					}
					if body, err = xlsxProv.Workbook(ctx, records, summaries); err != nil {
						return err
					}
				}

				if err := os.WriteFile(out, body, 0o644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
				return nil
			},
				pdf.Module,
				xlsx.Module,
				fx.Populate(&svc, &clk, &pdfProv, &xlsxProv),
			)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file")
	return cmd
}

func newReminderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reminder",
		Short: "Show when the next reading reminder is due",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			next := reminder.NextReminderDate(clock.NewSystemClock().Now(), cfg.Reminder.Day, cfg.Reminder.Hour)
			fmt.Fprintf(cmd.OutOrStdout(), "next reminder: %s\n", next.Format("02.01.2006 15:04"))
			if !cfg.Reminder.Enabled {
				fmt.Fprintln(cmd.OutOrStdout(), "reminders are disabled")
			}
			return nil
		},
	}
}
