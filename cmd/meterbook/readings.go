package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/smallbiznis/meterbook/internal/reading/domain"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

const defaultBackupFile = "electricity_backup.txt"

func newAddCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "add <reading>",
		Short: "Log a meter reading",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var svc domain.Service
			return runOnce(cmd.Context(), func() error {
				record, err := svc.Add(cmd.Context(), domain.AddRequest{CurrentReading: args[0], Date: date})
				if errors.Is(err, domain.ErrReadingNotGreater) {
					prev, _ := svc.PreviousReading(cmd.Context())
					return fmt.Errorf("reading must be greater than %.2f", prev)
				}
				if err != nil {
					return err
				}
				if record.IsInitial() {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  starting value %.2f\n", record.ID, record.CurrentReading)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %.2f -> %.2f  consumption %.2f  cost %.2f\n",
					record.ID, record.PreviousReading, record.CurrentReading, record.Consumption, record.Cost)
				return nil
			}, fx.Populate(&svc))
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "reading date (dd.mm.yyyy hh:mm), defaults to now")
	return cmd
}

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete a reading",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var svc domain.Service
			return runOnce(cmd.Context(), func() error {
				return svc.Remove(cmd.Context(), args[0])
			}, fx.Populate(&svc))
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show every reading",
		RunE: func(cmd *cobra.Command, args []string) error {
			var svc domain.Service
			return runOnce(cmd.Context(), func() error {
				records, err := svc.List(cmd.Context())
				if err != nil {
					return err
				}
				return printRecords(cmd.OutOrStdout(), records)
			}, fx.Populate(&svc))
		},
	}
}

func newSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show consumption and cost per month",
		RunE: func(cmd *cobra.Command, args []string) error {
			var svc domain.Service
			return runOnce(cmd.Context(), func() error {
				summaries, err := svc.Summaries(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "MONTH\tYEAR\tCONSUMPTION\tCOST")
				for _, s := range summaries {
					fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\n", s.MonthName, s.Year, s.TotalConsumption, s.TotalCost)
				}
				return tw.Flush()
			}, fx.Populate(&svc))
		},
	}
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Replace all readings with a text backup",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultBackupFile
			if len(args) == 1 {
				path = args[0]
			}
			var svc domain.Service
			return runOnce(cmd.Context(), func() error {
				result, err := svc.ImportFile(cmd.Context(), path)
				if errors.Is(err, domain.ErrBackupNotFound) {
					return fmt.Errorf("backup file %s not found", path)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d readings\n", result.Imported)
				for _, line := range result.Skipped {
					fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s\n", line)
				}
				return nil
			}, fx.Populate(&svc))
		},
	}
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write readings as a text backup (stdout when file is -)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultBackupFile
			if len(args) == 1 {
				path = args[0]
			}
			var svc domain.Service
			return runOnce(cmd.Context(), func() error {
				if path == "-" {
					return svc.Export(cmd.Context(), cmd.OutOrStdout())
				}
				f, err := os.Create(path)
				if err != nil {
					return err
				}
				if err := svc.Export(cmd.Context(), f); err != nil {
					_ = f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", path)
				return nil
			}, fx.Populate(&svc))
		},
	}
}

func printRecords(w io.Writer, records []domain.MeterRecord) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tPREVIOUS\tCURRENT\tCONSUMPTION\tCOST")
	for _, r := range records {
		if r.IsInitial() {
			fmt.Fprintf(tw, "%s\t%s\t-\t%.1f\tstarting value\t-\n", r.ID, r.Date, r.CurrentReading)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%.1f\t%.1f\t%.2f\t%.2f\n",
			r.ID, r.Date, r.PreviousReading, r.CurrentReading, r.Consumption, r.Cost)
	}
	return tw.Flush()
}
