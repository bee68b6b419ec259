package main

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"genfix"
	"genfix/sheets"
)

// openValueStore connects to the sheet backend; tests replace it
var openValueStore = func(ctx context.Context, opts ...option.ClientOption) (sheets.ValueStore, error) {
	client, err := sheets.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func newExportCmd() *cobra.Command {
	var (
		limit  int
		status string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Append stored cycles to a Google Sheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			if settings.Sheets.SpreadsheetID == "" {
				return fmt.Errorf("%w: sheets.spreadsheet_id is not set", genfix.ErrConfiguration)
			}

			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			records, err := db.ListCycles(cmd.Context(), limit)
			if err != nil {
				return err
			}
			cycles := lo.FilterMap(records, func(r *genfix.CycleRecord, _ int) (*genfix.GenerationCycle, bool) {
				return r.GenerationCycle, status == "" || string(r.Status) == status
			})
			if len(cycles) == 0 {
				logger.Info("Nothing to export")
				return nil
			}

			var clientOpts []option.ClientOption
			if settings.Sheets.CredentialsFile != "" {
				clientOpts = append(clientOpts, option.WithCredentialsFile(settings.Sheets.CredentialsFile))
			}
			store, err := openValueStore(cmd.Context(), clientOpts...)
			if err != nil {
				return err
			}

			exporter := sheets.NewExporter(store, settings.Sheets.SpreadsheetID, settings.Sheets.SheetName, logger)
			resp, err := exporter.Append(cmd.Context(), cycles)
			if err != nil {
				return err
			}
			logger.Info("Export finished", zap.String("range", resp.UpdatedRange), zap.Int64("rows", resp.UpdatedRows))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&limit, "limit", 0, "only the newest N cycles (0 for all)")
	flags.StringVar(&status, "status", string(genfix.StatusComplete), "only cycles with this status (empty for all)")
	flags.String("spreadsheet", "", "spreadsheet id")
	flags.String("sheet", "", "sheet name")
	flags.String("credentials", "", "service account credentials file")
	for name, key := range map[string]string{
		"spreadsheet": "sheets.spreadsheet_id",
		"sheet":       "sheets.sheet_name",
		"credentials": "sheets.credentials_file",
	} {
		mustBind(key, flags.Lookup(name))
	}
	return cmd
}
