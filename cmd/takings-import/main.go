// Command takings-import loads daily-takings spreadsheets into the database
// without going through the HTTP API.
//
//	takings-import file march.xlsx april.xlsx
//	takings-import sheet 1AbC... --range 'Shop A!A1:C60' -o yaml
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"takings/internal/amqp"
	"takings/internal/backend"
	"takings/internal/cli"
	"takings/internal/config"
	"takings/internal/log"
	"takings/internal/services"
)

var (
	outputFormat string
	timeout      time.Duration
	publish      bool
	readRange    string
)

var rootCmd = &cobra.Command{
	Use:           "takings-import",
	Short:         "Import daily takings spreadsheets",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch outputFormat {
		case formatText, formatJSON, formatYAML:
			return nil
		}
		return fmt.Errorf("unknown output format %q", outputFormat)
	},
}

var fileCmd = &cobra.Command{
	Use:   "file PATH...",
	Short: "Import .xlsx, .xls or .csv files",
	Long: `Import one or more spreadsheet files. Each file is its own import: a file
that cannot be parsed is reported and the remaining files still run.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withImporter(cmd.Context(), "", func(ctx context.Context, svc *services.ImportService) error {
			var failed int
			for _, path := range args {
				rep, err := importFile(ctx, svc, path)
				if err != nil {
					failed++
					fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
					continue
				}
				if err := writeReport(cmd.OutOrStdout(), outputFormat, rep); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(args))
			}
			return nil
		})
	},
}

var sheetCmd = &cobra.Command{
	Use:   "sheet SPREADSHEET_ID",
	Short: "Import a Google Sheet laid out like the upload template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withImporter(cmd.Context(), args[0], func(ctx context.Context, svc *services.ImportService) error {
			res, err := svc.ImportSheet(ctx, args[0], readRange)
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), outputFormat, newReport("sheets://"+args[0]+"/"+readRange, res))
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", formatText, "report format: text, json or yaml")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall import deadline")
	rootCmd.PersistentFlags().BoolVar(&publish, "publish", true, "announce imports over AMQP when AMQP_URL is set")

	sheetCmd.Flags().StringVar(&readRange, "range", "Sheet1", "A1 range to read")

	rootCmd.AddCommand(fileCmd, sheetCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func importFile(ctx context.Context, svc *services.ImportService, path string) (report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return report{}, err
	}
	res, err := svc.ImportFile(ctx, filepath.Base(path), data)
	if err != nil {
		return report{}, err
	}
	return newReport(path, res), nil
}

// withImporter assembles the import service from the environment, runs fn
// and releases everything it opened. A non-empty sheetID enables sheet
// reads even when GOOGLE_SPREADSHEET_ID is unset.
func withImporter(parent context.Context, sheetID string, fn func(context.Context, *services.ImportService) error) error {
	cli.LoadEnvFile()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := cli.SetupLogger(cfg, log.ComponentImport)

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	factory := backend.NewFactory(logger.Logger)

	blobs, err := factory.CreateBlobStore(ctx, backendCfg)
	if err != nil {
		return err
	}
	if blobs.Cleanup != nil {
		defer blobs.Cleanup()
	}

	opts := []services.Option{services.WithLogger(logger.Logger)}
	if sheetID != "" {
		if backendCfg.GoogleSpreadsheetID == "" {
			backendCfg.GoogleSpreadsheetID = sheetID
		}
		sheetsBackend, err := factory.CreateSheets(ctx, backendCfg)
		if err != nil {
			return err
		}
		if sheetsBackend.Reader != nil {
			opts = append(opts, services.WithSheetReader(sheetsBackend.Reader))
		}
	}
	if publish && cfg.AMQPEnabled() {
		publisher, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return fmt.Errorf("connect to AMQP: %w", err)
		}
		defer publisher.Close()
		opts = append(opts, services.WithPublisher(publisher))
	}

	return fn(ctx, services.NewImportService(repo, blobs.Store, opts...))
}
