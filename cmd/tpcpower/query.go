package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"tpcpower/internal/config"
	"tpcpower/internal/dataprocessing"
	"tpcpower/internal/dataset"
	"tpcpower/internal/exporter"
	"tpcpower/internal/infrastructure"
	mw "tpcpower/internal/middleware"
	"tpcpower/internal/services"
	api "tpcpower/pkg/contracts/api/v1"
	"tpcpower/pkg/contracts/domain"
)

// previewPoints caps the series rows printed after an export
const previewPoints = 20

func newQueryCmd(flags *globalFlags) *cobra.Command {
	var (
		req    api.QueryRequest
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run one filter and export cycle without the server",
		Long: `Filters the dataset, sums capacity and used per timestamp and writes
filtered_raw.<ext> and aggregated_by_time.<ext> to the output directory.
Omitted flags fall back to the dataset's full date range, the whole day and
every type.`,
		Example: `  tpcpower query --from 2023-05-01 --to 2023-05-07 --type Coal --format xlsx
  tpcpower query --type Wind --name "Changbin#1" --name "Changbin#2" --out-dir exports`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.setup()
			if err != nil {
				return err
			}
			if err := cfg.CheckDataset(); err != nil {
				return err
			}
			if err := mw.NewRequestValidator().Struct(req); err != nil {
				return err
			}

			svc := newDashboardService(cfg, logger)
			bundle, res, err := svc.ExportBundle(cmd.Context(), req)
			if err != nil {
				return err
			}

			if err := config.EnsureDir(outDir); err != nil {
				return err
			}
			for _, artifact := range []*exporter.Artifact{bundle.Filtered, bundle.Aggregated} {
				path := filepath.Join(outDir, artifact.FileName)
				if err := os.WriteFile(path, artifact.Data, 0o644); err != nil {
					return fmt.Errorf("writing %s: %w", path, err)
				}
				pterm.Success.Printfln("Wrote %s (%s)", path, humanize.Bytes(uint64(len(artifact.Data))))
			}

			pterm.Info.Printfln("%s to %s, %s to %s, types %s: %s rows, %d timestamps",
				res.Criteria.DateFrom, res.Criteria.DateTo,
				res.Criteria.TimeFrom, res.Criteria.TimeTo,
				strings.Join(res.Criteria.Types, ", "),
				humanize.Comma(int64(res.Filtered.Len())), len(res.Series))
			if len(res.Series) > 0 {
				pterm.Println(renderSeries(res.Series))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&req.DateFrom, "from", "", "first date, YYYY-MM-DD")
	cmd.Flags().StringVar(&req.DateTo, "to", "", "last date, YYYY-MM-DD")
	cmd.Flags().StringVar(&req.TimeFrom, "time-from", "", "earliest time of day, HH:MM")
	cmd.Flags().StringVar(&req.TimeTo, "time-to", "", "latest time of day, HH:MM")
	cmd.Flags().StringArrayVar(&req.Types, "type", nil, "plant type, repeatable")
	cmd.Flags().StringArrayVar(&req.Names, "name", nil, "site name, repeatable; applies with exactly one type")
	cmd.Flags().StringVar(&req.Format, "format", string(exporter.FormatCSV), "export format: csv, parquet or xlsx")
	cmd.Flags().StringVar(&outDir, "out-dir", ".", "output directory")
	return cmd
}

// newDashboardService wires the query path without the HTTP server
func newDashboardService(cfg *config.Config, logger *slog.Logger) *services.DashboardService {
	metrics := infrastructure.NewNoopMetrics()
	loader := dataset.NewLoader(logger,
		dataset.WithTimeLayouts(cfg.Dataset.TimeLayouts),
		dataset.WithMetrics(metrics))
	cache := dataset.NewCache(loader, cfg.Dataset.Path, logger)

	return services.NewDashboardService(cache,
		dataprocessing.NewPipeline(logger, metrics),
		exporter.New(logger, metrics),
		services.DashboardOptions{MaxRows: cfg.Display.MaxRows},
		logger)
}

// renderSeries prints the first aggregated points
func renderSeries(series domain.AggregatedSeries) string {
	data := pterm.TableData{{"Time", "Capacity", "Used"}}
	for i, p := range series {
		if i == previewPoints {
			data = append(data, []string{fmt.Sprintf("... %d more", len(series)-previewPoints), "", ""})
			break
		}
		data = append(data, []string{p.Time.Format(domain.TimestampLayout), p.CapacitySum.String(), p.UsedSum.String()})
	}
	out, _ := pterm.DefaultTable.
		WithHasHeader().
		WithBoxed().
		WithHeaderStyle(pterm.NewStyle(pterm.FgLightCyan)).
		WithRightAlignment().
		WithData(data).
		Srender()
	return out
}
