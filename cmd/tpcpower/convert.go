package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"tpcpower/internal/dataset"
)

func newConvertCmd(flags *globalFlags) *cobra.Command {
	var src, dst string

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert the cleaned CSV export to Parquet",
		Long: `Reads a CSV file with a header row and writes the Parquet file the
dashboard loads. Measure columns become nullable numbers; values that do not
parse are stored as missing and counted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.setup()
			if err != nil {
				return err
			}
			if dst == "" {
				dst = cfg.Dataset.Path
			}

			result, err := dataset.NewConverter(logger).Convert(cmd.Context(), src, dst)
			if err != nil {
				return fmt.Errorf("converting %s: %w", src, err)
			}

			pterm.Success.Printfln("Wrote %s rows to %s (%s)",
				humanize.Comma(int64(result.Rows)), result.Destination, humanize.Bytes(uint64(result.Bytes)))
			pterm.Println(renderColumns(result))
			return nil
		},
	}

	cmd.Flags().StringVar(&src, "src", "", "cleaned CSV export")
	cmd.Flags().StringVar(&dst, "dst", "", "Parquet destination (default is dataset.path)")
	_ = cmd.MarkFlagRequired("src")
	return cmd
}

// renderColumns lists the written schema with the coerced value counts
func renderColumns(result *dataset.ConvertResult) string {
	data := pterm.TableData{{"Column", "Type", "Coerced to missing"}}
	for _, col := range result.Columns {
		data = append(data, []string{col.Name, col.Kind.String(), strconv.Itoa(result.Coerced[col.Name])})
	}
	out, _ := pterm.DefaultTable.
		WithHasHeader().
		WithBoxed().
		WithHeaderStyle(pterm.NewStyle(pterm.FgLightCyan)).
		WithData(data).
		Srender()
	return out
}
