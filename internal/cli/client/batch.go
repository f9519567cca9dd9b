package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cloo-solutions/buscador/internal/batch"
	"github.com/cloo-solutions/buscador/internal/domain"
	"github.com/cloo-solutions/buscador/internal/service"
	"github.com/cloo-solutions/buscador/internal/web"
	"github.com/spf13/cobra"
)

// BatchCmd creates the batch command.
func BatchCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "batch <companies|people|jobs> <file.csv>",
		Short: "Search LinkedIn for every row of a CSV file",
		Long: `Reads a CSV file and searches LinkedIn for every row.

  companies  one company name per line
  people     columns Nome, Cargo and optionally Empresa
  jobs       column Cargo and optionally Empresa

The report is written as CSV to --out, or to the default report name in the
current directory.`,
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{string(domain.BatchCompanies), string(domain.BatchPeople), string(domain.BatchJobTitles)},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseBatchKind(args[0])
			if err != nil {
				return err
			}

			f, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("failed to open input: %w", err)
			}
			defer f.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			app, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			return runBatch(ctx, batchOptions{
				Kind:       kind,
				Input:      f,
				OutPath:    outPath,
				Stdout:     os.Stdout,
				Stderr:     os.Stderr,
				OutputJSON: jsonFlag(cmd),
			}, app.Session)
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Report path (default: the report name for the workflow)")

	return cmd
}

type batchOptions struct {
	Kind       domain.BatchKind
	Input      io.Reader
	OutPath    string
	Stdout     io.Writer
	Stderr     io.Writer
	OutputJSON bool
}

type batchSummaryOutput struct {
	Kind    domain.BatchKind     `json:"kind"`
	Report  string               `json:"report"`
	Summary service.BatchSummary `json:"summary"`
}

func runBatch(ctx context.Context, opts batchOptions, svc BatchFileRunner) error {
	report, err := svc.RunBatchFile(ctx, opts.Kind, opts.Input, func(p batch.Progress) {
		fmt.Fprintf(opts.Stderr, "\rProcessando... %d/%d (%.0f%%)", p.Processed, p.Total, p.Fraction()*100)
		if p.Done() {
			fmt.Fprintln(opts.Stderr)
		}
	})
	if err != nil {
		return fmt.Errorf("%s", web.ErrorMessage(err))
	}

	outPath := opts.OutPath
	if outPath == "" {
		outPath = report.Table.Layout.Filename
	}
	if err := writeReport(outPath, report.Table); err != nil {
		return err
	}

	if opts.OutputJSON {
		output, _ := json.MarshalIndent(batchSummaryOutput{
			Kind:    report.Kind,
			Report:  outPath,
			Summary: report.Summary,
		}, "", "  ")
		fmt.Fprintln(opts.Stdout, string(output))
		return nil
	}

	fmt.Fprintf(opts.Stdout, "Processamento concluído: %d linhas.\n", len(report.Rows))
	fmt.Fprintf(opts.Stdout, "  Encontrados: %d\n", report.Summary.Found)
	fmt.Fprintf(opts.Stdout, "  Sem resultado: %d\n", report.Summary.NotFound)
	fmt.Fprintf(opts.Stdout, "  Falhas: %d\n", report.Summary.Failed)
	fmt.Fprintf(opts.Stdout, "Relatório salvo em %s\n", outPath)
	return nil
}

func writeReport(path string, table batch.Table) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := table.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
