package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/cloo-solutions/buscador/internal/config"
	"github.com/cloo-solutions/buscador/internal/database"
	"github.com/cloo-solutions/buscador/internal/repository"
	"github.com/cloo-solutions/buscador/internal/service"
	"github.com/spf13/cobra"
)

// LogsCmd lists the most recent entries of the search log.
func LogsCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent searches",
		Long:  "Lists the most recent calls to the search API recorded in the search log.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			cfg, err := config.LoadService()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if !cfg.HasDatabase() {
				return fmt.Errorf("BUSCADOR_DATABASE_URL is not set")
			}

			pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
			if err != nil {
				return err
			}
			defer pool.Close()

			page, err := repository.NewSearchLogRepository(pool).List(ctx, cursor, limit)
			if err != nil {
				return err
			}

			if outputJSON, _ := cmd.Flags().GetBool("json"); outputJSON {
				output, _ := json.MarshalIndent(page, "", "  ")
				fmt.Println(string(output))
				return nil
			}
			if err := printSearchLog(os.Stdout, page.Items); err != nil {
				return err
			}
			if page.HasMore {
				fmt.Printf("\nMore entries: --cursor %s\n", page.Cursor)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous output")

	return cmd
}

func printSearchLog(w io.Writer, entries []service.SearchLogEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No searches recorded.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSCOPE\tOUTCOME\tRESULTS\tDURATION\tQUERY")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%dms\t%s\n",
			e.CreatedAt.Format(time.DateTime),
			e.Scope,
			e.Outcome,
			e.ResultCount,
			e.DurationMs,
			e.Query,
		)
	}
	return tw.Flush()
}
