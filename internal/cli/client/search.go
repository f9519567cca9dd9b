package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cloo-solutions/buscador/internal/domain"
	"github.com/cloo-solutions/buscador/internal/web"
	"github.com/spf13/cobra"
)

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the web or LinkedIn",
		Long:  "Runs a single query against the web or LinkedIn search engine and prints the results.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := domain.ParseScope(scope)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			app, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			return runSearch(ctx, os.Stdout, app.Session, strings.Join(args, " "), parsed, jsonFlag(cmd))
		},
	}

	cmd.Flags().StringVarP(&scope, "scope", "s", string(domain.ScopeWeb), "Where to search: web or linkedin")

	return cmd
}

func runSearch(ctx context.Context, w io.Writer, svc ManualSearcher, query string, scope domain.Scope, outputJSON bool) error {
	result, err := svc.ManualSearch(ctx, query, scope)
	if result == nil {
		if err != nil {
			return fmt.Errorf("%s", web.ErrorMessage(err))
		}
		return nil
	}

	if outputJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Fprintln(w, string(output))
		return err
	}

	fmt.Fprintln(w, result.Notice)
	switch result.Outcome.Status {
	case domain.OutcomeFailed:
		return fmt.Errorf("%s", web.ErrorMessage(err))
	case domain.OutcomeNotFound:
		fmt.Fprintln(w, "Nenhum resultado foi encontrado para a sua busca.")
		return nil
	}

	fmt.Fprintf(w, "\nResultados da Busca:\n\n")
	for i, card := range web.CardsFrom(result.Outcome.Results) {
		fmt.Fprintf(w, "%d. %s\n", i+1, card.Title)
		if card.Snippet != "" {
			fmt.Fprintf(w, "   %s\n", card.Snippet)
		}
		if card.Link != "" {
			fmt.Fprintf(w, "   Link: %s\n", card.Link)
		}
		if i < len(result.Outcome.Results)-1 {
			fmt.Fprintln(w)
		}
	}
	return nil
}
