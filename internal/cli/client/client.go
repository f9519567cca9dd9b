// Package client implements the search and batch commands, which run the
// workflows directly against the search API without a server.
package client

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cloo-solutions/buscador/internal/batch"
	"github.com/cloo-solutions/buscador/internal/cli"
	"github.com/cloo-solutions/buscador/internal/config"
	"github.com/cloo-solutions/buscador/internal/domain"
	"github.com/cloo-solutions/buscador/internal/service"
	"github.com/spf13/cobra"
)

// ManualSearcher runs a single search.
type ManualSearcher interface {
	ManualSearch(ctx context.Context, query string, scope domain.Scope) (*service.ManualResult, error)
}

// BatchFileRunner runs a whole uploaded file.
type BatchFileRunner interface {
	RunBatchFile(ctx context.Context, kind domain.BatchKind, r io.Reader, onProgress func(batch.Progress)) (*service.BatchReport, error)
}

// openApp loads the configuration and builds the session. Logs go to stderr
// so stdout stays clean for results.
func openApp(ctx context.Context) (*cli.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := cli.NewLogger(os.Stderr, cfg.Debug)
	return cli.Bootstrap(ctx, cfg, cli.BootstrapOptions{
		Logger:      logger,
		Migrate:     false,
		SkipStorage: true,
	})
}

func jsonFlag(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}
