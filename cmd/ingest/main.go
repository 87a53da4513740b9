package main

// Load evidence documents into the SQLite evidence store:
//   go run ./cmd/ingest --root data/raw --db data/evidence.db

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"fundingsense-backend/internal/bootstrap"
	"fundingsense-backend/internal/ingest"
	"fundingsense-backend/internal/shared/config"
	"fundingsense-backend/internal/shared/telemetry"
)

type options struct {
	root    string
	dbPath  string
	workers int
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "ingest: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := options{}
	cmd := &cobra.Command{
		Use:           "ingest",
		Short:         "Index evidence documents into the evidence store",
		Long:          "Walks a directory of markdown (YAML front matter) and pdf (sibling .yaml) documents and saves each one as an evidence unit.",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.root, "root", "data/raw", "directory to scan for documents")
	cmd.Flags().StringVar(&opts.dbPath, "db", "", "evidence SQLite file (default EVIDENCE_DB_PATH)")
	cmd.Flags().IntVar(&opts.workers, "workers", ingest.DefaultWorkers, "files processed concurrently")
	return cmd
}

func run(ctx context.Context, opts options) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := telemetry.InitLogger(cfg.LogLevel, "console"); err != nil {
		return err
	}
	defer telemetry.Sync()
	if opts.dbPath != "" {
		cfg.Retrieval.EvidenceDBPath = opts.dbPath
	}

	index, backing, err := bootstrap.OpenEvidence(ctx, cfg)
	if err != nil {
		return err
	}
	defer backing.Close()

	bold := color.New(color.Bold)
	bold.Printf("Ingesting %s into %s\n", opts.root, cfg.Retrieval.EvidenceDBPath)

	summary, err := ingest.New(index, opts.workers).Run(ctx, opts.root)
	if err != nil {
		return err
	}

	fmt.Println()
	color.New(color.FgGreen, color.Bold).Printf("  indexed  %d\n", summary.Indexed)
	color.New(color.FgYellow).Printf("  skipped  %d\n", summary.Skipped)
	failed := color.New(color.FgRed)
	failed.Printf("  failed   %d\n", len(summary.Failures))
	for _, f := range summary.Failures {
		failed.Printf("    %s: %v\n", f.Path, f.Err)
	}
	bold.Printf("Evidence units in store: %d\n", index.Count())
	return nil
}
