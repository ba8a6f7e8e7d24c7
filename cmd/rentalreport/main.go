// Command rentalreport writes the daily rental aggregate of a date range to
// CSV and, optionally, an XLSX workbook with the raw rows and summary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"bikepulse/internal/dataset"
	"bikepulse/internal/exporter"
	"bikepulse/internal/infrastructure"
	bikemw "bikepulse/internal/middleware"
	"bikepulse/internal/services"
	api "bikepulse/pkg/contracts/api/v1"
	"bikepulse/pkg/contracts/domain"
)

// report lists the files written by one run.
type report struct {
	CSV  string
	XLSX string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if _, err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "rentalreport:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, logOut io.Writer) (report, error) {
	fs := flag.NewFlagSet("rentalreport", flag.ContinueOnError)
	fs.SetOutput(logOut)
	dataPath := fs.String("data", "data/all_data.csv", "rental dataset CSV")
	start := fs.String("start", "", "first day, YYYY-MM-DD (defaults to the first day in the data)")
	end := fs.String("end", "", "last day, YYYY-MM-DD (defaults to the last day in the data)")
	outDir := fs.String("out", "reports", "output directory")
	xlsx := fs.Bool("xlsx", true, "also write an XLSX workbook")
	fillGaps := fs.Bool("fill-gaps", false, "add zero rows for days without data")
	strict := fs.Bool("strict", false, "fail on the first malformed row")
	verbose := fs.Bool("v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return report{}, err
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := infrastructure.NewLoggerWithWriter(logOut, &slog.HandlerOptions{Level: level})

	req := api.ExportRequest{
		Start:     *start,
		End:       *end,
		OutputDir: *outDir,
		XLSX:      *xlsx,
		FillGaps:  *fillGaps,
	}
	if err := bikemw.NewValidator().ValidateStruct(req); err != nil {
		return report{}, fmt.Errorf("invalid arguments: %w", err)
	}

	ds, err := dataset.LoadFile(ctx, *dataPath, dataset.Options{Strict: *strict}, logger)
	if err != nil {
		return report{}, fmt.Errorf("load dataset: %w", err)
	}

	svc, err := services.NewDashboardService(ds, nil, logger)
	if err != nil {
		return report{}, err
	}

	snap, err := svc.Snapshot(ctx, services.SnapshotOptions{
		Start:       req.Start,
		End:         req.End,
		FillGaps:    req.FillGaps,
		ShowSummary: req.XLSX,
		ShowRaw:     req.XLSX,
		Source:      services.SourceCLI,
	})
	if err != nil {
		return report{}, err
	}

	out := report{CSV: filepath.Join(req.OutputDir, fileName(snap, "csv"))}
	if req.XLSX {
		out.XLSX = filepath.Join(req.OutputDir, fileName(snap, "xlsx"))
	}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		return exporter.NewDailyExporter(logger).ExportDailyCSV(out.CSV, snap.Daily)
	})
	if out.XLSX != "" {
		g.Go(func() error {
			return exporter.NewWorkbookExporter(logger).Save(out.XLSX, snap)
		})
	}
	if err := g.Wait(); err != nil {
		return report{}, fmt.Errorf("export: %w", err)
	}

	m := snap.Metrics
	logger.InfoContext(ctx, "report written",
		slog.String("range", snap.Effective.String()),
		slog.Int64("total_rentals", m.TotalRentals),
		slog.Int64("total_casual", m.TotalCasual),
		slog.Int64("total_registered", m.TotalRegistered),
		slog.String("best_day", m.BestDay.DateLabel()),
		slog.Int64("best_day_count", m.BestDay.Count),
		slog.String("worst_day", m.WorstDay.DateLabel()),
		slog.Int64("worst_day_count", m.WorstDay.Count),
		slog.String("csv", out.CSV),
		slog.String("xlsx", out.XLSX))

	return out, nil
}

func fileName(snap *domain.Snapshot, ext string) string {
	if snap.Bounds == nil {
		return "daily_rentals." + ext
	}
	return exporter.ReportFileName(snap.Effective, ext)
}
