package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/labs-tracker/constants"
	"github.com/joseph-ayodele/labs-tracker/internal/app"
	"github.com/joseph-ayodele/labs-tracker/internal/async"
	"github.com/joseph-ayodele/labs-tracker/internal/common"
	"github.com/joseph-ayodele/labs-tracker/internal/ingest"
	"github.com/joseph-ayodele/labs-tracker/internal/report"
	repo "github.com/joseph-ayodele/labs-tracker/internal/repository"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load(".env")

	var (
		dir       = flag.String("dir", "", "directory to scan for lab reports (required)")
		out       = flag.String("out", "", "directory for JSON drafts (defaults to <dir>/drafts)")
		xlsx      = flag.String("xlsx", "", "review workbook path (defaults to <dir>/labs-review.xlsx)")
		watch     = flag.Bool("watch", false, "keep running and extract new files as they appear")
		skipKnown = flag.Bool("skip-known", true, "skip files whose content already has an accepted run in the ledger")
		retries   = flag.Int("retries", 2, "retries per file after a remote rate limit")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		return 2
	}
	if *out == "" {
		*out = filepath.Join(*dir, "drafts")
	}
	if *xlsx == "" {
		*xlsx = filepath.Join(*dir, "labs-review.xlsx")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return 2
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		logger.Error("create output dir", "path", *out, "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		return 1
	}
	defer a.Close()

	col := &collector{root: *dir, outDir: *out, logger: logger}
	queue := async.NewProcessorQueue(a.Processor, logger,
		async.WithWorkers(cfg.Pipeline.BatchWorkers),
		async.WithQueueSize(cfg.Pipeline.BatchQueue),
		async.WithProcessTimeout(cfg.Pipeline.FileTimeout),
		async.WithRateLimitRetries(*retries, 2*time.Minute),
		async.WithResultHandler(col.handle),
	)

	b := &batch{
		scanner:   ingest.NewScanner(int64(cfg.Server.MaxUploadBytes), logger),
		queue:     queue,
		runs:      a.Runs,
		skipKnown: *skipKnown,
		col:       col,
		logger:    logger,
	}
	if *watch {
		err = b.watch(ctx, *dir)
	} else {
		err = b.scan(ctx, *dir)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("batch failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Pipeline.FileTimeout)
	defer cancel()
	queue.Shutdown(shutdownCtx)

	entries := col.sorted()
	data, werr := report.Workbook(entries, logger)
	if werr == nil {
		werr = os.WriteFile(*xlsx, data, 0o644)
	}
	if werr != nil {
		logger.Error("write workbook", "path", *xlsx, "error", werr)
		return 1
	}
	logger.Info("batch complete", "files", len(entries), "workbook", *xlsx, "drafts", *out)
	return col.exitCode()
}

type batch struct {
	scanner   *ingest.Scanner
	queue     *async.ProcessorQueue
	runs      repo.RunRepository
	skipKnown bool
	col       *collector
	logger    *slog.Logger
}

func (b *batch) scan(ctx context.Context, root string) error {
	results, stats, err := b.scanner.ScanDirectory(ctx, root)
	if err != nil {
		return err
	}
	b.logger.Info("scan complete", "matched", stats.Matched, "failed", stats.Failed, "duplicates", stats.Duplicates)

	for _, r := range results {
		if r.Err != "" {
			b.col.fail(r.Path, errors.New(r.Err))
			continue
		}
		if r.Duplicate {
			b.logger.Info("skipping duplicate content", "path", r.Path)
			continue
		}
		if b.known(ctx, r.HashHex) {
			b.logger.Info("skipping already extracted file", "path", r.Path)
			continue
		}
		if err := b.queue.Enqueue(ctx, async.Job{Path: r.Path, FileName: r.Name}); err != nil {
			return err
		}
	}
	return nil
}

func (b *batch) watch(ctx context.Context, root string) error {
	events, errs, err := b.scanner.Watch(ctx, ingest.WatchConfig{
		Roots:       []string{root},
		InitialScan: true,
		Debounce:    2 * time.Second,
	})
	if err != nil {
		return err
	}
	b.logger.Info("watching for new reports", "root", root)

	seen := map[string]struct{}{}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			b.logger.Warn("watch error", "error", err)
		case path, ok := <-events:
			if !ok {
				return ctx.Err()
			}
			r, err := b.scanner.Inspect(path)
			if err != nil {
				b.col.fail(path, err)
				continue
			}
			if _, dup := seen[r.HashHex]; dup || b.known(ctx, r.HashHex) {
				continue
			}
			seen[r.HashHex] = struct{}{}
			if err := b.queue.Enqueue(ctx, async.Job{Path: r.Path, FileName: r.Name}); err != nil {
				return err
			}
		}
	}
}

func (b *batch) known(ctx context.Context, hash string) bool {
	if !b.skipKnown || b.runs == nil {
		return false
	}
	run, err := b.runs.LatestByContentHash(ctx, hash)
	if err != nil {
		return false
	}
	return run.Status == string(constants.RunStatusAccepted) || run.Status == string(constants.RunStatusMerged)
}

// collector receives results from queue workers.
type collector struct {
	root    string
	outDir  string
	logger  *slog.Logger
	mu      sync.Mutex
	entries []report.Entry
	failed  int
	limited int
}

func (c *collector) handle(res async.Result) {
	name := res.Job.FileName
	if res.Err == nil {
		if err := c.writeDraft(res); err != nil {
			c.logger.Error("write draft", "file", name, "error", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, report.Entry{FileName: c.rel(res.Job.Path, name), Draft: res.Draft, Err: res.Err})
	switch {
	case errors.Is(res.Err, common.ErrRemoteRateLimited):
		c.limited++
	case res.Err != nil:
		c.failed++
	}
}

func (c *collector) fail(path string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, report.Entry{FileName: c.rel(path, filepath.Base(path)), Err: err})
	c.failed++
}

func (c *collector) writeDraft(res async.Result) error {
	rel := c.rel(res.Job.Path, res.Job.FileName)
	base := strings.TrimSuffix(strings.ReplaceAll(rel, string(filepath.Separator), "__"), filepath.Ext(rel))
	data, err := json.MarshalIndent(res.Draft, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.outDir, base+".json"), data, 0o644)
}

func (c *collector) rel(path, fallback string) string {
	if path == "" {
		return fallback
	}
	if r, err := filepath.Rel(c.root, path); err == nil {
		return r
	}
	return fallback
}

func (c *collector) sorted() []report.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := append([]report.Entry(nil), c.entries...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].FileName < out[j].FileName })
	return out
}

func (c *collector) exitCode() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.limited > 0:
		return 3
	case c.failed > 0:
		return 1
	}
	return 0
}
