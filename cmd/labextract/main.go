package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/joseph-ayodele/labs-tracker/internal/app"
	"github.com/joseph-ayodele/labs-tracker/internal/common"
	"github.com/joseph-ayodele/labs-tracker/internal/entity"
	"github.com/joseph-ayodele/labs-tracker/internal/server"
)

const (
	exitOK          = 0
	exitError       = 1
	exitUsage       = 2
	exitRateLimited = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load(".env")

	var (
		addr    = flag.String("addr", "", "extract through a running labextractd at this address instead of locally")
		runs    = flag.Int("runs", 0, "list the N most recent extraction runs from the ledger and exit")
		pretty  = flag.Bool("pretty", false, "indent JSON output")
		timeout = flag.Duration("timeout", 3*time.Minute, "overall extraction timeout")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: labextract [flags] <report.pdf>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return exitUsage
	}

	if *runs > 0 {
		return listRuns(ctx, cfg, *runs, *pretty, logger)
	}

	if flag.NArg() != 1 {
		flag.Usage()
		return exitUsage
	}
	path := flag.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read input", "path", path, "error", err)
		return exitError
	}
	name := filepath.Base(path)
	if err := common.ValidateUpload(name, data, cfg.Server.MaxUploadBytes); err != nil {
		logger.Error("invalid input", "path", path, "error", err)
		return exitUsage
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	var draft entity.ExtractionDraft
	if *addr != "" {
		draft, err = extractRemote(ctx, *addr, name, data)
	} else {
		draft, err = extractLocal(ctx, cfg, name, data, logger)
	}

	var rl *common.RateLimitedError
	switch {
	case errors.As(err, &rl):
		fmt.Fprintf(os.Stderr, "rate limited, retry after %s\n", rl.RetryAfter)
		return exitRateLimited
	case err != nil:
		logger.Error("extraction failed", "file", name, "error", err)
		return exitError
	}

	if err := writeJSON(os.Stdout, draft, *pretty); err != nil {
		logger.Error("write output", "error", err)
		return exitError
	}
	return exitOK
}

func extractLocal(ctx context.Context, cfg *common.Config, name string, data []byte, logger *slog.Logger) (entity.ExtractionDraft, error) {
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return entity.ExtractionDraft{}, err
	}
	defer a.Close()
	return a.Processor.Extract(ctx, name, data)
}

func extractRemote(ctx context.Context, addr, name string, data []byte) (entity.ExtractionDraft, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.MaxCallSendMsgSize(len(data)+4096)),
	)
	if err != nil {
		return entity.ExtractionDraft{}, fmt.Errorf("dial %s: %w", addr, err)
	}
	defer func() { _ = conn.Close() }()
	return server.NewExtractionClient(conn).Extract(ctx, name, data)
}

func listRuns(ctx context.Context, cfg *common.Config, n int, pretty bool, logger *slog.Logger) int {
	if cfg.Database.DSN == "" {
		logger.Error("DB_URL is required to list runs")
		return exitUsage
	}
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("open ledger", "error", err)
		return exitError
	}
	defer a.Close()

	recent, err := a.Runs.ListRecent(ctx, n)
	if err != nil {
		logger.Error("list runs", "error", err)
		return exitError
	}
	if err := writeJSON(os.Stdout, recent, pretty); err != nil {
		logger.Error("write output", "error", err)
		return exitError
	}
	return exitOK
}

func writeJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
