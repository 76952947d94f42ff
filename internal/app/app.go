// Package app wires configuration into a ready-to-use extraction processor.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joseph-ayodele/labs-tracker/internal/common"
	"github.com/joseph-ayodele/labs-tracker/internal/dates"
	"github.com/joseph-ayodele/labs-tracker/internal/ocr"
	"github.com/joseph-ayodele/labs-tracker/internal/parse"
	"github.com/joseph-ayodele/labs-tracker/internal/pipeline"
	"github.com/joseph-ayodele/labs-tracker/internal/remote"
	repo "github.com/joseph-ayodele/labs-tracker/internal/repository"
	"github.com/joseph-ayodele/labs-tracker/internal/scoring"
	"github.com/joseph-ayodele/labs-tracker/internal/textlayer"
)

// App holds the processor and the resources it owns.
type App struct {
	Processor *pipeline.Processor
	Runs      repo.RunRepository // nil when the ledger is disabled

	db     *repo.DB
	redis  *redis.Client
	logger *slog.Logger
}

// Build opens the optional run ledger and remote cache and assembles the
// processor. Call Close when done.
func Build(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{logger: logger}

	var recorder pipeline.RunRecorder
	if cfg.Database.DSN != "" {
		db, err := repo.Open(ctx, repo.Config{
			Driver:          cfg.Database.Driver,
			DSN:             cfg.Database.DSN,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			DialTimeout:     cfg.Database.DialTimeout,
		}, logger)
		if err != nil {
			return nil, common.WrapError(err, "open run ledger")
		}
		a.db = db
		a.Runs = repo.NewRunRepository(db, logger)
		recorder = a.Runs
	}

	var remoteStage *pipeline.RemoteStage
	if cfg.Remote.BaseURL != "" {
		cache, err := a.openCache(ctx, cfg.Cache)
		if err != nil {
			a.Close()
			return nil, err
		}
		client := remote.NewClient(remote.Config{
			BaseURL:  cfg.Remote.BaseURL,
			APIKey:   cfg.Remote.APIKey,
			Variants: cfg.Remote.Variants,
			Timeout:  cfg.Remote.Timeout,
			CacheTTL: cfg.Cache.TTL,
		}, cache, logger)
		remoteStage = pipeline.NewRemoteStage(client, cfg.Remote.SendDocument, logger)
	} else {
		logger.Info("remote extraction disabled, REMOTE_BASE_URL not set")
	}

	text := pipeline.NewTextStage(
		textlayer.NewReader(textlayer.DefaultConfig(), logger),
		newOCR(cfg.OCR, logger),
		textlayer.DefaultSparseThresholds(),
		logger,
	)
	parseStage := pipeline.NewParseStage(parse.NewRunner(nil, logger), dates.NewEngine(time.Now), logger)

	a.Processor = pipeline.NewProcessor(pipeline.Config{
		Gate: scoring.GateConfig{
			MinMeasurements: cfg.Pipeline.GateMinMeasurements,
			MinConfidence:   cfg.Pipeline.GateMinConfidence,
			MinImportant:    cfg.Pipeline.GateMinImportant,
		},
		IncludeDebug: cfg.Pipeline.IncludeDebug,
	}, text, parseStage, remoteStage, recorder, logger)
	return a, nil
}

// newOCR returns nil when OCR is disabled so the text stage reports
// OCR_INIT_FAILED for sparse documents instead of attempting recognition.
func newOCR(cfg common.OCRConfig, logger *slog.Logger) pipeline.OCRRunner {
	if !cfg.Enabled {
		return nil
	}
	var rec ocr.Recognizer
	switch cfg.Engine {
	case "cli":
		rec = ocr.NewCLIRecognizer(nil, cfg.Languages, cfg.TessdataDir)
	default:
		rec = ocr.NewTesseractRecognizer(cfg.Languages, cfg.TessdataDir)
	}
	oc := ocr.DefaultConfig()
	oc.MaxPages = cfg.MaxPages
	oc.PrimaryDPI = cfg.PrimaryDPI
	oc.FallbackDPI = cfg.FallbackDPI
	oc.PageTimeout = cfg.PageTimeout
	oc.TotalTimeout = cfg.TotalTimeout
	return ocr.NewEngine(oc, ocr.NewPopplerRenderer(nil), rec, logger)
}

func (a *App) openCache(ctx context.Context, cfg common.CacheConfig) (remote.Cache, error) {
	if cfg.TTL <= 0 {
		return nil, nil
	}
	if cfg.RedisAddr == "" {
		return remote.NewMemoryCache(nil), nil
	}

	var opts *redis.Options
	if strings.Contains(cfg.RedisAddr, "://") {
		parsed, err := redis.ParseURL(cfg.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB}
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	a.redis = client
	a.logger.Info("remote cache connected", "backend", "redis")
	return remote.NewRedisCache(client), nil
}

// Close releases the ledger and cache connections.
func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis failed", "error", err)
		}
	}
	if a.db != nil {
		a.db.Close(a.logger)
	}
}
