package main

import (
	"context"
	"flag"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/rtm0/oisst/internal/config"
	"github.com/rtm0/oisst/internal/metrics"
	"github.com/rtm0/oisst/internal/oisst"
	"github.com/rtm0/oisst/internal/proofread"
	"github.com/rtm0/oisst/internal/store"
)

var (
	configFile = flag.String("config", "", "path to a YAML config file. Default: $OISST_CONFIG")
	file       = flag.String("file", "", "path to the OI SST file in NetCDF format. Default: dataset_file from config")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Could not load config", "err", err)
		os.Exit(1)
	}
	if *file != "" {
		cfg.DatasetFile = *file
	}
	runID := uuid.NewString()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()})).
		With("run_id", runID)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, cfg, runID); err != nil {
		logger.Error("Proofreading stopped", "err", err)
		stop()
		os.Exit(1)
	}
	logger.Info("Proofreading cancelled")
}

func run(ctx context.Context, logger *slog.Logger, cfg *config.Config, runID string) error {
	ds, err := oisst.Open(cfg.DatasetFile, cfg.DatasetVariable)
	if err != nil {
		return err
	}
	defer ds.Close()
	logger.Info("OI SST summary", ds.Summary()...)

	st, err := store.Connect(ctx, logger, cfg.StoreOptions())
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.Close(ctx); err != nil {
			logger.Error("Could not disconnect", "err", err)
		}
	}()

	meta, err := st.DatasetMeta(ctx, cfg.DatasetMetaID)
	if err != nil {
		return err
	}
	bounds := proofread.Bounds{
		Time: proofread.TimeBound(meta, ds.TimeCount(), cfg.TimeSteps),
		Lat:  ds.LatCount(),
		Lon:  ds.LonCount(),
	}
	logger.Info("Dataset metadata", "id", meta.ID, "loadedSteps", len(meta.Timeseries), "bounds", bounds)

	sampler, err := proofread.NewSampler(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), bounds)
	if err != nil {
		return err
	}

	rec := metrics.NewRecorder(runID)
	if cfg.MetricsAddr != "" {
		srv := metrics.NewServer(logger, cfg.MetricsAddr, rec)
		srv.Start()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("Could not stop status server", "err", err)
			}
		}()
	}

	loop := proofread.NewLoop(logger, sampler, proofread.NewChecker(ds, st), cfg.Interval, rec)
	return loop.Run(ctx)
}
