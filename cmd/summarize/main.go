package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/rtm0/oisst/internal/config"
	"github.com/rtm0/oisst/internal/store"
	"github.com/rtm0/oisst/internal/summary"
)

var (
	configFile = flag.String("config", "", "path to a YAML config file. Default: $OISST_CONFIG")
	series     = flag.String("series", "", "id of the series to summarize. Default: series_id from config")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Could not load config", "err", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))

	seriesID := cfg.SeriesID
	if *series != "" {
		seriesID = *series
	}

	if err := run(context.Background(), logger, cfg, seriesID); err != nil {
		logger.Error("Could not update summary", "series", seriesID, "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg *config.Config, seriesID string) error {
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

	return summarize(ctx, logger, summary.NewUpdater(logger, st, cfg.SummaryID, cfg.MetaGroups), seriesID)
}

// summarize updates one series and logs the outcome. A failed summary write
// is logged but not returned.
func summarize(ctx context.Context, logger *slog.Logger, u *summary.Updater, seriesID string) error {
	res, err := u.Update(ctx, seriesID)
	if err != nil {
		return err
	}

	switch res.Kind {
	case summary.KindWriteFailed:
		logger.Error("error: db write failure", "series", seriesID, "err", res.WriteErr)
	case summary.KindUpdatedWithoutBounds:
		logger.Warn("Summary updated without bounds", "series", seriesID, "reason", res.BoundsErr)
	default:
		logger.Info("Summary updated",
			"series", seriesID,
			"startDate", *res.Entry.StartDate,
			"endDate", *res.Entry.EndDate,
			"created", res.Created)
	}
	return nil
}
