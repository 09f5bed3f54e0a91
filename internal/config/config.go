// Package config loads the settings shared by the summarize and proofread
// commands.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rtm0/oisst/internal/store"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	MongoURI       string        `koanf:"mongo_uri"`
	Database       string        `koanf:"database"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
	OpTimeout      time.Duration `koanf:"op_timeout"`

	// Summary updater.
	SeriesID             string   `koanf:"series_id"`
	SeriesMetaCollection string   `koanf:"series_meta_collection"`
	SummaryCollection    string   `koanf:"summary_collection"`
	SummaryID            string   `koanf:"summary_id"`
	MetaGroups           []string `koanf:"metagroups"`

	// Proofreader.
	DatasetFile           string        `koanf:"dataset_file"`
	DatasetVariable       string        `koanf:"dataset_variable"`
	DatasetMetaCollection string        `koanf:"dataset_meta_collection"`
	DatasetMetaID         string        `koanf:"dataset_meta_id"`
	PointCollection       string        `koanf:"point_collection"`
	TimeSteps             int           `koanf:"time_steps"`
	Interval              time.Duration `koanf:"interval"`
	MetricsAddr           string        `koanf:"metrics_addr"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		MongoURI:              "mongodb://database/argo",
		Database:              "argo",
		ConnectTimeout:        30 * time.Second,
		OpTimeout:             10 * time.Second,
		SeriesID:              "noaasst",
		SeriesMetaCollection:  "timeseriesMeta",
		SummaryCollection:     "summaries",
		SummaryID:             "ratelimiter",
		MetaGroups:            []string{"id"},
		DatasetFile:           "data/sst.wkmean.1990-present.nc",
		DatasetVariable:       "sst",
		DatasetMetaCollection: "noaaOIsstMeta",
		DatasetMetaID:         "noaa-oi-sst-v2",
		PointCollection:       "noaaOIsst",
		Interval:              60 * time.Second,
	}
}

// Validate checks that the settings are usable.
func (c *Config) Validate() error {
	var missing []string
	for name, v := range map[string]string{
		"mongo_uri":               c.MongoURI,
		"database":                c.Database,
		"series_id":               c.SeriesID,
		"series_meta_collection":  c.SeriesMetaCollection,
		"summary_collection":      c.SummaryCollection,
		"summary_id":              c.SummaryID,
		"dataset_file":            c.DatasetFile,
		"dataset_variable":        c.DatasetVariable,
		"dataset_meta_collection": c.DatasetMetaCollection,
		"dataset_meta_id":         c.DatasetMetaID,
		"point_collection":        c.PointCollection,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: empty %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}
	if c.ConnectTimeout <= 0 || c.OpTimeout <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfig)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive, got %s", ErrInvalidConfig, c.Interval)
	}
	if c.TimeSteps < 0 {
		return fmt.Errorf("%w: time_steps must not be negative", ErrInvalidConfig)
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("%w: log_level: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Level returns the log level as a slog.Level, defaulting to info.
func (c *Config) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// StoreOptions returns the database settings.
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		URI:      c.MongoURI,
		Database: c.Database,
		Collections: store.Collections{
			SeriesMeta:  c.SeriesMetaCollection,
			Summaries:   c.SummaryCollection,
			DatasetMeta: c.DatasetMetaCollection,
			Points:      c.PointCollection,
		},
		ConnectTimeout: c.ConnectTimeout,
		OpTimeout:      c.OpTimeout,
	}
}
