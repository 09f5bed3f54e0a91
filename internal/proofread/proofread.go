// Package proofread cross-checks random cells of a gridded dataset against the
// grid point records loaded into the database.
package proofread

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/rtm0/oisst/internal/oisst"
	"github.com/rtm0/oisst/internal/store"
)

// ErrShortSeries is returned when a grid point holds fewer values than the
// sampled time index requires.
var ErrShortSeries = errors.New("stored series shorter than time index")

// Grid is the reference dataset.
type Grid interface {
	LatCount() int
	LonCount() int
	Point(timeIdx, latIdx, lonIdx int) (oisst.Point, error)
}

// Points looks up stored grid point records.
type Points interface {
	GridPoint(ctx context.Context, key string) (*store.GridPoint, error)
}

// Observer is notified after every check.
type Observer interface {
	Observe(o Outcome, took time.Duration)
	Failed(err error)
}

// Outcome is the result of comparing one sampled cell.
type Outcome struct {
	TimeIdx int     `json:"time_idx"`
	LatIdx  int     `json:"lat_idx"`
	LonIdx  int     `json:"lon_idx"`
	Lon     float64 `json:"lon"`
	Lat     float64 `json:"lat"`
	Key     string  `json:"key"`
	Stored  float64 `json:"stored"`
	Raw     float64 `json:"raw"`
	Match   bool    `json:"match"`
}

// Bounds are the exclusive upper limits of the sampled indices.
type Bounds struct {
	Time int
	Lat  int
	Lon  int
}

// TimeBound returns the number of time steps that can be sampled: the length
// of the loaded series, capped by the steps in the file. A positive override
// replaces the loaded length.
func TimeBound(meta *store.Meta, fileSteps, override int) int {
	n := len(meta.Timeseries)
	if override > 0 {
		n = override
	}
	return min(n, fileSteps)
}

// Sampler draws uniformly random cell indices.
type Sampler struct {
	rnd    *rand.Rand
	bounds Bounds
}

// NewSampler creates a sampler. All bounds must be positive.
func NewSampler(rnd *rand.Rand, b Bounds) (*Sampler, error) {
	if b.Time <= 0 || b.Lat <= 0 || b.Lon <= 0 {
		return nil, fmt.Errorf("invalid sampling bounds %+v", b)
	}
	return &Sampler{rnd: rnd, bounds: b}, nil
}

// Next returns the next time, latitude and longitude indices.
func (s *Sampler) Next() (timeIdx, latIdx, lonIdx int) {
	latIdx = s.rnd.IntN(s.bounds.Lat)
	lonIdx = s.rnd.IntN(s.bounds.Lon)
	timeIdx = s.rnd.IntN(s.bounds.Time)
	return timeIdx, latIdx, lonIdx
}

// Checker compares a single cell.
type Checker struct {
	grid   Grid
	points Points
}

// NewChecker creates a checker.
func NewChecker(grid Grid, points Points) *Checker {
	return &Checker{grid: grid, points: points}
}

// Check compares the stored value of a cell with the dataset value, both
// rounded to two decimals. A missing record is returned as an error wrapping
// store.ErrNotFound.
func (c *Checker) Check(ctx context.Context, timeIdx, latIdx, lonIdx int) (Outcome, error) {
	p, err := c.grid.Point(timeIdx, latIdx, lonIdx)
	if err != nil {
		return Outcome{}, err
	}
	o := Outcome{
		TimeIdx: timeIdx,
		LatIdx:  latIdx,
		LonIdx:  lonIdx,
		Lon:     p.Longitude,
		Lat:     p.Latitude,
		Key:     p.Key(),
		Raw:     p.Value,
	}
	rec, err := c.points.GridPoint(ctx, o.Key)
	if err != nil {
		return o, err
	}
	stored, ok := rec.Value(0, timeIdx)
	if !ok {
		return o, fmt.Errorf("%s: %w: index %d", o.Key, ErrShortSeries, timeIdx)
	}
	o.Stored = stored
	o.Match = oisst.Round2(stored) == oisst.Round2(p.Value)
	return o, nil
}

// Loop runs checks on a fixed interval until its context is cancelled.
type Loop struct {
	logger    *slog.Logger
	sampler   *Sampler
	checker   *Checker
	interval  time.Duration
	observers []Observer
}

// NewLoop creates a loop running one check per interval.
func NewLoop(logger *slog.Logger, sampler *Sampler, checker *Checker, interval time.Duration, observers ...Observer) *Loop {
	return &Loop{
		logger:    logger,
		sampler:   sampler,
		checker:   checker,
		interval:  interval,
		observers: observers,
	}
}

// Run performs a check immediately and then once per interval. It returns nil
// when ctx is cancelled and the error of the first failed check otherwise.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := l.step(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (l *Loop) step(ctx context.Context) error {
	timeIdx, latIdx, lonIdx := l.sampler.Next()
	start := time.Now()
	o, err := l.checker.Check(ctx, timeIdx, latIdx, lonIdx)
	took := time.Since(start)
	if err != nil {
		for _, obs := range l.observers {
			obs.Failed(err)
		}
		return err
	}
	for _, obs := range l.observers {
		obs.Observe(o, took)
	}
	if !o.Match {
		l.logger.Warn("mismatch",
			"lat_idx", o.LatIdx, "lon_idx", o.LonIdx, "time_idx", o.TimeIdx, "lon", o.Lon, "lat", o.Lat,
			"stored", o.Stored, "raw", o.Raw)
		return nil
	}
	l.logger.Info("ok", "key", o.Key, "time_idx", o.TimeIdx)
	return nil
}
