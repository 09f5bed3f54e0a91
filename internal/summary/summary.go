// Package summary records the time bounds of a series in the rate limiter
// summary document.
package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rtm0/oisst/internal/store"
)

// Errors that downgrade an update to null bounds.
var (
	ErrNotDateLike = errors.New("timestamp is not a datetime")
	ErrEmptySeries = errors.New("series has no timestamps")
)

// ErrWrite wraps a failure to write the summary document.
var ErrWrite = errors.New("db write failure")

// Kind classifies the outcome of an update.
type Kind int

const (
	// KindUpdated means the entry was written with both bounds.
	KindUpdated Kind = iota
	// KindUpdatedWithoutBounds means the bounds could not be derived and the
	// entry was written with null bounds.
	KindUpdatedWithoutBounds
	// KindWriteFailed means the summary document could not be written.
	KindWriteFailed
)

func (k Kind) String() string {
	switch k {
	case KindUpdated:
		return "updated"
	case KindUpdatedWithoutBounds:
		return "updated-without-bounds"
	case KindWriteFailed:
		return "write-failed"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Result describes what an update did.
type Result struct {
	Kind     Kind
	SeriesID string
	Entry    store.SeriesEntry
	// Created is set when no summary document existed before the update.
	Created bool
	// BoundsErr is ErrNotDateLike or ErrEmptySeries when the bounds were
	// dropped.
	BoundsErr error
	// WriteErr wraps ErrWrite when the upsert failed.
	WriteErr error
}

// Store is the storage the updater reads from and writes to.
type Store interface {
	SeriesMeta(ctx context.Context, id string) (*store.Meta, error)
	Summary(ctx context.Context, id string) (*store.Summary, error)
	PutSummary(ctx context.Context, s *store.Summary) error
}

// Updater keeps one summary document up to date.
type Updater struct {
	logger     *slog.Logger
	store      Store
	summaryID  string
	metaGroups []string
}

// NewUpdater creates an updater writing to the summary document summaryID.
func NewUpdater(logger *slog.Logger, st Store, summaryID string, metaGroups []string) *Updater {
	return &Updater{
		logger:     logger,
		store:      st,
		summaryID:  summaryID,
		metaGroups: metaGroups,
	}
}

// Update derives the bounds of seriesID and upserts them into the summary
// document. Errors are returned only when nothing could be written: a missing
// metadata document or a failed summary read. Bound and write failures are
// reported through the result.
func (u *Updater) Update(ctx context.Context, seriesID string) (Result, error) {
	res := Result{SeriesID: seriesID, Kind: KindUpdated}

	meta, err := u.store.SeriesMeta(ctx, seriesID)
	if err != nil {
		return res, err
	}

	res.Entry = store.SeriesEntry{MetaGroups: append([]string(nil), u.metaGroups...)}
	start, end, err := TimestampRange(meta)
	if err != nil {
		res.Kind = KindUpdatedWithoutBounds
		res.BoundsErr = err
		u.logger.Debug("Dropping series bounds", "series", seriesID, "err", err)
	} else {
		res.Entry.StartDate = &start
		res.Entry.EndDate = &end
	}

	doc, err := u.store.Summary(ctx, u.summaryID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		doc = store.NewSummary(u.summaryID)
		res.Created = true
	case err != nil:
		return res, err
	}
	if err := doc.Set(seriesID, res.Entry); err != nil {
		return res, err
	}

	if err := u.store.PutSummary(ctx, doc); err != nil {
		res.Kind = KindWriteFailed
		res.WriteErr = fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return res, nil
}

// TimestampRange returns the first and last timestamps of a series formatted
// by FormatTimestamp.
func TimestampRange(m *store.Meta) (start, end string, err error) {
	if len(m.Timeseries) == 0 {
		return "", "", ErrEmptySeries
	}
	first, ok := m.Timeseries[0].DateTimeOK()
	if !ok {
		return "", "", fmt.Errorf("%w: first value is %s", ErrNotDateLike, m.Timeseries[0].Type)
	}
	last, ok := m.Timeseries[len(m.Timeseries)-1].DateTimeOK()
	if !ok {
		return "", "", fmt.Errorf("%w: last value is %s", ErrNotDateLike, m.Timeseries[len(m.Timeseries)-1].Type)
	}
	return FormatTimestamp(time.UnixMilli(first)), FormatTimestamp(time.UnixMilli(last)), nil
}

// FormatTimestamp renders t in UTC as YYYY-MM-DDTHH:MM:SS[.ffffff]Z. The
// fraction is only written when non-zero.
func FormatTimestamp(t time.Time) string {
	t = t.UTC()
	s := t.Format("2006-01-02T15:04:05")
	if us := t.Nanosecond() / 1000; us != 0 {
		s += fmt.Sprintf(".%06d", us)
	}
	return s + "Z"
}
