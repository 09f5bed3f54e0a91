package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/rtm0/oisst/internal/store"
	"github.com/rtm0/oisst/internal/summary"
	. "github.com/smartystreets/goconvey/convey"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memStore struct {
	meta     *store.Meta
	writeErr error
	writes   int
}

func (m *memStore) SeriesMeta(_ context.Context, id string) (*store.Meta, error) {
	if m.meta == nil {
		return nil, fmt.Errorf("timeseriesMeta %q: %w", id, store.ErrNotFound)
	}
	return m.meta, nil
}

func (m *memStore) Summary(_ context.Context, id string) (*store.Summary, error) {
	return nil, fmt.Errorf("summaries %q: %w", id, store.ErrNotFound)
}

func (m *memStore) PutSummary(context.Context, *store.Summary) error {
	m.writes++
	return m.writeErr
}

func weeklyMeta() *store.Meta {
	m := &store.Meta{ID: "noaasst"}
	for _, t := range []time.Time{
		time.Date(1990, 1, 7, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 2, 26, 0, 0, 0, 0, time.UTC),
	} {
		typ, data, err := bson.MarshalValue(primitive.NewDateTimeFromTime(t))
		if err != nil {
			panic(err)
		}
		m.Timeseries = append(m.Timeseries, bson.RawValue{Type: typ, Value: data})
	}
	return m
}

func TestSummarize(t *testing.T) {
	ctx := context.Background()

	Convey("Given a series with date-like timestamps", t, func() {
		var out bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&out, nil))
		st := &memStore{meta: weeklyMeta()}
		u := summary.NewUpdater(logger, st, "ratelimiter", []string{"id"})

		Convey("A successful update logs both bounds", func() {
			So(summarize(ctx, logger, u, "noaasst"), ShouldBeNil)
			So(st.writes, ShouldEqual, 1)
			So(out.String(), ShouldContainSubstring, "startDate=1990-01-07T00:00:00Z")
			So(out.String(), ShouldContainSubstring, "endDate=2023-02-26T00:00:00Z")
		})

		Convey("A failed write is logged and the command still succeeds", func() {
			st.writeErr = errors.New("not primary")
			So(summarize(ctx, logger, u, "noaasst"), ShouldBeNil)
			So(out.String(), ShouldContainSubstring, "error: db write failure")
			So(out.String(), ShouldContainSubstring, "not primary")
		})
	})

	Convey("Given a series without a metadata document", t, func() {
		var out bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&out, nil))
		st := &memStore{}
		u := summary.NewUpdater(logger, st, "ratelimiter", []string{"id"})

		Convey("The error is returned and nothing is written", func() {
			err := summarize(ctx, logger, u, "noaasst")
			So(errors.Is(err, store.ErrNotFound), ShouldBeTrue)
			So(st.writes, ShouldEqual, 0)
		})
	})
}
