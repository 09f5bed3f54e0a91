package metrics

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/rtm0/oisst/internal/proofread"
)

func TestRecorder(t *testing.T) {
	Convey("Given a recorder", t, func() {
		r := NewRecorder("run-1")
		fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		r.now = func() time.Time { return fixed }

		Convey("When a match and a mismatch are observed", func() {
			r.Observe(proofread.Outcome{Key: "0.5_89.5", Stored: 21.23, Raw: 21.234, Match: true}, 5*time.Millisecond)
			r.Observe(proofread.Outcome{Key: "-0.5_89.5", Stored: 21.23, Raw: 21.5, Match: false}, 5*time.Millisecond)

			Convey("Then the counters and status follow", func() {
				So(testutil.ToFloat64(r.checks), ShouldEqual, 2)
				So(testutil.ToFloat64(r.mismatches), ShouldEqual, 1)
				So(testutil.ToFloat64(r.lastCheck), ShouldEqual, float64(fixed.Unix()))
				So(testutil.ToFloat64(r.absDiff), ShouldAlmostEqual, 0.27, 1e-9)

				s := r.Status()
				So(s.RunID, ShouldEqual, "run-1")
				So(s.Checks, ShouldEqual, 2)
				So(s.Mismatches, ShouldEqual, 1)
				So(s.Last.Key, ShouldEqual, "-0.5_89.5")
			})
		})

		Convey("When the raw value is missing", func() {
			r.Observe(proofread.Outcome{Stored: 1, Raw: math.NaN()}, time.Millisecond)

			Convey("Then the status is still encodable", func() {
				s := r.Status()
				So(s.Last.RawMissing, ShouldBeTrue)
				_, err := json.Marshal(s)
				So(err, ShouldBeNil)
			})
		})

		Convey("When a check fails", func() {
			r.Failed(errors.New("noaaOIsst \"0.5_89.5\": document not found"))

			Convey("Then the error is counted and kept", func() {
				So(testutil.ToFloat64(r.errors), ShouldEqual, 1)
				So(r.Status().LastError, ShouldContainSubstring, "not found")
			})
		})

		Convey("Status snapshots are not shared", func() {
			r.Observe(proofread.Outcome{Key: "a", Match: true}, 0)
			s := r.Status()
			s.Last.Key = "changed"
			So(r.Status().Last.Key, ShouldEqual, "a")
		})
	})
}

func TestServer(t *testing.T) {
	Convey("Given a status server", t, func() {
		r := NewRecorder("run-2")
		r.Observe(proofread.Outcome{Lon: 0.5, Lat: 89.5, Key: "0.5_89.5", Stored: 21.23, Raw: 21.23, Match: true}, time.Millisecond)
		h := NewServer(slog.New(slog.NewTextHandler(io.Discard, nil)), ":0", r).Handler()

		get := func(path string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			return w
		}

		Convey("GET /healthz reports ok", func() {
			w := get("/healthz")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"ok"`)
		})

		Convey("GET /metrics exposes the collectors", func() {
			w := get("/metrics")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "oisst_proofread_checks_total 1")
		})

		Convey("GET /status returns the run summary", func() {
			w := get("/status")
			So(w.Code, ShouldEqual, http.StatusOK)

			var s Status
			So(json.Unmarshal(w.Body.Bytes(), &s), ShouldBeNil)
			So(s.RunID, ShouldEqual, "run-2")
			So(s.Checks, ShouldEqual, 1)
			So(s.Last.Key, ShouldEqual, "0.5_89.5")
			So(s.Last.Lon, ShouldEqual, 0.5)
			So(s.Last.Lat, ShouldEqual, 89.5)
			So(s.Last.Match, ShouldBeTrue)
		})

		Convey("Unknown paths are not found", func() {
			So(get("/nope").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}
