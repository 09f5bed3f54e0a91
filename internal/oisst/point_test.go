package oisst_test

import (
	"testing"

	"github.com/rtm0/oisst/internal/oisst"
	. "github.com/smartystreets/goconvey/convey"
)

func TestTidyLon(t *testing.T) {
	Convey("Given longitudes on [0, 360)", t, func() {
		Convey("Values up to 180 are unchanged", func() {
			for _, lon := range []float64{0, 0.5, 90, 179.5, 180} {
				So(oisst.TidyLon(lon), ShouldEqual, lon)
			}
		})

		Convey("Values above 180 are shifted by -360", func() {
			So(oisst.TidyLon(180.5), ShouldEqual, -179.5)
			So(oisst.TidyLon(270), ShouldEqual, -90)
			So(oisst.TidyLon(359.5), ShouldEqual, -0.5)
		})

		Convey("Every half-degree cell centre lands in (-180, 180]", func() {
			seen := map[float64]bool{}
			for i := 0; i < 360; i++ {
				lon := oisst.TidyLon(float64(i) + 0.5)
				So(lon, ShouldBeGreaterThan, -180)
				So(lon, ShouldBeLessThanOrEqualTo, 180)
				So(seen[lon], ShouldBeFalse)
				seen[lon] = true
			}
		})
	})
}

func TestKey(t *testing.T) {
	Convey("Keys use the shortest decimal form of each coordinate", t, func() {
		So(oisst.Key(0.5, 89.5), ShouldEqual, "0.5_89.5")
		So(oisst.Key(-179.5, -89.5), ShouldEqual, "-179.5_-89.5")
		So(oisst.Key(10, -3), ShouldEqual, "10_-3")
		So(oisst.Point{Longitude: -0.5, Latitude: 12.5}.Key(), ShouldEqual, "-0.5_12.5")
	})
}

func TestRound2(t *testing.T) {
	Convey("Round2 keeps two decimals", t, func() {
		So(oisst.Round2(21.234), ShouldEqual, 21.23)
		So(oisst.Round2(21.2345), ShouldEqual, 21.23)
		So(oisst.Round2(21.236), ShouldEqual, 21.24)
		So(oisst.Round2(-1.806), ShouldEqual, -1.81)
		So(oisst.Round2(21.23), ShouldEqual, 21.23)
	})
}
