package rating_test

import (
	"testing"

	"github.com/okian/squad/internal/domain/rating"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSources(t *testing.T) {
	Convey("Given the rating sources", t, func() {
		Convey("When drawing from the default source", func() {
			src := rating.NewDefaultSource()

			Convey("Then every value should be in [0,1)", func() {
				for i := 0; i < 1000; i++ {
					v := src.Float64()
					So(v, ShouldBeGreaterThanOrEqualTo, 0)
					So(v, ShouldBeLessThan, 1)
				}
			})
		})

		Convey("When two seeded sources share a seed", func() {
			a := rating.NewSeededSource(7)
			b := rating.NewSeededSource(7)

			Convey("Then they should produce the same stream", func() {
				for i := 0; i < 50; i++ {
					So(a.Float64(), ShouldEqual, b.Float64())
				}
			})
		})

		Convey("When replaying a sequence", func() {
			src := rating.NewSequenceSource(0.1, 0.5, -3, 4)

			Convey("Then values should cycle and be clamped", func() {
				So(src.Float64(), ShouldEqual, 0.1)
				So(src.Float64(), ShouldEqual, 0.5)
				So(src.Float64(), ShouldEqual, 0)
				So(src.Float64(), ShouldBeLessThan, 1)
				So(src.Float64(), ShouldEqual, 0.1)
				So(src.Draws(), ShouldEqual, 5)
			})
		})

		Convey("When the sequence is empty", func() {
			src := rating.NewSequenceSource()

			Convey("Then it should always yield zero", func() {
				So(src.Float64(), ShouldEqual, 0)
				So(src.Float64(), ShouldEqual, 0)
			})
		})
	})
}

func TestIntn(t *testing.T) {
	Convey("Given Intn", t, func() {
		Convey("Then it should map the unit interval onto indexes", func() {
			So(rating.Intn(rating.NewSequenceSource(0), 4), ShouldEqual, 0)
			So(rating.Intn(rating.NewSequenceSource(0.5), 4), ShouldEqual, 2)
			So(rating.Intn(rating.NewSequenceSource(0.99), 4), ShouldEqual, 3)
		})

		Convey("Then it should reach the last index", func() {
			seen := map[int]bool{}
			src := rating.NewSeededSource(1)
			for i := 0; i < 500; i++ {
				seen[rating.Intn(src, 3)] = true
			}
			So(len(seen), ShouldEqual, 3)
		})

		Convey("Then it should return zero for empty ranges", func() {
			So(rating.Intn(rating.NewSequenceSource(0.7), 0), ShouldEqual, 0)
			So(rating.Intn(rating.NewSequenceSource(0.7), -2), ShouldEqual, 0)
		})
	})
}
