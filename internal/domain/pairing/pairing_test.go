package pairing_test

import (
	"fmt"
	"testing"

	"github.com/okian/squad/internal/domain/model"
	"github.com/okian/squad/internal/domain/pairing"
	"github.com/okian/squad/internal/domain/rating"
	. "github.com/smartystreets/goconvey/convey"
)

func groups(n int) []*model.Group {
	game := model.NewActivity("HOTS", "MOBA")
	out := make([]*model.Group, n)
	for i := range out {
		out[i] = model.NewGroup(fmt.Sprintf("Group %d", i+1), 2, game)
	}
	return out
}

func TestPair(t *testing.T) {
	Convey("Given four groups", t, func() {
		gs := groups(4)
		original := append([]*model.Group(nil), gs...)

		Convey("When pairing them", func() {
			matches := pairing.Pair(rating.NewSeededSource(3), gs)

			Convey("Then every group should play exactly once", func() {
				So(len(matches), ShouldEqual, 2)
				seen := map[*model.Group]int{}
				for _, m := range matches {
					So(m.HasOpponent(), ShouldBeTrue)
					So(m.Home, ShouldNotEqual, m.Away)
					seen[m.Home]++
					seen[m.Away]++
				}
				So(len(seen), ShouldEqual, 4)
				for _, g := range gs {
					So(seen[g], ShouldEqual, 1)
				}
				So(matches[0].ID, ShouldNotEqual, matches[1].ID)
			})

			Convey("Then the input order should be kept", func() {
				So(gs, ShouldResemble, original)
			})
		})
	})

	Convey("Given three groups", t, func() {
		gs := groups(3)

		Convey("When pairing with an all-zero source", func() {
			matches := pairing.Pair(rating.NewSequenceSource(0), gs)

			Convey("Then the last match should have no opponent", func() {
				So(len(matches), ShouldEqual, 2)
				So(matches[0].HasOpponent(), ShouldBeTrue)
				So(matches[1].HasOpponent(), ShouldBeFalse)
				// Fisher-Yates with zero draws rotates left
				So(matches[0].Home, ShouldEqual, gs[1])
				So(matches[0].Away, ShouldEqual, gs[2])
				So(matches[1].Home, ShouldEqual, gs[0])
			})
		})
	})

	Convey("Given no groups", t, func() {
		Convey("Then no match should be produced", func() {
			So(pairing.Pair(rating.NewSequenceSource(), nil), ShouldBeEmpty)
			So(pairing.Pair(rating.NewSequenceSource(), []*model.Group{nil}), ShouldBeEmpty)
		})
	})
}
