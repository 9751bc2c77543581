package assignment

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/google/uuid"
	"github.com/okian/squad/internal/domain/model"
	"github.com/okian/squad/internal/domain/rating"
	. "github.com/smartystreets/goconvey/convey"
)

func pool(activity model.Activity, ratings ...int) []*model.Participant {
	out := make([]*model.Participant, 0, len(ratings))
	for i, r := range ratings {
		p := model.NewParticipant(fmt.Sprintf("Player%d", i))
		if r > 0 {
			if err := p.Assess(activity, r); err != nil {
				panic(err)
			}
		}
		out = append(out, p)
	}
	return out
}

func ids(groups []*model.Group) []uuid.UUID {
	var out []uuid.UUID
	for _, g := range groups {
		for _, p := range g.Members() {
			out = append(out, p.ID())
		}
	}
	slices.SortFunc(out, func(a, b uuid.UUID) int { return slices.Compare(a[:], b[:]) })
	return out
}

func ratings(groups []*model.Group) []int {
	out := make([]int, len(groups))
	for i, g := range groups {
		out[i] = g.Rating()
	}
	return out
}

func TestAssignBalancedGroups(t *testing.T) {
	Convey("Given nine participants rated [5,9,4,7,10,4,3,6,4]", t, func() {
		game := model.NewActivity("HOTS", "MOBA")
		participants := pool(game, 5, 9, 4, 7, 10, 4, 3, 6, 4)
		engine := New(WithRatingSource(rating.NewSequenceSource(0)), WithShuffledResult(false))

		Convey("When assigning groups of three", func() {
			groups, err := engine.Assign(context.Background(), participants, 3, game)

			Convey("Then three full groups should be returned with a gap of at most one", func() {
				So(err, ShouldBeNil)
				So(len(groups), ShouldEqual, 3)
				total := 0
				for _, g := range groups {
					So(g.IsFull(), ShouldBeTrue)
					So(g.TargetSize(), ShouldEqual, 3)
					So(g.Reserve(), ShouldBeEmpty)
					total += g.Rating()
				}
				So(total, ShouldEqual, 52)
				So(maxGap(groups), ShouldBeLessThanOrEqualTo, 1)
				So(ratings(groups), ShouldResemble, []int{17, 18, 17})
			})

			Convey("Then every participant should appear exactly once", func() {
				So(ids(groups), ShouldResemble, ids([]*model.Group{groupOf(game, participants)}))
			})
		})

		Convey("When assigning with the default random source", func() {
			groups, err := New().Assign(context.Background(), participants, 3, game)
			Convey("Then the balance guarantee should still hold", func() {
				So(err, ShouldBeNil)
				So(len(groups), ShouldEqual, 3)
				So(maxGap(groups), ShouldBeLessThanOrEqualTo, 1)
			})
		})
	})

	Convey("Given eight participants and a group size of three", t, func() {
		game := model.NewActivity("CSGO", "Shooter")
		participants := pool(game, 1, 2, 3, 4, 5, 6, 7, 8)

		Convey("When assigning", func() {
			groups, err := New(WithRatingSource(rating.NewSeededSource(7))).Assign(context.Background(), participants, 3, game)

			Convey("Then exactly one group should hold the two leftovers", func() {
				So(err, ShouldBeNil)
				So(len(groups), ShouldEqual, 3)
				partial := 0
				for _, g := range groups {
					So(g.CurrentSize(), ShouldBeLessThanOrEqualTo, g.TargetSize())
					So(g.Reserve(), ShouldBeEmpty)
					if g.CurrentSize() == 2 {
						partial++
					}
				}
				So(partial, ShouldEqual, 1)
				So(ids(groups), ShouldResemble, ids([]*model.Group{groupOf(game, participants)}))
			})
		})
	})

	Convey("Given a pool that is an exact multiple of the group size", t, func() {
		game := model.NewActivity("Chess", "Board")
		participants := pool(game, 3, 3, 3, 3, 1, 1, 1, 1)

		Convey("When assigning groups of two", func() {
			groups, err := New(WithRatingSource(rating.NewSeededSource(1))).Assign(context.Background(), participants, 2, game)
			Convey("Then no overflow group should be returned", func() {
				So(err, ShouldBeNil)
				So(len(groups), ShouldEqual, 4)
				for _, g := range groups {
					So(g.Rating(), ShouldEqual, 4)
				}
			})
		})
	})
}

func TestAssignValidation(t *testing.T) {
	Convey("Given an assignment engine", t, func() {
		game := model.NewActivity("HOTS", "MOBA")
		engine := New(WithRatingSource(rating.NewSequenceSource(0.5)))
		ctx := context.Background()

		Convey("When the same participant is passed twice", func() {
			participants := pool(game, 5, 9, 4, 7, 10, 4, 3, 6)
			participants = append(participants, participants[2])
			groups, err := engine.Assign(ctx, participants, 3, game)

			Convey("Then it should report duplicates and build nothing", func() {
				So(groups, ShouldBeNil)
				So(errors.Is(err, ErrDuplicateParticipants), ShouldBeTrue)
				code, ok := CodeOf(err)
				So(ok, ShouldBeTrue)
				So(code.String(), ShouldEqual, "duplicate_participants")
			})
		})

		Convey("When fewer than two full groups can be formed", func() {
			_, err := engine.Assign(ctx, pool(game, 1, 2, 3, 4, 5), 3, game)
			Convey("Then it should report a size mismatch", func() {
				So(errors.Is(err, ErrSizeMismatch), ShouldBeTrue)
			})
		})

		Convey("When the target size is not positive", func() {
			_, err := engine.Assign(ctx, pool(game, 1, 2), 0, game)
			Convey("Then it should report a size mismatch", func() {
				So(errors.Is(err, ErrSizeMismatch), ShouldBeTrue)
			})
		})

		Convey("When a participant is not rated for the activity", func() {
			_, err := engine.Assign(ctx, pool(game, 1, 2, 0, 4), 2, game)
			Convey("Then it should report incomplete ratings", func() {
				So(errors.Is(err, ErrIncompleteRatings), ShouldBeTrue)
				So(errors.Is(err, ErrSizeMismatch), ShouldBeFalse)
				So(err.Error(), ShouldEqual, "assignment validate: incomplete_ratings")
			})
		})

		Convey("When duplicates and a short pool coincide", func() {
			participants := pool(game, 1, 2)
			participants = append(participants, participants[0])
			_, err := engine.Assign(ctx, participants, 3, game)
			Convey("Then duplicates should be reported first", func() {
				So(errors.Is(err, ErrDuplicateParticipants), ShouldBeTrue)
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := engine.Assign(cctx, pool(game, 1, 2, 3, 4), 2, game)
			Convey("Then the context error should be returned", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})
}

func TestTrySwap(t *testing.T) {
	Convey("Given two full groups rated [2,2] and [4,4]", t, func() {
		game := model.NewActivity("Mario Kart", "Racing")
		low := groupOf(game, pool(game, 2, 2))
		high := groupOf(game, pool(game, 4, 4))
		lowBefore, highBefore := low.Members(), high.Members()
		engine := New(WithRatingSource(rating.NewSequenceSource(0.99)))

		Convey("When trying a swap", func() {
			ok := engine.trySwap(low, high)

			Convey("Then both groups should be rated six", func() {
				So(ok, ShouldBeTrue)
				So(low.Rating(), ShouldEqual, 6)
				So(high.Rating(), ShouldEqual, 6)
			})

			Convey("Then exactly one pair should have changed sides", func() {
				moved := 0
				for _, p := range lowBefore {
					if high.IsMember(p) {
						moved++
					}
				}
				for _, p := range highBefore {
					if low.IsMember(p) {
						moved++
					}
				}
				So(moved, ShouldEqual, 2)
				So(low.CurrentSize(), ShouldEqual, 2)
				So(high.CurrentSize(), ShouldEqual, 2)
			})

			Convey("Then a second swap should find nothing to improve", func() {
				So(engine.trySwap(low, high), ShouldBeFalse)
			})
		})
	})

	Convey("Given groups whose gap is a single point", t, func() {
		game := model.NewActivity("Chess", "Board")
		a := groupOf(game, pool(game, 3, 3))
		b := groupOf(game, pool(game, 2, 3))

		Convey("Then no swap should be attempted", func() {
			So(New().trySwap(a, b), ShouldBeFalse)
			So(a.Rating(), ShouldEqual, 6)
		})
	})

	Convey("Given groups where every swap would overshoot", t, func() {
		game := model.NewActivity("Chess", "Board")
		a := groupOf(game, pool(game, 10, 1))
		b := groupOf(game, pool(game, 1, 1))

		Convey("Then both groups should be left untouched", func() {
			before := a.Rating() - b.Rating()
			So(New().trySwap(a, b), ShouldBeFalse)
			So(a.Rating()-b.Rating(), ShouldEqual, before)
		})
	})

	Convey("Given many random pools", t, func() {
		game := model.NewActivity("Chess", "Board")
		src := rating.NewSeededSource(99)
		engine := New(WithRatingSource(src))

		Convey("Then every committed swap should strictly narrow the gap", func() {
			for round := 0; round < 50; round++ {
				values := make([]int, 6)
				for i := range values {
					values[i] = rating.Intn(src, 10) + 1
				}
				a := groupOf(game, pool(game, values[:3]...))
				b := groupOf(game, pool(game, values[3:]...))
				gap := abs(a.Rating() - b.Rating())
				if engine.trySwap(a, b) {
					So(abs(a.Rating()-b.Rating()), ShouldBeLessThan, gap)
				}
				So(a.CurrentSize()+b.CurrentSize(), ShouldEqual, 6)
			}
		})
	})
}

func TestSnakeDeal(t *testing.T) {
	Convey("Given an ordered pool of seven with group size three", t, func() {
		game := model.NewActivity("Chess", "Board")
		ordered := pool(game, 9, 8, 7, 6, 5, 4, 3)

		Convey("When dealing", func() {
			full, overflow := deal(ordered, 3, game)

			Convey("Then the snake order should include the overflow group", func() {
				So(len(full), ShouldEqual, 2)
				So(overflow.CurrentSize(), ShouldEqual, 1)
				// forward 9,8 -> g0,g1 then overflow 7; backward g1 6, g0 5; forward g0 4, g1 3
				So(full[0].Rating(), ShouldEqual, 9+5+4)
				So(full[1].Rating(), ShouldEqual, 8+6+3)
				So(overflow.Rating(), ShouldEqual, 7)
			})
		})
	})

	Convey("Given the average of a pool", t, func() {
		game := model.NewActivity("Chess", "Board")
		So(average(pool(game, 1, 2), game), ShouldEqual, 2)
		So(average(pool(game, 1, 1, 2), game), ShouldEqual, 1)
		So(average(nil, game), ShouldEqual, 1)
	})
}

func groupOf(activity model.Activity, members []*model.Participant) *model.Group {
	g := model.NewGroup("test", len(members), activity)
	for _, p := range members {
		if !g.AddPrimary(p) {
			panic("member rejected")
		}
	}
	return g
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
