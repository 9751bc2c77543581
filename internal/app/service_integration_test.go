package service_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/okian/squad/internal/adapters/roster"
	service "github.com/okian/squad/internal/app"
	"github.com/okian/squad/internal/domain/model"
	"github.com/okian/squad/internal/domain/rating"
	. "github.com/smartystreets/goconvey/convey"
)

// seedRoster registers one activity and one participant per level.
func seedRoster(ctx context.Context, svc *service.Service, levels ...int) (model.Activity, []uuid.UUID) {
	game, err := svc.RegisterActivity(ctx, "HOTS", "MOBA")
	So(err, ShouldBeNil)

	ids := make([]uuid.UUID, 0, len(levels))
	for i, level := range levels {
		p, err := svc.RegisterParticipant(ctx, service.ParticipantInput{
			Tag:       fmt.Sprintf("player%02d", i),
			FirstName: "Player",
			LastName:  fmt.Sprint(i),
		})
		So(err, ShouldBeNil)
		p, err = svc.Assess(ctx, p.ID(), game.ID, level)
		So(err, ShouldBeNil)
		So(p.Rating(game), ShouldEqual, level)
		ids = append(ids, p.ID())
	}
	return game, ids
}

func TestServiceIntegration(t *testing.T) {
	for _, backend := range []string{service.StorageMemory, service.StorageSQLite} {
		Convey("Given a service backed by "+backend, t, func() {
			svc := service.New(
				service.WithStorage(backend, filepath.Join(t.TempDir(), "squad.db")),
				service.WithRandomSeed(7),
			)
			defer svc.Stop()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			So(svc.Start(ctx), ShouldBeNil)

			game, ids := seedRoster(ctx, svc, 9, 8, 7, 6, 5, 4, 3, 2)

			Convey("When listing the roster", func() {
				participants, err := svc.ListParticipants(ctx)
				So(err, ShouldBeNil)
				activities, err := svc.ListActivities(ctx)
				So(err, ShouldBeNil)

				Convey("Then every registration should be visible", func() {
					So(len(participants), ShouldEqual, 8)
					So(participants[0].Tag, ShouldEqual, "player00")
					So(activities, ShouldResemble, []model.Activity{game})
					stats := svc.GetStats()
					So(stats["participants"], ShouldEqual, 8)
					So(stats["activities"], ShouldEqual, 1)
				})
			})

			Convey("When generating groups of three from every rated participant", func() {
				groups, err := svc.GenerateGroups(ctx, service.GroupRequest{ActivityID: game.ID, Size: 3})
				So(err, ShouldBeNil)

				Convey("Then eight participants should form three groups", func() {
					So(len(groups), ShouldEqual, 3)
					seen := make(map[uuid.UUID]bool)
					sizes := make(map[int]int)
					total := 0
					for _, g := range groups {
						So(len(g.Reserve()), ShouldEqual, 0)
						sizes[g.CurrentSize()]++
						total += g.Rating()
						for _, p := range g.Members() {
							So(seen[p.ID()], ShouldBeFalse)
							seen[p.ID()] = true
						}
					}
					So(sizes, ShouldResemble, map[int]int{3: 2, 2: 1})
					So(total, ShouldEqual, 44)
				})
			})

			Convey("When generating groups from an explicit subset", func() {
				groups, err := svc.GenerateGroups(ctx, service.GroupRequest{
					ActivityID:     game.ID,
					ParticipantIDs: ids[:4],
					Size:           2,
				})
				So(err, ShouldBeNil)

				Convey("Then the subset should be split evenly", func() {
					So(len(groups), ShouldEqual, 2)
					// 9+8+7+6 splits into 15 and 15
					So(groups[0].Rating(), ShouldEqual, 15)
					So(groups[1].Rating(), ShouldEqual, 15)
				})
			})

			Convey("When generating matches", func() {
				matches, err := svc.GenerateMatches(ctx, service.GroupRequest{ActivityID: game.ID, Size: 2})
				So(err, ShouldBeNil)

				Convey("Then four groups should form two full matches", func() {
					So(len(matches), ShouldEqual, 2)
					for _, m := range matches {
						So(m.HasOpponent(), ShouldBeTrue)
						So(m.Home, ShouldNotEqual, m.Away)
					}
				})
			})

			Convey("When completing a partially staffed group", func() {
				result, err := svc.CompleteGroup(ctx, service.CompletionRequest{
					ActivityID:   game.ID,
					Name:         "Reds",
					Size:         4,
					MemberIDs:    ids[:2],
					CandidateIDs: ids[2:],
					Min:          22,
					Max:          24,
				})
				So(err, ShouldBeNil)

				Convey("Then the group should be full and within the range", func() {
					So(len(result.Selection), ShouldEqual, 2)
					So(result.Group.Name(), ShouldEqual, "Reds")
					So(result.Group.IsFull(), ShouldBeTrue)
					So(result.InRange, ShouldBeTrue)
					So(result.Group.Rating(), ShouldBeBetweenOrEqual, 22, 24)
				})
			})

			Convey("When a member is also offered as a candidate", func() {
				_, err := svc.CompleteGroup(ctx, service.CompletionRequest{
					ActivityID:   game.ID,
					Size:         3,
					MemberIDs:    ids[:1],
					CandidateIDs: ids[:4],
					Min:          1,
					Max:          30,
				})

				Convey("Then the request should be rejected", func() {
					So(err, ShouldNotBeNil)
				})
			})

			Convey("When exporting and importing the roster", func() {
				var buf bytes.Buffer
				So(svc.ExportRoster(ctx, &buf), ShouldBeNil)

				doc, err := roster.Decode(bytes.NewReader(buf.Bytes()))
				So(err, ShouldBeNil)
				So(len(doc.Participants), ShouldEqual, 8)

				other := service.New(service.WithRatingSource(rating.NewSeededSource(1)))
				So(other.Start(ctx), ShouldBeNil)
				defer other.Stop()
				participants, activities, err := other.ImportRoster(ctx, &buf)

				Convey("Then the copy should hold the same roster", func() {
					So(err, ShouldBeNil)
					So(participants, ShouldEqual, 8)
					So(activities, ShouldEqual, 1)
					list, err := other.ListParticipants(ctx)
					So(err, ShouldBeNil)
					So(list[0].ID(), ShouldEqual, ids[0])
					So(list[0].Rating(game), ShouldEqual, 9)
				})
			})

			Convey("When importing a malformed document", func() {
				_, _, err := svc.ImportRoster(ctx, strings.NewReader("{not json"))

				Convey("Then the input should be rejected and the roster kept", func() {
					So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
					list, err := svc.ListParticipants(ctx)
					So(err, ShouldBeNil)
					So(len(list), ShouldEqual, 8)
				})
			})
		})
	}
}

func TestServiceRosterOnStart(t *testing.T) {
	Convey("Given a roster file on disk", t, func() {
		game := model.NewActivity("Chess", "Board")
		amy := model.NewParticipant("amy")
		So(amy.Assess(game, 3), ShouldBeNil)
		bob := model.NewParticipant("bob")
		So(bob.Assess(game, 4), ShouldBeNil)

		path := filepath.Join(t.TempDir(), "roster.json")
		f, err := os.Create(path)
		So(err, ShouldBeNil)
		So(roster.Encode(f, []model.Activity{game}, []*model.Participant{amy, bob}), ShouldBeNil)
		So(f.Close(), ShouldBeNil)

		Convey("When the service starts with it", func() {
			svc := service.New(service.WithRosterPath(path))
			So(svc.Start(context.Background()), ShouldBeNil)
			defer svc.Stop()

			Convey("Then the roster should be loaded", func() {
				stats := svc.GetStats()
				So(stats["participants"], ShouldEqual, 2)
				So(stats["activities"], ShouldEqual, 1)

				groups, err := svc.GenerateGroups(context.Background(), service.GroupRequest{ActivityID: game.ID, Size: 1})
				So(err, ShouldBeNil)
				So(len(groups), ShouldEqual, 2)
			})
		})
	})
}
