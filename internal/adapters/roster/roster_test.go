package roster_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/okian/squad/internal/adapters/roster"
	"github.com/okian/squad/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const document = `{
  "players": [
    {"id": "6f1c2d1e-8f7a-4c5b-9d1a-0a1b2c3d4e01", "tag": "AWESOM-O", "first_name": "Jon", "last_name": "Doe",
     "skills": [{"game_id": "0b8e5c3a-1111-4c5b-9d1a-0a1b2c3d4e99", "level": 7}]},
    {"id": "6f1c2d1e-8f7a-4c5b-9d1a-0a1b2c3d4e02", "tag": "McAwesome", "skills": []}
  ],
  "games": [
    {"id": "0b8e5c3a-1111-4c5b-9d1a-0a1b2c3d4e99", "name": "HOTS", "genre": "MOBA"}
  ]
}`

func TestDecode(t *testing.T) {
	Convey("Given a roster document", t, func() {
		Convey("When decoding it", func() {
			r, err := roster.Decode(strings.NewReader(document))

			Convey("Then activities and participants should be linked by id", func() {
				So(err, ShouldBeNil)
				So(len(r.Activities), ShouldEqual, 1)
				So(len(r.Participants), ShouldEqual, 2)

				game, ok := r.ActivityByName("hots")
				So(ok, ShouldBeTrue)
				So(game.Category, ShouldEqual, "MOBA")

				jon := r.Participants[0]
				So(jon.ID(), ShouldEqual, uuid.MustParse("6f1c2d1e-8f7a-4c5b-9d1a-0a1b2c3d4e01"))
				So(jon.FullName(), ShouldEqual, "Jon Doe")
				So(jon.Rating(game), ShouldEqual, 7)
				So(r.Participants[1].IsRated(game), ShouldBeFalse)
			})
		})

		Convey("When a skill references a missing game", func() {
			bad := strings.Replace(document, `"0b8e5c3a-1111-4c5b-9d1a-0a1b2c3d4e99", "level"`, `"0b8e5c3a-2222-4c5b-9d1a-0a1b2c3d4e99", "level"`, 1)
			_, err := roster.Decode(strings.NewReader(bad))
			Convey("Then it should report an unknown activity", func() {
				So(errors.Is(err, roster.ErrUnknownActivity), ShouldBeTrue)
			})
		})

		Convey("When two players share an id", func() {
			bad := strings.Replace(document, "4e02", "4e01", 1)
			_, err := roster.Decode(strings.NewReader(bad))
			Convey("Then it should report a duplicate id", func() {
				So(errors.Is(err, roster.ErrDuplicateID), ShouldBeTrue)
			})
		})

		Convey("When a level is negative", func() {
			bad := strings.Replace(document, `"level": 7`, `"level": -2`, 1)
			_, err := roster.Decode(strings.NewReader(bad))
			Convey("Then the document should be rejected", func() {
				So(errors.Is(err, roster.ErrInvalidDocument), ShouldBeTrue)
				So(errors.Is(err, model.ErrNegativeRating), ShouldBeTrue)
			})
		})

		Convey("When the input is not JSON", func() {
			_, err := roster.Decode(strings.NewReader("players:"))
			Convey("Then it should report an invalid document", func() {
				So(errors.Is(err, roster.ErrInvalidDocument), ShouldBeTrue)
			})
		})
	})
}

func TestEncode(t *testing.T) {
	Convey("Given activities and participants", t, func() {
		chess := model.NewActivity("Chess", "Board")
		hots := model.NewActivity("HOTS", "MOBA")
		zed := model.NewParticipant("zed")
		amy := model.NewParticipant("amy", model.WithName("Amy", "Pond"))
		So(amy.Assess(hots, 4), ShouldBeNil)
		So(amy.Assess(chess, 2), ShouldBeNil)

		Convey("When encoding", func() {
			var buf bytes.Buffer
			So(roster.Encode(&buf, []model.Activity{hots, chess}, []*model.Participant{zed, nil, amy}), ShouldBeNil)

			Convey("Then the document should be sorted and decode to the same graph", func() {
				doc := roster.ToDocument([]model.Activity{hots, chess}, []*model.Participant{zed, amy})
				So(doc.Players[0].Tag, ShouldEqual, "amy")
				So(doc.Games[0].Name, ShouldEqual, "Chess")
				So(doc.Players[0].Skills, ShouldResemble, []roster.SkillDoc{{GameID: chess.ID, Level: 2}, {GameID: hots.ID, Level: 4}})

				back, err := roster.Decode(&buf)
				So(err, ShouldBeNil)
				So(len(back.Participants), ShouldEqual, 2)
				So(back.Participants[0].ID(), ShouldEqual, amy.ID())
				So(back.Participants[0].Rating(hots), ShouldEqual, 4)
				So(back.Participants[1].Assessments(), ShouldBeEmpty)
			})
		})
	})
}
