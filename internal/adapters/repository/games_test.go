package repository

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/mrelo/internal/domain/model"
	"github.com/okian/mrelo/pkg/logger"
)

const scheduleCSV = `date,season,neutral,team1,team2,score1,score2
2023-10-24,2024,0,DEN,LAL,119,107
2023-10-24,2024,0,GSW,PHX,104,108
2023-10-26, 2024,1,LAL,PHX,100,95
2024-04-20,2024,0,DEN,LAL,,
`

func TestReadGamesCSV(t *testing.T) {
	Convey("Given a schedule file", t, func() {
		games, err := ReadGamesCSV(strings.NewReader(scheduleCSV))
		So(err, ShouldBeNil)

		Convey("Then every row becomes a match", func() {
			So(len(games), ShouldEqual, 4)
			g := games[0]
			So(g.Home, ShouldEqual, "DEN")
			So(g.Away, ShouldEqual, "LAL")
			So(g.HomeScore, ShouldEqual, 119)
			So(g.Season, ShouldEqual, "2024")
			So(g.PlayedAt.Equal(time.Date(2023, 10, 24, 0, 0, 0, 0, time.UTC)), ShouldBeTrue)
			So(games[2].Neutral, ShouldBeTrue)
			So(math.IsNaN(games[3].HomeScore), ShouldBeTrue)
		})

		Convey("Then missing IDs are derived and stable", func() {
			again, err := ReadGamesCSV(strings.NewReader(scheduleCSV))
			So(err, ShouldBeNil)
			So(games[0].MatchID, ShouldNotBeBlank)
			So(games[0].MatchID, ShouldEqual, again[0].MatchID)
			So(games[0].MatchID, ShouldNotEqual, games[1].MatchID)
		})

		Convey("Then writing it out reads back the same games", func() {
			var buf strings.Builder
			So(WriteGamesCSV(&buf, games), ShouldBeNil)
			So(buf.String(), ShouldContainSubstring, ",DEN,LAL,,,false\n")

			back, err := ReadGamesCSV(strings.NewReader(buf.String()))
			So(err, ShouldBeNil)
			So(back, ShouldHaveLength, len(games))
			for i := range games {
				So(back[i].MatchID, ShouldEqual, games[i].MatchID)
				So(back[i].PlayedAt.Equal(games[i].PlayedAt), ShouldBeTrue)
				So(back[i].Neutral, ShouldEqual, games[i].Neutral)
			}
			So(back[0].HomeScore, ShouldEqual, 119)
			So(math.IsNaN(back[3].AwayScore), ShouldBeTrue)
		})
	})

	Convey("Given broken files", t, func() {
		cases := []string{
			"",
			"date,team1,team2,score1\n2024-01-01,A,B,1\n",
			"date,team1,team2,score1,score2\nyesterday,A,B,1,2\n",
			"date,team1,team2,score1,score2\n2024-01-01,A,B,x,2\n",
			"date,team1,team2,score1,score2,neutral\n2024-01-01,A,B,1,2,maybe\n",
			"date,team1,team2,score1,score2\n2024-01-01,,B,1,2\n",
		}

		Convey("Then each is rejected", func() {
			for _, c := range cases {
				_, err := ReadGamesCSV(strings.NewReader(c))
				So(errors.Is(err, ErrBadCSV), ShouldBeTrue)
			}
		})
	})
}

func TestGameStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given an in-memory game store", t, func() {
		g, err := NewGameStore(ctx, ":memory:", WithGameLogger(logger.Nop()))
		So(err, ShouldBeNil)
		defer g.Close()

		games, err := ReadGamesCSV(strings.NewReader(scheduleCSV))
		So(err, ShouldBeNil)

		Convey("When the schedule is imported", func() {
			n, err := g.Import(ctx, games)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 4)

			Convey("Then it loads back in play order", func() {
				out, err := g.Load(ctx, GameFilter{})
				So(err, ShouldBeNil)
				So(len(out), ShouldEqual, 4)
				So(out[0].MatchID, ShouldEqual, games[0].MatchID)
				So(out[2].Neutral, ShouldBeTrue)
				So(out[2].AwayScore, ShouldEqual, 95)
				So(math.IsNaN(out[3].HomeScore), ShouldBeTrue)
				So(out[3].PlayedAt.Equal(games[3].PlayedAt), ShouldBeTrue)

				count, err := g.Count(ctx)
				So(err, ShouldBeNil)
				So(count, ShouldEqual, 4)
			})

			Convey("Then filters narrow the result", func() {
				out, err := g.Load(ctx, GameFilter{Team: "PHX"})
				So(err, ShouldBeNil)
				So(len(out), ShouldEqual, 2)

				out, err = g.Load(ctx, GameFilter{
					From: time.Date(2023, 10, 25, 0, 0, 0, 0, time.UTC),
					To:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				})
				So(err, ShouldBeNil)
				So(len(out), ShouldEqual, 1)
				So(out[0].Home, ShouldEqual, "LAL")

				out, err = g.Load(ctx, GameFilter{Season: "2023"})
				So(err, ShouldBeNil)
				So(out, ShouldBeEmpty)
			})

			Convey("Then the builder can aggregate the table", func() {
				rows, err := g.DB().Select("team1", "COUNT(*)").Group("team1").Groups(ctx)
				So(err, ShouldBeNil)
				So(rows["DEN"]["COUNT(*)"], ShouldEqual, int64(2))
			})
		})

		Convey("When more games than one batch are imported", func() {
			many := make([]model.Match, 0, importBatch+3)
			for i := range importBatch + 3 {
				many = append(many, model.Match{
					MatchID:   "g" + strconv.Itoa(i),
					Home:      "A",
					Away:      "B",
					HomeScore: 1,
					PlayedAt:  time.Date(2024, 1, 1, 0, 0, i, 0, time.UTC),
				})
			}
			n, err := g.Import(ctx, many)

			Convey("Then all of them are stored", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, importBatch+3)
			})
		})
	})
}
