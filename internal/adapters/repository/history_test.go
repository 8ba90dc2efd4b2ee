package repository

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/mrelo/internal/domain/elo"
	"github.com/okian/mrelo/internal/domain/model"
	"github.com/okian/mrelo/internal/domain/rating"
	"github.com/okian/mrelo/pkg/dorm"
	"github.com/okian/mrelo/pkg/logger"
)

func outcome(id, home, away string, hs, as float64, at time.Time, pre1, pre2, post1, post2, prob float64) rating.Outcome {
	return rating.Outcome{
		Match: model.Match{MatchID: id, Home: home, Away: away, HomeScore: hs, AwayScore: as, PlayedAt: at},
		Result: elo.Result{
			Pre1:  pre1,
			Pre2:  pre2,
			Post1: post1,
			Post2: post2,
			Prob1: prob,
		},
	}
}

func TestHistoryStore(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2024, 3, 1, 19, 0, 0, 0, time.UTC)

	Convey("Given an in-memory history store", t, func() {
		h, err := NewHistoryStore(ctx, ":memory:", WithHistoryLogger(logger.Nop()))
		So(err, ShouldBeNil)
		defer h.Close()

		Convey("When nothing is stored", func() {
			s, err := h.Summary(ctx)

			Convey("Then the summary is empty", func() {
				So(err, ShouldBeNil)
				So(s, ShouldResemble, Summary{})
			})
		})

		Convey("When three matches are recorded", func() {
			So(h.Record(ctx, outcome("m1", "BOS", "NYK", 110, 100, day, 1500, 1500, 1510, 1490, 0.6)), ShouldBeNil)
			So(h.Record(ctx, outcome("m2", "LAL", "BOS", 95, 105, day.AddDate(0, 0, 2), 1500, 1510, 1491, 1519, 0.55)), ShouldBeNil)
			neutral := outcome("m3", "NYK", "LAL", 100, 100, day.AddDate(0, 0, 4), 1490, 1491, 1490, 1491, 0.5)
			neutral.Match.Neutral = true
			So(h.Record(ctx, neutral), ShouldBeNil)

			Convey("Then a team's history reads from its side, newest first", func() {
				rows, err := h.Team(ctx, "BOS", 10)
				So(err, ShouldBeNil)
				So(len(rows), ShouldEqual, 2)

				So(rows[0].MatchID, ShouldEqual, "m2")
				So(rows[0].Home, ShouldBeFalse)
				So(rows[0].Opponent, ShouldEqual, "LAL")
				So(rows[0].Score, ShouldEqual, 105)
				So(rows[0].OpponentScore, ShouldEqual, 95)
				So(rows[0].RatingPre, ShouldEqual, 1510)
				So(rows[0].RatingPost, ShouldEqual, 1519)
				So(rows[0].WinProb, ShouldAlmostEqual, 0.45, 1e-12)
				So(rows[0].PlayedAt.Equal(day.AddDate(0, 0, 2)), ShouldBeTrue)
				So(rows[0].Season, ShouldEqual, "2024")

				So(rows[1].MatchID, ShouldEqual, "m1")
				So(rows[1].Home, ShouldBeTrue)
				So(rows[1].WinProb, ShouldEqual, 0.6)
			})

			Convey("Then the limit caps the rows", func() {
				rows, err := h.Team(ctx, "LAL", 1)
				So(err, ShouldBeNil)
				So(len(rows), ShouldEqual, 1)
				So(rows[0].MatchID, ShouldEqual, "m3")
				So(rows[0].Neutral, ShouldBeTrue)
			})

			Convey("Then unknown teams have no history", func() {
				rows, err := h.Team(ctx, "O'Neal", 5)
				So(err, ShouldBeNil)
				So(rows, ShouldBeEmpty)
			})

			Convey("Then the summary aggregates every match", func() {
				s, err := h.Summary(ctx)
				So(err, ShouldBeNil)
				So(s.Matches, ShouldEqual, 3)
				So(s.HomeWinRate, ShouldAlmostEqual, 1.0/3, 1e-12)
				So(s.AvgMargin, ShouldAlmostEqual, 0, 1e-12)
				So(s.StdevMargin, ShouldAlmostEqual, 10, 1e-9)
				So(s.AvgProbHome, ShouldAlmostEqual, 0.55, 1e-12)
			})

			Convey("Then matches stream back in insertion order", func() {
				var ids []string
				err := h.Matches(ctx, func(m model.Match) error {
					ids = append(ids, m.MatchID)
					return nil
				})
				So(err, ShouldBeNil)
				So(ids, ShouldResemble, []string{"m1", "m2", "m3"})
			})

			Convey("Then a callback error stops the stream", func() {
				stop := errors.New("stop")
				n := 0
				err := h.Matches(ctx, func(model.Match) error {
					n++
					return stop
				})
				So(err, ShouldEqual, stop)
				So(n, ShouldEqual, 1)
			})
		})

		Convey("When arguments are invalid", func() {
			_, err := h.Team(ctx, "", 5)
			So(err, ShouldEqual, ErrInvalidTeam)
			_, err = h.Team(ctx, "BOS", 0)
			So(err, ShouldEqual, ErrInvalidLimit)
		})
	})

	Convey("Given a history store over a failing driver", t, func() {
		db, mock, err := sqlmock.New()
		So(err, ShouldBeNil)
		h := &HistoryStore{
			db:    dorm.New("", dorm.WithConn(db), dorm.WithTable("matches")),
			table: "matches",
			log:   logger.Nop(),
		}

		Convey("When a query fails", func() {
			mock.ExpectQuery("SELECT COUNT").WillReturnError(errors.New("database is locked"))
			_, err := h.Summary(ctx)

			Convey("Then the error is wrapped", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "history: summary")
				So(err.Error(), ShouldContainSubstring, "database is locked")
				So(mock.ExpectationsWereMet(), ShouldBeNil)
			})
		})

		Convey("When an insert fails", func() {
			mock.ExpectBegin()
			mock.ExpectPrepare("INSERT INTO matches").ExpectExec().WillReturnError(errors.New("disk I/O error"))
			mock.ExpectRollback()
			err := h.Record(ctx, outcome("m1", "BOS", "NYK", 1, 0, time.Now(), 1, 1, 1, 1, math.NaN()))

			Convey("Then the match id is reported", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "record m1")
				So(mock.ExpectationsWereMet(), ShouldBeNil)
			})
		})

		Convey("When it is closed", func() {
			mock.ExpectClose()
			So(h.Close(), ShouldBeNil)
			So(mock.ExpectationsWereMet(), ShouldBeNil)
		})
	})
}
