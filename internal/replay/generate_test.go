package replay_test

import (
	"math"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/mrelo/internal/replay"
)

func TestGenerate(t *testing.T) {
	convey.Convey("Given a seeded configuration", t, func() {
		cfg := replay.GenerateConfig{
			Teams:    5,
			Rounds:   10,
			Unplayed: 2,
			Seed:     42,
			Start:    time.Date(2024, 10, 22, 0, 0, 0, 0, time.UTC),
		}
		games := replay.Generate(cfg)

		convey.Convey("Then every team plays once per round", func() {
			convey.So(games, convey.ShouldHaveLength, 30)
			seen := map[string]bool{}
			for _, g := range games[:3] {
				convey.So(seen[g.Home] || seen[g.Away], convey.ShouldBeFalse)
				seen[g.Home], seen[g.Away] = true, true
			}
			convey.So(seen, convey.ShouldHaveLength, 6)
		})

		convey.Convey("Then played games are valid and never tied", func() {
			for _, g := range games[:24] {
				convey.So(g.Validate(), convey.ShouldBeNil)
				convey.So(g.HomeScore, convey.ShouldNotEqual, g.AwayScore)
				convey.So(g.Season, convey.ShouldEqual, "2024")
			}
		})

		convey.Convey("Then the trailing rounds are unplayed", func() {
			for _, g := range games[24:] {
				convey.So(math.IsNaN(g.HomeScore), convey.ShouldBeTrue)
				convey.So(g.PlayedAt.After(games[23].PlayedAt), convey.ShouldBeTrue)
			}
		})

		convey.Convey("Then the same seed yields the same season", func() {
			again := replay.Generate(cfg)
			for i := range games[:24] {
				convey.So(again[i], convey.ShouldResemble, games[i])
			}
		})

		convey.Convey("Then match IDs are unique", func() {
			ids := map[string]struct{}{}
			for _, g := range games {
				ids[g.MatchID] = struct{}{}
			}
			convey.So(ids, convey.ShouldHaveLength, len(games))
		})
	})
}
