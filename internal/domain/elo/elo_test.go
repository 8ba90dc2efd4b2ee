package elo_test

import (
	"errors"
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/mrelo/internal/domain/elo"
	"github.com/okian/mrelo/internal/domain/params"
)

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func TestProbability(t *testing.T) {
	Convey("Given rating differences", t, func() {
		Convey("Then equal ratings are a coin flip", func() {
			So(elo.Probability(0), ShouldEqual, 0.5)
		})

		Convey("Then the curve is symmetric around zero", func() {
			So(elo.Probability(50), ShouldAlmostEqual, 0.57146311, 1e-8)
			So(elo.Probability(-50), ShouldAlmostEqual, 1-0.57146311, 1e-8)
			So(round(elo.Probability(50), 3), ShouldEqual, 0.571)
			So(round(elo.Probability(-50), 3), ShouldEqual, 0.429)
		})
	})
}

func TestShiftPre(t *testing.T) {
	Convey("Given a team at 1000 and a mean of 500 with half reversion", t, func() {
		cfg := params.Set{params.EloAvg: 500, params.Revert: 0.5}

		Convey("Then the season opener reverts halfway", func() {
			So(elo.ShiftPre(1000, 0, cfg), ShouldEqual, -250)
		})

		Convey("Then later games do not move", func() {
			So(elo.ShiftPre(1000, 3, cfg), ShouldEqual, 0)
		})

		Convey("Then nothing moves without a mean", func() {
			So(elo.ShiftPre(1000, 0, params.Set{params.KStart: 20}), ShouldEqual, 0)
		})
	})
}

func TestPreDiff(t *testing.T) {
	Convey("Given home advantage and rest multipliers", t, func() {
		cfg := params.Set{params.HFAMod: 50, params.RestMul: 10}

		Convey("Then both apply at a home venue", func() {
			So(elo.PreDiff(1500, 1400, 2, 1, false, cfg), ShouldEqual, 160)
		})

		Convey("Then a neutral venue drops home advantage", func() {
			So(elo.PreDiff(1500, 1400, 2, 1, true, cfg), ShouldEqual, 110)
		})

		Convey("Then unset terms are skipped", func() {
			So(elo.PreDiff(1500, 1400, 2, 1, false, params.Set{}), ShouldEqual, 100)
		})
	})
}

func TestShiftPost(t *testing.T) {
	Convey("Given a plain K factor", t, func() {
		Convey("When the underdog loses by two", func() {
			team1, team2 := 1000.0, 1200.0
			shift := elo.ShiftPost(team1-team2, -2, 1, 1, params.Set{params.KStart: 30}, elo.MOVLog)

			Convey("Then the ratings move by about seven points", func() {
				So(math.Round(team1+shift), ShouldEqual, 993)
				So(math.Round(team2-shift), ShouldEqual, 1207)
			})
		})

		Convey("When evenly rated teams meet and team1 wins", func() {
			Convey("Then team1 gains half of K", func() {
				So(elo.ShiftPost(0, 3, 0, 0, params.Set{params.KStart: 10}, elo.MOVLog), ShouldEqual, 5)
			})
		})
	})

	Convey("Given a K factor that changes with games played", t, func() {
		cfg := params.Set{params.KStart: 20, params.KEnd: 10, params.KRate: 4}

		Convey("Then the start value holds up to the rate", func() {
			So(elo.ShiftPost(0, 1, 4, 4, cfg, elo.MOVLog), ShouldEqual, 10)
		})

		Convey("Then the end value applies after it", func() {
			So(elo.ShiftPost(0, 1, 5, 5, cfg, elo.MOVLog), ShouldEqual, 5)
		})
	})

	Convey("Given an autocorrelation adjustment", t, func() {
		cfg := params.Set{params.KStart: 20, params.ACMod: 10, params.ACMul: 0.01}

		Convey("Then a favourite's win is damped", func() {
			want := 20 * (1 - elo.Probability(100)) * (10.0 / 11.0)
			So(elo.ShiftPost(100, 5, 0, 0, cfg, elo.MOVLog), ShouldAlmostEqual, want, 1e-12)
		})

		Convey("Then an underdog's win is amplified", func() {
			want := 20 * (0 - elo.Probability(100)) * (10.0 / 9.0)
			So(elo.ShiftPost(100, -5, 0, 0, cfg, elo.MOVLog), ShouldAlmostEqual, want, 1e-12)
		})
	})

	Convey("Given a margin of victory multiplier", t, func() {
		cfg := params.Set{params.KStart: 20, params.MOVMul: 2, params.MOVMod: 1}

		Convey("Then the log method ignores one-point margins", func() {
			So(elo.ShiftPost(0, -1, 0, 0, cfg, elo.MOVLog), ShouldEqual, -10)
		})

		Convey("Then the log method grows with the margin", func() {
			want := 20 * 0.5 * (2*math.Log(10) + 1)
			So(elo.ShiftPost(0, 10, 0, 0, cfg, elo.MOVLog), ShouldAlmostEqual, want, 1e-12)
		})

		Convey("Then the exp method uses the absolute margin", func() {
			cfg := params.Set{params.KStart: 20, params.MOVMul: 0.5, params.MOVMod: 1}
			So(elo.ShiftPost(0, -3, 0, 0, cfg, elo.MOVExp), ShouldAlmostEqual, -20, 1e-12)
		})
	})
}

func TestCalculator(t *testing.T) {
	Convey("Given a calculator with K = 25", t, func() {
		calc, err := elo.NewCalculator(params.Set{params.KStart: 25})
		So(err, ShouldBeNil)

		Convey("When the home favourite is upset 4-6", func() {
			r := calc.Calc(elo.Input{Pre1: 1250, Pre2: 1070, MOV: 4 - 6})

			Convey("Then the result matches the reference values", func() {
				So(r.Pre1, ShouldEqual, 1250)
				So(r.Pre2, ShouldEqual, 1070)
				So(round(r.Post1, 2), ShouldEqual, 1231.55)
				So(round(r.Post2, 2), ShouldEqual, 1088.45)
				So(round(r.Prob1, 2), ShouldEqual, 0.74)
				So(r.Finite(), ShouldBeTrue)
			})
		})

		Convey("When the match is a draw or unplayed", func() {
			tie := calc.Calc(elo.Input{Pre1: 1250, Pre2: 1070, MOV: 0})
			unplayed := calc.Calc(elo.Input{Pre1: 1250, Pre2: 1070, MOV: math.NaN()})

			Convey("Then ratings do not move but the probability is reported", func() {
				So(tie.Post1, ShouldEqual, 1250)
				So(tie.Post2, ShouldEqual, 1070)
				So(unplayed.Post1, ShouldEqual, 1250)
				So(unplayed.Prob1, ShouldEqual, tie.Prob1)
			})
		})

		Convey("Then Predict matches the pre-match probability", func() {
			in := elo.Input{Pre1: 1250, Pre2: 1070, MOV: -2}
			So(calc.Predict(in), ShouldEqual, calc.Calc(in).Prob1)
		})
	})

	Convey("Given season reversion", t, func() {
		calc, err := elo.NewCalculator(params.Set{params.KStart: 20, params.EloAvg: 1500, params.Revert: 0.5})
		So(err, ShouldBeNil)
		r := calc.Calc(elo.Input{Pre1: 1600, Pre2: 1400, N1: 0, N2: 3, MOV: math.NaN()})

		Convey("Then only the team opening its season reverts", func() {
			So(r.Pre1, ShouldEqual, 1550)
			So(r.Pre2, ShouldEqual, 1400)
		})
	})

	Convey("Given options and invalid sets", t, func() {
		Convey("Then the method option is kept", func() {
			calc, err := elo.NewCalculator(params.Defaults(), elo.WithMOVMethod(elo.MOVExp))
			So(err, ShouldBeNil)
			So(calc.Method(), ShouldEqual, elo.MOVExp)
			So(calc.Params(), ShouldResemble, params.Defaults())
		})

		Convey("Then a set without K is rejected", func() {
			_, err := elo.NewCalculator(params.Set{params.Start: 1000})
			So(errors.Is(err, params.ErrMissingParam), ShouldBeTrue)
		})

		Convey("Then methods parse by name", func() {
			m, err := elo.ParseMethod("EXP")
			So(err, ShouldBeNil)
			So(m, ShouldEqual, elo.MOVExp)
			So(m.String(), ShouldEqual, "exp")
			m, err = elo.ParseMethod("")
			So(err, ShouldBeNil)
			So(m, ShouldEqual, elo.MOVLog)
			_, err = elo.ParseMethod("linear")
			So(errors.Is(err, elo.ErrUnknownMethod), ShouldBeTrue)
		})
	})
}

func TestEnrich(t *testing.T) {
	Convey("Given a short schedule", t, func() {
		games := []elo.Game{
			{Team1: "A", Team2: "B", Score1: 10, Score2: 5, Played1: 1, Played2: 1, Neutral: true},
			{Team1: "B", Team2: "A", Score1: math.NaN(), Score2: math.NaN(), Played1: 2, Played2: 2, Neutral: true},
			{Team1: "A", Team2: "C", Score1: 3, Score2: 3, Played1: 3, Played2: 1, Neutral: true},
		}
		cfg := params.Set{params.Start: 1000, params.KStart: 20}

		Convey("When enriching", func() {
			res, err := elo.Enrich(games, cfg)

			Convey("Then ratings carry from game to game", func() {
				So(err, ShouldBeNil)
				So(len(res), ShouldEqual, 3)
				So(res[0].Post1, ShouldEqual, 1010)
				So(res[0].Post2, ShouldEqual, 990)
				So(res[1].Pre1, ShouldEqual, 990)
				So(res[1].Pre2, ShouldEqual, 1010)
				So(res[1].Prob1, ShouldEqual, elo.Probability(-20))
				So(res[2].Pre1, ShouldEqual, 1010)
				So(res[2].Pre2, ShouldEqual, 1000)
				So(res[2].Post1, ShouldEqual, 1010)
			})

			Convey("Then game helpers describe the outcome", func() {
				So(games[0].Win1(), ShouldEqual, 1)
				So(games[1].Played(), ShouldBeFalse)
				So(games[2].Win1(), ShouldEqual, 0)
			})
		})

		Convey("When the start rating is missing", func() {
			_, err := elo.Enrich(games, params.Set{params.KStart: 20})

			Convey("Then enrichment is refused", func() {
				So(errors.Is(err, params.ErrMissingParam), ShouldBeTrue)
			})
		})

		Convey("When the autocorrelation term divides by zero", func() {
			bad := params.Set{params.Start: 1000, params.KStart: 20, params.HFAMod: 100, params.ACMod: 10, params.ACMul: -0.1}
			_, err := elo.Enrich([]elo.Game{{Team1: "A", Team2: "B", Score1: 2, Score2: 1}}, bad)

			Convey("Then the set is reported as non-finite", func() {
				So(errors.Is(err, elo.ErrNonFinite), ShouldBeTrue)
			})
		})
	})
}
