package params_test

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/mrelo/internal/domain/params"
)

func TestParams(t *testing.T) {
	Convey("Given the parameter table", t, func() {
		Convey("Then params are ordered by gene index", func() {
			all := params.All()
			So(len(all), ShouldEqual, 12)
			So(all[0], ShouldEqual, params.Start)
			So(all[11], ShouldEqual, params.MOVMod)
			So(params.KStart.String(), ShouldEqual, "k_start")
			So(params.HFAMod.Desc(), ShouldEqual, "home field advantage")
			So(params.Param(42).String(), ShouldEqual, "unknown")
		})

		Convey("Then keys resolve back to params", func() {
			p, ok := params.Lookup("mov_mul")
			So(ok, ShouldBeTrue)
			So(p, ShouldEqual, params.MOVMul)
			_, ok = params.Lookup("nope")
			So(ok, ShouldBeFalse)
		})
	})
}

func TestSpace(t *testing.T) {
	Convey("Given search spaces", t, func() {
		Convey("When enumerating the start grid", func() {
			grid := params.Start.Space().Grid()

			Convey("Then the high bound is excluded", func() {
				So(len(grid), ShouldEqual, 140)
				So(grid[0], ShouldEqual, 800)
				So(grid[len(grid)-1], ShouldEqual, 1495)
			})
		})

		Convey("When enumerating fractional steps", func() {
			grid := params.Revert.Space().Grid()

			Convey("Then values are free of float drift", func() {
				So(len(grid), ShouldEqual, 50)
				So(grid[1], ShouldEqual, 0.06)
				So(grid[49], ShouldEqual, 0.54)
			})
		})

		Convey("When sampling", func() {
			rng := rand.New(rand.NewPCG(1, 2))
			space := params.ACMul.Space()

			Convey("Then every draw is a grid point inside the range", func() {
				for i := 0; i < 200; i++ {
					v := space.Sample(rng)
					So(space.Contains(v), ShouldBeTrue)
					steps := (v - space.Low) / space.Step
					So(math.Abs(steps-math.Round(steps)), ShouldBeLessThan, 1e-6)
				}
			})
		})

		Convey("When the space is empty", func() {
			s := params.Space{Low: 1, High: 1, Step: 1}

			Convey("Then it has no points and samples its low bound", func() {
				So(s.Len(), ShouldEqual, 0)
				So(s.Sample(rand.New(rand.NewPCG(1, 1))), ShouldEqual, 1)
			})
		})
	})
}

func TestSet(t *testing.T) {
	Convey("Given parameter sets", t, func() {
		Convey("Then the defaults validate", func() {
			So(params.Defaults().Validate(), ShouldBeNil)
		})

		Convey("Then k_start is required", func() {
			err := params.Set{params.Start: 1000}.Validate()
			So(errors.Is(err, params.ErrMissingParam), ShouldBeTrue)
		})

		Convey("Then dependent params must come in pairs", func() {
			for _, s := range []params.Set{
				{params.KStart: 20, params.EloAvg: 1500},
				{params.KStart: 20, params.ACMod: 7},
				{params.KStart: 20, params.MOVMul: 0.5},
				{params.KStart: 20, params.KRate: 8},
			} {
				So(errors.Is(s.Validate(), params.ErrMissingParam), ShouldBeTrue)
			}
		})

		Convey("Then genes round-trip through a full set", func() {
			genes := params.Defaults().Genes()
			s, err := params.FromGenes(genes)
			So(err, ShouldBeNil)
			So(s, ShouldResemble, params.Defaults())

			_, err = params.FromGenes(genes[:3])
			So(errors.Is(err, params.ErrGeneCount), ShouldBeTrue)
		})

		Convey("Then unset genes are NaN", func() {
			genes := params.Set{params.KStart: 10}.Genes()
			So(genes[params.KStart], ShouldEqual, 10)
			So(math.IsNaN(genes[params.Start]), ShouldBeTrue)
		})

		Convey("Then Parse accepts keys and gene indexes", func() {
			s, err := params.Parse(map[string]float64{"k_start": 25, " HFA_MOD ": 60, "0": 1200})
			So(err, ShouldBeNil)
			So(s.Get(params.KStart), ShouldEqual, 25)
			So(s.Get(params.HFAMod), ShouldEqual, 60)
			So(s.Get(params.Start), ShouldEqual, 1200)

			_, err = params.Parse(map[string]float64{"k_middle": 1})
			So(errors.Is(err, params.ErrUnknownParam), ShouldBeTrue)
			_, err = params.Parse(map[string]float64{"99": 1})
			So(errors.Is(err, params.ErrUnknownParam), ShouldBeTrue)
		})

		Convey("Then names, pretty values and text follow gene order", func() {
			s := params.Set{params.KStart: 25, params.Start: 1200, params.Revert: 0.123456789}
			So(s.Names(), ShouldResemble, []string{"start", "revert", "k_start"})
			So(s.Pretty(2), ShouldResemble, map[string]float64{"start": 1200, "revert": 0.12, "k_start": 25})
			So(s.String(), ShouldEqual, "{start: 1200, revert: 0.12346, k_start: 25}")
		})

		Convey("Then clones are independent", func() {
			a := params.Defaults()
			b := a.Clone()
			b[params.KStart] = 99
			So(a.Get(params.KStart), ShouldEqual, 20)
		})
	})
}
