package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	dedupe "github.com/okian/mrelo/internal/domain/dedupe"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new InMemoryDeduper", t, func() {
		d := dedupe.NewInMemoryDeduper()

		Convey("Then it starts empty", func() {
			So(d, ShouldNotBeNil)
			So(d.Size(), ShouldEqual, 0)
		})

		Convey("When a match id is new", func() {
			seen := d.SeenAndRecord(ctx, "match-1")

			Convey("Then it is recorded", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And submitting it again reports it as seen", func() {
				So(d.SeenAndRecord(ctx, "match-1"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And unrecording it allows a retry", func() {
				d.Unrecord(ctx, "match-1")
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "match-1"), ShouldBeFalse)
			})
		})

		Convey("When unrecording an unknown id", func() {
			d.Unrecord(ctx, "nope")

			Convey("Then nothing changes", func() {
				So(d.Size(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a bounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
		for _, id := range []string{"a", "b", "c"} {
			So(d.SeenAndRecord(ctx, id), ShouldBeFalse)
		}

		Convey("When a fourth id arrives", func() {
			So(d.SeenAndRecord(ctx, "d"), ShouldBeFalse)

			Convey("Then the oldest id is forgotten", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "b"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "c"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "d"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "a"), ShouldBeFalse)
			})
		})

		Convey("When a middle id is unrecorded first", func() {
			d.Unrecord(ctx, "b")
			So(d.SeenAndRecord(ctx, "d"), ShouldBeFalse)

			Convey("Then no eviction was needed", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "a"), ShouldBeTrue)
			})
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
		for i := range 1000 {
			d.SeenAndRecord(ctx, fmt.Sprintf("m-%d", i))
		}

		Convey("Then it keeps every id", func() {
			So(d.Size(), ShouldEqual, 1000)
			So(d.SeenAndRecord(ctx, "m-0"), ShouldBeTrue)
		})
	})

	Convey("Given concurrent submissions of the same ids", t, func() {
		d := dedupe.NewInMemoryDeduper()
		var (
			wg    sync.WaitGroup
			mu    sync.Mutex
			fresh int
		)
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range 100 {
					if !d.SeenAndRecord(ctx, fmt.Sprintf("m-%d", i)) {
						mu.Lock()
						fresh++
						mu.Unlock()
					}
				}
			}()
		}
		wg.Wait()

		Convey("Then each id is accepted exactly once", func() {
			So(fresh, ShouldEqual, 100)
			So(d.Size(), ShouldEqual, 100)
		})
	})
}
