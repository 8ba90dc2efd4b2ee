package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"

	app "github.com/okian/mrelo/internal/app"
	"github.com/okian/mrelo/internal/config"
	"github.com/okian/mrelo/internal/domain/types"
	"github.com/okian/mrelo/pkg/logger"
	"github.com/okian/mrelo/pkg/metrics"
)

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("MRELO_ADDR", ":8080")
			_ = os.Setenv("MRELO_QUEUE_SIZE", "1000")
			_ = os.Setenv("MRELO_MOV_METHOD", "exp")
			defer func() {
				_ = os.Unsetenv("MRELO_ADDR")
				_ = os.Unsetenv("MRELO_QUEUE_SIZE")
				_ = os.Unsetenv("MRELO_MOV_METHOD")
			}()

			convey.Convey("Then the service can be built from it", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.EventQueueSize, convey.ShouldEqual, 1000)

				svc, err := newService(cfg, logger.Nop())
				convey.So(err, convey.ShouldBeNil)
				convey.So(svc.GetStats(context.Background())["movMethod"], convey.ShouldEqual, "exp")
			})
		})

		convey.Convey("When the parameter overrides are invalid", func() {
			cfg := config.New()
			cfg.EloParams = map[string]float64{"gravity": 1}

			convey.Convey("Then no service is built", func() {
				svc, err := newService(cfg, logger.Nop())
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(svc, convey.ShouldBeNil)
			})
		})

		convey.Convey("When testing metrics initialization", func() {
			convey.Convey("Then metrics manager should be creatable", func() {
				manager := metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))
				convey.So(manager, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When testing system metrics updater", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.Convey("Then it returns once ctx is done", func() {
				convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When testing service metrics updater", func() {
			svc := app.New(app.WithLogger(logger.Nop()))
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.Convey("Then it returns once ctx is done", func() {
				convey.So(func() { startServiceMetricsUpdater(ctx, svc) }, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When updating metrics directly", func() {
			svc := app.New(app.WithLogger(logger.Nop()))

			convey.Convey("Then neither updater panics", func() {
				convey.So(updateSystemMetrics, convey.ShouldNotPanic)
				convey.So(func() { updateServiceMetrics(context.Background(), svc) }, convey.ShouldNotPanic)
			})
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given a started service behind the full mux", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.DBPath = ""

		svc, err := newService(cfg, logger.Nop())
		convey.So(err, convey.ShouldBeNil)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		srv := httptest.NewServer(newMux(ctx, svc, cfg.MaxLeaderboardLimit))
		defer srv.Close()

		convey.Convey("When a match is posted", func() {
			body := `{"match_id":"g1","home":"BOS","away":"NYK","home_score":110,"away_score":100,"played_at":"2024-01-02T00:00:00Z"}`
			resp, err := http.Post(srv.URL+"/matches", "application/json", strings.NewReader(body))
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusAccepted)

			convey.Convey("Then the winner leads the leaderboard", func() {
				var entries []types.Entry
				deadline := time.Now().Add(2 * time.Second)
				for time.Now().Before(deadline) {
					r, err := http.Get(srv.URL + "/leaderboard")
					convey.So(err, convey.ShouldBeNil)
					entries = nil
					_ = json.NewDecoder(r.Body).Decode(&entries)
					_ = r.Body.Close()
					if len(entries) == 2 {
						break
					}
					time.Sleep(10 * time.Millisecond)
				}
				convey.So(len(entries), convey.ShouldEqual, 2)
				convey.So(entries[0].Team, convey.ShouldEqual, "BOS")
				convey.So(entries[0].Rank, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the docs are requested", func() {
			resp, err := http.Get(srv.URL + "/openapi.yaml")
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()

			convey.Convey("Then they are served next to the API", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			})
		})

		convey.Convey("When history is requested without a database", func() {
			resp, err := http.Get(srv.URL + "/history/BOS")
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()

			convey.Convey("Then it is unavailable", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusServiceUnavailable)
			})
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a cancelled context", t, func() {
		cfg := config.New()
		cfg.Addr = "127.0.0.1:0"
		cfg.DBPath = ""
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		convey.Convey("Then run starts and shuts down cleanly", func() {
			convey.So(run(ctx, cfg, logger.Nop()), convey.ShouldBeNil)
		})
	})
}
