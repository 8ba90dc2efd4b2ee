package cli

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/mrelo/internal/adapters/http/api"
	service "github.com/okian/mrelo/internal/app"
	"github.com/okian/mrelo/pkg/logger"
)

const scheduleCSV = `date,season,team1,team2,score1,score2,neutral
2024-01-01,2024,ATL,BOS,101,99,0
2024-01-01,2024,CHI,DAL,95,110,0
2024-01-02,2024,BOS,CHI,120,100,0
2024-01-02,2024,DAL,ATL,98,104,0
2024-01-04,2024,ATL,CHI,88,90,1
2024-01-04,2024,BOS,DAL,112,107,0
2024-01-05,2024,CHI,BOS,99,118,0
2024-01-05,2024,DAL,ATL,115,101,0
2024-01-07,2024,ATL,BOS,97,103,0
2024-01-07,2024,CHI,DAL,100,96,0
2024-01-08,2024,BOS,ATL,109,111,0
2024-01-08,2024,DAL,CHI,93,91,0
2024-01-10,2024,ATL,DAL,,,0
`

type harness struct {
	db  string
	csv string
}

func newHarness(t *testing.T) harness {
	t.Helper()
	t.Setenv("MRELO_CONFIG", "")
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "games.csv")
	if err := os.WriteFile(csvPath, []byte(scheduleCSV), 0o600); err != nil {
		t.Fatal(err)
	}
	return harness{db: filepath.Join(dir, "games.db"), csv: csvPath}
}

// run executes elotune with args against the harness database and returns
// stdout.
func (h harness) run(args ...string) (string, error) {
	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append(args, "--db-path", h.db, "--log-level", "error"))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommands(t *testing.T) {
	Convey("Given a database with an imported schedule", t, func() {
		h := newHarness(t)
		out, err := h.run("import", h.csv)
		So(err, ShouldBeNil)
		So(out, ShouldContainSubstring, "imported 13 games (13 stored)")

		Convey("When importing from a missing file", func() {
			_, err := h.run("import", filepath.Join(t.TempDir(), "nope.csv"))
			So(err, ShouldNotBeNil)
		})

		Convey("When enriching the schedule", func() {
			out, err := h.run("enrich")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "elo_prob1")
			So(out, ShouldContainSubstring, "(13 rows)")
			So(out, ShouldContainSubstring, "12 played games")
		})

		Convey("When enriching one team as CSV", func() {
			out, err := h.run("enrich", "--team", "CHI", "--format", "csv", "--limit", "2")
			So(err, ShouldBeNil)
			lines := strings.Split(strings.TrimSpace(out), "\n")
			So(lines, ShouldHaveLength, 3)
			So(lines[0], ShouldStartWith, "date,season,team1,team2")
			So(lines[1], ShouldContainSubstring, "CHI")
			So(lines[2], ShouldContainSubstring, "DAL,CHI,93,91")
		})

		Convey("When enriching with an unknown format", func() {
			_, err := h.run("enrich", "--format", "xml")
			So(errors.Is(err, ErrFormat), ShouldBeTrue)
		})

		Convey("When querying with a group", func() {
			out, err := h.run("query",
				"--select", "season", "--select", "COUNT(*)", "--select", "COUNT(score1)",
				"--group", "season", "--format", "csv")
			So(err, ShouldBeNil)
			So(out, ShouldEqual, "season,COUNT(*),COUNT(score1)\n2024,13,12\n")
		})

		Convey("When querying as a table", func() {
			out, err := h.run("query", "--select", "season", "--select", "count(score1)", "--group", "season")
			So(err, ShouldBeNil)

			Convey("Then column names keep their case", func() {
				So(out, ShouldContainSubstring, "season")
				So(out, ShouldContainSubstring, "count(score1)")
				So(out, ShouldNotContainSubstring, "SEASON")
				So(out, ShouldContainSubstring, "(1 rows)")
			})
		})

		Convey("When querying with conditions and order", func() {
			out, err := h.run("query",
				"--select", "team1", "--select", "score1",
				"--where", "team1 = 'BOS'", "--order", "score1:desc", "--limit", "1", "--format", "json")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, `"team1": "BOS"`)
			So(out, ShouldContainSubstring, `"score1": 120`)
		})

		Convey("When tuning with a random search", func() {
			out, err := h.run("tune", "--method", "random", "--samples", "20", "--seed", "7", "--parallelism", "2")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "r2=")
			So(out, ShouldContainSubstring, "k_start")
			So(out, ShouldContainSubstring, "seed 7")
		})

		Convey("When tuning with a short genetic run", func() {
			out, err := h.run("tune", "--population", "10", "--parents", "4", "--generations", "3",
				"--seed", "3", "--progress", "0")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "best at evaluation")
		})

		Convey("When tuning with an unknown method", func() {
			_, err := h.run("tune", "--method", "anneal")
			So(errors.Is(err, ErrMethod), ShouldBeTrue)
		})

		Convey("When replaying against a fresh service", func() {
			svc := service.New(service.WithLogger(logger.Nop()))
			So(svc.Start(context.Background()), ShouldBeNil)
			defer func() { _ = svc.Stop(context.Background()) }()
			mux := http.NewServeMux()
			api.NewServer(svc, 100).Register(context.Background(), mux)
			srv := httptest.NewServer(mux)
			defer srv.Close()

			out, err := h.run("replay", "--url", srv.URL, "--wait", "5s")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "accepted 12")
			So(out, ShouldContainSubstring, "skipped 1")
			So(out, ShouldContainSubstring, "0 mismatches")
		})
	})

	Convey("Given a generated season", t, func() {
		h := newHarness(t)
		args := []string{"generate", "--teams", "4", "--rounds", "3", "--unplayed", "1",
			"--game-seed", "9", "--start", "2024-10-22"}
		out, err := h.run(args...)
		So(err, ShouldBeNil)

		Convey("Then it is written as importable CSV", func() {
			lines := strings.Split(strings.TrimSpace(out), "\n")
			So(lines, ShouldHaveLength, 7)
			So(lines[0], ShouldEqual, "match_id,season,date,team1,team2,score1,score2,neutral")
			So(lines[6], ShouldEndWith, ",,,false")

			again, err := h.run(args...)
			So(err, ShouldBeNil)
			So(again, ShouldEqual, out)
		})

		Convey("Then it can be imported directly and rated", func() {
			out, err := h.run(append(args, "--import")...)
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "imported 6 games")

			out, err = h.run("enrich")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "4 played games")
		})
	})

	Convey("Given an invalid configuration", t, func() {
		h := newHarness(t)
		_, err := h.run("enrich", "--mov-method", "cubic")
		So(err, ShouldNotBeNil)
	})

	Convey("Given a command run without the root", t, func() {
		cmd := newEnrichCmd()
		cmd.SetContext(context.Background())
		_, err := configFrom(cmd)
		So(errors.Is(err, ErrNoConfig), ShouldBeTrue)
	})
}
