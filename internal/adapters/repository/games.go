package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/mrelo/internal/domain/model"
	"github.com/okian/mrelo/pkg/dorm"
	"github.com/okian/mrelo/pkg/logger"
)

const (
	defaultGamesTable = "games"
	importBatch       = 500
)

var gameColumns = []string{
	"match_id TEXT",
	"season TEXT",
	"played_at TEXT",
	"team1 TEXT",
	"team2 TEXT",
	"score1 REAL",
	"score2 REAL",
	"neutral INTEGER",
}

// gameIDSpace namespaces the IDs derived for games imported without one.
var gameIDSpace = uuid.MustParse("6f1c1a52-4a1e-4d0b-9a53-3a4f2e7d8c10")

// GameFilter narrows Load. Zero fields match everything.
type GameFilter struct {
	Season string
	From   time.Time
	To     time.Time
	Team   string
}

// GameStore keeps a historical schedule in SQLite for tuning and replay.
// Unplayed games are stored with NULL scores and load with NaN scores.
type GameStore struct {
	mu    sync.Mutex
	db    *dorm.DB
	table string
	log   logger.Logger
}

// NewGameStore opens the database at path and creates the games table when
// missing.
func NewGameStore(ctx context.Context, path string, opts ...GameOption) (*GameStore, error) {
	g := &GameStore{
		table: defaultGamesTable,
		log:   logger.Get().Named("games"),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.db = dorm.New(path,
		dorm.WithTable(g.table),
		dorm.WithLogger(g.log))
	if err := g.db.Open(ctx); err != nil {
		return nil, err
	}
	if err := g.db.CreateIfNotExists(ctx, gameColumns...); err != nil {
		_ = g.db.Close()
		return nil, err
	}
	return g, nil
}

// DB exposes the underlying builder for ad hoc queries. Callers must not use
// it concurrently with the store.
func (g *GameStore) DB() *dorm.DB { return g.db.Reset(g.table) }

// Import appends games in batches.
func (g *GameStore) Import(ctx context.Context, games []model.Match) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := 0
	batch := make([]map[string]any, 0, importBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := g.db.Reset(g.table).InsertRecords(ctx, batch...); err != nil {
			return fmt.Errorf("games: import: %w", err)
		}
		n += len(batch)
		batch = batch[:0]
		return nil
	}
	for _, m := range games {
		batch = append(batch, gameRecord(m))
		if len(batch) == importBatch {
			if err := flush(); err != nil {
				return n, err
			}
		}
	}
	if err := flush(); err != nil {
		return n, err
	}
	g.log.Info(ctx, "games imported", logger.Int("count", n))
	return n, nil
}

func gameRecord(m model.Match) map[string]any {
	neutral := int64(0)
	if m.Neutral {
		neutral = 1
	}
	return map[string]any{
		"match_id":  m.MatchID,
		"season":    m.SeasonKey(),
		"played_at": m.PlayedAt.UTC().Format(dorm.DateLayout),
		"team1":     m.Home,
		"team2":     m.Away,
		"score1":    nullScore(m.HomeScore),
		"score2":    nullScore(m.AwayScore),
		"neutral":   neutral,
	}
}

func nullScore(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

// Load returns the games matching f in play order.
func (g *GameStore) Load(ctx context.Context, f GameFilter) ([]model.Match, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	q := g.db.Reset(g.table).
		Select("match_id", "season", "played_at", "team1", "team2", "score1", "score2", "neutral").
		Order("played_at", "rowid")
	if f.Season != "" {
		q.Where(dorm.Cmp("season", dorm.EQ, f.Season))
	}
	if !f.From.IsZero() {
		q.Where(dorm.Cmp("played_at", dorm.GTE, f.From.UTC()))
	}
	if !f.To.IsZero() {
		q.Where(dorm.Cmp("played_at", dorm.LT, f.To.UTC()))
	}
	if f.Team != "" {
		q.Where(dorm.Or(dorm.Cmp("team1", dorm.EQ, f.Team), dorm.Cmp("team2", dorm.EQ, f.Team)))
	}

	var out []model.Match
	err := q.Each(ctx, func(row []any) error {
		at, err := time.Parse(dorm.DateLayout, asString(row[2]))
		if err != nil {
			return fmt.Errorf("%w played_at: %v", dorm.ErrParseDate, err)
		}
		out = append(out, model.Match{
			MatchID:   asString(row[0]),
			Season:    asString(row[1]),
			PlayedAt:  at,
			Home:      asString(row[3]),
			Away:      asString(row[4]),
			HomeScore: asScore(row[5]),
			AwayScore: asScore(row[6]),
			Neutral:   asFloat(row[7]) != 0,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of stored games.
func (g *GameStore) Count(ctx context.Context) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	v, err := g.db.Reset(g.table).Select("COUNT(*)").First(ctx)
	if err != nil {
		return 0, err
	}
	return int64(asFloat(v)), nil
}

// Close closes the database.
func (g *GameStore) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.db.Close()
}

func asScore(v any) float64 {
	if v == nil {
		return math.NaN()
	}
	return asFloat(v)
}

// ErrBadCSV reports a schedule file that cannot be read.
var ErrBadCSV = errors.New("invalid games csv")

var dateLayouts = []string{time.RFC3339, dorm.DateLayout, time.DateOnly}

// ReadGamesCSV parses a schedule with a header row. Required columns are
// date, team1, team2, score1 and score2; season, neutral and match_id are
// optional. Empty scores mark unplayed games. Rows without a match_id get
// an ID derived from date and teams, so importing a file twice yields the
// same IDs.
func ReadGamesCSV(r io.Reader) ([]model.Match, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrBadCSV, err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, req := range []string{"date", "team1", "team2", "score1", "score2"} {
		if _, ok := col[req]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrBadCSV, req)
		}
	}
	get := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var out []model.Match
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrBadCSV, line, err)
		}
		m := model.Match{
			MatchID: get(rec, "match_id"),
			Season:  get(rec, "season"),
			Home:    get(rec, "team1"),
			Away:    get(rec, "team2"),
		}
		if m.PlayedAt, err = parseDate(get(rec, "date")); err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrBadCSV, line, err)
		}
		if m.HomeScore, err = parseScore(get(rec, "score1")); err != nil {
			return nil, fmt.Errorf("%w: line %d score1: %w", ErrBadCSV, line, err)
		}
		if m.AwayScore, err = parseScore(get(rec, "score2")); err != nil {
			return nil, fmt.Errorf("%w: line %d score2: %w", ErrBadCSV, line, err)
		}
		if s := get(rec, "neutral"); s != "" {
			if m.Neutral, err = strconv.ParseBool(s); err != nil {
				return nil, fmt.Errorf("%w: line %d neutral: %w", ErrBadCSV, line, err)
			}
		}
		if m.MatchID == "" {
			key := m.PlayedAt.Format(time.RFC3339) + "|" + m.Home + "|" + m.Away
			m.MatchID = uuid.NewSHA1(gameIDSpace, []byte(key)).String()
		}
		if m.Home == "" || m.Away == "" {
			return nil, fmt.Errorf("%w: line %d: %w", ErrBadCSV, line, model.ErrMissingTeam)
		}
		out = append(out, m)
	}
	return out, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func parseScore(s string) (float64, error) {
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// WriteGamesCSV writes games in the format ReadGamesCSV reads, including
// match_id and season. Unplayed games get empty scores.
func WriteGamesCSV(w io.Writer, games []model.Match) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"match_id", "season", "date", "team1", "team2", "score1", "score2", "neutral"}); err != nil {
		return err
	}
	for _, m := range games {
		rec := []string{
			m.MatchID,
			m.SeasonKey(),
			m.PlayedAt.UTC().Format(time.RFC3339),
			m.Home,
			m.Away,
			formatScore(m.HomeScore),
			formatScore(m.AwayScore),
			strconv.FormatBool(m.Neutral),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatScore(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
