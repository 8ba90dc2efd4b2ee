package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/mrelo/internal/domain/model"
	"github.com/okian/mrelo/internal/domain/rating"
	"github.com/okian/mrelo/pkg/dorm"
	"github.com/okian/mrelo/pkg/logger"
)

const defaultHistoryTable = "matches"

// historyColumns is the schema of the history table, in select order.
var historyColumns = []string{
	"match_id TEXT",
	"season TEXT",
	"played_at TEXT",
	"home TEXT",
	"away TEXT",
	"home_score REAL",
	"away_score REAL",
	"neutral INTEGER",
	"home_pre REAL",
	"away_pre REAL",
	"home_post REAL",
	"away_post REAL",
	"prob_home REAL",
}

var historySelect = []string{
	"match_id", "season", "played_at", "home", "away", "home_score", "away_score",
	"neutral", "home_pre", "away_pre", "home_post", "away_post", "prob_home",
}

// HistoryEntry is one rated match seen from a single team's side.
type HistoryEntry struct {
	MatchID       string    `json:"match_id"`
	Season        string    `json:"season"`
	PlayedAt      time.Time `json:"played_at"`
	Opponent      string    `json:"opponent"`
	Home          bool      `json:"home"`
	Neutral       bool      `json:"neutral"`
	Score         float64   `json:"score"`
	OpponentScore float64   `json:"opponent_score"`
	RatingPre     float64   `json:"rating_pre"`
	RatingPost    float64   `json:"rating_post"`
	WinProb       float64   `json:"win_prob"`
}

// Summary aggregates every stored match.
type Summary struct {
	Matches     int64   `json:"matches"`
	HomeWinRate float64 `json:"home_win_rate"`
	AvgMargin   float64 `json:"avg_margin"`
	StdevMargin float64 `json:"stdev_margin"`
	AvgProbHome float64 `json:"avg_prob_home"`
}

// HistoryStore persists rated matches in SQLite. The underlying builder is
// not safe for concurrent use, so every call holds mu.
type HistoryStore struct {
	mu    sync.Mutex
	db    *dorm.DB
	table string
	log   logger.Logger
}

// NewHistoryStore opens the database at path and creates the history table
// when missing. Use ":memory:" for a throwaway store.
func NewHistoryStore(ctx context.Context, path string, opts ...HistoryOption) (*HistoryStore, error) {
	h := &HistoryStore{
		table: defaultHistoryTable,
		log:   logger.Get().Named("history"),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.db = dorm.New(path,
		dorm.WithTable(h.table),
		dorm.WithParseDates("played_at"),
		dorm.WithLogger(h.log))
	if err := h.db.Open(ctx); err != nil {
		return nil, err
	}
	if err := h.db.CreateIfNotExists(ctx, historyColumns...); err != nil {
		_ = h.db.Close()
		return nil, err
	}
	return h, nil
}

// Record stores one rated match.
func (h *HistoryStore) Record(ctx context.Context, o rating.Outcome) error {
	m := o.Match
	neutral := int64(0)
	if m.Neutral {
		neutral = 1
	}
	rec := map[string]any{
		"match_id":   m.MatchID,
		"season":     m.SeasonKey(),
		"played_at":  m.PlayedAt.UTC().Format(dorm.DateLayout),
		"home":       m.Home,
		"away":       m.Away,
		"home_score": m.HomeScore,
		"away_score": m.AwayScore,
		"neutral":    neutral,
		"home_pre":   o.Result.Pre1,
		"away_pre":   o.Result.Pre2,
		"home_post":  o.Result.Post1,
		"away_post":  o.Result.Post2,
		"prob_home":  o.Result.Prob1,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.db.InsertRecords(ctx, rec); err != nil {
		return fmt.Errorf("history: record %s: %w", m.MatchID, err)
	}
	return nil
}

// Team returns up to limit of team's matches, most recent first.
func (h *HistoryStore) Team(ctx context.Context, team string, limit int) ([]HistoryEntry, error) {
	if team == "" {
		return nil, ErrInvalidTeam
	}
	if limit < 1 {
		return nil, ErrInvalidLimit
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	rows, err := h.db.Reset(h.table).
		Select(historySelect...).
		Where(dorm.Or(dorm.Cmp("home", dorm.EQ, team), dorm.Cmp("away", dorm.EQ, team))).
		OrderDir("played_at", dorm.Desc).
		OrderDir("rowid", dorm.Desc).
		Limit(limit).
		Dicts(ctx)
	if err != nil {
		return nil, fmt.Errorf("history: team %s: %w", team, err)
	}

	out := make([]HistoryEntry, 0, len(rows))
	for _, r := range rows {
		e := HistoryEntry{
			MatchID: asString(r["match_id"]),
			Season:  asString(r["season"]),
			Neutral: asFloat(r["neutral"]) != 0,
			WinProb: asFloat(r["prob_home"]),
		}
		if t, ok := r["played_at"].(time.Time); ok {
			e.PlayedAt = t
		}
		if asString(r["home"]) == team {
			e.Home = true
			e.Opponent = asString(r["away"])
			e.Score, e.OpponentScore = asFloat(r["home_score"]), asFloat(r["away_score"])
			e.RatingPre, e.RatingPost = asFloat(r["home_pre"]), asFloat(r["home_post"])
		} else {
			e.Opponent = asString(r["home"])
			e.Score, e.OpponentScore = asFloat(r["away_score"]), asFloat(r["home_score"])
			e.RatingPre, e.RatingPost = asFloat(r["away_pre"]), asFloat(r["away_post"])
			e.WinProb = 1 - e.WinProb
		}
		out = append(out, e)
	}
	return out, nil
}

// Summary aggregates all stored matches. Margins are home minus away.
func (h *HistoryStore) Summary(ctx context.Context) (Summary, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rows, err := h.db.Reset(h.table).
		Select(
			"COUNT(*)",
			"AVG(home_score > away_score)",
			"AVG(home_score - away_score)",
			"stdev(home_score - away_score)",
			"AVG(prob_home)",
		).
		Vals(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("history: summary: %w", err)
	}
	if len(rows) == 0 {
		return Summary{}, nil
	}
	r := rows[0]
	return Summary{
		Matches:     int64(asFloat(r[0])),
		HomeWinRate: asFloat(r[1]),
		AvgMargin:   asFloat(r[2]),
		StdevMargin: asFloat(r[3]),
		AvgProbHome: asFloat(r[4]),
	}, nil
}

// Matches streams every stored match in insertion order. fn must not call
// back into the store.
func (h *HistoryStore) Matches(ctx context.Context, fn func(model.Match) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.db.Reset(h.table).
		Select("match_id", "season", "played_at", "home", "away", "home_score", "away_score", "neutral").
		Order("rowid").
		Each(ctx, func(row []any) error {
			at, err := time.Parse(dorm.DateLayout, asString(row[2]))
			if err != nil {
				return fmt.Errorf("%w played_at: %v", dorm.ErrParseDate, err)
			}
			return fn(model.Match{
				MatchID:   asString(row[0]),
				Season:    asString(row[1]),
				PlayedAt:  at,
				Home:      asString(row[3]),
				Away:      asString(row[4]),
				HomeScore: asFloat(row[5]),
				AwayScore: asFloat(row[6]),
				Neutral:   asFloat(row[7]) != 0,
			})
		})
}

// Close closes the database.
func (h *HistoryStore) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.db.Close()
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

func asFloat(v any) float64 {
	switch x := v.(type) {
	case int64:
		return float64(x)
	case float64:
		return x
	case bool:
		if x {
			return 1
		}
	}
	return 0
}
