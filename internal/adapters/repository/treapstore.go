package repository

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/okian/mrelo/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: rating DESC, then team ASC. "less" means ranks earlier, so an
// in-order traversal yields the leaderboard from best to worst. Subtree
// sizes give Rank in O(log n).

// ratingScale stores ratings as fixed point so equal ratings compare equal.
const ratingScale = 1_000_000_000

type ratingFP int64

func toFixedPoint(x float64) ratingFP {
	switch {
	case math.IsNaN(x):
		return 0
	case x*ratingScale >= math.MaxInt64:
		return ratingFP(math.MaxInt64)
	case x*ratingScale <= math.MinInt64:
		return ratingFP(math.MinInt64)
	}
	return ratingFP(math.Round(x * ratingScale))
}

func toFloat(x ratingFP) float64 { return float64(x) / ratingScale }

// record is the stored state of one team.
type record struct {
	rating ratingFP
	played int
	seq    uint64
}

type node struct {
	id     string
	rating ratingFP
	prio   uint64
	left   *node
	right  *node
	size   int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aRating, aID) appears before (bRating, bID).
func less(aRating ratingFP, aID string, bRating ratingFP, bID string) bool {
	if aRating != bRating {
		return aRating > bRating
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n, nn *node) *node {
	if n == nil {
		return nn
	}
	if less(nn.rating, nn.id, n.rating, n.id) {
		n.left = insert(n.left, nn)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, nn)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, rating ratingFP) *node {
	if n == nil {
		return nil
	}
	switch {
	case rating == n.rating && id == n.id:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, rating)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, rating)
		}
	case less(rating, id, n.rating, n.id):
		n.left = deleteNode(n.left, id, rating)
	default:
		n.right = deleteNode(n.right, id, rating)
	}
	fix(n)
	return n
}

// position returns the 0-based in-order index of (id, rating).
func position(n *node, id string, rating ratingFP) int {
	pos := 0
	for n != nil {
		switch {
		case rating == n.rating && id == n.id:
			return pos + nsize(n.left)
		case less(rating, id, n.rating, n.id):
			n = n.left
		default:
			pos += nsize(n.left) + 1
			n = n.right
		}
	}
	return -1
}

// collectTopN appends up to limit entries in rank order.
func collectTopN(n *node, limit int, records map[string]record, out *[]Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, records, out)
	if len(*out) < limit {
		rec := records[n.id]
		*out = append(*out, Entry{
			Rank:   len(*out) + 1,
			Team:   n.id,
			Rating: toFloat(rec.rating),
			Played: rec.played,
		})
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, records, out)
	}
}

// TreapStore is a Store ordered by rating.
type TreapStore struct {
	mu   sync.RWMutex
	root *node
	byID map[string]record
	seed uint64
	rng  *rand.Rand
}

// NewTreapStore constructs a treap store with configuration options.
func NewTreapStore(opts ...Option) *TreapStore {
	s := &TreapStore{byID: make(map[string]record)}
	for _, opt := range opts {
		opt(s)
	}
	if s.seed == 0 {
		s.seed = uint64(time.Now().UnixNano())
	}
	s.rng = rand.New(rand.NewPCG(s.seed, s.seed>>1|1))
	metrics.UpdateTeamsTracked(0)
	return s
}

// Upsert implements Store.Upsert with O(log n) expected time.
func (s *TreapStore) Upsert(_ context.Context, team string, rating float64, played int, seq uint64) (bool, error) {
	if team == "" {
		return false, ErrInvalidTeam
	}
	fp := toFixedPoint(rating)

	s.mu.Lock()
	old, ok := s.byID[team]
	if ok && seq <= old.seq {
		s.mu.Unlock()
		return false, nil
	}
	if ok {
		s.root = deleteNode(s.root, team, old.rating)
	}
	s.byID[team] = record{rating: fp, played: played, seq: seq}
	s.root = insert(s.root, &node{id: team, rating: fp, prio: s.rng.Uint64(), size: 1})
	count := len(s.byID)
	s.mu.Unlock()

	if !ok {
		metrics.UpdateTeamsTracked(count)
	}
	return true, nil
}

// Rank returns the current rank and rating for a team in O(log n).
func (s *TreapStore) Rank(_ context.Context, team string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[team]
	if !ok {
		return Entry{}, ErrNotFound
	}
	pos := position(s.root, team, rec.rating)
	if pos < 0 {
		return Entry{}, ErrNotFound
	}
	return Entry{Rank: pos + 1, Team: team, Rating: toFloat(rec.rating), Played: rec.played}, nil
}

// TopN returns the top N entries ordered by rating desc.
func (s *TreapStore) TopN(_ context.Context, n int) ([]Entry, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, min(n, len(s.byID)))
	collectTopN(s.root, n, s.byID, &out)
	return out, nil
}

// Count returns the total number of teams.
func (s *TreapStore) Count(context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
