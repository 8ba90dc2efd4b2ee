// Package dorm is a small chainable SELECT builder over SQLite.
//
// A DB keeps the clause state of the query being built. Clause calls are
// additive until Reset, which makes a DB with a persistent connection
// reusable across queries:
//
//	db := dorm.New(":memory:", dorm.WithTable("movie"))
//	avg, err := db.Select("AVG(score)").Where(dorm.Cmp("year", dorm.GTE, 2023)).First(ctx)
//
// Without Open every operation opens a connection, runs, and closes it. Note
// that an in-memory database only lives as long as its connection, so
// ":memory:" is only useful after Open.
//
// A DB is not safe for concurrent use.
package dorm

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/okian/mrelo/pkg/logger"
	"github.com/okian/mrelo/pkg/metrics"
)

const (
	defaultDriver = "sqlite"

	// Direction values accepted by OrderDir.
	Asc  = "ASC"
	Desc = "DESC"
)

// DB builds and runs queries against one SQLite database.
type DB struct {
	path       string
	driver     string
	table      string
	conn       *sql.DB
	parseDates map[string]struct{}
	log        logger.Logger

	sel    clause
	where  clause
	group  clause
	having clause
	order  clause
	limit  int
}

// New creates a builder for the database at path.
func New(path string, opts ...Option) *DB {
	d := &DB{
		path:       path,
		driver:     defaultDriver,
		parseDates: make(map[string]struct{}),
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Table switches the table queries run against.
func (d *DB) Table(name string) *DB {
	d.table = name
	return d
}

// Reset clears every clause. A non-empty table argument also switches table.
func (d *DB) Reset(table ...string) *DB {
	d.sel.clear()
	d.where.clear()
	d.group.clear()
	d.having.clear()
	d.order.clear()
	d.limit = 0
	if len(table) > 0 && table[0] != "" {
		d.table = table[0]
	}
	return d
}

// Open opens the persistent connection. It is a no-op when one is open.
func (d *DB) Open(ctx context.Context) error {
	if d.conn != nil {
		return nil
	}
	db, err := d.dial(ctx)
	if err != nil {
		return err
	}
	// one connection keeps ":memory:" databases alive and shared
	db.SetMaxOpenConns(1)
	d.conn = db
	return nil
}

// Close closes the persistent connection, if any.
func (d *DB) Close() error {
	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	return err
}

// IsOpen reports whether a persistent connection is held.
func (d *DB) IsOpen() bool { return d.conn != nil }

func (d *DB) dial(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open(d.driver, d.path)
	if err != nil {
		return nil, fmt.Errorf("dorm: open %s: %w", d.path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("dorm: ping %s: %w", d.path, err)
	}
	return db, nil
}

// acquire returns the persistent connection or a one-shot one. release
// closes only the latter.
func (d *DB) acquire(ctx context.Context) (db *sql.DB, release func(), err error) {
	if d.conn != nil {
		return d.conn, func() {}, nil
	}
	db, err = d.dial(ctx)
	if err != nil {
		return nil, nil, err
	}
	return db, func() { _ = db.Close() }, nil
}

// Create runs CREATE TABLE <table>(<cols>). Columns may carry types and
// constraints, e.g. "year INTEGER NOT NULL".
func (d *DB) Create(ctx context.Context, cols ...string) error {
	if d.table == "" {
		return ErrNoTable
	}
	if len(cols) == 0 {
		return ErrNoColumns
	}
	q := fmt.Sprintf("CREATE TABLE %s(%s)", d.table, strings.Join(cols, ", "))
	return d.exec(ctx, "create", q)
}

// CreateIfNotExists is Create with IF NOT EXISTS.
func (d *DB) CreateIfNotExists(ctx context.Context, cols ...string) error {
	if d.table == "" {
		return ErrNoTable
	}
	if len(cols) == 0 {
		return ErrNoColumns
	}
	q := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s(%s)", d.table, strings.Join(cols, ", "))
	return d.exec(ctx, "create", q)
}

// Exec runs a statement that returns no rows.
func (d *DB) Exec(ctx context.Context, q string, args ...any) error {
	return d.exec(ctx, "exec", q, args...)
}

func (d *DB) exec(ctx context.Context, op, q string, args ...any) error {
	db, release, err := d.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	start := time.Now()
	_, err = db.ExecContext(ctx, q, args...)
	d.observe(ctx, op, q, start, err)
	if err != nil {
		return fmt.Errorf("dorm: %s: %w", op, err)
	}
	return nil
}

// Insert writes positional rows in one transaction.
func (d *DB) Insert(ctx context.Context, rows ...[]any) error {
	if d.table == "" {
		return ErrNoTable
	}
	if len(rows) == 0 {
		return ErrNoRows
	}
	if len(rows[0]) == 0 {
		return ErrNoColumns
	}
	q := fmt.Sprintf("INSERT INTO %s VALUES(%s)", d.table, placeholders(len(rows[0])))
	return d.insert(ctx, q, rows)
}

// InsertRecords writes keyed rows in one transaction. The column list is the
// sorted key set of the first record; keys missing from later records are
// written as NULL.
func (d *DB) InsertRecords(ctx context.Context, records ...map[string]any) error {
	if d.table == "" {
		return ErrNoTable
	}
	if len(records) == 0 {
		return ErrNoRows
	}
	cols := make([]string, 0, len(records[0]))
	for k := range records[0] {
		cols = append(cols, k)
	}
	if len(cols) == 0 {
		return ErrNoColumns
	}
	sort.Strings(cols)

	rows := make([][]any, len(records))
	for i, rec := range records {
		row := make([]any, len(cols))
		for j, c := range cols {
			row[j] = rec[c]
		}
		rows[i] = row
	}
	q := fmt.Sprintf("INSERT INTO %s(%s) VALUES(%s)", d.table, strings.Join(cols, ", "), placeholders(len(cols)))
	return d.insert(ctx, q, rows)
}

func (d *DB) insert(ctx context.Context, q string, rows [][]any) (err error) {
	db, release, err := d.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	start := time.Now()
	defer func() { d.observe(ctx, "insert", q, start, err) }()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("dorm: begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("dorm: prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if _, err = stmt.ExecContext(ctx, row...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("dorm: insert row %d: %w", i, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("dorm: commit: %w", err)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// Select adds result expressions.
func (d *DB) Select(cols ...string) *DB {
	for _, c := range cols {
		d.sel.add(c, "")
	}
	return d
}

// Deselect removes result expressions; with no arguments it clears them all.
func (d *DB) Deselect(cols ...string) *DB {
	d.sel.remove(cols)
	return d
}

// Where adds conditions joined with AND. Conditions are strings or Expr
// values, or anything else with a useful fmt.Sprint form.
func (d *DB) Where(conds ...any) *DB {
	for _, c := range conds {
		d.where.add(fmt.Sprint(c), "")
	}
	return d
}

// Group adds GROUP BY columns.
func (d *DB) Group(cols ...string) *DB {
	for _, c := range cols {
		d.group.add(c, "")
	}
	return d
}

// Degroup removes GROUP BY columns; with no arguments it clears them all.
func (d *DB) Degroup(cols ...string) *DB {
	d.group.remove(cols)
	return d
}

// Having adds HAVING conditions joined with AND.
func (d *DB) Having(conds ...any) *DB {
	for _, c := range conds {
		d.having.add(fmt.Sprint(c), "")
	}
	return d
}

// Order sorts ascending by each column.
func (d *DB) Order(cols ...string) *DB {
	for _, c := range cols {
		d.order.add(c, Asc)
	}
	return d
}

// OrderDir sorts by col in direction dir. Re-ordering a column keeps its
// original position and updates the direction.
func (d *DB) OrderDir(col, dir string) *DB {
	dir = strings.ToUpper(strings.TrimSpace(dir))
	if dir == "" {
		dir = Asc
	}
	d.order.add(col, dir)
	return d
}

// Deorder removes ORDER BY columns; with no arguments it clears them all.
func (d *DB) Deorder(cols ...string) *DB {
	d.order.remove(cols)
	return d
}

// Limit caps the row count. Zero means no limit.
func (d *DB) Limit(n int) *DB {
	d.limit = n
	return d
}

// Delimit removes the row cap.
func (d *DB) Delimit() *DB {
	d.limit = 0
	return d
}

// Query renders the current clause state.
func (d *DB) Query() (string, error) {
	if d.table == "" {
		return "", ErrNoTable
	}
	var b strings.Builder

	b.WriteString("SELECT ")
	if d.sel.len() == 0 {
		b.WriteString("*")
	} else {
		b.WriteString(strings.Join(d.sel.keys, ", "))
	}
	b.WriteString(" FROM ")
	b.WriteString(d.table)

	if d.where.len() > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(d.where.keys, " AND "))
	}
	if d.group.len() > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(d.group.keys, ", "))
	}
	if d.having.len() > 0 {
		b.WriteString(" HAVING ")
		b.WriteString(strings.Join(d.having.keys, " AND "))
	}
	if d.order.len() > 0 {
		parts := make([]string, 0, d.order.len())
		for _, k := range d.order.keys {
			parts = append(parts, k+" "+d.order.vals[k])
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(parts, ", "))
	}
	if d.limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", d.limit)
	}
	return b.String(), nil
}

// Run executes the built query and reads every row.
func (d *DB) Run(ctx context.Context) (*Result, error) {
	q, err := d.Query()
	if err != nil {
		return nil, err
	}
	return d.RunQuery(ctx, q)
}

// RunQuery executes q and reads every row. The result still carries the
// builder's select and group state for Dicts and Groups.
func (d *DB) RunQuery(ctx context.Context, q string, args ...any) (*Result, error) {
	res := d.snapshot()
	err := d.stream(ctx, q, args, func(cols []string, row []any) error {
		if res.Columns == nil {
			res.Columns = cols
		}
		res.Rows = append(res.Rows, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Each streams the built query, calling fn per row without buffering.
// Returning an error from fn stops iteration and is returned as is.
func (d *DB) Each(ctx context.Context, fn func(row []any) error) error {
	q, err := d.Query()
	if err != nil {
		return err
	}
	return d.stream(ctx, q, nil, func(_ []string, row []any) error {
		return fn(row)
	})
}

func (d *DB) stream(ctx context.Context, q string, args []any, fn func(cols []string, row []any) error) (err error) {
	db, release, err := d.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	start := time.Now()
	defer func() { d.observe(ctx, "select", q, start, err) }()

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("dorm: query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("dorm: columns: %w", err)
	}
	for rows.Next() {
		row := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range row {
			ptrs[i] = &row[i]
		}
		if err = rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("dorm: scan: %w", err)
		}
		if err = fn(cols, row); err != nil {
			return err
		}
	}
	if err = rows.Err(); err != nil {
		return fmt.Errorf("dorm: rows: %w", err)
	}
	return nil
}

func (d *DB) snapshot() *Result {
	res := &Result{
		selects:    append([]string(nil), d.sel.keys...),
		groups:     append([]string(nil), d.group.keys...),
		parseDates: make(map[string]struct{}, len(d.parseDates)),
	}
	for k := range d.parseDates {
		res.parseDates[k] = struct{}{}
	}
	return res
}

func (d *DB) observe(ctx context.Context, op, q string, start time.Time, err error) {
	ms := float64(time.Since(start).Microseconds()) / 1000.0
	metrics.RecordQueryLatency(op, ms)
	if err != nil {
		metrics.RecordQueryError(op)
		d.log.Debug(ctx, "statement failed", logger.String("op", op), logger.String("query", q), logger.Error(err))
		return
	}
	d.log.Debug(ctx, "statement", logger.String("op", op), logger.String("query", q), logger.Float64("ms", ms))
}

// Info returns PRAGMA table_info rows for the current table.
func (d *DB) Info(ctx context.Context) ([][]any, error) {
	if d.table == "" {
		return nil, ErrNoTable
	}
	res, err := d.RunQuery(ctx, fmt.Sprintf("PRAGMA table_info(%s)", d.table))
	if err != nil {
		return nil, err
	}
	return res.Vals(), nil
}

// First is shorthand for Run followed by Result.First.
func (d *DB) First(ctx context.Context) (any, error) {
	res, err := d.Run(ctx)
	if err != nil {
		return nil, err
	}
	return res.First(), nil
}

// Vals is shorthand for Run followed by Result.Vals.
func (d *DB) Vals(ctx context.Context) ([][]any, error) {
	res, err := d.Run(ctx)
	if err != nil {
		return nil, err
	}
	return res.Vals(), nil
}

// Dicts is shorthand for Run followed by Result.Dicts.
func (d *DB) Dicts(ctx context.Context) ([]map[string]any, error) {
	if err := checkDictSelect(d.sel.keys); err != nil {
		return nil, err
	}
	res, err := d.Run(ctx)
	if err != nil {
		return nil, err
	}
	return res.Dicts()
}

// Groups is shorthand for Run followed by Result.Groups.
func (d *DB) Groups(ctx context.Context) (map[string]map[string]any, error) {
	if err := checkDictSelect(d.sel.keys); err != nil {
		return nil, err
	}
	res, err := d.Run(ctx)
	if err != nil {
		return nil, err
	}
	return res.Groups()
}

// clause is an insertion-ordered set with an optional value per key.
type clause struct {
	keys []string
	vals map[string]string
}

func (c *clause) add(k, v string) {
	if c.vals == nil {
		c.vals = make(map[string]string)
	}
	if _, ok := c.vals[k]; !ok {
		c.keys = append(c.keys, k)
	}
	c.vals[k] = v
}

func (c *clause) remove(ks []string) {
	if len(ks) == 0 {
		c.clear()
		return
	}
	for _, k := range ks {
		if _, ok := c.vals[k]; !ok {
			continue
		}
		delete(c.vals, k)
		for i, existing := range c.keys {
			if existing == k {
				c.keys = append(c.keys[:i], c.keys[i+1:]...)
				break
			}
		}
	}
}

func (c *clause) clear() {
	c.keys = nil
	c.vals = nil
}

func (c *clause) len() int { return len(c.keys) }
