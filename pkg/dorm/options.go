package dorm

import (
	"database/sql"

	"github.com/okian/mrelo/pkg/logger"
)

// Option configures a DB.
type Option func(*DB)

// WithTable sets the table queries run against.
func WithTable(table string) Option {
	return func(d *DB) {
		d.table = table
	}
}

// WithParseDates marks columns whose text values are converted to
// time.Time by Result.Dicts and Result.Groups.
func WithParseDates(cols ...string) Option {
	return func(d *DB) {
		for _, c := range cols {
			d.parseDates[c] = struct{}{}
		}
	}
}

// WithLogger sets the logger used for statement tracing.
func WithLogger(l logger.Logger) Option {
	return func(d *DB) {
		if l != nil {
			d.log = l
		}
	}
}

// WithDriver overrides the database/sql driver name. Defaults to "sqlite".
func WithDriver(name string) Option {
	return func(d *DB) {
		if name != "" {
			d.driver = name
		}
	}
}

// WithConn installs an already opened handle as the persistent connection.
// Close will close it.
func WithConn(db *sql.DB) Option {
	return func(d *DB) {
		if db != nil {
			d.conn = db
		}
	}
}
