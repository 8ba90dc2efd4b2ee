package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okian/mrelo/pkg/dorm"
)

func newQueryCmd() *cobra.Command {
	var (
		selects []string
		where   []string
		groups  []string
		having  []string
		orders  []string
		limit   int
		format  string
		show    bool
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run an ad hoc query against the games table",
		Long: `Query builds a SELECT on the games table from its flags.

Conditions are raw SQL joined with AND. Orders take an optional direction
after a colon, e.g. --order played_at:desc. The stdev aggregate is available
next to the SQLite built-ins.`,
		Example: `  elotune query --select season --select "COUNT(*)" --group season
  elotune query --select team1 --select "AVG(score1 - score2)" --group team1 --order "AVG(score1 - score2):desc"
  elotune query --where "season = '2023'" --order played_at:desc --limit 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			store, err := openStore(cmd, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			q := buildQuery(store.DB(), selects, where, groups, having, orders, limit)
			if show {
				sql, err := q.Query()
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), sql)
			}
			res, err := q.Run(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), format, res.Columns, res.Rows)
		},
	}

	fs := cmd.Flags()
	fs.StringArrayVarP(&selects, "select", "s", nil, "result expression (repeatable, default *)")
	fs.StringArrayVarP(&where, "where", "w", nil, "WHERE condition (repeatable)")
	fs.StringArrayVarP(&groups, "group", "g", nil, "GROUP BY column (repeatable)")
	fs.StringArrayVar(&having, "having", nil, "HAVING condition (repeatable)")
	fs.StringArrayVarP(&orders, "order", "o", nil, "ORDER BY column[:asc|desc] (repeatable)")
	fs.IntVarP(&limit, "limit", "n", 0, "maximum rows (0 means no limit)")
	fs.StringVarP(&format, "format", "f", formatTable, "output format (table|json|csv)")
	fs.BoolVar(&show, "show-sql", false, "print the generated SQL to stderr")
	return cmd
}

func buildQuery(db *dorm.DB, selects, where, groups, having, orders []string, limit int) *dorm.DB {
	db.Select(selects...).Group(groups...).Limit(limit)
	for _, w := range where {
		db.Where(dorm.Expr(w))
	}
	for _, h := range having {
		db.Having(dorm.Expr(h))
	}
	for _, o := range orders {
		col, dir, _ := strings.Cut(o, ":")
		db.OrderDir(col, dir)
	}
	return db
}
