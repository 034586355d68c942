// Package sqlxrepos implements the repositories on PostgreSQL with sqlx.
//
// Writes guarded by a period lock run in a transaction that first takes a transaction-level
// advisory lock on the (section, bimester) key, then reads the consolidation state. Close and
// reopen take the same lock, so the closed check holds until commit.
package sqlxrepos

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/nocheto/libretas/core"
	"github.com/nocheto/libretas/core/consolidation"
)

func withTx(ctx context.Context, db core.DB, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = errors.Wrap(tx.Commit(), "committing transaction")
	}()
	return fn(tx)
}

// lockPeriods takes the advisory locks of periods in a stable order.
func lockPeriods(ctx context.Context, exec core.DBExecutor, periods ...consolidation.Period) error {
	keys := make([]string, 0, len(periods))
	seen := make(map[string]bool, len(periods))
	for _, p := range periods {
		k := p.Section + "/" + p.Bimester
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, err := exec.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", k); err != nil {
			return errors.Wrap(err, "locking period")
		}
	}
	return nil
}

// checkOpen returns consolidation.ErrPeriodClosed if any of periods is closed.
func checkOpen(ctx context.Context, exec core.DBExecutor, periods ...consolidation.Period) error {
	for _, p := range periods {
		var closed bool
		err := exec.GetContext(ctx, &closed,
			"SELECT is_closed FROM consolidation WHERE section = $1 AND bimester = $2", p.Section, p.Bimester)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return errors.Wrap(err, "checking period state")
		}
		if closed {
			return consolidation.ErrPeriodClosed
		}
	}
	return nil
}

// filter accumulates AND-ed equality conditions on non-empty values.
type filter struct {
	clauses []string
	args    []interface{}
}

func (f *filter) eq(column, value string) {
	if value != "" {
		f.clauses = append(f.clauses, column+" = ?")
		f.args = append(f.args, value)
	}
}

func (f *filter) where() string {
	if len(f.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.clauses, " AND ")
}
