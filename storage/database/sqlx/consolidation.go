package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/nocheto/libretas/core"
	"github.com/nocheto/libretas/core/consolidation"
)

const consolidationColumns = "section, bimester, is_closed, closed_by, closed_at"

type consolidationRow struct {
	Section  string      `db:"section"`
	Bimester string      `db:"bimester"`
	IsClosed bool        `db:"is_closed"`
	ClosedBy null.String `db:"closed_by"`
	ClosedAt null.Time   `db:"closed_at"`
}

func (r consolidationRow) consolidation() consolidation.Consolidation {
	c := consolidation.Consolidation{
		Section:  r.Section,
		Bimester: r.Bimester,
		IsClosed: r.IsClosed,
		ClosedBy: r.ClosedBy.String,
	}
	if r.ClosedAt.Valid {
		at := r.ClosedAt.Time.UTC()
		c.ClosedAt = &at
	}
	return c
}

type consolidationRepository struct {
	db core.DB
}

var _ consolidation.Repository = (*consolidationRepository)(nil)

func NewConsolidationRepository(db core.DB) *consolidationRepository {
	return &consolidationRepository{db: db}
}

func (repo consolidationRepository) Close(ctx context.Context, c consolidation.Consolidation) (consolidation.Consolidation, error) {
	var row consolidationRow
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if err := lockPeriods(ctx, tx, consolidation.Period{Section: c.Section, Bimester: c.Bimester}); err != nil {
			return err
		}
		q := `INSERT INTO consolidation (` + consolidationColumns + `) VALUES ($1, $2, TRUE, $3, $4)
			ON CONFLICT (section, bimester) DO UPDATE
			SET is_closed = TRUE, closed_by = EXCLUDED.closed_by, closed_at = EXCLUDED.closed_at
			RETURNING ` + consolidationColumns
		return tx.GetContext(ctx, &row, q, c.Section, c.Bimester, null.StringFrom(c.ClosedBy), null.TimeFromPtr(c.ClosedAt))
	})
	if err != nil {
		return consolidation.Consolidation{}, errors.Wrap(err, "closing period")
	}
	return row.consolidation(), nil
}

func (repo consolidationRepository) Reopen(ctx context.Context, p consolidation.Period) (consolidation.Consolidation, error) {
	var row consolidationRow
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if err := lockPeriods(ctx, tx, p); err != nil {
			return err
		}
		q := `UPDATE consolidation SET is_closed = FALSE, closed_by = NULL, closed_at = NULL
			WHERE section = $1 AND bimester = $2
			RETURNING ` + consolidationColumns
		return tx.GetContext(ctx, &row, q, p.Section, p.Bimester)
	})
	if errors.Cause(err) == sql.ErrNoRows {
		return consolidation.Consolidation{}, consolidation.ErrNotFound
	}
	if err != nil {
		return consolidation.Consolidation{}, errors.Wrap(err, "reopening period")
	}
	return row.consolidation(), nil
}

func (repo consolidationRepository) GetConsolidation(ctx context.Context, p consolidation.Period) (consolidation.Consolidation, error) {
	var row consolidationRow
	q := "SELECT " + consolidationColumns + " FROM consolidation WHERE section = $1 AND bimester = $2"
	if err := repo.db.GetContext(ctx, &row, q, p.Section, p.Bimester); err != nil {
		if err == sql.ErrNoRows {
			return consolidation.Consolidation{}, consolidation.ErrNotFound
		}
		return consolidation.Consolidation{}, errors.Wrap(err, "getting consolidation")
	}
	return row.consolidation(), nil
}

func (repo consolidationRepository) QueryConsolidations(ctx context.Context) ([]consolidation.Consolidation, error) {
	var rows []consolidationRow
	q := "SELECT " + consolidationColumns + " FROM consolidation ORDER BY section, bimester"
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying consolidations")
	}
	res := make([]consolidation.Consolidation, 0, len(rows))
	for _, r := range rows {
		res = append(res, r.consolidation())
	}
	return res, nil
}
