package inmemdb

import (
	"context"
	"sort"

	"github.com/nocheto/libretas/core/consolidation"
)

type consolidationRepository struct {
	db *DB
}

var _ consolidation.Repository = (*consolidationRepository)(nil)

func NewConsolidationRepository(db *DB) *consolidationRepository {
	return &consolidationRepository{db: db}
}

func (repo *consolidationRepository) Close(_ context.Context, c consolidation.Consolidation) (consolidation.Consolidation, error) {
	repo.db.ledger.Lock()
	defer repo.db.ledger.Unlock()
	repo.db.consolidation.Lock()
	defer repo.db.consolidation.Unlock()

	if c.ClosedAt != nil {
		at := c.ClosedAt.UTC()
		c.ClosedAt = &at
	}
	repo.db.consolidation.table[consolidation.Period{Section: c.Section, Bimester: c.Bimester}] = &c
	return c, nil
}

func (repo *consolidationRepository) Reopen(_ context.Context, p consolidation.Period) (consolidation.Consolidation, error) {
	repo.db.ledger.Lock()
	defer repo.db.ledger.Unlock()
	repo.db.consolidation.Lock()
	defer repo.db.consolidation.Unlock()

	c, ok := repo.db.consolidation.table[p]
	if !ok {
		return consolidation.Consolidation{}, consolidation.ErrNotFound
	}
	c.IsClosed = false
	c.ClosedBy = ""
	c.ClosedAt = nil
	return *c, nil
}

func (repo *consolidationRepository) GetConsolidation(_ context.Context, p consolidation.Period) (consolidation.Consolidation, error) {
	repo.db.consolidation.RLock()
	defer repo.db.consolidation.RUnlock()

	if c, ok := repo.db.consolidation.table[p]; ok {
		return *c, nil
	}
	return consolidation.Consolidation{}, consolidation.ErrNotFound
}

func (repo *consolidationRepository) QueryConsolidations(_ context.Context) ([]consolidation.Consolidation, error) {
	repo.db.consolidation.RLock()
	defer repo.db.consolidation.RUnlock()

	res := make([]consolidation.Consolidation, 0, len(repo.db.consolidation.table))
	for _, c := range repo.db.consolidation.table {
		res = append(res, *c)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Section != res[j].Section {
			return res[i].Section < res[j].Section
		}
		return res[i].Bimester < res[j].Bimester
	})
	return res, nil
}
