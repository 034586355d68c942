package inmemdb

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nocheto/libretas/core/consolidation"
	"github.com/nocheto/libretas/core/grade"
)

func TestGradeRepository_closeRace(t *testing.T) {
	ctx := context.Background()
	db := Open()
	grades := NewGradeRepository(db)
	ledger := NewConsolidationRepository(db)

	now := time.Now().UTC()
	var wg sync.WaitGroup
	results := make([]error, 50)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v := float64(i % 21)
			_, results[i] = grades.UpsertGrades(ctx, grade.Entry{
				Key:   grade.Key{StudentID: "s", CourseID: "c", Section: "1A", Bimester: "bim1"},
				Value: &v,
			})
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = ledger.Close(ctx, consolidation.Consolidation{Section: "1A", Bimester: "bim1", IsClosed: true, ClosedBy: "u", ClosedAt: &now})
	}()
	wg.Wait()

	// every write either landed before the close or was rejected
	for _, err := range results {
		if err != nil {
			assert.Equal(t, consolidation.ErrPeriodClosed, err)
		}
	}
	snapshot, err := grades.QueryGrades(ctx, grade.QueryFilter{})
	require.NoError(t, err)

	v := 1.0
	_, err = grades.UpsertGrades(ctx, grade.Entry{Key: grade.Key{StudentID: "s", CourseID: "c", Section: "1A", Bimester: "bim1"}, Value: &v})
	assert.Equal(t, consolidation.ErrPeriodClosed, err)

	after, err := grades.QueryGrades(ctx, grade.QueryFilter{})
	require.NoError(t, err)
	assert.Equal(t, snapshot, after)
}

func TestGradeRepository_storedValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewGradeRepository(Open())
	key := grade.Key{StudentID: "s", CourseID: "c", Section: "1A", Bimester: "bim1"}

	v := 12.0
	_, err := repo.UpsertGrades(ctx, grade.Entry{Key: key, Value: &v})
	require.NoError(t, err)
	v = 19

	got, err := repo.GetGrade(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 12.0, *got.Value)
}
