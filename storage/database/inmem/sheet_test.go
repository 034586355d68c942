package inmemdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nocheto/libretas/core/average"
	"github.com/nocheto/libretas/core/rubric"
)

func TestSheetRepository_SaveSheet(t *testing.T) {
	ctx := context.Background()
	repo := NewSheetRepository(Open())
	key := rubric.Key{TeacherID: "t", Section: "1A", CourseID: "mat", Bimester: "bim1", Month: "marzo"}

	first, err := repo.SaveSheet(ctx, rubric.Sheet{Key: key, Rubrics: []average.Rubric{{ID: "1", Name: "a", Percentage: 40}}})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	second, err := repo.SaveSheet(ctx, rubric.Sheet{Key: key, Rubrics: []average.Rubric{{ID: "1", Name: "a", Percentage: 100}}})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	got, err := repo.GetSheet(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, float64(100), got.Total())

	other := key
	other.Month = "abril"
	_, err = repo.GetSheet(ctx, other)
	assert.Equal(t, rubric.ErrNotFound, err)

	sheets, err := repo.QuerySheets(ctx, rubric.QueryFilter{Section: "1A"})
	require.NoError(t, err)
	assert.Len(t, sheets, 1)
}
