package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/nocheto/libretas/core/average"
	"github.com/nocheto/libretas/core/rubric"
)

type sheetRepository struct {
	db *sheetTable
}

var _ rubric.Repository = (*sheetRepository)(nil)

func NewSheetRepository(db *DB) *sheetRepository {
	return &sheetRepository{db: db.sheet}
}

func (repo *sheetRepository) SaveSheet(_ context.Context, sheet rubric.Sheet) (rubric.Sheet, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if orig, ok := repo.db.table[sheet.Key]; ok {
		sheet.ID = orig.ID
	} else if sheet.ID == "" {
		sheet.ID = uuid.New().String()
	}
	sheet = copySheet(sheet)
	repo.db.table[sheet.Key] = &sheet
	return copySheet(sheet), nil
}

func (repo *sheetRepository) GetSheet(_ context.Context, key rubric.Key) (rubric.Sheet, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.table[key]; ok {
		return copySheet(*s), nil
	}
	return rubric.Sheet{}, rubric.ErrNotFound
}

func (repo *sheetRepository) QuerySheets(_ context.Context, filter rubric.QueryFilter) ([]rubric.Sheet, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	res := make([]rubric.Sheet, 0)
	for _, s := range repo.db.table {
		if filter.Match(*s) {
			res = append(res, copySheet(*s))
		}
	}
	sort.Slice(res, func(i, j int) bool {
		a, b := res[i], res[j]
		switch {
		case a.Section != b.Section:
			return a.Section < b.Section
		case a.CourseID != b.CourseID:
			return a.CourseID < b.CourseID
		case a.Bimester != b.Bimester:
			return a.Bimester < b.Bimester
		case a.Month != b.Month:
			return a.Month < b.Month
		}
		return a.TeacherID < b.TeacherID
	})
	return res, nil
}

func copySheet(s rubric.Sheet) rubric.Sheet {
	s.Rubrics = append([]average.Rubric(nil), s.Rubrics...)
	scores := make(rubric.Scores, len(s.Scores))
	for studID, byRubric := range s.Scores {
		m := make(map[string]*float64, len(byRubric))
		for rubID, v := range byRubric {
			m[rubID] = copyFloat(v)
		}
		scores[studID] = m
	}
	s.Scores = scores
	if s.SubmittedAt != nil {
		at := *s.SubmittedAt
		s.SubmittedAt = &at
	}
	return s
}
