package inmemdb

import (
	"context"
	"sort"

	"github.com/nocheto/libretas/core/consolidation"
	"github.com/nocheto/libretas/core/grade"
)

type gradeRepository struct {
	db *DB
}

var _ grade.Repository = (*gradeRepository)(nil)

func NewGradeRepository(db *DB) *gradeRepository {
	return &gradeRepository{db: db}
}

func (repo *gradeRepository) UpsertGrades(_ context.Context, entries ...grade.Entry) ([]grade.Entry, error) {
	repo.db.ledger.RLock()
	defer repo.db.ledger.RUnlock()

	for _, e := range entries {
		if repo.db.isClosed(e.Section, e.Bimester) {
			return nil, consolidation.ErrPeriodClosed
		}
	}

	repo.db.grade.Lock()
	defer repo.db.grade.Unlock()

	saved := make([]grade.Entry, 0, len(entries))
	for _, e := range entries {
		e := e
		e.Value = copyFloat(e.Value)
		if orig, ok := repo.db.grade.table[e.Key]; ok && e.Month == "" {
			e.Month = orig.Month
		}
		repo.db.grade.table[e.Key] = &e
		saved = append(saved, e)
	}
	return saved, nil
}

func (repo *gradeRepository) GetGrade(_ context.Context, key grade.Key) (grade.Entry, error) {
	repo.db.grade.RLock()
	defer repo.db.grade.RUnlock()

	if e, ok := repo.db.grade.table[key]; ok {
		return *e, nil
	}
	return grade.Entry{}, grade.ErrNotFound
}

func (repo *gradeRepository) QueryGrades(_ context.Context, filter grade.QueryFilter) ([]grade.Entry, error) {
	repo.db.grade.RLock()
	defer repo.db.grade.RUnlock()

	res := make([]grade.Entry, 0)
	for k, e := range repo.db.grade.table {
		if filter.Match(k) {
			res = append(res, *e)
		}
	}
	sort.Slice(res, func(i, j int) bool { return lessKey(res[i].Key, res[j].Key) })
	return res, nil
}

func (repo *gradeRepository) UpsertExam(_ context.Context, exam grade.Exam) (grade.Exam, error) {
	repo.db.ledger.RLock()
	defer repo.db.ledger.RUnlock()

	if repo.db.isClosed(exam.Section, exam.Bimester) {
		return grade.Exam{}, consolidation.ErrPeriodClosed
	}

	repo.db.exam.Lock()
	defer repo.db.exam.Unlock()

	exam.ExamGrade = copyFloat(exam.ExamGrade)
	repo.db.exam.table[exam.Key] = &exam
	return exam, nil
}

func (repo *gradeRepository) GetExam(_ context.Context, key grade.Key) (grade.Exam, error) {
	repo.db.exam.RLock()
	defer repo.db.exam.RUnlock()

	if ex, ok := repo.db.exam.table[key]; ok {
		return *ex, nil
	}
	return grade.Exam{}, grade.ErrNotFound
}

func (repo *gradeRepository) QueryExams(_ context.Context, filter grade.QueryFilter) ([]grade.Exam, error) {
	repo.db.exam.RLock()
	defer repo.db.exam.RUnlock()

	res := make([]grade.Exam, 0)
	for k, ex := range repo.db.exam.table {
		if filter.Match(k) {
			res = append(res, *ex)
		}
	}
	sort.Slice(res, func(i, j int) bool { return lessKey(res[i].Key, res[j].Key) })
	return res, nil
}

func lessKey(a, b grade.Key) bool {
	switch {
	case a.Section != b.Section:
		return a.Section < b.Section
	case a.Bimester != b.Bimester:
		return a.Bimester < b.Bimester
	case a.CourseID != b.CourseID:
		return a.CourseID < b.CourseID
	}
	return a.StudentID < b.StudentID
}

// copyFloat detaches stored values from caller-owned pointers.
func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
