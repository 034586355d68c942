package grade

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/nocheto/libretas/core"
	"github.com/nocheto/libretas/core/average"
	"github.com/nocheto/libretas/core/consolidation"
	"github.com/nocheto/libretas/core/school"
)

var (
	// errors
	ErrNotFound = errors.New("grade not found")
)

type (
	Repository interface {
		// UpsertGrades writes every entry or none, overwriting the entry of the same Key.
		// It returns consolidation.ErrPeriodClosed when the period of any entry is closed at commit time.
		UpsertGrades(ctx context.Context, entries ...Entry) ([]Entry, error)
		GetGrade(ctx context.Context, key Key) (Entry, error)
		// QueryGrades applies AND operation on available QueryFilter fields.
		QueryGrades(ctx context.Context, filter QueryFilter) ([]Entry, error)

		// UpsertExam has the same closed-period guard as UpsertGrades.
		UpsertExam(ctx context.Context, exam Exam) (Exam, error)
		GetExam(ctx context.Context, key Key) (Exam, error)
		QueryExams(ctx context.Context, filter QueryFilter) ([]Exam, error)
	}

	Service struct {
		repo     Repository
		ledger   consolidation.Ledger
		dir      school.Directory
		validate *validator.Validate
		logger   core.Logger
	}
)

func NewService(
	repo Repository,
	ledger consolidation.Ledger,
	dir school.Directory,
	validate *validator.Validate,
	logger core.Logger,
) *Service {
	return &Service{
		repo:     repo,
		ledger:   ledger,
		dir:      dir,
		validate: validate,
		logger:   logger,
	}
}

// checkKey validates the key against the directory: known student of that section, course and bimester.
func (svc *Service) checkKey(k Key, month string) error {
	var flds []core.FieldError
	if stud, err := svc.dir.Student(k.StudentID); err != nil {
		flds = append(flds, core.FieldError{Field: "student_id", Error: err.Error()})
	} else if stud.Section != k.Section {
		flds = append(flds, core.FieldError{Field: "section", Error: "student does not belong to this section"})
	}
	if _, err := svc.dir.Course(k.CourseID); err != nil {
		flds = append(flds, core.FieldError{Field: "course_id", Error: err.Error()})
	}
	if bim, err := svc.dir.Bimester(k.Bimester); err != nil {
		flds = append(flds, core.FieldError{Field: "bimester", Error: err.Error()})
	} else if month != "" && !bim.HasMonth(month) {
		flds = append(flds, core.FieldError{Field: "month", Error: "month does not belong to this bimester"})
	}
	if flds != nil {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

// checkOpen fails fast when the period is already closed; the repository checks again at commit time.
func (svc *Service) checkOpen(ctx context.Context, section, bimester string) error {
	closed, err := svc.ledger.IsClosed(ctx, section, bimester)
	if err != nil {
		return err
	}
	if closed {
		return consolidation.ErrPeriodClosed
	}
	return nil
}

// Upsert writes the monthly grade of a key, replacing any previous value.
// An empty month keeps the month already stored on the key.
// A closed period yields consolidation.ErrPeriodClosed and leaves the store untouched.
func (svc *Service) Upsert(ctx context.Context, ng NewGrade) (Entry, error) {
	entries, err := svc.UpsertMany(ctx, []NewGrade{ng})
	if err != nil {
		return Entry{}, err
	}
	return entries[0], nil
}

// UpsertMany writes all grades or none.
func (svc *Service) UpsertMany(ctx context.Context, grades []NewGrade) ([]Entry, error) {
	if len(grades) == 0 {
		return nil, nil
	}

	now := core.NowFunc()
	entries := make([]Entry, 0, len(grades))
	checked := make(map[[2]string]bool)
	for i := range grades {
		ng := &grades[i]
		if err := ng.Validate(svc.validate); err != nil {
			return nil, err
		}
		if err := svc.checkKey(ng.Key, ng.Month); err != nil {
			return nil, err
		}
		period := [2]string{ng.Section, ng.Bimester}
		if !checked[period] {
			if err := svc.checkOpen(ctx, ng.Section, ng.Bimester); err != nil {
				return nil, err
			}
			checked[period] = true
		}
		entries = append(entries, Entry{
			Key:       ng.Key,
			Month:     ng.Month,
			Value:     ng.Value,
			TeacherID: ng.TeacherID,
			UpdatedAt: now,
		})
	}

	saved, err := svc.repo.UpsertGrades(ctx, entries...)
	if err != nil {
		if errors.Is(err, consolidation.ErrPeriodClosed) {
			svc.logger.Warn(fmt.Sprintf("grade write rejected, period closed: %d entries", len(entries)))
		}
		return nil, err
	}
	return saved, nil
}

func (svc *Service) Get(ctx context.Context, key Key) (Entry, error) {
	key.clean()
	return svc.repo.GetGrade(ctx, key)
}

// Query is a pure read of the entries matching every supplied filter field.
func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Entry, error) {
	filter.Clean()
	return svc.repo.QueryGrades(ctx, filter)
}

// UpsertExam writes the bimester exam grade of a key, with the same closed-period guard as Upsert.
func (svc *Service) UpsertExam(ctx context.Context, ne NewExam) (Exam, error) {
	if err := ne.Validate(svc.validate); err != nil {
		return Exam{}, err
	}
	if err := svc.checkKey(ne.Key, ""); err != nil {
		return Exam{}, err
	}
	if err := svc.checkOpen(ctx, ne.Section, ne.Bimester); err != nil {
		return Exam{}, err
	}

	exam, err := svc.repo.UpsertExam(ctx, Exam{
		Key:       ne.Key,
		ExamGrade: ne.ExamGrade,
		TeacherID: ne.TeacherID,
		UpdatedAt: core.NowFunc(),
	})
	if err != nil {
		if errors.Is(err, consolidation.ErrPeriodClosed) {
			svc.logger.Warn("exam write rejected, period closed")
		}
		return Exam{}, err
	}
	return exam, nil
}

func (svc *Service) GetExam(ctx context.Context, key Key) (Exam, error) {
	key.clean()
	return svc.repo.GetExam(ctx, key)
}

func (svc *Service) QueryExams(ctx context.Context, filter QueryFilter) ([]Exam, error) {
	filter.Clean()
	return svc.repo.QueryExams(ctx, filter)
}

// BimesterFinal is the rounded mean of the monthly grade and the exam grade of key;
// nil unless both exist.
func (svc *Service) BimesterFinal(ctx context.Context, key Key) (*float64, error) {
	key.clean()

	var monthly, exam *float64
	entry, err := svc.repo.GetGrade(ctx, key)
	switch {
	case err == nil:
		monthly = entry.Value
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	ex, err := svc.repo.GetExam(ctx, key)
	switch {
	case err == nil:
		exam = ex.ExamGrade
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}
	return average.BimesterFinal(monthly, exam), nil
}

// SectionFinals returns the bimester final of every student of section for a course, in roster order.
func (svc *Service) SectionFinals(ctx context.Context, section, bimester, courseID string) ([]Final, error) {
	filter := QueryFilter{Section: section, Bimester: bimester, CourseID: courseID}
	filter.Clean()
	if _, err := svc.dir.Course(filter.CourseID); err != nil {
		return nil, err
	}
	if _, err := svc.dir.Bimester(filter.Bimester); err != nil {
		return nil, err
	}

	table, err := svc.FinalsTable(ctx, filter)
	if err != nil {
		return nil, err
	}

	students := svc.dir.StudentsBySection(filter.Section)
	finals := make([]Final, 0, len(students))
	for _, stud := range students {
		key := Key{StudentID: stud.ID, CourseID: filter.CourseID, Section: filter.Section, Bimester: filter.Bimester}
		if f, ok := table[key]; ok {
			finals = append(finals, f)
		} else {
			finals = append(finals, Final{Key: key})
		}
	}
	return finals, nil
}

// FinalsTable computes the finals of every key having a monthly grade or an exam matching filter.
func (svc *Service) FinalsTable(ctx context.Context, filter QueryFilter) (map[Key]Final, error) {
	entries, err := svc.repo.QueryGrades(ctx, filter)
	if err != nil {
		return nil, err
	}
	exams, err := svc.repo.QueryExams(ctx, filter)
	if err != nil {
		return nil, err
	}

	table := make(map[Key]Final, len(entries))
	for _, e := range entries {
		table[e.Key] = Final{Key: e.Key, Monthly: e.Value}
	}
	for _, ex := range exams {
		f := table[ex.Key]
		f.Key = ex.Key
		f.Exam = ex.ExamGrade
		table[ex.Key] = f
	}
	for k, f := range table {
		f.Final = average.BimesterFinal(f.Monthly, f.Exam)
		table[k] = f
	}
	return table, nil
}

// AnnualAverage returns the bimester finals of a student for a course, in period order, and their mean.
// The mean is nil unless every bimester has a final.
func (svc *Service) AnnualAverage(ctx context.Context, studentID, courseID, section string) (*float64, []*float64, error) {
	table, err := svc.FinalsTable(ctx, QueryFilter{
		Section:   core.CleanString(section),
		CourseID:  core.CleanString(courseID),
		StudentID: core.CleanString(studentID),
	})
	if err != nil {
		return nil, nil, err
	}

	bimesters := svc.dir.Bimesters()
	finals := make([]*float64, 0, len(bimesters))
	for _, b := range bimesters {
		key := Key{
			StudentID: core.CleanString(studentID),
			CourseID:  core.CleanString(courseID),
			Section:   core.CleanString(section),
			Bimester:  b.ID,
		}
		finals = append(finals, table[key].Final)
	}
	return average.AnnualAverage(finals), finals, nil
}
