package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/nocheto/libretas/core"
	"github.com/nocheto/libretas/core/consolidation"
	"github.com/nocheto/libretas/core/grade"
)

const (
	keyColumns   = "student_id, course_id, section, bimester"
	keyOrder     = " ORDER BY section, bimester, course_id, student_id"
	gradeColumns = keyColumns + ", month, value, teacher_id, updated_at"
	examColumns  = keyColumns + ", exam_grade, teacher_id, updated_at"
)

type keyRow struct {
	StudentID string `db:"student_id"`
	CourseID  string `db:"course_id"`
	Section   string `db:"section"`
	Bimester  string `db:"bimester"`
}

func (r keyRow) key() grade.Key {
	return grade.Key{StudentID: r.StudentID, CourseID: r.CourseID, Section: r.Section, Bimester: r.Bimester}
}

type gradeRow struct {
	keyRow
	Month     null.String  `db:"month"`
	Value     null.Float64 `db:"value"`
	TeacherID string       `db:"teacher_id"`
	UpdatedAt time.Time    `db:"updated_at"`
}

func (r gradeRow) entry() grade.Entry {
	return grade.Entry{
		Key:       r.key(),
		Month:     r.Month.String,
		Value:     r.Value.Ptr(),
		TeacherID: r.TeacherID,
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type examRow struct {
	keyRow
	ExamGrade null.Float64 `db:"exam_grade"`
	TeacherID string       `db:"teacher_id"`
	UpdatedAt time.Time    `db:"updated_at"`
}

func (r examRow) exam() grade.Exam {
	return grade.Exam{
		Key:       r.key(),
		ExamGrade: r.ExamGrade.Ptr(),
		TeacherID: r.TeacherID,
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type gradeRepository struct {
	db core.DB
}

var _ grade.Repository = (*gradeRepository)(nil)

func NewGradeRepository(db core.DB) *gradeRepository {
	return &gradeRepository{db: db}
}

func (repo gradeRepository) UpsertGrades(ctx context.Context, entries ...grade.Entry) ([]grade.Entry, error) {
	periods := make([]consolidation.Period, 0, len(entries))
	for _, e := range entries {
		periods = append(periods, consolidation.Period{Section: e.Section, Bimester: e.Bimester})
	}

	saved := make([]grade.Entry, 0, len(entries))
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if err := lockPeriods(ctx, tx, periods...); err != nil {
			return err
		}
		if err := checkOpen(ctx, tx, periods...); err != nil {
			return err
		}

		q := `INSERT INTO grade_entry (` + gradeColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (` + keyColumns + `) DO UPDATE
			SET month = COALESCE(EXCLUDED.month, grade_entry.month), value = EXCLUDED.value,
				teacher_id = EXCLUDED.teacher_id, updated_at = EXCLUDED.updated_at
			RETURNING ` + gradeColumns
		for _, e := range entries {
			var row gradeRow
			err := tx.GetContext(ctx, &row, q, e.StudentID, e.CourseID, e.Section, e.Bimester,
				null.NewString(e.Month, e.Month != ""), null.Float64FromPtr(e.Value), e.TeacherID, e.UpdatedAt)
			if err != nil {
				return errors.Wrap(err, "upserting grade")
			}
			saved = append(saved, row.entry())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (repo gradeRepository) GetGrade(ctx context.Context, key grade.Key) (grade.Entry, error) {
	var row gradeRow
	q := "SELECT " + gradeColumns + " FROM grade_entry WHERE student_id = $1 AND course_id = $2 AND section = $3 AND bimester = $4"
	if err := repo.db.GetContext(ctx, &row, q, key.StudentID, key.CourseID, key.Section, key.Bimester); err != nil {
		if err == sql.ErrNoRows {
			return grade.Entry{}, grade.ErrNotFound
		}
		return grade.Entry{}, errors.Wrap(err, "getting grade")
	}
	return row.entry(), nil
}

func (repo gradeRepository) QueryGrades(ctx context.Context, qf grade.QueryFilter) ([]grade.Entry, error) {
	f := keyFilter(qf)
	var rows []gradeRow
	q := repo.db.Rebind("SELECT " + gradeColumns + " FROM grade_entry" + f.where() + keyOrder)
	if err := repo.db.SelectContext(ctx, &rows, q, f.args...); err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}
	res := make([]grade.Entry, 0, len(rows))
	for _, r := range rows {
		res = append(res, r.entry())
	}
	return res, nil
}

func (repo gradeRepository) UpsertExam(ctx context.Context, exam grade.Exam) (grade.Exam, error) {
	period := consolidation.Period{Section: exam.Section, Bimester: exam.Bimester}

	var row examRow
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if err := lockPeriods(ctx, tx, period); err != nil {
			return err
		}
		if err := checkOpen(ctx, tx, period); err != nil {
			return err
		}

		q := `INSERT INTO bimester_exam (` + examColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (` + keyColumns + `) DO UPDATE
			SET exam_grade = EXCLUDED.exam_grade, teacher_id = EXCLUDED.teacher_id, updated_at = EXCLUDED.updated_at
			RETURNING ` + examColumns
		err := tx.GetContext(ctx, &row, q, exam.StudentID, exam.CourseID, exam.Section, exam.Bimester,
			null.Float64FromPtr(exam.ExamGrade), exam.TeacherID, exam.UpdatedAt)
		return errors.Wrap(err, "upserting exam")
	})
	if err != nil {
		return grade.Exam{}, err
	}
	return row.exam(), nil
}

func (repo gradeRepository) GetExam(ctx context.Context, key grade.Key) (grade.Exam, error) {
	var row examRow
	q := "SELECT " + examColumns + " FROM bimester_exam WHERE student_id = $1 AND course_id = $2 AND section = $3 AND bimester = $4"
	if err := repo.db.GetContext(ctx, &row, q, key.StudentID, key.CourseID, key.Section, key.Bimester); err != nil {
		if err == sql.ErrNoRows {
			return grade.Exam{}, grade.ErrNotFound
		}
		return grade.Exam{}, errors.Wrap(err, "getting exam")
	}
	return row.exam(), nil
}

func (repo gradeRepository) QueryExams(ctx context.Context, qf grade.QueryFilter) ([]grade.Exam, error) {
	f := keyFilter(qf)
	var rows []examRow
	q := repo.db.Rebind("SELECT " + examColumns + " FROM bimester_exam" + f.where() + keyOrder)
	if err := repo.db.SelectContext(ctx, &rows, q, f.args...); err != nil {
		return nil, errors.Wrap(err, "querying exams")
	}
	res := make([]grade.Exam, 0, len(rows))
	for _, r := range rows {
		res = append(res, r.exam())
	}
	return res, nil
}

func keyFilter(qf grade.QueryFilter) *filter {
	f := new(filter)
	f.eq("section", qf.Section)
	f.eq("bimester", qf.Bimester)
	f.eq("course_id", qf.CourseID)
	f.eq("student_id", qf.StudentID)
	return f
}
