package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/nocheto/libretas/core"
	"github.com/nocheto/libretas/core/average"
	"github.com/nocheto/libretas/core/rubric"
)

const sheetColumns = "id, teacher_id, section, course_id, bimester, month, rubrics, scores, status, submitted_at, updated_at"

type sheetRow struct {
	ID          string    `db:"id"`
	TeacherID   string    `db:"teacher_id"`
	Section     string    `db:"section"`
	CourseID    string    `db:"course_id"`
	Bimester    string    `db:"bimester"`
	Month       string    `db:"month"`
	Rubrics     []byte    `db:"rubrics"`
	Scores      []byte    `db:"scores"`
	Status      string    `db:"status"`
	SubmittedAt null.Time `db:"submitted_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r sheetRow) sheet() (rubric.Sheet, error) {
	s := rubric.Sheet{
		ID: r.ID,
		Key: rubric.Key{
			TeacherID: r.TeacherID,
			Section:   r.Section,
			CourseID:  r.CourseID,
			Bimester:  r.Bimester,
			Month:     r.Month,
		},
		Status:    rubric.Status(r.Status),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
	if err := json.Unmarshal(r.Rubrics, &s.Rubrics); err != nil {
		return rubric.Sheet{}, errors.Wrap(err, "decoding rubrics")
	}
	if err := json.Unmarshal(r.Scores, &s.Scores); err != nil {
		return rubric.Sheet{}, errors.Wrap(err, "decoding scores")
	}
	if r.SubmittedAt.Valid {
		at := r.SubmittedAt.Time.UTC()
		s.SubmittedAt = &at
	}
	return s, nil
}

type sheetRepository struct {
	db core.DB
}

var _ rubric.Repository = (*sheetRepository)(nil)

func NewSheetRepository(db core.DB) *sheetRepository {
	return &sheetRepository{db: db}
}

func (repo sheetRepository) SaveSheet(ctx context.Context, sheet rubric.Sheet) (rubric.Sheet, error) {
	if sheet.Rubrics == nil {
		sheet.Rubrics = []average.Rubric{}
	}
	if sheet.Scores == nil {
		sheet.Scores = rubric.Scores{}
	}
	rubrics, err := json.Marshal(sheet.Rubrics)
	if err != nil {
		return rubric.Sheet{}, errors.Wrap(err, "encoding rubrics")
	}
	scores, err := json.Marshal(sheet.Scores)
	if err != nil {
		return rubric.Sheet{}, errors.Wrap(err, "encoding scores")
	}
	if sheet.ID == "" {
		sheet.ID = uuid.New().String()
	}

	q := `INSERT INTO grading_sheet (` + sheetColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (teacher_id, section, course_id, bimester, month) DO UPDATE
		SET rubrics = EXCLUDED.rubrics, scores = EXCLUDED.scores, status = EXCLUDED.status,
			submitted_at = EXCLUDED.submitted_at, updated_at = EXCLUDED.updated_at
		RETURNING ` + sheetColumns
	var row sheetRow
	err = repo.db.GetContext(ctx, &row, q, sheet.ID, sheet.TeacherID, sheet.Section, sheet.CourseID, sheet.Bimester,
		sheet.Month, rubrics, scores, string(sheet.Status), null.TimeFromPtr(sheet.SubmittedAt), sheet.UpdatedAt)
	if err != nil {
		return rubric.Sheet{}, errors.Wrap(err, "saving sheet")
	}
	return row.sheet()
}

func (repo sheetRepository) GetSheet(ctx context.Context, key rubric.Key) (rubric.Sheet, error) {
	var row sheetRow
	q := "SELECT " + sheetColumns + ` FROM grading_sheet
		WHERE teacher_id = $1 AND section = $2 AND course_id = $3 AND bimester = $4 AND month = $5`
	if err := repo.db.GetContext(ctx, &row, q, key.TeacherID, key.Section, key.CourseID, key.Bimester, key.Month); err != nil {
		if err == sql.ErrNoRows {
			return rubric.Sheet{}, rubric.ErrNotFound
		}
		return rubric.Sheet{}, errors.Wrap(err, "getting sheet")
	}
	return row.sheet()
}

func (repo sheetRepository) QuerySheets(ctx context.Context, qf rubric.QueryFilter) ([]rubric.Sheet, error) {
	f := new(filter)
	f.eq("teacher_id", qf.TeacherID)
	f.eq("section", qf.Section)
	f.eq("course_id", qf.CourseID)
	f.eq("bimester", qf.Bimester)
	f.eq("month", qf.Month)
	f.eq("status", string(qf.Status))

	var rows []sheetRow
	q := repo.db.Rebind("SELECT " + sheetColumns + " FROM grading_sheet" + f.where() +
		" ORDER BY section, course_id, bimester, month, teacher_id")
	if err := repo.db.SelectContext(ctx, &rows, q, f.args...); err != nil {
		return nil, errors.Wrap(err, "querying sheets")
	}
	res := make([]rubric.Sheet, 0, len(rows))
	for _, r := range rows {
		s, err := r.sheet()
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, nil
}
