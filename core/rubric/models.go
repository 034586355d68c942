package rubric

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/nocheto/libretas/core"
	"github.com/nocheto/libretas/core/average"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
)

// TotalPercentage is the rubric weight total required to submit a sheet.
const TotalPercentage = 100

// Key identifies the grading sheet of a teacher for one month of a course.
type Key struct {
	TeacherID string `json:"teacher_id" query:"teacher" validate:"required"`
	Section   string `json:"section" query:"section" validate:"required"`
	CourseID  string `json:"course_id" query:"course" validate:"required"`
	Bimester  string `json:"bimester" query:"bimester" validate:"required"`
	Month     string `json:"month" query:"month" validate:"required"`
}

func (k *Key) clean() {
	k.TeacherID = core.CleanString(k.TeacherID)
	k.Section = core.CleanString(k.Section)
	k.CourseID = core.CleanString(k.CourseID)
	k.Bimester = core.CleanString(k.Bimester)
	k.Month = core.CleanString(k.Month)
}

// Scores maps student ID to rubric ID to score. A nil score is ungraded.
type Scores map[string]map[string]*float64

type Sheet struct {
	ID string `json:"id"`
	Key
	Rubrics     []average.Rubric `json:"rubrics"`
	Scores      Scores           `json:"scores"`
	Status      Status           `json:"status"`
	SubmittedAt *time.Time       `json:"submitted_at,omitempty"` // UTC
	UpdatedAt   time.Time        `json:"updated_at"`             // UTC
}

// Total returns the sum of the rubric percentages.
func (s Sheet) Total() float64 {
	var total float64
	for _, r := range s.Rubrics {
		total += r.Percentage
	}
	return total
}

// Averages returns the rubric average of every student of the sheet; nil for students with no graded rubric.
func (s Sheet) Averages() map[string]*float64 {
	avgs := make(map[string]*float64, len(s.Scores))
	for studID, scores := range s.Scores {
		avgs[studID] = average.RubricAverage(s.Rubrics, scores)
	}
	return avgs
}

// NewSheet contains the information needed to save a draft.
type NewSheet struct {
	Key
	Rubrics []average.Rubric `json:"rubrics" validate:"dive"`
	Scores  Scores           `json:"scores"`
}

func (ns *NewSheet) Validate(validate *validator.Validate) error {
	ns.Key.clean()
	for i := range ns.Rubrics {
		ns.Rubrics[i].ID = core.CleanString(ns.Rubrics[i].ID)
		ns.Rubrics[i].Name = core.CleanString(ns.Rubrics[i].Name)
	}
	if err := validate.Struct(ns); err != nil {
		return err
	}

	var flds []core.FieldError
	ids := make(map[string]bool, len(ns.Rubrics))
	for _, r := range ns.Rubrics {
		if ids[r.ID] {
			flds = append(flds, core.FieldError{Field: "rubrics", Error: fmt.Sprintf("duplicate rubric %q", r.ID)})
		}
		ids[r.ID] = true
	}
	for studID, scores := range ns.Scores {
		for rubID, score := range scores {
			if !ids[rubID] {
				flds = append(flds, core.FieldError{Field: "scores", Error: fmt.Sprintf("unknown rubric %q", rubID)})
			} else if score != nil && !core.IsValidGrade(*score) {
				flds = append(flds, core.FieldError{
					Field: "scores",
					Error: fmt.Sprintf("%s/%s: grade must be a number between %v and %v", studID, rubID, core.MinGrade, core.MaxGrade),
				})
			}
		}
	}
	if flds != nil {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

// QueryFilter selects sheets; every non-empty field must match.
type QueryFilter struct {
	TeacherID string `query:"teacher"`
	Section   string `query:"section"`
	CourseID  string `query:"course"`
	Bimester  string `query:"bimester"`
	Month     string `query:"month"`
	Status    Status `query:"status"`
}

func (qf *QueryFilter) Clean() {
	qf.TeacherID = core.CleanString(qf.TeacherID)
	qf.Section = core.CleanString(qf.Section)
	qf.CourseID = core.CleanString(qf.CourseID)
	qf.Bimester = core.CleanString(qf.Bimester)
	qf.Month = core.CleanString(qf.Month)
	qf.Status = Status(core.CleanString(string(qf.Status), true))
}

func (qf QueryFilter) Match(s Sheet) bool {
	return (qf.TeacherID == "" || qf.TeacherID == s.TeacherID) &&
		(qf.Section == "" || qf.Section == s.Section) &&
		(qf.CourseID == "" || qf.CourseID == s.CourseID) &&
		(qf.Bimester == "" || qf.Bimester == s.Bimester) &&
		(qf.Month == "" || qf.Month == s.Month) &&
		(qf.Status == "" || qf.Status == s.Status)
}
