package grade

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/nocheto/libretas/core"
)

// Key identifies the single current value of a course grade for a student in a bimester.
type Key struct {
	StudentID string `json:"student_id" query:"student" validate:"required"`
	CourseID  string `json:"course_id" query:"course" validate:"required"`
	Section   string `json:"section" query:"section" validate:"required"`
	Bimester  string `json:"bimester" query:"bimester" validate:"required"`
}

func (k *Key) clean() {
	k.StudentID = core.CleanString(k.StudentID)
	k.CourseID = core.CleanString(k.CourseID)
	k.Section = core.CleanString(k.Section)
	k.Bimester = core.CleanString(k.Bimester)
}

// Entry is a monthly grade slot. Value is nil while ungraded; Month labels the last write.
type Entry struct {
	Key
	Month     string    `json:"month,omitempty"`
	Value     *float64  `json:"value"`
	TeacherID string    `json:"teacher_id"`
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Exam is the bimester exam grade, stored apart from monthly entries.
type Exam struct {
	Key
	ExamGrade *float64  `json:"exam_grade"`
	TeacherID string    `json:"teacher_id"`
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// NewGrade contains the information needed to write a monthly grade.
type NewGrade struct {
	Key
	Month     string   `json:"month"`
	Value     *float64 `json:"value" validate:"omitempty,grade"`
	TeacherID string   `json:"teacher_id" validate:"required"`
}

func (ng *NewGrade) Validate(validate *validator.Validate) error {
	ng.Key.clean()
	ng.Month = core.CleanString(ng.Month)
	ng.TeacherID = core.CleanString(ng.TeacherID)
	return validate.Struct(ng)
}

// NewExam contains the information needed to write a bimester exam grade.
type NewExam struct {
	Key
	ExamGrade *float64 `json:"exam_grade" validate:"omitempty,grade"`
	TeacherID string   `json:"teacher_id" validate:"required"`
}

func (ne *NewExam) Validate(validate *validator.Validate) error {
	ne.Key.clean()
	ne.TeacherID = core.CleanString(ne.TeacherID)
	return validate.Struct(ne)
}

// QueryFilter selects entries; every non-empty field must match (AND).
type QueryFilter struct {
	Section   string `query:"section"`
	Bimester  string `query:"bimester"`
	CourseID  string `query:"course"`
	StudentID string `query:"student"`
}

func (qf *QueryFilter) Clean() {
	qf.Section = core.CleanString(qf.Section)
	qf.Bimester = core.CleanString(qf.Bimester)
	qf.CourseID = core.CleanString(qf.CourseID)
	qf.StudentID = core.CleanString(qf.StudentID)
}

// Match reports whether k satisfies the filter.
func (qf QueryFilter) Match(k Key) bool {
	return (qf.Section == "" || qf.Section == k.Section) &&
		(qf.Bimester == "" || qf.Bimester == k.Bimester) &&
		(qf.CourseID == "" || qf.CourseID == k.CourseID) &&
		(qf.StudentID == "" || qf.StudentID == k.StudentID)
}

// Final is the bimester final of a student for a course, with its two components.
type Final struct {
	Key
	Monthly *float64 `json:"monthly_average"`
	Exam    *float64 `json:"exam_grade"`
	Final   *float64 `json:"final"`
}
