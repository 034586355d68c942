package report

import (
	"github.com/nocheto/libretas/core/average"
	"github.com/nocheto/libretas/core/school"
)

// Coverage counts the graded slots of a section for one bimester.
type Coverage struct {
	Section  string `json:"section"`
	Bimester string `json:"bimester"`
	Students int    `json:"students"`
	Courses  int    `json:"courses"`
	Expected int    `json:"expected"`
	Graded   int    `json:"graded"`
	Percent  int    `json:"percent"`
	IsClosed bool   `json:"is_closed"`
}

// TeacherCoverage is the coverage of the sections and courses assigned to a teacher.
type TeacherCoverage struct {
	TeacherID string     `json:"teacher_id"`
	Bimester  string     `json:"bimester"`
	Sections  []Coverage `json:"sections"`
	Overall   int        `json:"overall"`
}

// Overview is the coverage of every section of the school.
type Overview struct {
	Bimester string     `json:"bimester"`
	Sections []Coverage `json:"sections"`
	Overall  int        `json:"overall"`
}

// CourseLine is one course row of a report card.
type CourseLine struct {
	Course school.Course `json:"course"`
	Finals []*float64    `json:"finals"` // one per bimester, in period order
	Annual *float64      `json:"annual"`
	Grade  *int          `json:"grade"`            // report-card integer, set with Annual
	Letter average.Letter `json:"letter,omitempty"` // set with Annual
}

// GroupLine holds the subject group averages of a report card, one per bimester.
type GroupLine struct {
	Group    string     `json:"group"`
	Averages []*float64 `json:"averages"`
}

type ReportCard struct {
	Student   school.Student    `json:"student"`
	Bimesters []school.Bimester `json:"bimesters"`
	Closed    []bool            `json:"closed"` // one per bimester
	Courses   []CourseLine      `json:"courses"`
	Groups    []GroupLine       `json:"groups"`
}

// RankLine is the position of a student; Position is 0 when the student has no final.
type RankLine struct {
	Student  school.Student `json:"student"`
	Final    *float64       `json:"final"`
	Position int            `json:"position"`
}
