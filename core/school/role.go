package school

import (
	"fmt"
	"sort"
)

type RoleKind string

// Role kinds
const (
	KindPrincipal      RoleKind = "principal"
	KindTutor          RoleKind = "tutor"
	KindSubjectTeacher RoleKind = "subject_teacher"
)

var RoleKinds = []RoleKind{KindPrincipal, KindTutor, KindSubjectTeacher}

// Role is a closed set of variants: Principal, Tutor and SubjectTeacher.
// Capabilities are dispatched with exhaustive type switches over those variants.
type Role interface {
	Kind() RoleKind
	isRole()
}

type (
	Principal struct{}

	// Tutor is responsible for the record-keeping of its sections; it may also teach courses in them.
	Tutor struct {
		Sections []string
		Courses  []string
	}

	SubjectTeacher struct {
		Sections []string
		Courses  []string
	}
)

func (Principal) Kind() RoleKind      { return KindPrincipal }
func (Tutor) Kind() RoleKind          { return KindTutor }
func (SubjectTeacher) Kind() RoleKind { return KindSubjectTeacher }

func (Principal) isRole()      {}
func (Tutor) isRole()          {}
func (SubjectTeacher) isRole() {}

// NewRole builds the role variant for kind with its assignments.
func NewRole(kind RoleKind, sections, courses []string) (Role, error) {
	switch kind {
	case KindPrincipal:
		return Principal{}, nil
	case KindTutor:
		return Tutor{Sections: sorted(sections), Courses: sorted(courses)}, nil
	case KindSubjectTeacher:
		return SubjectTeacher{Sections: sorted(sections), Courses: sorted(courses)}, nil
	}
	return nil, fmt.Errorf("unknown role %q", kind)
}

// Sections returns the sections assigned to role; nil means "all sections" for a Principal.
func Sections(role Role) []string {
	switch r := role.(type) {
	case Principal:
		return nil
	case Tutor:
		return r.Sections
	case SubjectTeacher:
		return r.Sections
	}
	panic(fmt.Sprintf("school.Sections: unexpected role %T", role))
}

// Courses returns the courses assigned to role; nil means "all courses" for a Principal.
func Courses(role Role) []string {
	switch r := role.(type) {
	case Principal:
		return nil
	case Tutor:
		return r.Courses
	case SubjectTeacher:
		return r.Courses
	}
	panic(fmt.Sprintf("school.Courses: unexpected role %T", role))
}

// CanView reports whether role may read the records of section.
func CanView(role Role, section string) bool {
	switch r := role.(type) {
	case Principal:
		return true
	case Tutor:
		return contains(r.Sections, section)
	case SubjectTeacher:
		return contains(r.Sections, section)
	}
	return false
}

// CanWriteGrades reports whether role may enter grades of course in section.
func CanWriteGrades(role Role, section, course string) bool {
	switch r := role.(type) {
	case Principal:
		return false
	case Tutor:
		return contains(r.Sections, section) && contains(r.Courses, course)
	case SubjectTeacher:
		return contains(r.Sections, section) && contains(r.Courses, course)
	}
	return false
}

// CanClose reports whether role may close a period of section.
func CanClose(role Role, section string) bool {
	switch r := role.(type) {
	case Principal:
		return true
	case Tutor:
		return contains(r.Sections, section)
	case SubjectTeacher:
		return false
	}
	return false
}

// CanReopen reports whether role may reopen a closed period of section.
// Reopening is an override kept to the principal.
func CanReopen(role Role, _ string) bool {
	switch role.(type) {
	case Principal:
		return true
	case Tutor, SubjectTeacher:
		return false
	}
	return false
}

func sorted(s []string) []string {
	if s == nil {
		return nil
	}
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

func contains(s []string, v string) bool {
	for _, e := range s {
		if e == v {
			return true
		}
	}
	return false
}
