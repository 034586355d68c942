package school

import (
	"sort"
	"strings"
)

// StaticDirectory is an immutable Directory held in memory.
type StaticDirectory struct {
	users     []User
	students  []Student
	courses   []Course
	bimesters []Bimester

	usersByID       map[string]int
	usersByUsername map[string]int
	studentsByID    map[string]int
	coursesByID     map[string]int
	bimestersByID   map[string]int
}

var _ Directory = (*StaticDirectory)(nil)

// NewDirectory copies its inputs. Courses are sorted by Order; students by section then full name;
// bimesters keep the given order.
func NewDirectory(users []User, students []Student, courses []Course, bimesters []Bimester) *StaticDirectory {
	d := &StaticDirectory{
		users:           append([]User(nil), users...),
		students:        append([]Student(nil), students...),
		courses:         append([]Course(nil), courses...),
		bimesters:       append([]Bimester(nil), bimesters...),
		usersByID:       make(map[string]int, len(users)),
		usersByUsername: make(map[string]int, len(users)),
		studentsByID:    make(map[string]int, len(students)),
		coursesByID:     make(map[string]int, len(courses)),
		bimestersByID:   make(map[string]int, len(bimesters)),
	}

	sort.SliceStable(d.courses, func(i, j int) bool { return d.courses[i].Order < d.courses[j].Order })
	sort.SliceStable(d.students, func(i, j int) bool {
		if d.students[i].Section != d.students[j].Section {
			return d.students[i].Section < d.students[j].Section
		}
		return d.students[i].FullName < d.students[j].FullName
	})

	for i, u := range d.users {
		d.usersByID[u.ID] = i
		d.usersByUsername[strings.ToLower(u.Username)] = i
	}
	for i, s := range d.students {
		d.studentsByID[s.ID] = i
	}
	for i, c := range d.courses {
		d.coursesByID[c.ID] = i
	}
	for i, b := range d.bimesters {
		d.bimestersByID[b.ID] = i
	}
	return d
}

func (d *StaticDirectory) Students() []Student {
	return append([]Student(nil), d.students...)
}

func (d *StaticDirectory) StudentsBySection(section string) []Student {
	var students []Student
	for _, s := range d.students {
		if s.Section == section {
			students = append(students, s)
		}
	}
	return students
}

func (d *StaticDirectory) Student(id string) (Student, error) {
	if i, ok := d.studentsByID[id]; ok {
		return d.students[i], nil
	}
	return Student{}, ErrStudentNotFound
}

// Sections returns the distinct sections of the roster, sorted.
func (d *StaticDirectory) Sections() []string {
	seen := make(map[string]bool)
	var sections []string
	for _, s := range d.students {
		if !seen[s.Section] {
			seen[s.Section] = true
			sections = append(sections, s.Section)
		}
	}
	sort.Strings(sections)
	return sections
}

func (d *StaticDirectory) Courses() []Course {
	return append([]Course(nil), d.courses...)
}

func (d *StaticDirectory) Course(id string) (Course, error) {
	if i, ok := d.coursesByID[id]; ok {
		return d.courses[i], nil
	}
	return Course{}, ErrCourseNotFound
}

func (d *StaticDirectory) Bimesters() []Bimester {
	return append([]Bimester(nil), d.bimesters...)
}

func (d *StaticDirectory) Bimester(id string) (Bimester, error) {
	if i, ok := d.bimestersByID[id]; ok {
		return d.bimesters[i], nil
	}
	return Bimester{}, ErrBimesterNotFound
}

func (d *StaticDirectory) User(id string) (User, error) {
	if i, ok := d.usersByID[id]; ok {
		return d.users[i], nil
	}
	return User{}, ErrUserNotFound
}

func (d *StaticDirectory) UserByUsername(username string) (User, error) {
	if i, ok := d.usersByUsername[strings.ToLower(username)]; ok {
		return d.users[i], nil
	}
	return User{}, ErrUserNotFound
}

func (d *StaticDirectory) UsersByRole(kind RoleKind) []User {
	var users []User
	for _, u := range d.users {
		if u.Role != nil && u.Role.Kind() == kind {
			users = append(users, u)
		}
	}
	return users
}

// TutorsOf returns the tutors in charge of section.
func TutorsOf(id Identity, section string) []User {
	var tutors []User
	for _, u := range id.UsersByRole(KindTutor) {
		if CanClose(u.Role, section) {
			tutors = append(tutors, u)
		}
	}
	return tutors
}
