package school

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrStudentNotFound  = errors.New("student not found")
	ErrCourseNotFound   = errors.New("course not found")
	ErrBimesterNotFound = errors.New("bimester not found")
	ErrUserNotFound     = errors.New("user not found")
)

type Student struct {
	ID               string `json:"id" mapstructure:"id"`
	FullName         string `json:"full_name" mapstructure:"full_name"`
	Section          string `json:"section" mapstructure:"section"`
	EnrollmentNumber string `json:"enrollment_number" mapstructure:"enrollment_number"`
}

type Course struct {
	ID    string `json:"id" mapstructure:"id"`
	Name  string `json:"name" mapstructure:"name"`
	Group string `json:"group,omitempty" mapstructure:"group"` // subject group, e.g. "Matemática"
	Order int    `json:"order" mapstructure:"order"`
}

type Bimester struct {
	ID     string   `json:"id" mapstructure:"id"`
	Name   string   `json:"name" mapstructure:"name"`
	Months []string `json:"months" mapstructure:"months"`
}

// HasMonth reports whether month belongs to the bimester.
func (b Bimester) HasMonth(month string) bool {
	for _, m := range b.Months {
		if m == month {
			return true
		}
	}
	return false
}

type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	Role         Role   `json:"-"`
	PasswordHash []byte `json:"-"`
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// Profile is the public representation of a User and its role capabilities.
type Profile struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	FullName string   `json:"full_name"`
	Email    string   `json:"email"`
	Role     RoleKind `json:"role"`
	Sections []string `json:"sections,omitempty"`
	Courses  []string `json:"courses,omitempty"`
}

func (u User) Profile() Profile {
	p := Profile{
		ID:       u.ID,
		Username: u.Username,
		FullName: u.FullName,
		Email:    u.Email,
	}
	if u.Role != nil {
		p.Role = u.Role.Kind()
		p.Sections = Sections(u.Role)
		p.Courses = Courses(u.Role)
	}
	return p
}

type (
	// Roster provides the students of the school.
	Roster interface {
		Students() []Student
		StudentsBySection(section string) []Student
		Student(id string) (Student, error)
		Sections() []string
	}

	// Catalog provides the ordered course list.
	Catalog interface {
		Courses() []Course
		Course(id string) (Course, error)
	}

	// Periods provides the ordered bimesters of the school year.
	Periods interface {
		Bimesters() []Bimester
		Bimester(id string) (Bimester, error)
	}

	// Identity provides the users allowed to sign in.
	Identity interface {
		User(id string) (User, error)
		UserByUsername(username string) (User, error)
		UsersByRole(kind RoleKind) []User
	}

	// Directory groups every read-only provider the core depends on.
	Directory interface {
		Roster
		Catalog
		Periods
		Identity
	}
)
