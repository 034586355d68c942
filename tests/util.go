// Package testutil builds the fixtures shared by package tests: a small school directory,
// a quiet logger and in-memory services wired together.
package testutil

import (
	"context"
	"io/ioutil"
	"log"
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/nocheto/libretas/core"
	"github.com/nocheto/libretas/core/consolidation"
	"github.com/nocheto/libretas/core/grade"
	"github.com/nocheto/libretas/core/report"
	"github.com/nocheto/libretas/core/rubric"
	"github.com/nocheto/libretas/core/school"
	emailsvc "github.com/nocheto/libretas/services/email"
	logsvc "github.com/nocheto/libretas/services/logger"
	inmemdb "github.com/nocheto/libretas/storage/database/inmem"
)

// Password of every fixture user.
const Password = "pwd"

// Directory returns a school with two sections of 1st grade:
// 1A (Ana, Bruno, Carla) and 1B (Diego, Elena), three courses and four bimesters.
func Directory(t *testing.T) *school.StaticDirectory {
	users := []school.User{
		NewUser(t, "u-principal", "director", "Rosa Director", "director@school.test", school.KindPrincipal, nil, nil),
		NewUser(t, "u-tutor1a", "tutor1a", "Tomas Tutor", "tutor1a@school.test", school.KindTutor, []string{"1A"}, []string{"mat"}),
		NewUser(t, "u-teacher", "teacher", "Paula Teacher", "teacher@school.test", school.KindSubjectTeacher, []string{"1A", "1B"}, []string{"mat", "com"}),
	}
	students := []school.Student{
		{ID: "s-ana", FullName: "Ana Alva", Section: "1A", EnrollmentNumber: "001"},
		{ID: "s-bruno", FullName: "Bruno Bravo", Section: "1A", EnrollmentNumber: "002"},
		{ID: "s-carla", FullName: "Carla Cruz", Section: "1A", EnrollmentNumber: "003"},
		{ID: "s-diego", FullName: "Diego Diaz", Section: "1B", EnrollmentNumber: "004"},
		{ID: "s-elena", FullName: "Elena Egas", Section: "1B", EnrollmentNumber: "005"},
	}
	courses := []school.Course{
		{ID: "mat", Name: "Matemática", Group: "Ciencias", Order: 1},
		{ID: "com", Name: "Comunicación", Group: "Letras", Order: 2},
		{ID: "cta", Name: "Ciencia y Tecnología", Group: "Ciencias", Order: 3},
	}
	bimesters := []school.Bimester{
		{ID: "bim1", Name: "I Bimestre", Months: []string{"marzo", "abril"}},
		{ID: "bim2", Name: "II Bimestre", Months: []string{"mayo", "junio"}},
		{ID: "bim3", Name: "III Bimestre", Months: []string{"agosto", "septiembre"}},
		{ID: "bim4", Name: "IV Bimestre", Months: []string{"octubre", "noviembre"}},
	}
	return school.NewDirectory(users, students, courses, bimesters)
}

func NewUser(t *testing.T, id, uname, name, email string, kind school.RoleKind, sections, courses []string) school.User {
	role, err := school.NewRole(kind, sections, courses)
	if err != nil {
		t.Fatalf("NewUser() failed: %v", err)
	}
	usr := school.User{ID: id, Username: uname, FullName: name, Email: email, Role: role}
	if err = usr.SetPassword(Password); err != nil {
		t.Fatalf("NewUser() failed: %v", err)
	}
	return usr
}

// Logger discards its output and never reports to Rollbar.
func Logger() core.Logger {
	return logsvc.NewRollbarLogger(log.New(ioutil.Discard, "", 0), core.NewTestConfig())
}

// Env holds in-memory services sharing one store.
type Env struct {
	Conf          *core.Config
	Logger        core.Logger
	Validate      *validator.Validate
	Translator    ut.Translator
	Dir           *school.StaticDirectory
	DB            *inmemdb.DB
	Mail          *emailsvc.ConsoleServiceMock
	Consolidation *consolidation.Service
	Grade         *grade.Service
	Rubric        *rubric.Service
	Report        *report.Service
}

func NewEnv(t *testing.T) *Env {
	conf := core.NewTestConfig()
	logger := Logger()
	validate, translator := core.NewValidator()
	dir := Directory(t)
	db := inmemdb.Open()
	mail := emailsvc.NewConsoleServiceMock(conf, logger)

	consSvc := consolidation.NewService(inmemdb.NewConsolidationRepository(db), dir, mail, logger)
	gradeSvc := grade.NewService(inmemdb.NewGradeRepository(db), consSvc, dir, validate, logger)
	return &Env{
		Conf:          conf,
		Logger:        logger,
		Validate:      validate,
		Translator:    translator,
		Dir:           dir,
		DB:            db,
		Mail:          mail,
		Consolidation: consSvc,
		Grade:         gradeSvc,
		Rubric:        rubric.NewService(inmemdb.NewSheetRepository(db), gradeSvc, consSvc, dir, mail, validate, logger),
		Report:        report.NewService(gradeSvc, consSvc, dir),
	}
}

// MustClose closes a period or fails the test.
func (env *Env) MustClose(t *testing.T, section, bimester string) {
	if _, err := env.Consolidation.Close(context.Background(), section, bimester, "u-principal"); err != nil {
		t.Fatalf("MustClose() failed: %v", err)
	}
}

// MustGrade writes a monthly grade, and an exam grade when exam is not nil, or fails the test.
func (env *Env) MustGrade(t *testing.T, student, course, section, bimester string, monthly, exam *float64) {
	key := grade.Key{StudentID: student, CourseID: course, Section: section, Bimester: bimester}
	if _, err := env.Grade.Upsert(context.Background(), grade.NewGrade{Key: key, Value: monthly, TeacherID: "u-teacher"}); err != nil {
		t.Fatalf("MustGrade() failed: %v", err)
	}
	if exam != nil {
		if _, err := env.Grade.UpsertExam(context.Background(), grade.NewExam{Key: key, ExamGrade: exam, TeacherID: "u-teacher"}); err != nil {
			t.Fatalf("MustGrade() failed: %v", err)
		}
	}
}
