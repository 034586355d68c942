package rubric

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/mail"

	"github.com/go-playground/validator/v10"

	"github.com/nocheto/libretas/core"
	"github.com/nocheto/libretas/core/average"
	"github.com/nocheto/libretas/core/consolidation"
	"github.com/nocheto/libretas/core/grade"
	"github.com/nocheto/libretas/core/school"
)

var (
	// errors
	ErrNotFound = errors.New("sheet not found")
)

type (
	Repository interface {
		// SaveSheet creates the sheet of its Key or replaces it, keeping the existing ID.
		SaveSheet(ctx context.Context, sheet Sheet) (Sheet, error)
		GetSheet(ctx context.Context, key Key) (Sheet, error)
		QuerySheets(ctx context.Context, filter QueryFilter) ([]Sheet, error)
	}

	// GradeWriter stores the monthly grades produced by a submitted sheet, all or nothing.
	GradeWriter interface {
		UpsertMany(ctx context.Context, grades []grade.NewGrade) ([]grade.Entry, error)
	}

	Service struct {
		repo     Repository
		grades   GradeWriter
		ledger   consolidation.Ledger
		dir      school.Directory
		mailSvc  core.EmailService
		validate *validator.Validate
		logger   core.Logger
	}
)

func NewService(
	repo Repository,
	grades GradeWriter,
	ledger consolidation.Ledger,
	dir school.Directory,
	mailSvc core.EmailService,
	validate *validator.Validate,
	logger core.Logger,
) *Service {
	return &Service{
		repo:     repo,
		grades:   grades,
		ledger:   ledger,
		dir:      dir,
		mailSvc:  mailSvc,
		validate: validate,
		logger:   logger,
	}
}

func (svc *Service) checkKey(k Key, scores Scores) error {
	var flds []core.FieldError
	if len(svc.dir.StudentsBySection(k.Section)) == 0 {
		flds = append(flds, core.FieldError{Field: "section", Error: "unknown section"})
	}
	if _, err := svc.dir.Course(k.CourseID); err != nil {
		flds = append(flds, core.FieldError{Field: "course_id", Error: err.Error()})
	}
	if bim, err := svc.dir.Bimester(k.Bimester); err != nil {
		flds = append(flds, core.FieldError{Field: "bimester", Error: err.Error()})
	} else if !bim.HasMonth(k.Month) {
		flds = append(flds, core.FieldError{Field: "month", Error: "month does not belong to this bimester"})
	}
	for studID := range scores {
		if stud, err := svc.dir.Student(studID); err != nil || stud.Section != k.Section {
			flds = append(flds, core.FieldError{Field: "scores", Error: fmt.Sprintf("student %q is not in section %s", studID, k.Section)})
		}
	}
	if flds != nil {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

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

// SaveDraft stores the rubric set and scores of a sheet. The percentage total is not enforced.
// Saving a submitted sheet turns it back into a draft until it is submitted again.
func (svc *Service) SaveDraft(ctx context.Context, ns NewSheet) (Sheet, error) {
	if err := ns.Validate(svc.validate); err != nil {
		return Sheet{}, err
	}
	if err := svc.checkKey(ns.Key, ns.Scores); err != nil {
		return Sheet{}, err
	}
	if err := svc.checkOpen(ctx, ns.Section, ns.Bimester); err != nil {
		return Sheet{}, err
	}

	scores := ns.Scores
	if scores == nil {
		scores = make(Scores)
	}
	return svc.repo.SaveSheet(ctx, Sheet{
		Key:       ns.Key,
		Rubrics:   ns.Rubrics,
		Scores:    scores,
		Status:    StatusDraft,
		UpdatedAt: core.NowFunc(),
	})
}

// Submit writes the rubric average of every graded student of the section as the monthly grade.
// The rubric percentages must total 100. The sheet is marked submitted before the grades are written
// and restored as a draft when they cannot be.
func (svc *Service) Submit(ctx context.Context, key Key) (Sheet, error) {
	key.clean()
	sheet, err := svc.repo.GetSheet(ctx, key)
	if err != nil {
		return Sheet{}, err
	}

	if total := sheet.Total(); math.Abs(total-TotalPercentage) > 1e-9 {
		return Sheet{}, core.NewValidationError(nil, core.FieldError{
			Field: "rubrics",
			Error: fmt.Sprintf("rubric percentages must sum to %d, got %v", TotalPercentage, total),
		})
	}
	if err = svc.checkOpen(ctx, sheet.Section, sheet.Bimester); err != nil {
		return Sheet{}, err
	}

	students := svc.dir.StudentsBySection(sheet.Section)
	grades := make([]grade.NewGrade, 0, len(students))
	for _, stud := range students {
		avg := average.RubricAverage(sheet.Rubrics, sheet.Scores[stud.ID])
		if avg == nil {
			continue
		}
		grades = append(grades, grade.NewGrade{
			Key: grade.Key{
				StudentID: stud.ID,
				CourseID:  sheet.CourseID,
				Section:   sheet.Section,
				Bimester:  sheet.Bimester,
			},
			Month:     sheet.Month,
			Value:     avg,
			TeacherID: sheet.TeacherID,
		})
	}

	draft := sheet
	now := core.NowFunc()
	sheet.Status = StatusSubmitted
	sheet.SubmittedAt = &now
	sheet.UpdatedAt = now
	if sheet, err = svc.repo.SaveSheet(ctx, sheet); err != nil {
		return Sheet{}, err
	}

	if _, err = svc.grades.UpsertMany(ctx, grades); err != nil {
		if _, rerr := svc.repo.SaveSheet(ctx, draft); rerr != nil {
			svc.logger.Error("restoring draft after failed submit", rerr)
		}
		return Sheet{}, err
	}

	svc.logger.Info(fmt.Sprintf(
		"sheet submitted: teacher=%s section=%s course=%s month=%s graded=%d",
		sheet.TeacherID, sheet.Section, sheet.CourseID, sheet.Month, len(grades)))
	svc.notifyTutors(sheet, len(grades), len(students))
	return sheet, nil
}

func (svc *Service) notifyTutors(sheet Sheet, graded, students int) {
	tutors := school.TutorsOf(svc.dir, sheet.Section)
	if len(tutors) == 0 {
		return
	}

	teacherName := sheet.TeacherID
	if teacher, err := svc.dir.User(sheet.TeacherID); err == nil {
		teacherName = teacher.FullName
	}
	courseName := sheet.CourseID
	if course, err := svc.dir.Course(sheet.CourseID); err == nil {
		courseName = course.Name
	}
	bimName := sheet.Bimester
	if bim, err := svc.dir.Bimester(sheet.Bimester); err == nil {
		bimName = bim.Name
	}

	msgs := make([]*core.EmailMessage, 0, len(tutors))
	for _, tutor := range tutors {
		if tutor.Email == "" {
			continue
		}
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{{Name: tutor.FullName, Address: tutor.Email}},
			Subject:      fmt.Sprintf("Grades submitted: %s %s", courseName, sheet.Section),
			TemplateName: "sheet_submitted",
			TemplateData: map[string]interface{}{
				"TutorName":    tutor.FullName,
				"TeacherName":  teacherName,
				"CourseName":   courseName,
				"Section":      sheet.Section,
				"Month":        sheet.Month,
				"BimesterName": bimName,
				"Graded":       graded,
				"Students":     students,
			},
		})
	}
	if len(msgs) > 0 {
		svc.mailSvc.SendMessages(msgs...)
	}
}

func (svc *Service) Get(ctx context.Context, key Key) (Sheet, error) {
	key.clean()
	return svc.repo.GetSheet(ctx, key)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Sheet, error) {
	filter.Clean()
	return svc.repo.QuerySheets(ctx, filter)
}
