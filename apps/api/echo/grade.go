package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nocheto/libretas/core"
	"github.com/nocheto/libretas/core/grade"
	"github.com/nocheto/libretas/core/school"
)

type gradeApi struct {
	svc *grade.Service
}

func registerGradeAPI(g *echo.Group, svc *grade.Service) {
	api := gradeApi{svc: svc}

	g.GET("/grades", api.query)
	g.PUT("/grades", api.upsert)
	g.GET("/exams", api.queryExams)
	g.PUT("/exams", api.upsertExam)
	g.GET("/finals/:section/:bimester", api.finals)
}

// canWrite checks the context user may write course grades of section and returns its ID as the author.
func canWrite(ctx echo.Context, section, course string) (string, error) {
	usr, err := getContextUser(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context user")
	}
	if !school.CanWriteGrades(usr.Role, core.CleanString(section), core.CleanString(course)) {
		return "", errHttpForbidden
	}
	return usr.ID, nil
}

func (api *gradeApi) bindFilter(ctx echo.Context) (grade.QueryFilter, error) {
	var filter grade.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return filter, errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()
	return filter, canView(ctx, filter.Section)
}

func (api *gradeApi) query(ctx echo.Context) error {
	filter, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}
	entries, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying grades")
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *gradeApi) upsert(ctx echo.Context) error {
	var data []grade.NewGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to []NewGrade")
	}
	for i := range data {
		uid, err := canWrite(ctx, data[i].Section, data[i].CourseID)
		if err != nil {
			return err
		}
		data[i].TeacherID = uid
	}

	entries, err := api.svc.UpsertMany(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "upserting grades")
	}
	if entries == nil {
		entries = []grade.Entry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *gradeApi) queryExams(ctx echo.Context) error {
	filter, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}
	exams, err := api.svc.QueryExams(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying exams")
	}
	return ctx.JSON(http.StatusOK, exams)
}

func (api *gradeApi) upsertExam(ctx echo.Context) error {
	var data grade.NewExam
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewExam")
	}
	uid, err := canWrite(ctx, data.Section, data.CourseID)
	if err != nil {
		return err
	}
	data.TeacherID = uid

	exam, err := api.svc.UpsertExam(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "upserting exam")
	}
	return ctx.JSON(http.StatusOK, exam)
}

func (api *gradeApi) finals(ctx echo.Context) error {
	section, bimester := ctx.Param("section"), ctx.Param("bimester")
	if err := canView(ctx, section); err != nil {
		return err
	}
	course := core.CleanString(ctx.QueryParam("course"))
	if course == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "course", Error: "this field is required"})
	}

	finals, err := api.svc.SectionFinals(ctx.Request().Context(), section, bimester, course)
	if err != nil {
		return errors.Wrap(err, "computing section finals")
	}
	return ctx.JSON(http.StatusOK, finals)
}
