package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nocheto/libretas/core"
	"github.com/nocheto/libretas/core/report"
	"github.com/nocheto/libretas/core/school"
)

type reportApi struct {
	svc    *report.Service
	roster school.Roster
}

func registerReportAPI(g *echo.Group, svc *report.Service, roster school.Roster) {
	api := reportApi{svc: svc, roster: roster}

	rg := g.Group("/reports")
	rg.GET("/coverage", api.coverage)
	rg.GET("/sections", api.sections, principalMiddleware)
	rg.GET("/teacher", api.teacher)
	rg.GET("/report-card/:student", api.reportCard)
	rg.GET("/ranking", api.ranking)
}

type reportQuery struct {
	Section  string `query:"section"`
	CourseID string `query:"course"`
	Bimester string `query:"bimester"`
}

func (rq *reportQuery) bind(ctx echo.Context, required ...string) error {
	if err := ctx.Bind(rq); err != nil {
		return errors.Wrap(err, "binding to reportQuery")
	}
	rq.Section = core.CleanString(rq.Section)
	rq.CourseID = core.CleanString(rq.CourseID)
	rq.Bimester = core.CleanString(rq.Bimester)

	values := map[string]string{"section": rq.Section, "course": rq.CourseID, "bimester": rq.Bimester}
	var flds []core.FieldError
	for _, fld := range required {
		if values[fld] == "" {
			flds = append(flds, core.FieldError{Field: fld, Error: "this field is required"})
		}
	}
	if flds != nil {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

func (api *reportApi) coverage(ctx echo.Context) error {
	var rq reportQuery
	if err := rq.bind(ctx, "section", "bimester"); err != nil {
		return err
	}
	if err := canView(ctx, rq.Section); err != nil {
		return err
	}

	cov, err := api.svc.SectionCoverage(ctx.Request().Context(), rq.Section, rq.Bimester)
	if err != nil {
		return errors.Wrap(err, "computing section coverage")
	}
	return ctx.JSON(http.StatusOK, cov)
}

func (api *reportApi) sections(ctx echo.Context) error {
	var rq reportQuery
	if err := rq.bind(ctx, "bimester"); err != nil {
		return err
	}

	ov, err := api.svc.SectionOverview(ctx.Request().Context(), rq.Bimester)
	if err != nil {
		return errors.Wrap(err, "computing section overview")
	}
	return ctx.JSON(http.StatusOK, ov)
}

func (api *reportApi) teacher(ctx echo.Context) error {
	var rq reportQuery
	if err := rq.bind(ctx, "bimester"); err != nil {
		return err
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	tc, err := api.svc.TeacherCoverage(ctx.Request().Context(), usr, rq.Bimester)
	if err != nil {
		return errors.Wrap(err, "computing teacher coverage")
	}
	return ctx.JSON(http.StatusOK, tc)
}

func (api *reportApi) reportCard(ctx echo.Context) error {
	stud, err := api.roster.Student(ctx.Param("student"))
	if err != nil {
		return errors.Wrap(err, "finding student")
	}
	if err = canView(ctx, stud.Section); err != nil {
		return err
	}

	rc, err := api.svc.ReportCard(ctx.Request().Context(), stud.ID)
	if err != nil {
		return errors.Wrap(err, "building report card")
	}
	return ctx.JSON(http.StatusOK, rc)
}

func (api *reportApi) ranking(ctx echo.Context) error {
	var rq reportQuery
	if err := rq.bind(ctx, "section", "course", "bimester"); err != nil {
		return err
	}
	if err := canView(ctx, rq.Section); err != nil {
		return err
	}

	lines, err := api.svc.Ranking(ctx.Request().Context(), rq.Section, rq.CourseID, rq.Bimester)
	if err != nil {
		return errors.Wrap(err, "ranking section")
	}
	return ctx.JSON(http.StatusOK, lines)
}
