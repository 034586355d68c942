package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nocheto/libretas/core/rubric"
	"github.com/nocheto/libretas/core/school"
)

type rubricApi struct {
	svc *rubric.Service
}

func registerRubricAPI(g *echo.Group, svc *rubric.Service) {
	api := rubricApi{svc: svc}

	sg := g.Group("/sheets")
	sg.GET("", api.query)
	sg.PUT("", api.saveDraft)
	sg.POST("/submit", api.submit)
}

// query lists the sheets of the context user; a principal may list anyone's.
func (api *rubricApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var filter rubric.QueryFilter
	if err = ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	if _, ok := usr.Role.(school.Principal); !ok {
		filter.TeacherID = usr.ID
	}

	sheets, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying sheets")
	}
	return ctx.JSON(http.StatusOK, sheets)
}

func (api *rubricApi) saveDraft(ctx echo.Context) error {
	var data rubric.NewSheet
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSheet")
	}
	uid, err := canWrite(ctx, data.Section, data.CourseID)
	if err != nil {
		return err
	}
	data.TeacherID = uid

	sheet, err := api.svc.SaveDraft(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "saving draft")
	}
	return ctx.JSON(http.StatusOK, sheet)
}

func (api *rubricApi) submit(ctx echo.Context) error {
	var key rubric.Key
	if err := ctx.Bind(&key); err != nil {
		return errors.Wrap(err, "binding to Key")
	}
	uid, err := canWrite(ctx, key.Section, key.CourseID)
	if err != nil {
		return err
	}
	key.TeacherID = uid

	sheet, err := api.svc.Submit(ctx.Request().Context(), key)
	if err != nil {
		return errors.Wrap(err, "submitting sheet")
	}
	return ctx.JSON(http.StatusOK, sheet)
}
