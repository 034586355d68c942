package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nocheto/libretas/core/consolidation"
	"github.com/nocheto/libretas/core/school"
)

type consolidationApi struct {
	svc *consolidation.Service
}

func registerConsolidationAPI(g *echo.Group, svc *consolidation.Service) {
	api := consolidationApi{svc: svc}

	cg := g.Group("/consolidations")
	cg.GET("", api.query)
	cg.GET("/:section/:bimester", api.retrieve)
	cg.POST("/:section/:bimester/close", api.close)
	cg.POST("/:section/:bimester/reopen", api.reopen)
}

func (api *consolidationApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	all, err := api.svc.ListAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing consolidations")
	}

	visible := make([]consolidation.Consolidation, 0, len(all))
	for _, c := range all {
		if school.CanView(usr.Role, c.Section) {
			visible = append(visible, c)
		}
	}
	return ctx.JSON(http.StatusOK, visible)
}

func (api *consolidationApi) retrieve(ctx echo.Context) error {
	section, bimester := ctx.Param("section"), ctx.Param("bimester")
	if err := canView(ctx, section); err != nil {
		return err
	}
	c, err := api.svc.State(ctx.Request().Context(), section, bimester)
	if err != nil {
		return errors.Wrap(err, "getting period state")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *consolidationApi) close(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	section, bimester := ctx.Param("section"), ctx.Param("bimester")
	if !school.CanClose(usr.Role, section) {
		return errHttpForbidden
	}

	c, err := api.svc.Close(ctx.Request().Context(), section, bimester, usr.ID)
	if err != nil {
		return errors.Wrap(err, "closing period")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *consolidationApi) reopen(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	section, bimester := ctx.Param("section"), ctx.Param("bimester")
	if !school.CanReopen(usr.Role, section) {
		return errHttpForbidden
	}

	c, err := api.svc.Reopen(ctx.Request().Context(), section, bimester)
	if err != nil {
		return errors.Wrap(err, "reopening period")
	}
	return ctx.JSON(http.StatusOK, c)
}
