package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kita/core"
	"github.com/trezcool/kita/core/absence"
	"github.com/trezcool/kita/core/user"
)

type absenceApi struct {
	svc      *absence.Service
	usrSvc   *user.Service
	validate *validator.Validate
}

func registerAbsenceAPI(g *echo.Group, deps ServerDeps) {
	api := absenceApi{svc: deps.AbsenceSvc, usrSvc: deps.UserSvc, validate: deps.Validate}

	ag := g.Group("/absences")
	ag.GET("", api.listForChild)
	ag.POST("", api.report)
	ag.GET("/team", api.teamView, staffMiddleware())
	ag.PUT("/:id", api.update)
	ag.DELETE("/:id", api.destroy)
	ag.POST("/:id/read", api.markRead, staffMiddleware())
	ag.POST("/:id/unread", api.markUnread, staffMiddleware())
	ag.POST("/:id/hide", api.hide, staffMiddleware())
}

func (api *absenceApi) listForChild(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	childID := core.CleanString(ctx.QueryParam("child"))
	if childID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "child", Error: "this field is required"})
	}

	absences, err := api.svc.ListForChild(ctx.Request().Context(), usr, childID)
	if err != nil {
		return errors.Wrap(err, "listing absences")
	}
	return ctx.JSON(http.StatusOK, emptyIfNil(absences))
}

func (api *absenceApi) report(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	var data absence.NewAbsence
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAbsence")
	}
	if err = data.Validate(ctx.Request().Context(), api.validate); err != nil {
		return err
	}

	a, err := api.svc.Report(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "reporting absence")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *absenceApi) update(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	var data absence.UpdateAbsence
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAbsence")
	}
	if err = data.Validate(ctx.Request().Context(), api.validate); err != nil {
		return err
	}

	a, err := api.svc.Update(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating absence")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *absenceApi) destroy(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), usr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting absence")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *absenceApi) teamView(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	var filter absence.TeamFilter
	if err = ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to TeamFilter")
	}

	view, err := api.svc.TeamView(ctx.Request().Context(), usr, filter)
	if err != nil {
		return errors.Wrap(err, "building absence board")
	}
	return ctx.JSON(http.StatusOK, view)
}

type statusUpdate func(ctx echo.Context, usr user.User, id string) error

func (api *absenceApi) setStatus(ctx echo.Context, update statusUpdate, action string) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	if err = update(ctx, usr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, action)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *absenceApi) markRead(ctx echo.Context) error {
	return api.setStatus(ctx, func(ctx echo.Context, usr user.User, id string) error {
		return api.svc.MarkRead(ctx.Request().Context(), usr, id)
	}, "marking absence as read")
}

func (api *absenceApi) markUnread(ctx echo.Context) error {
	return api.setStatus(ctx, func(ctx echo.Context, usr user.User, id string) error {
		return api.svc.MarkUnread(ctx.Request().Context(), usr, id)
	}, "marking absence as unread")
}

func (api *absenceApi) hide(ctx echo.Context) error {
	return api.setStatus(ctx, func(ctx echo.Context, usr user.User, id string) error {
		return api.svc.Hide(ctx.Request().Context(), usr, id)
	}, "hiding absence")
}
