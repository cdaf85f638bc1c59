package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kita/core/grouplist"
	"github.com/trezcool/kita/core/user"
)

type listApi struct {
	svc      *grouplist.Service
	usrSvc   *user.Service
	validate *validator.Validate
}

func registerListAPI(g *echo.Group, deps ServerDeps) {
	api := listApi{svc: deps.ListSvc, usrSvc: deps.UserSvc, validate: deps.Validate}

	g.GET("/groups/:id/lists", api.listByGroup)
	g.POST("/groups/:id/lists", api.create, staffMiddleware())

	lg := g.Group("/lists")
	lg.GET("/:id", api.retrieve)
	lg.DELETE("/:id", api.destroy, staffMiddleware())
	lg.POST("/:id/items", api.addItem)
	lg.DELETE("/:id/items/:index", api.deleteItem)
	lg.POST("/:id/items/:index/assign", api.toggleAssign)
	lg.POST("/:id/items/:index/vote", api.toggleVote)
}

func (api *listApi) listByGroup(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	lists, err := api.svc.ListByGroup(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing group lists")
	}
	return ctx.JSON(http.StatusOK, emptyIfNil(lists))
}

func (api *listApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	l, err := api.svc.Get(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting list")
	}
	return ctx.JSON(http.StatusOK, l)
}

func (api *listApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	var data grouplist.NewList
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewList")
	}
	if err = data.Validate(ctx.Request().Context(), api.validate); err != nil {
		return err
	}

	l, err := api.svc.Create(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "creating list")
	}
	return ctx.JSON(http.StatusCreated, l)
}

func (api *listApi) destroy(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), usr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting list")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *listApi) addItem(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	var data grouplist.NewItem
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewItem")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	l, err := api.svc.AddItem(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding item")
	}
	return ctx.JSON(http.StatusCreated, l)
}

// itemMutation adapts the item operations of the service that only need the item index.
type itemMutation func(ctx echo.Context, usr user.User, listID string, index int) (grouplist.List, error)

func (api *listApi) mutateItem(ctx echo.Context, mutate itemMutation, action string) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	idx, err := indexParam(ctx)
	if err != nil {
		return err
	}

	l, err := mutate(ctx, usr, ctx.Param("id"), idx)
	if err != nil {
		return errors.Wrap(err, action)
	}
	return ctx.JSON(http.StatusOK, l)
}

func (api *listApi) deleteItem(ctx echo.Context) error {
	return api.mutateItem(ctx, func(ctx echo.Context, usr user.User, listID string, index int) (grouplist.List, error) {
		return api.svc.DeleteItem(ctx.Request().Context(), usr, listID, index)
	}, "deleting item")
}

func (api *listApi) toggleAssign(ctx echo.Context) error {
	return api.mutateItem(ctx, func(ctx echo.Context, usr user.User, listID string, index int) (grouplist.List, error) {
		return api.svc.ToggleAssign(ctx.Request().Context(), usr, listID, index)
	}, "toggling assignment")
}

func (api *listApi) toggleVote(ctx echo.Context) error {
	return api.mutateItem(ctx, func(ctx echo.Context, usr user.User, listID string, index int) (grouplist.List, error) {
		return api.svc.ToggleVote(ctx.Request().Context(), usr, listID, index)
	}, "toggling vote")
}
