package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kita/core/news"
	"github.com/trezcool/kita/core/user"
)

type newsApi struct {
	svc      *news.Service
	usrSvc   *user.Service
	validate *validator.Validate
}

func registerNewsAPI(g *echo.Group, deps ServerDeps) {
	api := newsApi{svc: deps.NewsSvc, usrSvc: deps.UserSvc, validate: deps.Validate}

	ng := g.Group("/news")
	ng.GET("", api.feed)
	ng.POST("", api.create, staffMiddleware())
	ng.GET("/:id", api.retrieve)
	ng.DELETE("/:id", api.destroy, staffMiddleware())
	ng.POST("/:id/hide", api.hide)
}

func (api *newsApi) feed(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	var filter news.FeedFilter
	if err = ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to FeedFilter")
	}

	feed, err := api.svc.Feed(ctx.Request().Context(), usr, filter)
	if err != nil {
		return errors.Wrap(err, "querying news feed")
	}
	return ctx.JSON(http.StatusOK, emptyIfNil(feed))
}

func (api *newsApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	var data news.NewNews
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewNews")
	}
	if err = data.Validate(ctx.Request().Context(), api.validate); err != nil {
		return err
	}

	n, err := api.svc.Create(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "publishing news")
	}
	return ctx.JSON(http.StatusCreated, n)
}

func (api *newsApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	n, err := api.svc.Get(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting news")
	}
	return ctx.JSON(http.StatusOK, n)
}

func (api *newsApi) destroy(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), usr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting news")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *newsApi) hide(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	if err = api.svc.Hide(ctx.Request().Context(), usr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "hiding news")
	}
	return ctx.NoContent(http.StatusNoContent)
}
