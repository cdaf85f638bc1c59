package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kita/core"
	"github.com/trezcool/kita/core/mealplan"
	"github.com/trezcool/kita/core/user"
)

type mealPlanApi struct {
	svc      *mealplan.Service
	usrSvc   *user.Service
	validate *validator.Validate
}

func registerMealPlanAPI(g *echo.Group, deps ServerDeps) {
	api := mealPlanApi{svc: deps.MealPlanSvc, usrSvc: deps.UserSvc, validate: deps.Validate}

	mg := g.Group("/mealplan")
	mg.GET("", api.week)
	mg.PUT("", api.saveWeek, adminMiddleware())
	mg.GET("/options", api.options)
	mg.POST("/options", api.addOption, adminMiddleware())
	mg.PUT("/options/order", api.reorderOptions, adminMiddleware())
	mg.DELETE("/options/:type/:name", api.deleteOption, adminMiddleware())
}

func (api *mealPlanApi) week(ctx echo.Context) error {
	weekKey := core.CleanString(ctx.QueryParam("week"))
	if weekKey == "" {
		weekKey = api.svc.CurrentWeekKey()
	}
	week, err := api.svc.Week(ctx.Request().Context(), weekKey)
	if err != nil {
		return errors.Wrap(err, "getting meal plan")
	}
	return ctx.JSON(http.StatusOK, week)
}

func (api *mealPlanApi) saveWeek(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	var data mealplan.SaveWeek
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SaveWeek")
	}
	if err = data.Validate(ctx.Request().Context(), api.validate); err != nil {
		return err
	}

	week, err := api.svc.SaveWeek(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "saving meal plan")
	}
	return ctx.JSON(http.StatusOK, week)
}

func (api *mealPlanApi) options(ctx echo.Context) error {
	opts, err := api.svc.Options(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing meal options")
	}
	return ctx.JSON(http.StatusOK, opts)
}

func (api *mealPlanApi) addOption(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	var data mealplan.NewOption
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewOption")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	opt, err := api.svc.AddOption(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "adding meal option")
	}
	return ctx.JSON(http.StatusCreated, opt)
}

func (api *mealPlanApi) deleteOption(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	err = api.svc.DeleteOption(ctx.Request().Context(), usr, ctx.Param("type"), ctx.Param("name"))
	if err != nil {
		return errors.Wrap(err, "deleting meal option")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *mealPlanApi) reorderOptions(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	var data mealplan.ReorderOptions
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReorderOptions")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	if err = api.svc.ReorderOptions(ctx.Request().Context(), usr, data); err != nil {
		return errors.Wrap(err, "reordering meal options")
	}
	return api.options(ctx)
}
