package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kita/core/facility"
)

type facilityApi struct {
	svc      *facility.Service
	validate *validator.Validate
}

// registerFacilityAPI exposes the facility publicly (the sign-up page shows it); editing is for admins.
func registerFacilityAPI(public, authed *echo.Group, deps ServerDeps) {
	api := facilityApi{svc: deps.FacilitySvc, validate: deps.Validate}

	public.GET("/facility", api.retrieve)
	authed.PUT("/facility", api.update, adminMiddleware())
	authed.GET("/facility/codes", api.codes, adminMiddleware())
	authed.PUT("/facility/codes", api.updateCodes, adminMiddleware())
}

func (api *facilityApi) retrieve(ctx echo.Context) error {
	f, err := api.svc.Get(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting facility")
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *facilityApi) update(ctx echo.Context) error {
	var data facility.UpdateFacility
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateFacility")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate); err != nil {
		return err
	}

	f, err := api.svc.Update(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "updating facility")
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *facilityApi) codes(ctx echo.Context) error {
	codes, err := api.svc.Codes(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting registration codes")
	}
	return ctx.JSON(http.StatusOK, codes)
}

func (api *facilityApi) updateCodes(ctx echo.Context) error {
	var data facility.Codes
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Codes")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	codes, err := api.svc.UpdateCodes(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "updating registration codes")
	}
	return ctx.JSON(http.StatusOK, codes)
}
