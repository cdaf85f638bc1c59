package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kita/core/group"
)

type groupApi struct {
	svc      *group.Service
	validate *validator.Validate
}

// GroupResponse is a Group along with the classes the frontend renders it with.
type GroupResponse struct {
	group.Group
	Style group.Style `json:"style"`
}

func newGroupResponse(g group.Group) GroupResponse {
	return GroupResponse{Group: g, Style: group.StyleOf(g)}
}

func registerGroupAPI(public, authed *echo.Group, deps ServerDeps) {
	api := groupApi{svc: deps.GroupSvc, validate: deps.Validate}

	// parents pick their children's groups when signing up
	public.GET("/groups", api.list)

	authed.GET("/groups/:id", api.retrieve)
	authed.POST("/groups", api.create, adminMiddleware())
	authed.PUT("/groups/order", api.reorder, adminMiddleware())
	authed.PUT("/groups/:id", api.update, adminMiddleware())
	authed.DELETE("/groups/:id", api.destroy, adminMiddleware())
}

func (api *groupApi) list(ctx echo.Context) error {
	groups, err := api.svc.List(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing groups")
	}
	return ctx.JSON(http.StatusOK, groupResponses(groups))
}

func groupResponses(groups []group.Group) []GroupResponse {
	resp := make([]GroupResponse, 0, len(groups))
	for _, g := range groups {
		resp = append(resp, newGroupResponse(g))
	}
	return resp
}

func (api *groupApi) retrieve(ctx echo.Context) error {
	grp, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting group")
	}
	return ctx.JSON(http.StatusOK, newGroupResponse(grp))
}

func (api *groupApi) create(ctx echo.Context) error {
	var data group.NewGroup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGroup")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate); err != nil {
		return err
	}

	grp, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating group")
	}
	return ctx.JSON(http.StatusCreated, newGroupResponse(grp))
}

func (api *groupApi) update(ctx echo.Context) error {
	grp, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting group")
	}

	var data group.UpdateGroup
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGroup")
	}
	if err = data.Validate(ctx.Request().Context(), api.validate); err != nil {
		return err
	}

	if grp, err = api.svc.Update(ctx.Request().Context(), grp, data); err != nil {
		return errors.Wrap(err, "updating group")
	}
	return ctx.JSON(http.StatusOK, newGroupResponse(grp))
}

func (api *groupApi) destroy(ctx echo.Context) error {
	grp, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting group")
	}
	if err = api.svc.Delete(ctx.Request().Context(), grp); err != nil {
		return errors.Wrap(err, "deleting group")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *groupApi) reorder(ctx echo.Context) error {
	var data group.Reorder
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Reorder")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	groups, err := api.svc.Reorder(ctx.Request().Context(), data.IDs)
	if err != nil {
		return errors.Wrap(err, "reordering groups")
	}
	return ctx.JSON(http.StatusOK, groupResponses(groups))
}
