package echoapi

import (
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kita/core"
	"github.com/trezcool/kita/core/legacy"
)

var collectionRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

type legacyApi struct {
	store *legacy.Store
}

// registerLegacyAPI exposes the key-value collections of installations without a database.
func registerLegacyAPI(g *echo.Group, deps ServerDeps) {
	api := legacyApi{store: deps.Legacy}

	lg := g.Group("/legacy", adminMiddleware())
	lg.DELETE("", api.clear)
	lg.GET("/settings", api.settings)
	lg.PUT("/settings", api.saveSettings)
	lg.GET("/groups", api.groups)
	lg.GET("/:collection", api.list)
	lg.PUT("/:collection", api.replace)
	lg.POST("/:collection", api.add)
	lg.PUT("/:collection/:id", api.update)
	lg.DELETE("/:collection/:id", api.destroy)
}

// decodeBody reads a JSON body. Items are maps, which the echo binder would fill with path params.
func decodeBody(ctx echo.Context, dest interface{}) error {
	if err := json.NewDecoder(ctx.Request().Body).Decode(dest); err != nil {
		return core.NewValidationError(errors.Wrap(err, "invalid JSON body"))
	}
	return nil
}

func collectionParam(ctx echo.Context) (string, error) {
	name := ctx.Param("collection")
	if !collectionRegex.MatchString(name) {
		return "", errHttpNotFound
	}
	return name, nil
}

func (api *legacyApi) settings(ctx echo.Context) error {
	settings, err := api.store.FacilitySettings(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "reading facility settings")
	}
	return ctx.JSON(http.StatusOK, settings)
}

func (api *legacyApi) saveSettings(ctx echo.Context) error {
	var data legacy.FacilitySettings
	if err := decodeBody(ctx, &data); err != nil {
		return err
	}
	settings, err := api.store.SaveFacilitySettings(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "saving facility settings")
	}
	return ctx.JSON(http.StatusOK, settings)
}

func (api *legacyApi) groups(ctx echo.Context) error {
	groups, err := api.store.Groups(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "reading groups")
	}
	return ctx.JSON(http.StatusOK, emptyIfNil(groups))
}

func (api *legacyApi) list(ctx echo.Context) error {
	name, err := collectionParam(ctx)
	if err != nil {
		return err
	}
	items, err := api.store.Get(ctx.Request().Context(), name)
	if err != nil {
		return errors.Wrapf(err, "reading %s", name)
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *legacyApi) replace(ctx echo.Context) error {
	name, err := collectionParam(ctx)
	if err != nil {
		return err
	}
	var items []legacy.Item
	if err = decodeBody(ctx, &items); err != nil {
		return err
	}
	if err = api.store.Set(ctx.Request().Context(), name, items); err != nil {
		return errors.Wrapf(err, "writing %s", name)
	}
	return ctx.JSON(http.StatusOK, emptyIfNil(items))
}

func (api *legacyApi) add(ctx echo.Context) error {
	name, err := collectionParam(ctx)
	if err != nil {
		return err
	}
	var item legacy.Item
	if err = decodeBody(ctx, &item); err != nil {
		return err
	}
	if item, err = api.store.Add(ctx.Request().Context(), name, item); err != nil {
		return errors.Wrapf(err, "adding to %s", name)
	}
	return ctx.JSON(http.StatusCreated, item)
}

func (api *legacyApi) update(ctx echo.Context) error {
	name, err := collectionParam(ctx)
	if err != nil {
		return err
	}
	var item legacy.Item
	if err = decodeBody(ctx, &item); err != nil {
		return err
	}
	if item == nil {
		item = legacy.Item{}
	}
	item["id"] = ctx.Param("id")

	found, err := api.store.Update(ctx.Request().Context(), name, item)
	if err != nil {
		return errors.Wrapf(err, "updating %s", name)
	}
	if !found {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, item)
}

func (api *legacyApi) destroy(ctx echo.Context) error {
	name, err := collectionParam(ctx)
	if err != nil {
		return err
	}
	if err = api.store.Delete(ctx.Request().Context(), name, ctx.Param("id")); err != nil {
		return errors.Wrapf(err, "deleting from %s", name)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *legacyApi) clear(ctx echo.Context) error {
	if err := api.store.Clear(ctx.Request().Context()); err != nil {
		return errors.Wrap(err, "clearing collections")
	}
	return ctx.NoContent(http.StatusNoContent)
}
