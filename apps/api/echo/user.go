package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kita/core"
	"github.com/trezcool/kita/core/user"
)

type userApi struct {
	conf     *core.Config
	svc      *user.Service
	validate *validator.Validate
}

func newUserApi(deps ServerDeps) userApi {
	return userApi{conf: deps.Conf, svc: deps.UserSvc, validate: deps.Validate}
}

func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := newUserApi(deps)

	// TODO: lock accounts after repeated failed logins
	ag := g.Group("/auth", rateLimitMiddleware(deps.Conf.Server.RateLimit, deps.Conf.Server.RateBurst))
	ag.POST("/register", api.register)
	ag.POST("/login", api.login)
	ag.POST("/password-reset", api.resetPassword)
	ag.POST("/password-reset-confirm", api.confirmPasswordReset)

	// authed, allowed with a temporary password
	ag.POST("/token-refresh", api.refreshToken, jwt)
	ag.POST("/force-reset", api.forceReset, jwt)
}

func registerMeAPI(g *echo.Group, deps ServerDeps) {
	api := newUserApi(deps)

	mg := g.Group("/me")
	mg.GET("", api.me)
	mg.PUT("", api.updateProfile)
	mg.DELETE("", api.deleteAccount)
	mg.PUT("/password", api.changePassword)
	mg.GET("/birthdays", api.birthdays)
	mg.GET("/children", api.listChildren)
	mg.POST("/children", api.addChild)
	mg.PUT("/children/:id", api.updateChild)
	mg.DELETE("/children/:id", api.deleteChild)
}

func registerUserAPI(g *echo.Group, deps ServerDeps) {
	api := newUserApi(deps)

	ug := g.Group("/users", adminMiddleware())
	ug.GET("", api.query)
	ug.POST("", api.create)
	ug.DELETE("", api.destroyMultiple)
	ug.GET("/roles", api.queryRoles)
	ug.GET("/:id", api.retrieve)
	ug.PUT("/:id", api.update)
	ug.DELETE("/:id", api.destroy)
}

func (api *userApi) loginResponse(usr user.User, origIat ...int64) (LoginResponse, error) {
	token, err := GenerateToken(api.conf, GetUserClaims(api.conf, usr, origIat...))
	if err != nil {
		return LoginResponse{}, errors.Wrap(err, "generating token")
	}
	return LoginResponse{Token: token, MustResetPassword: usr.MustResetPassword, User: &usr}, nil
}

// Auth handlers

func (api *userApi) register(ctx echo.Context) error {
	var data user.Registration
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Registration")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc.Groups()); err != nil {
		return err
	}

	usr, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	resp, err := api.loginResponse(usr)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, resp)
}

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := authenticate(ctx, data.Email, data.Password, api.svc)
	if err != nil {
		return err
	}
	resp, err := api.loginResponse(usr)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.conf, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	claims, _ := getContextClaims(ctx)
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, MustResetPassword: claims.MustResetPassword})
}

func (api *userApi) forceReset(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}

	var data user.ForceResetPassword
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ForceResetPassword")
	}
	if err = data.Validate(api.validate, usr); err != nil {
		return err
	}

	if usr, err = api.svc.ForceReset(ctx.Request().Context(), usr, data); err != nil {
		return errors.Wrap(err, "resetting temporary password")
	}
	resp, err := api.loginResponse(usr)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *userApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); !(err == nil || core.IsNotFound(err)) {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *userApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

// Profile handlers

func (api *userApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) updateProfile(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}

	var data user.UpdateProfile
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}
	if err = data.Validate(ctx.Request().Context(), api.validate, api.svc.Groups()); err != nil {
		return err
	}

	children := usr.Children
	if usr, err = api.svc.UpdateProfile(ctx.Request().Context(), usr, data); err != nil {
		return errors.Wrap(err, "updating profile")
	}
	usr.Children = children
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) changePassword(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}

	var data user.ChangePassword
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangePassword")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	if err = api.svc.ChangePassword(ctx.Request().Context(), usr, data); err != nil {
		return errors.Wrap(err, "changing password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been changed."})
}

func (api *userApi) deleteAccount(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteAccount(ctx.Request().Context(), usr); err != nil {
		return errors.Wrap(err, "deleting account")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userApi) birthdays(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}
	children, err := api.svc.BirthdaysToday(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "querying birthdays")
	}
	return ctx.JSON(http.StatusOK, emptyIfNil(children))
}

func (api *userApi) listChildren(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, emptyIfNil(usr.Children))
}

func (api *userApi) addChild(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}

	var data user.NewChild
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewChild")
	}
	if err = data.Validate(ctx.Request().Context(), api.validate, api.svc.Groups()); err != nil {
		return err
	}

	child, err := api.svc.AddChild(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "adding child")
	}
	return ctx.JSON(http.StatusCreated, child)
}

func (api *userApi) updateChild(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}

	var data user.UpdateChild
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateChild")
	}
	if err = data.Validate(ctx.Request().Context(), api.validate, api.svc.Groups()); err != nil {
		return err
	}

	child, err := api.svc.UpdateChild(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating child")
	}
	return ctx.JSON(http.StatusOK, child)
}

func (api *userApi) deleteChild(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteChild(ctx.Request().Context(), usr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting child")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Admin handlers

func (api *userApi) query(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.User{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	users, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	return ctx.JSON(http.StatusOK, emptyIfNil(users))
}

func (api *userApi) create(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc.Groups()); err != nil {
		return err
	}

	usr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) retrieve(ctx echo.Context) error {
	usr, err := api.svc.Me(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding user by ID")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) update(ctx echo.Context) error {
	usr, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding user by ID")
	}

	var data user.UpdateUser
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	if err = data.Validate(ctx.Request().Context(), api.validate, api.svc.Groups()); err != nil {
		return err
	}

	if usr, err = api.svc.Update(ctx.Request().Context(), usr, data); err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) destroy(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}
	usr, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding user by ID")
	}

	if err = api.svc.Delete(ctx.Request().Context(), ctxUsr, usr.ID); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), ctxUsr, query.IDs...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Roles)
}
