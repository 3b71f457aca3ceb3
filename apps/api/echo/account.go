package echoapi

import (
	"fmt"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/compass/core"
	"github.com/trezcool/compass/core/auth"
	"github.com/trezcool/compass/core/user"
)

const (
	passwordResetSent = "If the email address supplied is associated with an active account on this system, " +
		"an email will arrive in your inbox shortly with instructions to reset your password."
	passwordResetDone = "Password has been reset with the new password."
)

type (
	LoginRequest struct {
		Email    string `json:"email" form:"email" validate:"required"`
		Password string `json:"password" form:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" form:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}

// requestPasswordReset never tells whether the email belongs to an operator.
func requestPasswordReset(ctx echo.Context, svc *user.Service, logger core.Logger, email string) {
	if err := svc.RequestPasswordReset(ctx.Request().Context(), email); !(err == nil || errors.Cause(err) == user.ErrNotFound) {
		// do not return errors to attackers
		logger.Error(fmt.Sprintf("requesting password reset: %v", err), err)
	}
}

// JSON API

type accountApi struct {
	conf     *core.Config
	svc      *user.Service
	validate *validator.Validate
	logger   core.Logger
}

func registerAccountAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	conf *core.Config,
	svc *user.Service,
	validate *validator.Validate,
	logger core.Logger,
) {
	api := accountApi{
		conf:     conf,
		svc:      svc,
		validate: validate,
		logger:   logger,
	}

	// un-authed endpoints
	// TODO: rate limit `/login` & `/password-reset`
	g.POST("/login", api.login)
	g.POST("/password-reset", api.resetPassword)
	g.POST("/password-reset/confirm", api.confirmPasswordReset)

	// authed endpoints
	g.GET("/me", api.me, jwt)
}

func (api *accountApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		switch errors.Cause(err) {
		case user.ErrInvalidCredentials:
			return core.NewValidationError(errors.New("invalid credentials"))
		case user.ErrAccountDeactivated:
			return errAccountDeactivated
		}
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(api.conf, GetUserClaims(api.conf, usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *accountApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	requestPasswordReset(ctx, api.svc, api.logger, data.Email)
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: passwordResetSent})
}

func (api *accountApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if _, err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: passwordResetDone})
}

func (api *accountApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

// HTML pages

type accountPages struct {
	conf       *core.Config
	sessions   *auth.Sessions
	svc        *user.Service
	validate   *validator.Validate
	translator ut.Translator
	logger     core.Logger
}

type (
	passwordResetPage struct {
		Email   string
		Sent    bool
		Message string
	}

	passwordResetConfirmPage struct {
		UID   string
		Token string
	}
)

func registerAccountPages(
	g *echo.Group,
	guard echo.MiddlewareFunc,
	conf *core.Config,
	sessions *auth.Sessions,
	svc *user.Service,
	validate *validator.Validate,
	translator ut.Translator,
	logger core.Logger,
) {
	pages := accountPages{
		conf:       conf,
		sessions:   sessions,
		svc:        svc,
		validate:   validate,
		translator: translator,
		logger:     logger,
	}

	g.GET("/login", pages.loginForm)
	g.POST("/login", pages.login)
	g.POST("/logout", pages.logout, guard)
	g.GET("/password-reset", pages.passwordResetForm)
	g.POST("/password-reset", pages.passwordReset)
	g.GET("/password-reset/confirm", pages.passwordResetConfirmForm)
	g.POST("/password-reset/confirm", pages.passwordResetConfirm)
}

func (pages *accountPages) loginForm(ctx echo.Context) error {
	guard := auth.NewGuard(pages.sessions.Flags(), pages.sessions, sessionID(ctx))
	defer guard.Close()
	if guard.Resolve(ctx.Request().Context()) == auth.Authenticated {
		return ctx.Redirect(http.StatusSeeOther, "/students")
	}
	return render(ctx, http.StatusOK, "login", &page{Title: "Login", Data: LoginRequest{}})
}

func (pages *accountPages) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}

	reqCtx := ctx.Request().Context()
	if err := data.Validate(pages.validate); err != nil {
		fldErrs, _ := fieldErrors(err, pages.translator)
		data.Password = ""
		return render(ctx, http.StatusBadRequest, "login", &page{Title: "Login", Errors: fldErrs, Data: data})
	}

	usr, err := pages.svc.Authenticate(reqCtx, data.Email, data.Password)
	if err != nil {
		switch errors.Cause(err) {
		case user.ErrInvalidCredentials:
			core.Notify(reqCtx, core.ErrorToast("Login failed", "Invalid email or password. Please try again."))
		case user.ErrAccountDeactivated:
			core.Notify(reqCtx, core.ErrorToast("Login failed", "This account has been deactivated."))
		default:
			return errors.Wrap(err, "authenticating")
		}
		data.Password = ""
		return render(ctx, http.StatusUnauthorized, "login", &page{Title: "Login", Data: data})
	}

	_ = pages.sessions.SignOut(reqCtx, sessionID(ctx)) // drop any previous session of this browser
	sess, err := pages.sessions.SignIn(reqCtx, usr)
	if err != nil {
		return errors.Wrap(err, "signing in")
	}
	setSession(ctx, pages.conf, sess.ID)

	core.Notify(reqCtx, core.SuccessToast("Login successful", "Welcome back to "+pages.conf.AppName+"!"))
	return ctx.Redirect(http.StatusSeeOther, "/students")
}

func (pages *accountPages) logout(ctx echo.Context) error {
	if err := pages.sessions.SignOut(ctx.Request().Context(), sessionID(ctx)); err != nil {
		return errors.Wrap(err, "signing out")
	}
	setSession(ctx, pages.conf, "")
	return ctx.Redirect(http.StatusSeeOther, "/login")
}

func (pages *accountPages) passwordResetForm(ctx echo.Context) error {
	return render(ctx, http.StatusOK, "password_reset", &page{Title: "Reset your password", Data: passwordResetPage{}})
}

func (pages *accountPages) passwordReset(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(pages.validate); err != nil {
		fldErrs, _ := fieldErrors(err, pages.translator)
		return render(ctx, http.StatusBadRequest, "password_reset", &page{
			Title:  "Reset your password",
			Errors: fldErrs,
			Data:   passwordResetPage{Email: data.Email},
		})
	}

	requestPasswordReset(ctx, pages.svc, pages.logger, data.Email)
	return render(ctx, http.StatusOK, "password_reset", &page{
		Title: "Reset your password",
		Data:  passwordResetPage{Email: data.Email, Sent: true, Message: passwordResetSent},
	})
}

func (pages *accountPages) passwordResetConfirmForm(ctx echo.Context) error {
	return render(ctx, http.StatusOK, "password_reset_confirm", &page{
		Title: "Choose a new password",
		Data:  passwordResetConfirmPage{UID: ctx.QueryParam("uid"), Token: ctx.QueryParam("token")},
	})
}

func (pages *accountPages) passwordResetConfirm(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}

	reqCtx := ctx.Request().Context()
	if _, err := pages.svc.ResetPassword(reqCtx, data); err != nil {
		fldErrs, ok := fieldErrors(err, pages.translator)
		if !ok {
			return errors.Wrap(err, "resetting password")
		}
		return render(ctx, http.StatusBadRequest, "password_reset_confirm", &page{
			Title:  "Choose a new password",
			Errors: fldErrs,
			Data:   passwordResetConfirmPage{UID: data.UID, Token: data.Token},
		})
	}

	core.Notify(reqCtx, core.SuccessToast("Password reset", passwordResetDone))
	return render(ctx, http.StatusOK, "login", &page{Title: "Login", Data: LoginRequest{}})
}
