package echoportal

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studentportal/core/account"
)

type (
	loginPage struct {
		Forgot        bool   // show the forgot password form
		ForgotMessage string // outcome of a reset link request
		ForgotError   string
	}

	resetPasswordPage struct {
		Token string
		Email string
		Done  bool
	}
)

func (p *portal) loginPage(ctx echo.Context) error {
	return ctx.Render(http.StatusOK, "login", newPageData(ctx, "", loginPage{}))
}

func (p *portal) login(ctx echo.Context) error {
	store, err := getContextStore(ctx)
	if err != nil {
		return err
	}

	var form account.LoginForm
	if err = ctx.Bind(&form); err != nil {
		return errors.Wrap(err, "binding to LoginForm")
	}
	if err = form.Validate(p.validate); err == nil {
		err = p.accountSvc.Login(ctx.Request().Context(), store, form)
	}
	if err != nil {
		msg, fields, ok := p.formErrors(err)
		if !ok {
			return err
		}
		data := newPageData(ctx, "", loginPage{})
		data.Error, data.Fields = msg, fields
		data.Form = account.LoginForm{Username: form.Username} // never echo the password
		return ctx.Render(http.StatusBadRequest, "login", data)
	}

	return ctx.Redirect(http.StatusFound, "/")
}

func (p *portal) forgotPassword(ctx echo.Context) error {
	var form account.ForgotPasswordForm
	if err := ctx.Bind(&form); err != nil {
		return errors.Wrap(err, "binding to ForgotPasswordForm")
	}

	page := loginPage{Forgot: true}
	code := http.StatusOK
	var fields map[string]string

	err := form.Validate(p.validate)
	if err == nil {
		page.ForgotMessage, err = p.accountSvc.ForgotPassword(ctx.Request().Context(), form)
	}
	if err != nil {
		msg, flds, ok := p.formErrors(err)
		if !ok {
			return err
		}
		page.ForgotError, fields = msg, flds
		code = http.StatusBadRequest
	}

	data := newPageData(ctx, "", page)
	data.Fields = fields
	data.Form = form
	return ctx.Render(code, "login", data)
}

// logout clears the Session and shows the "signing out" page, which refreshes to the login page.
func (p *portal) logout(ctx echo.Context) error {
	store, err := getContextStore(ctx)
	if err != nil {
		return err
	}
	if err = p.accountSvc.Logout(ctx.Request().Context(), store); err != nil {
		return err
	}
	return ctx.Render(http.StatusOK, "logout", newPageData(ctx, "", nil))
}

func (p *portal) resetPasswordPage(ctx echo.Context) error {
	resetToken := ctx.QueryParam("token")
	status, err := p.accountSvc.VerifyResetToken(ctx.Request().Context(), resetToken)
	if err != nil {
		msg, _, ok := p.formErrors(err)
		if !ok {
			return err
		}
		data := newPageData(ctx, "", resetPasswordPage{})
		data.Error = msg
		return ctx.Render(http.StatusBadRequest, "reset_password", data)
	}

	return ctx.Render(http.StatusOK, "reset_password", newPageData(ctx, "", resetPasswordPage{
		Token: resetToken,
		Email: status.Email,
	}))
}

func (p *portal) resetPassword(ctx echo.Context) error {
	var form account.ResetPasswordForm
	if err := ctx.Bind(&form); err != nil {
		return errors.Wrap(err, "binding to ResetPasswordForm")
	}

	err := form.Validate(p.validate)
	if err == nil {
		err = p.accountSvc.ResetPassword(ctx.Request().Context(), form)
	}
	if err != nil {
		msg, fields, ok := p.formErrors(err)
		if !ok {
			return err
		}
		data := newPageData(ctx, "", resetPasswordPage{Token: form.Token})
		data.Error, data.Fields = msg, fields
		return ctx.Render(http.StatusBadRequest, "reset_password", data)
	}

	data := newPageData(ctx, "", loginPage{})
	data.Message = account.MsgPasswordReset
	return ctx.Render(http.StatusOK, "login", data)
}
