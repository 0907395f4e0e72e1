package echoportal

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studentportal/core/account"
	"github.com/trezcool/studentportal/core/session"
	appfs "github.com/trezcool/studentportal/fs"
	pdfsvc "github.com/trezcool/studentportal/services/pdf"
)

// static page failure messages; details are logged
const (
	msgDashboardFailed = "Failed to load your courses summary. Please try again later."
	msgCoursesFailed   = "Failed to load enrolled courses. Please try again later."
	msgResultsFailed   = "Failed to load academic results. Please try again later."
	msgProfileFailed   = "Failed to load student information. Please try again later."
)

const defaultAvatar = "static/img/default-avatar.svg"

func (p *portal) dashboard(ctx echo.Context, sess session.Session) error {
	data := newPageData(ctx, "dashboard", nil)
	dash, err := p.studentSvc.Dashboard(ctx.Request().Context(), sess)
	if err != nil {
		if err = p.loadFailed(err, ctx, "loading dashboard"); err != nil {
			return err
		}
		data.Error = msgDashboardFailed
	} else {
		data.Data = dash
	}
	return ctx.Render(http.StatusOK, "dashboard", data)
}

func (p *portal) courses(ctx echo.Context, sess session.Session) error {
	data := newPageData(ctx, "courses", nil)
	groups, err := p.studentSvc.Courses(ctx.Request().Context(), sess)
	if err != nil {
		if err = p.loadFailed(err, ctx, "loading courses"); err != nil {
			return err
		}
		data.Error = msgCoursesFailed
	} else {
		data.Data = groups
	}
	return ctx.Render(http.StatusOK, "courses", data)
}

func (p *portal) results(ctx echo.Context, sess session.Session) error {
	data := newPageData(ctx, "results", nil)
	groups, err := p.studentSvc.Results(ctx.Request().Context(), sess)
	if err != nil {
		if err = p.loadFailed(err, ctx, "loading results"); err != nil {
			return err
		}
		data.Error = msgResultsFailed
	} else {
		data.Data = groups
	}
	return ctx.Render(http.StatusOK, "results", data)
}

func (p *portal) coursesPDF(ctx echo.Context, sess session.Session) error {
	groups, err := p.studentSvc.Courses(ctx.Request().Context(), sess)
	if err != nil {
		return errors.Wrap(err, "loading courses")
	}
	var buf bytes.Buffer
	if err = p.exporter.Courses(&buf, sess.StudentID, groups); err != nil {
		return errors.Wrap(err, "exporting courses")
	}
	return attachment(ctx, pdfsvc.CoursesFilename(sess.StudentID), buf.Bytes())
}

func (p *portal) resultsPDF(ctx echo.Context, sess session.Session) error {
	groups, err := p.studentSvc.Results(ctx.Request().Context(), sess)
	if err != nil {
		return errors.Wrap(err, "loading results")
	}
	var buf bytes.Buffer
	if err = p.exporter.Results(&buf, sess.StudentID, groups); err != nil {
		return errors.Wrap(err, "exporting results")
	}
	return attachment(ctx, pdfsvc.ResultsFilename(sess.StudentID), buf.Bytes())
}

func attachment(ctx echo.Context, filename string, pdf []byte) error {
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return ctx.Blob(http.StatusOK, "application/pdf", pdf)
}

func (p *portal) profile(ctx echo.Context, sess session.Session) error {
	data := newPageData(ctx, "profile", nil)
	prof, err := p.studentSvc.Profile(ctx.Request().Context(), sess)
	if err != nil {
		if err = p.loadFailed(err, ctx, "loading profile"); err != nil {
			return err
		}
		data.Error = msgProfileFailed
	} else {
		data.Data = prof
	}
	return ctx.Render(http.StatusOK, "profile", data)
}

// photo proxies the student picture, falling back to the default avatar.
func (p *portal) photo(ctx echo.Context, sess session.Session) error {
	ph, err := p.studentSvc.Photo(ctx.Request().Context(), sess)
	if err == nil && len(ph.Data) > 0 {
		contentType := ph.ContentType
		if contentType == "" {
			contentType = http.DetectContentType(ph.Data)
		}
		ctx.Response().Header().Set("Cache-Control", "private, max-age=300")
		return ctx.Blob(http.StatusOK, contentType, ph.Data)
	}
	if err != nil {
		if err = p.loadFailed(err, ctx, "loading photo"); err != nil {
			return err
		}
	}

	avatar, err := appfs.FS.ReadFile(defaultAvatar)
	if err != nil {
		return errors.Wrap(err, "reading default avatar")
	}
	return ctx.Blob(http.StatusOK, "image/svg+xml", avatar)
}

func (p *portal) settings(ctx echo.Context, sess session.Session) error {
	return ctx.Render(http.StatusOK, "settings", newPageData(ctx, "settings", settingsPage{}))
}

func (p *portal) changePassword(ctx echo.Context, sess session.Session) error {
	var form account.ChangePasswordForm
	if err := ctx.Bind(&form); err != nil {
		return errors.Wrap(err, "binding to ChangePasswordForm")
	}
	form.StudentID, form.Email = sess.StudentID, sess.Email

	err := form.Validate(p.validate)
	if err == nil {
		err = p.accountSvc.ChangePassword(ctx.Request().Context(), sess, form)
	}
	return p.settingsResult(ctx, err, "password", account.MsgPasswordChanged)
}

func (p *portal) changeEmail(ctx echo.Context, sess session.Session) error {
	store, err := getContextStore(ctx)
	if err != nil {
		return err
	}

	var form account.ChangeEmailForm
	if err = ctx.Bind(&form); err != nil {
		return errors.Wrap(err, "binding to ChangeEmailForm")
	}
	form.CurrentEmail = sess.Email

	if err = form.Validate(p.validate); err == nil {
		err = p.accountSvc.ChangeEmail(ctx.Request().Context(), store, form)
	}
	return p.settingsResult(ctx, err, "email", account.MsgEmailChanged)
}

type settingsPage struct {
	Section string // form the message belongs to: password | email
}

func (p *portal) settingsResult(ctx echo.Context, err error, section, success string) error {
	data := newPageData(ctx, "settings", settingsPage{Section: section})
	if err != nil {
		msg, fields, ok := p.formErrors(err)
		if !ok {
			return err
		}
		data.Error, data.Fields = msg, fields
		return ctx.Render(http.StatusBadRequest, "settings", data)
	}
	data.Message = success
	return ctx.Render(http.StatusOK, "settings", data)
}
