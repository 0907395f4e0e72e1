package echoportal

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studentportal/core"
	"github.com/trezcool/studentportal/core/session"
)

const loginPath = "/login"

// sessionHandler is a protected page handler; it receives the Session of the signed in client.
type sessionHandler func(ctx echo.Context, sess session.Session) error

// guard lets a request through iff its client has a token; otherwise it redirects to the login
// page, discarding the requested path. The token is never checked locally: the first backend 401
// seen by the page signs the client out.
func (p *portal) guard(h sessionHandler) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		store, err := getContextStore(ctx)
		if err != nil {
			return err
		}
		sess := store.Session()
		if !sess.IsAuthenticated() {
			return ctx.Redirect(http.StatusFound, loginPath)
		}

		err = h(ctx, sess)
		if err != nil && core.IsUnauthorized(err) {
			p.logger.Info("backend rejected the session token, signing out", sess)
			if err = p.accountSvc.Logout(ctx.Request().Context(), store); err != nil {
				return errors.Wrap(err, "signing out")
			}
			return ctx.Redirect(http.StatusFound, loginPath)
		}
		return err
	}
}
