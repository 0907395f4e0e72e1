package echoportal

import (
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studentportal/core"
	"github.com/trezcool/studentportal/core/session"
)

const (
	clientCookieName   = "portal_client"
	clientCookieMaxAge = 365 * 24 * 60 * 60
	clientIDKey        = "id"

	contextStoreKey = "sessionStore"
	csrfContextKey  = "csrf"
	csrfField       = "csrf"
)

var errNoStoreInCtx = errors.New("session store not found in echo.Context")

// clientMiddleware identifies the browser with a signed cookie holding a uuid (issued on first visit)
// and opens its session store for the handlers.
func clientMiddleware(cookies sessions.Store, manager *session.Manager, logger core.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			req := ctx.Request()

			// an invalid or tampered cookie still yields a new, empty session
			ck, err := cookies.Get(req, clientCookieName)
			if err != nil {
				logger.Debug("discarding client cookie", err)
			}

			clientID, _ := ck.Values[clientIDKey].(string)
			if _, err = uuid.Parse(clientID); err != nil {
				clientID = uuid.NewString()
				ck.Values[clientIDKey] = clientID
				if err = ck.Save(req, ctx.Response()); err != nil {
					return errors.Wrap(err, "saving client cookie")
				}
			}

			store, err := manager.Open(req.Context(), clientID)
			if err != nil {
				return errors.Wrap(err, "opening session store")
			}
			ctx.Set(contextStoreKey, store)
			return next(ctx)
		}
	}
}

func getContextStore(ctx echo.Context) (*session.Store, error) {
	if store, ok := ctx.Get(contextStoreKey).(*session.Store); ok {
		return store, nil
	}
	return nil, errNoStoreInCtx
}

// getContextSession returns the current Session; the zero Session outside the client middleware.
func getContextSession(ctx echo.Context) session.Session {
	if store, err := getContextStore(ctx); err == nil {
		return store.Session()
	}
	return session.Session{}
}

func getCSRFToken(ctx echo.Context) string {
	token, _ := ctx.Get(csrfContextKey).(string)
	return token
}
