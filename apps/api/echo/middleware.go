package echoapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/compass/core"
	"github.com/trezcool/compass/core/auth"
	"github.com/trezcool/compass/core/user"
)

const (
	sessionCookie     = "compass_session"
	csrfCookie        = "_csrf"
	csrfField         = "_csrf"
	contextSIDKey     = "sid"
	contextCSRFKey    = "csrf"
	contextToastsKey  = "toasts"
	flashStoreTimeout = 2 * time.Second
)

func sessionID(ctx echo.Context) string {
	sid, _ := ctx.Get(contextSIDKey).(string)
	return sid
}

// setSession stores sid in the browser; an empty sid removes the cookie.
func setSession(ctx echo.Context, conf *core.Config, sid string) {
	cookie := &http.Cookie{
		Name:     sessionCookie,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		Secure:   !(conf.Debug || conf.TestMode),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(conf.Server.SessionTTL / time.Second),
	}
	if sid == "" {
		cookie.MaxAge = -1
	}
	ctx.SetCookie(cookie)
	ctx.Set(contextSIDKey, sid)
}

// sessionMiddleware exposes the session id of the browser to the handlers.
func sessionMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if cookie, err := ctx.Cookie(sessionCookie); err == nil {
				ctx.Set(contextSIDKey, cookie.Value)
			}
			return next(ctx)
		}
	}
}

func csrfMiddleware(conf *core.Config) echo.MiddlewareFunc {
	return middleware.CSRFWithConfig(middleware.CSRFConfig{
		TokenLookup:    "form:" + csrfField,
		ContextKey:     contextCSRFKey,
		CookieName:     csrfCookie,
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSecure:   !(conf.Debug || conf.TestMode),
		CookieSameSite: http.SameSiteStrictMode,
		Skipper: func(ctx echo.Context) bool {
			return isAPIRequest(ctx)
		},
	})
}

// toastMiddleware collects the toasts reported while handling the request.
// Toasts left over from a redirect are shown first; the ones no page rendered are kept for the next one.
func toastMiddleware(flashes FlashStore, logger core.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			toasts := new(core.Toasts)
			req := ctx.Request()
			sid := sessionID(ctx)

			if sid != "" {
				flashed, err := flashes.PopToasts(req.Context(), sid)
				if err != nil {
					logger.Warn(fmt.Sprintf("popping toasts: %v", err), err)
				}
				for _, toast := range flashed {
					toasts.Notify(toast)
				}
			}

			ctx.SetRequest(req.WithContext(core.WithNotifier(req.Context(), toasts)))
			ctx.Set(contextToastsKey, toasts)

			err := next(ctx)
			if err != nil {
				return err // the error page renders them
			}

			if sid = sessionID(ctx); sid == "" {
				return nil
			}
			if pending := toasts.Drain(); len(pending) > 0 {
				sctx, cancel := context.WithTimeout(context.Background(), flashStoreTimeout)
				defer cancel()
				if err := flashes.PushToasts(sctx, sid, pending...); err != nil {
					logger.Warn(fmt.Sprintf("pushing toasts: %v", err), err)
				}
			}
			return nil
		}
	}
}

// guardMiddleware redirects to the login page unless the session guard authenticates the browser.
func guardMiddleware(sessions *auth.Sessions, userSvc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			sid := sessionID(ctx)
			reqCtx := ctx.Request().Context()

			guard := auth.NewGuard(sessions.Flags(), sessions, sid)
			defer guard.Close()
			if guard.Resolve(reqCtx) != auth.Authenticated {
				return ctx.Redirect(http.StatusSeeOther, "/login")
			}

			if sess, err := sessions.Current(reqCtx, sid); err == nil {
				if usr, err := userSvc.GetByID(reqCtx, sess.UserID); err == nil {
					ctx.Set(contextUserKey, usr)
				}
			}
			return next(ctx)
		}
	}
}

// sessionEvents streams the guard state of the browser session as server-sent events.
// The stream ends once the session is signed out, from this browser or any other instance.
func sessionEvents(sessions *auth.Sessions) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		reqCtx := ctx.Request().Context()

		guard := auth.NewGuard(sessions.Flags(), sessions, sessionID(ctx))
		defer guard.Close()
		guard.Resolve(reqCtx)
		if err := guard.Watch(reqCtx); err != nil {
			return errors.Wrap(err, "watching session")
		}

		res := ctx.Response()
		res.Header().Set(echo.HeaderContentType, "text/event-stream")
		res.Header().Set("Cache-Control", "no-cache")
		res.Header().Set("Connection", "keep-alive")
		res.WriteHeader(http.StatusOK)
		res.Flush()

		for {
			select {
			case <-reqCtx.Done():
				return nil
			case state, ok := <-guard.Changes():
				if !ok {
					return nil
				}
				if _, err := fmt.Fprintf(res, "event: state\ndata: %s\n\n", state); err != nil {
					return nil
				}
				res.Flush()
				if state == auth.Unauthenticated {
					return nil
				}
			}
		}
	}
}
