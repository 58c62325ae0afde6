package voters

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/buhurtdb/buhurtdb/internal/apperror"
)

// CookieName is the cookie carrying the voter token.
const CookieName = "buhurt_voter"

const contextKeyVoterID = "voter_id"

// RequireVoter resolves the caller's voter session from the cookie, issuing
// a new one (and setting the cookie) when it is missing or has expired.
// Downstream handlers read the voter ID with GetVoterID.
func RequireVoter(service VoterService, ttl time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			var session *Session
			if cookie, err := c.Cookie(CookieName); err == nil && cookie.Value != "" {
				session, err = service.Validate(ctx, cookie.Value)
				if err != nil && !apperror.IsNotFound(err) {
					return err
				}
			}
			if session == nil {
				var err error
				if session, err = service.Issue(ctx); err != nil {
					return err
				}
				setVoterCookie(c, session.ID, ttl)
			}

			c.Set(contextKeyVoterID, session.ID)
			return next(c)
		}
	}
}

// GetVoterID returns the voter ID stored by RequireVoter, or "" when the
// middleware did not run.
func GetVoterID(c echo.Context) string {
	id, ok := c.Get(contextKeyVoterID).(string)
	if !ok {
		return ""
	}
	return id
}

// setVoterCookie writes the voter token. The cookie is HttpOnly, Secure
// behind TLS, and SameSite=Strict since votes are only cast first-party.
func setVoterCookie(c echo.Context, token string, ttl time.Duration) {
	req := c.Request()
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   req.TLS != nil || req.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(ttl.Seconds()),
	})
}
