package middleware

// identity.go provides helpers for reading the authenticated identity that
// JWTAuth stored in the Echo context.  The rate limiter uses the identity
// to scope token buckets per customer.

import "github.com/labstack/echo/v4"

// currentUserID returns the authenticated subject as a string, or "anon"
// when the request carries no identity (public availability reads).
func currentUserID(c echo.Context) string {
    if v := c.Get("user_id"); v != nil {
        if s, ok := v.(string); ok && s != "" {
            return s
        }
    }
    return "anon"
}
