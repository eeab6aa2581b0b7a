package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// currentUserID extracts the authenticated user id for rate-limit keys.
// JWTAuth stores the JWT subject under "user_id"; the claim decodes as a
// float64 because MapClaims is untyped JSON. Anonymous requests key as
// "anon".
func currentUserID(c echo.Context) string {
	switch v := c.Get("user_id").(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	}
	return "anon"
}
