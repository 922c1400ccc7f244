package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Identity is the resolved caller, set once at the request boundary by the
// middleware below. Handlers read it instead of touching cookies themselves.
type Identity struct {
	UserID string
	Role   string
}

func (i Identity) IsAdmin() bool { return i.Role == "admin" }

const identityKey = "identity"

// CurrentUser returns the identity resolved for this request, if any.
func CurrentUser(c echo.Context) (Identity, bool) {
	id, ok := c.Get(identityKey).(Identity)
	return id, ok
}

// SetIdentity stores the resolved identity on the request.
func SetIdentity(c echo.Context, id Identity) {
	c.Set(identityKey, id)
}

// RequireLogin resolves the caller from the auth cookies, refreshing the
// access token when needed, and rejects anonymous requests.
func (t *TokenService) RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		newAccess, newRefresh, claims, err := t.CheckCookie(c)
		if err != nil {
			return err
		}

		userID, role, err := subjectAndRole(claims)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token claims")
		}

		if newRefresh != "" {
			c.SetCookie(CreateCookie("accessToken", newAccess, "/", time.Now().Add(AccessTTL)))
			c.SetCookie(CreateCookie("refreshToken", newRefresh, "/", time.Now().Add(RefreshTTL)))
		}

		SetIdentity(c, Identity{UserID: userID, Role: role})
		return next(c)
	}
}

// RequireAdmin is RequireLogin plus an admin-role check.
func (t *TokenService) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return t.RequireLogin(func(c echo.Context) error {
		id, ok := CurrentUser(c)
		if !ok || !id.IsAdmin() {
			return echo.NewHTTPError(http.StatusUnauthorized, "admin access required")
		}
		return next(c)
	})
}

// Parse validates an access token and returns its claims.
func (t *TokenService) Parse(raw string) (jwt.MapClaims, error) {
	tok, err := jwt.Parse(raw, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.JWTSecret, nil
	})
	if err != nil || !tok.Valid {
		return nil, err
	}
	return tok.Claims.(jwt.MapClaims), nil
}

func CreateCookie(name, value, path string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
