package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mkravets/digital-store/internal/models"
)

func newTestService(t *testing.T) *TokenService {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.RefreshToken{}))

	return &TokenService{
		DB:            db,
		JWTSecret:     []byte("test-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
	}
}

func contextWithCookies(cookies ...*http.Cookie) echo.Context {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	return echo.New().NewContext(req, httptest.NewRecorder())
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := newTestService(t)

	raw, err := svc.SignAccessToken("u1", "admin")
	require.NoError(t, err)

	claims, err := svc.Parse(raw)
	require.NoError(t, err)
	userID, role, err := subjectAndRole(claims)
	require.NoError(t, err)
	require.Equal(t, "u1", userID)
	require.Equal(t, "admin", role)
}

func TestParseRejectsNonHMACToken(t *testing.T) {
	svc := newTestService(t)

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"sub":  "u1",
		"role": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	raw, err := tok.SignedString(key)
	require.NoError(t, err)

	_, err = svc.Parse(raw)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unexpected signing method")
}

func TestValidateRefreshRejectsAccessToken(t *testing.T) {
	svc := newTestService(t)

	access, err := svc.SignAccessToken("u1", "customer")
	require.NoError(t, err)

	_, err = svc.ValidateRefresh(access)
	require.Error(t, err)
}

func TestValidateRefreshRequiresStoredToken(t *testing.T) {
	svc := newTestService(t)

	refresh, err := svc.SignRefreshToken("u1", "customer")
	require.NoError(t, err)

	_, err = svc.ValidateRefresh(refresh)
	require.Error(t, err, "unsaved token must not validate")

	require.NoError(t, svc.SaveRefreshToken(refresh, "u1"))
	claims, err := svc.ValidateRefresh(refresh)
	require.NoError(t, err)
	require.Equal(t, "u1", claims["sub"])
}

func TestRevokedRefreshRejected(t *testing.T) {
	svc := newTestService(t)

	refresh, err := svc.SignRefreshToken("u1", "customer")
	require.NoError(t, err)
	require.NoError(t, svc.SaveRefreshToken(refresh, "u1"))
	require.NoError(t, svc.RevokeRefresh(refresh))

	_, err = svc.ValidateRefresh(refresh)
	require.Error(t, err)
}

func TestRotateToken(t *testing.T) {
	svc := newTestService(t)

	refresh, err := svc.SignRefreshToken("u1", "customer")
	require.NoError(t, err)
	require.NoError(t, svc.SaveRefreshToken(refresh, "u1"))

	access, newRefresh, claims, err := svc.RotateToken(refresh)
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, newRefresh)
	require.Equal(t, "u1", claims["sub"])

	var stored int64
	require.NoError(t, svc.DB.Model(&models.RefreshToken{}).Count(&stored).Error)
	require.Equal(t, int64(2), stored)
}

func TestRequireLoginSetsIdentity(t *testing.T) {
	svc := newTestService(t)

	access, err := svc.SignAccessToken("u1", "customer")
	require.NoError(t, err)

	c := contextWithCookies(&http.Cookie{Name: "accessToken", Value: access})
	called := false
	handler := svc.RequireLogin(func(c echo.Context) error {
		called = true
		id, ok := CurrentUser(c)
		require.True(t, ok)
		require.Equal(t, "u1", id.UserID)
		require.Equal(t, "customer", id.Role)
		return nil
	})
	require.NoError(t, handler(c))
	require.True(t, called)
}

func TestRequireLoginRejectsAnonymous(t *testing.T) {
	svc := newTestService(t)

	handler := svc.RequireLogin(func(echo.Context) error { return nil })
	err := handler(contextWithCookies())
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestRequireLoginRotatesExpiredAccess(t *testing.T) {
	svc := newTestService(t)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "u1",
		"role": "customer",
		"exp":  time.Now().Add(-time.Minute).Unix(),
	})
	expiredAccess, err := expired.SignedString(svc.JWTSecret)
	require.NoError(t, err)

	refresh, err := svc.SignRefreshToken("u1", "customer")
	require.NoError(t, err)
	require.NoError(t, svc.SaveRefreshToken(refresh, "u1"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: expiredAccess})
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: refresh})
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	handler := svc.RequireLogin(func(c echo.Context) error {
		id, ok := CurrentUser(c)
		require.True(t, ok)
		require.Equal(t, "u1", id.UserID)
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))

	var rotated bool
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "refreshToken" && ck.Value != refresh {
			rotated = true
		}
	}
	require.True(t, rotated, "refresh cookie not rotated")
}

func TestRequireAdmin(t *testing.T) {
	svc := newTestService(t)

	customer, err := svc.SignAccessToken("u1", "customer")
	require.NoError(t, err)
	admin, err := svc.SignAccessToken("a1", "admin")
	require.NoError(t, err)

	handler := svc.RequireAdmin(func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	err = handler(contextWithCookies(&http.Cookie{Name: "accessToken", Value: customer}))
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusUnauthorized, he.Code)

	require.NoError(t, handler(contextWithCookies(&http.Cookie{Name: "accessToken", Value: admin})))
}
