package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/mkravets/digital-store/internal/models"
)

const (
	AccessTTL  = 15 * time.Minute
	RefreshTTL = 7 * 24 * time.Hour
)

type TokenService struct {
	DB            *gorm.DB
	JWTSecret     []byte
	RefreshSecret []byte
}

func (t *TokenService) SignAccessToken(userID, role string) (string, error) {
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"exp":  time.Now().Add(AccessTTL).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(t.JWTSecret)
}

func (t *TokenService) SignRefreshToken(userID, role string) (string, error) {
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"exp":  time.Now().Add(RefreshTTL).Unix(),
		"typ":  "refresh",
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(t.RefreshSecret)
}

// SaveRefreshToken persists the sha256 of the raw token; the raw value only
// ever lives in the client cookie.
func (t *TokenService) SaveRefreshToken(rawToken, userID string) error {
	stored := models.RefreshToken{
		Token:     sha256Hex(rawToken),
		UserID:    userID,
		ExpiresAt: time.Now().Add(RefreshTTL),
		Revoked:   false,
	}
	if err := t.DB.Create(&stored).Error; err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (t *TokenService) RevokeRefresh(rawToken string) error {
	err := t.DB.Model(&models.RefreshToken{}).
		Where("token = ?", sha256Hex(rawToken)).
		Update("revoked", true).Error
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (t *TokenService) ValidateRefresh(rawToken string) (jwt.MapClaims, error) {
	tok, err := jwt.Parse(rawToken, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.RefreshSecret, nil
	})
	if err != nil || !tok.Valid {
		return nil, fmt.Errorf("invalid refresh token: %w", err)
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("cannot parse claims")
	}
	if typ, ok := claims["typ"]; !ok || typ != "refresh" {
		return nil, errors.New("not a refresh token")
	}

	var stored models.RefreshToken
	if err := t.DB.Where("token = ?", sha256Hex(rawToken)).First(&stored).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("refresh token not found")
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if stored.Revoked {
		return nil, errors.New("refresh token revoked")
	}
	if time.Now().After(stored.ExpiresAt) {
		return nil, errors.New("refresh token expired")
	}

	return claims, nil
}

func (t *TokenService) RotateToken(rawToken string) (string, string, jwt.MapClaims, error) {
	claims, err := t.ValidateRefresh(rawToken)
	if err != nil {
		return "", "", nil, err
	}

	userID, role, err := subjectAndRole(claims)
	if err != nil {
		return "", "", nil, err
	}

	newAccess, err := t.SignAccessToken(userID, role)
	if err != nil {
		return "", "", nil, err
	}
	newRefresh, err := t.SignRefreshToken(userID, role)
	if err != nil {
		return "", "", nil, err
	}
	if err := t.SaveRefreshToken(newRefresh, userID); err != nil {
		return "", "", nil, err
	}

	return newAccess, newRefresh, claims, nil
}

// CheckCookie resolves the caller's identity from the access cookie, rotating
// via the refresh cookie when the access token is expired. Returns the new
// token pair (newRefresh empty when no rotation happened) and the claims.
func (t *TokenService) CheckCookie(c echo.Context) (string, string, jwt.MapClaims, error) {
	asCookie, err := c.Cookie("accessToken")
	if err == nil && asCookie.Value != "" {
		tok, err := jwt.Parse(asCookie.Value, func(tok *jwt.Token) (interface{}, error) {
			if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
			}
			return t.JWTSecret, nil
		})
		if err == nil && tok.Valid {
			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return "", "", nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token claims")
			}
			return asCookie.Value, "", claims, nil
		}
		if !errors.Is(err, jwt.ErrTokenExpired) {
			return "", "", nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
		}
	}

	rfCookie, err := c.Cookie("refreshToken")
	if err != nil {
		return "", "", nil, echo.NewHTTPError(http.StatusUnauthorized, "missing auth cookie")
	}
	newAccess, newRefresh, claims, err := t.RotateToken(rfCookie.Value)
	if err != nil {
		return "", "", nil, echo.NewHTTPError(http.StatusUnauthorized, "cannot rotate token")
	}

	return newAccess, newRefresh, claims, nil
}

func subjectAndRole(claims jwt.MapClaims) (string, string, error) {
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", "", errors.New("invalid subject claim")
	}
	role, ok := claims["role"].(string)
	if !ok {
		return "", "", errors.New("invalid role claim")
	}
	return sub, role, nil
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
