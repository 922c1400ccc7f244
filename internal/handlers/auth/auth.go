package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/mkravets/digital-store/internal/events"
	"github.com/mkravets/digital-store/internal/hash"
	"github.com/mkravets/digital-store/internal/logging"
	authmw "github.com/mkravets/digital-store/internal/middleware/auth"
	"github.com/mkravets/digital-store/internal/models"
)

type AuthHandler struct {
	DB       *gorm.DB
	Tokens   *authmw.TokenService
	Producer *events.Producer
}

func (h *AuthHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password required")
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	var existing models.User
	if err := h.DB.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		l.Warn("register_failed", "status", 409, "reason", "user_exists")
		return echo.NewHTTPError(http.StatusConflict, "user already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		l.Error("register_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	user := models.User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: pwHash,
		Role:         "customer",
	}
	if err := h.DB.Create(&user).Error; err != nil {
		l.Error("register_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.publish(c, user.ID, map[string]interface{}{
		"type":   "user_registered",
		"userID": user.ID,
		"email":  user.Email,
	})

	l.Info("register_success", "status", 200)
	return c.JSON(http.StatusOK, echo.Map{
		"id": user.ID, "name": user.Name, "email": user.Email, "role": user.Role,
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var user models.User
	if err := h.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error; err != nil {
		l.Warn("login_failed", "status", 401, "reason", "invalid email or password")
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		l.Warn("login_failed", "status", 401, "reason", "invalid email or password")
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	}

	accessToken, err := h.Tokens.SignAccessToken(user.ID, user.Role)
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot create token", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create token")
	}
	refreshToken, err := h.Tokens.SignRefreshToken(user.ID, user.Role)
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot create token", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create token")
	}
	if err := h.Tokens.SaveRefreshToken(refreshToken, user.ID); err != nil {
		l.Error("login_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	c.SetCookie(authmw.CreateCookie("accessToken", accessToken, "/", time.Now().Add(authmw.AccessTTL)))
	c.SetCookie(authmw.CreateCookie("refreshToken", refreshToken, "/", time.Now().Add(authmw.RefreshTTL)))

	l.Info("login_success", "status", 200)
	return c.JSON(http.StatusOK, echo.Map{
		"id": user.ID, "name": user.Name, "email": user.Email, "role": user.Role,
	})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	if rf, err := c.Cookie("refreshToken"); err == nil && rf.Value != "" {
		if err := h.Tokens.RevokeRefresh(rf.Value); err != nil {
			logging.FromContext(c.Request().Context()).Warn("logout_revoke_failed", "error", err)
		}
	}

	expired := time.Now().Add(-time.Hour)
	c.SetCookie(authmw.CreateCookie("accessToken", "", "/", expired))
	c.SetCookie(authmw.CreateCookie("refreshToken", "", "/", expired))

	return c.JSON(http.StatusOK, echo.Map{"status": "logged out"})
}

func (h *AuthHandler) publish(c echo.Context, key string, event map[string]interface{}) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, events.TopicUserEvents, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Warn("event_publish_failed", "error", err)
	}
}
