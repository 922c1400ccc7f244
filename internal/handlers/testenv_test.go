package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	authmw "github.com/mkravets/digital-store/internal/middleware/auth"
	"github.com/mkravets/digital-store/internal/models"
)

func initTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Product{},
		&models.User{},
		&models.RefreshToken{},
		&models.Order{},
		&models.DownloadVerification{},
	); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	return db
}

func newJSONContext(t *testing.T, method, target string, body interface{}) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	e := echo.New()
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return rec, e.NewContext(req, rec)
}

func asCustomer(c echo.Context, userID string) {
	authmw.SetIdentity(c, authmw.Identity{UserID: userID, Role: "customer"})
}

func asAdmin(c echo.Context, userID string) {
	authmw.SetIdentity(c, authmw.Identity{UserID: userID, Role: "admin"})
}

func seedUser(t *testing.T, db *gorm.DB, id, email string) models.User {
	t.Helper()
	user := models.User{
		ID:           id,
		Name:         "Test User",
		Email:        email,
		PasswordHash: "x",
		Role:         "customer",
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedProduct(t *testing.T, db *gorm.DB, id int, name string, priceInCents int) models.Product {
	t.Helper()
	product := models.Product{
		ID:           id,
		Name:         name,
		Description:  "test description",
		PriceInCents: priceInCents,
		FilePath:     "products/abc-file.zip",
		ImagePath:    "products/abc-image.png",
		IsAvailable:  true,
	}
	require.NoError(t, db.Create(&product).Error)
	return product
}

func seedOrder(t *testing.T, db *gorm.DB, id, userID string, productID, pricePaid int, paymentIntentID string) models.Order {
	t.Helper()
	order := models.Order{
		ID:                    id,
		UserID:                userID,
		ProductID:             productID,
		PricePaidInCents:      pricePaid,
		StripePaymentIntentID: paymentIntentID,
	}
	require.NoError(t, db.Create(&order).Error)
	return order
}

type stubSigner struct {
	downloadKey      string
	downloadFilename string
	downloadExpires  time.Duration
	uploadKey        string
	uploadType       string
	uploadExpires    time.Duration
	err              error
}

func (s *stubSigner) PresignDownload(_ context.Context, key, filename string, expires time.Duration) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.downloadKey = key
	s.downloadFilename = filename
	s.downloadExpires = expires
	return "https://storage.example.com/signed/" + key, nil
}

func (s *stubSigner) PresignUpload(_ context.Context, key, contentType string, expires time.Duration) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.uploadKey = key
	s.uploadType = contentType
	s.uploadExpires = expires
	return "https://storage.example.com/upload/" + key, nil
}

func requireHTTPError(t *testing.T, err error, code int) {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError, got %v", err)
	require.Equal(t, code, he.Code)
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}
