package models

import (
	"time"
)

type Product struct {
	ID           int       `gorm:"primaryKey;autoIncrement"      json:"id"`
	Name         string    `gorm:"not null"                      json:"name"`
	Description  string    `json:"description"`
	PriceInCents int       `gorm:"not null"                      json:"price_in_cents"`
	FilePath     string    `gorm:"not null"                      json:"-"`
	ImagePath    string    `gorm:"not null"                      json:"image_path"`
	IsAvailable  bool      `gorm:"not null;default:true"         json:"is_available"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type User struct {
	ID           string    `gorm:"primaryKey"                    json:"id"`
	Name         string    `gorm:"not null"                      json:"name"`
	Email        string    `gorm:"unique;not null"               json:"email"`
	PasswordHash string    `gorm:"not null"                      json:"-"`
	Role         string    `gorm:"not null;default:customer"     json:"role"`
	Image        string    `json:"image,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Order rows are append-only: fulfillment writes them once and nothing updates
// them afterwards. The unique index on StripePaymentIntentID is what keeps
// webhook delivery idempotent under concurrent retries.
type Order struct {
	ID                    string    `gorm:"primaryKey"           json:"id"`
	UserID                string    `gorm:"index;not null"       json:"user_id"`
	User                  User      `gorm:"constraint:OnDelete:CASCADE"  json:"-"`
	ProductID             int       `gorm:"not null"             json:"product_id"`
	Product               Product   `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
	PricePaidInCents      int       `gorm:"not null"             json:"price_paid_in_cents"`
	StripePaymentIntentID string    `gorm:"uniqueIndex;not null" json:"stripe_payment_intent_id"`
	CreatedAt             time.Time `json:"created_at"`
}

// DownloadVerification is minted on every download click and checked against
// ExpiresAt when the link is resolved. Rows are never refreshed or reused.
type DownloadVerification struct {
	ID        string    `gorm:"primaryKey"     json:"id"`
	ProductID int       `gorm:"not null"       json:"product_id"`
	Product   Product   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `gorm:"not null"       json:"expires_at"`
}

type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"          json:"id"`
	Token     string    `gorm:"unique;not null"     json:"token"`
	UserID    string    `gorm:"index;not null"      json:"user_id"`
	ExpiresAt time.Time `gorm:"not null"            json:"expires_at"`
	Revoked   bool      `gorm:"default:false"       json:"revoked"`
}
