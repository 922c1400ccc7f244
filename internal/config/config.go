package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/mkravets/digital-store/internal/models"
	"github.com/mkravets/digital-store/pkg/db"
)

type Config struct {
	SERVER_PORT string

	DATABASE_URL string

	JWT_SECRET     string
	REFRESH_SECRET string

	REDIS_ADDR     string
	REDIS_PASSWORD string

	KAFKA_ADDRESS string

	ES_URL      string
	ES_USER     string
	ES_PASSWORD string

	STRIPE_SECRET_KEY     string
	STRIPE_WEBHOOK_SECRET string

	APP_URL string

	S3_BUCKET   string
	S3_REGION   string
	S3_KEY      string
	S3_SECRET   string
	S3_ENDPOINT string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		SERVER_PORT:           envDefault("SERVER_PORT", "8080"),
		DATABASE_URL:          os.Getenv("DATABASE_URL"),
		JWT_SECRET:            os.Getenv("JWT_SECRET"),
		REFRESH_SECRET:        os.Getenv("REFRESH_SECRET"),
		REDIS_ADDR:            os.Getenv("REDIS_ADDR"),
		REDIS_PASSWORD:        os.Getenv("REDIS_PASSWORD"),
		KAFKA_ADDRESS:         os.Getenv("KAFKA_ADDRESS"),
		ES_URL:                os.Getenv("ES_URL"),
		ES_USER:               os.Getenv("ES_USER"),
		ES_PASSWORD:           os.Getenv("ES_PASSWORD"),
		STRIPE_SECRET_KEY:     os.Getenv("STRIPE_SECRET_KEY"),
		STRIPE_WEBHOOK_SECRET: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		APP_URL:               envDefault("APP_URL", "http://localhost:3000"),
		S3_BUCKET:             os.Getenv("S3_BUCKET"),
		S3_REGION:             envDefault("S3_REGION", "auto"),
		S3_KEY:                os.Getenv("S3_KEY"),
		S3_SECRET:             os.Getenv("S3_SECRET"),
		S3_ENDPOINT:           os.Getenv("S3_ENDPOINT"),
	}

	return config, nil
}

func (c *Config) MustValidate() {
	mustNonEmpty(c.DATABASE_URL, "DATABASE_URL")
	mustNonEmpty(c.JWT_SECRET, "JWT_SECRET")
	mustNonEmpty(c.REFRESH_SECRET, "REFRESH_SECRET")
	mustNonEmpty(c.STRIPE_SECRET_KEY, "STRIPE_SECRET_KEY")
	mustNonEmpty(c.STRIPE_WEBHOOK_SECRET, "STRIPE_WEBHOOK_SECRET")
	mustNonEmpty(c.S3_BUCKET, "S3_BUCKET")
}

func InitDB(configuration *Config) (*gorm.DB, error) {
	database, err := db.Open(configuration.DATABASE_URL)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := database.AutoMigrate(
		&models.Product{},
		&models.User{},
		&models.RefreshToken{},
		&models.Order{},
		&models.DownloadVerification{},
	); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return database, nil
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func mustNonEmpty(value, envName string) {
	if value == "" {
		log.Fatalf("missing required env %s", envName)
	}
}
