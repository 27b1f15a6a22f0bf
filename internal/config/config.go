package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DevelopmentJWTSecret is the fallback signing key; it is refused in production.
const DevelopmentJWTSecret = "rewear-development-secret"

// Blob storage backends.
const (
	BlobBackendMinIO      = "minio"
	BlobBackendCloudinary = "cloudinary"
)

var (
	LogLevel         string
	ServerRunAddress string
	DatabaseURI      string
	Environment      string

	JWTSecret      string
	SessionTTL     time.Duration
	RememberMeTTL  time.Duration
	CookieSecure   bool
	CookieSameSite string

	ModerationPolicy string
	BrowseExcludeOwn bool
	MaxImagesPerItem int
	MaxImageBytes    int
	MaxPointsCost    int

	RedisAddr       string
	RedisPassword   string
	LoginRateLimit  int
	LoginRateWindow time.Duration

	BlobBackend string

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool
	MinIOPublicURL string

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using default values")
	}

	LogLevel = getEnv("LOG_LEVEL", "info")
	ServerRunAddress = getEnv("SERVER_RUN_ADDRESS", "0.0.0.0:8080")
	DatabaseURI = getEnv("DATABASE_URI", "host=db user=postgres password=password dbname=rewear sslmode=disable")
	Environment = getEnv("APP_ENV", "development")

	JWTSecret = getEnv("JWT_SECRET", DevelopmentJWTSecret)
	SessionTTL = getDuration("SESSION_TTL", 24*time.Hour)
	RememberMeTTL = getDuration("REMEMBER_ME_TTL", 30*24*time.Hour)
	CookieSecure = getBool("COOKIE_SECURE", Environment == "production")
	CookieSameSite = getEnv("COOKIE_SAME_SITE", "lax")

	ModerationPolicy = getEnv("MODERATION_POLICY", "moderated")
	BrowseExcludeOwn = getBool("BROWSE_EXCLUDE_OWN", true)
	MaxImagesPerItem = getInt("MAX_IMAGES_PER_ITEM", 8)
	MaxImageBytes = getInt("MAX_IMAGE_BYTES", 5<<20)
	MaxPointsCost = getInt("MAX_POINTS_COST", 1000)

	RedisAddr = getEnv("REDIS_ADDR", "")
	RedisPassword = getEnv("REDIS_PASSWORD", "")
	LoginRateLimit = getInt("LOGIN_RATE_LIMIT", 10)
	LoginRateWindow = getDuration("LOGIN_RATE_WINDOW", time.Minute)

	BlobBackend = getEnv("BLOB_BACKEND", BlobBackendMinIO)

	MinIOEndpoint = getEnv("MINIO_ENDPOINT", "localhost:9000")
	MinIOAccessKey = getEnv("MINIO_ACCESS_KEY", "minioadmin")
	MinIOSecretKey = getEnv("MINIO_SECRET_KEY", "minioadmin")
	MinIOBucket = getEnv("MINIO_BUCKET", "rewear")
	MinIOUseSSL = getBool("MINIO_USE_SSL", false)
	MinIOPublicURL = getEnv("MINIO_PUBLIC_URL", "http://localhost:9000")

	CloudinaryCloudName = getEnv("CLOUDINARY_CLOUD_NAME", "")
	CloudinaryAPIKey = getEnv("CLOUDINARY_API_KEY", "")
	CloudinaryAPISecret = getEnv("CLOUDINARY_API_SECRET", "")
	CloudinaryFolder = getEnv("CLOUDINARY_FOLDER", "rewear")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

// ValidateJWTSecret rejects an empty or development signing key in production.
func ValidateJWTSecret(environment, secret string) error {
	if environment == "production" && (secret == "" || secret == DevelopmentJWTSecret) {
		return errors.New("JWT_SECRET must be set to a non-default value in production")
	}
	return nil
}
