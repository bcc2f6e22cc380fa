package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL    string
	RedisURL       string
	KafkaBrokers   []string
	NatsURL        string
	JaegerEndpoint string
	Port           string
	Environment    string

	RazorpayKeyID     string
	RazorpayKeySecret string
	RazorpayAPIBase   string

	// Server-side price list for the paid classification. Client supplied
	// amounts are checked against it, never trusted.
	ClassificationPrice    int64
	ClassificationCurrency string

	JWTSecret             string
	SessionTTL            time.Duration
	RequirePaymentSession bool

	ImageKitPrivateKey string
	ImageKitUploadURL  string
	ImageKitFolder     string

	InferenceSubject string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	FrontendURL        string
	CORSOrigins        []string

	StoreTimeout   time.Duration
	GatewayTimeout time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       getEnv("REDIS_URL", "localhost:6379"),
		KafkaBrokers:   splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		NatsURL:        getEnv("NATS_URL", "nats://localhost:4222"),
		JaegerEndpoint: os.Getenv("JAEGER_ENDPOINT"),
		Port:           getEnv("PORT", "5000"),
		Environment:    getEnv("APP_ENV", "development"),

		RazorpayKeyID:     os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret: os.Getenv("RAZORPAY_KEY_SECRET"),
		RazorpayAPIBase:   getEnv("RAZORPAY_API_BASE", "https://api.razorpay.com/v1"),

		ClassificationPrice:    getInt64("CLASSIFICATION_PRICE", 11100),
		ClassificationCurrency: strings.ToUpper(getEnv("CLASSIFICATION_CURRENCY", "INR")),

		JWTSecret:             os.Getenv("JWT_SECRET"),
		SessionTTL:            getDuration("SESSION_TTL", 7*24*time.Hour),
		RequirePaymentSession: getBool("REQUIRE_PAYMENT_SESSION", false),

		ImageKitPrivateKey: os.Getenv("IMAGEKIT_PRIVATE_KEY"),
		ImageKitUploadURL:  getEnv("IMAGEKIT_UPLOAD_URL", "https://upload.imagekit.io/api/v1/files/upload"),
		ImageKitFolder:     getEnv("IMAGEKIT_FOLDER", "/xray-scans"),

		InferenceSubject: getEnv("ML_INFERENCE_SUBJECT", "ml.inference"),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  os.Getenv("GOOGLE_CALLBACK_URL"),
		FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:5173"),
		CORSOrigins:        splitList(getEnv("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")),

		StoreTimeout:   getDuration("STORE_TIMEOUT", 5*time.Second),
		GatewayTimeout: getDuration("GATEWAY_TIMEOUT", 10*time.Second),
	}
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt64(key string, fallback int64) int64 {
	v, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
