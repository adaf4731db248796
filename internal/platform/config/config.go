package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIPort string
	AppEnv  string
	JWTKey  []byte
	JWTExp  time.Duration

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CleanupQueueName string

	UploadDir         string
	UploadURLPrefix   string
	MaxUploadSizeMB   int64
	OrphanSweepSpec   string
	OrphanGracePeriod time.Duration
}

var AppConfig *Config

// Load reads the environment (and an optional .env file) into AppConfig.
// The JWT secret has no default; startup must fail without one.
func Load() error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}

	AppConfig = &Config{
		APIPort: getEnv("API_PORT", "8080"),
		AppEnv:  getEnv("APP_ENV", "development"),
		JWTKey:  []byte(jwtSecret),
		JWTExp:  time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 24)) * time.Hour,

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "user"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "knowledge_db"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		CleanupQueueName: getEnv("CLEANUP_QUEUE_NAME", "file_cleanup_queue"),

		UploadDir:         getEnv("UPLOAD_DIR", "public/uploads"),
		UploadURLPrefix:   getEnv("UPLOAD_URL_PREFIX", "/uploads"),
		MaxUploadSizeMB:   int64(getEnvAsInt("MAX_UPLOAD_SIZE_MB", 50)),
		OrphanSweepSpec:   getEnv("ORPHAN_SWEEP_CRON", "0 3 * * *"),
		OrphanGracePeriod: time.Duration(getEnvAsInt("ORPHAN_GRACE_MINUTES", 60)) * time.Minute,
	}

	AppConfig.DBConnStr = "host=" + AppConfig.DBHost +
		" port=" + AppConfig.DBPort +
		" user=" + AppConfig.DBUser +
		" password=" + AppConfig.DBPassword +
		" dbname=" + AppConfig.DBName +
		" sslmode=" + AppConfig.DBSslMode

	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
