package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPPort    string
	LogLevel    string

	OTLPEndpoint string
	OTLPProtocol string

	Auth    AuthConfig
	Redis   RedisConfig
	Company CompanyConfig

	DocumentDefaultsPath string

	DBType            string
	DBDSN             string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	DBAutoMigrate     bool
}

// AuthConfig points at the external identity provider that issues sessions.
type AuthConfig struct {
	Disabled    bool
	JWTSecret   string
	Issuer      string
	ProviderURL string
	APIKey      string
	RedirectURL string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

// CompanyConfig seeds the letterhead record on first start.
type CompanyConfig struct {
	Name    string
	Address string
	Phone   string
	Email   string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")

	cfg := Config{
		AppName:      getenv("APP_SERVICE", "invoicer"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  environment,
		HTTPPort:     getenv("PORT", "8080"),
		LogLevel:     strings.ToLower(getenv("LOG_LEVEL", "info")),
		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),
		OTLPProtocol: strings.ToLower(getenv("OTLP_PROTOCOL", "grpc")),
		Auth: AuthConfig{
			Disabled:    getenvBool("AUTH_DISABLED", environment != "production"),
			JWTSecret:   strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
			Issuer:      strings.TrimSpace(getenv("AUTH_ISSUER", "")),
			ProviderURL: strings.TrimRight(strings.TrimSpace(getenv("AUTH_PROVIDER_URL", "")), "/"),
			APIKey:      strings.TrimSpace(getenv("AUTH_PROVIDER_API_KEY", "")),
			RedirectURL: strings.TrimSpace(getenv("AUTH_RESET_REDIRECT_URL", "")),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getenvInt("REDIS_DB", 0),
		},
		Company: CompanyConfig{
			Name:    getenv("COMPANY_NAME", ""),
			Address: getenv("COMPANY_ADDRESS", ""),
			Phone:   getenv("COMPANY_PHONE", ""),
			Email:   getenv("COMPANY_EMAIL", ""),
		},
		DocumentDefaultsPath: strings.TrimSpace(getenv("DOCUMENT_DEFAULTS_PATH", "")),
		DBType:               getenv("DATABASE_TYPE", "postgres"),
		DBDSN:                strings.TrimSpace(getenv("DATABASE_DSN", "")),
		DBHost:               getenv("DATABASE_HOST", "localhost"),
		DBPort:               getenv("DATABASE_PORT", "5432"),
		DBName:               getenv("DATABASE_NAME", "invoicer"),
		DBUser:               getenv("DATABASE_USER", "postgres"),
		DBPassword:           getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:            getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:        getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:        getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime:    getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime:    getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		DBAutoMigrate:        getenvBool("DATABASE_AUTO_MIGRATE", true),
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("invalid %s value %q, using default %d", key, value, def)
		return def
	}
	return parsed
}
