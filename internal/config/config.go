package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	Host     string
	Port     string
	LogLevel string
	LogDir   string

	AccessToken       string
	PhoneNumberID     string
	VerifyToken       string
	BusinessAccountID string
	AppSecret         string
	APIBaseURL        string
	SendTimeout       time.Duration

	CoreAPIURL  string
	CoreTimeout time.Duration

	// TimestampLocation is the zone inbound epoch timestamps are rendered in.
	TimestampLocation string

	DBDriver string
	DBDSN    string
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Debug("No .env file loaded, using process environment")
	}

	return &Config{
		Host:     getEnv("API_HOST", "0.0.0.0"),
		Port:     getEnv("API_PORT", "8000"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogDir:   getEnv("LOG_DIR", ""),

		AccessToken:       getEnv("WHATSAPP_ACCESS_TOKEN", ""),
		PhoneNumberID:     getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
		VerifyToken:       getEnv("WHATSAPP_VERIFY_TOKEN", ""),
		BusinessAccountID: getEnv("WHATSAPP_BUSINESS_ACCOUNT_ID", ""),
		AppSecret:         getEnv("WHATSAPP_APP_SECRET", ""),
		APIBaseURL:        getEnv("WHATSAPP_API_BASE_URL", "https://graph.facebook.com/v18.0"),
		SendTimeout:       getEnvDuration("WHATSAPP_SEND_TIMEOUT", 30*time.Second),

		CoreAPIURL:  getEnv("CORE_API_URL", "http://localhost:8003/api/v1/messages/unified"),
		CoreTimeout: getEnvDuration("CORE_API_TIMEOUT", 10*time.Second),

		TimestampLocation: getEnv("TIMESTAMP_LOCATION", "Local"),

		DBDriver: getEnv("DB_DRIVER", "sqlite"),
		DBDSN:    getEnv("DB_DSN", ""),
	}
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// Location resolves TimestampLocation, falling back to the local zone.
func (c *Config) Location() *time.Location {
	if c.TimestampLocation == "" || c.TimestampLocation == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.TimestampLocation)
	if err != nil {
		log.WithError(err).Warnf("Unknown TIMESTAMP_LOCATION %q, using local time", c.TimestampLocation)
		return time.Local
	}
	return loc
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Warnf("Invalid duration %q for %s, using %s", value, key, fallback)
		return fallback
	}
	return d
}
