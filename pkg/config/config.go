package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort       string
	FirebaseProject  string
	FirebaseApiKey   string
	Environment      string
	DefaultSupportID string
	BookingAPIURL    string
	BookingAPIKey    string
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		FirebaseProject:  getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseApiKey:   getEnv("FIREBASE_API_KEY", ""),
		Environment:      getEnv("ENVIRONMENT", "development"),
		DefaultSupportID: getEnv("DEFAULT_SUPPORT_ID", "defaultSupport"),
		BookingAPIURL:    getEnv("BOOKING_API_URL", "http://localhost:9090"),
		BookingAPIKey:    getEnv("BOOKING_API_KEY", ""),
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
