package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port       string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	RedisAddr  string
	RedisPass  string
	// FlowVariant selects the application flow: "full" keeps the phone
	// verification step and the OTP gate on the confirmation screen,
	// "short" goes terms -> check directly and lets an already-paid
	// record jump straight to completed at load time.
	FlowVariant string
	// Base URL used when building shareable application links
	ShareBaseURL string
	// Vision API (document recognition) settings
	VisionBaseURL string
	VisionAppID   string
	VisionSecret  string
	// DevMode returns OTP codes in API responses instead of sending SMS
	DevMode bool
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found, using environment variables")
	}
	return &Config{
		Port:          getenvOrDefault("PORT", "8080"),
		DBHost:        os.Getenv("DB_HOST"),
		DBPort:        getenvOrDefault("DB_PORT", "5432"),
		DBUser:        os.Getenv("DB_USER"),
		DBPassword:    os.Getenv("DB_PASSWORD"),
		DBName:        os.Getenv("DB_NAME"),
		RedisAddr:     getenvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPass:     os.Getenv("REDIS_PASSWORD"),
		FlowVariant:   getenvOrDefault("FLOW_VARIANT", "full"),
		ShareBaseURL:  getenvOrDefault("SHARE_BASE_URL", "http://localhost:8080/apply"),
		VisionBaseURL: getenvOrDefault("VISION_BASE_URL", "https://aip.baidubce.com"),
		VisionAppID:   os.Getenv("VISION_APP_ID"),
		VisionSecret:  os.Getenv("VISION_SECRET"),
		DevMode:       os.Getenv("DEV_MODE") == "true",
	}
}

// getenvOrDefault returns the environment variable value if set, otherwise returns def
func getenvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
