package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service configuration
type Config struct {
	Port           int
	WebhookBaseURL string // public base URL the telephony vendor can reach

	GeminiAPIKey string

	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string

	DiscordToken     string
	GoogleMapsAPIKey string

	RedisURL      string
	RedisPassword string

	MaxActiveCalls  int
	CallTurnTimeout time.Duration
	CallStateTTL    time.Duration
	Voice           string
	LocationFile    string
}

// LoadConfig loads configuration from environment variables with defaults
func LoadConfig() (*Config, error) {
	// Load .env file if it exists (doesn't error if missing)
	_ = godotenv.Load()

	config := &Config{
		Port:            8080,
		RedisURL:        "localhost:6379",
		RedisPassword:   "",
		MaxActiveCalls:  10,
		CallTurnTimeout: 30 * time.Second,
		CallStateTTL:    2 * time.Hour,
		Voice:           "woman",
		LocationFile:    "user_locations.json",
	}

	// Required: GEMINI_API_KEY
	config.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	if config.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	// Required: telephony credentials
	config.TwilioAccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	config.TwilioAuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	config.TwilioPhoneNumber = os.Getenv("TWILIO_PHONE_NUMBER")
	if config.TwilioAccountSID == "" || config.TwilioAuthToken == "" || config.TwilioPhoneNumber == "" {
		return nil, fmt.Errorf("TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_PHONE_NUMBER are required")
	}

	// Required: WEBHOOK_BASE_URL. Must stay stable while calls are in flight;
	// mid-call turns post back to it.
	config.WebhookBaseURL = strings.TrimRight(os.Getenv("WEBHOOK_BASE_URL"), "/")
	if config.WebhookBaseURL == "" {
		return nil, fmt.Errorf("WEBHOOK_BASE_URL environment variable is required")
	}

	// Optional: DISCORD_TOKEN (chat loop disabled without it)
	config.DiscordToken = os.Getenv("DISCORD_TOKEN")

	// Optional: GOOGLE_MAPS_API_KEY (place search disabled without it)
	config.GoogleMapsAPIKey = os.Getenv("GOOGLE_MAPS_API_KEY")

	// Optional: PORT
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
		config.Port = p
	}

	// Optional: REDIS_URL
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		config.RedisURL = redisURL
	}

	// Optional: REDIS_PASSWORD
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		config.RedisPassword = redisPassword
	}

	// Optional: MAX_ACTIVE_CALLS (0 disables the cap)
	if maxCalls := os.Getenv("MAX_ACTIVE_CALLS"); maxCalls != "" {
		m, err := strconv.Atoi(maxCalls)
		if err != nil {
			return nil, fmt.Errorf("invalid MAX_ACTIVE_CALLS: %w", err)
		}
		config.MaxActiveCalls = m
	}

	// Optional: CALL_TURN_TIMEOUT (in seconds)
	if timeout := os.Getenv("CALL_TURN_TIMEOUT"); timeout != "" {
		t, err := strconv.Atoi(timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid CALL_TURN_TIMEOUT: %w", err)
		}
		config.CallTurnTimeout = time.Duration(t) * time.Second
	}

	// Optional: CALL_STATE_TTL (in minutes)
	if ttl := os.Getenv("CALL_STATE_TTL"); ttl != "" {
		t, err := strconv.Atoi(ttl)
		if err != nil {
			return nil, fmt.Errorf("invalid CALL_STATE_TTL: %w", err)
		}
		config.CallStateTTL = time.Duration(t) * time.Minute
	}

	// Optional: VOICE
	if voice := os.Getenv("VOICE"); voice != "" {
		config.Voice = voice
	}

	// Optional: LOCATION_FILE
	if locationFile := os.Getenv("LOCATION_FILE"); locationFile != "" {
		config.LocationFile = locationFile
	}

	return config, nil
}

// GatherURL is the webhook the vendor posts mid-call speech to.
func (c *Config) GatherURL() string {
	return c.WebhookBaseURL + "/gather"
}

// StatusURL is the webhook the vendor posts call status transitions to.
func (c *Config) StatusURL() string {
	return c.WebhookBaseURL + "/status"
}
