package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config carries all runtime settings. It is built once at startup and
// passed into the services that need it; nothing reads the environment
// after Load returns.
type Config struct {
	Port           string
	AuthKey        string
	CommandTrigger string
	Timezone       string

	// Tally limits
	MaxCoffeeAdd      int
	MaxCoffeeSubtract int
	CountDisplaySize  int

	// Database connection
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	DBSSLMode  string

	// Backup sink
	BackupBucket   string
	BackupPrefix   string
	BackupRegion   string
	BackupEndpoint string
	BackupSchedule string

	KeepAliveSchedule string
}

// Load reads configuration from the environment (and .env if present)
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	maxAdd, _ := strconv.Atoi(getEnv("MAX_COFFEE_ADD", "5"))
	maxSubtract, _ := strconv.Atoi(getEnv("MAX_COFFEE_SUBTRACT", "2"))
	displaySize, _ := strconv.Atoi(getEnv("COUNT_DISPLAY_SIZE", "5"))

	cfg := &Config{
		Port:           getEnv("PORT", "3000"),
		AuthKey:        os.Getenv("AUTH_KEY"),
		CommandTrigger: getEnv("COMMAND_TRIGGER", "/coffee"),
		Timezone:       getEnv("TIMEZONE", "Australia/Melbourne"),

		MaxCoffeeAdd:      maxAdd,
		MaxCoffeeSubtract: maxSubtract,
		CountDisplaySize:  displaySize,

		DBHost:     getEnv("COFFEE_DB_HOST", "localhost"),
		DBUser:     getEnv("COFFEE_DB_USERNAME", "postgres"),
		DBPassword: os.Getenv("COFFEE_DB_PASSWORD"),
		DBName:     getEnv("COFFEE_DB_DATABASE", "drinks"),
		DBPort:     getEnv("COFFEE_DB_PORT", "5432"),
		DBSSLMode:  getEnv("COFFEE_DB_SSLMODE", "disable"),

		BackupBucket:   os.Getenv("BACKUP_BUCKET"),
		BackupPrefix:   getEnv("BACKUP_PREFIX", "coffee/"),
		BackupRegion:   getEnv("BACKUP_REGION", "ap-southeast-2"),
		BackupEndpoint: os.Getenv("BACKUP_ENDPOINT"),
		BackupSchedule: getEnv("BACKUP_SCHEDULE", "0 2 * * *"),

		KeepAliveSchedule: getEnv("KEEPALIVE_SCHEDULE", "@every 10m"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// validate checks critical configuration at startup
func (c *Config) validate() error {
	if c.AuthKey == "" {
		return fmt.Errorf("AUTH_KEY is required but not set")
	}
	if c.MaxCoffeeAdd <= 0 {
		return fmt.Errorf("MAX_COFFEE_ADD must be positive, got %d", c.MaxCoffeeAdd)
	}
	if c.MaxCoffeeSubtract <= 0 {
		return fmt.Errorf("MAX_COFFEE_SUBTRACT must be positive, got %d", c.MaxCoffeeSubtract)
	}
	if c.CountDisplaySize <= 0 {
		return fmt.Errorf("COUNT_DISPLAY_SIZE must be positive, got %d", c.CountDisplaySize)
	}
	return nil
}

// DSN builds the Postgres connection string from the database settings
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}

// BackupConfigured reports whether the object-store sink is usable
func (c *Config) BackupConfigured() bool {
	return c.BackupBucket != ""
}
