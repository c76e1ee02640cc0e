package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

type Config struct {
	StoreDriver   string // sqlite or mongo
	SQLitePath    string
	MongoURI      string
	MongoDatabase string
	StoreTimeout  time.Duration // per-operation deadline for CLI store calls

	WASessionPath   string // whatsmeow device store, kept apart from the record store
	GroupID         string
	BotPhone        string
	ReplyDelayMinMs int  // Minimum delay before reply (milliseconds)
	ReplyDelayMaxMs int  // Maximum delay before reply (milliseconds), 0 = use min as fixed
	ShowTyping      bool // Show typing indicator during delay

	DispatchSchedule string // cron spec for reminder delivery
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults/environment variables")
	}
	return FromEnv()
}

// FromEnv reads the configuration from the process environment only.
func FromEnv() Config {
	return Config{
		StoreDriver:      strings.ToLower(getenv("STORE_DRIVER", DriverSQLite)),
		SQLitePath:       getenv("SQLITE_PATH", "./data/flowcare.db"),
		MongoURI:         getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:    getenv("MONGO_DATABASE", "flowcare"),
		StoreTimeout:     time.Duration(getenvInt("STORE_TIMEOUT_MS", 10000)) * time.Millisecond,
		WASessionPath:    getenv("WA_SESSION_PATH", "./data/whatsapp.db"),
		GroupID:          getenv("GROUP_ID", ""),
		BotPhone:         getenv("BOT_PHONE", ""),
		ReplyDelayMinMs:  getenvInt("REPLY_DELAY_MIN_MS", 0),
		ReplyDelayMaxMs:  getenvInt("REPLY_DELAY_MAX_MS", 0),
		ShowTyping:       getenvBool("SHOW_TYPING", false),
		DispatchSchedule: getenv("DISPATCH_SCHEDULE", "*/15 * * * *"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
