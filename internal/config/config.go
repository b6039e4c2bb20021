package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config collects everything the process reads from the environment. A
// `.env` file is honored when present.
type Config struct {
	// OpenAI-compatible gateway for the model collaborators.
	BaseURL     string
	APIKey      string
	TextModel   string
	VisionModel string

	DBPath     string
	UserID     string
	RecentDays int
	LogLevel   string
}

func Load() *Config {
	// Missing .env is fine; plain environment variables still apply.
	_ = godotenv.Load()

	return &Config{
		BaseURL:     getenv("NUTRIFLOW_BASE_URL", "https://dashscope.aliyuncs.com/compatible-mode/v1"),
		APIKey:      os.Getenv("DASHSCOPE_API_KEY"),
		TextModel:   getenv("NUTRIFLOW_TEXT_MODEL", "qwen-plus"),
		VisionModel: getenv("NUTRIFLOW_VISION_MODEL", "qwen-vl-plus"),
		DBPath:      getenv("NUTRIFLOW_DB_PATH", "data/meals.json"),
		UserID:      getenv("NUTRIFLOW_USER_ID", "user001"),
		RecentDays:  getenvInt("NUTRIFLOW_RECENT_DAYS", 7),
		LogLevel:    getenv("NUTRIFLOW_LOG_LEVEL", "info"),
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
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

// NewLogger builds the process logger. Structured JSON on stderr so tool
// responses on stdout stay clean.
func NewLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stderr)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}
