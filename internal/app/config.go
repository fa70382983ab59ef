package app

import (
	"time"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/envutil"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/logger"
)

// Config is the process-wide, env-derived configuration object.
type Config struct {
	MaxConcurrentRequests int
	RequestTimeout        time.Duration
	AIProvider            string
	ContentRoot           string
	TempRoot              string
	ListenAddr            string
}

func LoadConfig(log *logger.Logger) Config {
	timeoutSeconds := envutil.GetEnvAsInt("REQUEST_TIMEOUT_SECONDS", 60, log)
	return Config{
		MaxConcurrentRequests: envutil.GetEnvAsInt("MAX_CONCURRENT_REQUESTS", 4, log),
		RequestTimeout:        time.Duration(timeoutSeconds) * time.Second,
		AIProvider:            envutil.GetEnv("AI_PROVIDER", "openai", log),
		ContentRoot:           envutil.GetEnv("CONTENT_ROOT", "./storage/clips", log),
		TempRoot:              envutil.GetEnv("TEMP_ROOT", "/tmp/fittness-builder", log),
		ListenAddr:            envutil.GetEnv("LISTEN_ADDR", ":8080", log),
	}
}
