package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr      string
	MongoURI      string
	MongoDatabase string
	LogLevel      string
	LogFormat     string

	CatalogBaseURL  string
	ResolverURL     string
	JournalDisabled bool

	SourceResolveTimeout time.Duration
	OpenProbeTimeout     time.Duration
	LimitReleaseTimeout  time.Duration
	ReuseGapBytes        int64
	FinalStretchBytes    int64

	CORSAllowedOrigins []string
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DB", "trackstream"),
		LogLevel:      strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:     strings.ToLower(getEnv("LOG_FORMAT", "text")),

		CatalogBaseURL:  getEnv("CATALOG_BASE_URL", "http://localhost:9080"),
		ResolverURL:     getEnv("RESOLVER_URL", "http://localhost:9081/v1/resolve"),
		JournalDisabled: getEnvBool("JOURNAL_DISABLED", false),

		SourceResolveTimeout: getEnvDuration("SOURCE_RESOLVE_TIMEOUT", 5*time.Second),
		OpenProbeTimeout:     getEnvDuration("OPEN_PROBE_TIMEOUT", 5*time.Second),
		LimitReleaseTimeout:  getEnvDuration("LIMIT_RELEASE_TIMEOUT", 10*time.Second),
		ReuseGapBytes:        getEnvInt64("REUSE_GAP_BYTES", 1<<20),
		FinalStretchBytes:    getEnvInt64("FINAL_STRETCH_BYTES", 128<<10),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "")),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	if parsed < 0 {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return fallback
	}
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if item := strings.TrimSpace(part); item != "" {
			out = append(out, item)
		}
	}
	return out
}
