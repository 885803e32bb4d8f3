package config

import (
	"os"
	"strconv"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
}

type Config struct {
	PostgresURI          string
	RedisURI             string
	SecretKey            string
	TickDriver           string
	TickInterval         time.Duration
	ScheduleConcurrency  int
	PublishTimeout       time.Duration
	ClaimTTL             time.Duration
	TokenRefreshInterval time.Duration

	InstagramGraphURL     string
	InstagramPollInterval time.Duration
	InstagramPollAttempts int
	FacebookGraphURL      string

	TwitterAPIURL    string
	TwitterUploadURL string
	TwitterAPIKey    string
	TwitterAPISecret string

	GoogleClientID     string
	GoogleClientSecret string
	YoutubeEndpoint    string

	PlatformRatePerSec int
	MediaTempDir       string
	MaxMediaBytes      int64
	R2                 R2
	OpsAddr            string
	OpsToken           string
}

// DefaultMaxMediaBytes caps a downloaded media file when MEDIA_MAX_BYTES is unset.
const DefaultMaxMediaBytes int64 = 512 << 20

const (
	TickDriverCron  = "cron"
	TickDriverAsynq = "asynq"
)

func LoadConfig() *Config {
	return &Config{
		PostgresURI:          getEnv("POSTGRES_URI", ""),
		RedisURI:             getEnv("REDIS_URI", "localhost:6379"),
		SecretKey:            getEnv("SECRET_KEY", ""),
		TickDriver:           getEnv("TICK_DRIVER", TickDriverCron),
		TickInterval:         getDuration("TICK_INTERVAL", 10*time.Second),
		ScheduleConcurrency:  getInt("SCHEDULE_CONCURRENCY", 10),
		PublishTimeout:       getDuration("PUBLISH_TIMEOUT", 5*time.Minute),
		ClaimTTL:             getDuration("CLAIM_TTL", 15*time.Minute),
		TokenRefreshInterval: getDuration("TOKEN_REFRESH_INTERVAL", 10*time.Minute),

		InstagramGraphURL:     getEnv("INSTAGRAM_GRAPH_URL", "https://graph.facebook.com/v23.0"),
		InstagramPollInterval: getDuration("INSTAGRAM_POLL_INTERVAL", 3*time.Second),
		InstagramPollAttempts: getInt("INSTAGRAM_POLL_ATTEMPTS", 20),
		FacebookGraphURL:      getEnv("FACEBOOK_GRAPH_URL", "https://graph.facebook.com/v23.0"),

		TwitterAPIURL:    getEnv("TWITTER_API_URL", "https://api.twitter.com"),
		TwitterUploadURL: getEnv("TWITTER_UPLOAD_URL", "https://upload.twitter.com"),
		TwitterAPIKey:    getEnv("TWITTER_API_KEY", ""),
		TwitterAPISecret: getEnv("TWITTER_API_SECRET", ""),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		YoutubeEndpoint:    getEnv("YOUTUBE_ENDPOINT", ""),

		PlatformRatePerSec: getInt("PLATFORM_RATE_PER_SEC", 5),
		MediaTempDir:       getEnv("MEDIA_TEMP_DIR", os.TempDir()),
		MaxMediaBytes:      getInt64("MEDIA_MAX_BYTES", DefaultMaxMediaBytes),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
		},
		OpsAddr:  getEnv("OPS_ADDR", ""),
		OpsToken: getEnv("OPS_TOKEN", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

func getInt64(key string, defaultValue int64) int64 {
	n, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
