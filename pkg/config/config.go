package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                    string
	Env                     string
	FirebaseCredentialsPath string
	PostgresConnStr         string
	MongoURI                string
	MongoDatabase           string
	MongoTransactions       bool
	RedisURL                string
	UnreadCacheTTL          time.Duration
	AuthMode                string // "jwt" or "firebase"
	JWTSecret               string
	JWTTTL                  time.Duration
	BodyLimit               string

	NotifyOnCommentReply  bool
	NotifyOnCommentLike   bool
	CascadeCommentReplies bool
	CascadePostComments   bool
}

// Load reads the process environment, after merging an optional .env file.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		PostgresConnStr:         getEnv("POSTGRES_CONN_STR", ""),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDatabase:           getEnv("MONGO_DATABASE", "chirpline"),
		MongoTransactions:       getEnvBool("MONGO_TRANSACTIONS", true),
		RedisURL:                getEnv("REDIS_URL", ""),
		UnreadCacheTTL:          getEnvDuration("UNREAD_CACHE_TTL", time.Minute),
		AuthMode:                getEnv("AUTH_MODE", "jwt"),
		JWTSecret:               getEnv("JWT_SECRET", ""),
		JWTTTL:                  getEnvDuration("JWT_TTL", 24*time.Hour),
		BodyLimit:               getEnv("BODY_LIMIT", "2M"),

		NotifyOnCommentReply:  getEnvBool("NOTIFY_ON_COMMENT_REPLY", false),
		NotifyOnCommentLike:   getEnvBool("NOTIFY_ON_COMMENT_LIKE", false),
		CascadeCommentReplies: getEnvBool("CASCADE_COMMENT_REPLIES", false),
		CascadePostComments:   getEnvBool("CASCADE_POST_COMMENTS", false),
	}
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}
