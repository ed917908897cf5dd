package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	TokenTTLHours      int
	RateLimitPerMinute int
	AllowedOrigins     []string
	OAuthRedirectBase  string
	// Storage backend: mysql, postgres, mongo or memory
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	MongoURI    string
	MongoDB     string
	// OAuth providers
	GitHubClientID     string
	GitHubClientSecret string
	GoogleClientID     string
	GoogleClientSecret string
	// Gin framework configuration
	GinMode string
	GinPath string
	// SMTP for moderation notifications
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
	SMTPTLS      bool
	// Redis is optional; an empty host disables it
	RedisHost            string
	RedisPort            int
	RedisDB              int
	RedisPassword        string
	ListCacheSeconds     int
	TrendingCacheSeconds int
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Featured image uploads
	S3Bucket        string
	AWSRegion       string
	S3Endpoint      string
	S3PublicBaseURL string
	UploadDir       string
	UploadMaxMB     int
	// Moderation events
	RabbitMQURL string
	// Full-text search
	ESAddr  string
	ESIndex string
	// Telegram notifications for admins
	TelegramBotToken    string
	TelegramAdminChatID string
	// Admins
	AdminUsernames []string
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// Precedence: .env -> config/config.json -> defaults -> environment variable overrides.
	// .env only seeds variables that are not already exported.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warning: failed to read .env: %v", err)
	}

	if err := loadJSONConfig(filepath.Join("config", "config.json"), &cfg); err != nil {
		log.Printf("warning: ignoring invalid config/config.json: %v", err)
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// Set replaces the cached configuration. Used by tools and tests that build config in code.
func Set(c AppConfig) {
	cfg = c
	loaded = true
}

// fileConfig mirrors the grouped layout of config/config.json.
type fileConfig struct {
	App struct {
		AppPort            string   `json:"AppPort"`
		JWTSecret          string   `json:"JWTSecret"`
		TokenTTLHours      int      `json:"TokenTTLHours"`
		RateLimitPerMinute int      `json:"RateLimitPerMinute"`
		AllowedOrigins     []string `json:"AllowedOrigins"`
		OAuthRedirectBase  string   `json:"OAuthRedirectBase"`
		AdminUsernames     []string `json:"AdminUsernames"`
	} `json:"app"`
	Database struct {
		Driver      string `json:"Driver"`
		DatabaseURI string `json:"DatabaseURI"`
		DBHost      string `json:"DBHost"`
		DBPort      string `json:"DBPort"`
		DBUser      string `json:"DBUser"`
		DBPassword  string `json:"DBPassword"`
		DBName      string `json:"DBName"`
		MongoURI    string `json:"MongoURI"`
		MongoDB     string `json:"MongoDB"`
	} `json:"database"`
	Redis struct {
		RedisHost            string `json:"RedisHost"`
		RedisPort            int    `json:"RedisPort"`
		RedisDB              int    `json:"RedisDB"`
		RedisPassword        string `json:"RedisPassword"`
		ListCacheSeconds     int    `json:"ListCacheSeconds"`
		TrendingCacheSeconds int    `json:"TrendingCacheSeconds"`
	} `json:"redis"`
	OAuth struct {
		GitHubClientID     string `json:"GitHubClientID"`
		GitHubClientSecret string `json:"GitHubClientSecret"`
		GoogleClientID     string `json:"GoogleClientID"`
		GoogleClientSecret string `json:"GoogleClientSecret"`
	} `json:"oauth"`
	SMTP struct {
		SMTPHost     string `json:"SMTPHost"`
		SMTPPort     int    `json:"SMTPPort"`
		SMTPUsername string `json:"SMTPUsername"`
		SMTPPassword string `json:"SMTPPassword"`
		SMTPFrom     string `json:"SMTPFrom"`
		SMTPFromName string `json:"SMTPFromName"`
		SMTPTLS      bool   `json:"SMTPTLS"`
	} `json:"smtp"`
	Log struct {
		Level      string `json:"Level"`
		Path       string `json:"Path"`
		GinMode    string `json:"GinMode"`
		GinPath    string `json:"GinPath"`
		MaxSizeMB  int    `json:"MaxSizeMB"`
		MaxBackups int    `json:"MaxBackups"`
		MaxAgeDays int    `json:"MaxAgeDays"`
		Compress   bool   `json:"Compress"`
	} `json:"log"`
	S3 struct {
		Bucket        string `json:"Bucket"`
		Region        string `json:"Region"`
		Endpoint      string `json:"Endpoint"`
		PublicBaseURL string `json:"PublicBaseURL"`
		UploadDir     string `json:"UploadDir"`
		UploadMaxMB   int    `json:"UploadMaxMB"`
	} `json:"s3"`
	RabbitMQ struct {
		URL string `json:"URL"`
	} `json:"rabbitmq"`
	Search struct {
		Addr  string `json:"Addr"`
		Index string `json:"Index"`
	} `json:"search"`
	Telegram struct {
		BotToken    string `json:"BotToken"`
		AdminChatID string `json:"AdminChatID"`
	} `json:"telegram"`
}

// loadJSONConfig reads the grouped JSON file into out if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	var fc fileConfig
	if err := json.Unmarshal(raw, &fc); err != nil {
		return err
	}

	out.AppPort = fc.App.AppPort
	out.JWTSecret = fc.App.JWTSecret
	out.TokenTTLHours = fc.App.TokenTTLHours
	out.RateLimitPerMinute = fc.App.RateLimitPerMinute
	out.AllowedOrigins = fc.App.AllowedOrigins
	out.OAuthRedirectBase = fc.App.OAuthRedirectBase
	out.AdminUsernames = fc.App.AdminUsernames

	out.DBDriver = fc.Database.Driver
	out.DatabaseURI = fc.Database.DatabaseURI
	out.DBHost = fc.Database.DBHost
	out.DBPort = fc.Database.DBPort
	out.DBUser = fc.Database.DBUser
	out.DBPassword = fc.Database.DBPassword
	out.DBName = fc.Database.DBName
	out.MongoURI = fc.Database.MongoURI
	out.MongoDB = fc.Database.MongoDB

	out.RedisHost = fc.Redis.RedisHost
	out.RedisPort = fc.Redis.RedisPort
	out.RedisDB = fc.Redis.RedisDB
	out.RedisPassword = fc.Redis.RedisPassword
	out.ListCacheSeconds = fc.Redis.ListCacheSeconds
	out.TrendingCacheSeconds = fc.Redis.TrendingCacheSeconds

	out.GitHubClientID = fc.OAuth.GitHubClientID
	out.GitHubClientSecret = fc.OAuth.GitHubClientSecret
	out.GoogleClientID = fc.OAuth.GoogleClientID
	out.GoogleClientSecret = fc.OAuth.GoogleClientSecret

	out.SMTPHost = fc.SMTP.SMTPHost
	out.SMTPPort = fc.SMTP.SMTPPort
	out.SMTPUsername = fc.SMTP.SMTPUsername
	out.SMTPPassword = fc.SMTP.SMTPPassword
	out.SMTPFrom = fc.SMTP.SMTPFrom
	out.SMTPFromName = fc.SMTP.SMTPFromName
	out.SMTPTLS = fc.SMTP.SMTPTLS

	out.LogLevel = fc.Log.Level
	out.LogPath = fc.Log.Path
	out.GinMode = fc.Log.GinMode
	out.GinPath = fc.Log.GinPath
	out.LogMaxSizeMB = fc.Log.MaxSizeMB
	out.LogMaxBackups = fc.Log.MaxBackups
	out.LogMaxAgeDays = fc.Log.MaxAgeDays
	out.LogCompress = fc.Log.Compress

	out.S3Bucket = fc.S3.Bucket
	out.AWSRegion = fc.S3.Region
	out.S3Endpoint = fc.S3.Endpoint
	out.S3PublicBaseURL = fc.S3.PublicBaseURL
	out.UploadDir = fc.S3.UploadDir
	out.UploadMaxMB = fc.S3.UploadMaxMB

	out.RabbitMQURL = fc.RabbitMQ.URL
	out.ESAddr = fc.Search.Addr
	out.ESIndex = fc.Search.Index
	out.TelegramBotToken = fc.Telegram.BotToken
	out.TelegramAdminChatID = fc.Telegram.AdminChatID
	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "5000"
	}
	if c.TokenTTLHours == 0 {
		c.TokenTTLHours = 72
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.OAuthRedirectBase == "" {
		c.OAuthRedirectBase = "http://localhost:5000"
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		switch c.DBDriver {
		case "postgres":
			c.DBPort = "5432"
		default:
			c.DBPort = "3306"
		}
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "devnovate_blog"
	}
	if c.MongoURI == "" {
		c.MongoURI = "mongodb://localhost:27017"
	}
	if c.MongoDB == "" {
		c.MongoDB = "devnovate_blog"
	}
	if c.SMTPPort == 0 {
		c.SMTPPort = 587
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.ListCacheSeconds == 0 {
		c.ListCacheSeconds = 30
	}
	if c.TrendingCacheSeconds == 0 {
		c.TrendingCacheSeconds = 60
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
	if c.AWSRegion == "" {
		c.AWSRegion = "us-east-1"
	}
	if c.UploadDir == "" {
		c.UploadDir = filepath.Join("static", "uploads")
	}
	if c.UploadMaxMB == 0 {
		c.UploadMaxMB = 5
	}
	if c.ESIndex == "" {
		c.ESIndex = "blogs"
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	setString(&c.AppPort, "APP_PORT")
	setString(&c.JWTSecret, "JWT_SECRET")
	setInt(&c.TokenTTLHours, "TOKEN_TTL_HOURS")
	setString(&c.GinMode, "GIN_MODE")
	setString(&c.GinPath, "GIN_PATH")
	setInt(&c.RateLimitPerMinute, "RATE_LIMIT_PER_MINUTE")
	c.AllowedOrigins = readListEnv("CORS_ALLOWED_ORIGINS", c.AllowedOrigins)
	setString(&c.OAuthRedirectBase, "OAUTH_REDIRECT_BASE_URL")
	c.AdminUsernames = readListEnv("ADMIN_USERNAMES", c.AdminUsernames)

	setString(&c.DBDriver, "DB_DRIVER")
	setString(&c.DatabaseURI, "DATABASE_URI")
	setString(&c.DBHost, "DB_HOST")
	setString(&c.DBPort, "DB_PORT")
	setString(&c.DBUser, "DB_USER")
	setString(&c.DBPassword, "DB_PASSWORD")
	setString(&c.DBName, "DB_NAME")
	setString(&c.MongoURI, "MONGO_URI")
	setString(&c.MongoDB, "MONGO_DB")

	setString(&c.GitHubClientID, "GITHUB_CLIENT_ID")
	setString(&c.GitHubClientSecret, "GITHUB_CLIENT_SECRET")
	setString(&c.GoogleClientID, "GOOGLE_CLIENT_ID")
	setString(&c.GoogleClientSecret, "GOOGLE_CLIENT_SECRET")

	setString(&c.SMTPHost, "SMTP_HOST")
	setInt(&c.SMTPPort, "SMTP_PORT")
	setString(&c.SMTPUsername, "SMTP_USERNAME")
	setString(&c.SMTPPassword, "SMTP_PASSWORD")
	setString(&c.SMTPFrom, "SMTP_FROM")
	setString(&c.SMTPFromName, "SMTP_FROM_NAME")
	setBool(&c.SMTPTLS, "SMTP_TLS")

	setString(&c.RedisHost, "REDIS_HOST")
	setInt(&c.RedisPort, "REDIS_PORT")
	setInt(&c.RedisDB, "REDIS_DB")
	setString(&c.RedisPassword, "REDIS_PASSWORD")
	setInt(&c.ListCacheSeconds, "LIST_CACHE_SECONDS")
	setInt(&c.TrendingCacheSeconds, "TRENDING_CACHE_SECONDS")

	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogPath, "LOG_PATH")
	setInt(&c.LogMaxSizeMB, "LOG_MAX_SIZE_MB")
	setInt(&c.LogMaxBackups, "LOG_MAX_BACKUPS")
	setInt(&c.LogMaxAgeDays, "LOG_MAX_AGE_DAYS")
	setBool(&c.LogCompress, "LOG_COMPRESS")

	setString(&c.S3Bucket, "S3_BUCKET")
	setString(&c.AWSRegion, "AWS_REGION")
	setString(&c.S3Endpoint, "S3_ENDPOINT")
	setString(&c.S3PublicBaseURL, "S3_PUBLIC_BASE_URL")
	setString(&c.UploadDir, "UPLOAD_DIR")
	setInt(&c.UploadMaxMB, "UPLOAD_MAX_MB")

	setString(&c.RabbitMQURL, "RABBITMQ_URL")
	setString(&c.ESAddr, "ES_ADDR")
	setString(&c.ESIndex, "ES_INDEX")
	setString(&c.TelegramBotToken, "TELEGRAM_BOT_TOKEN")
	setString(&c.TelegramAdminChatID, "TELEGRAM_ADMIN_CHAT_ID")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func setString(dst *string, key string) {
	if v := getEnv(key, ""); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := getEnv(key, ""); v != "" {
		*dst = mustParseInt(v)
	}
}

func setBool(dst *bool, key string) {
	if v := getEnv(key, ""); v != "" {
		*dst = v == "true" || v == "1"
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func readListEnv(key string, defaults []string) []string {
	if raw := os.Getenv(key); raw != "" {
		return splitAndTrim(raw)
	}
	return defaults
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// IsAdminUsername reports whether username is listed in AdminUsernames.
func (c AppConfig) IsAdminUsername(username string) bool {
	for _, name := range c.AdminUsernames {
		if strings.EqualFold(name, username) {
			return true
		}
	}
	return false
}
