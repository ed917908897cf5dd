package config

import (
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestApplyDefaults(t *testing.T) {
	c := qt.New(t)
	var cfg AppConfig
	applyDefaults(&cfg)
	c.Assert(cfg.AppPort, qt.Equals, "5000")
	c.Assert(cfg.TokenTTLHours, qt.Equals, 72)
	c.Assert(cfg.RateLimitPerMinute, qt.Equals, 60)
	c.Assert(cfg.AllowedOrigins, qt.DeepEquals, []string{"*"})
	c.Assert(cfg.DBDriver, qt.Equals, "mysql")
	c.Assert(cfg.DBPort, qt.Equals, "3306")
	c.Assert(cfg.UploadDir, qt.Equals, filepath.Join("static", "uploads"))
	c.Assert(cfg.ESIndex, qt.Equals, "blogs")
	c.Assert(cfg.JWTSecret, qt.Equals, "")

	pg := AppConfig{DBDriver: "postgres"}
	applyDefaults(&pg)
	c.Assert(pg.DBPort, qt.Equals, "5432")
}

func TestLoadJSONConfig(t *testing.T) {
	c := qt.New(t)
	path := filepath.Join(c.TempDir(), "config.json")
	err := os.WriteFile(path, []byte(`{
		"app": {"AppPort": "8080", "JWTSecret": "from-file", "AdminUsernames": ["root"]},
		"database": {"Driver": "postgres", "DBName": "blog"},
		"redis": {"RedisHost": "cache", "ListCacheSeconds": 10},
		"s3": {"Bucket": "media", "Region": "eu-west-1"},
		"rabbitmq": {"URL": "amqp://guest:guest@mq:5672/"},
		"telegram": {"BotToken": "t", "AdminChatID": "-100"}
	}`), 0o600)
	c.Assert(err, qt.IsNil)

	var cfg AppConfig
	c.Assert(loadJSONConfig(path, &cfg), qt.IsNil)
	c.Assert(cfg.AppPort, qt.Equals, "8080")
	c.Assert(cfg.JWTSecret, qt.Equals, "from-file")
	c.Assert(cfg.AdminUsernames, qt.DeepEquals, []string{"root"})
	c.Assert(cfg.DBDriver, qt.Equals, "postgres")
	c.Assert(cfg.RedisHost, qt.Equals, "cache")
	c.Assert(cfg.ListCacheSeconds, qt.Equals, 10)
	c.Assert(cfg.S3Bucket, qt.Equals, "media")
	c.Assert(cfg.AWSRegion, qt.Equals, "eu-west-1")
	c.Assert(cfg.RabbitMQURL, qt.Equals, "amqp://guest:guest@mq:5672/")
	c.Assert(cfg.TelegramAdminChatID, qt.Equals, "-100")

	var missing AppConfig
	c.Assert(loadJSONConfig(filepath.Join(c.TempDir(), "nope.json"), &missing), qt.IsNil)

	bad := filepath.Join(c.TempDir(), "bad.json")
	c.Assert(os.WriteFile(bad, []byte("{"), 0o600), qt.IsNil)
	c.Assert(loadJSONConfig(bad, &missing), qt.IsNotNil)
}

func TestApplyEnvOverrides(t *testing.T) {
	c := qt.New(t)
	c.Setenv("APP_PORT", "9000")
	c.Setenv("JWT_SECRET", "from-env")
	c.Setenv("RATE_LIMIT_PER_MINUTE", "5")
	c.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	c.Setenv("ADMIN_USERNAMES", "root,Editor")
	c.Setenv("SMTP_TLS", "1")
	c.Setenv("DB_DRIVER", "mongo")

	cfg := AppConfig{AppPort: "5000", JWTSecret: "from-file", AllowedOrigins: []string{"*"}}
	applyEnvOverrides(&cfg)
	c.Assert(cfg.AppPort, qt.Equals, "9000")
	c.Assert(cfg.JWTSecret, qt.Equals, "from-env")
	c.Assert(cfg.RateLimitPerMinute, qt.Equals, 5)
	c.Assert(cfg.AllowedOrigins, qt.DeepEquals, []string{"https://a.example", "https://b.example"})
	c.Assert(cfg.SMTPTLS, qt.IsTrue)
	c.Assert(cfg.DBDriver, qt.Equals, "mongo")
	c.Assert(cfg.IsAdminUsername("editor"), qt.IsTrue)
	c.Assert(cfg.IsAdminUsername("someone"), qt.IsFalse)
}

func TestDSN(t *testing.T) {
	c := qt.New(t)
	mysqlCfg := AppConfig{DBDriver: "mysql", DBUser: "root", DBPassword: "pw", DBHost: "db", DBPort: "3306", DBName: "blog"}
	c.Assert(mysqlCfg.DSN(), qt.Equals, "root:pw@tcp(db:3306)/blog?charset=utf8mb4&parseTime=True&loc=Local")

	pgCfg := AppConfig{DBDriver: "postgres", DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: "5432", DBName: "blog"}
	c.Assert(pgCfg.DSN(), qt.Equals, "host=h port=5432 user=u password=p dbname=blog sslmode=disable TimeZone=UTC")

	uri := AppConfig{DBDriver: "postgres", DatabaseURI: "postgres://x"}
	c.Assert(uri.DSN(), qt.Equals, "postgres://x")

	_, err := InitDatabase(AppConfig{DBDriver: "sqlite"})
	c.Assert(err, qt.ErrorMatches, `unsupported sql driver "sqlite"`)
}
