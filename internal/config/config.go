package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Session    SessionConfig    `mapstructure:"session"`
	Instructor InstructorConfig `mapstructure:"instructor"`
	CORS       CORSConfig       `mapstructure:"cors"`
	S3         S3Config         `mapstructure:"s3"`
	Export     ExportConfig     `mapstructure:"export"`
	Log        LogConfig        `mapstructure:"log"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Sentry     SentryConfig     `mapstructure:"sentry"`
}

type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
	// UseTransactions wraps diet plan activation in a multi-document
	// transaction. Requires a replica set.
	UseTransactions bool `mapstructure:"use_transactions"`
}

// SessionConfig defines how session tokens are signed and carried.
type SessionConfig struct {
	Secret       string        `mapstructure:"secret"`
	Expiration   time.Duration `mapstructure:"expiration"`
	CookieName   string        `mapstructure:"cookie_name"`
	SecureCookie bool          `mapstructure:"secure_cookie"`
}

// InstructorConfig holds the fixed shared instructor credentials.
type InstructorConfig struct {
	LoginID  string `mapstructure:"login_id"`
	Password string `mapstructure:"password"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
}

// Enabled reports whether enough is configured to talk to a bucket.
func (c S3Config) Enabled() bool {
	return c.BucketName != "" && c.Region != ""
}

type ExportConfig struct {
	URLExpiry time.Duration `mapstructure:"url_expiry"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console or json
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}

// DefaultSessionSecret is used when no secret is configured. Fine for local
// development only; main logs a warning when it is in effect.
const DefaultSessionSecret = "devsecret"

// legacyEnv maps config keys to unprefixed variable names older deployments set.
var legacyEnv = map[string]string{
	"server.address":      "PORT",
	"database.uri":        "MONGO_URI",
	"session.secret":      "SESSION_SECRET",
	"instructor.login_id": "INSTRUCTOR_LOGIN_ID",
	"instructor.password": "INSTRUCTOR_PASSWORD",
}

// LoadConfig reads configuration from a .env file, a config file and
// environment variables, in increasing order of precedence.
func LoadConfig(path string) (config Config, err error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// server.address -> SERVER_ADDRESS
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))
	for key, legacy := range legacyEnv {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err = v.BindEnv(key, envKey, legacy); err != nil {
			return
		}
	}

	v.SetDefault("server.address", ":5000")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("database.uri", "mongodb://127.0.0.1:27017")
	v.SetDefault("database.name", "bmi_calculator")
	v.SetDefault("database.use_transactions", false)
	v.SetDefault("session.secret", DefaultSessionSecret)
	v.SetDefault("session.expiration", "24h")
	v.SetDefault("session.cookie_name", "bmi_session")
	v.SetDefault("session.secure_cookie", false)
	v.SetDefault("instructor.login_id", "instructor123")
	v.SetDefault("instructor.password", "instructor@2024")
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("export.url_expiry", "15m")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("rate_limit.requests_per_second", 5)
	v.SetDefault("rate_limit.burst", 10)

	err = v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		err = nil
	} else if err != nil {
		return
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}

	config.Server.Address = normalizeAddress(config.Server.Address)
	return config, nil
}

// normalizeAddress lets PORT=5000 style values work as a listen address.
func normalizeAddress(addr string) string {
	if addr != "" && !strings.Contains(addr, ":") {
		return ":" + addr
	}
	return addr
}
