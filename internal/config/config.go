package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the gradebook service.
type Config struct {
	AppName              string
	AppEnv               string
	AppPort              string
	DatabaseURL          string
	AutoMigrate          bool
	RedisURL             string
	NATSURL              string
	GradeEventSubject    string
	JWTSecret            string
	CourseGradeCacheTTL  time.Duration
	GradingPolicy        string
	SubmissionRateLimit  int
	SubmissionRateWindow time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GRADEBOOK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "GEMA Gradebook")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("database.auto_migrate", false)
	v.SetDefault("nats.subject", "gradebook.submission.graded")
	v.SetDefault("course_grade.cache_ttl", "5m")
	v.SetDefault("grading.policy", "redistribute")
	v.SetDefault("submission.rate_limit", 30)
	v.SetDefault("submission.rate_window", "1m")

	ttl, err := parseDuration(v.GetString("course_grade.cache_ttl"), 5*time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid course grade cache ttl: %w", err)
	}

	window, err := parseDuration(v.GetString("submission.rate_window"), time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid submission rate window: %w", err)
	}

	cfg := Config{
		AppName:              v.GetString("app.name"),
		AppEnv:               v.GetString("app.env"),
		AppPort:              v.GetString("app.port"),
		DatabaseURL:          v.GetString("database.url"),
		AutoMigrate:          v.GetBool("database.auto_migrate"),
		RedisURL:             v.GetString("redis.url"),
		NATSURL:              v.GetString("nats.url"),
		GradeEventSubject:    v.GetString("nats.subject"),
		JWTSecret:            v.GetString("jwt.secret"),
		CourseGradeCacheTTL:  ttl,
		GradingPolicy:        strings.ToLower(strings.TrimSpace(v.GetString("grading.policy"))),
		SubmissionRateLimit:  v.GetInt("submission.rate_limit"),
		SubmissionRateWindow: window,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	switch cfg.GradingPolicy {
	case "redistribute", "legacy":
	default:
		return Config{}, fmt.Errorf("unknown grading policy %q", cfg.GradingPolicy)
	}

	if cfg.SubmissionRateLimit <= 0 {
		cfg.SubmissionRateLimit = 30
	}

	return cfg, nil
}

func parseDuration(raw string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	return time.ParseDuration(raw)
}
