package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env  string
	Port int

	DBURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret         string
	JWTAccessTTLDays  int
	JWTRefreshTTLDays int

	// password reset links
	ResetTokenTTLHours int
	FrontendBaseURL    string

	// outbound email
	MailBackend      string // "log" | "smtp"
	DefaultFromEmail string
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string

	CORSAllowedOrigins []string

	// seed admin account
	AdminMobile   string
	AdminEmail    string
	AdminPassword string
	AdminName     string

	// brute-force protection on the auth endpoints
	AuthRateLimit     int
	AuthRateWindowSec int

	OTLPEndpoint    string
	OTLPSampleRatio float64
}

func Load() Config {
	return Config{
		Env:   getEnv("APP_ENV", "dev"),
		Port:  getEnvInt("PORT", 8080),
		DBURL: buildDBURL(),

		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		JWTSecret:         getEnv("JWT_SECRET", "dev-secret-change-me"),
		JWTAccessTTLDays:  getEnvInt("JWT_ACCESS_TTL_DAYS", 1),
		JWTRefreshTTLDays: getEnvInt("JWT_REFRESH_TTL_DAYS", 7),

		ResetTokenTTLHours: getEnvInt("RESET_TOKEN_TTL_HOURS", 72),
		FrontendBaseURL:    getEnv("FRONTEND_BASE_URL", "http://localhost:5173"),

		MailBackend:      getEnv("MAIL_BACKEND", "log"),
		DefaultFromEmail: getEnv("DEFAULT_FROM_EMAIL", "no-reply@example.com"),
		SMTPHost:         getEnv("SMTP_HOST", ""),
		SMTPPort:         getEnvInt("SMTP_PORT", 587),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),

		AdminMobile:   getEnv("ADMIN_MOBILE", ""),
		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		AdminName:     getEnv("ADMIN_NAME", "Admin"),

		AuthRateLimit:     getEnvInt("AUTH_RATE_LIMIT", 10),
		AuthRateWindowSec: getEnvInt("AUTH_RATE_WINDOW_SEC", 60),

		OTLPEndpoint:    getEnv("OTLP_ENDPOINT", ""),
		OTLPSampleRatio: getEnvFloat("OTLP_SAMPLE_RATIO", 1),
	}
}

func (c Config) AuthRateWindow() time.Duration {
	return time.Duration(c.AuthRateWindowSec) * time.Second
}

func (c Config) AccessTTL() time.Duration {
	return time.Duration(c.JWTAccessTTLDays) * 24 * time.Hour
}

func (c Config) RefreshTTL() time.Duration {
	return time.Duration(c.JWTRefreshTTLDays) * 24 * time.Hour
}

func (c Config) ResetTokenTTL() time.Duration {
	return time.Duration(c.ResetTokenTTLHours) * time.Hour
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "classhub")
	pass := getEnv("DB_PASSWORD", "classhub")
	name := getEnv("DB_NAME", "classhub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return f
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	raw := getEnv(key, fallback)

	parts := strings.Split(raw, ",")

	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)

		if p != "" {
			out = append(out, p)
		}
	}

	return out
}
