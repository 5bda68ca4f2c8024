package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config carries everything the auth service needs to start. Values
// come from an optional config file plus FOLIO_-prefixed environment
// variables, environment winning.
type Config struct {
	Issuer string // issuer claim for minted tokens

	JWTSecret     string // HMAC signing secret, at least 32 bytes
	JWTSecretFile string // alternative: read the secret from a file
	JWTAlgorithm  string // HS256, HS384, or HS512

	DatabaseFile string // path to the SQLite database file
	PepperFile   string // path to the password pepper file

	CookieDomain string // empty means host-only cookies
	CookiePath   string
	CookieSecure bool // false only for local development over plain HTTP

	MFAIssuer string // issuer shown in authenticator apps

	// BreakGlassUsers lists usernames exempt from lockout and MFA
	// gates. Keep empty unless an emergency access path is
	// deliberately provisioned.
	BreakGlassUsers []string

	LockoutThreshold int
	LockoutDuration  time.Duration

	Env       string // dev, staging, prod
	LogLevel  string // debug, info, warn, error
	LogFormat string // json, text

	Port                 int
	ShutdownGracePeriod  time.Duration
	HousekeepingInterval time.Duration
}

// LoadConfig reads folio.yaml from the working directory or /etc/folio
// when present, then overlays FOLIO_* environment variables.
func LoadConfig() (Config, error) {
	v := viper.New()

	v.SetDefault("issuer", "folio-auth")
	v.SetDefault("jwt.algorithm", "HS256")
	v.SetDefault("database.file", "folio.db")
	v.SetDefault("pepper.file", "pepper")
	v.SetDefault("cookie.path", "/")
	v.SetDefault("cookie.secure", true)
	v.SetDefault("mfa.issuer", "Folio CMS")
	v.SetDefault("lockout.threshold", 5)
	v.SetDefault("lockout.duration", 15*time.Minute)
	v.SetDefault("env", "dev")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("port", 8080)
	v.SetDefault("shutdown.grace_period", 10*time.Second)
	v.SetDefault("housekeeping.interval", time.Hour)

	v.SetConfigName("folio")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/folio")

	v.SetEnvPrefix("FOLIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		Issuer:               v.GetString("issuer"),
		JWTSecret:            v.GetString("jwt.secret"),
		JWTSecretFile:        v.GetString("jwt.secret_file"),
		JWTAlgorithm:         v.GetString("jwt.algorithm"),
		DatabaseFile:         v.GetString("database.file"),
		PepperFile:           v.GetString("pepper.file"),
		CookieDomain:         v.GetString("cookie.domain"),
		CookiePath:           v.GetString("cookie.path"),
		CookieSecure:         v.GetBool("cookie.secure"),
		MFAIssuer:            v.GetString("mfa.issuer"),
		BreakGlassUsers:      splitList(v.GetString("break_glass.users")),
		LockoutThreshold:     v.GetInt("lockout.threshold"),
		LockoutDuration:      v.GetDuration("lockout.duration"),
		Env:                  v.GetString("env"),
		LogLevel:             v.GetString("log.level"),
		LogFormat:            v.GetString("log.format"),
		Port:                 v.GetInt("port"),
		ShutdownGracePeriod:  v.GetDuration("shutdown.grace_period"),
		HousekeepingInterval: v.GetDuration("housekeeping.interval"),
	}

	if cfg.JWTSecret == "" && cfg.JWTSecretFile != "" {
		raw, err := os.ReadFile(cfg.JWTSecretFile)
		if err != nil {
			return Config{}, fmt.Errorf("read jwt secret file: %w", err)
		}
		cfg.JWTSecret = strings.TrimSpace(string(raw))
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("jwt secret is required (FOLIO_JWT_SECRET or jwt.secret_file)")
	}

	return cfg, nil
}

// splitList parses a comma-separated value so the list works from a
// single environment variable as well as a config file.
func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
