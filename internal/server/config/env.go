package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable the server reads.
const EnvPrefix = "NEURORECALL_"

// dotEnvFile is read, if present, before the process environment is consulted.
var dotEnvFile = ".env"

type envVar struct {
	name string
	set  func(c *Config, v string) error
}

func str(dst func(c *Config) *string) func(c *Config, v string) error {
	return func(c *Config, v string) error {
		*dst(c) = v
		return nil
	}
}

func num(dst func(c *Config) *int) func(c *Config, v string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst(c) = n
		return nil
	}
}

func dur(dst func(c *Config) *time.Duration) func(c *Config, v string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*dst(c) = d
		return nil
	}
}

// list reads a comma-separated list, dropping blank items.
func list(dst func(c *Config) *[]string) func(c *Config, v string) error {
	return func(c *Config, v string) error {
		var items []string
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		*dst(c) = items
		return nil
	}
}

var envVars = []envVar{
	{"HTTP_ADDR", str(func(c *Config) *string { return &c.EndpointAddrHTTP })},
	{"GRPC_ADDR", str(func(c *Config) *string { return &c.EndpointAddrGRPC })},
	{"DATABASE_DSN", str(func(c *Config) *string { return &c.DatabaseDSN })},
	{"SECRET_KEY", str(func(c *Config) *string { return &c.SecretKey })},
	{"S3_ROOT_USER", str(func(c *Config) *string { return &c.S3RootUser })},
	{"S3_ROOT_PASSWORD", str(func(c *Config) *string { return &c.S3RootPassword })},
	{"S3_BUCKET", str(func(c *Config) *string { return &c.S3Bucket })},
	{"S3_REGION", str(func(c *Config) *string { return &c.S3Region })},
	{"S3_BASE_ENDPOINT", str(func(c *Config) *string { return &c.S3BaseEndpoint })},
	{"SPEECH_ENDPOINT", str(func(c *Config) *string { return &c.SpeechEndpoint })},
	{"SPEECH_API_KEY", str(func(c *Config) *string { return &c.SpeechAPIKey })},
	{"SPEECH_LANGUAGE", str(func(c *Config) *string { return &c.SpeechLanguage })},
	{"SMTP_HOST", str(func(c *Config) *string { return &c.SMTPHost })},
	{"SMTP_PORT", num(func(c *Config) *int { return &c.SMTPPort })},
	{"SMTP_USER", str(func(c *Config) *string { return &c.SMTPUser })},
	{"SMTP_PASSWORD", str(func(c *Config) *string { return &c.SMTPPassword })},
	{"MAIL_FROM", str(func(c *Config) *string { return &c.MailFrom })},
	{"FRONTEND_URL", str(func(c *Config) *string { return &c.FrontendURL })},
	{"CORS_ORIGINS", list(func(c *Config) *[]string { return &c.CORSOrigins })},
	{"TRUSTED_PROXIES", list(func(c *Config) *[]string { return &c.TrustedProxies })},
	{"MAX_LOGIN_ATTEMPTS", num(func(c *Config) *int { return &c.MaxLoginAttempts })},
	{"LOGIN_LOCKOUT_DURATION", dur(func(c *Config) *time.Duration { return &c.LoginLockoutDuration })},
	{"RESET_TOKEN_VALIDITY", dur(func(c *Config) *time.Duration { return &c.ResetTokenValidityDuration })},
	{"MAX_RESET_ATTEMPTS", num(func(c *Config) *int { return &c.MaxResetAttempts })},
	{"RESET_RATE_LIMIT_WINDOW", dur(func(c *Config) *time.Duration { return &c.ResetRateLimitWindow })},
	{"RATE_LIMIT_BACKEND", str(func(c *Config) *string { return &c.RateLimitBackend })},
	{"LOG_FORMAT", str(func(c *Config) *string { return &c.LogFormat })},
	{"CLEANUP_INTERVAL", dur(func(c *Config) *time.Duration { return &c.CleanupInterval })},
}

// parseEnv overlays NEURORECALL_* values from the .env file and the process
// environment onto config; the process environment wins. A malformed value
// panics, like a malformed JSON file.
func parseEnv(config *Config) {
	values := map[string]string{}

	file, err := godotenv.Read(dotEnvFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}
	for k, v := range file {
		values[k] = v
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(k, EnvPrefix) {
			values[k] = v
		}
	}

	for _, ev := range envVars {
		v, ok := values[EnvPrefix+ev.name]
		if !ok {
			continue
		}
		if err := ev.set(config, v); err != nil {
			panic(err)
		}
	}
}
