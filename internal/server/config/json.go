package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/neurorecall/internal/flagx"
	"github.com/dmitrijs2005/neurorecall/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "15m" and integer nanoseconds are accepted.
type JsonConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
	SpeechEndpoint               string         `json:"speech_endpoint"`
	SpeechAPIKey                 string         `json:"speech_api_key"`
	SpeechLanguage               string         `json:"speech_language"`
	SMTPHost                     string         `json:"smtp_host"`
	SMTPPort                     int            `json:"smtp_port"`
	SMTPUser                     string         `json:"smtp_user"`
	SMTPPassword                 string         `json:"smtp_password"`
	MailFrom                     string         `json:"mail_from"`
	FrontendURL                  string         `json:"frontend_url"`
	CORSOrigins                  []string       `json:"cors_origins"`
	TrustedProxies               []string       `json:"trusted_proxies"`
	MaxLoginAttempts             int            `json:"max_login_attempts"`
	LoginLockoutDuration         timex.Duration `json:"login_lockout_duration"`
	ResetTokenValidityDuration   timex.Duration `json:"reset_token_validity_duration"`
	MaxResetAttempts             int            `json:"max_reset_attempts"`
	ResetRateLimitWindow         timex.Duration `json:"reset_rate_limit_window"`
	RateLimitBackend             string         `json:"rate_limit_backend"`
	LogFormat                    string         `json:"log_format"`
	CleanupInterval              timex.Duration `json:"cleanup_interval"`
}

func toJson(c *Config) *JsonConfig {
	return &JsonConfig{
		EndpointAddrHTTP:             c.EndpointAddrHTTP,
		EndpointAddrGRPC:             c.EndpointAddrGRPC,
		DatabaseDSN:                  c.DatabaseDSN,
		SecretKey:                    c.SecretKey,
		AccessTokenValidityDuration:  timex.Duration{Duration: c.AccessTokenValidityDuration},
		RefreshTokenValidityDuration: timex.Duration{Duration: c.RefreshTokenValidityDuration},
		S3RootUser:                   c.S3RootUser,
		S3RootPassword:               c.S3RootPassword,
		S3Bucket:                     c.S3Bucket,
		S3Region:                     c.S3Region,
		S3BaseEndpoint:               c.S3BaseEndpoint,
		SpeechEndpoint:               c.SpeechEndpoint,
		SpeechAPIKey:                 c.SpeechAPIKey,
		SpeechLanguage:               c.SpeechLanguage,
		SMTPHost:                     c.SMTPHost,
		SMTPPort:                     c.SMTPPort,
		SMTPUser:                     c.SMTPUser,
		SMTPPassword:                 c.SMTPPassword,
		MailFrom:                     c.MailFrom,
		FrontendURL:                  c.FrontendURL,
		CORSOrigins:                  c.CORSOrigins,
		TrustedProxies:               c.TrustedProxies,
		MaxLoginAttempts:             c.MaxLoginAttempts,
		LoginLockoutDuration:         timex.Duration{Duration: c.LoginLockoutDuration},
		ResetTokenValidityDuration:   timex.Duration{Duration: c.ResetTokenValidityDuration},
		MaxResetAttempts:             c.MaxResetAttempts,
		ResetRateLimitWindow:         timex.Duration{Duration: c.ResetRateLimitWindow},
		RateLimitBackend:             c.RateLimitBackend,
		LogFormat:                    c.LogFormat,
		CleanupInterval:              timex.Duration{Duration: c.CleanupInterval},
	}
}

func (j *JsonConfig) apply(c *Config) {
	c.EndpointAddrHTTP = j.EndpointAddrHTTP
	c.EndpointAddrGRPC = j.EndpointAddrGRPC
	c.DatabaseDSN = j.DatabaseDSN
	c.SecretKey = j.SecretKey
	c.AccessTokenValidityDuration = j.AccessTokenValidityDuration.Duration
	c.RefreshTokenValidityDuration = j.RefreshTokenValidityDuration.Duration
	c.S3RootUser = j.S3RootUser
	c.S3RootPassword = j.S3RootPassword
	c.S3Bucket = j.S3Bucket
	c.S3Region = j.S3Region
	c.S3BaseEndpoint = j.S3BaseEndpoint
	c.SpeechEndpoint = j.SpeechEndpoint
	c.SpeechAPIKey = j.SpeechAPIKey
	c.SpeechLanguage = j.SpeechLanguage
	c.SMTPHost = j.SMTPHost
	c.SMTPPort = j.SMTPPort
	c.SMTPUser = j.SMTPUser
	c.SMTPPassword = j.SMTPPassword
	c.MailFrom = j.MailFrom
	c.FrontendURL = j.FrontendURL
	c.CORSOrigins = j.CORSOrigins
	c.TrustedProxies = j.TrustedProxies
	c.MaxLoginAttempts = j.MaxLoginAttempts
	c.LoginLockoutDuration = j.LoginLockoutDuration.Duration
	c.ResetTokenValidityDuration = j.ResetTokenValidityDuration.Duration
	c.MaxResetAttempts = j.MaxResetAttempts
	c.ResetRateLimitWindow = j.ResetRateLimitWindow.Duration
	c.RateLimitBackend = j.RateLimitBackend
	c.LogFormat = j.LogFormat
	c.CleanupInterval = j.CleanupInterval.Duration
}

// parseJson overlays values from the file given with -c / -config onto
// config. Keys missing from the file keep their current values. An unreadable
// file or invalid JSON panics: the server must not start half-configured.
func parseJson(config *Config) {
	path := flagx.ConfigPath()
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := toJson(config)
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}
