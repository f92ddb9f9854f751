package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/neurorecall/internal/flagx"
)

var ownFlags = []string{
	"-a", "-grpc", "-d", "-s", "-t", "-r", "-u", "-p", "-b", "-region", "-e",
	"-speech-key", "-speech-lang", "-smtp-host", "-l", "-ratelimit",
}

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string          HTTP bind address (e.g., ":8080")
//	-grpc string       gRPC bind address (e.g., ":50051")
//	-d string          PostgreSQL DSN
//	-s string          JWT HMAC secret key
//	-t int             access token validity, minutes
//	-r int             refresh token validity, minutes
//	-u / -p string     S3 root user / password
//	-b string          S3 bucket name
//	-region string     S3 region
//	-e string          S3 base endpoint
//	-speech-key string speech API key
//	-speech-lang string recognition language
//	-smtp-host string  SMTP host
//	-l string          log format: json or console
//	-ratelimit string  rate-limit backend: memory or postgres
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], ownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port of the HTTP API")
	fs.StringVar(&config.EndpointAddrGRPC, "grpc", config.EndpointAddrGRPC, "address and port of the gRPC API")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "region", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.SpeechAPIKey, "speech-key", config.SpeechAPIKey, "speech API key")
	fs.StringVar(&config.SpeechLanguage, "speech-lang", config.SpeechLanguage, "speech recognition language")
	fs.StringVar(&config.SMTPHost, "smtp-host", config.SMTPHost, "SMTP host")
	fs.StringVar(&config.LogFormat, "l", config.LogFormat, "log format (json|console)")
	fs.StringVar(&config.RateLimitBackend, "ratelimit", config.RateLimitBackend, "rate limit backend (memory|postgres)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
}
