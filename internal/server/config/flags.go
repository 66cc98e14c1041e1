package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/securemsg/internal/flagx"
)

var serverFlags = []string{"-a", "-http", "-d", "-s", "-k", "-cipher", "-t", "-revocation", "-redis", "-admins", "-u", "-p", "-b", "-g", "-e", "-log-level"}

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string           gRPC bind address (e.g., ":50051")
//	-http string        HTTP bind address (e.g., ":3000")
//	-d string           PostgreSQL DSN
//	-s string           token HMAC secret key
//	-k string           hex message encryption key (32 bytes)
//	-cipher string      aes-gcm or chacha20-poly1305
//	-t int              session token validity, seconds
//	-revocation string  memory or redis
//	-redis string       Redis address
//	-admins list        comma-separated admin usernames
//	-u string           S3 root user
//	-p string           S3 root password
//	-b string           S3 bucket name
//	-g string           S3 region
//	-e string           S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-log-level string   debug, info, warn or error
//
// os.Args is filtered with flagx.FilterArgs first so that -c/-config and
// other components' flags do not make parsing fail.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], serverFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "gRPC address and port")
	fs.StringVar(&config.EndpointAddrHTTP, "http", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "token secret key")
	fs.StringVar(&config.MessageKey, "k", config.MessageKey, "message key (hex)")
	fs.StringVar(&config.CipherType, "cipher", config.CipherType, "message cipher")

	tokenValidity := fs.Int("t", int(config.TokenValidityDuration.Seconds()), "token validity (in seconds)")

	fs.StringVar(&config.RevocationBackend, "revocation", config.RevocationBackend, "revocation backend")
	fs.StringVar(&config.RedisAddr, "redis", config.RedisAddr, "Redis address")
	fs.Var(flagx.CSV{Values: &config.AdminUsers}, "admins", "admin usernames")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.TokenValidityDuration = time.Duration(*tokenValidity) * time.Second
}
