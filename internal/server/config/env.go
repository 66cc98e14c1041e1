package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/securemsg/internal/flagx"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable read by parseEnv.
const EnvPrefix = "SECUREMSG_"

// dotenvFiles are loaded, when present, before the environment is read.
// Variables already set in the process environment win.
var dotenvFiles = []string{".env"}

// parseEnv overlays Config with SECUREMSG_* environment variables.
// Unset variables leave the current value alone. A value that does not
// parse panics, like an invalid JSON file does.
func parseEnv(config *Config) {
	for _, f := range dotenvFiles {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}

	envString("GRPC_ADDR", &config.EndpointAddrGRPC)
	envString("HTTP_ADDR", &config.EndpointAddrHTTP)
	envString("DATABASE_DSN", &config.DatabaseDSN)
	envInt("DB_MAX_OPEN_CONNS", &config.DBMaxOpenConns)
	envDuration("STATEMENT_TIMEOUT", &config.StatementTimeout)
	envString("SECRET_KEY", &config.SecretKey)
	envString("MESSAGE_KEY", &config.MessageKey)
	envString("CIPHER", &config.CipherType)
	envDuration("TOKEN_TTL", &config.TokenValidityDuration)
	envString("REVOCATION_BACKEND", &config.RevocationBackend)
	envString("REDIS_ADDR", &config.RedisAddr)
	envString("REDIS_PASSWORD", &config.RedisPassword)
	envInt("REDIS_DB", &config.RedisDB)
	envList("ADMIN_USERS", &config.AdminUsers)
	envBool("COOKIE_SECURE", &config.CookieSecure)
	envList("CORS_ORIGINS", &config.CORSOrigins)
	envInt("LOGIN_RATE_PER_MINUTE", &config.LoginRatePerMinute)
	envList("TRUSTED_PROXIES", &config.TrustedProxies)
	envString("LOG_LEVEL", &config.LogLevel)
	envBool("DEV_MODE", &config.DevMode)
	envString("S3_ROOT_USER", &config.S3RootUser)
	envString("S3_ROOT_PASSWORD", &config.S3RootPassword)
	envString("S3_BUCKET", &config.S3Bucket)
	envString("S3_REGION", &config.S3Region)
	envString("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
}

func envString(name string, dst *string) {
	if v, ok := os.LookupEnv(EnvPrefix + name); ok {
		*dst = v
	}
}

func envInt(name string, dst *int) {
	if v, ok := os.LookupEnv(EnvPrefix + name); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
		}
		*dst = n
	}
}

func envBool(name string, dst *bool) {
	if v, ok := os.LookupEnv(EnvPrefix + name); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			panic(fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
		}
		*dst = b
	}
}

func envDuration(name string, dst *time.Duration) {
	if v, ok := os.LookupEnv(EnvPrefix + name); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
		}
		*dst = d
	}
}

func envList(name string, dst *[]string) {
	if v, ok := os.LookupEnv(EnvPrefix + name); ok {
		*dst = flagx.SplitCSV(v)
	}
}
