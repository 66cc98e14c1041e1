package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/securemsg/internal/flagx"
	"github.com/dmitrijs2005/securemsg/internal/timex"
)

// JsonConfig is the on-disk shape of the server configuration file.
// Durations use timex.Duration so both "10m" and integer nanoseconds parse.
// Fields left out of the file keep their current value.
type JsonConfig struct {
	EndpointAddrGRPC      string         `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP      string         `json:"endpoint_addr_http"`
	DatabaseDSN           string         `json:"database_dsn"`
	DBMaxOpenConns        int            `json:"db_max_open_conns"`
	StatementTimeout      timex.Duration `json:"statement_timeout"`
	SecretKey             string         `json:"secret_key"`
	MessageKey            string         `json:"message_key"`
	CipherType            string         `json:"cipher"`
	TokenValidityDuration timex.Duration `json:"token_validity_duration"`
	RevocationBackend     string         `json:"revocation_backend"`
	RedisAddr             string         `json:"redis_addr"`
	RedisPassword         string         `json:"redis_password"`
	RedisDB               int            `json:"redis_db"`
	PasswordTime          uint32         `json:"password_time"`
	PasswordMemoryKB      uint32         `json:"password_memory_kb"`
	PasswordThreads       uint8          `json:"password_threads"`
	AdminUsers            []string       `json:"admin_users"`
	CookieSecure          *bool          `json:"cookie_secure"`
	CORSOrigins           []string       `json:"cors_origins"`
	LoginRatePerMinute    *int           `json:"login_rate_per_minute"`
	TrustedProxies        []string       `json:"trusted_proxies"`
	LogLevel              string         `json:"log_level"`
	DevMode               *bool          `json:"dev_mode"`
	S3RootUser            string         `json:"s3_root_user"`
	S3RootPassword        string         `json:"s3_root_password"`
	S3Bucket              string         `json:"s3_bucket"`
	S3Region              string         `json:"s3_region"`
	S3BaseEndpoint        string         `json:"s3_base_endpoint"`
}

// parseJson loads the file named by -c/-config into config.
// Without the flag nothing happens. An unreadable file or invalid JSON panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	if c.DBMaxOpenConns > 0 {
		config.DBMaxOpenConns = c.DBMaxOpenConns
	}
	if c.StatementTimeout.Duration > 0 {
		config.StatementTimeout = c.StatementTimeout.Duration
	}
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.MessageKey, c.MessageKey)
	setString(&config.CipherType, c.CipherType)
	if c.TokenValidityDuration.Duration > 0 {
		config.TokenValidityDuration = c.TokenValidityDuration.Duration
	}
	setString(&config.RevocationBackend, c.RevocationBackend)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	if c.RedisDB > 0 {
		config.RedisDB = c.RedisDB
	}
	if c.PasswordTime > 0 {
		config.PasswordTime = c.PasswordTime
	}
	if c.PasswordMemoryKB > 0 {
		config.PasswordMemoryKB = c.PasswordMemoryKB
	}
	if c.PasswordThreads > 0 {
		config.PasswordThreads = c.PasswordThreads
	}
	if c.AdminUsers != nil {
		config.AdminUsers = c.AdminUsers
	}
	if c.CookieSecure != nil {
		config.CookieSecure = *c.CookieSecure
	}
	if c.CORSOrigins != nil {
		config.CORSOrigins = c.CORSOrigins
	}
	if c.LoginRatePerMinute != nil {
		config.LoginRatePerMinute = *c.LoginRatePerMinute
	}
	if c.TrustedProxies != nil {
		config.TrustedProxies = c.TrustedProxies
	}
	setString(&config.LogLevel, c.LogLevel)
	if c.DevMode != nil {
		config.DevMode = *c.DevMode
	}
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
