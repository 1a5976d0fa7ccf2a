// Package config provides functionality for managing configuration options
// for the application using command-line flags, a JSON file and environment
// variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// ErrMissingSecret is returned when no token signing secret is configured.
var ErrMissingSecret = errors.New("SECRET_KEY is required")

// Duration is a time.Duration that reads Go duration strings ("30m", "168h")
// from flags, JSON and environment variables alike.
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Options holds the configuration values for the application.
type Options struct {
	// Address defines the server's listening address (ip:port).
	Address string `json:"server_address" envconfig:"SERVER_ADDRESS"`

	// DatabaseDSN holds the database connection string. When empty the
	// server keeps its data in memory.
	DatabaseDSN string `json:"database_dsn" envconfig:"DATABASE_URL"`

	// Config is the path to the Config file.
	Config string `json:"-" ignored:"true"`

	// SecretKey signs and verifies bearer tokens.
	SecretKey string `json:"secret_key" envconfig:"SECRET_KEY"`
	// Algorithm is the HMAC signing algorithm (HS256, HS384 or HS512).
	Algorithm string `json:"algorithm" envconfig:"ALGORITHM"`
	// AccessTokenExpire is the lifetime of access tokens.
	AccessTokenExpire Duration `json:"access_token_expire" envconfig:"ACCESS_TOKEN_EXPIRE"`
	// RefreshTokenExpire is the lifetime of refresh tokens.
	RefreshTokenExpire Duration `json:"refresh_token_expire" envconfig:"REFRESH_TOKEN_EXPIRE"`

	BcryptCost       int      `json:"bcrypt_cost" envconfig:"BCRYPT_COST"`
	LogLevel         string   `json:"log_level" envconfig:"LOG_LEVEL"`
	RequestTimeout   Duration `json:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
	ContactRetention Duration `json:"contact_retention" envconfig:"CONTACT_RETENTION"`

	// TLSCert and TLSKey switch the server to HTTPS when both are set.
	TLSCert string `json:"tls_cert" envconfig:"TLS_CERT"`
	TLSKey  string `json:"tls_key" envconfig:"TLS_KEY"`
}

// Defaults returns the options used when nothing else is configured.
func Defaults() *Options {
	return &Options{
		Address:            "localhost:8080",
		Config:             "config.json",
		Algorithm:          "HS256",
		AccessTokenExpire:  Duration(30 * time.Minute),
		RefreshTokenExpire: Duration(7 * 24 * time.Hour),
		BcryptCost:         10,
		LogLevel:           "info",
		RequestTimeout:     Duration(30 * time.Second),
		ContactRetention:   Duration(30 * 24 * time.Hour),
	}
}

// Load builds Options from args. Flags provide the base values, the JSON
// file named by -c (or the CONFIG variable) overrides them and environment
// variables override both. A missing config file is not an error.
func Load(args []string) (*Options, error) {
	options := Defaults()

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.StringVar(&options.Address, "a", options.Address, "run on ip:port server")
	fs.StringVar(&options.DatabaseDSN, "d", options.DatabaseDSN, "db address")
	fs.StringVar(&options.Config, "config", options.Config, "path to config file")
	fs.StringVar(&options.Config, "c", options.Config, "path to config file (shorthand)")
	fs.StringVar(&options.SecretKey, "k", options.SecretKey, "token signing secret")
	fs.StringVar(&options.Algorithm, "alg", options.Algorithm, "token signing algorithm")
	fs.TextVar(&options.AccessTokenExpire, "access-ttl", options.AccessTokenExpire, "access token lifetime")
	fs.TextVar(&options.RefreshTokenExpire, "refresh-ttl", options.RefreshTokenExpire, "refresh token lifetime")
	fs.IntVar(&options.BcryptCost, "bcrypt-cost", options.BcryptCost, "bcrypt work factor")
	fs.StringVar(&options.LogLevel, "l", options.LogLevel, "log level")
	fs.TextVar(&options.RequestTimeout, "timeout", options.RequestTimeout, "per-request timeout")
	fs.TextVar(&options.ContactRetention, "retention", options.ContactRetention, "how long deleted contacts are kept")
	fs.StringVar(&options.TLSCert, "tls-cert", options.TLSCert, "TLS certificate file")
	fs.StringVar(&options.TLSKey, "tls-key", options.TLSKey, "TLS key file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Override flags with environment variables if set
	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				return nil, fmt.Errorf("error while reading config file: %w", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				return nil, fmt.Errorf("error while parsing config file: %w", err)
			}
		}
	}

	if err := envconfig.Process("", options); err != nil {
		return nil, fmt.Errorf("error while reading environment: %w", err)
	}

	if err := options.Validate(); err != nil {
		return nil, err
	}
	return options, nil
}

// Validate reports options the server cannot start with.
func (o *Options) Validate() error {
	if o.SecretKey == "" {
		return ErrMissingSecret
	}
	if (o.TLSCert == "") != (o.TLSKey == "") {
		return errors.New("TLS_CERT and TLS_KEY must be set together")
	}
	return nil
}

// Parse parses the process arguments and environment. It exits the process
// when the configuration is invalid.
func Parse() *Options {
	options, err := Load(os.Args[1:])
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	return options
}
