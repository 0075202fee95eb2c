// Package config loads the server settings.
//
// Sources, from lowest to highest priority: built-in defaults, a JSON file
// (path from the CONFIG variable or the -c flag), environment variables
// (a .env file is loaded first when present) and command-line flags.
package config

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Supported values of Config.DatabaseDriver.
const (
	DatabaseDriverPgx = "pgx"
	DatabaseDriverPq  = "postgres"
)

type Config struct {
	RunAddr               string        `env:"SERVER_ADDRESS" validate:"hostname_port"`
	LogLevel              string        `env:"LOG_LEVEL" validate:"loglevel"`
	DatabaseDSN           string        `env:"DATABASE_DSN"`
	DatabaseDriver        string        `env:"DATABASE_DRIVER" validate:"dbdriver"`
	SQLitePath            string        `env:"SQLITE_PATH" validate:"filepath"`
	DBConnectionTimeout   time.Duration `env:"DB_CONNECTION_TIMEOUT" validate:"gt=0"`
	TokenSigningSecretKey string        `env:"TOKEN_SIGNING_SECRET_KEY" validate:"required,base64url"`
	TokenTTL              time.Duration `env:"TOKEN_TTL" validate:"gt=0"`
	BcryptCost            int           `env:"BCRYPT_COST" validate:"min=4,max=31"`
	TrustedSubnet         string        `env:"TRUSTED_SUBNET" validate:"omitempty,cidr"`
	TrustProxyHeaders     bool          `env:"TRUST_PROXY_HEADERS"`
	ShutdownTimeout       time.Duration `env:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
	ConfigFile            string        `env:"CONFIG"`
}

// fileConfig mirrors Config for the JSON file. Pointers tell "absent" from
// "zero"; durations are written as Go duration strings ("15m").
type fileConfig struct {
	RunAddr               *string `json:"server_address"`
	LogLevel              *string `json:"log_level"`
	DatabaseDSN           *string `json:"database_dsn"`
	DatabaseDriver        *string `json:"database_driver"`
	SQLitePath            *string `json:"sqlite_path"`
	DBConnectionTimeout   *string `json:"db_connection_timeout"`
	TokenSigningSecretKey *string `json:"token_signing_secret_key"`
	TokenTTL              *string `json:"token_ttl"`
	BcryptCost            *int    `json:"bcrypt_cost"`
	TrustedSubnet         *string `json:"trusted_subnet"`
	TrustProxyHeaders     *bool   `json:"trust_proxy_headers"`
	ShutdownTimeout       *string `json:"shutdown_timeout"`
}

var defaultConfig = Config{
	RunAddr:               ":8080",
	LogLevel:              "info",
	DatabaseDSN:           "",
	DatabaseDriver:        DatabaseDriverPgx,
	SQLitePath:            "",
	DBConnectionTimeout:   10 * time.Second,
	TokenSigningSecretKey: "",
	TokenTTL:              15 * time.Minute,
	BcryptCost:            10,
	TrustedSubnet:         "",
	TrustProxyHeaders:     false,
	ShutdownTimeout:       10 * time.Second,
}

type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
	args                []string
}

// WithDisableFlagsParsing makes New ignore the command line.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// WithArgs overrides the command-line arguments (os.Args[1:] by default).
func WithArgs(args []string) InitOption {
	return func(options *initOptions) {
		options.args = args
	}
}

// New builds and validates the configuration.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
		args:                os.Args[1:],
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Unable to load .env file: %v", err)
	}

	var fromFlags Config
	var setFlags map[string]bool
	if !options.disableFlagsParsing {
		var err error
		setFlags, err = parseFlags(&fromFlags, options.args)
		if err != nil {
			return nil, fmt.Errorf("in internal/config/config.go/New(): error while `parseFlags()` calling: %w", err)
		}
	}

	var fromEnv Config
	if err := env.Parse(&fromEnv); err != nil {
		return nil, fmt.Errorf("in internal/config/config.go/New(): error while `env.Parse()` calling: %w", err)
	}

	values := &Config{}
	applyDefaults(values, defaultConfig)

	configFile := fromEnv.ConfigFile
	if setFlags["c"] {
		configFile = fromFlags.ConfigFile
	}
	if configFile != "" {
		if err := values.applyFile(configFile); err != nil {
			return nil, err
		}
		values.ConfigFile = configFile
	}

	applyDefaults(values, fromEnv)
	values.applyFlags(fromFlags, setFlags)

	if err := values.validate(); err != nil {
		return nil, err
	}

	return values, nil
}

// SigningKey decodes TokenSigningSecretKey.
func (c *Config) SigningKey() ([]byte, error) {
	return base64.URLEncoding.DecodeString(c.TokenSigningSecretKey)
}

func parseFlags(target *Config, args []string) (map[string]bool, error) {
	flagSet := flag.NewFlagSet("contactbook", flag.ContinueOnError)
	flagSet.StringVar(&target.RunAddr, "a", "", "address and port to run server")
	flagSet.StringVar(&target.LogLevel, "l", "", "logger level")
	flagSet.StringVar(&target.DatabaseDSN, "d", "", "PostgreSQL connection string")
	flagSet.StringVar(&target.SQLitePath, "f", "", "SQLite database file")
	flagSet.StringVar(&target.TrustedSubnet, "t", "", "trusted subnet in CIDR notation")
	flagSet.StringVar(&target.ConfigFile, "c", "", "JSON configuration file")

	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}

	setFlags := map[string]bool{}
	flagSet.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	return setFlags, nil
}

// applyDefaults copies every non-zero field of source into values.
func applyDefaults(values *Config, source Config) {
	if source.RunAddr != "" {
		values.RunAddr = source.RunAddr
	}
	if source.LogLevel != "" {
		values.LogLevel = source.LogLevel
	}
	if source.DatabaseDSN != "" {
		values.DatabaseDSN = source.DatabaseDSN
	}
	if source.DatabaseDriver != "" {
		values.DatabaseDriver = source.DatabaseDriver
	}
	if source.SQLitePath != "" {
		values.SQLitePath = source.SQLitePath
	}
	if source.DBConnectionTimeout != 0 {
		values.DBConnectionTimeout = source.DBConnectionTimeout
	}
	if source.TokenSigningSecretKey != "" {
		values.TokenSigningSecretKey = source.TokenSigningSecretKey
	}
	if source.TokenTTL != 0 {
		values.TokenTTL = source.TokenTTL
	}
	if source.BcryptCost != 0 {
		values.BcryptCost = source.BcryptCost
	}
	if source.TrustedSubnet != "" {
		values.TrustedSubnet = source.TrustedSubnet
	}
	if source.TrustProxyHeaders {
		values.TrustProxyHeaders = true
	}
	if source.ShutdownTimeout != 0 {
		values.ShutdownTimeout = source.ShutdownTimeout
	}
}

func (c *Config) applyFlags(fromFlags Config, setFlags map[string]bool) {
	if setFlags["a"] {
		c.RunAddr = fromFlags.RunAddr
	}
	if setFlags["l"] {
		c.LogLevel = fromFlags.LogLevel
	}
	if setFlags["d"] {
		c.DatabaseDSN = fromFlags.DatabaseDSN
	}
	if setFlags["f"] {
		c.SQLitePath = fromFlags.SQLitePath
	}
	if setFlags["t"] {
		c.TrustedSubnet = fromFlags.TrustedSubnet
	}
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("in internal/config/config.go/applyFile(): error while `os.ReadFile()` calling: %w", err)
	}

	var file fileConfig
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("in internal/config/config.go/applyFile(): error while `json.Unmarshal()` calling: %w", err)
	}

	setString(&c.RunAddr, file.RunAddr)
	setString(&c.LogLevel, file.LogLevel)
	setString(&c.DatabaseDSN, file.DatabaseDSN)
	setString(&c.DatabaseDriver, file.DatabaseDriver)
	setString(&c.SQLitePath, file.SQLitePath)
	setString(&c.TokenSigningSecretKey, file.TokenSigningSecretKey)
	setString(&c.TrustedSubnet, file.TrustedSubnet)
	if file.TrustProxyHeaders != nil {
		c.TrustProxyHeaders = *file.TrustProxyHeaders
	}
	if file.BcryptCost != nil {
		c.BcryptCost = *file.BcryptCost
	}

	durations := []struct {
		name   string
		target *time.Duration
		value  *string
	}{
		{"db_connection_timeout", &c.DBConnectionTimeout, file.DBConnectionTimeout},
		{"token_ttl", &c.TokenTTL, file.TokenTTL},
		{"shutdown_timeout", &c.ShutdownTimeout, file.ShutdownTimeout},
	}
	for _, d := range durations {
		if d.value == nil {
			continue
		}
		parsed, err := time.ParseDuration(*d.value)
		if err != nil {
			return fmt.Errorf("in internal/config/config.go/applyFile(): invalid %s: %w", d.name, err)
		}
		*d.target = parsed
	}

	return nil
}

func setString(target *string, value *string) {
	if value != nil {
		*target = *value
	}
}

func validateFilePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	if path == "" || path == ":memory:" {
		return true
	}

	info, err := os.Stat(path)
	if err == nil {
		return !info.IsDir()
	}
	if !os.IsNotExist(err) {
		return false
	}

	dir, err := os.Stat(filepath.Dir(path))
	return err == nil && dir.IsDir()
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	allowedLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}

	return allowedLogLevels[value]
}

func validateDatabaseDriver(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	return value == DatabaseDriverPgx || value == DatabaseDriverPq
}

func (c *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("filepath", validateFilePath)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("dbdriver", validateDatabaseDriver)
	if err != nil {
		return err
	}

	return validate.Struct(c)
}
