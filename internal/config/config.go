// Package config assembles the application configuration from defaults,
// an optional JSON config file, command-line flags and environment variables
// (in that order of increasing priority), and validates the result.
//
// The JWT signing secret has no default: startup fails when it is absent.
package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the service.
type Config struct {
	RunAddr             string        `env:"SERVER_ADDRESS" json:"server_address" validate:"hostname_port"`
	LogLevel            string        `env:"LOG_LEVEL" json:"log_level" validate:"loglevel"`
	DBFileName          string        `env:"FILE_STORAGE_PATH" json:"file_storage_path" validate:"filepath"`
	DatabaseDSN         string        `env:"DATABASE_DSN" json:"database_dsn"`
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT" json:"db_connection_timeout"`
	MigrationsDir       string        `env:"MIGRATIONS_DIR" json:"migrations_dir"`

	// JWTSigningSecret is the base64url-encoded HS256 secret used for both
	// access and refresh tokens. Required.
	JWTSigningSecret string `env:"JWT_SIGNING_SECRET" json:"jwt_signing_secret" validate:"required,base64url"`

	// NewsSource selects the news strategy: "storage" reads the static news
	// collection, "api" proxies the external headlines provider.
	NewsSource  string `env:"NEWS_SOURCE" json:"news_source" validate:"oneof=storage api"`
	NewsAPIURL  string `env:"NEWS_API_URL" json:"news_api_url" validate:"omitempty,url"`
	NewsAPIKey  string `env:"NEWS_API_KEY" json:"news_api_key"`
	NewsCountry string `env:"NEWS_COUNTRY" json:"news_country"`

	// TrustedSubnet guards GET /api/internal/stats; empty disables the endpoint.
	TrustedSubnet string `env:"TRUSTED_SUBNET" json:"trusted_subnet"`

	ConfigFileName string `env:"CONFIG" json:"-"`
}

var defaultConfig = Config{
	RunAddr:             ":8080",
	LogLevel:            "info",
	DBFileName:          "",
	DatabaseDSN:         "",
	DBConnectionTimeout: 10 * time.Second,
	MigrationsDir:       "cmd/diabesafe/migrations",
	NewsSource:          "storage",
	NewsAPIURL:          "https://newsapi.org/v2/top-headlines",
	NewsCountry:         "id",
}

func validateFilePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	if path == "" {
		return true
	}
	_, err := os.Stat(path)

	return err == nil || os.IsNotExist(err)
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	allowedLogLevels := map[string]bool{
		"debug":   true,
		"info":    true,
		"warning": true,
		"error":   true,
		"fatal":   true,
	}

	return allowedLogLevels[value]
}

func (values *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("filepath", validateFilePath)
	if err != nil {
		return err
	}

	return validate.Struct(values)
}

func applyDefaults(values *Config, defaults Config) {
	*values = defaults
}

func applyConfigFile(values *Config, fileName string) error {
	if fileName == "" {
		return nil
	}

	data, err := os.ReadFile(fileName)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, values)
}

func mergeNonEmpty(values *Config, overrides Config) {
	if overrides.RunAddr != "" {
		values.RunAddr = overrides.RunAddr
	}
	if overrides.LogLevel != "" {
		values.LogLevel = overrides.LogLevel
	}
	if overrides.DBFileName != "" {
		values.DBFileName = overrides.DBFileName
	}
	if overrides.DatabaseDSN != "" {
		values.DatabaseDSN = overrides.DatabaseDSN
	}
	if overrides.DBConnectionTimeout != 0 {
		values.DBConnectionTimeout = overrides.DBConnectionTimeout
	}
	if overrides.MigrationsDir != "" {
		values.MigrationsDir = overrides.MigrationsDir
	}
	if overrides.JWTSigningSecret != "" {
		values.JWTSigningSecret = overrides.JWTSigningSecret
	}
	if overrides.NewsSource != "" {
		values.NewsSource = overrides.NewsSource
	}
	if overrides.NewsAPIURL != "" {
		values.NewsAPIURL = overrides.NewsAPIURL
	}
	if overrides.NewsAPIKey != "" {
		values.NewsAPIKey = overrides.NewsAPIKey
	}
	if overrides.NewsCountry != "" {
		values.NewsCountry = overrides.NewsCountry
	}
	if overrides.TrustedSubnet != "" {
		values.TrustedSubnet = overrides.TrustedSubnet
	}
}

// InitOption customizes New().
type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
}

// WithDisableFlagsParsing disables command-line flag parsing; used by tests
// so that the test binary's own flags do not collide with the application's.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// New builds and validates the configuration.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	if err := godotenv.Load(); err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	values := &Config{}
	applyDefaults(values, defaultConfig)

	flagValues := Config{}
	if !options.disableFlagsParsing {
		flag.StringVar(&flagValues.RunAddr, "a", "", "address and port to run server")
		flag.StringVar(&flagValues.LogLevel, "l", "", "logger level")
		flag.StringVar(&flagValues.DBFileName, "f", "", "JSON file name with database")
		flag.StringVar(&flagValues.DatabaseDSN, "d", "", "a string with the database connection details")
		flag.StringVar(&flagValues.MigrationsDir, "m", "", "directory with goose migrations")
		flag.StringVar(&flagValues.TrustedSubnet, "t", "", "trusted subnet in CIDR notation for the internal stats endpoint")
		flag.StringVar(&flagValues.ConfigFileName, "c", "", "path to a JSON config file")
		flag.Parse()
	}

	configFileName := flagValues.ConfigFileName
	if fromEnv := os.Getenv("CONFIG"); fromEnv != "" {
		configFileName = fromEnv
	}
	if err := applyConfigFile(values, configFileName); err != nil {
		return nil, err
	}

	mergeNonEmpty(values, flagValues)

	valuesFromEnv := Config{}
	if err := env.Parse(&valuesFromEnv); err != nil {
		return nil, err
	}
	mergeNonEmpty(values, valuesFromEnv)

	if err := values.validate(); err != nil {
		return nil, err
	}

	return values, nil
}
