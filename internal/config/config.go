// Package config provides configuration loading and validation for the inventory agent.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Storage backends
const (
	BackendSheets   = "sheets"
	BackendPostgres = "postgres"
)

// Config represents the agent configuration. It can be loaded from a JSON
// file and overridden from the environment. Missing values use Defaults.
type Config struct {
	// Mailbox polling
	Query              string `json:"query,omitempty"`                                 // Gmail search query
	MaxResults         int    `json:"max_results,omitempty" validate:"gte=1,lte=500"`  // Messages fetched per cycle
	IntervalSeconds    int    `json:"interval_seconds,omitempty" validate:"gte=1"`     // Sleep between cycles
	ExtractConcurrency int    `json:"extract_concurrency,omitempty" validate:"gte=1"`  // Parallel extraction calls
	MaxExtractAttempts int    `json:"max_extract_attempts,omitempty" validate:"gte=0"` // 0 retries failed messages forever
	GmailCredentials   string `json:"gmail_credentials,omitempty" validate:"required"` // OAuth client secrets file
	GmailToken         string `json:"gmail_token,omitempty" validate:"required"`       // Authorized user token file

	// Extraction
	APIKey string `json:"api_key,omitempty"` // Gemini API key
	Model  string `json:"model,omitempty"`   // Overrides the standard tier model

	// Storage
	Backend            string `json:"backend,omitempty" validate:"oneof=sheets postgres"`
	SpreadsheetID      string `json:"spreadsheet_id,omitempty" validate:"required_if=Backend sheets"`
	ItemsRange         string `json:"items_range,omitempty"`
	ProcessedRange     string `json:"processed_range,omitempty"`
	ServiceAccountFile string `json:"service_account_file,omitempty" validate:"required_if=Backend sheets"`
	DatabaseURL        string `json:"database_url,omitempty" validate:"required_if=Backend postgres"`
}

// Defaults returns the built-in configuration values
func Defaults() Config {
	return Config{
		Query:              `"Purchase" OR "order"`,
		MaxResults:         50,
		IntervalSeconds:    5 * 60 * 60,
		ExtractConcurrency: 1,
		GmailCredentials:   "credentials.json",
		GmailToken:         "token.json",
		Backend:            BackendSheets,
		ItemsRange:         "Sheet1!A2:O",
		ProcessedRange:     "processed_ids!A2:A",
		ServiceAccountFile: "service_account.json",
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv reads configuration values from INVENTORY_* variables,
// GEMINI_API_KEY and DATABASE_URL. Unset variables leave fields empty.
func FromEnv() (Config, error) {
	cfg := Config{
		Query:              os.Getenv("INVENTORY_QUERY"),
		GmailCredentials:   os.Getenv("INVENTORY_GMAIL_CREDENTIALS"),
		GmailToken:         os.Getenv("INVENTORY_GMAIL_TOKEN"),
		APIKey:             os.Getenv("GEMINI_API_KEY"),
		Model:              os.Getenv("INVENTORY_MODEL"),
		Backend:            os.Getenv("INVENTORY_BACKEND"),
		SpreadsheetID:      os.Getenv("INVENTORY_SPREADSHEET_ID"),
		ItemsRange:         os.Getenv("INVENTORY_ITEMS_RANGE"),
		ProcessedRange:     os.Getenv("INVENTORY_PROCESSED_RANGE"),
		ServiceAccountFile: os.Getenv("INVENTORY_SERVICE_ACCOUNT_FILE"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
	}

	ints := []struct {
		env string
		dst *int
	}{
		{"INVENTORY_MAX_RESULTS", &cfg.MaxResults},
		{"INVENTORY_INTERVAL_SECONDS", &cfg.IntervalSeconds},
		{"INVENTORY_EXTRACT_CONCURRENCY", &cfg.ExtractConcurrency},
		{"INVENTORY_MAX_EXTRACT_ATTEMPTS", &cfg.MaxExtractAttempts},
	}
	for _, v := range ints {
		raw := os.Getenv(v.env)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("config error: %s must be an integer: %w", v.env, err)
		}
		*v.dst = n
	}

	return cfg, nil
}

// Resolve builds the effective configuration: environment over file over defaults.
// path may be empty.
func Resolve(path string) (*Config, error) {
	file := Config{}
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		file = *loaded
	}

	env, err := FromEnv()
	if err != nil {
		return nil, err
	}

	merged := env.MergeWithDefaults(file)
	merged = merged.MergeWithDefaults(Defaults())
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// Validate checks that the configuration has valid values
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

// Interval returns the sleep between cycles
func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	strs := []struct {
		dst *string
		def string
	}{
		{&result.Query, defaults.Query},
		{&result.GmailCredentials, defaults.GmailCredentials},
		{&result.GmailToken, defaults.GmailToken},
		{&result.APIKey, defaults.APIKey},
		{&result.Model, defaults.Model},
		{&result.Backend, defaults.Backend},
		{&result.SpreadsheetID, defaults.SpreadsheetID},
		{&result.ItemsRange, defaults.ItemsRange},
		{&result.ProcessedRange, defaults.ProcessedRange},
		{&result.ServiceAccountFile, defaults.ServiceAccountFile},
		{&result.DatabaseURL, defaults.DatabaseURL},
	}
	for _, s := range strs {
		if *s.dst == "" {
			*s.dst = s.def
		}
	}

	// Int fields: use default if zero
	if result.MaxResults == 0 {
		result.MaxResults = defaults.MaxResults
	}
	if result.IntervalSeconds == 0 {
		result.IntervalSeconds = defaults.IntervalSeconds
	}
	if result.ExtractConcurrency == 0 {
		result.ExtractConcurrency = defaults.ExtractConcurrency
	}
	if result.MaxExtractAttempts == 0 {
		result.MaxExtractAttempts = defaults.MaxExtractAttempts
	}

	return result
}
