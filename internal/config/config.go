// Package config provides Viper-based configuration loading for qudex.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ContentConfig locates the raw blueprint definitions to load.
type ContentConfig struct {
	// Path is a blueprint file or a directory of blueprint files.
	Path string `mapstructure:"path"`
	// Format is the source format: "auto", "xml", "yaml", or "jsonc".
	// "auto" picks the format from each file's extension.
	Format string `mapstructure:"format"`
}

// SnapshotConfig holds resolved-tree cache settings.
type SnapshotConfig struct {
	// Path is the snapshot file. Empty disables the cache.
	Path string `mapstructure:"path"`
	// Compression is the payload compression: "none", "lz4", or "zstd".
	Compression string `mapstructure:"compression"`
}

// ScriptingConfig holds Lua query sandbox settings.
type ScriptingConfig struct {
	// InstructionLimit is the per-object opcode budget for query expressions.
	// Zero uses the scripting package default.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// WikiCategory assigns a wiki category to every object inheriting from one
// of Inherits.
type WikiCategory struct {
	Name     string   `mapstructure:"name"`
	Inherits []string `mapstructure:"inherits"`
}

// WikiConfig holds wiki template rendering settings.
type WikiConfig struct {
	// Fields lists the template fields in output order. "title" is always
	// emitted first.
	Fields []string `mapstructure:"fields"`
	// Categories are checked in order; the last match wins.
	Categories []WikiCategory `mapstructure:"categories"`
	// Eligibility rules, applied in order: "*Base" admits and "/Base"
	// excludes objects inheriting from Base; "+Name" admits and "-Name"
	// excludes one object by name.
	Eligibility []string `mapstructure:"eligibility"`
}

// DatabaseConfig holds PostgreSQL connection settings for the catalog export.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
// User and Password are percent-encoded.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	Content   ContentConfig   `mapstructure:"content"`
	Snapshot  SnapshotConfig  `mapstructure:"snapshot"`
	Scripting ScriptingConfig `mapstructure:"scripting"`
	Wiki      WikiConfig      `mapstructure:"wiki"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateContent(c.Content); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateSnapshot(c.Snapshot); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Scripting.InstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("scripting.instruction_limit must be >= 0, got %d", c.Scripting.InstructionLimit))
	}
	if err := validateWiki(c.Wiki); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateDatabase(c.Database); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateContent(c ContentConfig) error {
	validFormats := map[string]bool{"auto": true, "xml": true, "yaml": true, "jsonc": true}
	if !validFormats[c.Format] {
		return fmt.Errorf("content.format must be one of [auto, xml, yaml, jsonc], got %q", c.Format)
	}
	return nil
}

func validateSnapshot(s SnapshotConfig) error {
	validCompression := map[string]bool{"none": true, "lz4": true, "zstd": true}
	if !validCompression[s.Compression] {
		return fmt.Errorf("snapshot.compression must be one of [none, lz4, zstd], got %q", s.Compression)
	}
	return nil
}

func validateWiki(w WikiConfig) error {
	var errs []string
	for i, c := range w.Categories {
		if c.Name == "" {
			errs = append(errs, fmt.Sprintf("wiki.categories[%d].name must not be empty", i))
		}
		if len(c.Inherits) == 0 {
			errs = append(errs, fmt.Sprintf("wiki.categories[%d].inherits must not be empty", i))
		}
	}
	for i, rule := range w.Eligibility {
		if len(rule) < 2 || !strings.ContainsRune("*/+-", rune(rule[0])) {
			errs = append(errs, fmt.Sprintf("wiki.eligibility[%d] must be *Base, /Base, +Name or -Name, got %q", i, rule))
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path skips the file and uses
// defaults plus environment overrides only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()

	// Environment variable overrides with QUDEX_ prefix
	v.SetEnvPrefix("QUDEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("content.path", "ObjectBlueprints.xml")
	v.SetDefault("content.format", "auto")

	v.SetDefault("snapshot.path", "")
	v.SetDefault("snapshot.compression", "zstd")

	v.SetDefault("scripting.instruction_limit", 0)

	v.SetDefault("wiki.fields", []string{
		"title", "level", "hp", "av", "dv", "strength", "agility", "toughness",
		"intelligence", "willpower", "ego", "pv", "damage", "weight", "value",
		"tier", "bits", "renderstr", "colorstr", "tile", "desc",
	})
	v.SetDefault("wiki.categories", []map[string]any{
		{"name": "Creatures", "inherits": []string{"Creature"}},
		{"name": "Melee Weapons", "inherits": []string{"MeleeWeapon"}},
		{"name": "Missile Weapons", "inherits": []string{"BaseMissileWeapon"}},
		{"name": "Armor", "inherits": []string{"Armor"}},
		{"name": "Shields", "inherits": []string{"Shield"}},
		{"name": "Food", "inherits": []string{"Food"}},
	})
	v.SetDefault("wiki.eligibility", []string{"/Wall"})

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "qudex")
	v.SetDefault("database.password", "qudex")
	v.SetDefault("database.name", "qudex")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}
