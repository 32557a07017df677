// Package config loads the password hashing configuration from the
// environment or a config file and turns it into a [hashing.Config].
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/hasbyte1/go-phpass/hashing"
)

// ErrInvalid is returned when a loaded value is out of range.
var ErrInvalid = errors.New("config: invalid value")

type Config struct {
	BcryptCost    int `yaml:"bcrypt_cost" json:"bcrypt_cost" toml:"bcrypt_cost" env:"PASSWORD_BCRYPT_COST" env-default:"10" env-description:"bcrypt work factor for new hashes"`
	BcryptMinCost int `yaml:"bcrypt_min_cost" json:"bcrypt_min_cost" toml:"bcrypt_min_cost" env:"PASSWORD_BCRYPT_MIN_COST" env-default:"4" env-description:"lowest bcrypt work factor considered current"`
	BcryptMaxCost int `yaml:"bcrypt_max_cost" json:"bcrypt_max_cost" toml:"bcrypt_max_cost" env:"PASSWORD_BCRYPT_MAX_COST" env-default:"31" env-description:"highest bcrypt work factor considered current"`

	StretchCountLog2 int `yaml:"stretch_count_log2" json:"stretch_count_log2" toml:"stretch_count_log2" env:"PASSWORD_STRETCH_COUNT_LOG2" env-default:"15" env-description:"log2 iteration count of legacy $S$ hashes"`

	Argon2MaxMemory uint32 `yaml:"argon2_max_memory" json:"argon2_max_memory" toml:"argon2_max_memory" env:"PASSWORD_ARGON2_MAX_MEMORY" env-default:"262144" env-description:"memory ceiling in KiB for imported argon2 hashes"`
	AllowMD5Digest  bool   `yaml:"allow_md5_digest" json:"allow_md5_digest" toml:"allow_md5_digest" env:"PASSWORD_ALLOW_MD5_DIGEST" env-default:"false" env-description:"accept bare hexadecimal MD5 digests"`

	LogLevel string `yaml:"log_level" json:"log_level" toml:"log_level" env:"PASSWORD_LOG_LEVEL" env-default:"info" env-description:"debug, info, warn or error"`
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: failed to read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile reads the configuration from a YAML, JSON, TOML or .env file.
// Environment variables override values from the file.
func LoadFile(path string) (Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Describe returns a table of the supported environment variables.
func Describe() (string, error) {
	var cfg Config
	return cleanenv.GetDescription(&cfg, nil)
}

// Validate checks the cost bounds and the log level.
func (c Config) Validate() error {
	if _, err := hashing.NewBcryptHasher(c.bcryptOptions()); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.StretchCountLog2 != hashing.ClampStretchCost(c.StretchCountLog2) {
		return fmt.Errorf("%w: stretch count log2 %d not in [%d, %d]", ErrInvalid,
			c.StretchCountLog2, hashing.MinStretchCostLog2, hashing.MaxStretchCostLog2)
	}
	if _, err := c.level(); err != nil {
		return err
	}
	return nil
}

// Hashing builds the [hashing.Config] described by c.  Imported Argon2
// hashes are always accepted through the fallback chain; bare MD5 digests
// only when AllowMD5Digest is set.
func (c Config) Hashing(logger *slog.Logger) hashing.Config {
	fallback := []hashing.Verifier{hashing.Argon2Verifier{MaxMemory: c.Argon2MaxMemory}}
	if c.AllowMD5Digest {
		fallback = append(fallback, hashing.MD5DigestVerifier{})
	}
	return hashing.Config{
		Bcrypt:   c.bcryptOptions(),
		Stretch:  hashing.StretchOptions{CostLog2: c.StretchCountLog2},
		Fallback: hashing.Chain(fallback...),
		Logger:   logger,
	}
}

// Logger returns a text logger writing to w at LogLevel.
func (c Config) Logger(w io.Writer) (*slog.Logger, error) {
	lvl, err := c.level()
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

func (c Config) bcryptOptions() hashing.BcryptOptions {
	return hashing.BcryptOptions{
		Cost:    c.BcryptCost,
		MinCost: c.BcryptMinCost,
		MaxCost: c.BcryptMaxCost,
	}
}

func (c Config) level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalid, c.LogLevel)
	}
	return lvl, nil
}
