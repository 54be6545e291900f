// Package config reads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Environment variable names.
const (
	EnvLogLevel  = "SCRIPTCORE_LOG_LEVEL"
	EnvLogFile   = "SCRIPTCORE_LOG_FILE"
	EnvSaveDir   = "SCRIPTCORE_SAVE_DIR"
	EnvRecordDir = "SCRIPTCORE_RECORD_DIR"
	EnvTickHz    = "SCRIPTCORE_TICK_HZ"
	EnvMissTTL   = "SCRIPTCORE_MISS_TTL"
	EnvSeed      = "SCRIPTCORE_SEED"
)

// Config holds the settings shared by the CLI and TUI front-ends.
type Config struct {
	LogLevel  string
	LogFile   string
	SaveDir   string
	RecordDir string
	TickHz    int
	MissTTL   time.Duration
	Seed      int64
}

// TickInterval is the wall-clock time between engine ticks.
func (c Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TickHz)
}

// Load reads the given .env files, or ./.env when none are named, then
// the environment. A missing default .env is not an error; a named file
// that cannot be read is.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return Config{}, errors.Wrap(err, "loading env file")
		}
	} else {
		_ = godotenv.Load()
	}

	base := ".scriptcore"
	if home, err := os.UserHomeDir(); err == nil {
		base = filepath.Join(home, ".scriptcore")
	}

	cfg := Config{
		LogLevel:  getEnv(EnvLogLevel, "info"),
		LogFile:   getEnv(EnvLogFile, ""),
		SaveDir:   getEnv(EnvSaveDir, filepath.Join(base, "saves")),
		RecordDir: getEnv(EnvRecordDir, filepath.Join(base, "records")),
	}

	var err error
	if cfg.TickHz, err = getEnvInt(EnvTickHz, 30); err != nil {
		return Config{}, err
	}
	if cfg.TickHz <= 0 {
		return Config{}, errors.Errorf("%s must be positive, got %d", EnvTickHz, cfg.TickHz)
	}

	ttl, err := getEnvFloat(EnvMissTTL, 5)
	if err != nil {
		return Config{}, err
	}
	cfg.MissTTL = time.Duration(ttl * float64(time.Second))

	seed, err := getEnvInt(EnvSeed, 0)
	if err != nil {
		return Config{}, err
	}
	cfg.Seed = int64(seed)
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "parsing %s", key)
	}
	return n, nil
}

func getEnvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parsing %s", key)
	}
	return f, nil
}
