// Package config loads the server configuration from the environment,
// reading a .env file first when one exists.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	engine "github.com/jason-s-yu/dog/engine"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config is the server configuration.
type Config struct {
	Port            string
	RedisAddr       string // empty disables the snapshot cache and action log
	RedisPassword   string
	DatabaseURL     string // empty disables the historian
	JWTSecret       []byte
	TurnTimer       time.Duration // 0 disables turn time-outs
	AutoPlay        bool          // the server plays for disconnected seats
	DisconnectGrace time.Duration
	SnapshotTTL     time.Duration
	LogLevel        logrus.Level
	LogJSON         bool
	Rules           engine.HouseRules
}

// Load reads .env (if present) and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment alone.
func FromEnv() (Config, error) {
	cfg := Config{
		Port:          getenv("PORT", "8080"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSecret:     []byte(os.Getenv("JWT_SECRET")),
		Rules:         engine.DefaultHouseRules(),
	}
	if len(cfg.JWTSecret) == 0 {
		return Config{}, errors.New("JWT_SECRET must be set")
	}

	var err error
	if cfg.TurnTimer, err = seconds("TURN_TIMER_SEC", 30); err != nil {
		return Config{}, err
	}
	if cfg.DisconnectGrace, err = seconds("DISCONNECT_GRACE_SEC", 10); err != nil {
		return Config{}, err
	}
	if cfg.AutoPlay, err = boolean("AUTO_PLAY_DISCONNECTED", true); err != nil {
		return Config{}, err
	}
	if cfg.SnapshotTTL, err = seconds("SNAPSHOT_TTL_SEC", 24*60*60); err != nil {
		return Config{}, err
	}
	if cfg.LogLevel, err = logrus.ParseLevel(getenv("LOG_LEVEL", "info")); err != nil {
		return Config{}, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if cfg.LogJSON, err = boolean("LOG_JSON", false); err != nil {
		return Config{}, err
	}
	if cfg.Rules.CardExchange, err = boolean("DOG_CARD_EXCHANGE", cfg.Rules.CardExchange); err != nil {
		return Config{}, err
	}
	if cfg.Rules.FullHandRounds, err = boolean("DOG_FULL_HAND_ROUNDS", cfg.Rules.FullHandRounds); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func seconds(key string, def int) (time.Duration, error) {
	n, err := strconv.Atoi(getenv(key, strconv.Itoa(def)))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s: want a non-negative number of seconds", key)
	}
	return time.Duration(n) * time.Second, nil
}

func boolean(key string, def bool) (bool, error) {
	v, err := strconv.ParseBool(getenv(key, strconv.FormatBool(def)))
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}
