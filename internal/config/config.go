package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	Game    GameConfig
	Logging LoggingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host string
	Port int
	Env  string // "development" or "production"
}

// GameConfig holds game-related configuration
type GameConfig struct {
	RoomCodeLength   int
	OwnerGracePeriod time.Duration // zero closes the room as soon as the owner drops
	StaleRoomTimeout time.Duration
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // "json" or "text"
}

// Bind registers a flag for every setting on the given flag set, with the
// field as the flag's backing store.
func Bind(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVarP(&cfg.Server.Host, "bind", "b", "0.0.0.0", "address to bind to (env: TRIVIA_BIND)")
	fs.IntVarP(&cfg.Server.Port, "port", "p", 8080, "port to listen on (env: TRIVIA_PORT)")
	fs.StringVar(&cfg.Server.Env, "env", "development", "runtime environment, development or production (env: TRIVIA_ENV)")
	fs.IntVar(&cfg.Game.RoomCodeLength, "room-code-length", 6, "length of generated room codes (env: TRIVIA_ROOM_CODE_LENGTH)")
	fs.DurationVar(&cfg.Game.OwnerGracePeriod, "owner-grace-period", 30*time.Second, "time an owner may reconnect before their room is closed (env: TRIVIA_OWNER_GRACE_PERIOD)")
	fs.DurationVar(&cfg.Game.StaleRoomTimeout, "stale-room-timeout", 2*time.Hour, "time before empty rooms are reclaimed (env: TRIVIA_STALE_ROOM_TIMEOUT)")
	fs.StringVar(&cfg.Logging.Level, "log-level", "info", "log level: debug, info, warn or error (env: TRIVIA_LOG_LEVEL)")
	fs.StringVar(&cfg.Logging.Format, "log-format", "text", "log format: text or json (env: TRIVIA_LOG_FORMAT)")
}

// BindEnv overlays TRIVIA_* environment variables onto flags that were not
// set explicitly on the command line.
func BindEnv(fs *pflag.FlagSet) {
	v := viper.New()
	v.SetEnvPrefix("TRIVIA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Server.Port)
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid log format (must be text or json): %s", c.Logging.Format)
	}
	if c.Game.RoomCodeLength < 4 {
		return fmt.Errorf("room code length must be at least 4: %d", c.Game.RoomCodeLength)
	}
	if c.Game.OwnerGracePeriod < 0 {
		return fmt.Errorf("owner grace period cannot be negative: %s", c.Game.OwnerGracePeriod)
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// Addr returns the server address in host:port format
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}
