package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestBind_Defaults(t *testing.T) {
	req := require.New(t)

	cfg := &Config{}
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	Bind(fs, cfg)
	req.NoError(fs.Parse(nil))

	req.Equal("0.0.0.0", cfg.Server.Host)
	req.Equal(8080, cfg.Server.Port)
	req.Equal(6, cfg.Game.RoomCodeLength)
	req.Equal(30*time.Second, cfg.Game.OwnerGracePeriod)
	req.Equal("info", cfg.Logging.Level)
	req.Equal("text", cfg.Logging.Format)

	req.NoError(cfg.Validate())
	req.True(cfg.IsDevelopment())
	req.Equal("0.0.0.0:8080", cfg.Addr())
}

func TestBind_FlagOverrides(t *testing.T) {
	req := require.New(t)

	cfg := &Config{}
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	Bind(fs, cfg)
	req.NoError(fs.Parse([]string{"--port", "9000", "--owner-grace-period", "0s", "--log-format", "json"}))

	req.Equal(9000, cfg.Server.Port)
	req.Equal(time.Duration(0), cfg.Game.OwnerGracePeriod)
	req.Equal("json", cfg.Logging.Format)
	req.NoError(cfg.Validate())
}

func TestBind_EnvOverrides(t *testing.T) {
	req := require.New(t)
	t.Setenv("TRIVIA_PORT", "9999")
	t.Setenv("TRIVIA_LOG_LEVEL", "debug")

	cfg := &Config{}
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	Bind(fs, cfg)
	req.NoError(fs.Parse(nil))
	BindEnv(fs)

	req.Equal(9999, cfg.Server.Port)
	req.Equal("debug", cfg.Logging.Level)
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port too low", func(c *Config) { c.Server.Port = 0 }},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }},
		{"bad log format", func(c *Config) { c.Logging.Format = "yaml" }},
		{"short room code", func(c *Config) { c.Game.RoomCodeLength = 2 }},
		{"negative grace", func(c *Config) { c.Game.OwnerGracePeriod = -time.Second }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)
			cfg := &Config{}
			fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
			Bind(fs, cfg)
			req.NoError(fs.Parse(nil))

			tc.mutate(cfg)
			req.Error(cfg.Validate())
		})
	}
}
