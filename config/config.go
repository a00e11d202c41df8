// Package config loads environment variables and provides a typed Config used
// across the service. It applies sensible defaults so the binary can run
// locally with minimal setup; use ValidateChatReady when the IRC session is
// required.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	// IRC
	IRCServer        string // host:port
	IRCUseTLS        bool
	Nickname         string
	Realname         string
	ServerPassword   string
	NickServPassword string
	UseSASL          bool
	Channels         []string
	CommandPrefix    string
	Owners           []string

	// Database
	DBDsn string

	// HTTP
	HTTPAddr string

	// Feeds
	CalendarURL   string
	LiveTimingURL string
	ErgastURL     string
}

// Load reads environment variables and applies defaults. DB_DSN is the one
// hard requirement: every feature path goes through the database, so a
// missing DSN is a configuration error rather than something to default
// around.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.IRCServer = os.Getenv("IRC_SERVER")
	if cfg.IRCServer == "" {
		cfg.IRCServer = "irc.libera.chat:6697"
	}
	cfg.IRCUseTLS = true
	if v := os.Getenv("IRC_USE_TLS"); v != "" {
		useTLS, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid IRC_USE_TLS: %w", err)
		}
		cfg.IRCUseTLS = useTLS
	}

	cfg.Nickname = os.Getenv("IRC_NICKNAME")
	if cfg.Nickname == "" {
		cfg.Nickname = "HamVerBot"
	}
	cfg.Realname = os.Getenv("IRC_REALNAME")
	if cfg.Realname == "" {
		cfg.Realname = cfg.Nickname
	}
	cfg.ServerPassword = os.Getenv("IRC_SERVER_PASSWORD")
	cfg.NickServPassword = os.Getenv("IRC_NICKSERV_PASSWORD")

	// SASL is preferred whenever a services password is present; the session
	// falls back to NickServ IDENTIFY when the server rejects it.
	cfg.UseSASL = cfg.NickServPassword != ""
	if v := os.Getenv("IRC_USE_SASL"); v != "" {
		useSASL, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid IRC_USE_SASL: %w", err)
		}
		cfg.UseSASL = useSASL
	}

	cfg.Channels = splitList(os.Getenv("IRC_CHANNELS"))
	cfg.Owners = splitList(os.Getenv("IRC_OWNERS"))

	cfg.CommandPrefix = os.Getenv("COMMAND_PREFIX")
	if cfg.CommandPrefix == "" {
		cfg.CommandPrefix = "!"
	}

	cfg.DBDsn = os.Getenv("DB_DSN")
	if cfg.DBDsn == "" {
		return nil, fmt.Errorf("DB_DSN is required")
	}

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	cfg.CalendarURL = os.Getenv("CALENDAR_URL")
	cfg.LiveTimingURL = os.Getenv("LIVETIMING_URL")
	cfg.ErgastURL = os.Getenv("ERGAST_URL")

	return cfg, nil
}

// ValidateChatReady checks the fields the IRC session cannot run without.
func (c *Config) ValidateChatReady() error {
	if c.IRCServer == "" || c.Nickname == "" {
		return fmt.Errorf("missing irc env: require IRC_SERVER, IRC_NICKNAME")
	}
	return nil
}

// IsOwner reports whether a nick is in the configured owner list,
// case-insensitively.
func (c *Config) IsOwner(nick string) bool {
	for _, owner := range c.Owners {
		if strings.EqualFold(owner, nick) {
			return true
		}
	}
	return false
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
