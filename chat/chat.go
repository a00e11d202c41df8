// Package chat runs the IRC session: registration, services authentication
// with SASL and a NickServ fallback, channel membership, command dispatch and
// channel-wide broadcasts.
package chat

import (
	"context"
	"crypto/tls"
	"database/sql"
	"log/slog"
	"strings"
	"sync"

	irc "github.com/thoj/go-ircevent"

	"github.com/obviyus/hamverbot/config"
	"github.com/obviyus/hamverbot/db"
	"github.com/obviyus/hamverbot/telemetry"
)

// CommandFunc handles one prefixed command. It returns the reply lines to
// send back to wherever the command came from.
type CommandFunc func(ctx context.Context, nick, command, args string) []string

// Session is a live IRC connection plus the state needed to know when it is
// safe to join channels and speak.
type Session struct {
	cfg     *config.Config
	db      *sql.DB
	conn    *irc.Connection
	handler CommandFunc

	mu    sync.Mutex
	state AuthState

	readyMu sync.Mutex
	ready   chan struct{}
}

// New wires up the connection and its callbacks but does not connect.
func New(cfg *config.Config, database *sql.DB, handler CommandFunc) *Session {
	conn := irc.IRC(cfg.Nickname, cfg.Realname)
	conn.Password = cfg.ServerPassword
	conn.UseTLS = cfg.IRCUseTLS
	if cfg.IRCUseTLS {
		host := cfg.IRCServer
		if idx := strings.LastIndex(host, ":"); idx > 0 {
			host = host[:idx]
		}
		conn.TLSConfig = &tls.Config{ServerName: host}
	}
	if cfg.UseSASL && cfg.NickServPassword != "" {
		conn.UseSASL = true
		conn.SASLLogin = cfg.Nickname
		conn.SASLPassword = cfg.NickServPassword
	}

	s := &Session{
		cfg:     cfg,
		db:      database,
		conn:    conn,
		handler: handler,
		state:   Connecting,
		ready:   make(chan struct{}),
	}
	s.installCallbacks()
	return s
}

// Run connects and blocks until the context is cancelled, then quits cleanly.
func (s *Session) Run(ctx context.Context) error {
	if err := s.conn.Connect(s.cfg.IRCServer); err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		s.conn.QuitMessage = "shutting down"
		s.conn.Quit()
	}()
	s.conn.Loop()
	return nil
}

// State returns the current auth state.
func (s *Session) State() AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(state AuthState) {
	s.mu.Lock()
	prev := s.state
	s.state = state
	s.mu.Unlock()
	if prev != state {
		slog.Info("irc auth state change",
			slog.String("from", prev.String()), slog.String("to", state.String()))
	}
}

// Ready returns a channel closed once the session reaches Authenticated. It
// is re-armed on every fresh registration, so reconnects gate again.
func (s *Session) Ready() <-chan struct{} {
	s.readyMu.Lock()
	defer s.readyMu.Unlock()
	return s.ready
}

func (s *Session) armReady() {
	s.readyMu.Lock()
	select {
	case <-s.ready:
		s.ready = make(chan struct{})
	default:
	}
	s.readyMu.Unlock()
}

func (s *Session) signalReady() {
	s.readyMu.Lock()
	select {
	case <-s.ready:
	default:
		close(s.ready)
	}
	s.readyMu.Unlock()
}

func (s *Session) installCallbacks() {
	// Registration complete. With SASL the 903 callback has usually fired
	// already; without a services password there is nothing further to wait
	// for.
	s.conn.AddCallback("001", func(e *irc.Event) {
		s.armReady()
		s.setState(Registered)
		if s.cfg.NickServPassword == "" {
			s.onAuthenticated()
			return
		}
		if s.conn.UseSASL {
			// SASL completed before 001; treat registration as the final
			// gate.
			s.onAuthenticated()
			return
		}
		s.setState(Authenticating)
		s.conn.Privmsgf("NickServ", "IDENTIFY %s", s.cfg.NickServPassword)
	})

	// SASL rejected. The library surfaces this as a connection error and
	// reconnects; disabling SASL here makes the next registration take the
	// NickServ IDENTIFY route instead of failing the same way again.
	s.conn.AddCallback("904", func(e *irc.Event) {
		slog.Warn("sasl authentication failed, falling back to nickserv")
		s.conn.UseSASL = false
		s.conn.SASLPassword = ""
	})

	// Nick in use during registration.
	s.conn.AddCallback("433", func(e *irc.Event) {
		next := s.conn.GetNick() + "_"
		slog.Warn("nickname in use", slog.String("next", next))
		s.conn.Nick(next)
	})

	s.conn.AddCallback("NOTICE", func(e *irc.Event) {
		if !strings.EqualFold(e.Nick, "NickServ") {
			return
		}
		switch ClassifyNickServ(e.Message()) {
		case VerdictIdentified:
			s.onAuthenticated()
		case VerdictBadPassword:
			// A rejected password means the nick belongs to someone else.
			// Mutate and re-register rather than hammering services.
			next := MutateNick(s.cfg.Nickname)
			slog.Warn("nickserv rejected password, mutating nick", slog.String("next", next))
			s.conn.Nick(next)
			s.setState(Registered)
		}
	})

	s.conn.AddCallback("PRIVMSG", func(e *irc.Event) {
		s.onPrivmsg(e)
	})
}

// onAuthenticated marks the session usable, sets the bot mode and joins every
// configured and previously stored channel.
func (s *Session) onAuthenticated() {
	s.setState(Authenticated)
	s.conn.Mode(s.conn.GetNick(), "+B")

	ctx := context.Background()
	channels := make(map[string]struct{})
	for _, ch := range s.cfg.Channels {
		channels[ch] = struct{}{}
	}
	stored, err := db.AllChannels(ctx, s.db)
	if err != nil {
		slog.Error("failed to load stored channels", slog.Any("err", err))
	}
	for _, ch := range stored {
		channels[ch] = struct{}{}
	}
	for ch := range channels {
		s.conn.Join(ch)
		if err := db.AddChannel(ctx, s.db, ch); err != nil {
			slog.Error("failed to persist channel", slog.Any("err", err), slog.String("channel", ch))
		}
	}
	s.signalReady()
}

func (s *Session) onPrivmsg(e *irc.Event) {
	if s.handler == nil || len(e.Arguments) == 0 {
		return
	}
	text := strings.TrimSpace(e.Message())
	if !strings.HasPrefix(text, s.cfg.CommandPrefix) {
		return
	}
	command, args, _ := strings.Cut(strings.TrimPrefix(text, s.cfg.CommandPrefix), " ")
	command = strings.ToLower(strings.TrimSpace(command))
	if command == "" {
		return
	}

	// Channel messages get replied to in the channel; direct messages go
	// back to the sender's nick.
	target := e.Arguments[0]
	if !strings.HasPrefix(target, "#") {
		target = e.Nick
	}

	telemetry.CommandsHandled.WithLabelValues(command).Inc()
	replies := s.handler(context.Background(), e.Nick, command, strings.TrimSpace(args))
	for _, reply := range replies {
		if reply != "" {
			s.conn.Privmsg(target, reply)
		}
	}
}

// Broadcast sends one line to every registered channel. It is a no-op until
// the session is authenticated, so scheduled jobs firing during a reconnect
// drop their announcement instead of speaking from an unidentified nick.
func (s *Session) Broadcast(ctx context.Context, line string) {
	if s.State() != Authenticated {
		slog.Warn("broadcast skipped, session not authenticated")
		return
	}
	channels, err := db.AllChannels(ctx, s.db)
	if err != nil {
		slog.Error("failed to load channels for broadcast", slog.Any("err", err))
		return
	}
	for _, ch := range channels {
		s.conn.Privmsg(ch, line)
	}
	telemetry.BroadcastsSent.Inc()
}

// Join adds a channel at runtime, persisting it for future sessions.
func (s *Session) Join(ctx context.Context, channel string) error {
	if err := db.AddChannel(ctx, s.db, channel); err != nil {
		return err
	}
	s.conn.Join(channel)
	return nil
}
