// Package command implements the chat command surface: parsing user input
// behind the configured prefix and producing reply lines from the stores and
// services.
package command

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/obviyus/hamverbot/config"
	"github.com/obviyus/hamverbot/db"
	"github.com/obviyus/hamverbot/event"
	"github.com/obviyus/hamverbot/results"
	"github.com/obviyus/hamverbot/standings"
)

// ChannelJoiner joins a channel and persists it for future sessions.
type ChannelJoiner interface {
	Join(ctx context.Context, channel string) error
}

// aliases maps single-letter shorthand onto full command names.
var aliases = map[string]string{
	"n": "next",
	"w": "when",
	"p": "prev",
	"d": "drivers",
	"c": "constructors",
	"h": "help",
}

const helpText = "Commands: ping, next [timezone], when <session> [timezone], " +
	"prev, drivers, constructors, help. Timezones look like utc+5:30 or -8."

// Handler resolves commands against the event store and the result and
// standings services.
type Handler struct {
	DB        *sql.DB
	Results   *results.Service
	Standings *standings.Service
	Config    *config.Config
	Chat      ChannelJoiner

	// Now is swappable for tests; defaults to time.Now.
	Now func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// Handle dispatches one command and returns the reply lines. Unknown commands
// get no reply at all; shared channels should not be spammed over typos.
func (h *Handler) Handle(ctx context.Context, nick, command, args string) []string {
	if full, ok := aliases[command]; ok {
		command = full
	}
	switch command {
	case "ping":
		return []string{"pong"}
	case "next":
		return h.next(ctx, 0, args)
	case "when":
		session, rest := h.sessionArg(args)
		return h.next(ctx, session, rest)
	case "prev":
		return h.prev(ctx)
	case "drivers":
		return h.standingsReply(ctx, h.Standings.DriversMessage)
	case "constructors":
		return h.standingsReply(ctx, h.Standings.ConstructorsMessage)
	case "help":
		return []string{helpText}
	case "join":
		return h.join(ctx, nick, args)
	default:
		return nil
	}
}

// sessionArg peels a session-type token off the front of the argument string,
// leaving the rest (typically a timezone token) for the caller.
func (h *Handler) sessionArg(args string) (event.SessionType, string) {
	first, rest, _ := strings.Cut(strings.TrimSpace(args), " ")
	session, ok := event.ClassifyCommand(first)
	if !ok {
		return 0, args
	}
	return session, rest
}

func (h *Handler) next(ctx context.Context, session event.SessionType, args string) []string {
	now := h.now()
	ev, err := db.NextEvent(ctx, h.DB, session, now)
	if err != nil {
		slog.Error("next event lookup failed", slog.Any("err", err))
		return []string{"Something went wrong, try again later."}
	}
	if ev == nil {
		return []string{"No upcoming events found."}
	}
	typeName, err := db.SessionTypeName(ctx, h.DB, ev.Session)
	if err != nil {
		slog.Error("session type lookup failed", slog.Any("err", err))
		return []string{"Something went wrong, try again later."}
	}

	offset, haveOffset := ParseTimezone(strings.TrimSpace(args))
	when := TimeString(time.Unix(ev.StartTime, 0), now, offset, haveOffset)
	return []string{fmt.Sprintf("%s \x02%s: %s\x02 %s.",
		ev.Session.Emoji(), ev.MeetingName, typeName, when)}
}

func (h *Handler) prev(ctx context.Context) []string {
	line, err := h.Results.LatestMessage(ctx)
	if err != nil {
		slog.Error("previous result lookup failed", slog.Any("err", err))
		return []string{"Something went wrong, try again later."}
	}
	if line == "" {
		return []string{"No results available yet."}
	}
	return []string{line}
}

// join is owner-only: invite the bot into another channel.
func (h *Handler) join(ctx context.Context, nick, args string) []string {
	if h.Config == nil || !h.Config.IsOwner(nick) {
		return []string{"You are not allowed to do that."}
	}
	channel := strings.TrimSpace(args)
	if !strings.HasPrefix(channel, "#") || h.Chat == nil {
		return []string{"Usage: join #channel"}
	}
	if err := h.Chat.Join(ctx, channel); err != nil {
		slog.Error("join failed", slog.Any("err", err), slog.String("channel", channel))
		return []string{"Something went wrong, try again later."}
	}
	return []string{fmt.Sprintf("Joined %s.", channel)}
}

func (h *Handler) standingsReply(ctx context.Context, fetch func(context.Context) (string, error)) []string {
	line, err := fetch(ctx)
	if err != nil {
		slog.Error("standings lookup failed", slog.Any("err", err))
		return []string{"Standings are unavailable right now."}
	}
	return []string{line}
}
