package results

import (
	"context"
	"fmt"
	"time"

	"github.com/obviyus/hamverbot/db"
)

// alertWindow is the lead time within which an upcoming session is announced.
const alertWindow = 5 * time.Minute

// AlertMessage renders an imminent-session announcement when the event starts
// within the alert window. An event starting in exactly five minutes fires;
// one already started, or further out, does not.
func AlertMessage(ev *db.StoredEvent, typeName string, now time.Time) (string, bool) {
	until := time.Unix(ev.StartTime, 0).Sub(now)
	if until <= 0 || until > alertWindow {
		return "", false
	}
	return fmt.Sprintf("%s \x02%s: %s\x02 begins in 5 minutes.",
		ev.Session.Emoji(), ev.MeetingName, typeName), true
}

// CheckUpcoming runs one alert cycle: look up the next stored event of any
// kind and broadcast when it falls inside the alert window. Alerts carry no
// delivered state, so a window wider than the polling interval would repeat;
// the two are kept equal.
func (s *Service) CheckUpcoming(ctx context.Context, b Broadcaster, now time.Time) error {
	ev, err := db.NextEvent(ctx, s.DB, 0, now)
	if err != nil {
		return err
	}
	if ev == nil {
		return nil
	}
	typeName, err := db.SessionTypeName(ctx, s.DB, ev.Session)
	if err != nil {
		return err
	}
	msg, due := AlertMessage(ev, typeName, now)
	if !due {
		return nil
	}
	b.Broadcast(ctx, msg)
	return nil
}
