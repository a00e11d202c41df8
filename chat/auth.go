package chat

import (
	"fmt"
	"math/rand"
	"strings"
)

// AuthState tracks where the connection is in its registration and
// identification lifecycle. Channel joins and broadcasts wait for
// Authenticated.
type AuthState int

const (
	// Connecting: TCP/TLS established, server registration not yet complete.
	Connecting AuthState = iota
	// Registered: the server accepted registration (001) but services have
	// not confirmed identity.
	Registered
	// Authenticating: credentials sent (SASL exchange or NickServ IDENTIFY),
	// awaiting verdict.
	Authenticating
	// Authenticated: services confirmed identity; the session is usable.
	Authenticated
)

func (s AuthState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Registered:
		return "registered"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("AuthState(%d)", int(s))
	}
}

// NickServVerdict classifies a NickServ notice.
type NickServVerdict int

const (
	VerdictNone NickServVerdict = iota
	VerdictIdentified
	VerdictBadPassword
)

// ClassifyNickServ inspects a message from NickServ for an identification
// verdict. Matching is substring-based; services phrase these lines
// consistently across deployments.
func ClassifyNickServ(message string) NickServVerdict {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "you are now identified"),
		strings.Contains(lower, "already logged in"),
		strings.Contains(lower, "already identified"):
		return VerdictIdentified
	case strings.Contains(lower, "invalid password"):
		return VerdictBadPassword
	default:
		return VerdictNone
	}
}

// MutateNick appends a short random suffix so a fresh registration attempt
// does not collide with the nick whose password was rejected.
func MutateNick(nick string) string {
	return fmt.Sprintf("%s%03d", nick, rand.Intn(1000))
}
