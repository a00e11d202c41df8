// Package event defines the closed set of Formula 1 session types and the
// pure classification and identifier-derivation logic built on top of it:
// mapping free-text calendar summaries, live-timing path keys, and user
// command arguments onto SessionType, extracting meeting names, and deriving
// stable event slugs used as upsert keys.
package event

// SessionType identifies one kind of on-track session. The numeric values are
// persisted in the event_type table and must stay stable.
type SessionType int

const (
	LiveryReveal SessionType = iota + 1
	FreePractice1
	FreePractice2
	FreePractice3
	Qualifying
	Sprint
	Race
	SprintQualifying
)

// Name returns the canonical display name as seeded into the event_type
// table. Result titles read the name back from the store instead of calling
// this, so stored events and broadcast titles can never drift apart; this is
// the seed source and the offline fallback.
func (t SessionType) Name() string {
	switch t {
	case LiveryReveal:
		return "Livery Reveal"
	case FreePractice1:
		return "Practice 1"
	case FreePractice2:
		return "Practice 2"
	case FreePractice3:
		return "Practice 3"
	case Qualifying:
		return "Qualifying"
	case Sprint:
		return "Sprint"
	case Race:
		return "Race"
	case SprintQualifying:
		return "Sprint Qualifying"
	default:
		return "Unknown"
	}
}

// Emoji returns the decoration used in broadcast lines.
func (t SessionType) Emoji() string {
	switch t {
	case LiveryReveal:
		return "\U0001F3A8" // 🎨
	case Qualifying, SprintQualifying:
		return "⏱️" // ⏱️
	case Sprint:
		return "\U0001F3C1" // 🏁
	default:
		return "\U0001F3CE️" // 🏎️
	}
}

// slugSuffix is the per-type tail of an event slug.
func (t SessionType) slugSuffix() string {
	switch t {
	case LiveryReveal:
		return "livery"
	case FreePractice1:
		return "fp1"
	case FreePractice2:
		return "fp2"
	case FreePractice3:
		return "fp3"
	case Qualifying:
		return "qualifying"
	case Sprint:
		return "sprint"
	case SprintQualifying:
		return "sprint-qualifying"
	case Race:
		return "race"
	default:
		return "unknown"
	}
}

// Valid reports whether t is one of the known session types.
func (t SessionType) Valid() bool {
	return t >= LiveryReveal && t <= SprintQualifying
}

// All lists every session type in persisted-id order, for seeding the
// event_type lookup table.
func All() []SessionType {
	return []SessionType{
		LiveryReveal,
		FreePractice1,
		FreePractice2,
		FreePractice3,
		Qualifying,
		Sprint,
		Race,
		SprintQualifying,
	}
}
