package chat

import (
	"strings"
	"testing"
)

func TestClassifyNickServ(t *testing.T) {
	cases := []struct {
		message string
		want    NickServVerdict
	}{
		{"You are now identified for \x02HamVerBot\x02.", VerdictIdentified},
		{"you are now identified for hamverbot", VerdictIdentified},
		{"This nickname is registered and you are already logged in as HamVerBot.", VerdictIdentified},
		{"Invalid password for \x02HamVerBot\x02.", VerdictBadPassword},
		{"This nickname is registered. Please choose a different nickname.", VerdictNone},
		{"", VerdictNone},
		{"Last login from: example.org", VerdictNone},
	}
	for _, tc := range cases {
		if got := ClassifyNickServ(tc.message); got != tc.want {
			t.Errorf("ClassifyNickServ(%q) = %v, want %v", tc.message, got, tc.want)
		}
	}
}

func TestMutateNickKeepsBase(t *testing.T) {
	got := MutateNick("HamVerBot")
	if !strings.HasPrefix(got, "HamVerBot") {
		t.Fatalf("mutated nick %q lost its base", got)
	}
	if len(got) != len("HamVerBot")+3 {
		t.Errorf("mutated nick %q should carry a three-digit suffix", got)
	}
}

func TestAuthStateString(t *testing.T) {
	if Connecting.String() != "connecting" || Authenticated.String() != "authenticated" {
		t.Error("state names changed")
	}
	if AuthState(42).String() != "AuthState(42)" {
		t.Errorf("unknown state formatting: %s", AuthState(42))
	}
}
