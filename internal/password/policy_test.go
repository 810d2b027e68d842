package password_test

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/ErlanBelekov/account-service/internal/password"
)

func TestIsStrong(t *testing.T) {
	tests := []struct {
		pw   string
		want bool
	}{
		{"Passw0rd!", true},
		{"NewPass1!", true},
		{"A1!aaaaa", true},
		{"Z9 zzzzz", true},
		{"password1", false}, // lowercase start, no symbol
		{"Password1", false}, // no symbol
		{"Password!", false}, // no digit
		{"P1!", false},       // too short
		{"Pa1!xyz", false},   // seven characters
		{"1Password!", false},
		{"!Password1", false},
		{"ÉPassword1!", false}, // non-ASCII uppercase start
		{"PASSWORD1!", true},
		{"", false},
	}
	for _, tt := range tests {
		if got := password.IsStrong(tt.pw); got != tt.want {
			t.Errorf("IsStrong(%q) = %v, want %v", tt.pw, got, tt.want)
		}
	}
}

// reference restates the rule independently so generated inputs can be
// checked against it.
func reference(pw string) bool {
	runes := []rune(pw)
	if len(runes) < 8 || runes[0] < 'A' || runes[0] > 'Z' {
		return false
	}
	hasLetter := strings.ContainsFunc(pw, func(r rune) bool { return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') })
	hasDigit := strings.ContainsFunc(pw, func(r rune) bool { return r >= '0' && r <= '9' })
	hasSymbol := strings.ContainsFunc(pw, func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
	})
	return hasLetter && hasDigit && hasSymbol
}

func TestIsStrong_GeneratedStrings(t *testing.T) {
	const alphabet = "abcXYZ019!@ #é"
	rnd := rand.New(rand.NewPCG(1, 2))
	chars := []rune(alphabet)

	for range 5000 {
		n := rnd.IntN(14)
		var b strings.Builder
		for range n {
			b.WriteRune(chars[rnd.IntN(len(chars))])
		}
		pw := b.String()
		if got, want := password.IsStrong(pw), reference(pw); got != want {
			t.Fatalf("IsStrong(%q) = %v, reference = %v", pw, got, want)
		}
	}
}

func TestHasher_HashAndCompare(t *testing.T) {
	h := password.NewHasher(4)

	hash, err := h.Hash("Passw0rd!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "Passw0rd!" {
		t.Fatal("hash equals clear text")
	}
	if !h.Compare(hash, "Passw0rd!") {
		t.Error("Compare rejected the correct password")
	}
	if h.Compare(hash, "Passw0rd?") {
		t.Error("Compare accepted a wrong password")
	}
}

func TestFingerprint_ChangesWithHash(t *testing.T) {
	h := password.NewHasher(4)
	a, _ := h.Hash("Passw0rd!")
	b, _ := h.Hash("Passw0rd!")

	if password.Fingerprint(a) != password.Fingerprint(a) {
		t.Error("fingerprint is not stable")
	}
	if password.Fingerprint(a) == password.Fingerprint(b) {
		t.Error("distinct hashes share a fingerprint")
	}
}
