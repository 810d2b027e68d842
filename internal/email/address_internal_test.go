package email

import (
	"net/mail"
	"strings"
	"testing"
)

func TestFormatAddress(t *testing.T) {
	tests := []struct {
		name     string
		display  string
		addr     string
		expected string
	}{
		{"no display name", "", "a@x.com", "a@x.com"},
		{"plain name is quoted", "Ann", "a@x.com", `"Ann" <a@x.com>`},
		{"specials stay inside the quotes", `Eve <evil@x.com>, Bob`, "a@x.com", `"Eve <evil@x.com>, Bob" <a@x.com>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatAddress(tt.display, tt.addr); got != tt.expected {
				t.Errorf("formatAddress(%q, %q) = %q, want %q", tt.display, tt.addr, got, tt.expected)
			}
		})
	}
}

func TestFormatAddress_SingleRecipient(t *testing.T) {
	for _, display := range []string{`Eve <evil@x.com>, Bob`, `Ann "The Admin" O'Neil, Jr.`, `a@x.com; evil@x.com`} {
		list, err := mail.ParseAddressList(formatAddress(display, "a@x.com"))
		if err != nil {
			t.Fatalf("parse %q: %v", display, err)
		}
		if len(list) != 1 || list[0].Address != "a@x.com" {
			t.Errorf("display %q yields recipients %v, want only a@x.com", display, list)
		}
	}
}

func TestFormatAddress_NoRawLineBreaks(t *testing.T) {
	got := formatAddress("Mallory\r\nBcc: evil@x.com", "a@x.com")
	if strings.ContainsAny(got, "\r\n") {
		t.Errorf("formatAddress kept a line break: %q", got)
	}
	if !strings.HasSuffix(got, " <a@x.com>") {
		t.Errorf("formatAddress = %q, want the address last", got)
	}
}

func TestIdentityAddress(t *testing.T) {
	if got := (Identity{From: "no-reply@x.com"}).address(); got != "no-reply@x.com" {
		t.Errorf("address = %q", got)
	}
	if got := (Identity{From: "no-reply@x.com", Name: "Accounts"}).address(); got != `"Accounts" <no-reply@x.com>` {
		t.Errorf("address = %q", got)
	}
}
