package auth

import (
	"strings"
	"testing"
)

func TestNewAuthenticatorRequiresSecret(t *testing.T) {
	t.Parallel()

	if _, err := NewAuthenticator(""); err == nil {
		t.Fatal("expected error for empty secret")
	}
	if _, err := NewAuthenticator("   "); err == nil {
		t.Fatal("expected error for blank secret")
	}
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	authenticator, err := NewAuthenticator("super-secret-key")
	if err != nil {
		t.Fatalf("NewAuthenticator() error = %v", err)
	}

	testCases := []struct {
		name         string
		presentedKey string
		want         bool
	}{
		{name: "correct key", presentedKey: "super-secret-key", want: true},
		{name: "wrong key", presentedKey: "wrong-key", want: false},
		{name: "empty key fails closed", presentedKey: "", want: false},
		{name: "prefix of secret", presentedKey: "super-secret", want: false},
		{name: "secret with suffix", presentedKey: "super-secret-key-extra", want: false},
		{name: "same length different last byte", presentedKey: "super-secret-keX", want: false},
		{name: "very long key", presentedKey: strings.Repeat("a", 1<<16), want: false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := authenticator.Authenticate(tc.presentedKey); got != tc.want {
				t.Fatalf("Authenticate(%q) = %v, want %v", tc.presentedKey, got, tc.want)
			}
		})
	}
}

func TestAuthenticateNilReceiver(t *testing.T) {
	t.Parallel()

	var authenticator *Authenticator
	if authenticator.Authenticate("anything") {
		t.Fatal("nil authenticator must reject")
	}
}
