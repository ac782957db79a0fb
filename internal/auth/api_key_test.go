package auth

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"video-generation-api/internal/domain"
)

func newTestAuthenticator(keys ...string) *Authenticator {
	logger := zerolog.Nop()
	return NewAuthenticator(keys, &logger)
}

func TestFingerprint(t *testing.T) {
	fp := Fingerprint("my-secret-api-key-1234")
	if len(fp) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(fp))
	}
	if _, err := hex.DecodeString(fp); err != nil {
		t.Fatalf("fingerprint is not hex: %v", err)
	}
	if fp == Fingerprint("my-secret-api-key-1235") {
		t.Error("distinct keys share a fingerprint")
	}
	if fp != Fingerprint("my-secret-api-key-1234") {
		t.Error("fingerprint is not stable")
	}
}

func TestValidKeyFormat(t *testing.T) {
	valid := []string{
		"abcdefgh12345678",
		"A_very-long_key-with-43-characters_exactly1",
	}
	for _, k := range valid {
		if !ValidKeyFormat(k) {
			t.Errorf("%q should be valid", k)
		}
	}
	invalid := []string{
		"",
		"short",
		"fifteen-chars!!",
		"has spaces in the key",
		"emoji🔑emoji-key-123",
		"semi;colon-key-12345",
	}
	for _, k := range invalid {
		if ValidKeyFormat(k) {
			t.Errorf("%q should be invalid", k)
		}
	}
}

func TestAuthenticatorVerify(t *testing.T) {
	const goodKey = "test-key-aaaaaaaaaaaaaaaa"
	a := newTestAuthenticator("other-key-bbbbbbbbbbbbbb", goodKey, "third-key-cccccccccccccc")

	t.Run("should return the fingerprint for a configured key", func(t *testing.T) {
		fp, err := a.Verify(goodKey)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fp != Fingerprint(goodKey) {
			t.Error("returned fingerprint does not match")
		}
	})

	t.Run("should fail closed on missing, malformed and unknown keys", func(t *testing.T) {
		for _, k := range []string{"", "short", "unknown-key-dddddddddddddd"} {
			if _, err := a.Verify(k); err == nil {
				t.Errorf("key %q accepted", k)
			} else if !domain.IsKind(err, domain.FaultAuthentication) {
				t.Errorf("expected authentication fault for %q, got %v", k, err)
			}
		}
	})

	t.Run("should not leak the key in the error", func(t *testing.T) {
		_, err := a.Verify("unknown-key-dddddddddddddd")
		if err == nil {
			t.Fatal("expected error")
		}
		if strings.Contains(err.Error(), "unknown-key") {
			t.Error("error message leaks the credential")
		}
	})

	t.Run("should reject everything when no keys are configured", func(t *testing.T) {
		empty := newTestAuthenticator()
		if _, err := empty.Verify(goodKey); err == nil {
			t.Fatal("empty key set accepted a credential")
		}
	})
}

func TestGenerateKey(t *testing.T) {
	k1, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	k2, _ := GenerateKey()
	if k1 == k2 {
		t.Fatal("generated keys collide")
	}
	if len(k1) != 43 {
		t.Errorf("expected 43 chars, got %d", len(k1))
	}
	if !ValidKeyFormat(k1) {
		t.Errorf("generated key fails its own format check: %q", k1)
	}
}
