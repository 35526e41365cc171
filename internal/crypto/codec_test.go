package crypto

import (
	"bytes"
	"encoding/base64"
	"testing"
)

func newTestCodec(t *testing.T, secret string) *Codec {
	t.Helper()
	c, err := NewCodec(secret, "test-salt")
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestRoundTrip(t *testing.T) {
	c := newTestCodec(t, "shared-secret")

	for _, msg := range []string{"hi", "a longer message with spaces", "ünïcode ✓", string(make([]byte, 1024))} {
		env, err := c.Encrypt([]byte(msg))
		if err != nil {
			t.Fatal(err)
		}
		pt, err := c.Decrypt(env)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(pt, []byte(msg)) {
			t.Fatalf("round trip mismatch for %q", msg)
		}
	}
}

func TestDifferentEnvelopes(t *testing.T) {
	c := newTestCodec(t, "shared-secret")

	env1, _ := c.Encrypt([]byte("same"))
	env2, _ := c.Encrypt([]byte("same"))
	if env1 == env2 {
		t.Fatal("envelopes should differ for same plaintext")
	}

	pt1, _ := c.Decrypt(env1)
	pt2, _ := c.Decrypt(env2)
	if string(pt1) != "same" || string(pt2) != "same" {
		t.Fatal("both should decrypt to 'same'")
	}
}

func TestWrongSecretFails(t *testing.T) {
	c1 := newTestCodec(t, "secret-one")
	c2 := newTestCodec(t, "secret-two")

	env, _ := c1.Encrypt([]byte("private"))
	_, err := c2.Decrypt(env)
	if err == nil {
		t.Fatal("expected error with wrong secret")
	}
	if !IsDecryptionError(err) {
		t.Fatalf("expected DecryptionError, got %T", err)
	}
}

func TestTamperedCiphertext(t *testing.T) {
	c := newTestCodec(t, "shared-secret")

	env, _ := c.Encrypt([]byte("private"))
	raw, _ := base64.StdEncoding.DecodeString(env)
	raw[len(raw)-20] ^= 0xFF
	tampered := base64.StdEncoding.EncodeToString(raw)

	if _, err := c.Decrypt(tampered); err == nil {
		t.Fatal("expected error with tampered envelope")
	}
}

func TestMalformedEnvelope(t *testing.T) {
	c := newTestCodec(t, "shared-secret")

	cases := []string{
		"not base64 at all!!!",
		base64.StdEncoding.EncodeToString([]byte("not json")),
		base64.StdEncoding.EncodeToString([]byte(`{"iv":"zz","content":"zz","ts":0}`)),
		base64.StdEncoding.EncodeToString([]byte(`{"iv":"00000000000000000000000000000000","content":"abcd","ts":0}`)),
	}
	for _, in := range cases {
		_, err := c.Decrypt(in)
		if err == nil {
			t.Fatalf("expected error for %q", in)
		}
		if !IsDecryptionError(err) {
			t.Fatalf("expected DecryptionError for %q, got %T", in, err)
		}
	}
}

func TestEmptySecretRejected(t *testing.T) {
	if _, err := NewCodec("", "salt"); err == nil {
		t.Fatal("expected error for empty secret")
	}
}
